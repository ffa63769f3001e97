package config

import (
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"github.com/mnemo-lab/mnemo/pkg/service/assembler"
	"github.com/mnemo-lab/mnemo/pkg/service/planner"
	"github.com/mnemo-lab/mnemo/pkg/usecase"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Pipeline holds the retrieval pipeline tuning values. Flags cover every
// value; a TOML file given with --config overrides the flags.
type Pipeline struct {
	configPath string

	Strategy      string `toml:"strategy"`
	RetrievalK    int    `toml:"retrieval_k"`
	QueryCap      int    `toml:"query_expansion_cap"`
	ContextBudget int    `toml:"context_budget"`
	FetchLimit    int    `toml:"fetch_limit"`
	LLMExpansion  bool   `toml:"llm_expansion"`
}

// Flags returns CLI flags for pipeline configuration
func (p *Pipeline) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to a TOML file with pipeline tuning values",
			Sources:     cli.EnvVars("MNEMO_CONFIG"),
			Destination: &p.configPath,
		},
		&cli.StringFlag{
			Name:        "doc-strategy",
			Usage:       "Document build strategy (individual, aggregated or hybrid)",
			Value:       string(types.StrategyIndividual),
			Sources:     cli.EnvVars("MNEMO_DOC_STRATEGY"),
			Destination: &p.Strategy,
		},
		&cli.IntFlag{
			Name:        "retrieval-k",
			Usage:       "Number of documents retrieved per search query",
			Value:       usecase.DefaultRetrievalK,
			Sources:     cli.EnvVars("MNEMO_RETRIEVAL_K"),
			Destination: &p.RetrievalK,
		},
		&cli.IntFlag{
			Name:        "query-expansion-cap",
			Usage:       "Total number of queries per question, original included",
			Value:       planner.DefaultQueryCap,
			Sources:     cli.EnvVars("MNEMO_QUERY_EXPANSION_CAP"),
			Destination: &p.QueryCap,
		},
		&cli.IntFlag{
			Name:        "context-budget",
			Usage:       "Character budget of the assembled context",
			Value:       assembler.DefaultBudget,
			Sources:     cli.EnvVars("MNEMO_CONTEXT_BUDGET"),
			Destination: &p.ContextBudget,
		},
		&cli.BoolFlag{
			Name:        "llm-expansion",
			Usage:       "Expand queries with an LLM paraphrase instead of the rule table",
			Sources:     cli.EnvVars("MNEMO_LLM_EXPANSION"),
			Destination: &p.LLMExpansion,
		},
		&cli.IntFlag{
			Name:        "fetch-limit",
			Usage:       "Maximum number of member messages fetched from the source",
			Value:       10000,
			Sources:     cli.EnvVars("MNEMO_FETCH_LIMIT"),
			Destination: &p.FetchLimit,
		},
	}
}

// LogAttrs returns log attributes for the pipeline configuration
func (p *Pipeline) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("strategy", p.Strategy),
		slog.Int("retrieval_k", p.RetrievalK),
		slog.Int("query_expansion_cap", p.QueryCap),
		slog.Int("context_budget", p.ContextBudget),
		slog.Int("fetch_limit", p.FetchLimit),
		slog.Bool("llm_expansion", p.LLMExpansion),
	}
}

// Validate checks the pipeline tuning values
func (p *Pipeline) Validate() error {
	if !types.DocStrategy(p.Strategy).IsValid() {
		return goerr.New("invalid document strategy", goerr.V("strategy", p.Strategy))
	}
	if p.RetrievalK <= 0 {
		return goerr.New("retrieval-k must be positive", goerr.V("retrieval_k", p.RetrievalK))
	}
	if p.QueryCap <= 0 {
		return goerr.New("query-expansion-cap must be positive", goerr.V("query_expansion_cap", p.QueryCap))
	}
	if p.ContextBudget <= 0 {
		return goerr.New("context-budget must be positive", goerr.V("context_budget", p.ContextBudget))
	}
	if p.FetchLimit <= 0 {
		return goerr.New("fetch-limit must be positive", goerr.V("fetch_limit", p.FetchLimit))
	}
	return nil
}

// Configure loads the optional TOML file over the flag values and validates
// the result.
func (p *Pipeline) Configure() error {
	if p.configPath != "" {
		// #nosec G304 - path is expected to be provided by CLI argument
		data, err := os.ReadFile(p.configPath)
		if err != nil {
			return goerr.Wrap(err, "failed to read config file", goerr.V("path", p.configPath))
		}
		if err := toml.Unmarshal(data, p); err != nil {
			return goerr.Wrap(err, "failed to parse TOML config", goerr.V("path", p.configPath))
		}
	}

	if err := p.Validate(); err != nil {
		return goerr.Wrap(err, "pipeline config validation failed", goerr.V("path", p.configPath))
	}
	return nil
}

// DocStrategy returns the validated document build strategy
func (p *Pipeline) DocStrategy() types.DocStrategy {
	return types.DocStrategy(p.Strategy)
}
