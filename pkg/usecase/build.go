package usecase

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"github.com/mnemo-lab/mnemo/pkg/service/answer"
	"github.com/mnemo-lab/mnemo/pkg/service/assembler"
	"github.com/mnemo-lab/mnemo/pkg/service/index"
	"github.com/mnemo-lab/mnemo/pkg/service/planner"
)

// BuildConfig carries the pipeline tuning values for Build. Zero values fall
// back to each component's default.
type BuildConfig struct {
	Strategy      types.DocStrategy
	RetrievalK    int
	QueryCap      int
	ContextBudget int
	FetchLimit    int
	LLMExpansion  bool
}

// Build wires the full pipeline from one client that serves both embedding
// and generation, a message source and a snapshot repository.
func Build(client interface {
	interfaces.Embedder
	interfaces.Completer
}, src interfaces.Source, repo interfaces.Repository, cfg BuildConfig) (*UseCases, error) {
	idxOpts := []index.Option{
		index.WithRepository(repo),
	}
	if cfg.Strategy != "" {
		idxOpts = append(idxOpts, index.WithStrategy(cfg.Strategy))
	}
	if cfg.FetchLimit > 0 {
		idxOpts = append(idxOpts, index.WithFetchLimit(cfg.FetchLimit))
	}

	idx, err := index.New(src, client, idxOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create vector index")
	}

	var plannerOpts []planner.Option
	if cfg.QueryCap > 0 {
		plannerOpts = append(plannerOpts, planner.WithQueryCap(cfg.QueryCap))
	}
	if cfg.LLMExpansion {
		plannerOpts = append(plannerOpts, planner.WithCompleter(client))
	}

	var asmOpts []assembler.Option
	if cfg.ContextBudget > 0 {
		asmOpts = append(asmOpts, assembler.WithBudget(cfg.ContextBudget))
	}

	var ucOpts []Option
	if cfg.RetrievalK > 0 {
		ucOpts = append(ucOpts, WithRetrievalK(cfg.RetrievalK))
	}

	return New(
		idx,
		planner.New(plannerOpts...),
		assembler.New(asmOpts...),
		answer.New(client),
		ucOpts...,
	), nil
}
