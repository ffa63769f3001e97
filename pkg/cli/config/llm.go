package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gollem/llm/openai"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/service/llm"
	"github.com/urfave/cli/v3"
)

// LLM holds CLI flags for the LLM backend used for both embeddings and
// answer generation
type LLM struct {
	backend       string
	geminiProject string
	geminiRegion  string
	openaiAPIKey  string
	dimension     int
}

// Flags returns CLI flags for LLM configuration
func (l *LLM) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-backend",
			Usage:       "LLM backend (gemini or openai)",
			Value:       "gemini",
			Sources:     cli.EnvVars("MNEMO_LLM_BACKEND"),
			Destination: &l.backend,
		},
		&cli.StringFlag{
			Name:        "gemini-project-id",
			Usage:       "Google Cloud project ID for the Gemini backend",
			Sources:     cli.EnvVars("MNEMO_GEMINI_PROJECT_ID"),
			Destination: &l.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for the Gemini backend",
			Value:       "us-central1",
			Sources:     cli.EnvVars("MNEMO_GEMINI_LOCATION"),
			Destination: &l.geminiRegion,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "API key for the OpenAI backend",
			Sources:     cli.EnvVars("MNEMO_OPENAI_API_KEY"),
			Destination: &l.openaiAPIKey,
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Usage:       "Embedding vector dimension",
			Value:       model.DefaultEmbeddingDimension,
			Sources:     cli.EnvVars("MNEMO_EMBEDDING_DIMENSION"),
			Destination: &l.dimension,
		},
	}
}

// LogAttrs returns log attributes for the LLM configuration (secrets hidden)
func (l *LLM) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("backend", l.backend),
		slog.String("gemini_project", l.geminiProject),
		slog.String("gemini_location", l.geminiRegion),
		slog.Int("dimension", l.dimension),
	}
}

// Configure creates the LLM client for the configured backend.
func (l *LLM) Configure(ctx context.Context) (*llm.Client, error) {
	var client gollem.LLMClient
	var err error

	switch l.backend {
	case "gemini", "":
		if l.geminiProject == "" {
			return nil, goerr.New("gemini-project-id is required for the gemini backend")
		}
		client, err = gemini.New(ctx, l.geminiProject, l.geminiRegion)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini client")
		}

	case "openai":
		if l.openaiAPIKey == "" {
			return nil, goerr.New("openai-api-key is required for the openai backend")
		}
		client, err = openai.New(ctx, l.openaiAPIKey)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create OpenAI client")
		}

	default:
		return nil, goerr.New("invalid LLM backend", goerr.V("backend", l.backend))
	}

	return llm.New(client, llm.WithDimension(l.dimension))
}
