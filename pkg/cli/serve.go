package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/mnemo-lab/mnemo/pkg/cli/config"
	httpctrl "github.com/mnemo-lab/mnemo/pkg/controller/http"
	"github.com/mnemo-lab/mnemo/pkg/service/worker"
	"github.com/mnemo-lab/mnemo/pkg/usecase"
	"github.com/mnemo-lab/mnemo/pkg/utils/async"
	"github.com/mnemo-lab/mnemo/pkg/utils/errutil"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var warmup bool
	var refreshInterval time.Duration
	var sentryDSN string
	var llmCfg config.LLM
	var sourceCfg config.Source
	var repoCfg config.Repository
	var pipelineCfg config.Pipeline

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("MNEMO_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "warmup",
			Usage:       "Build the vector index at startup instead of on the first request",
			Sources:     cli.EnvVars("MNEMO_WARMUP"),
			Destination: &warmup,
		},
		&cli.DurationFlag{
			Name:        "refresh-interval",
			Usage:       "Interval for periodic index rebuilds (0 disables)",
			Sources:     cli.EnvVars("MNEMO_REFRESH_INTERVAL"),
			Destination: &refreshInterval,
		},
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN for error reporting",
			Sources:     cli.EnvVars("MNEMO_SENTRY_DSN"),
			Destination: &sentryDSN,
		},
	}
	flags = append(flags, llmCfg.Flags()...)
	flags = append(flags, sourceCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, pipelineCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := errutil.InitSentry(sentryDSN); err != nil {
				return goerr.Wrap(err, "failed to initialize sentry")
			}

			uc, closer, err := buildUseCases(ctx, &llmCfg, &sourceCfg, &repoCfg, &pipelineCfg)
			if err != nil {
				return err
			}
			defer closer()

			if warmup {
				async.Dispatch(ctx, func(ctx context.Context) error {
					stats, err := uc.Warmup(ctx)
					if err != nil {
						return goerr.Wrap(err, "startup warmup failed")
					}
					logging.Default().Info("startup warmup completed", "documents", stats.Documents)
					return nil
				})
			}

			var refreshWorker *worker.IndexRefreshWorker
			if refreshInterval > 0 {
				refreshWorker = worker.NewIndexRefreshWorker(uc, refreshInterval)
				if err := refreshWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start index refresh worker")
				}
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpctrl.WithVersion(version)),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				if refreshWorker != nil {
					refreshWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}

// buildUseCases wires the whole pipeline from the configured backends. The
// returned closer releases the snapshot repository.
func buildUseCases(ctx context.Context, llmCfg *config.LLM, sourceCfg *config.Source, repoCfg *config.Repository, pipelineCfg *config.Pipeline) (*usecase.UseCases, func(), error) {
	if err := pipelineCfg.Configure(); err != nil {
		return nil, nil, err
	}

	llmClient, err := llmCfg.Configure(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure LLM backend")
	}

	src, err := sourceCfg.Configure()
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure message source")
	}

	repo, err := repoCfg.Configure(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure snapshot repository")
	}
	closer := func() {
		if err := repo.Close(); err != nil {
			logging.Default().Error("failed to close repository", "error", err.Error())
		}
	}

	uc, err := usecase.Build(llmClient, src, repo,
		usecase.BuildConfig{
			Strategy:      pipelineCfg.DocStrategy(),
			RetrievalK:    pipelineCfg.RetrievalK,
			QueryCap:      pipelineCfg.QueryCap,
			ContextBudget: pipelineCfg.ContextBudget,
			FetchLimit:    pipelineCfg.FetchLimit,
			LLMExpansion:  pipelineCfg.LLMExpansion,
		},
	)
	if err != nil {
		closer()
		return nil, nil, goerr.Wrap(err, "failed to build pipeline")
	}

	logging.Default().Info("Pipeline configured",
		"llm", llmCfg.LogAttrs(),
		"source", sourceCfg.LogAttrs(),
		"pipeline", pipelineCfg.LogAttrs(),
	)

	return uc, closer, nil
}
