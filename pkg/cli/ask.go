package cli

import (
	"context"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/mnemo-lab/mnemo/pkg/cli/config"
)

func cmdAsk() *cli.Command {
	var llmCfg config.LLM
	var sourceCfg config.Source
	var repoCfg config.Repository
	var pipelineCfg config.Pipeline

	var flags []cli.Flag
	flags = append(flags, llmCfg.Flags()...)
	flags = append(flags, sourceCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, pipelineCfg.Flags()...)

	return &cli.Command{
		Name:      "ask",
		Aliases:   []string{"a"},
		Usage:     "Ask one question and print the answer",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if question == "" {
				return goerr.New("question is required")
			}

			uc, closer, err := buildUseCases(ctx, &llmCfg, &sourceCfg, &repoCfg, &pipelineCfg)
			if err != nil {
				return err
			}
			defer closer()

			answer, err := uc.Ask(ctx, question)
			if err != nil {
				return goerr.Wrap(err, "failed to answer question")
			}

			color.New(color.FgCyan, color.Bold).Println("Q:", question)
			color.New(color.FgGreen).Println("A:", answer)
			return nil
		},
	}
}
