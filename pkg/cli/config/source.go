package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/service/source"
	"github.com/urfave/cli/v3"
)

// Source holds CLI flags for the member message source backend
type Source struct {
	backend        string
	apiURL         string
	apiKey         string
	slackBotToken  string
	slackChannelID string
}

// Flags returns CLI flags for source configuration
func (s *Source) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "source-backend",
			Usage:       "Message source backend (api or slack)",
			Value:       "api",
			Sources:     cli.EnvVars("MNEMO_SOURCE_BACKEND"),
			Destination: &s.backend,
		},
		&cli.StringFlag{
			Name:        "source-api-url",
			Usage:       "Base URL of the member messages API",
			Sources:     cli.EnvVars("MNEMO_SOURCE_API_URL"),
			Destination: &s.apiURL,
		},
		&cli.StringFlag{
			Name:        "source-api-key",
			Usage:       "Bearer token for the member messages API",
			Sources:     cli.EnvVars("MNEMO_SOURCE_API_KEY"),
			Destination: &s.apiKey,
		},
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack bot token for the slack source backend",
			Sources:     cli.EnvVars("MNEMO_SLACK_BOT_TOKEN"),
			Destination: &s.slackBotToken,
		},
		&cli.StringFlag{
			Name:        "slack-channel-id",
			Usage:       "Slack channel ID to read member messages from",
			Sources:     cli.EnvVars("MNEMO_SLACK_CHANNEL_ID"),
			Destination: &s.slackChannelID,
		},
	}
}

// LogAttrs returns log attributes for the source configuration (secrets hidden)
func (s *Source) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("backend", s.backend),
		slog.String("api_url", s.apiURL),
		slog.String("slack_channel_id", s.slackChannelID),
	}
}

// Configure creates the message source for the configured backend.
func (s *Source) Configure() (interfaces.Source, error) {
	switch s.backend {
	case "api", "":
		var opts []source.APIOption
		if s.apiKey != "" {
			opts = append(opts, source.WithAPIKey(s.apiKey))
		}
		client, err := source.NewAPIClient(s.apiURL, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create API message source")
		}
		return client, nil

	case "slack":
		client, err := source.NewSlackClient(s.slackBotToken, s.slackChannelID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Slack message source")
		}
		return client, nil

	default:
		return nil, goerr.New("invalid source backend", goerr.V("backend", s.backend))
	}
}
