package source

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
	"github.com/slack-go/slack"
)

const historyPageSize = 200

// SlackClient fetches member messages from a Slack channel history.
type SlackClient struct {
	api       *slack.Client
	channelID string

	mu    sync.RWMutex
	users map[string]string // user ID -> display name
}

var _ interfaces.Source = &SlackClient{}

// NewSlackClient creates a new Slack channel source
func NewSlackClient(botToken, channelID string) (*SlackClient, error) {
	if botToken == "" {
		return nil, goerr.New("Slack bot token is required")
	}
	if channelID == "" {
		return nil, goerr.New("Slack channel ID is required")
	}

	return &SlackClient{
		api:       slack.New(botToken),
		channelID: channelID,
		users:     make(map[string]string),
	}, nil
}

// Fetch retrieves up to limit messages from the channel history, oldest first.
func (c *SlackClient) Fetch(ctx context.Context, limit int) ([]*model.MessageRecord, error) {
	logger := logging.From(ctx)
	logger.Info("fetching messages from Slack", "channel_id", c.channelID, "limit", limit)

	var records []*model.MessageRecord
	var cursor string

	for len(records) < limit {
		params := &slack.GetConversationHistoryParameters{
			ChannelID: c.channelID,
			Limit:     historyPageSize,
			Cursor:    cursor,
		}

		resp, err := c.api.GetConversationHistoryContext(ctx, params)
		if err != nil {
			return nil, wrapSlackError(err)
		}

		for _, msg := range resp.Messages {
			if len(records) >= limit {
				break
			}
			if msg.SubType != "" || msg.User == "" {
				continue // skip joins, bot posts and other non-member messages
			}

			name, err := c.userName(ctx, msg.User)
			if err != nil {
				return nil, err
			}

			records = append(records, &model.MessageRecord{
				ID:         types.MessageID(msg.Timestamp),
				MemberID:   types.MemberID(msg.User),
				MemberName: name,
				Text:       msg.Text,
				Timestamp:  parseSlackTimestamp(msg.Timestamp),
			})
		}

		if !resp.HasMore || resp.ResponseMetaData.NextCursor == "" {
			break
		}
		cursor = resp.ResponseMetaData.NextCursor
	}

	// History comes newest first; the pipeline expects chronological order.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	logger.Info("fetched messages from Slack", "count", len(records))
	return records, nil
}

// userName resolves a user ID to a display name, caching results per client.
func (c *SlackClient) userName(ctx context.Context, userID string) (string, error) {
	c.mu.RLock()
	name, ok := c.users[userID]
	c.mu.RUnlock()
	if ok {
		return name, nil
	}

	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return "", wrapSlackError(err)
	}

	name = user.Profile.DisplayName
	if name == "" {
		name = user.RealName
	}
	if name == "" {
		name = user.Name
	}

	c.mu.Lock()
	c.users[userID] = name
	c.mu.Unlock()

	return name, nil
}

// wrapSlackError maps Slack API errors onto the source error taxonomy
func wrapSlackError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "invalid_auth"),
		strings.Contains(msg, "not_authed"),
		strings.Contains(msg, "token_revoked"),
		strings.Contains(msg, "account_inactive"):
		return goerr.Wrap(types.ErrSourceAuth, "Slack rejected credentials", goerr.V("cause", msg))
	default:
		return goerr.Wrap(types.ErrSourceUnavailable, "Slack API request failed", goerr.V("cause", msg))
	}
}

// parseSlackTimestamp converts a Slack "seconds.micros" timestamp
func parseSlackTimestamp(ts string) time.Time {
	parts := strings.SplitN(ts, ".", 2)
	sec, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}
	}
	var usec int64
	if len(parts) == 2 {
		if v, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
			usec = v
		}
	}
	return time.Unix(sec, usec*1000).UTC()
}
