package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
	"github.com/mnemo-lab/mnemo/pkg/utils/safe"
)

const defaultTimeout = 30 * time.Second

// APIClient fetches member messages from the external messages API.
type APIClient struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

var _ interfaces.Source = &APIClient{}

// APIOption is a functional option for APIClient configuration
type APIOption func(*APIClient)

// WithHTTPClient overrides the HTTP client, used for testing
func WithHTTPClient(client *http.Client) APIOption {
	return func(c *APIClient) {
		c.httpClient = client
	}
}

// WithAPIKey sets the bearer token sent to the messages API
func WithAPIKey(key string) APIOption {
	return func(c *APIClient) {
		c.apiKey = key
	}
}

// NewAPIClient creates a new messages API source client
func NewAPIClient(apiURL string, opts ...APIOption) (*APIClient, error) {
	if apiURL == "" {
		return nil, goerr.New("messages API URL is required")
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, goerr.Wrap(err, "invalid messages API URL", goerr.V("url", apiURL))
	}

	c := &APIClient{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// messageItem is the wire schema of one message record
type messageItem struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// messagesResponse is the wire schema of the messages API response
type messagesResponse struct {
	Items []messageItem `json:"items"`
	Total int           `json:"total"`
}

// Fetch retrieves up to limit messages from the API, in source order.
func (c *APIClient) Fetch(ctx context.Context, limit int) ([]*model.MessageRecord, error) {
	logger := logging.From(ctx)
	logger.Info("fetching messages from API", "url", c.apiURL, "limit", limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build messages request")
	}

	q := req.URL.Query()
	q.Set("skip", "0")
	q.Set("limit", fmt.Sprintf("%d", limit))
	req.URL.RawQuery = q.Encode()

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(types.ErrSourceUnavailable, "messages API request failed", goerr.V("cause", err.Error()))
	}
	defer safe.Close(ctx, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, goerr.Wrap(types.ErrSourceAuth, "messages API rejected credentials", goerr.V("status", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, goerr.Wrap(types.ErrSourceUnavailable, "messages API returned error status", goerr.V("status", resp.StatusCode))
	}

	var body messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, goerr.Wrap(types.ErrSourceUnavailable, "failed to decode messages response", goerr.V("cause", err.Error()))
	}

	records := make([]*model.MessageRecord, 0, len(body.Items))
	for _, item := range body.Items {
		if len(records) >= limit {
			break
		}
		records = append(records, itemToRecord(item))
	}

	logger.Info("fetched messages from API", "count", len(records))
	return records, nil
}

func itemToRecord(item messageItem) *model.MessageRecord {
	record := &model.MessageRecord{
		ID:         types.MessageID(item.ID),
		MemberID:   types.MemberID(item.UserID),
		MemberName: item.UserName,
		Text:       item.Message,
	}
	if ts, err := time.Parse(time.RFC3339, item.Timestamp); err == nil {
		record.Timestamp = ts
	}
	return record
}
