package llm

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
)

// Client adapts a gollem.LLMClient to the narrow Embedder and Completer
// capabilities the pipeline consumes.
type Client struct {
	llmClient gollem.LLMClient
	dimension int
}

var (
	_ interfaces.Embedder  = &Client{}
	_ interfaces.Completer = &Client{}
)

// Option is a functional option for Client configuration
type Option func(*Client)

// WithDimension overrides the embedding vector dimension
func WithDimension(dimension int) Option {
	return func(c *Client) {
		c.dimension = dimension
	}
}

// New creates a new LLM service with the provided gollem client
func New(llmClient gollem.LLMClient, opts ...Option) (*Client, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &Client{
		llmClient: llmClient,
		dimension: model.DefaultEmbeddingDimension,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.dimension <= 0 {
		return nil, goerr.New("embedding dimension must be positive", goerr.V("dimension", c.dimension))
	}

	return c, nil
}

// Dimension returns the embedding vector dimension
func (c *Client) Dimension() int {
	return c.dimension
}

// Embed generates one embedding vector per input text, in input order
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings, err := c.llmClient.GenerateEmbedding(ctx, c.dimension, texts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embeddings", goerr.V("count", len(texts)))
	}
	if len(embeddings) != len(texts) {
		return nil, goerr.New("embedding count mismatch",
			goerr.V("want", len(texts)), goerr.V("got", len(embeddings)))
	}

	vectors := make([][]float32, len(embeddings))
	for i, emb := range embeddings {
		vec := make([]float32, len(emb))
		for j, v := range emb {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}

	return vectors, nil
}

// Complete submits a prompt to the generation model and returns the text
// completion.
func (c *Client) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content")
	}
	if len(resp.Texts) == 0 {
		return "", goerr.New("empty response from generation model")
	}

	return resp.Texts[0], nil
}
