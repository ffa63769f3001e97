package interfaces

import "context"

// Embedder converts texts into fixed-dimension vectors, one per input text,
// in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Completer submits a prompt to the generation model and returns a single
// text completion.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}
