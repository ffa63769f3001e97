package types

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for the retrieval-and-generation pipeline. Each maps to a
// user-visible failure; callers distinguish them with errors.Is.
var (
	// ErrSourceUnavailable indicates the message source API is unreachable
	// or returned an error status.
	ErrSourceUnavailable = goerr.New("message source unavailable")

	// ErrSourceAuth indicates the message source rejected the credentials.
	ErrSourceAuth = goerr.New("message source authentication failed")

	// ErrEmbeddingService indicates the embedding service failed. A rebuild
	// that hits this error discards all partial batches.
	ErrEmbeddingService = goerr.New("embedding service failed")

	// ErrIndexNotReady indicates search was called before any successful
	// index build.
	ErrIndexNotReady = goerr.New("vector index is not ready")

	// ErrGenerationService indicates the generation model failed.
	ErrGenerationService = goerr.New("generation service failed")
)
