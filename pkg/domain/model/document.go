package model

import (
	"time"

	"github.com/mnemo-lab/mnemo/pkg/domain/types"
)

// DefaultEmbeddingDimension is the default dimension of embedding vectors.
// Gemini text-embedding-004 uses 768 dimensions.
const DefaultEmbeddingDimension = 768

// Document is a derived text blob built from one or more message records.
// Documents are immutable and owned exclusively by the vector index once
// indexed.
type Document struct {
	ID         types.DocumentID
	Text       string
	MemberID   types.MemberID
	MemberName string
	MessageIDs []types.MessageID
	Strategy   types.DocStrategy
	Timestamp  time.Time
}
