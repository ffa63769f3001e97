package model

import (
	"time"

	"github.com/mnemo-lab/mnemo/pkg/domain/types"
)

// IndexEntry is an embedded document held by the vector index. The vector is
// always computed from exactly this entry's document text.
type IndexEntry struct {
	Document *Document
	Vector   []float32
}

// IndexSnapshot is a persistable image of a fully built vector index. Saving
// and restoring a snapshot skips the re-fetch and re-embed cost across
// process restarts.
type IndexSnapshot struct {
	ID        types.SnapshotID
	Strategy  types.DocStrategy
	Dimension int
	CreatedAt time.Time
	Entries   []IndexEntry
}
