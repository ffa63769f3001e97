package memory

import (
	"context"
	"sync"

	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
)

// Repository is an in-memory snapshot store for development and testing.
type Repository struct {
	mu       sync.RWMutex
	snapshot *model.IndexSnapshot
}

var _ interfaces.Repository = &Repository{}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{}
}

func copySnapshot(s *model.IndexSnapshot) *model.IndexSnapshot {
	copied := &model.IndexSnapshot{
		ID:        s.ID,
		Strategy:  s.Strategy,
		Dimension: s.Dimension,
		CreatedAt: s.CreatedAt,
		Entries:   make([]model.IndexEntry, len(s.Entries)),
	}
	for i, e := range s.Entries {
		doc := *e.Document
		doc.MessageIDs = append([]types.MessageID(nil), e.Document.MessageIDs...)
		copied.Entries[i] = model.IndexEntry{
			Document: &doc,
			Vector:   append([]float32(nil), e.Vector...),
		}
	}
	return copied
}

func (r *Repository) Save(ctx context.Context, snapshot *model.IndexSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = copySnapshot(snapshot)
	return nil
}

func (r *Repository) Load(ctx context.Context) (*model.IndexSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snapshot == nil {
		return nil, interfaces.ErrSnapshotNotFound
	}
	return copySnapshot(r.snapshot), nil
}

func (r *Repository) Delete(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = nil
	return nil
}

func (r *Repository) Close() error {
	return nil
}
