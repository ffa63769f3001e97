package interfaces

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
)

// ErrSnapshotNotFound is returned by Load when no snapshot has been saved.
var ErrSnapshotNotFound = goerr.New("index snapshot not found")

// Repository persists vector index snapshots so a restart does not have to
// re-fetch and re-embed the whole corpus.
type Repository interface {
	// Save stores the snapshot, replacing any previous one.
	Save(ctx context.Context, snapshot *model.IndexSnapshot) error
	// Load returns the stored snapshot, or ErrSnapshotNotFound.
	Load(ctx context.Context) (*model.IndexSnapshot, error)
	// Delete removes the stored snapshot. Deleting a missing snapshot is
	// not an error.
	Delete(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}
