package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
)

const defaultObjectName = "index_snapshot.json"

// Repository persists index snapshots as a single JSON object in a Cloud
// Storage bucket.
type Repository struct {
	client     *storage.Client
	bucket     string
	objectName string
}

var _ interfaces.Repository = &Repository{}

// Option is a functional option for Repository configuration
type Option func(*Repository)

// WithObjectName overrides the snapshot object name
func WithObjectName(name string) Option {
	return func(r *Repository) {
		r.objectName = name
	}
}

// New creates a new Cloud Storage backed snapshot repository
func New(ctx context.Context, bucket string, opts ...Option) (*Repository, error) {
	if bucket == "" {
		return nil, goerr.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	r := &Repository{
		client:     client,
		bucket:     bucket,
		objectName: defaultObjectName,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// snapshotJSON is the stored representation of a snapshot
type snapshotJSON struct {
	ID        string      `json:"id"`
	Strategy  string      `json:"strategy"`
	Dimension int         `json:"dimension"`
	CreatedAt time.Time   `json:"created_at"`
	Entries   []entryJSON `json:"entries"`
}

type entryJSON struct {
	DocumentID string    `json:"document_id"`
	Text       string    `json:"text"`
	MemberID   string    `json:"member_id"`
	MemberName string    `json:"member_name"`
	MessageIDs []string  `json:"message_ids"`
	Strategy   string    `json:"strategy"`
	Timestamp  time.Time `json:"timestamp"`
	Vector     []float32 `json:"vector"`
}

func toSnapshotJSON(s *model.IndexSnapshot) *snapshotJSON {
	out := &snapshotJSON{
		ID:        string(s.ID),
		Strategy:  string(s.Strategy),
		Dimension: s.Dimension,
		CreatedAt: s.CreatedAt,
		Entries:   make([]entryJSON, len(s.Entries)),
	}
	for i, e := range s.Entries {
		ids := make([]string, len(e.Document.MessageIDs))
		for j, id := range e.Document.MessageIDs {
			ids[j] = string(id)
		}
		out.Entries[i] = entryJSON{
			DocumentID: string(e.Document.ID),
			Text:       e.Document.Text,
			MemberID:   string(e.Document.MemberID),
			MemberName: e.Document.MemberName,
			MessageIDs: ids,
			Strategy:   string(e.Document.Strategy),
			Timestamp:  e.Document.Timestamp,
			Vector:     e.Vector,
		}
	}
	return out
}

func fromSnapshotJSON(s *snapshotJSON) *model.IndexSnapshot {
	out := &model.IndexSnapshot{
		ID:        types.SnapshotID(s.ID),
		Strategy:  types.DocStrategy(s.Strategy),
		Dimension: s.Dimension,
		CreatedAt: s.CreatedAt,
		Entries:   make([]model.IndexEntry, len(s.Entries)),
	}
	for i, e := range s.Entries {
		ids := make([]types.MessageID, len(e.MessageIDs))
		for j, id := range e.MessageIDs {
			ids[j] = types.MessageID(id)
		}
		out.Entries[i] = model.IndexEntry{
			Document: &model.Document{
				ID:         types.DocumentID(e.DocumentID),
				Text:       e.Text,
				MemberID:   types.MemberID(e.MemberID),
				MemberName: e.MemberName,
				MessageIDs: ids,
				Strategy:   types.DocStrategy(e.Strategy),
				Timestamp:  e.Timestamp,
			},
			Vector: e.Vector,
		}
	}
	return out
}

func (r *Repository) object() *storage.ObjectHandle {
	return r.client.Bucket(r.bucket).Object(r.objectName)
}

func (r *Repository) Save(ctx context.Context, snapshot *model.IndexSnapshot) error {
	w := r.object().NewWriter(ctx)
	w.ContentType = "application/json"

	if err := json.NewEncoder(w).Encode(toSnapshotJSON(snapshot)); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to encode snapshot", goerr.V("bucket", r.bucket))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to write snapshot object", goerr.V("bucket", r.bucket))
	}

	return nil
}

func (r *Repository) Load(ctx context.Context) (*model.IndexSnapshot, error) {
	reader, err := r.object().NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(interfaces.ErrSnapshotNotFound, "no snapshot object in bucket", goerr.V("bucket", r.bucket))
		}
		return nil, goerr.Wrap(err, "failed to open snapshot object", goerr.V("bucket", r.bucket))
	}
	defer reader.Close()

	var stored snapshotJSON
	if err := json.NewDecoder(reader).Decode(&stored); err != nil {
		return nil, goerr.Wrap(err, "failed to decode snapshot object", goerr.V("bucket", r.bucket))
	}

	return fromSnapshotJSON(&stored), nil
}

func (r *Repository) Delete(ctx context.Context) error {
	if err := r.object().Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return goerr.Wrap(err, "failed to delete snapshot object", goerr.V("bucket", r.bucket))
	}
	return nil
}

func (r *Repository) Close() error {
	return r.client.Close()
}
