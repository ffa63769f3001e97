package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	snapshotCollection = "index_snapshots"
	snapshotDocID      = "current"
	entriesCollection  = "entries"
)

// Repository persists index snapshots in Firestore. The snapshot metadata
// lives in a single document and every index entry is stored in a
// subcollection, keeping each Firestore document well under the 1MB limit.
type Repository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.Repository = &Repository{}

// Option is a functional option for Repository configuration
type Option func(*Repository)

// WithCollectionPrefix sets a prefix for collection names, used to isolate
// test data from production collections.
func WithCollectionPrefix(prefix string) Option {
	return func(r *Repository) {
		r.collectionPrefix = prefix
	}
}

// New creates a new Firestore-backed snapshot repository
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Repository, error) {
	var client *firestore.Client
	var err error
	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client", goerr.V("projectID", projectID))
	}

	r := &Repository{client: client}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// snapshotMetaDoc is the Firestore representation of snapshot metadata
type snapshotMetaDoc struct {
	SnapshotID string    `firestore:"SnapshotID"`
	Strategy   string    `firestore:"Strategy"`
	Dimension  int       `firestore:"Dimension"`
	EntryCount int       `firestore:"EntryCount"`
	CreatedAt  time.Time `firestore:"CreatedAt"`
}

// entryDoc is the Firestore representation of one index entry. The vector is
// stored as firestore.Vector32 so that native vector queries remain possible.
type entryDoc struct {
	DocumentID string             `firestore:"DocumentID"`
	Text       string             `firestore:"Text"`
	MemberID   string             `firestore:"MemberID"`
	MemberName string             `firestore:"MemberName"`
	MessageIDs []string           `firestore:"MessageIDs"`
	Strategy   string             `firestore:"Strategy"`
	Timestamp  time.Time          `firestore:"Timestamp"`
	Vector     firestore.Vector32 `firestore:"Vector"`
}

func toEntryDoc(e model.IndexEntry) *entryDoc {
	ids := make([]string, len(e.Document.MessageIDs))
	for i, id := range e.Document.MessageIDs {
		ids[i] = string(id)
	}
	return &entryDoc{
		DocumentID: string(e.Document.ID),
		Text:       e.Document.Text,
		MemberID:   string(e.Document.MemberID),
		MemberName: e.Document.MemberName,
		MessageIDs: ids,
		Strategy:   string(e.Document.Strategy),
		Timestamp:  e.Document.Timestamp,
		Vector:     firestore.Vector32(e.Vector),
	}
}

func fromEntryDoc(d *entryDoc) model.IndexEntry {
	ids := make([]types.MessageID, len(d.MessageIDs))
	for i, id := range d.MessageIDs {
		ids[i] = types.MessageID(id)
	}
	return model.IndexEntry{
		Document: &model.Document{
			ID:         types.DocumentID(d.DocumentID),
			Text:       d.Text,
			MemberID:   types.MemberID(d.MemberID),
			MemberName: d.MemberName,
			MessageIDs: ids,
			Strategy:   types.DocStrategy(d.Strategy),
			Timestamp:  d.Timestamp,
		},
		Vector: []float32(d.Vector),
	}
}

func (r *Repository) snapshotDoc() *firestore.DocumentRef {
	return r.client.Collection(r.collectionPrefix + snapshotCollection).Doc(snapshotDocID)
}

func (r *Repository) Save(ctx context.Context, snapshot *model.IndexSnapshot) error {
	// Remove the previous snapshot first so stale entries never mix with
	// the new generation.
	if err := r.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to clear previous snapshot")
	}

	meta := &snapshotMetaDoc{
		SnapshotID: string(snapshot.ID),
		Strategy:   string(snapshot.Strategy),
		Dimension:  snapshot.Dimension,
		EntryCount: len(snapshot.Entries),
		CreatedAt:  snapshot.CreatedAt,
	}
	if _, err := r.snapshotDoc().Set(ctx, meta); err != nil {
		return goerr.Wrap(err, "failed to save snapshot metadata")
	}

	bw := r.client.BulkWriter(ctx)
	entries := r.snapshotDoc().Collection(entriesCollection)
	jobs := make([]*firestore.BulkWriterJob, 0, len(snapshot.Entries))
	for _, e := range snapshot.Entries {
		job, err := bw.Set(entries.Doc(string(e.Document.ID)), toEntryDoc(e))
		if err != nil {
			return goerr.Wrap(err, "failed to enqueue snapshot entry", goerr.V("documentID", e.Document.ID))
		}
		jobs = append(jobs, job)
	}
	bw.End()

	// Write errors only surface through the individual job results.
	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			return goerr.Wrap(err, "failed to write snapshot entry",
				goerr.V("documentID", snapshot.Entries[i].Document.ID))
		}
	}

	return nil
}

func (r *Repository) Load(ctx context.Context) (*model.IndexSnapshot, error) {
	doc, err := r.snapshotDoc().Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrSnapshotNotFound, "no snapshot in firestore")
		}
		return nil, goerr.Wrap(err, "failed to load snapshot metadata")
	}

	var meta snapshotMetaDoc
	if err := doc.DataTo(&meta); err != nil {
		return nil, goerr.Wrap(err, "failed to decode snapshot metadata")
	}

	snapshot := &model.IndexSnapshot{
		ID:        types.SnapshotID(meta.SnapshotID),
		Strategy:  types.DocStrategy(meta.Strategy),
		Dimension: meta.Dimension,
		CreatedAt: meta.CreatedAt,
		Entries:   make([]model.IndexEntry, 0, meta.EntryCount),
	}

	iter := r.snapshotDoc().Collection(entriesCollection).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate snapshot entries")
		}

		var d entryDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode snapshot entry", goerr.V("doc", doc.Ref.ID))
		}
		snapshot.Entries = append(snapshot.Entries, fromEntryDoc(&d))
	}

	// A snapshot whose subcollection does not match its metadata is the
	// residue of an interrupted save. Treat it as absent so the caller
	// rebuilds from the source instead of serving a truncated index.
	if len(snapshot.Entries) != meta.EntryCount {
		return nil, goerr.Wrap(interfaces.ErrSnapshotNotFound, "snapshot entry count mismatch",
			goerr.V("expected", meta.EntryCount), goerr.V("actual", len(snapshot.Entries)))
	}

	return snapshot, nil
}

func (r *Repository) Delete(ctx context.Context) error {
	entries := r.snapshotDoc().Collection(entriesCollection)
	bw := r.client.BulkWriter(ctx)

	var jobs []*firestore.BulkWriterJob
	iter := entries.Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return goerr.Wrap(err, "failed to iterate snapshot entries for deletion")
		}
		job, err := bw.Delete(doc.Ref)
		if err != nil {
			return goerr.Wrap(err, "failed to enqueue snapshot entry deletion")
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return goerr.Wrap(err, "failed to delete snapshot entry")
		}
	}

	if _, err := r.snapshotDoc().Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return goerr.Wrap(err, "failed to delete snapshot metadata")
	}

	return nil
}

func (r *Repository) Close() error {
	return r.client.Close()
}
