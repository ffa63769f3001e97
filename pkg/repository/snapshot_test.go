package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"github.com/mnemo-lab/mnemo/pkg/repository/firestore"
	"github.com/mnemo-lab/mnemo/pkg/repository/memory"
)

func testSnapshot(entryCount int) *model.IndexSnapshot {
	snapshot := &model.IndexSnapshot{
		ID:        types.NewSnapshotID(),
		Strategy:  types.StrategyIndividual,
		Dimension: 4,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	for i := 0; i < entryCount; i++ {
		snapshot.Entries = append(snapshot.Entries, model.IndexEntry{
			Document: &model.Document{
				ID:         types.DocumentID(fmt.Sprintf("doc-%d", i)),
				Text:       fmt.Sprintf("Layla says: message %d", i),
				MemberID:   types.MemberID("member-1"),
				MemberName: "Layla Kawaguchi",
				MessageIDs: []types.MessageID{types.MessageID(fmt.Sprintf("msg-%d", i))},
				Strategy:   types.StrategyIndividual,
				Timestamp:  time.Now().UTC().Truncate(time.Second),
			},
			Vector: []float32{0.1, 0.2, 0.3, float32(i)},
		})
	}
	return snapshot
}

func runSnapshotRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Load without save returns ErrSnapshotNotFound", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Load(ctx)
		gt.B(t, errors.Is(err, interfaces.ErrSnapshotNotFound)).True()
	})

	t.Run("Save and Load round-trips the snapshot", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		saved := testSnapshot(3)
		gt.NoError(t, repo.Save(ctx, saved)).Required()

		loaded, err := repo.Load(ctx)
		gt.NoError(t, err).Required()

		gt.Equal(t, loaded.ID, saved.ID)
		gt.Equal(t, loaded.Strategy, saved.Strategy)
		gt.Equal(t, loaded.Dimension, saved.Dimension)
		gt.Equal(t, len(loaded.Entries), len(saved.Entries))

		byID := make(map[types.DocumentID]model.IndexEntry)
		for _, e := range loaded.Entries {
			byID[e.Document.ID] = e
		}
		for _, want := range saved.Entries {
			got, ok := byID[want.Document.ID]
			gt.B(t, ok).True()
			gt.Equal(t, got.Document.Text, want.Document.Text)
			gt.Equal(t, got.Document.MemberName, want.Document.MemberName)
			gt.Equal(t, got.Document.MessageIDs, want.Document.MessageIDs)
			gt.Equal(t, got.Vector, want.Vector)
		}
	})

	t.Run("Save replaces the previous snapshot", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.Save(ctx, testSnapshot(5))).Required()

		second := testSnapshot(2)
		gt.NoError(t, repo.Save(ctx, second)).Required()

		loaded, err := repo.Load(ctx)
		gt.NoError(t, err).Required()
		gt.Equal(t, len(loaded.Entries), 2)
	})

	t.Run("Delete removes the snapshot", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.Save(ctx, testSnapshot(1))).Required()
		gt.NoError(t, repo.Delete(ctx)).Required()

		_, err := repo.Load(ctx)
		gt.B(t, errors.Is(err, interfaces.ErrSnapshotNotFound)).True()
	})

	t.Run("Delete on empty repository is not an error", func(t *testing.T) {
		repo := newRepo(t)
		gt.NoError(t, repo.Delete(context.Background()))
	})

	t.Run("Loaded snapshot is a copy", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.Save(ctx, testSnapshot(1))).Required()

		first, err := repo.Load(ctx)
		gt.NoError(t, err).Required()
		first.Entries[0].Vector[0] = 99
		first.Entries[0].Document.MemberName = "mutated"

		second, err := repo.Load(ctx)
		gt.NoError(t, err).Required()
		gt.Equal(t, second.Entries[0].Vector[0], float32(0.1))
		gt.Equal(t, second.Entries[0].Document.MemberName, "Layla Kawaguchi")
	})
}

func TestMemoryRepository(t *testing.T) {
	runSnapshotRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestFirestoreRepository(t *testing.T) {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT not set")
	}
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE")

	runSnapshotRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		repo, err := firestore.New(context.Background(), projectID, databaseID,
			firestore.WithCollectionPrefix(fmt.Sprintf("test_%d_", time.Now().UnixNano())))
		gt.NoError(t, err).Required()
		t.Cleanup(func() {
			_ = repo.Delete(context.Background())
			_ = repo.Close()
		})
		return repo
	})
}
