package index

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"github.com/mnemo-lab/mnemo/pkg/service/docbuild"
	"github.com/mnemo-lab/mnemo/pkg/utils/async"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFetchLimit   = 10000
	defaultBatchSize    = 64
	defaultParallelism  = 2
	minSearchCandidates = 1
)

// Index is the process-lifetime vector index over member message documents.
// It owns the message record cache and supports lazy or eager (warmup)
// construction with atomic generation swaps: concurrent searches observe
// either the fully-old or fully-new index, never a mix.
type Index struct {
	source   interfaces.Source
	embedder interfaces.Embedder
	repo     interfaces.Repository

	strategy    types.DocStrategy
	fetchLimit  int
	batchSize   int
	parallelism int

	// buildMu serializes build and invalidate against each other. External
	// service calls run while holding only buildMu, never mu, so searches
	// against the previous generation proceed unblocked.
	buildMu sync.Mutex

	mu         sync.RWMutex
	entries    []model.IndexEntry
	generation uint64
	records    []*model.MessageRecord
}

// Option is a functional option for Index configuration
type Option func(*Index)

// WithStrategy sets the document strategy used by rebuilds
func WithStrategy(strategy types.DocStrategy) Option {
	return func(x *Index) {
		x.strategy = strategy
	}
}

// WithFetchLimit caps the number of records fetched from the source
func WithFetchLimit(limit int) Option {
	return func(x *Index) {
		x.fetchLimit = limit
	}
}

// WithRepository enables snapshot persistence across restarts
func WithRepository(repo interfaces.Repository) Option {
	return func(x *Index) {
		x.repo = repo
	}
}

// WithBatchSize sets the number of texts per embedding call
func WithBatchSize(size int) Option {
	return func(x *Index) {
		x.batchSize = size
	}
}

// WithParallelism caps concurrent embedding calls during a rebuild
func WithParallelism(n int) Option {
	return func(x *Index) {
		x.parallelism = n
	}
}

// New creates a new vector index
func New(source interfaces.Source, embedder interfaces.Embedder, opts ...Option) (*Index, error) {
	if source == nil {
		return nil, goerr.New("message source is required")
	}
	if embedder == nil {
		return nil, goerr.New("embedder is required")
	}

	x := &Index{
		source:      source,
		embedder:    embedder,
		strategy:    types.StrategyIndividual,
		fetchLimit:  defaultFetchLimit,
		batchSize:   defaultBatchSize,
		parallelism: defaultParallelism,
	}
	for _, opt := range opts {
		opt(x)
	}

	if !x.strategy.IsValid() {
		return nil, goerr.New("invalid document strategy", goerr.V("strategy", x.strategy))
	}
	if x.fetchLimit <= 0 || x.batchSize <= 0 || x.parallelism <= 0 {
		return nil, goerr.New("index limits must be positive",
			goerr.V("fetchLimit", x.fetchLimit),
			goerr.V("batchSize", x.batchSize),
			goerr.V("parallelism", x.parallelism))
	}

	return x, nil
}

// Ready reports whether a successful build has happened since the last
// invalidation.
func (x *Index) Ready() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.entries != nil
}

// Stats describes the current index state
type Stats struct {
	Ready      bool
	Documents  int
	Generation uint64
	Strategy   types.DocStrategy
}

// Stats returns the current index state
func (x *Index) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return Stats{
		Ready:      x.entries != nil,
		Documents:  len(x.entries),
		Generation: x.generation,
		Strategy:   x.strategy,
	}
}

// Warmup eagerly builds the index. It is idempotent: a ready index is left
// untouched.
func (x *Index) Warmup(ctx context.Context) error {
	return x.Ensure(ctx)
}

// Ensure builds the index if it has not been built since the last
// invalidation.
func (x *Index) Ensure(ctx context.Context) error {
	if x.Ready() {
		return nil
	}

	x.buildMu.Lock()
	defer x.buildMu.Unlock()

	// Re-check: another request may have finished the build while this one
	// waited on buildMu.
	if x.Ready() {
		return nil
	}

	return x.build(ctx, false)
}

// Rebuild fetches fresh records and replaces the index, ignoring the record
// cache and any persisted snapshot. A failed rebuild leaves the previous
// index generation active.
func (x *Index) Rebuild(ctx context.Context) error {
	x.buildMu.Lock()
	defer x.buildMu.Unlock()

	x.mu.Lock()
	x.records = nil
	x.mu.Unlock()

	return x.build(ctx, true)
}

// build runs under buildMu. It acquires mu only for the final swap, so
// concurrent searches keep the previous generation until the new one is
// complete.
func (x *Index) build(ctx context.Context, fresh bool) error {
	logger := logging.From(ctx)

	// A persisted snapshot skips the fetch and embed cost entirely.
	if !fresh {
		if entries, ok := x.loadSnapshot(ctx); ok {
			x.swap(entries)
			logger.Info("index restored from snapshot", "documents", len(entries))
			return nil
		}
	}

	records, err := x.cachedRecords(ctx)
	if err != nil {
		return err
	}

	documents, err := docbuild.Build(records, x.strategy)
	if err != nil {
		return err
	}

	logger.Info("building vector index",
		"records", len(records),
		"documents", len(documents),
		"strategy", x.strategy,
	)

	entries, err := x.embedAll(ctx, documents)
	if err != nil {
		// Partial batches are discarded; the previous index stays active.
		return goerr.Wrap(types.ErrEmbeddingService, "index rebuild failed", goerr.V("cause", err.Error()))
	}

	x.swap(entries)
	logger.Info("vector index built", "documents", len(entries))

	x.saveSnapshot(ctx, entries)
	return nil
}

// cachedRecords returns the record cache, fetching from the source when the
// cache is empty. A failed fetch leaves the prior cache intact.
func (x *Index) cachedRecords(ctx context.Context) ([]*model.MessageRecord, error) {
	x.mu.RLock()
	cached := x.records
	x.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	records, err := x.source.Fetch(ctx, x.fetchLimit)
	if err != nil {
		return nil, err
	}

	x.mu.Lock()
	x.records = records
	x.mu.Unlock()

	return records, nil
}

// embedAll embeds every document in bounded-parallel batches. Any batch
// failure fails the whole rebuild.
func (x *Index) embedAll(ctx context.Context, documents []*model.Document) ([]model.IndexEntry, error) {
	entries := make([]model.IndexEntry, len(documents))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(x.parallelism)

	for start := 0; start < len(documents); start += x.batchSize {
		end := start + x.batchSize
		if end > len(documents) {
			end = len(documents)
		}
		batch := documents[start:end]
		offset := start

		eg.Go(func() error {
			texts := make([]string, len(batch))
			for i, d := range batch {
				texts[i] = d.Text
			}

			vectors, err := x.embedder.Embed(ctx, texts)
			if err != nil {
				return goerr.Wrap(err, "failed to embed document batch", goerr.V("offset", offset))
			}

			for i, vec := range vectors {
				entries[offset+i] = model.IndexEntry{
					Document: batch[i],
					Vector:   normalize(vec),
				}
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return entries, nil
}

// swap atomically replaces the index contents and bumps the generation
func (x *Index) swap(entries []model.IndexEntry) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = entries
	x.generation++
}

// Search embeds the query text and returns the k nearest documents by inner
// product over normalized vectors, ties broken by insertion order.
func (x *Index) Search(ctx context.Context, queryText string, k int) (*model.RetrievalResult, error) {
	x.mu.RLock()
	entries := x.entries
	x.mu.RUnlock()

	if entries == nil {
		return nil, goerr.Wrap(types.ErrIndexNotReady, "search before index build", goerr.V("query", queryText))
	}
	if k < minSearchCandidates {
		k = minSearchCandidates
	}

	vectors, err := x.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, goerr.Wrap(types.ErrEmbeddingService, "failed to embed query", goerr.V("cause", err.Error()))
	}
	if len(vectors) == 0 {
		return nil, goerr.Wrap(types.ErrEmbeddingService, "no query embedding returned")
	}
	query := normalize(vectors[0])

	type scored struct {
		idx   int
		score float64
	}
	candidates := make([]scored, len(entries))
	for i := range entries {
		candidates[i] = scored{idx: i, score: dot(entries[i].Vector, query)}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if k > len(candidates) {
		k = len(candidates)
	}

	result := &model.RetrievalResult{
		Query:     queryText,
		Documents: make([]model.ScoredDocument, k),
	}
	for i := 0; i < k; i++ {
		c := candidates[i]
		result.Documents[i] = model.ScoredDocument{
			Document: entries[c.idx].Document,
			Score:    c.score,
		}
	}

	return result, nil
}

// Invalidate discards the index, the record cache and any persisted
// snapshot, forcing a full re-fetch and re-embed on the next build.
func (x *Index) Invalidate(ctx context.Context) error {
	x.buildMu.Lock()
	defer x.buildMu.Unlock()

	x.mu.Lock()
	x.entries = nil
	x.records = nil
	x.mu.Unlock()

	if x.repo != nil {
		if err := x.repo.Delete(ctx); err != nil {
			return goerr.Wrap(err, "failed to delete index snapshot")
		}
	}

	logging.From(ctx).Info("vector index invalidated")
	return nil
}

// loadSnapshot restores entries from the repository if a compatible snapshot
// exists. Incompatible or broken snapshots fall back to a full rebuild.
func (x *Index) loadSnapshot(ctx context.Context) ([]model.IndexEntry, bool) {
	if x.repo == nil {
		return nil, false
	}

	snapshot, err := x.repo.Load(ctx)
	if err != nil {
		logging.From(ctx).Debug("no usable index snapshot", "error", err.Error())
		return nil, false
	}

	if snapshot.Strategy != x.strategy || snapshot.Dimension != x.embedder.Dimension() || len(snapshot.Entries) == 0 {
		logging.From(ctx).Info("ignoring incompatible index snapshot",
			"snapshot_strategy", snapshot.Strategy,
			"snapshot_dimension", snapshot.Dimension,
		)
		return nil, false
	}

	logging.From(ctx).Info("restoring index snapshot",
		"snapshot_id", snapshot.ID,
		"created_at", snapshot.CreatedAt,
	)

	entries := make([]model.IndexEntry, len(snapshot.Entries))
	for i, e := range snapshot.Entries {
		entries[i] = model.IndexEntry{
			Document: e.Document,
			Vector:   normalize(e.Vector),
		}
	}
	return entries, true
}

// saveSnapshot persists the freshly built index in the background. Snapshot
// persistence is best-effort: a failure is logged, not surfaced.
func (x *Index) saveSnapshot(ctx context.Context, entries []model.IndexEntry) {
	if x.repo == nil {
		return
	}

	snapshot := &model.IndexSnapshot{
		ID:        types.NewSnapshotID(),
		Strategy:  x.strategy,
		Dimension: x.embedder.Dimension(),
		CreatedAt: time.Now().UTC(),
		Entries:   entries,
	}

	async.Dispatch(ctx, func(ctx context.Context) error {
		if err := x.repo.Save(ctx, snapshot); err != nil {
			return goerr.Wrap(err, "failed to save index snapshot", goerr.V("snapshotID", snapshot.ID))
		}
		logging.From(ctx).Info("index snapshot saved",
			"snapshot_id", snapshot.ID,
			"documents", len(snapshot.Entries),
		)
		return nil
	})
}

// normalize returns the unit-length copy of v, so inner product equals
// cosine similarity.
func normalize(v []float32) []float32 {
	var norm float64
	for _, f := range v {
		norm += float64(f) * float64(f)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}

	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

// dot computes the inner product with float64 accumulation
func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
