package usecase

import (
	"context"
	"fmt"

	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/service/index"
	"github.com/mnemo-lab/mnemo/pkg/service/planner"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
)

// Ask answers a question over the indexed member messages. The pipeline is a
// strict linear sequence: ensure index, expand, search, assemble, generate.
// Any stage failure aborts the request with that stage's error. All
// intermediate values are request scoped and released at return.
func (uc *UseCases) Ask(ctx context.Context, question string) (string, error) {
	logger := logging.From(ctx)

	if err := uc.index.Ensure(ctx); err != nil {
		return "", err
	}

	expansion := uc.planner.Expand(ctx, question)

	results := make([]*model.RetrievalResult, 0, len(expansion.Queries)+1)
	for _, query := range expansion.Queries {
		result, err := uc.index.Search(ctx, query, uc.k)
		if err != nil {
			return "", err
		}
		results = append(results, result)
	}

	// One extra probe for the first name found in the question pulls in that
	// member's messages even when the question text alone does not rank them.
	if names := planner.Names(question); len(names) > 0 {
		probe := fmt.Sprintf("%s says messages", names[0])
		result, err := uc.index.Search(ctx, probe, probeK(uc.k))
		if err != nil {
			return "", err
		}
		results = append(results, result)
	}

	assembled := uc.assembler.Assemble(question, results)
	logger.Debug("assembled context",
		"queries", len(expansion.Queries),
		"documents", assembled.DocumentCount,
		"no_information", assembled.NoInformation,
	)

	return uc.generator.Generate(ctx, question, assembled)
}

func probeK(k int) int {
	if half := k / 2; half > 3 {
		return half
	}
	return 3
}

// Warmup eagerly builds the index and reports its size.
func (uc *UseCases) Warmup(ctx context.Context) (index.Stats, error) {
	if err := uc.index.Warmup(ctx); err != nil {
		return index.Stats{}, err
	}
	return uc.index.Stats(), nil
}

// Rebuild replaces the index with one built from fresh source data. The
// previous index stays active if the rebuild fails.
func (uc *UseCases) Rebuild(ctx context.Context) error {
	return uc.index.Rebuild(ctx)
}

// Invalidate drops the index, the record cache and any stored snapshot. The
// next request rebuilds from the source.
func (uc *UseCases) Invalidate(ctx context.Context) error {
	return uc.index.Invalidate(ctx)
}

// Stats reports the current index state.
func (uc *UseCases) Stats() index.Stats {
	return uc.index.Stats()
}
