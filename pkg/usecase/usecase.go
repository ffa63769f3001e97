package usecase

import (
	"github.com/mnemo-lab/mnemo/pkg/service/answer"
	"github.com/mnemo-lab/mnemo/pkg/service/assembler"
	"github.com/mnemo-lab/mnemo/pkg/service/index"
	"github.com/mnemo-lab/mnemo/pkg/service/planner"
)

// DefaultRetrievalK is the number of documents fetched per search query.
const DefaultRetrievalK = 3

type UseCases struct {
	index     *index.Index
	planner   *planner.Planner
	assembler *assembler.Assembler
	generator *answer.Generator
	k         int
}

type Option func(*UseCases)

// WithRetrievalK sets the per-query document count.
func WithRetrievalK(k int) Option {
	return func(uc *UseCases) {
		if k > 0 {
			uc.k = k
		}
	}
}

func New(idx *index.Index, pl *planner.Planner, asm *assembler.Assembler, gen *answer.Generator, opts ...Option) *UseCases {
	uc := &UseCases{
		index:     idx,
		planner:   pl,
		assembler: asm,
		generator: gen,
		k:         DefaultRetrievalK,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
