package assembler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/service/planner"
)

// DefaultBudget is the context size bound in characters.
const DefaultBudget = 4000

const blockSeparator = "\n\n---\n\n"

// Assembler merges retrieval results into one bounded context block for the
// answer prompt.
type Assembler struct {
	budget int
}

type Option func(*Assembler)

// WithBudget sets the character budget of the assembled context.
func WithBudget(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.budget = n
		}
	}
}

func New(opts ...Option) *Assembler {
	a := &Assembler{
		budget: DefaultBudget,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble deduplicates the documents of all retrieval results, ranks them by
// score with a first-name boost from the question, and renders as many whole
// documents as fit the budget. An empty retrieval yields the explicit
// no-information marker so the generation step can decline instead of
// guessing.
func (a *Assembler) Assemble(question string, results []*model.RetrievalResult) *model.AssembledContext {
	candidates := dedupe(results)
	if len(candidates) == 0 {
		return &model.AssembledContext{
			Text:          model.NoInformationMarker,
			NoInformation: true,
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	candidates = boostByFirstName(question, candidates)

	var blocks []string
	total := 0
	for _, c := range candidates {
		block := renderBlock(len(blocks)+1, c)
		next := total + len(block)
		if len(blocks) > 0 {
			next += len(blockSeparator)
		}
		// Whole documents only: the first overflowing document and
		// everything after it are dropped.
		if next > a.budget {
			break
		}
		blocks = append(blocks, block)
		total = next
	}

	if len(blocks) == 0 {
		return &model.AssembledContext{
			Text:          model.NoInformationMarker,
			NoInformation: true,
		}
	}

	return &model.AssembledContext{
		Text:          strings.Join(blocks, blockSeparator),
		DocumentCount: len(blocks),
	}
}

// dedupe merges documents across results by ID, keeping the best score.
// First appearance fixes the relative order of equal scores.
func dedupe(results []*model.RetrievalResult) []model.ScoredDocument {
	var merged []model.ScoredDocument
	seen := map[string]int{}

	for _, result := range results {
		if result == nil {
			continue
		}
		for _, doc := range result.Documents {
			id := string(doc.Document.ID)
			if pos, ok := seen[id]; ok {
				if doc.Score > merged[pos].Score {
					merged[pos].Score = doc.Score
				}
				continue
			}
			seen[id] = len(merged)
			merged = append(merged, doc)
		}
	}
	return merged
}

// boostByFirstName promotes documents whose member name contains the first
// name detected in the question. Only the first detected name is used; the
// match is a case-insensitive substring of the member's display name.
func boostByFirstName(question string, candidates []model.ScoredDocument) []model.ScoredDocument {
	names := planner.Names(question)
	if len(names) == 0 {
		return candidates
	}
	target := strings.ToLower(names[0])

	matched := make([]model.ScoredDocument, 0, len(candidates))
	rest := make([]model.ScoredDocument, 0, len(candidates))
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Document.MemberName), target) {
			matched = append(matched, c)
		} else {
			rest = append(rest, c)
		}
	}
	return append(matched, rest...)
}

func renderBlock(position int, doc model.ScoredDocument) string {
	return fmt.Sprintf("[%d] %s (at %s) [relevance: %.4f]:\n%s",
		position,
		doc.Document.MemberName,
		doc.Document.Timestamp.Format(time.RFC3339),
		doc.Score,
		doc.Document.Text,
	)
}
