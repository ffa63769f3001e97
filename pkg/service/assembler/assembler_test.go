package assembler_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"github.com/mnemo-lab/mnemo/pkg/service/assembler"
)

func scoredDoc(id, memberName, text string, score float64) model.ScoredDocument {
	return model.ScoredDocument{
		Document: &model.Document{
			ID:         types.DocumentID(id),
			Text:       text,
			MemberName: memberName,
			Timestamp:  time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		},
		Score: score,
	}
}

func result(query string, docs ...model.ScoredDocument) *model.RetrievalResult {
	return &model.RetrievalResult{Query: query, Documents: docs}
}

func TestAssembleEmpty(t *testing.T) {
	a := assembler.New()

	ctx := a.Assemble("What is the capital of Mars?", nil)
	gt.B(t, ctx.NoInformation).True()
	gt.Equal(t, ctx.Text, model.NoInformationMarker)
	gt.Equal(t, ctx.DocumentCount, 0)

	ctx = a.Assemble("anything", []*model.RetrievalResult{result("anything")})
	gt.B(t, ctx.NoInformation).True()
}

func TestAssembleRendering(t *testing.T) {
	a := assembler.New()

	ctx := a.Assemble("weekend plans", []*model.RetrievalResult{
		result("weekend plans",
			scoredDoc("d1", "Layla Kawaguchi", "Layla Kawaguchi says: trip in March", 0.91),
			scoredDoc("d2", "Viktor Petrov", "Viktor Petrov says: bought a Tesla", 0.52),
		),
	})

	gt.B(t, ctx.NoInformation).False()
	gt.Equal(t, ctx.DocumentCount, 2)
	gt.B(t, strings.HasPrefix(ctx.Text, "[1] Layla Kawaguchi (at 2024-03-10T12:00:00Z) [relevance: 0.9100]:\nLayla Kawaguchi says: trip in March")).True()
	gt.B(t, strings.Contains(ctx.Text, "\n\n---\n\n[2] Viktor Petrov")).True()
}

func TestAssembleDedupe(t *testing.T) {
	a := assembler.New()

	ctx := a.Assemble("weekend plans", []*model.RetrievalResult{
		result("q1",
			scoredDoc("d1", "Layla Kawaguchi", "trip in March", 0.60),
			scoredDoc("d2", "Viktor Petrov", "bought a Tesla", 0.55),
		),
		result("q2",
			scoredDoc("d1", "Layla Kawaguchi", "trip in March", 0.90),
		),
	})

	gt.Equal(t, ctx.DocumentCount, 2)
	// The duplicate keeps its best score and ranks first.
	gt.B(t, strings.HasPrefix(ctx.Text, "[1] Layla Kawaguchi")).True()
	gt.B(t, strings.Contains(ctx.Text, "[relevance: 0.9000]")).True()
	gt.B(t, strings.Contains(ctx.Text, "[relevance: 0.6000]")).False()
}

func TestAssembleFirstNameBoost(t *testing.T) {
	a := assembler.New()

	ctx := a.Assemble("When is Layla planning her trip to London?", []*model.RetrievalResult{
		result("q",
			scoredDoc("d1", "Viktor Petrov", "London is a big city", 0.95),
			scoredDoc("d2", "Layla Kawaguchi", "planning a trip to London in March 2024", 0.70),
			scoredDoc("d3", "Amina Diallo", "trips are fun", 0.80),
		),
	})

	gt.Equal(t, ctx.DocumentCount, 3)
	// The member matching the first detected name outranks higher scores.
	gt.B(t, strings.HasPrefix(ctx.Text, "[1] Layla Kawaguchi")).True()
	gt.B(t, strings.Contains(ctx.Text, "[2] Viktor Petrov")).True()
}

func TestAssembleBudget(t *testing.T) {
	long := strings.Repeat("x", 120)

	a := assembler.New(assembler.WithBudget(300))
	ctx := a.Assemble("weekend plans", []*model.RetrievalResult{
		result("q",
			scoredDoc("d1", "A B", long, 0.9),
			scoredDoc("d2", "C D", long, 0.8),
			scoredDoc("d3", "E F", long, 0.7),
		),
	})

	// Whole documents only: the overflowing third document is dropped.
	gt.Equal(t, ctx.DocumentCount, 1)
	gt.B(t, len(ctx.Text) <= 300).True()
	gt.B(t, strings.Contains(ctx.Text, "[2]")).False()
}

func TestAssembleBudgetNeverExceeded(t *testing.T) {
	for _, budget := range []int{50, 200, 1000, 5000} {
		t.Run(fmt.Sprintf("budget_%d", budget), func(t *testing.T) {
			a := assembler.New(assembler.WithBudget(budget))
			var docs []model.ScoredDocument
			for i := 0; i < 20; i++ {
				docs = append(docs, scoredDoc(
					fmt.Sprintf("d%d", i),
					"Member Name",
					strings.Repeat("y", 10*(i+1)),
					1.0-float64(i)*0.01,
				))
			}

			ctx := a.Assemble("question", []*model.RetrievalResult{result("q", docs...)})
			if !ctx.NoInformation {
				gt.B(t, len(ctx.Text) <= budget).True()
			}
		})
	}
}

func TestAssembleIdempotent(t *testing.T) {
	a := assembler.New()
	results := []*model.RetrievalResult{
		result("q",
			scoredDoc("d1", "Layla Kawaguchi", "trip in March", 0.9),
			scoredDoc("d2", "Viktor Petrov", "bought a Tesla", 0.8),
		),
	}

	first := a.Assemble("weekend plans", results)
	second := a.Assemble("weekend plans", results)
	gt.Equal(t, first.Text, second.Text)
	gt.Equal(t, first.DocumentCount, second.DocumentCount)
}
