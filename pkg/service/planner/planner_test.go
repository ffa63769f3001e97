package planner_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/mnemo-lab/mnemo/pkg/service/planner"
)

type mockCompleter struct {
	complete func(ctx context.Context, systemPrompt, prompt string) (string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	return m.complete(ctx, systemPrompt, prompt)
}

func TestExpandRuleBased(t *testing.T) {
	ctx := context.Background()
	p := planner.New()

	t.Run("who question expands with topic synonyms", func(t *testing.T) {
		exp := p.Expand(ctx, "Who has travel plans?")
		gt.Array(t, exp.Queries).Length(2)
		gt.Equal(t, exp.Queries[0], "Who has travel plans?")
		gt.Equal(t, exp.Queries[1], "travel trip trips")
	})

	t.Run("counting question with name expands to name plus topic", func(t *testing.T) {
		exp := p.Expand(ctx, "How many cars does Viktor have?")
		gt.Array(t, exp.Queries).Length(2)
		gt.Equal(t, exp.Queries[1], "Viktor car")
	})

	t.Run("possessive question expands to name plus keywords", func(t *testing.T) {
		exp := p.Expand(ctx, "What are Layla's favorite restaurants?")
		gt.Array(t, exp.Queries).Length(2)
		gt.B(t, strings.HasPrefix(exp.Queries[1], "Layla ")).True()
	})

	t.Run("plain question stays unexpanded", func(t *testing.T) {
		exp := p.Expand(ctx, "Tell me something interesting")
		gt.Array(t, exp.Queries).Length(1)
		gt.Equal(t, exp.Queries[0], "Tell me something interesting")
	})
}

func TestExpandCap(t *testing.T) {
	ctx := context.Background()

	t.Run("cap of one keeps only the original", func(t *testing.T) {
		p := planner.New(planner.WithQueryCap(1))
		exp := p.Expand(ctx, "Who has travel plans?")
		gt.Array(t, exp.Queries).Length(1)
	})

	t.Run("original question always first", func(t *testing.T) {
		p := planner.New(planner.WithQueryCap(5))
		exp := p.Expand(ctx, "Who has travel plans?")
		gt.Equal(t, exp.Queries[0], "Who has travel plans?")
		gt.B(t, len(exp.Queries) <= 5).True()
	})
}

func TestExpandWithCompleter(t *testing.T) {
	ctx := context.Background()

	t.Run("paraphrase is appended", func(t *testing.T) {
		p := planner.New(planner.WithCompleter(&mockCompleter{
			complete: func(ctx context.Context, systemPrompt, prompt string) (string, error) {
				return "upcoming trips of members\n", nil
			},
		}))
		exp := p.Expand(ctx, "Who has travel plans?")
		gt.Array(t, exp.Queries).Length(2)
		gt.Equal(t, exp.Queries[1], "upcoming trips of members")
	})

	t.Run("failure degrades to original question only", func(t *testing.T) {
		p := planner.New(planner.WithCompleter(&mockCompleter{
			complete: func(ctx context.Context, systemPrompt, prompt string) (string, error) {
				return "", errors.New("model unavailable")
			},
		}))
		exp := p.Expand(ctx, "Who has travel plans?")
		gt.Array(t, exp.Queries).Length(1)
		gt.Equal(t, exp.Queries[0], "Who has travel plans?")
	})

	t.Run("duplicate paraphrase is dropped", func(t *testing.T) {
		p := planner.New(planner.WithCompleter(&mockCompleter{
			complete: func(ctx context.Context, systemPrompt, prompt string) (string, error) {
				return "Who has travel plans?", nil
			},
		}))
		exp := p.Expand(ctx, "Who has travel plans?")
		gt.Array(t, exp.Queries).Length(1)
	})
}

func TestNames(t *testing.T) {
	t.Run("extracts capitalized tokens", func(t *testing.T) {
		names := planner.Names("When is Layla planning her trip to London?")
		gt.Equal(t, names, []string{"Layla", "London"})
	})

	t.Run("skips question words and months", func(t *testing.T) {
		names := planner.Names("What happened in March on Monday?")
		gt.Array(t, names).Length(0)
	})

	t.Run("strips punctuation", func(t *testing.T) {
		names := planner.Names("What are Viktor's plans?")
		gt.Equal(t, names, []string{"Viktor"})
	})
}
