package answer_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"github.com/mnemo-lab/mnemo/pkg/service/answer"
)

type mockCompleter struct {
	complete func(ctx context.Context, systemPrompt, prompt string) (string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	return m.complete(ctx, systemPrompt, prompt)
}

func TestGenerate(t *testing.T) {
	var gotSystem, gotPrompt string
	g := answer.New(&mockCompleter{
		complete: func(ctx context.Context, systemPrompt, prompt string) (string, error) {
			gotSystem = systemPrompt
			gotPrompt = prompt
			return "  Layla is planning her trip in March 2024.\n", nil
		},
	})

	assembled := &model.AssembledContext{
		Text:          "[1] Layla Kawaguchi (at 2024-03-10T12:00:00Z) [relevance: 0.9100]:\nplanning a trip to London in March 2024",
		DocumentCount: 1,
	}

	got, err := g.Generate(context.Background(), "When is Layla planning her trip?", assembled)
	gt.NoError(t, err).Required()
	gt.Equal(t, got, "Layla is planning her trip in March 2024.")

	gt.B(t, strings.Contains(gotPrompt, "Question: When is Layla planning her trip?")).True()
	gt.B(t, strings.Contains(gotPrompt, assembled.Text)).True()
	gt.B(t, strings.Contains(gotSystem, "Use ONLY the provided context")).True()
	gt.B(t, strings.Contains(gotSystem, "Do not speculate")).False()
}

func TestGenerateNoInformation(t *testing.T) {
	var gotSystem string
	g := answer.New(&mockCompleter{
		complete: func(ctx context.Context, systemPrompt, prompt string) (string, error) {
			gotSystem = systemPrompt
			return "That information is not available in the member messages.", nil
		},
	})

	assembled := &model.AssembledContext{
		Text:          model.NoInformationMarker,
		NoInformation: true,
	}

	got, err := g.Generate(context.Background(), "What is the capital of Mars?", assembled)
	gt.NoError(t, err).Required()
	gt.B(t, strings.Contains(got, "not available")).True()
	gt.B(t, strings.Contains(gotSystem, "Do not speculate")).True()
}

func TestGenerateServiceFailure(t *testing.T) {
	g := answer.New(&mockCompleter{
		complete: func(ctx context.Context, systemPrompt, prompt string) (string, error) {
			return "", errors.New("model overloaded")
		},
	})

	_, err := g.Generate(context.Background(), "anything", &model.AssembledContext{Text: "ctx"})
	gt.B(t, errors.Is(err, types.ErrGenerationService)).True()
}
