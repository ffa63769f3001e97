package usecase_test

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"github.com/mnemo-lab/mnemo/pkg/service/answer"
	"github.com/mnemo-lab/mnemo/pkg/service/assembler"
	"github.com/mnemo-lab/mnemo/pkg/service/index"
	"github.com/mnemo-lab/mnemo/pkg/service/planner"
	"github.com/mnemo-lab/mnemo/pkg/usecase"
)

type fakeEmbedder struct {
	dim int
}

func (e *fakeEmbedder) Dimension() int {
	return e.dim
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dim)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			word = strings.Trim(word, ".,!?'")
			h := fnv.New32a()
			_, _ = h.Write([]byte(word))
			vec[h.Sum32()%uint32(e.dim)]++
		}
		vectors[i] = vec
	}
	return vectors, nil
}

type fakeSource struct {
	records []*model.MessageRecord
	err     error
}

func (s *fakeSource) Fetch(ctx context.Context, limit int) ([]*model.MessageRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

type mockCompleter struct {
	complete func(ctx context.Context, systemPrompt, prompt string) (string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	return m.complete(ctx, systemPrompt, prompt)
}

func record(id, memberID, memberName, text string, ts time.Time) *model.MessageRecord {
	return &model.MessageRecord{
		ID:         types.MessageID(id),
		MemberID:   types.MemberID(memberID),
		MemberName: memberName,
		Text:       text,
		Timestamp:  ts,
	}
}

func newUseCases(t *testing.T, src *fakeSource, completer *mockCompleter, opts ...usecase.Option) *usecase.UseCases {
	t.Helper()

	idx, err := index.New(src, &fakeEmbedder{dim: 64}, index.WithStrategy(types.StrategyIndividual))
	gt.NoError(t, err).Required()

	return usecase.New(
		idx,
		planner.New(),
		assembler.New(),
		answer.New(completer),
		opts...,
	)
}

func TestAskNameBoostScenario(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{records: []*model.MessageRecord{
		record("m1", "u1", "Layla Kawaguchi", "I am planning my trip to London in March 2024", base),
		record("m2", "u1", "Layla Kawaguchi", "So excited about visiting the museums there", base.Add(time.Hour)),
		record("m3", "u1", "Layla Kawaguchi", "Booked my flights already", base.Add(2*time.Hour)),
		record("m4", "u2", "Viktor Petrov", "London has amazing restaurants", base.Add(3*time.Hour)),
		record("m5", "u3", "Amina Diallo", "I just bought a new Tesla", base.Add(4*time.Hour)),
	}}

	var gotPrompt string
	completer := &mockCompleter{
		complete: func(ctx context.Context, systemPrompt, prompt string) (string, error) {
			gotPrompt = prompt
			if strings.Contains(prompt, "March 2024") {
				return "Layla Kawaguchi is planning her trip to London in March 2024.", nil
			}
			return "I could not find that information.", nil
		},
	}

	uc := newUseCases(t, src, completer)

	got, err := uc.Ask(context.Background(), "When is Layla planning her trip to London?")
	gt.NoError(t, err).Required()
	gt.B(t, strings.Contains(got, "March 2024")).True()

	// The name boost ranks Layla's London message first in the context.
	idx := strings.Index(gotPrompt, "[1] Layla Kawaguchi")
	gt.B(t, idx >= 0).True()
	gt.B(t, strings.Contains(gotPrompt[idx:], "March 2024")).True()
}

func TestAskNoInformationScenario(t *testing.T) {
	src := &fakeSource{records: nil}

	completer := &mockCompleter{
		complete: func(ctx context.Context, systemPrompt, prompt string) (string, error) {
			if strings.Contains(systemPrompt, "Do not speculate") {
				return "That information is not available in the member messages.", nil
			}
			return "Fabricated answer", nil
		},
	}

	uc := newUseCases(t, src, completer)

	got, err := uc.Ask(context.Background(), "What is the capital of Mars?")
	gt.NoError(t, err).Required()
	gt.B(t, strings.Contains(got, "not available")).True()
}

func TestAskSourceFailure(t *testing.T) {
	src := &fakeSource{err: types.ErrSourceUnavailable}
	completer := &mockCompleter{
		complete: func(ctx context.Context, systemPrompt, prompt string) (string, error) {
			return "should not be called", nil
		},
	}

	uc := newUseCases(t, src, completer)

	_, err := uc.Ask(context.Background(), "anything")
	gt.B(t, errors.Is(err, types.ErrSourceUnavailable)).True()
}

func TestAskGenerationFailure(t *testing.T) {
	src := &fakeSource{records: []*model.MessageRecord{
		record("m1", "u1", "Layla Kawaguchi", "hello world", time.Now()),
	}}
	completer := &mockCompleter{
		complete: func(ctx context.Context, systemPrompt, prompt string) (string, error) {
			return "", errors.New("model down")
		},
	}

	uc := newUseCases(t, src, completer)

	_, err := uc.Ask(context.Background(), "anything at all")
	gt.B(t, errors.Is(err, types.ErrGenerationService)).True()
}

type fakeClient struct {
	*fakeEmbedder
	*mockCompleter
}

func TestBuildWithLLMExpansion(t *testing.T) {
	src := &fakeSource{records: []*model.MessageRecord{
		record("m1", "u1", "Layla Kawaguchi", "I am planning my trip to London", time.Now()),
	}}

	var systems []string
	client := &fakeClient{
		fakeEmbedder: &fakeEmbedder{dim: 32},
		mockCompleter: &mockCompleter{
			complete: func(ctx context.Context, systemPrompt, prompt string) (string, error) {
				systems = append(systems, systemPrompt)
				if strings.Contains(systemPrompt, "Rewrite the question") {
					return "Layla London travel plans", nil
				}
				return "Layla is going to London.", nil
			},
		},
	}

	uc, err := usecase.Build(client, src, nil, usecase.BuildConfig{LLMExpansion: true})
	gt.NoError(t, err).Required()

	got, err := uc.Ask(context.Background(), "Where is Layla going?")
	gt.NoError(t, err).Required()
	gt.B(t, strings.Contains(got, "London")).True()

	// One paraphrase call before the answer call.
	gt.Equal(t, len(systems), 2)
	gt.B(t, strings.Contains(systems[0], "Rewrite the question")).True()
	gt.B(t, strings.Contains(systems[1], "Rewrite the question")).False()
}

func TestWarmupAndInvalidate(t *testing.T) {
	src := &fakeSource{records: []*model.MessageRecord{
		record("m1", "u1", "Layla Kawaguchi", "hello world", time.Now()),
		record("m2", "u2", "Viktor Petrov", "good morning", time.Now()),
	}}
	completer := &mockCompleter{
		complete: func(ctx context.Context, systemPrompt, prompt string) (string, error) {
			return "ok", nil
		},
	}

	uc := newUseCases(t, src, completer)
	ctx := context.Background()

	stats, err := uc.Warmup(ctx)
	gt.NoError(t, err).Required()
	gt.B(t, stats.Ready).True()
	gt.Equal(t, stats.Documents, 2)

	gt.NoError(t, uc.Invalidate(ctx)).Required()
	gt.B(t, uc.Stats().Ready).False()
}
