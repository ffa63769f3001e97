package planner

import (
	"context"
	"strings"

	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
)

// DefaultQueryCap bounds the total number of queries per question, the
// original question included.
const DefaultQueryCap = 2

// topic groups the synonyms used to widen a query about a known subject.
type topic struct {
	name     string
	keywords []string
}

// Detection is ordered: the first matching topic wins.
var topics = []topic{
	{"travel", []string{"travel", "trip", "trips", "vacation", "journey", "visit", "visiting"}},
	{"car", []string{"car", "cars", "vehicle", "vehicles", "bmw", "mercedes", "tesla", "automobile"}},
	{"restaurant", []string{"restaurant", "restaurants", "dining", "food", "italian", "cuisine", "eatery"}},
	{"hotel", []string{"hotel", "hotels", "accommodation", "stay", "staying"}},
}

var countingMarkers = []string{"how many", "count", "number of", "list all", "what are all"}

// skipWords are capitalized tokens that are never member names: question
// words, pronouns, weekdays and months.
var skipWords = map[string]struct{}{
	"who": {}, "what": {}, "when": {}, "where": {}, "why": {}, "how": {},
	"which": {}, "whose": {},
	"i": {}, "me": {}, "my": {}, "mine": {}, "we": {}, "us": {}, "our": {}, "ours": {},
	"you": {}, "your": {}, "yours": {}, "he": {}, "him": {}, "his": {},
	"she": {}, "her": {}, "hers": {}, "it": {}, "its": {},
	"they": {}, "them": {}, "their": {}, "theirs": {},
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {}, "friday": {},
	"saturday": {}, "sunday": {},
	"january": {}, "february": {}, "march": {}, "april": {}, "may": {}, "june": {},
	"july": {}, "august": {}, "september": {}, "october": {}, "november": {},
	"december": {},
}

// Planner expands a question into a bounded set of search queries. The
// default mode is rule based; with a Completer it asks the model for one
// paraphrase instead.
type Planner struct {
	completer interfaces.Completer
	queryCap  int
}

type Option func(*Planner)

// WithQueryCap sets the total query bound per question.
func WithQueryCap(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.queryCap = n
		}
	}
}

// WithCompleter switches expansion to LLM paraphrasing.
func WithCompleter(completer interfaces.Completer) Option {
	return func(p *Planner) {
		p.completer = completer
	}
}

func New(opts ...Option) *Planner {
	p := &Planner{
		queryCap: DefaultQueryCap,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Expand returns the original question plus at most queryCap-1 auxiliary
// queries. Expansion never fails: any problem narrows the result to the
// original question alone.
func (p *Planner) Expand(ctx context.Context, question string) *model.QueryExpansion {
	expansion := &model.QueryExpansion{
		Question: question,
		Queries:  []string{question},
	}
	if p.queryCap <= 1 {
		return expansion
	}

	var extra []string
	if p.completer != nil {
		extra = p.paraphrase(ctx, question)
	} else {
		extra = p.ruleExpand(question)
	}

	for _, q := range extra {
		if len(expansion.Queries) >= p.queryCap {
			break
		}
		if q != "" && q != question {
			expansion.Queries = append(expansion.Queries, q)
		}
	}

	logging.From(ctx).Debug("expanded query",
		"question", question,
		"queries", expansion.Queries,
	)
	return expansion
}

// ruleExpand derives one auxiliary query from the question shape: topic
// synonyms for "who" questions, name+topic for counting and possessive
// questions.
func (p *Planner) ruleExpand(question string) []string {
	lower := strings.ToLower(question)

	isWho := strings.HasPrefix(lower, "who ")
	isCounting := false
	for _, marker := range countingMarkers {
		if strings.Contains(lower, marker) {
			isCounting = true
			break
		}
	}

	var detected *topic
	for i := range topics {
		for _, keyword := range topics[i].keywords {
			if strings.Contains(lower, keyword) {
				detected = &topics[i]
				break
			}
		}
		if detected != nil {
			break
		}
	}

	names := Names(question)

	switch {
	case isWho && detected != nil:
		return []string{strings.Join(detected.keywords[:3], " ")}
	case isCounting && len(names) > 0 && detected != nil:
		return []string{names[0] + " " + detected.name}
	case len(names) > 0 && detected != nil:
		return []string{names[0] + " " + strings.Join(detected.keywords[:2], " ")}
	}
	return nil
}

const paraphrasePrompt = `Rewrite the question as one short search query with different wording. Reply with the query only, no explanation.`

// paraphrase asks the model for a single rewording. Failures are logged and
// swallowed: expansion is best effort.
func (p *Planner) paraphrase(ctx context.Context, question string) []string {
	resp, err := p.completer.Complete(ctx, paraphrasePrompt, question)
	if err != nil {
		logging.From(ctx).Warn("query paraphrase failed, using original question only",
			"error", err,
		)
		return nil
	}

	q := strings.TrimSpace(resp)
	if idx := strings.IndexByte(q, '\n'); idx >= 0 {
		q = strings.TrimSpace(q[:idx])
	}
	if q == "" {
		return nil
	}
	return []string{q}
}

// Names extracts capitalized tokens that plausibly name a member. Question
// words, pronouns, weekdays and months are skipped.
func Names(question string) []string {
	var names []string
	for _, word := range strings.Fields(question) {
		clean := strings.TrimLeftFunc(word, func(r rune) bool {
			return !isWordRune(r)
		})
		// Possessives and trailing punctuation: keep the leading word only.
		if i := strings.IndexFunc(clean, func(r rune) bool { return !isWordRune(r) }); i >= 0 {
			clean = clean[:i]
		}
		if len(clean) < 2 {
			continue
		}
		first := rune(clean[0])
		if first < 'A' || first > 'Z' {
			continue
		}
		if _, skip := skipWords[strings.ToLower(clean)]; skip {
			continue
		}
		names = append(names, clean)
	}
	return names
}

func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z')
}
