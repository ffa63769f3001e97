package docbuild

import (
	"fmt"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
)

const (
	// aggregatedChunkSize is the number of messages per aggregated document
	aggregatedChunkSize = 3
	// aggregatedOverlap is the number of messages shared between adjacent chunks
	aggregatedOverlap = 1

	unknownMember = "Unknown"
)

// Build converts message records into indexable documents under the given
// strategy. It is a pure transformation: the same records and strategy always
// yield the same document set, with deterministic document IDs derived from
// the underlying message or member grouping.
func Build(records []*model.MessageRecord, strategy types.DocStrategy) ([]*model.Document, error) {
	switch strategy.Normalize() {
	case types.StrategyIndividual:
		return buildIndividual(records), nil
	case types.StrategyAggregated:
		return buildAggregated(records), nil
	case types.StrategyHybrid:
		docs := buildIndividual(records)
		return append(docs, buildAggregated(records)...), nil
	default:
		return nil, goerr.New("unknown document strategy", goerr.V("strategy", strategy))
	}
}

// buildIndividual creates one document per message
func buildIndividual(records []*model.MessageRecord) []*model.Document {
	docs := make([]*model.Document, 0, len(records))
	for _, r := range records {
		name := r.MemberName
		if name == "" {
			name = unknownMember
		}

		docs = append(docs, &model.Document{
			ID:         types.DocumentID(fmt.Sprintf("individual:%s", r.ID)),
			Text:       fmt.Sprintf("%s says: %s", name, r.Text),
			MemberID:   r.MemberID,
			MemberName: name,
			MessageIDs: []types.MessageID{r.ID},
			Strategy:   types.StrategyIndividual,
			Timestamp:  r.Timestamp,
		})
	}
	return docs
}

// buildAggregated groups each member's messages chronologically and emits
// overlapping chunks, so questions spanning multiple messages of one member
// can be answered from a single document.
func buildAggregated(records []*model.MessageRecord) []*model.Document {
	byMember := make(map[string][]*model.MessageRecord)
	var memberNames []string
	for _, r := range records {
		name := r.MemberName
		if name == "" {
			name = unknownMember
		}
		if _, ok := byMember[name]; !ok {
			memberNames = append(memberNames, name)
		}
		byMember[name] = append(byMember[name], r)
	}
	sort.Strings(memberNames)

	var docs []*model.Document
	step := aggregatedChunkSize - aggregatedOverlap

	for _, name := range memberNames {
		msgs := byMember[name]
		sort.SliceStable(msgs, func(i, j int) bool {
			if !msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
				return msgs[i].Timestamp.Before(msgs[j].Timestamp)
			}
			return msgs[i].ID < msgs[j].ID
		})

		for i, chunkIdx := 0, 0; i < len(msgs); i, chunkIdx = i+step, chunkIdx+1 {
			end := i + aggregatedChunkSize
			if end > len(msgs) {
				end = len(msgs)
			}
			chunk := msgs[i:end]

			var sb strings.Builder
			fmt.Fprintf(&sb, "%s's messages:", name)
			ids := make([]types.MessageID, 0, len(chunk))
			for _, m := range chunk {
				fmt.Fprintf(&sb, "\n- %s", m.Text)
				ids = append(ids, m.ID)
			}

			docs = append(docs, &model.Document{
				ID:         types.DocumentID(fmt.Sprintf("aggregated:%s:%d", chunk[0].MemberID, chunkIdx)),
				Text:       sb.String(),
				MemberID:   chunk[0].MemberID,
				MemberName: name,
				MessageIDs: ids,
				Strategy:   types.StrategyAggregated,
				Timestamp:  chunk[0].Timestamp,
			})

			if end == len(msgs) {
				break
			}
		}
	}

	return docs
}
