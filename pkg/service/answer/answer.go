package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
)

const systemPrompt = `You are a helpful assistant that answers questions about member data.
Use ONLY the provided context (member messages) to answer questions.
The context includes messages retrieved via semantic search - they are the most relevant to the question.

IMPORTANT INSTRUCTIONS:
- Be specific and cite the member's name when providing information.
- For date/time questions, extract specific dates, days of the week, or time periods mentioned in messages. If a timestamp is provided, use it to give context like "in March 2024" or specific dates.
- For counting questions (how many, count, list), count ALL unique items mentioned across ALL messages provided.
- When asked "how many X does Y have?", interpret this as "how many X are mentioned by/about Y?"
- For aggregation questions like "Who has travel plans?", review EVERY message in the context and list ALL members mentioned. Be exhaustive.
- Some messages are aggregated (grouped together) and some are individual - use all of them.
- If you see the same information repeated across multiple messages, count unique items only once.
- When listing people or items, be thorough and check all messages before responding.
- If truly no relevant information exists in the context, say so honestly.`

const noInformationInstruction = `The context contains no relevant member messages for this question.
Tell the user plainly that the information is not available in the member messages. Do not speculate or invent an answer.`

// Generator produces the final answer from a question and its assembled
// context.
type Generator struct {
	completer interfaces.Completer
}

func New(completer interfaces.Completer) *Generator {
	return &Generator{completer: completer}
}

// Generate submits one prompt to the generation model and returns its text
// verbatim. When the context carries the no-information marker the
// instruction switches to declining the question.
func (g *Generator) Generate(ctx context.Context, question string, assembled *model.AssembledContext) (string, error) {
	prompt := fmt.Sprintf(`Question: %s

Context (Most Relevant Member Messages):
%s

Please answer the question based on the context provided above. Be concise and accurate.`, question, assembled.Text)

	system := systemPrompt
	if assembled.NoInformation {
		system = systemPrompt + "\n\n" + noInformationInstruction
	}

	resp, err := g.completer.Complete(ctx, system, prompt)
	if err != nil {
		return "", goerr.Wrap(types.ErrGenerationService, "failed to generate answer", goerr.V("cause", err.Error()))
	}

	return strings.TrimSpace(resp), nil
}
