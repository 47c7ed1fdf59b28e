package assistant

import (
	"strings"

	"github.com/openai/openai-go"

	"inkflow/models"
)

// FallbackReply is sent when a reply could not be produced.
const FallbackReply = "⚠️ Προέκυψε πρόβλημα με την επεξεργασία του αιτήματός σου."

// Result is the parsed outcome of one completion: a text reply, a set
// of tool calls to execute, or a malformed response.
type Result struct {
	Text      string
	ToolCalls []models.ChatToolCall
	Malformed bool
}

// SafeText returns the reply text, falling back to a polite Greek
// apology when the model produced nothing usable.
func (r Result) SafeText() string {
	if r.Malformed || strings.TrimSpace(r.Text) == "" {
		return FallbackReply
	}
	return r.Text
}

// parseResult classifies a completion message into the result variant.
func parseResult(completion *openai.ChatCompletion) Result {
	if completion == nil || len(completion.Choices) == 0 {
		return Result{Malformed: true}
	}
	msg := completion.Choices[0].Message

	if len(msg.ToolCalls) > 0 {
		calls := make([]models.ChatToolCall, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			calls = append(calls, models.ChatToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		return Result{Text: msg.Content, ToolCalls: calls}
	}

	if strings.TrimSpace(msg.Content) == "" {
		return Result{Malformed: true}
	}
	return Result{Text: strings.TrimSpace(msg.Content)}
}
