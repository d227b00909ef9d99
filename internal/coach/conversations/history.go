package conversations

import (
	"strings"

	"github.com/skillup-bharat/server/internal/coach/model"
)

// OpenAssistantTurn ends every transcript so the model completes the assistant turn.
const OpenAssistantTurn = model.RoleAssistant + ": "

// Transcript serialises history as "role: content" lines in order, appends the
// new user utterance and leaves an open assistant turn as the final line.
func Transcript(history []model.Message, utterance string) string {
	var b strings.Builder
	for _, msg := range history {
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	b.WriteString(model.RoleUser)
	b.WriteString(": ")
	b.WriteString(utterance)
	b.WriteString("\n")
	b.WriteString(OpenAssistantTurn)
	return b.String()
}

// AppendAssistant returns a new history with the assistant reply appended.
// The input slice is never modified.
func AppendAssistant(history []model.Message, reply string) []model.Message {
	out := make([]model.Message, len(history), len(history)+1)
	copy(out, history)
	return append(out, model.Message{Role: model.RoleAssistant, Content: reply})
}

// Opening returns the initial history of a fresh scenario conversation.
func Opening(s model.ScenarioDetails) []model.Message {
	if s.InitialPrompt == "" {
		return []model.Message{}
	}
	return []model.Message{{Role: model.RoleAssistant, Content: s.InitialPrompt}}
}
