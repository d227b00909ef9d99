package conversations

import (
	"strings"
	"testing"

	"github.com/skillup-bharat/server/internal/coach/model"
)

func TestTranscriptPreservesOrderAndEndsOpen(t *testing.T) {
	history := []model.Message{
		{Role: model.RoleAssistant, Content: "Tell me about yourself."},
		{Role: model.RoleUser, Content: "I am an engineer."},
		{Role: model.RoleAssistant, Content: "How long?"},
	}

	got := Transcript(history, "Three years.")
	want := "assistant: Tell me about yourself.\n" +
		"user: I am an engineer.\n" +
		"assistant: How long?\n" +
		"user: Three years.\n" +
		"assistant: "
	if got != want {
		t.Errorf("Transcript() =\n%q\nwant\n%q", got, want)
	}
}

func TestTranscriptEmpty(t *testing.T) {
	got := Transcript(nil, "")
	if got != "user: \nassistant: " {
		t.Errorf("Transcript(nil, \"\") = %q", got)
	}
	if !strings.HasSuffix(got, OpenAssistantTurn) {
		t.Error("missing open assistant marker")
	}
}

func TestAppendAssistantDoesNotMutate(t *testing.T) {
	backing := make([]model.Message, 1, 4)
	backing[0] = model.Message{Role: model.RoleUser, Content: "hi"}

	out := AppendAssistant(backing, "hello")
	if len(backing) != 1 {
		t.Fatalf("input length changed to %d", len(backing))
	}
	if len(out) != 2 || out[1].Role != model.RoleAssistant || out[1].Content != "hello" {
		t.Errorf("unexpected output: %+v", out)
	}

	// writing through the spare capacity of the input must not show up in out
	backing = append(backing, model.Message{Role: model.RoleUser, Content: "other"})
	if out[1].Content != "hello" {
		t.Error("output aliases input backing array")
	}
}

func TestOpening(t *testing.T) {
	got := Opening(model.ScenarioDetails{InitialPrompt: "Welcome!"})
	if len(got) != 1 || got[0].Role != model.RoleAssistant || got[0].Content != "Welcome!" {
		t.Errorf("Opening() = %+v", got)
	}
	if len(Opening(model.ScenarioDetails{})) != 0 {
		t.Error("empty initial prompt should yield empty history")
	}
}
