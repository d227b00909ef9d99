package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/skillup-bharat/server/internal/coach/conversations"
	"github.com/skillup-bharat/server/internal/coach/model"
	"github.com/skillup-bharat/server/internal/coach/observers"
)

//go:embed template/turn_prompt.txt
var turnPromptTemplate string

// Lead-ins the model must put in front of correctedSentence.
const (
	CorrectLeadIn   = "Your sentence is correct: "
	CorrectedLeadIn = "This is the corrected sentence: "
)

const (
	defaultScenarioName = "General Conversation"
	turnPromptName      = "turn_prompt"
)

// RenderTurn builds the single instruction string sent to the gateway for one turn.
// The output depends only on its inputs and always ends with the open assistant turn.
func RenderTurn(ctx context.Context, scenario model.ScenarioDetails, history []model.Message, utterance string) (string, error) {
	name := scenario.Name
	if name == "" {
		name = defaultScenarioName
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.UserMessage(strings.TrimRight(turnPromptTemplate, "\r\n")),
	)

	// Format reports to the handlers carried by ctx
	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      turnPromptName,
		Type:      "DefaultChatTemplate",
		Component: components.ComponentOfPrompt,
	}, observers.NewAllCallbacks())

	msgs, err := tpl.Format(ctx, map[string]any{
		"ScenarioName": name,
		"Rules":        strings.Join(scenario.ContextRules, "\n"),
		"UserSpeech":   utterance,
		"Transcript":   conversations.Transcript(history, utterance),
	})
	if err != nil {
		return "", fmt.Errorf("turn prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("turn prompt render: empty result")
	}
	return msgs[0].Content, nil
}
