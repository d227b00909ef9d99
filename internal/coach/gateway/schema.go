package gateway

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/skillup-bharat/server/internal/coach/model"
)

// replySchema describes the JSON object the coach model must return. Setting
// it on the Gemini model switches the response to application/json.
func replySchema() *openapi3.Schema {
	score := func(desc string) *openapi3.Schema {
		s := openapi3.NewFloat64Schema().WithMin(model.MinScore).WithMax(model.MaxScore)
		s.Description = desc
		return s
	}
	text := func(desc string) *openapi3.Schema {
		s := openapi3.NewStringSchema()
		s.Description = desc
		return s
	}

	feedback := openapi3.NewObjectSchema().
		WithProperty("clarityScore", score("How easy the user's intent is to understand.")).
		WithProperty("grammarScore", score("Grammatical accuracy of the user's sentence.")).
		WithProperty("vocabularyScore", score("Richness and fit of the vocabulary for the scenario.")).
		WithProperty("paceScore", score("How natural the flow of the sentence reads.")).
		WithProperty("actionableTip", text("One concise, actionable tip.")).
		WithProperty("correctedSentence", text("Lead-in followed by the original or corrected sentence."))
	feedback.Required = []string{
		"clarityScore", "grammarScore", "vocabularyScore", "paceScore",
		"actionableTip", "correctedSentence",
	}

	root := openapi3.NewObjectSchema().
		WithProperty("ai_reply", text("Conversational reply in the scenario.")).
		WithProperty("feedback", feedback)
	root.Required = []string{"ai_reply", "feedback"}
	return root
}
