package scenarios

import (
	"errors"
	"fmt"
	"sort"

	"github.com/skillup-bharat/server/internal/coach/model"
	errx "github.com/skillup-bharat/server/internal/core/error"
)

// ErrNotFound is wrapped by Lookup when the scenario id is not registered.
var ErrNotFound = errors.New("scenario not found")

// Catalog is a read-only scenario lookup table.
type Catalog struct {
	byID map[string]model.ScenarioDetails
}

// NewCatalog indexes the given scenarios by id. Later duplicates win.
func NewCatalog(list ...model.ScenarioDetails) *Catalog {
	c := &Catalog{byID: make(map[string]model.ScenarioDetails, len(list))}
	for _, s := range list {
		c.byID[s.ID] = s
	}
	return c
}

// Default returns the built-in practice scenarios.
func Default() *Catalog {
	return NewCatalog(builtin...)
}

// Lookup returns a copy of the scenario, or a 404 AppError naming the id.
func (c *Catalog) Lookup(id string) (model.ScenarioDetails, error) {
	s, ok := c.byID[id]
	if !ok {
		return model.ScenarioDetails{}, errx.NotFound(
			fmt.Errorf("%w: %s", ErrNotFound, id),
			fmt.Sprintf("Scenario '%s' not found.", id),
		)
	}
	s.ContextRules = append([]string(nil), s.ContextRules...)
	return s, nil
}

// List returns every scenario sorted by id.
func (c *Catalog) List() []model.ScenarioDetails {
	out := make([]model.ScenarioDetails, 0, len(c.byID))
	for _, s := range c.byID {
		s.ContextRules = append([]string(nil), s.ContextRules...)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var builtin = []model.ScenarioDetails{
	{
		ID:            "job_interview",
		Name:          "Job Interview",
		Description:   "Practice common job interview questions.",
		InitialPrompt: "Welcome to your job interview. Tell me about yourself.",
		ContextRules: []string{
			"The conversation is a professional job interview.",
			"You are the interviewer, and the user is the candidate.",
			"Ask relevant follow-up questions.",
			"Maintain a polite, professional, and encouraging tone.",
		},
	},
	{
		ID:            "retail_support",
		Name:          "Retail Customer Support",
		Description:   "Handle customer queries in a retail setting.",
		InitialPrompt: "Hi, welcome to our store. How can I help you today?",
		ContextRules: []string{
			"The conversation is a customer service interaction in a retail store.",
			"You are the store assistant, and the user is a customer.",
			"Be helpful, empathetic, and problem-solving.",
			"Suggest solutions or direct to relevant departments.",
			"Use simple, clear language.",
		},
	},
	{
		ID:            "college_presentation",
		Name:          "College Presentation",
		Description:   "Practice presenting a topic to a college audience.",
		InitialPrompt: "Good morning everyone. Today, I'll be talking about...",
		ContextRules: []string{
			"The conversation simulates a college presentation.",
			"You are the audience/moderator, and the user is giving a presentation.",
			"Provide constructive feedback or ask clarifying questions related to the topic.",
			"Maintain an academic and supportive tone.",
			"Focus on presentation skills like clarity, structure, and engagement.",
		},
	},
	{
		ID:            "ordering_food",
		Name:          "Ordering Food at a Restaurant",
		Description:   "Practice ordering food and interacting with restaurant staff.",
		InitialPrompt: "Welcome to 'The Spice Route'! What can I get for you today?",
		ContextRules: []string{
			"The conversation is in a restaurant setting.",
			"You are the server, and the user is the customer.",
			"Be polite and clear.",
			"Help the user choose items and clarify their order.",
		},
	},
	{
		ID:            "asking_directions",
		Name:          "Asking for Directions",
		Description:   "Practice asking for and giving directions.",
		InitialPrompt: "Excuse me, could you help me find my way to the nearest market?",
		ContextRules: []string{
			"The conversation is about giving/receiving directions in a city.",
			"You are a helpful local, and the user is asking for directions.",
			"Use clear and concise language.",
			"Provide landmarks and estimated distances.",
		},
	},
}
