package model

import "time"

// Message roles accepted in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ScenarioDetails describes a practice scenario and the rules the simulated
// counterpart follows.
type ScenarioDetails struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	InitialPrompt string   `json:"initialPrompt"`
	ContextRules  []string `json:"contextRules"`
}

// Feedback is the coaching assessment of a single utterance.
// All four scores are kept within [MinScore, MaxScore].
type Feedback struct {
	ClarityScore      float64 `json:"clarityScore"`
	GrammarScore      float64 `json:"grammarScore"`
	VocabularyScore   float64 `json:"vocabularyScore"`
	PaceScore         float64 `json:"paceScore"`
	ActionableTip     string  `json:"actionableTip"`
	CorrectedSentence string  `json:"correctedSentence"`
}

const (
	MinScore     = 1.0
	MaxScore     = 5.0
	NeutralScore = 3.0
)

// Average returns the mean of the four scores.
func (f Feedback) Average() float64 {
	return (f.ClarityScore + f.GrammarScore + f.VocabularyScore + f.PaceScore) / 4
}

// GamificationUpdate carries this turn's deltas only.
type GamificationUpdate struct {
	XPGained      int      `json:"xpGained"`
	NewBadges     []string `json:"newBadges"`
	CurrentStreak int      `json:"currentStreak"`
}

// ProgressUpdate is recomputed from the session totals on every turn.
type ProgressUpdate struct {
	SessionCount             int     `json:"sessionCount"`
	TotalSpeakingTimeSeconds int     `json:"totalSpeakingTimeSeconds"`
	AverageWordsPerMinute    float64 `json:"averageWordsPerMinute"`
	EstimatedLevel           string  `json:"estimatedLevel"`
}

// SessionState is the per-session accumulator owned by the session store.
// ScenarioID and History are only set for sessions started on the server,
// whose conversation is kept alongside the rewards.
type SessionState struct {
	SessionID         string    `json:"sessionId"`
	ScenarioID        string    `json:"scenarioId,omitempty"`
	History           []Message `json:"history,omitempty"`
	XP                int       `json:"xp"`
	Badges            []string  `json:"badges"`
	Streak            int       `json:"streak"`
	SessionCount      int       `json:"sessionCount"`
	TotalSpeakingTime float64   `json:"totalSpeakingTime"`
	WordsSpoken       int       `json:"wordsSpoken"`
	TurnsCompleted    int       `json:"turnsCompleted"`
	LastActive        time.Time `json:"lastActive"`
}

// NewSessionState returns a zeroed state for id.
func NewSessionState(id string, now time.Time) *SessionState {
	return &SessionState{SessionID: id, Badges: []string{}, LastActive: now}
}

// HasBadge reports whether the badge was already awarded.
func (s *SessionState) HasBadge(name string) bool {
	for _, b := range s.Badges {
		if b == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand out of the store.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	c := *s
	c.Badges = append([]string{}, s.Badges...)
	if s.History != nil {
		c.History = append([]Message{}, s.History...)
	}
	return &c
}

// TurnRequest is the body of a process-turn call.
type TurnRequest struct {
	SessionID           string    `json:"sessionId"`
	ScenarioID          string    `json:"scenarioId"`
	UserSpeechText      string    `json:"userSpeechText"`
	ConversationHistory []Message `json:"conversationHistory"`
}

// TurnResponse is the full result of one turn.
type TurnResponse struct {
	AIReplyText                string             `json:"aiReplyText"`
	Feedback                   Feedback           `json:"feedback"`
	Gamification               GamificationUpdate `json:"gamification"`
	Progress                   ProgressUpdate     `json:"progress"`
	UpdatedConversationHistory []Message          `json:"updatedConversationHistory"`
}

// TurnReply is the normalized content of one LLM answer.
type TurnReply struct {
	AIReply  string
	Feedback Feedback
}

// SessionSnapshot is the read-only view served by the progress endpoint.
type SessionSnapshot struct {
	SessionID      string         `json:"sessionId"`
	XP             int            `json:"xp"`
	Badges         []string       `json:"badges"`
	Streak         int            `json:"streak"`
	TurnsCompleted int            `json:"turnsCompleted"`
	WordsSpoken    int            `json:"wordsSpoken"`
	LastActive     time.Time      `json:"lastActive"`
	Progress       ProgressUpdate `json:"progress"`
}
