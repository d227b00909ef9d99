package gamification

import (
	"math"
	"strings"
	"time"

	"github.com/skillup-bharat/server/internal/coach/model"
)

// Badge names.
const (
	BadgeFirstConversation = "First Conversation"
	BadgeTenMinSpeaking    = "10 Min Speaking"
	BadgeConsistency       = "Consistency"
)

const (
	baseXP            = 10
	secondsPerWord    = 0.5
	tenMinutesSeconds = 600
	consistencyTurns  = 4
	levelA2Threshold  = 200
	levelB1Threshold  = 500
)

// Engine applies per-turn rewards and derives progress metrics.
type Engine struct {
	now func() time.Time
}

type Option func(*Engine)

// WithClock overrides the clock used to stamp LastActive.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply mutates state for one completed turn and returns this turn's deltas
// together with the recomputed progress. The caller must hold the session lock.
func (e *Engine) Apply(state *model.SessionState, fb model.Feedback, utterance string) (model.GamificationUpdate, model.ProgressUpdate) {
	words := WordCount(utterance)

	xp := baseXP + int(math.Floor(fb.Average()*10))
	state.XP += xp

	newBadges := []string{}
	award := func(name string) {
		if state.HasBadge(name) {
			return
		}
		state.Badges = append(state.Badges, name)
		newBadges = append(newBadges, name)
	}

	if state.TurnsCompleted == 0 {
		award(BadgeFirstConversation)
	}

	state.TotalSpeakingTime += float64(words) * secondsPerWord
	if state.TotalSpeakingTime >= tenMinutesSeconds {
		award(BadgeTenMinSpeaking)
	}

	if state.TurnsCompleted >= consistencyTurns {
		award(BadgeConsistency)
	}

	state.Streak++

	state.TurnsCompleted++
	state.WordsSpoken += words
	if state.TurnsCompleted == 1 {
		state.SessionCount++
	}
	state.LastActive = e.now()

	return model.GamificationUpdate{
		XPGained:      xp,
		NewBadges:     newBadges,
		CurrentStreak: state.Streak,
	}, Progress(state)
}

// Progress derives the progress metrics from the session totals.
func Progress(state *model.SessionState) model.ProgressUpdate {
	wpm := 0.0
	if state.TotalSpeakingTime > 0 {
		wpm = float64(state.WordsSpoken) / state.TotalSpeakingTime * 60
	}
	return model.ProgressUpdate{
		SessionCount:             state.SessionCount,
		TotalSpeakingTimeSeconds: int(state.TotalSpeakingTime),
		AverageWordsPerMinute:    math.Round(wpm*100) / 100,
		EstimatedLevel:           Level(state.XP),
	}
}

// Snapshot is the read-only progress view of a session.
func Snapshot(state *model.SessionState) model.SessionSnapshot {
	c := state.Clone()
	return model.SessionSnapshot{
		SessionID:      c.SessionID,
		XP:             c.XP,
		Badges:         c.Badges,
		Streak:         c.Streak,
		TurnsCompleted: c.TurnsCompleted,
		WordsSpoken:    c.WordsSpoken,
		LastActive:     c.LastActive,
		Progress:       Progress(c),
	}
}

// Level maps accumulated XP to a CEFR-style band.
func Level(xp int) string {
	switch {
	case xp > levelB1Threshold:
		return "B1"
	case xp > levelA2Threshold:
		return "A2"
	default:
		return "A1"
	}
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
