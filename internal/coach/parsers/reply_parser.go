package parsers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/skillup-bharat/server/internal/coach/model"
	logx "github.com/skillup-bharat/server/pkg/logger"
)

var (
	// ErrMalformedPayload marks output that is not the expected JSON object.
	ErrMalformedPayload = errors.New("malformed llm payload")
	// ErrInternalFault marks an unexpected failure while processing the payload.
	ErrInternalFault = errors.New("internal fault while parsing llm payload")
)

// Replies used when a field or the whole payload is unusable.
const (
	NoReplyText        = "I'm sorry, I couldn't generate a reply. Please try again."
	MalformedReplyText = "I'm sorry, I couldn't process that response. Could you please try again?"
	InternalReplyText  = "An internal error occurred. Please try again later."

	DefaultTip        = "Keep practicing!"
	DefaultCorrection = "No correction available."
	MalformedTip      = "Please speak clearly and try to rephrase."
	InternalTip       = "System error, please try again."
)

const (
	maxContentLen = 64 * 1024
	maxErrSnippet = 500
)

var fencedJSON = regexp.MustCompile("(?is)```json(.*?)(?:```|$)")

// decodeJSON is swapped in tests to exercise the internal fault path.
var decodeJSON = json.Unmarshal

// Result always carries a usable Reply. Err is nil on success, otherwise it
// wraps ErrMalformedPayload or ErrInternalFault.
type Result struct {
	Reply model.TurnReply
	Err   error
}

// rawReply is the optional intermediate form of the model output.
type rawReply struct {
	AIReply  text            `json:"ai_reply"`
	Feedback json.RawMessage `json:"feedback"`
}

type rawFeedback struct {
	ClarityScore      score `json:"clarityScore"`
	GrammarScore      score `json:"grammarScore"`
	VocabularyScore   score `json:"vocabularyScore"`
	PaceScore         score `json:"paceScore"`
	ActionableTip     text  `json:"actionableTip"`
	CorrectedSentence text  `json:"correctedSentence"`
}

// score accepts a JSON number or a numeric string; anything else counts as missing.
type score struct {
	v  float64
	ok bool
}

func (s *score) UnmarshalJSON(b []byte) error {
	*s = score{}
	raw := strings.TrimSpace(string(b))
	if unq, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unq)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*s = score{v: v, ok: true}
	return nil
}

func (s score) or(def float64) float64 {
	if !s.ok {
		return def
	}
	return s.v
}

// text accepts a JSON string; anything else counts as missing.
type text struct {
	v  string
	ok bool
}

func (t *text) UnmarshalJSON(b []byte) error {
	*t = text{}
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	*t = text{v: v, ok: true}
	return nil
}

func (t text) or(def string) string {
	if !t.ok || strings.TrimSpace(t.v) == "" {
		return def
	}
	return t.v
}

// ParseTurnReply turns raw model output into a normalized reply. It never
// panics; failures select one of the fixed fallback payloads.
func ParseTurnReply(content string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().
				Str("component", "reply_parser").
				Str("panic", fmt.Sprint(r)).
				Msg("panic recovered while parsing llm response")
			res = Result{
				Reply: fallbackReply(InternalReplyText, InternalTip),
				Err:   fmt.Errorf("%w: %v", ErrInternalFault, r),
			}
		}
	}()

	reply, err := parse(content)
	if err != nil {
		logx.Warn().
			Str("component", "reply_parser").
			Err(err).
			Int("len", len(content)).
			Str("raw_snippet", safeSnippet(content)).
			Msg("could not decode llm response")
		return Result{
			Reply: fallbackReply(MalformedReplyText, MalformedTip),
			Err:   fmt.Errorf("%w: %v", ErrMalformedPayload, err),
		}
	}
	return Result{Reply: reply}
}

func parse(content string) (model.TurnReply, error) {
	if len(content) > maxContentLen {
		return model.TurnReply{}, fmt.Errorf("payload too large: %d bytes", len(content))
	}

	body := stripFence(content)
	if body == "" {
		return model.TurnReply{}, fmt.Errorf("empty payload")
	}
	// null, arrays and scalars decode without error but carry no reply
	if !strings.HasPrefix(body, "{") {
		return model.TurnReply{}, fmt.Errorf("payload is not a JSON object")
	}

	var raw rawReply
	if err := decodeJSON([]byte(body), &raw); err != nil {
		return model.TurnReply{}, err
	}

	var fb rawFeedback
	if len(raw.Feedback) > 0 {
		// a feedback value of the wrong shape is treated as absent
		if err := decodeJSON(raw.Feedback, &fb); err != nil {
			logx.Debug().Err(err).Str("component", "reply_parser").Msg("feedback field ignored")
			fb = rawFeedback{}
		}
	}

	return model.TurnReply{
		AIReply: raw.AIReply.or(NoReplyText),
		Feedback: model.Feedback{
			ClarityScore:      ClampScore(fb.ClarityScore.or(model.NeutralScore)),
			GrammarScore:      ClampScore(fb.GrammarScore.or(model.NeutralScore)),
			VocabularyScore:   ClampScore(fb.VocabularyScore.or(model.NeutralScore)),
			PaceScore:         ClampScore(fb.PaceScore.or(model.NeutralScore)),
			ActionableTip:     fb.ActionableTip.or(DefaultTip),
			CorrectedSentence: fb.CorrectedSentence.or(DefaultCorrection),
		},
	}, nil
}

// ClampScore limits v to [model.MinScore, model.MaxScore].
func ClampScore(v float64) float64 {
	if math.IsNaN(v) || v < model.MinScore {
		return model.MinScore
	}
	if v > model.MaxScore {
		return model.MaxScore
	}
	return v
}

// stripFence returns the body of a ```json fenced block when present,
// otherwise the trimmed input.
func stripFence(s string) string {
	if m := fencedJSON.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

func fallbackReply(reply, tip string) model.TurnReply {
	return model.TurnReply{
		AIReply: reply,
		Feedback: model.Feedback{
			ClarityScore:      model.MinScore,
			GrammarScore:      model.MinScore,
			VocabularyScore:   model.MinScore,
			PaceScore:         model.MinScore,
			ActionableTip:     tip,
			CorrectedSentence: "",
		},
	}
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	cut := maxErrSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
