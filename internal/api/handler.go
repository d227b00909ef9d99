package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skillup-bharat/server/internal/coach/gamification"
	"github.com/skillup-bharat/server/internal/coach/model"
	errx "github.com/skillup-bharat/server/internal/core/error"
)

const maxBodyBytes = 1 << 20

const defaultTurnsLimit = 10

// TurnProcessor runs conversational turns, either stateless or against a
// conversation stored for the session.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, req model.TurnRequest) (*model.TurnResponse, error)
	StartSession(ctx context.Context, sessionID, scenarioID string) (model.ScenarioDetails, []model.Message, error)
	ProcessSessionTurn(ctx context.Context, sessionID, utterance string) (*model.TurnResponse, error)
	Turns(ctx context.Context, sessionID string, limit int) ([]model.Message, error)
}

// ScenarioCatalog lists and resolves practice scenarios.
type ScenarioCatalog interface {
	Lookup(id string) (model.ScenarioDetails, error)
	List() []model.ScenarioDetails
}

// SessionReader reads session state.
type SessionReader interface {
	Get(ctx context.Context, id string) (*model.SessionState, error)
}

// Handler serves the coaching endpoints.
type Handler struct {
	turns     TurnProcessor
	scenarios ScenarioCatalog
	sessions  SessionReader
	newID     func() string
}

func NewHandler(turns TurnProcessor, scenarios ScenarioCatalog, sessions SessionReader) *Handler {
	return &Handler{
		turns:     turns,
		scenarios: scenarios,
		sessions:  sessions,
		newID:     uuid.NewString,
	}
}

// RegisterRoutes registers the coaching routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/process_turn", h.ProcessTurn)

	r.Route("/scenarios", func(r chi.Router) {
		r.Get("/", h.ListScenarios)
		r.Get("/{scenarioId}", h.GetScenario)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.StartSession)
		r.Get("/{sessionId}/progress", h.GetProgress)
		r.Post("/{sessionId}/turns", h.SubmitTurn)
		r.Get("/{sessionId}/turns", h.ListTurns)
	})
}

// turnRequest keeps userSpeechText optional-typed to tell missing from empty.
type turnRequest struct {
	SessionID           string          `json:"sessionId"`
	ScenarioID          string          `json:"scenarioId"`
	UserSpeechText      *string         `json:"userSpeechText"`
	ConversationHistory []model.Message `json:"conversationHistory"`
}

func (t turnRequest) validate() error {
	if t.SessionID == "" || t.ScenarioID == "" || t.UserSpeechText == nil {
		return errors.New("sessionId, scenarioId and userSpeechText are required")
	}
	for i, m := range t.ConversationHistory {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			return fmt.Errorf("conversationHistory[%d].role must be %q or %q", i, model.RoleUser, model.RoleAssistant)
		}
	}
	return nil
}

// ProcessTurn handles POST /process_turn.
func (h *Handler) ProcessTurn(w http.ResponseWriter, r *http.Request) {
	var in turnRequest
	if err := decode(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	if err := in.validate(); err != nil {
		WriteError(w, r, errx.BadRequest(err, err.Error()))
		return
	}

	history := in.ConversationHistory
	if history == nil {
		history = []model.Message{}
	}

	resp, err := h.turns.ProcessTurn(r.Context(), model.TurnRequest{
		SessionID:           in.SessionID,
		ScenarioID:          in.ScenarioID,
		UserSpeechText:      *in.UserSpeechText,
		ConversationHistory: history,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// ListScenarios handles GET /scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"scenarios": h.scenarios.List()})
}

// GetScenario handles GET /scenarios/{scenarioId}.
func (h *Handler) GetScenario(w http.ResponseWriter, r *http.Request) {
	s, err := h.scenarios.Lookup(chi.URLParam(r, "scenarioId"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, s)
}

type startSessionRequest struct {
	ScenarioID string `json:"scenarioId"`
}

type startSessionResponse struct {
	SessionID           string          `json:"sessionId"`
	ScenarioID          string          `json:"scenarioId"`
	InitialPrompt       string          `json:"initialPrompt"`
	ConversationHistory []model.Message `json:"conversationHistory"`
}

// StartSession handles POST /sessions and stores the opening conversation.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var in startSessionRequest
	if err := decode(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	if in.ScenarioID == "" {
		WriteError(w, r, errx.BadRequest(errors.New("missing scenarioId"), "scenarioId is required"))
		return
	}

	id := h.newID()
	s, opening, err := h.turns.StartSession(r.Context(), id, in.ScenarioID)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	JSON(w, http.StatusCreated, startSessionResponse{
		SessionID:           id,
		ScenarioID:          s.ID,
		InitialPrompt:       s.InitialPrompt,
		ConversationHistory: opening,
	})
}

type submitTurnRequest struct {
	UserSpeechText string `json:"userSpeechText"`
}

// SubmitTurn handles POST /sessions/{sessionId}/turns.
func (h *Handler) SubmitTurn(w http.ResponseWriter, r *http.Request) {
	var in submitTurnRequest
	if err := decode(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	if strings.TrimSpace(in.UserSpeechText) == "" {
		WriteError(w, r, errx.BadRequest(errors.New("blank userSpeechText"), "userSpeechText is required"))
		return
	}

	resp, err := h.turns.ProcessSessionTurn(r.Context(), chi.URLParam(r, "sessionId"), in.UserSpeechText)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// ListTurns handles GET /sessions/{sessionId}/turns?limit=N.
func (h *Handler) ListTurns(w http.ResponseWriter, r *http.Request) {
	limit := defaultTurnsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, r, errx.BadRequest(fmt.Errorf("invalid limit %q", raw), "limit must be a positive integer"))
			return
		}
		limit = n
	}

	turns, err := h.turns.Turns(r.Context(), chi.URLParam(r, "sessionId"), limit)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"turns": turns})
}

// GetProgress handles GET /sessions/{sessionId}/progress.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	state, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, gamification.Snapshot(state))
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errx.BadRequest(err, "invalid JSON body")
	}
	return nil
}
