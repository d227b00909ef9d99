package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/skillup-bharat/server/internal/coach/gamification"
	"github.com/skillup-bharat/server/internal/coach/gateway"
	"github.com/skillup-bharat/server/internal/coach/model"
	"github.com/skillup-bharat/server/internal/coach/scenarios"
	"github.com/skillup-bharat/server/internal/coach/session"
	"github.com/skillup-bharat/server/internal/coach/turn"
)

const modelReply = `{"ai_reply":"Nice to meet you. What is your experience?","feedback":{"clarityScore":4,"grammarScore":3,"vocabularyScore":3,"paceScore":4,"actionableTip":"Use 'an' before vowels.","correctedSentence":"This is the corrected sentence: I am an engineer."}}`

func newTestServer(t *testing.T) (http.Handler, *session.MemoryStore) {
	t.Helper()
	catalog := scenarios.Default()
	store := session.NewMemoryStore()
	gw := gateway.Func(func(context.Context, string) (string, error) { return modelReply, nil })
	orch := turn.NewOrchestrator(catalog, gw, store, gamification.NewEngine())

	h := NewHandler(orch, catalog, store)
	h.newID = func() string { return "11111111-2222-3333-4444-555555555555" }
	return NewRouter(h, zerolog.Nop(), []string{"*"}), store
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestProcessTurnEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/process_turn", `{
		"sessionId": "s1",
		"scenarioId": "job_interview",
		"userSpeechText": "I am working as a engineer since 3 years",
		"conversationHistory": [{"role": "assistant", "content": "Tell me about yourself."}]
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[model.TurnResponse](t, rec)
	if resp.AIReplyText == "" || resp.Gamification.XPGained != 45 {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.UpdatedConversationHistory) != 2 || resp.UpdatedConversationHistory[1].Role != model.RoleAssistant {
		t.Errorf("history = %+v", resp.UpdatedConversationHistory)
	}

	// camelCase keys on the wire
	var raw map[string]json.RawMessage
	_ = json.Unmarshal(rec.Body.Bytes(), &raw)
	for _, k := range []string{"aiReplyText", "feedback", "gamification", "progress", "updatedConversationHistory"} {
		if _, ok := raw[k]; !ok {
			t.Errorf("missing key %q", k)
		}
	}
}

func TestProcessTurnEndpointDefaultsHistory(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/process_turn", `{"sessionId":"s1","scenarioId":"ordering_food","userSpeechText":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[model.TurnResponse](t, rec)
	if len(resp.UpdatedConversationHistory) != 1 {
		t.Errorf("history = %+v", resp.UpdatedConversationHistory)
	}
}

func TestProcessTurnEndpointErrors(t *testing.T) {
	srv, store := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"malformed json", `{"sessionId":`, http.StatusBadRequest, "invalid JSON body"},
		{"missing session", `{"scenarioId":"job_interview","userSpeechText":"hi"}`, http.StatusBadRequest, "required"},
		{"missing utterance", `{"sessionId":"s1","scenarioId":"job_interview"}`, http.StatusBadRequest, "required"},
		{"bad role", `{"sessionId":"s1","scenarioId":"job_interview","userSpeechText":"hi","conversationHistory":[{"role":"system","content":"x"}]}`, http.StatusBadRequest, "role"},
		{"unknown scenario", `{"sessionId":"s9","scenarioId":"nonexistent_scenario","userSpeechText":"hi"}`, http.StatusNotFound, "Scenario 'nonexistent_scenario' not found."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/process_turn", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			body := decodeBody[map[string]string](t, rec)
			if !strings.Contains(body["error"], tt.wantError) {
				t.Errorf("error = %q, want to contain %q", body["error"], tt.wantError)
			}
		})
	}

	if store.Len() != 0 {
		t.Errorf("failed requests created %d sessions", store.Len())
	}
}

func TestScenarioEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/scenarios", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	list := decodeBody[map[string][]model.ScenarioDetails](t, rec)
	if len(list["scenarios"]) != 5 {
		t.Errorf("scenarios = %d, want 5", len(list["scenarios"]))
	}

	rec = do(t, srv, http.MethodGet, "/scenarios/retail_support", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if s := decodeBody[model.ScenarioDetails](t, rec); s.ID != "retail_support" || len(s.ContextRules) == 0 {
		t.Errorf("scenario = %+v", s)
	}

	rec = do(t, srv, http.MethodGet, "/scenarios/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown status = %d", rec.Code)
	}
}

func TestSessionEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/sessions", `{"scenarioId":"job_interview"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body = %s", rec.Code, rec.Body.String())
	}
	started := decodeBody[startSessionResponse](t, rec)
	if started.SessionID == "" || started.InitialPrompt == "" {
		t.Fatalf("started = %+v", started)
	}
	if len(started.ConversationHistory) != 1 || started.ConversationHistory[0].Content != started.InitialPrompt {
		t.Errorf("opening history = %+v", started.ConversationHistory)
	}

	// started sessions report empty progress before the first turn
	rec = do(t, srv, http.MethodGet, "/sessions/"+started.SessionID+"/progress", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("progress before turn status = %d", rec.Code)
	}
	if snap := decodeBody[model.SessionSnapshot](t, rec); snap.XP != 0 || snap.TurnsCompleted != 0 {
		t.Errorf("snapshot before turn = %+v", snap)
	}
	if rec = do(t, srv, http.MethodGet, "/sessions/never-started/progress", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown session progress status = %d", rec.Code)
	}

	body, _ := json.Marshal(map[string]any{
		"sessionId":           started.SessionID,
		"scenarioId":          started.ScenarioID,
		"userSpeechText":      "I am a software engineer",
		"conversationHistory": started.ConversationHistory,
	})
	if rec = do(t, srv, http.MethodPost, "/process_turn", string(body)); rec.Code != http.StatusOK {
		t.Fatalf("turn status = %d", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/sessions/"+started.SessionID+"/progress", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("progress status = %d", rec.Code)
	}
	snap := decodeBody[model.SessionSnapshot](t, rec)
	if snap.XP != 45 || snap.TurnsCompleted != 1 || snap.Progress.SessionCount != 1 || len(snap.Badges) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}

	for _, b := range []string{`{}`, `not json`} {
		if rec = do(t, srv, http.MethodPost, "/sessions", b); rec.Code != http.StatusBadRequest {
			t.Errorf("start with %q status = %d", b, rec.Code)
		}
	}
	if rec = do(t, srv, http.MethodPost, "/sessions", `{"scenarioId":"nope"}`); rec.Code != http.StatusNotFound {
		t.Errorf("start unknown scenario status = %d", rec.Code)
	}
}

func TestSessionTurnEndpoints(t *testing.T) {
	srv, store := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/sessions", `{"scenarioId":"job_interview"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body = %s", rec.Code, rec.Body.String())
	}
	id := decodeBody[startSessionResponse](t, rec).SessionID
	turnsPath := "/sessions/" + id + "/turns"

	for _, utterance := range []string{"I am a software engineer", "I like building APIs"} {
		rec = do(t, srv, http.MethodPost, turnsPath, `{"userSpeechText":"`+utterance+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("submit status = %d, body = %s", rec.Code, rec.Body.String())
		}
	}
	resp := decodeBody[model.TurnResponse](t, rec)
	if resp.Gamification.XPGained != 45 {
		t.Errorf("XPGained = %d, want 45", resp.Gamification.XPGained)
	}
	history := resp.UpdatedConversationHistory
	if len(history) != 5 {
		t.Fatalf("history len = %d, want 5: %+v", len(history), history)
	}
	if history[3].Role != model.RoleUser || history[3].Content != "I like building APIs" || history[4].Content != resp.AIReplyText {
		t.Errorf("history tail = %+v", history[3:])
	}

	rec = do(t, srv, http.MethodGet, turnsPath, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if all := decodeBody[map[string][]model.Message](t, rec)["turns"]; len(all) != 5 {
		t.Errorf("turns = %d, want 5", len(all))
	}

	rec = do(t, srv, http.MethodGet, turnsPath+"?limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list with limit status = %d", rec.Code)
	}
	last := decodeBody[map[string][]model.Message](t, rec)["turns"]
	if len(last) != 2 || last[0].Content != "I like building APIs" || last[1].Role != model.RoleAssistant {
		t.Errorf("last turns = %+v", last)
	}

	state, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if state.TurnsCompleted != 2 || state.ScenarioID != "job_interview" {
		t.Errorf("state = %+v", state)
	}
}

func TestSessionTurnEndpointErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	if rec := do(t, srv, http.MethodPost, "/sessions", `{"scenarioId":"ordering_food"}`); rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d", rec.Code)
	}
	started := "/sessions/11111111-2222-3333-4444-555555555555/turns"

	// known only through the stateless endpoint, so nothing is stored
	stateless := `{"sessionId":"stateless","scenarioId":"job_interview","userSpeechText":"hi"}`
	if rec := do(t, srv, http.MethodPost, "/process_turn", stateless); rec.Code != http.StatusOK {
		t.Fatalf("stateless turn status = %d", rec.Code)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"blank utterance", http.MethodPost, started, `{"userSpeechText":"   "}`, http.StatusBadRequest},
		{"missing utterance", http.MethodPost, started, `{}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, started, `{"userSpeechText":`, http.StatusBadRequest},
		{"unknown session submit", http.MethodPost, "/sessions/nope/turns", `{"userSpeechText":"hi"}`, http.StatusNotFound},
		{"unknown session list", http.MethodGet, "/sessions/nope/turns", "", http.StatusNotFound},
		{"stateless session submit", http.MethodPost, "/sessions/stateless/turns", `{"userSpeechText":"hi"}`, http.StatusNotFound},
		{"zero limit", http.MethodGet, started + "?limit=0", "", http.StatusBadRequest},
		{"non-numeric limit", http.MethodGet, started + "?limit=ten", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	if rec := do(t, srv, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}
