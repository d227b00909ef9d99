package turn

import (
	"context"
	"errors"
	"fmt"

	"github.com/skillup-bharat/server/internal/coach/conversations"
	"github.com/skillup-bharat/server/internal/coach/gamification"
	"github.com/skillup-bharat/server/internal/coach/gateway"
	"github.com/skillup-bharat/server/internal/coach/model"
	"github.com/skillup-bharat/server/internal/coach/parsers"
	"github.com/skillup-bharat/server/internal/coach/prompts"
	"github.com/skillup-bharat/server/internal/coach/session"
	errx "github.com/skillup-bharat/server/internal/core/error"
	logx "github.com/skillup-bharat/server/pkg/logger"
)

// Tip used when the model could not be reached.
const GatewayFailureTip = "There was an issue processing your request. Please try again."

// ErrNotStarted is wrapped when a session has no stored conversation.
var ErrNotStarted = errors.New("session not started")

// ScenarioLookup resolves scenario ids.
type ScenarioLookup interface {
	Lookup(id string) (model.ScenarioDetails, error)
}

// Orchestrator runs one conversational turn end to end.
type Orchestrator struct {
	scenarios ScenarioLookup
	gateway   gateway.Gateway
	store     session.Store
	engine    *gamification.Engine
}

func NewOrchestrator(scenarios ScenarioLookup, gw gateway.Gateway, store session.Store, engine *gamification.Engine) *Orchestrator {
	if engine == nil {
		engine = gamification.NewEngine()
	}
	return &Orchestrator{
		scenarios: scenarios,
		gateway:   gw,
		store:     store,
		engine:    engine,
	}
}

// ProcessTurn resolves the scenario, asks the model for a reply and feedback,
// applies gamification to the session and assembles the response. Model
// failures never fail the turn; only an unknown scenario or a store failure
// is returned as an error.
func (o *Orchestrator) ProcessTurn(ctx context.Context, req model.TurnRequest) (*model.TurnResponse, error) {
	return o.process(ctx, req, false)
}

// StartSession records the scenario and its opening history for sessionID,
// replacing any conversation already stored under that id.
func (o *Orchestrator) StartSession(ctx context.Context, sessionID, scenarioID string) (model.ScenarioDetails, []model.Message, error) {
	scenario, err := o.scenarios.Lookup(scenarioID)
	if err != nil {
		return model.ScenarioDetails{}, nil, err
	}

	opening := conversations.Opening(scenario)
	err = o.store.Update(ctx, sessionID, func(state *model.SessionState) error {
		state.ScenarioID = scenario.ID
		state.History = append([]model.Message{}, opening...)
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to start session")
		return model.ScenarioDetails{}, nil, fmt.Errorf("start session %s: %w", sessionID, err)
	}

	logx.Info().Str("session_id", sessionID).Str("scenario_id", scenario.ID).Msg("session started")
	return scenario, opening, nil
}

// ProcessSessionTurn runs a turn against the conversation stored for a
// started session. Both the user utterance and the reply are appended to the
// stored history, which is returned as the updated history.
func (o *Orchestrator) ProcessSessionTurn(ctx context.Context, sessionID, utterance string) (*model.TurnResponse, error) {
	state, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.ScenarioID == "" {
		return nil, notStarted(sessionID)
	}

	return o.process(ctx, model.TurnRequest{
		SessionID:           sessionID,
		ScenarioID:          state.ScenarioID,
		UserSpeechText:      utterance,
		ConversationHistory: state.History,
	}, true)
}

// Turns returns up to limit of the most recent stored messages of a started session.
func (o *Orchestrator) Turns(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	state, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.ScenarioID == "" {
		return nil, notStarted(sessionID)
	}

	from := len(state.History) - limit
	if from < 0 {
		from = 0
	}
	return append([]model.Message{}, state.History[from:]...), nil
}

func notStarted(sessionID string) error {
	return errx.NotFound(
		fmt.Errorf("%w: %s", ErrNotStarted, sessionID),
		fmt.Sprintf("Session '%s' has no stored conversation.", sessionID),
	)
}

// process runs one turn. With keep set, the turn is also appended to the
// history stored in the session.
func (o *Orchestrator) process(ctx context.Context, req model.TurnRequest, keep bool) (*model.TurnResponse, error) {
	log := logx.Logger().With().
		Str("session_id", req.SessionID).
		Str("scenario_id", req.ScenarioID).
		Logger()

	scenario, err := o.scenarios.Lookup(req.ScenarioID)
	if err != nil {
		log.Warn().Err(err).Msg("unknown scenario")
		return nil, err
	}

	reply := o.generate(ctx, scenario, req)

	var (
		gam     model.GamificationUpdate
		prog    model.ProgressUpdate
		history []model.Message
	)
	err = o.store.Update(ctx, req.SessionID, func(state *model.SessionState) error {
		if keep {
			// the session may have been evicted since it was read
			if state.ScenarioID == "" {
				return notStarted(req.SessionID)
			}
			state.History = append(state.History,
				model.Message{Role: model.RoleUser, Content: req.UserSpeechText},
				model.Message{Role: model.RoleAssistant, Content: reply.AIReply},
			)
			history = append([]model.Message{}, state.History...)
		}
		gam, prog = o.engine.Apply(state, reply.Feedback, req.UserSpeechText)
		return nil
	})
	if errors.Is(err, ErrNotStarted) {
		return nil, err
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to update session state")
		return nil, fmt.Errorf("update session %s: %w", req.SessionID, err)
	}

	if !keep {
		history = conversations.AppendAssistant(req.ConversationHistory, reply.AIReply)
	}

	log.Info().
		Int("xp_gained", gam.XPGained).
		Strs("new_badges", gam.NewBadges).
		Int("streak", gam.CurrentStreak).
		Bool("stored_history", keep).
		Msg("turn processed")

	return &model.TurnResponse{
		AIReplyText:                reply.AIReply,
		Feedback:                   reply.Feedback,
		Gamification:               gam,
		Progress:                   prog,
		UpdatedConversationHistory: history,
	}, nil
}

// generate returns the normalized model reply, or the gateway fallback when
// the prompt cannot be built or the model call fails.
func (o *Orchestrator) generate(ctx context.Context, scenario model.ScenarioDetails, req model.TurnRequest) model.TurnReply {
	instruction, err := prompts.RenderTurn(ctx, scenario, req.ConversationHistory, req.UserSpeechText)
	if err != nil {
		logx.Error().Err(err).Str("session_id", req.SessionID).Msg("failed to render turn prompt")
		return gatewayFallback(req.UserSpeechText)
	}

	raw, err := o.gateway.Generate(ctx, instruction)
	if err != nil {
		logx.Warn().Err(err).Str("session_id", req.SessionID).Msg("llm call failed; using fallback reply")
		return gatewayFallback(req.UserSpeechText)
	}

	res := parsers.ParseTurnReply(raw)
	if res.Err != nil {
		logx.Warn().Err(res.Err).Str("session_id", req.SessionID).Msg("llm reply normalized to fallback")
	}
	return res.Reply
}

func gatewayFallback(utterance string) model.TurnReply {
	return model.TurnReply{
		AIReply: parsers.NoReplyText,
		Feedback: model.Feedback{
			ClarityScore:      model.MinScore,
			GrammarScore:      model.MinScore,
			VocabularyScore:   model.MinScore,
			PaceScore:         model.MinScore,
			ActionableTip:     GatewayFailureTip,
			CorrectedSentence: utterance,
		},
	}
}
