package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/skillup-bharat/server/internal/coach/model"
	logx "github.com/skillup-bharat/server/pkg/logger"
)

const thinkingBudget = 1024

// ErrMissingAPIKey is returned when no Gemini API key is configured.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

// NewGeminiChatModel creates the Gemini chat model used for coaching turns.
func NewGeminiChatModel(ctx context.Context, apiKey, baseURL string, cfg model.CoachModelConfig) (*gemini.ChatModel, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &cfg.Temperature,
		MaxTokens:   &cfg.MaxTokens,
		TopP:        &cfg.TopP,
		TopK:        &cfg.TopK,

		// a response schema puts the model in JSON mode
		ResponseSchema: replySchema(),
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(thinkingBudget)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating coach model")
		return nil, fmt.Errorf("error creating coach model: %w", err)
	}
	return cm, nil
}

// New builds the Gemini-backed gateway. Configuration problems never fail
// startup: they yield a gateway whose every call errors, so turns fall back.
func New(ctx context.Context, apiKey, baseURL string, cfg model.CoachModelConfig) Gateway {
	cm, err := NewGeminiChatModel(ctx, apiKey, baseURL, cfg)
	if err != nil {
		logx.Warn().Err(err).Msg("LLM gateway unavailable; turns will use fallback replies")
		return Unavailable(err)
	}

	g, err := NewChainGateway(ctx, cm, cfg.Model, cfg.Timeout)
	if err != nil {
		logx.Warn().Err(err).Msg("LLM gateway unavailable; turns will use fallback replies")
		return Unavailable(err)
	}
	return g
}
