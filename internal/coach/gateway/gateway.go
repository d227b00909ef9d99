package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/skillup-bharat/server/internal/coach/model"
	"github.com/skillup-bharat/server/internal/coach/observers"
	logx "github.com/skillup-bharat/server/pkg/logger"
)

const nodeCoachModel = "coach_chat_model"

var (
	// ErrUnavailable is returned by a gateway that could not be configured.
	ErrUnavailable = errors.New("llm gateway unavailable")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("llm returned an empty response")
)

// Gateway sends one instruction to the language model and returns its raw text.
type Gateway interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to Gateway.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ChainGateway runs the prompt through a compiled eino chain ending in a chat model.
type ChainGateway struct {
	runnable  compose.Runnable[string, *schema.Message]
	modelName string
	timeout   time.Duration
}

// NewChainGateway compiles prompt -> user message -> chat model.
func NewChainGateway(ctx context.Context, cm einomodel.BaseChatModel, modelName string, timeout time.Duration) (*ChainGateway, error) {
	if cm == nil {
		return nil, fmt.Errorf("chat model is nil")
	}

	chain := compose.NewChain[string, *schema.Message]()
	chain.
		AppendLambda(compose.InvokableLambda(func(ctx context.Context, prompt string) ([]*schema.Message, error) {
			return []*schema.Message{schema.UserMessage(prompt)}, nil
		})).
		AppendChatModel(cm, compose.WithNodeName(nodeCoachModel))

	runnable, err := chain.Compile(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling coach chain")
		return nil, fmt.Errorf("error compiling coach chain: %w", err)
	}

	logx.Debug().Str("model", modelName).Msg("Coach chain compiled successfully")
	return &ChainGateway{runnable: runnable, modelName: modelName, timeout: timeout}, nil
}

func (g *ChainGateway) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	out, err := g.runnable.Invoke(ctx, prompt, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return "", fmt.Errorf("invoke coach chain: %w", err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", ErrEmptyResponse
	}

	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		c := model.ComputeCost(g.modelName, out.ResponseMeta.Usage)
		logx.Debug().
			Str("model", c.Model).
			Int("prompt_tokens", c.PromptTokens).
			Int("completion_tokens", c.CompletionTokens).
			Int("total_tokens", c.TotalTokens).
			Float64("total_cost_usd", c.TotalCost).
			Msg("llm usage")
	}
	return out.Content, nil
}

type unavailable struct {
	cause error
}

// Unavailable returns a gateway that fails every call with ErrUnavailable.
func Unavailable(cause error) Gateway {
	return unavailable{cause: cause}
}

func (u unavailable) Generate(context.Context, string) (string, error) {
	if u.cause == nil {
		return "", ErrUnavailable
	}
	return "", fmt.Errorf("%w: %v", ErrUnavailable, u.cause)
}
