// Package gateway talks to a hosted OpenAI-compatible chat completion endpoint
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sealor/closet-whisperer/pkg/conversation"
	"go.uber.org/zap"
)

var (
	// ErrRemote wraps every non-success answer of the endpoint.
	ErrRemote        = errors.New("model endpoint error")
	ErrEmptyResponse = errors.New("model endpoint returned no choices")
)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// Referer and Title are sent as OpenRouter attribution headers when set.
	Referer string
	Title   string
	Debug   bool
}

// Reply is one model answer. When ToolCalls is not empty it takes precedence over Content.
type Reply struct {
	Content   string
	ToolCalls []conversation.ToolCall
}

type Gateway struct {
	client openai.Client
	model  string
	log    *zap.Logger
}

func New(cfg Config, log *zap.Logger, opts ...option.RequestOption) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}

	options := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		// a failed round fails the whole generation, the caller decides about retries
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		options = append(options, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Referer != "" {
		options = append(options, option.WithHeader("HTTP-Referer", cfg.Referer))
	}
	if cfg.Title != "" {
		options = append(options, option.WithHeader("X-Title", cfg.Title))
	}
	if cfg.Debug {
		options = append(options, option.WithDebugLog(nil))
	}
	options = append(options, opts...)

	return &Gateway{
		client: openai.NewClient(options...),
		model:  cfg.Model,
		log:    log,
	}
}

func (g *Gateway) Model() string {
	return g.model
}

// Complete sends the history and the optional tool list in one request.
func (g *Gateway) Complete(ctx context.Context, messages []conversation.Message, tools []openai.ChatCompletionToolUnionParam) (*Reply, error) {
	param := conversation.NewParamsFromSession(&conversation.Session{Model: g.model, Messages: messages})
	if len(tools) > 0 {
		param.Tools = tools
	}

	g.log.Debug("chat completion request", zap.String("model", g.model), zap.Int("messages", len(messages)), zap.Int("tools", len(tools)))

	completion, err := g.client.Chat.Completions.New(ctx, *param)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			body := apiErr.RawJSON()
			if body == "" {
				body = apiErr.Error()
			}
			return nil, fmt.Errorf("%w: %d - %s", ErrRemote, apiErr.StatusCode, body)
		}
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	message := completion.Choices[0].Message
	reply := &Reply{
		Content:   message.Content,
		ToolCalls: conversation.NewToolCallsFromOpenAI(message.ToolCalls),
	}

	g.log.Debug("chat completion reply",
		zap.Any("finish_reason", completion.Choices[0].FinishReason),
		zap.Int("tool_calls", len(reply.ToolCalls)),
		zap.Any("total_tokens", completion.Usage.TotalTokens))

	return reply, nil
}
