// Package stylist turns a free-text styling request into outfit suggestions by letting the model
// query the wardrobe through tools.
package stylist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/sealor/closet-whisperer/pkg/conversation"
	"github.com/sealor/closet-whisperer/pkg/gateway"
	"github.com/sealor/closet-whisperer/pkg/wardrobe"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultMaxRounds = 4

var (
	// ErrNoFinalResponse means the model kept calling tools until the round budget was used up.
	ErrNoFinalResponse   = errors.New("no final response from model")
	ErrMalformedResponse = errors.New("malformed model response")
)

const systemPrompt = `You are a personal stylist AI. Help users create outfits from their wardrobe.

You have access to tools to query the user's wardrobe:
- searchGarments({ type, color, season, occasion, status }): Search for garments matching criteria
- getGarmentById({ id }): Get details of a specific garment
- getAvailableGarments(): Get all available garments (not in laundry)

When creating outfit suggestions:
1. First understand what the user wants (occasion, weather, style preference)
2. Query the wardrobe using the tools (don't assume what's available)
3. Create 2-3 outfit combinations that work well together
4. Explain your reasoning for each outfit

Return your response in JSON format:
{
  "suggestions": [
    {
      "name": "outfit name",
      "garmentIds": ["id1", "id2", "id3"],
      "reasoning": "why this works"
    }
  ],
  "reasoning": "overall thought process"
}`

// Completer performs one exchange with the model.
type Completer interface {
	Complete(ctx context.Context, messages []conversation.Message, tools []openai.ChatCompletionToolUnionParam) (*gateway.Reply, error)
}

// Tools offers tool definitions to the model and answers its tool calls.
type Tools interface {
	Definitions() []openai.ChatCompletionToolUnionParam
	Call(ctx context.Context, toolCall conversation.ToolCall) (conversation.Message, error)
}

type Orchestrator struct {
	model       Completer
	tools       Tools
	maxRounds   int
	log         *zap.Logger
	transcripts *conversation.TranscriptWriter
}

type Option func(*Orchestrator)

func WithMaxRounds(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRounds = n
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// WithTranscripts writes every finished conversation to w.
func WithTranscripts(w *conversation.TranscriptWriter) Option {
	return func(o *Orchestrator) {
		o.transcripts = w
	}
}

func New(model Completer, tools Tools, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		model:     model,
		tools:     tools,
		maxRounds: DefaultMaxRounds,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Suggest runs the tool-calling loop for prompt. Cancelling ctx stops the loop before the next round.
func (o *Orchestrator) Suggest(ctx context.Context, prompt string) (*wardrobe.SuggestionSet, error) {
	session := &conversation.Session{}
	session.Append(conversation.SystemMessage(systemPrompt), conversation.UserMessage(prompt))

	start := time.Now()
	suggestions, err := o.run(ctx, session)
	o.log.Info("outfit generation finished",
		zap.Int("messages", len(session.Messages)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))

	if o.transcripts != nil {
		if file, werr := o.transcripts.Write("outfit", session); werr != nil {
			o.log.Warn("failed to write transcript", zap.Error(werr))
		} else {
			o.log.Debug("transcript written", zap.String("file", file))
		}
	}
	return suggestions, err
}

func (o *Orchestrator) run(ctx context.Context, session *conversation.Session) (*wardrobe.SuggestionSet, error) {
	definitions := o.tools.Definitions()

	for round := 1; round <= o.maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reply, err := o.model.Complete(ctx, slices.Clip(session.Messages), definitions)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}

		if len(reply.ToolCalls) == 0 {
			session.Append(conversation.AssistantMessage(reply.Content))
			o.log.Debug("final content received", zap.Int("round", round))
			return ParseSuggestions(reply.Content)
		}

		o.log.Debug("tool calls received", zap.Int("round", round), zap.Int("count", len(reply.ToolCalls)))
		session.Append(conversation.AssistantMessage(reply.Content, reply.ToolCalls...))

		results, err := o.callTools(ctx, reply.ToolCalls)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}
		session.Append(results...)
	}

	return nil, fmt.Errorf("%w after %d rounds", ErrNoFinalResponse, o.maxRounds)
}

// callTools runs the calls of one round concurrently and returns their answers in call order.
func (o *Orchestrator) callTools(ctx context.Context, calls []conversation.ToolCall) ([]conversation.Message, error) {
	results := make([]conversation.Message, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			o.log.Debug("tool call", zap.String("id", call.ID), zap.String("name", call.Name), zap.String("arguments", call.Arguments))
			message, err := o.tools.Call(gctx, call)
			if err != nil {
				return err
			}
			results[i] = message
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ParseSuggestions decodes the model's final answer, which may be wrapped in a fenced code block.
func ParseSuggestions(content string) (*wardrobe.SuggestionSet, error) {
	var set wardrobe.SuggestionSet
	if err := json.Unmarshal([]byte(conversation.ExtractJSON(content)), &set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if set.Suggestions == nil {
		set.Suggestions = []wardrobe.OutfitSuggestion{}
	}
	return &set, nil
}
