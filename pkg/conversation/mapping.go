package conversation

import (
	"github.com/openai/openai-go/v3"
)

func NewParamsFromSession(session *Session) *openai.ChatCompletionNewParams {
	var params openai.ChatCompletionNewParams

	params.Model = session.Model
	params.Messages = NewMessageParams(session.Messages)

	return &params
}

func NewMessageParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, message := range messages {
		params = append(params, NewMessageParam(&message))
	}
	return params
}

func NewMessageParam(message *Message) openai.ChatCompletionMessageParamUnion {
	switch message.Role {
	case RoleAssistant:
		if len(message.ToolCalls) == 0 {
			return openai.AssistantMessage(message.Content)
		}
		assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: NewToolCallParams(message.ToolCalls)}
		if message.Content != "" {
			assistant.Content.OfString = openai.String(message.Content)
		}
		return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
	case RoleSystem:
		return openai.SystemMessage(message.Content)
	case RoleTool:
		return openai.ToolMessage(message.Content, message.ToolCallID)
	default:
		if message.ImageURL != "" {
			return openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(message.Content),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: message.ImageURL}),
			})
		}
		return openai.UserMessage(message.Content)
	}
}

func NewToolCallParams(calls []ToolCall) []openai.ChatCompletionMessageToolCallUnionParam {
	var toolCalls []openai.ChatCompletionMessageToolCallUnionParam
	for _, call := range calls {
		toolCalls = append(toolCalls, *NewToolCallParam(&call))
	}
	return toolCalls
}

func NewToolCallParam(call *ToolCall) *openai.ChatCompletionMessageToolCallUnionParam {
	return &openai.ChatCompletionMessageToolCallUnionParam{
		OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
			ID:       call.ID,
			Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{Name: call.Name, Arguments: call.Arguments},
		},
	}
}

// NewToolCallsFromOpenAI keeps only function calls; custom tool calls are not offered to the model.
func NewToolCallsFromOpenAI(calls []openai.ChatCompletionMessageToolCallUnion) []ToolCall {
	var toolCalls []ToolCall
	for _, call := range calls {
		if call.Type != "" && call.Type != "function" {
			continue
		}
		toolCalls = append(toolCalls, ToolCall{ID: call.ID, Name: call.Function.Name, Arguments: call.Function.Arguments})
	}
	return toolCalls
}
