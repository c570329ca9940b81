// Package conversation models chat histories, maps them to the OpenAI API and stores them as YAML transcripts
package conversation

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Session is the message history of one request. It only ever grows.
type Session struct {
	Model string `yaml:"model"`

	Messages []Message `yaml:"messages"`
}

type Message struct {
	Role       Role       `yaml:"role"`
	Content    string     `yaml:"content,omitempty"`
	ImageURL   string     `yaml:"image_url,omitempty"`
	ToolCallID string     `yaml:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `yaml:"tool_calls,omitempty"`
}

type ToolCall struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Arguments string `yaml:"arguments"`
}

func (s *Session) Append(messages ...Message) {
	s.Messages = append(s.Messages, messages...)
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// UserImageMessage is a user message carrying text and one image.
func UserImageMessage(content, imageURL string) Message {
	return Message{Role: RoleUser, Content: content, ImageURL: imageURL}
}

func AssistantMessage(content string, toolCalls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: toolCalls}
}

func ToolMessage(content, toolCallID string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}
