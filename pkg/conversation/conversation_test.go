package conversation

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"raw", `  {"a":1}  `, `{"a":1}`},
		{"json fence", "Here you go:\n```json\n{\"a\":1}\n```\nEnjoy", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"first fence wins", "```json\n{\"a\":1}\n```\n```json\n{\"b\":2}\n```", `{"a":1}`},
		{"empty fence falls back", "``````", "``````"},
		{"plain text", "no json here", "no json here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.content))
		})
	}
}

func TestNewMessageParam(t *testing.T) {
	t.Run("assistant with tool calls only", func(t *testing.T) {
		param := NewMessageParam(&Message{
			Role:      RoleAssistant,
			ToolCalls: []ToolCall{{ID: "call_1", Name: "getAvailableGarments", Arguments: "{}"}},
		})
		require.NotNil(t, param.OfAssistant)
		assert.False(t, param.OfAssistant.Content.OfString.Valid())
		require.Len(t, param.OfAssistant.ToolCalls, 1)
		call := param.OfAssistant.ToolCalls[0].OfFunction
		require.NotNil(t, call)
		assert.Equal(t, "call_1", call.ID)
		assert.Equal(t, "getAvailableGarments", call.Function.Name)
		assert.Equal(t, "{}", call.Function.Arguments)
	})

	t.Run("assistant text", func(t *testing.T) {
		param := NewMessageParam(&Message{Role: RoleAssistant, Content: "done"})
		require.NotNil(t, param.OfAssistant)
		assert.Empty(t, param.OfAssistant.ToolCalls)
	})

	t.Run("tool result", func(t *testing.T) {
		param := NewMessageParam(&Message{Role: RoleTool, Content: "[]", ToolCallID: "call_1"})
		require.NotNil(t, param.OfTool)
		assert.Equal(t, "call_1", param.OfTool.ToolCallID)
	})

	t.Run("user with image", func(t *testing.T) {
		param := NewMessageParam(&Message{Role: RoleUser, Content: "what is this", ImageURL: "data:image/png;base64,AA=="})
		require.NotNil(t, param.OfUser)
		parts := param.OfUser.Content.OfArrayOfContentParts
		require.Len(t, parts, 2)
		require.NotNil(t, parts[0].OfText)
		assert.Equal(t, "what is this", parts[0].OfText.Text)
		require.NotNil(t, parts[1].OfImageURL)
		assert.Equal(t, "data:image/png;base64,AA==", parts[1].OfImageURL.ImageURL.URL)
	})

	t.Run("system", func(t *testing.T) {
		param := NewMessageParam(&Message{Role: RoleSystem, Content: "be nice"})
		assert.NotNil(t, param.OfSystem)
	})
}

func TestNewParamsFromSession(t *testing.T) {
	session := &Session{Model: "openai/gpt-4o"}
	session.Append(SystemMessage("s"), UserMessage("u"), AssistantMessage("a"))

	params := NewParamsFromSession(session)
	assert.Equal(t, "openai/gpt-4o", params.Model)
	assert.Len(t, params.Messages, 3)
}

func TestNewToolCallsFromOpenAI(t *testing.T) {
	calls := []openai.ChatCompletionMessageToolCallUnion{
		{ID: "call_1", Type: "function", Function: openai.ChatCompletionMessageFunctionToolCallFunction{Name: "searchGarments", Arguments: `{"type":"TOP"}`}},
		{ID: "call_2", Type: "custom"},
		{ID: "call_3", Function: openai.ChatCompletionMessageFunctionToolCallFunction{Name: "getAvailableGarments"}},
	}

	want := []ToolCall{
		{ID: "call_1", Name: "searchGarments", Arguments: `{"type":"TOP"}`},
		{ID: "call_3", Name: "getAvailableGarments"},
	}
	if diff := cmp.Diff(want, NewToolCallsFromOpenAI(calls)); diff != "" {
		t.Errorf("tool calls mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveAndLoadSession(t *testing.T) {
	file := filepath.Join(t.TempDir(), "session.yaml")
	session := &Session{Model: "openai/gpt-4o"}
	session.Append(
		SystemMessage("system"),
		UserImageMessage("look", "https://example.com/a.png"),
		AssistantMessage("", ToolCall{ID: "call_1", Name: "getGarmentById", Arguments: `{"id":"g1"}`}),
		ToolMessage(`{"id":"g1"}`, "call_1"),
		AssistantMessage(`{"suggestions":[]}`),
	)

	require.NoError(t, SaveSession(file, session))
	loaded, err := LoadSession(file)
	require.NoError(t, err)

	if diff := cmp.Diff(session, loaded); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSessionMalformed(t *testing.T) {
	file := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(file, []byte("messages: [unclosed"), 0640))

	_, err := LoadSession(file)
	assert.ErrorContains(t, err, "decode transcript")
}

func TestTranscriptWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "transcripts")
	w := NewTranscriptWriter(dir)
	w.now = func() time.Time { return time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC) }

	session := &Session{Messages: []Message{UserMessage("hi")}}
	file, err := w.Write("outfit", session)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20250601T083000.000000000-outfit.yaml"), file)

	loaded, err := LoadSession(file)
	require.NoError(t, err)
	assert.Equal(t, session.Messages, loaded.Messages)
}
