package gateway_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sealor/closet-whisperer/pkg/conversation"
	"github.com/sealor/closet-whisperer/pkg/gateway"
	"github.com/sealor/closet-whisperer/pkg/tooling"
	"github.com/sealor/closet-whisperer/pkg/wardrobe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionTemplate = `{
	"id": "gen-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "openai/gpt-4o",
	"choices": [{"index": 0, "finish_reason": "%s", "message": %s}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

// fakeEndpoint answers every chat completion with body and records the decoded requests.
type fakeEndpoint struct {
	mu       sync.Mutex
	status   int
	body     string
	requests []map[string]any
	headers  []http.Header
}

func (f *fakeEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		http.NotFound(w, r)
		return
	}
	data, _ := io.ReadAll(r.Body)
	var request map[string]any
	_ = json.Unmarshal(data, &request)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request)
	f.headers = append(f.headers, r.Header.Clone())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = io.WriteString(w, f.body)
}

func completion(finishReason, message string) string {
	return strings.Replace(strings.Replace(completionTemplate, "%s", finishReason, 1), "%s", message, 1)
}

func newGateway(t *testing.T, endpoint *fakeEndpoint) *gateway.Gateway {
	t.Helper()
	srv := httptest.NewServer(endpoint)
	t.Cleanup(srv.Close)
	return gateway.New(gateway.Config{
		BaseURL: srv.URL + "/api/v1/",
		APIKey:  "test-key",
		Model:   "openai/gpt-4o",
		Referer: "https://closet.example",
		Title:   "Closet Whisperer",
	}, nil)
}

func TestCompleteContent(t *testing.T) {
	endpoint := &fakeEndpoint{status: http.StatusOK, body: completion("stop", `{"role":"assistant","content":"hello"}`)}
	gw := newGateway(t, endpoint)

	reply, err := gw.Complete(context.Background(), []conversation.Message{
		conversation.SystemMessage("system"),
		conversation.UserMessage("hi"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", reply.Content)
	assert.Empty(t, reply.ToolCalls)

	require.Len(t, endpoint.requests, 1)
	assert.Equal(t, "openai/gpt-4o", endpoint.requests[0]["model"])
	assert.Len(t, endpoint.requests[0]["messages"], 2)
	assert.NotContains(t, endpoint.requests[0], "tools")

	assert.Equal(t, "Bearer test-key", endpoint.headers[0].Get("Authorization"))
	assert.Equal(t, "https://closet.example", endpoint.headers[0].Get("HTTP-Referer"))
	assert.Equal(t, "Closet Whisperer", endpoint.headers[0].Get("X-Title"))
}

func TestCompleteToolCalls(t *testing.T) {
	endpoint := &fakeEndpoint{status: http.StatusOK, body: completion("tool_calls", `{
		"role": "assistant",
		"content": null,
		"tool_calls": [
			{"id": "call_1", "type": "function", "function": {"name": "searchGarments", "arguments": "{\"season\":\"SUMMER\"}"}},
			{"id": "call_2", "type": "function", "function": {"name": "getAvailableGarments", "arguments": ""}}
		]
	}`)}
	gw := newGateway(t, endpoint)

	toolbox := tooling.NewToolbox(nil)
	reply, err := gw.Complete(context.Background(), []conversation.Message{conversation.UserMessage("summer")}, toolbox.Definitions())
	require.NoError(t, err)

	assert.Equal(t, []conversation.ToolCall{
		{ID: "call_1", Name: "searchGarments", Arguments: `{"season":"SUMMER"}`},
		{ID: "call_2", Name: "getAvailableGarments", Arguments: ""},
	}, reply.ToolCalls)
	assert.Len(t, endpoint.requests[0]["tools"], 3)
}

func TestCompleteRemoteError(t *testing.T) {
	endpoint := &fakeEndpoint{status: http.StatusInternalServerError, body: `{"error":{"message":"upstream exploded","code":500}}`}
	gw := newGateway(t, endpoint)

	_, err := gw.Complete(context.Background(), []conversation.Message{conversation.UserMessage("hi")}, nil)
	require.ErrorIs(t, err, gateway.ErrRemote)
	assert.ErrorContains(t, err, "500")
	assert.Len(t, endpoint.requests, 1, "failed requests are not retried")
}

func TestCompleteNoChoices(t *testing.T) {
	endpoint := &fakeEndpoint{status: http.StatusOK, body: `{"id":"gen-1","object":"chat.completion","created":0,"model":"m","choices":[]}`}
	gw := newGateway(t, endpoint)

	_, err := gw.Complete(context.Background(), []conversation.Message{conversation.UserMessage("hi")}, nil)
	assert.ErrorIs(t, err, gateway.ErrEmptyResponse)
}

func TestAnalyzeGarment(t *testing.T) {
	content, err := json.Marshal("```json\n{\"type\":\"TOP\",\"color\":\"white\",\"season\":[\"SUMMER\"],\"occasion\":[\"casual\"],\"description\":\"linen shirt\",\"brand\":null}\n```")
	require.NoError(t, err)
	endpoint := &fakeEndpoint{status: http.StatusOK, body: completion("stop", `{"role":"assistant","content":`+string(content)+`}`)}
	gw := newGateway(t, endpoint)

	analysis, err := gw.AnalyzeGarment(context.Background(), gateway.DataURL("image/png", []byte{0x89, 'P', 'N', 'G'}))
	require.NoError(t, err)
	assert.Equal(t, wardrobe.TypeTop, analysis.Type)
	assert.Equal(t, []wardrobe.Season{wardrobe.SeasonSummer}, analysis.Season)
	assert.Nil(t, analysis.Brand)

	messages := endpoint.requests[0]["messages"].([]any)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,iVBORw==", image["url"])
}

func TestParseAnalysis(t *testing.T) {
	t.Run("brand and missing occasion", func(t *testing.T) {
		analysis, err := gateway.ParseAnalysis(`{"type":"SHOES","color":"red","season":["ALL_SEASON"],"description":"sneakers","brand":"Acme"}`)
		require.NoError(t, err)
		require.NotNil(t, analysis.Brand)
		assert.Equal(t, "Acme", *analysis.Brand)
		assert.Equal(t, []string{}, analysis.Occasion)
	})

	for name, content := range map[string]string{
		"not json":       "I cannot see a garment",
		"unknown type":   `{"type":"HAT","color":"red","season":[]}`,
		"unknown season": `{"type":"TOP","color":"red","season":["MONSOON"]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := gateway.ParseAnalysis(content)
			assert.ErrorIs(t, err, gateway.ErrMalformedAnalysis)
		})
	}
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/jpeg;base64,AQID", gateway.DataURL("image/jpeg", []byte{1, 2, 3}))
}
