package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/config"
)

func TestLiteLLMChatModelGenerate(t *testing.T) {
	var got chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gemini","choices":[{"index":0,"message":{"role":"assistant","content":" RAG "},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`)
	}))
	defer server.Close()

	cm := NewLiteLLMChatModel(config.LLMConfig{LiteLLMURL: server.URL + "/", LiteLLMAPIKey: "sk-test", Timeout: time.Second}, "gemini-2.0-flash", RouterTemperature)
	reply, err := Complete(context.Background(), cm, "hello")
	require.NoError(t, err)
	assert.Equal(t, "RAG", reply)

	assert.Equal(t, "gemini-2.0-flash", got.Model)
	require.NotNil(t, got.Temperature)
	assert.Equal(t, float32(0), *got.Temperature)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestLiteLLMChatModelOptionsOverride(t *testing.T) {
	var got chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer server.Close()

	cm := NewLiteLLMChatModel(config.LLMConfig{LiteLLMURL: server.URL}, "base", 0.2)
	_, err := cm.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")},
		model.WithModel("override"), model.WithTemperature(0.9))
	require.NoError(t, err)
	assert.Equal(t, "override", got.Model)
	assert.InDelta(t, 0.9, *got.Temperature, 0.0001)
}

func TestLiteLLMChatModelError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	cm := NewLiteLLMChatModel(config.LLMConfig{LiteLLMURL: server.URL, Timeout: time.Second}, "gpt", 0)
	_, err := cm.Generate(context.Background(), []*schema.Message{schema.UserMessage("hello")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_request_error")
}

func TestLiteLLMChatModelStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"streamed"}}]}`)
	}))
	defer server.Close()

	cm := NewLiteLLMChatModel(config.LLMConfig{LiteLLMURL: server.URL}, "gpt", 0)
	sr, err := cm.Stream(context.Background(), []*schema.Message{schema.UserMessage("hello")})
	require.NoError(t, err)
	defer sr.Close()

	msg, err := sr.Recv()
	require.NoError(t, err)
	assert.Equal(t, "streamed", msg.Content)
}
