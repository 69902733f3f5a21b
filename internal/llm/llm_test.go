package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelString(t *testing.T) {
	cases := []struct {
		in       string
		provider string
		model    string
	}{
		{"ollama:llama3.2", "ollama", "llama3.2"},
		{"openai:gpt-4o-mini", "openai", "gpt-4o-mini"},
		{"gemini-2.5-flash", "gemini", "gemini-2.5-flash"},
	}
	for _, c := range cases {
		provider, model := ParseModelString(c.in)
		assert.Equal(t, c.provider, provider)
		assert.Equal(t, c.model, model)
	}
}

func TestListOllamaModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{
				{"name": "llama3.2:latest"},
				{"name": "codellama:7b"},
			},
		})
	}))
	defer srv.Close()

	models := ListOllamaModels(srv.URL)
	assert.Equal(t, []string{"llama3.2:latest", "codellama:7b"}, models)
}

func TestListOllamaModels_Unreachable(t *testing.T) {
	assert.Empty(t, ListOllamaModels("http://127.0.0.1:1"))
}

func TestDetectDefault(t *testing.T) {
	t.Run("prefers local ollama", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"models": []map[string]string{{"name": "llama3.2:latest"}},
			})
		}))
		defer srv.Close()

		provider, model := DetectDefault(srv.URL)
		assert.Equal(t, "ollama", provider)
		assert.Equal(t, "llama3.2:latest", model)
	})

	t.Run("falls back to gemini", func(t *testing.T) {
		provider, model := DetectDefault("http://127.0.0.1:1")
		assert.Equal(t, "gemini", provider)
		assert.Equal(t, "gemini-2.5-flash", model)
	})
}

func TestOllamaChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, 0.1, req.Options.Temperature)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, RoleSystem, req.Messages[0].Role)

		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: Message{Role: RoleAssistant, Content: `"""Generated."""`},
		})
	}))
	defer srv.Close()

	o := NewOllama("llama3.2", 0.1, srv.URL)
	got, err := o.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "system"},
		{Role: RoleUser, Content: "user"},
	})
	require.NoError(t, err)
	assert.Equal(t, `"""Generated."""`, got)
}

func TestOllamaChat_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	o := NewOllama("llama3.2", 0.1, srv.URL)
	_, err := o.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestOpenAIChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": `"""Generated."""`}},
			},
		})
	}))
	defer srv.Close()

	s := NewOpenAI("test-key", "gpt-4o-mini", 0.1, srv.URL)
	got, err := s.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, `"""Generated."""`, got)
}

func TestOpenAIChat_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "429 too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewOpenAI("test-key", "gpt-4o-mini", 0.1, srv.URL)
	_, err := s.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestClassifyErr(t *testing.T) {
	wrapped := classifyErr(assert.AnError)
	assert.Equal(t, assert.AnError, wrapped)

	limited := classifyErr(&quotaErr{})
	assert.ErrorIs(t, limited, ErrRateLimited)
}

type quotaErr struct{}

func (*quotaErr) Error() string { return "googleapi: Error 429: Resource exhausted" }
