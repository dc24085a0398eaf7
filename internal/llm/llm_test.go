package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/ratiodash/internal/config"
)

// ── provider.go ──

func TestMessageConstructors(t *testing.T) {
	assert.Equal(t, Message{Role: RoleSystem, Content: "be brief"}, SystemMessage("be brief"))
	assert.Equal(t, Message{Role: RoleUser, Content: "hello"}, UserMessage("hello"))
	assert.Equal(t, Message{Role: RoleAssistant, Content: "hi"}, AssistantMessage("hi"))
}

func TestResponseString(t *testing.T) {
	r := &Response{
		Provider: "ollama", Model: "mistral",
		Content: "Hold.",
		Usage:   Usage{TotalTokens: 50},
		Latency: 100 * time.Millisecond,
	}
	s := r.String()
	assert.Contains(t, s, "ollama/mistral")
	assert.Contains(t, s, "50 tokens")

	r.Content = strings.Repeat("x", 200)
	assert.Contains(t, r.String(), "...")
}

func TestResolveModel(t *testing.T) {
	assert.Equal(t, "mistral", resolveModel(nil, "mistral"))
	assert.Equal(t, "mistral", resolveModel(&ChatOptions{}, "mistral"))
	assert.Equal(t, "llama3", resolveModel(&ChatOptions{Model: "llama3"}, "mistral"))
}

// ── ollama.go ──

func TestOllamaProviderNew(t *testing.T) {
	p := NewOllamaProvider("")
	assert.Equal(t, DefaultOllamaURL, p.baseURL)
	assert.Equal(t, "mistral", p.Model())
	assert.Equal(t, ProviderOllama, p.Name())

	p = NewOllamaProvider("http://gpu-box:11434/", WithOllamaModel("llama3.1:8b"))
	assert.Equal(t, "http://gpu-box:11434", p.baseURL)
	assert.Equal(t, "llama3.1:8b", p.Model())

	// An empty model keeps the default.
	assert.Equal(t, "mistral", NewOllamaProvider("", WithOllamaModel("")).Model())
}

func TestOllamaChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req ollamaChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral", req.Model)
		assert.False(t, req.Stream)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "user", req.Messages[0].Role)
		}
		if assert.NotNil(t, req.Options) {
			assert.Equal(t, 0.2, req.Options.Temperature)
			assert.Equal(t, 256, req.Options.NumPredict)
		}

		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:           "mistral",
			Message:         ollamaMessage{Role: "assistant", Content: "Hold. Margins are healthy."},
			Done:            true,
			PromptEvalCount: 15,
			EvalCount:       8,
		})
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL)
	resp, err := p.Chat(context.Background(),
		[]Message{UserMessage("AAPL ratios")}, &ChatOptions{Temperature: 0.2, MaxTokens: 256})
	require.NoError(t, err)
	assert.Equal(t, "Hold. Margins are healthy.", resp.Content)
	assert.Equal(t, ProviderOllama, resp.Provider)
	assert.Equal(t, 23, resp.Usage.TotalTokens)
}

func TestOllamaChatErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"model 'mistral' not found"}`, http.StatusNotFound)
		}))
		defer server.Close()

		_, err := NewOllamaProvider(server.URL).Chat(context.Background(), []Message{UserMessage("x")}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 404")
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("empty content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"model":"mistral","message":{"role":"assistant","content":"  "},"done":true}`)
		}))
		defer server.Close()

		_, err := NewOllamaProvider(server.URL).Chat(context.Background(), []Message{UserMessage("x")}, nil)
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := NewOllamaProvider(url).Chat(context.Background(), []Message{UserMessage("x")}, nil)
		assert.ErrorIs(t, err, ErrProviderDown)
	})
}

func TestOllamaPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	assert.NoError(t, NewOllamaProvider(server.URL).Ping(context.Background()))
}

func TestOllamaChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		flusher, _ := w.(http.Flusher)
		chunks := []ollamaChatResponse{
			{Message: ollamaMessage{Content: "Buy. "}},
			{Message: ollamaMessage{Content: "ROIC is strong."}},
			{Done: true, EvalCount: 5},
		}
		for _, c := range chunks {
			data, _ := json.Marshal(c)
			fmt.Fprintln(w, string(data))
			flusher.Flush()
		}
	}))
	defer server.Close()

	ch, err := NewOllamaProvider(server.URL).ChatStream(context.Background(), []Message{UserMessage("AAPL")}, nil)
	require.NoError(t, err)

	var content strings.Builder
	var done bool
	for chunk := range ch {
		require.NoError(t, chunk.Err)
		content.WriteString(chunk.Content)
		done = done || chunk.Done
	}
	assert.Equal(t, "Buy. ROIC is strong.", content.String())
	assert.True(t, done)
}

func TestOllamaChatStreamErrors(t *testing.T) {
	tests := map[string]string{
		"error line":     `{"message":{"content":"Bu"}}` + "\n" + `{"error":"out of memory"}` + "\n",
		"garbage":        "not json\n",
		"truncated body": `{"message":{"content":"Bu"}}` + "\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer server.Close()

			ch, err := NewOllamaProvider(server.URL).ChatStream(context.Background(), []Message{UserMessage("x")}, nil)
			require.NoError(t, err)

			var last StreamChunk
			for c := range ch {
				last = c
			}
			assert.Error(t, last.Err)
		})
	}
}

// ── gemini.go ──

func TestGeminiProviderNoKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func newGeminiTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, ":generateContent"):
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Contains(t, body, "systemInstruction")
			assert.Contains(t, r.URL.Path, "/models/gemini-2.0-flash")
			fmt.Fprint(w, `{
				"candidates": [{"content": {"role": "model", "parts": [{"text": "Sell. Leverage is high."}]}, "finishReason": "STOP"}],
				"usageMetadata": {"promptTokenCount": 40, "candidatesTokenCount": 6, "totalTokenCount": 46},
				"modelVersion": "gemini-2.0-flash-001"
			}`)
		case strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash"):
			fmt.Fprint(w, `{"name": "models/gemini-2.0-flash"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": {"code": 404, "message": "not found", "status": "NOT_FOUND"}}`)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGeminiChat(t *testing.T) {
	server := newGeminiTestServer(t)
	p, err := NewGeminiProvider(context.Background(), "test-key",
		WithGeminiBaseURL(server.URL), WithGeminiHTTPClient(server.Client()))
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p.Name())
	assert.Equal(t, DefaultGeminiModel, p.Model())

	resp, err := p.Chat(context.Background(), []Message{
		SystemMessage("You are a financial analyst."),
		UserMessage("AAPL ratios"),
	}, &ChatOptions{Temperature: 0.2, MaxTokens: 128})
	require.NoError(t, err)
	assert.Equal(t, "Sell. Leverage is high.", resp.Content)
	assert.Equal(t, "gemini-2.0-flash-001", resp.Model)
	assert.Equal(t, 46, resp.Usage.TotalTokens)

	assert.NoError(t, p.Ping(context.Background()))
}

func TestGeminiPingUnknownModel(t *testing.T) {
	server := newGeminiTestServer(t)
	p, err := NewGeminiProvider(context.Background(), "test-key",
		WithGeminiBaseURL(server.URL), WithGeminiHTTPClient(server.Client()),
		WithGeminiModel("gemini-nope"))
	require.NoError(t, err)
	assert.ErrorIs(t, p.Ping(context.Background()), ErrProviderDown)
}

func TestBuildGeminiRequest(t *testing.T) {
	contents, cfg := buildGeminiRequest([]Message{
		SystemMessage("rules"),
		UserMessage("q1"),
		AssistantMessage("a1"),
		UserMessage("q2"),
	}, &ChatOptions{Temperature: 0.5, MaxTokens: 64})

	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "a1", contents[1].Parts[0].Text)
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "rules", cfg.SystemInstruction.Parts[0].Text)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.5, *cfg.Temperature, 1e-6)
	assert.Equal(t, int32(64), cfg.MaxOutputTokens)

	_, cfg = buildGeminiRequest([]Message{UserMessage("q")}, nil)
	assert.Nil(t, cfg.SystemInstruction)
	assert.Nil(t, cfg.Temperature)
}

// ── factory.go ──

func TestNewFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Primary = "ollama"
	cfg.LLM.OllamaURL = "http://ollama:11434"
	cfg.LLM.Model = "llama3"
	cfg.LLM.Timeout = 5

	p, err := NewFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, p.Name())
	assert.Equal(t, "llama3", p.Model())

	cfg.LLM.Primary = "Gemini"
	_, err = NewFromConfig(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrNoAPIKey)

	cfg.LLM.GeminiKey = "test-key"
	p, err = NewFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p.Name())
	assert.Equal(t, "llama3", p.Model())

	cfg.LLM.Primary = "openai"
	_, err = NewFromConfig(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestChatOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Temperature = 0.3
	cfg.LLM.MaxTokens = 400
	assert.Equal(t, &ChatOptions{Temperature: 0.3, MaxTokens: 400}, ChatOptionsFromConfig(cfg))
}
