package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alexanderramin/smeta/internal/logger"
)

func testConfig(endpoint string) LLMConfig {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = endpoint
	return cfg
}

func withTimeout(cfg LLMConfig, ms int) LLMConfig {
	cfg.Tasks = map[TaskType]TaskConfig{
		TaskClassify: {Temperature: 0.1, MaxTokens: 512, TimeoutMs: ms},
	}
	return cfg
}

func chatOK(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse{
			Model:   "llama3.2",
			Message: Message{Role: "assistant", Content: content},
			Done:    true,
		})
	}
}

func userMessage(text string) []Message {
	return []Message{{Role: "user", Content: text}}
}

func TestOllamaClient_Chat_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "json", req.Format)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, 0.3, req.Options.Temperature)
		assert.Equal(t, 100, req.Options.NumPredict)

		chatOK(`{"0":"work"}`)(w, r)
	}))
	defer srv.Close()

	temp, maxTok := 0.3, 100
	client := NewOllamaClient(testConfig(srv.URL), NoopObserver{})
	resp, err := client.Chat(context.Background(), ChatRequest{
		Task: TaskClassify,
		Messages: []Message{
			{Role: "system", Content: "classify"},
			{Role: "user", Content: "rows"},
		},
		Temperature: &temp,
		MaxTokens:   &maxTok,
		JSONMode:    true,
	})

	require.NoError(t, err)
	assert.Equal(t, `{"0":"work"}`, resp.Content)
	assert.Equal(t, "llama3.2", resp.Model)
	assert.GreaterOrEqual(t, resp.LatencyMs, int64(0))
}

func TestOllamaClient_Chat_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := withTimeout(testConfig(srv.URL), 50)
	cfg.MaxRetries = 0

	_, err := NewOllamaClient(cfg, NoopObserver{}).Chat(context.Background(), ChatRequest{
		Task: TaskClassify, Messages: userMessage("x"),
	})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestOllamaClient_Chat_Unavailable(t *testing.T) {
	cfg := withTimeout(testConfig("http://127.0.0.1:1"), 1000)
	cfg.MaxRetries = 0

	_, err := NewOllamaClient(cfg, NoopObserver{}).Chat(context.Background(), ChatRequest{
		Task: TaskClassify, Messages: userMessage("x"),
	})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOllamaClient_Chat_RetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("internal error"))
			return
		}
		chatOK("ok")(w, r)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 1

	resp, err := NewOllamaClient(cfg, NoopObserver{}).Chat(context.Background(), ChatRequest{
		Task: TaskClassify, Messages: userMessage("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestOllamaClient_Chat_RetryAfterTimeout(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			time.Sleep(150 * time.Millisecond)
		}
		chatOK("ok")(w, r)
	}))
	defer srv.Close()

	cfg := withTimeout(testConfig(srv.URL), 50)
	cfg.MaxRetries = 1

	resp, err := NewOllamaClient(cfg, NoopObserver{}).Chat(context.Background(), ChatRequest{
		Task: TaskClassify, Messages: userMessage("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestOllamaClient_Chat_BadStatusExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 0

	_, err := NewOllamaClient(cfg, NoopObserver{}).Chat(context.Background(), ChatRequest{
		Task: TaskClassify, Messages: userMessage("x"),
	})
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Contains(t, err.Error(), "400")
}

func TestOllamaClient_Available(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.True(t, NewOllamaClient(testConfig(srv.URL), nil).Available(context.Background()))
	assert.False(t, NewOllamaClient(testConfig("http://127.0.0.1:1"), nil).Available(context.Background()))
}

func TestOllamaClient_ObserverEvents(t *testing.T) {
	srv := httptest.NewServer(chatOK("ok"))
	defer srv.Close()

	var captured LLMCallEvent
	obs := &captureObserver{fn: func(e LLMCallEvent) { captured = e }}

	_, err := NewOllamaClient(testConfig(srv.URL), obs).Chat(context.Background(), ChatRequest{
		Task: TaskClassify, Messages: userMessage("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, TaskClassify, captured.Task)
	assert.True(t, captured.Success)
	assert.Equal(t, 1, captured.Attempts)
}

func TestOllamaClient_ObserverTimeoutErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := withTimeout(testConfig(srv.URL), 50)
	cfg.MaxRetries = 0

	var captured LLMCallEvent
	obs := &captureObserver{fn: func(e LLMCallEvent) { captured = e }}
	_, err := NewOllamaClient(cfg, obs).Chat(context.Background(), ChatRequest{
		Task: TaskClassify, Messages: userMessage("x"),
	})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.False(t, captured.Success)
	assert.Equal(t, "TIMEOUT", captured.ErrorCode)
}

func TestLogObserver_WarnsOnFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	obs := NewLogObserver(logger.Wrap(zap.New(core)))

	obs.OnCallComplete(LLMCallEvent{Task: TaskClassify, Model: "m", Success: true})
	obs.OnCallComplete(LLMCallEvent{Task: TaskClassify, Model: "m", ErrorCode: "TIMEOUT"})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "TIMEOUT", entries[1].ContextMap()["error_code"])
	assert.Equal(t, "llm", entries[1].ContextMap()["component"])
}

type captureObserver struct {
	fn func(LLMCallEvent)
}

func (o *captureObserver) OnCallComplete(e LLMCallEvent) { o.fn(e) }
