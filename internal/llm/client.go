package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest holds the parameters for a chat completion call.
type ChatRequest struct {
	Task        TaskType
	Messages    []Message
	Temperature *float64 // nil uses task default
	MaxTokens   *int     // nil uses task default
	// JSONMode asks the provider to constrain output to a JSON document.
	JSONMode bool
}

// ChatResponse holds the assistant reply.
type ChatResponse struct {
	Content   string
	Model     string
	LatencyMs int64
}

// Client is the chat-completion provider used by the AI classifier.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Available checks whether the provider is reachable.
	Available(ctx context.Context) bool
}

// ollamaClient implements Client using the Ollama HTTP API.
type ollamaClient struct {
	cfg      LLMConfig
	http     *http.Client
	observer Observer
}

// NewOllamaClient creates a Client that talks to an Ollama instance.
func NewOllamaClient(cfg LLMConfig, observer Observer) Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &ollamaClient{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		observer: observer,
	}
}

// chatRequest is the JSON body sent to POST /api/chat.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []Message     `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// chatResponse is the non-streaming body returned by POST /api/chat.
type chatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

func (c *ollamaClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	taskCfg := c.cfg.Tasks[req.Task]
	temp := taskCfg.Temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	maxTok := taskCfg.MaxTokens
	if req.MaxTokens != nil {
		maxTok = *req.MaxTokens
	}

	body := chatRequest{
		Model:    c.cfg.Model,
		Messages: req.Messages,
		Options: ollamaOptions{
			Temperature: temp,
			NumPredict:  maxTok,
		},
	}
	if req.JSONMode {
		body.Format = "json"
	}

	timeout := time.Duration(c.cfg.TaskTimeout(req.Task)) * time.Millisecond
	attempts := 1 + c.cfg.MaxRetries

	var lastErr error
	made := 0
	for made < attempts {
		if ctx.Err() != nil {
			break
		}
		made++
		// Each attempt gets its own deadline so a slow first try can be retried.
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := c.doRequest(attemptCtx, body)
		timedOut := errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
		cancel()
		if err == nil {
			latency := time.Since(start).Milliseconds()
			c.observer.OnCallComplete(LLMCallEvent{
				Task:      req.Task,
				Model:     c.cfg.Model,
				Attempts:  made,
				LatencyMs: latency,
				Success:   true,
			})
			return &ChatResponse{
				Content:   resp.Message.Content,
				Model:     resp.Model,
				LatencyMs: latency,
			}, nil
		}
		if timedOut {
			err = fmt.Errorf("%w: %v", ErrTimeout, err)
		} else if isConnectionError(err) {
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}
	c.observer.OnCallComplete(LLMCallEvent{
		Task:      req.Task,
		Model:     c.cfg.Model,
		Attempts:  made,
		LatencyMs: time.Since(start).Milliseconds(),
		ErrorCode: errorCode(lastErr),
	})

	switch {
	case errors.Is(lastErr, ErrTimeout):
		return nil, ErrTimeout
	case errors.Is(lastErr, ErrUnavailable):
		return nil, ErrUnavailable
	}
	return nil, fmt.Errorf("%w: %v", ErrRetryExhausted, lastErr)
}

func (c *ollamaClient) doRequest(ctx context.Context, body chatRequest) (*chatResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.cfg.Endpoint + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &resp, nil
}

func (c *ollamaClient) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func isConnectionError(err error) bool {
	var netErr *net.OpError
	return errors.As(err, &netErr)
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrInvalidOutput):
		return "INVALID_OUTPUT"
	default:
		return "UNKNOWN"
	}
}
