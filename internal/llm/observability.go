package llm

import "github.com/alexanderramin/smeta/internal/logger"

// LLMCallEvent records metadata about a single LLM invocation.
type LLMCallEvent struct {
	Task      TaskType
	Model     string
	Attempts  int
	LatencyMs int64
	Success   bool
	ErrorCode string
}

// Observer receives events about LLM calls for logging and metrics.
type Observer interface {
	OnCallComplete(event LLMCallEvent)
}

// LogObserver writes LLM call events through the structured logger.
type LogObserver struct {
	log *logger.Logger
}

func NewLogObserver(log *logger.Logger) *LogObserver {
	return &LogObserver{log: log.With("component", "llm")}
}

func (o *LogObserver) OnCallComplete(event LLMCallEvent) {
	kv := []interface{}{
		"task", event.Task,
		"model", event.Model,
		"attempts", event.Attempts,
		"latency_ms", event.LatencyMs,
	}
	if event.Success {
		o.log.Debug("llm call", kv...)
		return
	}
	o.log.Warn("llm call failed", append(kv, "error_code", event.ErrorCode)...)
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(LLMCallEvent) {}
