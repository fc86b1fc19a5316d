package llm

import "errors"

// Classification treats every one of these as "resolved nothing".
var (
	// ErrUnavailable means the chat endpoint refused the connection.
	ErrUnavailable = errors.New("llm provider unavailable")

	// ErrTimeout means a chat call ran past its task timeout.
	ErrTimeout = errors.New("llm request timed out")

	// ErrInvalidOutput means a reply held no JSON object that decodes into
	// row labels.
	ErrInvalidOutput = errors.New("invalid llm output format")

	// ErrRetryExhausted wraps the last failure once every attempt is spent.
	ErrRetryExhausted = errors.New("llm retry attempts exhausted")
)
