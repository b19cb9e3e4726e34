package providers

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Provider API errors that callers classify for backoff decisions.
var (
	// ErrRateLimited indicates the provider returned HTTP 429.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrOverloaded indicates the provider is shedding load (HTTP 529).
	ErrOverloaded = errors.New("provider overloaded")
)

// DocumentClient extracts structured data from PDF documents.
type DocumentClient interface {
	// ExtractDocument sends a PDF plus prompts and returns the model output.
	ExtractDocument(ctx context.Context, req *DocumentRequest) (*DocumentResult, error)

	// Name returns the client identifier (e.g., "anthropic").
	Name() string

	// RequestsPerMinute reports the client's rate limit. The orchestrator
	// paces calls against it.
	RequestsPerMinute() int
}

// DocumentRequest is a request to extract data from a single PDF.
type DocumentRequest struct {
	// PDF is the raw document bytes.
	PDF []byte `json:"-"`

	// Filename identifies the document in logs and prompts.
	Filename string `json:"filename"`

	// System is the system prompt.
	System string `json:"system,omitempty"`

	// Prompt is the user instruction accompanying the document.
	Prompt string `json:"prompt"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	// MaxTokens caps the response size (uses client default if 0).
	MaxTokens int `json:"max_tokens,omitempty"`

	// Schema, when set, is a JSON Schema the parsed output must satisfy.
	Schema json.RawMessage `json:"-"`

	// Request tracking
	RequestID string `json:"-"`
}

// DocumentResult is the complete response from an extraction call.
type DocumentResult struct {
	// Response content
	Content    string          `json:"content"`
	ParsedJSON json.RawMessage `json:"parsed_json,omitempty"`

	// Token counts
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// Timing
	ExecutionTime time.Duration `json:"execution_time"`

	// Provider info
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	// Request tracking
	RequestID string `json:"request_id"`
	Attempts  int    `json:"attempts"`
}
