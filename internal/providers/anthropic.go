package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
)

const (
	AnthropicName    = "anthropic"
	AnthropicBaseURL = "https://api.anthropic.com/v1"

	anthropicVersion      = "2023-06-01"
	anthropicDefaultModel = "claude-sonnet-4-20250514"
)

// AnthropicConfig holds configuration for the Anthropic client.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxTokens    int
	Timeout      time.Duration
	// Rate limiting
	RPM        int           // Requests per minute (default: 50)
	MaxRetries int           // Max retry attempts for transport errors (default: 3)
	RetryDelay time.Duration // Base delay between retries (default: 2s)
}

// AnthropicClient implements DocumentClient using the Anthropic Messages API.
// PDFs are sent as base64 document blocks so the model sees both the text
// layer and the rendered pages.
type AnthropicClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	maxTokens    int
	client       *http.Client
	// Rate limiting
	rpm        int
	maxRetries int
	retryDelay time.Duration
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(cfg AnthropicConfig) *AnthropicClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = AnthropicBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = anthropicDefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.RPM == 0 {
		cfg.RPM = 50
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	return &AnthropicClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		maxTokens:    cfg.MaxTokens,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rpm:        cfg.RPM,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// Name returns the client identifier.
func (c *AnthropicClient) Name() string {
	return AnthropicName
}

// RequestsPerMinute returns the RPM limit for rate limiting.
func (c *AnthropicClient) RequestsPerMinute() int {
	return c.rpm
}

// ExtractDocument sends a PDF with prompts and returns the model output.
func (c *AnthropicClient) ExtractDocument(ctx context.Context, req *DocumentRequest) (*DocumentResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	content := []anthropicContent{
		{
			Type: "document",
			Source: &anthropicSource{
				Type:      "base64",
				MediaType: "application/pdf",
				Data:      base64.StdEncoding.EncodeToString(req.PDF),
			},
		},
		{Type: "text", Text: req.Prompt},
	}

	aReq := anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages: []anthropicMessage{
			{Role: "user", Content: content},
		},
	}

	aResp, attempts, err := c.doRequest(ctx, &aReq)
	if err != nil {
		return nil, err
	}

	text := ""
	for _, block := range aResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	result := &DocumentResult{
		Content:       text,
		InputTokens:   aResp.Usage.InputTokens,
		OutputTokens:  aResp.Usage.OutputTokens,
		ExecutionTime: time.Since(start),
		Provider:      AnthropicName,
		ModelUsed:     aResp.Model,
		RequestID:     requestID,
		Attempts:      attempts,
	}

	parsed, err := parseStructuredJSON(text)
	if err != nil {
		return result, fmt.Errorf("request %s: %w", requestID, err)
	}
	if err := validateStructuredJSON(req.Schema, parsed); err != nil {
		return result, fmt.Errorf("request %s: %w", requestID, err)
	}
	result.ParsedJSON = parsed

	return result, nil
}

// doRequest posts to /messages, retrying transport failures and server
// errors. Rate limit (429) and overload (529) responses are not retried
// here; they surface as typed errors for the caller to back off on.
func (c *AnthropicClient) doRequest(ctx context.Context, body *anthropicRequest) (*anthropicResponse, int, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	attempts := 0
	var aResp anthropicResponse

	err = retry.Do(
		func() error {
			attempts++

			req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewReader(bodyBytes))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("x-api-key", c.apiKey)
			req.Header.Set("anthropic-version", anthropicVersion)

			resp, err := c.client.Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			respBody, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}

			switch {
			case resp.StatusCode == http.StatusOK:
				if err := json.Unmarshal(respBody, &aResp); err != nil {
					return retry.Unrecoverable(fmt.Errorf("failed to unmarshal response: %w", err))
				}
				return nil
			case resp.StatusCode == http.StatusTooManyRequests:
				return retry.Unrecoverable(fmt.Errorf("%w: %s", ErrRateLimited, apiErrorMessage(respBody)))
			case resp.StatusCode == 529:
				return retry.Unrecoverable(fmt.Errorf("%w: %s", ErrOverloaded, apiErrorMessage(respBody)))
			case resp.StatusCode >= 500:
				return fmt.Errorf("anthropic error (status %d): %s", resp.StatusCode, apiErrorMessage(respBody))
			default:
				return retry.Unrecoverable(fmt.Errorf("anthropic error (status %d): %s", resp.StatusCode, apiErrorMessage(respBody)))
			}
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, attempts, err
	}

	return &aResp, attempts, nil
}

// apiErrorMessage extracts the error message from an API error body.
func apiErrorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return string(body)
}

// IsRateLimited reports whether err is a rate limit response.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsOverloaded reports whether err is an overload response.
func IsOverloaded(err error) bool {
	return errors.Is(err, ErrOverloaded)
}

// Anthropic API types

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
