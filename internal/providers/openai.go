package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/google/uuid"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o"
)

// OpenAIConfig holds configuration for the OpenAI document client.
type OpenAIConfig struct {
	APIKey       string
	DefaultModel string
	MaxTokens    int
	Timeout      time.Duration
	RPM          int
	MaxRetries   int
	BaseURL      string       // Optional (tests)
	HTTPClient   *http.Client // Optional (tests)
}

// OpenAIClient implements DocumentClient using the official OpenAI SDK.
// PDFs are attached as file content parts on the user message.
type OpenAIClient struct {
	apiKey       string
	defaultModel string
	maxTokens    int
	rpm          int
	client       openai.Client
}

// NewOpenAIClient creates a new OpenAI document client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openAIDefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.RPM == 0 {
		cfg.RPM = 60
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		maxTokens:    cfg.MaxTokens,
		rpm:          cfg.RPM,
		client:       openai.NewClient(opts...),
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// RequestsPerMinute returns the RPM limit for rate limiting.
func (c *OpenAIClient) RequestsPerMinute() int {
	return c.rpm
}

// ExtractDocument sends a PDF with prompts and returns the model output.
func (c *OpenAIClient) ExtractDocument(ctx context.Context, req *DocumentRequest) (*DocumentResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := c.defaultModel
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := c.maxTokens
	if req.MaxTokens != 0 {
		maxTokens = req.MaxTokens
	}

	fileData := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(req.PDF)
	filename := req.Filename
	if filename == "" {
		filename = "document.pdf"
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
			FileData: openai.String(fileData),
			Filename: openai.String(filename),
		}),
		openai.TextContentPart(req.Prompt),
	}))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}
	text := resp.Choices[0].Message.Content

	result := &DocumentResult{
		Content:       text,
		InputTokens:   int(resp.Usage.PromptTokens),
		OutputTokens:  int(resp.Usage.CompletionTokens),
		ExecutionTime: time.Since(start),
		Provider:      OpenAIName,
		ModelUsed:     resp.Model,
		RequestID:     requestID,
		Attempts:      1,
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

// classifyOpenAIError maps SDK errors onto the shared typed errors.
func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Error())
		case 529:
			return fmt.Errorf("%w: %s", ErrOverloaded, apiErr.Error())
		}
	}
	return err
}
