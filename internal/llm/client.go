package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

const (
	StructuredModeJSONObject = "json_object"
	StructuredModeJSONSchema = "json_schema"
)

// ClientConfig configures an OpenAI-compatible chat completions client.
type ClientConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	MaxTokens      int
	StructuredMode string
	MaxRetries     int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type chatResponse struct {
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Client calls /chat/completions on an OpenAI-compatible endpoint (Groq by default).
type Client struct {
	api       openai.Client
	model     string
	maxTokens int
	mode      string
	logger    *zap.Logger
}

// NewClient builds a Client. httpClient carries the transport (circuit breaker);
// nil uses the SDK default.
func NewClient(cfg ClientConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	mode := cfg.StructuredMode
	if mode == "" {
		mode = StructuredModeJSONObject
	}
	return &Client{
		api:       openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		mode:      mode,
		logger:    logger,
	}
}

// Complete implements Completer.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	body := c.buildRequest(req)

	start := time.Now()
	var out chatResponse
	if err := c.api.Post(ctx, "chat/completions", body, &out); err != nil {
		c.logger.Warn("LLM completion failed",
			zap.String("model", c.model),
			zap.Bool("structured", req.Schema != nil),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return "", fmt.Errorf("llm completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrNoChoices
	}
	content := strings.TrimSpace(out.Choices[0].Message.Content)
	c.logger.Debug("LLM completion succeeded",
		zap.String("model", c.model),
		zap.Bool("structured", req.Schema != nil),
		zap.String("finish_reason", out.Choices[0].FinishReason),
		zap.Int("prompt_tokens", out.Usage.PromptTokens),
		zap.Int("completion_tokens", out.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

func (c *Client) buildRequest(req Request) chatRequest {
	system := req.System
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	body := chatRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	}
	if req.Schema != nil {
		switch c.mode {
		case StructuredModeJSONSchema:
			body.ResponseFormat = &responseFormat{
				Type: StructuredModeJSONSchema,
				JSONSchema: &jsonSchemaFormat{
					Name:   req.Schema.Name,
					Schema: req.Schema.Definition,
					Strict: true,
				},
			}
		default:
			// json_object mode needs the shape spelled out in the prompt
			body.ResponseFormat = &responseFormat{Type: StructuredModeJSONObject}
			if def, err := json.Marshal(req.Schema.Definition); err == nil {
				system += "\n\nRespond with a single JSON object matching this JSON Schema:\n" + string(def)
			}
		}
	}
	body.Messages = []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: req.User},
	}
	return body
}
