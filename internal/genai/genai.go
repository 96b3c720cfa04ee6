// Package genai wraps the OpenAI chat-completion API for the three
// natural-language capabilities the screening core consumes: intent
// classification, free-text responses, and structured criterion judgments.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ClientInterface defines the GenAI operations used by the screening agents
// and the eligibility evaluator. Tests substitute deterministic fakes.
type ClientInterface interface {
	// GenerateIntent runs a low-temperature, short-output completion intended
	// to return a single classification label.
	GenerateIntent(ctx context.Context, prompt string) (string, error)

	// GeneratePromptWithContext generates conversational prose from a system
	// prompt and a user prompt.
	GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// GenerateStructured runs a low-temperature completion expected to return
	// a JSON object; markdown code fences are stripped from the output.
	GenerateStructured(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey      string
	IntentModel string
	ProseModel  string
	JudgeModel  string
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key, overriding the OPENAI_API_KEY env var.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithIntentModel overrides the model used for intent classification.
func WithIntentModel(model string) Option {
	return func(o *Opts) { o.IntentModel = model }
}

// WithProseModel overrides the model used for conversational prose.
func WithProseModel(model string) Option {
	return func(o *Opts) { o.ProseModel = model }
}

// WithJudgeModel overrides the model used for criterion judgments.
func WithJudgeModel(model string) Option {
	return func(o *Opts) { o.JudgeModel = model }
}

// Client implements ClientInterface over the OpenAI API.
type Client struct {
	client      openai.Client
	intentModel string
	proseModel  string
	judgeModel  string
}

// NewClient initializes a GenAI client. The API key falls back to the
// OPENAI_API_KEY environment variable when not provided via options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if cfg.IntentModel == "" {
		cfg.IntentModel = openai.ChatModelGPT4o
	}
	if cfg.ProseModel == "" {
		cfg.ProseModel = openai.ChatModelGPT4oMini
	}
	if cfg.JudgeModel == "" {
		cfg.JudgeModel = openai.ChatModelGPT4oMini
	}
	slog.Debug("genai.NewClient: client configured",
		"intentModel", cfg.IntentModel, "proseModel", cfg.ProseModel, "judgeModel", cfg.JudgeModel)

	return &Client{
		client:      openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		intentModel: cfg.IntentModel,
		proseModel:  cfg.ProseModel,
		judgeModel:  cfg.JudgeModel,
	}, nil
}

// GenerateIntent classifies with temperature 0 and a tight token budget so
// the model can only return a label.
func (c *Client) GenerateIntent(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.intentModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature:         openai.Float(0),
		MaxCompletionTokens: openai.Int(10),
	})
	if err != nil {
		return "", fmt.Errorf("intent completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("intent completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// GeneratePromptWithContext generates conversational prose.
func (c *Client) GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               c.proseModel,
		Messages:            messages,
		Temperature:         openai.Float(0.7),
		MaxCompletionTokens: openai.Int(300),
	})
	if err != nil {
		return "", fmt.Errorf("prose completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("prose completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// GenerateStructured runs a judgment completion and strips any markdown code
// fences so the result can be fed straight to a JSON decoder.
func (c *Client) GenerateStructured(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.judgeModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature:         openai.Float(0.1),
		MaxCompletionTokens: openai.Int(500),
	})
	if err != nil {
		return "", fmt.Errorf("structured completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("structured completion returned no choices")
	}
	return StripCodeFences(resp.Choices[0].Message.Content), nil
}

// StripCodeFences removes surrounding markdown code fences that chat models
// often wrap JSON output in.
func StripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
