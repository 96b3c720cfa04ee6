package screening

import (
	"context"

	"github.com/medscreen/medscreen/internal/genai"
)

// llmClassifier adapts the GenAI client to the IntentClassifier capability.
type llmClassifier struct {
	client genai.ClientInterface
}

// NewLLMClassifier returns an IntentClassifier backed by the GenAI client.
func NewLLMClassifier(client genai.ClientInterface) IntentClassifier {
	return &llmClassifier{client: client}
}

func (c *llmClassifier) Classify(ctx context.Context, prompt string) (string, error) {
	return c.client.GenerateIntent(ctx, prompt)
}

// llmResponder adapts the GenAI client to the Responder capability.
type llmResponder struct {
	client genai.ClientInterface
}

// NewLLMResponder returns a Responder backed by the GenAI client.
func NewLLMResponder(client genai.ClientInterface) Responder {
	return &llmResponder{client: client}
}

func (r *llmResponder) Respond(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return r.client.GeneratePromptWithContext(ctx, systemPrompt, userPrompt)
}
