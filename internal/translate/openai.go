package translate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/deusflow/feedpress/internal/ratelimit"
)

// OpenAIEngine translates with a chat completion model.
type OpenAIEngine struct {
	client  *openai.Client
	model   string
	budget  *ratelimit.Budget
	timeout time.Duration
}

// NewOpenAIEngine builds an engine from cfg, e.g. openai.DefaultConfig(apiKey).
// budget may be nil for unlimited calls.
func NewOpenAIEngine(cfg openai.ClientConfig, model string, budget *ratelimit.Budget, timeout time.Duration) *OpenAIEngine {
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &OpenAIEngine{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		budget:  budget,
		timeout: timeout,
	}
}

func (o *OpenAIEngine) Name() string { return "openai" }

func (o *OpenAIEngine) Translate(ctx context.Context, text, from, to string) (string, error) {
	if err := o.budget.Use(o.Name()); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: Prompt(text, from, to),
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	return SanitizeAIText(strings.TrimSpace(resp.Choices[0].Message.Content)), nil
}
