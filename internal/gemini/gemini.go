package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deusflow/feedpress/internal/ratelimit"
	"github.com/deusflow/feedpress/internal/translate"
)

const defaultModel = "gemini-1.5-flash"

// Client is a translation engine backed by a Gemini model.
type Client struct {
	client  *genai.Client
	model   string
	budget  *ratelimit.Budget
	timeout time.Duration
}

func NewClient(ctx context.Context, apiKey, model string, budget *ratelimit.Budget, timeout time.Duration) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &Client{client: client, model: model, budget: budget, timeout: timeout}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) Translate(ctx context.Context, text, from, to string) (string, error) {
	if err := c.budget.Use(c.Name()); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.2)

	resp, err := model.GenerateContent(ctx, genai.Text(translate.Prompt(text, from, to)))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	out, err := responseText(resp)
	if err != nil {
		return "", err
	}
	return translate.SanitizeAIText(out), nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no response from Gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errors.New("gemini returned no text parts")
	}
	return out, nil
}
