package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"github.com/deusflow/feedpress/internal/ratelimit"
)

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("새로운 "), genai.Text("드론 발표\n")}},
		}},
	}

	got, err := responseText(resp)
	if err != nil {
		t.Fatalf("responseText error: %v", err)
	}
	if got != "새로운 드론 발표" {
		t.Errorf("got %q", got)
	}
}

func TestResponseText_Empty(t *testing.T) {
	cases := []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{}}},
		{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}}}}},
	}
	for i, resp := range cases {
		if _, err := responseText(resp); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestTranslate_BudgetExhaustedBeforeCall(t *testing.T) {
	budget := ratelimit.NewBudget(1)
	if err := budget.Use("gemini"); err != nil {
		t.Fatal(err)
	}

	c := &Client{budget: budget}
	if _, err := c.Translate(context.Background(), "x", "ja", "ko"); !errors.Is(err, ratelimit.ErrBudgetExhausted) {
		t.Fatalf("err = %v, want budget exhausted", err)
	}
}
