package translate

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingEngine struct {
	calls int
	err   error
}

func (c *countingEngine) Name() string { return "counting" }

func (c *countingEngine) Translate(_ context.Context, text, _, _ string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "T:" + text, nil
}

func TestMemoEngine_ReusesTranslation(t *testing.T) {
	inner := &countingEngine{}
	m := NewMemoEngine(inner, time.Hour, quietLogger())

	for i := 0; i < 3; i++ {
		out, err := m.Translate(context.Background(), "同じ文", "ja", "ko")
		if err != nil || out != "T:同じ文" {
			t.Fatalf("Translate = %q, %v", out, err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("engine calls = %d, want 1", inner.calls)
	}

	if _, err := m.Translate(context.Background(), "同じ文", "ja", "en"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("language pair not part of the key (calls = %d)", inner.calls)
	}
}

func TestMemoEngine_DoesNotCacheErrors(t *testing.T) {
	inner := &countingEngine{err: errors.New("quota")}
	m := NewMemoEngine(inner, time.Hour, quietLogger())

	m.Translate(context.Background(), "x", "ja", "ko")
	m.Translate(context.Background(), "x", "ja", "ko")
	if inner.calls != 2 {
		t.Errorf("engine calls = %d, want 2", inner.calls)
	}
	if m.Name() != "counting" {
		t.Errorf("Name = %q", m.Name())
	}
}
