package translate

import (
	"context"
	"log/slog"
	"time"

	"github.com/deusflow/feedpress/internal/cache"
)

// MemoEngine remembers successful translations so repeated text (shared
// boilerplate, identical titles across feeds) costs one engine call.
type MemoEngine struct {
	engine Engine
	memo   *cache.Cache[string]
	log    *slog.Logger
}

func NewMemoEngine(engine Engine, ttl time.Duration, log *slog.Logger) *MemoEngine {
	if log == nil {
		log = slog.Default()
	}
	return &MemoEngine{engine: engine, memo: cache.New[string](ttl), log: log}
}

func (m *MemoEngine) Name() string { return m.engine.Name() }

func (m *MemoEngine) Translate(ctx context.Context, text, from, to string) (string, error) {
	key := cache.Key(from, to, text)
	if out, ok := m.memo.Get(key); ok {
		m.log.Debug("translation served from memo", "runes", len([]rune(text)))
		return out, nil
	}

	out, err := m.engine.Translate(ctx, text, from, to)
	if err != nil {
		return "", err
	}
	m.memo.Set(key, out)
	return out, nil
}
