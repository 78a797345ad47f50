package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Ledger is the in-memory set of published links for one run, backed by a Store.
type Ledger struct {
	store Store
	log   *slog.Logger

	mu    sync.Mutex
	links []string
	index map[string]struct{}
}

// OpenLedger loads the store. A load failure is logged and the ledger starts
// empty; it never fails the run.
func OpenLedger(ctx context.Context, store Store, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	l := &Ledger{store: store, log: log, index: make(map[string]struct{})}

	links, err := store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrCorrupt) {
			log.Warn("state is corrupt, starting with empty ledger", "error", err)
		} else {
			log.Warn("state could not be loaded, starting with empty ledger", "error", err)
		}
		return l
	}

	for _, link := range links {
		if _, dup := l.index[link]; dup || link == "" {
			continue
		}
		l.index[link] = struct{}{}
		l.links = append(l.links, link)
	}
	log.Info("ledger loaded", "links", len(l.links))
	return l
}

// Has reports whether link was already published.
func (l *Ledger) Has(link string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.index[link]
	return ok
}

// Record adds link and persists immediately. The link stays recorded in
// memory even when persisting fails, so it is not republished in this run.
func (l *Ledger) Record(ctx context.Context, link string) error {
	l.mu.Lock()
	if _, ok := l.index[link]; ok {
		l.mu.Unlock()
		return nil
	}
	l.index[link] = struct{}{}
	l.links = append(l.links, link)
	snapshot := append([]string(nil), l.links...)
	l.mu.Unlock()

	if a, ok := l.store.(Appender); ok {
		return a.Append(ctx, link)
	}
	return l.store.Save(ctx, snapshot)
}

// Len returns the number of recorded links.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.links)
}

// Links returns a copy of the recorded links in insertion order.
func (l *Ledger) Links() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.links...)
}

func (l *Ledger) Close() error {
	return l.store.Close()
}
