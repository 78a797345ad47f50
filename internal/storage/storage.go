// Package storage persists the links of already published articles.
//
// Backends implement Store; the Ledger wraps one for a run and never lets a
// storage problem abort the run.
package storage

import (
	"context"
	"errors"
)

// ErrCorrupt marks a backing representation that exists but cannot be read.
var ErrCorrupt = errors.New("corrupt state")

// Store loads and saves the ordered list of published links.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, links []string) error
	Close() error
}

// Appender is implemented by stores that can persist a single new link
// without rewriting the whole list.
type Appender interface {
	Append(ctx context.Context, link string) error
}
