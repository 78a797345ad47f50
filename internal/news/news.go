// Package news holds the records that flow through one run of the pipeline
// and the candidate selection policy applied to a fetched feed.
package news

import (
	"sort"
	"time"
)

// Candidate is a feed entry considered for republication.
// Link is the identity key; the other fields are informational.
type Candidate struct {
	Title       string
	Link        string
	Summary     string // feed description, kept for logging only
	PublishedAt time.Time
}

// Content is the extracted article body. An empty Markup means no body
// could be located and the article must be skipped.
type Content struct {
	Link   string
	Markup string
	Tier   string // name of the selector tier that matched
}

// Found reports whether a body was extracted.
func (c Content) Found() bool {
	return c.Markup != ""
}

// Image is the representative image of an article. An empty URL is valid
// and means the post goes out without featured media.
type Image struct {
	URL  string
	Tier string
}

// Found reports whether an image was resolved.
func (i Image) Found() bool {
	return i.URL != ""
}

// Filter controls which fetched candidates are processed in a run.
type Filter struct {
	// Seen reports whether a link was already published. Ignored when Force is set.
	Seen func(link string) bool
	// Force bypasses the dedup check entirely.
	Force bool
	// MaxAge keeps only entries newer than Now-MaxAge. Zero disables the window.
	MaxAge time.Duration
	// ScanLimit restricts selection to the first N feed entries. Zero scans all.
	ScanLimit int
	// Limit is the per-run processing cap. Zero means no cap.
	Limit int
	// Now is the reference time for MaxAge. Zero means time.Now().
	Now time.Time
}

// Select applies the scan limit, dedup and recency window, orders the
// survivors oldest first and truncates to the per-run cap. Oldest-first
// ordering lets a backlog drain chronologically across runs.
func Select(items []Candidate, f Filter) []Candidate {
	if f.ScanLimit > 0 && len(items) > f.ScanLimit {
		items = items[:f.ScanLimit]
	}

	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}

	out := make([]Candidate, 0, len(items))
	seenInFeed := make(map[string]struct{}, len(items))
	for _, c := range items {
		if c.Link == "" {
			continue
		}
		if _, dup := seenInFeed[c.Link]; dup {
			continue
		}
		seenInFeed[c.Link] = struct{}{}

		if !f.Force && f.Seen != nil && f.Seen(c.Link) {
			continue
		}
		if f.MaxAge > 0 && c.PublishedAt.Before(now.Add(-f.MaxAge)) {
			continue
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.Before(out[j].PublishedAt)
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}
