package rss

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/feedpress/internal/news"
)

const userAgent = "Mozilla/5.0 (compatible; feedpress/1.0; +https://github.com/deusflow/feedpress)"

// FeedsConfig is YAML config structure
// feeds:
//   - https://...
type FeedsConfig struct {
	Feeds []string `yaml:"feeds"`
}

// LoadFeeds reads RSS feeds list from YAML file
func LoadFeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FeedsConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}

	feeds := make([]string, 0, len(cfg.Feeds))
	for _, u := range cfg.Feeds {
		if u = strings.TrimSpace(u); u != "" {
			feeds = append(feeds, u)
		}
	}
	return feeds, nil
}

// Reader fetches the configured feeds and turns their entries into candidates.
type Reader struct {
	urls   []string
	parser *gofeed.Parser
	log    *slog.Logger
	now    func() time.Time
}

// NewReader builds a Reader. A nil client falls back to one with a 15s timeout.
func NewReader(urls []string, client *http.Client, log *slog.Logger) *Reader {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent

	return &Reader{
		urls:   urls,
		parser: parser,
		log:    log,
		now:    time.Now,
	}
}

// Fetch downloads and parses all feeds. A feed that cannot be fetched or
// parsed contributes zero candidates; Fetch itself never fails.
func (r *Reader) Fetch(ctx context.Context) []news.Candidate {
	var all []news.Candidate
	ok := 0

	for _, url := range r.urls {
		feed, err := r.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			r.log.Warn("feed fetch failed", "feed", url, "error", err)
			continue
		}
		ok++
		items := convertItems(feed.Items, r.now())
		r.log.Info("feed loaded", "feed", url, "entries", len(feed.Items), "candidates", len(items))
		all = append(all, items...)
	}

	r.log.Debug("feeds processed", "ok", ok, "total", len(r.urls))
	return all
}

// Candidates fetches all feeds and applies the selection filter.
func (r *Reader) Candidates(ctx context.Context, f news.Filter) []news.Candidate {
	fetched := r.Fetch(ctx)
	if f.Now.IsZero() {
		f.Now = r.now()
	}
	selected := news.Select(fetched, f)
	r.log.Info("candidates selected", "fetched", len(fetched), "selected", len(selected), "limit", f.Limit, "force", f.Force)
	return selected
}

// convertItems maps gofeed items to candidates. Entries without a usable
// link are dropped; entries without a usable date get now.
func convertItems(items []*gofeed.Item, now time.Time) []news.Candidate {
	out := make([]news.Candidate, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		link := strings.TrimSpace(item.Link)
		if link == "" && isHTTPURL(item.GUID) {
			link = strings.TrimSpace(item.GUID)
		}
		if link == "" {
			continue
		}

		out = append(out, news.Candidate{
			Title:       strings.TrimSpace(item.Title),
			Link:        link,
			Summary:     item.Description,
			PublishedAt: entryTime(item, now),
		})
	}
	return out
}

func entryTime(item *gofeed.Item, now time.Time) time.Time {
	switch {
	case item.PublishedParsed != nil && !item.PublishedParsed.IsZero():
		return *item.PublishedParsed
	case item.UpdatedParsed != nil && !item.UpdatedParsed.IsZero():
		return *item.UpdatedParsed
	default:
		return now
	}
}

func isHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
