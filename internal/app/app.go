// Package app runs the feed -> translate -> publish pipeline, one article at a time.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/deusflow/feedpress/internal/metrics"
	"github.com/deusflow/feedpress/internal/news"
	"github.com/deusflow/feedpress/internal/publisher"
	"github.com/deusflow/feedpress/internal/translate"
	"github.com/deusflow/feedpress/internal/wordpress"
)

type CandidateSource interface {
	Candidates(ctx context.Context, f news.Filter) []news.Candidate
}

type ContentExtractor interface {
	Extract(ctx context.Context, link string) news.Content
}

type ImageResolver interface {
	Resolve(ctx context.Context, link string) news.Image
}

// TextTranslator translates plain text; markup is converted with
// translate.ToText before it gets here.
type TextTranslator interface {
	TranslateText(ctx context.Context, text string) translate.Result
}

type ArticlePublisher interface {
	Publish(ctx context.Context, a publisher.Article) (wordpress.Post, error)
}

// Ledger is the set of published links; see storage.Ledger.
type Ledger interface {
	Has(link string) bool
	Record(ctx context.Context, link string) error
	Len() int
}

// Status is the result class of one article.
type Status string

const (
	StatusPublished Status = "published"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusPanicked  Status = "panicked"
)

// Outcome describes what happened to one candidate.
type Outcome struct {
	Link     string
	Title    string
	Status   Status
	Reason   string
	PostID   int
	PostLink string
	Duration time.Duration
	Err      error
}

// Summary is the result of one run.
type Summary struct {
	RunID       string
	Candidates  int
	Published   int
	Skipped     int
	Failed      int
	Interrupted bool
	Outcomes    []Outcome
}

func (s Summary) String() string {
	line := fmt.Sprintf("published %d/%d (skipped %d, failed %d)", s.Published, s.Candidates, s.Skipped, s.Failed)
	if s.Interrupted {
		line += " [interrupted]"
	}
	return line
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Status {
	case StatusPublished:
		s.Published++
	case StatusSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

// Deps are the pipeline stages of an App.
type Deps struct {
	Source     CandidateSource
	Extractor  ContentExtractor
	Images     ImageResolver
	Translator TextTranslator
	Publisher  ArticlePublisher
	Ledger     Ledger
	Metrics    *metrics.Collector
}

// Options control candidate selection and pacing.
type Options struct {
	DailyLimit   int
	ScanLimit    int
	MaxAge       time.Duration
	Force        bool
	ArticleDelay time.Duration
}

type App struct {
	deps    Deps
	opts    Options
	log     *slog.Logger
	closers []func() error
}

func New(deps Deps, opts Options, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector(prometheus.NewRegistry())
	}
	return &App{deps: deps, opts: opts, log: log}
}

// Close releases the resources opened by Build.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run processes the selected candidates sequentially. Cancellation of ctx is
// honoured between articles only; an article that has started runs to the end.
func (a *App) Run(ctx context.Context) Summary {
	runID := uuid.NewString()
	log := a.log.With("run_id", runID)
	sum := Summary{RunID: runID}

	if a.opts.Force {
		log.Warn("force mode: dedup bypassed and nothing will be recorded")
	}

	candidates := a.deps.Source.Candidates(ctx, news.Filter{
		Seen:      a.deps.Ledger.Has,
		Force:     a.opts.Force,
		MaxAge:    a.opts.MaxAge,
		ScanLimit: a.opts.ScanLimit,
		Limit:     a.opts.DailyLimit,
	})
	sum.Candidates = len(candidates)
	a.deps.Metrics.RecordCandidates(len(candidates))
	log.Info("run started", "candidates", len(candidates), "known_links", a.deps.Ledger.Len())

	for i, c := range candidates {
		if i > 0 && !a.pause(ctx) {
			sum.Interrupted = true
			break
		}
		if ctx.Err() != nil {
			sum.Interrupted = true
			break
		}

		o := a.processGuarded(context.WithoutCancel(ctx), log.With("link", c.Link), c)
		a.deps.Metrics.RecordOutcome(string(o.Status), o.Duration)
		sum.add(o)
	}

	if sum.Interrupted {
		log.Warn("run interrupted", "processed", len(sum.Outcomes), "candidates", sum.Candidates)
	}

	a.deps.Metrics.SetLastRun(sum.String())
	if sum.Failed > 0 {
		a.deps.Metrics.SetError(lastError(sum.Outcomes))
	}
	log.Info("run finished", "summary", sum.String(), "published", sum.Published, "skipped", sum.Skipped, "failed", sum.Failed)
	return sum
}

// pause waits ArticleDelay and reports false if ctx ended first.
func (a *App) pause(ctx context.Context) bool {
	if a.opts.ArticleDelay <= 0 {
		return true
	}
	t := time.NewTimer(a.opts.ArticleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (a *App) processGuarded(ctx context.Context, log *slog.Logger, c news.Candidate) (o Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("article panicked", "panic", r, "stack", string(debug.Stack()))
			o = Outcome{Link: c.Link, Title: c.Title, Status: StatusPanicked, Err: fmt.Errorf("panic: %v", r)}
		}
		o.Duration = time.Since(start)
	}()
	return a.process(ctx, log, c)
}

func (a *App) process(ctx context.Context, log *slog.Logger, c news.Candidate) Outcome {
	o := Outcome{Link: c.Link, Title: c.Title}
	log.Info("processing article", "title", c.Title, "published_at", c.PublishedAt)

	content := a.deps.Extractor.Extract(ctx, c.Link)
	a.deps.Metrics.RecordContentTier(content.Tier)
	if !content.Found() {
		log.Warn("no article body found, skipping", "summary", truncate(c.Summary, 120))
		o.Status, o.Reason = StatusSkipped, "no content"
		return o
	}

	text := translate.ToText(content.Markup)
	if text == "" {
		log.Warn("article body has no text, skipping", "tier", content.Tier)
		o.Status, o.Reason = StatusSkipped, "empty text"
		return o
	}

	title := a.deps.Translator.TranslateText(ctx, c.Title)
	body := a.deps.Translator.TranslateText(ctx, text)
	a.deps.Metrics.RecordTranslation(title.Chunks+body.Chunks, title.Fallbacks+body.Fallbacks)
	if title.Degraded() || body.Degraded() {
		log.Warn("translation degraded, publishing with source text for failed chunks",
			"title_fallbacks", title.Fallbacks, "body_fallbacks", body.Fallbacks, "body_chunks", body.Chunks)
	}

	image := a.deps.Images.Resolve(ctx, c.Link)
	a.deps.Metrics.RecordImageTier(image.Tier)

	postTitle := title.Translated
	if strings.TrimSpace(postTitle) == "" {
		postTitle = c.Title
	}

	post, err := a.deps.Publisher.Publish(ctx, publisher.Article{
		Title:       postTitle,
		Body:        body.Translated,
		SourceTitle: c.Title,
		Link:        c.Link,
		PublishedAt: c.PublishedAt,
		ImageURL:    image.URL,
	})
	if err != nil {
		log.Error("publish failed", "error", err)
		o.Status, o.Err = StatusFailed, err
		return o
	}
	if image.Found() && post.FeaturedMedia == 0 {
		a.deps.Metrics.RecordMediaFailure()
	}

	o.Status, o.PostID, o.PostLink = StatusPublished, post.ID, post.Link

	if a.opts.Force {
		return o
	}
	if err := a.deps.Ledger.Record(ctx, c.Link); err != nil {
		// the post exists; the link stays in memory so this run will not repeat it
		log.Error("failed to persist published link", "error", err)
	}
	return o
}

func lastError(outcomes []Outcome) string {
	for i := len(outcomes) - 1; i >= 0; i-- {
		if outcomes[i].Err != nil {
			return outcomes[i].Link + ": " + outcomes[i].Err.Error()
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
