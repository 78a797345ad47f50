package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deusflow/feedpress/internal/news"
	"github.com/deusflow/feedpress/internal/publisher"
	"github.com/deusflow/feedpress/internal/storage"
	"github.com/deusflow/feedpress/internal/translate"
	"github.com/deusflow/feedpress/internal/wordpress"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	items []news.Candidate
}

func (f *fakeSource) Candidates(_ context.Context, filter news.Filter) []news.Candidate {
	return news.Select(f.items, filter)
}

type fakeExtractor struct {
	bodies map[string]string
	calls  []string
	panics bool
}

func (f *fakeExtractor) Extract(_ context.Context, link string) news.Content {
	f.calls = append(f.calls, link)
	if f.panics {
		panic("selector blew up")
	}
	body, ok := f.bodies[link]
	if !ok {
		return news.Content{Link: link}
	}
	return news.Content{Link: link, Markup: body, Tier: "div.entry-content"}
}

type fakeImages struct {
	url string
}

func (f *fakeImages) Resolve(context.Context, string) news.Image {
	if f.url == "" {
		return news.Image{}
	}
	return news.Image{URL: f.url, Tier: "og:image"}
}

type fakeTranslator struct {
	calls int
}

func (f *fakeTranslator) TranslateText(_ context.Context, text string) translate.Result {
	f.calls++
	return translate.Result{Original: text, Translated: "KO:" + text, Chunks: 1}
}

type fakePublisher struct {
	articles []publisher.Article
	err      error
	media    int
}

func (f *fakePublisher) Publish(_ context.Context, a publisher.Article) (wordpress.Post, error) {
	if f.err != nil {
		return wordpress.Post{}, f.err
	}
	f.articles = append(f.articles, a)
	return wordpress.Post{ID: len(f.articles), Link: "https://grv.co.kr/wp/?p=1", FeaturedMedia: f.media}, nil
}

type harness struct {
	source     *fakeSource
	extractor  *fakeExtractor
	translator *fakeTranslator
	images     *fakeImages
	publisher  *fakePublisher
	ledger     *storage.Ledger
	statePath  string
}

func newHarness(t *testing.T, stored []string, items ...news.Candidate) *harness {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "posted_articles.json")
	if len(stored) > 0 {
		if err := storage.NewFileStore(path).Save(ctx, stored); err != nil {
			t.Fatalf("seed state: %v", err)
		}
	}

	h := &harness{
		source:     &fakeSource{items: items},
		extractor:  &fakeExtractor{bodies: map[string]string{}},
		translator: &fakeTranslator{},
		images:     &fakeImages{},
		publisher:  &fakePublisher{},
		statePath:  path,
	}
	h.ledger = storage.OpenLedger(ctx, storage.NewFileStore(path), quietLogger())
	return h
}

func (h *harness) app(opts Options) *App {
	return New(Deps{
		Source:     h.source,
		Extractor:  h.extractor,
		Images:     h.images,
		Translator: h.translator,
		Publisher:  h.publisher,
		Ledger:     h.ledger,
	}, opts, quietLogger())
}

func (h *harness) storedLinks(t *testing.T) []string {
	t.Helper()
	links, err := storage.NewFileStore(h.statePath).Load(context.Background())
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	return links
}

var droneArticle = news.Candidate{
	Title:       "新型ドローン発表",
	Link:        "https://drone.jp/x",
	PublishedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
}

func TestRun_PublishesNewArticleOnce(t *testing.T) {
	h := newHarness(t, nil, droneArticle)
	h.extractor.bodies[droneArticle.Link] = "<div><p>本文です</p></div>"

	sum := h.app(Options{DailyLimit: 10}).Run(context.Background())

	if sum.Published != 1 || sum.Candidates != 1 || sum.Failed != 0 {
		t.Fatalf("summary = %s", sum)
	}
	if len(h.publisher.articles) != 1 {
		t.Fatalf("publish calls = %d, want 1", len(h.publisher.articles))
	}

	a := h.publisher.articles[0]
	if a.Title != "KO:新型ドローン発表" || a.Body != "KO:本文です" {
		t.Errorf("title/body not translated: %q / %q", a.Title, a.Body)
	}
	if a.SourceTitle != droneArticle.Title || a.ImageURL != "" {
		t.Errorf("unexpected article: %+v", a)
	}
	if !a.PublishedAt.Equal(droneArticle.PublishedAt) {
		t.Errorf("PublishedAt = %v, want %v", a.PublishedAt, droneArticle.PublishedAt)
	}

	stored := h.storedLinks(t)
	if len(stored) != 1 || stored[0] != droneArticle.Link {
		t.Errorf("state = %v, want the link exactly once", stored)
	}
	if sum.Outcomes[0].Status != StatusPublished || sum.RunID == "" {
		t.Errorf("outcome = %+v", sum.Outcomes[0])
	}
}

func TestRun_IdempotentForStoredLinks(t *testing.T) {
	h := newHarness(t, []string{droneArticle.Link}, droneArticle)
	h.extractor.bodies[droneArticle.Link] = "<p>本文</p>"

	sum := h.app(Options{DailyLimit: 10}).Run(context.Background())

	if sum.Candidates != 0 || len(h.publisher.articles) != 0 {
		t.Fatalf("stored link processed again: %s", sum)
	}
	if len(h.extractor.calls) != 0 || h.translator.calls != 0 {
		t.Error("stored link was fetched or translated")
	}
}

func TestRun_ForceBypassesAndDoesNotRecord(t *testing.T) {
	other := news.Candidate{Title: "別記事", Link: "https://drone.jp/y", PublishedAt: droneArticle.PublishedAt.Add(time.Hour)}
	h := newHarness(t, []string{droneArticle.Link}, droneArticle, other)
	h.extractor.bodies[droneArticle.Link] = "<p>本文</p>"
	h.extractor.bodies[other.Link] = "<p>本文2</p>"

	sum := h.app(Options{Force: true}).Run(context.Background())

	if sum.Published != 2 {
		t.Fatalf("summary = %s, want both published", sum)
	}
	if len(h.extractor.calls) != 2 || h.translator.calls != 4 {
		t.Errorf("extract calls = %d, translate calls = %d", len(h.extractor.calls), h.translator.calls)
	}
	stored := h.storedLinks(t)
	if len(stored) != 1 || stored[0] != droneArticle.Link {
		t.Errorf("force mode changed state: %v", stored)
	}
}

func TestRun_NoContentIsSkippedAndNotRecorded(t *testing.T) {
	h := newHarness(t, nil, droneArticle)

	sum := h.app(Options{}).Run(context.Background())

	if sum.Skipped != 1 || sum.Published != 0 {
		t.Fatalf("summary = %s", sum)
	}
	if len(h.publisher.articles) != 0 || h.translator.calls != 0 {
		t.Error("article without content was translated or published")
	}
	if len(h.storedLinks(t)) != 0 {
		t.Error("skipped article recorded")
	}
}

func TestRun_ImageOnlyBodySkippedBeforeTranslation(t *testing.T) {
	h := newHarness(t, nil, droneArticle)
	h.extractor.bodies[droneArticle.Link] = `<div><img src="x.jpg"></div>`

	sum := h.app(Options{}).Run(context.Background())

	if sum.Skipped != 1 || sum.Outcomes[0].Reason != "empty text" {
		t.Fatalf("summary = %s, outcome = %+v", sum, sum.Outcomes[0])
	}
	if h.translator.calls != 0 {
		t.Errorf("translate calls = %d, want 0 for a body without text", h.translator.calls)
	}
	if len(h.publisher.articles) != 0 || len(h.storedLinks(t)) != 0 {
		t.Error("image-only article was published or recorded")
	}
}

func TestRun_TitleTranslatedAsPlainText(t *testing.T) {
	bracketed := news.Candidate{Title: "DJI、<Mavic 4 Pro>を発表", Link: "https://drone.jp/m4", PublishedAt: droneArticle.PublishedAt}
	h := newHarness(t, nil, bracketed)
	h.extractor.bodies[bracketed.Link] = "<p>本文</p>"

	h.app(Options{}).Run(context.Background())

	if len(h.publisher.articles) != 1 {
		t.Fatalf("publish calls = %d", len(h.publisher.articles))
	}
	if got := h.publisher.articles[0].Title; got != "KO:DJI、<Mavic 4 Pro>を発表" {
		t.Errorf("Title = %q", got)
	}
}

func TestRun_PublishFailureIsNotRecorded(t *testing.T) {
	h := newHarness(t, nil, droneArticle)
	h.extractor.bodies[droneArticle.Link] = "<p>本文</p>"
	h.publisher.err = errors.New("wordpress: HTTP 500")

	a := h.app(Options{})
	sum := a.Run(context.Background())

	if sum.Failed != 1 || sum.Outcomes[0].Err == nil {
		t.Fatalf("summary = %s", sum)
	}
	if len(h.storedLinks(t)) != 0 {
		t.Error("failed article recorded")
	}
	if a.deps.Metrics.IsHealthy() {
		t.Error("failure not reflected in health")
	}
}

func TestRun_PanicIsIsolated(t *testing.T) {
	second := news.Candidate{Title: "二番目", Link: "https://drone.jp/z", PublishedAt: droneArticle.PublishedAt.Add(time.Hour)}
	h := newHarness(t, nil, droneArticle, second)
	h.extractor.panics = true

	sum := h.app(Options{}).Run(context.Background())

	if len(sum.Outcomes) != 2 || sum.Failed != 2 {
		t.Fatalf("summary = %s", sum)
	}
	if sum.Outcomes[0].Status != StatusPanicked {
		t.Errorf("status = %s, want panicked", sum.Outcomes[0].Status)
	}
}

func TestRun_CancelledBetweenArticles(t *testing.T) {
	second := news.Candidate{Title: "二番目", Link: "https://drone.jp/z", PublishedAt: droneArticle.PublishedAt.Add(time.Hour)}
	h := newHarness(t, nil, droneArticle, second)
	h.extractor.bodies[droneArticle.Link] = "<p>一</p>"
	h.extractor.bodies[second.Link] = "<p>二</p>"

	ctx, cancel := context.WithCancel(context.Background())
	app := h.app(Options{ArticleDelay: time.Hour})

	done := make(chan Summary, 1)
	go func() { done <- app.Run(ctx) }()

	// the first article finishes, then Run blocks in the inter-article delay
	deadline := time.After(5 * time.Second)
	for h.ledger.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("first article never recorded")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case sum := <-done:
		if sum.Published != 1 || !sum.Interrupted {
			t.Fatalf("summary = %s", sum)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRun_DailyLimitOldestFirst(t *testing.T) {
	newer := news.Candidate{Title: "新", Link: "https://drone.jp/new", PublishedAt: droneArticle.PublishedAt.Add(24 * time.Hour)}
	h := newHarness(t, nil, newer, droneArticle)
	h.extractor.bodies[newer.Link] = "<p>新</p>"
	h.extractor.bodies[droneArticle.Link] = "<p>旧</p>"

	sum := h.app(Options{DailyLimit: 1}).Run(context.Background())

	if sum.Published != 1 || h.publisher.articles[0].Link != droneArticle.Link {
		t.Fatalf("expected only the oldest article, got %s", sum)
	}
}

func TestRun_PassesResolvedImage(t *testing.T) {
	h := newHarness(t, nil, droneArticle)
	h.extractor.bodies[droneArticle.Link] = "<p>本文</p>"
	h.images.url = "https://drone.jp/img.jpg"

	sum := h.app(Options{}).Run(context.Background())
	if sum.Published != 1 {
		t.Fatalf("summary = %s", sum)
	}
	if h.publisher.articles[0].ImageURL != "https://drone.jp/img.jpg" {
		t.Errorf("image not passed to publisher: %+v", h.publisher.articles[0])
	}
}

func TestSummaryString(t *testing.T) {
	s := Summary{Candidates: 3, Published: 1, Skipped: 1, Failed: 1}
	if got := s.String(); got != "published 1/3 (skipped 1, failed 1)" {
		t.Errorf("String() = %q", got)
	}
	s.Interrupted = true
	if !strings.HasSuffix(s.String(), "[interrupted]") {
		t.Errorf("String() = %q", s.String())
	}
}
