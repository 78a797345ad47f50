package scraper

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/text/encoding/japanese"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustPage(t *testing.T, link, html string) *Page {
	t.Helper()
	p, err := NewPage(link, []byte(html))
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	return p
}

func TestExtractFrom_FirstTierWins(t *testing.T) {
	page := mustPage(t, "https://drone.jp/x", `<html><body>
		<article><div class="post-content"><p>second</p></div>
		<div class="entry-content"><p>primary</p></div></article>
	</body></html>`)

	got := ExtractFrom(page, ContentTiers(nil, false))
	if got.Tier != "div.entry-content" {
		t.Fatalf("tier = %q, want div.entry-content", got.Tier)
	}
	if !strings.Contains(got.Markup, "primary") || strings.Contains(got.Markup, "second") {
		t.Errorf("unexpected markup: %q", got.Markup)
	}
}

func TestExtractFrom_FallsThroughToArticle(t *testing.T) {
	page := mustPage(t, "https://drone.jp/x", `<html><body><article><p>本文</p></article></body></html>`)

	got := ExtractFrom(page, ContentTiers(nil, false))
	if got.Tier != "article" || !strings.HasPrefix(got.Markup, "<article>") {
		t.Fatalf("got %+v", got)
	}
}

func TestExtractFrom_StripsNonContent(t *testing.T) {
	page := mustPage(t, "https://drone.jp/x", `<html><body><div class="entry-content">
		<p>本文</p>
		<script>track()</script><style>p{}</style>
		<iframe src="https://youtube.com/embed/x"></iframe>
		<noscript>enable js</noscript>
		<form><input name="q"></form>
	</div></body></html>`)

	got := ExtractFrom(page, ContentTiers(nil, false))
	for _, bad := range []string{"<script", "<style", "<iframe", "<noscript", "<form", "track()"} {
		if strings.Contains(got.Markup, bad) {
			t.Errorf("markup still contains %q: %q", bad, got.Markup)
		}
	}
	if !strings.Contains(got.Markup, "本文") {
		t.Errorf("body text lost: %q", got.Markup)
	}
	if page.Doc.Find("script").Length() != 1 {
		t.Error("stripping mutated the source document")
	}
}

func TestExtractFrom_ResolvesRelativeLinks(t *testing.T) {
	page := mustPage(t, "https://drone.jp/2024/05/x", `<html><body><div class="entry-content">
		<p>本文 <a href="/news/1">関連</a> <a href="y">続報</a></p>
		<p><a href="#top">上へ</a> <a href="mailto:info@drone.jp">連絡</a> <a href="https://dji.com/">DJI</a></p>
	</div></body></html>`)

	got := ExtractFrom(page, ContentTiers(nil, false))
	for _, want := range []string{
		`href="https://drone.jp/news/1"`,
		`href="https://drone.jp/2024/05/y"`,
		`href="#top"`,
		`href="mailto:info@drone.jp"`,
		`href="https://dji.com/"`,
	} {
		if !strings.Contains(got.Markup, want) {
			t.Errorf("markup missing %s: %q", want, got.Markup)
		}
	}
	if v, _ := page.Doc.Find(`a:contains("関連")`).Attr("href"); v != "/news/1" {
		t.Errorf("source document rewritten: href = %q", v)
	}
}

func TestExtractFrom_NoMatchIsEmpty(t *testing.T) {
	page := mustPage(t, "https://drone.jp/x", `<html><body><div class="sidebar"><p>menu</p></div></body></html>`)

	got := ExtractFrom(page, ContentTiers(nil, false))
	if got.Found() {
		t.Fatalf("expected no content, got %+v", got)
	}
}

func TestExtractFrom_EmptyContainerFallsThrough(t *testing.T) {
	page := mustPage(t, "https://drone.jp/x", `<html><body>
		<div class="entry-content"><script>x()</script></div>
		<article><p>fallback body</p></article>
	</body></html>`)

	got := ExtractFrom(page, ContentTiers(nil, false))
	if got.Tier != "article" {
		t.Fatalf("tier = %q, want article", got.Tier)
	}
}

func TestContentTiers_CustomAndReadability(t *testing.T) {
	tiers := ContentTiers([]string{"main"}, true)
	if len(tiers) != 2 || tiers[0].Name != "main" || tiers[1].Name != "readability" {
		t.Fatalf("unexpected tiers: %v, %v", tiers[0].Name, tiers[len(tiers)-1].Name)
	}
}

func TestExtractor_Extract(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			io.WriteString(w, `<html><body><div class="entry-content"><p>ドローン</p></div></body></html>`)
		case "/sjis":
			w.Header().Set("Content-Type", "text/html; charset=Shift_JIS")
			body, _ := japanese.ShiftJIS.NewEncoder().String(`<html><body><article><p>新型ドローン</p></article></body></html>`)
			io.WriteString(w, body)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := NewExtractor(NewFetcher(srv.Client()), nil, quietLogger())
	ctx := context.Background()

	got := e.Extract(ctx, srv.URL+"/ok")
	if !got.Found() || !strings.Contains(got.Markup, "ドローン") {
		t.Fatalf("unexpected content: %+v", got)
	}
	if got.Link != srv.URL+"/ok" {
		t.Errorf("Link = %q", got.Link)
	}
	if gotUA != BrowserUserAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}

	got = e.Extract(ctx, srv.URL+"/sjis")
	if !strings.Contains(got.Markup, "新型ドローン") {
		t.Errorf("Shift_JIS page not decoded: %q", got.Markup)
	}

	if got := e.Extract(ctx, srv.URL+"/missing"); got.Found() {
		t.Errorf("404 page produced content: %+v", got)
	}
}
