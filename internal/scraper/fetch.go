// Package scraper fetches article pages and locates their body and
// representative image through ordered fallback chains.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

const (
	// BrowserUserAgent is sent on page and image requests; some sources
	// refuse obvious bot agents.
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"

	defaultMaxPageBytes = 5 << 20
)

// Page is a fetched, UTF-8 decoded HTML document.
type Page struct {
	URL *url.URL
	Doc *goquery.Document
	Raw []byte
}

// NewPage parses raw UTF-8 HTML as if it had been fetched from link.
func NewPage(link string, raw []byte) (*Page, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}
	doc.Url = u
	return &Page{URL: u, Doc: doc, Raw: raw}, nil
}

// Fetcher downloads pages with a browser-like User-Agent.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher wraps client. A nil client gets a plain one with a 15s timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, maxBytes: defaultMaxPageBytes}
}

// Fetch loads link and decodes it to UTF-8 using the declared charset.
// Any non-200 status is an error.
func (f *Fetcher) Fetch(ctx context.Context, link string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", BrowserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	utf8Reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		utf8Reader = resp.Body
	}

	raw, err := io.ReadAll(io.LimitReader(utf8Reader, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return NewPage(resp.Request.URL.String(), raw)
}
