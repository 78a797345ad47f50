package scraper

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/deusflow/feedpress/internal/news"
)

// nonContent is removed from a matched body before it leaves the extractor.
const nonContent = "script, style, iframe, noscript, form"

// DefaultContentSelectors is the WordPress-oriented body chain.
var DefaultContentSelectors = []string{
	"div.entry-content",
	"div.post-content",
	"article",
}

// Tier locates an article body in a page. It returns the cleaned markup or ""
// when it does not match.
type Tier struct {
	Name string
	Find func(p *Page) string
}

// SelectorTier matches the first element for selector.
func SelectorTier(selector string) Tier {
	return Tier{
		Name: selector,
		Find: func(p *Page) string {
			sel := p.Doc.Find(selector).First()
			if sel.Length() == 0 {
				return ""
			}
			return cleanMarkup(sel, p.URL)
		},
	}
}

// ReadabilityTier runs the readability algorithm over the whole page.
func ReadabilityTier() Tier {
	return Tier{
		Name: "readability",
		Find: func(p *Page) string {
			article, err := readability.FromReader(bytes.NewReader(p.Raw), p.URL)
			if err != nil || strings.TrimSpace(article.Content) == "" {
				return ""
			}
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
			if err != nil {
				return ""
			}
			body := doc.Find("body")
			if body.Length() == 0 {
				return ""
			}
			body.Find(nonContent).Remove()
			if strings.TrimSpace(body.Text()) == "" {
				return ""
			}
			html, err := body.Html()
			if err != nil {
				return ""
			}
			return strings.TrimSpace(html)
		},
	}
}

// ContentTiers builds the selector chain, optionally ending in the readability tier.
func ContentTiers(selectors []string, withReadability bool) []Tier {
	if len(selectors) == 0 {
		selectors = DefaultContentSelectors
	}
	tiers := make([]Tier, 0, len(selectors)+1)
	for _, s := range selectors {
		tiers = append(tiers, SelectorTier(s))
	}
	if withReadability {
		tiers = append(tiers, ReadabilityTier())
	}
	return tiers
}

// cleanMarkup strips non-content elements from a copy of sel, makes link
// targets absolute against base and returns its outer HTML. A subtree without
// text is treated as no match.
func cleanMarkup(sel *goquery.Selection, base *url.URL) string {
	c := sel.Clone()
	c.Find(nonContent).Remove()
	if strings.TrimSpace(c.Text()) == "" {
		return ""
	}
	c.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if strings.HasPrefix(strings.TrimSpace(href), "#") {
			return
		}
		if abs := resolveURL(base, href); abs != "" {
			a.SetAttr("href", abs)
		}
	})
	html, err := goquery.OuterHtml(c)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(html)
}

// ExtractFrom runs tiers left to right over page; the first match wins.
func ExtractFrom(page *Page, tiers []Tier) news.Content {
	link := ""
	if page.URL != nil {
		link = page.URL.String()
	}
	for _, t := range tiers {
		if markup := t.Find(page); markup != "" {
			return news.Content{Link: link, Markup: markup, Tier: t.Name}
		}
	}
	return news.Content{Link: link}
}

// Extractor fetches an article page and locates its body.
type Extractor struct {
	fetcher *Fetcher
	tiers   []Tier
	log     *slog.Logger
}

func NewExtractor(fetcher *Fetcher, tiers []Tier, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	if len(tiers) == 0 {
		tiers = ContentTiers(nil, false)
	}
	return &Extractor{fetcher: fetcher, tiers: tiers, log: log}
}

// Extract never fails: fetch errors and pages without a matching tier yield
// an empty Content.
func (e *Extractor) Extract(ctx context.Context, link string) news.Content {
	page, err := e.fetcher.Fetch(ctx, link)
	if err != nil {
		e.log.Warn("content fetch failed", "link", link, "error", err)
		return news.Content{Link: link}
	}

	content := ExtractFrom(page, e.tiers)
	content.Link = link
	if !content.Found() {
		e.log.Warn("no content container matched", "link", link)
		return content
	}

	e.log.Debug("content extracted", "link", link, "tier", content.Tier, "bytes", len(content.Markup))
	return content
}
