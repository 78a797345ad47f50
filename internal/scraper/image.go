package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/feedpress/internal/news"
)

// DefaultMinImageWidth is the smallest declared width accepted by the heuristic pass.
const DefaultMinImageWidth = 300

var featuredClasses = []string{
	"img.wp-post-image",
	"img.featured-image",
	".featured-image img",
	"img.attachment-post-thumbnail",
}

// junkTokens mark decorative or promotional images. Matching is per path
// token so "uploads" does not trip on "ad".
var junkTokens = map[string]struct{}{
	"icon":     {},
	"icons":    {},
	"favicon":  {},
	"logo":     {},
	"ad":       {},
	"ads":      {},
	"avatar":   {},
	"gravatar": {},
	"banner":   {},
}

// ImageCandidate is one image URL offered by a probe. Width is 0 when unknown.
type ImageCandidate struct {
	URL   string
	Width int
}

// Probe returns the image candidates of one signal in document order.
type Probe struct {
	Name string
	Find func(p *Page) []ImageCandidate
}

// ImageOptions configure the heuristic pass.
type ImageOptions struct {
	Heuristics bool
	MinWidth   int
	// ContentSelectors scope the in-body probe. Defaults to DefaultContentSelectors.
	ContentSelectors []string
}

// OpenGraphProbe reads og:image tags, pairing each with og:image:width when present.
func OpenGraphProbe() Probe {
	return Probe{
		Name: "og:image",
		Find: func(p *Page) []ImageCandidate {
			widths := metaValues(p.Doc, `meta[property="og:image:width"]`)
			var out []ImageCandidate
			for i, u := range metaValues(p.Doc, `meta[property="og:image"], meta[property="og:image:url"], meta[property="og:image:secure_url"]`) {
				c := ImageCandidate{URL: u}
				if i < len(widths) {
					c.Width = parseWidth(widths[i])
				}
				out = append(out, c)
			}
			return out
		},
	}
}

// TwitterProbe reads twitter card image tags.
func TwitterProbe() Probe {
	return Probe{
		Name: "twitter:image",
		Find: func(p *Page) []ImageCandidate {
			var out []ImageCandidate
			for _, u := range metaValues(p.Doc, `meta[name="twitter:image"], meta[name="twitter:image:src"], meta[property="twitter:image"]`) {
				out = append(out, ImageCandidate{URL: u})
			}
			return out
		},
	}
}

// ContentImageProbe returns images inside the first matching content container.
func ContentImageProbe(selectors []string) Probe {
	if len(selectors) == 0 {
		selectors = DefaultContentSelectors
	}
	return Probe{
		Name: "content",
		Find: func(p *Page) []ImageCandidate {
			for _, s := range selectors {
				container := p.Doc.Find(s).First()
				if container.Length() == 0 {
					continue
				}
				if imgs := imageCandidates(container.Find("img")); len(imgs) > 0 {
					return imgs
				}
			}
			return nil
		},
	}
}

// FeaturedClassProbe returns images carrying a known featured-image class.
func FeaturedClassProbe() Probe {
	return Probe{
		Name: "featured",
		Find: func(p *Page) []ImageCandidate {
			return imageCandidates(p.Doc.Find(strings.Join(featuredClasses, ", ")))
		},
	}
}

// DefaultProbes is og:image, twitter:image, in-body image, featured class.
func DefaultProbes(contentSelectors []string) []Probe {
	return []Probe{
		OpenGraphProbe(),
		TwitterProbe(),
		ContentImageProbe(contentSelectors),
		FeaturedClassProbe(),
	}
}

func metaValues(doc *goquery.Document, selector string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v := strings.TrimSpace(s.AttrOr("content", "")); v != "" {
			out = append(out, v)
		}
	})
	return out
}

func imageCandidates(imgs *goquery.Selection) []ImageCandidate {
	var out []ImageCandidate
	imgs.Each(func(_ int, img *goquery.Selection) {
		src := imageSource(img)
		if src == "" {
			return
		}
		out = append(out, ImageCandidate{URL: src, Width: parseWidth(img.AttrOr("width", ""))})
	})
	return out
}

// imageSource prefers src, then the usual lazy-loading attributes. Inline
// data URIs are placeholders and never usable.
func imageSource(img *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		v := strings.TrimSpace(img.AttrOr(attr, ""))
		if v == "" || strings.HasPrefix(strings.ToLower(v), "data:") {
			continue
		}
		return v
	}
	return ""
}

// parseWidth reads "640" or "640px". Anything else is unknown (0).
func parseWidth(v string) int {
	v = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(v)), "px")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// resolveURL makes ref absolute against base. Only http(s) results are usable.
func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(strings.ToLower(ref), "data:") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// looksLikeJunk reports whether the URL host or path has a decorative marker token.
func looksLikeJunk(u *url.URL) bool {
	tokens := strings.FieldsFunc(strings.ToLower(u.Host+"/"+u.Path), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, t := range tokens {
		if _, ok := junkTokens[t]; ok {
			return true
		}
	}
	return false
}

// accept applies the heuristic pass to an absolute image URL.
func (o ImageOptions) accept(abs string, width int) bool {
	if !o.Heuristics {
		return true
	}
	u, err := url.Parse(abs)
	if err != nil || looksLikeJunk(u) {
		return false
	}
	return width == 0 || width >= o.MinWidth
}

// ResolveFrom runs probes in order over page; the first acceptable candidate wins.
func ResolveFrom(page *Page, probes []Probe, opts ImageOptions) news.Image {
	for _, probe := range probes {
		for _, c := range probe.Find(page) {
			abs := resolveURL(page.URL, c.URL)
			if abs == "" || !opts.accept(abs, c.Width) {
				continue
			}
			return news.Image{URL: abs, Tier: probe.Name}
		}
	}
	return news.Image{}
}

// ImageResolver fetches an article page and picks its representative image.
type ImageResolver struct {
	fetcher *Fetcher
	probes  []Probe
	opts    ImageOptions
	log     *slog.Logger
}

func NewImageResolver(fetcher *Fetcher, opts ImageOptions, log *slog.Logger) *ImageResolver {
	if log == nil {
		log = slog.Default()
	}
	if opts.MinWidth <= 0 {
		opts.MinWidth = DefaultMinImageWidth
	}
	return &ImageResolver{
		fetcher: fetcher,
		probes:  DefaultProbes(opts.ContentSelectors),
		opts:    opts,
		log:     log,
	}
}

// Resolve never fails; an empty Image means the post goes out without media.
func (r *ImageResolver) Resolve(ctx context.Context, link string) news.Image {
	page, err := r.fetcher.Fetch(ctx, link)
	if err != nil {
		r.log.Warn("image probe fetch failed", "link", link, "error", err)
		return news.Image{}
	}

	img := ResolveFrom(page, r.probes, r.opts)
	if !img.Found() {
		r.log.Info("no usable image found", "link", link)
		return img
	}
	r.log.Debug("image resolved", "link", link, "tier", img.Tier, "url", img.URL)
	return img
}
