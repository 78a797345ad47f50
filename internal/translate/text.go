package translate

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"ul": true, "ol": true, "blockquote": true, "pre": true, "table": true,
	"tr": true, "figure": true, "figcaption": true, "header": true,
	"footer": true, "aside": true, "dl": true, "dt": true, "dd": true, "hr": true,
}

var headingLevels = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
}

// ToText converts article markup to the intermediate text sent to engines:
// blocks become blank-line separated paragraphs, headings get # prefixes,
// list items "* ", absolute http(s) links become [text](href) and images are
// dropped. Other links keep only their text.
// Plain text passes through with whitespace normalized.
func ToText(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return normalizeLines(markup)
	}

	var b strings.Builder
	for _, n := range doc.Find("body").Nodes {
		writeChildren(&b, n)
	}
	return normalizeLines(b.String())
}

func writeChildren(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNode(b, c)
	}
}

func innerText(n *html.Node) string {
	var b strings.Builder
	writeChildren(&b, n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func writeNode(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(collapseSpace(n.Data))
		return
	case html.ElementNode:
	default:
		return
	}

	tag := n.Data
	switch {
	case tag == "img" || tag == "script" || tag == "style" || tag == "noscript" || tag == "iframe":
		return
	case tag == "br":
		b.WriteString("\n")
	case tag == "a":
		text := innerText(n)
		href := strings.TrimSpace(attr(n, "href"))
		switch {
		case text == "":
		case !isWebURL(href):
			b.WriteString(text)
		default:
			b.WriteString("[" + text + "](" + href + ")")
		}
	case headingLevels[tag] > 0:
		if text := innerText(n); text != "" {
			b.WriteString("\n\n" + strings.Repeat("#", headingLevels[tag]) + " " + text + "\n\n")
		}
	case tag == "li":
		if text := innerText(n); text != "" {
			b.WriteString("\n* " + text)
		}
	case blockElements[tag]:
		b.WriteString("\n\n")
		writeChildren(b, n)
		b.WriteString("\n\n")
	default:
		writeChildren(b, n)
	}
}

func isWebURL(href string) bool {
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// collapseSpace turns every whitespace run into one space without trimming.
func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\u00a0':
			if !space {
				b.WriteByte(' ')
			}
			space = true
		default:
			b.WriteRune(r)
			space = false
		}
	}
	return b.String()
}

// normalizeLines trims each line and keeps at most one blank line between paragraphs.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
