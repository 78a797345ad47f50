package publisher

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

const wrapperStyle = "max-width:760px;margin:0 auto;line-height:1.8;font-size:17px;"

// Link text may hold one level of brackets, as in [[PR] title](url).
var markdownLinkRe = regexp.MustCompile(`\[((?:[^\[\]\n]|\[[^\[\]\n]*\])+)\]\((https?://[^\s)]+)\)`)

// RenderText escapes translated text and turns it into post HTML: [text](url)
// links become anchors and newlines become <br>. Angle brackets in the text
// stay visible as literal characters.
func RenderText(text string) string {
	escaped := html.EscapeString(text)
	linked := markdownLinkRe.ReplaceAllString(escaped, `<a href="$2">$1</a>`)
	return strings.ReplaceAll(linked, "\n", "<br>\n")
}

// ComposeBody builds the post content: sanitized body, optional leading image,
// optional wrapper and the attribution footer.
func (p *Publisher) ComposeBody(a Article, mediaURL string) string {
	body := p.sanitizer.Sanitize(RenderText(a.Body))

	if p.opts.ImageInBody && mediaURL != "" {
		img := fmt.Sprintf(`<p><img src="%s" alt="%s"></p>`, html.EscapeString(mediaURL), html.EscapeString(a.Title))
		body = img + "\n" + body
	}
	if p.opts.StyleWrapper {
		body = fmt.Sprintf(`<div style="%s">%s</div>`, wrapperStyle, body)
	}
	return body + Attribution(p.opts.SourceLabel, a.Link, a.SourceTitle)
}

// Attribution is the footer linking back to the original article.
func Attribution(label, link, title string) string {
	return fmt.Sprintf("\n\n<hr><p style='font-size:13px;color:#777;'><strong>%s:</strong> <a href='%s' target='_blank'>%s</a></p>",
		html.EscapeString(label), html.EscapeString(link), html.EscapeString(title))
}
