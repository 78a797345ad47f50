package translate

import (
	"regexp"
	"strings"
)

var (
	// (Note: ...) or [Note: ...] anywhere in the text
	inlineNoteRe = regexp.MustCompile(`(?i)[\(\[]\s*(note|disclaimer|translator'?s note)\s*:[^\)\]]*[\)\]]`)
	// (machine translation ...) style brackets without a Note: label
	inlineMTRe = regexp.MustCompile(`(?i)[\(\[][^\)\]]*machine[- ]translat[^\)\]]*[\)\]]`)
	// whole lines that are disclaimers or preambles
	noteLineRe     = regexp.MustCompile(`(?i)^(note|disclaimer|translator'?s note)\s*:`)
	preambleLineRe = regexp.MustCompile(`(?i)^(here is|here's|below is)\b.*\btranslation\b.*:$`)
	spacesRe       = regexp.MustCompile(`[ \t]{2,}`)
)

// SanitizeAIText strips the notes and preambles LLM engines add around a
// translation. Line structure is preserved.
func SanitizeAIText(s string) string {
	s = inlineNoteRe.ReplaceAllString(s, "")
	s = inlineMTRe.ReplaceAllString(s, "")

	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(spacesRe.ReplaceAllString(line, " "))
		if noteLineRe.MatchString(line) || preambleLineRe.MatchString(line) {
			continue
		}
		if line == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
