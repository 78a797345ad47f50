// Package translate turns extracted article markup into translated text.
// Engines are black-box text-in/text-out services; the Translator adds
// chunking, pacing and passthrough fallback on top of them.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Engine translates plain text between two language codes.
type Engine interface {
	Name() string
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// ErrEmptyTranslation is returned when an engine answers with nothing.
var ErrEmptyTranslation = errors.New("empty translation")

// Chain tries engines in order; the first non-empty answer wins.
type Chain struct {
	engines []Engine
	log     *slog.Logger
}

func NewChain(log *slog.Logger, engines ...Engine) *Chain {
	if log == nil {
		log = slog.Default()
	}
	return &Chain{engines: engines, log: log}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.engines))
	for i, e := range c.engines {
		names[i] = e.Name()
	}
	return strings.Join(names, ">")
}

// Len returns the number of engines in the chain.
func (c *Chain) Len() int { return len(c.engines) }

func (c *Chain) Translate(ctx context.Context, text, from, to string) (string, error) {
	if len(c.engines) == 0 {
		return "", errors.New("no translation engines configured")
	}

	var errs []error
	for _, e := range c.engines {
		out, err := e.Translate(ctx, text, from, to)
		if err == nil && strings.TrimSpace(out) == "" {
			err = ErrEmptyTranslation
		}
		if err != nil {
			c.log.Warn("translation engine failed", "engine", e.Name(), "from", from, "to", to, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
			continue
		}
		c.log.Debug("translation engine ok", "engine", e.Name(), "from", from, "to", to)
		return out, nil
	}
	return "", errors.Join(errs...)
}

var languageNames = map[string]string{
	"ja": "Japanese",
	"ko": "Korean",
	"en": "English",
	"zh": "Chinese",
	"de": "German",
	"fr": "French",
	"da": "Danish",
	"uk": "Ukrainian",
}

// LanguageName maps a language code to the English name used in prompts.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// Prompt builds the instruction sent to LLM engines.
func Prompt(text, from, to string) string {
	return fmt.Sprintf(`Translate the following %s news text into %s.
Keep the meaning, tone and journalistic style of the original.
Keep line breaks, headings starting with #, list items starting with * and links written as [text](url) exactly as they are; translate only the link text.
Do not translate brand, product or organization names.
Output only the translation, without comments or notes.

Text to translate:
%s`, LanguageName(from), LanguageName(to), text)
}
