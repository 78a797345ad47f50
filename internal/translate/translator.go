package translate

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deusflow/feedpress/internal/ratelimit"
)

// DefaultChunkSize is the per-call limit in runes.
const DefaultChunkSize = 4000

// chunkSeparator joins translated chunks.
const chunkSeparator = "\n\n"

type Options struct {
	From       string
	To         string
	ChunkSize  int           // runes per engine call
	ChunkPause time.Duration // between chunk calls
	CallPause  time.Duration // between single-call translations
}

// Result is the translation of one logical field.
type Result struct {
	Original   string // intermediate text sent for translation
	Translated string
	Chunks     int
	Fallbacks  int // chunks that fell back to source text
}

// Degraded reports whether any part of the result is untranslated source text.
func (r Result) Degraded() bool {
	return r.Fallbacks > 0
}

// Translator converts markup to text and translates it chunk by chunk.
// It never fails: a failed chunk is returned untranslated.
type Translator struct {
	engine     Engine
	opts       Options
	chunkPacer *ratelimit.Pacer
	callPacer  *ratelimit.Pacer
	log        *slog.Logger
}

func NewTranslator(engine Engine, opts Options, log *slog.Logger) *Translator {
	if log == nil {
		log = slog.Default()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Translator{
		engine:     engine,
		opts:       opts,
		chunkPacer: ratelimit.NewPacer(opts.ChunkPause),
		callPacer:  ratelimit.NewPacer(opts.CallPause),
		log:        log,
	}
}

// Translate converts markup to the intermediate text form and translates it.
func (t *Translator) Translate(ctx context.Context, markup string) Result {
	return t.TranslateText(ctx, ToText(markup))
}

// TranslateText translates text that is already plain, such as a feed title.
// Angle brackets and entities in it are kept as literal characters.
func (t *Translator) TranslateText(ctx context.Context, text string) Result {
	text = strings.TrimSpace(text)
	res := Result{Original: text}
	if text == "" {
		return res
	}

	chunks := SplitChunks(text, t.opts.ChunkSize)
	res.Chunks = len(chunks)

	pacer := t.callPacer
	if len(chunks) > 1 {
		pacer = t.chunkPacer
		t.log.Debug("text split into chunks", "runes", utf8.RuneCountInString(text), "chunks", len(chunks), "size", t.opts.ChunkSize)
	}

	out := make([]string, len(chunks))
	for i, chunk := range chunks {
		out[i] = chunk

		if err := pacer.Wait(ctx); err != nil {
			t.log.Warn("translation pacing interrupted, keeping source text", "chunk", i+1, "of", len(chunks), "error", err)
			res.Fallbacks++
			continue
		}

		translated, err := t.engine.Translate(ctx, chunk, t.opts.From, t.opts.To)
		if err != nil || strings.TrimSpace(translated) == "" {
			t.log.Warn("translation failed, keeping source text", "engine", t.engine.Name(), "chunk", i+1, "of", len(chunks), "error", err)
			res.Fallbacks++
			continue
		}
		out[i] = strings.TrimSpace(translated)
	}

	res.Translated = strings.Join(out, chunkSeparator)
	return res
}

// SplitChunks cuts text into consecutive pieces of at most size runes.
// The number of pieces is ceil(runes/size).
func SplitChunks(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
