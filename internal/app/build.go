package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/deusflow/feedpress/internal/config"
	"github.com/deusflow/feedpress/internal/gemini"
	"github.com/deusflow/feedpress/internal/metrics"
	"github.com/deusflow/feedpress/internal/publisher"
	"github.com/deusflow/feedpress/internal/ratelimit"
	"github.com/deusflow/feedpress/internal/retry"
	"github.com/deusflow/feedpress/internal/rss"
	"github.com/deusflow/feedpress/internal/scraper"
	"github.com/deusflow/feedpress/internal/security"
	"github.com/deusflow/feedpress/internal/storage"
	"github.com/deusflow/feedpress/internal/translate"
	"github.com/deusflow/feedpress/internal/wordpress"
)

const (
	googleTimeout = 15 * time.Second
	cmsTimeout    = 30 * time.Second
)

// Build wires an App from cfg. The caller must Close the App.
func Build(ctx context.Context, cfg *config.Config, collector *metrics.Collector, log *slog.Logger) *App {
	feeds := cfg.Feeds(nil)
	if cfg.FeedsFile != "" {
		fromFile, err := rss.LoadFeeds(cfg.FeedsFile)
		if err != nil {
			log.Warn("feeds file unreadable, using FEED_URL", "file", cfg.FeedsFile, "error", err)
		}
		feeds = cfg.Feeds(fromFile)
	}
	log.Info("feeds configured", "count", len(feeds))

	pageClient := security.NewHTTPClient(cfg.RequestTimeout, cfg.SafeFetch)
	imageClient := security.NewHTTPClient(cfg.ImageTimeout, cfg.SafeFetch)

	extractor := scraper.NewExtractor(
		scraper.NewFetcher(pageClient),
		scraper.ContentTiers(cfg.ContentSelectors, cfg.ReadabilityFallback),
		log,
	)
	images := scraper.NewImageResolver(
		scraper.NewFetcher(imageClient),
		scraper.ImageOptions{
			Heuristics:       cfg.ImageHeuristics,
			MinWidth:         cfg.ImageMinWidth,
			ContentSelectors: cfg.ContentSelectors,
		},
		log,
	)

	budget := ratelimit.NewBudget(cfg.MaxLLMRequests)
	engines, closers := buildEngines(ctx, cfg, budget, log)
	var engine translate.Engine = translate.NewChain(log, engines...)
	if cfg.TranslateMemoTTL > 0 {
		engine = translate.NewMemoEngine(engine, cfg.TranslateMemoTTL, log)
	}
	log.Info("translation chain ready", "engines", engine.Name(), "from", cfg.SourceLang, "to", cfg.TargetLang)

	translator := translate.NewTranslator(engine, translate.Options{
		From:       cfg.SourceLang,
		To:         cfg.TargetLang,
		ChunkSize:  cfg.ChunkSize,
		ChunkPause: cfg.ChunkPause,
		CallPause:  cfg.TranslatePause,
	}, log)

	wp := wordpress.New(cfg.WPURL, cfg.WPUser, cfg.WPAppPassword, cmsTimeout)
	pub := publisher.New(wp, security.NewHTTPClient(cfg.RequestTimeout, cfg.SafeFetch), publisher.Options{
		Status:       cfg.PostStatus,
		PreserveDate: cfg.PreserveDate,
		ImageInBody:  cfg.ImageInBody,
		StyleWrapper: cfg.StyleWrapper,
		SourceLabel:  cfg.SourceLabel,
		Retry: retry.RetryConfig{
			MaxAttempts: cfg.RetryAttempts,
			Delay:       cfg.RetryDelay,
			Backoff:     true,
		},
	}, log)

	ledger := storage.OpenLedger(ctx, openStoreOrFallback(ctx, cfg, log), log)

	a := New(Deps{
		Source:     rss.NewReader(feeds, pageClient, log),
		Extractor:  extractor,
		Images:     images,
		Translator: translator,
		Publisher:  pub,
		Ledger:     ledger,
		Metrics:    collector,
	}, Options{
		DailyLimit:   cfg.DailyLimit,
		ScanLimit:    cfg.ScanLimit,
		MaxAge:       cfg.MaxAge,
		Force:        cfg.Force,
		ArticleDelay: cfg.ArticleDelay,
	}, log)

	a.closers = append(closers, ledger.Close, func() error {
		logBudget(budget, log)
		return nil
	})
	return a
}

func logBudget(budget *ratelimit.Budget, log *slog.Logger) {
	used := budget.GetStats()
	if len(used) == 0 {
		return
	}
	for engine, n := range used {
		log.Info("llm budget usage", "engine", engine, "used", n, "remaining", budget.Remaining(engine))
	}
}

// buildEngines creates the engines named in TRANSLATE_ENGINES, in order.
// Engines without credentials are dropped; an empty result falls back to google.
func buildEngines(ctx context.Context, cfg *config.Config, budget *ratelimit.Budget, log *slog.Logger) ([]translate.Engine, []func() error) {
	var (
		engines []translate.Engine
		closers []func() error
	)

	for _, name := range cfg.Engines {
		switch name {
		case config.EngineGoogle:
			engines = append(engines, translate.NewGoogleEngine(security.NewHTTPClient(googleTimeout, false), ""))
		case config.EngineOpenAI:
			if cfg.OpenAIAPIKey == "" {
				log.Warn("OPENAI_API_KEY not set, openai engine disabled")
				continue
			}
			engines = append(engines, translate.NewOpenAIEngine(openai.DefaultConfig(cfg.OpenAIAPIKey), cfg.OpenAIModel, budget, cfg.TranslateTimeout))
		case config.EngineGemini:
			if cfg.GeminiAPIKey == "" {
				log.Warn("GEMINI_API_KEY not set, gemini engine disabled")
				continue
			}
			client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, budget, cfg.TranslateTimeout)
			if err != nil {
				log.Warn("gemini engine disabled", "error", err)
				continue
			}
			engines = append(engines, client)
			closers = append(closers, func() error { client.Close(); return nil })
		}
	}

	if len(engines) == 0 {
		log.Warn("no usable translation engine configured, falling back to google")
		engines = append(engines, translate.NewGoogleEngine(security.NewHTTPClient(googleTimeout, false), ""))
	}
	return engines, closers
}
