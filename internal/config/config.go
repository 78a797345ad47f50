// Package config loads run configuration from defaults, an optional YAML file,
// a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendFile     = "file"
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"

	EngineGoogle = "google"
	EngineOpenAI = "openai"
	EngineGemini = "gemini"
)

type Config struct {
	// CMS settings
	WPURL         string
	WPUser        string
	WPAppPassword string
	PostStatus    string
	PreserveDate  bool
	ImageInBody   bool
	StyleWrapper  bool
	SourceLabel   string

	// Feed settings
	FeedURL    string
	FeedsFile  string
	DailyLimit int
	ScanLimit  int
	MaxAge     time.Duration
	Force      bool

	// State settings
	StateBackend string // file | bolt | postgres
	StateFile    string
	DatabaseURL  string

	// Translation settings
	SourceLang       string
	TargetLang       string
	Engines          []string
	OpenAIAPIKey     string
	OpenAIModel      string
	GeminiAPIKey     string
	GeminiModel      string
	MaxLLMRequests   int // per paid engine, 0 = unlimited
	ChunkSize        int // runes
	ChunkPause       time.Duration
	TranslatePause   time.Duration
	TranslateTimeout time.Duration
	TranslateMemoTTL time.Duration // 0 disables the memo

	// Extraction settings
	ContentSelectors    []string
	ReadabilityFallback bool
	ImageHeuristics     bool
	ImageMinWidth       int
	SafeFetch           bool

	// App settings
	ArticleDelay   time.Duration
	RequestTimeout time.Duration
	ImageTimeout   time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	Debug          bool
	LogFormat      string

	// Monitoring
	EnableMonitoring bool
	MonitoringPort   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("wp_url", "https://grv.co.kr/wp")
	v.SetDefault("post_status", "publish")
	v.SetDefault("preserve_date", true)
	v.SetDefault("image_in_body", false)
	v.SetDefault("style_wrapper", false)
	v.SetDefault("source_label", "원문")

	v.SetDefault("feed_url", "https://drone.jp/feed")
	v.SetDefault("feeds_file", "")
	v.SetDefault("daily_limit", 10)
	v.SetDefault("scan_limit", 0)
	v.SetDefault("max_age", 0)
	v.SetDefault("force_update", false)

	v.SetDefault("state_backend", BackendFile)
	v.SetDefault("state_file", "posted_articles.json")
	v.SetDefault("database_url", "")

	v.SetDefault("source_lang", "ja")
	v.SetDefault("target_lang", "ko")
	v.SetDefault("translate_engines", EngineGoogle)
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("gemini_model", "gemini-1.5-flash")
	v.SetDefault("max_llm_requests", 50)
	v.SetDefault("chunk_size", 4000)
	v.SetDefault("chunk_pause", "1s")
	v.SetDefault("translate_pause", "500ms")
	v.SetDefault("translate_timeout", "20s")
	v.SetDefault("translate_memo_ttl", "6h")

	v.SetDefault("content_selectors", "div.entry-content,div.post-content,article")
	v.SetDefault("readability_fallback", false)
	v.SetDefault("image_heuristics", true)
	v.SetDefault("image_min_width", 300)
	v.SetDefault("safe_fetch", true)

	v.SetDefault("article_delay", "3s")
	v.SetDefault("request_timeout", "15s")
	v.SetDefault("image_timeout", "10s")
	v.SetDefault("retry_attempts", 2)
	v.SetDefault("retry_delay", "2s")
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "text")

	v.SetDefault("enable_http_monitoring", false)
	v.SetDefault("monitoring_port", "8080")
}

// Load reads configuration and validates it. A missing .env file is not an
// error; an unreadable CONFIG_FILE is.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString("config_file")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := fromViper(v)
	return cfg, cfg.Validate()
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		WPURL:         strings.TrimRight(strings.TrimSpace(v.GetString("wp_url")), "/"),
		WPUser:        strings.TrimSpace(v.GetString("wp_user")),
		WPAppPassword: v.GetString("wp_app_password"),
		PostStatus:    strings.TrimSpace(v.GetString("post_status")),
		PreserveDate:  v.GetBool("preserve_date"),
		ImageInBody:   v.GetBool("image_in_body"),
		StyleWrapper:  v.GetBool("style_wrapper"),
		SourceLabel:   v.GetString("source_label"),

		FeedURL:    strings.TrimSpace(v.GetString("feed_url")),
		FeedsFile:  strings.TrimSpace(v.GetString("feeds_file")),
		DailyLimit: v.GetInt("daily_limit"),
		ScanLimit:  v.GetInt("scan_limit"),
		MaxAge:     v.GetDuration("max_age"),
		Force:      v.GetBool("force_update"),

		StateBackend: strings.ToLower(strings.TrimSpace(v.GetString("state_backend"))),
		StateFile:    strings.TrimSpace(v.GetString("state_file")),
		DatabaseURL:  strings.TrimSpace(v.GetString("database_url")),

		SourceLang:       strings.TrimSpace(v.GetString("source_lang")),
		TargetLang:       strings.TrimSpace(v.GetString("target_lang")),
		Engines:          lower(stringList(v, "translate_engines")),
		OpenAIAPIKey:     strings.TrimSpace(v.GetString("openai_api_key")),
		OpenAIModel:      strings.TrimSpace(v.GetString("openai_model")),
		GeminiAPIKey:     strings.TrimSpace(v.GetString("gemini_api_key")),
		GeminiModel:      strings.TrimSpace(v.GetString("gemini_model")),
		MaxLLMRequests:   v.GetInt("max_llm_requests"),
		ChunkSize:        v.GetInt("chunk_size"),
		ChunkPause:       v.GetDuration("chunk_pause"),
		TranslatePause:   v.GetDuration("translate_pause"),
		TranslateTimeout: v.GetDuration("translate_timeout"),
		TranslateMemoTTL: v.GetDuration("translate_memo_ttl"),

		ContentSelectors:    stringList(v, "content_selectors"),
		ReadabilityFallback: v.GetBool("readability_fallback"),
		ImageHeuristics:     v.GetBool("image_heuristics"),
		ImageMinWidth:       v.GetInt("image_min_width"),
		SafeFetch:           v.GetBool("safe_fetch"),

		ArticleDelay:   v.GetDuration("article_delay"),
		RequestTimeout: v.GetDuration("request_timeout"),
		ImageTimeout:   v.GetDuration("image_timeout"),
		RetryAttempts:  v.GetInt("retry_attempts"),
		RetryDelay:     v.GetDuration("retry_delay"),
		Debug:          v.GetBool("debug"),
		LogFormat:      strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),

		EnableMonitoring: v.GetBool("enable_http_monitoring"),
		MonitoringPort:   strings.TrimSpace(v.GetString("monitoring_port")),
	}
}

// stringList reads a key that is either a YAML list or a comma separated string.
func stringList(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case []any, []string:
		raw = v.GetStringSlice(key)
	default:
		raw = strings.Split(fmt.Sprint(val), ",")
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func lower(in []string) []string {
	for i := range in {
		in[i] = strings.ToLower(in[i])
	}
	return in
}

// Feeds returns the feed URLs of a run given the already loaded FEEDS_FILE list.
func (c *Config) Feeds(fromFile []string) []string {
	if len(fromFile) > 0 {
		return fromFile
	}
	if c.FeedURL == "" {
		return nil
	}
	return []string{c.FeedURL}
}

func (c *Config) Validate() error {
	if c.WPUser == "" {
		return fmt.Errorf("WP_USER is required")
	}
	if c.WPAppPassword == "" {
		return fmt.Errorf("WP_APP_PASSWORD is required")
	}
	if c.WPURL == "" {
		return fmt.Errorf("WP_URL is required")
	}
	if c.FeedURL == "" && c.FeedsFile == "" {
		return fmt.Errorf("FEED_URL or FEEDS_FILE is required")
	}

	switch c.StateBackend {
	case BackendFile, BackendBolt:
		if c.StateFile == "" {
			return fmt.Errorf("STATE_FILE is required for %s backend", c.StateBackend)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres backend")
		}
	default:
		return fmt.Errorf("STATE_BACKEND must be 'file', 'bolt' or 'postgres', got %q", c.StateBackend)
	}

	if len(c.Engines) == 0 {
		return fmt.Errorf("TRANSLATE_ENGINES must name at least one engine")
	}
	for _, e := range c.Engines {
		switch e {
		case EngineGoogle, EngineOpenAI, EngineGemini:
		default:
			return fmt.Errorf("unknown translation engine %q", e)
		}
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive")
	}
	if c.DailyLimit < 0 || c.ScanLimit < 0 {
		return fmt.Errorf("DAILY_LIMIT and SCAN_LIMIT must not be negative")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be 'text' or 'json'")
	}
	return nil
}
