// Package publisher turns a translated article into a CMS post: it downloads
// and uploads the representative image, composes the body and creates the
// post. Image problems never block the post.
package publisher

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/deusflow/feedpress/internal/retry"
	"github.com/deusflow/feedpress/internal/scraper"
	"github.com/deusflow/feedpress/internal/security"
	"github.com/deusflow/feedpress/internal/wordpress"
)

const maxImageBytes = 20 << 20

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// CMS is the part of the WordPress client the publisher needs.
type CMS interface {
	UploadMedia(ctx context.Context, filename, contentType string, r io.Reader) (wordpress.Media, error)
	CreatePost(ctx context.Context, p wordpress.NewPost) (wordpress.Post, error)
}

// Article is a translated article ready to publish.
type Article struct {
	Title       string // translated
	Body        string // translated intermediate text
	SourceTitle string
	Link        string
	PublishedAt time.Time
	ImageURL    string // empty for no featured image
}

type Options struct {
	Status       string
	PreserveDate bool
	ImageInBody  bool
	StyleWrapper bool
	SourceLabel  string
	TempDir      string
	Retry        retry.RetryConfig
}

type Publisher struct {
	cms       CMS
	client    *http.Client
	sanitizer *security.BodySanitizer
	opts      Options
	log       *slog.Logger
	now       func() time.Time
}

// New builds a Publisher. client is used for image downloads.
func New(cms CMS, client *http.Client, opts Options, log *slog.Logger) *Publisher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	if opts.Status == "" {
		opts.Status = "publish"
	}
	if opts.SourceLabel == "" {
		opts.SourceLabel = "원문"
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}
	return &Publisher{
		cms:       cms,
		client:    client,
		sanitizer: security.NewBodySanitizer(),
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

// Publish creates the post for a. Media failures are logged and the post is
// created without featured media. The temporary image file is always removed.
func (p *Publisher) Publish(ctx context.Context, a Article) (wordpress.Post, error) {
	log := p.log.With("link", a.Link)

	var media wordpress.Media
	if a.ImageURL != "" {
		media = p.attachImage(ctx, log, a.ImageURL)
	}

	np := wordpress.NewPost{
		Title:         html.EscapeString(a.Title),
		Content:       p.ComposeBody(a, media.SourceURL),
		Status:        p.opts.Status,
		FeaturedMedia: media.ID,
	}
	if p.opts.PreserveDate {
		np.Date = a.PublishedAt
	}

	post, err := p.cms.CreatePost(ctx, np)
	if err != nil {
		return wordpress.Post{}, fmt.Errorf("create post: %w", err)
	}
	log.Info("post created", "post_id", post.ID, "post_link", post.Link, "featured_media", media.ID)
	return post, nil
}

func (p *Publisher) attachImage(ctx context.Context, log *slog.Logger, imageURL string) wordpress.Media {
	file, err := p.download(ctx, log, imageURL)
	if file != "" {
		defer func() {
			if rmErr := os.Remove(file); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				log.Debug("temp image not removed", "file", file, "error", rmErr)
			}
		}()
	}
	if err != nil {
		log.Warn("image download failed, posting without featured media", "image", imageURL, "error", err)
		return wordpress.Media{}
	}

	media, err := p.upload(ctx, log, file)
	if err != nil {
		log.Warn("media upload failed, posting without featured media", "image", imageURL, "error", err)
		return wordpress.Media{}
	}
	log.Info("media uploaded", "media_id", media.ID, "file", filepath.Base(file))
	return media
}

func (p *Publisher) retryConfig(log *slog.Logger, op string) retry.RetryConfig {
	cfg := p.opts.Retry
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.Warn(op+" failed, retrying", "attempt", attempt, "wait", wait, "error", err)
	}
	return cfg
}

// download saves imageURL into the temp dir. The returned path is set
// whenever a file may exist, even alongside an error.
func (p *Publisher) download(ctx context.Context, log *slog.Logger, imageURL string) (string, error) {
	file := filepath.Join(p.opts.TempDir, ImageFileName(imageURL, p.now()))

	err := retry.WithRetry(ctx, p.retryConfig(log, "image download"), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("User-Agent", scraper.BrowserUserAgent)

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("HTTP error: %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return retry.Permanent(err)
			}
			return err
		}

		f, err := os.Create(file)
		if err != nil {
			return retry.Permanent(fmt.Errorf("create temp file: %w", err))
		}
		n, copyErr := io.Copy(f, io.LimitReader(resp.Body, maxImageBytes+1))
		closeErr := f.Close()
		switch {
		case copyErr != nil:
			return fmt.Errorf("read image: %w", copyErr)
		case closeErr != nil:
			return fmt.Errorf("write image: %w", closeErr)
		case n == 0:
			return retry.Permanent(errors.New("empty image"))
		case n > maxImageBytes:
			return retry.Permanent(fmt.Errorf("image larger than %d bytes", maxImageBytes))
		}
		return nil
	})
	return file, err
}

func (p *Publisher) upload(ctx context.Context, log *slog.Logger, file string) (wordpress.Media, error) {
	name := filepath.Base(file)
	var media wordpress.Media

	err := retry.WithRetry(ctx, p.retryConfig(log, "media upload"), func() error {
		f, err := os.Open(file)
		if err != nil {
			return retry.Permanent(err)
		}
		defer f.Close()

		m, err := p.cms.UploadMedia(ctx, name, contentTypeFor(name), f)
		if err != nil {
			var apiErr *wordpress.APIError
			if errors.As(err, &apiErr) && !apiErr.Temporary() {
				return retry.Permanent(err)
			}
			return err
		}
		media = m
		return nil
	})
	return media, err
}

// ImageFileName builds drone_<unix>_<md5(url)[:8]><ext>. The extension comes
// from the URL path when it is a known image type and defaults to .jpg.
func ImageFileName(imageURL string, now time.Time) string {
	sum := md5.Sum([]byte(imageURL))
	hash := hex.EncodeToString(sum[:])[:8]

	ext := ".jpg"
	if u, err := url.Parse(imageURL); err == nil {
		if e := strings.ToLower(path.Ext(u.Path)); allowedImageExts[e] {
			ext = e
		}
	}
	return fmt.Sprintf("drone_%d_%s%s", now.Unix(), hash, ext)
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/jpeg"
}
