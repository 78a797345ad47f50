// Package wordpress is a minimal WordPress REST API client covering media
// upload and post creation with application-password basic auth.
package wordpress

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	apiPrefix = "/wp-json/wp/v2"
	dateGMT   = "2006-01-02T15:04:05"
)

// Media is the subset of the media object returned after upload.
type Media struct {
	ID        int    `json:"id"`
	SourceURL string `json:"source_url"`
}

// Post is the subset of the post object returned after creation.
type Post struct {
	ID            int    `json:"id"`
	Link          string `json:"link"`
	Status        string `json:"status"`
	FeaturedMedia int    `json:"featured_media"`
}

// NewPost describes a post to create. Zero FeaturedMedia and zero Date are omitted.
type NewPost struct {
	Title         string
	Content       string
	Status        string
	FeaturedMedia int
	Date          time.Time // sent as date_gmt
}

// APIError is a non-2xx answer from the REST API.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" && e.Message == "" {
		return fmt.Sprintf("wordpress: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("wordpress: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Client struct {
	rest *resty.Client
}

// New builds a client for the site at baseURL (e.g. https://example.com/wp).
func New(baseURL, user, appPassword string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rest := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+apiPrefix).
		SetBasicAuth(user, appPassword).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "feedpress/1.0")

	return &Client{rest: rest}
}

// UploadMedia sends r as a multipart file named filename.
func (c *Client) UploadMedia(ctx context.Context, filename, contentType string, r io.Reader) (Media, error) {
	var media Media
	apiErr := &APIError{}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename)).
		SetMultipartField("file", filename, contentType, r).
		SetResult(&media).
		SetError(apiErr).
		Post("/media")
	if err != nil {
		return Media{}, fmt.Errorf("upload media: %w", err)
	}
	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		return Media{}, fmt.Errorf("upload media: %w", apiErr)
	}
	if media.ID == 0 {
		return Media{}, fmt.Errorf("upload media: response without id")
	}
	return media, nil
}

// CreatePost creates a post and returns its id and public link.
func (c *Client) CreatePost(ctx context.Context, p NewPost) (Post, error) {
	body := map[string]any{
		"title":   p.Title,
		"content": p.Content,
		"status":  p.Status,
	}
	if p.FeaturedMedia > 0 {
		body["featured_media"] = p.FeaturedMedia
	}
	if !p.Date.IsZero() {
		body["date_gmt"] = p.Date.UTC().Format(dateGMT)
	}

	var post Post
	apiErr := &APIError{}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&post).
		SetError(apiErr).
		Post("/posts")
	if err != nil {
		return Post{}, fmt.Errorf("create post: %w", err)
	}
	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		return Post{}, fmt.Errorf("create post: %w", apiErr)
	}
	if post.ID == 0 {
		return Post{}, fmt.Errorf("create post: response without id")
	}
	return post, nil
}
