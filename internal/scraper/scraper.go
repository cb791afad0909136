// Package scraper clips single web pages into the vault.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// ErrEmptyPage is returned when the page responds without a body.
var ErrEmptyPage = errors.New("page has no content")

// Config holds scraper configuration.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int // bytes; zero uses 10 MiB
}

// Page is one captured page.
type Page struct {
	URL         string // final URL after redirects
	Title       string
	ContentType string
	Body        []byte
	FetchedAt   time.Time
}

// Scraper fetches web pages.
type Scraper struct {
	config Config
}

// New creates a new Scraper with the given configuration.
func New(config Config) *Scraper {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "lifeadmin/1.0"
	}
	if config.MaxBodySize == 0 {
		config.MaxBodySize = 10 << 20
	}
	return &Scraper{config: config}
}

// Clip fetches exactly one page. Links are not followed.
func (s *Scraper) Clip(ctx context.Context, pageURL string) (*Page, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}

	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.UserAgent(s.config.UserAgent),
		colly.MaxBodySize(s.config.MaxBodySize),
	)
	c.SetRequestTimeout(s.config.Timeout)

	var (
		page    *Page
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	c.OnResponse(func(r *colly.Response) {
		page = &Page{
			URL:         r.Request.URL.String(),
			ContentType: r.Headers.Get("Content-Type"),
			Body:        r.Body,
			FetchedAt:   time.Now(),
		}
		slog.Debug("clipped page", "url", page.URL, "content_type", page.ContentType, "size", len(r.Body))
	})

	c.OnHTML("head > title", func(e *colly.HTMLElement) {
		if page != nil && page.Title == "" {
			page.Title = strings.TrimSpace(e.Text)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("failed to fetch %s (status %d): %w", r.Request.URL, r.StatusCode, err)
	})

	if err := c.Visit(pageURL); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	c.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if page == nil || len(page.Body) == 0 {
		return nil, ErrEmptyPage
	}
	return page, nil
}
