package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kapu/tsundoku-go/internal/constants"
	"github.com/kapu/tsundoku-go/internal/util"
	perrors "github.com/kapu/tsundoku-go/pkg/errors"
)

// Client is the fetch layer shared by every site adapter: one HTTP client
// with a cookie jar, a desktop browser user agent, and a configurable pause
// between page fetches so the sites see a polite reader, not a crawler.
type Client struct {
	http   *http.Client
	delay  time.Duration
	logger *zap.Logger
}

func NewClient(delay time.Duration, logger *zap.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		http: &http.Client{
			Timeout: constants.HTTPConfig.ClientTimeout,
			Jar:     jar,
		},
		delay:  delay,
		logger: logger,
	}, nil
}

// RateLimit pauses before the next fetch. Adapters call it ahead of every
// page request.
func (c *Client) RateLimit(ctx context.Context) error {
	return util.Sleep(ctx, c.delay)
}

// SetCookies seeds the jar as if the cookies had been set by u.
func (c *Client) SetCookies(u *url.URL, cookies []*http.Cookie) {
	c.http.Jar.SetCookies(u, cookies)
}

func (c *Client) get(ctx context.Context, site, rawURL string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, perrors.NewValidationError("invalid URL", "url", rawURL)
	}
	req.Header.Set("User-Agent", constants.HTTPConfig.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug("Fetching page", zap.String("site", site), zap.String("url", rawURL))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, perrors.NewTransportError("page request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, perrors.NewScrapeError(
			fmt.Sprintf("unexpected status %d", resp.StatusCode), site, rawURL, nil)
	}
	return resp, nil
}

// GetDocument fetches an HTML page and parses it.
func (c *Client) GetDocument(ctx context.Context, site, rawURL string, headers map[string]string) (*goquery.Document, error) {
	resp, err := c.get(ctx, site, rawURL, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, perrors.NewParseError("failed to parse HTML page", err)
	}
	return doc, nil
}

// GetJSON fetches a JSON endpoint and returns the raw body. A non-JSON
// content type usually means a login wall served an HTML page instead.
func (c *Client) GetJSON(ctx context.Context, site, rawURL string, headers map[string]string) ([]byte, error) {
	resp, err := c.get(ctx, site, rawURL, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "json") {
		return nil, perrors.NewParseError(
			fmt.Sprintf("expected JSON response, got content type %q", ct), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, perrors.NewTransportError("failed to read response body", err)
	}
	return data, nil
}
