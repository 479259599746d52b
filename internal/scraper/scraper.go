// Package scraper fetches novel metadata, chapter lists and chapter text
// from the supported hosting sites. Each site adapter implements Scraper;
// the registry picks the right one for a URL.
package scraper

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/kapu/tsundoku-go/internal/domain"
	perrors "github.com/kapu/tsundoku-go/pkg/errors"
)

type Scraper interface {
	// Name is the human-readable site name, ID the short token used in
	// directory and name-file naming.
	Name() string
	ID() string
	CanHandle(url string) bool
	GetNovelInfo(ctx context.Context, url string) (*domain.NovelInfo, error)
	GetChapterList(ctx context.Context, info *domain.NovelInfo) (*domain.ChapterList, error)
	DownloadChapter(ctx context.Context, chapterURL string) (string, error)
}

type Registry struct {
	scrapers []Scraper
}

func NewRegistry(scrapers ...Scraper) *Registry {
	return &Registry{scrapers: scrapers}
}

// FindForURL returns the first scraper that recognizes the URL.
func (r *Registry) FindForURL(rawURL string) (Scraper, error) {
	for _, s := range r.scrapers {
		if s.CanHandle(rawURL) {
			return s, nil
		}
	}
	return nil, perrors.NewValidationError("no scraper supports this URL", "url", rawURL)
}

func (r *Registry) Scrapers() []Scraper {
	return r.scrapers
}

// cleanText trims and NFC-normalizes scraped text. Sites mix precomposed and
// decomposed kana; normalizing here keeps name matching byte-exact later.
func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func resolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
