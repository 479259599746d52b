package scraper

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kapu/tsundoku-go/internal/domain"
	perrors "github.com/kapu/tsundoku-go/pkg/errors"
)

const kakuyomuRoot = "https://kakuyomu.jp"

var (
	kakuyomuURLPattern     = regexp.MustCompile(`^https?://kakuyomu\.jp/works/(\d+)(?:/episodes/\d+)?/?$`)
	kakuyomuIDPattern      = regexp.MustCompile(`/works/(\d+)`)
	kakuyomuEpisodePattern = regexp.MustCompile(`/episodes/\d+/?$`)
)

// Kakuyomu scrapes kakuyomu.jp. The site ships a hashed-class React layout,
// so selectors match on stable class-name prefixes instead of exact names.
type Kakuyomu struct {
	client *Client
	logger *zap.Logger
}

func NewKakuyomu(client *Client, logger *zap.Logger) *Kakuyomu {
	return &Kakuyomu{client: client, logger: logger}
}

func (k *Kakuyomu) Name() string { return "Kakuyomu" }
func (k *Kakuyomu) ID() string   { return "kakuyomu" }

func (k *Kakuyomu) CanHandle(rawURL string) bool {
	return kakuyomuURLPattern.MatchString(rawURL)
}

func (k *Kakuyomu) parseURL(rawURL string) (workID, baseURL string, err error) {
	m := kakuyomuIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", "", perrors.NewValidationError("could not extract work ID from URL", "url", rawURL)
	}

	baseURL = kakuyomuEpisodePattern.ReplaceAllString(rawURL, "")
	baseURL = strings.TrimSuffix(baseURL, "/")
	return m[1], baseURL, nil
}

func (k *Kakuyomu) GetNovelInfo(ctx context.Context, rawURL string) (*domain.NovelInfo, error) {
	workID, baseURL, err := k.parseURL(rawURL)
	if err != nil {
		return nil, err
	}

	if err := k.client.RateLimit(ctx); err != nil {
		return nil, err
	}
	doc, err := k.client.GetDocument(ctx, k.ID(), baseURL, nil)
	if err != nil {
		return nil, err
	}

	title := parseKakuyomuTitle(doc)
	if title == "" {
		return nil, perrors.NewScrapeError("work title not found, page layout may have changed", k.ID(), baseURL, nil)
	}

	return &domain.NovelInfo{Title: title, BaseURL: baseURL, NovelID: workID}, nil
}

func (k *Kakuyomu) GetChapterList(ctx context.Context, info *domain.NovelInfo) (*domain.ChapterList, error) {
	if err := k.client.RateLimit(ctx); err != nil {
		return nil, err
	}
	doc, err := k.client.GetDocument(ctx, k.ID(), info.BaseURL, nil)
	if err != nil {
		return nil, err
	}

	chapters := parseKakuyomuChapters(doc)
	if len(chapters) == 0 {
		return nil, perrors.NewScrapeError("no episodes found, page layout may have changed", k.ID(), info.BaseURL, nil)
	}

	k.logger.Info("Collected episode list",
		zap.String("work_id", info.NovelID),
		zap.Int("episodes", len(chapters)))

	return &domain.ChapterList{Chapters: chapters}, nil
}

func (k *Kakuyomu) DownloadChapter(ctx context.Context, chapterURL string) (string, error) {
	if err := k.client.RateLimit(ctx); err != nil {
		return "", err
	}
	doc, err := k.client.GetDocument(ctx, k.ID(), chapterURL, nil)
	if err != nil {
		return "", err
	}

	content := parseKakuyomuContent(doc)
	if content == "" {
		return "", perrors.NewScrapeError("episode body not found, page layout may have changed", k.ID(), chapterURL, nil)
	}
	return content, nil
}

func parseKakuyomuTitle(doc *goquery.Document) string {
	link := doc.Find(`h1[class^="Heading_heading"] a`).First()
	if title, ok := link.Attr("title"); ok && strings.TrimSpace(title) != "" {
		return cleanText(title)
	}
	return cleanText(link.Text())
}

func parseKakuyomuChapters(doc *goquery.Document) []domain.Chapter {
	var chapters []domain.Chapter
	doc.Find(`a[class^="WorkTocSection_link"]`).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		chapters = append(chapters, domain.Chapter{
			Number: len(chapters) + 1,
			Title:  cleanText(a.Text()),
			URL:    resolveURL(kakuyomuRoot, href),
		})
	})
	return chapters
}

func parseKakuyomuContent(doc *goquery.Document) string {
	body := doc.Find("div.widget-episodeBody").First()

	var lines []string
	body.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := cleanText(p.Text()); text != "" {
			lines = append(lines, text)
		}
	})
	if len(lines) > 0 {
		return strings.Join(lines, "\n")
	}

	return cleanText(body.Text())
}
