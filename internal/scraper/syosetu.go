package scraper

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kapu/tsundoku-go/internal/constants"
	"github.com/kapu/tsundoku-go/internal/domain"
	perrors "github.com/kapu/tsundoku-go/pkg/errors"
)

var (
	syosetuURLPattern   = regexp.MustCompile(`^https?://ncode\.syosetu\.com/n\w+/?(\d+/?)?$`)
	syosetu18URLPattern = regexp.MustCompile(`^https?://novel18\.syosetu\.com/n\w+/?(\d+/?)?$`)
	syosetuIDPattern    = regexp.MustCompile(`\.com/(n[a-z0-9]+)`)
	syosetuBasePattern  = regexp.MustCompile(`(https?://[\w.]+/n\w+)`)
)

// Novel body blocks, excluding the preface and afterword the author attaches
// around the chapter proper.
const syosetuContentSelector = ".p-novel__text.js-novel-text" +
	":not(.p-novel__text--preface):not(.p-novel__text--afterword)"

// Syosetu scrapes Shousetsuka ni Narou (ncode.syosetu.com) and its adult
// mirror novel18.syosetu.com. The mirror sits behind an age gate that a
// plain over18=yes cookie satisfies.
type Syosetu struct {
	client *Client
	logger *zap.Logger
}

func NewSyosetu(client *Client, logger *zap.Logger) *Syosetu {
	return &Syosetu{client: client, logger: logger}
}

func (s *Syosetu) Name() string { return "Shousetsuka ni Narou" }
func (s *Syosetu) ID() string   { return "syosetu" }

func (s *Syosetu) CanHandle(rawURL string) bool {
	return syosetuURLPattern.MatchString(rawURL) || syosetu18URLPattern.MatchString(rawURL)
}

func (s *Syosetu) headers(rawURL string) map[string]string {
	if strings.Contains(rawURL, "novel18.") {
		return map[string]string{"Cookie": "over18=yes"}
	}
	return nil
}

func (s *Syosetu) parseURL(rawURL string) (novelID, baseURL string, err error) {
	idMatch := syosetuIDPattern.FindStringSubmatch(rawURL)
	if idMatch == nil {
		return "", "", perrors.NewValidationError("could not extract novel ID from URL", "url", rawURL)
	}
	baseMatch := syosetuBasePattern.FindStringSubmatch(rawURL)
	if baseMatch == nil {
		return "", "", perrors.NewValidationError("could not derive base URL", "url", rawURL)
	}

	baseURL = baseMatch[1]
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return idMatch[1], baseURL, nil
}

func (s *Syosetu) GetNovelInfo(ctx context.Context, rawURL string) (*domain.NovelInfo, error) {
	novelID, baseURL, err := s.parseURL(rawURL)
	if err != nil {
		return nil, err
	}

	if err := s.client.RateLimit(ctx); err != nil {
		return nil, err
	}
	doc, err := s.client.GetDocument(ctx, s.ID(), baseURL, s.headers(baseURL))
	if err != nil {
		return nil, err
	}

	title := parseSyosetuTitle(doc)
	if title == "" {
		return nil, perrors.NewScrapeError("novel title not found, page layout may have changed", s.ID(), baseURL, nil)
	}

	return &domain.NovelInfo{Title: title, BaseURL: baseURL, NovelID: novelID}, nil
}

func (s *Syosetu) GetChapterList(ctx context.Context, info *domain.NovelInfo) (*domain.ChapterList, error) {
	var chapters []domain.Chapter
	pageURL := info.BaseURL

	for page := 1; page <= constants.ScraperConfig.MaxIndexPages; page++ {
		if err := s.client.RateLimit(ctx); err != nil {
			return nil, err
		}
		doc, err := s.client.GetDocument(ctx, s.ID(), pageURL, s.headers(pageURL))
		if err != nil {
			return nil, err
		}

		found := parseSyosetuChapters(doc, info.BaseURL, len(chapters))
		if page == 1 && len(found) == 0 {
			// An index page without chapter links but with body text is a
			// one-shot, not a layout change.
			if doc.Find(syosetuContentSelector).Length() > 0 || doc.Find("#novel_honbun").Length() > 0 {
				s.logger.Info("Detected one-shot novel", zap.String("novel_id", info.NovelID))
				return &domain.ChapterList{
					OneShot:  true,
					Chapters: []domain.Chapter{{Number: 1, Title: info.Title, URL: info.BaseURL}},
				}, nil
			}
			return nil, perrors.NewScrapeError("no chapters found, page layout may have changed", s.ID(), pageURL, nil)
		}
		chapters = append(chapters, found...)

		next := findSyosetuNextPage(doc, info.BaseURL)
		if next == "" {
			break
		}
		pageURL = next
	}

	s.logger.Info("Collected chapter list",
		zap.String("novel_id", info.NovelID),
		zap.Int("chapters", len(chapters)))

	return &domain.ChapterList{Chapters: chapters}, nil
}

func (s *Syosetu) DownloadChapter(ctx context.Context, chapterURL string) (string, error) {
	if err := s.client.RateLimit(ctx); err != nil {
		return "", err
	}
	doc, err := s.client.GetDocument(ctx, s.ID(), chapterURL, s.headers(chapterURL))
	if err != nil {
		return "", err
	}

	content := parseSyosetuContent(doc)
	if content == "" {
		return "", perrors.NewScrapeError("chapter content not found, page layout may have changed", s.ID(), chapterURL, nil)
	}
	return content, nil
}

func parseSyosetuTitle(doc *goquery.Document) string {
	title := doc.Find(".p-novel__title").First().Text()
	if strings.TrimSpace(title) == "" {
		title = doc.Find("p.novel_title").First().Text()
	}
	return cleanText(title)
}

func parseSyosetuChapters(doc *goquery.Document, baseURL string, offset int) []domain.Chapter {
	links := doc.Find(".p-eplist__sublist > a")
	if links.Length() == 0 {
		links = doc.Find(".novel_sublist2 > dd > a")
	}

	var chapters []domain.Chapter
	links.Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		chapters = append(chapters, domain.Chapter{
			Number: offset + len(chapters) + 1,
			Title:  cleanText(a.Text()),
			URL:    resolveURL(baseURL, href),
		})
	})
	return chapters
}

func findSyosetuNextPage(doc *goquery.Document, baseURL string) string {
	if href, ok := doc.Find("a.c-pager__item--next").First().Attr("href"); ok && href != "" {
		return resolveURL(baseURL, href)
	}

	var next string
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := strings.TrimSpace(a.Text())
		if text != "次へ" && text != "次ページ" {
			return true
		}
		if href, ok := a.Attr("href"); ok && href != "" {
			next = resolveURL(baseURL, href)
			return false
		}
		return true
	})
	return next
}

func parseSyosetuContent(doc *goquery.Document) string {
	blocks := doc.Find(syosetuContentSelector)
	if blocks.Length() == 0 {
		blocks = doc.Find("#novel_honbun")
	}

	var lines []string
	blocks.Each(func(_ int, block *goquery.Selection) {
		// Drop furigana readings so ruby text does not duplicate the base.
		block.Find("rt").Remove()

		paragraphs := block.Find("p")
		if paragraphs.Length() == 0 {
			if text := cleanText(block.Text()); text != "" {
				lines = append(lines, text)
			}
			return
		}
		paragraphs.Each(func(_ int, p *goquery.Selection) {
			lines = append(lines, cleanText(p.Text()))
		})
	})

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
