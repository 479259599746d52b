package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/kapu/tsundoku-go/internal/constants"
	"github.com/kapu/tsundoku-go/internal/domain"
	perrors "github.com/kapu/tsundoku-go/pkg/errors"
)

const pixivRoot = "https://www.pixiv.net"

var (
	pixivNovelURLPattern  = regexp.MustCompile(`^https?://www\.pixiv\.net/novel/show\.php\?id=(\d+)`)
	pixivSeriesURLPattern = regexp.MustCompile(`^https?://www\.pixiv\.net/novel/series/(\d+)/?$`)
)

// The ajax endpoints refuse plain browser navigation; these headers mark the
// request as the site's own XHR.
var pixivHeaders = map[string]string{
	"Accept":           "application/json, text/javascript, */*; q=0.01",
	"Referer":          "https://www.pixiv.net/",
	"X-Requested-With": "XMLHttpRequest",
}

// Pixiv reads novels through the pixiv ajax API instead of scraping HTML.
// Access to R-18 and follower-only works requires session cookies loaded
// from a Netscape cookie export.
type Pixiv struct {
	client *Client
	logger *zap.Logger

	// ajaxRoot is the API origin; separate from the canonical URLs so the
	// fetch layer can be pointed elsewhere.
	ajaxRoot string
}

func NewPixiv(client *Client, logger *zap.Logger) *Pixiv {
	return &Pixiv{client: client, logger: logger, ajaxRoot: pixivRoot}
}

func (p *Pixiv) Name() string { return "Pixiv Novels" }
func (p *Pixiv) ID() string   { return "pixiv" }

func (p *Pixiv) CanHandle(rawURL string) bool {
	return pixivNovelURLPattern.MatchString(rawURL) || pixivSeriesURLPattern.MatchString(rawURL)
}

type pixivEnvelope struct {
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Body    json.RawMessage `json:"body"`
}

type pixivNovelBody struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	SeriesID string `json:"seriesId"`
}

type pixivSeriesBody struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type pixivSeriesEntry struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Series struct {
		ContentOrder int `json:"contentOrder"`
	} `json:"series"`
}

type pixivSeriesContentBody struct {
	Page struct {
		SeriesContents []pixivSeriesEntry `json:"seriesContents"`
	} `json:"page"`
}

func decodePixivEnvelope(data []byte, reqURL string, out interface{}) error {
	var env pixivEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return perrors.NewParseError("pixiv response is not valid JSON", err)
	}
	if env.Error {
		msg := env.Message
		if msg == "" {
			msg = "unknown error"
		}
		return perrors.NewScrapeError("pixiv API reported an error: "+msg, "pixiv", reqURL, nil)
	}
	if len(env.Body) == 0 || string(env.Body) == "null" {
		return perrors.NewParseError("pixiv response has no body", nil)
	}
	if err := json.Unmarshal(env.Body, out); err != nil {
		return perrors.NewParseError("pixiv response body has an unexpected shape", err)
	}
	return nil
}

func (p *Pixiv) fetchAjax(ctx context.Context, rawURL string, out interface{}) error {
	if err := p.client.RateLimit(ctx); err != nil {
		return err
	}
	data, err := p.client.GetJSON(ctx, p.ID(), rawURL, pixivHeaders)
	if err != nil {
		return err
	}
	return decodePixivEnvelope(data, rawURL, out)
}

func (p *Pixiv) GetNovelInfo(ctx context.Context, rawURL string) (*domain.NovelInfo, error) {
	if m := pixivSeriesURLPattern.FindStringSubmatch(rawURL); m != nil {
		seriesID := m[1]
		var body pixivSeriesBody
		if err := p.fetchAjax(ctx, fmt.Sprintf("%s/ajax/novel/series/%s", p.ajaxRoot, seriesID), &body); err != nil {
			return nil, err
		}
		title := cleanText(body.Title)
		if title == "" {
			return nil, perrors.NewScrapeError("series title missing from API response", p.ID(), rawURL, nil)
		}
		return &domain.NovelInfo{
			Title:   title,
			BaseURL: fmt.Sprintf("%s/novel/series/%s", pixivRoot, seriesID),
			NovelID: seriesID,
		}, nil
	}

	m := pixivNovelURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, perrors.NewValidationError("could not extract novel ID from URL", "url", rawURL)
	}
	novelID := m[1]

	var body pixivNovelBody
	if err := p.fetchAjax(ctx, fmt.Sprintf("%s/ajax/novel/%s", p.ajaxRoot, novelID), &body); err != nil {
		return nil, err
	}
	title := cleanText(body.Title)
	if title == "" {
		return nil, perrors.NewScrapeError("novel title missing from API response", p.ID(), rawURL, nil)
	}

	return &domain.NovelInfo{
		Title:   title,
		BaseURL: fmt.Sprintf("%s/novel/show.php?id=%s", pixivRoot, novelID),
		NovelID: novelID,
	}, nil
}

func (p *Pixiv) GetChapterList(ctx context.Context, info *domain.NovelInfo) (*domain.ChapterList, error) {
	if m := pixivSeriesURLPattern.FindStringSubmatch(info.BaseURL); m != nil {
		entries, err := p.fetchSeriesContents(ctx, m[1])
		if err != nil {
			return nil, err
		}
		chapters := buildPixivChapters(entries)
		if len(chapters) == 0 {
			return nil, perrors.NewScrapeError("series has no readable episodes", p.ID(), info.BaseURL, nil)
		}

		p.logger.Info("Collected series contents",
			zap.String("series_id", info.NovelID),
			zap.Int("episodes", len(chapters)))

		return &domain.ChapterList{Chapters: chapters}, nil
	}

	// An individual novel is a one-shot; its "chapter URL" is the bare novel
	// ID consumed by DownloadChapter.
	return &domain.ChapterList{
		OneShot:  true,
		Chapters: []domain.Chapter{{Number: 1, Title: info.Title, URL: info.NovelID}},
	}, nil
}

func (p *Pixiv) fetchSeriesContents(ctx context.Context, seriesID string) ([]pixivSeriesEntry, error) {
	limit := constants.ScraperConfig.SeriesPageLimit

	var all []pixivSeriesEntry
	lastOrder := 0
	for {
		reqURL := fmt.Sprintf("%s/ajax/novel/series_content/%s?limit=%d&last_order=%d&order_by=asc",
			p.ajaxRoot, seriesID, limit, lastOrder)

		var body pixivSeriesContentBody
		if err := p.fetchAjax(ctx, reqURL, &body); err != nil {
			return nil, err
		}

		contents := body.Page.SeriesContents
		all = append(all, contents...)
		if len(contents) < limit {
			break
		}
		lastOrder += len(contents)
	}
	return all, nil
}

func buildPixivChapters(entries []pixivSeriesEntry) []domain.Chapter {
	sorted := append([]pixivSeriesEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Series.ContentOrder < sorted[j].Series.ContentOrder
	})

	chapters := make([]domain.Chapter, 0, len(sorted))
	for _, entry := range sorted {
		if entry.ID == "" {
			continue
		}
		title := cleanText(entry.Title)
		if title == "" {
			title = fmt.Sprintf("Chapter %d", len(chapters)+1)
		}
		chapters = append(chapters, domain.Chapter{
			Number: len(chapters) + 1,
			Title:  title,
			URL:    entry.ID,
		})
	}
	return chapters
}

func (p *Pixiv) DownloadChapter(ctx context.Context, chapterURL string) (string, error) {
	novelID := chapterURL
	if strings.HasPrefix(chapterURL, "http") {
		m := pixivNovelURLPattern.FindStringSubmatch(chapterURL)
		if m == nil {
			return "", perrors.NewValidationError("could not extract novel ID from URL", "url", chapterURL)
		}
		novelID = m[1]
	}

	var body pixivNovelBody
	if err := p.fetchAjax(ctx, fmt.Sprintf("%s/ajax/novel/%s", p.ajaxRoot, novelID), &body); err != nil {
		return "", err
	}

	content := strings.TrimSpace(norm.NFC.String(body.Content))
	if content == "" {
		return "", perrors.NewScrapeError("novel content missing, login cookies may be required", p.ID(), novelID, nil)
	}
	return content, nil
}
