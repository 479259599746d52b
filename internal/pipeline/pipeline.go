// Package pipeline drives a work through the four processing phases:
// download the originals, scout names, review the name file, translate.
// Every phase is resumable; finished artifacts on disk are never redone.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/kapu/tsundoku-go/internal/config"
	"github.com/kapu/tsundoku-go/internal/consensus"
	"github.com/kapu/tsundoku-go/internal/domain"
	"github.com/kapu/tsundoku-go/internal/prompt"
	"github.com/kapu/tsundoku-go/internal/scout"
	"github.com/kapu/tsundoku-go/internal/scraper"
	"github.com/kapu/tsundoku-go/internal/storage"
	"github.com/kapu/tsundoku-go/internal/translate"
	perrors "github.com/kapu/tsundoku-go/pkg/errors"
)

// Options narrows a run to a chapter range. Zero values mean "from the
// beginning" and "through the end".
type Options struct {
	Start      int
	End        int
	SkipReview bool
}

type Pipeline struct {
	registry   *scraper.Registry
	scout      *scout.Scout
	translator *translate.Translator
	workspace  *storage.Workspace
	cfg        *config.Config
	logger     *zap.Logger

	// OnProgress receives translation progress stamped with the chapter
	// number. Nil disables reporting.
	OnProgress func(translate.Progress)

	stdin  io.Reader
	stdout io.Writer
}

func New(registry *scraper.Registry, sc *scout.Scout, tr *translate.Translator, ws *storage.Workspace, cfg *config.Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		registry:   registry,
		scout:      sc,
		translator: tr,
		workspace:  ws,
		cfg:        cfg,
		logger:     logger,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
	}
}

// work carries everything the phases need about one resolved novel.
type work struct {
	scraper  scraper.Scraper
	info     *domain.NovelInfo
	chapters []domain.Chapter
	oneShot  bool
	total    int
	start    int
	end      int
	store    *consensus.Store
	storyDir string
	quiet    bool
}

func (w *work) rangeChapters() []domain.Chapter {
	if len(w.chapters) == 0 {
		return nil
	}
	return w.chapters[w.start-1 : w.end]
}

// Run executes all phases for a single work URL.
func (p *Pipeline) Run(ctx context.Context, rawURL string, opts Options) error {
	return p.run(ctx, rawURL, opts, false)
}

func (p *Pipeline) run(ctx context.Context, rawURL string, opts Options, quiet bool) error {
	w, err := p.prepare(ctx, rawURL, opts)
	if err != nil {
		return err
	}
	w.quiet = quiet
	if err := p.fetchPhase(ctx, w); err != nil {
		return err
	}
	scouted, err := p.scoutPhase(ctx, w)
	if err != nil {
		return err
	}
	if scouted > 0 && !opts.SkipReview {
		if err := p.reviewPhase(ctx, w); err != nil {
			return err
		}
	}
	return p.translatePhase(ctx, w)
}

// Download runs only the fetch phase.
func (p *Pipeline) Download(ctx context.Context, rawURL string, opts Options) error {
	w, err := p.prepare(ctx, rawURL, opts)
	if err != nil {
		return err
	}
	return p.fetchPhase(ctx, w)
}

// ScoutNames downloads missing originals, scouts names for uncovered
// chapters and opens the review gate.
func (p *Pipeline) ScoutNames(ctx context.Context, rawURL string, opts Options) error {
	w, err := p.prepare(ctx, rawURL, opts)
	if err != nil {
		return err
	}
	if err := p.fetchPhase(ctx, w); err != nil {
		return err
	}
	scouted, err := p.scoutPhase(ctx, w)
	if err != nil {
		return err
	}
	if scouted > 0 && !opts.SkipReview {
		return p.reviewPhase(ctx, w)
	}
	return nil
}

// TranslateWork downloads missing originals and translates, applying
// whatever name mappings the store already holds. Scouting is skipped.
func (p *Pipeline) TranslateWork(ctx context.Context, rawURL string, opts Options) error {
	w, err := p.prepare(ctx, rawURL, opts)
	if err != nil {
		return err
	}
	if err := p.fetchPhase(ctx, w); err != nil {
		return err
	}
	return p.translatePhase(ctx, w)
}

// RunAll processes a batch of work URLs. With review enabled the works run
// one after another so the interactive gate owns the terminal; with
// SkipReview they run concurrently and the failures are reported together.
func (p *Pipeline) RunAll(ctx context.Context, urls []string, opts Options) error {
	if !opts.SkipReview || len(urls) < 2 {
		for _, u := range urls {
			if err := p.run(ctx, u, opts, false); err != nil {
				return fmt.Errorf("work %s failed: %w", u, err)
			}
		}
		return nil
	}

	batch := pool.New().WithMaxGoroutines(p.cfg.Pipeline.Concurrency)
	errs := make([]error, len(urls))
	for idx, u := range urls {
		idx, u := idx, u
		batch.Go(func() {
			if err := p.run(ctx, u, opts, true); err != nil {
				errs[idx] = fmt.Errorf("work %s failed: %w", u, err)
			}
		})
	}
	batch.Wait()
	return errors.Join(errs...)
}

func (p *Pipeline) prepare(ctx context.Context, rawURL string, opts Options) (*work, error) {
	site, err := p.registry.FindForURL(rawURL)
	if err != nil {
		return nil, err
	}

	info, err := site.GetNovelInfo(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	p.logger.Info("Resolved novel",
		zap.String("site", site.ID()),
		zap.String("novel_id", info.NovelID),
		zap.String("title", info.Title))

	list, err := site.GetChapterList(ctx, info)
	if err != nil {
		return nil, err
	}

	start, end, err := resolveRange(opts, list)
	if err != nil {
		return nil, err
	}

	store, err := consensus.NewStore(p.cfg.Workspace.NamesDir, site.ID(), info.NovelID, p.logger)
	if err != nil {
		return nil, err
	}

	storyDir, err := p.resolveStoryDir(ctx, site, info)
	if err != nil {
		return nil, err
	}

	return &work{
		scraper:  site,
		info:     info,
		chapters: list.Chapters,
		oneShot:  list.OneShot,
		total:    list.Len(),
		start:    start,
		end:      end,
		store:    store,
		storyDir: storyDir,
	}, nil
}

func resolveRange(opts Options, list *domain.ChapterList) (int, int, error) {
	total := list.Len()
	if list.OneShot {
		if opts.Start != 0 || opts.End != 0 {
			return 0, 0, perrors.NewValidationError("chapter ranges do not apply to one-shots",
				"range", fmt.Sprintf("%d-%d", opts.Start, opts.End))
		}
		return 1, total, nil
	}

	start, end := opts.Start, opts.End
	if start == 0 {
		start = 1
	}
	if end == 0 {
		end = total
	}
	if start < 1 || end > total || start > end {
		return 0, 0, perrors.NewValidationError(
			fmt.Sprintf("chapter range must satisfy 1 <= start <= end <= %d", total),
			"range", fmt.Sprintf("%d-%d", start, end))
	}
	return start, end, nil
}

// resolveStoryDir translates the title so the directory is readable in the
// target language. A failed title translation is not fatal; the original
// title still identifies the work.
func (p *Pipeline) resolveStoryDir(ctx context.Context, site scraper.Scraper, info *domain.NovelInfo) (string, error) {
	title, err := p.translator.Translate(ctx, info.Title, true)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		p.logger.Warn("Title translation failed, using the original title for the story directory",
			zap.Error(err))
		title = info.Title
	}
	if title == "" {
		title = info.Title
	}
	return p.workspace.StoryDir(site.ID(), info.NovelID, title)
}

func (p *Pipeline) fetchPhase(ctx context.Context, w *work) error {
	if w.oneShot {
		return p.fetchOneShot(ctx, w)
	}

	pending := make([]domain.Chapter, 0, w.end-w.start+1)
	for _, ch := range w.rangeChapters() {
		_, ok, err := p.workspace.ReadOriginal(w.storyDir, ch.Number, w.total, ch.Title)
		if err != nil {
			return err
		}
		if !ok {
			pending = append(pending, ch)
		}
	}
	if len(pending) == 0 {
		p.logger.Info("All originals already downloaded",
			zap.Int("start", w.start), zap.Int("end", w.end))
		return nil
	}

	p.logger.Info("Downloading originals",
		zap.Int("chapters", len(pending)),
		zap.Int("concurrency", p.cfg.Pipeline.Concurrency))

	dl := pool.New().WithMaxGoroutines(p.cfg.Pipeline.Concurrency)
	errs := make([]error, len(pending))
	for idx, ch := range pending {
		idx, ch := idx, ch
		dl.Go(func() {
			errs[idx] = p.downloadChapter(ctx, w, ch)
		})
	}
	dl.Wait()
	return errors.Join(errs...)
}

func (p *Pipeline) downloadChapter(ctx context.Context, w *work, ch domain.Chapter) error {
	content, err := w.scraper.DownloadChapter(ctx, ch.URL)
	if err != nil {
		return fmt.Errorf("failed to download chapter %d: %w", ch.Number, err)
	}
	if _, err := p.workspace.WriteOriginal(w.storyDir, ch.Number, w.total, ch.Title, content); err != nil {
		return err
	}
	p.logger.Info("Downloaded chapter",
		zap.Int("chapter", ch.Number), zap.String("title", ch.Title))
	return nil
}

func (p *Pipeline) fetchOneShot(ctx context.Context, w *work) error {
	if _, ok, err := p.workspace.ReadOneShotOriginal(w.storyDir); err != nil {
		return err
	} else if ok {
		return nil
	}

	content, err := w.scraper.DownloadChapter(ctx, w.chapters[0].URL)
	if err != nil {
		return fmt.Errorf("failed to download one-shot: %w", err)
	}
	if _, err := p.workspace.WriteOneShotOriginal(w.storyDir, content); err != nil {
		return err
	}
	p.logger.Info("Downloaded one-shot", zap.String("title", w.info.Title))
	return nil
}

func (p *Pipeline) readOriginal(w *work, ch domain.Chapter) (string, bool, error) {
	if w.oneShot {
		return p.workspace.ReadOneShotOriginal(w.storyDir)
	}
	return p.workspace.ReadOriginal(w.storyDir, ch.Number, w.total, ch.Title)
}

// scoutPhase collects name votes for every chapter in range that is not
// already covered. Returns how many chapters were newly scouted.
func (p *Pipeline) scoutPhase(ctx context.Context, w *work) (int, error) {
	scouted := 0
	for _, ch := range w.rangeChapters() {
		if w.store.IsChapterCovered(ch.Number) {
			continue
		}

		content, ok, err := p.readOriginal(w, ch)
		if err != nil {
			return scouted, err
		}
		if !ok {
			p.logger.Warn("Original missing, skipping name scout", zap.Int("chapter", ch.Number))
			continue
		}

		result, err := p.scout.CollectNames(ctx, prompt.ChapterPayload(ch.Number, ch.Title, content))
		if err != nil {
			return scouted, err
		}

		accepted := 0
		for _, entries := range result.Entries {
			accepted += w.store.RecordVotes(entries)
		}
		if err := w.store.Save(); err != nil {
			return scouted, err
		}

		w.store.AddCoverage([]int{ch.Number})
		if err := w.store.Save(); err != nil {
			return scouted, err
		}

		scouted++
		p.logger.Info("Scouted chapter",
			zap.Int("chapter", ch.Number),
			zap.Int("accepted", accepted),
			zap.Int("chunks_ok", result.Succeeded),
			zap.Int("chunks_dropped", result.Exhausted))
	}
	return scouted, nil
}

func (p *Pipeline) translatePhase(ctx context.Context, w *work) error {
	reportProgress := p.OnProgress != nil && !w.quiet
	if reportProgress {
		defer func() { p.translator.OnProgress = nil }()
	}

	for _, ch := range w.rangeChapters() {
		if w.oneShot {
			if p.workspace.IsOneShotTranslated(w.storyDir) {
				p.logger.Info("One-shot already translated", zap.String("title", w.info.Title))
				continue
			}
		} else if p.workspace.IsChapterTranslated(w.storyDir, ch.Number, w.total) {
			p.logger.Debug("Chapter already translated", zap.Int("chapter", ch.Number))
			continue
		}

		content, ok, err := p.readOriginal(w, ch)
		if err != nil {
			return err
		}
		if !ok {
			return perrors.NewStorageError(
				fmt.Sprintf("original for chapter %d is missing", ch.Number),
				"read", w.storyDir, nil)
		}

		title := ""
		if !w.oneShot {
			title, err = p.translator.Translate(ctx, w.store.ApplyToText(ch.Title), true)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.logger.Warn("Chapter title translation failed, keeping the original",
					zap.Int("chapter", ch.Number), zap.Error(err))
				title = ch.Title + " [TRANSLATION_FAILED]"
			}
		}

		if reportProgress {
			number := ch.Number
			p.translator.OnProgress = func(pr translate.Progress) {
				pr.Chapter = number
				p.OnProgress(pr)
			}
		}

		body, err := p.translator.Translate(ctx, w.store.ApplyToText(content), false)
		if err != nil {
			return fmt.Errorf("failed to translate chapter %d: %w", ch.Number, err)
		}

		if w.oneShot {
			if _, err := p.workspace.WriteOneShotTranslated(w.storyDir, body); err != nil {
				return err
			}
			p.logger.Info("Translated one-shot", zap.String("title", w.info.Title))
			continue
		}

		path, err := p.workspace.WriteChapter(w.storyDir, ch.Number, w.total, title, body)
		if err != nil {
			return err
		}
		p.logger.Info("Translated chapter",
			zap.Int("chapter", ch.Number), zap.String("file", path))
	}
	return nil
}
