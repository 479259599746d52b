// Package translate turns Japanese chapter text into English through a
// streaming chat completions model, one chunk at a time, carrying a rolling
// window of recent exchanges so the model keeps names and tone consistent
// across chunk boundaries.
package translate

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kapu/tsundoku-go/internal/chunker"
	"github.com/kapu/tsundoku-go/internal/constants"
	"github.com/kapu/tsundoku-go/internal/llm"
	"github.com/kapu/tsundoku-go/internal/prompt"
	"github.com/kapu/tsundoku-go/internal/util"
	perrors "github.com/kapu/tsundoku-go/pkg/errors"
)

// FailureMarker prefixes a chunk that kept failing after every retry. The
// original text follows on the next line so nothing is ever silently lost.
const FailureMarker = "[TRANSLATION FAILED]"

type Streamer interface {
	Stream(ctx context.Context, messages []llm.Message, onDelta func(delta string)) (string, error)
}

type Config struct {
	ChunkSize    int           // runes per translated chunk
	Retries      int           // attempts per chunk before giving up on it
	HistoryPairs int           // user/assistant pairs kept in the rolling window
	RequestDelay time.Duration // pause after each successful chunk
}

// Progress is a snapshot of one streaming chunk in flight. Chapter is left
// zero here; the caller's sink fills it in when it knows which chapter is
// being translated.
type Progress struct {
	Chapter     int
	Chunk       int
	TotalChunks int
	Chars       int // runes received so far
	Elapsed     time.Duration
	Preview     string // tail of the text so far, newlines flattened
}

type Translator struct {
	model        Streamer
	chunkSize    int
	retries      int
	historyPairs int
	delay        time.Duration
	backoff      func(attempt int) time.Duration
	logger       *zap.Logger

	// OnProgress, when set, receives throttled snapshots while a chunk
	// streams. Leave nil to disable reporting.
	OnProgress func(Progress)
}

func New(model Streamer, cfg Config, logger *zap.Logger) *Translator {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 4000
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = 3
	}

	return &Translator{
		model:        model,
		chunkSize:    chunkSize,
		retries:      retries,
		historyPairs: cfg.HistoryPairs,
		delay:        cfg.RequestDelay,
		backoff:      util.Backoff,
		logger:       logger,
	}
}

// Translate renders text into English. Title mode is a single attempt whose
// failure surfaces as an error; content mode chunks the text and degrades
// per chunk, so the only errors it returns are context cancellations.
func (t *Translator) Translate(ctx context.Context, text string, isTitle bool) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if isTitle {
		return t.translateTitle(ctx, text)
	}
	return t.translateContent(ctx, text)
}

func (t *Translator) translateTitle(ctx context.Context, title string) (string, error) {
	messages := []llm.Message{
		llm.System(prompt.TitleSystem),
		llm.User(title),
	}

	reply, err := t.model.Stream(ctx, messages, nil)
	if err != nil {
		return "", err
	}

	translated := strings.TrimSpace(reply)
	if translated == "" {
		return "", perrors.NewParseError("model returned an empty title translation", nil)
	}
	if llm.IsRefusal(translated) {
		return "", perrors.NewRefusalError(util.TruncateString(translated, 80))
	}

	return translated, nil
}

func (t *Translator) translateContent(ctx context.Context, content string) (string, error) {
	chunks := chunker.Split(content, t.chunkSize)
	history := NewHistory(prompt.ContentSystem, t.historyPairs)
	translated := make([]string, 0, len(chunks))

	for i, chunk := range chunks {
		out, err := t.translateChunk(ctx, history, chunk, i+1, len(chunks))
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			t.logger.Warn("Keeping original text for chunk after exhausting retries",
				zap.Int("chunk", i+1),
				zap.Int("total_chunks", len(chunks)),
				zap.Error(err))
			out = FailureMarker + "\n" + chunk
		}
		translated = append(translated, out)
	}

	return strings.Join(translated, "\n\n"), nil
}

func (t *Translator) translateChunk(ctx context.Context, history *History, chunk string, index, total int) (string, error) {
	messages := append(history.Messages(), llm.User(chunk))

	var lastErr error
	for attempt := 0; attempt < t.retries; attempt++ {
		var onDelta func(string)
		if t.OnProgress != nil {
			reporter := &progressReporter{sink: t.OnProgress, chunk: index, total: total, start: time.Now()}
			onDelta = reporter.onDelta
		}

		reply, err := t.model.Stream(ctx, messages, onDelta)
		if err == nil {
			out := strings.TrimSpace(reply)
			switch {
			case out == "":
				err = perrors.NewParseError("model returned an empty translation", nil)
			case llm.IsRefusal(out):
				err = perrors.NewRefusalError(util.TruncateString(out, 80))
			default:
				// The window only ever holds exchanges that actually worked.
				history.Append(chunk, out)
				if err := util.Sleep(ctx, t.delay); err != nil {
					return "", err
				}
				return out, nil
			}
		}

		lastErr = err
		t.logger.Warn("Translation attempt failed",
			zap.Int("chunk", index),
			zap.Int("attempt", attempt+1),
			zap.Int("retries", t.retries),
			zap.Error(err))

		if attempt+1 < t.retries {
			if err := util.Sleep(ctx, t.backoff(attempt+1)); err != nil {
				return "", err
			}
		}
	}

	return "", perrors.NewExhaustedError(t.retries, lastErr)
}

// progressReporter throttles sink calls to one per report interval. The
// first delta always reports so slow streams show signs of life immediately.
type progressReporter struct {
	sink       func(Progress)
	chunk      int
	total      int
	start      time.Time
	lastReport time.Time
	text       strings.Builder
	chars      int
}

func (r *progressReporter) onDelta(delta string) {
	r.text.WriteString(delta)
	r.chars += utf8.RuneCountInString(delta)

	now := time.Now()
	if !r.lastReport.IsZero() && now.Sub(r.lastReport) < constants.ProgressConfig.ReportInterval {
		return
	}
	r.lastReport = now

	r.sink(Progress{
		Chunk:       r.chunk,
		TotalChunks: r.total,
		Chars:       r.chars,
		Elapsed:     now.Sub(r.start),
		Preview:     util.FlattenSpaces(util.TailRunes(r.text.String(), constants.ProgressConfig.PreviewRunes)),
	})
}
