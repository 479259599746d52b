// Package scout extracts character name votes from novel text by asking a
// model for structured JSON, one chunk at a time. Scouting is best-effort: a
// chunk that keeps failing is dropped, never fatal, because missing a few
// votes only weakens the consensus slightly while a hard failure would stall
// the whole pipeline.
package scout

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/tsundoku-go/internal/chunker"
	"github.com/kapu/tsundoku-go/internal/domain"
	"github.com/kapu/tsundoku-go/internal/llm"
	"github.com/kapu/tsundoku-go/internal/prompt"
	"github.com/kapu/tsundoku-go/internal/util"
	perrors "github.com/kapu/tsundoku-go/pkg/errors"
)

type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

type Config struct {
	ChunkSize    int           // runes per scouted chunk
	Retries      int           // attempts per chunk before dropping it
	RequestDelay time.Duration // spacing before each model call
}

type Scout struct {
	completer Completer
	chunkSize int
	retries   int
	delay     time.Duration
	backoff   func(attempt int) time.Duration
	logger    *zap.Logger
}

func New(completer Completer, cfg Config, logger *zap.Logger) *Scout {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 2500
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = 3
	}

	return &Scout{
		completer: completer,
		chunkSize: chunkSize,
		retries:   retries,
		delay:     cfg.RequestDelay,
		backoff:   util.Backoff,
		logger:    logger,
	}
}

// Result reports what happened per chunk, keeping "parsed fine but found no
// names" distinguishable from "gave up".
type Result struct {
	Entries   [][]domain.NameEntry // one inner list per succeeded chunk with entries
	Succeeded int                  // chunks that parsed, with or without entries
	Empty     int                  // succeeded chunks that contributed nothing
	Exhausted int                  // chunks dropped after the retry budget
}

// CollectNames chunks text and scouts each chunk independently. Only context
// cancellation aborts the call; everything else degrades per chunk.
func (s *Scout) CollectNames(ctx context.Context, text string) (*Result, error) {
	chunks := chunker.Split(text, s.chunkSize)
	result := &Result{Entries: make([][]domain.NameEntry, 0, len(chunks))}

	for i, chunk := range chunks {
		entries, err := s.scoutChunk(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Exhausted++
			s.logger.Warn("Dropping chunk after exhausting retries",
				zap.Int("chunk", i+1),
				zap.Int("total_chunks", len(chunks)),
				zap.Error(err))
			continue
		}

		result.Succeeded++
		if len(entries) == 0 {
			result.Empty++
			continue
		}
		result.Entries = append(result.Entries, entries)
	}

	return result, nil
}

func (s *Scout) scoutChunk(ctx context.Context, chunk string) ([]domain.NameEntry, error) {
	messages := []llm.Message{
		llm.System(prompt.ScoutSystem),
		llm.User(chunk),
	}

	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		if err := util.Sleep(ctx, s.delay); err != nil {
			return nil, err
		}

		reply, err := s.completer.Complete(ctx, messages)
		if err == nil && llm.IsRefusal(reply) {
			err = perrors.NewRefusalError(util.TruncateString(reply, 80))
		}
		if err == nil {
			entries, parseErr := parseResponse(reply)
			if parseErr == nil {
				return entries, nil
			}
			err = parseErr
		}

		lastErr = err
		s.logger.Warn("Scout attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("retries", s.retries),
			zap.Error(err))

		// Sleeps after the final failure too; the next chunk hits the same
		// endpoint and deserves the same spacing.
		if err := util.Sleep(ctx, s.backoff(attempt+1)); err != nil {
			return nil, err
		}
	}

	return nil, perrors.NewExhaustedError(s.retries, lastErr)
}

var codeFencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

type scoutPayload struct {
	Names []struct {
		Original string `json:"original"`
		English  string `json:"english"`
		Part     string `json:"part"`
	} `json:"names"`
}

// parseResponse digs the JSON object out of whatever the model wrapped it
// in: a Markdown fence, leading prose, trailing commentary. Entries missing
// either side are dropped; an unrecognized part degrades to unknown.
func parseResponse(reply string) ([]domain.NameEntry, error) {
	cleaned := strings.TrimSpace(reply)

	if match := codeFencePattern.FindStringSubmatch(cleaned); len(match) > 1 {
		cleaned = match[1]
	} else {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "```json"))
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "```"))
		cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, "```"))
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || start >= end {
		return nil, perrors.NewParseError("no JSON object in scout reply", nil)
	}
	cleaned = cleaned[start : end+1]

	var payload scoutPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, perrors.NewParseError("scout reply is not valid JSON", err)
	}

	entries := make([]domain.NameEntry, 0, len(payload.Names))
	for _, name := range payload.Names {
		original := strings.TrimSpace(name.Original)
		english := strings.TrimSpace(name.English)
		if original == "" || english == "" {
			continue
		}
		entries = append(entries, domain.NameEntry{
			Original: original,
			English:  english,
			Part:     domain.ParseNamePart(name.Part),
		})
	}

	return entries, nil
}
