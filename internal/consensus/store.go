// Package consensus maintains the per-work character name map. Every scouted
// vote is tallied; the rendering with the most votes wins and is what gets
// substituted into the text before translation. The file on disk is meant to
// be opened in an editor mid-run, so it stays small, indented and stable.
package consensus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/tsundoku-go/internal/domain"
	"github.com/kapu/tsundoku-go/internal/util"
	perrors "github.com/kapu/tsundoku-go/pkg/errors"
)

type Record struct {
	Part    domain.NamePart `json:"part"`
	Votes   map[string]int  `json:"votes"`
	English *string         `json:"english,omitempty"`
	Count   *int            `json:"count,omitempty"`
}

type storeFile struct {
	Names    map[string]*Record `json:"names"`
	Coverage []int              `json:"coverage"`
}

type Store struct {
	names    map[string]*Record
	coverage []int
	path     string
	logger   *zap.Logger
}

// FileName returns the per-work store file name. Windows forbids ':' in file
// names, so the separator degrades to a dash there.
func FileName(site, novelID string) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf("%s - %s.json", site, novelID)
	}
	return fmt.Sprintf("%s: %s.json", site, novelID)
}

// NewStore opens the name store for one work, loading and purging the file
// when it already exists. A corrupt file is an error: silently starting
// empty would throw away the consensus built over previous runs.
func NewStore(dir, site, novelID string, logger *zap.Logger) (*Store, error) {
	store := &Store{
		names:    make(map[string]*Record),
		coverage: make([]int, 0),
		path:     filepath.Join(dir, FileName(site, novelID)),
		logger:   logger,
	}

	if _, err := os.Stat(store.path); err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, perrors.NewStorageError("failed to stat name store", "open", store.path, err)
	}

	if err := store.ReloadFromDisk(); err != nil {
		return nil, err
	}
	return store, nil
}

// OpenFile loads a store from an explicit path. The file must exist.
func OpenFile(path string, logger *zap.Logger) (*Store, error) {
	store := &Store{
		names:    make(map[string]*Record),
		coverage: make([]int, 0),
		path:     path,
		logger:   logger,
	}
	if err := store.ReloadFromDisk(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) NameCount() int {
	return len(s.names)
}

// Lookup returns the winning rendering and its vote count for an original,
// when one has been decided.
func (s *Store) Lookup(original string) (string, int, bool) {
	record, ok := s.names[original]
	if !ok || record.English == nil || record.Count == nil {
		return "", 0, false
	}
	return *record.English, *record.Count, true
}

// RecordVotes runs every entry through the rejection rules and tallies the
// survivors. Votes are additive: submitting the same entry again increments
// its count again. A part is only upgraded away from unknown, never flipped
// between family and given. The whole batch ends with a purge so nothing
// recorded under an older, looser rule set outlives a tightening.
// Returns the number of accepted votes.
func (s *Store) RecordVotes(entries []domain.NameEntry) int {
	accepted := 0

	for _, entry := range entries {
		original := strings.TrimSpace(entry.Original)
		english := strings.TrimSpace(entry.English)

		if reason := rejectionReason(original, english); reason != "" {
			s.logger.Debug("Vote rejected",
				zap.String("rule", reason),
				zap.String("original", original),
				zap.String("english", english))
			continue
		}

		record, ok := s.names[original]
		if !ok {
			record = &Record{
				Part:  entry.Part,
				Votes: make(map[string]int),
			}
			s.names[original] = record
		}

		if record.Part == domain.NamePartUnknown && entry.Part != domain.NamePartUnknown {
			record.Part = entry.Part
		}

		record.Votes[english]++
		record.recalculateBest()
		accepted++
	}

	s.PurgeBadVotes()
	return accepted
}

// PurgeBadVotes drops records whose original violates the rules and strips
// votes whose rendering does, then recomputes each winner. Idempotent; runs
// after load, after manual edits and after every vote batch.
func (s *Store) PurgeBadVotes() {
	for original, record := range s.names {
		if record == nil || badOriginal(original) {
			delete(s.names, original)
			continue
		}

		for english := range record.Votes {
			if badEnglishVote(english) {
				delete(record.Votes, english)
			}
		}

		record.recalculateBest()

		if len(record.Votes) == 0 {
			delete(s.names, original)
		}
	}
}

func (r *Record) recalculateBest() {
	best, count := resolveBest(r.English, r.Votes)
	if count == 0 {
		r.English = nil
		r.Count = nil
		return
	}
	r.English = &best
	r.Count = &count
}

// resolveBest picks the winning rendering. The previous winner keeps its
// seat while it still holds a maximal vote count; otherwise the
// lexicographically smallest maximal candidate takes over. The outcome never
// depends on map iteration order.
func resolveBest(prevBest *string, votes map[string]int) (string, int) {
	maxCount := 0
	for _, count := range votes {
		if count > maxCount {
			maxCount = count
		}
	}
	if maxCount == 0 {
		return "", 0
	}

	if prevBest != nil {
		if count, ok := votes[*prevBest]; ok && count == maxCount {
			return *prevBest, maxCount
		}
	}

	best := ""
	for english, count := range votes {
		if count != maxCount {
			continue
		}
		if best == "" || english < best {
			best = english
		}
	}
	return best, maxCount
}

func (s *Store) IsChapterCovered(chapter int) bool {
	for _, covered := range s.coverage {
		if covered == chapter {
			return true
		}
	}
	return false
}

func (s *Store) CoveredCount() int {
	return len(s.coverage)
}

// AddCoverage merges chapter numbers into the covered set, kept sorted and
// deduplicated.
func (s *Store) AddCoverage(chapters []int) {
	combined := make([]int, 0, len(s.coverage)+len(chapters))
	combined = append(combined, s.coverage...)
	combined = append(combined, chapters...)

	merged := util.Unique(combined)
	sort.Ints(merged)
	s.coverage = merged
}

// ApplyToText substitutes every decided name into text, longest original
// first so 田中 never clobbers 田中太郎. Ties on length fall back to
// lexicographic order. The replacement is a single pass: substituted English
// is never itself rescanned. The store is not modified.
func (s *Store) ApplyToText(text string) string {
	type pair struct {
		original string
		english  string
	}

	pairs := make([]pair, 0, len(s.names))
	for original, record := range s.names {
		if record.English == nil || *record.English == "" {
			continue
		}
		pairs = append(pairs, pair{original: original, english: *record.English})
	}
	if len(pairs) == 0 {
		return text
	}

	sort.Slice(pairs, func(i, j int) bool {
		if len(pairs[i].original) != len(pairs[j].original) {
			return len(pairs[i].original) > len(pairs[j].original)
		}
		return pairs[i].original < pairs[j].original
	})

	oldnew := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		oldnew = append(oldnew, p.original, p.english)
	}
	return strings.NewReplacer(oldnew...).Replace(text)
}

// Save writes the store atomically: serialize, write a temp file alongside,
// rename over the target. A crash mid-save leaves the previous file intact.
func (s *Store) Save() error {
	data := storeFile{
		Names:    s.names,
		Coverage: s.coverage,
	}

	serialized, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return perrors.NewStorageError("failed to serialize name store", "save", s.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return perrors.NewStorageError("failed to create names directory", "save", s.path, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, serialized, 0o644); err != nil {
		return perrors.NewStorageError("failed to write name store", "save", s.path, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return perrors.NewStorageError("failed to finalize name store", "save", s.path, err)
	}

	return nil
}

// ReloadFromDisk replaces the in-memory state with the file's contents, then
// purges. On any read or parse error the in-memory state is left untouched,
// so a botched manual edit can be fixed and reloaded again.
func (s *Store) ReloadFromDisk() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return perrors.NewStorageError("failed to read name store", "reload", s.path, err)
	}

	var parsed storeFile
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return perrors.NewStorageError("name store file is not valid JSON", "reload", s.path, err)
	}

	if parsed.Names == nil {
		parsed.Names = make(map[string]*Record)
	}
	for original, record := range parsed.Names {
		if record == nil {
			delete(parsed.Names, original)
			continue
		}
		if record.Votes == nil {
			record.Votes = make(map[string]int)
		}
	}
	if parsed.Coverage == nil {
		parsed.Coverage = make([]int, 0)
	}

	s.names = parsed.Names
	s.coverage = parsed.Coverage
	s.PurgeBadVotes()

	s.logger.Debug("Name store loaded",
		zap.String("path", s.path),
		zap.Int("names", len(s.names)),
		zap.Int("covered_chapters", len(s.coverage)))

	return nil
}
