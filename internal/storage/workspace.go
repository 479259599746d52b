// Package storage lays out the on-disk workspace: one directory per work,
// translated chapters at the top level, downloaded originals underneath.
// Layout is the contract that makes re-runs resumable, so every name here
// is produced by a single function.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	perrors "github.com/kapu/tsundoku-go/pkg/errors"
)

const (
	originalSubdir    = "Original"
	oneShotOriginal   = "original.txt"
	oneShotTranslated = "oneshot.txt"
)

// Characters that are unsafe in filenames on at least one supported
// platform. The colon is deliberately kept: story directories embed
// "[site: id]" and existing workspaces depend on it.
var filenameSanitizer = strings.NewReplacer(
	"\\", "_",
	"/", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

func SanitizeFilename(name string) string {
	return strings.TrimRight(filenameSanitizer.Replace(name), ". ")
}

// ChapterFileName builds "NN - title.txt" with NN zero-padded to the width
// of the total chapter count, so directory listings sort naturally.
func ChapterFileName(number, total int, title string) string {
	return ChapterFilePrefix(number, total) + SanitizeFilename(title) + ".txt"
}

func ChapterFilePrefix(number, total int) string {
	width := len(strconv.Itoa(total))
	return fmt.Sprintf("%0*d - ", width, number)
}

// WriteFileAtomic writes through a temp file and renames it into place, so
// an interrupted run never leaves a half-written chapter behind.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return perrors.NewStorageError("failed to create directory", "mkdir", dir, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return perrors.NewStorageError("failed to write temp file", "write", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return perrors.NewStorageError("failed to move file into place", "rename", path, err)
	}
	return nil
}

type Workspace struct {
	outputDir string
	logger    *zap.Logger
}

func NewWorkspace(outputDir string, logger *zap.Logger) *Workspace {
	return &Workspace{outputDir: outputDir, logger: logger}
}

// StoryDir finds or creates the directory for a work. An existing directory
// matching "[site: id]" (or the legacy "[id]") is reused even when the
// translated title changed between runs, so a retitled translation does not
// fork the workspace.
func (w *Workspace) StoryDir(site, novelID, title string) (string, error) {
	prefix := fmt.Sprintf("[%s: %s]", site, novelID)
	legacy := fmt.Sprintf("[%s]", novelID)

	entries, err := os.ReadDir(w.outputDir)
	if err != nil && !os.IsNotExist(err) {
		return "", perrors.NewStorageError("failed to read output directory", "read", w.outputDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) || strings.HasPrefix(entry.Name(), legacy) {
			dir := filepath.Join(w.outputDir, entry.Name())
			w.logger.Debug("Reusing story directory", zap.String("dir", dir))
			return dir, nil
		}
	}

	name := strings.TrimSpace(prefix + " " + SanitizeFilename(title))
	dir := filepath.Join(w.outputDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", perrors.NewStorageError("failed to create story directory", "mkdir", dir, err)
	}
	return dir, nil
}

// IsChapterTranslated reports whether any "NN - *.txt" file exists for the
// chapter. Matching by prefix keeps the check stable when a re-run
// translates the chapter title differently.
func (w *Workspace) IsChapterTranslated(storyDir string, number, total int) bool {
	entries, err := os.ReadDir(storyDir)
	if err != nil {
		return false
	}
	prefix := ChapterFilePrefix(number, total)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) && strings.HasSuffix(entry.Name(), ".txt") {
			return true
		}
	}
	return false
}

func (w *Workspace) WriteChapter(storyDir string, number, total int, title, content string) (string, error) {
	path := filepath.Join(storyDir, ChapterFileName(number, total, title))
	if err := WriteFileAtomic(path, []byte(content)); err != nil {
		return "", err
	}
	return path, nil
}

func (w *Workspace) originalPath(storyDir string, number, total int, title string) string {
	return filepath.Join(storyDir, originalSubdir, ChapterFileName(number, total, title))
}

func (w *Workspace) WriteOriginal(storyDir string, number, total int, title, content string) (string, error) {
	path := w.originalPath(storyDir, number, total, title)
	if err := WriteFileAtomic(path, []byte(content)); err != nil {
		return "", err
	}
	return path, nil
}

// ReadOriginal returns the stored original text for a chapter, or ok=false
// when it has not been downloaded yet.
func (w *Workspace) ReadOriginal(storyDir string, number, total int, title string) (string, bool, error) {
	path := w.originalPath(storyDir, number, total, title)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, perrors.NewStorageError("failed to read original chapter", "read", path, err)
	}
	return string(data), true, nil
}

// One-shot works skip the numbered layout and use a fixed file pair in the
// story directory.

func (w *Workspace) OneShotOriginalPath(storyDir string) string {
	return filepath.Join(storyDir, oneShotOriginal)
}

func (w *Workspace) OneShotTranslatedPath(storyDir string) string {
	return filepath.Join(storyDir, oneShotTranslated)
}

func (w *Workspace) ReadOneShotOriginal(storyDir string) (string, bool, error) {
	path := w.OneShotOriginalPath(storyDir)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, perrors.NewStorageError("failed to read one-shot original", "read", path, err)
	}
	return string(data), true, nil
}

func (w *Workspace) WriteOneShotOriginal(storyDir, content string) (string, error) {
	path := w.OneShotOriginalPath(storyDir)
	if err := WriteFileAtomic(path, []byte(content)); err != nil {
		return "", err
	}
	return path, nil
}

func (w *Workspace) IsOneShotTranslated(storyDir string) bool {
	_, err := os.Stat(w.OneShotTranslatedPath(storyDir))
	return err == nil
}

func (w *Workspace) WriteOneShotTranslated(storyDir, content string) (string, error) {
	path := w.OneShotTranslatedPath(storyDir)
	if err := WriteFileAtomic(path, []byte(content)); err != nil {
		return "", err
	}
	return path, nil
}
