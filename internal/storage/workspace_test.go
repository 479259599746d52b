package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`a/b\c*d?e"f<g>h|i`, "a_b_c_d_e_f_g_h_i"},
		{"Title... ", "Title"},
		{"[syosetu: n1234ab] 転生物語", "[syosetu: n1234ab] 転生物語"},
		{"ただのタイトル", "ただのタイトル"},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Fatalf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestChapterFileNamePadsToTotalWidth(t *testing.T) {
	if got := ChapterFileName(3, 120, "プロローグ"); got != "003 - プロローグ.txt" {
		t.Fatalf("name = %q", got)
	}
	if got := ChapterFileName(12, 50, "midpoint"); got != "12 - midpoint.txt" {
		t.Fatalf("name = %q", got)
	}
	if got := ChapterFileName(1, 7, `第1話/開幕`); got != "1 - 第1話_開幕.txt" {
		t.Fatalf("name = %q", got)
	}
}

func TestStoryDirCreatesAndReuses(t *testing.T) {
	out := t.TempDir()
	w := NewWorkspace(out, zap.NewNop())

	dir, err := w.StoryDir("syosetu", "n1234ab", "転生物語")
	if err != nil {
		t.Fatalf("StoryDir: %v", err)
	}
	if filepath.Base(dir) != "[syosetu: n1234ab] 転生物語" {
		t.Fatalf("dir = %q", filepath.Base(dir))
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("story dir not created: %v", err)
	}

	// A retitled translation must land in the same directory.
	again, err := w.StoryDir("syosetu", "n1234ab", "Reincarnation Story")
	if err != nil {
		t.Fatalf("StoryDir again: %v", err)
	}
	if again != dir {
		t.Fatalf("retitled run created %q, want reuse of %q", again, dir)
	}
}

func TestStoryDirReusesLegacyLayout(t *testing.T) {
	out := t.TempDir()
	legacy := filepath.Join(out, "[n1234ab] Old Title")
	if err := os.MkdirAll(legacy, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	w := NewWorkspace(out, zap.NewNop())
	dir, err := w.StoryDir("syosetu", "n1234ab", "New Title")
	if err != nil {
		t.Fatalf("StoryDir: %v", err)
	}
	if dir != legacy {
		t.Fatalf("dir = %q, want legacy %q", dir, legacy)
	}
}

func TestStoryDirSanitizesTitle(t *testing.T) {
	w := NewWorkspace(t.TempDir(), zap.NewNop())

	dir, err := w.StoryDir("pixiv", "999", `Series/One: "Quotes"`)
	if err != nil {
		t.Fatalf("StoryDir: %v", err)
	}
	base := filepath.Base(dir)
	if strings.ContainsAny(base, `/\*?"<>|`) {
		t.Fatalf("dir %q contains unsafe characters", base)
	}
	if !strings.HasPrefix(base, "[pixiv: 999]") {
		t.Fatalf("dir %q lost its prefix", base)
	}
}

func TestChapterRoundTripAndSkipChecks(t *testing.T) {
	w := NewWorkspace(t.TempDir(), zap.NewNop())
	dir, err := w.StoryDir("syosetu", "n1", "物語")
	if err != nil {
		t.Fatalf("StoryDir: %v", err)
	}

	if w.IsChapterTranslated(dir, 3, 120) {
		t.Fatal("chapter reported translated before writing")
	}

	path, err := w.WriteChapter(dir, 3, 120, "The Meeting", "translated text")
	if err != nil {
		t.Fatalf("WriteChapter: %v", err)
	}
	if filepath.Base(path) != "003 - The Meeting.txt" {
		t.Fatalf("path = %q", path)
	}

	// The prefix match must hold even if a re-run would title it differently.
	if !w.IsChapterTranslated(dir, 3, 120) {
		t.Fatal("chapter not reported translated")
	}
	if w.IsChapterTranslated(dir, 4, 120) {
		t.Fatal("wrong chapter reported translated")
	}

	if _, ok, err := w.ReadOriginal(dir, 3, 120, "第三話"); err != nil || ok {
		t.Fatalf("ReadOriginal before write = ok %v, err %v", ok, err)
	}
	if _, err := w.WriteOriginal(dir, 3, 120, "第三話", "原文"); err != nil {
		t.Fatalf("WriteOriginal: %v", err)
	}
	got, ok, err := w.ReadOriginal(dir, 3, 120, "第三話")
	if err != nil || !ok {
		t.Fatalf("ReadOriginal = ok %v, err %v", ok, err)
	}
	if got != "原文" {
		t.Fatalf("original = %q", got)
	}

	if _, err := os.Stat(filepath.Join(dir, "Original", "003 - 第三話.txt")); err != nil {
		t.Fatalf("original not under Original/: %v", err)
	}
}

func TestWriteFileAtomicLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deep", "nested", "file.txt")

	if err := WriteFileAtomic(path, []byte("data")); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil || string(data) != "data" {
		t.Fatalf("read back = %q, %v", data, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	// Overwrite goes through the same path.
	if err := WriteFileAtomic(path, []byte("updated")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "updated" {
		t.Fatalf("after overwrite = %q", data)
	}
}
