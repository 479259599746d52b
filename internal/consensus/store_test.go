package consensus

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kapu/tsundoku-go/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), "syosetu", "n1234ab", zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func entry(original, english string, part domain.NamePart) domain.NameEntry {
	return domain.NameEntry{Original: original, English: english, Part: part}
}

func TestRecordVotesTallies(t *testing.T) {
	store := newTestStore(t)

	accepted := store.RecordVotes([]domain.NameEntry{
		entry("田中", "Tanaka", domain.NamePartFamily),
		entry("田中", "Tanaka", domain.NamePartFamily),
		entry("太郎", "Taro", domain.NamePartGiven),
	})

	if accepted != 3 {
		t.Fatalf("expected 3 accepted votes, got %d", accepted)
	}
	if store.NameCount() != 2 {
		t.Fatalf("expected 2 records, got %d", store.NameCount())
	}

	english, count, ok := store.Lookup("田中")
	if !ok || english != "Tanaka" || count != 2 {
		t.Errorf("expected Tanaka with 2 votes, got %q/%d/%v", english, count, ok)
	}
}

func TestRecordVotesIsAdditive(t *testing.T) {
	store := newTestStore(t)
	batch := []domain.NameEntry{
		entry("優子", "Yuko", domain.NamePartGiven),
		entry("優子", "Yuko", domain.NamePartGiven),
	}

	store.RecordVotes(batch)
	store.RecordVotes(batch)

	_, count, ok := store.Lookup("優子")
	if !ok || count != 4 {
		t.Errorf("recording the same batch twice should double the count, got %d (ok=%v)", count, ok)
	}
}

func TestRecordVotesRejectsBadOriginals(t *testing.T) {
	store := newTestStore(t)

	accepted := store.RecordVotes([]domain.NameEntry{
		entry("", "Empty", domain.NamePartUnknown),
		entry("田 中", "Tanaka", domain.NamePartFamily),      // embedded space
		entry("田中・太郎", "Tanaka", domain.NamePartUnknown), // separator dot
		entry("田中さん", "Tanaka", domain.NamePartFamily),    // honorific suffix
		entry("彼女", "Her", domain.NamePartUnknown),        // pronoun
		entry("俺", "Ore", domain.NamePartUnknown),          // pronoun
	})

	if accepted != 0 {
		t.Errorf("expected all votes rejected, got %d accepted", accepted)
	}
	if store.NameCount() != 0 {
		t.Errorf("expected empty store, got %d records", store.NameCount())
	}
}

func TestRecordVotesRejectsBadEnglish(t *testing.T) {
	store := newTestStore(t)

	accepted := store.RecordVotes([]domain.NameEntry{
		entry("田中", "", domain.NamePartFamily),
		entry("田中", "Tanaka San", domain.NamePartFamily),
		entry("田中", "Tanaka-san", domain.NamePartFamily),
	})

	if accepted != 0 {
		t.Errorf("expected all votes rejected, got %d accepted", accepted)
	}
}

func TestPartUpgradedOnlyFromUnknown(t *testing.T) {
	store := newTestStore(t)

	store.RecordVotes([]domain.NameEntry{entry("優子", "Yuko", domain.NamePartUnknown)})
	store.RecordVotes([]domain.NameEntry{entry("優子", "Yuko", domain.NamePartGiven)})
	store.RecordVotes([]domain.NameEntry{entry("優子", "Yuko", domain.NamePartFamily)})

	store.Save()
	saved := readStoreFile(t, store.Path())
	if saved.Names["優子"].Part != domain.NamePartGiven {
		t.Errorf("part should upgrade from unknown once and then stick, got %s", saved.Names["優子"].Part)
	}
}

func TestBestKeepsSeatOnTieAndYieldsWhenBeaten(t *testing.T) {
	store := newTestStore(t)

	store.RecordVotes([]domain.NameEntry{
		entry("優子", "Yuko", domain.NamePartGiven),
		entry("優子", "Yuko", domain.NamePartGiven),
		entry("優子", "Yuuko", domain.NamePartGiven),
	})
	if english, count, _ := store.Lookup("優子"); english != "Yuko" || count != 2 {
		t.Fatalf("expected Yuko/2, got %s/%d", english, count)
	}

	// Tie: the incumbent stays.
	store.RecordVotes([]domain.NameEntry{entry("優子", "Yuuko", domain.NamePartGiven)})
	if english, _, _ := store.Lookup("優子"); english != "Yuko" {
		t.Errorf("incumbent should survive a tie, got %s", english)
	}

	// Strictly beaten: the challenger takes over.
	store.RecordVotes([]domain.NameEntry{entry("優子", "Yuuko", domain.NamePartGiven)})
	if english, count, _ := store.Lookup("優子"); english != "Yuuko" || count != 3 {
		t.Errorf("expected Yuuko/3 after being outvoted, got %s/%d", english, count)
	}
}

func TestResolveBestDeterministicWithoutIncumbent(t *testing.T) {
	best, count := resolveBest(nil, map[string]int{"Beta": 2, "Alpha": 2, "Gamma": 1})
	if best != "Alpha" || count != 2 {
		t.Errorf("expected lexicographic tie-break to Alpha/2, got %s/%d", best, count)
	}

	incumbent := "Beta"
	best, count = resolveBest(&incumbent, map[string]int{"Beta": 2, "Alpha": 2})
	if best != "Beta" || count != 2 {
		t.Errorf("incumbent at max count should be kept, got %s/%d", best, count)
	}

	// Incumbent no longer among the votes at all.
	gone := "Gone"
	best, _ = resolveBest(&gone, map[string]int{"Beta": 1, "Alpha": 1})
	if best != "Alpha" {
		t.Errorf("expected Alpha after incumbent vanished, got %s", best)
	}
}

func TestLoadPurgesHandEditedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edited.json")

	raw := `{
  "names": {
    "田中さん": {"part": "family", "votes": {"Tanaka": 3}},
    "彼女": {"part": "unknown", "votes": {"Her": 2}},
    "優子": {"part": "given", "votes": {"Yuko": 2, "Yuko Chan": 5, "Yuuko-san": 4}},
    "空": null
  },
  "coverage": [2, 1]
}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := OpenFile(path, zap.NewNop())
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}

	if store.NameCount() != 1 {
		t.Fatalf("expected only 優子 to survive the purge, got %d records", store.NameCount())
	}
	english, count, ok := store.Lookup("優子")
	if !ok || english != "Yuko" || count != 2 {
		t.Errorf("expected best recomputed to Yuko/2 after stripping bad votes, got %s/%d/%v", english, count, ok)
	}

	// Purging again changes nothing.
	store.PurgeBadVotes()
	if store.NameCount() != 1 {
		t.Errorf("purge is not idempotent: %d records", store.NameCount())
	}
}

func TestCoverageDedupedAndSorted(t *testing.T) {
	store := newTestStore(t)

	store.AddCoverage([]int{1, 3, 5})
	store.AddCoverage([]int{1, 2})

	if !store.IsChapterCovered(2) || store.IsChapterCovered(4) {
		t.Errorf("coverage membership wrong")
	}
	if store.CoveredCount() != 4 {
		t.Errorf("expected 4 covered chapters, got %d", store.CoveredCount())
	}

	if err := store.Save(); err != nil {
		t.Fatal(err)
	}
	saved := readStoreFile(t, store.Path())
	want := []int{1, 2, 3, 5}
	if len(saved.Coverage) != len(want) {
		t.Fatalf("expected coverage %v, got %v", want, saved.Coverage)
	}
	for i := range want {
		if saved.Coverage[i] != want[i] {
			t.Errorf("coverage should persist sorted: expected %v, got %v", want, saved.Coverage)
			break
		}
	}
}

func TestApplyToTextLongestFirst(t *testing.T) {
	store := newTestStore(t)
	store.RecordVotes([]domain.NameEntry{
		entry("田中", "Tanaka", domain.NamePartFamily),
		entry("田", "Ta", domain.NamePartFamily),
		entry("太郎", "Taro", domain.NamePartGiven),
	})

	if got := store.ApplyToText("田中太郎"); got != "TanakaTaro" {
		t.Errorf("expected TanakaTaro, got %q", got)
	}

	// 田中 must win over its substring 田.
	if got := store.ApplyToText("田中さんと田さん"); got != "TanakaさんとTaさん" {
		t.Errorf("expected TanakaさんとTaさん, got %q", got)
	}
}

func TestApplyToTextDoesNotMutateStore(t *testing.T) {
	store := newTestStore(t)
	store.RecordVotes([]domain.NameEntry{entry("田中", "Tanaka", domain.NamePartFamily)})

	store.ApplyToText("田中は歩いた。")

	english, count, ok := store.Lookup("田中")
	if !ok || english != "Tanaka" || count != 1 {
		t.Errorf("store changed after ApplyToText: %s/%d/%v", english, count, ok)
	}
}

func TestSaveReloadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir, "kakuyomu", "16816", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	store.RecordVotes([]domain.NameEntry{
		entry("田中", "Tanaka", domain.NamePartFamily),
		entry("優子", "Yuko", domain.NamePartGiven),
	})
	store.AddCoverage([]int{1, 2})
	if err := store.Save(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewStore(dir, "kakuyomu", "16816", zap.NewNop())
	if err != nil {
		t.Fatalf("reopening failed: %v", err)
	}
	if reopened.NameCount() != 2 || reopened.CoveredCount() != 2 {
		t.Errorf("round trip lost data: %d names, %d covered", reopened.NameCount(), reopened.CoveredCount())
	}
	if english, _, _ := reopened.Lookup("田中"); english != "Tanaka" {
		t.Errorf("expected Tanaka after reload, got %s", english)
	}
}

func TestReloadFailureLeavesStateUntouched(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir, "syosetu", "n1234ab", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	store.RecordVotes([]domain.NameEntry{entry("田中", "Tanaka", domain.NamePartFamily)})
	if err := store.Save(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := store.ReloadFromDisk(); err == nil {
		t.Fatal("expected an error reloading a corrupt file")
	}
	if english, _, ok := store.Lookup("田中"); !ok || english != "Tanaka" {
		t.Errorf("in-memory state should survive a failed reload")
	}
}

func readStoreFile(t *testing.T, path string) storeFile {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading store file: %v", err)
	}
	var parsed storeFile
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("parsing store file: %v", err)
	}
	return parsed
}
