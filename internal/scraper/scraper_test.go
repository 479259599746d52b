package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	perrors "github.com/kapu/tsundoku-go/pkg/errors"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(0, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	client := newTestClient(t)
	logger := zap.NewNop()
	return NewRegistry(
		NewSyosetu(client, logger),
		NewKakuyomu(client, logger),
		NewPixiv(client, logger),
	)
}

func TestRegistryFindForURL(t *testing.T) {
	registry := newTestRegistry(t)

	cases := []struct {
		url    string
		wantID string
	}{
		{"https://ncode.syosetu.com/n9669bk/", "syosetu"},
		{"https://ncode.syosetu.com/n9669bk/3/", "syosetu"},
		{"http://ncode.syosetu.com/n9669bk", "syosetu"},
		{"https://novel18.syosetu.com/n5040cg/", "syosetu"},
		{"https://kakuyomu.jp/works/1177354054880238351", "kakuyomu"},
		{"https://kakuyomu.jp/works/1177354054880238351/episodes/1177354054880238356", "kakuyomu"},
		{"https://www.pixiv.net/novel/show.php?id=12345678", "pixiv"},
		{"https://www.pixiv.net/novel/series/987654", "pixiv"},
	}
	for _, tc := range cases {
		s, err := registry.FindForURL(tc.url)
		if err != nil {
			t.Fatalf("FindForURL(%q): %v", tc.url, err)
		}
		if s.ID() != tc.wantID {
			t.Fatalf("FindForURL(%q) = %s, want %s", tc.url, s.ID(), tc.wantID)
		}
	}
}

func TestRegistryRejectsUnknownURL(t *testing.T) {
	registry := newTestRegistry(t)

	for _, u := range []string{
		"https://example.com/novel/1",
		"https://syosetu.com/",
		"https://www.pixiv.net/artworks/12345",
		"",
	} {
		if _, err := registry.FindForURL(u); !perrors.IsValidation(err) {
			t.Fatalf("FindForURL(%q) err = %v, want validation error", u, err)
		}
	}
}

func TestCleanTextComposesNFC(t *testing.T) {
	// Katakana HA plus a combining voiced mark composes to BA.
	if got := cleanText(" バトル "); got != "バトル" {
		t.Fatalf("cleanText = %q, want %q", got, "バトル")
	}
}

func TestResolveURL(t *testing.T) {
	cases := []struct {
		base, href, want string
	}{
		{"https://ncode.syosetu.com/n9669bk/", "/n9669bk/1/", "https://ncode.syosetu.com/n9669bk/1/"},
		{"https://kakuyomu.jp", "/works/123/episodes/456", "https://kakuyomu.jp/works/123/episodes/456"},
		{"https://ncode.syosetu.com/n9669bk/", "https://other.example/x", "https://other.example/x"},
	}
	for _, tc := range cases {
		if got := resolveURL(tc.base, tc.href); got != tc.want {
			t.Fatalf("resolveURL(%q, %q) = %q, want %q", tc.base, tc.href, got, tc.want)
		}
	}
}
