package scraper

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	perrors "github.com/kapu/tsundoku-go/pkg/errors"
)

func TestKakuyomuParseURL(t *testing.T) {
	k := NewKakuyomu(newTestClient(t), zap.NewNop())

	cases := []struct {
		url      string
		wantID   string
		wantBase string
	}{
		{"https://kakuyomu.jp/works/1177354054880238351", "1177354054880238351", "https://kakuyomu.jp/works/1177354054880238351"},
		{"https://kakuyomu.jp/works/1177354054880238351/", "1177354054880238351", "https://kakuyomu.jp/works/1177354054880238351"},
		{"https://kakuyomu.jp/works/1177354054880238351/episodes/1177354054880238356", "1177354054880238351", "https://kakuyomu.jp/works/1177354054880238351"},
	}
	for _, tc := range cases {
		id, base, err := k.parseURL(tc.url)
		if err != nil {
			t.Fatalf("parseURL(%q): %v", tc.url, err)
		}
		if id != tc.wantID || base != tc.wantBase {
			t.Fatalf("parseURL(%q) = %q, %q; want %q, %q", tc.url, id, base, tc.wantID, tc.wantBase)
		}
	}

	if _, _, err := k.parseURL("https://kakuyomu.jp/users/someone"); !perrors.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestParseKakuyomuTitlePrefersTitleAttr(t *testing.T) {
	withAttr := mustDoc(t, `<h1 class="Heading_heading__lQ85n"><a href="/works/1" title="完全なタイトル">短縮…</a></h1>`)
	if got := parseKakuyomuTitle(withAttr); got != "完全なタイトル" {
		t.Fatalf("title = %q", got)
	}

	textOnly := mustDoc(t, `<h1 class="Heading_heading__lQ85n"><a href="/works/1">本文タイトル</a></h1>`)
	if got := parseKakuyomuTitle(textOnly); got != "本文タイトル" {
		t.Fatalf("title from text = %q", got)
	}
}

func TestParseKakuyomuChapters(t *testing.T) {
	doc := mustDoc(t, `
<div>
  <a class="WorkTocSection_link__ocg9K" href="/works/1/episodes/11">第1話　出会い</a>
  <a class="WorkTocSection_link__ocg9K" href="/works/1/episodes/12">第2話　別れ</a>
</div>`)

	chapters := parseKakuyomuChapters(doc)
	if len(chapters) != 2 {
		t.Fatalf("chapters = %d, want 2", len(chapters))
	}
	if chapters[0].URL != "https://kakuyomu.jp/works/1/episodes/11" {
		t.Fatalf("url = %q", chapters[0].URL)
	}
	if chapters[1].Number != 2 || chapters[1].Title != "第2話　別れ" {
		t.Fatalf("chapter 2 = %+v", chapters[1])
	}
}

func TestParseKakuyomuContent(t *testing.T) {
	doc := mustDoc(t, `
<div class="widget-episodeBody js-episode-body">
  <p id="p1">朝が来た。</p>
  <p id="p2"><br></p>
  <p id="p3">彼女は窓を開けた。</p>
</div>`)

	if got := parseKakuyomuContent(doc); got != "朝が来た。\n彼女は窓を開けた。" {
		t.Fatalf("content = %q", got)
	}

	bare := mustDoc(t, `<div class="widget-episodeBody">地の文だけ。</div>`)
	if got := parseKakuyomuContent(bare); got != "地の文だけ。" {
		t.Fatalf("bare content = %q", got)
	}
}

func TestKakuyomuDownloadChapter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<html><body>
<div class="widget-episodeBody"><p>零時を過ぎた。</p><p>街は静かだ。</p></div>
</body></html>`)
	}))
	defer server.Close()

	k := NewKakuyomu(newTestClient(t), zap.NewNop())
	got, err := k.DownloadChapter(context.Background(), server.URL+"/works/1/episodes/11")
	if err != nil {
		t.Fatalf("DownloadChapter: %v", err)
	}
	if got != "零時を過ぎた。\n街は静かだ。" {
		t.Fatalf("content = %q", got)
	}
}

func TestKakuyomuDownloadChapterEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<html><body><div>paywall</div></body></html>`)
	}))
	defer server.Close()

	k := NewKakuyomu(newTestClient(t), zap.NewNop())
	if _, err := k.DownloadChapter(context.Background(), server.URL+"/works/1/episodes/11"); !perrors.IsScrape(err) {
		t.Fatalf("err = %v, want scrape error", err)
	}
}
