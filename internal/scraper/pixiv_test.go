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

func newTestPixiv(t *testing.T, server *httptest.Server) *Pixiv {
	t.Helper()
	p := NewPixiv(newTestClient(t), zap.NewNop())
	if server != nil {
		p.ajaxRoot = server.URL
	}
	return p
}

func TestPixivCanHandle(t *testing.T) {
	p := newTestPixiv(t, nil)

	for _, u := range []string{
		"https://www.pixiv.net/novel/show.php?id=12345678",
		"https://www.pixiv.net/novel/series/987654",
		"http://www.pixiv.net/novel/series/987654/",
	} {
		if !p.CanHandle(u) {
			t.Fatalf("CanHandle(%q) = false", u)
		}
	}
	for _, u := range []string{
		"https://www.pixiv.net/artworks/12345",
		"https://www.pixiv.net/novel/",
	} {
		if p.CanHandle(u) {
			t.Fatalf("CanHandle(%q) = true", u)
		}
	}
}

func TestDecodePixivEnvelope(t *testing.T) {
	var novel pixivNovelBody
	err := decodePixivEnvelope([]byte(`{"error":false,"body":{"id":"111","title":"雪の話","content":"本文"}}`), "u", &novel)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if novel.Title != "雪の話" || novel.Content != "本文" {
		t.Fatalf("novel = %+v", novel)
	}

	err = decodePixivEnvelope([]byte(`{"error":true,"message":"該当作品は削除されました"}`), "u", &novel)
	if !perrors.IsScrape(err) {
		t.Fatalf("err = %v, want scrape error", err)
	}

	for _, data := range []string{`{"error":false}`, `{"error":false,"body":null}`, `not json`} {
		if err := decodePixivEnvelope([]byte(data), "u", &novel); !perrors.IsParse(err) {
			t.Fatalf("decode(%q) err = %v, want parse error", data, err)
		}
	}
}

func TestBuildPixivChaptersSortsByContentOrder(t *testing.T) {
	entries := []pixivSeriesEntry{
		{ID: "222", Title: "第二話"},
		{ID: "111", Title: "第一話"},
		{ID: "", Title: "欠番"},
		{ID: "333"},
	}
	entries[0].Series.ContentOrder = 2
	entries[1].Series.ContentOrder = 1
	entries[2].Series.ContentOrder = 3
	entries[3].Series.ContentOrder = 4

	chapters := buildPixivChapters(entries)
	if len(chapters) != 3 {
		t.Fatalf("chapters = %d, want 3", len(chapters))
	}
	if chapters[0].URL != "111" || chapters[1].URL != "222" || chapters[2].URL != "333" {
		t.Fatalf("order = %q, %q, %q", chapters[0].URL, chapters[1].URL, chapters[2].URL)
	}
	if chapters[2].Number != 3 || chapters[2].Title != "Chapter 3" {
		t.Fatalf("untitled chapter = %+v", chapters[2])
	}
}

func TestPixivSeriesFlow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ajax/novel/series/999", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Requested-With") != "XMLHttpRequest" {
			t.Errorf("missing XHR header on %s", r.URL)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"error":false,"body":{"id":"999","title":"連作集"}}`)
	})
	mux.HandleFunc("/ajax/novel/series_content/999", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("last_order") != "0" {
			t.Errorf("unexpected pagination request: %s", r.URL)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"error":false,"body":{"page":{"seriesContents":[
			{"id":"222","title":"第二話","series":{"contentOrder":2}},
			{"id":"111","title":"第一話","series":{"contentOrder":1}}
		]}}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	p := newTestPixiv(t, server)

	info, err := p.GetNovelInfo(context.Background(), "https://www.pixiv.net/novel/series/999")
	if err != nil {
		t.Fatalf("GetNovelInfo: %v", err)
	}
	if info.Title != "連作集" || info.NovelID != "999" {
		t.Fatalf("info = %+v", info)
	}
	if info.BaseURL != "https://www.pixiv.net/novel/series/999" {
		t.Fatalf("base url = %q", info.BaseURL)
	}

	list, err := p.GetChapterList(context.Background(), info)
	if err != nil {
		t.Fatalf("GetChapterList: %v", err)
	}
	if list.OneShot {
		t.Fatal("OneShot = true for a series")
	}
	if list.Len() != 2 || list.Chapters[0].URL != "111" || list.Chapters[1].URL != "222" {
		t.Fatalf("chapters = %+v", list.Chapters)
	}
}

func TestPixivIndividualNovelIsOneShot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"error":false,"body":{"id":"555","title":"一夜の夢","content":"春が来た。"}}`)
	}))
	defer server.Close()

	p := newTestPixiv(t, server)

	info, err := p.GetNovelInfo(context.Background(), "https://www.pixiv.net/novel/show.php?id=555")
	if err != nil {
		t.Fatalf("GetNovelInfo: %v", err)
	}
	if info.BaseURL != "https://www.pixiv.net/novel/show.php?id=555" {
		t.Fatalf("base url = %q", info.BaseURL)
	}

	list, err := p.GetChapterList(context.Background(), info)
	if err != nil {
		t.Fatalf("GetChapterList: %v", err)
	}
	if !list.OneShot || list.Len() != 1 {
		t.Fatalf("list = %+v", list)
	}
	if list.Chapters[0].URL != "555" {
		t.Fatalf("chapter url = %q, want bare novel ID", list.Chapters[0].URL)
	}

	content, err := p.DownloadChapter(context.Background(), "555")
	if err != nil {
		t.Fatalf("DownloadChapter: %v", err)
	}
	if content != "春が来た。" {
		t.Fatalf("content = %q", content)
	}
}

func TestPixivDownloadChapterErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ajax/novel/404", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"error":true,"message":"該当作品は削除されました"}`)
	})
	mux.HandleFunc("/ajax/novel/login", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, "<html>login please</html>")
	})
	mux.HandleFunc("/ajax/novel/locked", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"error":false,"body":{"id":"locked","title":"限定","content":""}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	p := newTestPixiv(t, server)

	if _, err := p.DownloadChapter(context.Background(), "404"); !perrors.IsScrape(err) {
		t.Fatalf("deleted novel err = %v, want scrape error", err)
	}
	if _, err := p.DownloadChapter(context.Background(), "login"); !perrors.IsParse(err) {
		t.Fatalf("login wall err = %v, want parse error", err)
	}
	if _, err := p.DownloadChapter(context.Background(), "locked"); !perrors.IsScrape(err) {
		t.Fatalf("empty content err = %v, want scrape error", err)
	}
}
