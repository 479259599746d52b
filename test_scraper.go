//go:build ignore
// +build ignore

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/tsundoku-go/internal/config"
	"github.com/kapu/tsundoku-go/internal/scraper"
	"github.com/kapu/tsundoku-go/internal/util"
)

// Manual smoke test against the live sites. Run with:
//
//	go run test_scraper.go [novel-url]
func main() {
	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	client, err := scraper.NewClient(cfg.Scraper.Delay, logger)
	if err != nil {
		logger.Fatal("Failed to create HTTP client", zap.Error(err))
	}

	registry := scraper.NewRegistry(
		scraper.NewSyosetu(client, logger),
		scraper.NewKakuyomu(client, logger),
		scraper.NewPixiv(client, logger),
	)
	fmt.Println("Registered sites:")
	for _, s := range registry.Scrapers() {
		fmt.Printf("  - %s (%s)\n", s.Name(), s.ID())
	}

	novelURL := "https://ncode.syosetu.com/n9669bk/"
	if len(os.Args) > 1 {
		novelURL = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	// Test 1: URL routing
	fmt.Println("\n=== Test 1: URL routing ===")
	site, err := registry.FindForURL(novelURL)
	if err != nil {
		logger.Fatal("❌ No scraper for URL", zap.Error(err))
	}
	fmt.Printf("✅ %s handled by %s (%s)\n", novelURL, site.Name(), site.ID())

	// Test 2: Novel info and chapter list
	fmt.Println("\n=== Test 2: Novel info and chapter list ===")
	info, err := site.GetNovelInfo(ctx, novelURL)
	if err != nil {
		logger.Fatal("❌ Failed to fetch novel info", zap.Error(err))
	}
	fmt.Printf("✅ Title: %s\n", info.Title)
	fmt.Printf("   ID: %s\n", info.NovelID)
	fmt.Printf("   Base: %s\n", info.BaseURL)

	list, err := site.GetChapterList(ctx, info)
	if err != nil {
		logger.Fatal("❌ Failed to fetch chapter list", zap.Error(err))
	}
	fmt.Printf("✅ Chapters found: %d (one-shot: %v)\n", list.Len(), list.OneShot)
	for i, ch := range list.Chapters {
		if i >= 5 {
			break
		}
		fmt.Printf("\nChapter #%d:\n", ch.Number)
		fmt.Printf("  Title: %s\n", ch.Title)
		fmt.Printf("  URL: %s\n", ch.URL)
	}

	// Test 3: Chapter download
	fmt.Println("\n=== Test 3: Chapter download ===")
	if list.Len() == 0 {
		logger.Fatal("❌ No chapters to download")
	}
	content, err := site.DownloadChapter(ctx, list.Chapters[0].URL)
	if err != nil {
		logger.Fatal("❌ Failed to download chapter", zap.Error(err))
	}
	fmt.Printf("✅ Downloaded %d chars\n", len([]rune(content)))
	fmt.Printf("   Preview: %s\n", util.TruncateString(content, 120))

	fmt.Println("\n=== All tests completed ===")
}
