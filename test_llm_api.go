// +build ignore

package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/tsundoku-go/internal/config"
	"github.com/kapu/tsundoku-go/internal/llm"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	if cfg.API.Key == "" {
		fmt.Println("❌ API_KEY not set in .env")
		return
	}
	masked := cfg.API.Key
	if len(masked) > 14 {
		masked = masked[:10] + "..." + masked[len(masked)-4:]
	}
	fmt.Printf("Using API Key: %s\nModel: %s\nBase URL: %s\n\n", masked, cfg.API.Model, cfg.API.BaseURL)

	client := llm.NewClient(cfg.API.Key, cfg.API.BaseURL, cfg.API.Model, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Test 1: Plain completion
	fmt.Println("=== Test 1: Completion ===")
	reply, err := client.Complete(ctx, []llm.Message{
		llm.System("You are a helpful assistant."),
		llm.User("Reply with the single word: pong"),
	})
	if err != nil {
		fmt.Printf("❌ Error: %v\n", err)
	} else {
		fmt.Printf("✅ Reply: %s\n", reply)
	}

	// Test 2: Streaming
	fmt.Println("\n=== Test 2: Streaming ===")
	chunks := 0
	reply, err = client.Stream(ctx, []llm.Message{
		llm.User("Count from 1 to 5, one number per line."),
	}, func(delta string) {
		chunks++
	})
	if err != nil {
		fmt.Printf("❌ Error: %v\n", err)
	} else {
		fmt.Printf("✅ Received %d deltas, %d chars total\n", chunks, len(reply))
	}

	// Test 3: Gemini scout primary (optional)
	fmt.Println("\n=== Test 3: Gemini ===")
	if cfg.Gemini.APIKey == "" {
		fmt.Println("GEMINI_API_KEY not set, skipping")
		return
	}
	gemini, err := llm.NewGeminiProvider(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, logger)
	if err != nil {
		fmt.Printf("❌ Error: %v\n", err)
		return
	}
	reply, err = gemini.Complete(ctx, []llm.Message{
		llm.User("Reply with the single word: pong"),
	})
	if err != nil {
		fmt.Printf("❌ Error: %v\n", err)
	} else {
		fmt.Printf("✅ Reply: %s\n", reply)
	}

	fmt.Println("\n=== All tests completed ===")
}
