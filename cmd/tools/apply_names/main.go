// apply_names rewrites a text file through a name store, substituting every
// decided character name. Useful for rerunning a corrected name map over
// already-downloaded originals without touching the API.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/kapu/tsundoku-go/internal/consensus"
	"github.com/kapu/tsundoku-go/internal/storage"
)

func main() {
	var namesPath string
	var inPath string
	var outPath string

	flag.StringVar(&namesPath, "names", "", "path to the name store JSON file")
	flag.StringVar(&inPath, "in", "", "text file to rewrite")
	flag.StringVar(&outPath, "out", "", "output path (defaults to stdout)")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if namesPath == "" || inPath == "" {
		fmt.Fprintln(os.Stderr, "usage: apply_names -names <store.json> -in <text.txt> [-out <file>]")
		os.Exit(2)
	}

	store, err := consensus.OpenFile(namesPath, logger)
	if err != nil {
		logger.Fatal("Failed to open name store", zap.Error(err))
	}

	data, err := os.ReadFile(inPath)
	if err != nil {
		logger.Fatal("Failed to read input", zap.Error(err))
	}

	applied := store.ApplyToText(string(data))

	if outPath == "" {
		fmt.Print(applied)
		return
	}

	if err := storage.WriteFileAtomic(outPath, []byte(applied)); err != nil {
		logger.Fatal("Failed to write output", zap.Error(err))
	}
	logger.Info("Applied name map",
		zap.Int("names", store.NameCount()),
		zap.String("out", outPath))
}
