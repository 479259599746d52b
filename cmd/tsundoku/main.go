package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kapu/tsundoku-go/internal/app"
	"github.com/kapu/tsundoku-go/internal/config"
	"github.com/kapu/tsundoku-go/internal/pipeline"
	"github.com/kapu/tsundoku-go/internal/translate"
	"github.com/kapu/tsundoku-go/internal/util"
)

var version = "1.0.0"

var (
	flagStart    int
	flagEnd      int
	flagNoReview bool
)

var rootCmd = &cobra.Command{
	Use:   "tsundoku",
	Short: "Web novel downloader and translator",
	Long: `Tsundoku downloads web novels, builds a reviewed character name map and
translates them chapter by chapter into neatly named text files.

Supported sites: Shousetsuka ni Narou (ncode.syosetu.com), Kakuyomu
(kakuyomu.jp) and pixiv novels (www.pixiv.net).

Use "tsundoku run --help" for the full pipeline options.`,
	Version:      version,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run <url>...",
	Short: "Run the full pipeline: download, scout names, review, translate",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
			installProgress(c)
			return c.Pipeline().RunAll(ctx, args, options())
		})
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <url>...",
	Short: "Download original chapters without scouting or translating",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
			for _, u := range args {
				if err := c.Pipeline().Download(ctx, u, options()); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var scoutCmd = &cobra.Command{
	Use:   "scout <url>...",
	Short: "Collect character names and open the review gate",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
			for _, u := range args {
				if err := c.Pipeline().ScoutNames(ctx, u, options()); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var translateCmd = &cobra.Command{
	Use:   "translate <url>...",
	Short: "Translate using the name map as it stands, without scouting",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *app.Container) error {
			installProgress(c)
			for _, u := range args {
				if err := c.Pipeline().TranslateWork(ctx, u, options()); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd, downloadCmd, scoutCmd, translateCmd)

	for _, cmd := range []*cobra.Command{runCmd, downloadCmd, scoutCmd, translateCmd} {
		cmd.Flags().IntVar(&flagStart, "start", 0, "First chapter to process (default: the first)")
		cmd.Flags().IntVar(&flagEnd, "end", 0, "Last chapter to process (default: the last)")
	}
	runCmd.Flags().BoolVar(&flagNoReview, "no-review", false, "Skip the interactive name review")
	scoutCmd.Flags().BoolVar(&flagNoReview, "no-review", false, "Skip the interactive name review")
}

func options() pipeline.Options {
	return pipeline.Options{Start: flagStart, End: flagEnd, SkipReview: flagNoReview}
}

// withContainer loads configuration, builds the service graph and hands the
// assembled container to fn. Per-invocation setup lives here so every
// subcommand starts from the same state.
func withContainer(ctx context.Context, fn func(context.Context, *app.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return err
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return err
	}
	defer logger.Sync()

	buildCtx, buildCancel := context.WithTimeout(ctx, 30*time.Second)
	container, err := app.Build(buildCtx, cfg, logger)
	buildCancel()
	if err != nil {
		logger.Error("Failed to assemble application services", zap.Error(err))
		return err
	}

	return fn(ctx, container)
}

func installProgress(c *app.Container) {
	c.Pipeline().OnProgress = func(pr translate.Progress) {
		fmt.Fprintf(os.Stderr, "\r[chapter %d] chunk %d/%d  %d chars  %s  %s ",
			pr.Chapter, pr.Chunk, pr.TotalChunks, pr.Chars,
			pr.Elapsed.Truncate(time.Second), pr.Preview)
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
