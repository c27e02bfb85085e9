// Command outline writes a JSON title/heading outline for every PDF of an
// input directory.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/docsense"
)

var (
	inputDir   string
	outputDir  string
	levels     int
	minLength  int
	workers    int
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "outline",
	Short: "Extract titles and heading outlines from PDFs",
	Long: `Outline reads every PDF in the input directory, infers the document title
and heading hierarchy from font size statistics, and writes <name>.json to
the output directory.

Examples:
  outline                              # ./input -> ./output
  outline -i docs -o out -l 4          # four heading levels
  outline -w 8 --min-length 5          # eight workers, longer headings only`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&inputDir, "input", "i", "./input", "directory containing the PDFs")
	f.StringVarP(&outputDir, "output", "o", "./output", "directory for the JSON outlines")
	f.IntVarP(&levels, "levels", "l", 3, "number of heading levels (1-6)")
	f.IntVar(&minLength, "min-length", 3, "minimum heading length in characters")
	f.IntVarP(&workers, "workers", "w", 1, "number of documents processed concurrently")
	f.StringVarP(&configPath, "config", "c", "", "config file (YAML or JSON)")
	f.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func run(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := docsense.DefaultConfig()
	if configPath != "" {
		loaded, err := docsense.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := docsense.ApplyEnv(&cfg); err != nil {
		return err
	}

	// Flags win over file and environment values, but only when given.
	flags := cmd.Flags()
	if flags.Changed("levels") {
		cfg.Outline.Levels = levels
	}
	if flags.Changed("min-length") {
		cfg.Outline.MinHeadingLength = minLength
	}
	if flags.Changed("workers") {
		cfg.Outline.Workers = workers
	}

	engine, err := docsense.New(cfg, docsense.WithLogger(logger))
	if err != nil {
		return err
	}
	defer engine.Close()

	start := time.Now()
	results, err := engine.ProcessOutlineDir(cmd.Context(), inputDir, outputDir)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	logger.Info("outline: batch complete",
		"files", len(results),
		"failed", failed,
		"output", outputDir,
		"elapsed", time.Since(start),
	)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "outline:", err)
		stop()
		os.Exit(1)
	}
}
