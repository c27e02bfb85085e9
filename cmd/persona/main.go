// Command persona ranks the sections of every document collection under a
// base directory against a persona and its job to be done.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/docsense"
	"github.com/brunobiangulo/docsense/retrieval"
)

var (
	baseDir     string
	role        string
	job         string
	configPath  string
	noTranslate bool
	topK        int
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "persona",
	Short: "Rank document sections for a persona across collections",
	Long: `Persona processes every collection directory under the base directory.
Each collection keeps its documents in a PDFs/ subdirectory; the ranked
sections and refined passages are written to <collection>/output.json.

The persona and job come from <collection>/input.json when it names both;
otherwise --role and --job are used and input.json is generated.

Examples:
  persona --base collections --role "Travel Planner" --job "Plan a 4-day trip"
  persona --base collections --no-translate --top-k 3`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&baseDir, "base", ".", "base directory containing the collections")
	f.StringVar(&role, "role", "", "persona role, used when input.json does not name one")
	f.StringVar(&job, "job", "", "job to be done, used when input.json does not name one")
	f.StringVarP(&configPath, "config", "c", "", "config file (YAML or JSON)")
	f.BoolVar(&noTranslate, "no-translate", false, "rank documents in their original language")
	f.IntVar(&topK, "top-k", 5, "sections kept per document (1-5)")
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
	if noTranslate {
		cfg.Translate = false
	}
	if cmd.Flags().Changed("top-k") {
		cfg.TopK = topK
	}

	engine, err := docsense.New(cfg, docsense.WithLogger(logger))
	if err != nil {
		return err
	}
	defer engine.Close()

	reports, err := engine.ProcessCollections(cmd.Context(), baseDir, retrieval.Persona{Role: role, Job: job})
	if err != nil {
		return err
	}

	written := 0
	for _, r := range reports {
		if r.Err == nil {
			written++
		}
	}
	logger.Info("persona: done", "collections", len(reports), "written", written)

	stats, err := engine.CacheStats(cmd.Context())
	switch {
	case err != nil:
		logger.Warn("persona: reading cache stats failed", "error", err)
	case stats != nil:
		logger.Info("persona: embedding cache",
			"embeddings", stats.Embeddings,
			"models", stats.Models,
			"hits", stats.Hits,
		)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "persona:", err)
		stop()
		os.Exit(1)
	}
}
