package docsense

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/docsense/outline"
)

// OutlineResult reports the outcome of one document of an outline batch.
type OutlineResult struct {
	File     string        `json:"file"`
	Output   string        `json:"output,omitempty"`
	Headings int           `json:"headings"`
	Elapsed  time.Duration `json:"elapsed"`
	Err      error         `json:"-"`
}

// ExtractOutline returns the title and heading outline of one PDF.
func (e *Engine) ExtractOutline(ctx context.Context, path string) (*outline.Document, error) {
	classifier := outline.NewClassifier(e.cfg.Outline.Levels, e.cfg.Outline.MinHeadingLength)
	doc, err := outline.NewExtractor(e.spans, classifier, e.logger).Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("extracting outline of %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// ProcessOutlineDir writes <name>.json into outDir for every PDF in inDir.
// A missing input directory is created; per-file failures are logged and
// reported in the results, never returned as the batch error. Results are in
// file name order regardless of the worker count.
func (e *Engine) ProcessOutlineDir(ctx context.Context, inDir, outDir string) ([]OutlineResult, error) {
	if _, err := os.Stat(inDir); errors.Is(err, os.ErrNotExist) {
		e.logger.Warn("outline: input directory does not exist, creating it", "dir", inDir)
		if err := os.MkdirAll(inDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating input directory: %w", err)
		}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	files, err := listFiles(inDir, "pdf")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		e.logger.Warn("outline: no PDFs found", "dir", inDir)
		return []OutlineResult{}, nil
	}

	e.logger.Info("outline: starting batch",
		"files", len(files),
		"workers", e.cfg.Outline.Workers,
	)

	results := make([]OutlineResult, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Outline.Workers)

	for i, name := range files {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			res := e.outlineFile(ctx, filepath.Join(inDir, name), outDir)

			mu.Lock()
			results[i] = res
			mu.Unlock()
			// Failures are recorded in the result; siblings keep going.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// outlineFile processes one document inside its own failure boundary.
func (e *Engine) outlineFile(ctx context.Context, path, outDir string) (res OutlineResult) {
	res.File = filepath.Base(path)
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			res.Err = fmt.Errorf("%w: panic: %v", ErrParsingFailed, rec)
		}
		res.Elapsed = time.Since(start)
		if res.Err != nil {
			e.logger.Error("outline: failed to process", "file", path, "error", res.Err)
		}
	}()

	e.logger.Info("outline: processing", "file", path)

	doc, err := e.ExtractOutline(ctx, path)
	if err != nil {
		res.Err = err
		return res
	}

	out := filepath.Join(outDir, strings.TrimSuffix(res.File, filepath.Ext(res.File))+".json")
	if err := writeJSON(out, doc, "    "); err != nil {
		res.Err = err
		return res
	}
	res.Output = out
	res.Headings = len(doc.Outline)
	e.logger.Info("outline: created", "file", out, "headings", res.Headings, "elapsed", time.Since(start))
	return res
}

// writeJSON writes v to path with the given indent, keeping non-ASCII and
// HTML characters unescaped.
func writeJSON(path string, v any, indent string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// listFiles returns the names of regular files in dir whose extension is one
// of formats (case-insensitive), sorted.
func listFiles(dir string, formats ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	want := make(map[string]bool, len(formats))
	for _, f := range formats {
		want[strings.ToLower(f)] = true
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(entry.Name()), "."))
		if want[ext] {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
