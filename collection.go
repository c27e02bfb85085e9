package docsense

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	textlang "golang.org/x/text/language"

	"github.com/brunobiangulo/docsense/language"
	"github.com/brunobiangulo/docsense/retrieval"
	"github.com/brunobiangulo/docsense/section"
)

const (
	docsDirName    = "PDFs"
	inputFileName  = "input.json"
	outputFileName = "output.json"
	timestampFmt   = "2006-01-02T15:04:05.000000"
)

// CollectionResult is the content of a collection's output.json.
type CollectionResult struct {
	Metadata           Metadata             `json:"metadata"`
	ExtractedSections  []ExtractedSection   `json:"extracted_sections"`
	SubsectionAnalysis []SubsectionAnalysis `json:"subsection_analysis"`
}

// Metadata describes the run that produced a CollectionResult.
type Metadata struct {
	InputDocuments      []string `json:"input_documents"`
	Persona             string   `json:"persona"`
	JobToBeDone         string   `json:"job_to_be_done"`
	ProcessingTimestamp string   `json:"processing_timestamp"`
}

// ExtractedSection is one ranked section of one document.
type ExtractedSection struct {
	Document       string `json:"document"`
	SectionTitle   string `json:"section_title"`
	ImportanceRank int    `json:"importance_rank"`
	PageNumber     int    `json:"page_number"`
}

// SubsectionAnalysis is the refined text of one ranked section.
type SubsectionAnalysis struct {
	Document    string `json:"document"`
	RefinedText string `json:"refined_text"`
	PageNumber  int    `json:"page_number"`
}

// CollectionInput is the content of a collection's input.json.
type CollectionInput struct {
	ChallengeInfo ChallengeInfo   `json:"challenge_info"`
	Documents     []InputDocument `json:"documents"`
	Persona       struct {
		Role string `json:"role"`
	} `json:"persona"`
	JobToBeDone struct {
		Task string `json:"task"`
	} `json:"job_to_be_done"`
}

// ChallengeInfo identifies a collection.
type ChallengeInfo struct {
	ChallengeID  string `json:"challenge_id"`
	TestCaseName string `json:"test_case_name"`
	Description  string `json:"description"`
}

// InputDocument lists one document of a collection.
type InputDocument struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
}

// DocumentAnalysis is the relevance pipeline outcome for one document.
type DocumentAnalysis struct {
	Document string
	Language string
	Sections int
	Failures int
	Ranked   []retrieval.RankedSection
}

// CollectionReport summarises one collection of a ProcessCollections run.
type CollectionReport struct {
	Name   string
	Output string
	Result *CollectionResult
	Err    error
}

// AnalyzeDocument runs read → normalize → extract → rank on one document.
func (e *Engine) AnalyzeDocument(ctx context.Context, path string, persona retrieval.Persona) (*DocumentAnalysis, error) {
	reader, err := e.pages.ForPath(path)
	if err != nil {
		return nil, err
	}
	pages, err := reader.ReadPages(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	norm := &language.Normalizer{
		Detector:      e.detector,
		Translator:    e.translator,
		Translate:     e.cfg.Translate,
		MaxChunkChars: e.cfg.MaxChunkChars,
		Logger:        e.logger,
	}
	res := norm.Normalize(ctx, pages)
	sections := section.Extract(res.Pages)

	ranked, err := retrieval.NewRanker(e.embedder, e.cfg.TopK, e.logger).Rank(ctx, sections, persona)
	if err != nil {
		return nil, fmt.Errorf("ranking %s: %w", filepath.Base(path), err)
	}

	return &DocumentAnalysis{
		Document: filepath.Base(path),
		Language: res.Language,
		Sections: len(sections),
		Failures: res.Failures,
		Ranked:   ranked,
	}, nil
}

// AnalyzeCollection runs the relevance pipeline over documents (file names
// inside docsDir) one at a time. A failing document is logged and skipped.
func (e *Engine) AnalyzeCollection(ctx context.Context, docsDir string, documents []string, persona retrieval.Persona) (*CollectionResult, error) {
	result := &CollectionResult{
		Metadata: Metadata{
			InputDocuments:      documents,
			Persona:             persona.Role,
			JobToBeDone:         persona.Job,
			ProcessingTimestamp: e.now().Format(timestampFmt),
		},
		ExtractedSections:  []ExtractedSection{},
		SubsectionAnalysis: []SubsectionAnalysis{},
	}
	refiner := e.refiner(persona)
	name := filepath.Base(filepath.Dir(docsDir))

	for _, doc := range documents {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		path := filepath.Join(docsDir, doc)

		analysis, err := e.analyzeSafely(ctx, path, persona)
		if err != nil {
			e.logger.Error("collection: error processing document", "collection", name, "document", doc, "error", err)
			continue
		}
		e.logger.Info("collection: processed document",
			"collection", name,
			"document", doc,
			"language", analysis.Language,
			"sections", analysis.Sections,
			"translation_failures", analysis.Failures,
		)

		for _, sec := range analysis.Ranked {
			result.ExtractedSections = append(result.ExtractedSections, ExtractedSection{
				Document:       doc,
				SectionTitle:   sec.Title,
				ImportanceRank: sec.ImportanceRank,
				PageNumber:     sec.Page,
			})
			result.SubsectionAnalysis = append(result.SubsectionAnalysis, SubsectionAnalysis{
				Document:    doc,
				RefinedText: refineSafely(ctx, refiner, path, sec),
				PageNumber:  sec.Page,
			})
		}
	}
	return result, nil
}

func (e *Engine) analyzeSafely(ctx context.Context, path string, persona retrieval.Persona) (a *DocumentAnalysis, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			a, err = nil, fmt.Errorf("%w: panic: %v", ErrParsingFailed, rec)
		}
	}()
	return e.AnalyzeDocument(ctx, path, persona)
}

// refineSafely guards against refiners that break their no-panic contract.
func refineSafely(ctx context.Context, r Refiner, path string, sec retrieval.RankedSection) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			text = sec.Text
		}
	}()
	return r.Refine(ctx, path, sec)
}

// ProcessCollection runs the relevance pipeline over <dir>/PDFs and writes
// <dir>/output.json. The persona comes from <dir>/input.json when it names
// both a role and a task; otherwise fallback is used and input.json is
// (re)generated from it.
func (e *Engine) ProcessCollection(ctx context.Context, dir string, fallback retrieval.Persona) (*CollectionResult, error) {
	name := filepath.Base(dir)
	docsDir := filepath.Join(dir, docsDirName)

	info, err := os.Stat(docsDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s has no %s directory", ErrNoDocuments, name, docsDirName)
	}
	documents, err := listFiles(docsDir, e.cfg.CollectionFormats...)
	if err != nil {
		return nil, err
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDocuments, docsDir)
	}

	persona, err := e.resolvePersona(dir, documents, fallback)
	if err != nil {
		return nil, err
	}

	result, err := e.AnalyzeCollection(ctx, docsDir, documents, persona)
	if err != nil {
		return nil, err
	}
	out := filepath.Join(dir, outputFileName)
	if err := writeJSON(out, result, "  "); err != nil {
		return nil, err
	}
	e.logger.Info("collection: output generated", "collection", name, "file", out,
		"sections", len(result.ExtractedSections))
	return result, nil
}

func (e *Engine) resolvePersona(dir string, documents []string, fallback retrieval.Persona) (retrieval.Persona, error) {
	name := filepath.Base(dir)
	in, err := ReadCollectionInput(filepath.Join(dir, inputFileName))
	switch {
	case err == nil && in.Persona.Role != "" && in.JobToBeDone.Task != "":
		return retrieval.Persona{Role: in.Persona.Role, Job: in.JobToBeDone.Task}, nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		e.logger.Warn("collection: ignoring unreadable input.json", "collection", name, "error", err)
	}

	if strings.TrimSpace(fallback.Role) == "" || strings.TrimSpace(fallback.Job) == "" {
		return retrieval.Persona{}, fmt.Errorf("%w: collection %s needs a persona role and job", ErrInvalidConfig, name)
	}
	if err := writeJSON(filepath.Join(dir, inputFileName), NewCollectionInput(name, documents, fallback), "  "); err != nil {
		return retrieval.Persona{}, err
	}
	e.logger.Info("collection: input.json generated", "collection", name)
	return fallback, nil
}

// NewCollectionInput builds the input.json content of a collection.
func NewCollectionInput(name string, documents []string, p retrieval.Persona) CollectionInput {
	id := strings.ToLower(strings.ReplaceAll(name, " ", "_"))
	in := CollectionInput{
		ChallengeInfo: ChallengeInfo{
			ChallengeID:  id,
			TestCaseName: id,
			Description:  cases.Title(textlang.English).String(strings.ReplaceAll(name, "_", " ")),
		},
		Documents: make([]InputDocument, len(documents)),
	}
	for i, d := range documents {
		in.Documents[i] = InputDocument{Filename: d, Title: strings.TrimSuffix(d, filepath.Ext(d))}
	}
	in.Persona.Role = p.Role
	in.JobToBeDone.Task = p.Job
	return in
}

// ReadCollectionInput parses an input.json file.
func ReadCollectionInput(path string) (*CollectionInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var in CollectionInput
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &in, nil
}

// ProcessCollections processes every collection directory under base, in
// name order. Collections without documents are skipped with a log line.
func (e *Engine) ProcessCollections(ctx context.Context, base string, fallback retrieval.Persona) ([]CollectionReport, error) {
	info, err := os.Stat(base)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrBaseDirMissing, base)
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", base, err)
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	sort.Strings(dirs)

	start := time.Now()
	reports := make([]CollectionReport, 0, len(dirs))
	for _, d := range dirs {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		dir := filepath.Join(base, d)
		rep := CollectionReport{Name: d}
		rep.Result, rep.Err = e.ProcessCollection(ctx, dir, fallback)
		switch {
		case errors.Is(rep.Err, ErrNoDocuments):
			e.logger.Info("collection: skipping", "collection", d, "reason", rep.Err)
		case rep.Err != nil:
			e.logger.Error("collection: failed", "collection", d, "error", rep.Err)
		default:
			rep.Output = filepath.Join(dir, outputFileName)
		}
		reports = append(reports, rep)
	}
	e.logger.Info("collection: run complete", "collections", len(dirs), "elapsed", time.Since(start))
	return reports, nil
}
