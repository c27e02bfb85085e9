// Package docsense turns PDF documents into structured knowledge: outlines
// inferred from font statistics, and persona-driven rankings of the most
// relevant sections across document collections.
package docsense

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brunobiangulo/docsense/language"
	"github.com/brunobiangulo/docsense/llm"
	"github.com/brunobiangulo/docsense/parser"
	"github.com/brunobiangulo/docsense/retrieval"
	"github.com/brunobiangulo/docsense/store"
)

// Engine runs the outline and relevance pipelines.
type Engine struct {
	cfg        Config
	logger     *slog.Logger
	spans      parser.SpanReader
	pages      *parser.Registry
	chat       llm.Provider
	embedder   llm.Embedder
	detector   language.Detector
	translator language.Translator
	refiner    RefinerFactory
	now        func() time.Time
	store      *store.Store
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by the engine and its components.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithEmbedder replaces the configured embedding provider.
func WithEmbedder(em llm.Embedder) Option {
	return func(e *Engine) { e.embedder = em }
}

// WithDetector replaces the configured language detector.
func WithDetector(d language.Detector) Option {
	return func(e *Engine) { e.detector = d }
}

// WithTranslator replaces the configured translation backend.
func WithTranslator(t language.Translator) Option {
	return func(e *Engine) { e.translator = t }
}

// WithSpanReader replaces the PDF glyph reader of the outline pipeline.
func WithSpanReader(r parser.SpanReader) Option {
	return func(e *Engine) { e.spans = r }
}

// WithRegistry replaces the page readers of the relevance pipeline.
func WithRegistry(r *parser.Registry) Option {
	return func(e *Engine) { e.pages = r }
}

// WithRefiner replaces the snippet refiner.
func WithRefiner(f RefinerFactory) Option {
	return func(e *Engine) { e.refiner = f }
}

// WithClock sets the time source used for processing timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine. Capabilities not injected through options are
// built from cfg.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}

	pdfReader := &parser.PDFReader{Preflight: true, Logger: e.logger}
	if e.spans == nil {
		e.spans = pdfReader
	}
	if e.pages == nil {
		e.pages = parser.NewRegistry()
		e.pages.Register("pdf", pdfReader)
	}

	for _, f := range cfg.CollectionFormats {
		if _, err := e.pages.Get(f); err != nil {
			return nil, fmt.Errorf("%w: collection format: %v", ErrInvalidConfig, err)
		}
	}

	if err := e.initLanguage(); err != nil {
		return nil, err
	}

	if e.embedder == nil && cfg.Embedding.Provider != "" {
		p, err := llm.NewProvider(cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("%w: creating embedding provider: %v", ErrInvalidConfig, err)
		}
		e.embedder = p
	}

	if cfg.CachePath != "" && e.embedder != nil {
		s, err := store.New(cfg.CachePath, cfg.EmbeddingDim, e.logger)
		if err != nil {
			return nil, fmt.Errorf("opening embedding cache: %w", err)
		}
		e.store = s
		e.embedder = store.NewCachedEmbedder(e.embedder, s, cfg.Embedding.Model, e.logger)
	}

	if e.refiner == nil {
		maxChars := cfg.RefineMaxChars
		e.refiner = func(p retrieval.Persona) Refiner { return NewSnippetRefiner(p, maxChars) }
	}
	return e, nil
}

// initLanguage builds the detector and translator that were not injected.
func (e *Engine) initLanguage() error {
	needChat := (e.detector == nil && e.cfg.Detector == DetectorLLM) ||
		(e.translator == nil && e.cfg.Translate && e.cfg.Translation.Backend == BackendLLM)
	if needChat && e.cfg.Chat.Provider != "" {
		p, err := llm.NewProvider(e.cfg.Chat)
		if err != nil {
			return fmt.Errorf("%w: creating chat provider: %v", ErrInvalidConfig, err)
		}
		e.chat = p
	}

	if e.detector == nil {
		if e.cfg.Detector == DetectorLLM && e.chat != nil {
			e.detector = &language.LLMDetector{Chat: e.chat, Fallback: language.HeuristicDetector{}}
		} else {
			e.detector = language.HeuristicDetector{}
		}
	}

	if e.translator == nil && e.cfg.Translate {
		switch e.cfg.Translation.Backend {
		case BackendLLM:
			if e.chat != nil {
				e.translator = &language.LLMTranslator{Chat: e.chat}
			} else {
				e.logger.Warn("docsense: no chat provider configured, documents will not be translated")
			}
		case BackendLibre:
			e.translator = language.NewLibreTranslator(e.cfg.Translation.BaseURL, e.cfg.Translation.APIKey)
		case BackendNone:
			e.cfg.Translate = false
		}
	}
	return nil
}

// Config returns the validated configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// CacheStats reports the embedding cache contents. It returns nil when the
// cache is disabled.
func (e *Engine) CacheStats(ctx context.Context) (*store.Stats, error) {
	if e.store == nil {
		return nil, nil
	}
	return e.store.Stats(ctx)
}

// Close releases the embedding cache, if any.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}
