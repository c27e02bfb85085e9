package docsense

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/docsense/language"
	"github.com/brunobiangulo/docsense/llm"
	"github.com/brunobiangulo/docsense/outline"
	"github.com/brunobiangulo/docsense/retrieval"
)

// Translation backends.
const (
	BackendLLM   = "llm"
	BackendLibre = "libretranslate"
	BackendNone  = "none"
)

// Language detectors.
const (
	DetectorHeuristic = "heuristic"
	DetectorLLM       = "llm"
)

// Config holds all configuration for the docsense engine.
type Config struct {
	Outline OutlineConfig `json:"outline" yaml:"outline"`

	// Relevance pipeline
	TopK           int  `json:"top_k" yaml:"top_k"`
	Translate      bool `json:"translate" yaml:"translate"`
	MaxChunkChars  int  `json:"max_chunk_chars" yaml:"max_chunk_chars"`   // translation chunk size in runes
	RefineMaxChars int  `json:"refine_max_chars" yaml:"refine_max_chars"` // refined text budget in runes

	// File extensions read from <collection>/PDFs. Defaults to pdf only.
	CollectionFormats []string `json:"collection_formats" yaml:"collection_formats"`

	// Capabilities
	Embedding   llm.Config        `json:"embedding" yaml:"embedding"`
	Chat        llm.Config        `json:"chat" yaml:"chat"` // language detection and LLM translation
	Translation TranslationConfig `json:"translation" yaml:"translation"`
	Detector    string            `json:"detector" yaml:"detector"` // heuristic, llm

	// Embedding cache. Disabled when CachePath is empty.
	CachePath    string `json:"cache_path" yaml:"cache_path"`
	EmbeddingDim int    `json:"embedding_dim" yaml:"embedding_dim"` // must match the embedding model
}

// OutlineConfig configures the outline pipeline.
type OutlineConfig struct {
	Levels           int `json:"levels" yaml:"levels"`
	MinHeadingLength int `json:"min_heading_length" yaml:"min_heading_length"`
	Workers          int `json:"workers" yaml:"workers"`
}

// TranslationConfig selects the translation backend.
type TranslationConfig struct {
	Backend string `json:"backend" yaml:"backend"` // llm, libretranslate, none
	BaseURL string `json:"base_url" yaml:"base_url"`
	APIKey  string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns a Config with sensible defaults for local inference.
func DefaultConfig() Config {
	return Config{
		Outline: OutlineConfig{
			Levels:           outline.DefaultLevels,
			MinHeadingLength: outline.DefaultMinLength,
			Workers:          1,
		},
		CollectionFormats: []string{"pdf"},

		TopK:           retrieval.DefaultTopK,
		Translate:      true,
		MaxChunkChars:  language.DefaultMaxChunkChars,
		RefineMaxChars: DefaultRefineMaxChars,
		Embedding: llm.Config{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		Chat: llm.Config{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
		Translation:  TranslationConfig{Backend: BackendLLM},
		Detector:     DetectorHeuristic,
		EmbeddingDim: 768,
	}
}

// Validate clamps the outline settings into range, fills zero values with
// defaults and rejects values that cannot be repaired.
func (c *Config) Validate() error {
	c.Outline.Levels = outline.ClampLevels(c.Outline.Levels)
	c.Outline.MinHeadingLength = outline.ClampMinLength(c.Outline.MinHeadingLength)

	if c.Outline.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Outline.Workers)
	}
	if c.Outline.Workers == 0 {
		c.Outline.Workers = 1
	}
	if c.TopK < 0 {
		return fmt.Errorf("%w: top_k must not be negative, got %d", ErrInvalidConfig, c.TopK)
	}
	c.TopK = retrieval.ClampTopK(c.TopK)

	var formats []string
	for _, f := range c.CollectionFormats {
		if f = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(f), ".")); f != "" {
			formats = append(formats, f)
		}
	}
	if len(formats) == 0 {
		formats = []string{"pdf"}
	}
	c.CollectionFormats = formats

	if c.MaxChunkChars < 0 {
		return fmt.Errorf("%w: max_chunk_chars must not be negative, got %d", ErrInvalidConfig, c.MaxChunkChars)
	}
	if c.MaxChunkChars == 0 {
		c.MaxChunkChars = language.DefaultMaxChunkChars
	}
	if c.RefineMaxChars < 0 {
		return fmt.Errorf("%w: refine_max_chars must not be negative, got %d", ErrInvalidConfig, c.RefineMaxChars)
	}
	if c.RefineMaxChars == 0 {
		c.RefineMaxChars = DefaultRefineMaxChars
	}

	switch c.Translation.Backend {
	case "":
		c.Translation.Backend = BackendLLM
	case BackendLLM, BackendLibre, BackendNone:
	default:
		return fmt.Errorf("%w: unknown translation backend %q", ErrInvalidConfig, c.Translation.Backend)
	}
	switch c.Detector {
	case "":
		c.Detector = DetectorHeuristic
	case DetectorHeuristic, DetectorLLM:
	default:
		return fmt.Errorf("%w: unknown detector %q", ErrInvalidConfig, c.Detector)
	}

	if c.CachePath != "" && c.EmbeddingDim <= 0 {
		return fmt.Errorf("%w: embedding_dim must be positive when cache_path is set", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads a YAML (.yaml, .yml) or JSON (.json) config file on top
// of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
		}
	default:
		return cfg, fmt.Errorf("%w: unsupported config format %q", ErrInvalidConfig, filepath.Ext(path))
	}
	return cfg, nil
}

// ApplyEnv overrides configuration from DOCSENSE_* environment variables.
// Malformed numeric or boolean values are reported as ErrInvalidConfig.
func ApplyEnv(cfg *Config) error {
	strs := []struct {
		key  string
		dest *string
	}{
		{"DOCSENSE_EMBED_PROVIDER", &cfg.Embedding.Provider},
		{"DOCSENSE_EMBED_MODEL", &cfg.Embedding.Model},
		{"DOCSENSE_EMBED_BASE_URL", &cfg.Embedding.BaseURL},
		{"DOCSENSE_EMBED_API_KEY", &cfg.Embedding.APIKey},
		{"DOCSENSE_CHAT_PROVIDER", &cfg.Chat.Provider},
		{"DOCSENSE_CHAT_MODEL", &cfg.Chat.Model},
		{"DOCSENSE_CHAT_BASE_URL", &cfg.Chat.BaseURL},
		{"DOCSENSE_CHAT_API_KEY", &cfg.Chat.APIKey},
		{"DOCSENSE_TRANSLATION_BACKEND", &cfg.Translation.Backend},
		{"DOCSENSE_TRANSLATION_BASE_URL", &cfg.Translation.BaseURL},
		{"DOCSENSE_TRANSLATION_API_KEY", &cfg.Translation.APIKey},
		{"DOCSENSE_DETECTOR", &cfg.Detector},
		{"DOCSENSE_CACHE_PATH", &cfg.CachePath},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.dest = v
		}
	}

	ints := []struct {
		key  string
		dest *int
	}{
		{"DOCSENSE_LEVELS", &cfg.Outline.Levels},
		{"DOCSENSE_MIN_HEADING_LENGTH", &cfg.Outline.MinHeadingLength},
		{"DOCSENSE_WORKERS", &cfg.Outline.Workers},
		{"DOCSENSE_TOP_K", &cfg.TopK},
		{"DOCSENSE_EMBEDDING_DIM", &cfg.EmbeddingDim},
	}
	for _, i := range ints {
		v := os.Getenv(i.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, i.key, v)
		}
		*i.dest = n
	}

	if v := os.Getenv("DOCSENSE_COLLECTION_FORMATS"); v != "" {
		cfg.CollectionFormats = strings.Split(v, ",")
	}

	if v := os.Getenv("DOCSENSE_TRANSLATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: DOCSENSE_TRANSLATE=%q is not a boolean", ErrInvalidConfig, v)
		}
		cfg.Translate = b
	}

	// Fallback: well-known provider variables for API keys.
	if cfg.Embedding.APIKey == "" && cfg.Embedding.Provider == "openai" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Chat.APIKey == "" && cfg.Chat.Provider == "openai" {
		cfg.Chat.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return nil
}
