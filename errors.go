package docsense

import (
	"errors"

	"github.com/brunobiangulo/docsense/language"
	"github.com/brunobiangulo/docsense/parser"
	"github.com/brunobiangulo/docsense/retrieval"
)

var (
	// ErrParsingFailed is returned when a document cannot be opened or read.
	ErrParsingFailed = parser.ErrParse

	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = parser.ErrUnsupportedFormat

	// ErrDetectionFailed is returned when the document language cannot be identified.
	ErrDetectionFailed = language.ErrDetection

	// ErrTranslationFailed is returned when a translation backend fails.
	ErrTranslationFailed = language.ErrTranslation

	// ErrEmbeddingFailed is returned when embedding generation fails.
	ErrEmbeddingFailed = retrieval.ErrEmbedding

	// ErrNoDocuments is returned when an input directory holds no documents.
	ErrNoDocuments = errors.New("docsense: no documents found")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("docsense: invalid configuration")

	// ErrBaseDirMissing is returned when the collection base directory does not exist.
	ErrBaseDirMissing = errors.New("docsense: base directory not found")
)
