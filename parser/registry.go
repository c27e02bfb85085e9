package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedFormat is returned by Registry.Get for unknown formats.
var ErrUnsupportedFormat = errors.New("parser: unsupported format")

type Registry struct {
	readers map[string]PageReader
}

// NewRegistry returns a registry with the built-in page readers.
func NewRegistry() *Registry {
	r := &Registry{readers: make(map[string]PageReader)}
	for _, p := range []PageReader{NewPDFReader(), &XLSXReader{}, &TextReader{}} {
		for _, f := range p.SupportedFormats() {
			r.readers[f] = p
		}
	}
	return r
}

func (r *Registry) Get(format string) (PageReader, error) {
	p, ok := r.readers[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return p, nil
}

// ForPath picks a reader by the file extension of path.
func (r *Registry) ForPath(path string) (PageReader, error) {
	return r.Get(FormatOf(path))
}

func (r *Registry) Register(format string, p PageReader) {
	r.readers[strings.ToLower(format)] = p
}

// Supports reports whether a reader is registered for the extension of path.
func (r *Registry) Supports(path string) bool {
	_, ok := r.readers[FormatOf(path)]
	return ok
}

// Formats lists the registered formats in sorted order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.readers))
	for f := range r.readers {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// FormatOf returns the lower-cased extension of path without the dot.
func FormatOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
