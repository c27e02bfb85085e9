package parser

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// TextReader handles plain text files. Form feeds separate pages.
type TextReader struct{}

func (p *TextReader) SupportedFormats() []string { return []string{"txt"} }

func (p *TextReader) ReadPages(ctx context.Context, path string) ([]PageText, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading text file: %v", ErrParse, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	parts := strings.Split(string(data), "\f")
	pages := make([]PageText, len(parts))
	for i, part := range parts {
		pages[i] = PageText{Page: i, Text: part}
	}
	return pages, nil
}
