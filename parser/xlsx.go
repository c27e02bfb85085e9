package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXReader exposes each worksheet of a workbook as one page. Cells are
// joined with tabs and rows with newlines.
type XLSXReader struct{}

func (p *XLSXReader) SupportedFormats() []string { return []string{"xlsx"} }

func (p *XLSXReader) ReadPages(ctx context.Context, path string) ([]PageText, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening XLSX: %v", ErrParse, err)
	}
	defer f.Close()

	var pages []PageText
	for i, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("%w: reading sheet %q: %v", ErrParse, sheet, err)
		}

		var content strings.Builder
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t")
			if line == "" {
				continue
			}
			content.WriteString(line)
			content.WriteByte('\n')
		}
		pages = append(pages, PageText{Page: i, Text: strings.TrimRight(content.String(), "\n")})
	}
	return pages, nil
}
