package directory

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Spreadsheet reads directory rows from an xlsx file. The sheet has no header row:
// column A holds the salesperson name, B the market and C the e-mail address.
type Spreadsheet struct {
	Path  string
	Sheet string
}

func (s Spreadsheet) Load(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	xl, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer xl.Close()
	return readSheet(xl, s.Sheet)
}

// ReadWorkbook parses directory rows from an uploaded workbook. An empty sheet name
// selects the first sheet.
func ReadWorkbook(r io.Reader, sheet string) ([]Entry, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer xl.Close()
	return readSheet(xl, sheet)
}

func readSheet(xl *excelize.File, sheet string) ([]Entry, error) {
	if sheet == "" {
		sheet = xl.GetSheetName(0)
	}
	rows, err := xl.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return parseRows(rows), nil
}

func parseRows(rows [][]string) []Entry {
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e := Entry{
			Name:   cell(row, 0),
			Market: cell(row, 1),
			Email:  cell(row, 2),
		}
		if e.Name == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
