package extract

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelExtractor turns spreadsheet rows into "Header: value" text.
// Every sheet is extracted; sheets are prefixed with their name so
// multi-sheet workbooks stay attributable.
type ExcelExtractor struct{}

// Extract reads all sheets of the workbook, treating the first row of
// each sheet as headers.
func (e *ExcelExtractor) Extract(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var sections []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		if len(rows) < 2 {
			continue
		}

		headers := rows[0]
		var lines []string
		for _, record := range rows[1:] {
			line := rowToText(headers, record)
			if line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}

		sections = append(sections, fmt.Sprintf("Sheet: %s\n%s", sheet, strings.Join(lines, "\n")))
	}

	return strings.Join(sections, "\n\n"), nil
}
