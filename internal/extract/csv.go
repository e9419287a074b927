package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVExtractor turns CSV rows into "Header: value" text, one row per line.
type CSVExtractor struct{}

// Extract reads the CSV file, treating the first row as headers.
func (e *CSVExtractor) Extract(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // Tolerate ragged rows

	headers, err := reader.Read()
	if err == io.EOF {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read csv header: %w", err)
	}

	var lines []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read csv row: %w", err)
		}
		lines = append(lines, rowToText(headers, record))
	}

	return strings.Join(lines, "\n"), nil
}

// rowToText formats a data row as "Header: value" pairs joined by commas.
// Cells beyond the header count keep their positional column name.
func rowToText(headers, record []string) string {
	parts := make([]string, 0, len(record))
	for i, value := range record {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		header := fmt.Sprintf("column_%d", i+1)
		if i < len(headers) && strings.TrimSpace(headers[i]) != "" {
			header = strings.TrimSpace(headers[i])
		}
		parts = append(parts, fmt.Sprintf("%s: %s", header, value))
	}
	return strings.Join(parts, ", ")
}
