package extract

import (
	"fmt"
	"os"
)

// TextExtractor reads plain text files as-is.
type TextExtractor struct{}

// Extract returns the file content unchanged.
func (e *TextExtractor) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}
