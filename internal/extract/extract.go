// Package extract converts source documents into plain text for chunking.
// Extractors are selected by file extension through a Registry.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrNoText is returned when a file yields no extractable text.
	// Distinguishable from extraction failures so callers can report
	// empty documents instead of retrying them.
	ErrNoText = errors.New("no extractable text")

	// ErrUnsupportedFormat is returned for file extensions with no
	// registered extractor.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Extractor converts a single file into plain text.
type Extractor interface {
	Extract(path string) (string, error)
}

type entry struct {
	extractor Extractor
	docType   string
}

// Registry maps file extensions to extractors.
type Registry struct {
	byExt map[string]entry
}

// NewRegistry creates a registry with all supported formats registered.
func NewRegistry() *Registry {
	r := &Registry{byExt: map[string]entry{}}
	r.Register(".pdf", "pdf", &PDFExtractor{})
	r.Register(".md", "markdown", NewMarkdownExtractor())
	r.Register(".markdown", "markdown", NewMarkdownExtractor())
	r.Register(".txt", "text", &TextExtractor{})
	r.Register(".csv", "csv", &CSVExtractor{})
	r.Register(".xlsx", "excel", &ExcelExtractor{})
	r.Register(".xlsm", "excel", &ExcelExtractor{})
	return r
}

// Register adds an extractor for the given extension (with leading dot).
func (r *Registry) Register(ext, docType string, e Extractor) {
	r.byExt[strings.ToLower(ext)] = entry{extractor: e, docType: docType}
}

// ForPath returns the extractor and document type for a path.
func (r *Registry) ForPath(path string) (Extractor, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return e.extractor, e.docType, nil
}

// ExtractFile extracts text from a file, selecting the extractor by
// extension. Returns ErrNoText if the result is empty after trimming.
func (r *Registry) ExtractFile(path string) (text, docType string, err error) {
	extractor, docType, err := r.ForPath(path)
	if err != nil {
		return "", "", err
	}

	text, err = extractor.Extract(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract %s: %w", path, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", "", fmt.Errorf("%w in %s", ErrNoText, path)
	}

	return text, docType, nil
}
