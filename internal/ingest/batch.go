package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchOptions control a directory-wide ingestion run.
type BatchOptions struct {
	// Pattern is a glob matched against file names (default "*.pdf").
	Pattern string
	// Recursive walks subdirectories (default true via NewBatchOptions).
	Recursive bool
	// Workers bounds inter-document parallelism (default 1).
	Workers int
	// ReportPath, when set, receives the JSON report.
	ReportPath string
	// MetadataFromPath records the containing directory in each
	// document's metadata.
	MetadataFromPath bool

	// Ingest holds the per-file options applied to every document.
	Ingest Options
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.Pattern == "" {
		o.Pattern = "*.pdf"
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

// SuccessDetail records one successfully ingested file.
type SuccessDetail struct {
	File       string `json:"file"`
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
	Status     string `json:"status"`
}

// SkipDetail records one file skipped as already indexed.
type SkipDetail struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
	Status string `json:"status"`
}

// FailureDetail records one file that failed to ingest.
type FailureDetail struct {
	File   string `json:"file"`
	Error  string `json:"error"`
	Status string `json:"status"`
}

// Report aggregates the outcome of a batch run into three buckets.
type Report struct {
	mu sync.Mutex

	StartTime  time.Time       `json:"start_time"`
	EndTime    time.Time       `json:"end_time"`
	TotalFiles int             `json:"total_files"`
	Successful []SuccessDetail `json:"-"`
	Skipped    []SkipDetail    `json:"-"`
	Failed     []FailureDetail `json:"-"`
}

// NewReport creates a report with the start time set.
func NewReport() *Report {
	return &Report{StartTime: time.Now()}
}

// AddSuccess records a successfully ingested file. Safe for concurrent use.
func (r *Report) AddSuccess(file, documentID string, chunks int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Successful = append(r.Successful, SuccessDetail{
		File: file, DocumentID: documentID, Chunks: chunks, Status: "success",
	})
}

// AddSkipped records a skipped file. Safe for concurrent use.
func (r *Report) AddSkipped(file, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped = append(r.Skipped, SkipDetail{File: file, Reason: reason, Status: "skipped"})
}

// AddFailed records a failed file. Safe for concurrent use.
func (r *Report) AddFailed(file string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed = append(r.Failed, FailureDetail{File: file, Error: err.Error(), Status: "failed"})
}

// Finalize records the end time.
func (r *Report) Finalize() {
	r.EndTime = time.Now()
}

// HasFailures reports whether any file failed.
func (r *Report) HasFailures() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Failed) > 0
}

// MarshalJSON serializes the report with a summary section and the three
// detail buckets.
func (r *Report) MarshalJSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return json.Marshal(struct {
		StartTime       string  `json:"start_time"`
		EndTime         string  `json:"end_time"`
		DurationSeconds float64 `json:"duration_seconds"`
		TotalFiles      int     `json:"total_files"`
		Summary         struct {
			Successful int `json:"successful"`
			Skipped    int `json:"skipped"`
			Failed     int `json:"failed"`
		} `json:"summary"`
		Details struct {
			Successful []SuccessDetail `json:"successful"`
			Skipped    []SkipDetail    `json:"skipped"`
			Failed     []FailureDetail `json:"failed"`
		} `json:"details"`
	}{
		StartTime:       r.StartTime.Format(time.RFC3339),
		EndTime:         r.EndTime.Format(time.RFC3339),
		DurationSeconds: r.EndTime.Sub(r.StartTime).Seconds(),
		TotalFiles:      r.TotalFiles,
		Summary: struct {
			Successful int `json:"successful"`
			Skipped    int `json:"skipped"`
			Failed     int `json:"failed"`
		}{len(r.Successful), len(r.Skipped), len(r.Failed)},
		Details: struct {
			Successful []SuccessDetail `json:"successful"`
			Skipped    []SkipDetail    `json:"skipped"`
			Failed     []FailureDetail `json:"failed"`
		}{emptyIfNilSuccess(r.Successful), emptyIfNilSkip(r.Skipped), emptyIfNilFail(r.Failed)},
	})
}

// Save writes the report as indented JSON to the given path.
func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// FindFiles returns the absolute paths of files under dir matching the
// glob pattern, sorted for deterministic ordering.
func FindFiles(dir, pattern string, recursive bool) ([]string, error) {
	var files []string

	if recursive {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ok, err := filepath.Match(pattern, d.Name())
			if err != nil {
				return err
			}
			if ok {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
		}
	} else {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		files = matches
	}

	for i, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		files[i] = abs
	}

	sort.Strings(files)
	return files, nil
}

// IngestDirectory ingests every matching file under dir through the
// pipeline with a bounded worker pool. Per-file failures are recorded in
// the report and do not stop the batch; callers decide the overall
// outcome from Report.HasFailures.
func (p *Pipeline) IngestDirectory(ctx context.Context, dir string, opts BatchOptions) (*Report, error) {
	opts = opts.withDefaults()

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("directory not found: %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	report := NewReport()

	files, err := FindFiles(dir, opts.Pattern, opts.Recursive)
	if err != nil {
		return nil, err
	}
	report.TotalFiles = len(files)

	if len(files) == 0 {
		p.logger.Warn("no files matched", "dir", dir, "pattern", opts.Pattern)
		report.Finalize()
		return report, nil
	}

	p.logger.Info("batch ingestion started",
		"dir", dir, "files", len(files), "workers", opts.Workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, file := range files {
		g.Go(func() error {
			fileOpts := opts.Ingest
			fileOpts.Title = titleFromPath(file)
			fileOpts.Metadata = fileMetadata(opts, file)

			result, err := p.Ingest(gctx, file, fileOpts)
			switch {
			case err != nil:
				report.AddFailed(file, err)
			case result.Skipped:
				report.AddSkipped(file, "already indexed with unchanged content")
			default:
				report.AddSuccess(file, result.DocumentID, result.TotalChunks)
			}
			// Per-file errors never cancel the group.
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	report.Finalize()

	if opts.ReportPath != "" {
		if err := report.Save(opts.ReportPath); err != nil {
			return nil, err
		}
		p.logger.Info("report written", "path", opts.ReportPath)
	}

	return report, nil
}

// titleFromPath derives a document title from the file name without
// extension.
func titleFromPath(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// fileMetadata copies the template metadata and optionally records the
// containing directory.
func fileMetadata(opts BatchOptions, file string) map[string]any {
	meta := map[string]any{}
	for k, v := range opts.Ingest.Metadata {
		meta[k] = v
	}
	if opts.MetadataFromPath {
		meta["directory"] = filepath.Base(filepath.Dir(file))
	}
	return meta
}

func emptyIfNilSuccess(s []SuccessDetail) []SuccessDetail {
	if s == nil {
		return []SuccessDetail{}
	}
	return s
}

func emptyIfNilSkip(s []SkipDetail) []SkipDetail {
	if s == nil {
		return []SkipDetail{}
	}
	return s
}

func emptyIfNilFail(s []FailureDetail) []FailureDetail {
	if s == nil {
		return []FailureDetail{}
	}
	return s
}
