// Package export writes analysis artifacts: the normalized runs as parquet or
// CSV, the full report as JSON and a manifest tying them together.
package export

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	marathon "github.com/lucasjlepore/marathon-check"
)

// Write exports report into opts.OutDir. Output files:
//   - runs.parquet or runs.csv
//   - report.json
//   - manifest.json
func Write(report *marathon.Report, opts Options) (*Result, error) {
	format, err := checkInputs(report, opts.Format)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := ensureOutputDir(opts.OutDir, opts.Overwrite); err != nil {
		return nil, err
	}

	runsPath := filepath.Join(opts.OutDir, runsFileName(format))
	switch format {
	case FormatCSV:
		if err := writeRunsCSV(runsPath, report.Runs); err != nil {
			return nil, fmt.Errorf("write runs csv: %w", err)
		}
	case FormatParquet:
		if err := writeRunsParquet(runsPath, report.Runs); err != nil {
			return nil, fmt.Errorf("write runs parquet: %w", err)
		}
	}

	reportJSON, err := marshalIndent(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	reportPath := filepath.Join(opts.OutDir, reportFileName)
	if err := os.WriteFile(reportPath, reportJSON, 0o644); err != nil {
		return nil, fmt.Errorf("write report.json: %w", err)
	}

	manifest := newManifest(report, reportJSON, format, opts.Source)
	manifestPath := filepath.Join(opts.OutDir, manifestFileName)
	if err := writeJSON(manifestPath, manifest); err != nil {
		return nil, fmt.Errorf("write manifest.json: %w", err)
	}

	return &Result{
		RunID:        manifest.RunID,
		OutputDir:    opts.OutDir,
		ManifestPath: manifestPath,
		RunsPath:     runsPath,
		ReportPath:   reportPath,
	}, nil
}

// Build renders the same artifacts as Write in memory, keyed by file name.
func Build(report *marathon.Report, format, source string) (*Bundle, error) {
	format, err := checkInputs(report, format)
	if err != nil {
		return nil, err
	}

	var runs []byte
	switch format {
	case FormatCSV:
		runs, err = marshalRunsCSV(report.Runs)
	case FormatParquet:
		runs, err = marshalRunsParquet(report.Runs)
	}
	if err != nil {
		return nil, fmt.Errorf("encode runs %s: %w", format, err)
	}

	reportJSON, err := marshalIndent(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	manifest := newManifest(report, reportJSON, format, source)
	manifestJSON, err := marshalIndent(manifest)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	return &Bundle{
		Manifest: manifest,
		Files: map[string][]byte{
			runsFileName(format): runs,
			reportFileName:       reportJSON,
			manifestFileName:     manifestJSON,
		},
	}, nil
}

func checkInputs(report *marathon.Report, format string) (string, error) {
	if report == nil {
		return "", fmt.Errorf("report is required")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatParquet
	}
	if format != FormatParquet && format != FormatCSV {
		return "", fmt.Errorf("unsupported format %q (expected parquet|csv)", format)
	}
	return format, nil
}

func newManifest(report *marathon.Report, reportJSON []byte, format, source string) Manifest {
	sum := sha256.Sum256(reportJSON)
	return Manifest{
		FormatVersion: FormatVersion,
		RunID:         uuid.NewString(),
		GeneratedAt:   time.Now().UTC(),
		AsOf:          report.AsOf,
		Source:        source,
		RunsPath:      runsFileName(format),
		RunsFormat:    format,
		RunCount:      len(report.Runs),
		WarningCount:  len(report.Warnings),
		ReportPath:    reportFileName,
		ReportSHA256:  hex.EncodeToString(sum[:]),
		Rating:        string(report.Verdict.Rating),
		Columns:       append([]string(nil), runColumns...),
	}
}

func runsFileName(format string) string {
	return "runs." + format
}

// WriteRaw saves fetched activities as an indented JSON array so a later run
// can analyze them offline with ReadRaw.
func WriteRaw(path string, entries []json.RawMessage) error {
	if entries == nil {
		entries = []json.RawMessage{}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}
	if err := writeJSON(path, entries); err != nil {
		return fmt.Errorf("write raw activities: %w", err)
	}
	return nil
}

// ReadRaw loads a JSON array of activities written by WriteRaw or by any
// tool producing Strava summary activities.
func ReadRaw(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read activities file: %w", err)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode activities file %s: %w", path, err)
	}
	return entries, nil
}

func ensureOutputDir(path string, overwrite bool) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}
	if len(entries) > 0 && !overwrite {
		return fmt.Errorf("output directory is not empty: %s (set overwrite=true to allow)", path)
	}
	return nil
}

func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(path string, v any) error {
	data, err := marshalIndent(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
