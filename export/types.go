package export

import "time"

const (
	// FormatVersion is bumped when the artifact layout changes.
	FormatVersion = "1"

	FormatParquet = "parquet"
	FormatCSV     = "csv"

	reportFileName   = "report.json"
	manifestFileName = "manifest.json"
)

// Options configures Write.
type Options struct {
	OutDir    string
	Format    string // parquet|csv
	Overwrite bool
	// Source describes where the activities came from, e.g. "strava" or a
	// file path.
	Source string
}

// Result returns generated output paths.
type Result struct {
	RunID        string `json:"run_id"`
	OutputDir    string `json:"output_dir"`
	ManifestPath string `json:"manifest_path"`
	RunsPath     string `json:"runs_path"`
	ReportPath   string `json:"report_path"`
}

// Bundle is an in-memory export.
type Bundle struct {
	Manifest Manifest
	Files    map[string][]byte
}

// Manifest describes one export bundle.
type Manifest struct {
	FormatVersion string    `json:"format_version"`
	RunID         string    `json:"run_id"`
	GeneratedAt   time.Time `json:"generated_at"`
	AsOf          time.Time `json:"as_of"`
	Source        string    `json:"source,omitempty"`
	RunsPath      string    `json:"runs_path"`
	RunsFormat    string    `json:"runs_format"`
	RunCount      int       `json:"run_count"`
	WarningCount  int       `json:"warning_count"`
	ReportPath    string    `json:"report_path"`
	ReportSHA256  string    `json:"report_sha256"`
	Rating        string    `json:"rating"`
	Columns       []string  `json:"columns"`
}
