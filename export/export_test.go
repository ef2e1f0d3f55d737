package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	marathon "github.com/lucasjlepore/marathon-check"
)

func testReport(t *testing.T) *marathon.Report {
	t.Helper()
	asOf := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	hr := 150.0
	var raw []marathon.RawWorkout
	for i := 0; i < 6; i++ {
		dist := 10000.0 + float64(i)*1000
		moving := int(dist / 1000 * 300)
		w := marathon.RawWorkout{
			Name:           "run",
			Type:           "Run",
			Distance:       &dist,
			MovingTime:     &moving,
			ElapsedTime:    &moving,
			StartDateLocal: asOf.AddDate(0, 0, -3*(i+1)).Format("2006-01-02T15:04:05Z"),
		}
		if i%2 == 0 {
			w.AverageHeartrate = &hr
		}
		raw = append(raw, w)
	}
	report, err := marathon.Analyze(raw, asOf, marathon.DefaultParams())
	require.NoError(t, err)
	require.Len(t, report.Runs, 6)
	return report
}

func TestWriteParquetBundle(t *testing.T) {
	report := testReport(t)
	outDir := filepath.Join(t.TempDir(), "out")

	res, err := Write(report, Options{OutDir: outDir, Source: "activities.json"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "runs.parquet"), res.RunsPath)
	_, err = uuid.Parse(res.RunID)
	require.NoError(t, err)

	fr, err := local.NewLocalFileReader(res.RunsPath)
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(runRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	require.Equal(t, len(report.Runs), n)
	rows := make([]runRow, n)
	require.NoError(t, pr.Read(&rows))

	assert.Equal(t, report.Runs[0].Date.Format(dateLayout), rows[0].Date)
	assert.InDelta(t, report.Runs[0].DistanceKm, rows[0].DistanceKm, 1e-9)
	assert.InDelta(t, 300, rows[0].PaceSPerKm, 1e-9)
	withHR := 0
	for _, row := range rows {
		if row.AvgHRBPM != nil {
			withHR++
			assert.Equal(t, 150.0, *row.AvgHRBPM)
		}
		assert.Nil(t, row.EffortScore)
	}
	assert.Equal(t, 3, withHR)

	var manifest Manifest
	data, err := os.ReadFile(res.ManifestPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, res.RunID, manifest.RunID)
	assert.Equal(t, "runs.parquet", manifest.RunsPath)
	assert.Equal(t, FormatParquet, manifest.RunsFormat)
	assert.Equal(t, 6, manifest.RunCount)
	assert.Equal(t, string(report.Verdict.Rating), manifest.Rating)
	assert.Equal(t, "activities.json", manifest.Source)
	assert.Len(t, manifest.ReportSHA256, 64)

	var decoded map[string]any
	data, err = os.ReadFile(res.ReportPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "verdict")
	assert.Contains(t, decoded, "ensemble")
}

func TestWriteCSV(t *testing.T) {
	report := testReport(t)
	outDir := t.TempDir()

	res, err := Write(report, Options{OutDir: outDir, Format: "CSV"})
	require.NoError(t, err)

	f, err := os.Open(res.RunsPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, len(report.Runs)+1)
	assert.Equal(t, runColumns, rows[0])
	assert.Equal(t, "300.000000", rows[1][5])
	assert.Equal(t, "", rows[1][10], "absent effort score stays empty")
}

func TestWriteRejectsNonEmptyDirWithoutOverwrite(t *testing.T) {
	report := testReport(t)
	outDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "keep.txt"), []byte("x"), 0o644))

	_, err := Write(report, Options{OutDir: outDir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not empty")

	_, err = Write(report, Options{OutDir: outDir, Overwrite: true})
	assert.NoError(t, err)
}

func TestWriteValidation(t *testing.T) {
	_, err := Write(nil, Options{OutDir: t.TempDir()})
	assert.Error(t, err)

	report := testReport(t)
	_, err = Write(report, Options{})
	assert.Error(t, err)
	_, err = Write(report, Options{OutDir: t.TempDir(), Format: "xlsx"})
	assert.ErrorContains(t, err, "unsupported format")
}

func TestBuildInMemory(t *testing.T) {
	report := testReport(t)

	bundle, err := Build(report, "", "strava")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"runs.parquet", "report.json", "manifest.json"}, keys(bundle.Files))
	assert.Equal(t, "strava", bundle.Manifest.Source)

	pr, err := reader.NewParquetReader(parquetbuffer.NewBufferFileFromBytes(bundle.Files["runs.parquet"]), new(runRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	assert.Equal(t, int64(len(report.Runs)), pr.GetNumRows())

	var manifest Manifest
	require.NoError(t, json.Unmarshal(bundle.Files["manifest.json"], &manifest))
	assert.Equal(t, bundle.Manifest.RunID, manifest.RunID)

	csvBundle, err := Build(report, FormatCSV, "strava")
	require.NoError(t, err)
	assert.Contains(t, csvBundle.Files, "runs.csv")
	assert.NotEqual(t, bundle.Manifest.RunID, csvBundle.Manifest.RunID)
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestRawRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "activities.json")
	entries := []json.RawMessage{
		json.RawMessage(`{"type":"Run","distance":5000}`),
		json.RawMessage(`{"type":"Ride"}`),
	}
	require.NoError(t, WriteRaw(path, entries))

	got, err := ReadRaw(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.JSONEq(t, `{"type":"Run","distance":5000}`, string(got[0]))

	workouts, warnings := marathon.DecodeWorkouts(got)
	assert.Empty(t, warnings)
	assert.Equal(t, "Ride", workouts[1].Type)
}

func TestReadRawErrors(t *testing.T) {
	_, err := ReadRaw(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"}`), 0o644))
	_, err = ReadRaw(path)
	assert.Error(t, err)
}
