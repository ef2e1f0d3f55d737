//go:build js && wasm

package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"syscall/js"
	"time"

	marathon "github.com/lucasjlepore/marathon-check"
	"github.com/lucasjlepore/marathon-check/export"
)

func main() {
	js.Global().Set("analyzeActivities", js.FuncOf(analyzeActivities))
	select {}
}

// analyzeActivities(activitiesJSON string, options object) runs the analysis
// over an exported activities array. Options: target_pace ("M:SS"),
// target_distance_km, as_of ("YYYY-MM-DD"), format ("csv"). Parquet needs a
// native build.
func analyzeActivities(_ js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		return failure("expected arguments: activitiesJSON(string), options(object)")
	}
	var optsArg js.Value
	if len(args) > 1 {
		optsArg = args[1]
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(args[0].String()), &entries); err != nil {
		return failure(fmt.Sprintf("decode activities: %v", err))
	}
	raw, decodeWarnings := marathon.DecodeWorkouts(entries)

	params := marathon.DefaultParams()
	if pace := getString(optsArg, "target_pace", ""); pace != "" {
		v, err := marathon.ParsePace(pace)
		if err != nil {
			return failure(fmt.Sprintf("target_pace: %v", err))
		}
		params.TargetPaceSecPerKm = v
	}
	if km := getFloat(optsArg, "target_distance_km"); km > 0 {
		params.TargetDistanceKm = km
	}

	asOf := time.Now()
	if day := getString(optsArg, "as_of", ""); day != "" {
		t, err := time.Parse("2006-01-02", day)
		if err != nil {
			return failure(fmt.Sprintf("as_of: %v", err))
		}
		asOf = t.Add(24*time.Hour - time.Second)
	}

	report, err := marathon.Analyze(raw, asOf, params)
	if err != nil {
		return failure(err.Error())
	}

	bundle, err := export.Build(report, getString(optsArg, "format", export.FormatCSV), "browser")
	if err != nil {
		return failure(err.Error())
	}
	zipBytes, err := zipArtifacts(bundle.Files)
	if err != nil {
		return failure(fmt.Sprintf("create zip: %v", err))
	}
	payload := js.Global().Get("Uint8Array").New(len(zipBytes))
	js.CopyBytesToJS(payload, zipBytes)

	fileNames := make([]string, 0, len(bundle.Files))
	for name := range bundle.Files {
		fileNames = append(fileNames, name)
	}
	sort.Strings(fileNames)

	warnings := make([]string, 0, len(decodeWarnings)+len(report.Warnings))
	for _, w := range decodeWarnings {
		warnings = append(warnings, w.String())
	}
	for _, w := range report.Warnings {
		warnings = append(warnings, w.String())
	}

	return map[string]any{
		"ok":       true,
		"rating":   string(report.Verdict.Rating),
		"notes":    marathon.BuildReportNotes(report),
		"report":   string(bundle.Files["report.json"]),
		"zip":      payload,
		"warnings": stringsToAny(warnings),
		"files":    stringsToAny(fileNames),
	}
}

func failure(msg string) map[string]any {
	return map[string]any{
		"ok":    false,
		"error": msg,
	}
}

func zipArtifacts(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fixedTime := time.Unix(0, 0).UTC()

	for _, name := range names {
		h := &zip.FileHeader{
			Name:   name,
			Method: zip.Deflate,
		}
		h.SetModTime(fixedTime)
		w, err := zw.CreateHeader(h)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(files[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func getString(v js.Value, key, fallback string) string {
	if v.IsUndefined() || v.IsNull() || v.Type() != js.TypeObject {
		return fallback
	}
	out := v.Get(key)
	if out.IsUndefined() || out.IsNull() {
		return fallback
	}
	s := out.String()
	if s == "" || s == "undefined" || s == "null" {
		return fallback
	}
	return s
}

func getFloat(v js.Value, key string) float64 {
	if v.IsUndefined() || v.IsNull() || v.Type() != js.TypeObject {
		return 0
	}
	out := v.Get(key)
	if out.IsUndefined() || out.IsNull() || out.Type() != js.TypeNumber {
		return 0
	}
	return out.Float()
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
