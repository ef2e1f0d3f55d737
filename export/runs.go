package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	marathon "github.com/lucasjlepore/marathon-check"
)

const dateLayout = "2006-01-02T15:04:05"

var runColumns = []string{
	"date", "name", "distance_km", "moving_time_s", "elapsed_time_s", "pace_s_per_km", "speed_kmh",
	"elevation_gain_m", "avg_hr_bpm", "max_hr_bpm", "effort_score", "avg_cadence", "workout_type",
}

// runRow mirrors runColumns. Absent optional values are stored as nulls.
type runRow struct {
	Date           string   `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name           string   `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	DistanceKm     float64  `parquet:"name=distance_km, type=DOUBLE"`
	MovingTimeS    int64    `parquet:"name=moving_time_s, type=INT64"`
	ElapsedTimeS   int64    `parquet:"name=elapsed_time_s, type=INT64"`
	PaceSPerKm     float64  `parquet:"name=pace_s_per_km, type=DOUBLE"`
	SpeedKmh       *float64 `parquet:"name=speed_kmh, type=DOUBLE, repetitiontype=OPTIONAL"`
	ElevationGainM *float64 `parquet:"name=elevation_gain_m, type=DOUBLE, repetitiontype=OPTIONAL"`
	AvgHRBPM       *float64 `parquet:"name=avg_hr_bpm, type=DOUBLE, repetitiontype=OPTIONAL"`
	MaxHRBPM       *float64 `parquet:"name=max_hr_bpm, type=DOUBLE, repetitiontype=OPTIONAL"`
	EffortScore    *float64 `parquet:"name=effort_score, type=DOUBLE, repetitiontype=OPTIONAL"`
	AvgCadence     *float64 `parquet:"name=avg_cadence, type=DOUBLE, repetitiontype=OPTIONAL"`
	WorkoutType    *int64   `parquet:"name=workout_type, type=INT64, repetitiontype=OPTIONAL"`
}

func newRunRow(r marathon.Run) runRow {
	row := runRow{
		Date:           r.Date.Format(dateLayout),
		Name:           r.Name,
		DistanceKm:     r.DistanceKm,
		MovingTimeS:    int64(r.MovingTimeSec),
		ElapsedTimeS:   int64(r.ElapsedTimeSec),
		PaceSPerKm:     r.PaceSecPerKm,
		SpeedKmh:       r.SpeedKmh,
		ElevationGainM: r.ElevationGainM,
		AvgHRBPM:       r.AvgHeartRate,
		MaxHRBPM:       r.MaxHeartRate,
		EffortScore:    r.EffortScore,
		AvgCadence:     r.AvgCadence,
	}
	if r.WorkoutType != nil {
		v := int64(*r.WorkoutType)
		row.WorkoutType = &v
	}
	return row
}

func writeRunsParquet(path string, runs []marathon.Run) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	pw, err := writer.NewParquetWriter(fw, new(runRow), 4)
	if err != nil {
		_ = fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, r := range runs {
		if err := pw.Write(newRunRow(r)); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func writeRunsCSV(path string, runs []marathon.Run) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := encodeRunsCSV(f, runs); err != nil {
		return err
	}
	return f.Close()
}

func marshalRunsCSV(runs []marathon.Run) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeRunsCSV(&buf, runs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeRunsCSV(out io.Writer, runs []marathon.Run) error {
	w := csv.NewWriter(out)
	if err := w.Write(runColumns); err != nil {
		return err
	}
	for _, r := range runs {
		row := newRunRow(r)
		record := []string{
			row.Date,
			row.Name,
			formatFloat(row.DistanceKm),
			strconv.FormatInt(row.MovingTimeS, 10),
			strconv.FormatInt(row.ElapsedTimeS, 10),
			formatFloat(row.PaceSPerKm),
			formatFloatPtr(row.SpeedKmh),
			formatFloatPtr(row.ElevationGainM),
			formatFloatPtr(row.AvgHRBPM),
			formatFloatPtr(row.MaxHRBPM),
			formatFloatPtr(row.EffortScore),
			formatFloatPtr(row.AvgCadence),
			formatIntPtr(row.WorkoutType),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatIntPtr(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
