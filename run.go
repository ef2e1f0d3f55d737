package marathon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const (
	metersPerKm    = 1000.0
	secondsPerHour = 3600.0

	// MinRunKm is the shortest entry kept by Normalize.
	MinRunKm = 0.5
)

// RawWorkout is the subset of a tracking-service activity the pipeline consumes.
// Required fields are pointers so a missing value can be told apart from zero.
type RawWorkout struct {
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	SportType          string   `json:"sport_type,omitempty"`
	Distance           *float64 `json:"distance"`
	MovingTime         *int     `json:"moving_time"`
	ElapsedTime        *int     `json:"elapsed_time"`
	StartDateLocal     string   `json:"start_date_local"`
	TotalElevationGain *float64 `json:"total_elevation_gain,omitempty"`
	AverageHeartrate   *float64 `json:"average_heartrate,omitempty"`
	MaxHeartrate       *float64 `json:"max_heartrate,omitempty"`
	SufferScore        *float64 `json:"suffer_score,omitempty"`
	AverageCadence     *float64 `json:"average_cadence,omitempty"`
	WorkoutType        *int     `json:"workout_type,omitempty"`

	// Entry is the position of the workout in its source listing. Warnings
	// use it when set, otherwise the slice position.
	Entry *int `json:"-"`
}

// UnmarshalJSON accepts whole or fractional numbers for the integer fields
// and rounds them to the nearest second.
func (w *RawWorkout) UnmarshalJSON(data []byte) error {
	type plain RawWorkout
	aux := struct {
		*plain
		MovingTime  *float64 `json:"moving_time"`
		ElapsedTime *float64 `json:"elapsed_time"`
		WorkoutType *float64 `json:"workout_type,omitempty"`
	}{plain: (*plain)(w)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	w.MovingTime = roundInt(aux.MovingTime)
	w.ElapsedTime = roundInt(aux.ElapsedTime)
	w.WorkoutType = roundInt(aux.WorkoutType)
	return nil
}

func roundInt(v *float64) *int {
	if v == nil {
		return nil
	}
	out := int(math.Round(*v))
	return &out
}

// Run is one normalized, qualifying workout. Runs are values and are never
// modified once Normalize returns them.
type Run struct {
	Date           time.Time `json:"date"`
	Name           string    `json:"name,omitempty"`
	DistanceKm     float64   `json:"distance_km"`
	MovingTimeSec  int       `json:"moving_time_sec"`
	ElapsedTimeSec int       `json:"elapsed_time_sec"`
	PaceSecPerKm   float64   `json:"pace_sec_per_km"`
	SpeedKmh       *float64  `json:"speed_kmh,omitempty"`
	ElevationGainM *float64  `json:"elevation_gain_m,omitempty"`
	AvgHeartRate   *float64  `json:"avg_heart_rate_bpm,omitempty"`
	MaxHeartRate   *float64  `json:"max_heart_rate_bpm,omitempty"`
	EffortScore    *float64  `json:"effort_score,omitempty"`
	AvgCadence     *float64  `json:"avg_cadence,omitempty"`
	WorkoutType    *int      `json:"workout_type,omitempty"`
}

// Warning describes an input entry that was skipped.
type Warning struct {
	Index  int    `json:"index"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	if w.Name != "" {
		return fmt.Sprintf("entry %d (%s): %s", w.Index, w.Name, w.Reason)
	}
	return fmt.Sprintf("entry %d: %s", w.Index, w.Reason)
}

// DecodeWorkouts decodes raw JSON activities one by one. Entries that do not
// decode, or are null, are reported as warnings and left out. Every decoded
// workout records its position in entries.
func DecodeWorkouts(entries []json.RawMessage) ([]RawWorkout, []Warning) {
	out := make([]RawWorkout, 0, len(entries))
	var warnings []Warning
	for i, entry := range entries {
		trimmed := bytes.TrimSpace(entry)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			warnings = append(warnings, Warning{Index: i, Reason: "empty entry"})
			continue
		}
		var w RawWorkout
		if err := json.Unmarshal(trimmed, &w); err != nil {
			warnings = append(warnings, Warning{Index: i, Reason: fmt.Sprintf("decode: %v", err)})
			continue
		}
		pos := i
		w.Entry = &pos
		out = append(out, w)
	}
	return out, warnings
}

// Normalize converts raw workouts of the given kind into runs sorted by date.
//
// Entries of another kind are dropped silently, as are entries shorter than
// MinRunKm. Entries without a type, missing a required field, with an
// unparsable start date or with zero moving time are skipped and reported as
// warnings.
func Normalize(raw []RawWorkout, kind string) ([]Run, []Warning) {
	runs := make([]Run, 0, len(raw))
	var warnings []Warning
	for i, w := range raw {
		index := i
		if w.Entry != nil {
			index = *w.Entry
		}
		typ := strings.TrimSpace(w.Type)
		if typ == "" {
			warnings = append(warnings, Warning{Index: index, Name: w.Name, Reason: "missing type"})
			continue
		}
		if !strings.EqualFold(typ, strings.TrimSpace(kind)) {
			continue
		}
		run, reason, ok := normalizeOne(w)
		if reason != "" {
			warnings = append(warnings, Warning{Index: index, Name: w.Name, Reason: reason})
			continue
		}
		if !ok {
			continue
		}
		runs = append(runs, run)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Date.Before(runs[j].Date)
	})
	return runs, warnings
}

func normalizeOne(w RawWorkout) (Run, string, bool) {
	switch {
	case w.Distance == nil:
		return Run{}, "missing distance", false
	case w.MovingTime == nil:
		return Run{}, "missing moving_time", false
	case w.ElapsedTime == nil:
		return Run{}, "missing elapsed_time", false
	case strings.TrimSpace(w.StartDateLocal) == "":
		return Run{}, "missing start_date_local", false
	}
	if !isFinite(*w.Distance) || *w.Distance < 0 {
		return Run{}, fmt.Sprintf("invalid distance %v", *w.Distance), false
	}
	if *w.MovingTime < 0 || *w.ElapsedTime < 0 {
		return Run{}, "negative duration", false
	}

	date, err := ParseLocalTime(w.StartDateLocal)
	if err != nil {
		return Run{}, err.Error(), false
	}

	distanceKm := *w.Distance / metersPerKm
	if distanceKm < MinRunKm {
		return Run{}, "", false
	}
	if *w.MovingTime == 0 {
		return Run{}, "zero moving_time", false
	}

	run := Run{
		Date:           date,
		Name:           w.Name,
		DistanceKm:     distanceKm,
		MovingTimeSec:  *w.MovingTime,
		ElapsedTimeSec: *w.ElapsedTime,
		PaceSecPerKm:   float64(*w.MovingTime) / distanceKm,
		ElevationGainM: finiteOrNil(w.TotalElevationGain),
		AvgHeartRate:   finiteOrNil(w.AverageHeartrate),
		MaxHeartRate:   finiteOrNil(w.MaxHeartrate),
		EffortScore:    finiteOrNil(w.SufferScore),
		AvgCadence:     finiteOrNil(w.AverageCadence),
	}
	speed := distanceKm / float64(*w.MovingTime) * secondsPerHour
	run.SpeedKmh = &speed
	if w.WorkoutType != nil {
		wt := *w.WorkoutType
		run.WorkoutType = &wt
	}
	return run, "", true
}

var localLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseLocalTime parses a start timestamp as wall-clock time. Any zone or
// offset in the input is discarded without converting the clock reading.
func ParseLocalTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range localLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return WallClock(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable start date %q", s)
}

// WallClock keeps the clock reading of t and drops its zone.
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func finiteOrNil(v *float64) *float64 {
	if v == nil || !isFinite(*v) {
		return nil
	}
	out := *v
	return &out
}
