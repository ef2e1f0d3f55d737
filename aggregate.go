package marathon

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

const daysPerWeek = 7

// Stat is an aggregate value that is absent when nothing qualified for it.
// An invalid Stat marshals as JSON null.
type Stat struct {
	Value float64
	Valid bool
}

// Some returns a valid Stat.
func Some(v float64) Stat {
	return Stat{Value: v, Valid: true}
}

func (s Stat) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

func (s *Stat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Stat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Some(v)
	return nil
}

// Predicate selects runs.
type Predicate func(Run) bool

// Since keeps runs dated at or after t.
func Since(t time.Time) Predicate {
	return func(r Run) bool { return !r.Date.Before(t) }
}

// Until keeps runs dated at or before t.
func Until(t time.Time) Predicate {
	return func(r Run) bool { return !r.Date.After(t) }
}

// Within keeps runs inside the trailing window of weeks ending at asOf,
// both ends included.
func Within(asOf time.Time, weeks int) Predicate {
	start := WindowStart(asOf, weeks)
	return func(r Run) bool { return !r.Date.Before(start) && !r.Date.After(asOf) }
}

// MinDistance keeps runs of at least km.
func MinDistance(km float64) Predicate {
	return func(r Run) bool { return r.DistanceKm >= km }
}

// DistanceBetween keeps runs with lo <= distance <= hi.
func DistanceBetween(lo, hi float64) Predicate {
	return func(r Run) bool { return r.DistanceKm >= lo && r.DistanceKm <= hi }
}

// PaceAtMost keeps runs at or faster than secPerKm.
func PaceAtMost(secPerKm float64) Predicate {
	return func(r Run) bool { return r.PaceSecPerKm <= secPerKm }
}

// Select returns the runs matching every predicate, preserving order.
func Select(runs []Run, preds ...Predicate) []Run {
	out := make([]Run, 0, len(runs))
next:
	for _, r := range runs {
		for _, p := range preds {
			if !p(r) {
				continue next
			}
		}
		out = append(out, r)
	}
	return out
}

// Field extracts a numeric value from a run; ok is false when the run has none.
type Field func(Run) (value float64, ok bool)

var (
	Distance Field = func(r Run) (float64, bool) { return r.DistanceKm, true }
	Pace     Field = func(r Run) (float64, bool) { return r.PaceSecPerKm, r.PaceSecPerKm > 0 }

	Speed         = optionalField(func(r Run) *float64 { return r.SpeedKmh })
	AvgHeartRate  = optionalField(func(r Run) *float64 { return r.AvgHeartRate })
	MaxHeartRate  = optionalField(func(r Run) *float64 { return r.MaxHeartRate })
	ElevationGain = optionalField(func(r Run) *float64 { return r.ElevationGainM })
	Cadence       = optionalField(func(r Run) *float64 { return r.AvgCadence })
	Effort        = optionalField(func(r Run) *float64 { return r.EffortScore })
)

func optionalField(get func(Run) *float64) Field {
	return func(r Run) (float64, bool) {
		v := get(r)
		if v == nil || !isFinite(*v) {
			return 0, false
		}
		return *v, true
	}
}

// Summary aggregates one field over a selection of runs.
type Summary struct {
	Count int  `json:"count"`
	Sum   Stat `json:"sum"`
	Mean  Stat `json:"mean"`
	Min   Stat `json:"min"`
	Max   Stat `json:"max"`
}

// Summarize aggregates field over runs, ignoring runs where the field is absent.
func Summarize(runs []Run, field Field) Summary {
	var s Summary
	total := 0.0
	for _, r := range runs {
		v, ok := field(r)
		if !ok || !isFinite(v) {
			continue
		}
		if s.Count == 0 || v < s.Min.Value {
			s.Min = Some(v)
		}
		if s.Count == 0 || v > s.Max.Value {
			s.Max = Some(v)
		}
		total += v
		s.Count++
	}
	if s.Count == 0 {
		return Summary{}
	}
	s.Sum = Some(total)
	s.Mean = Some(total / float64(s.Count))
	return s
}

// Bucket aggregates the runs falling in one calendar group.
type Bucket struct {
	Key       string    `json:"key"`
	Start     time.Time `json:"start"`
	Runs      int       `json:"runs"`
	TotalKm   float64   `json:"total_km"`
	LongestKm float64   `json:"longest_km"`
	MeanPace  Stat      `json:"mean_pace_sec_per_km"`
	BestPace  Stat      `json:"best_pace_sec_per_km"`
	paceTotal float64
	paceCount int
}

func (b *Bucket) add(r Run) {
	b.Runs++
	b.TotalKm += r.DistanceKm
	if r.DistanceKm > b.LongestKm {
		b.LongestKm = r.DistanceKm
	}
	if r.PaceSecPerKm > 0 {
		if !b.BestPace.Valid || r.PaceSecPerKm < b.BestPace.Value {
			b.BestPace = Some(r.PaceSecPerKm)
		}
		b.paceTotal += r.PaceSecPerKm
		b.paceCount++
		b.MeanPace = Some(b.paceTotal / float64(b.paceCount))
	}
}

// MonthKey returns the calendar month of t as YYYY-MM.
func MonthKey(t time.Time) (string, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())), start
}

// WeekKey returns the ISO-8601 week of t as YYYY-Www. Weeks start on Monday and
// the year is the ISO week-year, so late-December days can belong to week 1.
func WeekKey(t time.Time) (string, time.Time) {
	year, week := t.ISOWeek()
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return fmt.Sprintf("%04d-W%02d", year, week), day.AddDate(0, 0, -offset)
}

// GroupByMonth buckets runs by calendar month in one pass.
func GroupByMonth(runs []Run) []Bucket {
	return groupBy(runs, MonthKey)
}

// GroupByWeek buckets runs by ISO week in one pass.
func GroupByWeek(runs []Run) []Bucket {
	return groupBy(runs, WeekKey)
}

func groupBy(runs []Run, keyOf func(time.Time) (string, time.Time)) []Bucket {
	index := make(map[string]int)
	buckets := make([]Bucket, 0)
	for _, r := range runs {
		key, start := keyOf(r.Date)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, Bucket{Key: key, Start: start})
		}
		buckets[i].add(r)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Start.Before(buckets[j].Start)
	})
	return buckets
}

// WindowStart returns the start of a trailing window of weeks ending at asOf.
func WindowStart(asOf time.Time, weeks int) time.Time {
	return asOf.AddDate(0, 0, -weeks*daysPerWeek)
}

// WeeksSpanned is the number of weeks between the first and last run, counted
// in whole days and never less than one.
func WeeksSpanned(runs []Run) float64 {
	if len(runs) == 0 {
		return 1
	}
	weeks := float64(wholeDays(runs[0].Date, runs[len(runs)-1].Date)) / daysPerWeek
	return math.Max(weeks, 1)
}

// SpanDays is the number of whole days between the first and last run.
func SpanDays(runs []Run) int {
	if len(runs) == 0 {
		return 0
	}
	return wholeDays(runs[0].Date, runs[len(runs)-1].Date)
}

func wholeDays(from, to time.Time) int {
	return int(math.Floor(to.Sub(from).Hours() / 24))
}

// Percentile returns the q-quantile of values using linear interpolation
// between closest ranks.
func Percentile(values []float64, q float64) Stat {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return Stat{}
	}
	sort.Float64s(clean)
	q = math.Min(math.Max(q, 0), 1)
	pos := q * float64(len(clean)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return Some(clean[lo] + (clean[hi]-clean[lo])*frac)
}

func values(runs []Run, field Field) []float64 {
	out := make([]float64, 0, len(runs))
	for _, r := range runs {
		if v, ok := field(r); ok {
			out = append(out, v)
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
