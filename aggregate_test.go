package marathon

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalized(t *testing.T, raw ...RawWorkout) []Run {
	t.Helper()
	runs, warnings := Normalize(raw, DefaultKind)
	require.Empty(t, warnings)
	return runs
}

func TestSummarizeEmptySelectionHasNoData(t *testing.T) {
	runs := normalized(t, rawRun(day(2024, 1, 1), 5, 300))

	for _, field := range []Field{Distance, Pace, AvgHeartRate, Cadence} {
		s := Summarize(Select(runs, MinDistance(100)), field)
		assert.Equal(t, 0, s.Count)
		assert.False(t, s.Sum.Valid)
		assert.False(t, s.Mean.Valid)
		assert.False(t, s.Min.Valid)
		assert.False(t, s.Max.Valid)
	}

	// Present runs without the optional field are still "no data".
	assert.False(t, Summarize(runs, AvgHeartRate).Mean.Valid)

	data, err := json.Marshal(Summarize(nil, Pace))
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":0,"sum":null,"mean":null,"min":null,"max":null}`, string(data))
}

func TestSummarize(t *testing.T) {
	runs := normalized(t,
		rawRun(day(2024, 1, 1), 5, 300),
		rawRun(day(2024, 1, 2), 10, 330),
		rawRun(day(2024, 1, 3), 15, 360),
	)
	s := Summarize(runs, Distance)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 30.0, s.Sum.Value, 1e-9)
	assert.InDelta(t, 10.0, s.Mean.Value, 1e-9)
	assert.InDelta(t, 5.0, s.Min.Value, 1e-9)
	assert.InDelta(t, 15.0, s.Max.Value, 1e-9)

	p := Summarize(Select(runs, DistanceBetween(8, 20), PaceAtMost(340)), Pace)
	assert.Equal(t, 1, p.Count)
	assert.InDelta(t, 330.0, p.Mean.Value, 1e-9)
}

func TestStatJSON(t *testing.T) {
	var s Stat
	require.NoError(t, json.Unmarshal([]byte("null"), &s))
	assert.False(t, s.Valid)
	require.NoError(t, json.Unmarshal([]byte("12.5"), &s))
	assert.Equal(t, Some(12.5), s)

	out, err := json.Marshal(Some(3))
	require.NoError(t, err)
	assert.Equal(t, "3", string(out))
}

func TestPercentile(t *testing.T) {
	values := []float64{4, 1, 3, 2}
	cases := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{0.15, 1.45},
		{0.5, 2.5},
		{1, 4},
	}
	for _, tc := range cases {
		got := Percentile(values, tc.q)
		require.True(t, got.Valid)
		assert.InDelta(t, tc.want, got.Value, 1e-9, "q=%v", tc.q)
	}

	assert.False(t, Percentile(nil, 0.5).Valid)
	assert.False(t, Percentile([]float64{math.NaN()}, 0.5).Valid)
	assert.Equal(t, Some(7), Percentile([]float64{7}, 0.15))
}

func TestWeekKeyUsesISOWeeks(t *testing.T) {
	cases := []struct {
		date      time.Time
		key       string
		weekStart time.Time
	}{
		{time.Date(2024, 12, 30, 18, 0, 0, 0, time.UTC), "2025-W01", time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)},
		{time.Date(2021, 1, 3, 9, 0, 0, 0, time.UTC), "2020-W53", time.Date(2020, 12, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC), "2026-W01", time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 5, 12, 6, 0, 0, 0, time.UTC), "2024-W19", time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		key, start := WeekKey(tc.date)
		assert.Equal(t, tc.key, key, tc.date.String())
		assert.True(t, tc.weekStart.Equal(start), "start for %s: %s", tc.date, start)
	}
}

func TestGroupByWeekAndMonth(t *testing.T) {
	runs := normalized(t,
		rawRun(day(2024, 12, 29), 10, 300), // Sunday, 2024-W52
		rawRun(day(2024, 12, 30), 5, 320),  // Monday, 2025-W01
		rawRun(day(2025, 1, 2), 12, 310),
		rawRun(day(2025, 1, 6), 8, 330),
	)

	weeks := GroupByWeek(runs)
	require.Len(t, weeks, 3)
	assert.Equal(t, "2024-W52", weeks[0].Key)
	assert.Equal(t, "2025-W01", weeks[1].Key)
	assert.Equal(t, 2, weeks[1].Runs)
	assert.InDelta(t, 17.0, weeks[1].TotalKm, 1e-9)
	assert.InDelta(t, 12.0, weeks[1].LongestKm, 1e-9)
	assert.InDelta(t, 310.0, weeks[1].BestPace.Value, 1e-9)
	assert.InDelta(t, 315.0, weeks[1].MeanPace.Value, 1e-9)

	months := GroupByMonth(runs)
	require.Len(t, months, 2)
	assert.Equal(t, "2024-12", months[0].Key)
	assert.Equal(t, "2025-01", months[1].Key)
	assert.Equal(t, 2, months[1].Runs)
}

func TestWindowsAndSpans(t *testing.T) {
	asOf := day(2024, 6, 30)
	assert.Equal(t, day(2024, 4, 7), WindowStart(asOf, 12))

	assert.Equal(t, 1.0, WeeksSpanned(nil))
	single := normalized(t, rawRun(day(2024, 6, 1), 5, 300))
	assert.Equal(t, 1.0, WeeksSpanned(single))

	runs := normalized(t, rawRun(day(2024, 6, 1), 5, 300), rawRun(day(2024, 6, 22), 5, 300))
	assert.Equal(t, 21, SpanDays(runs))
	assert.InDelta(t, 3.0, WeeksSpanned(runs), 1e-9)
}

func TestWithinIsBoundedOnBothEnds(t *testing.T) {
	asOf := day(2024, 6, 30)
	runs := normalized(t,
		rawRun(day(2024, 4, 6), 5, 300),
		rawRun(day(2024, 4, 7), 6, 300),
		rawRun(asOf, 7, 300),
		rawRun(day(2024, 7, 1), 8, 300),
	)

	in := Select(runs, Within(asOf, 12))
	require.Len(t, in, 2)
	assert.Equal(t, 6.0, in[0].DistanceKm)
	assert.Equal(t, 7.0, in[1].DistanceKm)

	assert.Len(t, Select(runs, Until(asOf)), 3)
	assert.Len(t, Select(runs, Since(asOf)), 2)
}
