package marathon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOverview(t *testing.T) {
	withHR := rawRun(day(2024, 1, 15), 10, 300)
	withHR.AverageHeartrate = ptr(150.0)
	withHR.MaxHeartrate = ptr(181.0)
	runs := normalized(t, rawRun(day(2024, 1, 1), 5, 360), withHR)

	o := BuildOverview(runs)
	assert.Equal(t, 2, o.Runs)
	assert.InDelta(t, 15.0, o.TotalKm, 1e-9)
	assert.Equal(t, 14, o.SpanDays)
	require.True(t, o.RunsPerWeek.Valid)
	assert.InDelta(t, 1.0, o.RunsPerWeek.Value, 1e-9)
	assert.InDelta(t, 7.5, o.KmPerWeek.Value, 1e-9)
	assert.InDelta(t, 300.0, o.Pace.Min.Value, 1e-9)
	assert.InDelta(t, 150.0, o.AvgHeartRate.Mean.Value, 1e-9)
	assert.InDelta(t, 181.0, o.MaxHeartRate.Max.Value, 1e-9)
}

func TestBuildOverviewSingleDay(t *testing.T) {
	o := BuildOverview(normalized(t, rawRun(day(2024, 1, 1), 5, 360)))
	assert.Equal(t, 0, o.SpanDays)
	assert.False(t, o.RunsPerWeek.Valid)
	assert.False(t, o.KmPerWeek.Valid)
	assert.False(t, o.AvgHeartRate.Mean.Valid)

	empty := BuildOverview(nil)
	assert.Equal(t, 0, empty.Runs)
	assert.False(t, empty.Pace.Mean.Valid)
}

func TestBuildRecentFitness(t *testing.T) {
	asOf := day(2024, 6, 30)
	runs := normalized(t,
		rawRun(day(2023, 6, 1), 30, 300),
		rawRun(day(2024, 6, 2), 10, 330),
		rawRun(day(2024, 6, 16), 12, 320),
	)

	rf := BuildRecentFitness(runs, asOf, 12)
	assert.Equal(t, 2, rf.Runs)
	assert.InDelta(t, 22.0, rf.TotalKm, 1e-9)
	assert.InDelta(t, 11.0, rf.KmPerWeek.Value, 1e-9)
	assert.InDelta(t, 1.0, rf.RunsPerWeek.Value, 1e-9)
	assert.InDelta(t, 12.0, rf.Distance.Max.Value, 1e-9)

	none := BuildRecentFitness(runs, day(2026, 1, 1), 12)
	assert.Equal(t, 0, none.Runs)
	assert.False(t, none.KmPerWeek.Valid)
	assert.False(t, none.Pace.Mean.Valid)
}

func TestBuildLongRunsKeepsLatestEight(t *testing.T) {
	var raw []RawWorkout
	for i := 0; i < 10; i++ {
		raw = append(raw, rawRun(day(2024, 1, 1).AddDate(0, 0, 7*i), 16+float64(i), 340))
	}
	raw = append(raw, rawRun(day(2024, 1, 2), 8, 300))

	lr := BuildLongRuns(normalized(t, raw...), 15)
	assert.Equal(t, 10, lr.Count)
	require.Len(t, lr.Recent, RecentLongRunsShown)
	assert.InDelta(t, 18.0, lr.Recent[0].DistanceKm, 1e-9)
	assert.InDelta(t, 25.0, lr.Recent[7].DistanceKm, 1e-9)
	assert.InDelta(t, 25.0, lr.Distance.Max.Value, 1e-9)

	empty := BuildLongRuns(nil, 15)
	assert.Equal(t, 0, empty.Count)
	assert.NotNil(t, empty.Recent)
}

func TestBuildPaceDistribution(t *testing.T) {
	runs := normalized(t,
		rawRun(day(2024, 1, 1), 5, 260),
		rawRun(day(2024, 1, 2), 5, 300),
		rawRun(day(2024, 1, 3), 5, 330),
		rawRun(day(2024, 1, 4), 5, 450),
		rawRun(day(2024, 1, 5), 2, 200),
	)

	d := BuildPaceDistribution(runs, 330)
	assert.Equal(t, 4, d.Runs)
	assert.Equal(t, 3, d.AtOrUnderTarget)
	assert.InDelta(t, 0.75, d.Share.Value, 1e-9)

	counts := make([]int, 0, len(d.Bands))
	for _, b := range d.Bands {
		counts = append(counts, b.Count)
	}
	assert.Equal(t, []int{1, 0, 1, 1, 0, 0, 1}, counts)
	assert.False(t, d.Bands[len(d.Bands)-1].MaxSec.Valid)

	empty := BuildPaceDistribution(nil, 330)
	assert.False(t, empty.Share.Valid)
	assert.Len(t, empty.Bands, 7)
}

func TestBuildVolumeTrendKeepsLatestTwelveWeeks(t *testing.T) {
	asOf := day(2024, 6, 30)
	runs := normalized(t, weeklyRuns(asOf, 20, 2, 8, 330)...)

	vt := BuildVolumeTrend(runs, asOf, 24)
	require.Len(t, vt.Buckets, VolumeWeeksShown)
	for i := 1; i < len(vt.Buckets); i++ {
		assert.True(t, vt.Buckets[i-1].Start.Before(vt.Buckets[i].Start))
	}
	last := vt.Buckets[len(vt.Buckets)-1]
	assert.Equal(t, "2024-W26", last.Key)

	assert.Empty(t, BuildVolumeTrend(runs, day(2030, 1, 1), 24).Buckets)
}
