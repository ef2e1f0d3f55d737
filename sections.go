package marathon

import (
	"time"
)

// RecentLongRunsShown is how many of the latest long runs a LongRunsSection lists.
const RecentLongRunsShown = 8

// VolumeWeeksShown is how many of the latest weekly buckets VolumeTrend keeps.
const VolumeWeeksShown = 12

// Overview profiles the whole normalized history.
type Overview struct {
	Runs         int       `json:"runs"`
	TotalKm      float64   `json:"total_km"`
	First        time.Time `json:"first"`
	Last         time.Time `json:"last"`
	SpanDays     int       `json:"span_days"`
	RunsPerWeek  Stat      `json:"runs_per_week"`
	KmPerWeek    Stat      `json:"km_per_week"`
	Distance     Summary   `json:"distance_km"`
	Pace         Summary   `json:"pace_sec_per_km"`
	AvgHeartRate Summary   `json:"avg_heart_rate_bpm"`
	MaxHeartRate Summary   `json:"max_heart_rate_bpm"`
}

// BuildOverview summarizes runs. Weekly rates are only set when the history
// spans at least one day.
func BuildOverview(runs []Run) Overview {
	o := Overview{
		Runs:         len(runs),
		Distance:     Summarize(runs, Distance),
		Pace:         Summarize(runs, Pace),
		AvgHeartRate: Summarize(runs, AvgHeartRate),
		MaxHeartRate: Summarize(runs, MaxHeartRate),
	}
	if len(runs) == 0 {
		return o
	}
	o.TotalKm = o.Distance.Sum.Value
	o.First = runs[0].Date
	o.Last = runs[len(runs)-1].Date
	o.SpanDays = SpanDays(runs)
	if o.SpanDays > 0 {
		weeks := float64(o.SpanDays) / daysPerWeek
		o.RunsPerWeek = Some(float64(o.Runs) / weeks)
		o.KmPerWeek = Some(o.TotalKm / weeks)
	}
	return o
}

// RecentFitness profiles the trailing window of Weeks weeks.
type RecentFitness struct {
	Weeks        int     `json:"weeks"`
	Runs         int     `json:"runs"`
	TotalKm      float64 `json:"total_km"`
	KmPerWeek    Stat    `json:"km_per_week"`
	RunsPerWeek  Stat    `json:"runs_per_week"`
	Distance     Summary `json:"distance_km"`
	Pace         Summary `json:"pace_sec_per_km"`
	AvgHeartRate Summary `json:"avg_heart_rate_bpm"`
}

// BuildRecentFitness summarizes runs inside the window ending at asOf. Rates
// divide by WeeksSpanned of the window's own runs.
func BuildRecentFitness(runs []Run, asOf time.Time, weeks int) RecentFitness {
	recent := Select(runs, Within(asOf, weeks))
	rf := RecentFitness{
		Weeks:        weeks,
		Runs:         len(recent),
		Distance:     Summarize(recent, Distance),
		Pace:         Summarize(recent, Pace),
		AvgHeartRate: Summarize(recent, AvgHeartRate),
	}
	if len(recent) == 0 {
		return rf
	}
	spanned := WeeksSpanned(recent)
	rf.TotalKm = rf.Distance.Sum.Value
	rf.KmPerWeek = Some(rf.TotalKm / spanned)
	rf.RunsPerWeek = Some(float64(rf.Runs) / spanned)
	return rf
}

// LongRunsSection describes runs at or above MinKm.
type LongRunsSection struct {
	MinKm    float64 `json:"min_km"`
	Count    int     `json:"count"`
	Distance Summary `json:"distance_km"`
	Pace     Summary `json:"pace_sec_per_km"`
	Recent   []Run   `json:"recent"`
}

func BuildLongRuns(runs []Run, minKm float64) LongRunsSection {
	long := Select(runs, MinDistance(minKm))
	section := LongRunsSection{
		MinKm:    minKm,
		Count:    len(long),
		Distance: Summarize(long, Distance),
		Pace:     Summarize(long, Pace),
		Recent:   []Run{},
	}
	if n := len(long); n > RecentLongRunsShown {
		long = long[n-RecentLongRunsShown:]
	}
	section.Recent = append(section.Recent, long...)
	return section
}

// PaceBand counts runs with MinSec <= pace < MaxSec. An invalid MaxSec leaves
// the band open-ended.
type PaceBand struct {
	Label  string  `json:"label"`
	MinSec float64 `json:"min_sec_per_km"`
	MaxSec Stat    `json:"max_sec_per_km"`
	Count  int     `json:"count"`
	Share  float64 `json:"share"`
}

func (b PaceBand) contains(pace float64) bool {
	return pace >= b.MinSec && (!b.MaxSec.Valid || pace < b.MaxSec.Value)
}

// DistributionMinKm excludes short runs that skew pace data.
const DistributionMinKm = 3.0

// PaceBands returns the fixed pace breakdown, fastest first.
func PaceBands() []PaceBand {
	return []PaceBand{
		{Label: "Under 4:30/km", MinSec: 0, MaxSec: Some(270)},
		{Label: "4:30 - 5:00/km", MinSec: 270, MaxSec: Some(300)},
		{Label: "5:00 - 5:30/km", MinSec: 300, MaxSec: Some(330)},
		{Label: "5:30 - 6:00/km", MinSec: 330, MaxSec: Some(360)},
		{Label: "6:00 - 6:30/km", MinSec: 360, MaxSec: Some(390)},
		{Label: "6:30 - 7:00/km", MinSec: 390, MaxSec: Some(420)},
		{Label: "Over 7:00/km", MinSec: 420},
	}
}

// PaceDistribution shows how often runs of at least DistributionMinKm reach
// the target pace.
type PaceDistribution struct {
	TargetPace      float64    `json:"target_pace_sec_per_km"`
	Runs            int        `json:"runs"`
	AtOrUnderTarget int        `json:"at_or_under_target"`
	Share           Stat       `json:"share"`
	Bands           []PaceBand `json:"bands"`
}

func BuildPaceDistribution(runs []Run, targetPace float64) PaceDistribution {
	meaningful := Select(runs, MinDistance(DistributionMinKm))
	d := PaceDistribution{
		TargetPace:      targetPace,
		Runs:            len(meaningful),
		AtOrUnderTarget: len(Select(meaningful, PaceAtMost(targetPace))),
		Bands:           PaceBands(),
	}
	if d.Runs == 0 {
		return d
	}
	d.Share = Some(float64(d.AtOrUnderTarget) / float64(d.Runs))
	for i := range d.Bands {
		for _, r := range meaningful {
			if d.Bands[i].contains(r.PaceSecPerKm) {
				d.Bands[i].Count++
			}
		}
		d.Bands[i].Share = float64(d.Bands[i].Count) / float64(d.Runs)
	}
	return d
}

// VolumeTrend is the weekly volume over the trend window.
type VolumeTrend struct {
	Weeks   int      `json:"weeks"`
	Buckets []Bucket `json:"buckets"`
}

// BuildVolumeTrend groups the trend window by ISO week and keeps the latest
// VolumeWeeksShown weeks that contain runs.
func BuildVolumeTrend(runs []Run, asOf time.Time, weeks int) VolumeTrend {
	buckets := GroupByWeek(Select(runs, Within(asOf, weeks)))
	if n := len(buckets); n > VolumeWeeksShown {
		buckets = buckets[n-VolumeWeeksShown:]
	}
	return VolumeTrend{Weeks: weeks, Buckets: buckets}
}
