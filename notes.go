package marathon

import (
	"fmt"
	"math"
	"strings"
)

const sectionRule = "======================================================================"

// BuildReportNotes renders a report as console text.
func BuildReportNotes(r *Report) string {
	if r == nil {
		return ""
	}

	var b strings.Builder
	p := r.Params

	fmt.Fprintf(&b, "Marathon readiness: can you run %s/km for %.3f km?\n", FormatPace(p.TargetPaceSecPerKm), p.TargetDistanceKm)
	fmt.Fprintf(&b, "Target finish time: %s | As of %s\n", FormatTime(p.TargetTimeSec()), r.AsOf.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Analyzing %d runs (%.0f km total)\n", len(r.Runs), r.Overview.TotalKm)
	if n := len(r.Warnings); n > 0 {
		fmt.Fprintf(&b, "Skipped %d malformed entries\n", n)
	}

	writeOverview(&b, r.Overview)
	writeRecentFitness(&b, r.RecentFitness)
	writeLongRuns(&b, r.LongRuns)
	writePaceDistribution(&b, r.PaceDistribution)
	writePaceTrend(&b, r.PaceTrend)
	writeVolumeTrend(&b, r.VolumeTrend)
	writePredictions(&b, r.Ensemble, p)
	writeVerdict(&b, r.Verdict)

	return strings.TrimSpace(b.String())
}

func header(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n%s\n  %s\n%s\n", sectionRule, title, sectionRule)
}

func writeOverview(b *strings.Builder, o Overview) {
	header(b, "OVERALL RUNNING PROFILE")
	fmt.Fprintf(b, "  Total runs:           %d\n", o.Runs)
	fmt.Fprintf(b, "  Total distance:       %.1f km\n", o.TotalKm)
	if o.Runs == 0 {
		return
	}
	fmt.Fprintf(b, "  Date range:           %s to %s (%d days)\n", o.First.Format("2006-01-02"), o.Last.Format("2006-01-02"), o.SpanDays)
	if o.RunsPerWeek.Valid {
		fmt.Fprintf(b, "  Avg runs per week:    %.1f\n", o.RunsPerWeek.Value)
		fmt.Fprintf(b, "  Avg km per week:      %.1f\n", o.KmPerWeek.Value)
	}
	fmt.Fprintf(b, "  Avg distance/run:     %.1f km\n", o.Distance.Mean.Value)
	fmt.Fprintf(b, "  Longest run:          %.1f km\n", o.Distance.Max.Value)
	fmt.Fprintf(b, "  Overall avg pace:     %s/km\n", FormatPaceStat(o.Pace.Mean))
	fmt.Fprintf(b, "  Best pace (any run):  %s/km\n", FormatPaceStat(o.Pace.Min))
	if o.AvgHeartRate.Mean.Valid {
		fmt.Fprintf(b, "  Avg heart rate:       %.0f bpm\n", o.AvgHeartRate.Mean.Value)
	}
	if o.MaxHeartRate.Max.Valid {
		fmt.Fprintf(b, "  Max heart rate seen:  %.0f bpm\n", o.MaxHeartRate.Max.Value)
	}
}

func writeRecentFitness(b *strings.Builder, rf RecentFitness) {
	header(b, fmt.Sprintf("RECENT TRAINING (last %d weeks)", rf.Weeks))
	if rf.Runs == 0 {
		fmt.Fprintf(b, "  No runs found in the last %d weeks!\n", rf.Weeks)
		return
	}
	fmt.Fprintf(b, "  Runs:                 %d\n", rf.Runs)
	fmt.Fprintf(b, "  Total distance:       %.1f km\n", rf.TotalKm)
	fmt.Fprintf(b, "  Avg km/week:          %.1f\n", rf.KmPerWeek.Value)
	fmt.Fprintf(b, "  Avg runs/week:        %.1f\n", rf.RunsPerWeek.Value)
	fmt.Fprintf(b, "  Avg distance/run:     %.1f km\n", rf.Distance.Mean.Value)
	fmt.Fprintf(b, "  Longest recent run:   %.1f km\n", rf.Distance.Max.Value)
	fmt.Fprintf(b, "  Avg pace:             %s/km\n", FormatPaceStat(rf.Pace.Mean))
	fmt.Fprintf(b, "  Best pace:            %s/km\n", FormatPaceStat(rf.Pace.Min))
	if rf.AvgHeartRate.Mean.Valid {
		fmt.Fprintf(b, "  Avg heart rate:       %.0f bpm\n", rf.AvgHeartRate.Mean.Value)
	}
}

func writeLongRuns(b *strings.Builder, lr LongRunsSection) {
	header(b, fmt.Sprintf("LONG RUNS (%.0f+ km)", lr.MinKm))
	if lr.Count == 0 {
		fmt.Fprintf(b, "  No runs of %.0f+ km found!\n", lr.MinKm)
		b.WriteString("  Long runs are critical for marathon preparation.\n")
		return
	}
	fmt.Fprintf(b, "  Count:                %d\n", lr.Count)
	fmt.Fprintf(b, "  Avg distance:         %.1f km\n", lr.Distance.Mean.Value)
	fmt.Fprintf(b, "  Longest:              %.1f km\n", lr.Distance.Max.Value)
	fmt.Fprintf(b, "  Avg pace:             %s/km\n", FormatPaceStat(lr.Pace.Mean))
	fmt.Fprintf(b, "  Best pace:            %s/km\n", FormatPaceStat(lr.Pace.Min))

	b.WriteString("\n  Recent long runs:\n")
	for _, run := range lr.Recent {
		hr := ""
		if run.AvgHeartRate != nil {
			hr = fmt.Sprintf("HR: %d", int(*run.AvgHeartRate))
		}
		fmt.Fprintf(b, "    %s  %6.1f km  %s/km  %s\n", run.Date.Format("2006-01-02"), run.DistanceKm, FormatPace(run.PaceSecPerKm), hr)
	}
}

func writePaceDistribution(b *strings.Builder, d PaceDistribution) {
	header(b, "PACE DISTRIBUTION")
	if d.Runs == 0 {
		b.WriteString("  Not enough data for pace analysis.\n")
		return
	}
	fmt.Fprintf(b, "  Runs at or faster than %s/km:  %d/%d (%.0f%%)\n", FormatPace(d.TargetPace), d.AtOrUnderTarget, d.Runs, d.Share.Value*100)
	b.WriteString("\n  Pace breakdown:\n")
	for _, band := range d.Bands {
		fmt.Fprintf(b, "    %-20s  %4d runs  %s\n", band.Label, band.Count, strings.Repeat("#", int(band.Share*40)))
	}
}

func writePaceTrend(b *strings.Builder, pt PaceTrendReport) {
	header(b, fmt.Sprintf("PACE TREND (last %d weeks)", pt.Weeks))
	if pt.Runs < MinTrendPoints {
		b.WriteString("  Not enough recent data for trend analysis.\n")
		return
	}
	fmt.Fprintf(b, "  %-10s  %10s  %10s  %8s  %5s\n", "Month", "Avg Pace", "Best Pace", "Volume", "Runs")
	fmt.Fprintf(b, "  %s  %s  %s  %s  %s\n", strings.Repeat("-", 10), strings.Repeat("-", 10), strings.Repeat("-", 10), strings.Repeat("-", 8), strings.Repeat("-", 5))
	for _, m := range pt.Months {
		fmt.Fprintf(b, "  %-10s  %10s  %10s  %7.1fk  %5d\n", m.Key, FormatPaceStat(m.MeanPace), FormatPaceStat(m.BestPace), m.TotalKm, m.Runs)
	}
	if pt.Trend != nil {
		fmt.Fprintf(b, "\n  Trend: %s by %.1f sec/km per month\n", pt.Trend.Direction, math.Abs(pt.Trend.ChangePerMonth))
	}
}

func writeVolumeTrend(b *strings.Builder, vt VolumeTrend) {
	header(b, fmt.Sprintf("WEEKLY VOLUME TREND (last %d weeks)", vt.Weeks))
	if len(vt.Buckets) == 0 {
		b.WriteString("  No recent data.\n")
		return
	}
	for _, w := range vt.Buckets {
		fmt.Fprintf(b, "  %s  %6.1f km  (%d runs, longest %.1fkm)  %s\n", w.Key, w.TotalKm, w.Runs, w.LongestKm, strings.Repeat("#", int(w.TotalKm/2)))
	}
}

func writePredictions(b *strings.Builder, ens Ensemble, p Params) {
	header(b, "MARATHON TIME PREDICTIONS")
	if len(ens.Estimates) == 0 {
		b.WriteString("  Not enough data to make predictions.\n")
		return
	}
	target := p.TargetTimeSec()
	fmt.Fprintf(b, "\n  Target: %s/km = %s marathon\n\n", FormatPace(p.TargetPaceSecPerKm), FormatTime(target))
	fmt.Fprintf(b, "  %-45s  %10s  %8s  %10s\n", "Method", "Predicted", "Pace", "vs Target")
	fmt.Fprintf(b, "  %s  %s  %s  %s\n", strings.Repeat("-", 45), strings.Repeat("-", 10), strings.Repeat("-", 8), strings.Repeat("-", 10))
	for _, est := range ens.Estimates {
		diff := est.PredictedSec - target
		sign, status := "-", "FASTER"
		if diff > 0 {
			sign, status = "+", "SLOWER"
		}
		fmt.Fprintf(b, "  %-45s  %10s  %8s  %s%s %s\n", est.Label, FormatTime(est.PredictedSec), FormatPace(est.PredictedPace), sign, FormatTime(math.Abs(diff)), status)
		fmt.Fprintf(b, "    (%s)\n", est.Note)
	}
}

func writeVerdict(b *strings.Builder, v Verdict) {
	header(b, fmt.Sprintf("VERDICT: CAN YOU RUN A %s/km MARATHON?", FormatPace(v.TargetPace)))
	fmt.Fprintf(b, "\n  Target: %s/km = %s marathon finish\n", FormatPace(v.TargetPace), FormatTime(v.TargetSec))
	if v.PredictedSec.Valid {
		fmt.Fprintf(b, "  Average prediction: %s (%s/km)\n", FormatTime(v.PredictedSec.Value), FormatPaceStat(v.PredictedPace))
	}
	if len(v.Strengths) > 0 {
		b.WriteString("\n  STRENGTHS:\n")
		for _, s := range v.Strengths {
			fmt.Fprintf(b, "    + %s\n", s)
		}
	}
	if len(v.Issues) > 0 {
		b.WriteString("\n  AREAS TO IMPROVE:\n")
		for _, s := range v.Issues {
			fmt.Fprintf(b, "    - %s\n", s)
		}
	}

	bar := strings.Repeat("=", 50)
	fmt.Fprintf(b, "\n  %s\n  RATING: %s\n  %s\n\n  %s\n", bar, strings.ToUpper(string(v.Rating)), bar, v.Detail)

	b.WriteString("\n  RECOMMENDED TRAINING PLAN:\n")
	for i, line := range v.TrainingPlan {
		fmt.Fprintf(b, "    %d. %s\n", i+1, line)
	}
}

// FormatPace renders seconds per km as M:SS, truncating fractional seconds.
func FormatPace(secPerKm float64) string {
	if !isFinite(secPerKm) || secPerKm < 0 {
		return "N/A"
	}
	s := int(secPerKm)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// FormatPaceStat is FormatPace for a value that may be absent.
func FormatPaceStat(s Stat) string {
	if !s.Valid {
		return "N/A"
	}
	return FormatPace(s.Value)
}

// FormatTime renders seconds as H:MM:SS, truncating fractional seconds.
func FormatTime(seconds float64) string {
	if !isFinite(seconds) || seconds < 0 {
		return "N/A"
	}
	s := int(seconds)
	return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
