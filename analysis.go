package marathon

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoRuns is returned when no input entry qualifies as a run.
var ErrNoRuns = errors.New("no qualifying runs")

// Report is the structured result of one analysis.
type Report struct {
	AsOf             time.Time        `json:"as_of"`
	Params           Params           `json:"params"`
	Runs             []Run            `json:"runs"`
	Warnings         []Warning        `json:"warnings,omitempty"`
	LaterRuns        int              `json:"later_runs,omitempty"`
	Overview         Overview         `json:"overview"`
	RecentFitness    RecentFitness    `json:"recent_fitness"`
	LongRuns         LongRunsSection  `json:"long_runs"`
	PaceDistribution PaceDistribution `json:"pace_distribution"`
	PaceTrend        PaceTrendReport  `json:"pace_trend"`
	VolumeTrend      VolumeTrend      `json:"volume_trend"`
	Ensemble         Ensemble         `json:"ensemble"`
	Verdict          Verdict          `json:"verdict"`
}

// Analyze runs the full pipeline over raw workouts. asOf anchors every
// trailing window and is used as wall-clock time. Runs dated after asOf are
// left out of every section and counted in LaterRuns.
//
// Normalizer warnings are carried on the report. When nothing qualifies the
// error is ErrNoRuns and the returned report still holds the warnings.
func Analyze(raw []RawWorkout, asOf time.Time, p Params) (*Report, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	asOf = WallClock(asOf)

	all, warnings := Normalize(raw, p.Kind)
	runs := Select(all, Until(asOf))
	report := &Report{AsOf: asOf, Params: p, Runs: runs, Warnings: warnings, LaterRuns: len(all) - len(runs)}
	if len(runs) == 0 {
		return report, ErrNoRuns
	}

	report.Overview = BuildOverview(runs)
	report.RecentFitness = BuildRecentFitness(runs, asOf, p.RecentWeeks)
	report.LongRuns = BuildLongRuns(runs, p.LongRunKm)
	report.PaceDistribution = BuildPaceDistribution(runs, p.TargetPaceSecPerKm)
	report.PaceTrend = PaceTrend(runs, asOf, p)
	report.VolumeTrend = BuildVolumeTrend(runs, asOf, p.TrendWeeks)
	report.Ensemble = Predict(runs, asOf, p)
	report.Verdict = Synthesize(runs, asOf, p, report.Ensemble)
	return report, nil
}
