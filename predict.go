package marathon

import (
	"fmt"
	"math"
	"time"
)

// Subset bounds used by the individual models.
const (
	BestEffortMinKm = 5.0
	ShortRaceMinKm  = 8.0
	ShortRaceMaxKm  = 12.0
	HalfRangeMinKm  = 18.0
	HalfRangeMaxKm  = 25.0
)

// Model identifiers.
const (
	MethodBestEffort    = "best_effort_riegel"
	MethodRecentShort   = "recent_10k_riegel"
	MethodHalfMarathon  = "half_marathon_riegel"
	MethodLongRunPace   = "long_run_fatigue"
	MethodRecentAverage = "recent_average_adjusted"
)

// Estimate is one model's finish-time prediction for the target distance.
type Estimate struct {
	Method        string     `json:"method"`
	Label         string     `json:"label"`
	PredictedSec  float64    `json:"predicted_sec"`
	PredictedPace float64    `json:"predicted_pace_sec_per_km"`
	BasisKm       float64    `json:"basis_km,omitempty"`
	BasisSec      float64    `json:"basis_sec,omitempty"`
	BasisPace     float64    `json:"basis_pace_sec_per_km"`
	BasisDate     *time.Time `json:"basis_date,omitempty"`
	Note          string     `json:"note"`
}

// Ensemble is the set of estimates produced for one analysis. Mean is invalid
// when no model had enough data.
type Ensemble struct {
	Estimates []Estimate `json:"estimates"`
	Mean      Stat       `json:"mean_predicted_sec"`
	MeanPace  Stat       `json:"mean_predicted_pace_sec_per_km"`
}

// Model produces at most one estimate.
type Model struct {
	Method  string
	Label   string
	Predict func(runs []Run, asOf time.Time, p Params) (Estimate, bool)
}

// Riegel extrapolates a known effort to targetKm: t2 = t1 * (d2/d1)^exponent.
func Riegel(timeSec, distanceKm, targetKm, exponent float64) float64 {
	if distanceKm <= 0 || timeSec <= 0 {
		return 0
	}
	return timeSec * math.Pow(targetKm/distanceKm, exponent)
}

// Models returns the five extrapolation models in reporting order.
func Models() []Model {
	return []Model{
		{Method: MethodBestEffort, Label: "Riegel formula (best long fast run)", Predict: predictBestEffort},
		{Method: MethodRecentShort, Label: "Riegel from recent ~10k effort", Predict: predictRecentShort},
		{Method: MethodHalfMarathon, Label: "Riegel from half-marathon effort", Predict: predictHalfMarathon},
		{Method: MethodLongRunPace, Label: "Long run pace + fatigue factor", Predict: predictLongRunPace},
		{Method: MethodRecentAverage, Label: "Recent avg pace (slight adjustment)", Predict: predictRecentAverage},
	}
}

// Predict runs every model and averages whatever they produce.
func Predict(runs []Run, asOf time.Time, p Params) Ensemble {
	ens := Ensemble{Estimates: make([]Estimate, 0, 5)}
	total := 0.0
	for _, m := range Models() {
		est, ok := m.Predict(runs, asOf, p)
		if !ok || !isFinite(est.PredictedSec) || est.PredictedSec <= 0 {
			continue
		}
		est.Method = m.Method
		est.Label = m.Label
		ens.Estimates = append(ens.Estimates, est)
		total += est.PredictedSec
	}
	if len(ens.Estimates) > 0 {
		mean := total / float64(len(ens.Estimates))
		ens.Mean = Some(mean)
		ens.MeanPace = Some(mean / p.TargetDistanceKm)
	}
	return ens
}

// predictBestEffort picks, among runs of at least BestEffortMinKm at or under
// the configured pace percentile of all runs, the longest one. Equal distances
// keep the earliest run.
func predictBestEffort(runs []Run, _ time.Time, p Params) (Estimate, bool) {
	cutoff := Percentile(values(runs, Pace), p.BestEffortPercentile)
	if !cutoff.Valid {
		return Estimate{}, false
	}
	fast := Select(runs, MinDistance(BestEffortMinKm), PaceAtMost(cutoff.Value))
	best, ok := longest(fast)
	if !ok {
		return Estimate{}, false
	}
	est := riegelEstimate(best, p)
	est.Note = fmt.Sprintf("Based on %.1fkm in %s", best.DistanceKm, FormatTime(float64(best.MovingTimeSec)))
	return est, true
}

func predictRecentShort(runs []Run, asOf time.Time, p Params) (Estimate, bool) {
	subset := Select(runs,
		DistanceBetween(ShortRaceMinKm, ShortRaceMaxKm),
		Within(asOf, p.RecentRaceWeeks),
	)
	best, ok := fastest(subset)
	if !ok {
		return Estimate{}, false
	}
	est := riegelEstimate(best, p)
	est.Note = fmt.Sprintf("Based on %.1fkm at %s/km", best.DistanceKm, FormatPace(best.PaceSecPerKm))
	return est, true
}

func predictHalfMarathon(runs []Run, _ time.Time, p Params) (Estimate, bool) {
	best, ok := fastest(Select(runs, DistanceBetween(HalfRangeMinKm, HalfRangeMaxKm)))
	if !ok {
		return Estimate{}, false
	}
	est := riegelEstimate(best, p)
	est.Note = fmt.Sprintf("Based on %.1fkm at %s/km", best.DistanceKm, FormatPace(best.PaceSecPerKm))
	return est, true
}

func predictLongRunPace(runs []Run, _ time.Time, p Params) (Estimate, bool) {
	mean := Summarize(Select(runs, MinDistance(p.LongRunKm)), Pace).Mean
	if !mean.Valid {
		return Estimate{}, false
	}
	est := linearEstimate(mean.Value, p.FatigueFactor, p)
	est.Note = fmt.Sprintf("Avg long run pace: %s/km, x%.2f fatigue", FormatPace(mean.Value), p.FatigueFactor)
	return est, true
}

func predictRecentAverage(runs []Run, asOf time.Time, p Params) (Estimate, bool) {
	mean := Summarize(Select(runs, Within(asOf, p.RecentAverageWeeks)), Pace).Mean
	if !mean.Valid {
		return Estimate{}, false
	}
	est := linearEstimate(mean.Value, p.RecentAdjustment, p)
	est.Note = fmt.Sprintf("Recent avg: %s/km, x%.2f adjustment", FormatPace(mean.Value), p.RecentAdjustment)
	return est, true
}

func riegelEstimate(r Run, p Params) Estimate {
	predicted := Riegel(float64(r.MovingTimeSec), r.DistanceKm, p.TargetDistanceKm, p.RiegelExponent)
	date := r.Date
	return Estimate{
		PredictedSec:  predicted,
		PredictedPace: predicted / p.TargetDistanceKm,
		BasisKm:       r.DistanceKm,
		BasisSec:      float64(r.MovingTimeSec),
		BasisPace:     r.PaceSecPerKm,
		BasisDate:     &date,
	}
}

func linearEstimate(basisPace, factor float64, p Params) Estimate {
	pace := basisPace * factor
	return Estimate{
		PredictedSec:  pace * p.TargetDistanceKm,
		PredictedPace: pace,
		BasisPace:     basisPace,
	}
}

// longest returns the run with the greatest distance; the first wins ties.
func longest(runs []Run) (Run, bool) {
	if len(runs) == 0 {
		return Run{}, false
	}
	best := runs[0]
	for _, r := range runs[1:] {
		if r.DistanceKm > best.DistanceKm {
			best = r
		}
	}
	return best, true
}

// fastest returns the run with the lowest pace; the first wins ties.
func fastest(runs []Run) (Run, bool) {
	if len(runs) == 0 {
		return Run{}, false
	}
	best := runs[0]
	for _, r := range runs[1:] {
		if r.PaceSecPerKm < best.PaceSecPerKm {
			best = r
		}
	}
	return best, true
}
