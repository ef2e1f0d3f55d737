package marathon

import (
	"errors"
	"time"
)

const (
	daysPerMonth = 30.44

	// MinTrendPoints is the smallest series FitTrend will fit.
	MinTrendPoints = 4
	// TrendMinKm excludes short recovery runs from the pace trend.
	TrendMinKm = 3.0
)

// ErrInsufficientData is returned when a computation has too few inputs to be meaningful.
var ErrInsufficientData = errors.New("insufficient data")

// Trend directions.
const (
	DirectionImproving = "improving"
	DirectionSlowing   = "slowing"
)

// TrendPoint is one observation at a day offset.
type TrendPoint struct {
	Day   float64
	Value float64
}

// Trend is an ordinary least-squares line through a series.
type Trend struct {
	Points         int     `json:"points"`
	SlopePerDay    float64 `json:"slope_per_day"`
	Intercept      float64 `json:"intercept"`
	ChangePerMonth float64 `json:"change_per_month"`
	Direction      string  `json:"direction"`
}

// FitTrend fits value = a*day + b. A negative slope reads as improving, which
// holds for pace where lower is faster.
func FitTrend(points []TrendPoint) (Trend, error) {
	if len(points) < MinTrendPoints {
		return Trend{}, ErrInsufficientData
	}

	n := float64(len(points))
	var sumX, sumY, sumXY, sumX2 float64
	for _, p := range points {
		sumX += p.Day
		sumY += p.Value
		sumXY += p.Day * p.Value
		sumX2 += p.Day * p.Day
	}
	denominator := n*sumX2 - sumX*sumX
	if denominator == 0 || !isFinite(denominator) {
		return Trend{}, ErrInsufficientData
	}

	slope := (n*sumXY - sumX*sumY) / denominator
	intercept := (sumY - slope*sumX) / n
	perMonth := slope * daysPerMonth

	direction := DirectionSlowing
	if perMonth < 0 {
		direction = DirectionImproving
	}
	return Trend{
		Points:         len(points),
		SlopePerDay:    slope,
		Intercept:      intercept,
		ChangePerMonth: perMonth,
		Direction:      direction,
	}, nil
}

// PaceTrendReport is the monthly pace table and the fitted pace trend over the
// trend window.
type PaceTrendReport struct {
	Weeks  int      `json:"weeks"`
	Runs   int      `json:"runs"`
	Months []Bucket `json:"months,omitempty"`
	Trend  *Trend   `json:"trend,omitempty"`
}

// PaceTrend fits the pace trend of runs of at least TrendMinKm inside the trend
// window. Day offsets count whole days from the earliest qualifying run.
func PaceTrend(runs []Run, asOf time.Time, p Params) PaceTrendReport {
	subset := Select(runs, Within(asOf, p.TrendWeeks), MinDistance(TrendMinKm))
	report := PaceTrendReport{Weeks: p.TrendWeeks, Runs: len(subset)}
	if len(subset) < MinTrendPoints {
		return report
	}

	report.Months = GroupByMonth(subset)
	origin := subset[0].Date
	points := make([]TrendPoint, 0, len(subset))
	for _, r := range subset {
		points = append(points, TrendPoint{
			Day:   float64(wholeDays(origin, r.Date)),
			Value: r.PaceSecPerKm,
		})
	}
	if trend, err := FitTrend(points); err == nil {
		report.Trend = &trend
	}
	return report
}
