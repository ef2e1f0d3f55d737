package marathon

import (
	"fmt"
	"strconv"
	"strings"
)

// Tunable defaults. Params copies these so callers and tests can override any of them.
const (
	DefaultKind                 = "Run"
	DefaultTargetPaceSecPerKm   = 330.0 // 5:30/km
	DefaultTargetDistanceKm     = 42.195
	DefaultRecentWeeks          = 12
	DefaultRecentAverageWeeks   = 8
	DefaultRecentRaceWeeks      = 16
	DefaultTrendWeeks           = 24
	DefaultLongRunKm            = 15.0
	DefaultLongRunReadinessKm   = 28.0
	DefaultBestEffortPercentile = 0.15
	DefaultRiegelExponent       = 1.06
	DefaultFatigueFactor        = 1.07
	DefaultRecentAdjustment     = 1.03
)

// Params is the configuration surface of the analysis pipeline.
type Params struct {
	Kind                 string  `json:"kind" yaml:"kind"`
	TargetPaceSecPerKm   float64 `json:"target_pace_sec_per_km" yaml:"target_pace_sec_per_km"`
	TargetDistanceKm     float64 `json:"target_distance_km" yaml:"target_distance_km"`
	RecentWeeks          int     `json:"recent_weeks" yaml:"recent_weeks"`
	RecentAverageWeeks   int     `json:"recent_average_weeks" yaml:"recent_average_weeks"`
	RecentRaceWeeks      int     `json:"recent_race_weeks" yaml:"recent_race_weeks"`
	TrendWeeks           int     `json:"trend_weeks" yaml:"trend_weeks"`
	LongRunKm            float64 `json:"long_run_km" yaml:"long_run_km"`
	LongRunReadinessKm   float64 `json:"long_run_readiness_km" yaml:"long_run_readiness_km"`
	BestEffortPercentile float64 `json:"best_effort_percentile" yaml:"best_effort_percentile"`
	RiegelExponent       float64 `json:"riegel_exponent" yaml:"riegel_exponent"`
	FatigueFactor        float64 `json:"fatigue_factor" yaml:"fatigue_factor"`
	RecentAdjustment     float64 `json:"recent_adjustment" yaml:"recent_adjustment"`
}

// DefaultParams returns the stock 5:30/km marathon configuration.
func DefaultParams() Params {
	return Params{
		Kind:                 DefaultKind,
		TargetPaceSecPerKm:   DefaultTargetPaceSecPerKm,
		TargetDistanceKm:     DefaultTargetDistanceKm,
		RecentWeeks:          DefaultRecentWeeks,
		RecentAverageWeeks:   DefaultRecentAverageWeeks,
		RecentRaceWeeks:      DefaultRecentRaceWeeks,
		TrendWeeks:           DefaultTrendWeeks,
		LongRunKm:            DefaultLongRunKm,
		LongRunReadinessKm:   DefaultLongRunReadinessKm,
		BestEffortPercentile: DefaultBestEffortPercentile,
		RiegelExponent:       DefaultRiegelExponent,
		FatigueFactor:        DefaultFatigueFactor,
		RecentAdjustment:     DefaultRecentAdjustment,
	}
}

// TargetTimeSec is the finish time implied by the target pace over the target distance.
func (p Params) TargetTimeSec() float64 {
	return p.TargetPaceSecPerKm * p.TargetDistanceKm
}

// Validate rejects settings that would make the pipeline meaningless.
func (p Params) Validate() error {
	if strings.TrimSpace(p.Kind) == "" {
		return fmt.Errorf("kind is required")
	}
	positives := []struct {
		name  string
		value float64
	}{
		{"target_pace_sec_per_km", p.TargetPaceSecPerKm},
		{"target_distance_km", p.TargetDistanceKm},
		{"recent_weeks", float64(p.RecentWeeks)},
		{"recent_average_weeks", float64(p.RecentAverageWeeks)},
		{"recent_race_weeks", float64(p.RecentRaceWeeks)},
		{"trend_weeks", float64(p.TrendWeeks)},
		{"long_run_km", p.LongRunKm},
		{"long_run_readiness_km", p.LongRunReadinessKm},
		{"riegel_exponent", p.RiegelExponent},
		{"fatigue_factor", p.FatigueFactor},
		{"recent_adjustment", p.RecentAdjustment},
	}
	for _, v := range positives {
		if !isFinite(v.value) || v.value <= 0 {
			return fmt.Errorf("%s must be positive (got %v)", v.name, v.value)
		}
	}
	if p.BestEffortPercentile <= 0 || p.BestEffortPercentile > 1 {
		return fmt.Errorf("best_effort_percentile must be in (0, 1] (got %v)", p.BestEffortPercentile)
	}
	return nil
}

// ParsePace reads a pace written as "M:SS" (per km) or as plain seconds.
func ParsePace(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "/km"))
	if s == "" {
		return 0, fmt.Errorf("empty pace")
	}
	if !strings.Contains(s, ":") {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("invalid pace %q", s)
		}
		return v, nil
	}
	parts := strings.SplitN(s, ":", 2)
	mins, err := strconv.Atoi(parts[0])
	if err != nil || mins < 0 {
		return 0, fmt.Errorf("invalid pace minutes in %q", s)
	}
	secs, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || secs < 0 || secs >= 60 {
		return 0, fmt.Errorf("invalid pace seconds in %q", s)
	}
	total := float64(mins)*60 + secs
	if total <= 0 {
		return 0, fmt.Errorf("invalid pace %q", s)
	}
	return total, nil
}
