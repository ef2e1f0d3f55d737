package marathon

import (
	"fmt"
	"time"
)

// Rating is the categorical achievability outcome.
type Rating string

const (
	RatingAchievable       Rating = "achievable"
	RatingPossible         Rating = "possible with focused training"
	RatingStretch          Rating = "stretch goal"
	RatingAmbitious        Rating = "ambitious long-term"
	RatingNeedsDevelopment Rating = "needs substantial development"
	RatingInsufficientData Rating = "insufficient data"
)

// ratingBand is one rung of the ladder; a prediction qualifies when it is at
// most maxRatio times the target time.
type ratingBand struct {
	maxRatio float64
	rating   Rating
	detail   string
}

var ratingLadder = []ratingBand{
	{1.00, RatingAchievable, "Your current fitness data suggests you can hit this target."},
	{1.05, RatingPossible, "You're within striking distance. With a structured 12-16 week plan focusing on tempo runs, long runs, and weekly volume, this is reachable."},
	{1.10, RatingStretch, "You'll need 4-6 months of dedicated training with progressive volume increases, regular tempo/threshold work, and long runs building to 32-35 km."},
	{1.20, RatingAmbitious, "This would require 6-12 months of consistent, structured training. Consider intermediate race goals (10k, half-marathon) first."},
}

const (
	needsDevelopmentDetail = "Build your base fitness first. Focus on consistency, gradually increase volume, and set intermediate pace targets over 12+ months."
	insufficientDataDetail = "None of the prediction models had enough data to estimate a finish time. Log more runs of 5 km or longer and rerun the analysis."
)

// TrainingPlan is attached to every verdict.
var TrainingPlan = []string{
	"Weekly volume: Build to 50-65 km/week",
	"Long run: Weekly 25-35 km at 5:45-6:00/km pace",
	"Tempo runs: 8-12 km at 5:10-5:20/km (1-2x/week)",
	"Intervals: 6-8 x 1km at 4:40-5:00/km with 90s recovery",
	"Easy runs: 60-70% of training at 6:00-6:30/km",
	"Rest: At least 1-2 rest days per week",
}

// Evidence kinds.
const (
	EvidenceStrength = "strength"
	EvidenceIssue    = "issue"
)

// Evidence is the outcome of one rule.
type Evidence struct {
	Rule  string  `json:"rule"`
	Kind  string  `json:"kind"`
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

// RuleInput is the read-only view a rule evaluates.
type RuleInput struct {
	Runs   []Run
	AsOf   time.Time
	Params Params
}

// Rule is a pure check producing at most one piece of evidence.
type Rule struct {
	Name string
	Eval func(RuleInput) (Evidence, bool)
}

// Verdict is the terminal output of an analysis.
type Verdict struct {
	Rating        Rating     `json:"rating"`
	Detail        string     `json:"detail"`
	TargetSec     float64    `json:"target_sec"`
	TargetPace    float64    `json:"target_pace_sec_per_km"`
	PredictedSec  Stat       `json:"predicted_sec"`
	PredictedPace Stat       `json:"predicted_pace_sec_per_km"`
	Strengths     []string   `json:"strengths"`
	Issues        []string   `json:"issues"`
	Evidence      []Evidence `json:"evidence"`
	TrainingPlan  []string   `json:"training_plan"`
}

// DefaultRules returns the readiness checks in reporting order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "weekly_volume", Eval: weeklyVolumeRule},
		{Name: "long_run_readiness", Eval: longRunReadinessRule},
		{Name: "pace_capability", Eval: paceCapabilityRule},
		{Name: "long_run_pace", Eval: longRunPaceRule},
		{Name: "frequency", Eval: frequencyRule},
	}
}

// Synthesize evaluates the default rules and rates the ensemble mean against
// the target time.
func Synthesize(runs []Run, asOf time.Time, p Params, ens Ensemble) Verdict {
	return SynthesizeWith(DefaultRules(), runs, asOf, p, ens)
}

// SynthesizeWith is Synthesize with an explicit rule list. Rules run
// independently and their evidence is concatenated in rule order.
func SynthesizeWith(rules []Rule, runs []Run, asOf time.Time, p Params, ens Ensemble) Verdict {
	in := RuleInput{Runs: runs, AsOf: asOf, Params: p}
	v := Verdict{
		TargetSec:     p.TargetTimeSec(),
		TargetPace:    p.TargetPaceSecPerKm,
		PredictedSec:  ens.Mean,
		PredictedPace: ens.MeanPace,
		Strengths:     []string{},
		Issues:        []string{},
		Evidence:      []Evidence{},
		TrainingPlan:  append([]string(nil), TrainingPlan...),
	}
	for _, rule := range rules {
		ev, ok := rule.Eval(in)
		if !ok {
			continue
		}
		ev.Rule = rule.Name
		v.Evidence = append(v.Evidence, ev)
		switch ev.Kind {
		case EvidenceStrength:
			v.Strengths = append(v.Strengths, ev.Text)
		case EvidenceIssue:
			v.Issues = append(v.Issues, ev.Text)
		}
	}
	v.Rating, v.Detail = Rate(ens.Mean, v.TargetSec)
	return v
}

// Rate places a predicted finish time on the rating ladder.
func Rate(predicted Stat, targetSec float64) (Rating, string) {
	if !predicted.Valid || targetSec <= 0 {
		return RatingInsufficientData, insufficientDataDetail
	}
	for _, band := range ratingLadder {
		if predicted.Value <= targetSec*band.maxRatio {
			return band.rating, band.detail
		}
	}
	return RatingNeedsDevelopment, needsDevelopmentDetail
}

func strength(text string, value float64) (Evidence, bool) {
	return Evidence{Kind: EvidenceStrength, Text: text, Value: value}, true
}

func issue(text string, value float64) (Evidence, bool) {
	return Evidence{Kind: EvidenceIssue, Text: text, Value: value}, true
}

// recentRates returns km/week and runs/week over the recent window. An empty
// window reads as zero volume.
func recentRates(in RuleInput) (kmPerWeek, runsPerWeek float64) {
	recent := Select(in.Runs, Within(in.AsOf, in.Params.RecentWeeks))
	if len(recent) == 0 {
		return 0, 0
	}
	weeks := WeeksSpanned(recent)
	total := Summarize(recent, Distance).Sum.Value
	return total / weeks, float64(len(recent)) / weeks
}

func weeklyVolumeRule(in RuleInput) (Evidence, bool) {
	km, _ := recentRates(in)
	switch {
	case km >= 50:
		return strength(fmt.Sprintf("Strong weekly volume (%.0f km/week)", km), km)
	case km >= 35:
		return strength(fmt.Sprintf("Decent weekly volume (%.0f km/week)", km), km)
	case km >= 20:
		return issue(fmt.Sprintf("Moderate weekly volume (%.0f km/week) - ideally 40-60+ km/week for sub-%s",
			km, FormatTime(in.Params.TargetTimeSec())), km)
	default:
		return issue(fmt.Sprintf("Low weekly volume (%.0f km/week) - need 40-60+ km/week for this target", km), km)
	}
}

func longRunReadinessRule(in RuleInput) (Evidence, bool) {
	threshold := in.Params.LongRunReadinessKm
	n := len(Select(in.Runs, MinDistance(threshold)))
	switch {
	case n >= 3:
		return strength(fmt.Sprintf("Good long run history (%d runs of %.0f+ km)", n, threshold), float64(n))
	case n >= 1:
		return issue(fmt.Sprintf("Limited %.0f+ km runs (%d) - need more marathon-distance practice", threshold, n), float64(n))
	default:
		longest := Summarize(in.Runs, Distance).Max.Value
		return issue(fmt.Sprintf("No runs over %.0f km (longest: %.1f km) - need long runs of 30-35 km", threshold, longest), 0)
	}
}

func paceCapabilityRule(in RuleInput) (Evidence, bool) {
	target := in.Params.TargetPaceSecPerKm
	n := len(Select(in.Runs, MinDistance(BestEffortMinKm), PaceAtMost(target)))
	switch {
	case n >= 10:
		return strength(fmt.Sprintf("Regularly running at target pace (%d runs at/under %s/km)", n, FormatPace(target)), float64(n))
	case n >= 3:
		return strength(fmt.Sprintf("Can hit target pace in shorter runs (%d runs)", n), float64(n))
	default:
		return issue(fmt.Sprintf("Rarely running at %s/km pace (only %d runs of %.0f+ km)", FormatPace(target), n, BestEffortMinKm), float64(n))
	}
}

func longRunPaceRule(in RuleInput) (Evidence, bool) {
	mean := Summarize(Select(in.Runs, MinDistance(in.Params.LongRunKm)), Pace).Mean
	if !mean.Valid {
		return Evidence{}, false
	}
	target := in.Params.TargetPaceSecPerKm
	switch {
	case mean.Value <= target:
		return strength(fmt.Sprintf("Long run pace (%s/km) already at/under target", FormatPace(mean.Value)), mean.Value)
	case mean.Value <= target+30:
		return issue(fmt.Sprintf("Long run pace (%s/km) close but needs improvement", FormatPace(mean.Value)), mean.Value)
	default:
		return issue(fmt.Sprintf("Long run pace (%s/km) significantly above target", FormatPace(mean.Value)), mean.Value)
	}
}

func frequencyRule(in RuleInput) (Evidence, bool) {
	_, perWeek := recentRates(in)
	switch {
	case perWeek >= 4:
		return strength(fmt.Sprintf("Good consistency (%.1f runs/week)", perWeek), perWeek)
	case perWeek >= 3:
		return Evidence{}, false
	default:
		return issue(fmt.Sprintf("Low run frequency (%.1f/week) - aim for 4-5 runs/week", perWeek), perWeek)
	}
}
