package marathon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())
	assert.InDelta(t, 13924.35, p.TargetTimeSec(), 1e-6)
	assert.Equal(t, "Run", p.Kind)
}

func TestParamsValidate(t *testing.T) {
	cases := map[string]func(*Params){
		"kind":        func(p *Params) { p.Kind = " " },
		"distance":    func(p *Params) { p.TargetDistanceKm = -1 },
		"weeks":       func(p *Params) { p.RecentWeeks = 0 },
		"exponent":    func(p *Params) { p.RiegelExponent = 0 },
		"percentile":  func(p *Params) { p.BestEffortPercentile = 1.5 },
		"no_percent":  func(p *Params) { p.BestEffortPercentile = 0 },
		"fatigue_nan": func(p *Params) { p.FatigueFactor = math.NaN() },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := DefaultParams()
			mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestParsePace(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "5:30", want: 330},
		{in: "5:30/km", want: 330},
		{in: " 4:05 ", want: 245},
		{in: "330", want: 330},
		{in: "0:59.5", want: 59.5},
		{in: "", wantErr: true},
		{in: "5:75", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "0:00", wantErr: true},
		{in: "-300", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParsePace(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}
