package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	marathon "github.com/lucasjlepore/marathon-check"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvClientID, EnvClientSecret, EnvTokenFile, EnvRedirectPort, EnvTargetPace} {
		t.Setenv(key, "")
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
strava:
  client_id: "12345"
  client_secret: s3cret
analysis:
  target_pace: "5:00"
  long_run_readiness_km: 30
`))
	require.NoError(t, err)

	assert.Equal(t, "12345", cfg.Strava.ClientID)
	assert.Equal(t, ".strava_token.json", cfg.Strava.TokenFile)
	assert.Equal(t, 8642, cfg.Strava.RedirectPort)
	assert.Equal(t, 300.0, cfg.Analysis.TargetPaceSecPerKm)
	assert.Equal(t, 30.0, cfg.Analysis.LongRunReadinessKm)
	assert.Equal(t, marathon.DefaultRiegelExponent, cfg.Analysis.RiegelExponent)
	assert.Equal(t, "Run", cfg.Analysis.Kind)
}

func TestParseEmptyInput(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unknown field", "analysis:\n  target_pase: '5:00'\n", "target_pase"},
		{"bad pace", "analysis:\n  target_pace: '5:75'\n", "analysis.target_pace"},
		{"non-positive param", "analysis:\n  fatigue_factor: 0\n", "fatigue_factor must be positive"},
		{"percentile range", "analysis:\n  best_effort_percentile: 1.5\n", "best_effort_percentile"},
		{"port range", "strava:\n  redirect_port: 70000\n", "redirect_port"},
		{"per page", "strava:\n  per_page: 500\n", "per_page"},
		{"not yaml", "strava: [", "decode config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "marathon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
strava:
  client_id: from-file
  client_secret: file-secret
analysis:
  target_pace: "5:30"
`), 0o600))

	t.Setenv(EnvClientID, "from-env")
	t.Setenv(EnvTargetPace, "4:45")
	t.Setenv(EnvTokenFile, "/tmp/tok.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Strava.ClientID)
	assert.Equal(t, "file-secret", cfg.Strava.ClientSecret)
	assert.Equal(t, "/tmp/tok.json", cfg.Strava.TokenFile)
	assert.Equal(t, 285.0, cfg.Analysis.TargetPaceSecPerKm)
}

func TestLoadWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvRedirectPort, "9000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Strava.RedirectPort)
	assert.Equal(t, marathon.DefaultTargetPaceSecPerKm, cfg.Analysis.TargetPaceSecPerKm)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRequireCredentials(t *testing.T) {
	err := Strava{}.RequireCredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvClientID)
	assert.Contains(t, err.Error(), EnvClientSecret)

	err = Strava{ClientID: "id"}.RequireCredentials()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), EnvClientID+" ")

	assert.NoError(t, Strava{ClientID: "id", ClientSecret: "secret"}.RequireCredentials())
}
