// Package config loads CLI settings from a YAML file and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	marathon "github.com/lucasjlepore/marathon-check"
	"github.com/lucasjlepore/marathon-check/strava"
)

// Environment variables consulted by Load. They win over the file.
const (
	EnvClientID     = "STRAVA_CLIENT_ID"
	EnvClientSecret = "STRAVA_CLIENT_SECRET"
	EnvTokenFile    = "STRAVA_TOKEN_FILE"
	EnvRedirectPort = "STRAVA_REDIRECT_PORT"
	EnvTargetPace   = "MARATHON_TARGET_PACE"
)

// Config is the full CLI configuration.
type Config struct {
	Strava   Strava   `yaml:"strava"`
	Analysis Analysis `yaml:"analysis"`
}

// Strava holds API credentials and token storage settings.
type Strava struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenFile    string `yaml:"token_file"`
	RedirectPort int    `yaml:"redirect_port"`
	PerPage      int    `yaml:"per_page"`
}

// Analysis overrides the analysis parameters. TargetPace accepts "M:SS" and
// takes precedence over target_pace_sec_per_km.
type Analysis struct {
	TargetPace      string `yaml:"target_pace"`
	marathon.Params `yaml:",inline"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Strava: Strava{
			TokenFile:    strava.DefaultTokenFile,
			RedirectPort: strava.DefaultRedirectPort,
			PerPage:      strava.DefaultPerPage,
		},
		Analysis: Analysis{Params: marathon.DefaultParams()},
	}
}

// Load reads the YAML file at path (optional when empty), applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.resolve(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates it. The environment is
// not consulted.
func Parse(input []byte) (Config, error) {
	cfg := Default()
	if err := decode(input, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.resolve(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(input []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(input))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Strava.ClientID = getEnv(EnvClientID, c.Strava.ClientID)
	c.Strava.ClientSecret = getEnv(EnvClientSecret, c.Strava.ClientSecret)
	c.Strava.TokenFile = getEnv(EnvTokenFile, c.Strava.TokenFile)
	c.Strava.RedirectPort = getIntEnv(EnvRedirectPort, c.Strava.RedirectPort)
	c.Analysis.TargetPace = getEnv(EnvTargetPace, c.Analysis.TargetPace)
}

// resolve folds TargetPace into the params and validates.
func (c *Config) resolve() error {
	if strings.TrimSpace(c.Analysis.TargetPace) != "" {
		pace, err := marathon.ParsePace(c.Analysis.TargetPace)
		if err != nil {
			return fmt.Errorf("analysis.target_pace: %w", err)
		}
		c.Analysis.TargetPaceSecPerKm = pace
	}
	return c.Validate()
}

// Validate checks the analysis parameters and Strava settings that always
// apply. Credentials are checked separately by RequireCredentials since
// offline runs do not need them.
func (c Config) Validate() error {
	if err := c.Analysis.Params.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if c.Strava.RedirectPort < 1 || c.Strava.RedirectPort > 65535 {
		return fmt.Errorf("strava.redirect_port must be in 1..65535 (got %d)", c.Strava.RedirectPort)
	}
	if c.Strava.PerPage < 1 || c.Strava.PerPage > 200 {
		return fmt.Errorf("strava.per_page must be in 1..200 (got %d)", c.Strava.PerPage)
	}
	if strings.TrimSpace(c.Strava.TokenFile) == "" {
		return errors.New("strava.token_file is required")
	}
	return nil
}

// RequireCredentials reports missing API credentials.
func (s Strava) RequireCredentials() error {
	var missing []string
	if strings.TrimSpace(s.ClientID) == "" {
		missing = append(missing, EnvClientID)
	}
	if strings.TrimSpace(s.ClientSecret) == "" {
		missing = append(missing, EnvClientSecret)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing strava credentials: set %s or pass them as flags", strings.Join(missing, " and "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
