package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the geofeed API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Feed     FeedConfig     `yaml:"feed"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Breaker  BreakerConfig  `yaml:"breaker"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"` // optional; checked when set
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// FeedConfig holds feed assembly settings.
type FeedConfig struct {
	PageSize          int `yaml:"page_size"`
	MapWindowHours    int `yaml:"map_window_hours"`
	NestedLimit       int `yaml:"nested_limit"` // page size of nested event/promotion reads
	MapVenueLimit     int `yaml:"map_venue_limit"`
	TopN              int `yaml:"top_n"`
	PopularWindowDays int `yaml:"popular_window_days"`
}

// ScoringConfig holds engagement scoring weights and thresholds.
type ScoringConfig struct {
	ClickWeight      float64 `yaml:"click_weight"`
	DwellWeight      float64 `yaml:"dwell_weight"`
	PreferenceBonus  float64 `yaml:"preference_bonus"`
	ColdStartClicks  int64   `yaml:"cold_start_clicks"`
	ColdStartDwellMs int64   `yaml:"cold_start_dwell_ms"`
	ColdStartScale   float64 `yaml:"cold_start_scale"`
	ColdStartFloor   float64 `yaml:"cold_start_floor"`
	DecayRate        float64 `yaml:"decay_rate"` // per hour, popularity only
}

// BreakerConfig holds store circuit breaker settings.
type BreakerConfig struct {
	MaxRequests      uint32 `yaml:"max_requests"`
	IntervalSec      int    `yaml:"interval_sec"`
	TimeoutSec       int    `yaml:"timeout_sec"`
	FailureThreshold uint32 `yaml:"failure_threshold"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	c.Feed.applyDefaults()
	c.Scoring.applyDefaults()
	if c.Breaker.MaxRequests == 0 {
		c.Breaker.MaxRequests = 1
	}
	if c.Breaker.IntervalSec <= 0 {
		c.Breaker.IntervalSec = 60
	}
	if c.Breaker.TimeoutSec <= 0 {
		c.Breaker.TimeoutSec = 30
	}
	if c.Breaker.FailureThreshold == 0 {
		c.Breaker.FailureThreshold = 5
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "geofeed:"
	}
}

func (f *FeedConfig) applyDefaults() {
	if f.PageSize <= 0 {
		f.PageSize = 30
	}
	if f.MapWindowHours <= 0 {
		f.MapWindowHours = 24
	}
	if f.NestedLimit <= 0 {
		f.NestedLimit = 1000
	}
	if f.MapVenueLimit <= 0 {
		f.MapVenueLimit = 500
	}
	if f.TopN <= 0 {
		f.TopN = 10
	}
	if f.PopularWindowDays <= 0 {
		f.PopularWindowDays = 7
	}
}

// Zero weights are legal, so only an entirely unset section gets defaults.
func (s *ScoringConfig) applyDefaults() {
	if *s == (ScoringConfig{}) {
		*s = ScoringConfig{
			ClickWeight:      0.30,
			DwellWeight:      0.45,
			PreferenceBonus:  0.25,
			ColdStartClicks:  200,
			ColdStartDwellMs: 120_000,
			ColdStartScale:   0.6,
			ColdStartFloor:   0.4,
			DecayRate:        0.05,
		}
		return
	}
	if s.DecayRate <= 0 {
		s.DecayRate = 0.05
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	weights := map[string]float64{
		"scoring.click_weight":     c.Scoring.ClickWeight,
		"scoring.dwell_weight":     c.Scoring.DwellWeight,
		"scoring.preference_bonus": c.Scoring.PreferenceBonus,
		"scoring.cold_start_scale": c.Scoring.ColdStartScale,
		"scoring.cold_start_floor": c.Scoring.ColdStartFloor,
	}
	for name, w := range weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %g", name, w)
		}
	}
	if c.Scoring.ColdStartClicks < 0 || c.Scoring.ColdStartDwellMs < 0 {
		return fmt.Errorf("scoring cold start thresholds must not be negative")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
