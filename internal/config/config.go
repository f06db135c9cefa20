package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	ForecastURL     string
	ArchiveURL      string
	UpstreamTimeout time.Duration
	RetryAttempts   int
	RetryDelay      time.Duration

	RequestTimeout time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout    time.Duration
	DrainTimeout       time.Duration
	DrainCheckInterval time.Duration

	WarmCurrentCache bool
	WarmInterval     time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	OpenMeteo struct {
		ForecastURL string `yaml:"forecast_url"`
		ArchiveURL  string `yaml:"archive_url"`
		Timeout     string `yaml:"timeout"`
	} `yaml:"open_meteo"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Reliability struct {
		RetryMaxAttempts int    `yaml:"retry_max_attempts"`
		RetryDelay       string `yaml:"retry_delay"`
		RateLimitRPS     int    `yaml:"rate_limit_rps"`
		RateLimitBurst   int    `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout            string `yaml:"timeout"`
		DrainTimeout       string `yaml:"drain_timeout"`
		DrainCheckInterval string `yaml:"drain_check_interval"`
	} `yaml:"shutdown"`

	Warming struct {
		CurrentCache bool   `yaml:"current_cache"`
		Interval     string `yaml:"interval"`
	} `yaml:"warming"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev), with a
// .env file and process env layered on top. A missing config file is not an
// error; defaults apply. Call from project root.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	var fc fileConfig
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = envOr("PORT", fc.Server.Port)
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.ForecastURL = envOr("OPEN_METEO_FORECAST_URL", fc.OpenMeteo.ForecastURL)
	if cfg.ForecastURL == "" {
		cfg.ForecastURL = "https://api.open-meteo.com/v1/forecast"
	}
	cfg.ArchiveURL = envOr("OPEN_METEO_ARCHIVE_URL", fc.OpenMeteo.ArchiveURL)
	if cfg.ArchiveURL == "" {
		cfg.ArchiveURL = "https://archive-api.open-meteo.com/v1/archive"
	}
	cfg.UpstreamTimeout = parseDuration(envOr("OPEN_METEO_TIMEOUT", fc.OpenMeteo.Timeout), 12*time.Second)

	cfg.RetryAttempts = parseInt(envOr("RETRY_MAX_ATTEMPTS", ""), fc.Reliability.RetryMaxAttempts)
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 2
	}
	cfg.RetryDelay = parseDuration(envOr("RETRY_DELAY", fc.Reliability.RetryDelay), 500*time.Millisecond)

	cfg.RequestTimeout = parseDuration(envOr("REQUEST_TIMEOUT", fc.Request.Timeout), 60*time.Second)
	cfg.RateLimitRPS = parseInt(envOr("RATE_LIMIT_RPS", ""), fc.Reliability.RateLimitRPS)
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 50
	}
	cfg.RateLimitBurst = parseInt(envOr("RATE_LIMIT_BURST", ""), fc.Reliability.RateLimitBurst)
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}

	cfg.ShutdownTimeout = parseDuration(envOr("SHUTDOWN_TIMEOUT", fc.Shutdown.Timeout), 30*time.Second)
	cfg.DrainTimeout = parseDuration(envOr("DRAIN_TIMEOUT", fc.Shutdown.DrainTimeout), 10*time.Second)
	cfg.DrainCheckInterval = parseDuration(envOr("DRAIN_CHECK_INTERVAL", fc.Shutdown.DrainCheckInterval), 100*time.Millisecond)

	cfg.WarmCurrentCache = fc.Warming.CurrentCache
	if v := strings.TrimSpace(os.Getenv("WARM_CURRENT_CACHE")); v != "" {
		cfg.WarmCurrentCache = v == "true" || v == "1"
	}
	cfg.WarmInterval = parseDuration(envOr("WARM_INTERVAL", fc.Warming.Interval), 10*time.Minute)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envOr returns the env value if set, otherwise the file value.
func envOr(key, fileValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return strings.TrimSpace(fileValue)
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is not positive.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// parseInt parses s, falling back to fileValue on empty or unparseable input.
func parseInt(s string, fileValue int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return fileValue
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fileValue
	}
	return n
}

// validate performs post-load validation. The request timeout must leave room
// for at least one full upstream call.
func validate(cfg *Config) error {
	if cfg.UpstreamTimeout <= 0 {
		return fmt.Errorf("open_meteo.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.UpstreamTimeout {
		cfg.RequestTimeout = cfg.UpstreamTimeout + time.Second
	}
	if cfg.ForecastURL == "" || cfg.ArchiveURL == "" {
		return fmt.Errorf("open_meteo URLs must not be empty")
	}
	return nil
}
