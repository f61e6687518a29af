// Package config loads adaptiq settings from defaults, an optional YAML file
// and ADAPTIQ_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/adaptiq/internal/ability"
	"github.com/abhisek/adaptiq/internal/attempt"
	"github.com/abhisek/adaptiq/internal/events"
	"github.com/abhisek/adaptiq/internal/selector"
	"github.com/abhisek/adaptiq/internal/spacedrep"
)

// Config holds all adaptiq configuration.
type Config struct {
	// DBPath is the SQLite file. Empty means store.DefaultDBPath.
	DBPath string `yaml:"db_path"`

	// HTTPAddr is the listen address for `adaptiq serve`. Default: ":8080".
	HTTPAddr string `yaml:"http_addr"`

	// LogMode is "dev" or "prod".
	LogMode string `yaml:"log_mode"`

	// CatalogPath is the JSON catalog loaded at startup.
	CatalogPath string `yaml:"catalog_path"`

	AMQP   AMQPConfig   `yaml:"amqp"`
	Tuning TuningConfig `yaml:"tuning"`
	Review ReviewConfig `yaml:"review"`
	CORS   CORSConfig   `yaml:"cors"`
}

// AMQPConfig configures the attempt event publisher. An empty URL disables
// publishing.
type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// TuningConfig holds the ability model and termination thresholds.
type TuningConfig struct {
	Slope              float64 `yaml:"slope"`
	LearningRate       float64 `yaml:"learning_rate"`
	ConvergenceEpsilon float64 `yaml:"convergence_epsilon"`
	TieEpsilon         float64 `yaml:"tie_epsilon"`
}

// ReviewConfig bounds the due-review list.
type ReviewConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// CORSConfig lists the origins allowed to call the HTTP API.
type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

// DefaultConfig returns a Config with the reference defaults.
func DefaultConfig() Config {
	return Config{
		HTTPAddr: ":8080",
		LogMode:  "dev",
		AMQP: AMQPConfig{
			Exchange: events.DefaultExchange,
		},
		Tuning: TuningConfig{
			Slope:              ability.DefaultSlope,
			LearningRate:       ability.DefaultLearningRate,
			ConvergenceEpsilon: attempt.DefaultConvergenceEpsilon,
			TieEpsilon:         selector.DefaultTieEpsilon,
		},
		Review: ReviewConfig{
			DefaultLimit: spacedrep.DefaultDueLimit,
			MaxLimit:     spacedrep.MaxDueLimit,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then the environment. A .env file in the working
// directory is loaded into the environment first if present.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overrides fields from ADAPTIQ_* variables.
func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("ADAPTIQ_DB", &c.DBPath)
	str("ADAPTIQ_HTTP_ADDR", &c.HTTPAddr)
	str("ADAPTIQ_LOG_MODE", &c.LogMode)
	str("ADAPTIQ_CATALOG", &c.CatalogPath)
	str("ADAPTIQ_AMQP_URL", &c.AMQP.URL)
	str("ADAPTIQ_AMQP_EXCHANGE", &c.AMQP.Exchange)

	if v := getenv("ADAPTIQ_CORS_ALLOW_ORIGINS"); v != "" {
		c.CORS.AllowOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORS.AllowOrigins = append(c.CORS.AllowOrigins, o)
			}
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"ADAPTIQ_SLOPE", &c.Tuning.Slope},
		{"ADAPTIQ_LEARNING_RATE", &c.Tuning.LearningRate},
		{"ADAPTIQ_CONVERGENCE_EPSILON", &c.Tuning.ConvergenceEpsilon},
		{"ADAPTIQ_TIE_EPSILON", &c.Tuning.TieEpsilon},
	}
	for _, f := range floats {
		v := getenv(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = n
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"ADAPTIQ_REVIEW_DEFAULT_LIMIT", &c.Review.DefaultLimit},
		{"ADAPTIQ_REVIEW_MAX_LIMIT", &c.Review.MaxLimit},
	}
	for _, f := range ints {
		v := getenv(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = n
	}
	return nil
}

// Validate checks ranges and cross-field constraints.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr is required")
	}
	switch c.LogMode {
	case "dev", "development", "prod", "production":
	default:
		return fmt.Errorf("unknown log_mode: %q", c.LogMode)
	}
	if c.Tuning.Slope <= 0 {
		return fmt.Errorf("tuning.slope must be positive, got %v", c.Tuning.Slope)
	}
	if c.Tuning.LearningRate <= 0 || c.Tuning.LearningRate > 1 {
		return fmt.Errorf("tuning.learning_rate must be in (0,1], got %v", c.Tuning.LearningRate)
	}
	if c.Tuning.ConvergenceEpsilon <= 0 {
		return fmt.Errorf("tuning.convergence_epsilon must be positive, got %v", c.Tuning.ConvergenceEpsilon)
	}
	if c.Tuning.TieEpsilon <= 0 {
		return fmt.Errorf("tuning.tie_epsilon must be positive, got %v", c.Tuning.TieEpsilon)
	}
	if c.Review.DefaultLimit <= 0 || c.Review.MaxLimit <= 0 {
		return fmt.Errorf("review limits must be positive")
	}
	if c.Review.DefaultLimit > c.Review.MaxLimit {
		return fmt.Errorf("review.default_limit %d exceeds review.max_limit %d", c.Review.DefaultLimit, c.Review.MaxLimit)
	}
	if c.AMQP.URL != "" && c.AMQP.Exchange == "" {
		return fmt.Errorf("amqp.exchange is required when amqp.url is set")
	}
	return nil
}

// Model returns the configured ability model.
func (c Config) Model() ability.Model {
	return ability.Model{Slope: c.Tuning.Slope, LearningRate: c.Tuning.LearningRate}
}

// EngineTuning returns the configured termination thresholds.
func (c Config) EngineTuning() attempt.Tuning {
	return attempt.Tuning{
		ConvergenceEpsilon: c.Tuning.ConvergenceEpsilon,
		TieEpsilon:         c.Tuning.TieEpsilon,
	}
}

// ReviewService returns the due-list bounds for spacedrep.NewService.
func (c Config) ReviewService() spacedrep.Config {
	return spacedrep.Config{DefaultLimit: c.Review.DefaultLimit, MaxLimit: c.Review.MaxLimit}
}
