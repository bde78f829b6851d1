package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// DefaultPath is read when WARD_CONFIG is unset and the file exists.
const DefaultPath = "config/ward.yaml"

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingWard        = errors.New("ward number is required")
	ErrInvalidThreshold   = errors.New("matching thresholds must lie in (0,1]")
	ErrInvalidBatchSize   = errors.New("batch sizes must be positive")
	ErrInvalidRateLimit   = errors.New("rate limit rps and burst must be positive")
)

// Config is the service configuration.
type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Redis       RedisConfig     `yaml:"redis"`
	Ward        string          `yaml:"ward"`
	Matching    MatchingConfig  `yaml:"matching"`
	Import      ImportConfig    `yaml:"import"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	AdminPhones []string        `yaml:"admin_phones"`
	LogLevel    string          `yaml:"log_level"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int64    `yaml:"max_upload_mb"`
}

type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig configures the verification result cache. An empty URL
// disables it.
type RedisConfig struct {
	URL    string        `yaml:"url"`
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`
}

// MatchingConfig holds the fuzzy name thresholds.
type MatchingConfig struct {
	// Accept is the minimum score for a name match.
	Accept float64 `yaml:"accept"`
	// PartSimilarity is the per-token similarity a name part must exceed.
	PartSimilarity float64 `yaml:"part_similarity"`
	// PartFloor is the minimum part score that may replace the whole-name score.
	PartFloor      float64 `yaml:"part_floor"`
	CandidateBatch int     `yaml:"candidate_batch"`
}

type ImportConfig struct {
	BatchSize    int           `yaml:"batch_size"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	MaxFetchMB   int64         `yaml:"max_fetch_mb"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Default returns the built-in configuration for Ward 26.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port: "5050",
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost:5173",
			},
			MaxUploadMB: 20,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    20,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			Prefix: "ward",
			TTL:    10 * time.Minute,
		},
		Ward: "26",
		Matching: MatchingConfig{
			Accept:         0.75,
			PartSimilarity: 0.8,
			PartFloor:      0.7,
			CandidateBatch: 5000,
		},
		Import: ImportConfig{
			BatchSize:    500,
			FetchTimeout: 60 * time.Second,
			MaxFetchMB:   50,
		},
		RateLimit: RateLimitConfig{
			RPS:   1,
			Burst: 5,
		},
		AdminPhones: []string{"+919152233535", "9833311392"},
		LogLevel:    "info",
	}
}

// Load builds the configuration in layers: defaults, then the YAML file, then
// environment variables. .env.local is loaded first if present.
//
// Environment variables:
//   - WARD_CONFIG: YAML file path (default: config/ward.yaml when it exists)
//   - PORT, DATABASE_URL, REDIS_URL, LOG_LEVEL, WARD_NUMBER
//   - ADMIN_PHONES, ALLOWED_ORIGINS: comma separated
func Load() (Config, error) {
	_ = godotenv.Load(".env.local")

	cfg := Default()

	path, explicit := os.LookupEnv("WARD_CONFIG")
	if !explicit {
		path = DefaultPath
	}
	if err := cfg.mergeFile(path, explicit); err != nil {
		return Config{}, err
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("WARD_NUMBER")); v != "" {
		c.Ward = v
	}
	if v := splitList(os.Getenv("ADMIN_PHONES")); len(v) > 0 {
		c.AdminPhones = v
	}
	if v := splitList(os.Getenv("ALLOWED_ORIGINS")); len(v) > 0 {
		c.Server.AllowedOrigins = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration the HTTP server needs.
func (c Config) Validate() error {
	if c.Database.URL == "" {
		return ErrMissingDatabaseURL
	}
	return c.ValidateOffline()
}

// ValidateOffline checks everything except the database settings. Dry runs
// that never touch Postgres use it.
func (c Config) ValidateOffline() error {
	if strings.TrimSpace(c.Ward) == "" {
		return ErrMissingWard
	}
	for _, v := range []float64{c.Matching.Accept, c.Matching.PartSimilarity, c.Matching.PartFloor} {
		if v <= 0 || v > 1 {
			return ErrInvalidThreshold
		}
	}
	if c.Matching.CandidateBatch <= 0 || c.Import.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return ErrInvalidRateLimit
	}
	return nil
}

// MaxUploadBytes is the multipart body limit for roll uploads.
func (c Config) MaxUploadBytes() int64 { return c.Server.MaxUploadMB << 20 }
