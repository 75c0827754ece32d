// Package config handles loading and resolving boj configuration.
// Resolution order (first non-empty value wins):
//  1. CLI flags (applied by the caller after Load)
//  2. Environment variables BOJ_*
//  3. config.json in the current working directory
//  4. Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/explorrrr/boj-client/internal/boj"
	"github.com/explorrrr/boj-client/internal/query"
	"github.com/explorrrr/boj-client/internal/util"
)

const (
	DefaultConfigFile   = "config.json"
	DefaultFormat       = "table"
	DefaultLang         = "jp"
	DefaultTimeout      = 10 * time.Second
	DefaultRetryMax     = 2
	DefaultRetryBackoff = 200 * time.Millisecond
	DefaultRate         = 2.0
	DefaultConcurrency  = 4
	DefaultBindAddr     = ":8080"
	EnvDBPath           = "BOJ_DB_PATH"
	EnvBaseURL          = "BOJ_BASE_URL"
)

// File is the on-disk representation of config.json.
type File struct {
	BaseURL       string  `json:"base_url"`
	DefaultFormat string  `json:"default_format"`
	Lang          string  `json:"lang"`
	Timeout       string  `json:"timeout"`
	RetryMax      *uint32 `json:"retry_max,omitempty"`
	RetryBackoff  string  `json:"retry_backoff"`
	Rate          float64 `json:"rate"`
	Concurrency   int     `json:"concurrency"`
	DBPath        string  `json:"db_path"`
	BindAddr      string  `json:"bind_addr"`
}

// Env is the environment layer, read with envconfig. Unset variables leave
// fields at their zero value.
type Env struct {
	BaseURL        string  `envconfig:"BOJ_BASE_URL"`
	TimeoutMs      int     `envconfig:"BOJ_TIMEOUT_MS"`
	RetryMax       *uint32 `envconfig:"BOJ_RETRY_MAX"`
	RetryBackoffMs *int    `envconfig:"BOJ_RETRY_BACKOFF_MS"`
	Rate           float64 `envconfig:"BOJ_RATE"`
	Concurrency    int     `envconfig:"BOJ_CONCURRENCY"`
	DBPath         string  `envconfig:"BOJ_DB_PATH"`
	Format         string  `envconfig:"BOJ_FORMAT"`
	Lang           string  `envconfig:"BOJ_LANG"`
	BindAddr       string  `envconfig:"BOJ_BIND_ADDR"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; File and Env are only read during loading.
type Config struct {
	BaseURL      string
	Format       string
	Lang         string
	Timeout      time.Duration
	RetryMax     uint32
	RetryBackoff time.Duration
	Rate         float64
	Concurrency  int
	DBPath       string
	BindAddr     string
	ConfigPath   string // path of the config.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Quiet   bool
	Verbose bool
	Debug   bool
}

// Load resolves configuration from all sources.
// flagBaseURL is the value of --base-url (empty string if not set).
func Load(flagBaseURL string) (*Config, error) {
	cfg := &Config{
		BaseURL:      boj.DefaultBaseURL,
		Format:       DefaultFormat,
		Lang:         DefaultLang,
		Timeout:      DefaultTimeout,
		RetryMax:     DefaultRetryMax,
		RetryBackoff: DefaultRetryBackoff,
		Rate:         DefaultRate,
		Concurrency:  DefaultConcurrency,
		BindAddr:     DefaultBindAddr,
	}

	// Layer 1: config.json (lowest priority)
	if f, path, err := loadFile(); err == nil {
		applyFile(cfg, f, path)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Layer 2: environment
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	applyEnv(cfg, &env)

	// Layer 3: CLI flag (highest priority)
	if flagBaseURL != "" {
		cfg.BaseURL = flagBaseURL
	}

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".boj", "boj.db")
		}
	}

	return cfg, nil
}

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var errs util.MultiError
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		errs.Add(fmt.Errorf("base_url must be an http(s) URL, got %q", c.BaseURL))
	}
	if _, err := query.ParseLanguage(c.Lang); err != nil {
		errs.Add(fmt.Errorf("lang must be jp or en, got %q", c.Lang))
	}
	if c.Timeout < 0 {
		errs.Add(fmt.Errorf("timeout must not be negative, got %v", c.Timeout))
	}
	if c.RetryBackoff < 0 {
		errs.Add(fmt.Errorf("retry_backoff must not be negative, got %v", c.RetryBackoff))
	}
	if c.Rate < 0 {
		errs.Add(fmt.Errorf("rate must not be negative, got %g", c.Rate))
	}
	if c.Concurrency < 1 {
		errs.Add(fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	return errs.Err()
}

// loadFile attempts to read config.json from the current working directory.
// A missing file is reported with an error satisfying os.IsNotExist.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("reading config.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("parsing config.json: %w", err)
	}
	return &f, path, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.Lang != "" {
		cfg.Lang = strings.ToLower(f.Lang)
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if f.RetryMax != nil {
		cfg.RetryMax = *f.RetryMax
	}
	if f.RetryBackoff != "" {
		if d, err := time.ParseDuration(f.RetryBackoff); err == nil {
			cfg.RetryBackoff = d
		}
	}
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.BindAddr != "" {
		cfg.BindAddr = f.BindAddr
	}
}

// applyEnv copies set environment values into cfg.
func applyEnv(cfg *Config, e *Env) {
	if e.BaseURL != "" {
		cfg.BaseURL = e.BaseURL
	}
	if e.TimeoutMs > 0 {
		cfg.Timeout = time.Duration(e.TimeoutMs) * time.Millisecond
	}
	if e.RetryMax != nil {
		cfg.RetryMax = *e.RetryMax
	}
	if e.RetryBackoffMs != nil {
		cfg.RetryBackoff = time.Duration(*e.RetryBackoffMs) * time.Millisecond
	}
	if e.Rate > 0 {
		cfg.Rate = e.Rate
	}
	if e.Concurrency > 0 {
		cfg.Concurrency = e.Concurrency
	}
	if e.DBPath != "" {
		cfg.DBPath = e.DBPath
	}
	if e.Format != "" {
		cfg.Format = e.Format
	}
	if e.Lang != "" {
		cfg.Lang = strings.ToLower(e.Lang)
	}
	if e.BindAddr != "" {
		cfg.BindAddr = e.BindAddr
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `boj config init`.
func Template() File {
	retryMax := uint32(DefaultRetryMax)
	return File{
		BaseURL:       boj.DefaultBaseURL,
		DefaultFormat: DefaultFormat,
		Lang:          DefaultLang,
		Timeout:       DefaultTimeout.String(),
		RetryMax:      &retryMax,
		RetryBackoff:  DefaultRetryBackoff.String(),
		Rate:          DefaultRate,
		Concurrency:   DefaultConcurrency,
		BindAddr:      DefaultBindAddr,
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
