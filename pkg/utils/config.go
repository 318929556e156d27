package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by every novelhub binary.
type Config struct {
	// CacheDir is the root of the per-publication artifact cache.
	CacheDir string `yaml:"cache_dir"`

	BaseURL      string `yaml:"base_url"`
	ChapterBase  string `yaml:"chapter_base"`
	ResolverURL  string `yaml:"resolver_url"` // empty: parse the publication page directly
	Language     string `yaml:"language"`
	Workers      int    `yaml:"workers"`
	DelayMS      int    `yaml:"delay_ms"`
	HTTPTimeoutS int    `yaml:"http_timeout_sec"`

	HTTPAddr string `yaml:"http_addr"`
	SyncAddr string `yaml:"sync_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
}

// Delay is the minimum interval between two chapter requests.
func (c Config) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

// HTTPTimeout bounds a single outgoing request.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutS) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return home
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		CacheDir:     filepath.Join(homeDir(), ".novelhub", "db"),
		BaseURL:      "https://jaomix.ru/category/",
		ChapterBase:  "https://jaomix.ru/",
		Language:     "ru",
		Workers:      2,
		DelayMS:      200,
		HTTPTimeoutS: 20,
		HTTPAddr:     ":8080",
		SyncAddr:     ":7070",
		GRPCAddr:     ":9090",
	}
}

// ConfigPath is the YAML file read by LoadConfig.
func ConfigPath() string {
	if p := os.Getenv("NOVELHUB_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(homeDir(), ".novelhub", "config.yaml")
}

// LoadConfig layers the defaults, the optional YAML file at ConfigPath and
// the NOVELHUB_* environment variables, in that order.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := cfg.loadFile(ConfigPath()); err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"NOVELHUB_CACHE_DIR":    &c.CacheDir,
		"NOVELHUB_BASE_URL":     &c.BaseURL,
		"NOVELHUB_CHAPTER_BASE": &c.ChapterBase,
		"NOVELHUB_RESOLVER_URL": &c.ResolverURL,
		"NOVELHUB_LANGUAGE":     &c.Language,
		"NOVELHUB_HTTP_ADDR":    &c.HTTPAddr,
		"NOVELHUB_SYNC_ADDR":    &c.SyncAddr,
		"NOVELHUB_GRPC_ADDR":    &c.GRPCAddr,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"NOVELHUB_WORKERS":          &c.Workers,
		"NOVELHUB_DELAY_MS":         &c.DelayMS,
		"NOVELHUB_HTTP_TIMEOUT_SEC": &c.HTTPTimeoutS,
	}
	for key, dst := range ints {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

func (c *Config) validate() error {
	switch {
	case c.CacheDir == "":
		return errors.New("cache_dir is required")
	case c.BaseURL == "":
		return errors.New("base_url is required")
	case c.ChapterBase == "":
		return errors.New("chapter_base is required")
	case c.Workers < 1:
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	case c.DelayMS < 0:
		return fmt.Errorf("delay_ms must not be negative, got %d", c.DelayMS)
	case c.HTTPTimeoutS < 1:
		return fmt.Errorf("http_timeout_sec must be at least 1, got %d", c.HTTPTimeoutS)
	}
	return nil
}
