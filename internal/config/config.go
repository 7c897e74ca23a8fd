// Package config loads newswatch configuration from YAML with environment
// overrides. Resolution order: defaults, then the config file if present,
// then environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when no explicit
// path is given.
const DefaultFileName = "newswatch.yaml"

// Config holds all newswatch configuration.
type Config struct {
	// Database settings
	Database DatabaseConfig `yaml:"database"`

	// Scraper settings
	Scraper ScraperConfig `yaml:"scraper"`

	// LLM analysis settings
	LLM LLMConfig `yaml:"llm"`

	// Orchestrator settings
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// DatabaseConfig configures the SQLite article store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScraperConfig configures the news-portal scraper.
type ScraperConfig struct {
	ListingURL        string `yaml:"listing_url"`
	Headless          bool   `yaml:"headless"`
	ViewportWidth     int    `yaml:"viewport_width"`
	ViewportHeight    int    `yaml:"viewport_height"`
	NavigationTimeout string `yaml:"navigation_timeout"`
	MaxPages          int    `yaml:"max_pages"`
	UserDataDir       string `yaml:"user_data_dir"`
}

// LLMConfig configures the analysis transducer.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
	Workers  int    `yaml:"workers"`
}

// PipelineConfig configures the two-step orchestrator. Empty command slices
// mean "re-exec this binary's own setup/workflow subcommands".
type PipelineConfig struct {
	SetupCommand    []string `yaml:"setup_command"`
	WorkflowCommand []string `yaml:"workflow_command"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "stock_news.db",
		},
		Scraper: ScraperConfig{
			ListingURL:        "https://www.saudiexchange.sa/wps/portal/saudiexchange/newsandreports",
			Headless:          true,
			ViewportWidth:     1920,
			ViewportHeight:    1080,
			NavigationTimeout: "30s",
			MaxPages:          0, // 0 = all pages
		},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4-turbo",
			BaseURL:  "https://api.openai.com/v1",
			Timeout:  "120s",
			Workers:  4,
		},
	}
}

// Load reads configuration from path. An empty path falls back to
// DefaultFileName; a missing default file is not an error, defaults plus
// environment overrides still apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file is fine, run on defaults.
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides layers environment variables over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NEWSWATCH_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("NEWSWATCH_LISTING_URL"); v != "" {
		c.Scraper.ListingURL = v
	}
	if v := os.Getenv("NEWSWATCH_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "gemini":
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Scraper.ListingURL == "" {
		return fmt.Errorf("scraper.listing_url must not be empty")
	}
	if _, err := c.NavigationTimeout(); err != nil {
		return err
	}
	if _, err := c.LLMTimeout(); err != nil {
		return err
	}
	return nil
}

// NavigationTimeout parses the scraper navigation timeout.
func (c *Config) NavigationTimeout() (time.Duration, error) {
	if c.Scraper.NavigationTimeout == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Scraper.NavigationTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid scraper.navigation_timeout %q: %w", c.Scraper.NavigationTimeout, err)
	}
	return d, nil
}

// LLMTimeout parses the per-request LLM timeout.
func (c *Config) LLMTimeout() (time.Duration, error) {
	if c.LLM.Timeout == "" {
		return 120 * time.Second, nil
	}
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid llm.timeout %q: %w", c.LLM.Timeout, err)
	}
	return d, nil
}

// Workers returns the analysis worker count, always at least 1.
func (c *Config) Workers() int {
	if c.LLM.Workers < 1 {
		return 1
	}
	return c.LLM.Workers
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}
