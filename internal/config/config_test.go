package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Database.Path != "stock_news.db" {
		t.Errorf("Default database path = %q, want stock_news.db", cfg.Database.Path)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("Default provider = %q, want openai", cfg.LLM.Provider)
	}
	if !cfg.Scraper.Headless {
		t.Error("Default scraper should be headless")
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	// Run from a directory with no newswatch.yaml.
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with missing default file: %v", err)
	}
	if cfg.Database.Path != "stock_news.db" {
		t.Errorf("Database path = %q, want default", cfg.Database.Path)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load with missing explicit file should fail")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "newswatch.yaml")
	content := `
database:
  path: /tmp/test_articles.db
scraper:
  listing_url: https://example.com/news
  max_pages: 3
  navigation_timeout: 45s
llm:
  provider: gemini
  model: gemini-2.0-flash
  workers: 2
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Path != "/tmp/test_articles.db" {
		t.Errorf("Database path = %q", cfg.Database.Path)
	}
	if cfg.Scraper.MaxPages != 3 {
		t.Errorf("MaxPages = %d, want 3", cfg.Scraper.MaxPages)
	}
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("Provider = %q, want gemini", cfg.LLM.Provider)
	}

	d, err := cfg.NavigationTimeout()
	if err != nil {
		t.Fatalf("NavigationTimeout: %v", err)
	}
	if d != 45*time.Second {
		t.Errorf("NavigationTimeout = %v, want 45s", d)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("database: [not a map"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load with invalid YAML should fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NEWSWATCH_DB", "/tmp/override.db")
	t.Setenv("NEWSWATCH_LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "test-key-123")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("Database path = %q, want env override", cfg.Database.Path)
	}
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("Provider = %q, want gemini", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "test-key-123" {
		t.Errorf("APIKey = %q, want value from GEMINI_API_KEY", cfg.LLM.APIKey)
	}
}

func TestFileAPIKeyWinsOverEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "newswatch.yaml")
	content := "llm:\n  api_key: from-file\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("OPENAI_API_KEY", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "from-file" {
		t.Errorf("APIKey = %q, file value should win", cfg.LLM.APIKey)
	}
}

func TestValidateRejectsBadTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newswatch.yaml")
	content := "llm:\n  timeout: soon\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load should reject unparseable llm.timeout")
	}
}

func TestWorkersFloor(t *testing.T) {
	cfg := Default()
	cfg.LLM.Workers = 0
	if got := cfg.Workers(); got != 1 {
		t.Errorf("Workers() = %d, want 1", got)
	}
	cfg.LLM.Workers = -3
	if got := cfg.Workers(); got != 1 {
		t.Errorf("Workers() = %d, want 1", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "newswatch.yaml")

	cfg := Default()
	cfg.Database.Path = "round.db"
	cfg.Scraper.MaxPages = 7
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Database.Path != "round.db" {
		t.Errorf("Database path = %q, want round.db", loaded.Database.Path)
	}
	if loaded.Scraper.MaxPages != 7 {
		t.Errorf("MaxPages = %d, want 7", loaded.Scraper.MaxPages)
	}
}
