package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Pacing.MinDelay != 3*time.Second || cfg.Pacing.MaxDelay != 5*time.Second {
		t.Errorf("unexpected pacing defaults: %+v", cfg.Pacing)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted pacing", func(c *Config) { c.Pacing.MaxDelay = time.Second }},
		{"bad storage", func(c *Config) { c.Storage.Type = "parquet" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Type = "postgres" }},
		{"bad fingerprint", func(c *Config) { c.Fetcher.TLSFingerprint = "netscape" }},
		{"negative retries", func(c *Config) { c.Pagination.LookupRetries = -1 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"site without placeholder", func(c *Config) {
			s := c.Sites["aljazeera"]
			s.SearchURL = "https://www.aljazeera.com/search/"
			c.Sites["aljazeera"] = s
		}},
		{"site with bad extractor", func(c *Config) {
			s := c.Sites["gulfnews"]
			s.Extractor = "magic"
			c.Sites["gulfnews"] = s
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "newsgoat.yaml")
	content := `
pacing:
  min_delay: 1s
  max_delay: 2s
storage:
  type: jsonl
sites:
  example:
    search_url: "https://news.example.com/find?q={keyword}"
    keyword_encoding: query
    discovery: static
    link_prefix: "https://news.example.com/story/"
    body_selector: "article"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Pacing.MinDelay != time.Second {
		t.Errorf("expected min_delay 1s, got %s", cfg.Pacing.MinDelay)
	}
	if cfg.Storage.Type != "jsonl" {
		t.Errorf("expected jsonl storage, got %q", cfg.Storage.Type)
	}

	site, err := cfg.Site("example")
	if err != nil {
		t.Fatalf("site: %v", err)
	}
	if site.Name != "example" || site.TitleSelector != "h1" || site.ParagraphSelector != "p" {
		t.Errorf("defaults not applied: %+v", site)
	}
	if got := cfg.OutputPath(site); got != "example_articles.jsonl" {
		t.Errorf("unexpected output path %q", got)
	}

	// built-in profiles survive a file that declares other sites
	if _, err := cfg.Site("aljazeera"); err != nil {
		t.Errorf("built-in site lost: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NEWSGOAT_PAGINATION_MAX_CLICKS", "7")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Pagination.MaxClicks != 7 {
		t.Errorf("expected env override to 7, got %d", cfg.Pagination.MaxClicks)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for explicitly named file that does not exist")
	}
}

func TestLoadMalformedDiscoveredFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	bad := "storage:\n  type: postgres\n   dsn: [unclosed\n"
	if err := os.WriteFile(filepath.Join(dir, "newsgoat.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if cfg, err := Load(""); err == nil {
		t.Errorf("expected parse error for malformed newsgoat.yaml, got storage.type=%q", cfg.Storage.Type)
	}
}

func TestSiteUnknown(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := cfg.Site("bbc"); err == nil {
		t.Error("expected error for unknown site")
	}
	site, err := cfg.Site(" AlJazeera ")
	if err != nil {
		t.Fatalf("lookup should be case-insensitive: %v", err)
	}
	if got := cfg.OutputPath(site); got != "aljazeera_articles.csv" {
		t.Errorf("unexpected default output %q", got)
	}
}
