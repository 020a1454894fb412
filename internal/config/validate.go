package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	validFingerprints := map[string]bool{
		"go": true, "chrome": true, "firefox": true, "safari": true, "edge": true,
	}
	if !validFingerprints[cfg.Fetcher.TLSFingerprint] {
		return fmt.Errorf("fetcher.tls_fingerprint must be go/chrome/firefox/safari/edge, got %q", cfg.Fetcher.TLSFingerprint)
	}

	if cfg.Browser.NavigateTimeout <= 0 {
		return fmt.Errorf("browser.navigate_timeout must be > 0")
	}

	if cfg.Pagination.MaxClicks < 0 {
		return fmt.Errorf("pagination.max_clicks must be >= 0, got %d", cfg.Pagination.MaxClicks)
	}
	if cfg.Pagination.LookupRetries < 0 {
		return fmt.Errorf("pagination.lookup_retries must be >= 0, got %d", cfg.Pagination.LookupRetries)
	}
	if cfg.Pagination.LookupTimeout <= 0 {
		return fmt.Errorf("pagination.lookup_timeout must be > 0")
	}

	if cfg.Pacing.MinDelay < 0 {
		return fmt.Errorf("pacing.min_delay must be >= 0")
	}
	if cfg.Pacing.MaxDelay < cfg.Pacing.MinDelay {
		return fmt.Errorf("pacing.max_delay (%s) must be >= pacing.min_delay (%s)", cfg.Pacing.MaxDelay, cfg.Pacing.MinDelay)
	}

	if cfg.Proxy.Enabled {
		if cfg.Proxy.Rotation != "round_robin" && cfg.Proxy.Rotation != "random" {
			return fmt.Errorf("proxy.rotation must be 'round_robin' or 'random', got %q", cfg.Proxy.Rotation)
		}
		for _, proxyURL := range cfg.Proxy.URLs {
			if _, err := url.Parse(proxyURL); err != nil {
				return fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
			}
		}
	}

	if err := validateStorageType("storage.type", cfg.Storage.Type); err != nil {
		return err
	}
	for _, m := range cfg.Storage.Mirrors {
		if err := validateStorageType("storage.mirrors", m); err != nil {
			return err
		}
	}
	if (cfg.Storage.Type == "postgres" || cfg.Storage.Type == "mongodb") && cfg.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for storage.type %q", cfg.Storage.Type)
	}

	validProviders := map[string]bool{
		"huggingface": true, "ollama": true, "openai": true, "custom": true,
	}
	if !validProviders[cfg.NLP.Provider] {
		return fmt.Errorf("nlp.provider must be huggingface/ollama/openai/custom, got %q", cfg.NLP.Provider)
	}
	if cfg.NLP.SummaryMinLength > cfg.NLP.SummaryMaxLength {
		return fmt.Errorf("nlp.summary_min_length must be <= nlp.summary_max_length")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}
	if cfg.Dashboard.Port < 1 || cfg.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port must be 1-65535, got %d", cfg.Dashboard.Port)
	}

	for name, site := range cfg.Sites {
		if err := ValidateSite(site.WithDefaults()); err != nil {
			return fmt.Errorf("sites.%s: %w", name, err)
		}
	}

	return nil
}

// ValidateSite checks a single site profile.
func ValidateSite(site SiteConfig) error {
	switch site.Discovery {
	case DiscoveryBrowser, DiscoveryStatic:
		if !strings.Contains(site.SearchURL, "{keyword}") {
			return fmt.Errorf("search_url must contain {keyword}")
		}
		if err := ValidateURL(strings.ReplaceAll(site.SearchURL, "{keyword}", "k")); err != nil {
			return fmt.Errorf("search_url: %w", err)
		}
	case DiscoveryFeed:
		if err := ValidateURL(site.FeedURL); err != nil {
			return fmt.Errorf("feed_url: %w", err)
		}
	default:
		return fmt.Errorf("discovery must be browser/static/feed, got %q", site.Discovery)
	}

	if site.KeywordEncoding != EncodingPath && site.KeywordEncoding != EncodingQuery {
		return fmt.Errorf("keyword_encoding must be 'path' or 'query', got %q", site.KeywordEncoding)
	}
	if err := ValidateURL(site.LinkPrefix); err != nil {
		return fmt.Errorf("link_prefix: %w", err)
	}
	if site.ArticleFetch != "http" && site.ArticleFetch != "browser" {
		return fmt.Errorf("article_fetch must be 'http' or 'browser', got %q", site.ArticleFetch)
	}
	if site.InitialWait < 0 || site.SettleDelay < 0 || site.ArticleWait < 0 {
		return fmt.Errorf("initial_wait, settle_delay and article_wait must be >= 0")
	}
	switch site.Extractor {
	case ExtractorSelectors:
		if site.SelectorType != "css" && site.SelectorType != "xpath" {
			return fmt.Errorf("selector_type must be 'css' or 'xpath', got %q", site.SelectorType)
		}
		if site.BodySelector == "" {
			return fmt.Errorf("body_selector is required")
		}
	case ExtractorReadability:
	default:
		return fmt.Errorf("extractor must be 'selectors' or 'readability', got %q", site.Extractor)
	}
	return nil
}

// ValidateURL checks that a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

func validateStorageType(key, t string) error {
	valid := map[string]bool{
		"csv": true, "jsonl": true, "sqlite": true, "postgres": true, "mongodb": true,
	}
	if !valid[t] {
		return fmt.Errorf("%s %q is not supported (valid: csv, jsonl, sqlite, postgres, mongodb)", key, t)
	}
	return nil
}
