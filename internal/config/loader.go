package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flag overrides are applied by the caller afterwards.
//
// Sites declared in the file replace a built-in profile of the same name
// wholesale; unset fields are filled by SiteConfig.WithDefaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("NEWSGOAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("newsgoat")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".newsgoat"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for name, site := range cfg.Sites {
		if site.Name == "" {
			site.Name = name
			cfg.Sites[name] = site
		}
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides resolve.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.tls_insecure", cfg.Fetcher.TLSInsecure)
	v.SetDefault("fetcher.tls_fingerprint", cfg.Fetcher.TLSFingerprint)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.respect_robots", cfg.Fetcher.RespectRobots)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.bin", cfg.Browser.Bin)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.navigate_timeout", cfg.Browser.NavigateTimeout)
	v.SetDefault("browser.stable_wait", cfg.Browser.StableWait)
	v.SetDefault("browser.window_size", cfg.Browser.WindowSize)

	v.SetDefault("pagination.max_clicks", cfg.Pagination.MaxClicks)
	v.SetDefault("pagination.lookup_timeout", cfg.Pagination.LookupTimeout)
	v.SetDefault("pagination.lookup_retries", cfg.Pagination.LookupRetries)

	v.SetDefault("pacing.min_delay", cfg.Pacing.MinDelay)
	v.SetDefault("pacing.max_delay", cfg.Pacing.MaxDelay)

	v.SetDefault("pipeline.dedupe", cfg.Pipeline.Dedupe)
	v.SetDefault("pipeline.skip_existing", cfg.Pipeline.SkipExisting)

	v.SetDefault("proxy.enabled", cfg.Proxy.Enabled)
	v.SetDefault("proxy.rotation", cfg.Proxy.Rotation)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.dsn", cfg.Storage.DSN)
	v.SetDefault("storage.database", cfg.Storage.Database)
	v.SetDefault("storage.collection", cfg.Storage.Collection)

	v.SetDefault("nlp.provider", cfg.NLP.Provider)
	v.SetDefault("nlp.endpoint", cfg.NLP.Endpoint)
	v.SetDefault("nlp.sentiment_model", cfg.NLP.SentimentModel)
	v.SetDefault("nlp.summary_model", cfg.NLP.SummaryModel)
	v.SetDefault("nlp.api_key", cfg.NLP.APIKey)
	v.SetDefault("nlp.timeout", cfg.NLP.Timeout)
	v.SetDefault("nlp.sentiment_max_chars", cfg.NLP.SentimentMaxChars)
	v.SetDefault("nlp.summary_max_chars", cfg.NLP.SummaryMaxChars)
	v.SetDefault("nlp.summary_max_length", cfg.NLP.SummaryMaxLength)
	v.SetDefault("nlp.summary_min_length", cfg.NLP.SummaryMinLength)

	v.SetDefault("dashboard.port", cfg.Dashboard.Port)
	v.SetDefault("dashboard.data_dir", cfg.Dashboard.DataDir)
	v.SetDefault("dashboard.dataset_prefix", cfg.Dashboard.DatasetPrefix)
	v.SetDefault("dashboard.session_ttl", cfg.Dashboard.SessionTTL)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
