package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for NewsGoat.
type Config struct {
	Fetcher    FetcherConfig         `mapstructure:"fetcher"    yaml:"fetcher"`
	Browser    BrowserConfig         `mapstructure:"browser"    yaml:"browser"`
	Pagination PaginationConfig      `mapstructure:"pagination" yaml:"pagination"`
	Pacing     PacingConfig          `mapstructure:"pacing"     yaml:"pacing"`
	Pipeline   PipelineConfig        `mapstructure:"pipeline"   yaml:"pipeline"`
	Proxy      ProxyConfig           `mapstructure:"proxy"      yaml:"proxy"`
	Storage    StorageConfig         `mapstructure:"storage"    yaml:"storage"`
	NLP        NLPConfig             `mapstructure:"nlp"        yaml:"nlp"`
	Dashboard  DashboardConfig       `mapstructure:"dashboard"  yaml:"dashboard"`
	Logging    LoggingConfig         `mapstructure:"logging"    yaml:"logging"`
	Metrics    MetricsConfig         `mapstructure:"metrics"    yaml:"metrics"`
	Sites      map[string]SiteConfig `mapstructure:"sites"      yaml:"sites"`
}

// FetcherConfig controls the stateless HTTP fetcher.
type FetcherConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	TLSFingerprint  string        `mapstructure:"tls_fingerprint"   yaml:"tls_fingerprint"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
	RespectRobots   bool          `mapstructure:"respect_robots"    yaml:"respect_robots"`
}

// BrowserConfig controls the headless browser used for search pages.
type BrowserConfig struct {
	Headless        bool          `mapstructure:"headless"         yaml:"headless"`
	Bin             string        `mapstructure:"bin"              yaml:"bin"`
	Stealth         bool          `mapstructure:"stealth"          yaml:"stealth"`
	NavigateTimeout time.Duration `mapstructure:"navigate_timeout" yaml:"navigate_timeout"`
	StableWait      time.Duration `mapstructure:"stable_wait"      yaml:"stable_wait"`
	WindowSize      string        `mapstructure:"window_size"      yaml:"window_size"`
}

// PaginationConfig controls the "load more" loop on search pages.
type PaginationConfig struct {
	// MaxClicks bounds the loop. Zero means unlimited.
	MaxClicks     int           `mapstructure:"max_clicks"     yaml:"max_clicks"`
	LookupTimeout time.Duration `mapstructure:"lookup_timeout" yaml:"lookup_timeout"`
	LookupRetries int           `mapstructure:"lookup_retries" yaml:"lookup_retries"`
}

// PacingConfig controls the pause between article fetches.
type PacingConfig struct {
	MinDelay time.Duration `mapstructure:"min_delay" yaml:"min_delay"`
	MaxDelay time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
}

// PipelineConfig controls candidate filtering before articles are fetched.
type PipelineConfig struct {
	Dedupe       bool `mapstructure:"dedupe"        yaml:"dedupe"`
	SkipExisting bool `mapstructure:"skip_existing" yaml:"skip_existing"`
}

// ProxyConfig controls proxy rotation.
type ProxyConfig struct {
	Enabled  bool     `mapstructure:"enabled"  yaml:"enabled"`
	Rotation string   `mapstructure:"rotation" yaml:"rotation"`
	URLs     []string `mapstructure:"urls"     yaml:"urls"`
}

// StorageConfig controls where article rows go.
type StorageConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	// Path is the output file for csv, jsonl and sqlite. When empty the
	// file is named after the site, e.g. aljazeera_articles.csv.
	Path       string   `mapstructure:"path"       yaml:"path"`
	DSN        string   `mapstructure:"dsn"        yaml:"dsn"`
	Database   string   `mapstructure:"database"   yaml:"database"`
	Collection string   `mapstructure:"collection" yaml:"collection"`
	Mirrors    []string `mapstructure:"mirrors"    yaml:"mirrors"`
}

// NLPConfig controls the external sentiment and summarization service.
type NLPConfig struct {
	Provider          string        `mapstructure:"provider"            yaml:"provider"`
	Endpoint          string        `mapstructure:"endpoint"            yaml:"endpoint"`
	SentimentModel    string        `mapstructure:"sentiment_model"     yaml:"sentiment_model"`
	SummaryModel      string        `mapstructure:"summary_model"       yaml:"summary_model"`
	APIKey            string        `mapstructure:"api_key"             yaml:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"             yaml:"timeout"`
	SentimentMaxChars int           `mapstructure:"sentiment_max_chars" yaml:"sentiment_max_chars"`
	SummaryMaxChars   int           `mapstructure:"summary_max_chars"   yaml:"summary_max_chars"`
	SummaryMaxLength  int           `mapstructure:"summary_max_length"  yaml:"summary_max_length"`
	SummaryMinLength  int           `mapstructure:"summary_min_length"  yaml:"summary_min_length"`
}

// DashboardConfig controls the analysis dashboard.
type DashboardConfig struct {
	Port          int           `mapstructure:"port"           yaml:"port"`
	DataDir       string        `mapstructure:"data_dir"       yaml:"data_dir"`
	DatasetPrefix string        `mapstructure:"dataset_prefix" yaml:"dataset_prefix"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"    yaml:"session_ttl"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Fetcher: FetcherConfig{
			RequestTimeout:  30 * time.Second,
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			TLSFingerprint:  "go",
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    10,
		},
		Browser: BrowserConfig{
			Headless:        true,
			NavigateTimeout: 60 * time.Second,
			StableWait:      300 * time.Millisecond,
			WindowSize:      "1920,1080",
		},
		Pagination: PaginationConfig{
			MaxClicks:     0,
			LookupTimeout: 5 * time.Second,
			LookupRetries: 1,
		},
		Pacing: PacingConfig{
			MinDelay: 3 * time.Second,
			MaxDelay: 5 * time.Second,
		},
		Pipeline: PipelineConfig{
			Dedupe:       true,
			SkipExisting: false,
		},
		Proxy: ProxyConfig{
			Enabled:  false,
			Rotation: "round_robin",
		},
		Storage: StorageConfig{
			Type:       "csv",
			Database:   "newsgoat",
			Collection: "articles",
		},
		NLP: NLPConfig{
			Provider:          "huggingface",
			Endpoint:          "https://api-inference.huggingface.co",
			SentimentModel:    "distilbert-base-uncased-finetuned-sst-2-english",
			SummaryModel:      "sshleifer/distilbart-cnn-12-6",
			Timeout:           60 * time.Second,
			SentimentMaxChars: 512,
			SummaryMaxChars:   1000,
			SummaryMaxLength:  130,
			SummaryMinLength:  30,
		},
		Dashboard: DashboardConfig{
			Port:          8050,
			DataDir:       ".",
			DatasetPrefix: "aljazeera_articles_with_sentiment_",
			SessionTTL:    2 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
		Sites: BuiltinSites(),
	}
}
