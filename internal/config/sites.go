package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Discovery modes.
const (
	DiscoveryBrowser = "browser"
	DiscoveryStatic  = "static"
	DiscoveryFeed    = "feed"
)

// Keyword encodings for the search URL template.
const (
	EncodingPath  = "path"
	EncodingQuery = "query"
)

// Article extractors.
const (
	ExtractorSelectors   = "selectors"
	ExtractorReadability = "readability"
)

// SiteConfig describes how to search one news site and read its articles.
type SiteConfig struct {
	Name string `mapstructure:"name" yaml:"name"`

	// SearchURL contains a {keyword} placeholder.
	SearchURL       string `mapstructure:"search_url"       yaml:"search_url"`
	KeywordEncoding string `mapstructure:"keyword_encoding" yaml:"keyword_encoding"`
	Discovery       string `mapstructure:"discovery"        yaml:"discovery"`
	FeedURL         string `mapstructure:"feed_url"         yaml:"feed_url"`

	LinkSelector string   `mapstructure:"link_selector" yaml:"link_selector"`
	LinkPrefix   string   `mapstructure:"link_prefix"   yaml:"link_prefix"`
	ExcludePaths []string `mapstructure:"exclude_paths" yaml:"exclude_paths"`

	// ShowMoreSelector locates the "load more" control. Empty disables pagination.
	ShowMoreSelector string        `mapstructure:"show_more_selector" yaml:"show_more_selector"`
	InitialWait      time.Duration `mapstructure:"initial_wait"       yaml:"initial_wait"`
	SettleDelay      time.Duration `mapstructure:"settle_delay"       yaml:"settle_delay"`

	// ArticleWait pauses browser article fetches after the page loads.
	ArticleWait time.Duration `mapstructure:"article_wait" yaml:"article_wait"`

	ArticleFetch      string `mapstructure:"article_fetch"      yaml:"article_fetch"`
	Extractor         string `mapstructure:"extractor"          yaml:"extractor"`
	SelectorType      string `mapstructure:"selector_type"      yaml:"selector_type"`
	TitleSelector     string `mapstructure:"title_selector"     yaml:"title_selector"`
	BodySelector      string `mapstructure:"body_selector"      yaml:"body_selector"`
	ParagraphSelector string `mapstructure:"paragraph_selector" yaml:"paragraph_selector"`

	// Output overrides storage.path for this site.
	Output string `mapstructure:"output" yaml:"output"`
}

// BuiltinSites returns the site profiles shipped with NewsGoat.
func BuiltinSites() map[string]SiteConfig {
	return map[string]SiteConfig{
		"aljazeera": {
			Name:              "aljazeera",
			SearchURL:         "https://www.aljazeera.com/search/{keyword}",
			KeywordEncoding:   EncodingPath,
			Discovery:         DiscoveryBrowser,
			LinkSelector:      "a[href]",
			LinkPrefix:        "https://www.aljazeera.com",
			ShowMoreSelector:  "button.show-more-button",
			InitialWait:       3 * time.Second,
			SettleDelay:       3 * time.Second,
			ArticleFetch:      "http",
			Extractor:         ExtractorSelectors,
			SelectorType:      "css",
			TitleSelector:     "h1",
			BodySelector:      "div.wysiwyg.wysiwyg--all-content",
			ParagraphSelector: "p",
		},
		"gulfnews": {
			Name:              "gulfnews",
			SearchURL:         "https://gulfnews.com/search?q={keyword}&sort=score",
			KeywordEncoding:   EncodingQuery,
			Discovery:         DiscoveryBrowser,
			LinkSelector:      "a.card",
			LinkPrefix:        "https://gulfnews.com/",
			ExcludePaths:      []string{"/photos/", "/videos/"},
			InitialWait:       12 * time.Second,
			ArticleWait:       12 * time.Second,
			ArticleFetch:      "browser",
			Extractor:         ExtractorSelectors,
			SelectorType:      "css",
			TitleSelector:     "h1",
			BodySelector:      "div.article-body",
			ParagraphSelector: "p",
		},
	}
}

// WithDefaults fills unset fields with generic defaults.
func (s SiteConfig) WithDefaults() SiteConfig {
	if s.KeywordEncoding == "" {
		s.KeywordEncoding = EncodingPath
	}
	if s.Discovery == "" {
		s.Discovery = DiscoveryBrowser
	}
	if s.LinkSelector == "" {
		s.LinkSelector = "a[href]"
	}
	if s.ArticleFetch == "" {
		s.ArticleFetch = "http"
	}
	if s.Extractor == "" {
		s.Extractor = ExtractorSelectors
	}
	if s.SelectorType == "" {
		s.SelectorType = "css"
	}
	if s.TitleSelector == "" {
		if s.SelectorType == "xpath" {
			s.TitleSelector = "//h1"
		} else {
			s.TitleSelector = "h1"
		}
	}
	if s.ParagraphSelector == "" {
		if s.SelectorType == "xpath" {
			s.ParagraphSelector = ".//p"
		} else {
			s.ParagraphSelector = "p"
		}
	}
	return s
}

// Site returns the named site profile with defaults applied.
func (c *Config) Site(name string) (SiteConfig, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	site, ok := c.Sites[key]
	if !ok {
		return SiteConfig{}, fmt.Errorf("unknown site %q (available: %s)", name, strings.Join(c.SiteNames(), ", "))
	}
	if site.Name == "" {
		site.Name = key
	}
	return site.WithDefaults(), nil
}

// SiteNames returns the configured site names, sorted.
func (c *Config) SiteNames() []string {
	names := make([]string, 0, len(c.Sites))
	for name := range c.Sites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OutputPath returns the file the site's rows go to for file-based storage.
func (c *Config) OutputPath(site SiteConfig) string {
	if site.Output != "" {
		return site.Output
	}
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	ext := c.Storage.Type
	if ext == "sqlite" {
		ext = "db"
	}
	return site.Name + "_articles." + ext
}
