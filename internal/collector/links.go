// Package collector turns a keyword into candidate article URLs: it builds
// the search URL, drives the "load more" loop and filters anchors.
package collector

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/newsgoat/internal/config"
)

// SearchURL substitutes the escaped keyword into the site's template.
// Decoding the substituted part yields keyword exactly.
func SearchURL(site config.SiteConfig, keyword string) (string, error) {
	if !strings.Contains(site.SearchURL, "{keyword}") {
		return "", fmt.Errorf("site %s: search_url has no {keyword} placeholder", site.Name)
	}

	var escaped string
	switch site.KeywordEncoding {
	case config.EncodingQuery:
		escaped = url.QueryEscape(keyword)
	case config.EncodingPath, "":
		escaped = url.PathEscape(keyword)
	default:
		return "", fmt.Errorf("site %s: unknown keyword_encoding %q", site.Name, site.KeywordEncoding)
	}

	return strings.ReplaceAll(site.SearchURL, "{keyword}", escaped), nil
}

// LinkFilter decides whether an href points at an article of the site.
type LinkFilter struct {
	prefix  *url.URL
	exclude []string
}

// NewLinkFilter builds a filter from the site's prefix and exclusions.
func NewLinkFilter(site config.SiteConfig) (*LinkFilter, error) {
	prefix, err := url.Parse(site.LinkPrefix)
	if err != nil || prefix.Host == "" {
		return nil, fmt.Errorf("site %s: invalid link_prefix %q", site.Name, site.LinkPrefix)
	}
	return &LinkFilter{prefix: prefix, exclude: site.ExcludePaths}, nil
}

// Match reports whether href is an absolute URL on the prefix's scheme
// and host, under the prefix's path, and free of excluded segments.
// Relative hrefs never match.
func (f *LinkFilter) Match(href string) bool {
	u, err := url.Parse(href)
	if err != nil || !u.IsAbs() {
		return false
	}
	if !strings.EqualFold(u.Scheme, f.prefix.Scheme) || !strings.EqualFold(u.Host, f.prefix.Host) {
		return false
	}
	if !strings.HasPrefix(u.Path, f.prefix.Path) {
		return false
	}
	for _, seg := range f.exclude {
		if seg != "" && strings.Contains(href, seg) {
			return false
		}
	}
	return true
}

// CollectLinks returns the hrefs of anchors matched by the site's link
// selector that pass the site's filter, in document order. Duplicates
// are kept.
func CollectLinks(html []byte, site config.SiteConfig) ([]string, error) {
	filter, err := NewLinkFilter(site)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	selector := site.LinkSelector
	if selector == "" {
		selector = "a[href]"
	}

	var links []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if filter.Match(href) {
			links = append(links, href)
		}
	})
	return links, nil
}
