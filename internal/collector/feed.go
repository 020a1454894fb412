package collector

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/fetcher"
	"github.com/IshaanNene/newsgoat/internal/types"
)

// FeedLinks reads the site's RSS/Atom feed and returns item links whose
// title or description mentions keyword (case-insensitive) and that pass
// the site's link filter. Feed order is kept.
func FeedLinks(ctx context.Context, f fetcher.Fetcher, site config.SiteConfig, keyword string) ([]string, error) {
	filter, err := NewLinkFilter(site)
	if err != nil {
		return nil, err
	}

	req, err := types.NewRequest(site.FeedURL)
	if err != nil {
		return nil, err
	}
	req.Tag = types.TagFeed

	resp, err := f.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &types.FetchError{URL: site.FeedURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", site.FeedURL, err)
	}

	needle := strings.ToLower(strings.TrimSpace(keyword))
	var links []string
	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}
		if needle != "" {
			hay := strings.ToLower(item.Title + " " + item.Description)
			if !strings.Contains(hay, needle) {
				continue
			}
		}
		link := strings.TrimSpace(item.Link)
		if filter.Match(link) {
			links = append(links, link)
		}
	}
	return links, nil
}
