package fetcher

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"

	"github.com/IshaanNene/newsgoat/internal/types"
)

// RobotsChecker answers robots.txt questions, caching one file per host.
// Any failure to obtain or parse robots.txt allows the URL.
type RobotsChecker struct {
	fetcher Fetcher
	agent   string
	logger  *slog.Logger
	mu      sync.Mutex
	cache   map[string]*robotstxt.RobotsData
}

// NewRobotsChecker creates a checker that fetches robots.txt through f
// and evaluates rules for the given agent token.
func NewRobotsChecker(f Fetcher, agent string, logger *slog.Logger) *RobotsChecker {
	return &RobotsChecker{
		fetcher: f,
		agent:   agent,
		logger:  logger.With("component", "robots"),
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether rawURL may be fetched.
func (r *RobotsChecker) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	data := r.lookup(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return true
	}
	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, r.agent)
}

func (r *RobotsChecker) lookup(ctx context.Context, origin string) *robotstxt.RobotsData {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data, ok := r.cache[origin]; ok {
		return data
	}

	req, err := types.NewRequest(origin + "/robots.txt")
	if err != nil {
		r.cache[origin] = nil
		return nil
	}
	req.Tag = types.TagRobots

	resp, err := r.fetcher.Fetch(ctx, req)
	if err != nil {
		r.logger.Debug("robots.txt fetch failed, allowing", "origin", origin, "error", err)
		r.cache[origin] = nil
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if err != nil {
		r.logger.Debug("robots.txt parse failed, allowing", "origin", origin, "error", err)
		r.cache[origin] = nil
		return nil
	}
	r.cache[origin] = data
	return data
}
