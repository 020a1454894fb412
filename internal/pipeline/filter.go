package pipeline

import (
	"context"
	"log/slog"

	"github.com/IshaanNene/newsgoat/internal/observability"
)

// Filter decides whether a candidate article URL is fetched.
type Filter interface {
	// Name returns the skip reason recorded when the filter rejects.
	Name() string

	// Allow reports whether url should be fetched.
	Allow(ctx context.Context, url string) bool
}

// FilterChain applies filters in order to the candidate list.
type FilterChain struct {
	filters []Filter
	logger  *slog.Logger
}

// NewFilterChain creates an empty chain.
func NewFilterChain(logger *slog.Logger) *FilterChain {
	return &FilterChain{logger: logger.With("component", "filter_chain")}
}

// Use appends a filter to the chain.
func (c *FilterChain) Use(f Filter) {
	c.filters = append(c.filters, f)
	c.logger.Debug("filter added", "name", f.Name(), "position", len(c.filters))
}

// Apply returns the URLs every filter allows, keeping order, and the
// number rejected per filter.
func (c *FilterChain) Apply(ctx context.Context, urls []string) ([]string, map[string]int) {
	rejected := make(map[string]int)
	kept := make([]string, 0, len(urls))

outer:
	for _, u := range urls {
		for _, f := range c.filters {
			if !f.Allow(ctx, u) {
				rejected[f.Name()]++
				c.logger.Debug("candidate dropped", "filter", f.Name(), "url", u)
				continue outer
			}
		}
		kept = append(kept, u)
	}
	return kept, rejected
}

// --- Built-in Filters ---

// DedupFilter drops URLs whose canonical form was already seen this run.
type DedupFilter struct {
	seen *Deduplicator
}

func NewDedupFilter(capacity int) *DedupFilter {
	return &DedupFilter{seen: NewDeduplicator(capacity)}
}

func (f *DedupFilter) Name() string { return observability.SkipDuplicate }

func (f *DedupFilter) Allow(_ context.Context, url string) bool {
	return f.seen.Add(url)
}

// ExistingFilter drops URLs already present in the store.
type ExistingFilter struct {
	known *Deduplicator
}

// NewExistingFilter builds a filter from the stored URL set.
func NewExistingFilter(stored map[string]struct{}) *ExistingFilter {
	known := NewDeduplicator(len(stored))
	for u := range stored {
		known.Add(u)
	}
	return &ExistingFilter{known: known}
}

func (f *ExistingFilter) Name() string { return observability.SkipExisting }

func (f *ExistingFilter) Allow(_ context.Context, url string) bool {
	return !f.known.Seen(url)
}

// RobotsPolicy answers robots.txt queries.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// RobotsFilter drops URLs disallowed by the site's robots.txt.
type RobotsFilter struct {
	policy RobotsPolicy
}

func NewRobotsFilter(policy RobotsPolicy) *RobotsFilter {
	return &RobotsFilter{policy: policy}
}

func (f *RobotsFilter) Name() string { return observability.SkipRobots }

func (f *RobotsFilter) Allow(ctx context.Context, url string) bool {
	return f.policy.Allowed(ctx, url)
}
