// Package pipeline runs one scrape: discover candidate article links for
// a keyword, fetch and extract each article, and append the records to a
// sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/newsgoat/internal/collector"
	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/extractor"
	"github.com/IshaanNene/newsgoat/internal/fetcher"
	"github.com/IshaanNene/newsgoat/internal/observability"
	"github.com/IshaanNene/newsgoat/internal/storage"
	"github.com/IshaanNene/newsgoat/internal/types"
)

// DelayFunc returns the pause before the next article fetch.
type DelayFunc func() time.Duration

// UniformDelay returns a DelayFunc drawing uniformly from [min, max].
func UniformDelay(min, max time.Duration) DelayFunc {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func() time.Duration {
		if max <= min {
			return min
		}
		return min + time.Duration(rng.Int63n(int64(max-min)+1))
	}
}

// BrowserFetcher fetches rendered pages and opens interactive sessions.
type BrowserFetcher interface {
	fetcher.Fetcher
	fetcher.SessionOpener
}

// Deps are the collaborators of one orchestrator. Browser may be nil
// when the site neither discovers nor fetches articles with a browser.
type Deps struct {
	HTTP    fetcher.Fetcher
	Browser BrowserFetcher
	Sink    storage.Sink
}

// RunResult summarises one run.
type RunResult struct {
	RunID      string
	Site       string
	Keyword    string
	SearchURL  string
	Candidates int
	Duplicates int
	Fetched    int
	Saved      int
	Skipped    map[string]int
	Clicks     int
	Stop       collector.StopReason
	Duration   time.Duration
}

// NoArticles reports whether discovery found nothing.
func (r *RunResult) NoArticles() bool { return r.Candidates == 0 }

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDelay replaces the pacing between article fetches.
func WithDelay(d DelayFunc) Option {
	return func(o *Orchestrator) { o.delay = d }
}

// WithSleep replaces the sleeper used for pacing and pagination waits.
func WithSleep(s collector.SleepFunc) Option {
	return func(o *Orchestrator) { o.sleep = s }
}

// WithMetrics records run counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithRobots drops candidates disallowed by robots.txt.
func WithRobots(p RobotsPolicy) Option {
	return func(o *Orchestrator) { o.robots = p }
}

// WithExtractor overrides the extractor built from the site profile.
func WithExtractor(e extractor.Extractor) Option {
	return func(o *Orchestrator) { o.extractor = e }
}

// Orchestrator runs the scrape for one site.
type Orchestrator struct {
	cfg       *config.Config
	site      config.SiteConfig
	deps      Deps
	extractor extractor.Extractor
	delay     DelayFunc
	sleep     collector.SleepFunc
	metrics   *observability.Metrics
	robots    RobotsPolicy
	logger    *slog.Logger
}

// New validates the site against the supplied collaborators.
func New(cfg *config.Config, site config.SiteConfig, deps Deps, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	if deps.Sink == nil {
		return nil, errors.New("pipeline: sink is required")
	}
	browserDiscovery := site.Discovery == config.DiscoveryBrowser
	browserArticles := site.ArticleFetch == "browser"
	if (browserDiscovery || browserArticles) && deps.Browser == nil {
		return nil, fmt.Errorf("pipeline: site %s needs a browser fetcher", site.Name)
	}
	if (!browserDiscovery || !browserArticles) && deps.HTTP == nil {
		return nil, fmt.Errorf("pipeline: site %s needs an HTTP fetcher", site.Name)
	}

	o := &Orchestrator{
		cfg:    cfg,
		site:   site,
		deps:   deps,
		delay:  UniformDelay(cfg.Pacing.MinDelay, cfg.Pacing.MaxDelay),
		sleep:  collector.SleepContext,
		logger: logger.With("component", "pipeline", "site", site.Name),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.extractor == nil {
		ext, err := extractor.New(site, logger)
		if err != nil {
			return nil, err
		}
		o.extractor = ext
	}
	return o, nil
}

// Run scrapes one keyword. A zero-candidate run returns without touching
// the sink. Only storage failures and cancellation abort a run; fetch and
// extraction problems skip the article.
func (o *Orchestrator) Run(ctx context.Context, keyword string) (res *RunResult, err error) {
	start := time.Now()
	res = &RunResult{
		RunID:   uuid.NewString(),
		Site:    o.site.Name,
		Keyword: keyword,
		Skipped: make(map[string]int),
	}
	logger := o.logger.With("run_id", res.RunID)
	defer func() {
		res.Duration = time.Since(start)
		o.metrics.RunFinished(o.site.Name, err)
	}()

	searchURL, err := collector.SearchURL(o.site, keyword)
	if err != nil {
		return res, err
	}
	res.SearchURL = searchURL
	logger.Info("searching", "keyword", keyword, "url", searchURL)

	links, err := o.discover(ctx, logger, searchURL, keyword, res)
	if err != nil {
		return res, err
	}
	res.Candidates = len(links)
	o.metrics.CandidatesFound(o.site.Name, len(links))
	o.metrics.Clicked(o.site.Name, res.Clicks)

	if len(links) == 0 {
		logger.Info("no articles found", "keyword", keyword)
		return res, nil
	}
	logger.Info("candidate articles collected", "count", len(links), "clicks", res.Clicks)

	chain, err := o.filters(ctx, len(links))
	if err != nil {
		return res, err
	}
	links, rejected := chain.Apply(ctx, links)
	for reason, n := range rejected {
		res.Skipped[reason] += n
		for i := 0; i < n; i++ {
			o.metrics.Skipped(o.site.Name, reason)
		}
	}
	res.Duplicates = rejected[observability.SkipDuplicate]

	articleFetcher := o.deps.HTTP
	if o.site.ArticleFetch == "browser" {
		articleFetcher = o.deps.Browser
	}

	for i, link := range links {
		if i > 0 {
			if err := o.sleep(ctx, o.delay()); err != nil {
				return res, err
			}
		} else if err := ctx.Err(); err != nil {
			return res, err
		}

		rec, reason, err := o.scrapeArticle(ctx, logger, articleFetcher, link, keyword, res)
		if err != nil {
			return res, err
		}
		if reason != "" {
			res.Skipped[reason]++
			o.metrics.Skipped(o.site.Name, reason)
			continue
		}

		if err := o.deps.Sink.Append(ctx, rec); err != nil {
			return res, &types.StorageError{Backend: o.deps.Sink.Name(), Err: err}
		}
		res.Saved++
		o.metrics.Saved(o.site.Name)
		logger.Info("article saved", "title", rec.Title(), "url", link)
	}

	logger.Info("scrape complete",
		"candidates", res.Candidates,
		"saved", res.Saved,
		"skipped", res.Skipped,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return res, nil
}

// discover returns candidate links in document order.
func (o *Orchestrator) discover(ctx context.Context, logger *slog.Logger, searchURL, keyword string, res *RunResult) ([]string, error) {
	switch o.site.Discovery {
	case config.DiscoveryFeed:
		return collector.FeedLinks(ctx, o.deps.HTTP, o.site, keyword)

	case config.DiscoveryStatic:
		req, err := types.NewRequest(searchURL)
		if err != nil {
			return nil, err
		}
		req.Tag = types.TagSearch
		resp, err := o.deps.HTTP.Fetch(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("fetch search page: %w", err)
		}
		if !resp.IsSuccess() {
			return nil, &types.FetchError{URL: searchURL, StatusCode: resp.StatusCode, Err: errors.New("search page returned non-success status")}
		}
		return collector.CollectLinks(resp.Body, o.site)

	default:
		return o.discoverBrowser(ctx, logger, searchURL, res)
	}
}

// discoverBrowser expands the results with the pagination control and
// closes the session before returning.
func (o *Orchestrator) discoverBrowser(ctx context.Context, logger *slog.Logger, searchURL string, res *RunResult) ([]string, error) {
	session, err := o.deps.Browser.OpenSession(ctx, fetcher.SessionOptions{
		URL:              searchURL,
		ShowMoreSelector: o.site.ShowMoreSelector,
		InitialWait:      o.site.InitialWait,
	})
	if err != nil {
		return nil, fmt.Errorf("open search page: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("close search session", "error", cerr)
		}
	}()

	if o.site.ShowMoreSelector != "" {
		pager := collector.NewPaginator(o.cfg.Pagination.MaxClicks, o.site.SettleDelay, o.cfg.Pagination.LookupRetries, logger)
		pager.Sleep = o.sleep
		expanded, err := pager.Expand(ctx, session)
		res.Clicks = expanded.Clicks
		res.Stop = expanded.Stop
		if err != nil {
			return nil, err
		}
	}

	html, err := session.HTML()
	if err != nil {
		return nil, fmt.Errorf("read search page: %w", err)
	}
	return collector.CollectLinks([]byte(html), o.site)
}

func (o *Orchestrator) filters(ctx context.Context, capacity int) (*FilterChain, error) {
	chain := NewFilterChain(o.logger)
	if o.cfg.Pipeline.Dedupe {
		chain.Use(NewDedupFilter(capacity))
	}
	if o.cfg.Pipeline.SkipExisting {
		lister, ok := o.deps.Sink.(storage.URLLister)
		if !ok {
			return nil, fmt.Errorf("pipeline: %s sink cannot list stored URLs", o.deps.Sink.Name())
		}
		stored, err := lister.URLs(ctx)
		if err != nil {
			return nil, &types.StorageError{Backend: o.deps.Sink.Name(), Err: err}
		}
		chain.Use(NewExistingFilter(stored))
	}
	if o.robots != nil {
		chain.Use(NewRobotsFilter(o.robots))
	}
	return chain, nil
}

// scrapeArticle fetches and extracts one article. A non-empty reason
// means the article was skipped; err is only set on cancellation.
func (o *Orchestrator) scrapeArticle(ctx context.Context, logger *slog.Logger, f fetcher.Fetcher, link, keyword string, res *RunResult) (types.ArticleRecord, string, error) {
	req, err := types.NewRequest(link)
	if err != nil {
		logger.Warn("skipping article with invalid URL", "url", link, "error", err)
		return types.ArticleRecord{}, observability.SkipInvalid, nil
	}
	req.Tag = types.TagArticle
	req.RenderWait = o.site.ArticleWait

	fetchStart := time.Now()
	resp, err := f.Fetch(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return types.ArticleRecord{}, "", ctx.Err()
		}
		status := 0
		attrs := []any{"url", link, "error", err}
		var fe *types.FetchError
		if errors.As(err, &fe) {
			status = fe.StatusCode
			if fe.RetryAfter > 0 {
				attrs = append(attrs, "retry_after", fe.RetryAfter)
			}
		}
		o.metrics.Fetched(o.site.Name, status, time.Since(fetchStart))
		logger.Warn("error fetching article", attrs...)
		return types.ArticleRecord{}, observability.SkipFetch, nil
	}
	o.metrics.Fetched(o.site.Name, resp.StatusCode, time.Since(fetchStart))
	res.Fetched++

	if !resp.IsSuccess() {
		logger.Warn("failed to retrieve article", "url", link, "status", resp.StatusCode)
		return types.ArticleRecord{}, observability.SkipStatus, nil
	}

	fields, err := o.extractor.Extract(link, resp.Body)
	if err != nil {
		logger.Warn("skipping page without article content", "url", link, "error", err)
		return types.ArticleRecord{}, observability.SkipNotArticle, nil
	}

	rec, err := types.NewArticleRecord(keyword, fields.Title, fields.Content, link)
	if err != nil {
		logger.Warn("skipping incomplete article", "url", link, "error", err)
		return types.ArticleRecord{}, observability.SkipInvalid, nil
	}
	return rec, "", nil
}
