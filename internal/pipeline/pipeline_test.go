package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/fetcher"
	"github.com/IshaanNene/newsgoat/internal/observability"
	"github.com/IshaanNene/newsgoat/internal/storage"
	"github.com/IshaanNene/newsgoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func articleHTML(title string, paragraphs ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><body><h1>%s</h1><div class=\"wysiwyg wysiwyg--all-content\">", title)
	for _, p := range paragraphs {
		fmt.Fprintf(&b, "<p>%s</p>", p)
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

func searchHTML(links ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, l := range links {
		fmt.Fprintf(&b, "<li><a href=\"%s\">story</a></li>", l)
	}
	b.WriteString(`<a href="https://twitter.com/aljazeera">social</a></ul></body></html>`)
	return b.String()
}

// --- fakes ---

type page struct {
	status int
	body   string
	err    error
}

type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]page
	calls  []string
	waits  []time.Duration
	events *[]string
}

func (f *fakeFetcher) Fetch(_ context.Context, req *types.Request) (*types.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := req.URLString()
	f.calls = append(f.calls, u)
	f.waits = append(f.waits, req.RenderWait)
	if f.events != nil {
		*f.events = append(*f.events, "fetch")
	}
	p, ok := f.pages[u]
	if !ok {
		p = page{status: http.StatusNotFound, body: "not found"}
	}
	if p.err != nil {
		return nil, &types.FetchError{URL: u, Err: p.err}
	}
	return &types.Response{StatusCode: p.status, Body: []byte(p.body), Request: req, FinalURL: u}, nil
}

func (f *fakeFetcher) Close() error { return nil }
func (f *fakeFetcher) Type() string { return "fake" }

type fakeSession struct {
	html     string
	advances []error
	closed   bool
	events   *[]string
}

func (s *fakeSession) Advance(context.Context) error {
	if len(s.advances) == 0 {
		return types.ErrEndOfResults
	}
	err := s.advances[0]
	s.advances = s.advances[1:]
	return err
}

func (s *fakeSession) HTML() (string, error) { return s.html, nil }

func (s *fakeSession) Close() error {
	s.closed = true
	if s.events != nil {
		*s.events = append(*s.events, "close_session")
	}
	return nil
}

type fakeBrowser struct {
	fakeFetcher
	session *fakeSession
	opened  []fetcher.SessionOptions
}

func (b *fakeBrowser) OpenSession(_ context.Context, opts fetcher.SessionOptions) (fetcher.Session, error) {
	b.opened = append(b.opened, opts)
	return b.session, nil
}

type brokenSink struct{ appends int }

func (s *brokenSink) Append(context.Context, types.ArticleRecord) error {
	s.appends++
	return errors.New("disk full")
}
func (s *brokenSink) Close() error { return nil }
func (s *brokenSink) Name() string { return "broken" }

type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return ctx.Err()
}

// --- helpers ---

type harness struct {
	cfg     *config.Config
	site    config.SiteConfig
	http    *fakeFetcher
	browser *fakeBrowser
	sink    *storage.CSVSink
	path    string
	sleep   *recordingSleep
	delays  int
}

func newHarness(t *testing.T, searchPage string, pages map[string]page) *harness {
	t.Helper()
	cfg := config.DefaultConfig()
	site, err := cfg.Site("aljazeera")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "aljazeera_articles.csv")
	return &harness{
		cfg:     cfg,
		site:    site,
		http:    &fakeFetcher{pages: pages},
		browser: &fakeBrowser{session: &fakeSession{html: searchPage}},
		sink:    storage.NewCSVSink(path, testLogger),
		path:    path,
		sleep:   &recordingSleep{},
	}
}

func (h *harness) orchestrator(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append([]Option{
		WithDelay(func() time.Duration { h.delays++; return 4 * time.Second }),
		WithSleep(h.sleep.Sleep),
	}, opts...)
	o, err := New(h.cfg, h.site, Deps{HTTP: h.http, Browser: h.browser, Sink: h.sink}, testLogger, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

const (
	linkA = "https://www.aljazeera.com/news/2024/1/1/first"
	linkB = "https://www.aljazeera.com/news/2024/1/2/second"
	linkC = "https://www.aljazeera.com/news/2024/1/3/third"
)

// --- tests ---

func TestRunThreeArticles(t *testing.T) {
	h := newHarness(t, searchHTML(linkA, linkB, linkC), map[string]page{
		linkA: {status: 200, body: articleHTML("First", "a1", "a2")},
		linkB: {status: 200, body: articleHTML("Second", "b1")},
		linkC: {status: 200, body: articleHTML("Third", "c1", "c2", "c3")},
	})

	res, err := h.orchestrator(t).Run(context.Background(), "gaza")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	h.sink.Close()

	if res.Candidates != 3 || res.Saved != 3 {
		t.Errorf("expected 3 candidates and 3 saved, got %+v", res)
	}
	if res.RunID == "" {
		t.Error("expected a run id")
	}
	if res.SearchURL != "https://www.aljazeera.com/search/gaza" {
		t.Errorf("unexpected search url %s", res.SearchURL)
	}

	rows := readCSV(t, h.path)
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if rows[1][0] != "gaza" || rows[1][1] != "First" || rows[1][2] != "a1\n\na2" || rows[1][3] != linkA {
		t.Errorf("unexpected first row %q", rows[1])
	}
	if rows[3][1] != "Third" {
		t.Errorf("rows out of document order: %q", rows[3])
	}

	if h.delays != 2 {
		t.Errorf("expected a pause before every fetch but the first, got %d", h.delays)
	}
	if !h.browser.session.closed {
		t.Error("search session was not closed")
	}
}

func TestRunBrowserArticlesWaitToRender(t *testing.T) {
	pages := map[string]page{
		linkA: {status: 200, body: articleHTML("First", "a1")},
		linkB: {status: 200, body: articleHTML("Second", "b1")},
	}
	h := newHarness(t, searchHTML(linkA, linkB), nil)
	h.site.ArticleFetch = "browser"
	h.site.ArticleWait = 12 * time.Second
	h.browser.pages = pages

	res, err := h.orchestrator(t).Run(context.Background(), "gaza")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Saved != 2 {
		t.Fatalf("expected 2 saved, got %+v", res)
	}
	if len(h.http.calls) != 0 {
		t.Errorf("articles should be fetched by the browser, http saw %v", h.http.calls)
	}
	for i, w := range h.browser.waits {
		if w != 12*time.Second {
			t.Errorf("browser fetch %d render wait = %s, want 12s", i, w)
		}
	}
	if len(h.browser.waits) != 2 {
		t.Errorf("expected 2 browser fetches, got %d", len(h.browser.waits))
	}
}

func TestRunNoLinksLeavesSinkUntouched(t *testing.T) {
	h := newHarness(t, searchHTML(), nil)

	res, err := h.orchestrator(t).Run(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	h.sink.Close()

	if !res.NoArticles() {
		t.Errorf("expected no-articles result, got %+v", res)
	}
	if _, err := os.Stat(h.path); !os.IsNotExist(err) {
		t.Errorf("output file should not exist, stat err = %v", err)
	}
	if len(h.http.calls) != 0 {
		t.Errorf("no article should be fetched, got %v", h.http.calls)
	}
}

func TestRunSkipsBrokenPage(t *testing.T) {
	h := newHarness(t, searchHTML(linkA, linkB, linkC), map[string]page{
		linkA: {status: 200, body: articleHTML("First", "a1")},
		linkB: {status: 200, body: "<html><body><h1>Live blog</h1><p>no container</p></body></html>"},
		linkC: {status: 200, body: articleHTML("Third", "c1")},
	})

	res, err := h.orchestrator(t).Run(context.Background(), "gaza")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	h.sink.Close()

	if res.Saved != 2 || res.Skipped[observability.SkipNotArticle] != 1 {
		t.Errorf("expected 2 saved and 1 not-article skip, got %+v", res)
	}
	if rows := readCSV(t, h.path); len(rows) != 3 {
		t.Errorf("expected header + 2 rows, got %d", len(rows))
	}
}

func TestRunSkipsFetchFailures(t *testing.T) {
	h := newHarness(t, searchHTML(linkA, linkB, linkC), map[string]page{
		linkA: {err: errors.New("connection reset")},
		linkB: {status: 404, body: "gone"},
		linkC: {status: 200, body: articleHTML("Third", "c1")},
	})

	res, err := h.orchestrator(t).Run(context.Background(), "gaza")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	h.sink.Close()

	if res.Saved != 1 {
		t.Errorf("expected 1 saved, got %d", res.Saved)
	}
	if res.Skipped[observability.SkipFetch] != 1 || res.Skipped[observability.SkipStatus] != 1 {
		t.Errorf("unexpected skips %v", res.Skipped)
	}
	if res.Fetched != 2 {
		t.Errorf("expected 2 fetched responses, got %d", res.Fetched)
	}
}

func TestRunStorageErrorAborts(t *testing.T) {
	h := newHarness(t, searchHTML(linkA, linkB), map[string]page{
		linkA: {status: 200, body: articleHTML("First", "a1")},
		linkB: {status: 200, body: articleHTML("Second", "b1")},
	})
	broken := &brokenSink{}
	o, err := New(h.cfg, h.site, Deps{HTTP: h.http, Browser: h.browser, Sink: broken}, testLogger,
		WithSleep(h.sleep.Sleep))
	if err != nil {
		t.Fatal(err)
	}

	_, err = o.Run(context.Background(), "gaza")
	var se *types.StorageError
	if !errors.As(err, &se) || se.Backend != "broken" {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if broken.appends != 1 {
		t.Errorf("run should stop at the first failed append, got %d appends", broken.appends)
	}
}

func TestRunDedupe(t *testing.T) {
	h := newHarness(t, searchHTML(linkA, linkA+"#comments", linkA+"/", linkB), map[string]page{
		linkA: {status: 200, body: articleHTML("First", "a1")},
		linkB: {status: 200, body: articleHTML("Second", "b1")},
	})

	res, err := h.orchestrator(t).Run(context.Background(), "gaza")
	if err != nil {
		t.Fatal(err)
	}
	h.sink.Close()

	if res.Candidates != 4 || res.Duplicates != 2 || res.Saved != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRunDedupeDisabledKeepsDuplicates(t *testing.T) {
	h := newHarness(t, searchHTML(linkA, linkA), map[string]page{
		linkA: {status: 200, body: articleHTML("First", "a1")},
	})
	h.cfg.Pipeline.Dedupe = false

	res, err := h.orchestrator(t).Run(context.Background(), "gaza")
	if err != nil {
		t.Fatal(err)
	}
	h.sink.Close()
	if res.Saved != 2 {
		t.Errorf("expected duplicate link to be scraped twice, got %d", res.Saved)
	}
}

func TestRunSkipExisting(t *testing.T) {
	h := newHarness(t, searchHTML(linkA, linkB), map[string]page{
		linkA: {status: 200, body: articleHTML("First", "a1")},
		linkB: {status: 200, body: articleHTML("Second", "b1")},
	})
	rec, _ := types.NewArticleRecord("gaza", "First", "a1", linkA)
	if err := h.sink.Append(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	h.cfg.Pipeline.SkipExisting = true

	res, err := h.orchestrator(t).Run(context.Background(), "gaza")
	if err != nil {
		t.Fatal(err)
	}
	h.sink.Close()

	if res.Saved != 1 || res.Skipped[observability.SkipExisting] != 1 {
		t.Errorf("unexpected result %+v", res)
	}
	if len(h.http.calls) != 1 || h.http.calls[0] != linkB {
		t.Errorf("only the new article should be fetched, got %v", h.http.calls)
	}
}

type denyPolicy struct{ denied string }

func (d denyPolicy) Allowed(_ context.Context, u string) bool { return u != d.denied }

func TestRunRobots(t *testing.T) {
	h := newHarness(t, searchHTML(linkA, linkB), map[string]page{
		linkA: {status: 200, body: articleHTML("First", "a1")},
		linkB: {status: 200, body: articleHTML("Second", "b1")},
	})

	res, err := h.orchestrator(t, WithRobots(denyPolicy{denied: linkA})).Run(context.Background(), "gaza")
	if err != nil {
		t.Fatal(err)
	}
	h.sink.Close()
	if res.Saved != 1 || res.Skipped[observability.SkipRobots] != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRunPaginatesBeforeCollecting(t *testing.T) {
	var events []string
	h := newHarness(t, searchHTML(linkA), map[string]page{
		linkA: {status: 200, body: articleHTML("First", "a1")},
	})
	h.browser.session.advances = []error{nil, nil, types.ErrEndOfResults}
	h.browser.session.events = &events
	h.http.events = &events

	metrics := observability.NewMetrics(testLogger)
	res, err := h.orchestrator(t, WithMetrics(metrics)).Run(context.Background(), "gaza")
	if err != nil {
		t.Fatal(err)
	}
	h.sink.Close()

	if res.Clicks != 2 {
		t.Errorf("expected 2 clicks, got %d", res.Clicks)
	}
	if len(events) != 2 || events[0] != "close_session" || events[1] != "fetch" {
		t.Errorf("session must close before article fetches, got %v", events)
	}
	if opts := h.browser.opened[0]; opts.ShowMoreSelector != "button.show-more-button" || opts.InitialWait != 3*time.Second {
		t.Errorf("unexpected session options %+v", opts)
	}
	// two settle waits after the clicks, no pacing for a single article
	if len(h.sleep.waits) != 2 {
		t.Errorf("expected 2 settle waits, got %v", h.sleep.waits)
	}
	if snap := metrics.Snapshot(); snap["show_more_clicks_total"] != 2 || snap["articles_saved_total"] != 1 {
		t.Errorf("unexpected metrics %v", snap)
	}
}

func TestRunCancelled(t *testing.T) {
	h := newHarness(t, searchHTML(linkA, linkB), map[string]page{
		linkA: {status: 200, body: articleHTML("First", "a1")},
		linkB: {status: 200, body: articleHTML("Second", "b1")},
	})
	ctx, cancel := context.WithCancel(context.Background())
	o := h.orchestrator(t, WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	_, err := o.Run(ctx, "gaza")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestNewRequiresBrowser(t *testing.T) {
	cfg := config.DefaultConfig()
	site, _ := cfg.Site("gulfnews")
	sink := storage.NewCSVSink(filepath.Join(t.TempDir(), "x.csv"), testLogger)
	if _, err := New(cfg, site, Deps{HTTP: &fakeFetcher{}, Sink: sink}, testLogger); err == nil {
		t.Error("expected error when the browser fetcher is missing")
	}
}

// TestRunStaticDiscoveryOverHTTP drives a static-discovery site through the
// real HTTP fetcher with a fixed identity.
func TestRunStaticDiscoveryOverHTTP(t *testing.T) {
	var mu sync.Mutex
	var agents []string
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.UserAgent())
		mu.Unlock()
		switch r.URL.Path {
		case "/search":
			fmt.Fprint(w, searchHTML(srv.URL+"/story/1", srv.URL+"/story/2", srv.URL+"/about"))
		case "/story/1":
			fmt.Fprint(w, articleHTML("One", "p1"))
		case "/story/2":
			fmt.Fprint(w, articleHTML("Two", "p2"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	site := config.SiteConfig{
		Name:         "local",
		SearchURL:    srv.URL + "/search?q={keyword}",
		Discovery:    config.DiscoveryStatic,
		LinkPrefix:   srv.URL + "/story/",
		BodySelector: "div.wysiwyg",
	}.WithDefaults()
	site.KeywordEncoding = config.EncodingQuery

	httpFetcher, err := fetcher.NewHTTPFetcher(cfg, fetcher.FixedIdentity("newsgoat-test/1.0"), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "local.csv")
	sink := storage.NewCSVSink(path, testLogger)

	o, err := New(cfg, site, Deps{HTTP: httpFetcher, Sink: sink}, testLogger,
		WithDelay(func() time.Duration { return 0 }))
	if err != nil {
		t.Fatal(err)
	}
	res, err := o.Run(context.Background(), "climate change")
	if err != nil {
		t.Fatal(err)
	}
	sink.Close()

	if res.Saved != 2 {
		t.Errorf("expected 2 saved, got %+v", res)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, ua := range agents {
		if ua != "newsgoat-test/1.0" {
			t.Errorf("identity not applied, got UA %q", ua)
		}
	}
	if rows := readCSV(t, path); len(rows) != 3 || rows[1][0] != "climate change" {
		t.Errorf("unexpected rows %q", rows)
	}
}

func TestUniformDelayBounds(t *testing.T) {
	d := UniformDelay(3*time.Second, 5*time.Second)
	for i := 0; i < 100; i++ {
		if v := d(); v < 3*time.Second || v > 5*time.Second {
			t.Fatalf("delay %v out of range", v)
		}
	}
	if v := UniformDelay(2*time.Second, time.Second)(); v != 2*time.Second {
		t.Errorf("inverted bounds should return min, got %v", v)
	}
}

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"HTTPS://WWW.Example.com:443/a/?b=2&a=1#top", "https://www.example.com/a?a=1&b=2"},
		{"http://example.com:80", "http://example.com/"},
		{"https://example.com/", "https://example.com/"},
	}
	for _, tt := range tests {
		if got := CanonicalizeURL(tt.in); got != tt.want {
			t.Errorf("CanonicalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
