package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/nlp"
	"github.com/IshaanNene/newsgoat/internal/storage"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const prefix = "aljazeera_articles_with_sentiment_"

type stubSummarizer struct {
	text     string
	max, min int
	err      error
}

func (s *stubSummarizer) Summarize(_ context.Context, text string, maxLen, minLen int) (string, error) {
	s.text, s.max, s.min = text, maxLen, minLen
	if s.err != nil {
		return "", s.err
	}
	return "short version", nil
}

func setup(t *testing.T, sum *stubSummarizer) (*Dashboard, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	header := []string{"Keyword Searched", "Title", "Content", "URL", "Sentiment", "Confidence"}
	if err := storage.WriteCSV(filepath.Join(dir, prefix+"trade_war.csv"), header, [][]string{
		{"trade war", "Steel duties rise", "Tariffs on steel rise again as trade talks stall.", "https://example.com/1", "NEGATIVE", "0.97"},
		{"trade war", "Exporters cheer deal", "Exporters cheer the new trade deal " + strings.Repeat("x", 2000), "https://example.com/2", "POSITIVE", "0.88"},
		{"trade war", "Broken", "Service failed.", "https://example.com/3", "ERROR", "0.0"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := storage.WriteCSV(filepath.Join(dir, prefix+"elections.csv"), header, [][]string{
		{"elections", "Polls open", "Voters queue at polls.", "https://example.com/4", "POSITIVE", "0.91"},
	}); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Dashboard.DataDir = dir
	var summarizer nlp.Summarizer
	if sum != nil {
		summarizer = sum
	}
	d := NewDashboard(cfg, summarizer, testLogger)
	srv := httptest.NewServer(d.Handler())
	t.Cleanup(srv.Close)
	return d, srv
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

func getJSON(t *testing.T, c *http.Client, url string, v any) int {
	t.Helper()
	resp, err := c.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func load(t *testing.T, c *http.Client, base, file string) (Overview, int) {
	t.Helper()
	resp, err := c.Post(base+"/api/session/load", "application/json", strings.NewReader(`{"file":"`+file+`"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var ov Overview
	body, _ := io.ReadAll(resp.Body)
	json.Unmarshal(body, &ov)
	return ov, resp.StatusCode
}

func TestIndexAndHealth(t *testing.T) {
	_, srv := setup(t, nil)
	c := newClient(t)

	resp, err := c.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "NewsGoat Sentiment Dashboard") {
		t.Error("index page missing title")
	}

	var health map[string]string
	if code := getJSON(t, c, srv.URL+"/api/health", &health); code != http.StatusOK || health["status"] != "ok" {
		t.Errorf("health = %d %v", code, health)
	}
}

func TestListDatasets(t *testing.T) {
	_, srv := setup(t, nil)
	var list []struct{ File, Label string }
	getJSON(t, newClient(t), srv.URL+"/api/datasets", &list)
	if len(list) != 2 || list[0].Label != "elections" || list[1].Label != "trade war" {
		t.Errorf("unexpected datasets %+v", list)
	}
}

func TestLoadOverview(t *testing.T) {
	_, srv := setup(t, nil)
	c := newClient(t)

	ov, code := load(t, c, srv.URL, prefix+"trade_war.csv")
	if code != http.StatusOK {
		t.Fatalf("load status %d", code)
	}
	if len(ov.Articles) != 2 || ov.Dropped != 1 {
		t.Errorf("expected 2 articles and 1 dropped, got %d/%d", len(ov.Articles), ov.Dropped)
	}
	if ov.MostPositive == nil || ov.MostPositive.Title != "Exporters cheer deal" {
		t.Errorf("most positive = %+v", ov.MostPositive)
	}
	if ov.MostNegative == nil || ov.MostNegative.Title != "Steel duties rise" {
		t.Errorf("most negative = %+v", ov.MostNegative)
	}
	if len(ov.Distribution) != 2 || ov.Distribution[0].Percent != 50 {
		t.Errorf("unexpected distribution %+v", ov.Distribution)
	}

	var again Overview
	if code := getJSON(t, c, srv.URL+"/api/overview", &again); code != http.StatusOK || again.File != ov.File {
		t.Errorf("overview = %d %+v", code, again)
	}
}

func TestLoadRejectsPaths(t *testing.T) {
	_, srv := setup(t, nil)
	c := newClient(t)
	for _, name := range []string{"../etc/passwd.csv", "notes.txt", ""} {
		if _, code := load(t, c, srv.URL, name); code != http.StatusBadRequest {
			t.Errorf("load %q: expected 400, got %d", name, code)
		}
	}
	if _, code := load(t, c, srv.URL, "missing.csv"); code != http.StatusUnprocessableEntity {
		t.Errorf("missing file: expected 422, got %d", code)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	d, srv := setup(t, nil)
	alice, bob := newClient(t), newClient(t)

	load(t, alice, srv.URL, prefix+"trade_war.csv")
	load(t, bob, srv.URL, prefix+"elections.csv")

	var a, b Overview
	getJSON(t, alice, srv.URL+"/api/overview", &a)
	getJSON(t, bob, srv.URL+"/api/overview", &b)
	if a.Label != "trade war" || b.Label != "elections" {
		t.Errorf("sessions leaked: alice=%q bob=%q", a.Label, b.Label)
	}
	if d.Sessions().Len() != 2 {
		t.Errorf("expected 2 sessions, got %d", d.Sessions().Len())
	}

	if code := getJSON(t, newClient(t), srv.URL+"/api/overview", nil); code != http.StatusConflict {
		t.Errorf("fresh session: expected 409, got %d", code)
	}
}

func TestSessionExpiry(t *testing.T) {
	store := NewSessionStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	first := store.Get(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	if got := store.Get(httptest.NewRecorder(), req); got != first {
		t.Error("expected the same session for the same cookie")
	}

	now = now.Add(2 * time.Minute)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	if got := store.Get(httptest.NewRecorder(), req); got == first {
		t.Error("expected a new session after expiry")
	}
	if store.Len() != 1 {
		t.Errorf("expected expired session to be swept, have %d", store.Len())
	}
}

func TestWordCloudAndSimilarity(t *testing.T) {
	_, srv := setup(t, nil)
	c := newClient(t)
	load(t, c, srv.URL, prefix+"trade_war.csv")

	var cloud struct {
		Title string
		Words []struct {
			Word  string
			Count int
		}
	}
	if code := getJSON(t, c, srv.URL+"/api/wordcloud?title=Steel+duties+rise", &cloud); code != http.StatusOK {
		t.Fatalf("wordcloud status %d", code)
	}
	if cloud.Title != "Steel duties rise" || len(cloud.Words) == 0 {
		t.Errorf("unexpected cloud %+v", cloud)
	}

	var sim struct {
		Score   float64
		Display string
	}
	getJSON(t, c, srv.URL+"/api/similarity?a=0&b=0", &sim)
	if sim.Display != "Cosine Similarity: 1.00" {
		t.Errorf("self similarity = %+v", sim)
	}

	if code := getJSON(t, c, srv.URL+"/api/similarity?a=0&b=9", nil); code != http.StatusNotFound {
		t.Errorf("out of range: expected 404, got %d", code)
	}
	if code := getJSON(t, c, srv.URL+"/api/similarity?a=0", nil); code != http.StatusBadRequest {
		t.Errorf("missing b: expected 400, got %d", code)
	}
}

func TestSummary(t *testing.T) {
	sum := &stubSummarizer{}
	_, srv := setup(t, sum)
	c := newClient(t)
	load(t, c, srv.URL, prefix+"trade_war.csv")

	var out map[string]any
	if code := getJSON(t, c, srv.URL+"/api/summary?article=1", &out); code != http.StatusOK {
		t.Fatalf("summary status %d: %v", code, out)
	}
	if out["summary"] != "short version" {
		t.Errorf("unexpected summary %v", out)
	}
	if len([]rune(sum.text)) != 1000 || sum.max != 130 || sum.min != 30 {
		t.Errorf("summarizer got %d chars, max=%d min=%d", len([]rune(sum.text)), sum.max, sum.min)
	}

	sum.err = errors.New("model loading")
	if code := getJSON(t, c, srv.URL+"/api/summary?article=1", &out); code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", code)
	}
}

func TestSummaryDisabled(t *testing.T) {
	_, srv := setup(t, nil)
	if code := getJSON(t, newClient(t), srv.URL+"/api/summary?article=0", nil); code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", code)
	}
}
