package observability

import (
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics(testLogger)
	m.CandidatesFound("aljazeera", 3)
	m.Fetched("aljazeera", 200, 150*time.Millisecond)
	m.Fetched("aljazeera", 0, time.Second)
	m.Saved("aljazeera")
	m.Skipped("aljazeera", SkipFetch)
	m.RunFinished("aljazeera", nil)

	if got := testutil.ToFloat64(m.candidates.WithLabelValues("aljazeera")); got != 3 {
		t.Errorf("candidates = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.fetches.WithLabelValues("aljazeera", "error")); got != 1 {
		t.Errorf("transport errors = %v, want 1", got)
	}

	snap := m.Snapshot()
	if snap["articles_saved_total"] != 1 {
		t.Errorf("snapshot saved = %v", snap["articles_saved_total"])
	}
	if snap["article_fetches_total"] != 2 {
		t.Errorf("snapshot fetches = %v", snap["article_fetches_total"])
	}
	if snap["article_fetch_duration_seconds_count"] != 2 {
		t.Errorf("snapshot histogram count = %v", snap["article_fetch_duration_seconds_count"])
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Saved("x")
	m.Skipped("x", SkipRobots)
	m.NLPCall("sentiment", errors.New("boom"))
	if len(m.Snapshot()) != 0 {
		t.Error("nil metrics should have empty snapshot")
	}
}

func TestMetricsIsolatedRegistries(t *testing.T) {
	a := NewMetrics(testLogger)
	b := NewMetrics(testLogger)
	a.Saved("gulfnews")
	if got := b.Snapshot()["articles_saved_total"]; got != 0 {
		t.Errorf("registries leaked: %v", got)
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(testLogger)
	m.Clicked("aljazeera", 4)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `newsgoat_show_more_clicks_total{site="aljazeera"} 4`) {
		t.Errorf("exposition missing clicks counter:\n%s", body)
	}
}
