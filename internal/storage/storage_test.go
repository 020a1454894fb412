package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func mustRecord(t *testing.T, title, content, url string) types.ArticleRecord {
	t.Helper()
	rec, err := types.NewArticleRecord("gaza", title, content, url)
	if err != nil {
		t.Fatal(err)
	}
	return rec
}

func readRows(t *testing.T, path string) [][]string {
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

func TestCSVSinkLazyCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "aljazeera_articles.csv")
	sink := NewCSVSink(path, testLogger)
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file before first append, stat err = %v", err)
	}
}

func TestCSVSinkHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.csv")
	ctx := context.Background()

	first := NewCSVSink(path, testLogger)
	if err := first.Append(ctx, mustRecord(t, "A", "one\n\ntwo", "https://example.com/a")); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second := NewCSVSink(path, testLogger)
	if err := second.Append(ctx, mustRecord(t, "B, quoted \"title\"", "body", "https://example.com/b")); err != nil {
		t.Fatal(err)
	}
	if err := second.Close(); err != nil {
		t.Fatal(err)
	}

	rows := readRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], "|") != strings.Join(types.ArticleHeader, "|") {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][2] != "one\n\ntwo" {
		t.Errorf("multi-line content not preserved: %q", rows[1][2])
	}
	if rows[2][1] != `B, quoted "title"` {
		t.Errorf("quoting not preserved: %q", rows[2][1])
	}
}

func TestCSVSinkNoDedupe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.csv")
	sink := NewCSVSink(path, testLogger)
	rec := mustRecord(t, "Same", "body", "https://example.com/same")
	for i := 0; i < 2; i++ {
		if err := sink.Append(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
	}
	sink.Close()

	if rows := readRows(t, path); len(rows) != 3 {
		t.Errorf("expected duplicate rows to be kept, got %d rows", len(rows))
	}
}

func TestCSVSinkURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.csv")
	sink := NewCSVSink(path, testLogger)
	ctx := context.Background()

	urls, err := sink.URLs(ctx)
	if err != nil || len(urls) != 0 {
		t.Fatalf("expected empty set for missing file, got %v, %v", urls, err)
	}

	sink.Append(ctx, mustRecord(t, "A", "x", "https://example.com/a"))
	sink.Append(ctx, mustRecord(t, "B", "y", "https://example.com/b"))

	urls, err = sink.URLs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := urls["https://example.com/b"]; !ok || len(urls) != 2 {
		t.Errorf("unexpected url set %v", urls)
	}
	sink.Close()
}

func TestJSONLSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.jsonl")
	sink := NewJSONLSink(path, testLogger)
	ctx := context.Background()

	sink.Append(ctx, mustRecord(t, "A", "x", "https://example.com/a"))
	sink.Append(ctx, mustRecord(t, "A", "x", "https://example.com/a"))
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Errorf("expected 2 lines, got %d", lines)
	}
	if !strings.Contains(string(data), `"keyword_searched":"gaza"`) {
		t.Errorf("missing keyword field: %s", data)
	}

	urls, err := NewJSONLSink(path, testLogger).URLs(ctx)
	if err != nil || len(urls) != 1 {
		t.Errorf("expected one distinct url, got %v, %v", urls, err)
	}
}

func TestSQLiteSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.db")
	sink := NewSQLiteSink(path, testLogger)
	ctx := context.Background()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("database should not exist before first append")
	}

	for _, u := range []string{"https://example.com/a", "https://example.com/b", "https://example.com/a"} {
		if err := sink.Append(ctx, mustRecord(t, "T", "body", u)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	n, err := sink.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 rows, got %d", n)
	}

	urls, err := sink.URLs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 2 {
		t.Errorf("expected 2 distinct urls, got %d", len(urls))
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
}

type failingSink struct{ appended int }

func (f *failingSink) Append(context.Context, types.ArticleRecord) error {
	f.appended++
	return errors.New("disk full")
}
func (f *failingSink) Close() error { return nil }
func (f *failingSink) Name() string { return "failing" }

func TestMultiSinkFanOut(t *testing.T) {
	dir := t.TempDir()
	primary := NewCSVSink(filepath.Join(dir, "a.csv"), testLogger)
	broken := &failingSink{}
	multi := NewMultiSink([]Sink{primary, broken}, testLogger)

	err := multi.Append(context.Background(), mustRecord(t, "A", "x", "https://example.com/a"))
	if err == nil {
		t.Fatal("expected mirror failure to surface")
	}
	if broken.appended != 1 {
		t.Errorf("expected mirror to receive the record")
	}
	if multi.Name() != "csv" {
		t.Errorf("multi sink should report the primary name, got %s", multi.Name())
	}
	multi.Close()

	if rows := readRows(t, filepath.Join(dir, "a.csv")); len(rows) != 2 {
		t.Errorf("primary should still hold the row, got %d rows", len(rows))
	}
}

func TestNewSinkMirrors(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.Path = filepath.Join(dir, "gulf.csv")
	cfg.Storage.Mirrors = []string{"jsonl"}
	site, _ := cfg.Site("gulfnews")

	sink, err := NewSink(context.Background(), cfg, site, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Append(context.Background(), mustRecord(t, "A", "x", "https://gulfnews.com/a")); err != nil {
		t.Fatal(err)
	}
	sink.Close()

	for _, name := range []string{"gulf.csv", "gulf.jsonl"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
}

func TestNewSinkUnknownType(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Type = "parquet"
	site, _ := cfg.Site("aljazeera")
	if _, err := NewSink(context.Background(), cfg, site, testLogger); err == nil {
		t.Error("expected error for unsupported storage type")
	}
}

func TestParseCSVTrimsHeader(t *testing.T) {
	table, err := ParseCSV(strings.NewReader("\ufeff Title ,Content,Sentiment \nA,body,POSITIVE\nB,short\n"))
	if err != nil {
		t.Fatal(err)
	}
	if table.Col("Title") != 0 || table.Col("Sentiment") != 2 {
		t.Errorf("unexpected header %v", table.Header)
	}
	if got := table.Value(1, "Sentiment"); got != "" {
		t.Errorf("short row should yield empty value, got %q", got)
	}
	if table.Col("Missing") != -1 {
		t.Error("expected -1 for unknown column")
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enriched.csv")
	if err := WriteCSV(path, []string{"Title", "Sentiment"}, [][]string{{"A", "NEGATIVE"}}); err != nil {
		t.Fatal(err)
	}
	table, err := ReadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if table.Value(0, "Sentiment") != "NEGATIVE" {
		t.Errorf("unexpected table %+v", table)
	}
}
