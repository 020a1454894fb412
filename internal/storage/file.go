package storage

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/IshaanNene/newsgoat/internal/types"
)

// openAppend opens path for appending, creating it and its directory.
// It reports whether the file was empty.
func openAppend(path string) (*os.File, bool, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("open output file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, false, fmt.Errorf("stat output file: %w", err)
	}
	return f, info.Size() == 0, nil
}

// --- CSV Sink ---

// CSVSink appends article rows to a CSV file. The file is created on the
// first append and the header is written only when the file is empty, so
// repeated runs accumulate rows under one header.
type CSVSink struct {
	path   string
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewCSVSink creates a CSV sink. Nothing touches the disk until Append.
func NewCSVSink(path string, logger *slog.Logger) *CSVSink {
	return &CSVSink{
		path:   path,
		logger: logger.With("component", "csv_sink"),
	}
}

func (s *CSVSink) Name() string { return "csv" }

// Path returns the output file path.
func (s *CSVSink) Path() string { return s.path }

func (s *CSVSink) Append(_ context.Context, rec types.ArticleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		f, empty, err := openAppend(s.path)
		if err != nil {
			return err
		}
		s.file = f
		s.writer = csv.NewWriter(f)
		if empty {
			if err := s.writer.Write(types.ArticleHeader); err != nil {
				return fmt.Errorf("write CSV header: %w", err)
			}
		}
	}

	if err := s.writer.Write(rec.Row()); err != nil {
		return fmt.Errorf("write CSV row: %w", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}
	s.count++
	return nil
}

// URLs returns the URL column of the existing file.
func (s *CSVSink) URLs(_ context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls := make(map[string]struct{})
	table, err := ReadCSV(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return urls, nil
	}
	if err != nil {
		return nil, err
	}
	col := table.Col("URL")
	if col < 0 {
		return urls, nil
	}
	for _, row := range table.Rows {
		if col < len(row) && row[col] != "" {
			urls[row[col]] = struct{}{}
		}
	}
	return urls, nil
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	s.logger.Info("CSV written", "path", s.path, "rows", s.count)
	s.writer.Flush()
	err := s.file.Close()
	s.file = nil
	return err
}

// --- JSONL Sink ---

type jsonlRecord struct {
	KeywordSearched string    `json:"keyword_searched"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	URL             string    `json:"url"`
	ScrapedAt       time.Time `json:"scraped_at"`
}

// JSONLSink appends one JSON object per article line.
type JSONLSink struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLSink creates a JSONL sink. The file is created on first append.
func NewJSONLSink(path string, logger *slog.Logger) *JSONLSink {
	return &JSONLSink{
		path:   path,
		logger: logger.With("component", "jsonl_sink"),
	}
}

func (s *JSONLSink) Name() string { return "jsonl" }

func (s *JSONLSink) Append(_ context.Context, rec types.ArticleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		f, _, err := openAppend(s.path)
		if err != nil {
			return err
		}
		s.file = f
		s.enc = json.NewEncoder(f)
	}

	if err := s.enc.Encode(jsonlRecord{
		KeywordSearched: rec.Keyword(),
		Title:           rec.Title(),
		Content:         rec.Content(),
		URL:             rec.URL(),
		ScrapedAt:       time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("encode JSONL: %w", err)
	}
	s.count++
	return nil
}

// URLs scans the existing file for article URLs.
func (s *JSONLSink) URLs(_ context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls := make(map[string]struct{})
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return urls, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var rec jsonlRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		if rec.URL != "" {
			urls[rec.URL] = struct{}{}
		}
	}
	return urls, scanner.Err()
}

func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	s.logger.Info("JSONL written", "path", s.path, "rows", s.count)
	err := s.file.Close()
	s.file = nil
	return err
}
