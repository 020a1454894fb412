package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"

	"github.com/IshaanNene/newsgoat/internal/types"
)

var (
	_ Sink      = (*SQLiteSink)(nil)
	_ URLLister = (*SQLiteSink)(nil)
	_ Sink      = (*PostgresSink)(nil)
	_ URLLister = (*PostgresSink)(nil)
	_ Sink      = (*CSVSink)(nil)
	_ URLLister = (*CSVSink)(nil)
	_ Sink      = (*JSONLSink)(nil)
	_ URLLister = (*JSONLSink)(nil)
	_ Sink      = (*MongoSink)(nil)
	_ URLLister = (*MongoSink)(nil)
	_ Sink      = (*MultiSink)(nil)
	_ URLLister = (*MultiSink)(nil)
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	keyword_searched TEXT NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	url TEXT NOT NULL,
	scraped_at DATETIME NOT NULL
);
`

// SQLiteSink appends articles to a local SQLite database file. The
// database is opened on first append.
type SQLiteSink struct {
	path   string
	db     *sql.DB
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewSQLiteSink creates a SQLite sink for the database file at path.
func NewSQLiteSink(path string, logger *slog.Logger) *SQLiteSink {
	return &SQLiteSink{
		path:   path,
		logger: logger.With("component", "sqlite_sink"),
	}
}

func (s *SQLiteSink) Name() string { return "sqlite" }

func (s *SQLiteSink) open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("sqlite open: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite schema: %w", err)
	}
	s.db = db
	return nil
}

func (s *SQLiteSink) Append(ctx context.Context, rec types.ArticleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.open(ctx); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO articles (keyword_searched, title, content, url, scraped_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Keyword(), rec.Title(), rec.Content(), rec.URL(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite insert: %w", err)
	}
	s.count++
	return nil
}

// URLs returns the distinct article URLs already stored.
func (s *SQLiteSink) URLs(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
			return map[string]struct{}{}, nil
		}
		if err := s.open(ctx); err != nil {
			return nil, err
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT url FROM articles`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query: %w", err)
	}
	defer rows.Close()
	return scanURLs(rows)
}

// Count returns the number of stored articles.
func (s *SQLiteSink) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, nil
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite count: %w", err)
	}
	return n, nil
}

func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	s.logger.Info("sqlite written", "path", s.path, "rows", s.count)
	err := s.db.Close()
	s.db = nil
	return err
}

type urlRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanURLs(rows urlRows) (map[string]struct{}, error) {
	urls := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		urls[u] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return urls, nil
}

// --- Postgres Sink ---

const postgresSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id BIGSERIAL PRIMARY KEY,
	keyword_searched TEXT NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	url TEXT NOT NULL,
	scraped_at TIMESTAMPTZ NOT NULL
);
`

// PostgresSink appends articles to a PostgreSQL table.
type PostgresSink struct {
	pool   *pgxpool.Pool
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewPostgresSink connects to PostgreSQL and ensures the schema exists.
func NewPostgresSink(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}

	return &PostgresSink{
		pool:   pool,
		logger: logger.With("component", "postgres_sink"),
	}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Append(ctx context.Context, rec types.ArticleRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO articles (keyword_searched, title, content, url, scraped_at) VALUES ($1, $2, $3, $4, $5)`,
		rec.Keyword(), rec.Title(), rec.Content(), rec.URL(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres insert: %w", err)
	}
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	return nil
}

func (s *PostgresSink) URLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT url FROM articles`)
	if err != nil {
		return nil, fmt.Errorf("postgres query: %w", err)
	}
	defer rows.Close()
	return scanURLs(rows)
}

func (s *PostgresSink) Close() error {
	s.mu.Lock()
	s.logger.Info("postgres sink closing", "rows", s.count)
	s.mu.Unlock()
	s.pool.Close()
	return nil
}
