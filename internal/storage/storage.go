package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/types"
)

// Sink is the append-only destination for article rows. Sinks never
// deduplicate: appending the same record twice stores it twice.
type Sink interface {
	// Append persists one record.
	Append(ctx context.Context, rec types.ArticleRecord) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// URLLister is implemented by sinks that can report which article URLs
// they already hold.
type URLLister interface {
	URLs(ctx context.Context) (map[string]struct{}, error)
}

// NewSink builds the configured sink for a site, fanning out to any
// mirrors. File-based sinks are created lazily on first append.
func NewSink(ctx context.Context, cfg *config.Config, site config.SiteConfig, logger *slog.Logger) (Sink, error) {
	primaryPath := cfg.OutputPath(site)

	primary, err := newBackend(ctx, cfg.Storage.Type, primaryPath, cfg, logger)
	if err != nil {
		return nil, err
	}
	if len(cfg.Storage.Mirrors) == 0 {
		return primary, nil
	}

	backends := []Sink{primary}
	for _, typ := range cfg.Storage.Mirrors {
		mirror, err := newBackend(ctx, typ, swapExt(primaryPath, typ), cfg, logger)
		if err != nil {
			for _, b := range backends {
				_ = b.Close()
			}
			return nil, fmt.Errorf("mirror %s: %w", typ, err)
		}
		backends = append(backends, mirror)
	}
	return NewMultiSink(backends, logger), nil
}

func newBackend(ctx context.Context, typ, path string, cfg *config.Config, logger *slog.Logger) (Sink, error) {
	switch typ {
	case "csv":
		return NewCSVSink(path, logger), nil
	case "jsonl":
		return NewJSONLSink(path, logger), nil
	case "sqlite":
		return NewSQLiteSink(path, logger), nil
	case "postgres":
		return NewPostgresSink(ctx, cfg.Storage.DSN, logger)
	case "mongodb":
		return NewMongoSink(ctx, cfg.Storage.DSN, cfg.Storage.Database, cfg.Storage.Collection, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", typ)
	}
}

func swapExt(path, typ string) string {
	ext := typ
	if typ == "sqlite" {
		ext = "db"
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + ext
}
