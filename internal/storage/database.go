package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/newsgoat/internal/types"
)

// MongoSink writes articles to a MongoDB collection.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoSink connects to MongoDB and verifies the connection.
func NewMongoSink(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoSink, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_sink"),
	}, nil
}

func (s *MongoSink) Name() string { return "mongodb" }

func (s *MongoSink) Append(ctx context.Context, rec types.ArticleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := bson.M{"scraped_at": time.Now().UTC()}
	for k, v := range rec.Map() {
		doc[k] = v
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongodb insert: %w", err)
	}

	s.count++
	s.logger.Debug("article stored in mongodb", "url", rec.URL(), "total", s.count)
	return nil
}

// URLs returns the distinct article URLs in the collection.
func (s *MongoSink) URLs(ctx context.Context) (map[string]struct{}, error) {
	values, err := s.collection.Distinct(ctx, "url", bson.D{})
	if err != nil {
		return nil, fmt.Errorf("mongodb distinct: %w", err)
	}
	urls := make(map[string]struct{}, len(values))
	for _, v := range values {
		if u, ok := v.(string); ok {
			urls[u] = struct{}{}
		}
	}
	return urls, nil
}

func (s *MongoSink) Close() error {
	s.logger.Info("mongodb sink closing", "total_articles", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// --- Multi-Sink Fan-Out ---

// MultiSink writes each article to several backends. The first backend
// is the primary and answers URL queries.
type MultiSink struct {
	backends []Sink
	logger   *slog.Logger
}

// NewMultiSink creates a sink that fans out to multiple backends.
func NewMultiSink(backends []Sink, logger *slog.Logger) *MultiSink {
	return &MultiSink{
		backends: backends,
		logger:   logger.With("component", "multi_sink"),
	}
}

func (s *MultiSink) Name() string {
	if len(s.backends) == 0 {
		return "multi"
	}
	return s.backends[0].Name()
}

func (s *MultiSink) Append(ctx context.Context, rec types.ArticleRecord) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Append(ctx, rec); err != nil {
			s.logger.Error("backend append failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiSink) URLs(ctx context.Context) (map[string]struct{}, error) {
	if len(s.backends) == 0 {
		return map[string]struct{}{}, nil
	}
	lister, ok := s.backends[0].(URLLister)
	if !ok {
		return nil, fmt.Errorf("%s sink cannot list URLs", s.backends[0].Name())
	}
	return lister.URLs(ctx)
}

func (s *MultiSink) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
