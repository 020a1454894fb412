package nlp

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/IshaanNene/newsgoat/internal/storage"
)

// Enriched column names.
const (
	ColSentiment  = "Sentiment"
	ColConfidence = "Confidence"
)

// EnrichStats counts labels assigned by EnrichCSV.
type EnrichStats struct {
	Rows   int
	Labels map[string]int
}

// EnrichCSV classifies the Content column of in and writes the table to
// out with Sentiment and Confidence columns. Blank content is labelled
// EMPTY and collaborator failures ERROR, both with zero confidence; a
// failed row never aborts the file.
func EnrichCSV(ctx context.Context, analyzer Analyzer, in, out string, maxChars int, logger *slog.Logger) (*EnrichStats, error) {
	logger = logger.With("component", "enricher")

	table, err := storage.ReadCSV(in)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", in, err)
	}
	content := table.Col("Content")
	if content < 0 {
		return nil, fmt.Errorf("%s has no Content column", in)
	}

	header := append([]string(nil), table.Header...)
	sentCol := table.Col(ColSentiment)
	if sentCol < 0 {
		sentCol = len(header)
		header = append(header, ColSentiment)
	}
	confCol := table.Col(ColConfidence)
	if confCol < 0 {
		confCol = len(header)
		header = append(header, ColConfidence)
	}

	stats := &EnrichStats{Labels: make(map[string]int)}
	rows := make([][]string, 0, len(table.Rows))
	for i, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		enriched := make([]string, len(header))
		copy(enriched, row)

		s := classify(ctx, analyzer, table.Value(i, "Content"), maxChars, logger)
		enriched[sentCol] = s.Label
		enriched[confCol] = formatConfidence(s.Confidence)
		rows = append(rows, enriched)

		stats.Rows++
		stats.Labels[s.Label]++
		logger.Debug("analyzed sentiment", "row", i+1, "label", s.Label, "confidence", s.Confidence)
	}

	if err := storage.WriteCSV(out, header, rows); err != nil {
		return stats, err
	}
	logger.Info("sentiment enrichment complete", "rows", stats.Rows, "labels", stats.Labels, "out", out)
	return stats, nil
}

func classify(ctx context.Context, analyzer Analyzer, text string, maxChars int, logger *slog.Logger) Sentiment {
	if strings.TrimSpace(text) == "" {
		logger.Warn("skipped empty content")
		return Sentiment{Label: LabelEmpty}
	}
	s, err := analyzer.Analyze(ctx, Truncate(text, maxChars))
	if err != nil {
		logger.Warn("sentiment analysis failed", "error", err)
		return Sentiment{Label: LabelError}
	}
	return s
}

// formatConfidence keeps a decimal point on round values.
func formatConfidence(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// EnrichedName derives the output file name for an enriched dataset:
// aljazeera_articles.csv with label "Tariffs" becomes
// aljazeera_articles_with_sentiment_Tariffs.csv in the same directory.
func EnrichedName(in, label string) string {
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	label = strings.Join(strings.Fields(label), "_")
	name := base + "_with_sentiment"
	if label != "" {
		name += "_" + label
	}
	return filepath.Join(filepath.Dir(in), name+".csv")
}
