// Package analysis derives dashboard views from sentiment-enriched
// article datasets: label distribution, extreme articles, word
// frequencies and TF-IDF similarity.
package analysis

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/IshaanNene/newsgoat/internal/nlp"
	"github.com/IshaanNene/newsgoat/internal/storage"
)

// Article is one row of an enriched dataset.
type Article struct {
	Index      int     `json:"index"`
	Keyword    string  `json:"keyword,omitempty"`
	Title      string  `json:"title"`
	Content    string  `json:"-"`
	URL        string  `json:"url"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
}

// Dataset is a loaded enriched CSV with ERROR rows removed.
type Dataset struct {
	File     string    `json:"file"`
	Label    string    `json:"label"`
	Articles []Article `json:"-"`
	Dropped  int       `json:"dropped"`
}

// DatasetInfo describes a CSV file available for loading.
type DatasetInfo struct {
	File  string `json:"file"`
	Label string `json:"label"`
}

// DatasetLabel turns a file name into a display label:
// "aljazeera_articles_with_sentiment_trade_war.csv" becomes "trade war".
func DatasetLabel(file, prefix string) string {
	label := strings.Replace(file, prefix, "", 1)
	label = strings.Replace(label, ".csv", "", 1)
	return strings.ReplaceAll(label, "_", " ")
}

// ListDatasets returns the CSV files in dir, sorted by name.
func ListDatasets(dir, prefix string) ([]DatasetInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	var out []DatasetInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		out = append(out, DatasetInfo{File: e.Name(), Label: DatasetLabel(e.Name(), prefix)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out, nil
}

// LoadDataset reads an enriched CSV. Title and Content columns are
// required; rows labelled ERROR are dropped.
func LoadDataset(path, prefix string) (*Dataset, error) {
	table, err := storage.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	for _, col := range []string{"Title", "Content"} {
		if table.Col(col) < 0 {
			return nil, fmt.Errorf("CSV must contain 'Title' and 'Content' columns")
		}
	}

	file := filepath.Base(path)
	ds := &Dataset{File: file, Label: DatasetLabel(file, prefix)}
	for i := range table.Rows {
		a := Article{
			Keyword:   table.Value(i, "Keyword Searched"),
			Title:     table.Value(i, "Title"),
			Content:   table.Value(i, "Content"),
			URL:       table.Value(i, "URL"),
			Sentiment: strings.TrimSpace(table.Value(i, nlp.ColSentiment)),
		}
		if a.Sentiment == nlp.LabelError {
			ds.Dropped++
			continue
		}
		a.Confidence, _ = strconv.ParseFloat(strings.TrimSpace(table.Value(i, nlp.ColConfidence)), 64)
		a.Index = len(ds.Articles)
		ds.Articles = append(ds.Articles, a)
	}
	return ds, nil
}

// Article returns the article at index i.
func (d *Dataset) Article(i int) (Article, error) {
	if i < 0 || i >= len(d.Articles) {
		return Article{}, fmt.Errorf("article index %d out of range [0,%d)", i, len(d.Articles))
	}
	return d.Articles[i], nil
}

// ArticleByTitle returns the first article with the given title.
func (d *Dataset) ArticleByTitle(title string) (Article, error) {
	for _, a := range d.Articles {
		if a.Title == title {
			return a, nil
		}
	}
	return Article{}, fmt.Errorf("no article titled %q", title)
}

// LabelShare is one slice of the sentiment distribution.
type LabelShare struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Distribution returns label counts and percentages, largest first.
// Rows without a label are not counted.
func (d *Dataset) Distribution() []LabelShare {
	counts := make(map[string]int)
	total := 0
	for _, a := range d.Articles {
		if a.Sentiment == "" {
			continue
		}
		counts[a.Sentiment]++
		total++
	}

	out := make([]LabelShare, 0, len(counts))
	for label, n := range counts {
		out = append(out, LabelShare{Label: label, Count: n, Percent: 100 * float64(n) / float64(total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Most returns the article with the highest confidence for label.
func (d *Dataset) Most(label string) (Article, bool) {
	var best Article
	found := false
	for _, a := range d.Articles {
		if a.Sentiment != label {
			continue
		}
		if !found || a.Confidence > best.Confidence {
			best = a
			found = true
		}
	}
	return best, found
}
