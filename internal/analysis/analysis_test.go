package analysis

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/IshaanNene/newsgoat/internal/storage"
)

const prefix = "aljazeera_articles_with_sentiment_"

func writeDataset(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	err := storage.WriteCSV(path,
		[]string{"Keyword Searched", "Title", "Content", "URL", "Sentiment", "Confidence"},
		[][]string{
			{"tariffs", "Steel duties rise", "Tariffs on steel rise again as trade talks stall.", "https://example.com/1", "NEGATIVE", "0.97"},
			{"tariffs", "Exporters cheer deal", "Exporters cheer the new trade deal.", "https://example.com/2", "POSITIVE", "0.88"},
			{"tariffs", "Farm aid", "Farmers receive aid after tariffs.", "https://example.com/3", "POSITIVE", "0.99"},
			{"tariffs", "Broken", "Service failed.", "https://example.com/4", "ERROR", "0.0"},
			{"tariffs", "Markets slide", "Markets slide on tariff fears.", "https://example.com/5", "NEGATIVE", "0.61"},
		})
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDatasetLabel(t *testing.T) {
	if got := DatasetLabel(prefix+"trade_war.csv", prefix); got != "trade war" {
		t.Errorf("DatasetLabel = %q", got)
	}
	if got := DatasetLabel("other_file.csv", prefix); got != "other file" {
		t.Errorf("DatasetLabel = %q", got)
	}
}

func TestListDatasets(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, prefix+"b.csv")
	writeDataset(t, dir, prefix+"a.csv")
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755)

	got, err := ListDatasets(dir, prefix)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Label != "a" || got[1].File != prefix+"b.csv" {
		t.Errorf("unexpected datasets %+v", got)
	}
}

func TestLoadDatasetDropsErrors(t *testing.T) {
	ds, err := LoadDataset(writeDataset(t, t.TempDir(), prefix+"tariffs.csv"), prefix)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds.Articles) != 4 || ds.Dropped != 1 {
		t.Fatalf("expected 4 articles and 1 dropped, got %d/%d", len(ds.Articles), ds.Dropped)
	}
	if ds.Label != "tariffs" {
		t.Errorf("unexpected label %q", ds.Label)
	}
	for i, a := range ds.Articles {
		if a.Index != i {
			t.Errorf("article %d has index %d", i, a.Index)
		}
	}

	dist := ds.Distribution()
	if len(dist) != 2 || dist[0].Count != 2 || dist[0].Percent != 50 {
		t.Errorf("unexpected distribution %+v", dist)
	}

	pos, ok := ds.Most("POSITIVE")
	if !ok || pos.Title != "Farm aid" {
		t.Errorf("most positive = %+v", pos)
	}
	neg, ok := ds.Most("NEGATIVE")
	if !ok || neg.Title != "Steel duties rise" {
		t.Errorf("most negative = %+v", neg)
	}
	if _, ok := ds.Most("NEUTRAL"); ok {
		t.Error("expected no NEUTRAL article")
	}

	if a, err := ds.ArticleByTitle("Markets slide"); err != nil || a.Index != 3 {
		t.Errorf("ArticleByTitle = %+v, %v", a, err)
	}
	if _, err := ds.Article(10); err == nil {
		t.Error("expected out-of-range error")
	}
}

func TestLoadDatasetRequiresColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.csv")
	storage.WriteCSV(path, []string{"Headline"}, [][]string{{"x"}})
	if _, err := LoadDataset(path, prefix); err == nil {
		t.Error("expected missing column error")
	}
}

func TestWordFrequencies(t *testing.T) {
	words := WordFrequencies("The trade war's cost: trade, TRADE and tariffs. 2024 tariffs!", 2)
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %+v", words)
	}
	if words[0].Word != "trade" || words[0].Count != 3 || words[0].Weight != 1 {
		t.Errorf("unexpected top word %+v", words[0])
	}
	if words[1].Word != "tariffs" || words[1].Weight != 2.0/3.0 {
		t.Errorf("unexpected second word %+v", words[1])
	}
}

func TestSimilarity(t *testing.T) {
	same, err := Similarity("Tariffs hit steel exports", "tariffs hit STEEL exports")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(same-1) > 1e-9 {
		t.Errorf("identical texts should score 1, got %v", same)
	}

	disjoint, err := Similarity("tariffs steel", "football match")
	if err != nil {
		t.Fatal(err)
	}
	if disjoint != 0 {
		t.Errorf("disjoint texts should score 0, got %v", disjoint)
	}

	partial, _ := Similarity("tariffs steel exports", "tariffs football")
	if partial <= 0 || partial >= 1 {
		t.Errorf("partial overlap should be in (0,1), got %v", partial)
	}

	if _, err := Similarity("the and of", "a an"); !errors.Is(err, ErrEmptyVocabulary) {
		t.Errorf("expected ErrEmptyVocabulary, got %v", err)
	}
}

// TestVectorizeMatchesSmoothIDF checks one weight against the formula
// computed by hand.
func TestVectorizeMatchesSmoothIDF(t *testing.T) {
	vecs, err := Vectorize([]string{"alpha beta", "alpha"})
	if err != nil {
		t.Fatal(err)
	}
	// doc 0: alpha idf = ln(3/3)+1 = 1, beta idf = ln(3/2)+1
	beta := math.Log(1.5) + 1
	norm := math.Sqrt(1 + beta*beta)
	if math.Abs(vecs[0]["alpha"]-1/norm) > 1e-12 || math.Abs(vecs[0]["beta"]-beta/norm) > 1e-12 {
		t.Errorf("unexpected weights %v", vecs[0])
	}
	if math.Abs(vecs[1]["alpha"]-1) > 1e-12 {
		t.Errorf("single-term doc should normalize to 1, got %v", vecs[1])
	}
}
