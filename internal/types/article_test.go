package types

import (
	"errors"
	"testing"
)

func TestNewArticleRecord(t *testing.T) {
	rec, err := NewArticleRecord("gaza", "Title", "Para one\n\nPara two", "https://www.aljazeera.com/news/1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Keyword() != "gaza" || rec.Title() != "Title" {
		t.Errorf("unexpected fields: %+v", rec.Row())
	}
	row := rec.Row()
	if len(row) != len(ArticleHeader) {
		t.Fatalf("row has %d columns, header has %d", len(row), len(ArticleHeader))
	}
	if row[3] != "https://www.aljazeera.com/news/1" {
		t.Errorf("expected URL in last column, got %q", row[3])
	}
}

func TestNewArticleRecordRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		content string
		url     string
	}{
		{"empty title", "", "body", "https://example.com/a"},
		{"blank title", "   ", "body", "https://example.com/a"},
		{"empty content", "Title", "", "https://example.com/a"},
		{"relative url", "Title", "body", "/news/a"},
		{"empty url", "Title", "body", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewArticleRecord("k", tt.title, tt.content, tt.url)
			if !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("expected ErrInvalidRecord, got %v", err)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := &ExtractError{URL: "https://example.com", Selector: "h1", Err: ErrNotArticle}
	if !errors.Is(err, ErrNotArticle) {
		t.Error("ExtractError should unwrap to ErrNotArticle")
	}

	var se *StorageError
	wrapped := error(&StorageError{Backend: "csv", Err: errors.New("disk full")})
	if !errors.As(wrapped, &se) || se.Backend != "csv" {
		t.Error("expected StorageError via errors.As")
	}
}
