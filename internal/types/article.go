package types

import (
	"fmt"
	"net/url"
	"strings"
)

// ArticleHeader is the fixed column order of every article row.
var ArticleHeader = []string{"Keyword Searched", "Title", "Content", "URL"}

// ArticleRecord is one scraped article. Records are immutable once built
// and are only obtainable through NewArticleRecord.
type ArticleRecord struct {
	keyword string
	title   string
	content string
	url     string
}

// NewArticleRecord validates the fields and returns a record.
// Title and content must be non-empty and the URL must be absolute.
func NewArticleRecord(keyword, title, content, rawURL string) (ArticleRecord, error) {
	if strings.TrimSpace(title) == "" {
		return ArticleRecord{}, fmt.Errorf("%w: empty title", ErrInvalidRecord)
	}
	if strings.TrimSpace(content) == "" {
		return ArticleRecord{}, fmt.Errorf("%w: empty content", ErrInvalidRecord)
	}
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ArticleRecord{}, fmt.Errorf("%w: url %q is not absolute", ErrInvalidRecord, rawURL)
	}
	return ArticleRecord{
		keyword: keyword,
		title:   title,
		content: content,
		url:     rawURL,
	}, nil
}

func (r ArticleRecord) Keyword() string { return r.keyword }
func (r ArticleRecord) Title() string   { return r.title }
func (r ArticleRecord) Content() string { return r.content }
func (r ArticleRecord) URL() string     { return r.url }

// Row returns the record in ArticleHeader order.
func (r ArticleRecord) Row() []string {
	return []string{r.keyword, r.title, r.content, r.url}
}

// Map returns the record keyed by column name, for document stores.
func (r ArticleRecord) Map() map[string]string {
	return map[string]string{
		"keyword_searched": r.keyword,
		"title":            r.title,
		"content":          r.content,
		"url":              r.url,
	}
}
