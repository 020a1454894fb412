package extractor

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/newsgoat/internal/types"
)

// CSSExtractor extracts article fields using CSS selectors via goquery.
type CSSExtractor struct {
	title     string
	body      string
	paragraph string
	logger    *slog.Logger
}

// NewCSSExtractor creates a new CSS selector extractor.
func NewCSSExtractor(title, body, paragraph string, logger *slog.Logger) *CSSExtractor {
	return &CSSExtractor{
		title:     title,
		body:      body,
		paragraph: paragraph,
		logger:    logger.With("component", "css_extractor"),
	}
}

func (e *CSSExtractor) Name() string { return "css" }

// Extract implements Extractor.
func (e *CSSExtractor) Extract(pageURL string, html []byte) (*Fields, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &types.ExtractError{URL: pageURL, Err: err}
	}

	titleSel := doc.Find(e.title).First()
	if titleSel.Length() == 0 {
		return nil, &types.ExtractError{URL: pageURL, Selector: e.title, Err: types.ErrNotArticle}
	}
	title := strings.TrimSpace(titleSel.Text())
	if title == "" {
		return nil, &types.ExtractError{URL: pageURL, Selector: e.title, Err: types.ErrNotArticle}
	}

	bodySel := doc.Find(e.body).First()
	if bodySel.Length() == 0 {
		return nil, &types.ExtractError{URL: pageURL, Selector: e.body, Err: types.ErrNotArticle}
	}

	var paragraphs []string
	bodySel.Find(e.paragraph).Each(func(_ int, p *goquery.Selection) {
		paragraphs = append(paragraphs, strings.TrimSpace(p.Text()))
	})

	e.logger.Debug("extracted article", "url", pageURL, "paragraphs", len(paragraphs))
	return &Fields{Title: title, Content: joinParagraphs(paragraphs)}, nil
}
