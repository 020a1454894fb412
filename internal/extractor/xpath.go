package extractor

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/newsgoat/internal/types"
)

// XPathExtractor extracts article fields using XPath expressions. The
// paragraph expression is evaluated relative to the body node.
type XPathExtractor struct {
	title     string
	body      string
	paragraph string
	logger    *slog.Logger
}

// NewXPathExtractor creates a new XPath extractor.
func NewXPathExtractor(title, body, paragraph string, logger *slog.Logger) *XPathExtractor {
	return &XPathExtractor{
		title:     title,
		body:      body,
		paragraph: paragraph,
		logger:    logger.With("component", "xpath_extractor"),
	}
}

func (e *XPathExtractor) Name() string { return "xpath" }

// Extract implements Extractor.
func (e *XPathExtractor) Extract(pageURL string, page []byte) (*Fields, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, &types.ExtractError{URL: pageURL, Err: err}
	}

	titleNode, err := htmlquery.Query(doc, e.title)
	if err != nil {
		return nil, &types.ExtractError{URL: pageURL, Selector: e.title, Err: fmt.Errorf("invalid xpath: %w", err)}
	}
	if titleNode == nil {
		return nil, &types.ExtractError{URL: pageURL, Selector: e.title, Err: types.ErrNotArticle}
	}
	title := strings.TrimSpace(htmlquery.InnerText(titleNode))
	if title == "" {
		return nil, &types.ExtractError{URL: pageURL, Selector: e.title, Err: types.ErrNotArticle}
	}

	bodyNode, err := htmlquery.Query(doc, e.body)
	if err != nil {
		return nil, &types.ExtractError{URL: pageURL, Selector: e.body, Err: fmt.Errorf("invalid xpath: %w", err)}
	}
	if bodyNode == nil {
		return nil, &types.ExtractError{URL: pageURL, Selector: e.body, Err: types.ErrNotArticle}
	}

	nodes, err := htmlquery.QueryAll(bodyNode, e.paragraph)
	if err != nil {
		return nil, &types.ExtractError{URL: pageURL, Selector: e.paragraph, Err: fmt.Errorf("invalid xpath: %w", err)}
	}
	paragraphs := make([]string, 0, len(nodes))
	for _, n := range nodes {
		paragraphs = append(paragraphs, strings.TrimSpace(htmlquery.InnerText(n)))
	}

	e.logger.Debug("extracted article", "url", pageURL, "paragraphs", len(paragraphs))
	return &Fields{Title: title, Content: joinParagraphs(paragraphs)}, nil
}
