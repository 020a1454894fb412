package extractor

import (
	"bytes"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/IshaanNene/newsgoat/internal/types"
)

// ReadabilityExtractor finds the main content without site selectors.
// Each <p> in the readable node becomes one paragraph; when there are none,
// each non-blank line of the readable text does.
type ReadabilityExtractor struct {
	logger *slog.Logger
}

// NewReadabilityExtractor creates a readability-based extractor.
func NewReadabilityExtractor(logger *slog.Logger) *ReadabilityExtractor {
	return &ReadabilityExtractor{logger: logger.With("component", "readability_extractor")}
}

func (e *ReadabilityExtractor) Name() string { return "readability" }

// Extract implements Extractor.
func (e *ReadabilityExtractor) Extract(pageURL string, html []byte) (*Fields, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, &types.ExtractError{URL: pageURL, Err: err}
	}

	article, err := readability.FromReader(bytes.NewReader(html), u)
	if err != nil {
		return nil, &types.ExtractError{URL: pageURL, Err: types.ErrNotArticle}
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		return nil, &types.ExtractError{URL: pageURL, Selector: "title", Err: types.ErrNotArticle}
	}

	paragraphs := nodeParagraphs(article)
	if len(paragraphs) == 0 {
		for _, line := range strings.Split(article.TextContent, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				paragraphs = append(paragraphs, line)
			}
		}
	}
	if len(paragraphs) == 0 {
		return nil, &types.ExtractError{URL: pageURL, Selector: "content", Err: types.ErrNotArticle}
	}

	return &Fields{Title: title, Content: joinParagraphs(paragraphs)}, nil
}

func nodeParagraphs(article readability.Article) []string {
	if article.Node == nil {
		return nil
	}
	var paragraphs []string
	goquery.NewDocumentFromNode(article.Node).Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return paragraphs
}
