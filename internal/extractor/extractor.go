// Package extractor pulls an article's title and body text out of a page.
package extractor

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/IshaanNene/newsgoat/internal/config"
)

// ParagraphSeparator joins body paragraphs into the content column.
const ParagraphSeparator = "\n\n"

// Fields is what an article page yields.
type Fields struct {
	Title   string
	Content string
}

// Extractor reads article fields from a fetched page. A page missing the
// title or body container returns an *types.ExtractError wrapping
// types.ErrNotArticle.
type Extractor interface {
	Extract(pageURL string, html []byte) (*Fields, error)
	Name() string
}

// New returns the extractor the site asks for.
func New(site config.SiteConfig, logger *slog.Logger) (Extractor, error) {
	switch site.Extractor {
	case config.ExtractorReadability:
		return NewReadabilityExtractor(logger), nil
	case config.ExtractorSelectors, "":
	default:
		return nil, fmt.Errorf("unknown extractor %q", site.Extractor)
	}

	switch site.SelectorType {
	case "xpath":
		return NewXPathExtractor(site.TitleSelector, site.BodySelector, site.ParagraphSelector, logger), nil
	case "css", "":
		return NewCSSExtractor(site.TitleSelector, site.BodySelector, site.ParagraphSelector, logger), nil
	default:
		return nil, fmt.Errorf("unknown selector_type %q", site.SelectorType)
	}
}

func joinParagraphs(paragraphs []string) string {
	return strings.Join(paragraphs, ParagraphSeparator)
}
