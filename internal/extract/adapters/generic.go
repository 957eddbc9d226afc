package adapters

import (
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/ppiankov/tinthat/internal/extract"
	"github.com/ppiankov/tinthat/internal/model"
)

// GenericAdapter is the fallback adapter for unknown domains.
// It runs readability and, when that finds nothing, keeps all visible text.
type GenericAdapter struct {
	BaseAdapter
}

// NewGenericAdapter creates a new generic adapter
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

// Name returns the adapter name
func (a *GenericAdapter) Name() string {
	return "generic"
}

// CanHandle always returns true (fallback adapter)
func (a *GenericAdapter) CanHandle(url string, contentType string) bool {
	return true
}

// ExtractArticle returns readability's main content, or the page's visible text
func (a *GenericAdapter) ExtractArticle(doc *html.Node, rawHTML string, rawURL string) (model.Article, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || pageURL.Host == "" {
		pageURL = &url.URL{Scheme: "https", Host: "localhost"}
	}

	parsed, err := readability.FromReader(strings.NewReader(rawHTML), pageURL)
	if err == nil && strings.TrimSpace(parsed.TextContent) != "" {
		return model.Article{
			Title:   strings.TrimSpace(parsed.Title),
			Content: strings.TrimSpace(parsed.TextContent),
		}, nil
	}

	article := model.Article{Content: extract.NodeText(doc)}
	if title := a.FindFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "title"
	}); title != nil {
		article.Title = a.ExtractText(title)
	}
	return article, nil
}
