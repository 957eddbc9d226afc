package adapters

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/tinthat/internal/model"
)

// Adapter pulls the headline and body text out of one family of news pages
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter can handle the given URL/content
	CanHandle(url string, contentType string) bool

	// ExtractArticle returns the title and body paragraphs, one per line
	ExtractArticle(doc *html.Node, rawHTML string, url string) (model.Article, error)
}

// Registry manages site adapters
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry creates a registry with the built-in news adapters
func NewRegistry() *Registry {
	registry := &Registry{}
	for _, site := range DefaultSites() {
		registry.Register(NewNewsAdapter(site))
	}
	registry.generic = NewGenericAdapter()
	return registry
}

// Register registers a new adapter
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter finds the best adapter for the given URL and content type
func (r *Registry) FindAdapter(url string, contentType string) Adapter {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(url, contentType) {
			return adapter
		}
	}
	return r.generic
}

// Extract parses rawHTML and runs the matching adapter, falling back to the
// generic one when a site adapter finds no body. It returns the adapter used.
func (r *Registry) Extract(rawHTML, url, contentType string) (model.Article, string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return model.Article{}, "", fmt.Errorf("parse HTML: %w", err)
	}

	adapter := r.FindAdapter(url, contentType)
	article, err := adapter.ExtractArticle(doc, rawHTML, url)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		article.URL = url
		return article, adapter.Name(), nil
	}
	if adapter == r.generic {
		return model.Article{}, adapter.Name(), fmt.Errorf("no article text found at %s", url)
	}

	article, err = r.generic.ExtractArticle(doc, rawHTML, url)
	if err != nil {
		return model.Article{}, r.generic.Name(), err
	}
	if strings.TrimSpace(article.Content) == "" {
		return model.Article{}, r.generic.Name(), fmt.Errorf("no article text found at %s", url)
	}
	article.URL = url
	return article, r.generic.Name(), nil
}

// BaseAdapter provides DOM helpers for adapters
type BaseAdapter struct{}

// ExtractText returns the node's text with whitespace collapsed
func (b *BaseAdapter) ExtractText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			buf.WriteString(node.Data)
			buf.WriteByte(' ')
			return
		}
		if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

// HasClass checks if a node has a specific CSS class
func (b *BaseAdapter) HasClass(n *html.Node, className string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, attr := range n.Attr {
		if attr.Key == "class" {
			for _, class := range strings.Fields(attr.Val) {
				if class == className {
					return true
				}
			}
		}
	}
	return false
}

// GetAttribute gets an attribute value from a node
func (b *BaseAdapter) GetAttribute(n *html.Node, attrKey string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrKey {
			return attr.Val
		}
	}
	return ""
}

// FindAll finds all nodes matching a predicate
func (b *BaseAdapter) FindAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return results
}

// FindFirst finds the first node matching a predicate
func (b *BaseAdapter) FindFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	var result *html.Node
	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if predicate(node) {
			result = node
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(n)
	return result
}

// Selector matches an element by tag and, optionally, class
type Selector struct {
	Tag   string
	Class string
}

func (b *BaseAdapter) matches(n *html.Node, s Selector) bool {
	if n.Type != html.ElementNode || n.Data != s.Tag {
		return false
	}
	return s.Class == "" || b.HasClass(n, s.Class)
}
