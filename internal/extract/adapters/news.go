package adapters

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/tinthat/internal/model"
)

// Site describes where a news site keeps its headline, lead and body
type Site struct {
	Name      string
	Hosts     []string
	Title     []Selector
	Sapo      []Selector // Lead paragraph, prepended to the body
	Body      []Selector // Container of body paragraphs
	Paragraph Selector
}

// DefaultSites covers the major Vietnamese outlets
func DefaultSites() []Site {
	return []Site{
		{
			Name:      "vnexpress",
			Hosts:     []string{"vnexpress.net"},
			Title:     []Selector{{"h1", "title-detail"}},
			Sapo:      []Selector{{"p", "description"}},
			Body:      []Selector{{"article", "fck_detail"}},
			Paragraph: Selector{"p", "Normal"},
		},
		{
			Name:      "tuoitre",
			Hosts:     []string{"tuoitre.vn"},
			Title:     []Selector{{"h1", "detail-title"}, {"h1", "article-title"}},
			Sapo:      []Selector{{"h2", "detail-sapo"}},
			Body:      []Selector{{"div", "detail-content"}},
			Paragraph: Selector{"p", ""},
		},
		{
			Name:      "thanhnien",
			Hosts:     []string{"thanhnien.vn"},
			Title:     []Selector{{"h1", "detail-title"}},
			Sapo:      []Selector{{"h2", "detail-sapo"}},
			Body:      []Selector{{"div", "detail-content"}},
			Paragraph: Selector{"p", ""},
		},
		{
			Name:      "dantri",
			Hosts:     []string{"dantri.com.vn"},
			Title:     []Selector{{"h1", "title-page"}, {"h1", "e-magazine__title"}},
			Sapo:      []Selector{{"h2", "singular-sapo"}},
			Body:      []Selector{{"div", "singular-content"}},
			Paragraph: Selector{"p", ""},
		},
	}
}

// NewsAdapter extracts articles using a site's known markup
type NewsAdapter struct {
	BaseAdapter
	site Site
}

// NewNewsAdapter creates an adapter for one site
func NewNewsAdapter(site Site) *NewsAdapter {
	return &NewsAdapter{site: site}
}

// Name returns the site name
func (a *NewsAdapter) Name() string {
	return a.site.Name
}

// CanHandle matches the URL host or any of its subdomains
func (a *NewsAdapter) CanHandle(rawURL string, contentType string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, h := range a.site.Hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// ExtractArticle reads the title, sapo and body paragraphs
func (a *NewsAdapter) ExtractArticle(doc *html.Node, _ string, _ string) (model.Article, error) {
	var article model.Article
	if n := a.first(doc, a.site.Title); n != nil {
		article.Title = a.ExtractText(n)
	}

	var lines []string
	if n := a.first(doc, a.site.Sapo); n != nil {
		if text := a.ExtractText(n); text != "" {
			lines = append(lines, text)
		}
	}
	if body := a.first(doc, a.site.Body); body != nil {
		for _, p := range a.FindAll(body, func(n *html.Node) bool { return a.matches(n, a.site.Paragraph) }) {
			if text := a.ExtractText(p); text != "" {
				lines = append(lines, text)
			}
		}
	}
	article.Content = strings.Join(lines, "\n")
	return article, nil
}

func (a *NewsAdapter) first(doc *html.Node, selectors []Selector) *html.Node {
	for _, s := range selectors {
		if n := a.FindFirst(doc, func(n *html.Node) bool { return a.matches(n, s) }); n != nil {
			return n
		}
	}
	return nil
}
