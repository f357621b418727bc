package search

import (
	"bytes"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

var (
	excessiveLinesRe = regexp.MustCompile(`\n{4,}`)
	trailingSpaceRe  = regexp.MustCompile(`[ \t]+\n`)
)

// ConvertResult is a converted page.
type ConvertResult struct {
	Title    string
	Markdown string
}

// Converter reduces HTML to readable markdown.
type Converter struct {
	converter *md.Converter
}

// NewConverter creates a converter with GitHub-flavored markdown output.
func NewConverter() *Converter {
	c := md.NewConverter("", true, nil)
	c.Use(plugin.GitHubFlavored())
	return &Converter{converter: c}
}

// Convert strips navigation chrome from the HTML and renders markdown.
func (c *Converter) Convert(content []byte) (*ConvertResult, error) {
	title := htmlTitle(content)

	markdown, err := c.converter.ConvertString(stripChrome(content))
	if err != nil {
		return nil, err
	}

	markdown = excessiveLinesRe.ReplaceAllString(markdown, "\n\n\n")
	markdown = trailingSpaceRe.ReplaceAllString(markdown, "\n")
	markdown = strings.TrimSpace(markdown)

	return &ConvertResult{Title: title, Markdown: markdown}, nil
}

func htmlTitle(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return title
}

// stripChrome prefers the page's main/article element and otherwise drops the
// non-content elements before rendering.
func stripChrome(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return string(content)
	}

	for _, tag := range []string{"main", "article"} {
		if node := findTag(doc, tag); node != nil {
			return renderNode(node)
		}
	}

	dropTags(doc, []string{
		"nav", "header", "footer", "aside", "script", "style",
		"noscript", "iframe", "form",
	})

	if body := findTag(doc, "body"); body != nil {
		return renderNode(body)
	}
	return string(content)
}

func findTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findTag(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func dropTags(n *html.Node, tags []string) {
	drop := make(map[string]bool, len(tags))
	for _, tag := range tags {
		drop[tag] = true
	}

	var victims []*html.Node
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.ElementNode && drop[node.Data] {
			victims = append(victims, node)
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(n)

	for _, victim := range victims {
		if victim.Parent != nil {
			victim.Parent.RemoveChild(victim)
		}
	}
}

func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}
