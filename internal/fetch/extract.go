// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// stripTags are removed from the document before text is collected.
var stripTags = []string{
	"script", "style", "nav", "footer", "header", "aside",
	"form", "iframe", "noscript", "svg", "button", "input",
	"select", "textarea", "menu", "dialog",
}

// noisePattern matches class or id values of boilerplate containers.
var noisePattern = regexp.MustCompile(`(?i)(sidebar|comment|advert|banner|popup|modal|cookie|consent|` +
	`share|social|related|recommend|newsletter|subscribe|promo|` +
	`widget|footer|nav|menu|breadcrumb)`)

var contentClassPattern = regexp.MustCompile(`(?i)(content|article|post|entry)`)

const (
	minBlockChars    = 20
	minFragmentChars = 30
)

// ExtractText returns the readable body text of doc. Markup, scripts,
// navigation and other boilerplate are dropped; paragraphs, headings and
// list items from the main content area are kept. The document is modified.
func ExtractText(doc *goquery.Document) string {
	doc.Find(strings.Join(stripTags, ",")).Remove()
	removeComments(doc)

	doc.Find("[class],[id]").Each(func(_ int, s *goquery.Selection) {
		if s.Is("html, body") {
			return
		}
		class, _ := s.Attr("class")
		id, _ := s.Attr("id")
		if noisePattern.MatchString(class) || noisePattern.MatchString(id) {
			s.Remove()
		}
	})

	main := mainContent(doc)
	if main == nil {
		return ""
	}

	var parts []string
	main.Find("p, h1, h2, h3, h4, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if utf8.RuneCountInString(text) > minBlockChars {
			parts = append(parts, text)
		}
	})
	return cleanText(strings.Join(parts, " "))
}

// mainContent picks the element most likely to hold the article body.
func mainContent(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"main", "article", "[role=main]"} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	if s := doc.Find("div[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return contentClassPattern.MatchString(class)
	}).First(); s.Length() > 0 {
		return s
	}
	if s := doc.Find("body").First(); s.Length() > 0 {
		return s
	}
	return nil
}

func removeComments(doc *goquery.Document) {
	var comments []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.CommentNode {
				comments = append(comments, c)
				continue
			}
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	for _, c := range comments {
		if c.Parent != nil {
			c.Parent.RemoveChild(c)
		}
	}
}

// cleanText collapses whitespace and drops sentence fragments of
// minFragmentChars characters or fewer.
func cleanText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	var kept []string
	for _, s := range strings.Split(text, ". ") {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) > minFragmentChars {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, ". ")
}

// pageTitle returns the <title> text, or the first h1.
func pageTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}
