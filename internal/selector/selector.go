// Package selector evaluates location expressions against parsed HTML
// documents.
//
// An expression is a CSS selector optionally followed by one final step:
//
//	table.findList tr            matching elements, full text content
//	td.result_text a/@href       attribute of the first match
//	h1/text()                    own text of the first match
//
// Predicates such as `h5:contains("Runtime")` and `a[href*="/year/"]` come
// from the CSS selector grammar.
package selector

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Expr is a compiled location expression. It is safe for concurrent use.
type Expr struct {
	raw     string
	matcher cascadia.Selector
	attr    string
	ownText bool
}

// Compile parses expr.
func Compile(expr string) (*Expr, error) {
	e := &Expr{raw: expr}
	css := strings.TrimSpace(expr)
	switch {
	case strings.HasSuffix(css, "/text()"):
		e.ownText = true
		css = strings.TrimSuffix(css, "/text()")
	default:
		if i := strings.LastIndex(css, "/@"); i >= 0 {
			e.attr = strings.TrimSpace(css[i+2:])
			css = css[:i]
			if e.attr == "" {
				return nil, fmt.Errorf("selector %q: empty attribute step", expr)
			}
		}
	}
	css = strings.TrimSpace(css)
	if css == "" {
		return nil, fmt.Errorf("selector %q: empty selector", expr)
	}
	m, err := cascadia.Compile(css)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", expr, err)
	}
	e.matcher = m
	return e, nil
}

// MustCompile is like Compile but panics on an invalid expression. Invalid
// expressions are programming errors.
func MustCompile(expr string) *Expr {
	e, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Expr) String() string { return e.raw }

// Document is a parsed HTML document. Selection never mutates it.
type Document struct {
	doc *goquery.Document
}

// Parse reads an HTML document, decoding it to UTF-8 according to the
// content type and any <meta charset> declaration.
func Parse(r io.Reader, contentType string) (*Document, error) {
	utf8, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(utf8)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{doc: doc}, nil
}

// ParseBytes is Parse over an in-memory body.
func ParseBytes(body []byte, contentType string) (*Document, error) {
	return Parse(bytes.NewReader(body), contentType)
}

// FromNode wraps an already parsed tree.
func FromNode(root *html.Node) *Document {
	return &Document{doc: goquery.NewDocumentFromNode(root)}
}

// Root returns the document as a Node for scoped selection.
func (d *Document) Root() Node { return Node{sel: d.doc.Selection} }

// Node is one element of a document, or the document root.
type Node struct {
	sel *goquery.Selection
}

// Valid reports whether n refers to an element.
func (n Node) Valid() bool { return n.sel != nil && n.sel.Length() > 0 }

// Selection exposes the underlying goquery selection.
func (n Node) Selection() *goquery.Selection { return n.sel }

// Text returns the trimmed text content of n and its descendants.
func (n Node) Text() string {
	if !n.Valid() {
		return ""
	}
	return strings.TrimSpace(n.sel.Text())
}

// OwnText returns the trimmed text of n's direct text children.
func (n Node) OwnText() string {
	if !n.Valid() {
		return ""
	}
	var b strings.Builder
	for c := n.sel.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

// Scope is anything a selection can start from.
type Scope interface {
	scope() *goquery.Selection
}

func (d *Document) scope() *goquery.Selection { return d.doc.Selection }
func (n Node) scope() *goquery.Selection      { return n.sel }

// SelectNodes returns every element matching e under s, in document order.
// Repeated calls return the same sequence.
func SelectNodes(e *Expr, s Scope) []Node {
	sel := s.scope()
	if sel == nil {
		return nil
	}
	found := sel.FindMatcher(e.matcher)
	nodes := make([]Node, 0, found.Length())
	found.Each(func(_ int, item *goquery.Selection) {
		nodes = append(nodes, Node{sel: item})
	})
	return nodes
}

// SelectNode returns the first element matching e under s.
func SelectNode(e *Expr, s Scope) (Node, bool) {
	sel := s.scope()
	if sel == nil {
		return Node{}, false
	}
	found := sel.FindMatcher(e.matcher)
	if found.Length() == 0 {
		return Node{}, false
	}
	return Node{sel: found.First()}, true
}

// SelectString evaluates e under s and returns the value of its final step
// for the first match. A missing match yields "", never an error.
func SelectString(e *Expr, s Scope) string {
	n, ok := SelectNode(e, s)
	if !ok {
		return ""
	}
	switch {
	case e.attr != "":
		return Attribute(e.attr, n)
	case e.ownText:
		return n.OwnText()
	}
	return n.Text()
}

// SelectStrings is SelectString applied to every match, skipping empties.
func SelectStrings(e *Expr, s Scope) []string {
	var out []string
	for _, n := range SelectNodes(e, s) {
		var v string
		switch {
		case e.attr != "":
			v = Attribute(e.attr, n)
		case e.ownText:
			v = n.OwnText()
		default:
			v = n.Text()
		}
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Attribute returns the trimmed value of the named attribute, or "".
func Attribute(name string, n Node) string {
	if !n.Valid() {
		return ""
	}
	v, _ := n.sel.Attr(name)
	return strings.TrimSpace(v)
}
