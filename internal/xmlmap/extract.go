// Package xmlmap maps fields of typed records onto an XML tree.
//
// A record holds one *xmlquery.Node and declares its fields as package-level
// extractors. Each extractor pairs a relative XPath, compiled once at
// declaration, with a converter and a Policy. Reads are evaluated against the
// node every time; nothing is cached and the tree is never modified, so the
// same read on the same node always returns the same result.
package xmlmap

import (
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Converter turns trimmed text into a typed value.
type Converter[T any] func(string) (T, error)

func String(s string) (string, error) { return s, nil }

func Int64(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

func Float64(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// Policy decides what an absent field yields.
type Policy[T any] struct {
	value    T
	required bool
}

// Default returns v when the field is absent.
func Default[T any](v T) Policy[T] { return Policy[T]{value: v} }

// Required fails with ErrMissingField when the field is absent.
func Required[T any]() Policy[T] { return Policy[T]{required: true} }

func (p Policy[T]) absent(field string) (T, error) {
	if p.required {
		var zero T
		return zero, missing(field)
	}
	return p.value, nil
}

type selector struct {
	path string
	expr *xpath.Expr
}

func compile(path string) selector {
	return selector{path: path, expr: xpath.MustCompile(path)}
}

func (s selector) first(n *xmlquery.Node) *xmlquery.Node {
	if n == nil {
		return nil
	}
	return xmlquery.QuerySelector(n, s.expr)
}

func (s selector) all(n *xmlquery.Node) []*xmlquery.Node {
	if n == nil {
		return nil
	}
	return xmlquery.QuerySelectorAll(n, s.expr)
}

// Text reads the leading text of the first node matching a path. Text inside
// child elements is not part of the value.
type Text[T any] struct {
	sel    selector
	conv   Converter[T]
	policy Policy[T]
}

func NewText[T any](path string, conv Converter[T], policy Policy[T]) Text[T] {
	return Text[T]{sel: compile(path), conv: conv, policy: policy}
}

func (f Text[T]) Path() string { return f.sel.path }

func (f Text[T]) Get(owner *xmlquery.Node) (T, error) {
	var raw string
	if n := f.sel.first(owner); n != nil {
		raw = strings.TrimSpace(OwnText(n))
	}
	return convert(f.sel.path, raw, f.conv, f.policy)
}

// OwnText collects the text and CDATA of n up to its first child element.
func OwnText(n *xmlquery.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			b.WriteString(c.Data)
		case xmlquery.ElementNode:
			return b.String()
		}
	}
	return b.String()
}

// Attr reads an attribute of the first node matching a path.
type Attr[T any] struct {
	name   string
	sel    selector
	conv   Converter[T]
	policy Policy[T]
}

func NewAttr[T any](name, path string, conv Converter[T], policy Policy[T]) Attr[T] {
	return Attr[T]{name: name, sel: compile(path), conv: conv, policy: policy}
}

func (f Attr[T]) Path() string { return f.sel.path + "/@" + f.name }

func (f Attr[T]) Get(owner *xmlquery.Node) (T, error) {
	var raw string
	if n := f.sel.first(owner); n != nil {
		raw = strings.TrimSpace(n.SelectAttr(f.name))
	}
	return convert(f.Path(), raw, f.conv, f.policy)
}

func convert[T any](field, raw string, conv Converter[T], policy Policy[T]) (T, error) {
	if raw == "" {
		return policy.absent(field)
	}
	v, err := conv(raw)
	if err != nil {
		var zero T
		return zero, conversion(field, raw, err)
	}
	return v, nil
}

// Child wraps the first node matching a path.
type Child[W any] struct {
	sel    selector
	wrap   func(*xmlquery.Node) W
	policy Policy[W]
}

// NewChild declares a single child field. An empty path matches any immediate child.
func NewChild[W any](path string, wrap func(*xmlquery.Node) W, policy Policy[W]) Child[W] {
	if path == "" {
		path = "*"
	}
	return Child[W]{sel: compile(path), wrap: wrap, policy: policy}
}

func (f Child[W]) Path() string { return f.sel.path }

func (f Child[W]) Get(owner *xmlquery.Node) (W, error) {
	n := f.sel.first(owner)
	if n == nil {
		return f.policy.absent(f.sel.path)
	}
	return f.wrap(n), nil
}

// Children wraps every node matching a path, in document order.
type Children[W any] struct {
	sel  selector
	wrap func(*xmlquery.Node) W
}

func NewChildren[W any](path string, wrap func(*xmlquery.Node) W) Children[W] {
	if path == "" {
		path = "*"
	}
	return Children[W]{sel: compile(path), wrap: wrap}
}

func (f Children[W]) Path() string { return f.sel.path }

// Get never returns nil.
func (f Children[W]) Get(owner *xmlquery.Node) []W {
	nodes := f.sel.all(owner)
	out := make([]W, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, f.wrap(n))
	}
	return out
}
