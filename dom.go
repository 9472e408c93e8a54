package mdsync

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment parses rich content as the inside of a <body>. The returned
// root is a detached body element holding the fragment's top-level nodes.
func ParseFragment(content string) (*html.Node, error) {
	root := newFragmentRoot()
	nodes, err := html.ParseFragment(strings.NewReader(content), root)
	if err != nil {
		return nil, parseError(err, "rich fragment")
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

func newFragmentRoot() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

// RenderFragment serializes the children of a fragment root.
func RenderFragment(root *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// RenderNode converts a single node back to a string.
func RenderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// GetNode follows path from root.
func GetNode(root *html.Node, path NodePath) (*html.Node, bool) {
	current := root
	for _, index := range path {
		child := childAt(current, index)
		if child == nil {
			return nil, false
		}
		current = child
	}
	return current, true
}

func childAt(parent *html.Node, index int) *html.Node {
	count := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if count == index {
			return c
		}
		count++
	}
	return nil
}

func childNodes(n *html.Node) []*html.Node {
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	return children
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			out = append(out, a)
		}
	}
	n.Attr = out
}

func insertChildAt(parent, child *html.Node, index int) {
	if ref := childAt(parent, index); ref != nil {
		parent.InsertBefore(child, ref)
		return
	}
	parent.AppendChild(child)
}
