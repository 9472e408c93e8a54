package mdsync

import (
	"testing"

	"golang.org/x/net/html"
)

func TestPathing(t *testing.T) {
	root, err := ParseFragment(`<div><p>Hello</p></div><p>World</p>`)
	if err != nil {
		t.Fatalf("Failed to parse fragment: %v", err)
	}

	// root -> div (0) -> p (0) -> text "Hello" (0)
	node, ok := GetNode(root, NodePath{0, 0, 0})
	if !ok {
		t.Fatal("GetNode failed")
	}
	if node.Type != html.TextNode {
		t.Errorf("Expected TextNode, got %d", node.Type)
	}
	if node.Data != "Hello" {
		t.Errorf("Expected node data 'Hello', got '%s'", node.Data)
	}

	if _, ok := GetNode(root, NodePath{3}); ok {
		t.Error("Expected missing node for out of range path")
	}
}

func TestRenderFragmentKeepsTopLevelNodes(t *testing.T) {
	input := "<p>a</p>\n<p>b &amp; c</p>"
	root, err := ParseFragment(input)
	if err != nil {
		t.Fatalf("Failed to parse fragment: %v", err)
	}
	got, err := RenderFragment(root)
	if err != nil {
		t.Fatalf("RenderFragment failed: %v", err)
	}
	if got != input {
		t.Errorf("Render mismatch.\nWant: %q\nGot:  %q", input, got)
	}
}

func TestNodePathString(t *testing.T) {
	if got := (NodePath{0, 2, 1}).String(); got != "/0/2/1" {
		t.Errorf("Expected /0/2/1, got %s", got)
	}
	if got := (NodePath{}).String(); got != "/" {
		t.Errorf("Expected /, got %s", got)
	}
}
