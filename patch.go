package mdsync

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Patch applies delta to rich. The delta must have been computed against
// exactly this content.
func Patch(rich string, delta *Delta) (string, error) {
	if current := hashString(rich); current != delta.BaseHash {
		return "", baseMismatchError(delta.BaseHash, current)
	}

	root, err := ParseFragment(rich)
	if err != nil {
		return "", err
	}
	for i, op := range delta.Operations {
		if err := applyOp(root, op); err != nil {
			return "", fmt.Errorf("apply op %d (%s): %w", i, op.Type, err)
		}
	}
	return RenderFragment(root)
}

func applyOp(root *html.Node, op Operation) error {
	node, ok := GetNode(root, op.Path)
	if !ok {
		return invalidPathError(op.Path, op.Type)
	}

	switch op.Type {
	case OpUpdateText:
		if node.Type != html.TextNode && node.Type != html.CommentNode {
			return fmt.Errorf("target of %s is not a text node", op.Type)
		}
		if node.Data != op.OldValue {
			return fmt.Errorf("%s old value mismatch: want %q, got %q", op.Type, op.OldValue, node.Data)
		}
		node.Data = op.NewValue

	case OpInsertText, OpDeleteText:
		if node.Type != html.TextNode {
			return fmt.Errorf("target of %s is not a text node", op.Type)
		}
		text := []rune(node.Data)
		if op.Position < 0 || op.Position > len(text) {
			return fmt.Errorf("%s offset %d out of range", op.Type, op.Position)
		}
		if op.Type == OpInsertText {
			node.Data = string(text[:op.Position]) + op.NewValue + string(text[op.Position:])
			return nil
		}
		removed := []rune(op.OldValue)
		end := op.Position + len(removed)
		if end > len(text) || string(text[op.Position:end]) != op.OldValue {
			return fmt.Errorf("%s old value mismatch at offset %d", op.Type, op.Position)
		}
		node.Data = string(text[:op.Position]) + string(text[end:])

	case OpUpdateAttr:
		if node.Type != html.ElementNode {
			return fmt.Errorf("target of %s is not an element", op.Type)
		}
		setAttr(node, op.Key, op.NewValue)

	case OpRemoveAttr:
		if node.Type != html.ElementNode {
			return fmt.Errorf("target of %s is not an element", op.Type)
		}
		removeAttr(node, op.Key)

	case OpInsertNode:
		parsed, err := parseNodeData(node, op.NodeData)
		if err != nil {
			return err
		}
		if parsed != nil {
			insertChildAt(node, parsed, op.Position)
		}

	case OpDeleteNode, OpReplaceNode:
		parent := node.Parent
		if parent == nil {
			return fmt.Errorf("%s cannot target the fragment root", op.Type)
		}
		if op.Type == OpReplaceNode {
			parsed, err := parseNodeData(parent, op.NodeData)
			if err != nil {
				return err
			}
			if parsed != nil {
				parent.InsertBefore(parsed, node)
			}
		}
		parent.RemoveChild(node)

	default:
		return fmt.Errorf("unknown operation type: %s", op.Type)
	}
	return nil
}

// parseNodeData parses serialized node data in the context of parent.
func parseNodeData(parent *html.Node, data string) (*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(data), parent)
	if err != nil {
		return nil, parseError(err, "node data")
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return nodes[0], nil
}
