package mdsync

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// Diff calculates the operations that turn oldRich into newRich. The result
// can be replayed with Patch or handed to a surface that patches in place.
func Diff(oldRich, newRich, author string) (*Delta, error) {
	oldRoot, err := ParseFragment(oldRich)
	if err != nil {
		return nil, err
	}
	newRoot, err := ParseFragment(newRich)
	if err != nil {
		return nil, err
	}

	ops, err := diffChildren(oldRoot, newRoot, NodePath{})
	if err != nil {
		return nil, err
	}

	return &Delta{
		ID:         uuid.NewString(),
		BaseHash:   hashString(oldRich),
		Operations: ops,
		Timestamp:  time.Now().Unix(),
		Author:     author,
	}, nil
}

func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// diffNodes compares two nodes sitting at the same path.
func diffNodes(oldNode, newNode *html.Node, path NodePath) ([]Operation, error) {
	if !sameKind(oldNode, newNode) {
		data, err := RenderNode(newNode)
		if err != nil {
			return nil, err
		}
		return []Operation{{Type: OpReplaceNode, Path: path, NodeData: data}}, nil
	}

	switch oldNode.Type {
	case html.TextNode:
		return diffText(oldNode.Data, newNode.Data, path), nil
	case html.CommentNode:
		if oldNode.Data != newNode.Data {
			return []Operation{{Type: OpUpdateText, Path: path, OldValue: oldNode.Data, NewValue: newNode.Data}}, nil
		}
		return nil, nil
	}

	ops := diffAttributes(oldNode, newNode, path)
	childOps, err := diffChildren(oldNode, newNode, path)
	if err != nil {
		return nil, err
	}
	return append(ops, childOps...), nil
}

func sameKind(a, b *html.Node) bool {
	if a.Type != b.Type {
		return false
	}
	if a.Type == html.ElementNode {
		return a.DataAtom == b.DataAtom && a.Data == b.Data
	}
	return true
}

// diffText emits a delete and/or an insert covering the changed middle of
// a text node. Offsets count runes.
func diffText(oldText, newText string, path NodePath) []Operation {
	if oldText == newText {
		return nil
	}
	a, b := []rune(oldText), []rune(newText)
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}

	var ops []Operation
	if removed := a[prefix : len(a)-suffix]; len(removed) > 0 {
		ops = append(ops, Operation{Type: OpDeleteText, Path: path, Position: prefix, OldValue: string(removed)})
	}
	if inserted := b[prefix : len(b)-suffix]; len(inserted) > 0 {
		ops = append(ops, Operation{Type: OpInsertText, Path: path, Position: prefix, NewValue: string(inserted)})
	}
	return ops
}

func diffAttributes(oldNode, newNode *html.Node, path NodePath) []Operation {
	var ops []Operation
	for _, a := range oldNode.Attr {
		if !hasAttr(newNode, a.Key) {
			ops = append(ops, Operation{Type: OpRemoveAttr, Path: path, Key: a.Key, OldValue: a.Val})
			continue
		}
		if v := attr(newNode, a.Key); v != a.Val {
			ops = append(ops, Operation{Type: OpUpdateAttr, Path: path, Key: a.Key, OldValue: a.Val, NewValue: v})
		}
	}
	for _, a := range newNode.Attr {
		if !hasAttr(oldNode, a.Key) {
			ops = append(ops, Operation{Type: OpUpdateAttr, Path: path, Key: a.Key, NewValue: a.Val})
		}
	}
	return ops
}

// diffChildren matches children by index. Surplus old children are deleted
// from the end first so earlier indices stay valid; surplus new children are
// appended afterwards.
func diffChildren(oldNode, newNode *html.Node, parentPath NodePath) ([]Operation, error) {
	var ops []Operation
	oldChildren := childNodes(oldNode)
	newChildren := childNodes(newNode)
	common := min(len(oldChildren), len(newChildren))

	for i := 0; i < common; i++ {
		childOps, err := diffNodes(oldChildren[i], newChildren[i], childPath(parentPath, i))
		if err != nil {
			return nil, err
		}
		ops = append(ops, childOps...)
	}

	for i := len(oldChildren) - 1; i >= common; i-- {
		ops = append(ops, Operation{Type: OpDeleteNode, Path: childPath(parentPath, i)})
	}

	for i := common; i < len(newChildren); i++ {
		data, err := RenderNode(newChildren[i])
		if err != nil {
			return nil, err
		}
		ops = append(ops, Operation{
			Type:     OpInsertNode,
			Path:     append(NodePath(nil), parentPath...),
			Position: i,
			NodeData: data,
		})
	}
	return ops, nil
}

func childPath(parent NodePath, index int) NodePath {
	path := make(NodePath, len(parent), len(parent)+1)
	copy(path, parent)
	return append(path, index)
}
