package mdsync

import (
	"strconv"
	"strings"
)

// NodePath is the list of child indices from a fragment root to a node.
// [0, 1] means the second child of the first top-level node.
type NodePath []int

func (p NodePath) String() string {
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return "/" + strings.Join(parts, "/")
}

type OpType string

const (
	OpInsertNode  OpType = "INSERT_NODE"  // Insert a new node under Path at Position
	OpDeleteNode  OpType = "DELETE_NODE"  // Remove the node at Path
	OpReplaceNode OpType = "REPLACE_NODE" // Swap the node at Path for NodeData
	OpUpdateAttr  OpType = "UPDATE_ATTR"  // Set an attribute
	OpRemoveAttr  OpType = "REMOVE_ATTR"  // Drop an attribute
	OpUpdateText  OpType = "UPDATE_TEXT"  // Replace full text
	OpInsertText  OpType = "INSERT_TEXT"  // Insert text at a rune offset
	OpDeleteText  OpType = "DELETE_TEXT"  // Delete OldValue at a rune offset
)

// Operation is one change to a rich fragment. Operations in a Delta are
// applied in order; each path is valid against the result of the ones before.
type Operation struct {
	Type     OpType   `json:"type"`
	Path     NodePath `json:"path"`
	Key      string   `json:"key,omitempty"`       // attribute name
	OldValue string   `json:"old_value,omitempty"` // previous value, verified on patch
	NewValue string   `json:"new_value,omitempty"`
	NodeData string   `json:"node_data,omitempty"` // rendered HTML for inserts and replaces
	Position int      `json:"position,omitempty"`  // child index or rune offset
}

// Delta is the set of operations turning one rich fragment into another.
type Delta struct {
	ID         string      `json:"id"`
	BaseHash   string      `json:"base_hash"`
	Operations []Operation `json:"operations"`
	Timestamp  int64       `json:"timestamp"`
	Author     string      `json:"author"`
}

// Empty reports whether the delta changes nothing.
func (d *Delta) Empty() bool {
	return d == nil || len(d.Operations) == 0
}

// Conflict is one unresolved region produced by Merge or found by
// ScanConflicts. Base is only known to Merge.
type Conflict struct {
	// Line is the zero-based line of the start marker in the merged text.
	Line        int      `json:"line"`
	OursLabel   string   `json:"ours_label,omitempty"`
	TheirsLabel string   `json:"theirs_label,omitempty"`
	Ours        []string `json:"ours"`
	Base        []string `json:"base,omitempty"`
	Theirs      []string `json:"theirs"`
}

// SurfaceKind names the side of a pair a Write targets.
type SurfaceKind int

const (
	SurfaceRich SurfaceKind = iota
	SurfaceMarkup
)

func (k SurfaceKind) String() string {
	if k == SurfaceMarkup {
		return "markup"
	}
	return "rich"
}

// Write is the single surface update a handler may request.
type Write struct {
	Surface SurfaceKind
	Content string
}
