package mdsync

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// MergeOptions labels the two sides of a conflict block.
type MergeOptions struct {
	OursLabel   string
	TheirsLabel string
}

// MergeResult is the merged markup and the conflicts left in it.
type MergeResult struct {
	Text      string
	Conflicts []Conflict
}

// Clean reports whether the merge needed no conflict markers.
func (r MergeResult) Clean() bool { return len(r.Conflicts) == 0 }

// Merge performs a line-based three-way merge of ours and theirs against
// base. Hunks changed on one side only, or identically on both, merge
// cleanly. Anything else becomes a conflict block bracketed by markers.
func Merge(base, ours, theirs string, opts MergeOptions) MergeResult {
	if opts.OursLabel == "" {
		opts.OursLabel = "ours"
	}
	if opts.TheirsLabel == "" {
		opts.TheirsLabel = "theirs"
	}

	b, o, t := splitMergeLines(base), splitMergeLines(ours), splitMergeLines(theirs)
	toOurs := matchedLines(b, o)
	toTheirs := matchedLines(b, t)

	var out []string
	var conflicts []Conflict
	i, j, k := 0, 0, 0
	for {
		// Next base line that is unchanged on both sides.
		ib := i
		for ib < len(b) && (toOurs[ib] < j || toTheirs[ib] < k) {
			ib++
		}
		jb, kb := len(o), len(t)
		if ib < len(b) {
			jb, kb = toOurs[ib], toTheirs[ib]
		}

		baseHunk, oursHunk, theirsHunk := b[i:ib], o[j:jb], t[k:kb]
		switch {
		case equalLines(oursHunk, baseHunk):
			out = append(out, theirsHunk...)
		case equalLines(theirsHunk, baseHunk), equalLines(oursHunk, theirsHunk):
			out = append(out, oursHunk...)
		default:
			conflicts = append(conflicts, Conflict{
				Line:        len(out),
				OursLabel:   opts.OursLabel,
				TheirsLabel: opts.TheirsLabel,
				Ours:        oursHunk,
				Base:        baseHunk,
				Theirs:      theirsHunk,
			})
			out = append(out, conflictStartText+" "+opts.OursLabel)
			out = append(out, oursHunk...)
			out = append(out, conflictSeparatorText)
			out = append(out, theirsHunk...)
			out = append(out, conflictEndText+" "+opts.TheirsLabel)
		}

		if ib >= len(b) {
			break
		}
		for ib < len(b) && toOurs[ib] == jb && toTheirs[ib] == kb {
			out = append(out, b[ib])
			ib, jb, kb = ib+1, jb+1, kb+1
		}
		i, j, k = ib, jb, kb
	}

	text := strings.Join(out, "\n")
	if strings.HasSuffix(ours, "\n") && text != "" {
		text += "\n"
	}
	return MergeResult{Text: text, Conflicts: conflicts}
}

// matchedLines maps each line of a to its matching line in b, or -1.
func matchedLines(a, b []string) []int {
	out := make([]int, len(a))
	for i := range out {
		out[i] = -1
	}
	matcher := difflib.NewMatcherWithJunk(a, b, false, nil)
	for _, m := range matcher.GetMatchingBlocks() {
		for n := 0; n < m.Size; n++ {
			out[m.A+n] = m.B + n
		}
	}
	return out
}

func splitMergeLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Side selects which part of a conflict Resolve keeps.
type Side int

const (
	SideOurs Side = iota
	SideTheirs
	SideBoth
)

// ScanConflicts finds conflict blocks whose markers start their lines.
// Blocks missing a separator or end marker are ignored.
func ScanConflicts(markup string) []Conflict {
	var conflicts []Conflict
	lines := strings.Split(markup, "\n")
	for i := 0; i < len(lines); i++ {
		label, ok := markerLabel(lines[i], conflictStartText)
		if !ok {
			continue
		}
		c, end, ok := readConflict(lines, i)
		if !ok {
			continue
		}
		c.OursLabel = label
		conflicts = append(conflicts, c)
		i = end
	}
	return conflicts
}

// Resolve replaces every well-formed conflict block with the chosen side.
// Lines outside blocks and unterminated blocks pass through unchanged.
func Resolve(markup string, side Side) string {
	lines := strings.Split(markup, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		if _, ok := markerLabel(lines[i], conflictStartText); ok {
			if c, end, ok := readConflict(lines, i); ok {
				switch side {
				case SideOurs:
					out = append(out, c.Ours...)
				case SideTheirs:
					out = append(out, c.Theirs...)
				default:
					out = append(out, c.Ours...)
					out = append(out, c.Theirs...)
				}
				i = end
				continue
			}
		}
		out = append(out, lines[i])
	}
	return strings.Join(out, "\n")
}

// readConflict reads the block starting at lines[start] and returns the
// index of its end marker.
func readConflict(lines []string, start int) (Conflict, int, bool) {
	c := Conflict{Line: start}
	inTheirs := false
	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		switch {
		case !inTheirs && trimmed == conflictSeparatorText:
			inTheirs = true
		case inTheirs:
			if label, ok := markerLabel(lines[i], conflictEndText); ok {
				c.TheirsLabel = label
				return c, i, true
			}
			c.Theirs = append(c.Theirs, lines[i])
		default:
			if _, ok := markerLabel(lines[i], conflictStartText); ok {
				return Conflict{}, 0, false
			}
			c.Ours = append(c.Ours, lines[i])
		}
	}
	return Conflict{}, 0, false
}

// markerLabel reports whether line is the given marker, alone or followed by
// a space and a label.
func markerLabel(line, marker string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == marker {
		return "", true
	}
	if rest, ok := strings.CutPrefix(trimmed, marker+" "); ok {
		return strings.TrimSpace(rest), true
	}
	return "", false
}
