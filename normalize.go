package mdsync

import "strings"

// Normalize trims every line, drops blank lines, and joins the rest with
// newlines. It is the comparison basis for deciding whether a markup edit
// changed anything.
func Normalize(markup string) string {
	lines := strings.Split(markup, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
