package mdsync

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

var delimiterEscaper = strings.NewReplacer(
	"[-", `\[-`,
	"-]", `-\]`,
	"{+", `\{+`,
	"+}", `+\}`,
)

// WordDiff annotates the change from before to after in the diff span dialect:
// removed words as [-...-], added words as {+...+}. Spans never cross a line
// and changes that only touch whitespace are written as the new text.
func WordDiff(before, after string) string {
	a, b := wordTokens(before), wordTokens(after)
	matcher := difflib.NewMatcherWithJunk(a, b, false, nil)

	var out strings.Builder
	for _, op := range matcher.GetOpCodes() {
		removed := strings.Join(a[op.I1:op.I2], "")
		added := strings.Join(b[op.J1:op.J2], "")
		switch op.Tag {
		case 'e':
			out.WriteString(delimiterEscaper.Replace(added))
		case 'd':
			if strings.TrimSpace(removed) != "" {
				annotate(&out, removed, "[-", "-]", true)
			}
		case 'i':
			annotate(&out, added, "{+", "+}", true)
		case 'r':
			if strings.TrimSpace(removed) != "" {
				annotate(&out, removed, "[-", "-]", false)
			}
			annotate(&out, added, "{+", "+}", true)
		}
	}
	return out.String()
}

// annotate wraps each line of text in a span. Whitespace around the words
// is kept outside the span when keepSpace is set and dropped otherwise.
// Text with no words is written as is.
func annotate(out *strings.Builder, text, opening, closing string, keepSpace bool) {
	if strings.TrimSpace(text) == "" {
		out.WriteString(text)
		return
	}
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out.WriteByte('\n')
		}
		core := strings.TrimSpace(line)
		if core == "" {
			if keepSpace {
				out.WriteString(line)
			}
			continue
		}
		start := strings.Index(line, core)
		if keepSpace {
			out.WriteString(line[:start])
		}
		out.WriteString(opening + delimiterEscaper.Replace(core) + closing)
		if keepSpace {
			out.WriteString(line[start+len(core):])
		}
	}
}

// wordTokens splits s into alternating runs of whitespace and non-whitespace.
// Joining the tokens gives s back.
func wordTokens(s string) []string {
	var tokens []string
	start := 0
	space := false
	for i, r := range s {
		isSpace := unicode.IsSpace(r)
		if i > start && isSpace != space {
			tokens = append(tokens, s[start:i])
			start = i
		}
		space = isSpace
	}
	if start < len(s) {
		tokens = append(tokens, s[start:])
	}
	return tokens
}
