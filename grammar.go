package mdsync

import (
	"regexp"
	"sort"
	"strings"
)

// RuleKind identifies one token rule of the markup grammar.
type RuleKind int

const (
	ConflictStartEscaped RuleKind = iota
	ConflictStart
	ConflictSeparator
	ConflictEndEscaped
	ConflictEnd
	RemovedOpen
	RemovedClose
	AddedOpen
	AddedClose
)

var ruleKindNames = [...]string{
	ConflictStartEscaped: "conflict-start-escaped",
	ConflictStart:        "conflict-start",
	ConflictSeparator:    "conflict-separator",
	ConflictEndEscaped:   "conflict-end-escaped",
	ConflictEnd:          "conflict-end",
	RemovedOpen:          "removed-open",
	RemovedClose:         "removed-close",
	AddedOpen:            "added-open",
	AddedClose:           "added-close",
}

func (k RuleKind) String() string {
	if k < 0 || int(k) >= len(ruleKindNames) {
		return "unknown"
	}
	return ruleKindNames[k]
}

// IsMarker reports whether the rule matches a conflict marker line.
func (k RuleKind) IsMarker() bool { return k <= ConflictEnd }

const (
	conflictStartText     = "<<<<<<<"
	conflictSeparatorText = "======="
	conflictEndText       = ">>>>>>>"

	escapedStartText = "&lt;&lt;&lt;&lt;&lt;&lt;&lt;"
	escapedEndText   = "&gt;&gt;&gt;&gt;&gt;&gt;&gt;"

	removedClass = "removed"
	addedClass   = "added"

	lineBreakTag = "<br>"
)

// Expand hands the base renderer these private-use runes in place of grammar
// tags. The renderer's inline parser turns them back into tags, so they never
// meet raw HTML detection.
const (
	removedOpenMark  = '\uE000'
	removedCloseMark = '\uE001'
	addedOpenMark    = '\uE002'
	addedCloseMark   = '\uE003'
	lineBreakMark    = '\uE004'
)

// Rule is one token rule. Pattern is matched against markup; Render produces
// the base renderer input for a match given its label (empty for labelless
// rules). Token is the literal markup form of the rule. Span rules also carry
// the Mark rune Render emits and the Tag it becomes in rich text.
type Rule struct {
	Kind    RuleKind
	Pattern *regexp.Regexp
	Token   string
	Render  func(label string) string
	Mark    rune
	Tag     string
}

// Grammar holds the ordered rule list. Build it once with NewGrammar and
// share it; it is read-only after construction.
type Grammar struct {
	rules     []Rule
	markers   []*Rule
	separator *Rule
	spans     []*Rule
	closes    map[RuleKind]RuleKind
	// bareStart finds a start marker written without the space before its
	// label, which is how an escaped start marker reads in rich text.
	bareStart *regexp.Regexp
}

// NewGrammar returns the nine rules in priority order. The escaped marker
// forms come before their literal counterparts.
func NewGrammar() *Grammar {
	g := &Grammar{
		rules: []Rule{
			{
				Kind:    ConflictStartEscaped,
				Pattern: regexp.MustCompile(escapedStartText + ` (.*)$`),
				Token:   escapedStartText,
				Render: func(label string) string {
					return escapedStartText + escapeLabel(label) + string(lineBreakMark)
				},
			},
			{
				Kind:    ConflictStart,
				Pattern: regexp.MustCompile(conflictStartText + ` (.*)$`),
				Token:   conflictStartText,
				Render: func(label string) string {
					return escapedStartText + " " + escapeLabel(label) + string(lineBreakMark)
				},
			},
			{
				Kind:    ConflictSeparator,
				Pattern: regexp.MustCompile(`^[ \t]*` + conflictSeparatorText + `[ \t]*$`),
				Token:   conflictSeparatorText,
				Render: func(string) string {
					return conflictSeparatorText + string(lineBreakMark)
				},
			},
			{
				Kind:    ConflictEndEscaped,
				Pattern: regexp.MustCompile(escapedEndText + ` (.*)$`),
				Token:   escapedEndText,
				Render: func(label string) string {
					return escapedEndText + " " + escapeLabel(label) + string(lineBreakMark)
				},
			},
			{
				Kind:    ConflictEnd,
				Pattern: regexp.MustCompile(conflictEndText + ` (.*)$`),
				Token:   conflictEndText,
				Render: func(label string) string {
					return escapedEndText + " " + escapeLabel(label) + string(lineBreakMark)
				},
			},
			spanRule(RemovedOpen, `\[-`, "[-", removedOpenMark, `<span class="`+removedClass+`">`),
			spanRule(RemovedClose, `-\]`, "-]", removedCloseMark, "</span>"),
			spanRule(AddedOpen, `\{\+`, "{+", addedOpenMark, `<span class="`+addedClass+`">`),
			spanRule(AddedClose, `\+\}`, "+}", addedCloseMark, "</span>"),
		},
		closes: map[RuleKind]RuleKind{
			RemovedClose: RemovedOpen,
			AddedClose:   AddedOpen,
		},
	}
	for i := range g.rules {
		r := &g.rules[i]
		switch {
		case r.Kind == ConflictSeparator:
			g.separator = r
		case r.Kind.IsMarker():
			g.markers = append(g.markers, r)
		default:
			g.spans = append(g.spans, r)
		}
	}
	g.bareStart = regexp.MustCompile(regexp.QuoteMeta(g.Rule(ConflictStart).Token) + `(.*)$`)
	return g
}

func spanRule(kind RuleKind, pattern, token string, mark rune, tag string) Rule {
	return Rule{
		Kind:    kind,
		Pattern: regexp.MustCompile(pattern),
		Token:   token,
		Render:  func(string) string { return string(mark) },
		Mark:    mark,
		Tag:     tag,
	}
}

// tagFor returns the rich tag for a mark rune emitted by Expand.
func (g *Grammar) tagFor(mark rune) (string, bool) {
	if mark == lineBreakMark {
		return lineBreakTag, true
	}
	for _, r := range g.spans {
		if r.Mark == mark {
			return r.Tag, true
		}
	}
	return "", false
}

// Rules returns a copy of the ordered rule list.
func (g *Grammar) Rules() []Rule {
	out := make([]Rule, len(g.rules))
	copy(out, g.rules)
	return out
}

// Rule returns the rule of the given kind.
func (g *Grammar) Rule(kind RuleKind) Rule {
	for _, r := range g.rules {
		if r.Kind == kind {
			return r
		}
	}
	return Rule{}
}

// chunk is a piece of a paragraph run. Sealed chunks are already rich text.
type chunk struct {
	text   string
	sealed bool
	eol    bool
}

// Expand applies the grammar to markup ahead of the base renderer. Marker
// lines become escaped literal text ending in a line break mark; paired span
// delimiters become span marks. Everything else is passed through untouched,
// including unmatched delimiters and anything inside code.
func (g *Grammar) Expand(markup string) string {
	var b strings.Builder
	var run []chunk
	flush := func() {
		if len(run) > 0 {
			b.WriteString(g.expandRun(run))
			run = run[:0]
		}
	}

	lines := strings.Split(strings.Map(dropMark, markup), "\n")
	fence := ""
	for i, line := range lines {
		eol := i < len(lines)-1
		if fence == "" && strings.TrimSpace(line) != "" {
			if f := openingFence(line); f == "" {
				run = append(run, g.splitMarker(line, eol)...)
				continue
			} else {
				fence = f
				flush()
				writeLine(&b, line, eol)
				continue
			}
		}
		flush()
		if fence != "" && closesFence(line, fence) {
			fence = ""
		}
		writeLine(&b, line, eol)
	}
	flush()
	return b.String()
}

// dropMark removes mark runes typed into the markup so only Expand emits them.
func dropMark(r rune) rune {
	if r >= removedOpenMark && r <= lineBreakMark {
		return -1
	}
	return r
}

func writeLine(b *strings.Builder, line string, eol bool) {
	b.WriteString(line)
	if eol {
		b.WriteByte('\n')
	}
}

// splitMarker cuts a line at its earliest marker match. The marker and its
// label run to the end of the line.
func (g *Grammar) splitMarker(line string, eol bool) []chunk {
	if g.separator.Pattern.MatchString(line) {
		return []chunk{{text: g.separator.Render(""), sealed: true, eol: eol}}
	}

	var best []int
	var rule *Rule
	for _, r := range g.markers {
		loc := r.Pattern.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		if best == nil || loc[0] < best[0] {
			best, rule = loc, r
		}
	}
	if best == nil || escapedAt(line, best[0]) || inRanges(codeSpanRanges(line), best[0]) {
		return []chunk{{text: line, eol: eol}}
	}

	var out []chunk
	if best[0] > 0 {
		out = append(out, chunk{text: line[:best[0]]})
	}
	label := strings.TrimSuffix(line[best[2]:best[3]], "\r")
	return append(out, chunk{text: rule.Render(label), sealed: true, eol: eol})
}

type spanHit struct {
	start, end int
	rule       *Rule
}

// expandRun pairs span delimiters across one run of consecutive non-blank
// lines and rewrites the run.
func (g *Grammar) expandRun(run []chunk) string {
	var buf strings.Builder
	starts := make([]int, len(run))
	for i, c := range run {
		if i > 0 {
			buf.WriteByte('\n')
		}
		starts[i] = buf.Len()
		if !c.sealed {
			buf.WriteString(c.text)
		}
	}
	hits := g.pairSpans(buf.String())

	var b strings.Builder
	for i, c := range run {
		if c.sealed {
			b.WriteString(c.text)
		} else {
			base := starts[i]
			for j := 0; j < len(c.text); {
				if h, ok := hits[base+j]; ok {
					b.WriteString(h.rule.Render(""))
					j += h.end - h.start
					continue
				}
				b.WriteByte(c.text[j])
				j++
			}
		}
		if c.eol {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// pairSpans finds delimiter pairs in text. Pairs never nest: a second
// opening delimiter abandons the pending one, which stays literal.
func (g *Grammar) pairSpans(text string) map[int]spanHit {
	code := codeSpanRanges(text)
	var hits []spanHit
	for _, r := range g.spans {
		for _, loc := range r.Pattern.FindAllStringIndex(text, -1) {
			if escapedAt(text, loc[0]) || inRanges(code, loc[0]) {
				continue
			}
			hits = append(hits, spanHit{start: loc[0], end: loc[1], rule: r})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	paired := map[int]spanHit{}
	var pending *spanHit
	end := 0
	for i := range hits {
		h := hits[i]
		if h.start < end {
			continue
		}
		end = h.end
		open, isClose := g.closes[h.rule.Kind]
		switch {
		case !isClose:
			pending = &hits[i]
		case pending != nil && pending.rule.Kind == open:
			paired[pending.start] = *pending
			paired[h.start] = h
			pending = nil
		}
	}
	return paired
}

// escapeLabel backslash-escapes ASCII punctuation so the base renderer shows
// the label verbatim.
func escapeLabel(label string) string {
	var b strings.Builder
	for i := 0; i < len(label); i++ {
		c := label[i]
		if isASCIIPunct(c) {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isASCIIPunct(c byte) bool {
	return (c >= '!' && c <= '/') || (c >= ':' && c <= '@') || (c >= '[' && c <= '`') || (c >= '{' && c <= '~')
}

// escapedAt reports whether s[i] is preceded by an odd run of backslashes.
func escapedAt(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// codeSpanRanges returns [start, end) byte ranges of backtick code spans.
func codeSpanRanges(s string) [][2]int {
	var out [][2]int
	for i := 0; i < len(s); {
		if s[i] != '`' || escapedAt(s, i) {
			i++
			continue
		}
		n := runLength(s, i, '`')
		closed := false
		for j := i + n; j < len(s); {
			if s[j] != '`' {
				j++
				continue
			}
			m := runLength(s, j, '`')
			if m == n {
				out = append(out, [2]int{i, j + m})
				i = j + m
				closed = true
				break
			}
			j += m
		}
		if !closed {
			i += n
		}
	}
	return out
}

func inRanges(ranges [][2]int, pos int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}

func runLength(s string, i int, c byte) int {
	n := 0
	for i+n < len(s) && s[i+n] == c {
		n++
	}
	return n
}

// openingFence returns the fence run when line opens a fenced code block.
func openingFence(line string) string {
	trimmed, ok := trimIndent(line)
	if !ok || len(trimmed) < 3 || (trimmed[0] != '`' && trimmed[0] != '~') {
		return ""
	}
	n := runLength(trimmed, 0, trimmed[0])
	if n < 3 {
		return ""
	}
	if trimmed[0] == '`' && strings.Contains(trimmed[n:], "`") {
		return ""
	}
	return trimmed[:n]
}

func closesFence(line, fence string) bool {
	trimmed, ok := trimIndent(line)
	if !ok || len(trimmed) == 0 || trimmed[0] != fence[0] {
		return false
	}
	n := runLength(trimmed, 0, fence[0])
	return n >= len(fence) && strings.TrimSpace(trimmed[n:]) == ""
}

// trimIndent strips up to three leading spaces.
func trimIndent(line string) (string, bool) {
	n := runLength(line, 0, ' ')
	if n > 3 {
		return line, false
	}
	return line[n:], true
}
