package mdsync

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type tokenKind int

const (
	tokText tokenKind = iota
	tokMarkup
	tokBreak
)

// token is one piece of an inline run: literal text still to be escaped,
// finished markup, or a hard line break.
type token struct {
	kind tokenKind
	text string
}

type markupLine struct {
	toks []token
	hard bool
}

const (
	escLineStart = 1 << iota
	escBracket
)

var (
	entityPattern  = regexp.MustCompile(`^&(?:#[0-9]{1,7}|#[xX][0-9a-fA-F]{1,6}|[A-Za-z][A-Za-z0-9]{1,31});`)
	orderedPattern = regexp.MustCompile(`^[0-9]{1,9}[.)](?:[ \t]|$)`)
)

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Ul: true, atom.Ol: true,
	atom.Li: true, atom.Blockquote: true, atom.Pre: true, atom.Hr: true,
	atom.Table: true, atom.Thead: true, atom.Tbody: true, atom.Tr: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
	atom.Nav: true, atom.Aside: true, atom.Main: true, atom.Figure: true,
	atom.Dl: true, atom.Dt: true, atom.Dd: true, atom.Address: true,
	atom.Form: true, atom.Fieldset: true, atom.Details: true,
}

var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// piece is a run of written markup. Optional pieces are escaping backslashes
// that settle drops when the text reads the same without them.
type piece struct {
	text     string
	optional bool
}

func joinPieces(pieces []piece, drop map[int]bool) string {
	var b strings.Builder
	for i, p := range pieces {
		if !drop[i] {
			b.WriteString(p.text)
		}
	}
	return b.String()
}

// markupWriter turns a parsed rich fragment back into markup. render, when
// set, is the markup to rich text conversion used to keep only the escapes
// the text needs.
type markupWriter struct {
	grammar *Grammar
	render  func(markup string) string
}

func (w *markupWriter) document(root *html.Node) string {
	return strings.Join(w.blocks(childNodes(root)), "\n\n")
}

func (w *markupWriter) blocks(nodes []*html.Node) []string {
	var out []string
	var inline []*html.Node
	flush := func() {
		if p := w.paragraph(inline); p != "" {
			out = append(out, p)
		}
		inline = nil
	}
	for _, n := range nodes {
		switch {
		case n.Type == html.ElementNode && blockElements[n.DataAtom]:
			flush()
			if b := w.block(n); b != "" {
				out = append(out, b)
			}
		case n.Type == html.TextNode, n.Type == html.ElementNode:
			inline = append(inline, n)
		}
	}
	flush()
	return out
}

func (w *markupWriter) block(n *html.Node) string {
	if level, ok := headingLevels[n.DataAtom]; ok {
		content := w.headingPieces(childNodes(n))
		if joinPieces(content, nil) == "" {
			return ""
		}
		prefix := strings.Repeat("#", level) + " "
		return prefix + w.settle(content, prefix, n.DataAtom)
	}

	switch n.DataAtom {
	case atom.P:
		return w.paragraph(childNodes(n))
	case atom.Hr:
		return "***"
	case atom.Pre:
		return codeBlock(n)
	case atom.Ul:
		return w.list(n, false)
	case atom.Ol:
		return w.list(n, true)
	case atom.Blockquote:
		inner := strings.Join(w.blocks(childNodes(n)), "\n\n")
		if inner == "" {
			return ""
		}
		return prefixLines(inner, "> ", ">")
	default:
		return strings.Join(w.blocks(childNodes(n)), "\n\n")
	}
}

func (w *markupWriter) list(n *html.Node, ordered bool) string {
	start := 1
	if ordered {
		if v, err := strconv.Atoi(attr(n, "start")); err == nil {
			start = v
		}
	}

	var items []*html.Node
	loose := false
	for _, c := range childNodes(n) {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		items = append(items, c)
		for _, gc := range childNodes(c) {
			if gc.Type == html.ElementNode && gc.DataAtom == atom.P {
				loose = true
			}
		}
	}

	sep := "\n"
	if loose {
		sep = "\n\n"
	}
	parts := make([]string, 0, len(items))
	for i, li := range items {
		marker := "- "
		if ordered {
			marker = strconv.Itoa(start+i) + ". "
		}
		body := strings.Join(w.blocks(childNodes(li)), sep)
		parts = append(parts, strings.TrimRight(marker+indentLines(body, strings.Repeat(" ", len(marker))), " "))
	}
	return strings.Join(parts, sep)
}

func (w *markupWriter) paragraph(nodes []*html.Node) string {
	return w.settle(w.layout(w.inlineTokens(nodes)), "", atom.P)
}

func (w *markupWriter) inlineTokens(nodes []*html.Node) []token {
	var toks []token
	for _, n := range nodes {
		w.inline(n, 0, &toks)
	}
	return toks
}

// settle drops each optional escape whose removal still renders prefix plus
// the pieces as the same single block.
func (w *markupWriter) settle(pieces []piece, prefix string, block atom.Atom) string {
	full := joinPieces(pieces, nil)
	if w.render == nil {
		return full
	}
	drop := map[int]bool{}
	for i, p := range pieces {
		if !p.optional {
			continue
		}
		drop[i] = true
		if !w.rendersAs(prefix+joinPieces(pieces, drop), block, full) {
			delete(drop, i)
		}
	}
	return joinPieces(pieces, drop)
}

// rendersAs reports whether markup renders to exactly one element of kind
// block whose content writes back out as want.
func (w *markupWriter) rendersAs(markup string, block atom.Atom, want string) bool {
	root, err := ParseFragment(w.render(markup))
	if err != nil {
		return false
	}
	var found *html.Node
	for _, n := range childNodes(root) {
		switch {
		case n.Type == html.TextNode && strings.TrimSpace(n.Data) == "":
		case n.Type == html.ElementNode && n.DataAtom == block && found == nil:
			found = n
		default:
			return false
		}
	}
	if found == nil {
		return false
	}
	if _, ok := headingLevels[block]; ok {
		return joinPieces(w.headingPieces(childNodes(found)), nil) == want
	}
	return joinPieces(w.layout(w.inlineTokens(childNodes(found))), nil) == want
}

// inline flattens n into toks. depth counts enclosing diff spans so nested
// spans degrade to their text.
func (w *markupWriter) inline(n *html.Node, depth int, toks *[]token) {
	switch n.Type {
	case html.TextNode:
		*toks = append(*toks, token{kind: tokText, text: n.Data})
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.Br:
		*toks = append(*toks, token{kind: tokBreak})
	case atom.Strong, atom.B:
		w.wrap("**", n, depth, toks)
	case atom.Em, atom.I:
		w.wrap("*", n, depth, toks)
	case atom.Del, atom.S, atom.Strike:
		w.wrap("~~", n, depth, toks)
	case atom.Code:
		if span := codeSpan(textContent(n)); span != "" {
			*toks = append(*toks, token{kind: tokMarkup, text: span})
		}
	case atom.A:
		text := w.inlineLine(childNodes(n), escBracket)
		*toks = append(*toks, token{kind: tokMarkup, text: "[" + text + "](" + linkTarget(n, "href") + ")"})
	case atom.Img:
		alt := escapeText(attr(n, "alt"), escBracket)
		*toks = append(*toks, token{kind: tokMarkup, text: "![" + alt + "](" + linkTarget(n, "src") + ")"})
	case atom.Script, atom.Style, atom.Input:
	case atom.Span:
		if open, closing, ok := w.diffTokens(n); ok && depth == 0 {
			*toks = append(*toks, token{kind: tokMarkup, text: open})
			for _, c := range childNodes(n) {
				w.inline(c, depth+1, toks)
			}
			*toks = append(*toks, token{kind: tokMarkup, text: closing})
			return
		}
		w.children(n, depth, toks)
	default:
		w.children(n, depth, toks)
	}
}

func (w *markupWriter) children(n *html.Node, depth int, toks *[]token) {
	for _, c := range childNodes(n) {
		w.inline(c, depth, toks)
	}
}

func (w *markupWriter) diffTokens(n *html.Node) (string, string, bool) {
	for _, class := range strings.Fields(attr(n, "class")) {
		switch class {
		case removedClass:
			return w.grammar.Rule(RemovedOpen).Token, w.grammar.Rule(RemovedClose).Token, true
		case addedClass:
			return w.grammar.Rule(AddedOpen).Token, w.grammar.Rule(AddedClose).Token, true
		}
	}
	return "", "", false
}

// wrap emits delim around the children of n, keeping surrounding whitespace
// and breaks outside the delimiters.
func (w *markupWriter) wrap(delim string, n *html.Node, depth int, toks *[]token) {
	var inner []token
	w.children(n, depth, &inner)
	lead, body, trail := trimTokens(inner)
	*toks = append(*toks, lead...)
	if len(body) > 0 {
		*toks = append(*toks, token{kind: tokMarkup, text: delim})
		*toks = append(*toks, body...)
		*toks = append(*toks, token{kind: tokMarkup, text: delim})
	}
	*toks = append(*toks, trail...)
}

func trimTokens(toks []token) (lead, body, trail []token) {
	body = toks
	for len(body) > 0 {
		t := body[0]
		if t.kind == tokBreak {
			lead = append(lead, t)
			body = body[1:]
			continue
		}
		if t.kind != tokText {
			break
		}
		trimmed := strings.TrimLeft(t.text, " \t\n")
		if ws := t.text[:len(t.text)-len(trimmed)]; ws != "" {
			lead = append(lead, token{kind: tokText, text: ws})
		}
		if trimmed != "" {
			body = append([]token{{kind: tokText, text: trimmed}}, body[1:]...)
			break
		}
		body = body[1:]
	}
	for len(body) > 0 {
		t := body[len(body)-1]
		if t.kind == tokBreak {
			trail = append([]token{t}, trail...)
			body = body[:len(body)-1]
			continue
		}
		if t.kind != tokText {
			break
		}
		trimmed := strings.TrimRight(t.text, " \t\n")
		if ws := t.text[len(trimmed):]; ws != "" {
			trail = append([]token{{kind: tokText, text: ws}}, trail...)
		}
		if trimmed != "" {
			body = append(body[:len(body)-1:len(body)-1], token{kind: tokText, text: trimmed})
			break
		}
		body = body[:len(body)-1]
	}
	return lead, body, trail
}

// linePieces renders nodes on a single line, as headings and link text need.
func (w *markupWriter) linePieces(nodes []*html.Node, flags int) []piece {
	var out []piece
	for _, t := range mergeText(w.inlineTokens(nodes)) {
		switch t.kind {
		case tokBreak:
			out = append(out, piece{text: " "})
		case tokMarkup:
			out = append(out, piece{text: t.text})
		default:
			out = escapePieces(out, strings.ReplaceAll(t.text, "\n", " "), flags)
		}
	}
	return trimPieces(out)
}

func (w *markupWriter) inlineLine(nodes []*html.Node, flags int) string {
	return joinPieces(w.linePieces(nodes, flags), nil)
}

// headingPieces is the heading content with a trailing # escaped so it does
// not read as a closing sequence.
func (w *markupWriter) headingPieces(nodes []*html.Node) []piece {
	pieces := w.linePieces(nodes, 0)
	n := len(pieces)
	if n == 0 || pieces[n-1].optional || !strings.HasSuffix(pieces[n-1].text, "#") {
		return pieces
	}
	last := pieces[n-1].text
	return append(pieces[:n-1],
		piece{text: last[:len(last)-1]},
		piece{text: `\`, optional: true},
		piece{text: "#"},
	)
}

func trimPieces(pieces []piece) []piece {
	for len(pieces) > 0 && !pieces[0].optional {
		pieces[0].text = strings.TrimLeft(pieces[0].text, " \t")
		if pieces[0].text != "" {
			break
		}
		pieces = pieces[1:]
	}
	for n := len(pieces); n > 0 && !pieces[n-1].optional; n = len(pieces) {
		pieces[n-1].text = strings.TrimRight(pieces[n-1].text, " \t")
		if pieces[n-1].text != "" {
			break
		}
		pieces = pieces[:n-1]
	}
	return pieces
}

// layout lays out one paragraph. Marker lines are written verbatim and
// absorb the break that follows them; other hard breaks become a trailing
// backslash unless nothing follows.
func (w *markupWriter) layout(toks []token) []piece {
	lines := splitLines(mergeText(toks))
	for i := range lines {
		lines[i].toks = trimLine(lines[i].toks)
	}

	var out []piece
	for i, ln := range lines {
		if len(ln.toks) == 0 {
			continue
		}
		if len(out) > 0 {
			out = append(out, piece{text: "\n"})
		}
		line, marker := w.renderLine(ln.toks, ln.hard)
		out = append(out, line...)
		if !marker && ln.hard && contentAfter(lines, i) {
			out = append(out, piece{text: `\`})
		}
	}
	return out
}

func (w *markupWriter) renderLine(toks []token, hard bool) ([]piece, bool) {
	last := -1
	for i, t := range toks {
		if t.kind == tokMarkup {
			last = i
		}
	}
	var tail strings.Builder
	for _, t := range toks[last+1:] {
		tail.WriteString(t.text)
	}
	text := tail.String()

	separator := w.grammar.Rule(ConflictSeparator).Token
	if last == -1 && strings.TrimSpace(text) == separator {
		return []piece{{text: separator}}, true
	}
	if at, marker := w.findMarker(text, hard); at >= 0 {
		head := append(toks[:last+1:last+1], token{kind: tokText, text: text[:at]})
		return append(renderPieces(head), piece{text: marker}), true
	}
	return renderPieces(toks), false
}

// findMarker locates the earliest conflict marker in plain text and returns
// its markup form. The labelless start form only appears in rich text as the
// rendering of an escaped start marker, which always ends in a break.
func (w *markupWriter) findMarker(text string, hard bool) (int, string) {
	g := w.grammar
	at, marker := -1, ""
	start, end := g.Rule(ConflictStart), g.Rule(ConflictEnd)
	if m := start.Pattern.FindStringSubmatchIndex(text); m != nil {
		at, marker = m[0], start.Token+" "+text[m[2]:m[3]]
	}
	if m := end.Pattern.FindStringSubmatchIndex(text); m != nil && (at < 0 || m[0] < at) {
		at, marker = m[0], end.Token+" "+text[m[2]:m[3]]
	}
	if at < 0 && hard {
		if m := g.bareStart.FindStringSubmatchIndex(text); m != nil {
			at, marker = m[0], g.Rule(ConflictStartEscaped).Token+" "+text[m[2]:m[3]]
		}
	}
	return at, marker
}

func renderPieces(toks []token) []piece {
	var out []piece
	for i, t := range toks {
		if t.kind == tokMarkup {
			out = append(out, piece{text: t.text})
			continue
		}
		flags := 0
		if i == 0 {
			flags = escLineStart
		}
		out = escapePieces(out, t.text, flags)
	}
	return out
}

func splitLines(toks []token) []markupLine {
	var lines []markupLine
	var cur markupLine
	swallow := false
	for _, t := range toks {
		switch t.kind {
		case tokBreak:
			cur.hard = true
			lines = append(lines, cur)
			cur = markupLine{}
			swallow = true
		case tokText:
			s := t.text
			if swallow {
				if s == "" {
					continue
				}
				s = strings.TrimPrefix(s, "\n")
				swallow = false
			}
			for i, part := range strings.Split(s, "\n") {
				if i > 0 {
					lines = append(lines, cur)
					cur = markupLine{}
				}
				if part != "" {
					cur.toks = append(cur.toks, token{kind: tokText, text: part})
				}
			}
		default:
			swallow = false
			cur.toks = append(cur.toks, t)
		}
	}
	return append(lines, cur)
}

func mergeText(toks []token) []token {
	out := make([]token, 0, len(toks))
	for _, t := range toks {
		if n := len(out); n > 0 && t.kind == tokText && out[n-1].kind == tokText {
			out[n-1].text += t.text
			continue
		}
		out = append(out, t)
	}
	return out
}

func trimLine(toks []token) []token {
	for len(toks) > 0 && toks[0].kind == tokText {
		trimmed := strings.TrimLeft(toks[0].text, " \t")
		if trimmed != "" {
			toks = append([]token{{kind: tokText, text: trimmed}}, toks[1:]...)
			break
		}
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].kind == tokText {
		n := len(toks) - 1
		trimmed := strings.TrimRight(toks[n].text, " \t")
		if trimmed != "" {
			toks = append(toks[:n:n], token{kind: tokText, text: trimmed})
			break
		}
		toks = toks[:n]
	}
	return toks
}

func contentAfter(lines []markupLine, i int) bool {
	for _, ln := range lines[i+1:] {
		if len(ln.toks) > 0 {
			return true
		}
	}
	return false
}

// escapeText makes literal text safe to reparse with every candidate escape
// applied.
func escapeText(s string, flags int) string {
	return joinPieces(escapePieces(nil, s, flags), nil)
}

// escapePieces appends s to out with a backslash before each character that
// could start markup in its position. The backslashes are optional pieces.
func escapePieces(out []piece, s string, flags int) []piece {
	var b strings.Builder
	escape := func() {
		if b.Len() > 0 {
			out = append(out, piece{text: b.String()})
			b.Reset()
		}
		out = append(out, piece{text: `\`, optional: true})
	}

	if flags&escLineStart != 0 && s != "" {
		switch {
		case strings.IndexByte("#-+=>", s[0]) >= 0:
			escape()
			b.WriteByte(s[0])
			s = s[1:]
		case orderedPattern.MatchString(s):
			i := strings.IndexAny(s, ".)")
			b.WriteString(s[:i])
			escape()
			b.WriteByte(s[i])
			s = s[i+1:]
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			if i+1 == len(s) || isASCIIPunct(s[i+1]) {
				escape()
			}
		case '*', '`', '[', '~', '{':
			escape()
		case ']':
			if flags&escBracket != 0 || (i > 0 && s[i-1] == '-') {
				escape()
			}
		case '+':
			if i+1 < len(s) && s[i+1] == '}' {
				escape()
			}
		case '_':
			if i == 0 || i+1 == len(s) || !isAlnum(s[i-1]) || !isAlnum(s[i+1]) {
				escape()
			}
		case '<':
			if i+1 < len(s) && (isLetter(s[i+1]) || strings.IndexByte("/!?", s[i+1]) >= 0) {
				escape()
			}
		case '&':
			if entityPattern.MatchString(s[i:]) {
				escape()
			}
		}
		b.WriteByte(c)
	}
	if b.Len() > 0 {
		out = append(out, piece{text: b.String()})
	}
	return out
}

func codeSpan(content string) string {
	content = strings.ReplaceAll(content, "\n", " ")
	if content == "" {
		return ""
	}
	fence := strings.Repeat("`", longestRun(content, '`')+1)
	pad := ""
	if content[0] == '`' || content[len(content)-1] == '`' ||
		(content[0] == ' ' && content[len(content)-1] == ' ' && strings.TrimSpace(content) != "") {
		pad = " "
	}
	return fence + pad + content + pad + fence
}

func codeBlock(pre *html.Node) string {
	code, lang := pre, ""
	for _, c := range childNodes(pre) {
		if c.Type == html.ElementNode && c.DataAtom == atom.Code {
			code = c
			for _, class := range strings.Fields(attr(c, "class")) {
				if strings.HasPrefix(class, "language-") {
					lang = strings.TrimPrefix(class, "language-")
				}
			}
			break
		}
	}
	content := textContent(code)
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	fence := strings.Repeat("`", max(3, longestRun(content, '`')+1))
	return fence + lang + "\n" + content + fence
}

func linkTarget(n *html.Node, key string) string {
	dest := strings.ReplaceAll(attr(n, key), `\`, `\\`)
	if dest == "" || strings.ContainsAny(dest, " \t<>") || strings.Count(dest, "(") != strings.Count(dest, ")") {
		dest = "<" + strings.NewReplacer("<", `\<`, ">", `\>`).Replace(dest) + ">"
	}
	if title := attr(n, "title"); title != "" {
		dest += ` "` + strings.ReplaceAll(title, `"`, `\"`) + `"`
	}
	return dest
}

func longestRun(s string, c byte) int {
	longest := 0
	for i := 0; i < len(s); {
		if s[i] != c {
			i++
			continue
		}
		n := runLength(s, i, c)
		longest = max(longest, n)
		i += n
	}
	return longest
}

func indentLines(s, pad string) string {
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = pad + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func prefixLines(s, prefix, blank string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = blank
		} else {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

func isAlnum(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9')
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
