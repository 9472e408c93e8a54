package mdsync

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindGrammarMark is the node kind of a grammar tag in the markdown AST.
var KindGrammarMark = ast.NewNodeKind("GrammarMark")

// grammarMark is an inline node standing for one tag the grammar emits.
// Span marks are flat open and close nodes, as a span may open and close
// inside different emphasis runs.
type grammarMark struct {
	ast.BaseInline
	Tag string
}

// Kind implements ast.Node.
func (n *grammarMark) Kind() ast.NodeKind { return KindGrammarMark }

// Dump implements ast.Node.
func (n *grammarMark) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Tag": n.Tag}, nil)
}

// grammarExtension teaches goldmark the mark runes written by Grammar.Expand
// and shows every raw HTML fragment in the markup as escaped text.
type grammarExtension struct {
	grammar *Grammar
}

// Extend implements goldmark.Extender.
func (e grammarExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(&grammarMarkParser{grammar: e.grammar}, 100),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&grammarHTMLRenderer{}, 100),
	))
}

type grammarMarkParser struct {
	grammar *Grammar
}

// Trigger implements parser.InlineParser. Every mark rune encodes with the
// same leading byte.
func (p *grammarMarkParser) Trigger() []byte {
	var buf [utf8.UTFMax]byte
	utf8.EncodeRune(buf[:], removedOpenMark)
	return buf[:1]
}

// Parse implements parser.InlineParser.
func (p *grammarMarkParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	r, size := utf8.DecodeRune(line)
	tag, ok := p.grammar.tagFor(r)
	if !ok {
		return nil
	}
	block.Advance(size)
	return &grammarMark{Tag: tag}
}

type grammarHTMLRenderer struct{}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *grammarHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindGrammarMark, r.renderGrammarMark)
	reg.Register(ast.KindRawHTML, r.renderRawHTML)
	reg.Register(ast.KindHTMLBlock, r.renderHTMLBlock)
}

func (r *grammarHTMLRenderer) renderGrammarMark(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(node.(*grammarMark).Tag)
	}
	return ast.WalkSkipChildren, nil
}

func (r *grammarHTMLRenderer) renderRawHTML(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	n := node.(*ast.RawHTML)
	for i := 0; i < n.Segments.Len(); i++ {
		segment := n.Segments.At(i)
		_, _ = w.Write(util.EscapeHTML(segment.Value(source)))
	}
	return ast.WalkSkipChildren, nil
}

func (r *grammarHTMLRenderer) renderHTMLBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.HTMLBlock)
	var raw []byte
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		raw = append(raw, line.Value(source)...)
	}
	if n.HasClosure() {
		raw = append(raw, n.ClosureLine.Value(source)...)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ast.WalkSkipChildren, nil
	}
	_, _ = w.WriteString("<p>")
	_, _ = w.Write(util.EscapeHTML(raw))
	_, _ = w.WriteString("</p>\n")
	return ast.WalkSkipChildren, nil
}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"tables":        extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"autolink":      extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
}

func collectExtensions(names []string) []goldmark.Extender {
	var extenders []goldmark.Extender
	seen := map[string]struct{}{}

	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		ext, ok := extensionRegistry[key]
		if !ok {
			continue
		}
		extenders = append(extenders, ext)
		seen[key] = struct{}{}
	}

	return extenders
}

// newMarkdown builds the goldmark engine behind ToRichText.
func newMarkdown(cfg MarkdownConfig, grammar *Grammar) goldmark.Markdown {
	exts := append(collectExtensions(cfg.Extensions), grammarExtension{grammar: grammar})

	var parserOptions []parser.Option
	if cfg.AutoHeadingID {
		parserOptions = append(parserOptions, parser.WithAutoHeadingID())
	}

	var rendererOptions []renderer.Option
	if cfg.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}

	return goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(parserOptions...),
		goldmark.WithRendererOptions(rendererOptions...),
	)
}
