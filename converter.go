package mdsync

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/util"
)

// Converter translates between rich text (HTML) and markup. It holds no
// per-call state and is safe to share.
type Converter struct {
	grammar *Grammar
	md      goldmark.Markdown
	logger  Logger
}

// ConverterOption customizes a Converter.
type ConverterOption func(*Converter)

// WithConverterLogger sets the logger used to report fallbacks.
func WithConverterLogger(logger Logger) ConverterOption {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewConverter builds a converter over the given grammar. A nil grammar
// means NewGrammar().
func NewConverter(cfg MarkdownConfig, grammar *Grammar, opts ...ConverterOption) *Converter {
	if grammar == nil {
		grammar = NewGrammar()
	}
	c := &Converter{
		grammar: grammar,
		md:      newMarkdown(cfg, grammar),
		logger:  NoOp(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Grammar returns the grammar the converter applies.
func (c *Converter) Grammar() *Grammar { return c.grammar }

// ToRichText renders markup to rich text with the grammar applied. It never
// fails; if rendering breaks, the markup comes back as one escaped paragraph.
func (c *Converter) ToRichText(markup string) string {
	markup = strings.ReplaceAll(markup, "\r\n", "\n")
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(c.grammar.Expand(markup)), &buf); err != nil {
		c.logger.Warn("markup render failed, falling back to escaped text", "error", err)
		return "<p>" + string(util.EscapeHTML([]byte(markup))) + "</p>\n"
	}
	return buf.String()
}

// ToMarkup writes rich text back out as markup. Diff spans and escaped
// marker lines are contracted to their markup tokens; unknown elements
// contribute their text. Literal text keeps only the escapes it needs to
// render the same block again.
func (c *Converter) ToMarkup(rich string) string {
	root, err := ParseFragment(rich)
	if err != nil {
		c.logger.Warn("rich text parse failed, passing content through", "error", err)
		return rich
	}
	w := &markupWriter{grammar: c.grammar, render: c.ToRichText}
	return w.document(root)
}
