package mdsync

import (
	"testing"
)

func newTestConverter() *Converter {
	return NewConverter(DefaultConfig().Markdown, nil)
}

func TestToRichText(t *testing.T) {
	conv := newTestConverter()
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{"Heading", "# Title", "<h1>Title</h1>\n"},
		{"Emphasis", "Hello **world**", "<p>Hello <strong>world</strong></p>\n"},
		{"Strikethrough", "~~gone~~", "<p><del>gone</del></p>\n"},
		{"Paragraphs", "a\n\nb", "<p>a</p>\n<p>b</p>\n"},
		{"CRLF", "a\r\n\r\nb", "<p>a</p>\n<p>b</p>\n"},
		{
			"Diff spans",
			"[-old-]{+new+}",
			"<p><span class=\"removed\">old</span><span class=\"added\">new</span></p>\n",
		},
		{"Start marker", "<<<<<<< mine", "<p>&lt;&lt;&lt;&lt;&lt;&lt;&lt; mine<br></p>\n"},
		{"Escaped start marker", "&lt;&lt;&lt;&lt;&lt;&lt;&lt; mine", "<p>&lt;&lt;&lt;&lt;&lt;&lt;&lt;mine<br></p>\n"},
		{
			"Conflict inside a paragraph",
			"Hello <<<<<<< me\n=======\n>>>>>>> you\nWorld",
			"<p>Hello &lt;&lt;&lt;&lt;&lt;&lt;&lt; me<br>\n=======<br>\n&gt;&gt;&gt;&gt;&gt;&gt;&gt; you<br>\nWorld</p>\n",
		},
		{"Raw HTML is text", "<b>bold</b>", "<p>&lt;b&gt;bold&lt;/b&gt;</p>\n"},
		{"Added span opening a paragraph", "{+\nnew text\n+}", "<p><span class=\"added\">\nnew text\n</span></p>\n"},
		{"Removed span opening a paragraph", "[-\nold-]", "<p><span class=\"removed\">\nold</span></p>\n"},
		{
			"Typed span tag is text",
			`<span class="added">x</span>`,
			"<p>&lt;span class=&quot;added&quot;&gt;x&lt;/span&gt;</p>\n",
		},
		{"Typed mark rune dropped", "a\uE002b", "<p>ab</p>\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := conv.ToRichText(tt.markup); got != tt.want {
				t.Errorf("ToRichText(%q)\nWant: %q\nGot:  %q", tt.markup, tt.want, got)
			}
		})
	}
}

func TestToMarkup(t *testing.T) {
	conv := newTestConverter()
	tests := []struct {
		name string
		rich string
		want string
	}{
		{"Emphasis", "<p>Hello <strong>world</strong></p>", "Hello **world**"},
		{"Italic and strike", "<p><em>a</em> <s>b</s></p>", "*a* ~~b~~"},
		{"Diff spans", `<p><span class="removed">old</span><span class="added">new</span></p>`, "[-old-]{+new+}"},
		{"Nested diff span", `<p><span class="removed">a <span class="added">b</span></span></p>`, "[-a b-]"},
		{"Heading and paragraph", "<h2>Title</h2><p>a</p>", "## Title\n\na"},
		{"Bullet list", "<ul><li>one</li><li>two</li></ul>", "- one\n- two"},
		{"Ordered list start", `<ol start="3"><li>x</li></ol>`, "3. x"},
		{"Hard break", "<p>a<br>b</p>", "a\\\nb"},
		{"Trailing break", "<p>a<br></p>", "a"},
		{"Start marker", "<p>&lt;&lt;&lt;&lt;&lt;&lt;&lt; mine<br></p>", "<<<<<<< mine"},
		{"Escaped start marker", "<p>&lt;&lt;&lt;&lt;&lt;&lt;&lt;mine<br></p>", "&lt;&lt;&lt;&lt;&lt;&lt;&lt; mine"},
		{"Code and literal stars", "<p><code>a*b</code> and *x*</p>", "`a*b` and *x\\*"},
		{"Link", `<p><a href="https://x.io">site</a></p>`, "[site](https://x.io)"},
		{"Unknown element", "<div><custom>hi</custom></div>", "hi"},
		{"Code block", "<pre><code class=\"language-go\">x := 1\n</code></pre>", "```go\nx := 1\n```"},
		{"Blockquote", "<blockquote><p>q</p></blockquote>", "> q"},
		{"Literal list marker", "<p>1. not a list</p>", "1\\. not a list"},
		{"Rule", "<hr>", "***"},
		{"Literal delimiters", "<p>a [-b</p>", "a [-b"},
		{"Lone star", "<p>a * b</p>", "a * b"},
		{"Plain brackets", "<p>use [brackets] here</p>", "use [brackets] here"},
		{"Curly brace", "<p>{curly} set</p>", "{curly} set"},
		{"Tilde", "<p>see ~home</p>", "see ~home"},
		{"Closing delimiter text", "<p>dash -] end</p>", "dash -] end"},
		{"Marker without label space", "<p>&lt;&lt;&lt;&lt;&lt;&lt;&lt;nospace</p>", "<<<<<<<nospace"},
		{"Heading closing sequence", "<h1>C #</h1>", "# C \\#"},
		{"Heading inner hash", "<h1>C#</h1>", "# C#"},
		{"Paired delimiters", "<p>[-x-]</p>", "[-x-\\]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := conv.ToMarkup(tt.rich); got != tt.want {
				t.Errorf("ToMarkup(%q)\nWant: %q\nGot:  %q", tt.rich, tt.want, got)
			}
		})
	}
}

var roundTripSamples = []string{
	"# Title",
	"Hello **world**",
	"~~gone~~",
	"a `code` b",
	"- one\n- two",
	"1. x\n2. y",
	"> quote",
	"a\\\nb",
	"[-old-]{+new+} text",
	"<<<<<<< mine\nours\n=======\ntheirs\n>>>>>>> yours",
	"Hello <<<<<<< me\n=======\n>>>>>>> you\nWorld",
	"&lt;&lt;&lt;&lt;&lt;&lt;&lt; mine",
	"a * b",
	"use [brackets] here",
	"{curly} set",
	"see ~home",
	"x [- y",
	"dash -] end",
	"<<<<<<<nospace",
	"{+\nnew text\n+}",
	"[-\nold-]",
	"a <b>bold</b> c",
	"# C \\#",
}

func TestMarkupRoundTrip(t *testing.T) {
	conv := newTestConverter()
	for _, markup := range roundTripSamples {
		if got := conv.ToMarkup(conv.ToRichText(markup)); got != markup {
			t.Errorf("Markup round trip\nWant: %q\nGot:  %q", markup, got)
		}
	}
}

func TestRichRoundTrip(t *testing.T) {
	conv := newTestConverter()
	for _, markup := range roundTripSamples {
		rich := conv.ToRichText(markup)
		if got := conv.ToRichText(conv.ToMarkup(rich)); got != rich {
			t.Errorf("Rich round trip for %q\nWant: %q\nGot:  %q", markup, rich, got)
		}
	}
}
