package mdsync

import (
	"strings"
	"testing"
)

// showMarks spells out the marks Expand leaves for the base renderer.
var showMarks = strings.NewReplacer(
	string(removedOpenMark), "<removed>",
	string(removedCloseMark), "</removed>",
	string(addedOpenMark), "<added>",
	string(addedCloseMark), "</added>",
	string(lineBreakMark), "<br>",
)

func TestExpand(t *testing.T) {
	g := NewGrammar()
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{"Diff spans", "[-old-]{+new+}", "<removed>old</removed><added>new</added>"},
		{"Start marker", "<<<<<<< mine", "&lt;&lt;&lt;&lt;&lt;&lt;&lt; mine<br>"},
		{"Escaped start marker", "&lt;&lt;&lt;&lt;&lt;&lt;&lt; mine", "&lt;&lt;&lt;&lt;&lt;&lt;&lt;mine<br>"},
		{"Separator", "=======", "=======<br>"},
		{"Indented separator", "  =======  ", "=======<br>"},
		{"End marker", ">>>>>>> theirs", "&gt;&gt;&gt;&gt;&gt;&gt;&gt; theirs<br>"},
		{"Label punctuation", "<<<<<<< feature/x.y", `&lt;&lt;&lt;&lt;&lt;&lt;&lt; feature\/x\.y<br>`},
		{"Marker mid line", "Hello <<<<<<< me", "Hello &lt;&lt;&lt;&lt;&lt;&lt;&lt; me<br>"},
		{"Marker without label", "<<<<<<<", "<<<<<<<"},
		{"Unmatched open", "a [-b", "a [-b"},
		{"Unmatched close", "a b-]", "a b-]"},
		{"Mismatched pair", "[-a+}", "[-a+}"},
		{"Escaped open", `\[-a-]`, `\[-a-]`},
		{"Code span", "`[-a-]`", "`[-a-]`"},
		{"Second open abandons first", "[-a [-b-]", "[-a <removed>b</removed>"},
		{"Span across lines", "[-a\nb-]", "<removed>a\nb</removed>"},
		{"Typed marks dropped", "a\uE000b\uE004", "ab"},
		{"Lone open at line start", "{+\nnew text\n+}", "<added>\nnew text\n</added>"},
		{"Blank line ends pairing", "[-a\n\nb-]", "[-a\n\nb-]"},
		{"Fenced code", "```\n<<<<<<< x\n[-a-]\n```", "```\n<<<<<<< x\n[-a-]\n```"},
		{"Marker in code span", "`<<<<<<< x`", "`<<<<<<< x`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := showMarks.Replace(g.Expand(tt.markup)); got != tt.want {
				t.Errorf("Expand(%q)\nWant: %q\nGot:  %q", tt.markup, tt.want, got)
			}
		})
	}
}

func TestGrammarTagFor(t *testing.T) {
	g := NewGrammar()
	tests := []struct {
		mark rune
		want string
		ok   bool
	}{
		{removedOpenMark, `<span class="removed">`, true},
		{addedCloseMark, "</span>", true},
		{lineBreakMark, "<br>", true},
		{'\uE005', "", false},
		{'x', "", false},
	}
	for _, tt := range tests {
		got, ok := g.tagFor(tt.mark)
		if got != tt.want || ok != tt.ok {
			t.Errorf("tagFor(%U) = %q, %v; want %q, %v", tt.mark, got, ok, tt.want, tt.ok)
		}
	}
}

func TestGrammarRules(t *testing.T) {
	g := NewGrammar()
	rules := g.Rules()
	if len(rules) != 9 {
		t.Fatalf("Expected 9 rules, got %d", len(rules))
	}
	if rules[0].Kind != ConflictStartEscaped || rules[1].Kind != ConflictStart {
		t.Error("Escaped start marker must precede the literal one")
	}

	rules[0].Token = "changed"
	if g.Rules()[0].Token == "changed" {
		t.Error("Rules must return a copy")
	}

	if tok := g.Rule(AddedClose).Token; tok != "+}" {
		t.Errorf("Expected +}, got %s", tok)
	}
	if !ConflictEnd.IsMarker() || RemovedOpen.IsMarker() {
		t.Error("IsMarker mismatch")
	}
	if ConflictSeparator.String() != "conflict-separator" {
		t.Errorf("Unexpected name %s", ConflictSeparator)
	}
}
