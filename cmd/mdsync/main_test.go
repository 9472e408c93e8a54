package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunRender(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"render"}, strings.NewReader("[-a-]{+b+}"), &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := "<p><span class=\"removed\">a</span><span class=\"added\">b</span></p>\n"
	if out.String() != want {
		t.Errorf("Want %q, got %q", want, out.String())
	}
}

func TestRunMarkup(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"markup"}, strings.NewReader("<h1>T</h1><p>x</p>"), &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out.String() != "# T\n\nx\n" {
		t.Errorf("Unexpected output %q", out.String())
	}
}

func TestRunMerge(t *testing.T) {
	dir := t.TempDir()
	base := writeTemp(t, dir, "base.md", "a\n")
	ours := writeTemp(t, dir, "ours.md", "b\n")
	theirs := writeTemp(t, dir, "theirs.md", "c\n")

	var out bytes.Buffer
	err := run([]string{"merge", "-base", base, "-ours", ours, "-theirs", theirs, "-ours-label", "me"}, nil, &out)
	if !errors.Is(err, errConflicts) {
		t.Fatalf("Expected conflicts error, got %v", err)
	}
	want := "<<<<<<< me\nb\n=======\nc\n>>>>>>> theirs\n"
	if out.String() != want {
		t.Errorf("Want %q, got %q", want, out.String())
	}

	out.Reset()
	if err := run([]string{"resolve", "-side", "theirs"}, strings.NewReader(want), &out); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if out.String() != "c\n" {
		t.Errorf("Unexpected resolve output %q", out.String())
	}
}

func TestRunWordDiff(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeTemp(t, dir, "old.md", "the quick fox")
	newPath := writeTemp(t, dir, "new.md", "the slow fox")

	var out bytes.Buffer
	if err := run([]string{"worddiff", "-old", oldPath, "-new", newPath}, nil, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out.String() != "the [-quick-]{+slow+} fox\n" {
		t.Errorf("Unexpected output %q", out.String())
	}
}

func TestRunDelta(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeTemp(t, dir, "old.html", "<p>a</p>")
	newPath := writeTemp(t, dir, "new.html", "<p>b</p>")

	var out bytes.Buffer
	if err := run([]string{"delta", "-old", oldPath, "-new", newPath}, nil, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), `"type": "DELETE_TEXT"`) || !strings.Contains(out.String(), `"author": "mdsync-cli"`) {
		t.Errorf("Unexpected delta %s", out.String())
	}
}

func TestRunSync(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"sync"}, strings.NewReader("# Title"), &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "<h1>Title</h1>") {
		t.Errorf("Missing rich output in %q", got)
	}
	if !strings.Contains(got, "Writes: rich=1 markup=0 deltas=1 suppressed=1") {
		t.Errorf("Unexpected stats in %q", got)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	tests := [][]string{
		nil,
		{"explode"},
		{"resolve", "-side", "neither"},
		{"sync", "-log-provider", "syslog"},
	}
	for _, args := range tests {
		if err := run(args, strings.NewReader("x"), &bytes.Buffer{}); err == nil {
			t.Errorf("Expected error for %v", args)
		}
	}
}
