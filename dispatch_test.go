package mdsync

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type fixture struct {
	rich       *MemoryRichSurface
	markup     *MemoryMarkupSurface
	dispatcher *Dispatcher
}

func newFixture(t *testing.T, markup string, opts ...DispatcherOption) *fixture {
	t.Helper()
	f := &fixture{
		rich:   NewMemoryRichSurface(""),
		markup: NewMemoryMarkupSurface(markup),
	}
	r := NewRegistry()
	if err := r.Add("doc", f.rich, f.markup); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	opts = append([]DispatcherOption{WithDeltas(true)}, opts...)
	f.dispatcher = NewDispatcher(r, NewController(newTestConverter()), opts...)
	f.dispatcher.Setup()
	return f
}

func TestSetupRendersPairs(t *testing.T) {
	f := newFixture(t, "# Title")
	if got := f.rich.Content(); got != "<h1>Title</h1>\n" {
		t.Errorf("Unexpected rich content %q", got)
	}
	stats := f.dispatcher.Stats()
	if stats.RichWrites != 1 || stats.Deltas != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	if f.rich.Deltas() != 1 {
		t.Errorf("Expected setup write as a delta, got %d", f.rich.Deltas())
	}
}

func TestSetupRendersViewables(t *testing.T) {
	r := NewRegistry()
	view := NewMemoryRichSurface("**x**")
	if err := r.AddViewable("view", view); err != nil {
		t.Fatalf("AddViewable failed: %v", err)
	}
	NewDispatcher(r, NewController(newTestConverter())).Setup()
	if got := view.Content(); got != "<p><strong>x</strong></p>\n" {
		t.Errorf("Unexpected view content %q", got)
	}
}

func TestDispatchRichEdit(t *testing.T) {
	f := newFixture(t, "# Title")

	edited := "<h1>Title</h1>\n<p>more</p>\n"
	f.rich.SetContent(edited)
	if err := f.dispatcher.Dispatch(RichModified{Key: "doc", Content: edited}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if got := f.markup.Value(); got != "# Title\n\nmore" {
		t.Errorf("Unexpected markup %q", got)
	}

	// The markup write fires a change event of its own.
	if err := f.dispatcher.Dispatch(&MarkupChanged{Key: "doc"}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	stats := f.dispatcher.Stats()
	if stats.MarkupWrites != 1 || stats.RichWrites != 1 || stats.Suppressed != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestDispatchMarkupEdit(t *testing.T) {
	f := newFixture(t, "# Title")

	f.markup.Type("# Title\n\nnew text")
	if err := f.dispatcher.Dispatch(MarkupChanged{Key: "doc"}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if got := f.rich.Content(); got != "<h1>Title</h1>\n<p>new text</p>\n" {
		t.Errorf("Unexpected rich content %q", got)
	}
	if f.rich.Deltas() != 2 {
		t.Errorf("Expected 2 delta writes, got %d", f.rich.Deltas())
	}

	f.markup.Type("  # Title\n\n\n\nnew text  ")
	if err := f.dispatcher.Dispatch(MarkupChanged{Key: "doc"}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if f.rich.Writes() != 2 {
		t.Errorf("Whitespace edit rewrote rich surface")
	}
	if f.markup.Writes() != 0 {
		t.Errorf("Markup surface written %d times", f.markup.Writes())
	}
}

func TestDispatchWithoutDeltas(t *testing.T) {
	f := newFixture(t, "text", WithDeltas(false))
	if f.rich.Deltas() != 0 || f.rich.Writes() != 1 {
		t.Errorf("Expected a plain write, got writes=%d deltas=%d", f.rich.Writes(), f.rich.Deltas())
	}
	if f.rich.Content() != "<p>text</p>\n" {
		t.Errorf("Unexpected content %q", f.rich.Content())
	}
}

type renameEvent struct{ key string }

func (e renameEvent) PairKey() string { return e.key }

func TestDispatchErrors(t *testing.T) {
	f := newFixture(t, "text")

	err := f.dispatcher.Dispatch(MarkupChanged{Key: "missing"})
	if !goerrors.IsCategory(err, goerrors.CategoryNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}

	err = f.dispatcher.Dispatch(renameEvent{key: "doc"})
	if !goerrors.IsCategory(err, goerrors.CategoryBadInput) {
		t.Errorf("Expected bad input, got %v", err)
	}
}

func TestDispatchNilEvents(t *testing.T) {
	f := newFixture(t, "text")
	tests := []struct {
		name string
		ev   Event
	}{
		{"Nil interface", nil},
		{"Nil rich pointer", (*RichModified)(nil)},
		{"Nil markup pointer", (*MarkupChanged)(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.dispatcher.Dispatch(tt.ev)
			if !goerrors.IsCategory(err, goerrors.CategoryBadInput) {
				t.Errorf("Expected bad input, got %v", err)
			}
		})
	}

	events := make(chan Event, 1)
	events <- (*RichModified)(nil)
	close(events)
	if err := f.dispatcher.Run(context.Background(), events); err != nil {
		t.Errorf("Run returned %v", err)
	}
}

func TestDispatchPointerEvents(t *testing.T) {
	f := newFixture(t, "one")
	f.markup.Type("two")
	if err := f.dispatcher.Dispatch(&MarkupChanged{Key: "doc"}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if got := f.rich.Content(); got != "<p>two</p>\n" {
		t.Errorf("Unexpected rich content %q", got)
	}
}

func TestDispatchUnchangedRichKeepsSource(t *testing.T) {
	sources := []string{
		"use [brackets] here",
		"a * b",
		"{curly} set",
		"see ~home",
		"dash -] end",
		"x [- y",
		"<<<<<<<nospace",
	}
	for _, source := range sources {
		t.Run(source, func(t *testing.T) {
			f := newFixture(t, source)
			if err := f.dispatcher.Dispatch(RichModified{Key: "doc", Content: f.rich.Content()}); err != nil {
				t.Fatalf("Dispatch failed: %v", err)
			}
			if f.markup.Writes() != 0 {
				t.Errorf("Source rewritten to %q", f.markup.Value())
			}
			if f.markup.Value() != source {
				t.Errorf("Expected %q, got %q", source, f.markup.Value())
			}
			if s := f.dispatcher.Stats(); s.Suppressed != 1 {
				t.Errorf("Unexpected stats %+v", s)
			}
		})
	}
}

func TestRunProcessesEventsInOrder(t *testing.T) {
	f := newFixture(t, "one")

	events := make(chan Event, 3)
	f.markup.Type("two")
	events <- MarkupChanged{Key: "doc"}
	events <- MarkupChanged{Key: "missing"}
	events <- MarkupChanged{Key: "doc"}
	close(events)

	if err := f.dispatcher.Run(context.Background(), events); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if got := f.rich.Content(); got != "<p>two</p>\n" {
		t.Errorf("Unexpected rich content %q", got)
	}
	if s := f.dispatcher.Stats(); s.RichWrites != 2 || s.Suppressed != 1 {
		t.Errorf("Unexpected stats %+v", s)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, "one")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := f.dispatcher.Run(ctx, make(chan Event))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	r := NewRegistry()
	rich := NewMemoryRichSurface("")
	if err := r.Add("doc", rich, NewMemoryMarkupSurface("[-a-]")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	d, err := NewFromConfig(DefaultConfig(), r, nil)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	d.Setup()
	if got := rich.Content(); got != "<p><span class=\"removed\">a</span></p>\n" {
		t.Errorf("Unexpected rich content %q", got)
	}

	cfg := DefaultConfig()
	cfg.SourceSuffix = ""
	if _, err := NewFromConfig(cfg, r, nil); !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}
