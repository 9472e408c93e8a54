package mdsync

// RichSurface is an editable rich rendering of a document. Viewable surfaces
// use the same contract: Content holds markup until they are rendered.
type RichSurface interface {
	Content() string
	SetContent(rich string)
}

// MarkupSurface is the plain-text markup field of a pair.
type MarkupSurface interface {
	Value() string
	SetValue(markup string)
}

// DeltaApplier is implemented by rich surfaces that can patch themselves in
// place instead of replacing their whole content.
type DeltaApplier interface {
	ApplyDelta(delta *Delta) error
}

// MemoryRichSurface is an in-memory RichSurface that counts writes.
type MemoryRichSurface struct {
	content string
	writes  int
	deltas  int
}

// NewMemoryRichSurface returns a surface holding content.
func NewMemoryRichSurface(content string) *MemoryRichSurface {
	return &MemoryRichSurface{content: content}
}

func (s *MemoryRichSurface) Content() string { return s.content }

func (s *MemoryRichSurface) SetContent(rich string) {
	s.content = rich
	s.writes++
}

// ApplyDelta patches the stored content. A delta built against other content
// is rejected and the surface is left untouched.
func (s *MemoryRichSurface) ApplyDelta(delta *Delta) error {
	patched, err := Patch(s.content, delta)
	if err != nil {
		return err
	}
	s.content = patched
	s.writes++
	s.deltas++
	return nil
}

// Writes counts every update, full or delta.
func (s *MemoryRichSurface) Writes() int { return s.writes }

// Deltas counts updates applied through ApplyDelta.
func (s *MemoryRichSurface) Deltas() int { return s.deltas }

// MemoryMarkupSurface is an in-memory MarkupSurface that counts writes.
type MemoryMarkupSurface struct {
	value  string
	writes int
}

// NewMemoryMarkupSurface returns a field holding value.
func NewMemoryMarkupSurface(value string) *MemoryMarkupSurface {
	return &MemoryMarkupSurface{value: value}
}

func (s *MemoryMarkupSurface) Value() string { return s.value }

func (s *MemoryMarkupSurface) SetValue(markup string) {
	s.value = markup
	s.writes++
}

// Type simulates the user editing the field. It does not count as a write.
func (s *MemoryMarkupSurface) Type(markup string) { s.value = markup }

func (s *MemoryMarkupSurface) Writes() int { return s.writes }
