package mdsync

// PairState is what a handler sees of one document pair: the current rich
// content and the current markup source value.
type PairState struct {
	Key    string
	Rich   string
	Markup string
}

// Controller holds the sync handlers. Each handler is a pure function of the
// pair state and its payload and returns the next state plus at most one
// surface write. A nil write means the event was an echo.
type Controller struct {
	conv *Converter
}

// NewController returns handlers backed by conv.
func NewController(conv *Converter) *Controller {
	return &Controller{conv: conv}
}

// Converter returns the converter behind the handlers.
func (c *Controller) Converter() *Converter { return c.conv }

// Init derives the rich side from the markup source. The write is always
// issued, even when the surfaces already agree.
func (c *Controller) Init(state PairState) (PairState, *Write) {
	state.Rich = c.conv.ToRichText(Normalize(state.Markup))
	return state, &Write{Surface: SurfaceRich, Content: state.Rich}
}

// OnRichModified handles an edit on the rich surface carrying its content.
func (c *Controller) OnRichModified(state PairState, content string) (PairState, *Write) {
	state.Rich = content
	candidate := c.conv.ToMarkup(content)
	if candidate == state.Markup {
		return state, nil
	}
	state.Markup = candidate
	return state, &Write{Surface: SurfaceMarkup, Content: candidate}
}

// OnMarkupChanged handles a keystroke in the markup source. Whitespace-only
// edits (blank lines, indentation, trailing spaces) never re-render the rich
// side.
func (c *Controller) OnMarkupChanged(state PairState) (PairState, *Write) {
	normalized := Normalize(state.Markup)
	if Normalize(c.conv.ToMarkup(state.Rich)) == normalized {
		return state, nil
	}
	rich := c.conv.ToRichText(normalized)
	if rich == state.Rich {
		return state, nil
	}
	state.Rich = rich
	return state, &Write{Surface: SurfaceRich, Content: rich}
}

// RenderView renders markup for a read-only surface.
func (c *Controller) RenderView(markup string) string {
	return c.conv.ToRichText(markup)
}
