package mdsync

import (
	"context"
)

// Event is an edit notification for one pair.
type Event interface {
	PairKey() string
}

// RichModified reports that the rich surface now holds Content.
type RichModified struct {
	Key     string
	Content string
}

func (e RichModified) PairKey() string { return e.Key }

// MarkupChanged reports a keystroke in the markup source. The handler reads
// the field's current value.
type MarkupChanged struct {
	Key string
}

func (e MarkupChanged) PairKey() string { return e.Key }

// Stats counts what the dispatcher has done.
type Stats struct {
	RichWrites   int
	MarkupWrites int
	Deltas       int
	Suppressed   int
}

// Dispatcher runs handlers one at a time. Each event is read, converted and
// written back before the next one starts, so no locking is involved.
type Dispatcher struct {
	registry   *Registry
	controller *Controller
	logger     Logger
	deltas     bool
	stats      Stats
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the dispatcher logger.
func WithDispatcherLogger(logger Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithDeltas routes rich writes through DeltaApplier when a surface has it.
func WithDeltas(enabled bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.deltas = enabled
	}
}

// NewDispatcher wires registry pairs to controller handlers.
func NewDispatcher(registry *Registry, controller *Controller, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:   registry,
		controller: controller,
		logger:     NoOp(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewFromConfig builds the converter, controller and dispatcher described by
// cfg around an existing registry.
func NewFromConfig(cfg Config, registry *Registry, provider LoggerProvider) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	conv := NewConverter(cfg.Markdown, NewGrammar(), WithConverterLogger(ModuleLogger(provider, rootModule)))
	return NewDispatcher(registry, NewController(conv),
		WithDispatcherLogger(SyncLogger(provider)),
		WithDeltas(cfg.Deltas),
	), nil
}

// Setup forces every rich surface to the rendering of its markup source and
// renders every viewable once.
func (d *Dispatcher) Setup() {
	for _, pair := range d.registry.Pairs() {
		_, write := d.controller.Init(d.state(pair))
		d.apply(pair, write)
	}
	for _, v := range d.registry.views {
		v.surface.SetContent(d.controller.RenderView(v.surface.Content()))
		d.logger.Debug("viewable rendered", "key", v.key)
	}
}

// Dispatch runs the handler for ev and applies its write.
func (d *Dispatcher) Dispatch(ev Event) error {
	resolved, ok := resolveEvent(ev)
	if !ok {
		return unknownEventError(ev)
	}
	pair, ok := d.registry.Pair(resolved.PairKey())
	if !ok {
		return unknownPairError(resolved.PairKey())
	}

	var write *Write
	switch e := resolved.(type) {
	case RichModified:
		_, write = d.controller.OnRichModified(PairState{Key: pair.Key, Rich: e.Content, Markup: pair.Markup.Value()}, e.Content)
	case MarkupChanged:
		_, write = d.controller.OnMarkupChanged(d.state(pair))
	}

	if write == nil {
		d.stats.Suppressed++
		d.logger.Trace("echo suppressed", "key", pair.Key)
		return nil
	}
	d.apply(pair, write)
	return nil
}

// Run dispatches events in arrival order until the channel closes or ctx is
// done. Handler errors are logged and do not stop the loop.
func (d *Dispatcher) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := d.Dispatch(ev); err != nil {
				key := ""
				if resolved, ok := resolveEvent(ev); ok {
					key = resolved.PairKey()
				}
				d.logger.WithContext(ctx).Error("dispatch failed", "key", key, "error", err)
			}
		}
	}
}

// resolveEvent dereferences pointer events. It reports false for nil events
// and for types the dispatcher has no handler for.
func resolveEvent(ev Event) (Event, bool) {
	switch e := ev.(type) {
	case RichModified, MarkupChanged:
		return e, true
	case *RichModified:
		if e != nil {
			return *e, true
		}
	case *MarkupChanged:
		if e != nil {
			return *e, true
		}
	}
	return nil, false
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats { return d.stats }

func (d *Dispatcher) state(pair *DocumentPair) PairState {
	return PairState{Key: pair.Key, Rich: pair.Rich.Content(), Markup: pair.Markup.Value()}
}

func (d *Dispatcher) apply(pair *DocumentPair, write *Write) {
	if write == nil {
		return
	}
	switch write.Surface {
	case SurfaceMarkup:
		pair.Markup.SetValue(write.Content)
		d.stats.MarkupWrites++
	default:
		if !d.applyDelta(pair, write.Content) {
			pair.Rich.SetContent(write.Content)
		}
		d.stats.RichWrites++
	}
	d.logger.Debug("surface written", "key", pair.Key, "surface", write.Surface.String())
}

// applyDelta reports whether the rich write was carried out as a delta.
func (d *Dispatcher) applyDelta(pair *DocumentPair, content string) bool {
	applier, ok := pair.Rich.(DeltaApplier)
	if !d.deltas || !ok {
		return false
	}
	delta, err := Diff(pair.Rich.Content(), content, rootModule)
	if err != nil || delta.Empty() {
		return false
	}
	if err := applier.ApplyDelta(delta); err != nil {
		d.logger.Warn("delta rejected, replacing content", "key", pair.Key, "delta", delta.ID, "error", err)
		return false
	}
	d.stats.Deltas++
	return true
}
