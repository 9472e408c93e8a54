package mdsync

import (
	"sort"
	"strings"
)

// DocumentPair binds one rich surface to one markup surface under a key.
type DocumentPair struct {
	Key    string
	Rich   RichSurface
	Markup MarkupSurface
}

type viewEntry struct {
	key     string
	surface RichSurface
}

// Registry is the explicit pair table built once during setup.
type Registry struct {
	pairs  map[string]*DocumentPair
	order  []string
	views  []viewEntry
	logger Logger
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(logger Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		pairs:  map[string]*DocumentPair{},
		logger: NoOp(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a pair. Keys are unique and both surfaces are required.
func (r *Registry) Add(key string, rich RichSurface, markup MarkupSurface) error {
	if _, exists := r.pairs[key]; exists {
		return duplicatePairError(key)
	}
	if rich == nil {
		return incompletePairError(key, "rich")
	}
	if markup == nil {
		return incompletePairError(key, "markup")
	}
	r.pairs[key] = &DocumentPair{Key: key, Rich: rich, Markup: markup}
	r.order = append(r.order, key)
	r.logger.Debug("document pair registered", "key", key)
	return nil
}

// AddViewable registers a read-only surface that is rendered once at setup.
func (r *Registry) AddViewable(key string, view RichSurface) error {
	if view == nil {
		return incompletePairError(key, "viewable")
	}
	for _, v := range r.views {
		if v.key == key {
			return duplicatePairError(key)
		}
	}
	r.views = append(r.views, viewEntry{key: key, surface: view})
	return nil
}

// Discover pairs every rich surface with id X to the markup surface with id
// X+suffix. Rich surfaces without a partner are skipped, as are ids that
// hold neither surface kind.
func (r *Registry) Discover(surfaces map[string]any, suffix string) error {
	ids := make([]string, 0, len(surfaces))
	for id := range surfaces {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if strings.HasSuffix(id, suffix) {
			continue
		}
		rich, ok := surfaces[id].(RichSurface)
		if !ok {
			continue
		}
		markup, ok := surfaces[id+suffix].(MarkupSurface)
		if !ok {
			r.logger.Warn("rich surface has no markup source", "key", id, "source", id+suffix)
			continue
		}
		if err := r.Add(id, rich, markup); err != nil {
			return err
		}
	}
	return nil
}

// Pair returns the pair registered under key.
func (r *Registry) Pair(key string) (*DocumentPair, bool) {
	p, ok := r.pairs[key]
	return p, ok
}

// Pairs returns the pairs in registration order.
func (r *Registry) Pairs() []*DocumentPair {
	out := make([]*DocumentPair, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.pairs[key])
	}
	return out
}

// Len reports the number of pairs.
func (r *Registry) Len() int { return len(r.order) }
