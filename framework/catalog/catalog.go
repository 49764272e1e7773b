package catalog

import (
	"errors"
	"fmt"
	"reflect"
)

// Catalog is the read-only index of candidate types, built once from a fixed
// set of components.
type Catalog struct {
	components []*Component
	types      []*Type
	byType     map[reflect.Type]*Type
	position   map[*Type]int
	host       *Component
}

// New builds a catalog. Components are enumerated in the given order; nil
// entries and repeated components are ignored. Registration errors recorded
// on any component are returned here. On success the components are frozen:
// later Add and AddType calls leave them unchanged.
func New(components ...*Component) (*Catalog, error) {
	cat := &Catalog{
		byType:   make(map[reflect.Type]*Type),
		position: make(map[*Type]int),
	}

	seen := make(map[*Component]bool, len(components))
	var errs []error
	for _, comp := range components {
		if comp == nil || seen[comp] {
			continue
		}
		seen[comp] = true

		if comp.err != nil {
			errs = append(errs, comp.err)
		}
		if comp.host {
			if cat.host != nil {
				errs = append(errs, fmt.Errorf("%w: %s and %s", ErrMultipleHosts, cat.host.name, comp.name))
			} else {
				cat.host = comp
			}
		}

		cat.components = append(cat.components, comp)
		for _, t := range comp.types {
			if prev, ok := cat.byType[t.rtype]; ok {
				errs = append(errs, fmt.Errorf("%w: %s registered by %s and %s", ErrDuplicateType, t.rtype, prev.component.name, comp.name))
				continue
			}
			cat.byType[t.rtype] = t
			cat.position[t] = len(cat.types)
			cat.types = append(cat.types, t)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	for _, comp := range cat.components {
		comp.frozen = true
	}
	return cat, nil
}

// ── Types ─────────────────────────────────────────────────────────────────────

// FindTypes returns the candidate types matching every predicate, in
// discovery order. Without predicates all types are returned.
func (c *Catalog) FindTypes(preds ...Predicate) []*Type {
	out := make([]*Type, 0, len(c.types))
	for _, t := range c.types {
		if matches(t, preds) {
			out = append(out, t)
		}
	}
	return out
}

// Lookup returns the candidate type for rt.
func (c *Catalog) Lookup(rt reflect.Type) (*Type, bool) {
	t, ok := c.byType[rt]
	return t, ok
}

// LookupValue returns the candidate type of a resolved instance.
func (c *Catalog) LookupValue(v any) (*Type, bool) {
	if v == nil {
		return nil, false
	}
	return c.Lookup(reflect.TypeOf(v))
}

// Position returns the discovery index of t, or -1 when t is not part of the
// catalog.
func (c *Catalog) Position(t *Type) int {
	if p, ok := c.position[t]; ok {
		return p
	}
	return -1
}

// ── Components ────────────────────────────────────────────────────────────────

// FindComponents returns the components matching every predicate, in
// registration order.
func (c *Catalog) FindComponents(preds ...ComponentPredicate) []*Component {
	out := make([]*Component, 0, len(c.components))
	for _, comp := range c.components {
		ok := true
		for _, p := range preds {
			if !p(comp) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, comp)
		}
	}
	return out
}

// Host returns the host's entry component, if one was registered.
func (c *Catalog) Host() (*Component, bool) { return c.host, c.host != nil }

func matches(t *Type, preds []Predicate) bool {
	for _, p := range preds {
		if !p(t) {
			return false
		}
	}
	return true
}
