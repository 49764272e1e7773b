package catalog

import (
	"errors"
	"fmt"
	"reflect"
)

var errorType = reflect.TypeFor[error]()

// ── Component ─────────────────────────────────────────────────────────────────

// Component is a unit of loaded code that contributes candidate types.
type Component struct {
	name   string
	host   bool
	types  []*Type
	frozen bool

	// err holds every registration failure; it is reported by New so that
	// registration chains stay readable.
	err error
}

// ComponentOption configures a Component.
type ComponentOption func(*Component)

// AsHost marks the component as the host's own entry component.
func AsHost() ComponentOption {
	return func(c *Component) { c.host = true }
}

// NewComponent creates an empty component.
func NewComponent(name string, opts ...ComponentOption) *Component {
	c := &Component{name: name}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the declared component name.
func (c *Component) Name() string { return c.name }

// IsHost reports whether the component is the host's entry component.
func (c *Component) IsHost() bool { return c.host }

// Types returns the candidate types in registration order.
func (c *Component) Types() []*Type {
	out := make([]*Type, len(c.types))
	copy(out, c.types)
	return out
}

// Err returns the accumulated registration errors, if any.
func (c *Component) Err() error { return c.err }

func (c *Component) String() string { return c.name }

// ── Registration ──────────────────────────────────────────────────────────────

// Add registers the type returned by ctor. The constructor must have the
// signature func(deps...) T or func(deps...) (T, error); its parameters are
// supplied by the resolver. Adding a second constructor for the same type
// gives the resolver an alternative to choose from.
//
//	comp.Add(NewMailer).Add(NewMailerWithTransport)
func (c *Component) Add(ctor any, opts ...TypeOption) *Component {
	if c.frozen {
		return c.reject("Add")
	}
	fn := reflect.ValueOf(ctor)
	out, err := validateConstructor(fn)
	if err != nil {
		c.err = errors.Join(c.err, fmt.Errorf("component %s: %w", c.name, err))
		return c
	}

	t := c.typeFor(out)
	t.constructors = append(t.constructors, fn)
	t.apply(opts)
	return c
}

// AddType registers the type of sample. Without constructors the resolver
// builds the zero value (a freshly allocated value for pointer types).
//
//	comp.AddType(&HealthEndpoints{})
func (c *Component) AddType(sample any, opts ...TypeOption) *Component {
	if c.frozen {
		return c.reject("AddType")
	}
	rt := reflect.TypeOf(sample)
	if rt == nil || rt.Kind() == reflect.Interface {
		c.err = errors.Join(c.err, fmt.Errorf("component %s: %w: AddType needs a concrete value", c.name, ErrInvalidConstructor))
		return c
	}
	c.typeFor(rt).apply(opts)
	return c
}

// reject leaves a frozen component unchanged. The error shows up the next
// time the component is used to build a catalog.
func (c *Component) reject(op string) *Component {
	c.err = errors.Join(c.err, fmt.Errorf("component %s: %w: %s after the catalog was built", c.name, ErrFrozen, op))
	return c
}

func (c *Component) typeFor(rt reflect.Type) *Type {
	for _, t := range c.types {
		if t.rtype == rt {
			return t
		}
	}
	t := &Type{rtype: rt, component: c}
	c.types = append(c.types, t)
	return t
}

func validateConstructor(fn reflect.Value) (reflect.Type, error) {
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: constructor must be a function", ErrInvalidConstructor)
	}
	ft := fn.Type()
	if ft.NumOut() == 0 || ft.NumOut() > 2 {
		return nil, fmt.Errorf("%w: %s must return (T) or (T, error)", ErrInvalidConstructor, ft)
	}
	if ft.NumOut() == 2 && ft.Out(1) != errorType {
		return nil, fmt.Errorf("%w: %s: second return value must be error", ErrInvalidConstructor, ft)
	}
	if ft.IsVariadic() {
		return nil, fmt.Errorf("%w: %s: variadic constructors are not supported", ErrInvalidConstructor, ft)
	}
	out := ft.Out(0)
	if out.Kind() == reflect.Interface {
		return nil, fmt.Errorf("%w: %s returns an interface, not a concrete type", ErrInvalidConstructor, ft)
	}
	return out, nil
}
