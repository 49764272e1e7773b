package catalog

import "reflect"

// Type is a candidate type contributed by a Component.
type Type struct {
	rtype        reflect.Type
	component    *Component
	constructors []reflect.Value

	order   int
	ordered bool
	section string
}

// TypeOption attaches an attribute to a candidate type.
type TypeOption func(*Type)

// WithOrder sets the explicit pipeline order of a middleware type. Lower
// values run first; types without an order run after every ordered one.
func WithOrder(n int) TypeOption {
	return func(t *Type) {
		t.order = n
		t.ordered = true
	}
}

// WithConfigSection binds the type to a configuration section. The host
// resolves such types at startup, populates them from the section and
// registers them in the container.
func WithConfigSection(key string) TypeOption {
	return func(t *Type) { t.section = key }
}

func (t *Type) apply(opts []TypeOption) {
	for _, opt := range opts {
		opt(t)
	}
}

// Reflect returns the underlying Go type.
func (t *Type) Reflect() reflect.Type { return t.rtype }

// Component returns the owning component.
func (t *Type) Component() *Component { return t.component }

// Constructors returns the registered constructor functions. An empty slice
// means zero-value construction.
func (t *Type) Constructors() []reflect.Value {
	out := make([]reflect.Value, len(t.constructors))
	copy(out, t.constructors)
	return out
}

// Order returns the explicit order attribute, if set.
func (t *Type) Order() (int, bool) { return t.order, t.ordered }

// ConfigSection returns the bound configuration section, if set.
func (t *Type) ConfigSection() (string, bool) { return t.section, t.section != "" }

// Implements reports whether values of the type implement iface.
func (t *Type) Implements(iface reflect.Type) bool {
	return iface.Kind() == reflect.Interface && t.rtype.Implements(iface)
}

// Name returns the simple type name, without package or pointer markers.
func (t *Type) Name() string { return SimpleName(t.rtype) }

func (t *Type) String() string { return t.component.name + "/" + t.Name() }

// SimpleName returns the name of rt with pointer indirections removed.
func SimpleName(rt reflect.Type) string {
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Name() == "" {
		return rt.String()
	}
	return rt.Name()
}
