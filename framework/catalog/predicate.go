package catalog

import "reflect"

// Predicate selects candidate types.
type Predicate func(*Type) bool

// ComponentPredicate selects components.
type ComponentPredicate func(*Component) bool

// Implements selects types implementing the interface I.
//
//	cat.FindTypes(catalog.Implements[io.Closer]())
func Implements[I any]() Predicate {
	return ImplementsType(reflect.TypeFor[I]())
}

// ImplementsType selects types implementing iface. A non-interface iface
// matches nothing.
func ImplementsType(iface reflect.Type) Predicate {
	return func(t *Type) bool { return t.Implements(iface) }
}

// HasConfigSection selects types bound to a configuration section.
func HasConfigSection() Predicate {
	return func(t *Type) bool {
		_, ok := t.ConfigSection()
		return ok
	}
}

// HasOrder selects types carrying an explicit order attribute.
func HasOrder() Predicate {
	return func(t *Type) bool {
		_, ok := t.Order()
		return ok
	}
}

// InComponent selects types owned by comp.
func InComponent(comp *Component) Predicate {
	return func(t *Type) bool { return t.component == comp }
}

// ContainsType selects components owning at least one type matching every
// predicate.
func ContainsType(preds ...Predicate) ComponentPredicate {
	return func(c *Component) bool {
		for _, t := range c.types {
			if matches(t, preds) {
				return true
			}
		}
		return false
	}
}

// Named selects the component with the given name.
func Named(name string) ComponentPredicate {
	return func(c *Component) bool { return c.name == name }
}
