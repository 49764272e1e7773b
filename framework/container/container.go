package container

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrNotBound is returned by Get when nothing is registered under an abstract.
var ErrNotBound = errors.New("no binding registered")

// ── Binding types ─────────────────────────────────────────────────────────────

// Factory is a function that builds a concrete value from the container.
type Factory func(c *Container) any

// binding holds a registered factory and whether it is a singleton.
type binding struct {
	factory   Factory
	singleton bool

	// once guards singleton construction so concurrent Make calls build the
	// value a single time.
	once  sync.Once
	value any
}

// extender wraps an already-resolved instance with decorator logic.
type extender func(instance any, c *Container) any

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the host's service registry. Plugins register services in it
// during the services pass and look them up in later passes.
//
// It supports:
//   - Bind / Singleton / Instance / Alias
//   - Make / Get / Resolve (generic)
//   - Type-keyed registration and lookup (KeyOf, BoundType, MakeType)
//   - Extend (decorate resolved instances)
//   - Resolved event callbacks
type Container struct {
	mu sync.RWMutex

	// abstract → binding
	bindings map[string]*binding

	// abstract → resolved singleton or registered instance
	instances map[string]any

	// alias → abstract (canonical key)
	aliases map[string]string

	// abstract → extender funcs
	extenders map[string][]extender

	// resolved callbacks: []func(abstract, instance)
	afterResolving []func(string, any)
}

// New creates an empty container. The container is bound to itself under
// "container" and under its type key.
func New() *Container {
	c := &Container{
		bindings:  make(map[string]*binding),
		instances: make(map[string]any),
		aliases:   make(map[string]string),
		extenders: make(map[string][]extender),
	}
	c.Instance(TypeKey(c), c)
	c.Alias(TypeKey(c), "container")
	return c
}

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a transient (new instance each Make) factory.
//
//	c.Bind("UserRepository", func(c *container.Container) any {
//	    return &SQLUserRepository{DB: container.Resolve[*sql.DB](c, "db")}
//	})
func (c *Container) Bind(abstract string, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bind(abstract, factory, false)
}

// Singleton registers a factory whose result is cached after first resolution.
//
//	c.Singleton("cache", func(c *container.Container) any {
//	    return cache.New(container.Resolve[*config.AppConfig](c, "config"))
//	})
func (c *Container) Singleton(abstract string, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bind(abstract, factory, true)
}

// Instance registers a pre-built value as a singleton.
//
//	c.Instance(container.TypeKey(cfg), cfg)
func (c *Container) Instance(abstract string, instance any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonical(abstract)
	delete(c.bindings, key)
	c.instances[key] = instance
}

// bind is the internal registration helper (must hold mu.Lock).
func (c *Container) bind(abstract string, factory Factory, singleton bool) {
	key := c.canonical(abstract)
	// Drop an existing instance so it is rebuilt with the new factory.
	delete(c.instances, key)
	c.bindings[key] = &binding{factory: factory, singleton: singleton}
}

// Alias registers an alternative name for an abstract.
//
//	c.Alias(container.TypeKey(cfg), "config")
func (c *Container) Alias(abstract, alias string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if abstract == alias {
		panic(fmt.Sprintf("container: [%s] is aliased to itself", abstract))
	}
	c.aliases[alias] = c.canonical(abstract)
}

// ── Extend ────────────────────────────────────────────────────────────────────

// Extend decorates the resolved instance of an abstract.
//
//	c.Extend("mailer", func(instance any, c *container.Container) any {
//	    return &LoggingMailer{Inner: instance.(Mailer)}
//	})
func (c *Container) Extend(abstract string, fn func(instance any, c *Container) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonical(abstract)
	c.extenders[key] = append(c.extenders[key], fn)

	// Already resolved: decorate the cached instance in place.
	if inst, ok := c.instances[key]; ok {
		c.instances[key] = fn(inst, c)
	}
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Make resolves an abstract from the container. It panics when nothing is
// registered under abstract; use Get to receive an error instead.
//
//	repo := c.Make("UserRepository")
func (c *Container) Make(abstract string) any {
	instance, err := c.Get(abstract)
	if err != nil {
		panic(fmt.Sprintf("container: %v", err))
	}
	return instance
}

// Get resolves an abstract, returning ErrNotBound when it is unknown.
func (c *Container) Get(abstract string) (any, error) {
	c.mu.RLock()
	key := c.canonical(abstract)
	if inst, ok := c.instances[key]; ok {
		c.mu.RUnlock()
		return inst, nil
	}
	b, ok := c.bindings[key]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w for [%s]", ErrNotBound, abstract)
	}
	if b.singleton {
		return c.runSingleton(key, b), nil
	}
	return c.runFactory(key, b.factory), nil
}

// runSingleton builds a singleton once and caches it. Rebinding the abstract
// in the meantime replaces the binding, so a stale build is never cached.
func (c *Container) runSingleton(key string, b *binding) any {
	b.once.Do(func() {
		b.value = c.runFactory(key, b.factory)

		c.mu.Lock()
		if c.bindings[key] == b {
			c.instances[key] = b.value
		}
		c.mu.Unlock()
	})
	return b.value
}

// runFactory executes a factory and applies extenders.
func (c *Container) runFactory(key string, f Factory) any {
	instance := f(c)

	c.mu.RLock()
	exts := c.extenders[key]
	c.mu.RUnlock()
	for _, ext := range exts {
		instance = ext(instance, c)
	}

	c.fireAfterResolving(key, instance)
	return instance
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Bound returns true if an abstract has been registered.
func (c *Container) Bound(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := c.canonical(abstract)
	_, hasBinding := c.bindings[key]
	_, hasInstance := c.instances[key]
	return hasBinding || hasInstance
}

// Resolved returns true if the abstract holds a built instance.
func (c *Container) Resolved(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.instances[c.canonical(abstract)]
	return ok
}

// Forget removes all registrations for an abstract (binding + instance).
func (c *Container) Forget(abstract string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonical(abstract)
	delete(c.bindings, key)
	delete(c.instances, key)
}

// Flush resets the entire container. The self binding is kept.
func (c *Container) Flush() {
	c.mu.Lock()
	c.bindings = make(map[string]*binding)
	c.instances = make(map[string]any)
	c.aliases = make(map[string]string)
	c.extenders = make(map[string][]extender)
	c.mu.Unlock()

	c.Instance(TypeKey(c), c)
	c.Alias(TypeKey(c), "container")
}

// Bindings returns all registered abstract keys (for debugging).
func (c *Container) Bindings() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.bindings)+len(c.instances))
	for k := range c.bindings {
		out = append(out, k)
	}
	for k := range c.instances {
		if _, already := c.bindings[k]; !already {
			out = append(out, k)
		}
	}
	return out
}

// canonical resolves an alias to its canonical key.
func (c *Container) canonical(abstract string) string {
	if target, ok := c.aliases[abstract]; ok {
		return target
	}
	return abstract
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// AfterResolving registers a callback fired after a factory builds a value.
func (c *Container) AfterResolving(cb func(abstract string, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

func (c *Container) fireAfterResolving(abstract string, instance any) {
	c.mu.RLock()
	cbs := c.afterResolving
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(abstract, instance)
	}
}

// ── Type keys ─────────────────────────────────────────────────────────────────

// TypeKey returns the package-qualified type name of v, used as the abstract
// key for type-keyed registrations. Pointer indirections are ignored, so
// TypeKey(&Foo{}) and TypeKey(Foo{}) are equal. For interfaces pass a typed
// nil pointer:
//
//	key := container.TypeKey((*Mailer)(nil))  // "example.com/mail.Mailer"
func TypeKey(v any) string {
	return KeyOf(reflect.TypeOf(v))
}

// KeyOf is TypeKey for a reflect.Type.
func KeyOf(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// BoundType reports whether a value for t is registered under its type key.
func (c *Container) BoundType(t reflect.Type) bool {
	return c.Bound(KeyOf(t))
}

// MakeType resolves the value registered under the type key of t.
func (c *Container) MakeType(t reflect.Type) (any, error) {
	return c.Get(KeyOf(t))
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve is a generic helper that calls Make and type-asserts the result.
//
//	cfg := container.Resolve[*config.AppConfig](c, "config")
func Resolve[T any](c *Container, abstract string) T {
	instance := c.Make(abstract)
	typed, ok := instance.(T)
	if !ok {
		panic(fmt.Sprintf("container: Resolve[%T]: [%s] resolved to %T", *new(T), abstract, instance))
	}
	return typed
}

// MustResolve is like Resolve but returns (T, bool) without panicking on a
// type mismatch.
func MustResolve[T any](c *Container, abstract string) (T, bool) {
	instance := c.Make(abstract)
	typed, ok := instance.(T)
	return typed, ok
}

// Lookup resolves the value registered under the type key of T.
//
//	health, err := container.Lookup[*health.Registry](c)
func Lookup[T any](c *Container) (T, error) {
	var zero T
	instance, err := c.MakeType(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("container: %s resolved to %T", KeyOf(reflect.TypeFor[T]()), instance)
	}
	return typed, nil
}

// Provide registers instance under the type key of T.
//
//	container.Provide[Mailer](c, smtpMailer)
func Provide[T any](c *Container, instance T) {
	c.Instance(KeyOf(reflect.TypeFor[T]()), instance)
}
