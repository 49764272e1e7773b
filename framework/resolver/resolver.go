// Package resolver materializes candidate types from the catalog into cached
// instances using constructor injection.
package resolver

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/km-arc/pibox/framework/catalog"
	"github.com/km-arc/pibox/framework/container"
)

// ErrUnresolvable is returned when no constructor of a type can be satisfied
// by the container or the fallback arguments. Callers treat it as "skip this
// candidate", never as a fatal condition.
var ErrUnresolvable = errors.New("unresolvable dependency")

// Resolver builds and caches at most one instance per candidate type.
type Resolver struct {
	catalog   *catalog.Catalog
	container *container.Container
	fallback  map[reflect.Type]reflect.Value
	logger    logrus.FieldLogger

	cache sync.Map // reflect.Type → any
	group singleflight.Group

	mu       sync.Mutex
	resolved []reflect.Type // resolution order, used for disposal
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFallback supplies default constructor arguments, keyed by their dynamic
// type. They are used only when the container has no value for a parameter.
func WithFallback(values ...any) Option {
	return func(r *Resolver) {
		for _, v := range values {
			if v == nil {
				continue
			}
			r.fallback[reflect.TypeOf(v)] = reflect.ValueOf(v)
		}
	}
}

// WithFallbackFor supplies a default argument for parameters of type t, which
// is how interface-typed parameters get a fallback.
//
//	resolver.WithFallbackFor(reflect.TypeFor[logrus.FieldLogger](), logger)
func WithFallbackFor(t reflect.Type, value any) Option {
	return func(r *Resolver) {
		v := reflect.ValueOf(value)
		if !v.IsValid() {
			v = reflect.Zero(t)
		}
		r.fallback[t] = v
	}
}

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a resolver over cat, drawing constructor arguments from c.
func New(cat *catalog.Catalog, c *container.Container, opts ...Option) *Resolver {
	r := &Resolver{
		catalog:   cat,
		container: c,
		fallback:  make(map[reflect.Type]reflect.Value),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		r.logger = l
	}
	return r
}

// Catalog returns the catalog the resolver discovers types from.
func (r *Resolver) Catalog() *catalog.Catalog { return r.catalog }

// ── Resolution ────────────────────────────────────────────────────────────────

// ResolveInstance returns the cached instance of t, constructing it on first
// use. Among t's constructors the one with the most parameters that can all be
// satisfied is called; parameters come from the container first and from the
// fallback arguments second. When no constructor can be satisfied the error
// wraps ErrUnresolvable. Errors returned by the constructor are passed through
// unchanged, and panics are not recovered.
//
// Concurrent calls for the same type construct it once; calls for different
// types do not block each other.
func (r *Resolver) ResolveInstance(t *catalog.Type) (any, error) {
	rt := t.Reflect()
	if v, ok := r.cache.Load(rt); ok {
		return v, nil
	}

	v, err, _ := r.group.Do(container.KeyOf(rt)+"#"+rt.String(), func() (any, error) {
		// Another caller may have finished between Load and Do.
		if v, ok := r.cache.Load(rt); ok {
			return v, nil
		}

		instance, err := r.construct(t)
		if err != nil {
			return nil, err
		}

		r.cache.Store(rt, instance)
		r.mu.Lock()
		r.resolved = append(r.resolved, rt)
		r.mu.Unlock()

		r.logger.WithFields(logrus.Fields{
			"type":      t.Name(),
			"component": t.Component().Name(),
		}).Debug("resolved plugin instance")
		return instance, nil
	})
	return v, err
}

// FindAndResolve resolves every catalog type matching preds, in discovery
// order. Unresolvable candidates are dropped; any other error is returned.
func (r *Resolver) FindAndResolve(preds ...catalog.Predicate) ([]any, error) {
	types := r.catalog.FindTypes(preds...)
	out := make([]any, 0, len(types))
	for _, t := range types {
		instance, err := r.ResolveInstance(t)
		if errors.Is(err, ErrUnresolvable) {
			r.logger.WithError(err).WithField("type", t.Name()).Debug("skipping plugin")
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, instance)
	}
	return out, nil
}

// FindAndResolveAs resolves every catalog type implementing T (and matching
// preds), converted to T.
//
//	endpoints, err := resolver.FindAndResolveAs[plugins.EndpointsConfigurator](r)
func FindAndResolveAs[T any](r *Resolver, preds ...catalog.Predicate) ([]T, error) {
	preds = append([]catalog.Predicate{catalog.Implements[T]()}, preds...)
	found, err := r.FindAndResolve(preds...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(found))
	for _, v := range found {
		out = append(out, v.(T))
	}
	return out, nil
}

// Cached returns the cached instance of t without constructing it.
func (r *Resolver) Cached(t *catalog.Type) (any, bool) {
	return r.cache.Load(t.Reflect())
}

// ── Disposal ──────────────────────────────────────────────────────────────────

// ClearInstances empties the cache, closing every cached io.Closer once, most
// recently resolved first. The first Close error stops disposal and is
// returned; instances not yet closed are dropped from the cache without being
// closed. Calling it on an empty cache is a no-op.
//
// ClearInstances must not run while ResolveInstance calls are in flight.
func (r *Resolver) ClearInstances() error {
	r.mu.Lock()
	resolved := r.resolved
	r.resolved = nil
	r.mu.Unlock()

	var err error
	for _, rt := range slices.Backward(resolved) {
		v, ok := r.cache.LoadAndDelete(rt)
		if !ok || err != nil {
			continue
		}
		if closer, ok := v.(io.Closer); ok {
			if cerr := closer.Close(); cerr != nil {
				err = fmt.Errorf("closing %s: %w", catalog.SimpleName(rt), cerr)
			}
		}
	}
	return err
}

// ── Construction ──────────────────────────────────────────────────────────────

func (r *Resolver) construct(t *catalog.Type) (any, error) {
	ctors := t.Constructors()
	if len(ctors) == 0 {
		return zeroValue(t.Reflect()).Interface(), nil
	}

	// Most parameters first; registration order breaks ties.
	slices.SortStableFunc(ctors, func(a, b reflect.Value) int {
		return b.Type().NumIn() - a.Type().NumIn()
	})

	var missing []string
	for _, ctor := range ctors {
		args, unmet := r.arguments(ctor.Type())
		if unmet != nil {
			missing = append(missing, unmet.String())
			continue
		}
		return call(ctor, args)
	}
	return nil, fmt.Errorf("%w: %s needs one of %v", ErrUnresolvable, t, missing)
}

// arguments returns the values for every parameter of ft, or the first
// parameter type nothing can supply.
func (r *Resolver) arguments(ft reflect.Type) ([]reflect.Value, reflect.Type) {
	args := make([]reflect.Value, ft.NumIn())
	for i := range ft.NumIn() {
		pt := ft.In(i)
		v, ok := r.argument(pt)
		if !ok {
			return nil, pt
		}
		args[i] = v
	}
	return args, nil
}

func (r *Resolver) argument(pt reflect.Type) (reflect.Value, bool) {
	if r.container != nil && r.container.BoundType(pt) {
		if instance, err := r.container.MakeType(pt); err == nil {
			if instance == nil {
				return reflect.Zero(pt), true
			}
			if v := reflect.ValueOf(instance); v.Type().AssignableTo(pt) {
				return v, true
			}
		}
	}
	if v, ok := r.fallback[pt]; ok {
		return v, true
	}
	return reflect.Value{}, false
}

func call(ctor reflect.Value, args []reflect.Value) (any, error) {
	results := ctor.Call(args)
	if len(results) == 2 {
		if err, _ := results[1].Interface().(error); err != nil {
			return nil, err
		}
	}
	return results[0].Interface(), nil
}

func zeroValue(rt reflect.Type) reflect.Value {
	if rt.Kind() == reflect.Pointer {
		return reflect.New(rt.Elem())
	}
	return reflect.New(rt).Elem()
}
