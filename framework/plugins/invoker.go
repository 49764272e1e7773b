package plugins

import (
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/km-arc/pibox/framework/catalog"
	"github.com/km-arc/pibox/framework/container"
	"github.com/km-arc/pibox/framework/health"
	"github.com/km-arc/pibox/framework/ordering"
	"github.com/km-arc/pibox/framework/resolver"
	"github.com/km-arc/pibox/framework/routing"
)

// Point names an extension point.
type Point string

const (
	PointServices     Point = "services"
	PointHealthChecks Point = "health_checks"
	PointApplication  Point = "application"
	PointMiddleware   Point = "middleware"
	PointEndpoints    Point = "endpoints"
)

// Points lists every extension point in host startup order.
var Points = []Point{PointServices, PointHealthChecks, PointApplication, PointMiddleware, PointEndpoints}

// Record describes one plugin's place in an extension point.
type Record struct {
	Point     Point         `json:"point"`
	Index     int           `json:"index"`
	Plugin    string        `json:"plugin"`
	Component string        `json:"component"`
	Rank      ordering.Rank `json:"-"`
	Order     int           `json:"order,omitempty"`
	Ordered   bool          `json:"-"`
}

// Invoker discovers, orders and applies plugins of one capability at a time.
// Errors and panics raised by a plugin propagate unchanged and stop the
// pass; no later plugin of that pass runs.
type Invoker struct {
	resolver *resolver.Resolver
	policy   *ordering.Policy
	logger   logrus.FieldLogger

	mu      sync.Mutex
	applied []Record
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithLogger sets the logger that receives one entry per invocation.
func WithLogger(l logrus.FieldLogger) Option {
	return func(i *Invoker) { i.logger = l }
}

// NewInvoker creates an invoker resolving plugins through r and ordering
// them with p.
func NewInvoker(r *resolver.Resolver, p *ordering.Policy, opts ...Option) *Invoker {
	inv := &Invoker{resolver: r, policy: p}
	for _, opt := range opts {
		opt(inv)
	}
	if inv.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		inv.logger = l
	}
	return inv
}

// ApplyServices calls ConfigureServices on every ServiceConfigurator.
func (inv *Invoker) ApplyServices(c *container.Container) ([]ordering.Entry[ServiceConfigurator], error) {
	return apply(inv, PointServices, ordering.ByComponent[ServiceConfigurator],
		func(p ServiceConfigurator) error { return p.ConfigureServices(c) })
}

// ApplyHealthChecks calls ConfigureHealthChecks on every
// HealthChecksConfigurator.
func (inv *Invoker) ApplyHealthChecks(h *health.Registry) ([]ordering.Entry[HealthChecksConfigurator], error) {
	return apply(inv, PointHealthChecks, ordering.ByComponent[HealthChecksConfigurator],
		func(p HealthChecksConfigurator) error { return p.ConfigureHealthChecks(h) })
}

// ApplyApplication calls ConfigureApplication on every
// ApplicationConfigurator.
func (inv *Invoker) ApplyApplication(r *routing.Router) ([]ordering.Entry[ApplicationConfigurator], error) {
	return apply(inv, PointApplication, ordering.ByComponent[ApplicationConfigurator],
		func(p ApplicationConfigurator) error { return p.ConfigureApplication(r) })
}

// ApplyEndpoints calls ConfigureEndpoints on every EndpointsConfigurator.
func (inv *Invoker) ApplyEndpoints(r *routing.Router, c *container.Container) ([]ordering.Entry[EndpointsConfigurator], error) {
	return apply(inv, PointEndpoints, ordering.ByComponent[EndpointsConfigurator],
		func(p EndpointsConfigurator) error { return p.ConfigureEndpoints(r, c) })
}

// ApplyMiddleware adds every Middleware to r as a pipeline stage, in
// ascending order attribute.
func (inv *Invoker) ApplyMiddleware(r *routing.Router) ([]ordering.Entry[Middleware], error) {
	return apply(inv, PointMiddleware, ordering.ByAttribute[Middleware],
		func(m Middleware) error {
			r.Use(Stage(m))
			return nil
		})
}

// Records returns every invocation made so far, in invocation order.
func (inv *Invoker) Records() []Record {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := make([]Record, len(inv.applied))
	copy(out, inv.applied)
	return out
}

// Plan resolves and orders the plugins of point without invoking them.
func (inv *Invoker) Plan(point Point) ([]Record, error) {
	switch point {
	case PointServices:
		return plan(inv, point, ordering.ByComponent[ServiceConfigurator])
	case PointHealthChecks:
		return plan(inv, point, ordering.ByComponent[HealthChecksConfigurator])
	case PointApplication:
		return plan(inv, point, ordering.ByComponent[ApplicationConfigurator])
	case PointMiddleware:
		return plan(inv, point, ordering.ByAttribute[Middleware])
	case PointEndpoints:
		return plan(inv, point, ordering.ByComponent[EndpointsConfigurator])
	default:
		return nil, fmt.Errorf("unknown extension point %q", point)
	}
}

func discover[T any](inv *Invoker, order func(*ordering.Policy, []T) []ordering.Entry[T]) ([]ordering.Entry[T], error) {
	found, err := resolver.FindAndResolveAs[T](inv.resolver)
	if err != nil {
		return nil, err
	}
	return order(inv.policy, found), nil
}

func apply[T any](inv *Invoker, point Point, order func(*ordering.Policy, []T) []ordering.Entry[T], invoke func(T) error) ([]ordering.Entry[T], error) {
	entries, err := discover(inv, order)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		rec := inv.record(point, e.Index, e.Plugin)
		inv.logger.WithFields(logrus.Fields{
			"point":     point,
			"plugin":    rec.Plugin,
			"index":     rec.Index,
			"component": rec.Component,
		}).Info("applying plugin")

		if err := invoke(e.Plugin); err != nil {
			return nil, err
		}

		inv.mu.Lock()
		inv.applied = append(inv.applied, rec)
		inv.mu.Unlock()
	}
	return entries, nil
}

func plan[T any](inv *Invoker, point Point, order func(*ordering.Policy, []T) []ordering.Entry[T]) ([]Record, error) {
	entries, err := discover(inv, order)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(entries))
	for i, e := range entries {
		out[i] = inv.record(point, e.Index, e.Plugin)
	}
	return out, nil
}

func (inv *Invoker) record(point Point, index int, plugin any) Record {
	rec := Record{
		Point:  point,
		Index:  index,
		Plugin: catalog.SimpleName(reflect.TypeOf(plugin)),
		Rank:   inv.policy.RankOf(plugin),
	}
	if t, ok := inv.policy.Catalog().LookupValue(plugin); ok {
		rec.Component = t.Component().Name()
		rec.Order, rec.Ordered = t.Order()
	}
	return rec
}
