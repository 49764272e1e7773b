package plugins_test

import (
	"errors"
	"net/http"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/km-arc/pibox/framework/catalog"
	"github.com/km-arc/pibox/framework/container"
	"github.com/km-arc/pibox/framework/health"
	"github.com/km-arc/pibox/framework/ordering"
	"github.com/km-arc/pibox/framework/plugins"
	"github.com/km-arc/pibox/framework/resolver"
	"github.com/km-arc/pibox/framework/routing"
)

// trace records which plugin ran, in order.
type trace struct {
	mu    sync.Mutex
	calls []string
}

func (t *trace) add(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, name)
}

func (t *trace) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

// tracingPlugin implements every ByComponent capability and records calls.
type tracingPlugin struct {
	plugins.Plugin
	name  string
	trace *trace
}

func (p *tracingPlugin) ConfigureServices(*container.Container) error {
	p.trace.add(p.name)
	return nil
}

func (p *tracingPlugin) ConfigureApplication(*routing.Router) error {
	p.trace.add(p.name)
	return nil
}

func (p *tracingPlugin) ConfigureEndpoints(*routing.Router, *container.Container) error {
	p.trace.add(p.name)
	return nil
}

func (p *tracingPlugin) ConfigureHealthChecks(*health.Registry) error {
	p.trace.add(p.name)
	return nil
}

type externalPlugin struct{ tracingPlugin }
type frameworkHostPlugin struct{ tracingPlugin }
type lastPlugin struct{ tracingPlugin }

func newExternalPlugin(t *trace) *externalPlugin {
	return &externalPlugin{tracingPlugin{name: "ExternalNamespace", trace: t}}
}

func newFrameworkHostPlugin(t *trace) *frameworkHostPlugin {
	return &frameworkHostPlugin{tracingPlugin{name: "PiBoxNamespace", trace: t}}
}

func newLastPlugin(t *trace) *lastPlugin {
	return &lastPlugin{tracingPlugin{name: "XLastNamespace", trace: t}}
}

// stampMiddleware appends its name to the request trail.
type stampMiddleware struct {
	plugins.Plugin
	name  string
	trace *trace
}

func (m *stampMiddleware) Invoke(w http.ResponseWriter, r *http.Request, next http.Handler) {
	m.trace.add(m.name)
	next.ServeHTTP(w, r)
}

type orderTen struct{ stampMiddleware }
type orderThree struct{ stampMiddleware }
type orderOne struct{ stampMiddleware }

func newOrderTen(t *trace) *orderTen     { return &orderTen{stampMiddleware{name: "10", trace: t}} }
func newOrderThree(t *trace) *orderThree { return &orderThree{stampMiddleware{name: "3", trace: t}} }
func newOrderOne(t *trace) *orderOne     { return &orderOne{stampMiddleware{name: "1", trace: t}} }

var errBoom = errors.New("boom")

type failingServices struct{ plugins.Plugin }

func (*failingServices) ConfigureServices(*container.Container) error { return errBoom }

type panickingApplication struct{ plugins.Plugin }

func (*panickingApplication) ConfigureApplication(*routing.Router) error { panic("kaboom") }

// notAPlugin has the method but not the marker.
type notAPlugin struct{ trace *trace }

func (n *notAPlugin) ConfigureServices(*container.Container) error {
	n.trace.add("notAPlugin")
	return nil
}

type missingDep struct{}

type unresolvablePlugin struct{ plugins.Plugin }

func (*unresolvablePlugin) ConfigureServices(*container.Container) error { return nil }

func newUnresolvablePlugin(*missingDep) *unresolvablePlugin { return &unresolvablePlugin{} }

// scenarioCatalog is the three-component layout: an ordinary component, a
// host component carrying the reserved prefix, and a later ordinary one.
func scenarioCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(
		catalog.NewComponent("ExternalNamespace.Tests").Add(newExternalPlugin),
		catalog.NewComponent("PiBoxNamespaceTestPlugin", catalog.AsHost()).Add(newFrameworkHostPlugin),
		catalog.NewComponent("XLastNamespaceTestPlugin").Add(newLastPlugin),
	)
	require.NoError(t, err)
	return cat
}

func newInvoker(t *testing.T, cat *catalog.Catalog, tr *trace, opts ...plugins.Option) *plugins.Invoker {
	t.Helper()
	r := resolver.New(cat, container.New(), resolver.WithFallback(tr))
	return plugins.NewInvoker(r, ordering.NewPolicy(cat), opts...)
}

func names[T any](entries []ordering.Entry[T]) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = catalog.SimpleName(reflect.TypeOf(e.Plugin))
	}
	return out
}

func indices[T any](entries []ordering.Entry[T]) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.Index
	}
	return out
}
