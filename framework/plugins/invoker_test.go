package plugins_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/pibox/framework/catalog"
	"github.com/km-arc/pibox/framework/container"
	"github.com/km-arc/pibox/framework/health"
	"github.com/km-arc/pibox/framework/ordering"
	"github.com/km-arc/pibox/framework/plugins"
	"github.com/km-arc/pibox/framework/routing"
)

var scenarioOrder = []string{"PiBoxNamespace", "ExternalNamespace", "XLastNamespace"}

// ── Component-ordered passes ──────────────────────────────────────────────────

func TestApplyApplication_ScenarioOrder(t *testing.T) {
	tr := &trace{}
	inv := newInvoker(t, scenarioCatalog(t), tr)

	entries, err := inv.ApplyApplication(routing.New())
	require.NoError(t, err)

	assert.Equal(t, scenarioOrder, tr.list())
	assert.Equal(t, []int{0, 1, 2}, indices(entries))
	assert.Equal(t, []string{"frameworkHostPlugin", "externalPlugin", "lastPlugin"}, names(entries))
}

func TestApplyEndpoints_ScenarioOrder(t *testing.T) {
	tr := &trace{}
	inv := newInvoker(t, scenarioCatalog(t), tr)

	entries, err := inv.ApplyEndpoints(routing.New(), container.New())
	require.NoError(t, err)

	assert.Equal(t, scenarioOrder, tr.list())
	assert.Equal(t, []int{0, 1, 2}, indices(entries))
}

func TestApplyServicesAndHealthChecks_ScenarioOrder(t *testing.T) {
	tr := &trace{}
	inv := newInvoker(t, scenarioCatalog(t), tr)

	_, err := inv.ApplyServices(container.New())
	require.NoError(t, err)
	_, err = inv.ApplyHealthChecks(health.NewRegistry(0))
	require.NoError(t, err)

	assert.Equal(t, append(append([]string{}, scenarioOrder...), scenarioOrder...), tr.list())
}

func TestApply_PassesShareInstances(t *testing.T) {
	tr := &trace{}
	inv := newInvoker(t, scenarioCatalog(t), tr)

	app, err := inv.ApplyApplication(routing.New())
	require.NoError(t, err)
	eps, err := inv.ApplyEndpoints(routing.New(), container.New())
	require.NoError(t, err)

	for i := range app {
		assert.Same(t, app[i].Plugin, eps[i].Plugin)
	}
}

func TestApply_HostRunsLast(t *testing.T) {
	tr := &trace{}
	cat, err := catalog.New(
		catalog.NewComponent("MyService", catalog.AsHost()).Add(newLastPlugin),
		catalog.NewComponent("Acme.Extras").Add(newExternalPlugin),
		catalog.NewComponent("PiBox.Hosting.Core").Add(newFrameworkHostPlugin),
	)
	require.NoError(t, err)

	_, err = newInvoker(t, cat, tr).ApplyServices(container.New())
	require.NoError(t, err)
	assert.Equal(t, scenarioOrder, tr.list())
}

// ── Middleware ────────────────────────────────────────────────────────────────

func TestApplyMiddleware_AttributeOrder(t *testing.T) {
	tr := &trace{}
	cat, err := catalog.New(catalog.NewComponent("App", catalog.AsHost()).
		Add(newOrderTen, catalog.WithOrder(10)).
		Add(newOrderThree, catalog.WithOrder(3)).
		Add(newOrderOne, catalog.WithOrder(1)))
	require.NoError(t, err)

	router := routing.New()
	entries, err := newInvoker(t, cat, tr).ApplyMiddleware(router)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 3, router.Middlewares())

	router.Get("/", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []string{"1", "3", "10"}, tr.list())
}

func TestStage_ShortCircuit(t *testing.T) {
	var stop plugins.Middleware = &gate{}
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { t.Fatal("next must not run") })

	rr := httptest.NewRecorder()
	plugins.Stage(stop)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

type gate struct{ plugins.Plugin }

func (*gate) Invoke(w http.ResponseWriter, _ *http.Request, _ http.Handler) {
	w.WriteHeader(http.StatusForbidden)
}

// ── Discovery ─────────────────────────────────────────────────────────────────

func TestApply_SkipsNonPluginsAndUnresolvable(t *testing.T) {
	tr := &trace{}
	cat, err := catalog.New(catalog.NewComponent("App", catalog.AsHost()).
		Add(func(t *trace) *notAPlugin { return &notAPlugin{trace: t} }).
		Add(newUnresolvablePlugin).
		Add(newExternalPlugin))
	require.NoError(t, err)

	entries, err := newInvoker(t, cat, tr).ApplyServices(container.New())
	require.NoError(t, err)

	assert.Equal(t, []string{"externalPlugin"}, names(entries))
	assert.Equal(t, []string{"ExternalNamespace"}, tr.list())
}

func TestApply_NoPlugins(t *testing.T) {
	cat, err := catalog.New()
	require.NoError(t, err)

	entries, err := newInvoker(t, cat, &trace{}).ApplyEndpoints(routing.New(), container.New())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// ── Failures ──────────────────────────────────────────────────────────────────

func TestApply_ErrorStopsPass(t *testing.T) {
	tr := &trace{}
	cat, err := catalog.New(
		catalog.NewComponent("PiBox.Core").AddType(&failingServices{}),
		catalog.NewComponent("App", catalog.AsHost()).Add(newLastPlugin),
	)
	require.NoError(t, err)
	inv := newInvoker(t, cat, tr)

	entries, err := inv.ApplyServices(container.New())
	assert.Same(t, errBoom, err)
	assert.Nil(t, entries)
	assert.Empty(t, tr.list(), "plugins after the failing one must not run")
	assert.Empty(t, inv.Records())
}

func TestApply_PanicPropagates(t *testing.T) {
	cat, err := catalog.New(catalog.NewComponent("App", catalog.AsHost()).AddType(&panickingApplication{}))
	require.NoError(t, err)
	inv := newInvoker(t, cat, &trace{})

	assert.PanicsWithValue(t, "kaboom", func() { _, _ = inv.ApplyApplication(routing.New()) })
}

// ── Logging and records ───────────────────────────────────────────────────────

func TestApply_LogsEveryInvocation(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	tr := &trace{}
	inv := newInvoker(t, scenarioCatalog(t), tr, plugins.WithLogger(logger))

	_, err := inv.ApplyApplication(routing.New())
	require.NoError(t, err)

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	for i, want := range []string{"frameworkHostPlugin", "externalPlugin", "lastPlugin"} {
		assert.Equal(t, logrus.InfoLevel, entries[i].Level)
		assert.Equal(t, want, entries[i].Data["plugin"])
		assert.Equal(t, i, entries[i].Data["index"])
		assert.Equal(t, plugins.PointApplication, entries[i].Data["point"])
	}
}

func TestRecords(t *testing.T) {
	tr := &trace{}
	inv := newInvoker(t, scenarioCatalog(t), tr)

	_, err := inv.ApplyApplication(routing.New())
	require.NoError(t, err)

	records := inv.Records()
	require.Len(t, records, 3)
	assert.Equal(t, plugins.Record{
		Point:     plugins.PointApplication,
		Index:     0,
		Plugin:    "frameworkHostPlugin",
		Component: "PiBoxNamespaceTestPlugin",
		Rank:      ordering.RankFramework,
	}, records[0])
	assert.Equal(t, ordering.RankOther, records[2].Rank)
}

func TestPlan_DoesNotInvoke(t *testing.T) {
	tr := &trace{}
	cat, err := catalog.New(catalog.NewComponent("App", catalog.AsHost()).
		Add(newExternalPlugin).
		Add(newOrderThree, catalog.WithOrder(3)))
	require.NoError(t, err)
	inv := newInvoker(t, cat, tr)

	for _, point := range plugins.Points {
		records, err := inv.Plan(point)
		require.NoError(t, err, point)
		require.Len(t, records, 1, point)
	}
	mw, err := inv.Plan(plugins.PointMiddleware)
	require.NoError(t, err)
	assert.Equal(t, 3, mw[0].Order)
	assert.True(t, mw[0].Ordered)

	assert.Empty(t, tr.list())
	assert.Empty(t, inv.Records())

	_, err = inv.Plan("nope")
	assert.Error(t, err)
}
