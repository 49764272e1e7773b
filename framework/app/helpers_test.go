package app_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/km-arc/pibox/framework/app"
	"github.com/km-arc/pibox/framework/catalog"
	"github.com/km-arc/pibox/framework/config"
	"github.com/km-arc/pibox/framework/container"
	"github.com/km-arc/pibox/framework/health"
	gohttp "github.com/km-arc/pibox/framework/http"
	"github.com/km-arc/pibox/framework/plugins"
	"github.com/km-arc/pibox/framework/routing"
)

type greetingConfig struct {
	Salutation string
}

func newGreetingConfig() *greetingConfig { return &greetingConfig{Salutation: "Hello"} }

// greeter is a service with a lifetime; it counts Close calls.
type greeter struct {
	cfg    *greetingConfig
	closed *int32
}

func (g *greeter) Greet(name string) string { return g.cfg.Salutation + ", " + name }

func (g *greeter) Close() error {
	atomic.AddInt32(g.closed, 1)
	return nil
}

// greeterServices registers the greeter.
type greeterServices struct {
	plugins.Plugin
	greeter *greeter
}

func newGreeterServices(cfg *greetingConfig, closed *int32) *greeterServices {
	return &greeterServices{greeter: &greeter{cfg: cfg, closed: closed}}
}

func (s *greeterServices) ConfigureServices(c *container.Container) error {
	container.Provide(c, s.greeter)
	return nil
}

func (s *greeterServices) Close() error { return s.greeter.Close() }

// helloEndpoints serves GET /hello.
type helloEndpoints struct{ plugins.Plugin }

func (*helloEndpoints) ConfigureEndpoints(r *routing.Router, c *container.Container) error {
	g, err := container.Lookup[*greeter](c)
	if err != nil {
		return err
	}
	r.Get("/hello", func(w http.ResponseWriter, req *http.Request) {
		gohttp.NewResponse(w, req).Success(map[string]any{
			"message":    g.Greet(gohttp.NewRequest(req).Query("name", "world")),
			"request_id": gohttp.NewRequest(req).ID(),
		})
	})
	return nil
}

// stampHeader marks every response.
type stampHeader struct{ plugins.Plugin }

func (*stampHeader) Invoke(w http.ResponseWriter, r *http.Request, next http.Handler) {
	w.Header().Set("X-Host", "test")
	next.ServeHTTP(w, r)
}

// downstreamCheck is a failing readiness check.
type downstreamCheck struct{ plugins.Plugin }

func (*downstreamCheck) ConfigureHealthChecks(h *health.Registry) error {
	return h.Register("downstream", func(context.Context) error { return errors.New("unreachable") }, "ready")
}

type failingServices struct{ plugins.Plugin }

var errBoom = errors.New("boom")

func (*failingServices) ConfigureServices(*container.Container) error { return errBoom }

func hostComponent(closed *int32) *catalog.Component {
	return catalog.NewComponent("TestHost", catalog.AsHost()).
		Add(newGreetingConfig, catalog.WithConfigSection("greeting")).
		Add(func(cfg *greetingConfig) *greeterServices { return newGreeterServices(cfg, closed) }).
		AddType(&helloEndpoints{}).
		AddType(&stampHeader{}, catalog.WithOrder(100)).
		AddType(&downstreamCheck{})
}

func newApp(t *testing.T, host *catalog.Component, sections map[string]any, opts ...app.Option) (*app.Application, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	opts = append([]app.Option{
		app.WithConfigSource(config.FromMap(sections)),
		app.WithLogger(logger),
	}, opts...)
	return app.New(host, opts...), hook
}

// flakyEndpoints fails while remaining is positive.
type flakyEndpoints struct {
	plugins.Plugin
	remaining *int32
}

func (e *flakyEndpoints) ConfigureEndpoints(*routing.Router, *container.Container) error {
	if atomic.AddInt32(e.remaining, -1) >= 0 {
		return errBoom
	}
	return nil
}
