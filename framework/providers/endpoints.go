package providers

import (
	"context"
	"net/http"

	"github.com/km-arc/pibox/framework/config"
	"github.com/km-arc/pibox/framework/container"
	"github.com/km-arc/pibox/framework/health"
	gohttp "github.com/km-arc/pibox/framework/http"
	"github.com/km-arc/pibox/framework/plugins"
	"github.com/km-arc/pibox/framework/routing"
)

// HealthPath serves the health report.
const HealthPath = "/health"

// DiagnosticsPath lists applied plugins and routes in debug mode.
const DiagnosticsPath = "/_pibox/plugins"

// HealthEndpoints mounts the health report.
type HealthEndpoints struct {
	plugins.Plugin
	registry *health.Registry
}

func NewHealthEndpoints(registry *health.Registry) *HealthEndpoints {
	return &HealthEndpoints{registry: registry}
}

func (e *HealthEndpoints) ConfigureEndpoints(r *routing.Router, _ *container.Container) error {
	r.Get(HealthPath, e.registry.Handler().ServeHTTP)
	return nil
}

// DiagnosticsEndpoints exposes the plugin records and the route table when
// the host runs with app.debug set.
type DiagnosticsEndpoints struct {
	plugins.Plugin
	cfg     *config.AppConfig
	invoker *plugins.Invoker
}

func NewDiagnosticsEndpoints(cfg *config.AppConfig, inv *plugins.Invoker) *DiagnosticsEndpoints {
	return &DiagnosticsEndpoints{cfg: cfg, invoker: inv}
}

func (e *DiagnosticsEndpoints) ConfigureEndpoints(r *routing.Router, _ *container.Container) error {
	if !e.cfg.Debug {
		return nil
	}
	r.Get(DiagnosticsPath, func(w http.ResponseWriter, req *http.Request) {
		res := gohttp.NewResponse(w, req)
		routes, err := r.Routes()
		if err != nil {
			res.ServerError(err)
			return
		}
		res.Success(map[string]any{
			"plugins": e.invoker.Records(),
			"routes":  routes,
		})
	})
	return nil
}

// SelfCheck registers the always-healthy liveness check.
type SelfCheck struct {
	plugins.Plugin
}

func NewSelfCheck() *SelfCheck { return &SelfCheck{} }

func (*SelfCheck) ConfigureHealthChecks(h *health.Registry) error {
	return h.Register("self", func(context.Context) error { return nil }, "live")
}
