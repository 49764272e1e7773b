// Package plugins defines the capability interfaces plugins implement and
// the Invoker that applies them, one extension point at a time, in the
// order chosen by the ordering policy.
//
// A plugin is any catalog type that embeds Plugin and implements one or more
// capabilities:
//
//	type OrdersEndpoints struct {
//	    plugins.Plugin
//	    store *OrderStore
//	}
//
//	func NewOrdersEndpoints(s *OrderStore) *OrdersEndpoints { ... }
//
//	func (e *OrdersEndpoints) ConfigureEndpoints(r *routing.Router, _ *container.Container) error {
//	    r.Get("/orders", e.list)
//	    return nil
//	}
package plugins

import (
	"net/http"

	"github.com/km-arc/pibox/framework/container"
	"github.com/km-arc/pibox/framework/health"
	"github.com/km-arc/pibox/framework/routing"
)

// Activateable marks a type as a plugin. Only types implementing it are
// ever discovered by the Invoker.
type Activateable interface {
	activateable()
}

// Plugin is embedded by plugin types to satisfy Activateable.
type Plugin struct{}

func (Plugin) activateable() {}

// ServiceConfigurator registers services with the container.
type ServiceConfigurator interface {
	Activateable
	ConfigureServices(c *container.Container) error
}

// ApplicationConfigurator shapes the application pipeline before any
// middleware or endpoint is added.
type ApplicationConfigurator interface {
	Activateable
	ConfigureApplication(r *routing.Router) error
}

// EndpointsConfigurator registers routes.
type EndpointsConfigurator interface {
	Activateable
	ConfigureEndpoints(r *routing.Router, c *container.Container) error
}

// HealthChecksConfigurator registers health checks.
type HealthChecksConfigurator interface {
	Activateable
	ConfigureHealthChecks(h *health.Registry) error
}

// Middleware is one stage of the request pipeline. Stages run in ascending
// order attribute; Invoke calls next to continue the pipeline.
type Middleware interface {
	Activateable
	Invoke(w http.ResponseWriter, r *http.Request, next http.Handler)
}

// Stage adapts m to the func(http.Handler) http.Handler shape the router
// uses.
func Stage(m Middleware) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.Invoke(w, r, next)
		})
	}
}
