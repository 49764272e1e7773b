// Package providers holds the framework's own plugins, published as the
// component "PiBox.Hosting.Core". Its name carries the reserved prefix, so
// every pass applies these plugins before any other component's.
//
// Bound abstracts (set up by CoreServices):
//   - "config"  → *config.AppConfig
//   - "router"  → *routing.Router
//   - "health"  → *health.Registry
//   - "app.info" → *Info
//
// Middleware stages, outermost first:
//
//	10 RequestID   20 RealIP   30 RequestLogger   40 Recoverer
package providers

import (
	"github.com/km-arc/pibox/framework/catalog"
	"github.com/km-arc/pibox/framework/config"
)

// ComponentName is the name of the framework component.
const ComponentName = "PiBox.Hosting.Core"

// Middleware order attributes of the framework stages. Host stages usually
// pick orders above OrderRecoverer so they run inside the recovery stage.
const (
	OrderRequestID     = 10
	OrderRealIP        = 20
	OrderRequestLogger = 30
	OrderRecoverer     = 40
)

// Component returns the framework component. Each call returns a fresh
// component; a catalog holds at most one.
func Component() *catalog.Component {
	return catalog.NewComponent(ComponentName).
		Add(config.NewAppConfig, catalog.WithConfigSection(config.AppSection)).
		Add(NewCoreServices).
		Add(NewSelfCheck).
		AddType(&JSONErrors{}).
		AddType(&RequestID{}, catalog.WithOrder(OrderRequestID)).
		AddType(&RealIP{}, catalog.WithOrder(OrderRealIP)).
		Add(NewRequestLogger, catalog.WithOrder(OrderRequestLogger)).
		AddType(&Recoverer{}, catalog.WithOrder(OrderRecoverer)).
		Add(NewHealthEndpoints).
		Add(NewDiagnosticsEndpoints)
}
