// Package app is the host kernel. It builds the catalog from the framework
// component, registered components and the host's own component, binds
// configuration sections, runs every extension-point pass and serves the
// resulting pipeline.
//
//	application := app.New(myservice.Component())
//	if err := application.Run(ctx); err != nil { ... }
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/km-arc/pibox/framework/catalog"
	"github.com/km-arc/pibox/framework/config"
	"github.com/km-arc/pibox/framework/container"
	"github.com/km-arc/pibox/framework/health"
	"github.com/km-arc/pibox/framework/ordering"
	"github.com/km-arc/pibox/framework/plugins"
	"github.com/km-arc/pibox/framework/providers"
	"github.com/km-arc/pibox/framework/resolver"
	"github.com/km-arc/pibox/framework/routing"
)

var (
	// ErrBooted is returned when registering components after Boot.
	ErrBooted = errors.New("application already booted")

	// ErrNotBooted is returned by operations that need a booted application.
	ErrNotBooted = errors.New("application not booted")

	// ErrNoHost is returned when the entry component is missing or not
	// created with catalog.AsHost.
	ErrNoHost = errors.New("no host component")
)

// DefaultShutdownTimeout bounds graceful shutdown in Run.
const DefaultShutdownTimeout = 10 * time.Second

// Application is the plugin host.
type Application struct {
	host       *catalog.Component
	components []*catalog.Component
	envFiles   []string
	fallback   []any
	source     *config.Source
	logger     *logrus.Logger
	ownLogger  bool
	logOutput  io.Writer
	prefix     string
	healthMax  int

	mu        sync.Mutex
	booted    bool
	container *container.Container
	catalog   *catalog.Catalog
	resolver  *resolver.Resolver
	invoker   *plugins.Invoker
	router    *routing.Router
	health    *health.Registry
	cfg       *config.AppConfig
	server    *http.Server
	addr      net.Addr
}

// Option configures an Application.
type Option func(*Application)

// WithEnvFiles names the .env files loaded at boot (default ".env").
func WithEnvFiles(files ...string) Option {
	return func(a *Application) { a.envFiles = files }
}

// WithConfigSource replaces loading configuration from files.
func WithConfigSource(src *config.Source) Option {
	return func(a *Application) { a.source = src }
}

// WithComponents registers third-party components.
func WithComponents(components ...*catalog.Component) Option {
	return func(a *Application) { a.components = append(a.components, components...) }
}

// WithFallback supplies default constructor arguments to every plugin.
func WithFallback(values ...any) Option {
	return func(a *Application) { a.fallback = append(a.fallback, values...) }
}

// WithLogger sets the host logger. Its level is left alone; otherwise the
// level comes from app.log_level.
func WithLogger(l *logrus.Logger) Option {
	return func(a *Application) { a.logger, a.ownLogger = l, false }
}

// WithLogOutput sends the default logger's output to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(a *Application) { a.logOutput = w }
}

// WithReservedPrefix changes the component-name prefix that ranks as
// framework.
func WithReservedPrefix(prefix string) Option {
	return func(a *Application) { a.prefix = prefix }
}

// WithHealthCheckLimit bounds how many health checks run at once.
func WithHealthCheckLimit(n int) Option {
	return func(a *Application) { a.healthMax = n }
}

// New creates an application around the host's entry component, which must
// be created with catalog.AsHost.
func New(host *catalog.Component, opts ...Option) *Application {
	a := &Application{host: host, prefix: ordering.DefaultReservedPrefix}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		l := logrus.New()
		l.SetOutput(os.Stderr)
		if a.logOutput != nil {
			l.SetOutput(a.logOutput)
		}
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		a.logger, a.ownLogger = l, true
	}
	return a
}

// Register adds components before Boot.
func (a *Application) Register(components ...*catalog.Component) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.booted {
		return ErrBooted
	}
	a.components = append(a.components, components...)
	return nil
}

// ── Boot ──────────────────────────────────────────────────────────────────────

// Boot runs the startup sequence once:
//
//  1. load configuration and build the catalog
//  2. bind configuration sections
//  3. services, health checks, application, middleware, endpoints
//
// The first error halts startup and is returned. Errors from plugin
// configure methods are returned unchanged. A failed boot disposes the
// instances it resolved and leaves the application unbooted, so Boot can be
// called again.
func (a *Application) Boot() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.booted {
		return nil
	}
	if err := a.boot(); err != nil {
		a.discard()
		return err
	}
	a.booted = true
	return nil
}

func (a *Application) boot() error {
	if a.source == nil {
		src, err := config.Load(a.envFiles...)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		a.source = src
	}

	if a.host == nil || !a.host.IsHost() {
		return ErrNoHost
	}

	components := append([]*catalog.Component{providers.Component()}, a.components...)
	cat, err := catalog.New(append(components, a.host)...)
	if err != nil {
		return err
	}
	a.catalog = cat
	a.container = container.New()
	a.router = routing.New()
	a.health = health.NewRegistry(a.healthMax)
	a.resolver = resolver.New(cat, a.container,
		resolver.WithFallback(a.fallback...),
		resolver.WithLogger(a.logger))
	a.invoker = plugins.NewInvoker(a.resolver, ordering.NewPolicy(cat, ordering.WithReservedPrefix(a.prefix)),
		plugins.WithLogger(a.logger))

	container.Provide(a.container, a.source)
	container.Provide(a.container, cat)
	container.Provide(a.container, a.router)
	container.Provide(a.container, a.health)
	container.Provide(a.container, a.invoker)
	container.Provide[logrus.FieldLogger](a.container, a.logger)

	if err := a.bindSections(); err != nil {
		return err
	}

	a.logger.WithFields(logrus.Fields{
		"host":       a.host.Name(),
		"components": len(cat.FindComponents()),
		"host_types": len(cat.FindTypes(catalog.InComponent(a.host))),
		"env":        a.cfg.Env,
	}).Info("booting")

	if _, err := a.invoker.ApplyServices(a.container); err != nil {
		return err
	}
	if _, err := a.invoker.ApplyHealthChecks(a.health); err != nil {
		return err
	}
	if _, err := a.invoker.ApplyApplication(a.router); err != nil {
		return err
	}
	if _, err := a.invoker.ApplyMiddleware(a.router); err != nil {
		return err
	}
	if _, err := a.invoker.ApplyEndpoints(a.router, a.container); err != nil {
		return err
	}
	return nil
}

// discard drops everything a failed boot built.
func (a *Application) discard() {
	if a.resolver != nil {
		if err := a.resolver.ClearInstances(); err != nil {
			a.logger.WithError(err).Warn("disposing plugins after failed boot")
		}
	}
	a.catalog = nil
	a.container = nil
	a.router = nil
	a.health = nil
	a.resolver = nil
	a.invoker = nil
	a.cfg = nil
}

// bindSections resolves every type carrying a configuration section, binds
// it and registers it in the container by its type key.
func (a *Application) bindSections() error {
	for _, t := range a.catalog.FindTypes(catalog.HasConfigSection()) {
		section, _ := t.ConfigSection()
		instance, err := a.resolver.ResolveInstance(t)
		if errors.Is(err, resolver.ErrUnresolvable) {
			a.logger.WithError(err).WithField("section", section).Warn("skipping configuration section")
			continue
		}
		if err != nil {
			return err
		}
		if err := a.source.Bind(section, instance); err != nil {
			return err
		}
		a.container.Instance(container.KeyOf(t.Reflect()), instance)

		if cfg, ok := instance.(*config.AppConfig); ok {
			a.cfg = cfg
		}
	}
	if a.cfg == nil {
		a.cfg = config.NewAppConfig()
	}
	if a.ownLogger {
		if level, err := logrus.ParseLevel(a.cfg.LogLevel); err == nil {
			a.logger.SetLevel(level)
		}
	}
	return nil
}

// ── Accessors ─────────────────────────────────────────────────────────────────

// Handler returns the configured pipeline, booting first if needed.
func (a *Application) Handler() (http.Handler, error) {
	if err := a.Boot(); err != nil {
		return nil, err
	}
	return a.router, nil
}

// Container returns the service container, or nil before Boot.
func (a *Application) Container() *container.Container {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.container
}

// Catalog returns the catalog, or nil before Boot.
func (a *Application) Catalog() *catalog.Catalog {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.catalog
}

// Config returns the bound AppConfig, or nil before Boot.
func (a *Application) Config() *config.AppConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// Logger returns the host logger.
func (a *Application) Logger() *logrus.Logger { return a.logger }

// Records lists every plugin invocation made by Boot.
func (a *Application) Records() []plugins.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.booted {
		return nil
	}
	return a.invoker.Records()
}

// Plan lists the plugins of point in the order Boot applies them.
func (a *Application) Plan(point plugins.Point) ([]plugins.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.booted {
		return nil, ErrNotBooted
	}
	return a.invoker.Plan(point)
}

// Addr returns the listening address while Run is serving.
func (a *Application) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// ── Serve ─────────────────────────────────────────────────────────────────────

// Run boots the application and serves HTTP on app.port until ctx is done,
// then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Boot(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return err
	}
	server := &http.Server{Handler: a.router, ReadHeaderTimeout: 10 * time.Second}

	a.mu.Lock()
	a.server, a.addr = server, ln.Addr()
	a.mu.Unlock()

	a.logger.WithFields(logrus.Fields{
		"name": a.cfg.Name,
		"addr": ln.Addr().String(),
		"env":  a.cfg.Env,
	}).Info("serving")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultShutdownTimeout)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Shutdown stops the HTTP server, if serving, and disposes every plugin
// instance. It is safe to call more than once.
func (a *Application) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	server, res := a.server, a.resolver
	a.server, a.addr = nil, nil
	a.mu.Unlock()

	var errs []error
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if res != nil {
		if err := res.ClearInstances(); err != nil {
			errs = append(errs, err)
		}
	}
	a.logger.Info("shut down")
	return errors.Join(errs...)
}
