package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/km-arc/pibox/framework/container"
	"github.com/km-arc/pibox/framework/health"
	gohttp "github.com/km-arc/pibox/framework/http"
	"github.com/km-arc/pibox/framework/plugins"
	"github.com/km-arc/pibox/framework/routing"
)

// GreetingSection is the configuration section of GreetingConfig.
const GreetingSection = "greeting"

// GreetingConfig is bound from section "greeting" and GREETING_* variables.
type GreetingConfig struct {
	Salutation  string
	Punctuation string
	MaxNameLen  int `mapstructure:"max_name_len"`
}

func NewGreetingConfig() *GreetingConfig {
	return &GreetingConfig{Salutation: "Hello", Punctuation: "!", MaxNameLen: 64}
}

// MaxGreetingBody caps POST /api/v1/greetings bodies.
const MaxGreetingBody = 4 << 10

// ErrNameTooLong is returned for names above MaxNameLen.
var ErrNameTooLong = errors.New("name too long")

// Greeter builds greetings and remembers how many it served.
type Greeter struct {
	cfg *GreetingConfig

	mu     sync.Mutex
	served int
	closed bool
}

func (g *Greeter) Greet(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "world"
	}
	if g.cfg.MaxNameLen > 0 && len(name) > g.cfg.MaxNameLen {
		return "", ErrNameTooLong
	}
	g.mu.Lock()
	g.served++
	g.mu.Unlock()
	return g.cfg.Salutation + ", " + name + g.cfg.Punctuation, nil
}

// Served returns the number of greetings built.
func (g *Greeter) Served() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.served
}

func (g *Greeter) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

// Closed reports whether Close ran.
func (g *Greeter) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// ── Plugins ───────────────────────────────────────────────────────────────────

// GreetingServices owns the Greeter and publishes it to the container.
type GreetingServices struct {
	plugins.Plugin
	greeter *Greeter
	log     logrus.FieldLogger
}

func NewGreetingServices(cfg *GreetingConfig, log logrus.FieldLogger) *GreetingServices {
	return &GreetingServices{greeter: &Greeter{cfg: cfg}, log: log}
}

func (s *GreetingServices) ConfigureServices(c *container.Container) error {
	container.Provide(c, s.greeter)
	c.Alias(container.TypeKey(s.greeter), "greeter")
	return nil
}

// Close releases the Greeter when the host shuts down.
func (s *GreetingServices) Close() error {
	s.log.WithField("served", s.greeter.Served()).Info("greeter closed")
	return s.greeter.Close()
}

// GreetingEndpoints serves the greeting API below /api/v1.
type GreetingEndpoints struct {
	plugins.Plugin
}

func NewGreetingEndpoints() *GreetingEndpoints { return &GreetingEndpoints{} }

func (e *GreetingEndpoints) ConfigureEndpoints(r *routing.Router, c *container.Container) error {
	greeter, err := container.Lookup[*Greeter](c)
	if err != nil {
		return err
	}
	r.Prefix("/api/v1", func(api *routing.Router) {
		api.Get("/hello", func(w http.ResponseWriter, req *http.Request) {
			greet(gohttp.NewResponse(w, req), greeter, gohttp.NewRequest(req).Query("name"), false)
		})
		api.Post("/greetings", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Name string `json:"name"`
			}
			res := gohttp.NewResponse(w, req)
			err := gohttp.NewRequest(req).Limit(MaxGreetingBody).Bind(&body)
			switch {
			case errors.Is(err, gohttp.ErrBodyTooLarge):
				res.Error(http.StatusRequestEntityTooLarge, err.Error())
				return
			case err != nil:
				res.Error(http.StatusBadRequest, err.Error())
				return
			}
			greet(res, greeter, body.Name, true)
		})
	})
	return nil
}

func greet(res *gohttp.Response, g *Greeter, name string, created bool) {
	msg, err := g.Greet(name)
	if err != nil {
		res.Error(http.StatusUnprocessableEntity, err.Error())
		return
	}
	if created {
		res.Created(map[string]any{"message": msg})
		return
	}
	res.Success(map[string]any{"message": msg})
}

// GreetingCheck reports the greeter unhealthy once it is closed. It is
// resolved after the services pass, when the container holds the Greeter.
type GreetingCheck struct {
	plugins.Plugin
	greeter *Greeter
}

func NewGreetingCheck(g *Greeter) *GreetingCheck { return &GreetingCheck{greeter: g} }

func (c *GreetingCheck) ConfigureHealthChecks(h *health.Registry) error {
	return h.Register("greeter", func(context.Context) error {
		if c.greeter.Closed() {
			return errors.New("greeter closed")
		}
		return nil
	}, "ready")
}

// PoweredBy stamps every response with the serving host's name.
type PoweredBy struct{ plugins.Plugin }

func (*PoweredBy) Invoke(w http.ResponseWriter, r *http.Request, next http.Handler) {
	w.Header().Set("X-Powered-By", Name)
	next.ServeHTTP(w, r)
}
