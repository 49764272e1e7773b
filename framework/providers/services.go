package providers

import (
	"time"

	"github.com/km-arc/pibox/framework/config"
	"github.com/km-arc/pibox/framework/container"
	"github.com/km-arc/pibox/framework/health"
	"github.com/km-arc/pibox/framework/plugins"
	"github.com/km-arc/pibox/framework/routing"
)

// Info describes the running host.
type Info struct {
	Name      string    `json:"name"`
	Env       string    `json:"env"`
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`
}

// Version is reported by Info.
const Version = "0.1.0"

// CoreServices publishes the host's core objects under short abstract names.
type CoreServices struct {
	plugins.Plugin
	cfg *config.AppConfig
	now func() time.Time
}

// NewCoreServices creates the services plugin.
func NewCoreServices(cfg *config.AppConfig) *CoreServices {
	return &CoreServices{cfg: cfg, now: time.Now}
}

func (p *CoreServices) ConfigureServices(c *container.Container) error {
	c.Alias(container.TypeKey(p.cfg), "config")
	c.Alias(container.TypeKey((*routing.Router)(nil)), "router")
	c.Alias(container.TypeKey((*health.Registry)(nil)), "health")

	info := &Info{Name: p.cfg.Name, Env: p.cfg.Env, Version: Version, StartedAt: p.now()}
	c.Instance("app.info", info)
	container.Provide(c, info)
	return nil
}
