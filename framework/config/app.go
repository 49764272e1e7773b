package config

// AppSection is the section AppConfig is bound from.
const AppSection = "app"

// AppConfig is the host's own settings, bound from section "app" and
// APP_* variables.
type AppConfig struct {
	Name     string
	Env      string // local | production | testing
	Debug    bool
	Port     string
	LogLevel string `mapstructure:"log_level"`
}

// NewAppConfig returns the defaults Bind starts from.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Name:     "PiBox",
		Env:      "local",
		Port:     "8000",
		LogLevel: "info",
	}
}

// Addr is the listen address for Port.
func (c *AppConfig) Addr() string { return ":" + c.Port }

func (c *AppConfig) IsLocal() bool      { return c.Env == "local" }
func (c *AppConfig) IsProduction() bool { return c.Env == "production" }
func (c *AppConfig) IsTesting() bool    { return c.Env == "testing" }
