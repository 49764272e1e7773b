// Package container provides the host's service registry: a small IoC
// container that plugins fill during the services pass and read from in
// later passes.
//
// # Overview
//
// The container manages factories and instances keyed by an abstract name.
// It supports transient bindings, singletons, pre-built instances, aliases
// and extension (decoration). Because Go has no runtime constructor lookup,
// registrations are explicit factory functions; constructor injection of
// plugin types is the job of package resolver, which asks the container for
// every constructor parameter by type key.
//
// # Bindings
//
//	// Transient: new instance every Make()
//	c.Bind("Foo", func(c *container.Container) any { return &Foo{} })
//
//	// Singleton: created once, reused
//	c.Singleton("cache", func(c *container.Container) any {
//	    return cache.New(container.Resolve[*Config](c, "config"))
//	})
//
//	// Pre-built value
//	c.Instance("config", myConfig)
//
//	// Alias
//	c.Alias("cache", "cacheManager")
//
// # Type keys
//
// Values registered under their TypeKey can be injected into plugin
// constructors:
//
//	container.Provide[Mailer](c, smtp)        // key: "example.com/mail.Mailer"
//	c.Instance(container.TypeKey(cfg), cfg)   // key of *Config ignores the pointer
//
//	func NewSignupEndpoints(m Mailer, cfg *Config) *SignupEndpoints
//
// # Resolving
//
//	raw := c.Make("cache")                          // panics when unknown
//	raw, err := c.Get("cache")                      // ErrNotBound when unknown
//	cache := container.Resolve[*RedisCache](c, "cache")
//	mailer, err := container.Lookup[Mailer](c)      // by type key
//
// # Extend / Decorate
//
//	c.Extend("logger", func(instance any, c *container.Container) any {
//	    return &TimestampLogger{Inner: instance.(*Logger)}
//	})
package container
