package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/km-arc/go-beans/framework/admin"
	"github.com/km-arc/go-beans/framework/aop"
	"github.com/km-arc/go-beans/framework/config"
	"github.com/km-arc/go-beans/framework/container"
	"github.com/km-arc/go-beans/framework/definition"
	"github.com/km-arc/go-beans/framework/resource"
	"github.com/km-arc/go-beans/framework/routing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider publishes the loaded configuration.
//
// Beans:
//   - "config" → *config.Config (alias "configuration")
type ConfigServiceProvider struct {
	container.BaseProvider
	Config *config.Config
}

func (p *ConfigServiceProvider) Register(c *container.Container) error {
	if err := c.RegisterSingleton("config", p.Config); err != nil {
		return err
	}
	return c.RegisterAlias("config", "configuration")
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider publishes the application logger. The logger is
// flushed when the container destroys its singletons.
//
// Beans:
//   - "logger" → *zap.Logger
type LoggingServiceProvider struct {
	container.BaseProvider
	Logger *zap.Logger
}

func (p *LoggingServiceProvider) Register(c *container.Container) error {
	logger := p.Logger
	cls := container.ClassOf("zapLogger", func() *zap.Logger { return logger })
	container.Method(cls, "Sync", func(l *zap.Logger) error {
		// stderr cannot be synced on most platforms
		_ = l.Sync()
		return nil
	})
	return c.RegisterBeanDefinition("logger", container.Define(cls).
		WithDestroy("Sync").
		WithDescription("application logger"))
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider publishes the Prometheus registry.
//
// Beans:
//   - "metrics" → *prometheus.Registry
type MetricsServiceProvider struct {
	container.BaseProvider
	Registry *prometheus.Registry
}

func (p *MetricsServiceProvider) Register(c *container.Container) error {
	return c.RegisterSingleton("metrics", p.Registry)
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router, logging through the
// "logger" bean.
//
// Beans:
//   - "router" → *routing.Router
type RoutingServiceProvider struct {
	container.BaseProvider
}

var routerClass = container.NewClass("router", func(args []any) (*routing.Router, error) {
	logger, err := container.Arg[*zap.Logger](args, 0)
	if err != nil {
		return nil, err
	}
	return routing.New(logger), nil
})

func (p *RoutingServiceProvider) Register(c *container.Container) error {
	return c.RegisterBeanDefinition("router", container.Define(routerClass).
		WithArg("logger", nil, container.Ref("logger")))
}

// ── DefinitionServiceProvider ─────────────────────────────────────────────────

// DefinitionServiceProvider loads YAML definition documents into the
// container during registration, so their singletons take part in Boot.
//
// Beans:
//   - "definitionLoader" → *definition.Loader
type DefinitionServiceProvider struct {
	container.BaseProvider
	Classes   *definition.Classes
	Resources *resource.Loader
	Locations []string
	// Timeout bounds loading every location. Zero means no limit.
	Timeout time.Duration
}

func (p *DefinitionServiceProvider) Register(c *container.Container) error {
	loader := definition.NewLoader(p.Classes, p.Resources, c.Logger())
	if err := c.RegisterSingleton("definitionLoader", loader); err != nil {
		return err
	}
	if len(p.Locations) == 0 {
		return nil
	}

	ctx := context.Background()
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	n, err := loader.Load(ctx, c, p.Locations...)
	if err != nil {
		return fmt.Errorf("load bean definitions: %w", err)
	}
	c.Logger().Info("bean definitions loaded", zap.Int("beans", n), zap.Strings("locations", p.Locations))
	return nil
}

// ── AopServiceProvider ────────────────────────────────────────────────────────

// AopServiceProvider installs an auto-proxy creator so matching beans are
// replaced by advised proxies as they are created.
//
// Beans:
//   - "autoProxyCreator" → *aop.AutoProxyCreator
type AopServiceProvider struct {
	container.BaseProvider
	Creator *aop.AutoProxyCreator
}

func (p *AopServiceProvider) Register(c *container.Container) error {
	if p.Creator.Logger == nil {
		p.Creator.Logger = c.Logger()
	}
	c.AddBeanPostProcessor(p.Creator)
	return c.RegisterSingleton("autoProxyCreator", p.Creator)
}

// ── AdminServiceProvider ──────────────────────────────────────────────────────

// AdminServiceProvider mounts the admin endpoints on the router at Prefix.
// It runs at Boot, once every provider has registered its beans.
type AdminServiceProvider struct {
	container.BaseProvider
	Prefix string
	// Token is the bearer token the endpoints require, if any.
	Token string
}

func (p *AdminServiceProvider) Register(*container.Container) error { return nil }

func (p *AdminServiceProvider) Boot(c *container.Container) error {
	router, err := container.GetBeanAs[*routing.Router](c, "router")
	if err != nil {
		return err
	}
	opts := admin.Options{Container: c, Token: p.Token, Logger: c.Logger()}
	if loader, err := container.GetBeanAs[*definition.Loader](c, "definitionLoader"); err == nil {
		opts.Definitions = loader
	}
	if reg, err := container.GetBeanAs[*prometheus.Registry](c, "metrics"); err == nil {
		opts.Gatherer = reg
	}

	prefix := p.Prefix
	if prefix == "" {
		prefix = "/admin"
	}
	router.Mount(prefix, admin.New(opts))
	return nil
}
