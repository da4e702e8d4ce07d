package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/km-arc/go-beans/framework/config"
	"github.com/km-arc/go-beans/framework/container"
	"github.com/km-arc/go-beans/framework/definition"
	"github.com/km-arc/go-beans/framework/logging"
	"github.com/km-arc/go-beans/framework/providers"
	"github.com/km-arc/go-beans/framework/resource"
	"github.com/km-arc/go-beans/framework/routing"
)

// ShutdownTimeout bounds graceful HTTP shutdown in Run.
const ShutdownTimeout = 10 * time.Second

// Application is the top-level application: the bean container plus its
// provider registry, configuration, logger and metrics registry.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry
	Classes   *definition.Classes

	cfg     *config.Config
	logger  *zap.Logger
	metrics *prometheus.Registry
}

type options struct {
	envFiles []string
	cfg      *config.Config
	logger   *zap.Logger
	files    fs.FS
	classes  []*container.Class
}

// Option configures New.
type Option func(*options)

// WithEnvFiles loads configuration from the given .env files.
func WithEnvFiles(files ...string) Option { return func(o *options) { o.envFiles = files } }

// WithConfig uses cfg instead of loading configuration from the environment.
func WithConfig(cfg *config.Config) Option { return func(o *options) { o.cfg = cfg } }

// WithLogger uses logger instead of building one from configuration.
func WithLogger(logger *zap.Logger) Option { return func(o *options) { o.logger = logger } }

// WithDefinitionFS serves embed: definition locations from fsys.
func WithDefinitionFS(fsys fs.FS) Option { return func(o *options) { o.files = fsys } }

// WithClasses makes classes available to definition documents.
func WithClasses(classes ...*container.Class) Option {
	return func(o *options) { o.classes = append(o.classes, classes...) }
}

// New loads configuration, builds the logger and container, and registers
// the framework providers. Definition documents named by the configuration
// are loaded here; Boot instantiates their singletons.
func New(opts ...Option) (*Application, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.cfg
	if cfg == nil {
		cfg = config.Load(o.envFiles...)
	}
	logger := o.logger
	if logger == nil {
		var err error
		if logger, err = logging.New(cfg); err != nil {
			return nil, err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := container.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	copts := []container.Option{container.WithLogger(logger), container.WithMetrics(metrics)}
	if !cfg.Beans.AllowOverride {
		copts = append(copts, container.WithoutDefinitionOverriding())
	}
	c := container.New(copts...)
	registry := container.NewProviderRegistry(c)
	registry.SetPreInstantiate(cfg.Beans.PreInstantiate)

	app := &Application{
		Container: c,
		Providers: registry,
		Classes:   definition.NewClasses(o.classes...),
		cfg:       cfg,
		logger:    logger,
		metrics:   reg,
	}

	resources := resource.NewLoader(
		resource.WithRoot(cfg.Beans.ResourceRoot),
		resource.WithFS(o.files),
		resource.WithTimeout(cfg.Beans.FetchTimeout),
		resource.WithLogger(logger),
	)
	core := []container.ServiceProvider{
		&providers.ConfigServiceProvider{Config: cfg},
		&providers.LoggingServiceProvider{Logger: logger},
		&providers.MetricsServiceProvider{Registry: reg},
		&providers.RoutingServiceProvider{},
		&providers.DefinitionServiceProvider{
			Classes:   app.Classes,
			Resources: resources,
			Locations: cfg.Beans.Definitions,
			Timeout:   cfg.Beans.FetchTimeout,
		},
	}
	if cfg.Admin.Enabled {
		if app.IsProduction() && cfg.Admin.Token == "" {
			logger.Warn("admin endpoints are enabled without a token", zap.String("prefix", cfg.Admin.Prefix))
		}
		core = append(core, &providers.AdminServiceProvider{Prefix: cfg.Admin.Prefix, Token: cfg.Admin.Token})
	}
	for _, p := range core {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot runs the Boot phase on all providers and, unless disabled, creates
// every non-lazy singleton.
func (a *Application) Boot() error {
	if err := a.Providers.Boot(); err != nil {
		return err
	}
	a.logger.Info("application booted",
		zap.Int("beans", len(a.BeanDefinitionNames())),
		zap.Strings("deferred", a.Providers.Deferred()),
	)
	return nil
}

// Config returns the application configuration.
func (a *Application) Config() *config.Config { return a.cfg }

// Logger returns the application logger.
func (a *Application) Logger() *zap.Logger { return a.logger }

// Metrics returns the Prometheus registry the container reports to.
func (a *Application) Metrics() *prometheus.Registry { return a.metrics }

// Router resolves the "router" bean.
func (a *Application) Router() (*routing.Router, error) {
	return container.GetBeanAs[*routing.Router](a.Container, "router")
}

// Run boots the application if needed and serves HTTP on the configured
// port until ctx is cancelled. It then shuts the server down and destroys
// the container's singletons.
func (a *Application) Run(ctx context.Context) error {
	if !a.Providers.Booted() {
		if err := a.Boot(); err != nil {
			return err
		}
	}
	router, err := a.Router()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", ":"+a.cfg.App.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return a.serve(ctx, ln, router)
}

func (a *Application) serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	a.logger.Info("listening",
		zap.String("app", a.cfg.App.Name),
		zap.String("addr", ln.Addr().String()),
		zap.String("env", a.Environment()),
		zap.Bool("debug", a.IsDebug()),
	)

	var serveErr error
	select {
	case err := <-errc:
		serveErr = err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		serveErr = srv.Shutdown(shutdownCtx)
	}
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}
	return errors.Join(serveErr, a.Close())
}

// Close destroys every singleton.
func (a *Application) Close() error {
	a.logger.Info("shutting down")
	return a.DestroySingletons()
}

// Environment returns the APP_ENV value.
func (a *Application) Environment() string { return a.cfg.App.Env }

// IsProduction reports whether APP_ENV is "production".
func (a *Application) IsProduction() bool { return a.Environment() == "production" }

// IsDebug reports the APP_DEBUG flag.
func (a *Application) IsDebug() bool { return a.cfg.App.Debug }
