package container

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups the registration of related bean definitions.
//
// Register must only register definitions, aliases and singletons. Boot is
// called after ALL providers have been registered, making it safe to look
// up beans inside Boot().
//
//	type RepositoryProvider struct{ container.BaseProvider }
//
//	func (p *RepositoryProvider) Register(c *container.Container) error {
//	    return c.RegisterBeanDefinition("userRepository", container.Define(userRepositoryClass))
//	}
//
//	func (p *RepositoryProvider) Boot(c *container.Container) error {
//	    _, err := c.GetBean("userRepository")
//	    return err
//	}
type ServiceProvider interface {
	// Register adds definitions to the container.
	// Do NOT look up beans here: use Boot() for that.
	Register(c *Container) error

	// Boot is called after all providers are registered.
	Boot(c *Container) error

	// Provides returns the bean names this provider registers.
	// Used for deferred (lazy) provider loading.
	// Return nil / empty slice if the provider is always eager.
	Provides() []string

	// IsDeferred returns true if this provider should be loaded lazily,
	// only when one of its Provides() names is first looked up.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct that provides no-op implementations
// of Boot(), Provides(), and IsDeferred().
// Embed it in your provider and only override what you need.
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(c *container.Container) error { ... }
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []string      { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders,
// including deferred (lazy) providers. It is a DefinitionSource for its
// container: looking up a name a deferred provider provides registers that
// provider on the spot.
type ProviderRegistry struct {
	mu         sync.Mutex
	app        *Container
	eager      []ServiceProvider
	deferred   map[string]ServiceProvider // bean name → provider
	booted     bool
	registered map[ServiceProvider]bool
	lazyBoot   bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	r := &ProviderRegistry{
		app:        app,
		deferred:   make(map[string]ServiceProvider),
		registered: make(map[ServiceProvider]bool),
	}
	app.AddDefinitionSource(r)
	return r
}

// Register adds a provider and calls its Register() method (unless deferred).
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		for _, name := range provider.Provides() {
			r.deferred[name] = provider
		}
		r.mu.Unlock()
		return nil
	}
	booted := r.booted
	r.eager = append(r.eager, provider)
	r.mu.Unlock()

	if err := provider.Register(r.app); err != nil {
		return fmt.Errorf("register provider %T: %w", provider, err)
	}
	// If already booted, boot this provider immediately
	if booted {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("boot provider %T: %w", provider, err)
		}
	}
	return nil
}

// ProvideDefinition registers the deferred provider responsible for name.
func (r *ProviderRegistry) ProvideDefinition(c *Container, name string) (bool, error) {
	r.mu.Lock()
	provider, ok := r.deferred[name]
	if !ok {
		r.mu.Unlock()
		return false, nil
	}
	for _, n := range provider.Provides() {
		delete(r.deferred, n)
	}
	booted := r.booted
	r.mu.Unlock()

	if err := provider.Register(c); err != nil {
		return false, fmt.Errorf("register deferred provider %T: %w", provider, err)
	}
	if booted {
		if err := provider.Boot(c); err != nil {
			return false, fmt.Errorf("boot deferred provider %T: %w", provider, err)
		}
	}
	c.Logger().Debug("loaded deferred provider",
		zap.String("bean", name),
		zap.String("provider", fmt.Sprintf("%T", provider)),
	)
	return true, nil
}

// Boot calls Boot() on all eager providers, then creates every non-lazy
// singleton. Must be called after ALL providers have been registered.
func (r *ProviderRegistry) Boot() error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	providers := append([]ServiceProvider(nil), r.eager...)
	lazy := r.lazyBoot
	r.mu.Unlock()

	for _, provider := range providers {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("boot provider %T: %w", provider, err)
		}
	}
	if lazy {
		return nil
	}
	return r.app.PreInstantiateSingletons()
}

// SetPreInstantiate controls whether Boot creates non-lazy singletons.
// It is on by default.
func (r *ProviderRegistry) SetPreInstantiate(on bool) {
	r.mu.Lock()
	r.lazyBoot = !on
	r.mu.Unlock()
}

// Booted returns true if Boot() has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns all registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}

// Deferred returns the names still waiting on a deferred provider.
func (r *ProviderRegistry) Deferred() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.deferred))
	for name := range r.deferred {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
