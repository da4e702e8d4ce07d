package container_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-beans/framework/container"
)

// ── stub providers ────────────────────────────────────────────────────────────

type greeting struct{ Text string }

func greetingClass(text string) *container.Class {
	return container.ClassOf("greeting", func() *greeting { return &greeting{Text: text} })
}

type eagerProvider struct {
	container.BaseProvider
	registerCalled bool
	bootCalled     bool
}

func (p *eagerProvider) Register(c *container.Container) error {
	p.registerCalled = true
	return c.RegisterBeanDefinition("eager-svc", container.Define(greetingClass("eager")))
}

func (p *eagerProvider) Boot(c *container.Container) error {
	p.bootCalled = true
	return nil
}

// deferredProvider is lazy: only registered when "deferred-svc" is first looked up.
type deferredProvider struct {
	container.BaseProvider
	registerCalled bool
	bootCalled     bool
}

func (p *deferredProvider) Register(c *container.Container) error {
	p.registerCalled = true
	if err := c.RegisterBeanDefinition("deferred-svc", container.Define(greetingClass("deferred-value"))); err != nil {
		return err
	}
	return c.RegisterAlias("deferred-svc", "deferred-alias")
}

func (p *deferredProvider) Boot(c *container.Container) error {
	p.bootCalled = true
	return nil
}

func (p *deferredProvider) IsDeferred() bool   { return true }
func (p *deferredProvider) Provides() []string { return []string{"deferred-svc"} }

// multiProvider registers multiple definitions.
type multiProvider struct {
	container.BaseProvider
}

func (p *multiProvider) Register(c *container.Container) error {
	return errors.Join(
		c.RegisterBeanDefinition("alpha", container.Define(greetingClass("α"))),
		c.RegisterBeanDefinition("beta", container.Define(greetingClass("β")).AsLazy()),
	)
}

type failingProvider struct {
	container.BaseProvider
}

func (p *failingProvider) Register(*container.Container) error { return errors.New("no database") }

func text(t *testing.T, c *container.Container, name string) string {
	t.Helper()
	g, err := container.GetBeanAs[*greeting](c, name)
	require.NoError(t, err)
	return g.Text
}

// ── ProviderRegistry ──────────────────────────────────────────────────────────

func TestRegistry_EagerProvider_RegisterCalled(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))

	assert.True(t, p.registerCalled, "Register() should be called immediately for eager providers")
	assert.True(t, c.ContainsBeanDefinition("eager-svc"))
}

func TestRegistry_EagerProvider_BootCalledAfterBoot(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))
	assert.False(t, p.bootCalled, "Boot() should NOT be called before registry.Boot()")

	require.NoError(t, reg.Boot())
	assert.True(t, p.bootCalled, "Boot() should be called after registry.Boot()")
}

func TestRegistry_Boot_PreInstantiatesSingletons(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)
	require.NoError(t, reg.Register(&multiProvider{}))
	require.NoError(t, reg.Register(&eagerProvider{}))

	require.NoError(t, reg.Boot())

	assert.Equal(t, container.StatePublished, c.State("alpha"))
	assert.Equal(t, container.StatePublished, c.State("eager-svc"))
	assert.Equal(t, container.StateNotStarted, c.State("beta"), "lazy beans wait for first lookup")
	assert.Equal(t, "β", text(t, c, "beta"))
}

func TestRegistry_Boot_WithoutPreInstantiation(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)
	reg.SetPreInstantiate(false)
	require.NoError(t, reg.Register(&multiProvider{}))

	require.NoError(t, reg.Boot())
	assert.Equal(t, container.StateNotStarted, c.State("alpha"))
}

func TestRegistry_Boot_IdempotentCallsAreIgnored(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)
	require.NoError(t, reg.Register(&eagerProvider{}))

	require.NoError(t, reg.Boot())
	require.NoError(t, reg.Boot())
	assert.True(t, reg.Booted())
}

func TestRegistry_Booted_FalseBeforeBoot(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())
	assert.False(t, reg.Booted())
}

func TestRegistry_DuplicateRegister_Ignored(t *testing.T) {
	c := container.New(container.WithoutDefinitionOverriding())
	reg := container.NewProviderRegistry(c)

	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Register(p), "second Register of the same instance is a no-op")
	assert.Len(t, reg.Providers(), 1)
}

func TestRegistry_RegisterError(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())
	err := reg.Register(&failingProvider{})
	assert.ErrorContains(t, err, "no database")
}

// ── Deferred providers ────────────────────────────────────────────────────────

func TestRegistry_DeferredProvider_NotRegisteredEagerly(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &deferredProvider{}
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Boot())

	assert.False(t, p.registerCalled, "deferred provider Register() should not be called until lookup")
	assert.Equal(t, []string{"deferred-svc"}, reg.Deferred())
}

func TestRegistry_DeferredProvider_RegisteredOnFirstLookup(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &deferredProvider{}
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Boot())

	assert.Equal(t, "deferred-value", text(t, c, "deferred-svc"))
	assert.True(t, p.registerCalled)
	assert.True(t, p.bootCalled, "registered after Boot(), so booted on load")
	assert.Empty(t, reg.Deferred())
	assert.Equal(t, "deferred-value", text(t, c, "deferred-alias"))
}

func TestRegistry_DeferredProvider_UnknownNameStillNotFound(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)
	require.NoError(t, reg.Register(&deferredProvider{}))

	_, err := c.GetBean("something-else")
	assert.ErrorIs(t, err, container.ErrBeanNotFound)
}

// ── Providers list ────────────────────────────────────────────────────────────

func TestRegistry_Providers_ReturnsEagerOnes(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())
	require.NoError(t, reg.Register(&eagerProvider{}))
	require.NoError(t, reg.Register(&deferredProvider{})) // deferred: not in Providers()

	assert.Len(t, reg.Providers(), 1)
}

// ── BaseProvider defaults ─────────────────────────────────────────────────────

func TestBaseProvider_Defaults(t *testing.T) {
	var p container.BaseProvider

	assert.NoError(t, p.Boot(container.New()))
	assert.False(t, p.IsDeferred())
	assert.Empty(t, p.Provides())
}

// ── Boot after registration (late provider) ───────────────────────────────────

func TestRegistry_RegisterAfterBoot_BootsImmediately(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())
	require.NoError(t, reg.Boot())

	p := &eagerProvider{}
	require.NoError(t, reg.Register(p))
	assert.True(t, p.bootCalled, "provider registered after Boot() should be booted immediately")
}
