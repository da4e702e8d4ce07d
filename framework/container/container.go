package container

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the bean factory. It builds beans from registered definitions,
// resolves references between them by name, caches singletons and tears them
// down again.
//
// It supports:
//   - RegisterBeanDefinition / RemoveBeanDefinition / RegisterSingleton
//   - RegisterAlias / RemoveAlias (chained, cycle checked)
//   - GetBean by name, by name and type, or by type alone
//   - setter-level circular references through early references
//   - awareness callbacks, post processors, init and destroy hooks
//   - contextual property overrides (when A needs x, give it y)
//   - deferred definitions supplied by service providers
//
// A Container is safe for concurrent use.
type Container struct {
	mu sync.RWMutex

	// canonical name → definition
	definitions map[string]*Definition

	// registration order of definitions
	names []string

	aliases    *AliasRegistry
	singletons *singletonCache

	processors []BeanPostProcessor
	sources    []DefinitionSource

	// contextual: when[bean][property] = factory
	contextual map[string]map[string]ValueFactory

	converter     Converter
	logger        *zap.Logger
	metrics       *Metrics
	allowOverride bool

	resolutions atomic.Uint64
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithConverter replaces the literal value converter.
func WithConverter(conv Converter) Option {
	return func(c *Container) {
		if conv != nil {
			c.converter = conv
		}
	}
}

// WithMetrics records creation counts and timings.
func WithMetrics(m *Metrics) Option {
	return func(c *Container) { c.metrics = m }
}

// WithoutDefinitionOverriding makes registering an existing name fail with
// ErrDuplicateBean instead of replacing the definition.
func WithoutDefinitionOverriding() Option {
	return func(c *Container) { c.allowOverride = false }
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		definitions:   make(map[string]*Definition),
		singletons:    newSingletonCache(),
		contextual:    make(map[string]map[string]ValueFactory),
		converter:     DefaultConverter{},
		logger:        zap.NewNop(),
		allowOverride: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.aliases = NewAliasRegistry(c.logger.Named("alias"))
	return c
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger { return c.logger }

// ── Registration ──────────────────────────────────────────────────────────────

// RegisterBeanDefinition stores def under name. The definition is copied, so
// later changes to def have no effect. Replacing an existing definition
// destroys any singleton already built from it.
//
//	c.RegisterBeanDefinition("userService", container.Define(userServiceClass).
//	    WithProperty("repo", container.Ref("userRepository")).
//	    WithInit("Start"))
func (c *Container) RegisterBeanDefinition(name string, def *Definition) error {
	if name == "" {
		return fmt.Errorf("%w: bean name must not be empty", ErrInvalidDefinition)
	}
	prepared, err := def.prepare(name)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.aliases.IsAlias(name) {
		c.mu.Unlock()
		return newBeanError(name, "register", ErrAliasConflict,
			fmt.Errorf("name is already an alias for %q", c.aliases.CanonicalName(name)))
	}
	_, replaced := c.definitions[name]
	if replaced && !c.allowOverride {
		c.mu.Unlock()
		return newBeanError(name, "register", ErrDuplicateBean, fmt.Errorf("definition already registered"))
	}
	if !replaced && c.singletons.state(name) == StatePublished {
		c.mu.Unlock()
		return newBeanError(name, "register", ErrDuplicateBean, fmt.Errorf("a singleton is already registered under this name"))
	}
	c.definitions[name] = prepared
	if !replaced {
		c.names = append(c.names, name)
	}
	c.mu.Unlock()

	c.logger.Debug("registered bean definition",
		zap.String("bean", name),
		zap.String("class", prepared.Class.Name()),
		zap.String("scope", string(prepared.Scope)),
		zap.Bool("replaced", replaced),
	)
	if replaced {
		c.destroySingleton(name)
	}
	return nil
}

// RemoveBeanDefinition deletes the definition and destroys its singleton.
func (c *Container) RemoveBeanDefinition(name string) error {
	c.mu.Lock()
	if _, ok := c.definitions[name]; !ok {
		c.mu.Unlock()
		return newBeanError(name, "remove", ErrBeanNotFound, fmt.Errorf("no bean definition"))
	}
	delete(c.definitions, name)
	c.names = slices.DeleteFunc(c.names, func(n string) bool { return n == name })
	delete(c.contextual, name)
	c.mu.Unlock()

	c.logger.Debug("removed bean definition", zap.String("bean", name))
	c.destroySingleton(name)
	return nil
}

// ContainsBeanDefinition reports whether name, or the bean it is an alias
// of, has a definition.
func (c *Container) ContainsBeanDefinition(name string) bool {
	canonical := c.aliases.CanonicalName(name)
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.definitions[canonical]
	return ok
}

// BeanDefinition returns a copy of the definition registered under name.
func (c *Container) BeanDefinition(name string) (Definition, bool) {
	canonical := c.aliases.CanonicalName(name)
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.definitions[canonical]
	if !ok {
		return Definition{}, false
	}
	return *def, true
}

// BeanDefinitionNames returns definition names in registration order.
func (c *Container) BeanDefinitionNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.names)
}

// RegisterSingleton stores an already built bean. It bypasses definitions,
// post processors and init hooks; DisposableBean is still honored on
// destruction.
//
//	c.RegisterSingleton("config", cfg)
func (c *Container) RegisterSingleton(name string, bean any) error {
	if name == "" || isNil(bean) {
		return fmt.Errorf("%w: singleton needs a name and a non-nil value", ErrInvalidDefinition)
	}
	c.mu.RLock()
	_, hasDef := c.definitions[name]
	c.mu.RUnlock()
	if hasDef {
		return newBeanError(name, "register", ErrDuplicateBean, fmt.Errorf("a definition is registered under this name"))
	}
	if err := c.singletons.register(name, bean); err != nil {
		return err
	}
	c.metrics.singletonPublished()
	c.logger.Debug("registered singleton", zap.String("bean", name), zap.String("type", fmt.Sprintf("%T", bean)))
	return nil
}

// AddBeanPostProcessor appends p. Processors run in registration order for
// beans created after the call.
func (c *Container) AddBeanPostProcessor(p BeanPostProcessor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processors = append(c.processors, p)
}

// AddDefinitionSource appends a source consulted for unknown names.
func (c *Container) AddDefinitionSource(s DefinitionSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, s)
}

// ── Aliases ───────────────────────────────────────────────────────────────────

// RegisterAlias makes alias resolve to name. An alias may not shadow a bean
// definition.
func (c *Container) RegisterAlias(name, alias string) error {
	c.mu.RLock()
	_, shadows := c.definitions[alias]
	c.mu.RUnlock()
	// a would-be cycle is reported as such by the registry
	if shadows && alias != name && c.aliases.CanonicalName(name) != alias {
		return fmt.Errorf("%w: %q is the name of a bean definition", ErrAliasConflict, alias)
	}
	return c.aliases.RegisterAlias(name, alias)
}

// RemoveAlias deletes alias.
func (c *Container) RemoveAlias(alias string) error { return c.aliases.RemoveAlias(alias) }

// IsAlias reports whether name is an alias.
func (c *Container) IsAlias(name string) bool { return c.aliases.IsAlias(name) }

// Aliases returns every alias resolving to name.
func (c *Container) Aliases(name string) []string {
	return c.aliases.Aliases(c.aliases.CanonicalName(name))
}

// CanonicalName resolves name through the alias registry.
func (c *Container) CanonicalName(name string) string { return c.aliases.CanonicalName(name) }

// ── Lookup ────────────────────────────────────────────────────────────────────

// GetBean returns the bean called name, creating it if needed.
//
//	svc, err := c.GetBean("userService")
func (c *Container) GetBean(name string) (any, error) {
	res := c.newResolution()
	defer res.finish()
	return c.getBean(res, name)
}

// GetBeanOfType returns the bean called name if it is assignable to t.
func (c *Container) GetBeanOfType(name string, t reflect.Type) (any, error) {
	res := c.newResolution()
	defer res.finish()
	return c.getBeanOfType(res, name, t)
}

// GetBeanByType returns the only bean assignable to t.
func (c *Container) GetBeanByType(t reflect.Type) (any, error) {
	res := c.newResolution()
	defer res.finish()
	return c.getBeanByType(res, t)
}

// PreInstantiateSingletons creates every non-lazy singleton definition in
// registration order and stops at the first failure.
func (c *Container) PreInstantiateSingletons() error {
	for _, name := range c.BeanDefinitionNames() {
		def, ok := c.definition(name)
		if !ok || !def.IsSingleton() || def.Lazy {
			continue
		}
		if _, err := c.GetBean(name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) newResolution() *resolution {
	return &resolution{id: c.resolutions.Add(1)}
}

func (c *Container) definition(name string) (*Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.definitions[name]
	return def, ok
}

func (c *Container) getBean(res *resolution, name string) (any, error) {
	canonical := c.aliases.CanonicalName(name)
	bean, err := c.lookupBean(res, canonical)
	if err == nil {
		if n := len(res.stack); n > 0 && res.stack[n-1] != canonical {
			c.singletons.addDependent(canonical, res.stack[n-1])
		}
	}
	return bean, err
}

func (c *Container) lookupBean(res *resolution, canonical string) (any, error) {
	if bean, ok := c.singletons.published(canonical); ok {
		return bean, nil
	}

	def, err := c.lookupDefinition(canonical)
	if err != nil {
		return nil, err
	}
	if def == nil {
		bean, _ := c.singletons.published(canonical)
		return bean, nil
	}
	if def.IsPrototype() {
		return c.createPrototype(res, canonical, def)
	}
	return c.getSingleton(res, canonical, def)
}

// lookupDefinition falls back to definition sources for unknown names.
func (c *Container) lookupDefinition(name string) (*Definition, error) {
	if def, ok := c.definition(name); ok {
		return def, nil
	}

	c.mu.RLock()
	sources := slices.Clone(c.sources)
	c.mu.RUnlock()
	for _, src := range sources {
		loaded, err := src.ProvideDefinition(c, name)
		if err != nil {
			return nil, newBeanError(name, "lookup", ErrBeanNotFound, err)
		}
		if loaded {
			if def, ok := c.definition(name); ok {
				return def, nil
			}
		}
	}
	// a source may have registered a plain singleton
	if _, ok := c.singletons.published(name); ok {
		return nil, nil
	}
	return nil, newBeanError(name, "lookup", ErrBeanNotFound, fmt.Errorf("no bean definition or singleton"))
}

func (c *Container) getBeanOfType(res *resolution, name string, t reflect.Type) (any, error) {
	if t == nil {
		return nil, newBeanError(name, "lookup", ErrTypeMismatch, fmt.Errorf("required type is nil"))
	}
	bean, err := c.getBean(res, name)
	if err != nil {
		return nil, err
	}
	if !assignable(bean, t) {
		return nil, newBeanError(name, "lookup", ErrTypeMismatch,
			fmt.Errorf("bean is %T, not assignable to %s", bean, t))
	}
	return bean, nil
}

func (c *Container) getBeanByType(res *resolution, t reflect.Type) (any, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: required type is nil", ErrTypeMismatch)
	}
	candidates := c.namesForType(t)
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("%w: no bean assignable to %s", ErrBeanNotFound, t)
	case 1:
		return c.getBeanOfType(res, candidates[0], t)
	default:
		return nil, fmt.Errorf("%w: %d beans assignable to %s: %v", ErrAmbiguousBean, len(candidates), t, candidates)
	}
}

// namesForType matches published beans by their actual type and the rest by
// their class type.
func (c *Container) namesForType(t reflect.Type) []string {
	var out []string
	for _, name := range c.BeanDefinitionNames() {
		if bean, ok := c.singletons.published(name); ok {
			if assignable(bean, t) {
				out = append(out, name)
			}
			continue
		}
		if def, ok := c.definition(name); ok && def.Class.Type().AssignableTo(t) {
			out = append(out, name)
		}
	}
	for _, name := range c.singletons.names() {
		if _, hasDef := c.definition(name); hasDef || slices.Contains(out, name) {
			continue
		}
		if bean, ok := c.singletons.published(name); ok && assignable(bean, t) {
			out = append(out, name)
		}
	}
	return out
}

func assignable(bean any, t reflect.Type) bool {
	bt := reflect.TypeOf(bean)
	return bt != nil && bt.AssignableTo(t)
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// GetBeanAs looks up name and asserts it to T.
//
//	svc, err := container.GetBeanAs[*UserService](c, "userService")
func GetBeanAs[T any](f BeanFactory, name string) (T, error) {
	var zero T
	bean, err := f.GetBeanOfType(name, reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	return bean.(T), nil
}

// GetBeanFor returns the only bean assignable to T.
//
//	repo, err := container.GetBeanFor[UserRepository](c)
func GetBeanFor[T any](f BeanFactory) (T, error) {
	var zero T
	bean, err := f.GetBeanByType(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	return bean.(T), nil
}

// MustGetBean is like GetBeanAs but panics on failure. Intended for wiring
// code in main packages.
func MustGetBean[T any](f BeanFactory, name string) T {
	bean, err := GetBeanAs[T](f, name)
	if err != nil {
		panic(fmt.Sprintf("container: MustGetBean[%s](%q): %v", reflect.TypeFor[T](), name, err))
	}
	return bean
}

// ── Resolution-bound factory ──────────────────────────────────────────────────

// boundFactory joins the lookup that created the bean it was handed to, so
// lookups made from init hooks see early references instead of waiting on
// themselves. Once that lookup has finished it behaves like the container.
type boundFactory struct {
	c   *Container
	res *resolution
}

func (b *boundFactory) current() *resolution {
	if b.res.done.Load() {
		return b.c.newResolution()
	}
	return b.res
}

func (b *boundFactory) GetBean(name string) (any, error) {
	return b.c.getBean(b.current(), name)
}

func (b *boundFactory) GetBeanOfType(name string, t reflect.Type) (any, error) {
	return b.c.getBeanOfType(b.current(), name, t)
}

func (b *boundFactory) GetBeanByType(t reflect.Type) (any, error) {
	return b.c.getBeanByType(b.current(), t)
}

func (b *boundFactory) ContainsBeanDefinition(name string) bool {
	return b.c.ContainsBeanDefinition(name)
}

func (b *boundFactory) IsAlias(name string) bool { return b.c.IsAlias(name) }

func (b *boundFactory) Aliases(name string) []string { return b.c.Aliases(name) }

var (
	_ BeanFactory = (*Container)(nil)
	_ BeanFactory = (*boundFactory)(nil)
)
