package container

import "reflect"

// ── Lookup surface ───────────────────────────────────────────────────────────

// BeanFactory is the read side of the container. ContainerAware beans receive
// one bound to the lookup that is creating them; lookups made through it
// during initialization join that lookup and see its early references.
type BeanFactory interface {
	GetBean(name string) (any, error)
	GetBeanOfType(name string, t reflect.Type) (any, error)
	GetBeanByType(t reflect.Type) (any, error)
	ContainsBeanDefinition(name string) bool
	IsAlias(name string) bool
	Aliases(name string) []string
}

// ── Awareness ────────────────────────────────────────────────────────────────

// BeanNameAware beans are told the name they were created under.
type BeanNameAware interface {
	SetBeanName(name string)
}

// ContainerAware beans are handed the owning container before any init hook.
type ContainerAware interface {
	SetContainer(f BeanFactory) error
}

// ── Init / destroy callbacks ─────────────────────────────────────────────────

// InitializingBean runs after properties are set and before the declared init
// method.
type InitializingBean interface {
	AfterPropertiesSet() error
}

// DisposableBean is called by DestroySingletons. A declared destroy method
// named "Destroy" is not called a second time.
type DisposableBean interface {
	Destroy() error
}

// ── Post processors ──────────────────────────────────────────────────────────

// BeanPostProcessor may inspect or replace every bean around its init hooks.
// Returning a different value publishes that value instead of the raw bean.
type BeanPostProcessor interface {
	PostProcessBeforeInitialization(bean any, name string) (any, error)
	PostProcessAfterInitialization(bean any, name string) (any, error)
}

// EarlyReferenceProcessor may wrap the raw instance handed out to resolve a
// circular reference. A processor that wraps early must return the bean
// unchanged from PostProcessAfterInitialization for the same name.
type EarlyReferenceProcessor interface {
	BeanPostProcessor
	EarlyReference(bean any, name string) (any, error)
}

// BeforeInitFunc adapts a function to a BeanPostProcessor that only runs
// before initialization.
type BeforeInitFunc func(bean any, name string) (any, error)

func (f BeforeInitFunc) PostProcessBeforeInitialization(bean any, name string) (any, error) {
	return f(bean, name)
}

func (f BeforeInitFunc) PostProcessAfterInitialization(bean any, _ string) (any, error) {
	return bean, nil
}

// AfterInitFunc adapts a function to a BeanPostProcessor that only runs after
// initialization.
type AfterInitFunc func(bean any, name string) (any, error)

func (f AfterInitFunc) PostProcessBeforeInitialization(bean any, _ string) (any, error) {
	return bean, nil
}

func (f AfterInitFunc) PostProcessAfterInitialization(bean any, name string) (any, error) {
	return f(bean, name)
}

// DefinitionSource supplies definitions on demand. The container asks every
// source in turn when a name has no definition; a source that registers one
// reports true.
type DefinitionSource interface {
	ProvideDefinition(c *Container, name string) (bool, error)
}
