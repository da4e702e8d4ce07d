package container

import (
	"fmt"
	"reflect"
	"slices"
	"time"

	"go.uber.org/zap"
)

// ── Singleton / prototype creation ────────────────────────────────────────────

func (c *Container) getSingleton(res *resolution, name string, def *Definition) (any, error) {
	bean, found, e, err := c.singletons.acquire(res, name, def)
	if err != nil || found {
		return bean, err
	}

	start := time.Now()
	bean, raw, err := c.createSingleton(res, name, def, e)
	if err != nil {
		if c.singletons.abandon(name, e) {
			c.destroyDependents(name, map[string]bool{name: true})
		}
		c.metrics.observeFailure(err)
		c.logger.Debug("bean creation failed", zap.String("bean", name), zap.Error(err))
		return nil, err
	}
	c.singletons.publish(name, e, bean, raw)
	c.metrics.observeCreated(ScopeSingleton, time.Since(start))
	c.metrics.singletonPublished()
	c.logger.Debug("published singleton",
		zap.String("bean", name),
		zap.Uint64("resolution", res.id),
		zap.Duration("took", time.Since(start)),
	)
	return bean, nil
}

func (c *Container) createSingleton(res *resolution, name string, def *Definition, e *entry) (bean, raw any, err error) {
	res.push(name)
	defer res.pop()

	raw, err = c.instantiate(res, name, def)
	if err != nil {
		return nil, nil, err
	}
	c.singletons.expose(e, func() (any, error) {
		return c.earlyReference(raw, name)
	})

	if err := c.populate(res, name, def, raw); err != nil {
		return nil, nil, err
	}
	bean, err = c.initialize(res, name, def, raw)
	if err != nil {
		return nil, nil, err
	}

	handed, early, err := c.singletons.earlyState(e)
	if err != nil {
		return nil, nil, newBeanError(name, "early-reference", ErrInitialization, err)
	}
	if handed {
		switch {
		case identical(bean, raw):
			bean = early
		case !identical(bean, early):
			return nil, nil, newBeanError(name, "initialize", ErrCircularDependency, fmt.Errorf(
				"bean was injected into other beans in its raw form as part of a circular reference, "+
					"but was replaced during initialization (%T -> %T)", early, bean))
		}
	}
	return bean, raw, nil
}

func (c *Container) createPrototype(res *resolution, name string, def *Definition) (any, error) {
	if slices.Contains(res.stack, name) {
		err := newBeanError(name, "create", ErrCircularDependency,
			fmt.Errorf("prototype already in creation: %s", res.chain(name)))
		c.metrics.observeFailure(err)
		return nil, err
	}
	res.push(name)
	defer res.pop()

	start := time.Now()
	raw, err := c.instantiate(res, name, def)
	if err == nil {
		err = c.populate(res, name, def, raw)
	}
	var bean any
	if err == nil {
		bean, err = c.initialize(res, name, def, raw)
	}
	if err != nil {
		c.metrics.observeFailure(err)
		return nil, err
	}
	c.metrics.observeCreated(ScopePrototype, time.Since(start))
	c.logger.Debug("created prototype", zap.String("bean", name), zap.Uint64("resolution", res.id))
	return bean, nil
}

// ── Pipeline steps ────────────────────────────────────────────────────────────

// instantiate resolves constructor arguments, which may recursively create
// other beans, then calls the class factory.
func (c *Container) instantiate(res *resolution, name string, def *Definition) (any, error) {
	args := make([]any, len(def.ConstructorArgs))
	for i, arg := range def.ConstructorArgs {
		v, err := c.resolveValue(res, arg.Type, arg.Value)
		if err != nil {
			return nil, newBeanError(name, "create", ErrBeanCreation,
				fmt.Errorf("constructor argument %d (%s): %w", i, arg.Name, err))
		}
		args[i] = v
	}

	var bean any
	err := safely(func() (err error) {
		bean, err = def.Class.instantiate(args)
		return err
	})
	if err != nil {
		return nil, newBeanError(name, "create", ErrBeanCreation, err)
	}
	return bean, nil
}

// populate applies every declared property plus any contextual override for
// a property the definition does not declare.
func (c *Container) populate(res *resolution, name string, def *Definition, bean any) error {
	overrides := c.overridesFor(name)
	bf := &boundFactory{c: c, res: res}

	apply := func(prop string, typ reflect.Type, declared any) error {
		value := declared
		if give, ok := overrides[prop]; ok {
			v, err := give(bf)
			if err != nil {
				return fmt.Errorf("contextual value: %w", err)
			}
			value = v
		}
		resolved, err := c.resolveValue(res, typ, value)
		if err != nil {
			return err
		}
		return def.Class.setters[prop].set(bean, resolved)
	}

	for _, pv := range def.Properties {
		if err := apply(pv.Name, pv.Type, pv.Value); err != nil {
			return newBeanError(name, "populate", ErrPropertyInjection, fmt.Errorf("property %q: %w", pv.Name, err))
		}
	}

	declared := make(map[string]bool, len(def.Properties))
	for _, pv := range def.Properties {
		declared[pv.Name] = true
	}
	extra := make([]string, 0, len(overrides))
	for prop := range overrides {
		if !declared[prop] {
			extra = append(extra, prop)
		}
	}
	slices.Sort(extra)
	for _, prop := range extra {
		typ, ok := def.Class.PropertyType(prop)
		if !ok {
			return newBeanError(name, "populate", ErrPropertyInjection,
				fmt.Errorf("contextual property %q: class %q has no setter", prop, def.Class.Name()))
		}
		if err := apply(prop, typ, nil); err != nil {
			return newBeanError(name, "populate", ErrPropertyInjection, fmt.Errorf("property %q: %w", prop, err))
		}
	}
	return nil
}

// resolveValue turns a declared value into the value to inject. References
// go through the lookup unless the target type is a plain value type, in
// which case the referenced name itself is the value.
func (c *Container) resolveValue(res *resolution, typ reflect.Type, value any) (any, error) {
	ref, isRef := value.(Reference)
	switch {
	case isRef && typ != nil && isPlainValueType(typ):
		return c.converter.Convert(ref.Name, typ)
	case isRef:
		bean, err := c.getBean(res, ref.Name)
		if err != nil {
			return nil, err
		}
		if typ != nil && !reflect.TypeOf(bean).AssignableTo(typ) {
			return nil, fmt.Errorf("%w: bean %q is %T, not assignable to %s", ErrTypeMismatch, ref.Name, bean, typ)
		}
		return bean, nil
	case typ == nil:
		return value, nil
	default:
		return c.converter.Convert(value, typ)
	}
}

// initialize runs awareness callbacks, post processors and init hooks and
// returns the bean to publish.
func (c *Container) initialize(res *resolution, name string, def *Definition, raw any) (any, error) {
	if aware, ok := raw.(BeanNameAware); ok {
		aware.SetBeanName(name)
	}
	if aware, ok := raw.(ContainerAware); ok {
		if err := safely(func() error { return aware.SetContainer(&boundFactory{c: c, res: res}) }); err != nil {
			return nil, newBeanError(name, "initialize", ErrInitialization, fmt.Errorf("SetContainer: %w", err))
		}
	}

	processors := c.postProcessors()
	bean := raw
	for _, p := range processors {
		next, err := callProcessor(func() (any, error) { return p.PostProcessBeforeInitialization(bean, name) })
		if err != nil {
			return nil, newBeanError(name, "initialize", ErrInitialization, fmt.Errorf("before-init %T: %w", p, err))
		}
		if next != nil {
			bean = next
		}
	}

	initializing, isInitializing := raw.(InitializingBean)
	if isInitializing {
		if err := safely(initializing.AfterPropertiesSet); err != nil {
			return nil, newBeanError(name, "initialize", ErrInitialization, fmt.Errorf("AfterPropertiesSet: %w", err))
		}
	}
	if m := def.InitMethod; m != "" && !(isInitializing && m == "AfterPropertiesSet") {
		if err := safely(func() error { return def.Class.Invoke(raw, m) }); err != nil {
			return nil, newBeanError(name, "initialize", ErrInitialization, fmt.Errorf("init method %q: %w", m, err))
		}
	}

	for _, p := range processors {
		next, err := callProcessor(func() (any, error) { return p.PostProcessAfterInitialization(bean, name) })
		if err != nil {
			return nil, newBeanError(name, "initialize", ErrInitialization, fmt.Errorf("after-init %T: %w", p, err))
		}
		if next != nil {
			bean = next
		}
	}
	return bean, nil
}

// earlyReference lets EarlyReferenceProcessors wrap the raw instance handed
// out for a circular reference.
func (c *Container) earlyReference(raw any, name string) (any, error) {
	ref := raw
	for _, p := range c.postProcessors() {
		ep, ok := p.(EarlyReferenceProcessor)
		if !ok {
			continue
		}
		next, err := callProcessor(func() (any, error) { return ep.EarlyReference(ref, name) })
		if err != nil {
			return nil, fmt.Errorf("early reference %T: %w", p, err)
		}
		if next != nil {
			ref = next
		}
	}
	return ref, nil
}

func (c *Container) postProcessors() []BeanPostProcessor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.processors)
}

// safely runs fn and turns a panic into an error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func callProcessor(fn func() (any, error)) (out any, err error) {
	err = safely(func() error {
		var e error
		out, e = fn()
		return e
	})
	return out, err
}
