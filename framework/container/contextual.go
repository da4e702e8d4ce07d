package container

import "slices"

// ValueFactory produces a property value at population time. It may return a
// literal, a bean, or a Reference to be resolved like any declared value.
type ValueFactory func(f BeanFactory) (any, error)

// ContextualBuilder implements the fluent contextual binding API. An
// override replaces the declared value of one property of one bean, or sets
// a property the definition leaves out.
//
//	c.When("photoController").Needs("storage").Give(func(f container.BeanFactory) (any, error) {
//	    return f.GetBean("s3Storage")
//	})
type ContextualBuilder struct {
	container *Container
	bean      string
	needs     string
}

// When starts a contextual override chain for bean.
func (c *Container) When(bean string) *ContextualBuilder {
	return &ContextualBuilder{container: c, bean: bean}
}

// Needs names the property being overridden.
func (b *ContextualBuilder) Needs(property string) *ContextualBuilder {
	b.needs = property
	return b
}

// Give sets the factory used for the property. It applies to instances
// created after the call. The bean name may be an alias, including one
// registered later; it is resolved when the bean is populated.
func (b *ContextualBuilder) Give(factory ValueFactory) {
	c := b.container

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.contextual[b.bean]; !ok {
		c.contextual[b.bean] = make(map[string]ValueFactory)
	}
	c.contextual[b.bean][b.needs] = factory
}

// GiveValue is shorthand for Give with a fixed value.
//
//	c.When("photoController").Needs("storagePath").GiveValue("/tmp/photos")
func (b *ContextualBuilder) GiveValue(value any) {
	b.Give(func(BeanFactory) (any, error) { return value, nil })
}

// GiveRef is shorthand for GiveValue(Ref(name)).
func (b *ContextualBuilder) GiveRef(name string) {
	b.GiveValue(Ref(name))
}

// overridesFor returns a snapshot of the overrides for the canonical name
// bean, merging those given under any of its aliases. Overrides given under
// the canonical name win.
func (c *Container) overridesFor(bean string) map[string]ValueFactory {
	c.mu.RLock()
	keys := make([]string, 0, len(c.contextual))
	for k := range c.contextual {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	if len(keys) == 0 {
		return nil
	}

	var matched []string
	for _, k := range keys {
		if k != bean && c.aliases.CanonicalName(k) == bean {
			matched = append(matched, k)
		}
	}
	slices.Sort(matched)
	matched = append(matched, bean)

	c.mu.RLock()
	defer c.mu.RUnlock()
	var out map[string]ValueFactory
	for _, k := range matched {
		for prop, give := range c.contextual[k] {
			if out == nil {
				out = make(map[string]ValueFactory)
			}
			out[prop] = give
		}
	}
	return out
}
