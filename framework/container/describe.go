package container

import (
	"fmt"
)

// BeanInfo is a read-only snapshot of one bean for diagnostics.
type BeanInfo struct {
	Name          string   `json:"name"`
	Class         string   `json:"class,omitempty"`
	Type          string   `json:"type"`
	Scope         Scope    `json:"scope"`
	Lazy          bool     `json:"lazy,omitempty"`
	State         string   `json:"state"`
	Aliases       []string `json:"aliases,omitempty"`
	DependsOn     []string `json:"dependsOn,omitempty"`
	InitMethod    string   `json:"initMethod,omitempty"`
	DestroyMethod string   `json:"destroyMethod,omitempty"`
	Description   string   `json:"description,omitempty"`
}

// Describe returns a snapshot of the bean called name (or aliased as name).
// It never creates the bean.
func (c *Container) Describe(name string) (BeanInfo, error) {
	canonical := c.aliases.CanonicalName(name)
	info := BeanInfo{
		Name:    canonical,
		State:   c.singletons.state(canonical).String(),
		Aliases: c.aliases.Aliases(canonical),
	}

	if def, ok := c.definition(canonical); ok {
		info.Class = def.Class.Name()
		info.Type = def.Class.Type().String()
		info.Scope = def.Scope
		info.Lazy = def.Lazy
		info.DependsOn = def.Dependencies()
		info.InitMethod = def.InitMethod
		info.DestroyMethod = def.DestroyMethod
		info.Description = def.Description
		return info, nil
	}

	if bean, ok := c.singletons.published(canonical); ok {
		info.Type = fmt.Sprintf("%T", bean)
		info.Scope = ScopeSingleton
		return info, nil
	}
	return BeanInfo{}, newBeanError(name, "describe", ErrBeanNotFound, fmt.Errorf("no bean definition or singleton"))
}

// Beans describes every definition in registration order followed by
// registered singletons that have no definition.
func (c *Container) Beans() []BeanInfo {
	names := c.BeanDefinitionNames()
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, n := range c.singletons.names() {
		if !seen[n] {
			names = append(names, n)
			seen[n] = true
		}
	}

	out := make([]BeanInfo, 0, len(names))
	for _, n := range names {
		if info, err := c.Describe(n); err == nil {
			out = append(out, info)
		}
	}
	return out
}

// State returns the singleton cache state for name.
func (c *Container) State(name string) State {
	return c.singletons.state(c.aliases.CanonicalName(name))
}
