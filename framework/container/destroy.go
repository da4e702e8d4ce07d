package container

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// DestroySingletons tears down every published singleton, newest first.
// DisposableBean.Destroy runs before the declared destroy method; a declared
// method named "Destroy" on a DisposableBean is not called twice. Failures
// are logged and joined; the remaining beans are still destroyed. The cache
// is emptied, so a second call does nothing.
func (c *Container) DestroySingletons() error {
	names, entries := c.singletons.drain()
	var errs []error
	for i, name := range names {
		c.metrics.singletonDestroyed()
		if err := c.destroyBean(name, entries[i]); err != nil {
			c.logger.Error("destroy failed", zap.String("bean", name), zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(names) > 0 {
		c.logger.Debug("destroyed singletons", zap.Int("count", len(names)), zap.Int("failed", len(errs)))
	}
	return errors.Join(errs...)
}

// destroySingleton evicts and destroys one published singleton, logging any
// failure.
func (c *Container) destroySingleton(name string) {
	e, ok := c.singletons.evict(name)
	if !ok {
		return
	}
	c.metrics.singletonDestroyed()
	if err := c.destroyBean(name, e); err != nil {
		c.logger.Error("destroy failed", zap.String("bean", name), zap.Error(err))
	}
}

// destroyDependents evicts and destroys every singleton that holds a
// reference to name, directly or through other beans. It runs when an early
// reference to name was handed out and name's creation then failed.
func (c *Container) destroyDependents(name string, seen map[string]bool) {
	for _, dep := range c.singletons.takeDependents(name) {
		if seen[dep] {
			continue
		}
		seen[dep] = true
		c.logger.Debug("destroying dependent of failed bean", zap.String("bean", dep), zap.String("failed", name))
		c.destroySingleton(dep)
		c.destroyDependents(dep, seen)
	}
}

func (c *Container) destroyBean(name string, e *entry) error {
	var errs []error

	disposable, isDisposable := e.raw.(DisposableBean)
	if isDisposable {
		if err := safely(disposable.Destroy); err != nil {
			errs = append(errs, fmt.Errorf("Destroy: %w", err))
		}
	}
	if e.def != nil {
		if m := e.def.DestroyMethod; m != "" && !(isDisposable && m == "Destroy") {
			if err := safely(func() error { return e.def.Class.Invoke(e.raw, m) }); err != nil {
				errs = append(errs, fmt.Errorf("destroy method %q: %w", m, err))
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return newBeanError(name, "destroy", ErrDestruction, errors.Join(errs...))
}
