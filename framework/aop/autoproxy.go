package aop

import (
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/go-beans/framework/container"
)

// AutoProxyCreator is a container post processor that replaces every bean
// accepted by Pointcut's class filter with a proxy whose chain is built from
// Advices and gated by Pointcut. Beans no registered stub can proxy are left
// alone. Beans handed out early to break a circular reference are proxied at
// that point and not wrapped again after initialization.
type AutoProxyCreator struct {
	// Pointcut selects beans and methods. Nil advises every proxyable bean
	// and every method.
	Pointcut Pointcut
	Advices  []any

	Stubs            *StubRegistry
	Adapters         *AdvisorAdapterRegistry
	ProxyTargetClass bool
	Logger           *zap.Logger

	mu sync.Mutex
	// early maps a bean name to the raw instance proxied by EarlyReference.
	early map[string]any
}

var _ container.EarlyReferenceProcessor = (*AutoProxyCreator)(nil)

func (a *AutoProxyCreator) PostProcessBeforeInitialization(bean any, _ string) (any, error) {
	return bean, nil
}

func (a *AutoProxyCreator) PostProcessAfterInitialization(bean any, name string) (any, error) {
	a.mu.Lock()
	raw, early := a.early[name]
	delete(a.early, name)
	a.mu.Unlock()
	// an entry left by an earlier, failed creation of name does not match
	if early && sameInstance(raw, bean) {
		return bean, nil
	}
	return a.wrap(bean, name)
}

func (a *AutoProxyCreator) EarlyReference(bean any, name string) (any, error) {
	a.mu.Lock()
	if a.early == nil {
		a.early = make(map[string]any)
	}
	a.early[name] = bean
	a.mu.Unlock()
	return a.wrap(bean, name)
}

func (a *AutoProxyCreator) wrap(bean any, name string) (any, error) {
	if isNilTarget(bean) {
		return bean, nil
	}
	t := reflect.TypeOf(bean)
	if a.Pointcut != nil && !a.Pointcut.MatchesType(t) {
		return bean, nil
	}
	stubs := a.Stubs
	if stubs == nil {
		stubs = DefaultStubs
	}
	if !stubs.proxyable(t, a.ProxyTargetClass) {
		a.logger().Debug("bean not proxyable", zap.String("bean", name), zap.Stringer("type", t))
		return bean, nil
	}

	opts := []Option{WithStubs(stubs), WithLogger(a.logger())}
	if a.Adapters != nil {
		opts = append(opts, WithAdapters(a.Adapters))
	}
	pf := NewProxyFactory(bean, opts...)
	pf.SetProxyTargetClass(a.ProxyTargetClass)
	if a.Pointcut != nil {
		pf.SetMethodMatcher(a.Pointcut)
	}
	for _, adv := range a.Advices {
		if err := pf.AddAdvice(adv); err != nil {
			return nil, err
		}
	}
	proxy, err := pf.GetProxy()
	if err != nil {
		return nil, err
	}
	a.logger().Debug("proxied bean", zap.String("bean", name), zap.Stringer("type", t))
	return proxy, nil
}

func (a *AutoProxyCreator) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// sameInstance reports whether a and b are the same bean without panicking on
// uncomparable dynamic types.
func sameInstance(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Pointer:
		return va.Pointer() == vb.Pointer()
	}
	return false
}
