package aop

import (
	"slices"
	"sync"
)

// Advised holds what a proxy wraps: the target, the ordered interceptor
// chain (first added = outermost), an optional method matcher and the
// proxy strategy flag. It is safe for concurrent use; proxies snapshot it
// when they are created.
type Advised struct {
	mu               sync.RWMutex
	target           any
	interceptors     []MethodInterceptor
	matcher          MethodMatcher
	proxyTargetClass bool
}

// Target returns the object calls are delegated to.
func (a *Advised) Target() any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.target
}

// SetTarget replaces the target for proxies created afterwards. Existing
// proxies keep the target they were built with.
func (a *Advised) SetTarget(target any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.target = target
}

// AddInterceptor appends mi as the innermost interceptor.
func (a *Advised) AddInterceptor(mi MethodInterceptor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.interceptors = append(a.interceptors, mi)
}

// Interceptors returns a copy of the chain in call order.
func (a *Advised) Interceptors() []MethodInterceptor {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.interceptors)
}

// MethodMatcher returns the matcher gating the chain, or nil.
func (a *Advised) MethodMatcher() MethodMatcher {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.matcher
}

// SetMethodMatcher restricts the chain to matching methods. Nil matches all.
func (a *Advised) SetMethodMatcher(m MethodMatcher) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.matcher = m
}

// ProxyTargetClass reports whether the subclass strategy is forced.
func (a *Advised) ProxyTargetClass() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.proxyTargetClass
}

// SetProxyTargetClass forces the subclass strategy.
func (a *Advised) SetProxyTargetClass(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.proxyTargetClass = v
}

type snapshot struct {
	target       any
	interceptors []MethodInterceptor
	matcher      MethodMatcher
	subclass     bool
}

func (a *Advised) snapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{
		target:       a.target,
		interceptors: slices.Clone(a.interceptors),
		matcher:      a.matcher,
		subclass:     a.proxyTargetClass,
	}
}
