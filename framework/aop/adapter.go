package aop

import (
	"fmt"
	"sync"
)

// AdvisorAdapter turns one advice shape into a MethodInterceptor.
type AdvisorAdapter interface {
	SupportsAdvice(advice any) bool
	Interceptor(advice any) MethodInterceptor
}

// AdvisorAdapterRegistry normalizes advices into interceptors. Chain-shaped
// advices are used as they are; everything else goes through the first
// supporting adapter.
type AdvisorAdapterRegistry struct {
	mu       sync.RWMutex
	adapters []AdvisorAdapter
}

// NewAdvisorAdapterRegistry returns a registry with the before,
// after-returning and throws adapters installed.
func NewAdvisorAdapterRegistry() *AdvisorAdapterRegistry {
	return &AdvisorAdapterRegistry{
		adapters: []AdvisorAdapter{beforeAdapter{}, afterReturningAdapter{}, throwsAdapter{}},
	}
}

// DefaultAdapters is shared by proxy factories that are not given a registry.
var DefaultAdapters = NewAdvisorAdapterRegistry()

// RegisterAdvisorAdapter adds an adapter consulted after the existing ones.
func (r *AdvisorAdapterRegistry) RegisterAdvisorAdapter(a AdvisorAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters = append(r.adapters, a)
}

// Wrap returns the single interceptor for advice.
func (r *AdvisorAdapterRegistry) Wrap(advice any) (MethodInterceptor, error) {
	if mi, ok := advice.(MethodInterceptor); ok {
		return mi, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.adapters {
		if a.SupportsAdvice(advice) {
			return a.Interceptor(advice), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedAdvice, adviceName(advice))
}

// Interceptors returns every interceptor advice yields: itself when it is
// chain shaped, plus one per supporting adapter. An advice implementing both
// MethodBeforeAdvice and AfterReturningAdvice yields two.
func (r *AdvisorAdapterRegistry) Interceptors(advice any) ([]MethodInterceptor, error) {
	var out []MethodInterceptor
	if mi, ok := advice.(MethodInterceptor); ok {
		out = append(out, mi)
	}
	r.mu.RLock()
	for _, a := range r.adapters {
		if a.SupportsAdvice(advice) {
			out = append(out, a.Interceptor(advice))
		}
	}
	r.mu.RUnlock()
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAdvice, adviceName(advice))
	}
	return out, nil
}

// ── Built-in adapters ────────────────────────────────────────────────────────

type beforeAdapter struct{}

func (beforeAdapter) SupportsAdvice(advice any) bool {
	_, ok := advice.(MethodBeforeAdvice)
	return ok
}

func (beforeAdapter) Interceptor(advice any) MethodInterceptor {
	return &beforeInterceptor{advice: advice.(MethodBeforeAdvice)}
}

type beforeInterceptor struct{ advice MethodBeforeAdvice }

func (b *beforeInterceptor) Invoke(inv *MethodInvocation) ([]any, error) {
	if err := b.advice.Before(inv.Method(), inv.Arguments(), inv.Target()); err != nil {
		return nil, err
	}
	return inv.Proceed()
}

type afterReturningAdapter struct{}

func (afterReturningAdapter) SupportsAdvice(advice any) bool {
	_, ok := advice.(AfterReturningAdvice)
	return ok
}

func (afterReturningAdapter) Interceptor(advice any) MethodInterceptor {
	return &afterReturningInterceptor{advice: advice.(AfterReturningAdvice)}
}

type afterReturningInterceptor struct{ advice AfterReturningAdvice }

func (a *afterReturningInterceptor) Invoke(inv *MethodInvocation) ([]any, error) {
	out, err := inv.Proceed()
	if err != nil {
		return out, err
	}
	if err := a.advice.AfterReturning(out, inv.Method(), inv.Arguments(), inv.Target()); err != nil {
		return nil, err
	}
	return out, nil
}

type throwsAdapter struct{}

func (throwsAdapter) SupportsAdvice(advice any) bool {
	_, ok := advice.(ThrowsAdvice)
	return ok
}

func (throwsAdapter) Interceptor(advice any) MethodInterceptor {
	return &throwsInterceptor{advice: advice.(ThrowsAdvice)}
}

type throwsInterceptor struct{ advice ThrowsAdvice }

func (t *throwsInterceptor) Invoke(inv *MethodInvocation) ([]any, error) {
	out, err := inv.Proceed()
	if err != nil {
		t.advice.AfterThrowing(inv.Method(), inv.Arguments(), inv.Target(), err)
	}
	return out, err
}
