package aop

import (
	"context"
	"slices"
)

// MethodInvocation is one call travelling through an interceptor chain. It
// is created per call and must not be retained after the call returns.
type MethodInvocation struct {
	target       any
	method       Method
	args         []any
	interceptors []MethodInterceptor
	cursor       int
	invoke       func(args []any) ([]any, error)
	attrs        map[string]any
}

func newInvocation(target any, m Method, args []any, chain []MethodInterceptor, invoke func([]any) ([]any, error)) *MethodInvocation {
	return &MethodInvocation{
		target:       target,
		method:       m,
		args:         args,
		interceptors: chain,
		cursor:       -1,
		invoke:       invoke,
	}
}

// Proceed runs the next interceptor, or the target once the chain is
// exhausted.
func (inv *MethodInvocation) Proceed() ([]any, error) {
	if inv.cursor == len(inv.interceptors)-1 {
		return inv.invoke(inv.args)
	}
	inv.cursor++
	return inv.interceptors[inv.cursor].Invoke(inv)
}

// Method returns the called method.
func (inv *MethodInvocation) Method() Method { return inv.method }

// Arguments returns the call arguments. Interceptors may modify elements
// before calling Proceed.
func (inv *MethodInvocation) Arguments() []any { return inv.args }

// Target returns the proxied object.
func (inv *MethodInvocation) Target() any { return inv.target }

// Context returns the first argument if it is a context.Context, otherwise
// context.Background().
func (inv *MethodInvocation) Context() context.Context {
	if len(inv.args) > 0 {
		if ctx, ok := inv.args[0].(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// SetContext replaces the first argument when it is a context.Context, so
// inner interceptors and the target see ctx. It reports whether it did.
func (inv *MethodInvocation) SetContext(ctx context.Context) bool {
	if len(inv.args) == 0 {
		return false
	}
	if _, ok := inv.args[0].(context.Context); !ok {
		return false
	}
	inv.args = slices.Clone(inv.args)
	inv.args[0] = ctx
	return true
}

// Attribute returns a value stored by an outer interceptor.
func (inv *MethodInvocation) Attribute(key string) (any, bool) {
	v, ok := inv.attrs[key]
	return v, ok
}

// SetAttribute stores a value for inner interceptors of the same call.
func (inv *MethodInvocation) SetAttribute(key string, v any) {
	if inv.attrs == nil {
		inv.attrs = make(map[string]any)
	}
	inv.attrs[key] = v
}
