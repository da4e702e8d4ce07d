package aop

import (
	"fmt"
	"reflect"
	"strings"
)

// Method identifies one method of a proxied target.
type Method struct {
	Name string
	// Func is the method's signature without the receiver.
	Func reflect.Type
	// Owner is the dynamic type of the target.
	Owner reflect.Type
}

func (m Method) String() string {
	if m.Owner == nil {
		return m.Name
	}
	return m.Owner.String() + "." + m.Name
}

// Signature renders the method like "FindUser(string) (string, error)".
func (m Method) Signature() string {
	if m.Func == nil {
		return m.Name + "()"
	}
	return m.Name + "(" + strings.Join(m.params(), ", ") + ")" + " " + m.results()
}

func (m Method) params() []string {
	out := make([]string, m.Func.NumIn())
	for i := range out {
		t := m.Func.In(i)
		if m.Func.IsVariadic() && i == len(out)-1 {
			out[i] = "..." + t.Elem().String()
			continue
		}
		out[i] = t.String()
	}
	return out
}

// results renders the result list the way pointcut return patterns see it:
// "void", a single type, or "(a, b)".
func (m Method) results() string {
	if m.Func == nil || m.Func.NumOut() == 0 {
		return "void"
	}
	if m.Func.NumOut() == 1 {
		return m.Func.Out(0).String()
	}
	out := make([]string, m.Func.NumOut())
	for i := range out {
		out[i] = m.Func.Out(i).String()
	}
	return "(" + strings.Join(out, ", ") + ")"
}

// ── Advice shapes ─────────────────────────────────────────────────────────────

// MethodInterceptor is chain shaped: it receives the in-flight call and
// decides whether and when to continue it with Proceed. Results exclude a
// trailing error, which travels as the returned error.
type MethodInterceptor interface {
	Invoke(inv *MethodInvocation) ([]any, error)
}

// MethodBeforeAdvice runs before the target. Returning an error aborts the
// call.
type MethodBeforeAdvice interface {
	Before(m Method, args []any, target any) error
}

// AfterReturningAdvice runs after the target returned without error. It
// observes the results; returning an error turns the call into a failure.
type AfterReturningAdvice interface {
	AfterReturning(results []any, m Method, args []any, target any) error
}

// ThrowsAdvice observes failures of the target or of inner interceptors.
// The failure is returned unchanged afterwards.
type ThrowsAdvice interface {
	AfterThrowing(m Method, args []any, target any, err error)
}

// InterceptorFunc adapts a function to MethodInterceptor.
type InterceptorFunc func(inv *MethodInvocation) ([]any, error)

func (f InterceptorFunc) Invoke(inv *MethodInvocation) ([]any, error) { return f(inv) }

// BeforeFunc adapts a function to MethodBeforeAdvice.
type BeforeFunc func(m Method, args []any, target any) error

func (f BeforeFunc) Before(m Method, args []any, target any) error { return f(m, args, target) }

// AfterReturningFunc adapts a function to AfterReturningAdvice.
type AfterReturningFunc func(results []any, m Method, args []any, target any) error

func (f AfterReturningFunc) AfterReturning(results []any, m Method, args []any, target any) error {
	return f(results, m, args, target)
}

// ThrowsFunc adapts a function to ThrowsAdvice.
type ThrowsFunc func(m Method, args []any, target any, err error)

func (f ThrowsFunc) AfterThrowing(m Method, args []any, target any, err error) { f(m, args, target, err) }

func adviceName(advice any) string {
	if s, ok := advice.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", advice)
}
