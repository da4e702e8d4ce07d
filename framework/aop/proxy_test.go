package aop_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-beans/framework/aop"
)

func recordingAdvices(rec *recorder) (aop.BeforeFunc, aop.AfterReturningFunc) {
	before := func(aop.Method, []any, any) error {
		rec.add("before")
		return nil
	}
	after := func([]any, aop.Method, []any, any) error {
		rec.add("afterReturning")
		return nil
	}
	return before, after
}

func TestProxy_BeforeAndAfterReturningOrder(t *testing.T) {
	rec := &recorder{}
	pf := aop.NewProxyFactory(&userService{rec: rec}, aop.WithStubs(stubs()))
	before, after := recordingAdvices(rec)
	require.NoError(t, pf.AddAdvice(before))
	require.NoError(t, pf.AddAdvice(after))

	svc, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)

	got, err := svc.FindUser("test")
	require.NoError(t, err)
	assert.Equal(t, "User: test", got)
	assert.Equal(t, []string{"before", "findUser", "afterReturning"}, rec.list())
}

func TestProxy_SetTargetAffectsLaterProxies(t *testing.T) {
	first, second := &recorder{}, &recorder{}
	pf := aop.NewProxyFactory(&userService{rec: first}, aop.WithStubs(stubs()))
	before, _ := recordingAdvices(first)
	require.NoError(t, pf.AddAdvice(before))
	assert.False(t, pf.ProxyTargetClass())
	assert.Nil(t, pf.MethodMatcher())

	old, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)

	next := &userService{rec: second}
	pf.SetTarget(next)
	assert.Same(t, next, pf.Target())
	fresh, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)

	_, err = old.FindUser("a")
	require.NoError(t, err)
	_, err = fresh.FindUser("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"before", "findUser", "before"}, first.list())
	assert.Equal(t, []string{"findUser"}, second.list())
}

func TestProxy_MethodMatcherGating(t *testing.T) {
	rec := &recorder{}
	pf := aop.NewProxyFactory(&greeter{rec: rec}, aop.WithStubs(stubs()))
	before, after := recordingAdvices(rec)
	require.NoError(t, pf.AddAdvice(before))
	require.NoError(t, pf.AddAdvice(after))
	pf.SetMethodMatcher(aop.MethodNames("SayHello"))

	g, err := aop.ProxyAs[Greeter](pf)
	require.NoError(t, err)

	assert.Equal(t, "goodbye bob", g.SayGoodbye("bob"))
	assert.Equal(t, []string{"sayGoodbye"}, rec.list(), "unmatched method must bypass advice")

	rec.events = nil
	assert.Equal(t, "hello bob", g.SayHello("bob"))
	assert.Equal(t, []string{"before", "sayHello", "afterReturning"}, rec.list())
}

func TestProxy_InterceptorsRunOuterToInner(t *testing.T) {
	rec := &recorder{}
	pf := aop.NewProxyFactory(&userService{rec: rec}, aop.WithStubs(stubs()))
	for _, name := range []string{"outer", "inner"} {
		require.NoError(t, pf.AddAdvice(aop.InterceptorFunc(func(inv *aop.MethodInvocation) ([]any, error) {
			rec.add(name + ">")
			defer rec.add("<" + name)
			return inv.Proceed()
		})))
	}

	svc, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)
	_, err = svc.FindUser("x")
	require.NoError(t, err)
	assert.Equal(t, []string{"outer>", "inner>", "findUser", "<inner", "<outer"}, rec.list())
}

func TestProxy_InterceptorCanShortCircuit(t *testing.T) {
	rec := &recorder{}
	pf := aop.NewProxyFactory(&userService{rec: rec}, aop.WithStubs(stubs()))
	require.NoError(t, pf.AddAdvice(aop.InterceptorFunc(func(*aop.MethodInvocation) ([]any, error) {
		return []any{"cached"}, nil
	})))

	svc, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)
	got, err := svc.FindUser("x")
	require.NoError(t, err)
	assert.Equal(t, "cached", got)
	assert.Empty(t, rec.list())
}

func TestProxy_MissingResultsAreZeroFilled(t *testing.T) {
	pf := aop.NewProxyFactory(&userService{rec: &recorder{}}, aop.WithStubs(stubs()))
	require.NoError(t, pf.AddAdvice(aop.InterceptorFunc(func(*aop.MethodInvocation) ([]any, error) {
		return nil, nil
	})))

	svc, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)
	got, err := svc.FindUser("x")
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestProxy_InterceptorRewritesArguments(t *testing.T) {
	pf := aop.NewProxyFactory(&userService{rec: &recorder{}}, aop.WithStubs(stubs()))
	require.NoError(t, pf.AddAdvice(aop.InterceptorFunc(func(inv *aop.MethodInvocation) ([]any, error) {
		inv.Arguments()[0] = "rewritten"
		return inv.Proceed()
	})))

	svc, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)
	got, err := svc.FindUser("x")
	require.NoError(t, err)
	assert.Equal(t, "User: rewritten", got)
}

func TestProxy_TargetErrorPropagatesUnmodified(t *testing.T) {
	rec := &recorder{}
	pf := aop.NewProxyFactory(&userService{rec: rec}, aop.WithStubs(stubs()))
	var observed error
	before, after := recordingAdvices(rec)
	require.NoError(t, pf.AddAdvice(aop.ThrowsFunc(func(_ aop.Method, _ []any, _ any, err error) {
		observed = err
	})))
	require.NoError(t, pf.AddAdvice(before))
	require.NoError(t, pf.AddAdvice(after))

	svc, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)
	_, err = svc.FindUser("")
	assert.Same(t, errEmptyName, err)
	assert.Same(t, errEmptyName, observed)
	assert.Equal(t, []string{"before", "findUser"}, rec.list(), "after-returning must not run on failure")
}

func TestProxy_BeforeAdviceErrorAbortsCall(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("denied")
	pf := aop.NewProxyFactory(&userService{rec: rec}, aop.WithStubs(stubs()))
	require.NoError(t, pf.AddAdvice(aop.BeforeFunc(func(aop.Method, []any, any) error { return boom })))

	svc, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)
	_, err = svc.FindUser("x")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, rec.list())
}

func TestProxy_ErrorOnMethodWithoutErrorResultPanics(t *testing.T) {
	pf := aop.NewProxyFactory(&greeter{rec: &recorder{}}, aop.WithStubs(stubs()))
	require.NoError(t, pf.AddAdvice(aop.BeforeFunc(func(aop.Method, []any, any) error {
		return errors.New("boom")
	})))

	g, err := aop.ProxyAs[Greeter](pf)
	require.NoError(t, err)
	assert.PanicsWithError(t, "boom", func() { g.SayHello("x") })
}

func TestProxy_VariadicMethod(t *testing.T) {
	pf := aop.NewProxyFactory(formatter{}, aop.WithStubs(stubs()))
	var seen []any
	require.NoError(t, pf.AddAdvice(aop.BeforeFunc(func(_ aop.Method, args []any, _ any) error {
		seen = args
		return nil
	})))

	f, err := aop.ProxyAs[Formatter](pf)
	require.NoError(t, err)
	assert.Equal(t, "a-b-c", f.Join("-", "a", "b", "c"))
	require.Len(t, seen, 2)
	assert.Equal(t, []string{"a", "b", "c"}, seen[1])
}

func TestProxy_MethodIdentity(t *testing.T) {
	pf := aop.NewProxyFactory(&userService{rec: &recorder{}}, aop.WithStubs(stubs()))
	var got aop.Method
	var target any
	require.NoError(t, pf.AddAdvice(aop.BeforeFunc(func(m aop.Method, _ []any, tgt any) error {
		got, target = m, tgt
		return nil
	})))

	svc, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)
	_, _ = svc.FindUser("x")
	assert.Equal(t, "FindUser", got.Name)
	assert.Equal(t, "*aop_test.userService.FindUser", got.String())
	assert.Equal(t, "FindUser(string) (string, error)", got.Signature())
	assert.Same(t, pf.Target(), target)
}

func TestProxy_ConcurrentCalls(t *testing.T) {
	var calls atomic.Int64
	pf := aop.NewProxyFactory(&userService{rec: &recorder{}}, aop.WithStubs(stubs()))
	require.NoError(t, pf.AddAdvice(aop.InterceptorFunc(func(inv *aop.MethodInvocation) ([]any, error) {
		calls.Add(1)
		return inv.Proceed()
	})))
	svc, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.FindUser("x")
			assert.NoError(t, err)
			assert.Equal(t, "User: x", got)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(64), calls.Load())
}

// ── GetProxy strategy ────────────────────────────────────────────────────────

func TestGetProxy_MissingTarget(t *testing.T) {
	_, err := aop.NewProxyFactory(nil, aop.WithStubs(stubs())).GetProxy()
	assert.ErrorIs(t, err, aop.ErrMissingTarget)

	var typedNil *userService
	_, err = aop.NewProxyFactory(typedNil, aop.WithStubs(stubs())).GetProxy()
	assert.ErrorIs(t, err, aop.ErrMissingTarget)
}

func TestGetProxy_UnproxyableTarget(t *testing.T) {
	type plain struct{ n int }
	_, err := aop.NewProxyFactory(&plain{}, aop.WithStubs(stubs())).GetProxy()
	assert.ErrorIs(t, err, aop.ErrUnproxyableTarget)

	pf := aop.NewProxyFactory(&userService{rec: &recorder{}}, aop.WithStubs(stubs()))
	pf.SetProxyTargetClass(true)
	_, err = pf.GetProxy()
	assert.ErrorIs(t, err, aop.ErrUnproxyableTarget, "no subclass stub for *userService")
}

func TestGetProxy_PicksCoveringInterface(t *testing.T) {
	pf := aop.NewProxyFactory(&greeter{rec: &recorder{}}, aop.WithStubs(stubs()))
	p, err := pf.GetProxy()
	require.NoError(t, err)
	assert.IsType(t, &greeterStub{}, p)
	assert.Implements(t, (*Hello)(nil), p)
	assert.Implements(t, (*Greeter)(nil), p)
}

func TestGetProxy_SubclassStrategy(t *testing.T) {
	rec := &recorder{}
	pf := aop.NewProxyFactory(&greeter{rec: rec}, aop.WithStubs(stubs()))
	pf.SetProxyTargetClass(true)
	require.NoError(t, pf.AddAdvice(aop.BeforeFunc(func(aop.Method, []any, any) error {
		rec.add("before")
		return nil
	})))

	p, err := pf.GetProxy()
	require.NoError(t, err)
	sub, ok := p.(*greeterSubclass)
	require.True(t, ok, "got %T", p)
	assert.Implements(t, (*Greeter)(nil), p)

	sub.SayHello("a")
	sub.SayGoodbye("b")
	sub.Reset()
	assert.Equal(t, []string{"before", "sayHello", "sayGoodbye", "reset"}, rec.list())
}

func TestGetProxy_NoCoveringInterfaceFallsBackToSubclass(t *testing.T) {
	reg := aop.NewStubRegistry()
	aop.RegisterInterface(reg, func(d aop.Dispatcher) Hello { return &helloStub{d} })
	aop.RegisterInterface(reg, func(d aop.Dispatcher) UserService { return &userServiceStub{d} })

	type both struct {
		*greeter
		*userService
	}
	target := &both{greeter: &greeter{rec: &recorder{}}, userService: &userService{rec: &recorder{}}}
	_, err := aop.NewProxyFactory(target, aop.WithStubs(reg)).GetProxy()
	require.ErrorIs(t, err, aop.ErrUnproxyableTarget)
	assert.Contains(t, err.Error(), "covers")

	aop.RegisterSubclass(reg, func(b *both, d aop.Dispatcher) any { return b })
	p, err := aop.NewProxyFactory(target, aop.WithStubs(reg)).GetProxy()
	require.NoError(t, err)
	assert.Same(t, target, p)
}

func TestGetProxy_SnapshotsConfiguration(t *testing.T) {
	rec := &recorder{}
	pf := aop.NewProxyFactory(&userService{rec: rec}, aop.WithStubs(stubs()))
	svc, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)

	before, _ := recordingAdvices(rec)
	require.NoError(t, pf.AddAdvice(before))
	_, _ = svc.FindUser("x")
	assert.Equal(t, []string{"findUser"}, rec.list())
}

func TestProxyAs_WrongInterface(t *testing.T) {
	pf := aop.NewProxyFactory(&userService{rec: &recorder{}}, aop.WithStubs(stubs()))
	_, err := aop.ProxyAs[Greeter](pf)
	assert.ErrorIs(t, err, aop.ErrUnproxyableTarget)
}

func TestAddAdvice_Unsupported(t *testing.T) {
	pf := aop.NewProxyFactory(&userService{rec: &recorder{}}, aop.WithStubs(stubs()))
	err := pf.AddAdvice(42)
	assert.ErrorIs(t, err, aop.ErrUnsupportedAdvice)
	assert.Empty(t, pf.Interceptors())
}
