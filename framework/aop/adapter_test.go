package aop_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-beans/framework/aop"
)

// beforeAndAfter implements both simple advice shapes.
type beforeAndAfter struct{ rec *recorder }

func (b *beforeAndAfter) Before(aop.Method, []any, any) error {
	b.rec.add("before")
	return nil
}

func (b *beforeAndAfter) AfterReturning([]any, aop.Method, []any, any) error {
	b.rec.add("afterReturning")
	return nil
}

// auditAdvice is a custom advice shape handled by auditAdapter.
type auditAdvice struct{ rec *recorder }

type auditAdapter struct{}

func (auditAdapter) SupportsAdvice(advice any) bool {
	_, ok := advice.(*auditAdvice)
	return ok
}

func (auditAdapter) Interceptor(advice any) aop.MethodInterceptor {
	a := advice.(*auditAdvice)
	return aop.InterceptorFunc(func(inv *aop.MethodInvocation) ([]any, error) {
		a.rec.add("audit " + inv.Method().Name)
		return inv.Proceed()
	})
}

func TestAdvisorAdapterRegistry_Wrap(t *testing.T) {
	reg := aop.NewAdvisorAdapterRegistry()

	mi := aop.InterceptorFunc(func(inv *aop.MethodInvocation) ([]any, error) { return inv.Proceed() })
	got, err := reg.Wrap(mi)
	require.NoError(t, err)
	assert.NotNil(t, got)

	for name, advice := range map[string]any{
		"before":         aop.BeforeFunc(func(aop.Method, []any, any) error { return nil }),
		"afterReturning": aop.AfterReturningFunc(func([]any, aop.Method, []any, any) error { return nil }),
		"throws":         aop.ThrowsFunc(func(aop.Method, []any, any, error) {}),
	} {
		t.Run(name, func(t *testing.T) {
			got, err := reg.Wrap(advice)
			require.NoError(t, err)
			assert.NotNil(t, got)
		})
	}

	_, err = reg.Wrap("not advice")
	assert.ErrorIs(t, err, aop.ErrUnsupportedAdvice)
}

func TestAdvisorAdapterRegistry_InterceptorsForCombinedAdvice(t *testing.T) {
	reg := aop.NewAdvisorAdapterRegistry()
	rec := &recorder{}

	mis, err := reg.Interceptors(&beforeAndAfter{rec: rec})
	require.NoError(t, err)
	assert.Len(t, mis, 2)

	pf := aop.NewProxyFactory(&userService{rec: rec}, aop.WithStubs(stubs()), aop.WithAdapters(reg))
	require.NoError(t, pf.AddAdvice(&beforeAndAfter{rec: rec}))
	svc, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)
	got, err := svc.FindUser("test")
	require.NoError(t, err)
	assert.Equal(t, "User: test", got)
	assert.Equal(t, []string{"before", "findUser", "afterReturning"}, rec.list())
}

func TestAdvisorAdapterRegistry_CustomAdapter(t *testing.T) {
	reg := aop.NewAdvisorAdapterRegistry()
	rec := &recorder{}

	_, err := reg.Wrap(&auditAdvice{rec: rec})
	require.ErrorIs(t, err, aop.ErrUnsupportedAdvice)

	reg.RegisterAdvisorAdapter(auditAdapter{})
	pf := aop.NewProxyFactory(&userService{rec: rec}, aop.WithStubs(stubs()), aop.WithAdapters(reg))
	require.NoError(t, pf.AddAdvice(&auditAdvice{rec: rec}))
	svc, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)
	_, err = svc.FindUser("x")
	require.NoError(t, err)
	assert.Equal(t, []string{"audit FindUser", "findUser"}, rec.list())
}

func TestAfterReturningAdviceErrorFailsCall(t *testing.T) {
	pf := aop.NewProxyFactory(&userService{rec: &recorder{}}, aop.WithStubs(stubs()))
	require.NoError(t, pf.AddAdvice(aop.AfterReturningFunc(func(results []any, _ aop.Method, _ []any, _ any) error {
		if results[0] == "User: forbidden" {
			return assert.AnError
		}
		return nil
	})))
	svc, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)

	got, err := svc.FindUser("ok")
	require.NoError(t, err)
	assert.Equal(t, "User: ok", got)

	got, err = svc.FindUser("forbidden")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, got)
}
