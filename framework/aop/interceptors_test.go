package aop_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-beans/framework/aop"
)

func TestLoggingInterceptor(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	pf := aop.NewProxyFactory(&userService{rec: &recorder{}}, aop.WithStubs(stubs()))
	require.NoError(t, pf.AddAdvice(aop.NewLoggingInterceptor(zap.New(core))))
	svc, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)

	_, err = svc.FindUser("x")
	require.NoError(t, err)
	_, err = svc.FindUser("")
	require.ErrorIs(t, err, errEmptyName)

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)
	assert.Equal(t, "invoking", entries[0].Message)
	assert.Equal(t, "invocation returned", entries[1].Message)
	assert.Equal(t, "invoking", entries[2].Message)
	assert.Equal(t, "invocation failed", entries[3].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[3].Level)

	first := entries[0].ContextMap()
	assert.Equal(t, "*aop_test.userService.FindUser", first["method"])
	id, ok := first["invocation"].(string)
	require.True(t, ok)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, entries[1].ContextMap()["invocation"])
	assert.NotEqual(t, id, entries[2].ContextMap()["invocation"], "ids are per call")
}

func TestLoggingInterceptor_Level(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	li := aop.NewLoggingInterceptor(zap.New(core))
	pf := aop.NewProxyFactory(&userService{rec: &recorder{}}, aop.WithStubs(stubs()))
	require.NoError(t, pf.AddAdvice(li))
	svc, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)

	_, _ = svc.FindUser("x")
	assert.Zero(t, logs.Len(), "debug entries filtered at info")

	li.Level = zapcore.InfoLevel
	_, _ = svc.FindUser("x")
	assert.Equal(t, 2, logs.Len())
}

func TestMetricsInterceptor(t *testing.T) {
	reg := prometheus.NewRegistry()
	mi, err := aop.NewMetricsInterceptor(reg)
	require.NoError(t, err)

	pf := aop.NewProxyFactory(&userService{rec: &recorder{}}, aop.WithStubs(stubs()))
	require.NoError(t, pf.AddAdvice(mi))
	svc, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)

	_, _ = svc.FindUser("a")
	_, _ = svc.FindUser("b")
	_, _ = svc.FindUser("")

	expected := `
# HELP beans_aop_calls_total Advised method calls, by method and outcome.
# TYPE beans_aop_calls_total counter
beans_aop_calls_total{method="*aop_test.userService.FindUser",outcome="error"} 1
beans_aop_calls_total{method="*aop_test.userService.FindUser",outcome="success"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "beans_aop_calls_total"))

	n, err := testutil.GatherAndCount(reg, "beans_aop_call_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = aop.NewMetricsInterceptor(reg)
	assert.Error(t, err, "collectors are already registered")
}

func TestTracingInterceptor(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	target := &store{}
	pf := aop.NewProxyFactory(target, aop.WithStubs(stubs()))
	require.NoError(t, pf.AddAdvice(aop.NewLoggingInterceptor(nil)))
	require.NoError(t, pf.AddAdvice(aop.NewTracingInterceptor(tp)))
	s, err := aop.ProxyAs[Store](pf)
	require.NoError(t, err)

	got, err := s.Lookup(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "value:k", got)
	assert.True(t, target.sawSpan, "target receives the span context")

	_, err = s.Lookup(context.Background(), "")
	require.ErrorIs(t, err, errEmptyName)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "*aop_test.store.Lookup", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, errEmptyName.Error(), spans[1].Status().Description)

	var hasID bool
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "aop.invocation_id" {
			hasID = true
		}
	}
	assert.True(t, hasID, "invocation id from the logging interceptor is recorded")
}

func TestMethodInvocation_ContextWithoutContextArgument(t *testing.T) {
	pf := aop.NewProxyFactory(&userService{rec: &recorder{}}, aop.WithStubs(stubs()))
	require.NoError(t, pf.AddAdvice(aop.InterceptorFunc(func(inv *aop.MethodInvocation) ([]any, error) {
		assert.Equal(t, context.Background(), inv.Context())
		assert.False(t, inv.SetContext(context.TODO()))
		return inv.Proceed()
	})))
	svc, err := aop.ProxyAs[UserService](pf)
	require.NoError(t, err)
	_, err = svc.FindUser("x")
	assert.NoError(t, err)
}
