package aop

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InvocationIDKey is the invocation attribute holding the id assigned by
// LoggingInterceptor.
const InvocationIDKey = "aop.invocation_id"

// ── Logging ──────────────────────────────────────────────────────────────────

// LoggingInterceptor logs every call with a per-call uuid. Successful calls
// are logged at Level, failures at warn.
type LoggingInterceptor struct {
	logger *zap.Logger
	Level  zapcore.Level
}

func NewLoggingInterceptor(logger *zap.Logger) *LoggingInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingInterceptor{logger: logger, Level: zapcore.DebugLevel}
}

func (l *LoggingInterceptor) Invoke(inv *MethodInvocation) ([]any, error) {
	id := uuid.NewString()
	inv.SetAttribute(InvocationIDKey, id)
	fields := []zap.Field{
		zap.String("method", inv.Method().String()),
		zap.String("invocation", id),
	}
	if ce := l.logger.Check(l.Level, "invoking"); ce != nil {
		ce.Write(append(fields, zap.Int("args", len(inv.Arguments())))...)
	}

	start := time.Now()
	out, err := inv.Proceed()
	fields = append(fields, zap.Duration("took", time.Since(start)))
	if err != nil {
		l.logger.Warn("invocation failed", append(fields, zap.Error(err))...)
		return out, err
	}
	if ce := l.logger.Check(l.Level, "invocation returned"); ce != nil {
		ce.Write(fields...)
	}
	return out, nil
}

// ── Metrics ──────────────────────────────────────────────────────────────────

// MetricsInterceptor counts calls per method and outcome and observes their
// duration.
type MetricsInterceptor struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsInterceptor creates the collectors and registers them with reg.
func NewMetricsInterceptor(reg prometheus.Registerer) (*MetricsInterceptor, error) {
	m := &MetricsInterceptor{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beans",
			Subsystem: "aop",
			Name:      "calls_total",
			Help:      "Advised method calls, by method and outcome.",
		}, []string{"method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "beans",
			Subsystem: "aop",
			Name:      "call_seconds",
			Help:      "Duration of advised method calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	for _, c := range []prometheus.Collector{m.calls, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register aop metrics: %w", err)
		}
	}
	return m, nil
}

func (m *MetricsInterceptor) Invoke(inv *MethodInvocation) ([]any, error) {
	method := inv.Method().String()
	start := time.Now()
	out, err := inv.Proceed()
	m.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.calls.WithLabelValues(method, outcome).Inc()
	return out, err
}

// ── Tracing ──────────────────────────────────────────────────────────────────

const tracerName = "github.com/km-arc/go-beans/framework/aop"

// TracingInterceptor opens a span per call. When the method's first
// argument is a context.Context the span context replaces it, so the target
// and inner interceptors see the span.
type TracingInterceptor struct {
	tracer trace.Tracer
}

// NewTracingInterceptor uses tp, or the global provider when tp is nil.
func NewTracingInterceptor(tp trace.TracerProvider) *TracingInterceptor {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &TracingInterceptor{tracer: tp.Tracer(tracerName)}
}

func (t *TracingInterceptor) Invoke(inv *MethodInvocation) ([]any, error) {
	m := inv.Method()
	attrs := []attribute.KeyValue{attribute.String("code.function", m.Name)}
	if m.Owner != nil {
		attrs = append(attrs, attribute.String("code.namespace", m.Owner.String()))
	}
	if id, ok := inv.Attribute(InvocationIDKey); ok {
		attrs = append(attrs, attribute.String("aop.invocation_id", fmt.Sprint(id)))
	}

	ctx, span := t.tracer.Start(inv.Context(), m.String(), trace.WithAttributes(attrs...))
	defer span.End()
	inv.SetContext(ctx)

	out, err := inv.Proceed()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}
