package aop

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// ProxyFactory builds proxies for one target from its Advised configuration.
type ProxyFactory struct {
	Advised

	adapters *AdvisorAdapterRegistry
	stubs    *StubRegistry
	logger   *zap.Logger
}

// Option configures a ProxyFactory.
type Option func(*ProxyFactory)

// WithStubs uses reg instead of DefaultStubs.
func WithStubs(reg *StubRegistry) Option {
	return func(pf *ProxyFactory) { pf.stubs = reg }
}

// WithAdapters uses reg instead of DefaultAdapters.
func WithAdapters(reg *AdvisorAdapterRegistry) Option {
	return func(pf *ProxyFactory) { pf.adapters = reg }
}

// WithLogger logs proxy creation to l.
func WithLogger(l *zap.Logger) Option {
	return func(pf *ProxyFactory) { pf.logger = l }
}

// NewProxyFactory returns a factory for proxies around target with an empty
// chain.
func NewProxyFactory(target any, opts ...Option) *ProxyFactory {
	pf := &ProxyFactory{
		adapters: DefaultAdapters,
		stubs:    DefaultStubs,
		logger:   zap.NewNop(),
	}
	pf.target = target
	for _, o := range opts {
		o(pf)
	}
	return pf
}

// AddAdvice normalizes advice into interceptors and appends them to the
// chain. Advices of an unknown shape fail with ErrUnsupportedAdvice.
func (pf *ProxyFactory) AddAdvice(advice any) error {
	mis, err := pf.adapters.Interceptors(advice)
	if err != nil {
		return err
	}
	for _, mi := range mis {
		pf.AddInterceptor(mi)
	}
	return nil
}

// GetProxy returns a stand-in for the target. The configuration is captured
// now; later changes to the factory do not affect proxies already returned.
func (pf *ProxyFactory) GetProxy() (any, error) {
	snap := pf.snapshot()
	if isNilTarget(snap.target) {
		return nil, ErrMissingTarget
	}
	t := reflect.TypeOf(snap.target)
	build, strategy, err := pf.stubs.choose(t, snap.subclass)
	if err != nil {
		return nil, err
	}

	proxy := build(snap.target, newDispatcher(snap))
	pt := reflect.TypeOf(proxy)
	for _, c := range pf.stubs.implemented(t) {
		if pt == nil || !pt.Implements(c.iface) {
			return nil, fmt.Errorf("%w: %s proxy %v for %s does not implement %s",
				ErrUnproxyableTarget, strategy, pt, t, c.iface)
		}
	}

	pf.logger.Debug("created proxy",
		zap.Stringer("target", t),
		zap.String("strategy", strategy),
		zap.Int("interceptors", len(snap.interceptors)),
	)
	return proxy, nil
}

// ProxyAs returns the proxy as I.
func ProxyAs[I any](pf *ProxyFactory) (I, error) {
	var zero I
	p, err := pf.GetProxy()
	if err != nil {
		return zero, err
	}
	out, ok := p.(I)
	if !ok {
		return zero, fmt.Errorf("%w: proxy %T does not implement %s", ErrUnproxyableTarget, p, reflect.TypeFor[I]())
	}
	return out, nil
}

func isNilTarget(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
