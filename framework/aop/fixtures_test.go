package aop_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/km-arc/go-beans/framework/aop"
)

var errEmptyName = errors.New("empty name")

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// ── UserService ──────────────────────────────────────────────────────────────

type UserService interface {
	FindUser(name string) (string, error)
}

type userService struct{ rec *recorder }

func (s *userService) FindUser(name string) (string, error) {
	s.rec.add("findUser")
	if name == "" {
		return "", errEmptyName
	}
	return "User: " + name, nil
}

type userServiceStub struct{ d aop.Dispatcher }

func (s *userServiceStub) FindUser(name string) (string, error) {
	out := s.d.Invoke("FindUser", name)
	return aop.Result[string](out, 0), aop.Result[error](out, 1)
}

// ── Greeter ──────────────────────────────────────────────────────────────────

type Hello interface {
	SayHello(name string) string
}

type Greeter interface {
	Hello
	SayGoodbye(name string) string
}

type greeter struct{ rec *recorder }

func (g *greeter) SayHello(name string) string {
	g.rec.add("sayHello")
	return "hello " + name
}

func (g *greeter) SayGoodbye(name string) string {
	g.rec.add("sayGoodbye")
	return "goodbye " + name
}

func (g *greeter) Reset() { g.rec.add("reset") }

type greeterStub struct{ d aop.Dispatcher }

func (s *greeterStub) SayHello(name string) string {
	return aop.Result[string](s.d.Invoke("SayHello", name), 0)
}

func (s *greeterStub) SayGoodbye(name string) string {
	return aop.Result[string](s.d.Invoke("SayGoodbye", name), 0)
}

type helloStub struct{ d aop.Dispatcher }

func (s *helloStub) SayHello(name string) string {
	return aop.Result[string](s.d.Invoke("SayHello", name), 0)
}

// greeterSubclass overrides SayHello only; SayGoodbye and Reset are promoted.
type greeterSubclass struct {
	*greeter
	d aop.Dispatcher
}

func (s *greeterSubclass) SayHello(name string) string {
	return aop.Result[string](s.d.Invoke("SayHello", name), 0)
}

// ── Formatter (variadic) ─────────────────────────────────────────────────────

type Formatter interface {
	Join(sep string, parts ...string) string
}

type formatter struct{}

func (formatter) Join(sep string, parts ...string) string { return strings.Join(parts, sep) }

type formatterStub struct{ d aop.Dispatcher }

func (s *formatterStub) Join(sep string, parts ...string) string {
	return aop.Result[string](s.d.Invoke("Join", sep, parts), 0)
}

// ── Store (context aware) ────────────────────────────────────────────────────

type Store interface {
	Lookup(ctx context.Context, key string) (string, error)
}

type store struct {
	sawSpan bool
}

func (s *store) Lookup(ctx context.Context, key string) (string, error) {
	s.sawSpan = trace.SpanFromContext(ctx).SpanContext().IsValid()
	if key == "" {
		return "", errEmptyName
	}
	return "value:" + key, nil
}

type storeStub struct{ d aop.Dispatcher }

func (s *storeStub) Lookup(ctx context.Context, key string) (string, error) {
	out := s.d.Invoke("Lookup", ctx, key)
	return aop.Result[string](out, 0), aop.Result[error](out, 1)
}

// stubs returns a registry with every fixture stub registered.
func stubs() *aop.StubRegistry {
	reg := aop.NewStubRegistry()
	aop.RegisterInterface(reg, func(d aop.Dispatcher) UserService { return &userServiceStub{d} })
	aop.RegisterInterface(reg, func(d aop.Dispatcher) Hello { return &helloStub{d} })
	aop.RegisterInterface(reg, func(d aop.Dispatcher) Greeter { return &greeterStub{d} })
	aop.RegisterInterface(reg, func(d aop.Dispatcher) Formatter { return &formatterStub{d} })
	aop.RegisterInterface(reg, func(d aop.Dispatcher) Store { return &storeStub{d} })
	aop.RegisterSubclass(reg, func(g *greeter, d aop.Dispatcher) any { return &greeterSubclass{greeter: g, d: d} })
	return reg
}
