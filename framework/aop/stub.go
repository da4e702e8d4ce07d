package aop

import (
	"fmt"
	"reflect"
	"sync"
)

// Dispatcher is what a stub calls for every advised method. Invoke passes
// the arguments as declared (a variadic tail as one slice) and returns every
// result, a trailing error included. Results are never missing: values an
// interceptor leaves out come back as zero values, so stubs can use Result.
//
// A stub method for FindUser(string) (string, error) reads:
//
//	func (s userServiceStub) FindUser(name string) (string, error) {
//		out := s.d.Invoke("FindUser", name)
//		return aop.Result[string](out, 0), aop.Result[error](out, 1)
//	}
type Dispatcher interface {
	Invoke(method string, args ...any) []any
}

// Result returns out[i] as T, or the zero T when it is nil.
func Result[T any](out []any, i int) T {
	v, _ := out[i].(T)
	return v
}

// StubRegistry holds the hand-written proxy types used in place of run time
// type generation.
type StubRegistry struct {
	mu         sync.RWMutex
	interfaces []interfaceStub
	subclasses map[reflect.Type]func(target any, d Dispatcher) any
}

type interfaceStub struct {
	iface reflect.Type
	build func(d Dispatcher) any
}

// NewStubRegistry returns an empty registry.
func NewStubRegistry() *StubRegistry {
	return &StubRegistry{subclasses: make(map[reflect.Type]func(any, Dispatcher) any)}
}

// DefaultStubs is used by proxy factories that are not given a registry.
var DefaultStubs = NewStubRegistry()

// RegisterInterface registers a capability-preserving stub for interface I.
// Registering I again replaces the previous stub.
func RegisterInterface[I any](reg *StubRegistry, build func(d Dispatcher) I) {
	t := reflect.TypeFor[I]()
	if t.Kind() != reflect.Interface {
		panic(fmt.Sprintf("aop: RegisterInterface: %s is not an interface", t))
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	stub := interfaceStub{iface: t, build: func(d Dispatcher) any { return build(d) }}
	for i, s := range reg.interfaces {
		if s.iface == t {
			reg.interfaces[i] = stub
			return
		}
	}
	reg.interfaces = append(reg.interfaces, stub)
}

// RegisterSubclass registers a subclass stub for the concrete type T. The
// stub is normally a struct embedding the target, so methods it does not
// override are promoted and bypass the chain.
func RegisterSubclass[T any](reg *StubRegistry, build func(target T, d Dispatcher) any) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Interface {
		panic(fmt.Sprintf("aop: RegisterSubclass: %s is an interface", t))
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.subclasses[t] = func(target any, d Dispatcher) any { return build(target.(T), d) }
}

// implemented returns the registered interfaces t satisfies, in registration
// order.
func (reg *StubRegistry) implemented(t reflect.Type) []interfaceStub {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	var out []interfaceStub
	for _, s := range reg.interfaces {
		if t.Implements(s.iface) {
			out = append(out, s)
		}
	}
	return out
}

func (reg *StubRegistry) subclass(t reflect.Type) (func(any, Dispatcher) any, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	b, ok := reg.subclasses[t]
	return b, ok
}

// proxyable reports whether a proxy could be built for t with the given
// strategy flag.
func (reg *StubRegistry) proxyable(t reflect.Type, subclass bool) bool {
	_, _, err := reg.choose(t, subclass)
	return err == nil
}

// choose picks the stub for target type t. The interface strategy needs one
// registered interface that extends every other registered interface t
// satisfies; otherwise, or when subclass is forced, the subclass stub for t
// is used.
func (reg *StubRegistry) choose(t reflect.Type, subclass bool) (func(target any, d Dispatcher) any, string, error) {
	caps := reg.implemented(t)
	if !subclass {
		for _, c := range caps {
			if coversAll(c.iface, caps) {
				build := c.build
				return func(_ any, d Dispatcher) any { return build(d) }, "interface " + c.iface.String(), nil
			}
		}
	}
	if build, ok := reg.subclass(t); ok {
		return build, "subclass", nil
	}
	switch {
	case subclass:
		return nil, "", fmt.Errorf("%w: no subclass stub registered for %s", ErrUnproxyableTarget, t)
	case len(caps) == 0:
		return nil, "", fmt.Errorf("%w: %s implements no registered interface and has no subclass stub", ErrUnproxyableTarget, t)
	default:
		return nil, "", fmt.Errorf("%w: no registered interface of %s covers %s and no subclass stub is registered",
			ErrUnproxyableTarget, t, ifaceNames(caps))
	}
}

func coversAll(iface reflect.Type, caps []interfaceStub) bool {
	for _, o := range caps {
		if !iface.Implements(o.iface) {
			return false
		}
	}
	return true
}

func ifaceNames(caps []interfaceStub) []string {
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = c.iface.String()
	}
	return out
}

// ── Dispatch ─────────────────────────────────────────────────────────────────

type dispatcher struct {
	target  any
	value   reflect.Value
	chain   []MethodInterceptor
	matcher MethodMatcher
	methods sync.Map // name -> *boundMethod
}

type boundMethod struct {
	fn      reflect.Value
	method  Method
	errLast bool
	advised bool
}

var errorType = reflect.TypeFor[error]()

func newDispatcher(s snapshot) *dispatcher {
	return &dispatcher{
		target:  s.target,
		value:   reflect.ValueOf(s.target),
		chain:   s.interceptors,
		matcher: s.matcher,
	}
}

func (d *dispatcher) Invoke(name string, args ...any) []any {
	bm := d.lookup(name)
	if !bm.advised {
		return bm.call(args)
	}
	inv := newInvocation(d.target, bm.method, args, d.chain, func(a []any) ([]any, error) {
		return bm.split(bm.call(a))
	})
	out, err := inv.Proceed()
	return bm.join(out, err)
}

func (d *dispatcher) lookup(name string) *boundMethod {
	if bm, ok := d.methods.Load(name); ok {
		return bm.(*boundMethod)
	}
	fn := d.value.MethodByName(name)
	if !fn.IsValid() {
		panic(fmt.Sprintf("aop: %T has no method %s", d.target, name))
	}
	ft := fn.Type()
	bm := &boundMethod{
		fn:      fn,
		method:  Method{Name: name, Func: ft, Owner: d.value.Type()},
		errLast: ft.NumOut() > 0 && ft.Out(ft.NumOut()-1) == errorType,
	}
	bm.advised = len(d.chain) > 0 && (d.matcher == nil || d.matcher.Matches(bm.method))
	actual, _ := d.methods.LoadOrStore(name, bm)
	return actual.(*boundMethod)
}

func (bm *boundMethod) call(args []any) []any {
	ft := bm.fn.Type()
	if len(args) != ft.NumIn() {
		panic(fmt.Sprintf("aop: %s called with %d arguments, want %d", bm.method, len(args), ft.NumIn()))
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		pt := ft.In(i)
		if a == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		v := reflect.ValueOf(a)
		if !v.Type().AssignableTo(pt) {
			if !v.Type().ConvertibleTo(pt) {
				panic(fmt.Sprintf("aop: %s argument %d: %s is not assignable to %s", bm.method, i, v.Type(), pt))
			}
			v = v.Convert(pt)
		}
		in[i] = v
	}
	var res []reflect.Value
	if ft.IsVariadic() {
		res = bm.fn.CallSlice(in)
	} else {
		res = bm.fn.Call(in)
	}
	out := make([]any, len(res))
	for i, r := range res {
		out[i] = r.Interface()
	}
	return out
}

func (bm *boundMethod) split(out []any) ([]any, error) {
	if !bm.errLast {
		return out, nil
	}
	last := len(out) - 1
	err, _ := out[last].(error)
	return out[:last], err
}

// join turns an interceptor's (results, error) back into the method's full
// result list. A method without an error result cannot report err, so it is
// re-panicked.
func (bm *boundMethod) join(out []any, err error) []any {
	ft := bm.fn.Type()
	n := ft.NumOut()
	values := n
	if bm.errLast {
		values--
	} else if err != nil {
		panic(err)
	}
	full := make([]any, n)
	for i := 0; i < values; i++ {
		if i < len(out) && out[i] != nil {
			full[i] = out[i]
		} else {
			full[i] = reflect.Zero(ft.Out(i)).Interface()
		}
	}
	if bm.errLast && err != nil {
		full[n-1] = err
	}
	return full
}
