// Package aop wraps objects in proxies that route method calls through an
// ordered interceptor chain.
//
// # Proxies
//
// Go cannot create types at run time, so each proxyable type has a small
// hand-written stub registered once. An interface stub implements the
// interface by forwarding every method to a Dispatcher:
//
//	type userServiceStub struct{ d aop.Dispatcher }
//
//	func (s userServiceStub) FindUser(name string) (string, error) {
//	    out := s.d.Invoke("FindUser", name)
//	    return aop.Result[string](out, 0), aop.Result[error](out, 1)
//	}
//
//	aop.RegisterInterface(aop.DefaultStubs, func(d aop.Dispatcher) UserService {
//	    return userServiceStub{d}
//	})
//
// A subclass stub embeds the concrete target and overrides the methods that
// should be advised; everything else is promoted from the target. It is used
// when SetProxyTargetClass(true) is set or when no registered interface
// covers every registered interface the target implements. Targets with
// neither kind of stub cannot be proxied.
//
// # Advice
//
//	pf := aop.NewProxyFactory(svc)
//	pf.AddAdvice(aop.BeforeFunc(func(m aop.Method, args []any, target any) error { ... }))
//	pf.AddAdvice(aop.NewLoggingInterceptor(logger))
//	pf.SetMethodMatcher(aop.MethodNames("Find*"))
//	users, err := aop.ProxyAs[UserService](pf)
//
// Advices are normalized by an AdvisorAdapterRegistry. MethodInterceptors are
// used as they are; before, after-returning and throws advices are wrapped.
// The first advice added is the outermost. Calls to methods the matcher
// rejects go straight to the target.
//
// Interceptors see results without the trailing error, which travels as the
// error return instead. An interceptor error on a method that has no error
// result is raised as a panic from the proxy.
//
// # Pointcuts and auto-proxying
//
// ParsePointcut understands execution(...) and within(...) joined by &&, ||
// and !. An AutoProxyCreator added to a container proxies matching beans as
// they are created, including beans handed out early in a circular
// reference.
package aop
