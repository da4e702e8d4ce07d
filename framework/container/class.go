package container

import (
	"fmt"
	"reflect"
)

// Factory builds a raw bean from already resolved constructor arguments.
type Factory func(args []any) (any, error)

type setter struct {
	typ reflect.Type
	set func(bean, value any) error
}

// Class describes how to build and wire one concrete type: its factory, the
// named setters definitions may target, and the named methods init and
// destroy hooks may refer to. Everything is captured as closures when the
// class is declared, so the container never looks up fields or methods by
// reflection.
//
//	cls := container.NewClass("userService", func(args []any) (*UserService, error) {
//	    return &UserService{}, nil
//	})
//	container.Property(cls, "repo", func(s *UserService, r UserRepository) { s.Repo = r })
//	container.Method(cls, "Start", (*UserService).Start)
type Class struct {
	name    string
	typ     reflect.Type
	factory Factory
	setters map[string]setter
	methods map[string]func(bean any) error
}

// NewClass declares a class whose beans are built by factory.
func NewClass[T any](name string, factory func(args []any) (T, error)) *Class {
	return &Class{
		name: name,
		typ:  reflect.TypeFor[T](),
		factory: func(args []any) (any, error) {
			return factory(args)
		},
		setters: make(map[string]setter),
		methods: make(map[string]func(any) error),
	}
}

// ClassOf declares a class built by a constructor without arguments.
func ClassOf[T any](name string, ctor func() T) *Class {
	return NewClass(name, func([]any) (T, error) { return ctor(), nil })
}

// Property registers a named setter on c. V is the property's declared type.
func Property[T, V any](c *Class, name string, set func(bean T, value V)) *Class {
	c.setters[name] = setter{
		typ: reflect.TypeFor[V](),
		set: func(bean, value any) error {
			b, ok := bean.(T)
			if !ok {
				return fmt.Errorf("%w: bean is %T, setter expects %s", ErrTypeMismatch, bean, reflect.TypeFor[T]())
			}
			var v V
			if value != nil {
				if v, ok = value.(V); !ok {
					return fmt.Errorf("%w: %T is not assignable to %s", ErrTypeMismatch, value, reflect.TypeFor[V]())
				}
			}
			set(b, v)
			return nil
		},
	}
	return c
}

// Method registers a named hook callable as an init or destroy method.
func Method[T any](c *Class, name string, fn func(bean T) error) *Class {
	c.methods[name] = func(bean any) error {
		b, ok := bean.(T)
		if !ok {
			return fmt.Errorf("%w: bean is %T, method %q expects %s", ErrTypeMismatch, bean, name, reflect.TypeFor[T]())
		}
		return fn(b)
	}
	return c
}

// Arg returns args[i] as T. Factories use it to unpack constructor arguments.
func Arg[T any](args []any, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(args) {
		return zero, fmt.Errorf("constructor argument %d missing (got %d)", i, len(args))
	}
	if args[i] == nil {
		return zero, nil
	}
	v, ok := args[i].(T)
	if !ok {
		return zero, fmt.Errorf("%w: constructor argument %d is %T, want %s", ErrTypeMismatch, i, args[i], reflect.TypeFor[T]())
	}
	return v, nil
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Type returns the type the factory produces.
func (c *Class) Type() reflect.Type { return c.typ }

// PropertyType returns the declared type of a setter.
func (c *Class) PropertyType(name string) (reflect.Type, bool) {
	s, ok := c.setters[name]
	return s.typ, ok
}

// HasMethod reports whether a hook named name is registered.
func (c *Class) HasMethod(name string) bool {
	_, ok := c.methods[name]
	return ok
}

// Invoke calls the hook named method on bean.
func (c *Class) Invoke(bean any, method string) error {
	fn, ok := c.methods[method]
	if !ok {
		return fmt.Errorf("class %q has no method %q", c.name, method)
	}
	return fn(bean)
}

func (c *Class) instantiate(args []any) (any, error) {
	bean, err := c.factory(args)
	if err != nil {
		return nil, err
	}
	if isNil(bean) {
		return nil, fmt.Errorf("factory of class %q returned nil", c.name)
	}
	return bean, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
