package container

import (
	"fmt"
	"reflect"
	"slices"
)

// Scope controls how many instances a definition yields.
type Scope string

const (
	// ScopeSingleton yields one shared instance per canonical name. It is the
	// default when Scope is empty.
	ScopeSingleton Scope = "singleton"

	// ScopePrototype yields a fresh instance on every lookup.
	ScopePrototype Scope = "prototype"
)

// Reference names another bean as a constructor argument or property value.
type Reference struct {
	Name string
}

// Ref returns a reference to the bean called name.
func Ref(name string) Reference { return Reference{Name: name} }

func (r Reference) String() string { return "ref:" + r.Name }

// ConstructorArg is one positional factory argument. Type is optional; when
// set, literals are converted to it and references must be assignable to it.
type ConstructorArg struct {
	Name  string
	Type  reflect.Type
	Value any
}

// PropertyValue assigns Value to the class setter called Name. Type defaults
// to the setter's declared type.
type PropertyValue struct {
	Name  string
	Type  reflect.Type
	Value any
}

// Definition is the declarative metadata for one bean.
type Definition struct {
	Class           *Class
	Scope           Scope
	Lazy            bool
	InitMethod      string
	DestroyMethod   string
	ConstructorArgs []ConstructorArg
	Properties      []PropertyValue
	Description     string
}

// Define starts a singleton definition for class.
func Define(class *Class) *Definition {
	return &Definition{Class: class, Scope: ScopeSingleton}
}

// WithScope sets the scope.
func (d *Definition) WithScope(s Scope) *Definition {
	d.Scope = s
	return d
}

// AsPrototype is shorthand for WithScope(ScopePrototype).
func (d *Definition) AsPrototype() *Definition { return d.WithScope(ScopePrototype) }

// AsLazy excludes a singleton from PreInstantiateSingletons.
func (d *Definition) AsLazy() *Definition {
	d.Lazy = true
	return d
}

// WithArg appends a constructor argument.
func (d *Definition) WithArg(name string, typ reflect.Type, value any) *Definition {
	d.ConstructorArgs = append(d.ConstructorArgs, ConstructorArg{Name: name, Type: typ, Value: value})
	return d
}

// WithProperty appends a property assignment typed by the class setter.
func (d *Definition) WithProperty(name string, value any) *Definition {
	d.Properties = append(d.Properties, PropertyValue{Name: name, Value: value})
	return d
}

// WithInit sets the init hook name.
func (d *Definition) WithInit(method string) *Definition {
	d.InitMethod = method
	return d
}

// WithDescription sets the human readable description shown by Describe.
func (d *Definition) WithDescription(text string) *Definition {
	d.Description = text
	return d
}

// WithDestroy sets the destroy hook name.
func (d *Definition) WithDestroy(method string) *Definition {
	d.DestroyMethod = method
	return d
}

// IsSingleton reports whether the definition is singleton scoped.
func (d *Definition) IsSingleton() bool {
	return d.Scope == ScopeSingleton || d.Scope == ""
}

// IsPrototype reports whether the definition is prototype scoped.
func (d *Definition) IsPrototype() bool { return d.Scope == ScopePrototype }

// Dependencies returns the bean names referenced by arguments and properties.
func (d *Definition) Dependencies() []string {
	var deps []string
	add := func(v any) {
		if ref, ok := v.(Reference); ok && !slices.Contains(deps, ref.Name) {
			deps = append(deps, ref.Name)
		}
	}
	for _, a := range d.ConstructorArgs {
		add(a.Value)
	}
	for _, p := range d.Properties {
		add(p.Value)
	}
	return deps
}

// prepare validates d and returns an immutable copy with defaults filled in
// and property types resolved against the class setters.
func (d *Definition) prepare(name string) (*Definition, error) {
	if d == nil || d.Class == nil {
		return nil, newBeanError(name, "register", ErrInvalidDefinition, fmt.Errorf("definition has no class"))
	}

	out := *d
	switch out.Scope {
	case "":
		out.Scope = ScopeSingleton
	case ScopeSingleton, ScopePrototype:
	default:
		return nil, newBeanError(name, "register", ErrUnsupportedScope, fmt.Errorf("scope %q", out.Scope))
	}

	out.ConstructorArgs = slices.Clone(d.ConstructorArgs)
	out.Properties = make([]PropertyValue, 0, len(d.Properties))

	seen := make(map[string]bool, len(d.Properties))
	for _, pv := range d.Properties {
		if seen[pv.Name] {
			return nil, newBeanError(name, "register", ErrInvalidDefinition, fmt.Errorf("property %q assigned twice", pv.Name))
		}
		seen[pv.Name] = true

		declared, ok := d.Class.PropertyType(pv.Name)
		if !ok {
			return nil, newBeanError(name, "register", ErrPropertyInjection,
				fmt.Errorf("class %q has no setter for property %q", d.Class.Name(), pv.Name))
		}
		if pv.Type == nil {
			pv.Type = declared
		} else if !pv.Type.AssignableTo(declared) {
			return nil, newBeanError(name, "register", ErrPropertyInjection,
				fmt.Errorf("property %q declared as %s but setter takes %s", pv.Name, pv.Type, declared))
		}
		out.Properties = append(out.Properties, pv)
	}
	return &out, nil
}
