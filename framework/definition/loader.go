package definition

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/go-beans/framework/container"
	"github.com/km-arc/go-beans/framework/resource"
)

// Classes maps the class names documents use to container classes.
type Classes struct {
	mu      sync.RWMutex
	classes map[string]*container.Class
}

// NewClasses returns a registry holding classes.
func NewClasses(classes ...*container.Class) *Classes {
	r := &Classes{classes: make(map[string]*container.Class, len(classes))}
	for _, cls := range classes {
		r.Add(cls)
	}
	return r
}

// Add registers cls under its own name, replacing any earlier class of the
// same name.
func (r *Classes) Add(cls *container.Class) *Classes {
	r.mu.Lock()
	r.classes[cls.Name()] = cls
	r.mu.Unlock()
	return r
}

// Lookup returns the class registered under name.
func (r *Classes) Lookup(name string) (*container.Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cls, ok := r.classes[name]
	return cls, ok
}

// Names returns the registered class names in sorted order.
func (r *Classes) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.classes))
	for name := range r.classes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Registry is the part of the container a loader writes to.
type Registry interface {
	RegisterBeanDefinition(name string, def *container.Definition) error
	RegisterAlias(name, alias string) error
}

// Loader turns definition documents into container definitions.
type Loader struct {
	classes   *Classes
	resources *resource.Loader
	logger    *zap.Logger
}

// NewLoader returns a loader resolving class names through classes. Nil
// resources or logger fall back to defaults.
func NewLoader(classes *Classes, resources *resource.Loader, logger *zap.Logger) *Loader {
	if resources == nil {
		resources = resource.NewLoader()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{classes: classes, resources: resources, logger: logger}
}

// Definitions validates doc and builds one container definition per bean,
// keyed by bean name. Nothing is registered.
func (l *Loader) Definitions(doc *Document) (map[string]*container.Definition, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	var errs []error
	out := make(map[string]*container.Definition, len(doc.Beans))
	for _, b := range doc.Beans {
		def, err := l.definition(b)
		if err != nil {
			errs = append(errs, fmt.Errorf("bean %q: %w", b.Name, err))
			continue
		}
		out[b.Name] = def
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (l *Loader) definition(b Bean) (*container.Definition, error) {
	cls, ok := l.classes.Lookup(b.Class)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownClass, b.Class)
	}
	for _, m := range []string{b.Init, b.Destroy} {
		if m != "" && !cls.HasMethod(m) {
			return nil, fmt.Errorf("%w: class %q has no method %q", ErrInvalidDocument, b.Class, m)
		}
	}

	def := container.Define(cls)
	if b.Scope != "" {
		def.WithScope(container.Scope(b.Scope))
	}
	if b.Lazy {
		def.AsLazy()
	}
	if b.Init != "" {
		def.WithInit(b.Init)
	}
	if b.Destroy != "" {
		def.WithDestroy(b.Destroy)
	}
	def.WithDescription(b.Description)

	for _, a := range b.Args {
		typ := typeNames[a.Type]
		def.WithArg(a.Name, typ, a.resolve())
	}
	for _, p := range b.Properties {
		if p.Type != "" {
			def.Properties = append(def.Properties, container.PropertyValue{
				Name: p.Name, Type: typeNames[p.Type], Value: p.resolve(),
			})
			continue
		}
		def.WithProperty(p.Name, p.resolve())
	}
	return def, nil
}

func (v Value) resolve() any {
	if v.Ref != "" {
		return container.Ref(v.Ref)
	}
	return v.Value
}

// Apply registers every bean of doc, then its bean and document aliases.
// Validation happens before anything is registered; registration stops at
// the first container error.
func (l *Loader) Apply(r Registry, doc *Document) error {
	defs, err := l.Definitions(doc)
	if err != nil {
		return err
	}
	for _, b := range doc.Beans {
		if err := r.RegisterBeanDefinition(b.Name, defs[b.Name]); err != nil {
			return err
		}
	}
	for _, b := range doc.Beans {
		for _, alias := range b.Aliases {
			if err := r.RegisterAlias(b.Name, alias); err != nil {
				return err
			}
		}
	}
	for _, a := range doc.Aliases {
		if err := r.RegisterAlias(a.Name, a.Alias); err != nil {
			return err
		}
	}
	return nil
}

// Load reads, parses and applies each location in order and returns the
// number of beans registered.
func (l *Loader) Load(ctx context.Context, r Registry, locations ...string) (int, error) {
	total := 0
	for _, loc := range locations {
		data, err := l.resources.ReadAll(ctx, loc)
		if err != nil {
			return total, err
		}
		doc, err := Parse(data)
		if err != nil {
			return total, fmt.Errorf("%s: %w", loc, err)
		}
		if err := l.Apply(r, doc); err != nil {
			return total, fmt.Errorf("%s: %w", loc, err)
		}
		total += len(doc.Beans)
		l.logger.Info("loaded bean definitions",
			zap.String("location", loc),
			zap.Int("beans", len(doc.Beans)),
			zap.Int("aliases", len(doc.Aliases)),
		)
	}
	return total, nil
}
