package container

import (
	"errors"
	"fmt"
)

var (
	// ErrBeanNotFound is returned when no definition or singleton exists for a
	// name or type.
	ErrBeanNotFound = errors.New("bean not found")

	// ErrAmbiguousBean is returned by type lookups that match more than one bean.
	ErrAmbiguousBean = errors.New("more than one bean matches")

	// ErrDuplicateBean is returned when a name is registered twice and
	// overriding is disabled, or when a singleton already exists.
	ErrDuplicateBean = errors.New("duplicate bean")

	// ErrInvalidDefinition is returned for structurally broken definitions:
	// empty names, missing classes, repeated property names.
	ErrInvalidDefinition = errors.New("invalid bean definition")

	// ErrUnsupportedScope is returned for scopes other than singleton and
	// prototype.
	ErrUnsupportedScope = errors.New("unsupported scope")

	// ErrCircularDependency is returned for cycles that cannot be broken by an
	// early reference. The message includes the full chain.
	ErrCircularDependency = errors.New("circular dependency detected")

	// ErrTypeMismatch is returned when a bean or value is not assignable to
	// the requested type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrPropertyInjection is returned when a property has no setter or its
	// value cannot be converted or applied.
	ErrPropertyInjection = errors.New("property injection failed")

	// ErrInitialization is returned when an awareness callback, post
	// processor or init hook fails.
	ErrInitialization = errors.New("initialization failed")

	// ErrBeanCreation is returned when instantiating a bean fails.
	ErrBeanCreation = errors.New("bean creation failed")

	// ErrDestruction is returned by DestroySingletons for beans whose destroy
	// callbacks failed.
	ErrDestruction = errors.New("destruction failed")

	// ErrCircularAlias is returned when an alias would resolve back to itself.
	ErrCircularAlias = errors.New("circular alias")

	// ErrAliasConflict is returned when an alias is already taken.
	ErrAliasConflict = errors.New("alias conflict")
)

// BeanError attaches the bean name and lifecycle phase to a failure. It
// matches both its Kind sentinel and the wrapped cause with errors.Is.
type BeanError struct {
	Bean string
	Op   string
	Kind error
	Err  error

	// counted is set once the failure has been recorded in Metrics, so
	// beans that fail because of it are not counted again.
	counted bool
}

func (e *BeanError) Error() string {
	return fmt.Sprintf("%v: bean %q (%s): %v", e.Kind, e.Bean, e.Op, e.Err)
}

func (e *BeanError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func newBeanError(bean, op string, kind, err error) *BeanError {
	return &BeanError{Bean: bean, Op: op, Kind: kind, Err: err}
}

// rootBeanError returns the innermost BeanError in err's chain, the one
// describing the bean that actually failed.
func rootBeanError(err error) *BeanError {
	var be *BeanError
	if !errors.As(err, &be) {
		return nil
	}
	for {
		var inner *BeanError
		if !errors.As(be.Err, &inner) {
			return be
		}
		be = inner
	}
}
