package aop

import "errors"

var (
	// ErrUnsupportedAdvice is returned when no adapter understands an advice.
	ErrUnsupportedAdvice = errors.New("unsupported advice type")

	// ErrMissingTarget is returned by GetProxy when no target is configured.
	ErrMissingTarget = errors.New("no proxy target configured")

	// ErrUnproxyableTarget is returned when no registered stub can proxy the
	// target with the requested strategy.
	ErrUnproxyableTarget = errors.New("target cannot be proxied")

	// ErrPointcutExpression is returned for malformed pointcut expressions.
	ErrPointcutExpression = errors.New("invalid pointcut expression")
)
