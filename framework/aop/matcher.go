package aop

import (
	"path"
	"reflect"
	"strings"
)

// MethodMatcher decides whether the interceptor chain applies to a call.
type MethodMatcher interface {
	Matches(m Method) bool
}

// ClassFilter decides whether objects of a type are advised at all.
type ClassFilter interface {
	MatchesType(t reflect.Type) bool
}

// MatcherFunc adapts a function to MethodMatcher.
type MatcherFunc func(m Method) bool

func (f MatcherFunc) Matches(m Method) bool { return f(m) }

// MethodNames matches methods whose name matches one of the glob patterns.
func MethodNames(patterns ...string) MethodMatcher {
	return MatcherFunc(func(m Method) bool {
		for _, p := range patterns {
			if glob(p, m.Name) {
				return true
			}
		}
		return false
	})
}

// glob matches s against a path.Match pattern in which brackets are literal,
// so type strings such as "[]string" and "map[string]int" can be written as-is.
func glob(pattern, s string) bool {
	ok, err := path.Match(escapeBrackets(pattern), s)
	return err == nil && ok
}

func validGlob(pattern string) bool {
	_, err := path.Match(escapeBrackets(pattern), "")
	return err == nil
}

var bracketEscaper = strings.NewReplacer("[", `\[`, "]", `\]`)

func escapeBrackets(p string) string { return bracketEscaper.Replace(p) }
