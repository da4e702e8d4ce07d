package aop

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// Pointcut selects types and methods. Parsed expressions read like
//
//	execution(string *.FindUser(..))
//	execution((string, error) *service.UserService.Find*(string)) && !within(*Mock*)
//
// Types are matched against reflect.Type.String(); "*" is a glob, "?" matches
// one character and brackets are literal. In argument lists ".." matches any
// number of arguments. The return pattern is "void" for methods without
// results and "(a, b)" for several.
type Pointcut interface {
	ClassFilter
	MethodMatcher
	fmt.Stringer
}

// ParsePointcut parses an expression of execution(...) and within(...)
// designators joined by &&, || and !, with parentheses for grouping.
func ParsePointcut(expr string) (Pointcut, error) {
	p := &pointcutParser{src: expr}
	pc, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return pc, nil
}

// MustParsePointcut is like ParsePointcut but panics on error.
func MustParsePointcut(expr string) Pointcut {
	pc, err := ParsePointcut(expr)
	if err != nil {
		panic(err)
	}
	return pc
}

type pointcutParser struct {
	src string
	pos int
}

func (p *pointcutParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %q at offset %d: %s", ErrPointcutExpression, p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *pointcutParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *pointcutParser) consume(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *pointcutParser) parseOr() (Pointcut, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.consume("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orPointcut{left, right}
	}
	return left, nil
}

func (p *pointcutParser) parseAnd() (Pointcut, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.consume("&&") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andPointcut{left, right}
	}
	return left, nil
}

func (p *pointcutParser) parseUnary() (Pointcut, error) {
	if p.consume("!") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notPointcut{inner}, nil
	}
	if p.consume("(") {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.consume(")") {
			return nil, p.errorf("missing )")
		}
		return inner, nil
	}
	return p.parseDesignator()
}

func (p *pointcutParser) parseDesignator() (Pointcut, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && unicode.IsLetter(rune(p.src[p.pos])) {
		p.pos++
	}
	kind := p.src[start:p.pos]
	if kind == "" {
		if p.pos >= len(p.src) {
			return nil, p.errorf("unexpected end of expression")
		}
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	if !p.consume("(") {
		return nil, p.errorf("expected ( after %s", kind)
	}
	body, err := p.balanced()
	if err != nil {
		return nil, err
	}
	switch kind {
	case "execution":
		return p.parseExecution(body)
	case "within":
		pattern := strings.TrimSpace(body)
		if pattern == "" || !validGlob(pattern) {
			return nil, p.errorf("bad type pattern %q", pattern)
		}
		return withinPointcut{pattern: pattern}, nil
	default:
		return nil, p.errorf("unsupported designator %q", kind)
	}
}

// balanced returns the text up to the ")" closing an already consumed "(".
func (p *pointcutParser) balanced() (string, error) {
	start, depth := p.pos, 1
	for ; p.pos < len(p.src); p.pos++ {
		switch p.src[p.pos] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				body := p.src[start:p.pos]
				p.pos++
				return body, nil
			}
		}
	}
	return "", p.errorf("unbalanced parentheses")
}

// parseExecution splits "<ret> <type>.<method>(<args>)".
func (p *pointcutParser) parseExecution(body string) (Pointcut, error) {
	body = strings.TrimSpace(body)
	if !strings.HasSuffix(body, ")") {
		return nil, p.errorf("execution %q has no argument list", body)
	}
	open := matchingOpen(body)
	if open < 0 {
		return nil, p.errorf("execution %q has unbalanced argument list", body)
	}
	args := strings.TrimSpace(body[open+1 : len(body)-1])
	head := strings.TrimSpace(body[:open])

	sp := strings.LastIndexFunc(head, unicode.IsSpace)
	if sp < 0 {
		return nil, p.errorf("execution %q needs a return pattern", body)
	}
	ret := strings.TrimSpace(head[:sp])
	decl := head[sp+1:]

	ep := executionPointcut{ret: ret, typ: "*", method: decl}
	if dot := strings.LastIndex(decl, "."); dot >= 0 {
		ep.typ, ep.method = decl[:dot], decl[dot+1:]
	}
	if args != "" {
		for _, a := range strings.Split(args, ",") {
			ep.args = append(ep.args, strings.TrimSpace(a))
		}
	}

	for _, pat := range append([]string{ep.ret, ep.typ, ep.method}, ep.args...) {
		if pat == "" || !validGlob(pat) {
			return nil, p.errorf("bad pattern %q in %q", pat, body)
		}
	}
	return ep, nil
}

func matchingOpen(s string) int {
	depth := 0
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// ── Expression nodes ─────────────────────────────────────────────────────────

type executionPointcut struct {
	ret, typ, method string
	args             []string
}

func (e executionPointcut) MatchesType(t reflect.Type) bool { return glob(e.typ, t.String()) }

func (e executionPointcut) Matches(m Method) bool {
	if m.Owner != nil && !glob(e.typ, m.Owner.String()) {
		return false
	}
	if !glob(e.method, m.Name) {
		return false
	}
	if e.ret != "*" && !glob(e.ret, m.results()) {
		return false
	}
	var params []string
	if m.Func != nil {
		params = m.params()
	}
	return matchArgs(e.args, params)
}

func (e executionPointcut) String() string {
	return fmt.Sprintf("execution(%s %s.%s(%s))", e.ret, e.typ, e.method, strings.Join(e.args, ", "))
}

func matchArgs(patterns, params []string) bool {
	if len(patterns) == 0 {
		return len(params) == 0
	}
	if patterns[0] == ".." {
		for i := 0; i <= len(params); i++ {
			if matchArgs(patterns[1:], params[i:]) {
				return true
			}
		}
		return false
	}
	return len(params) > 0 && glob(patterns[0], params[0]) && matchArgs(patterns[1:], params[1:])
}

type withinPointcut struct{ pattern string }

func (w withinPointcut) MatchesType(t reflect.Type) bool { return glob(w.pattern, t.String()) }

func (w withinPointcut) Matches(m Method) bool {
	return m.Owner == nil || glob(w.pattern, m.Owner.String())
}

func (w withinPointcut) String() string { return "within(" + w.pattern + ")" }

type andPointcut struct{ l, r Pointcut }

func (a andPointcut) MatchesType(t reflect.Type) bool { return a.l.MatchesType(t) && a.r.MatchesType(t) }
func (a andPointcut) Matches(m Method) bool           { return a.l.Matches(m) && a.r.Matches(m) }
func (a andPointcut) String() string                  { return "(" + a.l.String() + " && " + a.r.String() + ")" }

type orPointcut struct{ l, r Pointcut }

func (o orPointcut) MatchesType(t reflect.Type) bool { return o.l.MatchesType(t) || o.r.MatchesType(t) }
func (o orPointcut) Matches(m Method) bool           { return o.l.Matches(m) || o.r.Matches(m) }
func (o orPointcut) String() string                  { return "(" + o.l.String() + " || " + o.r.String() + ")" }

// notPointcut negates method matching only. Its class filter accepts every
// type: a type can have methods outside the negated set.
type notPointcut struct{ inner Pointcut }

func (n notPointcut) MatchesType(reflect.Type) bool { return true }
func (n notPointcut) Matches(m Method) bool         { return !n.inner.Matches(m) }
func (n notPointcut) String() string                { return "!" + n.inner.String() }
