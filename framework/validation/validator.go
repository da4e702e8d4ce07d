package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ── Error bag ────────────────────────────────────────────────────────────────

// Errors holds validation messages per field.
// JSON output: {"errors": {"field": ["msg1", "msg2"]}}
type Errors struct {
	Bag map[string][]string `json:"errors"`
}

func (e *Errors) add(field, msg string) {
	if e.Bag == nil {
		e.Bag = make(map[string][]string)
	}
	e.Bag[field] = append(e.Bag[field], msg)
}

// Has returns true if there are any errors.
func (e *Errors) Has() bool { return len(e.Bag) > 0 }

// First returns the first error for a field.
func (e *Errors) First(field string) string {
	if msgs := e.Bag[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Fields returns the failing fields in sorted order.
func (e *Errors) Fields() []string {
	out := make([]string, 0, len(e.Bag))
	for f := range e.Bag {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Error joins every message, fields in sorted order, so a bag can be
// returned as an error.
func (e *Errors) Error() string {
	var msgs []string
	for _, f := range e.Fields() {
		msgs = append(msgs, e.Bag[f]...)
	}
	return strings.Join(msgs, " ")
}

// ── Validator ────────────────────────────────────────────────────────────────

// Rules is a map of field → pipe-separated rule string.
// e.g. Rules{"name": "required|alpha_dash", "scope": "nullable|in:singleton,prototype"}
type Rules map[string]string

// Validator validates a flat map of input values.
type Validator struct {
	data   map[string]string
	rules  Rules
	errors *Errors
	ran    bool
}

// Make creates a new Validator.
func Make(data map[string]string, rules Rules) *Validator {
	return &Validator{data: data, rules: rules, errors: &Errors{}}
}

// Fails runs validation once and reports whether any rule failed.
func (v *Validator) Fails() bool {
	if !v.ran {
		v.validate()
		v.ran = true
	}
	return v.errors.Has()
}

// Passes is the negation of Fails.
func (v *Validator) Passes() bool { return !v.Fails() }

// Errors returns the error bag.
func (v *Validator) Errors() *Errors { return v.errors }

// Validate runs the rules and returns the bag as an error, or nil.
func (v *Validator) Validate() error {
	if v.Fails() {
		return v.errors
	}
	return nil
}

func (v *Validator) validate() {
	fields := make([]string, 0, len(v.rules))
	for f := range v.rules {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	for _, field := range fields {
		value := v.data[field]
		for _, rule := range strings.Split(v.rules[field], "|") {
			rule = strings.TrimSpace(rule)
			if rule == "" {
				continue
			}
			name, param, _ := strings.Cut(rule, ":")

			// nullable ends the field's rules on an empty value.
			if name == "nullable" && strings.TrimSpace(value) == "" {
				break
			}
			check, ok := rules[name]
			if !ok {
				v.errors.add(field, fmt.Sprintf("The %s field has an unknown rule %q.", field, name))
				break
			}
			if msg := check(v, field, value, param); msg != "" {
				v.errors.add(field, msg)
				break // bail on first failure
			}
		}
	}
}

// ── Rules ────────────────────────────────────────────────────────────────────

// rule returns an empty string when value passes, otherwise the message.
type rule func(v *Validator, field, value, param string) string

var (
	alphaDashRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	identRe     = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

var rules = map[string]rule{
	"nullable": pass,
	"required": func(_ *Validator, field, value, _ string) string {
		if strings.TrimSpace(value) == "" {
			return fmt.Sprintf("The %s field is required.", field)
		}
		return ""
	},
	"alpha_dash": matches(alphaDashRe, "The %s may only contain letters, numbers, dashes and underscores."),
	"identifier": matches(identRe, "The %s must be a Go identifier."),
	"in": func(_ *Validator, field, value, param string) string {
		if !inList(param, value) {
			return fmt.Sprintf("The selected %s is invalid.", field)
		}
		return ""
	},
	"different": func(v *Validator, field, value, param string) string {
		if v.data[param] == value {
			return fmt.Sprintf("The %s and %s must be different.", field, param)
		}
		return ""
	},
}

func pass(*Validator, string, string, string) string { return "" }

func matches(re *regexp.Regexp, format string) rule {
	return func(_ *Validator, field, value, _ string) string {
		if !re.MatchString(value) {
			return fmt.Sprintf(format, field)
		}
		return ""
	}
}

func inList(list, value string) bool {
	for _, item := range strings.Split(list, ",") {
		if strings.TrimSpace(item) == value {
			return true
		}
	}
	return false
}
