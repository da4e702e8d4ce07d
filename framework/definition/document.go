package definition

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-beans/framework/validation"
)

var (
	// ErrInvalidDocument is returned for documents that fail to parse or
	// validate.
	ErrInvalidDocument = errors.New("invalid definition document")
	// ErrUnknownClass is returned when a bean names an unregistered class.
	ErrUnknownClass = errors.New("unknown class")
)

// Document is one YAML definition document:
//
//	beans:
//	  - name: userRepository
//	    class: memoryUserRepository
//	    args:
//	      - {name: prefix, value: user}
//	  - name: userService
//	    class: userService
//	    scope: singleton
//	    init: Start
//	    aliases: [users]
//	    properties:
//	      - {name: repo, ref: userRepository}
//	      - {name: timeout, value: 5s}
//	aliases:
//	  - {name: userService, alias: accounts}
type Document struct {
	Beans   []Bean  `yaml:"beans" json:"beans"`
	Aliases []Alias `yaml:"aliases" json:"aliases,omitempty"`
}

type Bean struct {
	Name        string   `yaml:"name" json:"name"`
	Class       string   `yaml:"class" json:"class"`
	Scope       string   `yaml:"scope" json:"scope,omitempty"`
	Lazy        bool     `yaml:"lazy" json:"lazy,omitempty"`
	Init        string   `yaml:"init" json:"init,omitempty"`
	Destroy     string   `yaml:"destroy" json:"destroy,omitempty"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Aliases     []string `yaml:"aliases" json:"aliases,omitempty"`
	Args        []Value  `yaml:"args" json:"args,omitempty"`
	Properties  []Value  `yaml:"properties" json:"properties,omitempty"`
}

// Value is a constructor argument or property: either a literal or a
// reference to another bean. Type optionally names the literal's Go type
// for constructor arguments.
type Value struct {
	Name  string `yaml:"name" json:"name"`
	Type  string `yaml:"type" json:"type,omitempty"`
	Value any    `yaml:"value" json:"value,omitempty"`
	Ref   string `yaml:"ref" json:"ref,omitempty"`
}

type Alias struct {
	Name  string `yaml:"name" json:"name"`
	Alias string `yaml:"alias" json:"alias"`
}

// Parse decodes a document. Unknown keys are rejected. An empty input is an
// empty document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return &doc, nil
}

var (
	beanRules = validation.Rules{
		"name":    "required|alpha_dash",
		"class":   "required",
		"scope":   "nullable|in:singleton,prototype",
		"init":    "nullable|identifier",
		"destroy": "nullable|identifier",
	}
	valueRules = validation.Rules{
		"name": "required",
		"type": "nullable|in:" + typeNameList,
	}
	aliasRules = validation.Rules{
		"name":  "required|alpha_dash",
		"alias": "required|alpha_dash|different:name",
	}
)

// Validate checks every bean, value and alias entry and reports all
// problems at once.
func (d *Document) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(d.Beans))
	for i, b := range d.Beans {
		v := validation.Make(map[string]string{
			"name":    b.Name,
			"class":   b.Class,
			"scope":   b.Scope,
			"init":    b.Init,
			"destroy": b.Destroy,
		}, beanRules)
		if err := v.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("beans[%d] %q: %w", i, b.Name, err))
		}
		if b.Name != "" && seen[b.Name] {
			errs = append(errs, fmt.Errorf("beans[%d] %q: defined twice", i, b.Name))
		}
		seen[b.Name] = true

		for j, val := range b.Args {
			if err := val.validate(); err != nil {
				errs = append(errs, fmt.Errorf("beans[%d] %q args[%d]: %w", i, b.Name, j, err))
			}
		}
		for j, val := range b.Properties {
			if err := val.validate(); err != nil {
				errs = append(errs, fmt.Errorf("beans[%d] %q properties[%d]: %w", i, b.Name, j, err))
			}
		}
	}
	for i, a := range d.Aliases {
		v := validation.Make(map[string]string{"name": a.Name, "alias": a.Alias}, aliasRules)
		if err := v.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("aliases[%d]: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, errors.Join(errs...))
	}
	return nil
}

func (v Value) validate() error {
	if err := validation.Make(map[string]string{"name": v.Name, "type": v.Type}, valueRules).Validate(); err != nil {
		return err
	}
	switch {
	case v.Ref != "" && v.Value != nil:
		return fmt.Errorf("%q sets both value and ref", v.Name)
	case v.Ref == "" && v.Value == nil:
		return fmt.Errorf("%q needs a value or a ref", v.Name)
	}
	return nil
}

// ── Literal types ────────────────────────────────────────────────────────────

const typeNameList = "string,int,int64,uint,float64,bool,duration"

var typeNames = map[string]reflect.Type{
	"string":   reflect.TypeFor[string](),
	"int":      reflect.TypeFor[int](),
	"int64":    reflect.TypeFor[int64](),
	"uint":     reflect.TypeFor[uint](),
	"float64":  reflect.TypeFor[float64](),
	"bool":     reflect.TypeFor[bool](),
	"duration": reflect.TypeFor[time.Duration](),
}
