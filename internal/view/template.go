package view

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Directive keys recognised in a field spec. They only act as directives
// when their value is a string; an object value is a nested field spec.
const (
	DirectiveFrom   = "from"
	DirectiveFormat = "format"
	DirectiveView   = "view"
)

// Kind is the rendering mode of a field spec, decided once at parse time.
type Kind int

const (
	// KindLeaf is a spec that is not an object (e.g. true); the value is copied.
	KindLeaf Kind = iota
	// KindCopy is an empty spec {}; the same-named value is copied.
	KindCopy
	// KindRename copies the value found at From.
	KindRename
	// KindTransform passes the value through the Format helper.
	KindTransform
	// KindCompose renders record values with the View template file. Other
	// values go through Format when it is set.
	KindCompose
	// KindNested renders record values with the inline Fields template.
	KindNested
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindCopy:
		return "copy"
	case KindRename:
		return "rename"
	case KindTransform:
		return "transform"
	case KindCompose:
		return "compose"
	case KindNested:
		return "nested"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FieldSpec describes how one output field is produced.
type FieldSpec struct {
	Kind   Kind
	From   string
	Format string
	View   string
	Fields *Template
}

// Source returns the dotted path the field extracts from.
func (s *FieldSpec) Source(name string) string {
	if s.From != "" {
		return s.From
	}
	return name
}

// deferred reports whether rendering the field may block: helpers and
// recursive renders run concurrently, plain copies are resolved inline.
func (s *FieldSpec) deferred(value any) bool {
	switch s.Kind {
	case KindTransform:
		return true
	case KindCompose:
		return isRecord(value) || s.Format != ""
	case KindNested:
		return isRecord(value)
	default:
		return false
	}
}

// Field is a named field spec.
type Field struct {
	Name string
	Spec *FieldSpec
}

// Template is a parsed view template. It is immutable once parsed and safe
// for concurrent use.
type Template struct {
	fields []Field
}

// Fields returns the template fields in document order.
func (t *Template) Fields() []Field {
	fields := make([]Field, len(t.fields))
	copy(fields, t.fields)
	return fields
}

// Field returns the spec of the named field.
func (t *Template) Field(name string) (*FieldSpec, bool) {
	for _, f := range t.fields {
		if f.Name == name {
			return f.Spec, true
		}
	}
	return nil, false
}

// Len returns the number of fields.
func (t *Template) Len() int {
	return len(t.fields)
}

func (t *Template) add(name string, spec *FieldSpec, index map[string]int) {
	// duplicate keys keep their first position and last value
	if i, ok := index[name]; ok {
		t.fields[i].Spec = spec
		return
	}
	index[name] = len(t.fields)
	t.fields = append(t.fields, Field{Name: name, Spec: spec})
}

// Parse parses a template document.
func Parse(data []byte) (*Template, error) {
	if !gjson.ValidBytes(data) {
		return nil, syntaxError(data)
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, ErrNotObject
	}

	return parseTemplate(root, "")
}

// MustParse is like Parse but panics on error.
func MustParse(data string) *Template {
	tmpl, err := Parse([]byte(data))
	if err != nil {
		panic(err)
	}
	return tmpl
}

func parseTemplate(obj gjson.Result, prefix string) (*Template, error) {
	tmpl := &Template{}
	index := make(map[string]int)

	var err error
	obj.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		spec, specErr := parseFieldSpec(value, joinPath(prefix, name))
		if specErr != nil {
			err = specErr
			return false
		}
		tmpl.add(name, spec, index)
		return true
	})
	if err != nil {
		return nil, err
	}

	return tmpl, nil
}

func parseFieldSpec(value gjson.Result, path string) (*FieldSpec, error) {
	if !value.IsObject() {
		return &FieldSpec{Kind: KindLeaf}, nil
	}

	spec := &FieldSpec{}
	nested := &Template{}
	index := make(map[string]int)

	var err error
	value.ForEach(func(key, child gjson.Result) bool {
		name := key.String()

		if isDirective(name) && !child.IsObject() {
			if child.Type == gjson.Null {
				return true
			}
			if child.Type != gjson.String {
				err = fmt.Errorf("field %s: %w: %q", path, ErrInvalidDirective, name)
				return false
			}
			switch name {
			case DirectiveFrom:
				spec.From = child.Str
			case DirectiveFormat:
				spec.Format = child.Str
			case DirectiveView:
				spec.View = child.Str
			}
			return true
		}

		childSpec, childErr := parseFieldSpec(child, joinPath(path, name))
		if childErr != nil {
			err = childErr
			return false
		}
		nested.add(name, childSpec, index)
		return true
	})
	if err != nil {
		return nil, err
	}

	directive := spec.Format != "" || spec.View != ""
	switch {
	case directive && nested.Len() > 0:
		return nil, fmt.Errorf("field %s: %w", path, ErrConflictingDirectives)
	case spec.View != "":
		spec.Kind = KindCompose
	case spec.Format != "":
		spec.Kind = KindTransform
	case nested.Len() > 0:
		spec.Kind = KindNested
		spec.Fields = nested
	case spec.From != "":
		spec.Kind = KindRename
	default:
		spec.Kind = KindCopy
	}

	return spec, nil
}

func isDirective(name string) bool {
	return name == DirectiveFrom || name == DirectiveFormat || name == DirectiveView
}

// syntaxError recovers a positioned error for an invalid document.
func syntaxError(data []byte) error {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return errors.New("invalid JSON document")
}
