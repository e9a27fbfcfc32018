package view

import (
	"errors"
	"fmt"
)

var (
	// ErrNotObject is returned when a template document is not a JSON object.
	ErrNotObject = errors.New("template must be a JSON object")

	// ErrInvalidDirective is returned when from, format or view hold a non-string value.
	ErrInvalidDirective = errors.New("directive value must be a string")

	// ErrConflictingDirectives is returned when a field spec combines format or
	// view with inline fields.
	ErrConflictingDirectives = errors.New("format and view cannot be combined with inline fields")
)

// TemplateLoadError reports a template file that could not be read.
type TemplateLoadError struct {
	Path string
	Err  error
}

func (e *TemplateLoadError) Error() string {
	return fmt.Sprintf("failed to load template %s: %v", e.Path, e.Err)
}

func (e *TemplateLoadError) Unwrap() error {
	return e.Err
}

// TemplateParseError reports a template file whose content is not a valid template.
type TemplateParseError struct {
	Path string
	Err  error
}

func (e *TemplateParseError) Error() string {
	return fmt.Sprintf("failed to parse template %s: %v", e.Path, e.Err)
}

func (e *TemplateParseError) Unwrap() error {
	return e.Err
}

// HelperExecutionError reports a format helper that returned an error or panicked.
// Field is the dotted path of the output field being rendered.
type HelperExecutionError struct {
	Helper string
	Field  string
	Err    error
}

func (e *HelperExecutionError) Error() string {
	return fmt.Sprintf("helper %q failed for field %s: %v", e.Helper, e.Field, e.Err)
}

func (e *HelperExecutionError) Unwrap() error {
	return e.Err
}
