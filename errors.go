package pdffill

import (
	"errors"
	"fmt"
)

var (
	// ErrNoXFA is returned when XFA data is supplied for a template without
	// an XFA form.
	ErrNoXFA = errors.New("template has no XFA form")

	// ErrEncrypted is returned for encrypted templates.
	ErrEncrypted = errors.New("template is encrypted")
)

// UsageError reports invalid command line arguments.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// DecodeError reports a field map that is not a valid JSON object.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid field map: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FieldTypeError reports a field map value that is not a string.
type FieldTypeError struct {
	Field string
	Type  string
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("value of field %q must be a string, got %s", e.Field, e.Type)
}

// TemplateError reports a template that cannot be used: missing, unreadable,
// not a PDF, encrypted or without the requested form.
type TemplateError struct {
	Path string
	Err  error
}

func (e *TemplateError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("template %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("template: %v", e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// WriteError reports a failure to write the output document.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("failed to write output: %v", e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
