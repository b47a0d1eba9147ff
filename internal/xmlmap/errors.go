package xmlmap

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is returned when a required field is absent from the document.
	ErrMissingField = errors.New("missing field")
	// ErrConversion is returned when a field is present but its text does not convert.
	ErrConversion = errors.New("conversion error")
	// ErrInapplicableField is returned when a field is read on a record of the wrong kind.
	ErrInapplicableField = errors.New("inapplicable field")
)

// FieldError carries the field that failed. Kind is one of the sentinels above.
type FieldError struct {
	Kind  error
	Field string
	Raw   string
	Err   error
}

func (e *FieldError) Error() string {
	msg := fmt.Sprintf("%v: %s", e.Kind, e.Field)
	if e.Raw != "" {
		msg += fmt.Sprintf(" (raw %q)", e.Raw)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FieldError) Is(target error) bool {
	return target == e.Kind
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func missing(field string) error {
	return &FieldError{Kind: ErrMissingField, Field: field}
}

func conversion(field, raw string, err error) error {
	return &FieldError{Kind: ErrConversion, Field: field, Raw: raw, Err: err}
}

// Inapplicable reports that field cannot be read on a record of the given kind.
func Inapplicable(field, kind string) error {
	return &FieldError{Kind: ErrInapplicableField, Field: field, Err: fmt.Errorf("not valid for %s", kind)}
}
