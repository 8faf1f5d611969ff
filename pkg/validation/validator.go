// Package validation checks configuration and request structs with
// go-playground/validator tags and reports failures as ValidationErrors.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator is implemented by types with rules that tags cannot express.
// Validate runs it after the tag rules pass.
type Validator interface {
	Validate() error
}

// ValidationError is one failed rule.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every failed rule of one struct.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Fields lists the failed field paths in order.
func (e ValidationErrors) Fields() []string {
	out := make([]string, 0, len(e))
	for _, err := range e {
		out = append(out, err.Field)
	}
	return out
}

// Struct validates v by its tags, then by its Validator implementation.
func Struct(v any) error {
	if err := Tags(v); err != nil {
		return err
	}
	if custom, ok := v.(Validator); ok {
		return custom.Validate()
	}
	return nil
}

// Tags validates v by its tags only. Validate methods call it.
func Tags(v any) error {
	if err := engine.Struct(v); err != nil {
		var fields validator.ValidationErrors
		if !errors.As(err, &fields) {
			return err
		}
		return convert(fields)
	}
	return nil
}

// Var validates a single value against tag.
func Var(field string, value any, tag string) error {
	if err := engine.Var(value, tag); err != nil {
		var fields validator.ValidationErrors
		if !errors.As(err, &fields) {
			return err
		}
		out := convert(fields)
		for i := range out {
			out[i].Field = field
		}
		return out
	}
	return nil
}

func convert(fields validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, 0, len(fields))
	for _, fe := range fields {
		out = append(out, ValidationError{
			Field:   trimRoot(fe.Namespace()),
			Value:   fe.Value(),
			Message: message(fe),
		})
	}
	return out
}

// trimRoot drops the struct name the validator puts in front of every path.
func trimRoot(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
