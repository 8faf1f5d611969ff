// Package sandbox defines the contract of the embedded script executor that
// runs user snippets, and the JSON envelope used to move values the JSON
// format cannot express (bigints, byte arrays and principals) across it.
package sandbox

import (
	"fmt"

	"github.com/goccy/go-json"
)

// ErrorKind classifies executor failures.
type ErrorKind string

const (
	InvalidArgs   ErrorKind = "InvalidArgs"
	InvalidOutput ErrorKind = "InvalidOutput"
	Undefined     ErrorKind = "Undefined"
	WrongOutput   ErrorKind = "WrongOutput"
	ExecuteError  ErrorKind = "ExecuteError"
)

// ExecuteCodeError is returned by executors.
type ExecuteCodeError struct {
	Kind    ErrorKind
	Message string
}

func (e *ExecuteCodeError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Arg is a named snippet argument. Value holds enveloped JSON; an empty value
// is passed as undefined.
type Arg struct {
	Name  string
	Value string
}

// Executor runs snippets. Both methods return the JSON text of the snippet's
// result.
type Executor interface {
	ExecuteCode(source string, args []Arg) (string, error)
	ExecuteValidateCode(source string, value string) (string, error)
}

// Func adapts a plain function to Executor. It serves both entry points,
// passing the validated value as a single `data` argument.
type Func func(source string, args []Arg) (string, error)

func (f Func) ExecuteCode(source string, args []Arg) (string, error) {
	return f(source, args)
}

func (f Func) ExecuteValidateCode(source string, value string) (string, error) {
	return f(source, []Arg{{Name: "data", Value: value}})
}

// ValidateResult interprets the output of a validation snippet. The snippet
// passes by returning the empty string; any other result is the message.
func ValidateResult(result string) (message string, passed bool) {
	var text string
	if err := json.Unmarshal([]byte(result), &text); err != nil {
		return result, false
	}
	return text, text == ""
}
