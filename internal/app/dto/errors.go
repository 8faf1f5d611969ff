package dto

import "errors"

var (
	ErrMissingComponents = errors.New("components are required")
	ErrInvalidComponents = errors.New("components are invalid")
	ErrInvalidCompiled   = errors.New("compiled snippets are invalid")
)
