package graph

import (
	"github.com/easydapp/jelly-packages/internal/core/link"
)

// Form asks the user for a value of the declared type.
type Form struct {
	Base
	Metadata *FormMetadata `json:"metadata,omitempty"`
	Output   link.Type     `json:"output"`
}

type FormMetadata struct {
	Name     *string          `json:"name,omitempty"`
	Default  *link.Value      `json:"default,omitempty"`
	Suffix   *link.InputValue `json:"suffix,omitempty"`
	Validate *ValidateForm    `json:"validate,omitempty"`
	Style    *string          `json:"style,omitempty"`
}

func (f *Form) Kind() Kind          { return KindForm }
func (f *Form) OutputCount() uint32 { return 1 }

func (f *Form) OutputType(index uint32, from link.ComponentID) (link.Type, error) {
	if err := checkBranch(f, index, from); err != nil {
		return link.Type{}, err
	}
	return f.Output, nil
}

// checkInlets fails when the component declares inlets but none resolved,
// or the other way round.
func checkInlets(b *Base, endpoints *AllEndpoints) error {
	if (len(b.Inlets) > 0) != (endpoints != nil) {
		return &link.Error{Kind: link.KindMismatchedInlets, From: b.ID}
	}
	return nil
}

func (f *Form) Check(ctx *Context, endpoints *AllEndpoints) (Component, error) {
	if err := f.Output.Check(f.ID); err != nil {
		return nil, err
	}
	if err := checkInlets(&f.Base, endpoints); err != nil {
		return nil, err
	}
	if f.Metadata == nil {
		return f, nil
	}
	m := f.Metadata
	if m.Default != nil && !f.Output.IsMatch(*m.Default) {
		output := f.Output
		return nil, &link.Error{Kind: link.KindMismatchedFormDefaultValue, From: f.ID, Output: &output, Value: m.Default}
	}
	if m.Suffix != nil {
		ty, err := endpoints.CheckInputValue(*m.Suffix, f.ID)
		if err != nil {
			return nil, err
		}
		if !ty.IsText() {
			return nil, &link.Error{Kind: link.KindMismatchedFormSuffixValue, From: f.ID, ValueType: &ty}
		}
	}
	if err := checkValidate(ctx, &m.Validate, f.ID, 0, "Form -> validate", f.Output); err != nil {
		return nil, err
	}
	if m.Validate != nil && m.Default != nil {
		if err := m.Validate.Code.Validate(ctx, f.ID, *m.Default); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Form) required() FormRequired {
	r := FormRequired{ID: f.ID, Output: f.Output}
	if f.Metadata != nil {
		r.Name = f.Metadata.Name
	}
	return r
}
