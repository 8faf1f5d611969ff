package graph

import (
	"strings"

	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/internal/core/link"
)

// Interaction pauses the graph until the user picks an option.
type Interaction struct {
	Base
	Metadata InteractionMetadata `json:"metadata"`
}

type InteractionMetadata struct {
	Name     *string          `json:"name,omitempty"`
	Metadata InteractionInner `json:"metadata"`
}

// InteractionInner holds exactly one variant.
type InteractionInner struct {
	Choose     *InteractionChoose     `json:"choose,omitempty"`
	ChooseForm *InteractionChooseForm `json:"choose_form,omitempty"`
	ChooseTip  *InteractionChooseTip  `json:"choose_tip,omitempty"`
	ChooseFull *InteractionChooseFull `json:"choose_full,omitempty"`
}

func (m *InteractionInner) UnmarshalJSON(data []byte) error {
	type plain InteractionInner
	if err := json.Unmarshal(data, (*plain)(m)); err != nil {
		return err
	}
	return exactlyOne("interaction", m.Choose != nil, m.ChooseForm != nil, m.ChooseTip != nil, m.ChooseFull != nil)
}

// InteractionChoose outputs the value of the picked option.
type InteractionChoose struct {
	Values []link.NamedValue `json:"values"`
	Style  *string           `json:"style,omitempty"`
}

// InteractionChooseForm is InteractionChoose with a confirmation form.
type InteractionChooseForm struct {
	Values   []link.NamedValue `json:"values"`
	Default  *string           `json:"default,omitempty"`
	Confirm  *string           `json:"confirm,omitempty"`
	Validate *ValidateForm     `json:"validate,omitempty"`
	Style    *string           `json:"style,omitempty"`
}

// InteractionChooseTip outputs the index of the picked option.
type InteractionChooseTip struct {
	Values link.InputValue  `json:"values"`
	Tips   *link.InputValue `json:"tips,omitempty"`
	Style  *string          `json:"style,omitempty"`
}

// InteractionChooseFull picks from {option, value} pairs.
type InteractionChooseFull struct {
	Values link.InputValue `json:"values"`
	Form   *ChooseFullForm `json:"form,omitempty"`
	Style  *string         `json:"style,omitempty"`
}

type ChooseFullForm struct {
	Default  *string       `json:"default,omitempty"`
	Confirm  *string       `json:"confirm,omitempty"`
	Validate *ValidateForm `json:"validate,omitempty"`
}

var chooseFullValues = link.ArrayOf(link.ObjectOf(
	link.F("option", link.Text()),
	link.F("value", link.Text()),
))

func (i *Interaction) Kind() Kind          { return KindInteraction }
func (i *Interaction) OutputCount() uint32 { return 1 }

func (i *Interaction) OutputType(index uint32, from link.ComponentID) (link.Type, error) {
	if err := checkBranch(i, index, from); err != nil {
		return link.Type{}, err
	}
	if i.Metadata.Metadata.ChooseTip != nil {
		return link.Integer(), nil
	}
	return link.Text(), nil
}

func (i *Interaction) Check(ctx *Context, endpoints *AllEndpoints) (Component, error) {
	m := i.Metadata.Metadata
	text := link.Text()
	switch {
	case m.Choose != nil:
		if _, err := endpoints.CheckNamedValues(m.Choose.Values, i.ID, &text); err != nil {
			return nil, err
		}
		switch len(m.Choose.Values) {
		case 0:
			return nil, invalidInteraction(i.ID, "interaction choose: must has values")
		case 1:
			return nil, invalidInteraction(i.ID, "interaction choose: must has more then one value")
		}
	case m.ChooseForm != nil:
		f := m.ChooseForm
		if _, err := endpoints.CheckNamedValues(f.Values, i.ID, &text); err != nil {
			return nil, err
		}
		if err := checkConfirm(f.Confirm, i.ID); err != nil {
			return nil, err
		}
		if err := checkValidate(ctx, &f.Validate, i.ID, 0, "Interaction choose_form -> validate", text); err != nil {
			return nil, err
		}
	case m.ChooseTip != nil:
		t := m.ChooseTip
		ty, err := endpoints.CheckInputValue(t.Values, i.ID)
		if err != nil {
			return nil, err
		}
		if !ty.IsArrayText() {
			return nil, invalidInteraction(i.ID, "unsupported type for choose tip component")
		}
		if emptyArray(t.Values) {
			return nil, invalidInteraction(i.ID, "interaction choose tips: must has values")
		}
		if t.Tips != nil {
			ty, err := endpoints.CheckInputValue(*t.Tips, i.ID)
			if err != nil {
				return nil, err
			}
			if !ty.IsArrayText() {
				return nil, invalidInteraction(i.ID, "unsupported tips type for choose tip component")
			}
		}
	case m.ChooseFull != nil:
		f := m.ChooseFull
		ty, err := endpoints.CheckInputValue(f.Values, i.ID)
		if err != nil {
			return nil, err
		}
		if !ty.Equal(chooseFullValues) {
			return nil, invalidInteraction(i.ID, "unsupported type for choose full component")
		}
		if emptyArray(f.Values) {
			return nil, invalidInteraction(i.ID, "interaction choose full: must has values")
		}
		if f.Form != nil {
			if err := checkConfirm(f.Form.Confirm, i.ID); err != nil {
				return nil, err
			}
			if err := checkValidate(ctx, &f.Form.Validate, i.ID, 0, "Interaction choose_full -> validate", text); err != nil {
				return nil, err
			}
		}
	default:
		return nil, link.SystemError("interaction %d has no metadata", i.ID)
	}
	ctx.trigger(i.ID, interactionTriggered())
	return i, nil
}

func invalidInteraction(from link.ComponentID, message string) error {
	return link.Common(link.KindInvalidInteractionComponent, from, "%s", message)
}

func checkConfirm(confirm *string, from link.ComponentID) error {
	if confirm != nil && strings.TrimSpace(*confirm) == "" {
		return &link.Error{Kind: link.KindInvalidConfirmText, From: from}
	}
	return nil
}

// emptyArray reports a constant array without items.
func emptyArray(v link.InputValue) bool {
	return v.Const != nil && v.Const.Kind == link.TypeArray && len(v.Const.Items) == 0
}

func (i *Interaction) required() InteractionRequired {
	return InteractionRequired{ID: i.ID, Name: i.Metadata.Name, Metadata: i.Metadata.Metadata}
}

func (i *Interaction) codeAnchors() []anchor.Code {
	m := i.Metadata.Metadata
	var v *ValidateForm
	switch {
	case m.ChooseForm != nil:
		v = m.ChooseForm.Validate
	case m.ChooseFull != nil && m.ChooseFull.Form != nil:
		v = m.ChooseFull.Form.Validate
	}
	if v == nil {
		return nil
	}
	return v.Code.codeAnchors()
}
