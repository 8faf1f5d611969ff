package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/internal/core/link"
)

// View renders a value for the user. Its single branch orders components
// after it but carries no value.
type View struct {
	Base
	Metadata ViewMetadata `json:"metadata"`
}

// ViewMetadata holds exactly one variant.
type ViewMetadata struct {
	Text   *ViewText   `json:"text,omitempty"`
	Bool   *ViewBool   `json:"bool,omitempty"`
	Image  *ViewImage  `json:"image,omitempty"`
	Table  *ViewTable  `json:"table,omitempty"`
	HTML   *ViewHTML   `json:"html,omitempty"`
	Array  *ViewArray  `json:"array,omitempty"`
	Object *ViewObject `json:"object,omitempty"`
}

func (m *ViewMetadata) UnmarshalJSON(data []byte) error {
	type plain ViewMetadata
	if err := json.Unmarshal(data, (*plain)(m)); err != nil {
		return err
	}
	return exactlyOne("view", m.Text != nil, m.Bool != nil, m.Image != nil, m.Table != nil, m.HTML != nil, m.Array != nil, m.Object != nil)
}

type ViewText struct {
	Value link.InputValue  `json:"value"`
	Href  *link.InputValue `json:"href,omitempty"`
	Style *string          `json:"style,omitempty"`
}

type ViewBool struct {
	Value link.InputValue `json:"value"`
	Style *string         `json:"style,omitempty"`
}

type ViewImage struct {
	Value link.InputValue  `json:"value"`
	Href  *link.InputValue `json:"href,omitempty"`
	Style *string          `json:"style,omitempty"`
}

type ViewTable struct {
	Value link.InputValue `json:"value"`
	Style *string         `json:"style,omitempty"`
}

// ViewHTML fills a template: ${name} for text values and src="${name}" for
// images.
type ViewHTML struct {
	Image    []link.CodeValue `json:"image,omitempty"`
	Text     []link.CodeValue `json:"text,omitempty"`
	Template string           `json:"template"`
	Style    *string          `json:"style,omitempty"`
}

type ViewArray struct {
	Value link.InputValue `json:"value"`
	Inner InnerView       `json:"inner"`
	Style *string         `json:"style,omitempty"`
}

type ViewObject struct {
	Value link.InputValue `json:"value"`
	Inner []InnerViewItem `json:"inner"`
	Style *string         `json:"style,omitempty"`
}

// InnerView describes how the elements of an array or the fields of an
// object are rendered. Exactly one member is set.
type InnerView struct {
	Text   *InnerViewStyle  `json:"text,omitempty"`
	Bool   *InnerViewStyle  `json:"bool,omitempty"`
	Image  *InnerViewStyle  `json:"image,omitempty"`
	Table  *InnerViewStyle  `json:"table,omitempty"`
	HTML   *InnerViewHTML   `json:"html,omitempty"`
	Array  *InnerViewArray  `json:"array,omitempty"`
	Object *InnerViewObject `json:"object,omitempty"`
}

func (v *InnerView) UnmarshalJSON(data []byte) error {
	type plain InnerView
	if err := json.Unmarshal(data, (*plain)(v)); err != nil {
		return err
	}
	return exactlyOne("inner view", v.Text != nil, v.Bool != nil, v.Image != nil, v.Table != nil, v.HTML != nil, v.Array != nil, v.Object != nil)
}

type InnerViewStyle struct {
	Style *string `json:"style,omitempty"`
}

type InnerViewHTML struct {
	Template string  `json:"template"`
	Style    *string `json:"style,omitempty"`
}

type InnerViewArray struct {
	Inner InnerView `json:"inner"`
	Style *string   `json:"style,omitempty"`
}

type InnerViewObject struct {
	Inner []InnerViewItem `json:"inner"`
	Style *string         `json:"style,omitempty"`
}

type InnerViewItem struct {
	Key   string    `json:"key"`
	Inner InnerView `json:"inner"`
}

var (
	textViewTypes  = []link.Type{link.Text(), link.Integer(), link.Number()}
	boolViewTypes  = []link.Type{link.Bool()}
	imageViewTypes = []link.Type{link.Text(), link.ArrayOf(link.Integer())}
	tableViewTypes = []link.Type{link.ObjectOf(
		link.F("headers", link.ArrayOf(link.Text())),
		link.F("rows", link.ArrayOf(link.ArrayOf(link.Text()))),
	)}
)

func supports(types []link.Type, ty link.Type) bool {
	return slices.ContainsFunc(types, ty.Equal)
}

func (v *View) Kind() Kind          { return KindView }
func (v *View) OutputCount() uint32 { return 1 }

func (v *View) OutputType(index uint32, from link.ComponentID) (link.Type, error) {
	if err := checkBranch(v, index, from); err != nil {
		return link.Type{}, err
	}
	return link.Type{}, referNoOutput(v, from)
}

func (v *View) Check(_ *Context, endpoints *AllEndpoints) (Component, error) {
	var err error
	switch m := v.Metadata; {
	case m.Text != nil:
		err = m.Text.check(endpoints, v.ID)
	case m.Bool != nil:
		err = checkViewValue(endpoints, m.Bool.Value, v.ID, "bool", func(ty link.Type) bool {
			return supports(boolViewTypes, ty)
		})
	case m.Image != nil:
		err = m.Image.check(endpoints, v.ID)
	case m.Table != nil:
		err = checkViewValue(endpoints, m.Table.Value, v.ID, "table", func(ty link.Type) bool {
			return supports(tableViewTypes, ty)
		})
	case m.HTML != nil:
		err = m.HTML.check(endpoints, v.ID)
	case m.Array != nil:
		if err = m.Array.Inner.check(v.ID); err == nil {
			err = checkViewValue(endpoints, m.Array.Value, v.ID, "array", func(ty link.Type) bool {
				return ty.IsArray() && m.Array.Inner.supports(*ty.Elem)
			})
		}
	case m.Object != nil:
		err = m.Object.check(endpoints, v.ID)
	default:
		err = link.SystemError("view %d has no metadata", v.ID)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func invalidView(from link.ComponentID, format string, args ...any) error {
	return link.Common(link.KindInvalidViewComponent, from, format, args...)
}

func checkViewValue(endpoints *AllEndpoints, value link.InputValue, from link.ComponentID, name string, ok func(link.Type) bool) error {
	ty, err := endpoints.CheckInputValue(value, from)
	if err != nil {
		return err
	}
	if !ok(ty) {
		return invalidView(from, "unsupported type for %s view", name)
	}
	return nil
}

var hrefRule = InputRule{
	Kind:     link.KindInvalidViewComponent,
	Invalid:  "href must start with https",
	NotConst: "href must be text",
	NotType:  "href must be text",
}

func checkHref(endpoints *AllEndpoints, href *link.InputValue, from link.ComponentID) error {
	if href == nil {
		return nil
	}
	return endpoints.CheckTextInput(*href, from, func(s string) bool {
		return strings.HasPrefix(s, "https://")
	}, hrefRule)
}

func (t *ViewText) check(endpoints *AllEndpoints, from link.ComponentID) error {
	if err := checkViewValue(endpoints, t.Value, from, "text", func(ty link.Type) bool {
		return supports(textViewTypes, ty)
	}); err != nil {
		return err
	}
	return checkHref(endpoints, t.Href, from)
}

func (i *ViewImage) check(endpoints *AllEndpoints, from link.ComponentID) error {
	if err := checkViewValue(endpoints, i.Value, from, "image", func(ty link.Type) bool {
		return supports(imageViewTypes, ty)
	}); err != nil {
		return err
	}
	if c := i.Value.Const; c != nil && c.Kind == link.TypeText && !isImageSource(c.Text) {
		return invalidView(from, "invalid image url")
	}
	return checkHref(endpoints, i.Href, from)
}

// isImageSource accepts https urls and data urls of images.
func isImageSource(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "data:image/")
}

func (h *ViewHTML) check(endpoints *AllEndpoints, from link.ComponentID) error {
	image, err := htmlKeys(endpoints, h.Image, from, "image", imageViewTypes)
	if err != nil {
		return err
	}
	text, err := htmlKeys(endpoints, h.Text, from, "text", textViewTypes)
	if err != nil {
		return err
	}
	return checkTemplate(h.Template, image, text, from)
}

func htmlKeys(endpoints *AllEndpoints, values []link.CodeValue, from link.ComponentID, name string, types []link.Type) ([]string, error) {
	ty, err := endpoints.CheckCodeValues(values, from)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ty.Fields))
	for i, f := range ty.Fields {
		if !supports(types, f.Ty) {
			return nil, invalidView(from, "unsupported type for html(%s) view", name)
		}
		keys[i] = f.Key
	}
	return keys, nil
}

// checkTemplate makes sure every image and text key is placed in the
// template, no key is both, and the template carries no script.
func checkTemplate(template string, image, text []string, from link.ComponentID) error {
	if err := link.CheckKeys(image, from); err != nil {
		return err
	}
	if err := link.CheckKeys(text, from); err != nil {
		return err
	}
	for _, name := range image {
		if slices.Contains(text, name) {
			return invalidView(from, "duplicate value: %s", name)
		}
	}
	for _, name := range image {
		if !strings.Contains(template, fmt.Sprintf(`src="${%s}"`, name)) {
			return invalidView(from, "missing image value: %s", name)
		}
	}
	for _, name := range text {
		if !strings.Contains(template, fmt.Sprintf("${%s}", name)) {
			return invalidView(from, "missing text value: %s", name)
		}
	}
	if strings.Contains(template, "script") {
		return invalidView(from, "word script is not support.")
	}
	return nil
}

func (o *ViewObject) check(endpoints *AllEndpoints, from link.ComponentID) error {
	if len(o.Inner) == 0 {
		return invalidView(from, "unsupported type for object view")
	}
	if err := checkInnerItems(o.Inner, from); err != nil {
		return err
	}
	return checkViewValue(endpoints, o.Value, from, "object", func(ty link.Type) bool {
		return innerItemsSupport(o.Inner, ty)
	})
}

func (v InnerView) check(from link.ComponentID) error {
	switch {
	case v.HTML != nil:
		return checkTemplate(v.HTML.Template, nil, nil, from)
	case v.Array != nil:
		return v.Array.Inner.check(from)
	case v.Object != nil:
		return checkInnerItems(v.Object.Inner, from)
	}
	return nil
}

func checkInnerItems(items []InnerViewItem, from link.ComponentID) error {
	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = item.Key
	}
	if err := link.CheckKeys(keys, from); err != nil {
		return err
	}
	for _, item := range items {
		if err := item.Inner.check(from); err != nil {
			return err
		}
	}
	return nil
}

// supports reports whether ty can be rendered by v.
func (v InnerView) supports(ty link.Type) bool {
	switch {
	case v.Text != nil:
		return supports(textViewTypes, ty)
	case v.Bool != nil:
		return supports(boolViewTypes, ty)
	case v.Image != nil:
		return supports(imageViewTypes, ty)
	case v.Table != nil:
		return supports(tableViewTypes, ty)
	case v.HTML != nil:
		return innerHTMLSupports(v.HTML.Template, ty)
	case v.Array != nil:
		return ty.IsArray() && v.Array.Inner.supports(*ty.Elem)
	case v.Object != nil:
		return innerItemsSupport(v.Object.Inner, ty)
	}
	return false
}

func innerItemsSupport(items []InnerViewItem, ty link.Type) bool {
	if !ty.IsObject() || len(items) != len(ty.Fields) {
		return false
	}
	for i, item := range items {
		f := ty.Fields[i]
		if item.Key != f.Key || !item.Inner.supports(f.Ty) {
			return false
		}
	}
	return true
}

// innerHTMLSupports accepts an object with optional image and text objects
// whose keys the template places.
func innerHTMLSupports(template string, ty link.Type) bool {
	if !ty.IsObject() {
		return false
	}
	keys := func(name string, types []link.Type) ([]string, bool) {
		sub, ok := ty.Field(name)
		if !ok {
			return nil, true
		}
		if !sub.IsObject() {
			return nil, false
		}
		out := make([]string, len(sub.Fields))
		for i, f := range sub.Fields {
			if !supports(types, f.Ty) {
				return nil, false
			}
			out[i] = f.Key
		}
		return out, true
	}
	image, ok := keys("image", imageViewTypes)
	if !ok {
		return false
	}
	text, ok := keys("text", textViewTypes)
	if !ok {
		return false
	}
	return checkTemplate(template, image, text, 0) == nil
}
