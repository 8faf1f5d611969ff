package link

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Value is a constant of some link type. Array values carry their element
// type so that empty arrays stay typed.
type Value struct {
	Kind    TypeKind     `msgpack:"kind"`
	Text    string       `msgpack:"text,omitempty"`
	Bool    bool         `msgpack:"bool,omitempty"`
	Integer int64        `msgpack:"integer,omitempty"`
	Number  float64      `msgpack:"number,omitempty"`
	Elem    *Type        `msgpack:"elem,omitempty"`
	Items   []Value      `msgpack:"items,omitempty"`
	Fields  []FieldValue `msgpack:"fields,omitempty"`
}

// FieldValue is a keyed member of an object value.
type FieldValue struct {
	Key   string `json:"key" msgpack:"key"`
	Value Value  `json:"value" msgpack:"value"`
}

func TextValue(s string) Value    { return Value{Kind: TypeText, Text: s} }
func BoolValue(b bool) Value      { return Value{Kind: TypeBool, Bool: b} }
func IntegerValue(i int64) Value  { return Value{Kind: TypeInteger, Integer: i} }
func NumberValue(f float64) Value { return Value{Kind: TypeNumber, Number: f} }

// FV is shorthand for a FieldValue.
func FV(key string, v Value) FieldValue {
	return FieldValue{Key: key, Value: v}
}

// ArrayValue returns an array of elem holding items.
func ArrayValue(elem Type, items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Kind: TypeArray, Elem: &elem, Items: items}
}

// ObjectValue returns an object value with members in order.
func ObjectValue(fields ...FieldValue) Value {
	if fields == nil {
		fields = []FieldValue{}
	}
	return Value{Kind: TypeObject, Fields: fields}
}

// Type derives the link type of the value.
func (v Value) Type() Type {
	switch v.Kind {
	case TypeArray:
		if v.Elem == nil {
			return Type{Kind: TypeArray}
		}
		return ArrayOf(*v.Elem)
	case TypeObject:
		fields := make([]Field, len(v.Fields))
		for i, f := range v.Fields {
			fields[i] = Field{Key: f.Key, Ty: f.Value.Type()}
		}
		return ObjectOf(fields...)
	}
	return Type{Kind: v.Kind}
}

// Check validates keys and that array items inhabit the declared element type.
func (v Value) Check(from ComponentID) error {
	switch v.Kind {
	case TypeArray:
		if v.Elem == nil {
			return &Error{Kind: KindMismatchedLinkValueType, From: from, Value: &v}
		}
		if err := v.Elem.Check(from); err != nil {
			return err
		}
		for _, item := range v.Items {
			if !v.Elem.IsMatch(item) {
				return &Error{Kind: KindMismatchedLinkValueType, From: from, Value: &v}
			}
		}
	case TypeObject:
		keys := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			keys[i] = f.Key
		}
		if err := CheckKeys(keys, from); err != nil {
			return err
		}
		for _, f := range v.Fields {
			if err := f.Value.Check(from); err != nil {
				return err
			}
		}
	}
	return nil
}

// Field returns the member named key.
func (v Value) Field(key string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

func (v Value) String() string {
	data, err := json.Marshal(v)
	if err != nil {
		return v.Kind.String()
	}
	return string(data)
}

var errUnknownValue = errors.New("unknown link value")

type arrayBody struct {
	Ty     Type    `json:"ty"`
	Values []Value `json:"values"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	var body any
	switch v.Kind {
	case TypeText:
		body = v.Text
	case TypeBool:
		body = v.Bool
	case TypeInteger:
		body = v.Integer
	case TypeNumber:
		body = v.Number
	case TypeArray:
		if v.Elem == nil {
			return nil, errUnknownValue
		}
		items := v.Items
		if items == nil {
			items = []Value{}
		}
		body = arrayBody{Ty: *v.Elem, Values: items}
	case TypeObject:
		fields := v.Fields
		if fields == nil {
			fields = []FieldValue{}
		}
		body = fields
	default:
		return nil, errUnknownValue
	}
	data, err := json.MarshalNoEscape(body)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(data)+16)
	out = append(out, `{"`...)
	out = append(out, v.Kind.String()...)
	out = append(out, `":`...)
	out = append(out, data...)
	return append(out, '}'), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if len(tagged) != 1 {
		return fmt.Errorf("%w: %s", errUnknownValue, data)
	}
	for tag, raw := range tagged {
		switch tag {
		case "text":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return err
			}
			*v = TextValue(s)
		case "bool":
			var b bool
			if err := json.Unmarshal(raw, &b); err != nil {
				return err
			}
			*v = BoolValue(b)
		case "integer":
			var i int64
			if err := json.Unmarshal(raw, &i); err != nil {
				return err
			}
			*v = IntegerValue(i)
		case "number":
			var f float64
			if err := json.Unmarshal(raw, &f); err != nil {
				return err
			}
			*v = NumberValue(f)
		case "array":
			var body arrayBody
			if err := json.Unmarshal(raw, &body); err != nil {
				return err
			}
			*v = ArrayValue(body.Ty, body.Values...)
		case "object":
			var fields []FieldValue
			if err := json.Unmarshal(raw, &fields); err != nil {
				return err
			}
			*v = ObjectValue(fields...)
		default:
			return fmt.Errorf("%w: %s", errUnknownValue, tag)
		}
	}
	return nil
}
