package link

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/pkg/typescript"
)

// TypeKind enumerates link type constructors.
type TypeKind uint8

const (
	TypeText TypeKind = iota
	TypeBool
	TypeInteger
	TypeNumber
	TypeArray
	TypeObject
)

var typeKindNames = [...]string{"text", "bool", "integer", "number", "array", "object"}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return "unknown"
}

// Type is the structural type of data flowing along an edge. Integers are
// restricted to the JS safe integer range by convention only.
type Type struct {
	Kind   TypeKind `msgpack:"kind"`
	Elem   *Type    `msgpack:"elem,omitempty"`
	Fields []Field  `msgpack:"fields,omitempty"`
}

// Field is a keyed member of an object type.
type Field struct {
	Key string `json:"key" msgpack:"key"`
	Ty  Type   `json:"ty" msgpack:"ty"`
}

func Text() Type    { return Type{Kind: TypeText} }
func Bool() Type    { return Type{Kind: TypeBool} }
func Integer() Type { return Type{Kind: TypeInteger} }
func Number() Type  { return Type{Kind: TypeNumber} }

// ArrayOf returns the array type with elements of elem.
func ArrayOf(elem Type) Type {
	return Type{Kind: TypeArray, Elem: &elem}
}

// ObjectOf returns an object type with the given members in order.
func ObjectOf(fields ...Field) Type {
	if fields == nil {
		fields = []Field{}
	}
	return Type{Kind: TypeObject, Fields: fields}
}

// F is shorthand for a Field.
func F(key string, ty Type) Field {
	return Field{Key: key, Ty: ty}
}

func (t Type) IsText() bool    { return t.Kind == TypeText }
func (t Type) IsBool() bool    { return t.Kind == TypeBool }
func (t Type) IsInteger() bool { return t.Kind == TypeInteger }
func (t Type) IsNumber() bool  { return t.Kind == TypeNumber }
func (t Type) IsArray() bool   { return t.Kind == TypeArray }
func (t Type) IsObject() bool  { return t.Kind == TypeObject }

// IsArrayText reports text[].
func (t Type) IsArrayText() bool {
	return t.Kind == TypeArray && t.Elem != nil && t.Elem.IsText()
}

// IsBlob reports integer[], the shape used for raw bytes.
func (t Type) IsBlob() bool {
	return t.Kind == TypeArray && t.Elem != nil && t.Elem.IsInteger()
}

// IsEmptyObject reports an object type without members.
func (t Type) IsEmptyObject() bool {
	return t.Kind == TypeObject && len(t.Fields) == 0
}

// Equal is structural equality; member order matters.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TypeArray:
		if t.Elem == nil || o.Elem == nil {
			return t.Elem == o.Elem
		}
		return t.Elem.Equal(*o.Elem)
	case TypeObject:
		if len(t.Fields) != len(o.Fields) {
			return false
		}
		for i := range t.Fields {
			if t.Fields[i].Key != o.Fields[i].Key || !t.Fields[i].Ty.Equal(o.Fields[i].Ty) {
				return false
			}
		}
	}
	return true
}

// Field returns the member type named key.
func (t Type) Field(key string) (Type, bool) {
	if t.Kind != TypeObject {
		return Type{}, false
	}
	for _, f := range t.Fields {
		if f.Key == key {
			return f.Ty, true
		}
	}
	return Type{}, false
}

// IsMatch reports whether v inhabits t. Arrays must also carry t's element
// type; objects must list the same keys in the same order.
func (t Type) IsMatch(v Value) bool {
	if t.Kind != v.Kind {
		return false
	}
	switch t.Kind {
	case TypeArray:
		if t.Elem == nil || v.Elem == nil || !t.Elem.Equal(*v.Elem) {
			return false
		}
		for _, item := range v.Items {
			if !t.Elem.IsMatch(item) {
				return false
			}
		}
	case TypeObject:
		if len(t.Fields) != len(v.Fields) {
			return false
		}
		for i, f := range t.Fields {
			if f.Key != v.Fields[i].Key || !f.Ty.IsMatch(v.Fields[i].Value) {
				return false
			}
		}
	}
	return true
}

// CheckKeys rejects duplicate keys and keys that are not identifiers.
func CheckKeys(keys []string, from ComponentID) error {
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			return &Error{Kind: KindDuplicateObjectKey, From: from, Key: key}
		}
		if !IsValidVariantName(key) {
			return &Error{Kind: KindInvalidObjectKey, From: from, Key: key}
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Check validates object keys at every depth.
func (t Type) Check(from ComponentID) error {
	switch t.Kind {
	case TypeArray:
		if t.Elem == nil {
			return SystemError("array type without element type")
		}
		return t.Elem.Check(from)
	case TypeObject:
		keys := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			keys[i] = f.Key
		}
		if err := CheckKeys(keys, from); err != nil {
			return err
		}
		for _, f := range t.Fields {
			if err := f.Ty.Check(from); err != nil {
				return err
			}
		}
	}
	return nil
}

// TypeScript renders the type as seen by snippets.
func (t Type) TypeScript() string {
	switch t.Kind {
	case TypeText:
		return "string"
	case TypeBool:
		return "boolean"
	case TypeInteger, TypeNumber:
		return "number"
	case TypeArray:
		if t.Elem == nil {
			return "any[]"
		}
		return t.Elem.TypeScript() + "[]"
	case TypeObject:
		fields := make([]typescript.Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = typescript.Field{Key: f.Key, Ty: f.Ty.TypeScript()}
		}
		return typescript.Object(fields)
	}
	return "any"
}

func (t Type) String() string {
	data, err := json.Marshal(t)
	if err != nil {
		return t.Kind.String()
	}
	return string(data)
}

var errUnknownType = errors.New("unknown link type")

func (t Type) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case TypeText, TypeBool, TypeInteger, TypeNumber:
		return []byte(`"` + t.Kind.String() + `"`), nil
	case TypeArray:
		if t.Elem == nil {
			return nil, errUnknownType
		}
		elem, err := json.MarshalNoEscape(*t.Elem)
		if err != nil {
			return nil, err
		}
		return append(append([]byte(`{"array":`), elem...), '}'), nil
	case TypeObject:
		fields := t.Fields
		if fields == nil {
			fields = []Field{}
		}
		body, err := json.MarshalNoEscape(fields)
		if err != nil {
			return nil, err
		}
		return append(append([]byte(`{"object":`), body...), '}'), nil
	}
	return nil, errUnknownType
}

func (t *Type) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		switch name {
		case "text":
			*t = Text()
		case "bool":
			*t = Bool()
		case "integer":
			*t = Integer()
		case "number":
			*t = Number()
		default:
			return fmt.Errorf("%w: %s", errUnknownType, name)
		}
		return nil
	}
	var tagged struct {
		Array  *Type   `json:"array"`
		Object []Field `json:"object"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	switch {
	case tagged.Array != nil:
		*t = ArrayOf(*tagged.Array)
	case tagged.Object != nil:
		*t = ObjectOf(tagged.Object...)
	default:
		return fmt.Errorf("%w: %s", errUnknownType, data)
	}
	return nil
}
