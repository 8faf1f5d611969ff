// Package typescript renders TypeScript type expressions for code snippets.
// Snippets receive their arguments and return values typed from the flow graph,
// Candid service signatures or EVM ABI parameters.
package typescript

import "strings"

// MaxInlineLength is the size above which a payload is moved out of the graph
// into a content-addressed side table.
const MaxInlineLength = 256

// maxLineLength is the width under which composite types stay on one line.
const maxLineLength = 50

// Type is a TypeScript type expression plus the alias declarations it needs.
type Type struct {
	Ty    string   `json:"ty" msgpack:"ty"`
	Types []string `json:"types,omitempty" msgpack:"types,omitempty"`
}

// Undefined is the type of a missing value.
var Undefined = Type{Ty: "undefined"}

// Any is the unconstrained type.
var Any = Type{Ty: "any"}

// New returns a plain type expression.
func New(ty string) Type {
	return Type{Ty: ty}
}

// WithTypes returns a type expression with alias declarations.
func WithTypes(ty string, types []string) Type {
	if len(types) == 0 {
		types = nil
	}
	return Type{Ty: ty, Types: types}
}

// Named declares ty as an alias when name is set and refers to the alias.
func Named(ty string, name string) Type {
	if name == "" {
		return New(ty)
	}
	return Type{Ty: name, Types: []string{alias(name, ty)}}
}

// NamedWithTypes is Named for an expression that already carries aliases.
func NamedWithTypes(ty string, types []string, name string) Type {
	if name == "" {
		return WithTypes(ty, types)
	}
	next := make([]string, 0, len(types)+1)
	next = append(next, types...)
	next = append(next, alias(name, ty))
	return Type{Ty: name, Types: next}
}

func alias(name, ty string) string {
	return "type " + name + " = " + ty + ";"
}

// IsSame reports whether t is exactly the alias-free expression ts.
func (t Type) IsSame(ts string) bool {
	if len(t.Types) > 0 {
		return false
	}
	return t.Ty == ts
}

// ShouldIntoAnchor reports whether the type is too large to stay inline.
func (t Type) ShouldIntoAnchor() bool {
	return MaxInlineLength < len(t.Ty) || MaxInlineLength < len(t.Types)
}

// Field is one keyed member of an object or variant.
type Field struct {
	Key string
	Ty  string
}

func indent(s, with string) string {
	return strings.ReplaceAll(s, "\n", with)
}

func anyMultiline(items []string) bool {
	for _, item := range items {
		if strings.Contains(item, "\n") {
			return true
		}
	}
	return false
}

// Object renders `{ k: T; ... }`, breaking lines for long members.
func Object(fields []Field) string {
	if len(fields) == 0 {
		return "{}"
	}
	parts := make([]string, len(fields))
	tys := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Key + ": " + f.Ty
		tys[i] = f.Ty
	}
	single := "{ " + strings.Join(parts, "; ") + " }"
	if len(single) <= maxLineLength && !anyMultiline(tys) {
		return single
	}
	lines := make([]string, len(fields))
	for i, f := range fields {
		lines[i] = "  " + f.Key + ": " + indent(f.Ty, "\n  ") + ";"
	}
	return "{\n" + strings.Join(lines, "\n") + "\n}"
}

// Tuple renders `[A, B]`.
func Tuple(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	single := "[" + strings.Join(items, ", ") + "]"
	if len(single) <= maxLineLength && !anyMultiline(items) {
		return single
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "  " + indent(item, "\n  ") + ","
	}
	return "[\n" + strings.Join(lines, "\n") + "\n]"
}

// Option renders the Candid optional encoding `([] | [T])`.
func Option(ty string) string {
	single := "([] | [" + ty + "])"
	if len(single) <= maxLineLength && !strings.Contains(ty, "\n") {
		return single
	}
	return "(\n  | []\n  | [\n      " + indent(ty, "\n      ") + "\n    ]\n)"
}

// Variant renders a union of single-key objects.
func Variant(fields []Field) string {
	if len(fields) == 0 {
		return "{}"
	}
	members := make([]string, len(fields))
	for i, f := range fields {
		members[i] = Object([]Field{f})
	}
	single := "(" + strings.Join(members, " | ") + ")"
	if len(single) <= maxLineLength && !anyMultiline(members) {
		return single
	}
	lines := make([]string, len(members))
	for i, m := range members {
		lines[i] = "  | " + indent(m, "\n    ")
	}
	return "(\n" + strings.Join(lines, "\n") + "\n)"
}

// Combine joins several types into one tuple type, or returns the only item.
func Combine(items []Type) Type {
	switch len(items) {
	case 0:
		return New("[]")
	case 1:
		return items[0]
	}
	tys := make([]string, len(items))
	var types []string
	for i, item := range items {
		tys[i] = item.Ty
		types = append(types, item.Types...)
	}
	return WithTypes(Tuple(tys), types)
}
