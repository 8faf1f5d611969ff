// Package candid parses Candid service descriptions far enough to type the
// arguments and results of canister methods, and renders those types as
// TypeScript for code snippets.
package candid

import "strings"

// Kind enumerates Candid type constructors.
type Kind int

const (
	KindBool Kind = iota
	KindNat
	KindInt
	KindNat8
	KindNat16
	KindNat32
	KindNat64
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindNull
	KindText
	KindPrincipal
	KindReserved
	KindEmpty
	KindUnknown
	KindVec
	KindOpt
	KindRecord
	KindVariant
	KindTuple
	KindFunc
	KindService
	KindRec
	KindReference

	kindIdent
)

var primitives = map[string]Kind{
	"bool":      KindBool,
	"nat":       KindNat,
	"int":       KindInt,
	"nat8":      KindNat8,
	"nat16":     KindNat16,
	"nat32":     KindNat32,
	"nat64":     KindNat64,
	"int8":      KindInt8,
	"int16":     KindInt16,
	"int32":     KindInt32,
	"int64":     KindInt64,
	"float32":   KindFloat32,
	"float64":   KindFloat64,
	"null":      KindNull,
	"text":      KindText,
	"principal": KindPrincipal,
	"reserved":  KindReserved,
	"empty":     KindEmpty,
}

var kindNames = func() map[Kind]string {
	names := make(map[Kind]string, len(primitives)+10)
	for name, kind := range primitives {
		names[kind] = name
	}
	names[KindUnknown] = "unknown"
	names[KindVec] = "vec"
	names[KindOpt] = "opt"
	names[KindRecord] = "record"
	names[KindVariant] = "variant"
	names[KindTuple] = "record"
	names[KindFunc] = "func"
	names[KindService] = "service"
	return names
}()

// Type is a resolved Candid type. Name is the alias the type was declared
// under, if any.
type Type struct {
	Kind    Kind
	Name    string
	Sub     *Type
	Fields  []Field
	Items   []*Type
	Func    *Func
	Methods []Method
}

// Field is a record or variant member. A variant member without payload
// has a nil Type.
type Field struct {
	Key  string
	Type *Type
}

// Func is a method signature.
type Func struct {
	Args        []*Type
	Rets        []*Type
	Annotations []string

	ref string
}

// IsQuery reports whether the method is annotated as a query.
func (f *Func) IsQuery() bool {
	for _, a := range f.Annotations {
		if a == "query" || a == "composite_query" {
			return true
		}
	}
	return false
}

// HasAnnotation reports whether the method carries any annotation.
func (f *Func) HasAnnotation() bool {
	return len(f.Annotations) > 0
}

// Method is a named service entry.
type Method struct {
	Name string
	Func *Func
}

// Service is a parsed service description.
type Service struct {
	Methods []Method
}

// Method returns the method named name.
func (s *Service) Method(name string) (*Func, bool) {
	for _, m := range s.Methods {
		if m.Name == name {
			return m.Func, true
		}
	}
	return nil, false
}

// String renders the type back to Candid syntax.
func (t *Type) String() string {
	if t == nil {
		return "null"
	}
	switch t.Kind {
	case KindVec:
		return "vec " + t.Sub.String()
	case KindOpt:
		return "opt " + t.Sub.String()
	case KindRecord, KindVariant:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			if f.Type == nil {
				parts[i] = f.Key
				continue
			}
			parts[i] = f.Key + " : " + f.Type.String()
		}
		return kindNames[t.Kind] + " { " + strings.Join(parts, "; ") + " }"
	case KindTuple:
		parts := make([]string, len(t.Items))
		for i, item := range t.Items {
			parts[i] = item.String()
		}
		return "record { " + strings.Join(parts, "; ") + " }"
	case KindFunc:
		return "func " + t.Func.String()
	case KindRec:
		return "μ" + t.Name + "." + t.Sub.String()
	case KindReference, kindIdent:
		return t.Name
	}
	return kindNames[t.Kind]
}

// String renders the signature back to Candid syntax.
func (f *Func) String() string {
	return tupleString(f.Args) + " -> " + tupleString(f.Rets) + annotationString(f.Annotations)
}

func tupleString(items []*Type) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func annotationString(annotations []string) string {
	if len(annotations) == 0 {
		return ""
	}
	return " " + strings.Join(annotations, " ")
}

// ArgsShape classifies a method's argument list.
type ArgsShape int

const (
	ArgsNone ArgsShape = iota
	ArgsSingle
	ArgsMulti
)

// ShapeOf reports the shape of items and whether every item is optional.
func ShapeOf(items []*Type) (ArgsShape, bool) {
	switch len(items) {
	case 0:
		return ArgsNone, false
	case 1:
		return ArgsSingle, items[0].Kind == KindOpt
	}
	for _, item := range items {
		if item.Kind != KindOpt {
			return ArgsMulti, false
		}
	}
	return ArgsMulti, true
}
