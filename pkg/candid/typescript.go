package candid

import (
	"errors"
	"fmt"

	"github.com/easydapp/jelly-packages/pkg/typescript"
)

var (
	// ErrUnsupported is returned for types that cannot cross the snippet
	// boundary.
	ErrUnsupported = errors.New("unsupported")
	// ErrAnonymousRecursion is returned for a recursive type without alias.
	ErrAnonymousRecursion = errors.New("recursion type must has name")
)

// UnsupportedError names the Candid type that has no TypeScript mapping.
type UnsupportedError struct {
	Type string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported type: %s", e.Type)
}

func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupported
}

// TypeScript renders t as the TypeScript type the agent library decodes it
// into.
func (t *Type) TypeScript() (typescript.Type, error) {
	switch t.Kind {
	case KindBool:
		return typescript.Named("boolean", t.Name), nil
	case KindNat, KindInt, KindNat64, KindInt64:
		return typescript.Named("bigint", t.Name), nil
	case KindNat8, KindNat16, KindNat32, KindInt8, KindInt16, KindInt32, KindFloat32, KindFloat64:
		return typescript.Named("number", t.Name), nil
	case KindNull:
		return typescript.Named("null", t.Name), nil
	case KindText:
		return typescript.Named("string", t.Name), nil
	case KindPrincipal:
		return typescript.Named("Principal", t.Name), nil
	case KindVec:
		if t.Sub.Kind == KindNat8 {
			return typescript.Named("(Uint8Array | number[])", t.Name), nil
		}
		sub, err := t.Sub.TypeScript()
		if err != nil {
			return typescript.Type{}, err
		}
		return typescript.NamedWithTypes(sub.Ty+"[]", sub.Types, t.Name), nil
	case KindOpt:
		sub, err := t.Sub.TypeScript()
		if err != nil {
			return typescript.Type{}, err
		}
		return typescript.NamedWithTypes(typescript.Option(sub.Ty), sub.Types, t.Name), nil
	case KindRecord:
		fields, types, err := fieldsTypeScript(t.Fields)
		if err != nil {
			return typescript.Type{}, err
		}
		return typescript.NamedWithTypes(typescript.Object(fields), types, t.Name), nil
	case KindVariant:
		fields, types, err := fieldsTypeScript(t.Fields)
		if err != nil {
			return typescript.Type{}, err
		}
		return typescript.NamedWithTypes(typescript.Variant(fields), types, t.Name), nil
	case KindTuple:
		items, err := TypesToTypeScriptList(t.Items)
		if err != nil {
			return typescript.Type{}, err
		}
		tys, types := split(items)
		return typescript.NamedWithTypes(typescript.Tuple(tys), types, t.Name), nil
	case KindUnknown:
		return typescript.Named("unknown", t.Name), nil
	case KindEmpty, KindReserved, KindFunc:
		return typescript.Named("any", t.Name), nil
	case KindService:
		return typescript.Type{}, &UnsupportedError{Type: "service"}
	case KindRec:
		if t.Name == "" {
			return typescript.Type{}, ErrAnonymousRecursion
		}
		inner, err := t.Sub.TypeScript()
		if err != nil {
			return typescript.Type{}, err
		}
		return typescript.NamedWithTypes(inner.Ty, inner.Types, t.Name), nil
	case KindReference:
		if t.Name == "" {
			return typescript.Type{}, ErrAnonymousRecursion
		}
		return typescript.New(t.Name), nil
	}
	return typescript.Type{}, &UnsupportedError{Type: t.String()}
}

func fieldsTypeScript(fields []Field) ([]typescript.Field, []string, error) {
	out := make([]typescript.Field, len(fields))
	var types []string
	for i, f := range fields {
		if f.Type == nil {
			out[i] = typescript.Field{Key: f.Key, Ty: "null"}
			continue
		}
		ts, err := f.Type.TypeScript()
		if err != nil {
			return nil, nil, err
		}
		out[i] = typescript.Field{Key: f.Key, Ty: ts.Ty}
		types = append(types, ts.Types...)
	}
	return out, types, nil
}

func split(items []typescript.Type) ([]string, []string) {
	tys := make([]string, len(items))
	var types []string
	for i, item := range items {
		tys[i] = item.Ty
		types = append(types, item.Types...)
	}
	return tys, types
}

// TypesToTypeScriptList renders each item.
func TypesToTypeScriptList(items []*Type) ([]typescript.Type, error) {
	out := make([]typescript.Type, len(items))
	for i, item := range items {
		ts, err := item.TypeScript()
		if err != nil {
			return nil, err
		}
		out[i] = ts
	}
	return out, nil
}

// TypesToTypeScript renders an argument or result list: `[]` when empty, the
// item itself when single and a tuple otherwise.
func TypesToTypeScript(items []*Type) (typescript.Type, error) {
	list, err := TypesToTypeScriptList(items)
	if err != nil {
		return typescript.Type{}, err
	}
	return typescript.Combine(list), nil
}
