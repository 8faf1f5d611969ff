// Package abi models Ethereum contract ABI entries and renders their
// parameter types as TypeScript for code snippets. Type strings are parsed
// with go-ethereum's accounts/abi.
package abi

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/pkg/typescript"
)

// ItemType is the kind of an ABI entry.
type ItemType string

const (
	TypeFunction    ItemType = "function"
	TypeConstructor ItemType = "constructor"
	TypeReceive     ItemType = "receive"
	TypeFallback    ItemType = "fallback"
	TypeEvent       ItemType = "event"
	TypeError       ItemType = "error"
)

// StateMutability describes how a function touches chain state.
type StateMutability string

const (
	Pure       StateMutability = "pure"
	View       StateMutability = "view"
	Nonpayable StateMutability = "nonpayable"
	Payable    StateMutability = "payable"
)

// IsMutating reports whether calling the function needs a transaction.
func (s StateMutability) IsMutating() bool {
	return s == Nonpayable || s == Payable
}

// Param is one input or output of an entry.
type Param struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	InternalType *string `json:"internalType"`
	Components   []Param `json:"components,omitempty"`
	Indexed      *bool   `json:"indexed,omitempty"`
}

// Item is a single ABI entry.
type Item struct {
	Type            ItemType         `json:"type"`
	Name            *string          `json:"name,omitempty"`
	Inputs          []Param          `json:"inputs,omitempty"`
	Outputs         []Param          `json:"outputs,omitempty"`
	StateMutability *StateMutability `json:"stateMutability,omitempty"`
	Anonymous       *bool            `json:"anonymous,omitempty"`
}

var (
	ErrNotFunction     = errors.New("abi is not a function")
	ErrNoMutability    = errors.New("function abi must has stateMutability")
	ErrFunctionMissing = errors.New("name or index not found")
)

// ParseItem decodes a single ABI entry.
func ParseItem(text string) (*Item, error) {
	var item Item
	if err := json.Unmarshal([]byte(text), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ParseItems decodes a full contract ABI.
func ParseItems(text string) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Functions keeps the named function entries that declare a state
// mutability, in declaration order.
func Functions(items []Item) []Item {
	var out []Item
	for _, item := range items {
		if item.Type == TypeFunction && item.Name != nil && item.StateMutability != nil {
			out = append(out, item)
		}
	}
	return out
}

// Select picks a function from a full ABI, by index among Functions when the
// index is in range, else the first function named name.
func Select(items []Item, name string, index *uint32) (*Item, error) {
	functions := Functions(items)
	if index != nil && int(*index) < len(functions) {
		return &functions[*index], nil
	}
	for i := range functions {
		if *functions[i].Name == name {
			return &functions[i], nil
		}
	}
	return nil, ErrFunctionMissing
}

// Function checks that item is a function with a state mutability.
func (item *Item) Function() (StateMutability, error) {
	if item.Type != TypeFunction {
		return "", ErrNotFunction
	}
	if item.StateMutability == nil {
		return "", ErrNoMutability
	}
	return *item.StateMutability, nil
}

// UnsupportedTypeError reports a parameter type without TypeScript mapping.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return "unsupported type " + e.Type
}

// TypeScript renders the parameter type.
func (p Param) TypeScript() (string, error) {
	ty, err := paramType(strings.TrimSpace(p.Type), p.Components)
	if err != nil {
		return "", &UnsupportedTypeError{Type: p.Type}
	}
	return ty, nil
}

var errInvalid = errors.New("invalid")

// contractType matches the canonical types solc writes into an ABI. They are
// parsed by go-ethereum; everything else is a source level spelling.
var contractType = regexp.MustCompile(`^(u?int[0-9]+|bytes([1-9][0-9]*)?|bool|address|string|function|tuple)(\[[0-9]*\])*$`)

func paramType(ty string, components []Param) (string, error) {
	if contractType.MatchString(ty) {
		t, err := ethabi.NewType(ty, "", arguments(components))
		if err != nil {
			return "", errInvalid
		}
		return render(t)
	}
	return sourceType(ty, components)
}

// arguments converts tuple components. Names are replaced with positional
// ones: go-ethereum rejects anonymous fields and the rendering ignores names.
func arguments(components []Param) []ethabi.ArgumentMarshaling {
	if components == nil {
		return nil
	}
	out := make([]ethabi.ArgumentMarshaling, len(components))
	for i, c := range components {
		out[i] = ethabi.ArgumentMarshaling{
			Name:       fmt.Sprintf("F%d", i),
			Type:       strings.TrimSpace(c.Type),
			Components: arguments(c.Components),
		}
	}
	return out
}

func render(t ethabi.Type) (string, error) {
	switch t.T {
	case ethabi.BoolTy:
		return "boolean", nil
	case ethabi.IntTy, ethabi.UintTy:
		if !validBits(uint64(t.Size)) {
			return "", errInvalid
		}
		return "bigint", nil
	case ethabi.AddressTy, ethabi.StringTy, ethabi.FunctionTy:
		return "string", nil
	case ethabi.BytesTy, ethabi.FixedBytesTy:
		return "(string | Uint8Array)", nil
	case ethabi.SliceTy, ethabi.ArrayTy:
		inner, err := render(*t.Elem)
		if err != nil {
			return "", err
		}
		return inner + "[]", nil
	case ethabi.TupleTy:
		items := make([]string, len(t.TupleElems))
		for i, elem := range t.TupleElems {
			sub, err := render(*elem)
			if err != nil {
				return "", err
			}
			items[i] = sub
		}
		return typescript.Tuple(items), nil
	}
	return "", errInvalid
}

// sourceType covers arrays of, and mappings over, spellings that only occur
// in hand written ABIs: bare int and uint, address payable and fixed point.
func sourceType(ty string, components []Param) (string, error) {
	if strings.HasSuffix(ty, "]") {
		open := strings.LastIndex(ty, "[")
		if open <= 0 {
			return "", errInvalid
		}
		if size := ty[open+1 : len(ty)-1]; size != "" {
			if _, err := strconv.ParseUint(size, 10, 32); err != nil {
				return "", errInvalid
			}
		}
		inner, err := paramType(strings.TrimSpace(ty[:open]), components)
		if err != nil {
			return "", err
		}
		return inner + "[]", nil
	}
	if rest, ok := strings.CutPrefix(ty, "mapping"); ok {
		return mappingType(strings.TrimSpace(rest), components)
	}
	switch ty {
	case "int", "uint":
		return "bigint", nil
	case "fixed", "ufixed", "address payable":
		return "string", nil
	}
	switch {
	case strings.HasPrefix(ty, "ufixed"):
		return fixedType(ty[6:])
	case strings.HasPrefix(ty, "fixed"):
		return fixedType(ty[5:])
	}
	return "", errInvalid
}

func validBits(bits uint64) bool {
	return bits > 0 && bits <= 256 && bits%8 == 0
}

// fixedType checks the MxN suffix of fixed point types.
func fixedType(text string) (string, error) {
	left, right, ok := strings.Cut(text, "x")
	if !ok {
		return "", errInvalid
	}
	m, err := strconv.ParseUint(left, 10, 16)
	if err != nil || !validBits(m) {
		return "", errInvalid
	}
	n, err := strconv.ParseUint(right, 10, 8)
	if err != nil || n == 0 || n > 80 || m < n {
		return "", errInvalid
	}
	return "string", nil
}

// mappingType renders `(K => V)` as a TypeScript record.
func mappingType(text string, components []Param) (string, error) {
	if !strings.HasPrefix(text, "(") || !strings.HasSuffix(text, ")") {
		return "", errInvalid
	}
	body := text[1 : len(text)-1]
	depth := 0
	for i := 0; i+1 < len(body); i++ {
		switch body[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '=':
			if depth != 0 || body[i+1] != '>' {
				continue
			}
			key, err := paramType(strings.TrimSpace(body[:i]), components)
			if err != nil {
				return "", err
			}
			value, err := paramType(strings.TrimSpace(body[i+2:]), components)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Record<%s, %s>", key, value), nil
		}
	}
	return "", errInvalid
}

// ParamsToTypeScript renders an input or output list: `[]` when empty, the
// item itself when single and a tuple otherwise.
func ParamsToTypeScript(params []Param) (typescript.Type, error) {
	items := make([]typescript.Type, len(params))
	for i, p := range params {
		ty, err := p.TypeScript()
		if err != nil {
			return typescript.Type{}, err
		}
		items[i] = typescript.New(ty)
	}
	return typescript.Combine(items), nil
}
