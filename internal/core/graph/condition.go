package graph

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/internal/core/link"
)

// Condition routes the flow into the branch of the first matching clause,
// or into the trailing "else" branch.
type Condition struct {
	Base
	Metadata ConditionMetadata `json:"metadata"`
}

type ConditionMetadata struct {
	Conditions []Clause `json:"conditions"`
}

// ClauseOp is the variant of a Clause.
type ClauseOp string

const (
	ClauseNone     ClauseOp = "none"
	ClauseRequired ClauseOp = "required"
	ClauseDeny     ClauseOp = "deny"
	ClauseAnd      ClauseOp = "and"
	ClauseOr       ClauseOp = "or"
	ClauseNot      ClauseOp = "not"
)

// Clause is one condition. Required and Deny test Item, And, Or and Not
// combine Items. JSON is "none" or {"<op>": ...}.
type Clause struct {
	Op    ClauseOp
	Item  *ConditionItem
	Items []Clause
}

func (c Clause) MarshalJSON() ([]byte, error) {
	switch c.Op {
	case ClauseNone:
		return json.Marshal(string(ClauseNone))
	case ClauseRequired, ClauseDeny:
		return json.Marshal(map[ClauseOp]*ConditionItem{c.Op: c.Item})
	case ClauseAnd, ClauseOr, ClauseNot:
		items := c.Items
		if items == nil {
			items = []Clause{}
		}
		return json.Marshal(map[ClauseOp][]Clause{c.Op: items})
	}
	return nil, fmt.Errorf("invalid condition op: %q", c.Op)
}

func (c *Clause) UnmarshalJSON(data []byte) error {
	op, body, err := decodeTagged(data)
	if err != nil {
		return fmt.Errorf("condition: %w", err)
	}
	*c = Clause{Op: ClauseOp(op)}
	switch c.Op {
	case ClauseNone:
		if body != nil {
			return fmt.Errorf("condition none takes no value")
		}
		return nil
	case ClauseRequired, ClauseDeny:
		if body == nil {
			return fmt.Errorf("condition %s needs an item", op)
		}
		c.Item = &ConditionItem{}
		return json.Unmarshal(body, c.Item)
	case ClauseAnd, ClauseOr, ClauseNot:
		if body == nil {
			return fmt.Errorf("condition %s needs items", op)
		}
		return json.Unmarshal(body, &c.Items)
	}
	return fmt.Errorf("invalid condition op: %q", op)
}

// ConditionItem compares the referenced value.
type ConditionItem struct {
	Value   link.ReferValue `json:"value"`
	Matches Matches         `json:"matches"`
}

// Matches pairs a comparator family with one comparison: {"text": "null"}
// or {"integer": {"greater": <input>}}.
type Matches struct {
	Family  link.TypeKind
	Compare Compare
}

// Compare is one comparison. Operand is nil for unit comparisons such as
// null or is_true.
type Compare struct {
	Op      string
	Operand *link.InputValue
}

func (m Matches) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]Compare{m.Family.String(): m.Compare})
}

func (m *Matches) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("matches must have exactly one family, got %d", len(raw))
	}
	for name, body := range raw {
		family, ok := familyByName(name)
		if !ok {
			return fmt.Errorf("invalid matches family: %q", name)
		}
		var compare Compare
		if err := json.Unmarshal(body, &compare); err != nil {
			return err
		}
		operand, known := comparators[family][compare.Op]
		if !known {
			return fmt.Errorf("invalid %s comparison: %q", name, compare.Op)
		}
		if (operand == operandNone) != (compare.Operand == nil) {
			return fmt.Errorf("%s comparison %s has wrong operand", name, compare.Op)
		}
		m.Family, m.Compare = family, compare
	}
	return nil
}

func (c Compare) MarshalJSON() ([]byte, error) {
	if c.Operand == nil {
		return json.Marshal(c.Op)
	}
	return json.Marshal(map[string]*link.InputValue{c.Op: c.Operand})
}

func (c *Compare) UnmarshalJSON(data []byte) error {
	op, body, err := decodeTagged(data)
	if err != nil {
		return fmt.Errorf("comparison: %w", err)
	}
	*c = Compare{Op: op}
	if body == nil {
		return nil
	}
	c.Operand = &link.InputValue{}
	return json.Unmarshal(body, c.Operand)
}

// decodeTagged splits an externally tagged enum value: a bare string is a
// unit variant, a single-key object carries a body.
func decodeTagged(data []byte) (string, json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return "", nil, err
		}
		return tag, nil, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", nil, err
	}
	if len(raw) != 1 {
		return "", nil, fmt.Errorf("must have exactly one variant, got %d", len(raw))
	}
	for tag, body := range raw {
		return tag, body, nil
	}
	return "", nil, nil
}

type operand uint8

const (
	operandNone operand = iota
	operandText
	operandBool
	operandInteger
	operandNumber
	operandSame  // the compared type itself
	operandElem  // the element type of the compared array
	operandField // the type of any field of the compared object
)

var (
	nullCompare = map[string]operand{"null": operandNone, "not_null": operandNone}
	lengthOps   = []string{"length_equal", "length_not_equal", "length_greater", "length_greater_equal", "length_less", "length_less_equal"}
	orderOps    = []string{"equal", "not_equal", "greater", "greater_equal", "less", "less_equal"}

	comparators = map[link.TypeKind]map[string]operand{
		link.TypeText:    withOps(withOps(nullCompare, operandText, "equal", "not_equal", "contains", "not_contains", "starts_with", "not_starts_with", "ends_with", "not_ends_with", "regex", "not_regex"), operandInteger, lengthOps...),
		link.TypeBool:    withOps(withOps(nullCompare, operandBool, "equal", "not_equal"), operandNone, "is_true", "is_false"),
		link.TypeInteger: withOps(nullCompare, operandInteger, orderOps...),
		link.TypeNumber:  withOps(nullCompare, operandNumber, orderOps...),
		link.TypeArray:   withOps(withOps(withOps(nullCompare, operandSame, "equal", "not_equal"), operandElem, "contains", "not_contains"), operandInteger, lengthOps...),
		link.TypeObject:  withOps(withOps(withOps(nullCompare, operandSame, "equal", "not_equal"), operandText, "contains_key", "not_contains_key"), operandField, "contains_value", "not_contains_value"),
	}
)

func withOps(base map[string]operand, kind operand, ops ...string) map[string]operand {
	out := make(map[string]operand, len(base)+len(ops))
	for op, k := range base {
		out[op] = k
	}
	for _, op := range ops {
		out[op] = kind
	}
	return out
}

func familyByName(name string) (link.TypeKind, bool) {
	for kind := range comparators {
		if kind.String() == name {
			return kind, true
		}
	}
	return 0, false
}

func (c *Condition) Kind() Kind { return KindCondition }

// OutputCount is one branch per clause plus "else".
func (c *Condition) OutputCount() uint32 { return 1 + uint32(len(c.Metadata.Conditions)) }

func (c *Condition) OutputType(index uint32, from link.ComponentID) (link.Type, error) {
	if err := checkBranch(c, index, from); err != nil {
		return link.Type{}, err
	}
	return link.Type{}, referNoOutput(c, from)
}

func (c *Condition) Check(_ *Context, endpoints *AllEndpoints) (Component, error) {
	if endpoints == nil {
		return nil, &link.Error{Kind: link.KindMismatchedInlets, From: c.ID}
	}
	for _, clause := range c.Metadata.Conditions {
		if err := clause.check(endpoints, c.ID); err != nil {
			return nil, err
		}
	}
	if len(c.Metadata.Conditions) == 0 {
		return nil, invalidCondition(c.ID, "condition must greater then 1")
	}
	return c, nil
}

func invalidCondition(from link.ComponentID, message string) error {
	return link.Common(link.KindInvalidCondition, from, "%s", message)
}

func (c Clause) check(endpoints *AllEndpoints, from link.ComponentID) error {
	switch c.Op {
	case ClauseNone:
		return nil
	case ClauseRequired, ClauseDeny:
		if c.Item == nil {
			return link.SystemError("condition %s of component %d has no item", c.Op, from)
		}
		return c.Item.check(endpoints, from)
	case ClauseAnd:
		if len(c.Items) < 2 {
			return invalidCondition(from, "items of condition AND must greater then 2")
		}
	case ClauseOr:
		if len(c.Items) == 0 {
			return invalidCondition(from, "items of condition OR must greater then 2")
		}
	case ClauseNot:
		if len(c.Items) == 0 {
			return invalidCondition(from, "items of condition NOT must greater then 2")
		}
	default:
		return link.SystemError("invalid condition op: %s", c.Op)
	}
	for _, item := range c.Items {
		if err := item.check(endpoints, from); err != nil {
			return err
		}
	}
	return nil
}

func (item *ConditionItem) check(endpoints *AllEndpoints, from link.ComponentID) error {
	ty, err := endpoints.CheckReferValue(item.Value, from)
	if err != nil {
		return err
	}
	if ty.Kind != item.Matches.Family {
		return invalidCondition(from, "refer type is not match")
	}
	compare := item.Matches.Compare
	kind, ok := comparators[ty.Kind][compare.Op]
	if !ok {
		return link.SystemError("invalid %s comparison: %s", ty.Kind, compare.Op)
	}
	if kind == operandNone {
		return nil
	}
	if compare.Operand == nil {
		return link.SystemError("%s comparison %s has no operand", ty.Kind, compare.Op)
	}
	value, err := endpoints.CheckInputValue(*compare.Operand, from)
	if err != nil {
		return err
	}
	switch kind {
	case operandText:
		if !value.IsText() {
			return invalidCondition(from, "value is not text")
		}
	case operandBool:
		if !value.IsBool() {
			return invalidCondition(from, "value is not bool")
		}
	case operandInteger:
		if !value.IsInteger() {
			return invalidCondition(from, "value is not integer")
		}
	case operandNumber:
		if !value.IsNumber() {
			return invalidCondition(from, "value is not number")
		}
	case operandSame:
		if !value.Equal(ty) {
			return invalidCondition(from, "value is not match")
		}
	case operandElem:
		if ty.Elem == nil || !value.Equal(*ty.Elem) {
			return invalidCondition(from, "value is not match")
		}
	case operandField:
		if !slices.ContainsFunc(ty.Fields, func(f link.Field) bool { return f.Ty.Equal(value) }) {
			return invalidCondition(from, "value is not match")
		}
	}
	return nil
}

// nullable reports an item that only inspects presence. Such an item makes
// the condition tolerant of exclusive upstream branches.
func (item *ConditionItem) nullable() bool {
	op := item.Matches.Compare.Op
	return op == "null" || op == "not_null"
}

func (c Clause) nullableEndpoints(out []link.Endpoint) []link.Endpoint {
	switch {
	case c.Item != nil:
		if c.Item.nullable() && !slices.Contains(out, c.Item.Value.Endpoint) {
			out = append(out, c.Item.Value.Endpoint)
		}
	default:
		for _, item := range c.Items {
			out = item.nullableEndpoints(out)
		}
	}
	return out
}

// nullableEndpoints lists, without duplicates, the endpoints tested for
// absence by any clause.
func (c *Condition) nullableEndpoints() []link.Endpoint {
	var out []link.Endpoint
	for _, clause := range c.Metadata.Conditions {
		out = clause.nullableEndpoints(out)
	}
	return out
}
