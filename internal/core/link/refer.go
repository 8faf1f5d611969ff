package link

// InputValue is either a constant or a reference to an upstream output.
// Exactly one of the fields is set.
type InputValue struct {
	Const *Value      `json:"const,omitempty" msgpack:"const,omitempty"`
	Refer *ReferValue `json:"refer,omitempty" msgpack:"refer,omitempty"`
}

// ConstInput wraps a constant.
func ConstInput(v Value) InputValue {
	return InputValue{Const: &v}
}

// ReferInput references endpoint, optionally descending through keys.
func ReferInput(endpoint Endpoint, keys ...string) InputValue {
	return InputValue{Refer: &ReferValue{Endpoint: endpoint, Refer: KeyPath(keys...)}}
}

// ReferValue points at one output, and possibly a nested member of it.
type ReferValue struct {
	Endpoint Endpoint  `json:"endpoint" msgpack:"endpoint"`
	Refer    *KeyRefer `json:"refer,omitempty" msgpack:"refer,omitempty"`
}

// KeyRefer is a chain of object keys.
type KeyRefer struct {
	Key   string    `json:"key" msgpack:"key"`
	Refer *KeyRefer `json:"refer,omitempty" msgpack:"refer,omitempty"`
}

// KeyPath builds a KeyRefer chain, or nil for no keys.
func KeyPath(keys ...string) *KeyRefer {
	var head *KeyRefer
	for i := len(keys) - 1; i >= 0; i-- {
		head = &KeyRefer{Key: keys[i], Refer: head}
	}
	return head
}

// GetOutput descends ty along the chain. Only object types can be descended;
// any miss reports the whole chain.
func (k *KeyRefer) GetOutput(ty Type, from ComponentID, inlet Endpoint) (Type, error) {
	return k.getOutput(ty, from, inlet, k)
}

func (k *KeyRefer) getOutput(ty Type, from ComponentID, inlet Endpoint, tip *KeyRefer) (Type, error) {
	if sub, ok := ty.Field(k.Key); ok {
		if k.Refer != nil {
			return k.Refer.getOutput(sub, from, inlet, tip)
		}
		return sub, nil
	}
	return Type{}, &Error{Kind: KindWrongLinkTypeForRefer, From: from, Inlet: &inlet, KeyRefer: tip}
}

// NamedValue binds an arbitrary display name to an input.
type NamedValue struct {
	Name  string     `json:"name" msgpack:"name"`
	Value InputValue `json:"value" msgpack:"value"`
}

// CodeValue binds an identifier to an input for use inside a snippet.
type CodeValue struct {
	Key   string     `json:"key" msgpack:"key"`
	Value InputValue `json:"value" msgpack:"value"`
}
