package link

import (
	"fmt"

	"github.com/easydapp/jelly-packages/pkg/serialization"
	"github.com/easydapp/jelly-packages/pkg/typescript"
)

// ArgCodeType names one snippet parameter and its TypeScript constraint.
type ArgCodeType struct {
	Name string          `json:"name" msgpack:"name"`
	Ty   typescript.Type `json:"ty" msgpack:"ty"`
}

// Arg builds an ArgCodeType.
func Arg(name string, ty typescript.Type) ArgCodeType {
	return ArgCodeType{Name: name, Ty: ty}
}

func (a ArgCodeType) ShouldIntoAnchor() bool {
	return typescript.MaxInlineLength < len(a.Name) || a.Ty.ShouldIntoAnchor()
}

// CodeItem is a user snippet together with the parameter and return types
// the compiler checks it against.
type CodeItem struct {
	Code string           `json:"code" msgpack:"code"`
	Args []ArgCodeType    `json:"args,omitempty" msgpack:"args,omitempty"`
	Ret  *typescript.Type `json:"ret,omitempty" msgpack:"ret,omitempty"`
}

// ShouldIntoAnchor reports whether the item is too large to stay inline.
func (c CodeItem) ShouldIntoAnchor() bool {
	if typescript.MaxInlineLength < len(c.Code) {
		return true
	}
	for _, arg := range c.Args {
		if arg.ShouldIntoAnchor() {
			return true
		}
	}
	return c.Ret != nil && c.Ret.ShouldIntoAnchor()
}

// Key is the canonical JSON of the item. Two items with equal keys compile
// to the same output.
func (c CodeItem) Key() (string, error) {
	data, err := serialization.Canonical(c)
	if err != nil {
		return "", fmt.Errorf("serde code item failed: %w", err)
	}
	return string(data), nil
}

// Hash is the hex SHA-256 of the canonical item followed by its compiled
// output, so a compiler upgrade yields new anchors.
func (c CodeItem) Hash(compiled string) (string, error) {
	key, err := c.Key()
	if err != nil {
		return "", err
	}
	return serialization.SHA256Hex([]byte(key), []byte(compiled)), nil
}
