package link

import "regexp"

var (
	variantNameRe = regexp.MustCompile(`^[a-zA-Z_$][a-zA-Z_$0-9]{0,63}$`)
	evmAddressRe  = regexp.MustCompile(`^0[x|X][0-9a-fA-F]{40}$`)
	hexTextRe     = regexp.MustCompile(`^0[x|X]([0-9a-fA-F][0-9a-fA-F])+$`)
)

var reservedWords = map[string]struct{}{
	"break": {}, "case": {}, "catch": {}, "class": {}, "const": {}, "continue": {},
	"debugger": {}, "default": {}, "delete": {}, "do": {}, "else": {}, "enum": {},
	"export": {}, "extends": {}, "false": {}, "finally": {}, "for": {}, "function": {},
	"if": {}, "import": {}, "in": {}, "instanceof": {}, "new": {}, "null": {},
	"return": {}, "super": {}, "switch": {}, "this": {}, "throw": {}, "true": {},
	"try": {}, "typeof": {}, "var": {}, "void": {}, "while": {}, "with": {},
	"yield": {}, "let": {}, "static": {}, "implements": {}, "interface": {},
	"package": {}, "private": {}, "protected": {}, "public": {},
}

// IsValidVariantName reports whether name can be used as a JS identifier.
func IsValidVariantName(name string) bool {
	if !variantNameRe.MatchString(name) {
		return false
	}
	_, reserved := reservedWords[name]
	return !reserved
}

// IsValidEvmAddress reports a 0x-prefixed 20 byte hex address.
func IsValidEvmAddress(address string) bool {
	return evmAddressRe.MatchString(address)
}

// IsValidHexText reports 0x-prefixed hex with whole bytes.
func IsValidHexText(hex string) bool {
	return hexTextRe.MatchString(hex)
}
