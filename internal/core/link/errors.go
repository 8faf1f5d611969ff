package link

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrorKind names a check failure. The name is also the JSON tag.
type ErrorKind string

const (
	KindSystemError                        ErrorKind = "SystemError"
	KindEmptyComponents                    ErrorKind = "EmptyComponents"
	KindInvalidComponentID                 ErrorKind = "InvalidComponentId"
	KindDuplicateComponentID               ErrorKind = "DuplicateComponentId"
	KindCircularReference                  ErrorKind = "CircularReference"
	KindAffluxComponentID                  ErrorKind = "AffluxComponentId"
	KindUnknownComponentOrNotRefer         ErrorKind = "UnknownComponentOrNotRefer"
	KindInvalidEndpoint                    ErrorKind = "InvalidEndpoint"
	KindReferNoOutputComponent             ErrorKind = "ReferNoOutputComponent"
	KindDuplicateParamName                 ErrorKind = "DuplicateParamName"
	KindDuplicateFormName                  ErrorKind = "DuplicateFormName"
	KindDuplicateIdentityName              ErrorKind = "DuplicateIdentityName"
	KindDuplicateInteractionName           ErrorKind = "DuplicateInteractionName"
	KindMismatchedLinkValueType            ErrorKind = "MismatchedLinkValueType"
	KindWrongLinkTypeForRefer              ErrorKind = "WrongLinkTypeForRefer"
	KindDuplicateObjectKey                 ErrorKind = "DuplicateObjectKey"
	KindInvalidObjectKey                   ErrorKind = "InvalidObjectKey"
	KindInvalidVariantKey                  ErrorKind = "InvalidVariantKey"
	KindDuplicateVariantKey                ErrorKind = "DuplicateVariantKey"
	KindInvalidName                        ErrorKind = "InvalidName"
	KindDuplicateName                      ErrorKind = "DuplicateName"
	KindInvalidNamedValueType              ErrorKind = "InvalidNamedValueType"
	KindMismatchedInlets                   ErrorKind = "MismatchedInlets"
	KindMismatchedOutput                   ErrorKind = "MismatchedOutput"
	KindWrongCode                          ErrorKind = "WrongCode"
	KindValidateCodeFailed                 ErrorKind = "ValidateCodeFailed"
	KindInvalidConfirmText                 ErrorKind = "InvalidConfirmText"
	KindMismatchedConstValue               ErrorKind = "MismatchedConstValue"
	KindWrongConstValue                    ErrorKind = "WrongConstValue"
	KindMismatchedFormDefaultValue         ErrorKind = "MismatchedFormDefaultValue"
	KindMismatchedFormSuffixValue          ErrorKind = "MismatchedFormSuffixValue"
	KindInvalidIdentity                    ErrorKind = "InvalidIdentity"
	KindInvalidIdentityHTTPProxy           ErrorKind = "InvalidIdentityHttpProxy"
	KindInvalidCallTrigger                 ErrorKind = "InvalidCallTrigger"
	KindInvalidCallIdentity                ErrorKind = "InvalidCallIdentity"
	KindInvalidCallOutputType              ErrorKind = "InvalidCallOutputType"
	KindNeedlessCallHTTPName               ErrorKind = "NeedlessCallHttpName"
	KindInvalidCallHTTPURL                 ErrorKind = "InvalidCallHttpUrl"
	KindInvalidCallIcCanisterID            ErrorKind = "InvalidCallIcCanisterId"
	KindInvalidCallIcAPI                   ErrorKind = "InvalidCallIcApi"
	KindCompileCallIcCandid                ErrorKind = "CompileCallIcCandid"
	KindCompileCallIcCandidTypeUnsupported ErrorKind = "CompileCallIcCandidTypeUnsupported"
	KindInvalidCallIcAPIArg                ErrorKind = "InvalidCallIcApiArg"
	KindInvalidCallIcAPIRet                ErrorKind = "InvalidCallIcApiRet"
	KindInvalidCallEvmActionContract       ErrorKind = "InvalidCallEvmActionContract"
	KindInvalidCallEvmActionAPI            ErrorKind = "InvalidCallEvmActionApi"
	KindInvalidCallEvmActionArg            ErrorKind = "InvalidCallEvmActionArg"
	KindInvalidCallEvmActionRet            ErrorKind = "InvalidCallEvmActionRet"
	KindInvalidCallEvmActionSign           ErrorKind = "InvalidCallEvmActionSign"
	KindInvalidCallEvmActionPayValue       ErrorKind = "InvalidCallEvmActionPayValue"
	KindInvalidCallEvmActionGasLimit       ErrorKind = "InvalidCallEvmActionGasLimit"
	KindInvalidCallEvmActionGasPrice       ErrorKind = "InvalidCallEvmActionGasPrice"
	KindInvalidCallEvmActionNonce          ErrorKind = "InvalidCallEvmActionNonce"
	KindInvalidCallEvmActionAbi            ErrorKind = "InvalidCallEvmActionAbi"
	KindInvalidCallEvmActionBytecode       ErrorKind = "InvalidCallEvmActionBytecode"
	KindInvalidCallEvmActionTransferTo     ErrorKind = "InvalidCallEvmActionTransferTo"
	KindInvalidCallEvmActionOutput         ErrorKind = "InvalidCallEvmActionOutput"
	KindInvalidInteractionComponent        ErrorKind = "InvalidInteractionComponent"
	KindInvalidViewComponent               ErrorKind = "InvalidViewComponent"
	KindMultipleOutput                     ErrorKind = "MultipleOutput"
	KindInvalidCondition                   ErrorKind = "InvalidCondition"
	KindMismatchedCombinedMetadata         ErrorKind = "MismatchedCombinedMetadata"
)

var commonFields = []string{"from", "message"}

// errorFields lists, per kind, the members written to JSON in order. Kinds
// missing here carry {from, message}.
var errorFields = map[ErrorKind][]string{
	KindSystemError:                        {"message"},
	KindEmptyComponents:                    {"message"},
	KindInvalidComponentID:                 {"id"},
	KindDuplicateComponentID:               {"id"},
	KindCircularReference:                  {"id"},
	KindAffluxComponentID:                  {"from", "afflux"},
	KindUnknownComponentOrNotRefer:         {"from", "id"},
	KindInvalidEndpoint:                    {"from", "inlet"},
	KindReferNoOutputComponent:             {"from", "refer"},
	KindDuplicateParamName:                 {"name"},
	KindDuplicateFormName:                  {"name"},
	KindDuplicateIdentityName:              {"name"},
	KindDuplicateInteractionName:           {"name"},
	KindMismatchedLinkValueType:            {"from", "value"},
	KindWrongLinkTypeForRefer:              {"from", "inlet", "refer"},
	KindDuplicateObjectKey:                 {"from", "key"},
	KindInvalidObjectKey:                   {"from", "key"},
	KindInvalidVariantKey:                  {"from", "key"},
	KindDuplicateVariantKey:                {"from", "key"},
	KindInvalidName:                        {"from", "name"},
	KindDuplicateName:                      {"from", "name"},
	KindMismatchedInlets:                   {"from"},
	KindMismatchedOutput:                   {"from"},
	KindWrongCode:                          {"from", "code", "message"},
	KindValidateCodeFailed:                 {"from", "code", "js", "value", "message"},
	KindInvalidConfirmText:                 {"from"},
	KindMismatchedConstValue:               {"from", "output", "value"},
	KindMismatchedFormDefaultValue:         {"from", "output", "value"},
	KindMismatchedFormSuffixValue:          {"from", "value_type"},
	KindInvalidIdentityHTTPProxy:           {"from", "proxy"},
	KindNeedlessCallHTTPName:               {"from"},
	KindInvalidCallIcAPI:                   {"from"},
	KindCompileCallIcCandid:                {"from", "candid", "message"},
	KindCompileCallIcCandidTypeUnsupported: {"from", "ty"},
	KindMultipleOutput:                     nil,
	KindMismatchedCombinedMetadata:         {"from", "anchor"},
}

// Error is a structured check failure. Only the members relevant to Kind are
// meaningful.
type Error struct {
	Kind      ErrorKind
	From      ComponentID
	ID        ComponentID
	Afflux    ComponentID
	Refer     ComponentID
	Inlet     *Endpoint
	KeyRefer  *KeyRefer
	Name      string
	Key       string
	Message   string
	Candid    string
	Ty        string
	Proxy     string
	JS        string
	Anchor    string
	Code      *CodeItem
	Value     *Value
	Output    *Type
	ValueType *Type
}

func (e *Error) fields() []string {
	if f, ok := errorFields[e.Kind]; ok {
		return f
	}
	return commonFields
}

// IsCommon reports kinds that carry only {from, message}.
func (k ErrorKind) IsCommon() bool {
	_, ok := errorFields[k]
	return !ok
}

func (e *Error) Error() string {
	if e.Kind == KindMultipleOutput {
		return string(e.Kind)
	}
	if e.Kind.IsCommon() {
		return fmt.Sprintf("%s: component %d: %s", e.Kind, e.From, e.Message)
	}
	body, err := e.body()
	if err != nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s %s", e.Kind, body)
}

// Is matches any error of the same kind, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func (e *Error) member(name string) (any, bool) {
	switch name {
	case "from":
		if e.Kind == KindUnknownComponentOrNotRefer && e.From.IsZero() {
			return nil, false
		}
		return e.From, true
	case "id":
		return e.ID, true
	case "afflux":
		return e.Afflux, true
	case "refer":
		if e.Kind == KindWrongLinkTypeForRefer {
			return e.KeyRefer, true
		}
		return e.Refer, true
	case "inlet":
		return e.Inlet, true
	case "name":
		return e.Name, true
	case "key":
		return e.Key, true
	case "message":
		return e.Message, true
	case "candid":
		return e.Candid, true
	case "ty":
		return e.Ty, true
	case "proxy":
		return e.Proxy, true
	case "js":
		return e.JS, true
	case "anchor":
		return e.Anchor, true
	case "code":
		return e.Code, true
	case "value":
		return e.Value, true
	case "output":
		return e.Output, true
	case "value_type":
		return e.ValueType, true
	}
	return nil, false
}

// body renders the members of e in declaration order.
func (e *Error) body() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, name := range e.fields() {
		v, ok := e.member(name)
		if !ok {
			continue
		}
		data, err := json.MarshalNoEscape(v)
		if err != nil {
			return nil, err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key := name
		if key == "value_type" {
			key = "value"
		}
		buf.WriteString(`"` + key + `":`)
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON writes the externally tagged form: a bare string for unit kinds
// and {"Kind":{...}} otherwise.
func (e *Error) MarshalJSON() ([]byte, error) {
	if e.Kind == KindMultipleOutput {
		return json.Marshal(string(e.Kind))
	}
	body, err := e.body()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+len(e.Kind)+5)
	out = append(out, `{"`...)
	out = append(out, string(e.Kind)...)
	out = append(out, `":`...)
	out = append(out, body...)
	return append(out, '}'), nil
}

// SystemError reports an internal failure that is not the graph's fault.
func SystemError(format string, args ...any) *Error {
	return &Error{Kind: KindSystemError, Message: fmt.Sprintf(format, args...)}
}

// Common builds a {from, message} error of kind.
func Common(kind ErrorKind, from ComponentID, format string, args ...any) *Error {
	return &Error{Kind: kind, From: from, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is.
var (
	ErrSystem                     = &Error{Kind: KindSystemError}
	ErrEmptyComponents            = &Error{Kind: KindEmptyComponents}
	ErrInvalidComponentID         = &Error{Kind: KindInvalidComponentID}
	ErrDuplicateComponentID       = &Error{Kind: KindDuplicateComponentID}
	ErrCircularReference          = &Error{Kind: KindCircularReference}
	ErrAffluxComponentID          = &Error{Kind: KindAffluxComponentID}
	ErrUnknownComponentOrNotRefer = &Error{Kind: KindUnknownComponentOrNotRefer}
	ErrInvalidEndpoint            = &Error{Kind: KindInvalidEndpoint}
	ErrReferNoOutputComponent     = &Error{Kind: KindReferNoOutputComponent}
	ErrDuplicateParamName         = &Error{Kind: KindDuplicateParamName}
	ErrDuplicateFormName          = &Error{Kind: KindDuplicateFormName}
	ErrDuplicateIdentityName      = &Error{Kind: KindDuplicateIdentityName}
	ErrDuplicateInteractionName   = &Error{Kind: KindDuplicateInteractionName}
	ErrMismatchedLinkValueType    = &Error{Kind: KindMismatchedLinkValueType}
	ErrWrongLinkTypeForRefer      = &Error{Kind: KindWrongLinkTypeForRefer}
	ErrDuplicateObjectKey         = &Error{Kind: KindDuplicateObjectKey}
	ErrInvalidObjectKey           = &Error{Kind: KindInvalidObjectKey}
	ErrInvalidVariantKey          = &Error{Kind: KindInvalidVariantKey}
	ErrDuplicateVariantKey        = &Error{Kind: KindDuplicateVariantKey}
	ErrInvalidName                = &Error{Kind: KindInvalidName}
	ErrDuplicateName              = &Error{Kind: KindDuplicateName}
	ErrMismatchedInlets           = &Error{Kind: KindMismatchedInlets}
	ErrMismatchedOutput           = &Error{Kind: KindMismatchedOutput}
	ErrWrongCode                  = &Error{Kind: KindWrongCode}
	ErrValidateCodeFailed         = &Error{Kind: KindValidateCodeFailed}
	ErrMultipleOutput             = &Error{Kind: KindMultipleOutput}
	ErrMismatchedCombinedMetadata = &Error{Kind: KindMismatchedCombinedMetadata}

	ErrInvalidNamedValueType              = &Error{Kind: KindInvalidNamedValueType}
	ErrInvalidConfirmText                 = &Error{Kind: KindInvalidConfirmText}
	ErrMismatchedConstValue               = &Error{Kind: KindMismatchedConstValue}
	ErrWrongConstValue                    = &Error{Kind: KindWrongConstValue}
	ErrMismatchedFormDefaultValue         = &Error{Kind: KindMismatchedFormDefaultValue}
	ErrMismatchedFormSuffixValue          = &Error{Kind: KindMismatchedFormSuffixValue}
	ErrInvalidIdentity                    = &Error{Kind: KindInvalidIdentity}
	ErrInvalidIdentityHTTPProxy           = &Error{Kind: KindInvalidIdentityHTTPProxy}
	ErrInvalidCallTrigger                 = &Error{Kind: KindInvalidCallTrigger}
	ErrInvalidCallIdentity                = &Error{Kind: KindInvalidCallIdentity}
	ErrInvalidCallOutputType              = &Error{Kind: KindInvalidCallOutputType}
	ErrNeedlessCallHTTPName               = &Error{Kind: KindNeedlessCallHTTPName}
	ErrInvalidCallHTTPURL                 = &Error{Kind: KindInvalidCallHTTPURL}
	ErrInvalidCallIcCanisterID            = &Error{Kind: KindInvalidCallIcCanisterID}
	ErrInvalidCallIcAPI                   = &Error{Kind: KindInvalidCallIcAPI}
	ErrCompileCallIcCandid                = &Error{Kind: KindCompileCallIcCandid}
	ErrCompileCallIcCandidTypeUnsupported = &Error{Kind: KindCompileCallIcCandidTypeUnsupported}
	ErrInvalidCallIcAPIArg                = &Error{Kind: KindInvalidCallIcAPIArg}
	ErrInvalidCallIcAPIRet                = &Error{Kind: KindInvalidCallIcAPIRet}
	ErrInvalidCallEvmActionContract       = &Error{Kind: KindInvalidCallEvmActionContract}
	ErrInvalidCallEvmActionAPI            = &Error{Kind: KindInvalidCallEvmActionAPI}
	ErrInvalidCallEvmActionArg            = &Error{Kind: KindInvalidCallEvmActionArg}
	ErrInvalidCallEvmActionRet            = &Error{Kind: KindInvalidCallEvmActionRet}
	ErrInvalidCallEvmActionSign           = &Error{Kind: KindInvalidCallEvmActionSign}
	ErrInvalidCallEvmActionPayValue       = &Error{Kind: KindInvalidCallEvmActionPayValue}
	ErrInvalidCallEvmActionGasLimit       = &Error{Kind: KindInvalidCallEvmActionGasLimit}
	ErrInvalidCallEvmActionGasPrice       = &Error{Kind: KindInvalidCallEvmActionGasPrice}
	ErrInvalidCallEvmActionNonce          = &Error{Kind: KindInvalidCallEvmActionNonce}
	ErrInvalidCallEvmActionAbi            = &Error{Kind: KindInvalidCallEvmActionAbi}
	ErrInvalidCallEvmActionBytecode       = &Error{Kind: KindInvalidCallEvmActionBytecode}
	ErrInvalidCallEvmActionTransferTo     = &Error{Kind: KindInvalidCallEvmActionTransferTo}
	ErrInvalidCallEvmActionOutput         = &Error{Kind: KindInvalidCallEvmActionOutput}
	ErrInvalidInteractionComponent        = &Error{Kind: KindInvalidInteractionComponent}
	ErrInvalidViewComponent               = &Error{Kind: KindInvalidViewComponent}
	ErrInvalidCondition                   = &Error{Kind: KindInvalidCondition}
)

// KindOf returns the kind of a check error, or "" for other errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
