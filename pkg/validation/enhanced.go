package validation

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/easydapp/jelly-packages/internal/core/anchor"
	"github.com/easydapp/jelly-packages/pkg/principal"
)

var engine = newEngine()

func newEngine() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "yaml"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	must(v.RegisterValidation("principal", validatePrincipal))
	must(v.RegisterValidation("anchor", validateAnchor))
	must(v.RegisterValidation("aes_key", validateAESKey))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// validatePrincipal accepts the text form of an IC principal, such as a
// canister id.
func validatePrincipal(fl validator.FieldLevel) bool {
	return principal.IsValid(fl.Field().String())
}

// validateAnchor accepts an anchor of the kinds named by the tag parameter
// ("code api combined publisher", space separated), or of any kind.
func validateAnchor(fl validator.FieldLevel) bool {
	text := fl.Field().String()
	kinds := strings.Fields(fl.Param())
	if len(kinds) == 0 {
		kinds = []string{string(anchor.KindCode), string(anchor.KindAPI), string(anchor.KindCombined), string(anchor.KindPublisher)}
	}
	for _, kind := range kinds {
		var err error
		switch anchor.Kind(kind) {
		case anchor.KindCode:
			_, err = anchor.Code(text).Parse()
		case anchor.KindAPI:
			_, err = anchor.API(text).Parse()
		case anchor.KindCombined:
			_, err = anchor.Combined(text).Parse()
		case anchor.KindPublisher:
			_, err = anchor.Publisher(text).Parse()
		default:
			continue
		}
		if err == nil {
			return true
		}
	}
	return false
}

// validateAESKey accepts hex text of 16, 24 or 32 bytes.
func validateAESKey(fl validator.FieldLevel) bool {
	key, err := hex.DecodeString(fl.Field().String())
	if err != nil {
		return false
	}
	switch len(key) {
	case 16, 24, 32:
		return true
	}
	return false
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "required_if":
		return "field is required when " + fe.Param()
	case "min":
		return fmt.Sprintf("minimum value/length is %s", fe.Param())
	case "max":
		return fmt.Sprintf("maximum value/length is %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "hostname_port":
		return "must be host:port"
	case "principal":
		return "must be a principal text"
	case "aes_key":
		return "must be a hex AES-128, AES-192 or AES-256 key"
	case "anchor":
		if fe.Param() != "" {
			return fmt.Sprintf("must be a %s anchor", fe.Param())
		}
		return "must be an anchor"
	}
	return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
}
