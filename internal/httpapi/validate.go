package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// RE2 has no lookahead, so the password policy is checked by hand.
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return strongPassword(fl.Field().String())
	})
	return v
}

// strongPassword requires lowercase, uppercase, a digit and one of
// @$!%*?& in at least eight characters.
func strongPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune("@$!%*?&", r):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}

// validateStruct runs the tag rules and flattens the first failure into
// a client-facing message.
func validateStruct(v any) (string, bool) {
	err := validate.Struct(v)
	if err == nil {
		return "", true
	}
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) || len(invalid) == 0 {
		return "invalid request", false
	}
	fe := invalid[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field), false
	case "email":
		return "invalid email format", false
	case "strongpassword":
		return "password must be at least 8 characters and include uppercase, lowercase, number, and special character", false
	case "min", "max":
		return fmt.Sprintf("%s length is out of range", field), false
	default:
		return fmt.Sprintf("%s is invalid", field), false
	}
}
