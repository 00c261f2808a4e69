package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/coursepay/infra/config"
	"github.com/mstgnz/coursepay/provider"
)

// CustomValidate registers the checkout-specific tags on the shared validator:
//
//	phone    10 to 15 digits, optional leading "+", spaces and dashes ignored
//	gateway  one of the supported payment gateways, case-insensitive
func CustomValidate() *validator.Validate {
	v := config.App().Validator

	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return provider.IsValidPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("gateway", func(fl validator.FieldLevel) bool {
		_, err := provider.ParseGateway(fl.Field().String())
		return err == nil
	})

	return v
}

// Struct validates s and turns the first failure into a message that can be
// shown to the client.
func Struct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return errors.New(message(verrs[0]))
}

func message(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	customer := strings.Contains(fe.Namespace(), "Customer.")

	switch fe.Tag() {
	case "required":
		if customer {
			return "Customer details (name, email, phone) are required"
		}
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Invalid customer email"
	case "phone":
		return "Invalid customer phone"
	case "gateway":
		return "Unsupported gateway"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
