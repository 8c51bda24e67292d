// Package validation provides custom validation rules for the application.
package validation

import (
	"strings"

	validation "github.com/jellydator/validation"
	"github.com/shopspring/decimal"

	apperrors "github.com/allisson/orderflow/internal/errors"
)

// maxPrice is the exclusive upper bound of a DECIMAL(10,2) column.
var maxPrice = decimal.New(1, 8)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Money validates a non-negative decimal that fits DECIMAL(10,2).
var Money = validation.By(func(value interface{}) error {
	var d decimal.Decimal
	switch v := value.(type) {
	case decimal.Decimal:
		d = v
	case *decimal.Decimal:
		if v == nil {
			return nil
		}
		d = *v
	default:
		return validation.NewError("validation_money_type", "must be a decimal")
	}

	if d.IsNegative() {
		return validation.NewError("validation_money_negative", "must be greater than or equal to 0")
	}
	if d.GreaterThanOrEqual(maxPrice) {
		return validation.NewError("validation_money_range", "must be less than 100000000")
	}
	if !d.Equal(d.Truncate(2)) {
		return validation.NewError("validation_money_scale", "must have at most 2 decimal places")
	}
	return nil
})

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// PrintableASCII validates opaque client tokens such as idempotency keys.
var PrintableASCII = validation.NewStringRuleWithError(
	func(s string) bool {
		for i := 0; i < len(s); i++ {
			if s[i] < 0x21 || s[i] > 0x7e {
				return false
			}
		}
		return true
	},
	validation.NewError("validation_printable_ascii", "must contain only printable ASCII characters"),
)
