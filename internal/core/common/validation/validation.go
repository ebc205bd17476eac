package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/wallet-payments/internal"
	"github.com/frahmantamala/wallet-payments/internal/core/datamodel/paymentgateway"
)

type ValidatorFunc func(interface{}) *errors.AppError

type FieldValidator struct {
	FieldName  string
	Value      interface{}
	Validators []ValidatorFunc
}

type ValidationBuilder struct {
	fields []FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{
		fields: make([]FieldValidator, 0),
	}
}

func (v *ValidationBuilder) Field(name string, value interface{}) *FieldValidator {
	fv := FieldValidator{
		FieldName:  name,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	}
	v.fields = append(v.fields, fv)
	return &v.fields[len(v.fields)-1]
}

func (fv *FieldValidator) Required() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s is required", fv.FieldName), errors.ErrCodeValidationFailed)
			}
		case decimal.Decimal:
			if v.IsZero() {
				return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s is required", fv.FieldName), errors.ErrCodeValidationFailed)
			}
		}
		return nil
	})
	return fv
}

// MinDecimal rejects values below min (inclusive bound).
func (fv *FieldValidator) MinDecimal(min decimal.Decimal, message string, code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(decimal.Decimal); ok && v.LessThan(min) {
			return errors.NewValidationFieldError(fv.FieldName, message, code)
		}
		return nil
	})
	return fv
}

// Positive rejects zero and negative values.
func (fv *FieldValidator) Positive(message string, code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(decimal.Decimal); ok && !v.IsPositive() {
			return errors.NewValidationFieldError(fv.FieldName, message, code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) NonZero(message string, code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(decimal.Decimal); ok && v.IsZero() {
			return errors.NewValidationFieldError(fv.FieldName, message, code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxLength(max int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(string); ok {
			if len(v) > max {
				message := fmt.Sprintf("%s must not exceed %d characters", fv.FieldName, max)
				return errors.NewValidationFieldError(fv.FieldName, message, errors.ErrCodeValidationFailed)
			}
		}
		return nil
	})
	return fv
}

// Matches applies a regular expression to non-empty string values.
func (fv *FieldValidator) Matches(re *regexp.Regexp, message string, code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(string); ok && v != "" && !re.MatchString(v) {
			return errors.NewValidationFieldError(fv.FieldName, message, code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Custom(validator func(interface{}) *errors.AppError) *FieldValidator {
	fv.Validators = append(fv.Validators, validator)
	return fv
}

func (v *ValidationBuilder) Validate() *errors.AppError {
	var validationErrors []errors.ValidationError

	for _, field := range v.fields {
		for _, validator := range field.Validators {
			appErr := validator(field.Value)
			if appErr == nil {
				continue
			}

			if details, ok := appErr.Details.(errors.ValidationErrors); ok {
				validationErrors = append(validationErrors, details.Errors...)
			} else {
				validationErrors = append(validationErrors, errors.ValidationError{
					Field:   field.FieldName,
					Message: appErr.Message,
					Code:    string(appErr.Code),
				})
			}
			// first failure per field is enough
			break
		}
	}

	if len(validationErrors) > 0 {
		return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
			WithDetails(errors.ValidationErrors{Errors: validationErrors})
	}

	return nil
}

var (
	gatewayAMinimum = decimal.NewFromInt(1)

	ifscPattern       = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	cardNumberPattern = regexp.MustCompile(`^[0-9]{12,19}$`)
)

// ValidateGatewayAmount is the pre-network amount check: Gateway A needs at least one
// currency unit, Gateway B anything above zero.
func ValidateGatewayAmount(amount decimal.Decimal, gatewayID paymentgateway.GatewayID) *errors.AppError {
	validator := NewValidator()
	field := validator.Field("amount", amount)

	switch gatewayID {
	case paymentgateway.GatewayA:
		field.MinDecimal(gatewayAMinimum, "Invalid amount", errors.ErrCodeInvalidAmount)
	case paymentgateway.GatewayB:
		field.Positive("Invalid amount", errors.ErrCodeInvalidAmount)
	default:
		return errors.ErrInvalidGateway
	}
	return validator.Validate()
}

func ValidateIFSC(ifsc string) *errors.AppError {
	validator := NewValidator()
	validator.Field("ifsc", strings.ToUpper(ifsc)).
		Required().
		Matches(ifscPattern, "ifsc must be 11 characters like ABCD0123456", errors.ErrCodeInvalidBankCard)
	return validator.Validate()
}

func ValidateCardNumber(cardNumber string) *errors.AppError {
	validator := NewValidator()
	validator.Field("card_number", NormalizeCardNumber(cardNumber)).
		Required().
		Matches(cardNumberPattern, "card_number must be 12 to 19 digits", errors.ErrCodeInvalidBankCard)
	return validator.Validate()
}

// NormalizeCardNumber strips the spaces and dashes people type between digit groups.
func NormalizeCardNumber(cardNumber string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(cardNumber)
}

// MaskCardNumber keeps only the last four digits, for logs and echoes.
func MaskCardNumber(cardNumber string) string {
	n := NormalizeCardNumber(cardNumber)
	if len(n) <= 4 {
		return strings.Repeat("*", len(n))
	}
	return strings.Repeat("*", len(n)-4) + n[len(n)-4:]
}
