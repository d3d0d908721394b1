package stockledger

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/xraph/stockledger/transaction"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank) //nolint:errcheck // static tag registration

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs tag validation and converts the first failure to a
// ValidationError.
func (l *Ledger) validateStruct(v any) error {
	err := l.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return ValidationError{Field: "input", Message: err.Error()}
	}
	return fieldError(fieldErrs[0])
}

func fieldError(fe validator.FieldError) ValidationError {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return ValidationError{Field: field, Message: "must not be blank"}
	case "max":
		return ValidationError{Field: field, Message: fmt.Sprintf("must be at most %s characters", fe.Param())}
	case "gte":
		return ValidationError{Field: field, Message: fmt.Sprintf("must be at least %s", fe.Param())}
	default:
		return ValidationError{Field: field, Message: fmt.Sprintf("failed %q validation", fe.Tag())}
	}
}

// validateMovement applies the common entry-point checks for a movement of
// type typ: field limits, performer, and the quantity sign.
func (l *Ledger) validateMovement(m Movement, typ transaction.Type) error {
	if err := l.validateStruct(m); err != nil {
		return err
	}
	return validateQuantity(m.Quantity, typ)
}

// validateQuantity requires a strictly positive quantity, or a non-zero one
// for adjustments.
func validateQuantity(qty int64, typ transaction.Type) error {
	if typ == transaction.TypeAdjustment {
		if qty == 0 {
			return ValidationError{Field: "quantity", Message: "adjustment must be non-zero"}
		}
		return nil
	}
	if qty <= 0 {
		return ValidationError{Field: "quantity", Message: "must be positive"}
	}
	return nil
}

func (l *Ledger) validatePerformer(performedBy string) error {
	if err := l.validate.Var(performedBy, "required,notblank"); err != nil {
		return ValidationError{Field: "performed_by", Message: "must not be blank"}
	}
	return nil
}
