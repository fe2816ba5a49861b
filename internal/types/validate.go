package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/easeaico/memorify/internal/apperr"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags of v and returns a validation error naming the offending fields.
func Validate(op string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fmt.Sprintf("%s(%s=%v)", fe.Field(), fe.Tag(), fe.Value()))
		}
		return apperr.Errorf(apperr.KindValidation, op, "invalid fields: %s", strings.Join(fields, ", "))
	}
	return apperr.E(apperr.KindValidation, op, err)
}
