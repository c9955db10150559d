package errors

import (
	stderrors "errors"

	validation "github.com/go-ozzo/ozzo-validation"
)

// As returns the AppError wrapped in err, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromValidation converts ozzo-validation output into a validation AppError
// with one detail entry per failing field.
func FromValidation(message string, err error) *AppError {
	var fieldErrs validation.Errors
	if stderrors.As(err, &fieldErrs) {
		details := make(map[string]interface{}, len(fieldErrs))
		for field, fieldErr := range fieldErrs {
			if fieldErr != nil {
				details[field] = fieldErr.Error()
			}
		}
		return NewValidationError(message, details)
	}
	return NewValidationError(message, map[string]interface{}{"error": err.Error()})
}
