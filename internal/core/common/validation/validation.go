// Package validation wraps go-playground/validator and converts its failures
// into field-level AppErrors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wordaddict/finance-sub001/internal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("notblank", notBlank)
	return v
}

// notBlank rejects strings that are empty after trimming whitespace.
func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.String:
		return strings.TrimSpace(field.String()) != ""
	case reflect.Ptr:
		if field.IsNil() {
			return false
		}
		elem := field.Elem()
		return elem.Kind() != reflect.String || strings.TrimSpace(elem.String()) != ""
	}
	return true
}

// Struct validates dest and returns nil or a validation AppError listing each failing field.
func Struct(dest any) *internal.AppError {
	err := validate.Struct(dest)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return internal.NewValidationError("validation failed", internal.ErrCodeValidationFailed).WithCause(err)
	}

	details := internal.ValidationErrors{Errors: make([]internal.ValidationError, 0, len(errs))}
	for _, fe := range errs {
		details.Errors = append(details.Errors, internal.ValidationError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("%s %s", fe.Field(), message(fe)),
			Code:    string(codeFor(fe)),
		})
	}
	return internal.NewValidationError(details.Errors[0].Message, internal.ErrCodeValidationFailed).WithDetails(details)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "uuid", "uuid4":
		return "must be a valid id"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "url":
		return "must be a valid URL"
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must contain only digits"
	}
	return "is invalid"
}

func codeFor(fe validator.FieldError) internal.ErrorCode {
	switch fe.Tag() {
	case "notblank":
		if strings.Contains(strings.ToLower(fe.Field()), "comment") || strings.Contains(strings.ToLower(fe.Field()), "reason") {
			return internal.ErrCodeCommentRequired
		}
	case "gt", "gte":
		if strings.Contains(strings.ToLower(fe.Field()), "amount") {
			return internal.ErrCodeInvalidAmount
		}
	}
	return internal.ErrCodeValidationFailed
}
