package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeGone         ErrorType = "GONE"
	ErrorTypeRateLimited  ErrorType = "RATE_LIMITED"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidBody      ErrorCode = "INVALID_BODY"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeCommentRequired  ErrorCode = "COMMENT_REQUIRED"

	ErrCodeExpenseNotFound       ErrorCode = "EXPENSE_NOT_FOUND"
	ErrCodeExpenseItemNotFound   ErrorCode = "EXPENSE_ITEM_NOT_FOUND"
	ErrCodeInvalidExpenseStatus  ErrorCode = "INVALID_EXPENSE_STATUS"
	ErrCodeExpenseAlreadyPaid    ErrorCode = "EXPENSE_ALREADY_PAID"
	ErrCodeExpenseClosed         ErrorCode = "EXPENSE_CLOSED"
	ErrCodeApprovalNotFound      ErrorCode = "APPROVAL_NOT_FOUND"
	ErrCodeReportNotFound        ErrorCode = "REPORT_NOT_FOUND"
	ErrCodeInvalidReportStatus   ErrorCode = "INVALID_REPORT_STATUS"
	ErrCodeReportNotAllowed      ErrorCode = "REPORT_NOT_ALLOWED"
	ErrCodeWishlistItemNotFound  ErrorCode = "WISHLIST_ITEM_NOT_FOUND"
	ErrCodeWishlistItemInactive  ErrorCode = "WISHLIST_ITEM_INACTIVE"
	ErrCodeContributionsDisabled ErrorCode = "CONTRIBUTIONS_DISABLED"
	ErrCodeQuantityExceeded      ErrorCode = "QUANTITY_EXCEEDED"
	ErrCodeEndpointGone          ErrorCode = "ENDPOINT_GONE"
	ErrCodeCategoryNotFound      ErrorCode = "CATEGORY_NOT_FOUND"
	ErrCodeCategoryExists        ErrorCode = "CATEGORY_EXISTS"
	ErrCodeUnknownCategory       ErrorCode = "UNKNOWN_CATEGORY"

	ErrCodeUnauthenticated    ErrorCode = "UNAUTHENTICATED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeAccountPending     ErrorCode = "ACCOUNT_PENDING_APPROVAL"
	ErrCodeAccountSuspended   ErrorCode = "ACCOUNT_SUSPENDED"
	ErrCodePasswordNotSet     ErrorCode = "PASSWORD_NOT_SET"
	ErrCodeEmailTaken         ErrorCode = "EMAIL_TAKEN"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeTokenUsed          ErrorCode = "TOKEN_ALREADY_USED"
	ErrCodeInvalidCode        ErrorCode = "INVALID_CODE"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"

	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodeInvalidUserStatus  ErrorCode = "INVALID_USER_STATUS"
	ErrCodeSelfModification   ErrorCode = "SELF_MODIFICATION"
	ErrCodeNotificationFailed ErrorCode = "NOTIFICATION_FAILED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on code so package sentinels survive WithCause copies.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Type == t.Type
}

// WithCause returns a copy so shared sentinels are never mutated.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewConflictError reports a state precondition failure; it maps to 400.
func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewGoneError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeGone,
		Code:       ErrCodeEndpointGone,
		Message:    message,
		StatusCode: http.StatusGone,
	}
}

func NewRateLimitedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimited,
		Code:       ErrCodeRateLimited,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
	}
}

func NewExternalError(message string, code ErrorCode, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

var (
	ErrUnauthenticated = NewUnauthorizedError("authentication required", ErrCodeUnauthenticated)
	ErrForbidden       = NewForbiddenError("you do not have permission to perform this action", ErrCodeForbidden)

	ErrInvalidCredentials = NewUnauthorizedError("invalid email or password", ErrCodeInvalidCredentials)
	ErrAccountPending     = NewForbiddenError("account is awaiting approval", ErrCodeAccountPending)
	ErrAccountSuspended   = NewForbiddenError("account is suspended", ErrCodeAccountSuspended)
	ErrInvalidToken       = NewValidationError("invalid or unknown token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewValidationError("token has expired", ErrCodeTokenExpired)
	ErrTokenUsed          = NewValidationError("token already used", ErrCodeTokenUsed)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, e
}

// MarshalJSON renders the flat error body: {"error": message, "code": ..., "details": ...}.
func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error   string      `json:"error"`
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Details interface{} `json:"details,omitempty"`
	}{
		Error:   e.Message,
		Type:    e.Type,
		Code:    e.Code,
		Details: e.Details,
	})
}
