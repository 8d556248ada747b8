package contract

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorCode classifies every failure the control plane can surface.
type ErrorCode string

const (
	ErrorCodeBadRequest       ErrorCode = "BAD_REQUEST"
	ErrorCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrorCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrorCodeDuplicateVersion ErrorCode = "DUPLICATE_VERSION"
	ErrorCodeProtectedVersion ErrorCode = "PROTECTED_VERSION"
	ErrorCodeNoRollbackTarget ErrorCode = "NO_ROLLBACK_TARGET"
	ErrorCodeAlreadyRecorded  ErrorCode = "ALREADY_RECORDED"
	ErrorCodeInsufficientData ErrorCode = "INSUFFICIENT_DATA"
	ErrorCodeTrainingFailed   ErrorCode = "TRAINING_FAILED"
	ErrorCodeStorage          ErrorCode = "STORAGE_ERROR"
	ErrorCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code    ErrorCode `json:"error_code"`
	Message string    `json:"message"`
	inner   error
}

func NewError(code ErrorCode, format string, a ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, a...)}
}

func NewErrorWith(code ErrorCode, err error, format string, a ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, a...), inner: err}
}

func (e *Error) Error() string {
	if e.inner != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.inner)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.inner
}

// StatusCode maps the error taxonomy onto HTTP status codes. InsufficientData
// is not an HTTP failure: a statistical "not enough evidence" verdict is a
// valid outcome, so it reports as 200 with the error body as the decision.
func (e *Error) StatusCode() int {
	switch e.Code {
	case ErrorCodeNotFound:
		return fiber.StatusNotFound
	case ErrorCodeBadRequest, ErrorCodeValidation, ErrorCodeDuplicateVersion,
		ErrorCodeProtectedVersion, ErrorCodeNoRollbackTarget, ErrorCodeAlreadyRecorded:
		return fiber.StatusBadRequest
	case ErrorCodeInsufficientData:
		return fiber.StatusOK
	default:
		return fiber.StatusInternalServerError
	}
}
