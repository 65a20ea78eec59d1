package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 应用级错误码
type ErrorCode int

const (
	CodeInternal ErrorCode = 1000 + iota
	CodeDatabase
	CodeExternalService
)

const (
	CodeUnauthorized ErrorCode = 2000 + iota
	CodeForbidden
	CodeInvalidCredentials
)

const (
	CodeBadRequest ErrorCode = 3000 + iota
	CodeEmptyContent
	CodeSelfFollow
	CodeNotFound
	CodeDuplicateUsername
	CodeDuplicateEmail
)

type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches two AppErrors by code so wrapped instances compare against
// the sentinels below with errors.Is.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

var (
	ErrDuplicateUsername = New(CodeDuplicateUsername, "username already exists")
	ErrDuplicateEmail    = New(CodeDuplicateEmail, "email already exists")
	ErrInvalidCredentials = New(CodeInvalidCredentials, "invalid username or password")
	ErrEmptyContent      = New(CodeEmptyContent, "content is empty")
	ErrNotFound          = New(CodeNotFound, "resource not found")
	ErrSelfFollow        = New(CodeSelfFollow, "cannot follow yourself")
	ErrExternalService   = New(CodeExternalService, "external service unavailable")
	ErrUnauthorized      = New(CodeUnauthorized, "authentication required")
	ErrForbidden         = New(CodeForbidden, "permission denied")
)

// HTTPStatus maps an error to the status the gin boundary should answer
// with. Anything that is not an AppError is an internal failure.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeUnauthorized, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateUsername, CodeDuplicateEmail:
		return http.StatusConflict
	case CodeBadRequest, CodeEmptyContent, CodeSelfFollow:
		return http.StatusBadRequest
	case CodeExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-visible message for an error, hiding internal
// detail for anything untyped.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
