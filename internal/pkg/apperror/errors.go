package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeCircularReference ErrorCode = "CIRCULAR_REFERENCE"
	ErrCodeUnavailable       ErrorCode = "UNAVAILABLE"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Validation - некорректные или отсутствующие входные данные.
func Validation(format string, args ...any) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf(format, args...))
}

// NotFound - ссылка на несуществующую сущность.
func NotFound(format string, args ...any) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf(format, args...))
}

// Conflict - нарушено ограничение уникальности или структуры.
func Conflict(format string, args ...any) *AppError {
	return New(ErrCodeConflict, fmt.Sprintf(format, args...))
}

// CircularReference - частный случай ошибки валидации: цикл в иерархии.
func CircularReference(format string, args ...any) *AppError {
	return New(ErrCodeCircularReference, fmt.Sprintf(format, args...))
}

func Forbidden(format string, args ...any) *AppError {
	return New(ErrCodeForbidden, fmt.Sprintf(format, args...))
}

func Unauthorized(format string, args ...any) *AppError {
	return New(ErrCodeUnauthorized, fmt.Sprintf(format, args...))
}

// Unavailable - внешний вызов не уложился в таймаут, запрос можно повторить.
func Unavailable(err error) *AppError {
	return Wrap(err, ErrCodeUnavailable, "сервис временно недоступен, повторите запрос")
}

// Internal оборачивает неожиданную ошибку. Детали остаются только в Cause.
func Internal(err error) *AppError {
	return Wrap(err, ErrCodeInternal, "внутренняя ошибка сервера")
}

// FromStore переводит ошибку хранилища в AppError: таймаут становится
// Unavailable, уже типизированные ошибки возвращаются как есть.
func FromStore(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Unavailable(err)
	}
	return Internal(err)
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeValidation, ErrCodeCircularReference:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или ErrCodeInternal для нетипизированных ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	return CodeOf(err) == ErrCodeForbidden
}

func IsConflict(err error) bool {
	return CodeOf(err) == ErrCodeConflict
}

// IsValidation истинна и для CircularReference, так как это её частный случай.
func IsValidation(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeValidation || code == ErrCodeCircularReference
}

func IsCircularReference(err error) bool {
	return CodeOf(err) == ErrCodeCircularReference
}

var (
	ErrUserNotFound       = New(ErrCodeNotFound, "пользователь не найден")
	ErrCategoryNotFound   = New(ErrCodeNotFound, "категория не найдена")
	ErrServiceNotFound    = New(ErrCodeNotFound, "услуга не найдена")
	ErrReviewNotFound     = New(ErrCodeNotFound, "отзыв не найден")
	ErrUnauthorized       = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden          = New(ErrCodeForbidden, "недостаточно прав")
	ErrInvalidCredentials = New(ErrCodeUnauthorized, "неверные учетные данные")
	ErrEmptyPatch         = New(ErrCodeValidation, "нужно указать хотя бы одно поле для обновления")
)
