package usecase

import (
	"errors"
	"fmt"
	"net/http"

	repo "stocknet/internal/repository"
)

// エラーの種類。errors.Isで判定する。
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrStateConflict = errors.New("state conflict")
	ErrConfiguration = errors.New("configuration error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInternal      = errors.New("internal error")
)

type HTTPError struct {
	Status  int
	Message string
	Kind    error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Kind
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
		Kind:    kindFromStatus(status),
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func kindFromStatus(status int) error {
	switch status {
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrStateConflict
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	default:
		return ErrInternal
	}
}

func validationError(message string) error {
	return NewHTTPError(http.StatusBadRequest, message)
}

func notFoundError(message string) error {
	return NewHTTPError(http.StatusNotFound, message)
}

func conflictError(message string) error {
	return NewHTTPError(http.StatusConflict, message)
}

// MAIN倉庫が無いなど、設定の問題（500）
func configurationError(message string) error {
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Message: message,
		Kind:    ErrConfiguration,
	}
}

func dbError() error {
	return NewHTTPError(http.StatusInternalServerError, "db error")
}

// 既にHTTPErrorならそのまま、それ以外はdb error
func wrapRepoError(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	if errors.Is(err, repo.ErrNotFound) {
		return notFoundError(notFoundMsg)
	}
	return dbError()
}
