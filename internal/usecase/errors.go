package usecase

import (
	"errors"
	"fmt"
	"net/http"

	repo "storefront/internal/repository"
)

// handlerでそのままステータスとメッセージに変換する
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

var (
	errUnauthorized = NewHTTPError(http.StatusUnauthorized, "unauthorized")
	errForbidden    = NewHTTPError(http.StatusForbidden, "forbidden")
	errNotFound     = NewHTTPError(http.StatusNotFound, "not found")
	errDB           = NewHTTPError(http.StatusInternalServerError, "db error")
)

func badRequest(msg string) error {
	return NewHTTPError(http.StatusBadRequest, msg)
}

// repoのエラーを404/409/500に寄せる
func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return errNotFound
	case errors.Is(err, repo.ErrConflict):
		return NewHTTPError(http.StatusConflict, "conflict")
	}
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	return errDB
}

func validatePaging(page, limit int) error {
	if page < 1 {
		return badRequest("invalid page")
	}
	if limit < 1 || limit > 100 {
		return badRequest("invalid limit")
	}
	return nil
}

// 未ログイン401、一般ユーザー403
func requireAdmin(actor Actor) error {
	if !actor.Authenticated() {
		return errUnauthorized
	}
	if !actor.IsAdmin() {
		return errForbidden
	}
	return nil
}
