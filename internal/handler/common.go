package handler

import (
	"net/http"
	"strconv"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// ミドルウェアが入れた値から呼び出し元を作る。未ログインなら空。
func actorFrom(c echo.Context) usecase.Actor {
	uid, _ := c.Get(middleware.CtxUserIDKey).(string)
	role, _ := c.Get(middleware.CtxUserRoleKey).(string)
	return usecase.Actor{UserID: uid, Role: model.Role(role)}
}

// ルート登録に使うミドルウェアの組
type Guards struct {
	// AuthJWT → TokenVersionGuard
	Auth []echo.MiddlewareFunc
	// Auth → AdminRoleGuard
	Admin []echo.MiddlewareFunc
	// ログインしていれば認証情報をセット
	Optional echo.MiddlewareFunc
}

func NewGuards(jwtSecret string, users repository.UserRepository) Guards {
	auth := []echo.MiddlewareFunc{
		middleware.AuthJWT(jwtSecret),
		middleware.TokenVersionGuard(users),
	}
	return Guards{
		Auth:     auth,
		Admin:    append(append([]echo.MiddlewareFunc{}, auth...), middleware.AdminRoleGuard()),
		Optional: middleware.OptionalAuth(jwtSecret, users),
	}
}

// page（default 1）、limit（default def）
func pageParams(c echo.Context, def int) (int, int, error) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	limit, err := queryInt(c, "limit", def)
	if err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}

func queryInt64Ptr(c echo.Context, name string) (*int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &n, nil
}

func queryBoolPtr(c echo.Context, name string) (*bool, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &b, nil
}

// RFC3339 または 2006-01-02
func queryTimePtr(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	if tm, err := time.Parse(time.RFC3339, v); err == nil {
		return &tm, nil
	}
	tm, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &tm, nil
}
