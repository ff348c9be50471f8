package middleware

import (
	"context"
	"net/http"

	"storefront/internal/repository"

	"github.com/labstack/echo/v4"
)

// JWTのtvとDBのtoken_versionの一致するか確認。停止ユーザーも弾く。
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(CtxUserIDKey).(string)
			if !ok || userID == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if !tokenVersionMatches(c.Request().Context(), userRepo, userID, tv) {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			return next(c)
		}
	}
}

//token_version が一致しなければ強制ログアウト扱い（401）
func tokenVersionMatches(ctx context.Context, users repository.UserRepository, userID string, tv int) bool {
	user, err := users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return false
	}
	return user.TokenVersion == tv && user.IsActive
}
