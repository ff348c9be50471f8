package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/middleware"
	"storefront/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "test-secret"

// =====================
// レスポンス確認用
// =====================

type mwErrorResponse struct {
	Error string `json:"error"`
}

type mwOKResponse struct {
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
}

// =====================
// UserRepository モック
// =====================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) IncrementTokenVersion(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

// =====================
// helper
// =====================

func mustMakeJWT(t *testing.T, secret string, sub string, role string, tv int, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"tv":   tv,
		"iat":  1,
		"exp":  9999999999,
	})
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return s
}

func runRequest(t *testing.T, e *echo.Echo, path string, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeMWError(t *testing.T, rec *httptest.ResponseRecorder) mwErrorResponse {
	t.Helper()
	var r mwErrorResponse
	_ = json.NewDecoder(rec.Body).Decode(&r)
	return r
}

func echoClaims(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserIDKey).(string)
	role, _ := c.Get(middleware.CtxUserRoleKey).(string)
	tv, _ := c.Get(middleware.CtxTokenVersionKey).(int)
	return c.JSON(http.StatusOK, mwOKResponse{UserID: userID, Role: role, TokenVersion: tv})
}

func ok(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
}

// =====================
// AuthJWT
// =====================

func TestAuthJWT_Unauthorized(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"bad scheme", "Token abc.def.ghi"},
		{"empty bearer", "Bearer "},
		{"bad signature", "Bearer " + mustMakeJWT(t, "wrong-secret", "u1", "USER", 0, jwt.SigningMethodHS256)},
		{"wrong alg", "Bearer " + mustMakeJWT(t, testSecret, "u1", "USER", 0, jwt.SigningMethodHS512)},
		{"missing sub", "Bearer " + mustMakeJWT(t, testSecret, "", "USER", 0, jwt.SigningMethodHS256)},
		{"negative tv", "Bearer " + mustMakeJWT(t, testSecret, "u1", "USER", -1, jwt.SigningMethodHS256)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/protected", ok, middleware.AuthJWT(testSecret))

			rec := runRequest(t, e, "/protected", tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "unauthorized", decodeMWError(t, rec).Error)
		})
	}
}

// 正常：ctxに値が入る
func TestAuthJWT_Success_SetsContext(t *testing.T) {
	e := echo.New()
	raw := mustMakeJWT(t, testSecret, "5b0c3f8e-1111-4c1a-9a0e-000000000123", "USER", 7, jwt.SigningMethodHS256)
	e.GET("/protected", echoClaims, middleware.AuthJWT(testSecret))

	rec := runRequest(t, e, "/protected", "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	_ = json.NewDecoder(rec.Body).Decode(&body)
	assert.Equal(t, "5b0c3f8e-1111-4c1a-9a0e-000000000123", body.UserID)
	assert.Equal(t, "USER", body.Role)
	assert.Equal(t, 7, body.TokenVersion)
}

// =====================
// OptionalAuth
// =====================

func TestOptionalAuth_NoHeader_PassesThrough(t *testing.T) {
	e := echo.New()
	users := new(mockUserRepo)
	e.GET("/public", echoClaims, middleware.OptionalAuth(testSecret, users))

	rec := runRequest(t, e, "/public", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	_ = json.NewDecoder(rec.Body).Decode(&body)
	assert.Empty(t, body.UserID)
	users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestOptionalAuth_InvalidToken_Unauthorized(t *testing.T) {
	e := echo.New()
	e.GET("/public", echoClaims, middleware.OptionalAuth(testSecret, new(mockUserRepo)))

	rec := runRequest(t, e, "/public", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuth_ValidToken_SetsContext(t *testing.T) {
	e := echo.New()
	users := new(mockUserRepo)
	users.On("FindByID", mock.Anything, "admin-1").
		Return(&model.User{ID: "admin-1", Role: model.RoleAdmin, TokenVersion: 2, IsActive: true}, nil)
	e.GET("/public", echoClaims, middleware.OptionalAuth(testSecret, users))

	raw := mustMakeJWT(t, testSecret, "admin-1", "ADMIN", 2, jwt.SigningMethodHS256)
	rec := runRequest(t, e, "/public", "Bearer "+raw)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	_ = json.NewDecoder(rec.Body).Decode(&body)
	assert.Equal(t, "admin-1", body.UserID)
	assert.Equal(t, "ADMIN", body.Role)
	users.AssertExpectations(t)
}

// =====================
// TokenVersionGuard
// =====================

// AuthJWT無しでGuardだけ => 401
func TestTokenVersionGuard_MissingContext(t *testing.T) {
	e := echo.New()
	e.GET("/protected", ok, middleware.TokenVersionGuard(new(mockUserRepo)))

	rec := runRequest(t, e, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenVersionGuard(t *testing.T) {
	tests := []struct {
		name     string
		dbTV     int
		active   bool
		wantCode int
	}{
		{"match", 5, true, http.StatusOK},
		{"mismatch after force logout", 6, true, http.StatusUnauthorized},
		{"inactive user", 5, false, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			users := new(mockUserRepo)
			users.On("FindByID", mock.Anything, "u1").
				Return(&model.User{ID: "u1", Role: model.RoleUser, TokenVersion: tt.dbTV, IsActive: tt.active}, nil)
			e.GET("/protected", ok, middleware.AuthJWT(testSecret), middleware.TokenVersionGuard(users))

			raw := mustMakeJWT(t, testSecret, "u1", "USER", 5, jwt.SigningMethodHS256)
			rec := runRequest(t, e, "/protected", "Bearer "+raw)
			assert.Equal(t, tt.wantCode, rec.Code)
			users.AssertExpectations(t)
		})
	}
}

// =====================
// AdminRoleGuard
// =====================

func TestAdminRoleGuard(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		wantCode int
	}{
		{"admin", "ADMIN", http.StatusOK},
		{"user", "USER", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/admin", ok, middleware.AuthJWT(testSecret), middleware.AdminRoleGuard())

			raw := mustMakeJWT(t, testSecret, "u1", tt.role, 0, jwt.SigningMethodHS256)
			rec := runRequest(t, e, "/admin", "Bearer "+raw)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestAdminRoleGuard_NoRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", ok, middleware.AdminRoleGuard())

	rec := runRequest(t, e, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =====================
// RequestLogger
// =====================

func TestRequestLogger_LogsStatusAndUser(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := echo.New()
	e.Use(middleware.RequestLogger(zap.New(core)))
	e.GET("/items/:id", func(c echo.Context) error {
		c.Set(middleware.CtxUserIDKey, "u1")
		return c.NoContent(http.StatusNotFound)
	})

	rec := runRequest(t, e, "/items/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, zap.WarnLevel, entries[0].Level)
		assert.Equal(t, "/items/:id", fields["path"])
		assert.Equal(t, int64(http.StatusNotFound), fields["status"])
		assert.Equal(t, "u1", fields["user_id"])
	}
}
