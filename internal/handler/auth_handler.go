package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"time"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	refreshCookieName = "refresh"
	csrfCookieName    = "csrf_token"
	csrfHeaderName    = "X-CSRF-Token"
)

type AuthHandler struct {
	uc           *usecase.AuthUsecase
	refreshTTL   time.Duration // refresh/csrf cookie の有効期限
	cookieSecure bool
}

func NewAuthHandler(uc *usecase.AuthUsecase, refreshTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{uc: uc, refreshTTL: refreshTTL, cookieSecure: cookieSecure}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) RegisterRoutes(api *echo.Group, g Guards) {
	auth := api.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.POST("/refresh", h.refresh)
	auth.POST("/logout", h.logout)
	auth.GET("/me", h.me, g.Auth...)
}

func (h *AuthHandler) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	out, err := h.uc.Register(c.Request().Context(), usecase.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	// User-Agentをrefresh tokenに紐付ける
	out, err := h.uc.Login(c.Request().Context(), usecase.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return writeError(c, err)
	}

	if err := h.issueCookies(c, out.RefreshTokenPlain); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// refresh cookieとX-CSRF-Tokenが揃っている場合のみローテーション
func (h *AuthHandler) refresh(c echo.Context) error {
	plain, ok := h.checkCSRF(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.Refresh(c.Request().Context(), plain, c.Request().UserAgent())
	if err != nil {
		h.clearCookies(c)
		return writeError(c, err)
	}

	if err := h.issueCookies(c, out.RefreshTokenPlain); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) logout(c echo.Context) error {
	plain, ok := h.checkCSRF(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	if err := h.uc.Logout(c.Request().Context(), plain); err != nil {
		return writeError(c, err)
	}
	h.clearCookies(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) me(c echo.Context) error {
	out, err := h.uc.Me(c.Request().Context(), actorFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// double submit: cookieとヘッダーの値が一致すること
func (h *AuthHandler) checkCSRF(c echo.Context) (string, bool) {
	rc, err := c.Cookie(refreshCookieName)
	if err != nil || rc.Value == "" {
		return "", false
	}
	cc, err := c.Cookie(csrfCookieName)
	if err != nil || cc.Value == "" {
		return "", false
	}
	header := c.Request().Header.Get(csrfHeaderName)
	if subtle.ConstantTimeCompare([]byte(header), []byte(cc.Value)) != 1 {
		return "", false
	}
	return rc.Value, true
}

func (h *AuthHandler) issueCookies(c echo.Context, plainRefresh string) error {
	csrf, err := generateSecureToken(32)
	if err != nil {
		return err
	}
	exp := time.Now().Add(h.refreshTTL)
	c.SetCookie(h.cookie(refreshCookieName, plainRefresh, true, exp))
	c.SetCookie(h.cookie(csrfCookieName, csrf, false, exp))
	return nil
}

func (h *AuthHandler) clearCookies(c echo.Context) {
	past := time.Unix(0, 0)
	c.SetCookie(h.cookie(refreshCookieName, "", true, past))
	c.SetCookie(h.cookie(csrfCookieName, "", false, past))
}

func (h *AuthHandler) cookie(name, value string, httpOnly bool, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	}
}

func generateSecureToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
