package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/validator"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// 401 再利用されたrefresh token
var errSecurityIncident = NewHTTPError(http.StatusUnauthorized, "refresh token reuse detected")

type UserDTO struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
	IsActive     bool   `json:"is_active"`
}

type AccessTokenDTO struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
}

type LoginResult struct {
	User              UserDTO        `json:"user"`
	Token             AccessTokenDTO `json:"token"`
	RefreshTokenPlain string         `json:"-"`
}

type RefreshResult struct {
	Token             AccessTokenDTO `json:"token"`
	RefreshTokenPlain string         `json:"-"`
}

type ForceLogoutResult struct {
	UserID          string `json:"user_id"`
	NewTokenVersion int    `json:"new_token_version"`
}

// 認証設定
type AuthSettings struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type AuthUsecase struct {
	settings  AuthSettings
	users     repo.UserRepository
	rtRepo    repo.RefreshTokenRepository
	auditLogs repo.AuditLogRepository
	ids       IDGenerator
	clock     Clock
	log       *zap.Logger
}

func NewAuthUsecase(
	settings AuthSettings,
	users repo.UserRepository,
	rtRepo repo.RefreshTokenRepository,
	auditLogs repo.AuditLogRepository,
	rt Runtime,
) *AuthUsecase {
	return &AuthUsecase{
		settings:  settings,
		users:     users,
		rtRepo:    rtRepo,
		auditLogs: auditLogs,
		ids:       rt.IDs,
		clock:     rt.Clock,
		log:       rt.Log,
	}
}

func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (UserDTO, error) {
	if err := validator.ValidateRegister(in.Email, in.Password, in.Name); err != nil {
		return UserDTO{}, badRequest(err.Error())
	}
	email := validator.NormalizeEmail(in.Email)

	if _, err := u.users.FindByEmail(ctx, email); err == nil {
		return UserDTO{}, NewHTTPError(http.StatusConflict, "email already used")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return UserDTO{}, errDB
	}

	user, err := u.NewUser(email, in.Password, strings.TrimSpace(in.Name), model.RoleUser)
	if err != nil {
		return UserDTO{}, err
	}
	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return UserDTO{}, NewHTTPError(http.StatusConflict, "email already used")
		}
		return UserDTO{}, errDB
	}
	return toUserDTO(user), nil
}

// パスワードはbcryptで保存。storectl create-adminからも使う。
func (u *AuthUsecase) NewUser(email, password, name string, role model.Role) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	now := u.clock.Now()
	return &model.User{
		ID:           u.ids.NewID(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	if err := validator.ValidateLogin(in.Email, in.Password); err != nil {
		return LoginResult{}, badRequest(err.Error())
	}

	user, err := u.users.FindByEmail(ctx, validator.NormalizeEmail(in.Email))
	if errors.Is(err, repo.ErrNotFound) {
		return LoginResult{}, errUnauthorized
	}
	if err != nil {
		return LoginResult{}, errDB
	}
	if !user.IsActive {
		return LoginResult{}, errForbidden
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return LoginResult{}, errUnauthorized
	}

	now := u.clock.Now()
	user.LastLoginAt = &now
	if err := u.users.Update(ctx, user); err != nil {
		// ログイン自体は通す
		u.log.Warn("update last_login_at failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	token, err := u.issueAccessToken(user, now)
	if err != nil {
		return LoginResult{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	plain, err := u.createRefreshToken(ctx, user.ID, in.UserAgent, now)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		User:              toUserDTO(user),
		Token:             token,
		RefreshTokenPlain: plain,
	}, nil
}

func (u *AuthUsecase) Me(ctx context.Context, actor Actor) (UserDTO, error) {
	if !actor.Authenticated() {
		return UserDTO{}, errUnauthorized
	}
	user, err := u.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return UserDTO{}, errUnauthorized
	}
	if !user.IsActive {
		return UserDTO{}, errForbidden
	}
	return toUserDTO(user), nil
}

// 使い済みのtokenが来たら、そのユーザーのtokenを全部消す
func (u *AuthUsecase) Refresh(ctx context.Context, plain string, userAgent string) (RefreshResult, error) {
	if strings.TrimSpace(plain) == "" {
		return RefreshResult{}, errUnauthorized
	}
	now := u.clock.Now()

	rt, err := u.rtRepo.FindByTokenHash(ctx, hashToken(plain))
	if err != nil || rt == nil {
		return RefreshResult{}, errUnauthorized
	}
	if rt.ExpiresAt.Before(now) {
		_ = u.rtRepo.DeleteByID(ctx, rt.ID)
		return RefreshResult{}, errUnauthorized
	}
	if rt.RevokedAt != nil {
		return RefreshResult{}, errUnauthorized
	}
	if rt.UsedAt != nil {
		u.revokeAll(ctx, rt.UserID, "refresh token replay")
		return RefreshResult{}, errSecurityIncident
	}
	if userAgent != "" && rt.UserAgent != "" && userAgent != rt.UserAgent {
		u.revokeAll(ctx, rt.UserID, "refresh token user agent mismatch")
		return RefreshResult{}, errSecurityIncident
	}

	user, err := u.users.FindByID(ctx, rt.UserID)
	if err != nil {
		return RefreshResult{}, errUnauthorized
	}
	if !user.IsActive {
		return RefreshResult{}, errForbidden
	}

	if err := u.rtRepo.MarkUsed(ctx, rt.ID, now); err != nil {
		u.revokeAll(ctx, rt.UserID, "mark refresh token used failed")
		return RefreshResult{}, errSecurityIncident
	}

	newPlain, err := u.createRefreshToken(ctx, user.ID, userAgent, now)
	if err != nil {
		return RefreshResult{}, err
	}
	token, err := u.issueAccessToken(user, now)
	if err != nil {
		return RefreshResult{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return RefreshResult{Token: token, RefreshTokenPlain: newPlain}, nil
}

func (u *AuthUsecase) Logout(ctx context.Context, plain string) error {
	if plain == "" {
		return errUnauthorized
	}
	rt, err := u.rtRepo.FindByTokenHash(ctx, hashToken(plain))
	if err != nil || rt == nil {
		return errUnauthorized
	}
	if err := u.rtRepo.DeleteByID(ctx, rt.ID); err != nil {
		return errDB
	}
	return nil
}

// token_versionを上げて発行済みのaccess tokenを無効にする
func (u *AuthUsecase) ForceLogout(ctx context.Context, actor Actor, targetUserID string) (ForceLogoutResult, error) {
	if !actor.Authenticated() {
		return ForceLogoutResult{}, errUnauthorized
	}
	if !actor.IsAdmin() {
		return ForceLogoutResult{}, errForbidden
	}
	before, err := u.users.FindByID(ctx, targetUserID)
	if err != nil {
		return ForceLogoutResult{}, mapRepoErr(err)
	}
	if err := u.users.IncrementTokenVersion(ctx, targetUserID); err != nil {
		return ForceLogoutResult{}, mapRepoErr(err)
	}
	if err := u.rtRepo.DeleteAllByUserID(ctx, targetUserID); err != nil {
		return ForceLogoutResult{}, errDB
	}

	after, err := u.users.FindByID(ctx, targetUserID)
	if err != nil {
		return ForceLogoutResult{}, errDB
	}

	beforeJSON, _ := json.Marshal(map[string]int{"token_version": before.TokenVersion})
	afterJSON, _ := json.Marshal(map[string]int{"token_version": after.TokenVersion})
	if err := u.auditLogs.Create(ctx, model.AuditLog{
		ID:           u.ids.NewID(),
		ActorUserID:  actor.UserID,
		Action:       model.AuditActionForceLogout,
		ResourceType: model.AuditResourceUser,
		ResourceID:   targetUserID,
		BeforeJSON:   string(beforeJSON),
		AfterJSON:    string(afterJSON),
	}); err != nil {
		u.log.Warn("audit log write failed", zap.String("user_id", targetUserID), zap.Error(err))
	}

	return ForceLogoutResult{UserID: after.ID, NewTokenVersion: after.TokenVersion}, nil
}

func (u *AuthUsecase) revokeAll(ctx context.Context, userID string, reason string) {
	u.log.Warn("revoking all refresh tokens", zap.String("user_id", userID), zap.String("reason", reason))
	if err := u.rtRepo.DeleteAllByUserID(ctx, userID); err != nil {
		u.log.Error("revoke refresh tokens failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (u *AuthUsecase) createRefreshToken(ctx context.Context, userID, userAgent string, now time.Time) (string, error) {
	plain, err := newRandomToken()
	if err != nil {
		return "", NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	rt := &model.RefreshToken{
		ID:        u.ids.NewID(),
		UserID:    userID,
		TokenHash: hashToken(plain),
		UserAgent: userAgent,
		ExpiresAt: now.Add(u.settings.RefreshTTL),
		CreatedAt: now,
	}
	if err := u.rtRepo.Create(ctx, rt); err != nil {
		return "", errDB
	}
	return plain, nil
}

// HS256。claimsはsub/role/tv/iat/exp
func (u *AuthUsecase) issueAccessToken(user *model.User, now time.Time) (AccessTokenDTO, error) {
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"tv":   user.TokenVersion,
		"iat":  now.Unix(),
		"exp":  now.Add(u.settings.AccessTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(u.settings.JWTSecret))
	if err != nil {
		return AccessTokenDTO{}, err
	}
	return AccessTokenDTO{
		AccessToken:  signed,
		ExpiresIn:    int(u.settings.AccessTTL.Seconds()),
		TokenVersion: user.TokenVersion,
	}, nil
}

func newRandomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DBにはハッシュだけ保存
func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         string(u.Role),
		TokenVersion: u.TokenVersion,
		IsActive:     u.IsActive,
	}
}
