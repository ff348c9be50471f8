package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrEmailRequired    = errors.New("email and password are required")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrWeakPassword     = errors.New("password is too common")
	ErrNameTooLong      = errors.New("name is too long")
)

const minPasswordLen = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// よくある弱いパスワード
var weakPasswords = map[string]struct{}{
	"password":    {},
	"password123": {},
	"12345678":    {},
	"123456789":   {},
	"1234567890":  {},
	"qwertyuiop":  {},
	"letmein123":  {},
	"admin123":    {},
}

// サインアップの入力を検証
func ValidateRegister(email, password, name string) error {
	if err := ValidateLogin(email, password); err != nil {
		return err
	}
	if len(password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if _, ok := weakPasswords[strings.ToLower(password)]; ok {
		return ErrWeakPassword
	}
	if len(name) > 255 {
		return ErrNameTooLong
	}
	return nil
}

// ログインの入力を検証
func ValidateLogin(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrEmailRequired
	}
	if !IsEmail(email) {
		return ErrInvalidEmail
	}
	return nil
}

func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// 小文字・前後空白なし
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
