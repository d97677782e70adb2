package service

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 8
	// bcrypt игнорирует всё после 72 байт.
	maxPasswordBytes = 72
	maxUsernameLen   = 32
)

// dummyHash сравнивается при отсутствии аккаунта, чтобы время ответа
// не выдавало существование логина.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("video-hub-dummy-password"), bcrypt.DefaultCost)

// HashPassword хэширует пароль с помощью bcrypt.
func HashPassword(password string) (string, error) {
	const op = "service/password/HashPassword"

	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}

// CheckPassword сравнивает пароль с хэшем.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validatePassword: длина от 8 рун и не больше 72 байт.
func validatePassword(pw string) error {
	if len([]rune(pw)) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}

	if len(pw) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, maxPasswordBytes)
	}

	return nil
}

// validateEmail проверяет формат и приводит к нижнему регистру.
func validateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrValidation)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email", ErrValidation)
	}

	return strings.ToLower(email), nil
}

// validateUsername: латиница/цифры/._-, без '@', до 32 символов, нижний регистр.
func validateUsername(raw string) (string, error) {
	u := strings.ToLower(strings.TrimSpace(raw))
	if u == "" {
		return "", fmt.Errorf("%w: username is required", ErrValidation)
	}

	if len(u) > maxUsernameLen {
		return "", fmt.Errorf("%w: username is too long", ErrValidation)
	}

	for _, r := range u {
		switch {
		case r >= 'a' && r <= 'z', unicode.IsDigit(r), r == '.', r == '_', r == '-':
		default:
			return "", fmt.Errorf("%w: username may contain only letters, digits, '.', '_' and '-'", ErrValidation)
		}
	}

	return u, nil
}
