// Package password реализует безопасное хэширование и проверку паролей.
//
// Hash создаёт bcrypt-хэш пароля для хранения в базе данных.
// Compare сверяет сохранённый bcrypt-хэш с введённым паролем.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hash принимает пароль пользователя и возвращает его bcrypt-хэш.
func Hash(raw string) (string, error) {
	const op = "password.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Compare сверяет bcrypt-хэш с введённым паролем.
//
// Возвращает nil при совпадении, иначе ошибку.
func Compare(storedHash, raw string) error {
	const op = "password.Compare"
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(raw)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
