// Package password отвечает за хеширование пользовательских паролей.
// В базе хранится только bcrypt-хеш, исходный пароль нигде не сохраняется.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GetHash возвращает bcrypt-хеш пароля со стоимостью по умолчанию.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hash), nil
}

// CompareHash проверяет пароль против сохранённого хеша. Возвращает nil
// при совпадении.
func CompareHash(originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	if err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
