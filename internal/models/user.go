package models

import "time"

// User представляет зарегистрированного пользователя системы.
// Аутентификация и сессии живут во внешнем сервисе; здесь хранится
// минимум, необходимый для владения записями и подпиской.
type User struct {
	UID          string    // Уникальный идентификатор пользователя
	Email        string    // Электронная почта (уникальная)
	Username     string    // Имя пользователя (уникальное)
	PasswordHash string    // Хэш пароля
	Role         string    // Роль пользователя, admin или user
	CreatedAt    time.Time // Дата регистрации
}

// DummyRegister используется для приёма запроса регистрации.
type DummyRegister struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8"`
}

// DummyLogin используется для приёма запроса входа.
type DummyLogin struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
