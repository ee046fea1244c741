// Package repository реализует хранилище данных на основе PostgreSQL
// для ядра учёта квот и жизненного цикла записей. Здесь живут все
// транзакционные операции леджера (резервация, списание, перекат цикла)
// и все охраняемые переходы состояний записи — статус записи нигде,
// кроме этого пакета, не пишется.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'recordings'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table recordings missing or query error: %w", err)
	}
	return nil
}
