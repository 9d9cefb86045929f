package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// translateError maps driver-level failures onto the repository sentinels so
// services never have to know which database they are running against.
// Postgres reports unique violations as SQLSTATE 23505; the sqlite driver
// used in development surfaces them as a plain message.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateKey
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicateKey
	}
	return err
}
