package storage

import (
	"errors"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsTransient распознаёт временные ошибки базы данных: обрывы
// соединения и отказы в обслуживании. Такие ошибки отдаются клиенту
// как 503, остальные — как 500.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgerrcode.IsConnectionException(pgErr.Code):
			return true
		case pgerrcode.IsInsufficientResources(pgErr.Code):
			return true
		case pgErr.Code == pgerrcode.CannotConnectNow:
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
