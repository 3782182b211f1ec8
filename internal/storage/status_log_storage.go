package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agamariel/dostavka/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatusLogStorage определяет интерфейс для работы с журналом статусов.
// Журнал только дописывается.
type StatusLogStorage interface {
	InsertTx(ctx context.Context, tx pgx.Tx, entry *models.OrderStatusLog) error
	ListByOrder(ctx context.Context, orderID int64) ([]*models.OrderStatusLog, error)
}

// PostgresStatusLogStorage реализует StatusLogStorage для PostgreSQL.
type PostgresStatusLogStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStatusLogStorage создаёт новый экземпляр PostgresStatusLogStorage.
func NewPostgresStatusLogStorage(pool *pgxpool.Pool) *PostgresStatusLogStorage {
	return &PostgresStatusLogStorage{pool: pool}
}

// InsertTx дописывает запись журнала в рамках транзакции смены статуса.
// Пустая заметка хранится как NULL.
func (s *PostgresStatusLogStorage) InsertTx(ctx context.Context, tx pgx.Tx, entry *models.OrderStatusLog) error {
	query := `
		INSERT INTO order_status_logs (order_id, status, changed_at, lat, lng, changed_by_role, changed_by_user, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	noteVal := sql.NullString{}
	if entry.Note != "" {
		noteVal = sql.NullString{Valid: true, String: entry.Note}
	}

	err := tx.QueryRow(ctx, query,
		entry.OrderID,
		entry.Status,
		entry.ChangedAt,
		entry.Lat,
		entry.Lng,
		entry.ChangedByRole,
		entry.ChangedByUser,
		noteVal,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to insert status log entry: %w", err)
	}
	return nil
}

// ListByOrder возвращает журнал заказа, свежие записи первыми.
func (s *PostgresStatusLogStorage) ListByOrder(ctx context.Context, orderID int64) ([]*models.OrderStatusLog, error) {
	query := `
		SELECT id, order_id, status, changed_at, lat, lng, changed_by_role, changed_by_user, note
		FROM order_status_logs
		WHERE order_id = $1
		ORDER BY changed_at DESC, id DESC
	`

	rows, err := s.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status log: %w", err)
	}
	defer rows.Close()

	var entries []*models.OrderStatusLog
	for rows.Next() {
		var (
			entry   models.OrderStatusLog
			noteVal sql.NullString
		)
		err := rows.Scan(
			&entry.ID,
			&entry.OrderID,
			&entry.Status,
			&entry.ChangedAt,
			&entry.Lat,
			&entry.Lng,
			&entry.ChangedByRole,
			&entry.ChangedByUser,
			&noteVal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status log entry: %w", err)
		}
		if noteVal.Valid {
			entry.Note = noteVal.String
		}
		entries = append(entries, &entry)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return entries, nil
}
