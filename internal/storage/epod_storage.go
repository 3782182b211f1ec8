package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/agamariel/dostavka/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEpodNotFound = errors.New("epod file not found")

// EpodStorage определяет интерфейс для работы с записями ePOD.
// На заказ приходится не более одной записи.
type EpodStorage interface {
	GetByOrderID(ctx context.Context, orderID int64) (*models.EpodFile, error)
	Upsert(ctx context.Context, file *models.EpodFile) error
	Update(ctx context.Context, file *models.EpodFile) error
}

// PostgresEpodStorage реализует EpodStorage для PostgreSQL.
type PostgresEpodStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresEpodStorage создаёт новый экземпляр PostgresEpodStorage.
func NewPostgresEpodStorage(pool *pgxpool.Pool) *PostgresEpodStorage {
	return &PostgresEpodStorage{pool: pool}
}

// GetByOrderID возвращает запись ePOD заказа.
func (s *PostgresEpodStorage) GetByOrderID(ctx context.Context, orderID int64) (*models.EpodFile, error) {
	query := `
		SELECT id, order_id, blob_name, status, lat, lng, uploaded_utc, confirmed_utc, created_at
		FROM epod_files
		WHERE order_id = $1
	`

	var file models.EpodFile
	err := s.pool.QueryRow(ctx, query, orderID).Scan(
		&file.ID,
		&file.OrderID,
		&file.BlobName,
		&file.Status,
		&file.Lat,
		&file.Lng,
		&file.UploadedUTC,
		&file.ConfirmedUTC,
		&file.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEpodNotFound
		}
		return nil, fmt.Errorf("failed to scan epod file: %w", err)
	}

	return &file, nil
}

// Upsert создаёт или перезаписывает запись ePOD заказа. Запись должна
// быть сохранена до выдачи временной ссылки на загрузку.
func (s *PostgresEpodStorage) Upsert(ctx context.Context, file *models.EpodFile) error {
	query := `
		INSERT INTO epod_files (order_id, blob_name, status, lat, lng, uploaded_utc, confirmed_utc, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (order_id) DO UPDATE
		SET blob_name = EXCLUDED.blob_name,
			status = EXCLUDED.status,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			uploaded_utc = EXCLUDED.uploaded_utc,
			confirmed_utc = EXCLUDED.confirmed_utc
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query,
		file.OrderID,
		file.BlobName,
		file.Status,
		file.Lat,
		file.Lng,
		file.UploadedUTC,
		file.ConfirmedUTC,
	).Scan(&file.ID, &file.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert epod file: %w", err)
	}
	return nil
}

// Update обновляет состояние существующей записи ePOD.
func (s *PostgresEpodStorage) Update(ctx context.Context, file *models.EpodFile) error {
	query := `
		UPDATE epod_files
		SET blob_name = $1, status = $2, lat = $3, lng = $4, uploaded_utc = $5, confirmed_utc = $6
		WHERE order_id = $7
	`

	result, err := s.pool.Exec(ctx, query,
		file.BlobName,
		file.Status,
		file.Lat,
		file.Lng,
		file.UploadedUTC,
		file.ConfirmedUTC,
		file.OrderID,
	)
	if err != nil {
		return fmt.Errorf("failed to update epod file: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrEpodNotFound
	}
	return nil
}
