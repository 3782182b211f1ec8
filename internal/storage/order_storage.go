package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/agamariel/dostavka/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNumberExists = errors.New("order number already exists")
)

// OrderFilter задаёт условия выборки заказов.
type OrderFilter struct {
	DriverID *int64
	Archived *bool
}

// OrderStorage определяет интерфейс для работы с заказами.
type OrderStorage interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	GetByIDForDriver(ctx context.Context, id, driverID int64) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*models.Order, error)
	Update(ctx context.Context, order *models.Order) error
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id int64, status models.DeliveryStatus) error
	UpdatePipeline(ctx context.Context, order *models.Order) error
	SetDriver(ctx context.Context, id int64, driverID *int64) error
	Delete(ctx context.Context, id int64) error
	MaxNumber(ctx context.Context, prefix string) (int, error)
}

const orderColumns = `
	id, number, pickup_address, delivery_address, pickup_at, deliver_at,
	cargo, driver_id, status, stage, paid,
	completed_utc, invoiced_utc, archived_utc, paid_utc,
	contractor_name, payment_due_date, invoice_amount, invoice_pdf_blob,
	created_at, updated_at
`

// PostgresOrderStorage реализует OrderStorage для PostgreSQL.
type PostgresOrderStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresOrderStorage создаёт новый экземпляр PostgresOrderStorage.
func NewPostgresOrderStorage(pool *pgxpool.Pool) *PostgresOrderStorage {
	return &PostgresOrderStorage{pool: pool}
}

// Create создаёт новый заказ.
func (s *PostgresOrderStorage) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (number, pickup_address, delivery_address, pickup_at, deliver_at, cargo, driver_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.pool.QueryRow(ctx, query,
		order.Number,
		order.PickupAddress,
		order.DeliveryAddress,
		order.PickupAt,
		order.DeliverAt,
		order.Cargo,
		order.DriverID,
		order.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return ErrOrderNumberExists
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// GetByID возвращает заказ по идентификатору.
func (s *PostgresOrderStorage) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(s.pool.QueryRow(ctx, query, id))
}

// GetByIDForDriver возвращает заказ, только если он назначен указанному
// водителю. Чужой заказ неотличим от несуществующего.
func (s *PostgresOrderStorage) GetByIDForDriver(ctx context.Context, id, driverID int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND driver_id = $2`
	return scanOrder(s.pool.QueryRow(ctx, query, id, driverID))
}

// List возвращает заказы по фильтру (сортировка по created_at DESC).
func (s *PostgresOrderStorage) List(ctx context.Context, filter OrderFilter) ([]*models.Order, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.DriverID != nil {
		args = append(args, *filter.DriverID)
		conds = append(conds, fmt.Sprintf("driver_id = $%d", len(args)))
	}
	if filter.Archived != nil {
		if *filter.Archived {
			conds = append(conds, fmt.Sprintf("stage = %d", models.StageArchived))
		} else {
			conds = append(conds, fmt.Sprintf("stage < %d", models.StageArchived))
		}
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return orders, nil
}

// Update обновляет адресные поля заказа.
func (s *PostgresOrderStorage) Update(ctx context.Context, order *models.Order) error {
	query := `
		UPDATE orders
		SET pickup_address = $1, delivery_address = $2, pickup_at = $3, deliver_at = $4, cargo = $5, updated_at = NOW()
		WHERE id = $6
	`

	result, err := s.pool.Exec(ctx, query,
		order.PickupAddress,
		order.DeliveryAddress,
		order.PickupAt,
		order.DeliverAt,
		order.Cargo,
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// UpdateStatusTx обновляет статус доставки в рамках транзакции, общей с
// записью в журнал статусов.
func (s *PostgresOrderStorage) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id int64, status models.DeliveryStatus) error {
	result, err := tx.Exec(ctx, `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// UpdatePipeline сохраняет этап закрытия, флаг оплаты, метки времени и
// реквизиты счёта.
func (s *PostgresOrderStorage) UpdatePipeline(ctx context.Context, order *models.Order) error {
	query := `
		UPDATE orders
		SET stage = $1, paid = $2,
			completed_utc = $3, invoiced_utc = $4, archived_utc = $5, paid_utc = $6,
			contractor_name = $7, payment_due_date = $8, invoice_amount = $9, invoice_pdf_blob = $10,
			updated_at = NOW()
		WHERE id = $11
	`

	amountVal := sql.NullString{}
	if order.InvoiceAmount != nil {
		amountVal = sql.NullString{Valid: true, String: order.InvoiceAmount.String()}
	}

	result, err := s.pool.Exec(ctx, query,
		order.Stage,
		order.Paid,
		order.CompletedUTC,
		order.InvoicedUTC,
		order.ArchivedUTC,
		order.PaidUTC,
		order.ContractorName,
		order.PaymentDueDate,
		amountVal,
		order.InvoicePDFBlob,
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order pipeline: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// SetDriver назначает водителя. nil снимает назначение, заказ при этом
// не удаляется.
func (s *PostgresOrderStorage) SetDriver(ctx context.Context, id int64, driverID *int64) error {
	result, err := s.pool.Exec(ctx, `UPDATE orders SET driver_id = $1, updated_at = NOW() WHERE id = $2`, driverID, id)
	if err != nil {
		return fmt.Errorf("failed to set order driver: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// Delete удаляет заказ. Журнал статусов и запись ePOD удаляются каскадно.
func (s *PostgresOrderStorage) Delete(ctx context.Context, id int64) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// MaxNumber возвращает наибольший числовой суффикс среди номеров с
// данным префиксом, 0 если таких номеров нет. Пропуски в нумерации
// допустимы: следующий номер — максимум плюс один.
func (s *PostgresOrderStorage) MaxNumber(ctx context.Context, prefix string) (int, error) {
	query := `
		SELECT COALESCE(MAX((substring(number from length($1) + 1))::int), 0)
		FROM orders
		WHERE number LIKE $1 || '%'
		  AND substring(number from length($1) + 1) ~ '^[0-9]+$'
	`

	var max int
	if err := s.pool.QueryRow(ctx, query, prefix).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to query max order number: %w", err)
	}
	return max, nil
}

// scanOrder помогает читать заказ из строки результата.
func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		order     models.Order
		amountStr sql.NullString
	)

	err := row.Scan(
		&order.ID,
		&order.Number,
		&order.PickupAddress,
		&order.DeliveryAddress,
		&order.PickupAt,
		&order.DeliverAt,
		&order.Cargo,
		&order.DriverID,
		&order.Status,
		&order.Stage,
		&order.Paid,
		&order.CompletedUTC,
		&order.InvoicedUTC,
		&order.ArchivedUTC,
		&order.PaidUTC,
		&order.ContractorName,
		&order.PaymentDueDate,
		&amountStr,
		&order.InvoicePDFBlob,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	if amountStr.Valid {
		if dec, derr := decimal.NewFromString(amountStr.String); derr == nil {
			order.InvoiceAmount = &dec
		}
	}

	return &order, nil
}
