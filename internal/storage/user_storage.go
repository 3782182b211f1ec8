package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/agamariel/dostavka/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrLoginExists    = errors.New("login already exists")
	ErrDriverNotFound = errors.New("driver not found")
)

// UserStorage определяет интерфейс для работы с пользователями.
type UserStorage interface {
	CreateTx(ctx context.Context, tx pgx.Tx, user *models.User) error
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// DriverStorage определяет интерфейс для работы с водителями.
type DriverStorage interface {
	CreateTx(ctx context.Context, tx pgx.Tx, driver *models.Driver) error
	CreateVehicleTx(ctx context.Context, tx pgx.Tx, vehicle *models.Vehicle) error
	GetByID(ctx context.Context, id int64) (*models.Driver, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Driver, error)
	List(ctx context.Context) ([]*models.Driver, error)
}

// PostgresUserStorage реализует UserStorage для PostgreSQL.
type PostgresUserStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresUserStorage создаёт новый экземпляр PostgresUserStorage.
func NewPostgresUserStorage(pool *pgxpool.Pool) *PostgresUserStorage {
	return &PostgresUserStorage{pool: pool}
}

// CreateTx создаёт пользователя в рамках транзакции. Создание водителя
// охватывает два агрегата, поэтому обе записи пишутся одной транзакцией.
func (s *PostgresUserStorage) CreateTx(ctx context.Context, tx pgx.Tx, user *models.User) error {
	query := `
		INSERT INTO users (id, login, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		user.ID,
		user.Login,
		user.PasswordHash,
		user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return ErrLoginExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByLogin возвращает пользователя по логину.
func (s *PostgresUserStorage) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	query := `
		SELECT id, login, password_hash, role, created_at, updated_at
		FROM users
		WHERE login = $1
	`
	return scanUser(s.pool.QueryRow(ctx, query, login))
}

// GetByID возвращает пользователя по идентификатору.
func (s *PostgresUserStorage) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, login, password_hash, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return scanUser(s.pool.QueryRow(ctx, query, id))
}

// UpdatePasswordHash сохраняет новый хеш пароля. Используется при
// обновлении унаследованных хешей после успешного входа.
func (s *PostgresUserStorage) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	result, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Login,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

// PostgresDriverStorage реализует DriverStorage для PostgreSQL.
type PostgresDriverStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresDriverStorage создаёт новый экземпляр PostgresDriverStorage.
func NewPostgresDriverStorage(pool *pgxpool.Pool) *PostgresDriverStorage {
	return &PostgresDriverStorage{pool: pool}
}

// CreateTx создаёт профиль водителя в рамках транзакции создания
// пользователя.
func (s *PostgresDriverStorage) CreateTx(ctx context.Context, tx pgx.Tx, driver *models.Driver) error {
	query := `
		INSERT INTO drivers (user_id, full_name, phone, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query,
		driver.UserID,
		driver.FullName,
		driver.Phone,
	).Scan(&driver.ID, &driver.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}
	return nil
}

// CreateVehicleTx создаёт транспорт водителя в той же транзакции.
func (s *PostgresDriverStorage) CreateVehicleTx(ctx context.Context, tx pgx.Tx, vehicle *models.Vehicle) error {
	query := `
		INSERT INTO vehicles (driver_id, plate, model, capacity_kg)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := tx.QueryRow(ctx, query,
		vehicle.DriverID,
		vehicle.Plate,
		vehicle.Model,
		vehicle.CapacityKg,
	).Scan(&vehicle.ID)
	if err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}
	return nil
}

// GetByID возвращает водителя по идентификатору.
func (s *PostgresDriverStorage) GetByID(ctx context.Context, id int64) (*models.Driver, error) {
	query := `SELECT id, user_id, full_name, phone, created_at FROM drivers WHERE id = $1`
	return scanDriver(s.pool.QueryRow(ctx, query, id))
}

// GetByUserID возвращает профиль водителя по идентификатору пользователя.
func (s *PostgresDriverStorage) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Driver, error) {
	query := `SELECT id, user_id, full_name, phone, created_at FROM drivers WHERE user_id = $1`
	return scanDriver(s.pool.QueryRow(ctx, query, userID))
}

// List возвращает всех водителей.
func (s *PostgresDriverStorage) List(ctx context.Context) ([]*models.Driver, error) {
	query := `SELECT id, user_id, full_name, phone, created_at FROM drivers ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query drivers: %w", err)
	}
	defer rows.Close()

	var drivers []*models.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return drivers, nil
}

func scanDriver(row pgx.Row) (*models.Driver, error) {
	var driver models.Driver
	err := row.Scan(
		&driver.ID,
		&driver.UserID,
		&driver.FullName,
		&driver.Phone,
		&driver.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDriverNotFound
		}
		return nil, fmt.Errorf("failed to scan driver: %w", err)
	}
	return &driver, nil
}
