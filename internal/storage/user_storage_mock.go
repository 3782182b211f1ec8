package storage

import (
	"context"

	"github.com/agamariel/dostavka/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MockUserStorage - мок для тестирования (экспортируемый для
// использования в других пакетах).
type MockUserStorage struct {
	CreateTxFunc           func(ctx context.Context, tx pgx.Tx, user *models.User) error
	GetByLoginFunc         func(ctx context.Context, login string) (*models.User, error)
	GetByIDFunc            func(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdatePasswordHashFunc func(ctx context.Context, id uuid.UUID, hash string) error
}

func (m *MockUserStorage) CreateTx(ctx context.Context, tx pgx.Tx, user *models.User) error {
	if m.CreateTxFunc != nil {
		return m.CreateTxFunc(ctx, tx, user)
	}
	return nil
}

func (m *MockUserStorage) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	if m.GetByLoginFunc != nil {
		return m.GetByLoginFunc(ctx, login)
	}
	return nil, ErrUserNotFound
}

func (m *MockUserStorage) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, ErrUserNotFound
}

func (m *MockUserStorage) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	if m.UpdatePasswordHashFunc != nil {
		return m.UpdatePasswordHashFunc(ctx, id, hash)
	}
	return nil
}

// MockDriverStorage - мок для тестирования.
type MockDriverStorage struct {
	CreateTxFunc        func(ctx context.Context, tx pgx.Tx, driver *models.Driver) error
	CreateVehicleTxFunc func(ctx context.Context, tx pgx.Tx, vehicle *models.Vehicle) error
	GetByIDFunc         func(ctx context.Context, id int64) (*models.Driver, error)
	GetByUserIDFunc     func(ctx context.Context, userID uuid.UUID) (*models.Driver, error)
	ListFunc            func(ctx context.Context) ([]*models.Driver, error)
}

func (m *MockDriverStorage) CreateTx(ctx context.Context, tx pgx.Tx, driver *models.Driver) error {
	if m.CreateTxFunc != nil {
		return m.CreateTxFunc(ctx, tx, driver)
	}
	return nil
}

func (m *MockDriverStorage) CreateVehicleTx(ctx context.Context, tx pgx.Tx, vehicle *models.Vehicle) error {
	if m.CreateVehicleTxFunc != nil {
		return m.CreateVehicleTxFunc(ctx, tx, vehicle)
	}
	return nil
}

func (m *MockDriverStorage) GetByID(ctx context.Context, id int64) (*models.Driver, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, ErrDriverNotFound
}

func (m *MockDriverStorage) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Driver, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	return nil, ErrDriverNotFound
}

func (m *MockDriverStorage) List(ctx context.Context) ([]*models.Driver, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.Driver{}, nil
}
