package storage

import (
	"context"

	"github.com/agamariel/dostavka/internal/models"
	"github.com/jackc/pgx/v5"
)

// MockOrderStorage - мок для тестирования (экспортируемый для
// использования в других пакетах).
type MockOrderStorage struct {
	CreateFunc           func(ctx context.Context, order *models.Order) error
	GetByIDFunc          func(ctx context.Context, id int64) (*models.Order, error)
	GetByIDForDriverFunc func(ctx context.Context, id, driverID int64) (*models.Order, error)
	ListFunc             func(ctx context.Context, filter OrderFilter) ([]*models.Order, error)
	UpdateFunc           func(ctx context.Context, order *models.Order) error
	UpdateStatusTxFunc   func(ctx context.Context, tx pgx.Tx, id int64, status models.DeliveryStatus) error
	UpdatePipelineFunc   func(ctx context.Context, order *models.Order) error
	SetDriverFunc        func(ctx context.Context, id int64, driverID *int64) error
	DeleteFunc           func(ctx context.Context, id int64) error
	MaxNumberFunc        func(ctx context.Context, prefix string) (int, error)
}

func (m *MockOrderStorage) Create(ctx context.Context, order *models.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, order)
	}
	return nil
}

func (m *MockOrderStorage) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, ErrOrderNotFound
}

func (m *MockOrderStorage) GetByIDForDriver(ctx context.Context, id, driverID int64) (*models.Order, error) {
	if m.GetByIDForDriverFunc != nil {
		return m.GetByIDForDriverFunc(ctx, id, driverID)
	}
	return nil, ErrOrderNotFound
}

func (m *MockOrderStorage) List(ctx context.Context, filter OrderFilter) ([]*models.Order, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*models.Order{}, nil
}

func (m *MockOrderStorage) Update(ctx context.Context, order *models.Order) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, order)
	}
	return nil
}

func (m *MockOrderStorage) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id int64, status models.DeliveryStatus) error {
	if m.UpdateStatusTxFunc != nil {
		return m.UpdateStatusTxFunc(ctx, tx, id, status)
	}
	return nil
}

func (m *MockOrderStorage) UpdatePipeline(ctx context.Context, order *models.Order) error {
	if m.UpdatePipelineFunc != nil {
		return m.UpdatePipelineFunc(ctx, order)
	}
	return nil
}

func (m *MockOrderStorage) SetDriver(ctx context.Context, id int64, driverID *int64) error {
	if m.SetDriverFunc != nil {
		return m.SetDriverFunc(ctx, id, driverID)
	}
	return nil
}

func (m *MockOrderStorage) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockOrderStorage) MaxNumber(ctx context.Context, prefix string) (int, error) {
	if m.MaxNumberFunc != nil {
		return m.MaxNumberFunc(ctx, prefix)
	}
	return 0, nil
}
