package storage

import (
	"context"

	"github.com/agamariel/dostavka/internal/models"
	"github.com/jackc/pgx/v5"
)

// MockEpodStorage - мок для тестирования (экспортируемый для
// использования в других пакетах).
type MockEpodStorage struct {
	GetByOrderIDFunc func(ctx context.Context, orderID int64) (*models.EpodFile, error)
	UpsertFunc       func(ctx context.Context, file *models.EpodFile) error
	UpdateFunc       func(ctx context.Context, file *models.EpodFile) error
}

func (m *MockEpodStorage) GetByOrderID(ctx context.Context, orderID int64) (*models.EpodFile, error) {
	if m.GetByOrderIDFunc != nil {
		return m.GetByOrderIDFunc(ctx, orderID)
	}
	return nil, ErrEpodNotFound
}

func (m *MockEpodStorage) Upsert(ctx context.Context, file *models.EpodFile) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, file)
	}
	return nil
}

func (m *MockEpodStorage) Update(ctx context.Context, file *models.EpodFile) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, file)
	}
	return nil
}

// MockStatusLogStorage - мок журнала статусов для тестирования.
type MockStatusLogStorage struct {
	InsertTxFunc    func(ctx context.Context, tx pgx.Tx, entry *models.OrderStatusLog) error
	ListByOrderFunc func(ctx context.Context, orderID int64) ([]*models.OrderStatusLog, error)
}

func (m *MockStatusLogStorage) InsertTx(ctx context.Context, tx pgx.Tx, entry *models.OrderStatusLog) error {
	if m.InsertTxFunc != nil {
		return m.InsertTxFunc(ctx, tx, entry)
	}
	return nil
}

func (m *MockStatusLogStorage) ListByOrder(ctx context.Context, orderID int64) ([]*models.OrderStatusLog, error) {
	if m.ListByOrderFunc != nil {
		return m.ListByOrderFunc(ctx, orderID)
	}
	return []*models.OrderStatusLog{}, nil
}
