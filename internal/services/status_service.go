package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agamariel/dostavka/internal/models"
	"github.com/agamariel/dostavka/internal/storage"
	"github.com/jackc/pgx/v5"
)

var (
	ErrInvalidStatus = errors.New("unknown delivery status")
	ErrNoteTooShort  = errors.New("problem note must be at least 5 characters")
)

// минимальная длина заметки при переходе в Problem
const minProblemNoteLen = 5

// TxBeginner открывает транзакции; его реализует pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// StatusService определяет интерфейс смены статуса доставки.
type StatusService interface {
	SetStatus(ctx context.Context, orderID int64, actor models.Actor, status models.DeliveryStatus, lat, lng *float64, note string) (*models.OrderStatusLog, error)
}

// StatusServiceImpl реализует StatusService.
type StatusServiceImpl struct {
	db           TxBeginner
	orderStorage storage.OrderStorage
	logStorage   storage.StatusLogStorage
}

// NewStatusService создаёт сервис смены статусов.
func NewStatusService(db TxBeginner, orderStorage storage.OrderStorage, logStorage storage.StatusLogStorage) *StatusServiceImpl {
	return &StatusServiceImpl{
		db:           db,
		orderStorage: orderStorage,
		logStorage:   logStorage,
	}
}

// SetStatus переводит заказ в новый статус и дописывает запись журнала.
// Переходы намеренно не ограничены: любой статус может следовать за
// любым. Водитель видит только свои заказы: чужой заказ для него
// неотличим от несуществующего. Обновление статуса и запись в журнал
// выполняются одной транзакцией.
func (s *StatusServiceImpl) SetStatus(ctx context.Context, orderID int64, actor models.Actor, status models.DeliveryStatus, lat, lng *float64, note string) (*models.OrderStatusLog, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	note = strings.TrimSpace(note)

	order, err := s.loadOrder(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}

	// Водитель обязан пояснить проблему; админский перевод не ограничен
	if actor.IsDriver() && status == models.StatusProblem && len([]rune(note)) < minProblemNoteLen {
		return nil, ErrNoteTooShort
	}

	entry := &models.OrderStatusLog{
		OrderID:       order.ID,
		Status:        status,
		ChangedAt:     time.Now().UTC(),
		Lat:           lat,
		Lng:           lng,
		ChangedByRole: actor.Role,
		ChangedByUser: actor.UserID,
		Note:          note,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.orderStorage.UpdateStatusTx(ctx, tx, order.ID, status); err != nil {
		return nil, err
	}
	if err := s.logStorage.InsertTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return entry, nil
}

func (s *StatusServiceImpl) loadOrder(ctx context.Context, orderID int64, actor models.Actor) (*models.Order, error) {
	if actor.IsDriver() {
		if actor.DriverID == nil {
			return nil, storage.ErrOrderNotFound
		}
		return s.orderStorage.GetByIDForDriver(ctx, orderID, *actor.DriverID)
	}
	return s.orderStorage.GetByID(ctx, orderID)
}

// LastProblem находит последнюю проблему по журналу заказа: самая
// свежая запись Problem с непустой заметкой, вместе со статусом,
// к которому заказ двигался после неё.
func LastProblem(entries []*models.OrderStatusLog) *models.ProblemAnnotation {
	// записи отсортированы от свежих к старым
	for i, entry := range entries {
		if entry.Status != models.StatusProblem || entry.Note == "" {
			continue
		}
		ann := &models.ProblemAnnotation{
			Note:       entry.Note,
			OccurredAt: entry.ChangedAt,
		}
		if i > 0 {
			next := entries[i-1].Status
			ann.NextStatus = &next
		}
		return ann
	}
	return nil
}
