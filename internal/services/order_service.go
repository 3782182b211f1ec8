package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agamariel/dostavka/internal/models"
	"github.com/agamariel/dostavka/internal/storage"
)

var (
	ErrEmptyAddress  = errors.New("pickup and delivery addresses are required")
	ErrOrderLocked   = errors.New("order is locked after invoicing")
	ErrNumberExhaust = errors.New("could not allocate order number")
)

// orderNumberPrefix - префикс внешнего номера заказа.
const orderNumberPrefix = "Z-"

// номер генерируется с повторами на случай гонки за один и тот же номер
const numberRetries = 5

// OrderDetails - заказ вместе с журналом статусов и последней проблемой.
type OrderDetails struct {
	Order       *models.Order
	Log         []*models.OrderStatusLog
	LastProblem *models.ProblemAnnotation
}

// OrderService определяет интерфейс работы с заказами.
type OrderService interface {
	Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
	Get(ctx context.Context, orderID int64, actor models.Actor) (*OrderDetails, error)
	List(ctx context.Context, actor models.Actor, archived *bool) ([]*models.Order, error)
	Update(ctx context.Context, orderID int64, req *models.UpdateOrderRequest) (*models.Order, error)
	Delete(ctx context.Context, orderID int64) error
	AssignDriver(ctx context.Context, orderID int64, driverID *int64) error
}

// OrderServiceImpl реализует OrderService.
type OrderServiceImpl struct {
	orderStorage  storage.OrderStorage
	logStorage    storage.StatusLogStorage
	driverStorage storage.DriverStorage
}

// NewOrderService создаёт новый сервис заказов.
func NewOrderService(orderStorage storage.OrderStorage, logStorage storage.StatusLogStorage, driverStorage storage.DriverStorage) *OrderServiceImpl {
	return &OrderServiceImpl{
		orderStorage:  orderStorage,
		logStorage:    logStorage,
		driverStorage: driverStorage,
	}
}

// Create создаёт заказ со сгенерированным номером и статусом Planned.
// Номер — максимум существующих плюс один; пропуски в нумерации не
// заполняются. При коллизии генерация повторяется до пяти раз.
func (s *OrderServiceImpl) Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	if strings.TrimSpace(req.PickupAddress) == "" || strings.TrimSpace(req.DeliveryAddress) == "" {
		return nil, ErrEmptyAddress
	}

	if req.DriverID != nil {
		if _, err := s.driverStorage.GetByID(ctx, *req.DriverID); err != nil {
			return nil, err
		}
	}

	order := &models.Order{
		PickupAddress:   strings.TrimSpace(req.PickupAddress),
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		PickupAt:        normalizeUTC(req.PickupAt),
		DeliverAt:       normalizeUTC(req.DeliverAt),
		Cargo:           req.Cargo,
		DriverID:        req.DriverID,
		Status:          models.StatusPlanned,
	}

	for attempt := 0; attempt < numberRetries; attempt++ {
		max, err := s.orderStorage.MaxNumber(ctx, orderNumberPrefix)
		if err != nil {
			return nil, fmt.Errorf("next order number: %w", err)
		}
		order.Number = fmt.Sprintf("%s%05d", orderNumberPrefix, max+1)

		err = s.orderStorage.Create(ctx, order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, storage.ErrOrderNumberExists) {
			return nil, fmt.Errorf("create order: %w", err)
		}
		// гонка за номер: пробуем следующий
	}

	return nil, ErrNumberExhaust
}

// Get возвращает заказ с журналом статусов. Для водителя выборка
// отфильтрована по владению: чужой заказ выглядит несуществующим.
func (s *OrderServiceImpl) Get(ctx context.Context, orderID int64, actor models.Actor) (*OrderDetails, error) {
	var (
		order *models.Order
		err   error
	)
	if actor.IsDriver() {
		if actor.DriverID == nil {
			return nil, storage.ErrOrderNotFound
		}
		order, err = s.orderStorage.GetByIDForDriver(ctx, orderID, *actor.DriverID)
	} else {
		order, err = s.orderStorage.GetByID(ctx, orderID)
	}
	if err != nil {
		return nil, err
	}

	entries, err := s.logStorage.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list status log: %w", err)
	}

	return &OrderDetails{
		Order:       order,
		Log:         entries,
		LastProblem: LastProblem(entries),
	}, nil
}

// List возвращает заказы: администратору — все с фильтром по архиву,
// водителю — только свои.
func (s *OrderServiceImpl) List(ctx context.Context, actor models.Actor, archived *bool) ([]*models.Order, error) {
	filter := storage.OrderFilter{Archived: archived}
	if actor.IsDriver() {
		if actor.DriverID == nil {
			return []*models.Order{}, nil
		}
		filter.DriverID = actor.DriverID
	}

	orders, err := s.orderStorage.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Update обновляет адресные поля. Заказ с выставленным счётом или в
// архиве менять нельзя.
func (s *OrderServiceImpl) Update(ctx context.Context, orderID int64, req *models.UpdateOrderRequest) (*models.Order, error) {
	if strings.TrimSpace(req.PickupAddress) == "" || strings.TrimSpace(req.DeliveryAddress) == "" {
		return nil, ErrEmptyAddress
	}

	order, err := s.orderStorage.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.EditLocked() {
		return nil, ErrOrderLocked
	}

	order.PickupAddress = strings.TrimSpace(req.PickupAddress)
	order.DeliveryAddress = strings.TrimSpace(req.DeliveryAddress)
	order.PickupAt = normalizeUTC(req.PickupAt)
	order.DeliverAt = normalizeUTC(req.DeliverAt)
	order.Cargo = req.Cargo

	if err := s.orderStorage.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Delete удаляет заказ вместе с журналом и записью ePOD. Заказ с
// выставленным счётом или в архиве удалить нельзя.
func (s *OrderServiceImpl) Delete(ctx context.Context, orderID int64) error {
	order, err := s.orderStorage.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.IsArchived() || order.IsInvoiced() {
		return ErrOrderLocked
	}
	return s.orderStorage.Delete(ctx, order.ID)
}

// AssignDriver назначает водителя на заказ; nil снимает назначение.
func (s *OrderServiceImpl) AssignDriver(ctx context.Context, orderID int64, driverID *int64) error {
	if driverID != nil {
		if _, err := s.driverStorage.GetByID(ctx, *driverID); err != nil {
			return err
		}
	}
	return s.orderStorage.SetDriver(ctx, orderID, driverID)
}

// normalizeUTC приводит метку времени к UTC при сохранении. Дата оплаты
// счёта через эту функцию намеренно не проходит: это бизнес-дата.
func normalizeUTC(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
