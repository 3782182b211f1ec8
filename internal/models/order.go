package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryStatus описывает статус доставки заказа.
type DeliveryStatus int

const (
	StatusPlanned    DeliveryStatus = 0
	StatusToPickup   DeliveryStatus = 1
	StatusLoaded     DeliveryStatus = 2
	StatusToDelivery DeliveryStatus = 3
	StatusDelivered  DeliveryStatus = 4
	StatusProblem    DeliveryStatus = 5
)

// Valid проверяет, что значение входит в перечисление статусов.
func (s DeliveryStatus) Valid() bool {
	return s >= StatusPlanned && s <= StatusProblem
}

func (s DeliveryStatus) String() string {
	switch s {
	case StatusPlanned:
		return "Planned"
	case StatusToPickup:
		return "ToPickup"
	case StatusLoaded:
		return "Loaded"
	case StatusToDelivery:
		return "ToDelivery"
	case StatusDelivered:
		return "Delivered"
	case StatusProblem:
		return "Problem"
	default:
		return "Unknown"
	}
}

// PipelineStage описывает этап закрытия заказа: завершение админом,
// выставление счёта, архивация. Этапы строго упорядочены.
type PipelineStage int

const (
	StageOpen      PipelineStage = 0
	StageCompleted PipelineStage = 1
	StageInvoiced  PipelineStage = 2
	StageArchived  PipelineStage = 3
)

func (s PipelineStage) String() string {
	switch s {
	case StageOpen:
		return "Open"
	case StageCompleted:
		return "Completed"
	case StageInvoiced:
		return "Invoiced"
	case StageArchived:
		return "Archived"
	default:
		return "Unknown"
	}
}

// Order представляет заказ на доставку.
type Order struct {
	ID              int64          `db:"id"`
	Number          string         `db:"number"`
	PickupAddress   string         `db:"pickup_address"`
	DeliveryAddress string         `db:"delivery_address"`
	PickupAt        *time.Time     `db:"pickup_at"`
	DeliverAt       *time.Time     `db:"deliver_at"`
	Cargo           string         `db:"cargo"`
	DriverID        *int64         `db:"driver_id"`
	Status          DeliveryStatus `db:"status"`

	// Этап закрытия и независимый флаг оплаты. Оплата переключается
	// только внутри этапа Archived.
	Stage PipelineStage `db:"stage"`
	Paid  bool          `db:"paid"`

	CompletedUTC *time.Time `db:"completed_utc"`
	InvoicedUTC  *time.Time `db:"invoiced_utc"`
	ArchivedUTC  *time.Time `db:"archived_utc"`
	PaidUTC      *time.Time `db:"paid_utc"`

	// Реквизиты счёта. PaymentDueDate хранится как бизнес-дата
	// без приведения к UTC, в отличие от остальных меток времени.
	ContractorName string           `db:"contractor_name"`
	PaymentDueDate *time.Time       `db:"payment_due_date"`
	InvoiceAmount  *decimal.Decimal `db:"invoice_amount"`
	InvoicePDFBlob string           `db:"invoice_pdf_blob"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsCompletedByAdmin сообщает, завершён ли заказ администратором.
func (o *Order) IsCompletedByAdmin() bool {
	return o.Stage >= StageCompleted
}

// IsInvoiced сообщает, выставлен ли счёт по заказу.
func (o *Order) IsInvoiced() bool {
	return o.Stage >= StageInvoiced
}

// IsArchived сообщает, находится ли заказ в архиве.
func (o *Order) IsArchived() bool {
	return o.Stage == StageArchived
}

// IsPaid сообщает, отмечен ли заказ оплаченным.
func (o *Order) IsPaid() bool {
	return o.Paid
}

// EditLocked запрещает изменение и удаление заказа после выставления
// счёта: финансовые записи не должны мутировать.
func (o *Order) EditLocked() bool {
	return o.Stage >= StageInvoiced
}

// CreateOrderRequest - запрос на создание заказа.
type CreateOrderRequest struct {
	PickupAddress   string     `json:"pickupAddress" validate:"required"`
	DeliveryAddress string     `json:"deliveryAddress" validate:"required"`
	PickupAt        *time.Time `json:"pickupAt"`
	DeliverAt       *time.Time `json:"deliverAt"`
	Cargo           string     `json:"cargo"`
	DriverID        *int64     `json:"driverId"`
}

// UpdateOrderRequest - запрос на изменение заказа.
type UpdateOrderRequest struct {
	PickupAddress   string     `json:"pickupAddress" validate:"required"`
	DeliveryAddress string     `json:"deliveryAddress" validate:"required"`
	PickupAt        *time.Time `json:"pickupAt"`
	DeliverAt       *time.Time `json:"deliverAt"`
	Cargo           string     `json:"cargo"`
}

// SetStatusRequest - запрос на смену статуса доставки.
type SetStatusRequest struct {
	Status int      `json:"status"`
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	Note   string   `json:"note"`
}

// InvoiceInfoRequest - реквизиты счёта по заказу.
type InvoiceInfoRequest struct {
	ContractorName string           `json:"contractorName" validate:"required"`
	PaymentDueDate time.Time        `json:"paymentDueDate" validate:"required"`
	Amount         *decimal.Decimal `json:"amount"`
}

// AssignDriverRequest - запрос на назначение водителя.
// Пустой driverId снимает назначение.
type AssignDriverRequest struct {
	DriverID *int64 `json:"driverId"`
}

// OrderResponse - представление заказа для HTTP-ответа.
type OrderResponse struct {
	ID              int64    `json:"id"`
	Number          string   `json:"number"`
	PickupAddress   string   `json:"pickupAddress"`
	DeliveryAddress string   `json:"deliveryAddress"`
	PickupAt        *string  `json:"pickupAt,omitempty"`
	DeliverAt       *string  `json:"deliverAt,omitempty"`
	Cargo           string   `json:"cargo"`
	DriverID        *int64   `json:"driverId,omitempty"`
	Status          int      `json:"status"`
	StatusName      string   `json:"statusName"`
	Stage           string   `json:"stage"`
	IsCompleted     bool     `json:"isCompletedByAdmin"`
	IsInvoiced      bool     `json:"isInvoiced"`
	IsArchived      bool     `json:"isArchived"`
	IsPaid          bool     `json:"isPaid"`
	CompletedUTC    *string  `json:"completedUtc,omitempty"`
	InvoicedUTC     *string  `json:"invoicedUtc,omitempty"`
	ArchivedUTC     *string  `json:"archivedUtc,omitempty"`
	PaidUTC         *string  `json:"paidUtc,omitempty"`
	ContractorName  string   `json:"contractorName,omitempty"`
	PaymentDueDate  *string  `json:"paymentDueDate,omitempty"`
	InvoiceAmount   *float64 `json:"invoiceAmount,omitempty"`
}
