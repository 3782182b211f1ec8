package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatusLog - запись журнала смены статусов. Журнал только
// дописывается; записи удаляются лишь каскадно вместе с заказом.
type OrderStatusLog struct {
	ID            int64          `db:"id"`
	OrderID       int64          `db:"order_id"`
	Status        DeliveryStatus `db:"status"`
	ChangedAt     time.Time      `db:"changed_at"`
	Lat           *float64       `db:"lat"`
	Lng           *float64       `db:"lng"`
	ChangedByRole Role           `db:"changed_by_role"`
	ChangedByUser uuid.UUID      `db:"changed_by_user"`
	Note          string         `db:"note"`
}

// ProblemAnnotation описывает последнюю проблему по заказу: заметка из
// журнала и статус, к которому заказ двигался после неё (если был).
type ProblemAnnotation struct {
	Note       string
	OccurredAt time.Time
	NextStatus *DeliveryStatus
}

// StatusLogResponse - запись журнала для HTTP-ответа.
type StatusLogResponse struct {
	Status        int      `json:"status"`
	StatusName    string   `json:"statusName"`
	ChangedAt     string   `json:"changedAt"`
	Lat           *float64 `json:"lat,omitempty"`
	Lng           *float64 `json:"lng,omitempty"`
	ChangedByRole string   `json:"changedByRole"`
	Note          string   `json:"note,omitempty"`
}
