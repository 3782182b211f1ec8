package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/agamariel/dostavka/internal/models"
	"github.com/agamariel/dostavka/internal/storage"
	"github.com/labstack/echo/v4"
)

// serverError маппит неожиданную ошибку в HTTP-ответ. Временные сбои
// базы отдаются как 503, чтобы клиент повторил запрос.
func serverError(c echo.Context, err error) error {
	c.Logger().Errorf("internal error: %v", err)
	if storage.IsTransient(err) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "temporarily unavailable")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

// orderIDParam разбирает идентификатор заказа из пути.
func orderIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	return id, nil
}

// floatQueryParam разбирает необязательный числовой query-параметр.
func floatQueryParam(c echo.Context, name string) (*float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &val, nil
}

// mapOrderToResponse преобразует domain модель заказа в DTO для HTTP-ответа.
func mapOrderToResponse(order *models.Order) *models.OrderResponse {
	resp := &models.OrderResponse{
		ID:              order.ID,
		Number:          order.Number,
		PickupAddress:   order.PickupAddress,
		DeliveryAddress: order.DeliveryAddress,
		PickupAt:        formatTimePtr(order.PickupAt),
		DeliverAt:       formatTimePtr(order.DeliverAt),
		Cargo:           order.Cargo,
		DriverID:        order.DriverID,
		Status:          int(order.Status),
		StatusName:      order.Status.String(),
		Stage:           order.Stage.String(),
		IsCompleted:     order.IsCompletedByAdmin(),
		IsInvoiced:      order.IsInvoiced(),
		IsArchived:      order.IsArchived(),
		IsPaid:          order.IsPaid(),
		CompletedUTC:    formatTimePtr(order.CompletedUTC),
		InvoicedUTC:     formatTimePtr(order.InvoicedUTC),
		ArchivedUTC:     formatTimePtr(order.ArchivedUTC),
		PaidUTC:         formatTimePtr(order.PaidUTC),
		ContractorName:  order.ContractorName,
		PaymentDueDate:  formatDatePtr(order.PaymentDueDate),
	}
	if order.InvoiceAmount != nil {
		val, _ := order.InvoiceAmount.Float64()
		resp.InvoiceAmount = &val
	}
	return resp
}

func mapOrdersToResponse(orders []*models.Order) []*models.OrderResponse {
	response := make([]*models.OrderResponse, 0, len(orders))
	for _, order := range orders {
		response = append(response, mapOrderToResponse(order))
	}
	return response
}

func mapLogToResponse(entries []*models.OrderStatusLog) []*models.StatusLogResponse {
	response := make([]*models.StatusLogResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, &models.StatusLogResponse{
			Status:        int(entry.Status),
			StatusName:    entry.Status.String(),
			ChangedAt:     entry.ChangedAt.Format(time.RFC3339),
			Lat:           entry.Lat,
			Lng:           entry.Lng,
			ChangedByRole: string(entry.ChangedByRole),
			Note:          entry.Note,
		})
	}
	return response
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// formatDatePtr форматирует бизнес-дату без времени и зоны.
func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}
