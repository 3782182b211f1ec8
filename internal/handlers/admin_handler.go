package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/agamariel/dostavka/internal/models"
	"github.com/agamariel/dostavka/internal/services"
	"github.com/agamariel/dostavka/internal/storage"
	"github.com/labstack/echo/v4"
)

// максимальный размер PDF счёта
const maxInvoicePDFSize = 20 << 20

// AdminHandler обрабатывает административные запросы: CRUD заказов,
// назначение водителей и конвейер закрытия.
type AdminHandler struct {
	orderService    services.OrderService
	pipelineService services.PipelineService
}

// NewAdminHandler создаёт новый экземпляр AdminHandler.
func NewAdminHandler(orderService services.OrderService, pipelineService services.PipelineService) *AdminHandler {
	return &AdminHandler{
		orderService:    orderService,
		pipelineService: pipelineService,
	}
}

// CreateOrder обрабатывает POST /api/admin/orders.
func (h *AdminHandler) CreateOrder(c echo.Context) error {
	var req models.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	order, err := h.orderService.Create(c.Request().Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyAddress):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, storage.ErrDriverNotFound):
			return echo.NewHTTPError(http.StatusBadRequest, "driver not found")
		case errors.Is(err, services.ErrNumberExhaust):
			return echo.NewHTTPError(http.StatusConflict, "could not allocate order number, retry")
		}
		return serverError(c, err)
	}

	return c.JSON(http.StatusCreated, mapOrderToResponse(order))
}

// UpdateOrder обрабатывает PUT /api/admin/orders/:id.
func (h *AdminHandler) UpdateOrder(c echo.Context) error {
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	var req models.UpdateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	order, err := h.orderService.Update(c.Request().Context(), orderID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyAddress):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, storage.ErrOrderNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, services.ErrOrderLocked):
			return echo.NewHTTPError(http.StatusConflict, "order is locked after invoicing")
		}
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, mapOrderToResponse(order))
}

// DeleteOrder обрабатывает DELETE /api/admin/orders/:id.
func (h *AdminHandler) DeleteOrder(c echo.Context) error {
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	if err := h.orderService.Delete(c.Request().Context(), orderID); err != nil {
		switch {
		case errors.Is(err, storage.ErrOrderNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, services.ErrOrderLocked):
			return echo.NewHTTPError(http.StatusConflict, "order is locked after invoicing")
		}
		return serverError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// AssignDriver обрабатывает POST /api/admin/orders/:id/assign.
func (h *AdminHandler) AssignDriver(c echo.Context) error {
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	var req models.AssignDriverRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	if err := h.orderService.AssignDriver(c.Request().Context(), orderID, req.DriverID); err != nil {
		switch {
		case errors.Is(err, storage.ErrOrderNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, storage.ErrDriverNotFound):
			return echo.NewHTTPError(http.StatusBadRequest, "driver not found")
		}
		return serverError(c, err)
	}

	return c.NoContent(http.StatusOK)
}

// Complete обрабатывает POST /api/admin/orders/:id/complete.
func (h *AdminHandler) Complete(c echo.Context) error {
	return h.pipelineOp(c, h.pipelineService.Complete)
}

// Reopen обрабатывает POST /api/admin/orders/:id/reopen.
func (h *AdminHandler) Reopen(c echo.Context) error {
	return h.pipelineOp(c, h.pipelineService.Reopen)
}

// MarkInvoiced обрабатывает POST /api/admin/orders/:id/mark-invoiced.
func (h *AdminHandler) MarkInvoiced(c echo.Context) error {
	return h.pipelineOp(c, h.pipelineService.MarkInvoiced)
}

// Archive обрабатывает POST /api/admin/orders/:id/archive.
func (h *AdminHandler) Archive(c echo.Context) error {
	return h.pipelineOp(c, h.pipelineService.Archive)
}

// Unarchive обрабатывает POST /api/admin/orders/:id/unarchive.
func (h *AdminHandler) Unarchive(c echo.Context) error {
	return h.pipelineOp(c, h.pipelineService.Unarchive)
}

// MarkPaid обрабатывает POST /api/admin/orders/:id/mark-paid.
func (h *AdminHandler) MarkPaid(c echo.Context) error {
	return h.pipelineOp(c, h.pipelineService.MarkPaid)
}

// MarkUnpaid обрабатывает POST /api/admin/orders/:id/mark-unpaid.
func (h *AdminHandler) MarkUnpaid(c echo.Context) error {
	return h.pipelineOp(c, h.pipelineService.MarkUnpaid)
}

// SaveInvoiceInfo обрабатывает POST /api/admin/orders/:id/invoice-info.
func (h *AdminHandler) SaveInvoiceInfo(c echo.Context) error {
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	var req models.InvoiceInfoRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	order, err := h.pipelineService.SaveInvoiceInfo(c.Request().Context(), orderID, req)
	if err != nil {
		return h.pipelineError(c, err)
	}
	return c.JSON(http.StatusOK, mapOrderToResponse(order))
}

// UploadInvoicePDF обрабатывает POST /api/admin/orders/:id/invoice-pdf.
// Тело запроса - сам PDF; в отличие от ePOD, счёт проходит через API.
func (h *AdminHandler) UploadInvoicePDF(c echo.Context) error {
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxInvoicePDFSize+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unable to read body")
	}
	if len(body) > maxInvoicePDFSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "invoice PDF is too large")
	}

	order, err := h.pipelineService.UploadInvoicePDF(c.Request().Context(), orderID, body)
	if err != nil {
		return h.pipelineError(c, err)
	}
	return c.JSON(http.StatusOK, mapOrderToResponse(order))
}

// pipelineOp выполняет операцию конвейера закрытия над заказом из пути.
func (h *AdminHandler) pipelineOp(c echo.Context, op func(ctx context.Context, orderID int64) (*models.Order, error)) error {
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	order, err := op(c.Request().Context(), orderID)
	if err != nil {
		return h.pipelineError(c, err)
	}
	return c.JSON(http.StatusOK, mapOrderToResponse(order))
}

// pipelineError маппит ошибки конвейера закрытия в HTTP-статусы.
func (h *AdminHandler) pipelineError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, storage.ErrOrderNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	case errors.Is(err, services.ErrEpodRequired),
		errors.Is(err, services.ErrNotCompleted),
		errors.Is(err, services.ErrNotInvoiced),
		errors.Is(err, services.ErrNotArchived),
		errors.Is(err, services.ErrAlreadyInvoiced),
		errors.Is(err, services.ErrContractorRequired),
		errors.Is(err, services.ErrDueDateRequired),
		errors.Is(err, services.ErrInvoicePDFRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return serverError(c, err)
}
