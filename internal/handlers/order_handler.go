package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/agamariel/dostavka/internal/auth"
	"github.com/agamariel/dostavka/internal/models"
	"github.com/agamariel/dostavka/internal/services"
	"github.com/agamariel/dostavka/internal/storage"
	"github.com/labstack/echo/v4"
)

// OrderHandler обрабатывает запросы чтения заказов и смены статуса,
// доступные и администратору, и водителю.
type OrderHandler struct {
	orderService  services.OrderService
	statusService services.StatusService
}

// NewOrderHandler создаёт новый экземпляр OrderHandler.
func NewOrderHandler(orderService services.OrderService, statusService services.StatusService) *OrderHandler {
	return &OrderHandler{
		orderService:  orderService,
		statusService: statusService,
	}
}

// ListOrders обрабатывает GET /api/orders. Водитель видит только свои
// заказы; администратор может фильтровать по архиву через ?archived=.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	actor, err := auth.GetActorFromContext(c)
	if err != nil {
		return err
	}

	var archived *bool
	if raw := c.QueryParam("archived"); raw != "" {
		val, perr := strconv.ParseBool(raw)
		if perr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid archived filter")
		}
		archived = &val
	}

	orders, err := h.orderService.List(c.Request().Context(), actor, archived)
	if err != nil {
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, mapOrdersToResponse(orders))
}

// GetOrder обрабатывает GET /api/orders/:id. Чужой заказ для водителя
// неотличим от несуществующего.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	actor, err := auth.GetActorFromContext(c)
	if err != nil {
		return err
	}
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	details, err := h.orderService.Get(c.Request().Context(), orderID, actor)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return serverError(c, err)
	}

	response := map[string]interface{}{
		"order": mapOrderToResponse(details.Order),
		"log":   mapLogToResponse(details.Log),
	}
	if details.LastProblem != nil {
		problem := map[string]interface{}{
			"note":       details.LastProblem.Note,
			"occurredAt": details.LastProblem.OccurredAt.Format(time.RFC3339),
		}
		if details.LastProblem.NextStatus != nil {
			problem["nextStatus"] = int(*details.LastProblem.NextStatus)
			problem["nextStatusName"] = details.LastProblem.NextStatus.String()
		}
		response["lastProblem"] = problem
	}
	return c.JSON(http.StatusOK, response)
}

// SetStatus обрабатывает POST /api/orders/:id/status.
func (h *OrderHandler) SetStatus(c echo.Context) error {
	actor, err := auth.GetActorFromContext(c)
	if err != nil {
		return err
	}
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	var req models.SetStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	entry, err := h.statusService.SetStatus(c.Request().Context(), orderID, actor,
		models.DeliveryStatus(req.Status), req.Lat, req.Lng, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidStatus):
			return echo.NewHTTPError(http.StatusBadRequest, "unknown delivery status")
		case errors.Is(err, services.ErrNoteTooShort):
			return echo.NewHTTPError(http.StatusBadRequest, "problem note must be at least 5 characters")
		case errors.Is(err, storage.ErrOrderNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return serverError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":     int(entry.Status),
		"statusName": entry.Status.String(),
		"changedAt":  entry.ChangedAt.Format(time.RFC3339),
	})
}
