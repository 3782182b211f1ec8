package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agamariel/dostavka/internal/auth"
	"github.com/agamariel/dostavka/internal/models"
	"github.com/agamariel/dostavka/internal/services"
	"github.com/agamariel/dostavka/internal/storage"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type mockOrderService struct {
	CreateFunc       func(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
	GetFunc          func(ctx context.Context, orderID int64, actor models.Actor) (*services.OrderDetails, error)
	ListFunc         func(ctx context.Context, actor models.Actor, archived *bool) ([]*models.Order, error)
	UpdateFunc       func(ctx context.Context, orderID int64, req *models.UpdateOrderRequest) (*models.Order, error)
	DeleteFunc       func(ctx context.Context, orderID int64) error
	AssignDriverFunc func(ctx context.Context, orderID int64, driverID *int64) error
}

func (m *mockOrderService) Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	return &models.Order{}, nil
}

func (m *mockOrderService) Get(ctx context.Context, orderID int64, actor models.Actor) (*services.OrderDetails, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, orderID, actor)
	}
	return &services.OrderDetails{Order: &models.Order{ID: orderID}}, nil
}

func (m *mockOrderService) List(ctx context.Context, actor models.Actor, archived *bool) ([]*models.Order, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, actor, archived)
	}
	return []*models.Order{}, nil
}

func (m *mockOrderService) Update(ctx context.Context, orderID int64, req *models.UpdateOrderRequest) (*models.Order, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, orderID, req)
	}
	return &models.Order{ID: orderID}, nil
}

func (m *mockOrderService) Delete(ctx context.Context, orderID int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, orderID)
	}
	return nil
}

func (m *mockOrderService) AssignDriver(ctx context.Context, orderID int64, driverID *int64) error {
	if m.AssignDriverFunc != nil {
		return m.AssignDriverFunc(ctx, orderID, driverID)
	}
	return nil
}

type mockStatusService struct {
	SetStatusFunc func(ctx context.Context, orderID int64, actor models.Actor, status models.DeliveryStatus, lat, lng *float64, note string) (*models.OrderStatusLog, error)
}

func (m *mockStatusService) SetStatus(ctx context.Context, orderID int64, actor models.Actor, status models.DeliveryStatus, lat, lng *float64, note string) (*models.OrderStatusLog, error) {
	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, orderID, actor, status, lat, lng, note)
	}
	return &models.OrderStatusLog{OrderID: orderID, Status: status, ChangedAt: time.Now().UTC()}, nil
}

func newTestContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewRequestValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func setActor(c echo.Context, actor models.Actor) {
	c.Set(string(auth.ActorKey), actor)
}

func testDriverActor(driverID int64) models.Actor {
	return models.Actor{UserID: uuid.New(), Login: "driver1", Role: models.RoleDriver, DriverID: &driverID}
}

func testAdminActor() models.Actor {
	return models.Actor{UserID: uuid.New(), Login: "admin", Role: models.RoleAdmin}
}

func TestOrderHandler_SetStatus(t *testing.T) {
	driverID := int64(7)

	tests := []struct {
		name           string
		body           string
		mockService    *mockStatusService
		expectedStatus int
	}{
		{
			name: "status updated",
			body: `{"status": 2, "lat": 55.75, "lng": 37.61}`,
			mockService: &mockStatusService{
				SetStatusFunc: func(ctx context.Context, orderID int64, actor models.Actor, status models.DeliveryStatus, lat, lng *float64, note string) (*models.OrderStatusLog, error) {
					if status != models.StatusLoaded {
						t.Errorf("status = %v, want Loaded", status)
					}
					if lat == nil || *lat != 55.75 {
						t.Errorf("lat = %v, want 55.75", lat)
					}
					return &models.OrderStatusLog{Status: status, ChangedAt: time.Now().UTC()}, nil
				},
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "unknown status",
			body: `{"status": 42}`,
			mockService: &mockStatusService{
				SetStatusFunc: func(ctx context.Context, orderID int64, actor models.Actor, status models.DeliveryStatus, lat, lng *float64, note string) (*models.OrderStatusLog, error) {
					return nil, services.ErrInvalidStatus
				},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "problem note too short",
			body: `{"status": 5, "note": "bad"}`,
			mockService: &mockStatusService{
				SetStatusFunc: func(ctx context.Context, orderID int64, actor models.Actor, status models.DeliveryStatus, lat, lng *float64, note string) (*models.OrderStatusLog, error) {
					return nil, services.ErrNoteTooShort
				},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "foreign order hidden",
			body: `{"status": 2}`,
			mockService: &mockStatusService{
				SetStatusFunc: func(ctx context.Context, orderID int64, actor models.Actor, status models.DeliveryStatus, lat, lng *float64, note string) (*models.OrderStatusLog, error) {
					return nil, storage.ErrOrderNotFound
				},
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "internal error",
			body: `{"status": 2}`,
			mockService: &mockStatusService{
				SetStatusFunc: func(ctx context.Context, orderID int64, actor models.Actor, status models.DeliveryStatus, lat, lng *float64, note string) (*models.OrderStatusLog, error) {
					return nil, errors.New("db error")
				},
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestContext(http.MethodPost, "/api/orders/1/status", tt.body)
			c.SetParamNames("id")
			c.SetParamValues("1")
			setActor(c, testDriverActor(driverID))

			handler := NewOrderHandler(&mockOrderService{}, tt.mockService)
			err := handler.SetStatus(c)

			if tt.expectedStatus < 400 {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if rec.Code != tt.expectedStatus {
					t.Fatalf("status = %d, want %d", rec.Code, tt.expectedStatus)
				}
			} else {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if he, ok := err.(*echo.HTTPError); ok {
					if he.Code != tt.expectedStatus {
						t.Fatalf("status = %d, want %d", he.Code, tt.expectedStatus)
					}
				}
			}
		})
	}

	t.Run("admin route passes admin actor", func(t *testing.T) {
		mock := &mockStatusService{
			SetStatusFunc: func(ctx context.Context, orderID int64, actor models.Actor, status models.DeliveryStatus, lat, lng *float64, note string) (*models.OrderStatusLog, error) {
				if !actor.IsAdmin() {
					t.Errorf("actor role = %v, want Admin", actor.Role)
				}
				return &models.OrderStatusLog{Status: status, ChangedAt: time.Now().UTC()}, nil
			},
		}

		c, rec := newTestContext(http.MethodPost, "/api/admin/orders/1/status", `{"status": 5, "note": ""}`)
		c.SetParamNames("id")
		c.SetParamValues("1")
		setActor(c, testAdminActor())

		handler := NewOrderHandler(&mockOrderService{}, mock)
		if err := handler.SetStatus(c); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}

func TestOrderHandler_GetOrder(t *testing.T) {
	t.Run("order with log and last problem", func(t *testing.T) {
		next := models.StatusToDelivery
		service := &mockOrderService{
			GetFunc: func(ctx context.Context, orderID int64, actor models.Actor) (*services.OrderDetails, error) {
				return &services.OrderDetails{
					Order: &models.Order{ID: orderID, Number: "Z-00001", Status: models.StatusToDelivery},
					Log: []*models.OrderStatusLog{
						{Status: models.StatusToDelivery, ChangedAt: time.Now().UTC()},
						{Status: models.StatusProblem, Note: "flat tire", ChangedAt: time.Now().UTC().Add(-time.Hour)},
					},
					LastProblem: &models.ProblemAnnotation{
						Note:       "flat tire",
						OccurredAt: time.Now().UTC().Add(-time.Hour),
						NextStatus: &next,
					},
				}, nil
			},
		}

		c, rec := newTestContext(http.MethodGet, "/api/orders/1", "")
		c.SetParamNames("id")
		c.SetParamValues("1")
		setActor(c, testAdminActor())

		handler := NewOrderHandler(service, &mockStatusService{})
		if err := handler.GetOrder(c); err != nil {
			t.Fatalf("GetOrder() unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "flat tire") {
			t.Error("response must include the last problem note")
		}
		if !strings.Contains(body, "Z-00001") {
			t.Error("response must include the order number")
		}
	})

	t.Run("missing order", func(t *testing.T) {
		service := &mockOrderService{
			GetFunc: func(ctx context.Context, orderID int64, actor models.Actor) (*services.OrderDetails, error) {
				return nil, storage.ErrOrderNotFound
			},
		}

		c, _ := newTestContext(http.MethodGet, "/api/orders/99", "")
		c.SetParamNames("id")
		c.SetParamValues("99")
		setActor(c, testAdminActor())

		handler := NewOrderHandler(service, &mockStatusService{})
		err := handler.GetOrder(c)
		if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
			t.Fatalf("error = %v, want 404", err)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		c, _ := newTestContext(http.MethodGet, "/api/orders/abc", "")
		c.SetParamNames("id")
		c.SetParamValues("abc")
		setActor(c, testAdminActor())

		handler := NewOrderHandler(&mockOrderService{}, &mockStatusService{})
		err := handler.GetOrder(c)
		if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
			t.Fatalf("error = %v, want 400", err)
		}
	})
}

func TestOrderHandler_ListOrders(t *testing.T) {
	t.Run("archived filter parsed", func(t *testing.T) {
		var gotArchived *bool
		service := &mockOrderService{
			ListFunc: func(ctx context.Context, actor models.Actor, archived *bool) ([]*models.Order, error) {
				gotArchived = archived
				return []*models.Order{}, nil
			},
		}

		c, rec := newTestContext(http.MethodGet, "/api/orders?archived=true", "")
		setActor(c, testAdminActor())

		handler := NewOrderHandler(service, &mockStatusService{})
		if err := handler.ListOrders(c); err != nil {
			t.Fatalf("ListOrders() unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if gotArchived == nil || !*gotArchived {
			t.Errorf("archived filter = %v, want true", gotArchived)
		}
	})

	t.Run("bad archived filter", func(t *testing.T) {
		c, _ := newTestContext(http.MethodGet, "/api/orders?archived=banana", "")
		setActor(c, testAdminActor())

		handler := NewOrderHandler(&mockOrderService{}, &mockStatusService{})
		err := handler.ListOrders(c)
		if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
			t.Fatalf("error = %v, want 400", err)
		}
	})
}
