package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/agamariel/dostavka/internal/models"
	"github.com/agamariel/dostavka/internal/services"
	"github.com/labstack/echo/v4"
)

type mockUserService struct {
	LoginFunc        func(ctx context.Context, login, password string) (string, *models.User, error)
	CreateDriverFunc func(ctx context.Context, req models.CreateDriverRequest) (*models.Driver, error)
	ListDriversFunc  func(ctx context.Context) ([]*models.Driver, error)
}

func (m *mockUserService) Login(ctx context.Context, login, password string) (string, *models.User, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, login, password)
	}
	return "token", &models.User{Login: login, Role: models.RoleAdmin}, nil
}

func (m *mockUserService) CreateDriver(ctx context.Context, req models.CreateDriverRequest) (*models.Driver, error) {
	if m.CreateDriverFunc != nil {
		return m.CreateDriverFunc(ctx, req)
	}
	return &models.Driver{ID: 1, FullName: req.FullName}, nil
}

func (m *mockUserService) ListDrivers(ctx context.Context) ([]*models.Driver, error) {
	if m.ListDriversFunc != nil {
		return m.ListDriversFunc(ctx)
	}
	return []*models.Driver{}, nil
}

func TestUserHandler_Login(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockService    *mockUserService
		expectedStatus int
	}{
		{
			name:           "successful login",
			body:           `{"login": "admin", "password": "secret123"}`,
			mockService:    &mockUserService{},
			expectedStatus: http.StatusOK,
		},
		{
			name: "invalid credentials",
			body: `{"login": "admin", "password": "wrong"}`,
			mockService: &mockUserService{
				LoginFunc: func(ctx context.Context, login, password string) (string, *models.User, error) {
					return "", nil, services.ErrInvalidCredentials
				},
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing password",
			body:           `{"login": "admin"}`,
			mockService:    &mockUserService{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed json",
			body:           `{"login": `,
			mockService:    &mockUserService{},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestContext(http.MethodPost, "/api/login", tt.body)

			handler := NewUserHandler(tt.mockService)
			err := handler.Login(c)

			if tt.expectedStatus < 400 {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if rec.Code != tt.expectedStatus {
					t.Fatalf("status = %d, want %d", rec.Code, tt.expectedStatus)
				}
				if rec.Header().Get("Authorization") == "" {
					t.Error("token must be set in the Authorization header")
				}
				cookies := rec.Result().Cookies()
				found := false
				for _, cookie := range cookies {
					if cookie.Name == "Authorization" && cookie.Value != "" {
						found = true
					}
				}
				if !found {
					t.Error("token must be set in the Authorization cookie")
				}
			} else {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if he, ok := err.(*echo.HTTPError); ok && he.Code != tt.expectedStatus {
					t.Fatalf("status = %d, want %d", he.Code, tt.expectedStatus)
				}
			}
		})
	}
}

func TestUserHandler_CreateDriver(t *testing.T) {
	t.Run("created with vehicle", func(t *testing.T) {
		var gotReq models.CreateDriverRequest
		service := &mockUserService{
			CreateDriverFunc: func(ctx context.Context, req models.CreateDriverRequest) (*models.Driver, error) {
				gotReq = req
				return &models.Driver{ID: 7, FullName: req.FullName, Phone: req.Phone}, nil
			},
		}

		body := `{"login": "driver2", "password": "secret123", "fullName": "Petrov Petr", "phone": "+79990001122",
			"vehicle": {"plate": "A123BC77", "model": "GAZel Next", "capacityKg": 1500}}`
		c, rec := newTestContext(http.MethodPost, "/api/admin/drivers", body)
		setActor(c, testAdminActor())

		handler := NewUserHandler(service)
		if err := handler.CreateDriver(c); err != nil {
			t.Fatalf("CreateDriver() unexpected error: %v", err)
		}
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}
		if gotReq.Vehicle == nil || gotReq.Vehicle.Plate != "A123BC77" {
			t.Errorf("vehicle = %+v, want plate A123BC77", gotReq.Vehicle)
		}
	})

	t.Run("duplicate login", func(t *testing.T) {
		service := &mockUserService{
			CreateDriverFunc: func(ctx context.Context, req models.CreateDriverRequest) (*models.Driver, error) {
				return nil, services.ErrLoginExists
			},
		}

		body := `{"login": "driver1", "password": "secret123", "fullName": "Ivanov Ivan"}`
		c, _ := newTestContext(http.MethodPost, "/api/admin/drivers", body)
		setActor(c, testAdminActor())

		handler := NewUserHandler(service)
		err := handler.CreateDriver(c)
		if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusConflict {
			t.Fatalf("error = %v, want 409", err)
		}
	})

	t.Run("short password rejected", func(t *testing.T) {
		body := `{"login": "driver2", "password": "123", "fullName": "Petrov Petr"}`
		c, _ := newTestContext(http.MethodPost, "/api/admin/drivers", body)
		setActor(c, testAdminActor())

		handler := NewUserHandler(&mockUserService{})
		err := handler.CreateDriver(c)
		if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
			t.Fatalf("error = %v, want 400", err)
		}
	})
}
