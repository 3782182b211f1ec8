package handlers

import (
	"errors"
	"net/http"

	"github.com/agamariel/dostavka/internal/models"
	"github.com/agamariel/dostavka/internal/services"
	"github.com/labstack/echo/v4"
)

// UserHandler обрабатывает HTTP-запросы аутентификации и управления
// водителями.
type UserHandler struct {
	userService services.UserService
}

// NewUserHandler создаёт новый экземпляр UserHandler.
func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Login обрабатывает POST /api/login.
func (h *UserHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	token, user, err := h.userService.Login(c.Request().Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid login or password")
		}
		return serverError(c, err)
	}

	setAuthToken(c, token)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": token,
		"login": user.Login,
		"role":  user.Role,
	})
}

// CreateDriver обрабатывает POST /api/admin/drivers.
func (h *UserHandler) CreateDriver(c echo.Context) error {
	var req models.CreateDriverRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	driver, err := h.userService.CreateDriver(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrLoginExists) {
			return echo.NewHTTPError(http.StatusConflict, "login already exists")
		}
		return serverError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"id":       driver.ID,
		"fullName": driver.FullName,
		"phone":    driver.Phone,
	})
}

// ListDrivers обрабатывает GET /api/admin/drivers.
func (h *UserHandler) ListDrivers(c echo.Context) error {
	drivers, err := h.userService.ListDrivers(c.Request().Context())
	if err != nil {
		return serverError(c, err)
	}

	response := make([]map[string]interface{}, 0, len(drivers))
	for _, d := range drivers {
		response = append(response, map[string]interface{}{
			"id":       d.ID,
			"fullName": d.FullName,
			"phone":    d.Phone,
		})
	}
	return c.JSON(http.StatusOK, response)
}

// setAuthToken устанавливает токен в cookie и заголовок ответа.
func setAuthToken(c echo.Context, token string) {
	cookie := &http.Cookie{
		Name:     "Authorization",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   86400, // 24 часа
	}
	c.SetCookie(cookie)

	c.Response().Header().Set("Authorization", "Bearer "+token)
}
