package auth

import (
	"net/http"
	"strings"

	"github.com/agamariel/dostavka/internal/models"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ContextKey - тип для ключей контекста.
type ContextKey string

const (
	// ActorKey - ключ для хранения принципала в контексте.
	ActorKey ContextKey = "actor"
)

// JWTMiddleware создаёт middleware, которое проверяет JWT токен и
// кладёт принципала (Actor) в контекст запроса.
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractTokenFromHeader(c)

			if token == "" {
				token = extractTokenFromCookie(c)
			}

			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid token")
			}

			claims, err := ValidateToken(token, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			actor := models.Actor{
				UserID:   userID,
				Login:    claims.Login,
				Role:     models.Role(claims.Role),
				DriverID: claims.DriverID,
			}
			c.Set(string(ActorKey), actor)

			return next(c)
		}
	}
}

// AdminOnly пропускает только администраторов.
func AdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := GetActorFromContext(c)
			if err != nil {
				return err
			}
			if !actor.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "admin role required")
			}
			return next(c)
		}
	}
}

// extractTokenFromHeader извлекает токен из заголовка Authorization.
func extractTokenFromHeader(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	// Проверка формата "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return parts[1]
	}

	return ""
}

// extractTokenFromCookie извлекает токен из cookie.
func extractTokenFromCookie(c echo.Context) string {
	cookie, err := c.Cookie("Authorization")
	if err != nil {
		return ""
	}
	return cookie.Value
}

// GetActorFromContext извлекает принципала из контекста.
func GetActorFromContext(c echo.Context) (models.Actor, error) {
	actor, ok := c.Get(string(ActorKey)).(models.Actor)
	if !ok {
		return models.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "actor not found in context")
	}
	return actor, nil
}
