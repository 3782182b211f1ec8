package auth

import (
	"errors"
	"time"

	"github.com/agamariel/dostavka/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims содержит информацию о принципале в JWT токене.
type Claims struct {
	UserID   string `json:"user_id"`
	Login    string `json:"login"`
	Role     string `json:"role"`
	DriverID *int64 `json:"driver_id,omitempty"`
	jwt.RegisteredClaims
}

var (
	// ErrInvalidToken возвращается при невалидном токене.
	ErrInvalidToken = errors.New("invalid token")
)

// GenerateToken генерирует JWT токен для пользователя. Для роли Driver
// driverID указывает на профиль водителя.
func GenerateToken(user *models.User, driverID *int64, secret string, expiration time.Duration) (string, error) {
	claims := Claims{
		UserID:   user.ID.String(),
		Login:    user.Login,
		Role:     string(user.Role),
		DriverID: driverID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken валидирует JWT токен и возвращает claims.
func ValidateToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверка метода подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
