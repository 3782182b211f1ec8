package models

import (
	"time"

	"github.com/google/uuid"
)

// Role - роль пользователя системы.
type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleDriver Role = "Driver"
)

// User представляет пользователя системы.
type User struct {
	ID           uuid.UUID `db:"id"`
	Login        string    `db:"login"`
	PasswordHash string    `db:"password_hash"`
	Role         Role      `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Driver - профиль водителя, связан с пользователем один к одному.
type Driver struct {
	ID        int64     `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	FullName  string    `db:"full_name"`
	Phone     string    `db:"phone"`
	CreatedAt time.Time `db:"created_at"`
}

// Vehicle - транспорт водителя, связан с водителем один к одному.
type Vehicle struct {
	ID         int64  `db:"id"`
	DriverID   int64  `db:"driver_id"`
	Plate      string `db:"plate"`
	Model      string `db:"model"`
	CapacityKg int    `db:"capacity_kg"`
}

// LoginRequest - запрос на аутентификацию.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CreateDriverRequest - запрос на создание водителя вместе с учётной
// записью и, опционально, транспортом.
type CreateDriverRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"fullName" validate:"required"`
	Phone    string `json:"phone"`
	Vehicle  *struct {
		Plate      string `json:"plate" validate:"required"`
		Model      string `json:"model"`
		CapacityKg int    `json:"capacityKg"`
	} `json:"vehicle"`
}
