package models

import "github.com/google/uuid"

// Actor - аутентифицированный принципал запроса. Для роли Driver
// заполнен DriverID; у администратора он всегда nil.
type Actor struct {
	UserID   uuid.UUID
	Login    string
	Role     Role
	DriverID *int64
}

// IsAdmin сообщает, является ли принципал администратором.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsDriver сообщает, является ли принципал водителем.
func (a Actor) IsDriver() bool {
	return a.Role == RoleDriver
}
