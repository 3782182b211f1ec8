package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/agamariel/dostavka/internal/auth"
	"github.com/agamariel/dostavka/internal/models"
	"github.com/agamariel/dostavka/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func TestLogin(t *testing.T) {
	password := "secret123"
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{ID: uuid.New(), Login: "driver1", PasswordHash: hash, Role: models.RoleDriver}
	driver := &models.Driver{ID: 7, UserID: user.ID, FullName: "Ivanov Ivan"}

	newService := func(users storage.UserStorage, drivers storage.DriverStorage) *UserServiceImpl {
		return NewUserService(users, drivers, &fakeBeginner{}, "test-secret", time.Hour, nil)
	}

	t.Run("driver token carries driver id", func(t *testing.T) {
		users := &storage.MockUserStorage{
			GetByLoginFunc: func(ctx context.Context, login string) (*models.User, error) {
				return user, nil
			},
		}
		drivers := &storage.MockDriverStorage{
			GetByUserIDFunc: func(ctx context.Context, userID uuid.UUID) (*models.Driver, error) {
				return driver, nil
			},
		}

		token, got, err := newService(users, drivers).Login(context.Background(), "driver1", password)
		if err != nil {
			t.Fatalf("Login() unexpected error: %v", err)
		}
		if got.ID != user.ID {
			t.Errorf("user id = %v, want %v", got.ID, user.ID)
		}

		claims, err := auth.ValidateToken(token, "test-secret")
		if err != nil {
			t.Fatalf("validate token: %v", err)
		}
		if claims.DriverID == nil || *claims.DriverID != driver.ID {
			t.Errorf("token driver id = %v, want %d", claims.DriverID, driver.ID)
		}
	})

	t.Run("unknown login", func(t *testing.T) {
		service := newService(&storage.MockUserStorage{}, &storage.MockDriverStorage{})

		_, _, err := service.Login(context.Background(), "ghost", password)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login() error = %v, want %v", err, ErrInvalidCredentials)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		users := &storage.MockUserStorage{
			GetByLoginFunc: func(ctx context.Context, login string) (*models.User, error) {
				return user, nil
			},
		}

		_, _, err := newService(users, &storage.MockDriverStorage{}).Login(context.Background(), "driver1", "wrong")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login() error = %v, want %v", err, ErrInvalidCredentials)
		}
	})

	t.Run("legacy hash upgraded on login", func(t *testing.T) {
		sum := sha256.Sum256([]byte(password))
		legacy := &models.User{
			ID:           uuid.New(),
			Login:        "oldtimer",
			PasswordHash: hex.EncodeToString(sum[:]),
			Role:         models.RoleAdmin,
		}

		var savedHash string
		users := &storage.MockUserStorage{
			GetByLoginFunc: func(ctx context.Context, login string) (*models.User, error) {
				return legacy, nil
			},
			UpdatePasswordHashFunc: func(ctx context.Context, id uuid.UUID, hash string) error {
				savedHash = hash
				return nil
			},
		}

		_, _, err := newService(users, &storage.MockDriverStorage{}).Login(context.Background(), "oldtimer", password)
		if err != nil {
			t.Fatalf("Login() unexpected error: %v", err)
		}
		if savedHash == "" {
			t.Fatal("legacy hash must be rewritten after successful login")
		}
		if auth.IsLegacyHash(savedHash) {
			t.Error("new hash must not be in the legacy format")
		}
		if !auth.CheckPassword(password, savedHash) {
			t.Error("new hash must verify the same password")
		}
	})

	t.Run("rehash failure does not block login", func(t *testing.T) {
		sum := sha256.Sum256([]byte(password))
		legacy := &models.User{
			ID:           uuid.New(),
			Login:        "oldtimer",
			PasswordHash: hex.EncodeToString(sum[:]),
			Role:         models.RoleAdmin,
		}
		users := &storage.MockUserStorage{
			GetByLoginFunc: func(ctx context.Context, login string) (*models.User, error) {
				return legacy, nil
			},
			UpdatePasswordHashFunc: func(ctx context.Context, id uuid.UUID, hash string) error {
				return errors.New("db unavailable")
			},
		}

		token, _, err := newService(users, &storage.MockDriverStorage{}).Login(context.Background(), "oldtimer", password)
		if err != nil {
			t.Fatalf("Login() unexpected error: %v", err)
		}
		if token == "" {
			t.Error("token must be issued despite the rehash failure")
		}
	})
}

func TestCreateDriver(t *testing.T) {
	t.Run("creates user driver and vehicle in one transaction", func(t *testing.T) {
		var createdUser *models.User
		users := &storage.MockUserStorage{
			CreateTxFunc: func(ctx context.Context, tx pgx.Tx, user *models.User) error {
				createdUser = user
				return nil
			},
		}
		var createdVehicle *models.Vehicle
		drivers := &storage.MockDriverStorage{
			CreateTxFunc: func(ctx context.Context, tx pgx.Tx, driver *models.Driver) error {
				driver.ID = 7
				return nil
			},
			CreateVehicleTxFunc: func(ctx context.Context, tx pgx.Tx, vehicle *models.Vehicle) error {
				createdVehicle = vehicle
				return nil
			},
		}
		beginner := &fakeBeginner{}
		service := NewUserService(users, drivers, beginner, "test-secret", time.Hour, nil)

		req := models.CreateDriverRequest{
			Login:    "driver2",
			Password: "secret123",
			FullName: "Petrov Petr",
			Phone:    "+79990001122",
		}
		req.Vehicle = &struct {
			Plate      string `json:"plate" validate:"required"`
			Model      string `json:"model"`
			CapacityKg int    `json:"capacityKg"`
		}{Plate: "A123BC77", Model: "GAZel Next", CapacityKg: 1500}

		driver, err := service.CreateDriver(context.Background(), req)
		if err != nil {
			t.Fatalf("CreateDriver() unexpected error: %v", err)
		}
		if driver.ID != 7 {
			t.Errorf("driver id = %d, want 7", driver.ID)
		}
		if createdUser.Role != models.RoleDriver {
			t.Errorf("user role = %v, want Driver", createdUser.Role)
		}
		if auth.IsLegacyHash(createdUser.PasswordHash) || createdUser.PasswordHash == req.Password {
			t.Error("password must be stored as a bcrypt hash")
		}
		if createdVehicle == nil || createdVehicle.DriverID != 7 {
			t.Errorf("vehicle = %+v, want driver_id 7", createdVehicle)
		}
		if !beginner.tx.committed {
			t.Error("transaction must be committed")
		}
	})

	t.Run("duplicate login", func(t *testing.T) {
		users := &storage.MockUserStorage{
			CreateTxFunc: func(ctx context.Context, tx pgx.Tx, user *models.User) error {
				return storage.ErrLoginExists
			},
		}
		beginner := &fakeBeginner{}
		service := NewUserService(users, &storage.MockDriverStorage{}, beginner, "test-secret", time.Hour, nil)

		_, err := service.CreateDriver(context.Background(), models.CreateDriverRequest{
			Login:    "driver1",
			Password: "secret123",
			FullName: "Ivanov Ivan",
		})
		if !errors.Is(err, ErrLoginExists) {
			t.Errorf("CreateDriver() error = %v, want %v", err, ErrLoginExists)
		}
		if !beginner.tx.rolledBack {
			t.Error("transaction must be rolled back")
		}
	})

	t.Run("driver profile failure rolls back user", func(t *testing.T) {
		drivers := &storage.MockDriverStorage{
			CreateTxFunc: func(ctx context.Context, tx pgx.Tx, driver *models.Driver) error {
				return errors.New("insert failed")
			},
		}
		beginner := &fakeBeginner{}
		service := NewUserService(&storage.MockUserStorage{}, drivers, beginner, "test-secret", time.Hour, nil)

		_, err := service.CreateDriver(context.Background(), models.CreateDriverRequest{
			Login:    "driver3",
			Password: "secret123",
			FullName: "Sidorov Sidr",
		})
		if err == nil {
			t.Fatal("expected error when driver insert fails")
		}
		if !beginner.tx.rolledBack {
			t.Error("transaction must be rolled back")
		}
	})
}
