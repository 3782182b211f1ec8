package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agamariel/dostavka/internal/auth"
	"github.com/agamariel/dostavka/internal/models"
	"github.com/agamariel/dostavka/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrLoginExists        = errors.New("login already exists")
)

// UserService определяет интерфейс аутентификации и управления
// водителями.
type UserService interface {
	Login(ctx context.Context, login, password string) (string, *models.User, error)
	CreateDriver(ctx context.Context, req models.CreateDriverRequest) (*models.Driver, error)
	ListDrivers(ctx context.Context) ([]*models.Driver, error)
}

// UserServiceImpl реализует UserService.
type UserServiceImpl struct {
	userStorage   storage.UserStorage
	driverStorage storage.DriverStorage
	db            TxBeginner
	jwtSecret     string
	tokenExp      time.Duration
	logger        *zap.Logger
}

// NewUserService создаёт сервис пользователей.
func NewUserService(userStorage storage.UserStorage, driverStorage storage.DriverStorage, db TxBeginner, jwtSecret string, tokenExp time.Duration, logger *zap.Logger) *UserServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserServiceImpl{
		userStorage:   userStorage,
		driverStorage: driverStorage,
		db:            db,
		jwtSecret:     jwtSecret,
		tokenExp:      tokenExp,
		logger:        logger,
	}
}

// Login аутентифицирует пользователя и выдаёт JWT. Унаследованные
// SHA-256 хеши при успешном входе перезаписываются bcrypt-хешем;
// неудача перезаписи вход не блокирует.
func (s *UserServiceImpl) Login(ctx context.Context, login, password string) (string, *models.User, error) {
	user, err := s.userStorage.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	if auth.IsLegacyHash(user.PasswordHash) {
		if newHash, herr := auth.HashPassword(password); herr == nil {
			if uerr := s.userStorage.UpdatePasswordHash(ctx, user.ID, newHash); uerr != nil {
				s.logger.Warn("failed to upgrade legacy password hash",
					zap.String("login", user.Login),
					zap.Error(uerr),
				)
			}
		}
	}

	var driverID *int64
	if user.Role == models.RoleDriver {
		driver, derr := s.driverStorage.GetByUserID(ctx, user.ID)
		if derr != nil && !errors.Is(derr, storage.ErrDriverNotFound) {
			return "", nil, derr
		}
		if driver != nil {
			driverID = &driver.ID
		}
	}

	token, err := auth.GenerateToken(user, driverID, s.jwtSecret, s.tokenExp)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	return token, user, nil
}

// CreateDriver создаёт учётную запись, профиль водителя и, если указан,
// транспорт одной транзакцией: частично созданный водитель не должен
// появляться в системе.
func (s *UserServiceImpl) CreateDriver(ctx context.Context, req models.CreateDriverRequest) (*models.Driver, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	user := &models.User{
		ID:           uuid.New(),
		Login:        req.Login,
		PasswordHash: hash,
		Role:         models.RoleDriver,
	}
	if err := s.userStorage.CreateTx(ctx, tx, user); err != nil {
		if errors.Is(err, storage.ErrLoginExists) {
			return nil, ErrLoginExists
		}
		return nil, err
	}

	driver := &models.Driver{
		UserID:   user.ID,
		FullName: req.FullName,
		Phone:    req.Phone,
	}
	if err := s.driverStorage.CreateTx(ctx, tx, driver); err != nil {
		return nil, err
	}

	if req.Vehicle != nil {
		vehicle := &models.Vehicle{
			DriverID:   driver.ID,
			Plate:      req.Vehicle.Plate,
			Model:      req.Vehicle.Model,
			CapacityKg: req.Vehicle.CapacityKg,
		}
		if err := s.driverStorage.CreateVehicleTx(ctx, tx, vehicle); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info("driver created",
		zap.Int64("driver_id", driver.ID),
		zap.String("login", user.Login),
	)
	return driver, nil
}

// ListDrivers возвращает всех водителей.
func (s *UserServiceImpl) ListDrivers(ctx context.Context) ([]*models.Driver, error) {
	return s.driverStorage.List(ctx)
}
