package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/agamariel/dostavka/internal/auth"
	"github.com/agamariel/dostavka/internal/blob"
	"github.com/agamariel/dostavka/internal/config"
	"github.com/agamariel/dostavka/internal/handlers"
	"github.com/agamariel/dostavka/internal/migrations"
	"github.com/agamariel/dostavka/internal/services"
	"github.com/agamariel/dostavka/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// App структура для управления приложением и его зависимостями.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	dbPool *pgxpool.Pool
	blobs  blob.Store
	echo   *echo.Echo

	// Handlers
	userHandler  *handlers.UserHandler
	orderHandler *handlers.OrderHandler
	adminHandler *handlers.AdminHandler
	epodHandler  *handlers.EpodHandler
}

// NewApp создаёт и инициализирует новое приложение.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app := &App{
		cfg:    cfg,
		logger: logger,
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initDependencies(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	app.initServer()

	return app, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

// initDatabase инициализирует подключение к базе данных и выполняет
// миграции. Подключение повторяется с экспоненциальной паузой: база в
// оркестраторе может подняться позже приложения.
func (app *App) initDatabase(ctx context.Context) error {
	if app.cfg.DatabaseURI == "" {
		return fmt.Errorf("DATABASE_URI is required")
	}

	app.logger.Info("running database migrations")
	sqlDB, err := sql.Open("pgx", app.cfg.DatabaseURI)
	if err != nil {
		return fmt.Errorf("unable to open database connection: %w", err)
	}
	defer sqlDB.Close()

	if err := migrations.Run(sqlDB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	app.logger.Info("migrations completed")

	dbPool, err := pgxpool.New(ctx, app.cfg.DatabaseURI)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if perr := dbPool.Ping(ctx); perr != nil {
			app.logger.Warn("database not ready", zap.Error(perr))
			return retry.RetryableError(perr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to ping database: %w", err)
	}

	app.dbPool = dbPool
	app.logger.Info("connected to database")

	return nil
}

// initDependencies инициализирует все зависимости приложения (storage,
// services, handlers).
func (app *App) initDependencies(ctx context.Context) error {
	blobs, err := blob.NewS3Store(ctx, blob.S3Config{
		Endpoint:  app.cfg.S3Endpoint,
		Region:    app.cfg.S3Region,
		Bucket:    app.cfg.S3Bucket,
		AccessKey: app.cfg.S3AccessKey,
		SecretKey: app.cfg.S3SecretKey,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize blob store: %w", err)
	}
	app.blobs = blobs

	// Storage layer
	userStorage := storage.NewPostgresUserStorage(app.dbPool)
	driverStorage := storage.NewPostgresDriverStorage(app.dbPool)
	orderStorage := storage.NewPostgresOrderStorage(app.dbPool)
	logStorage := storage.NewPostgresStatusLogStorage(app.dbPool)
	epodStorage := storage.NewPostgresEpodStorage(app.dbPool)

	// Service layer
	userService := services.NewUserService(userStorage, driverStorage, app.dbPool, app.cfg.JWTSecret, app.cfg.TokenExpiration, app.logger)
	orderService := services.NewOrderService(orderStorage, logStorage, driverStorage)
	statusService := services.NewStatusService(app.dbPool, orderStorage, logStorage)
	epodService := services.NewEpodService(orderStorage, epodStorage, app.blobs, app.logger)
	pipelineService := services.NewPipelineService(orderStorage, epodStorage, app.blobs, app.logger)

	// Handler layer
	app.userHandler = handlers.NewUserHandler(userService)
	app.orderHandler = handlers.NewOrderHandler(orderService, statusService)
	app.adminHandler = handlers.NewAdminHandler(orderService, pipelineService)
	app.epodHandler = handlers.NewEpodHandler(epodService)

	return nil
}

// initServer инициализирует HTTP-сервер и настраивает маршруты.
func (app *App) initServer() {
	e := echo.New()
	e.Validator = handlers.NewRequestValidator()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	// Публичные маршруты (не требуют аутентификации)
	e.POST("/api/login", app.userHandler.Login)

	// Маршруты для аутентифицированных пользователей: админ и водитель
	api := e.Group("/api")
	api.Use(auth.JWTMiddleware(app.cfg.JWTSecret))
	api.GET("/orders", app.orderHandler.ListOrders)
	api.GET("/orders/:id", app.orderHandler.GetOrder)
	api.POST("/orders/:id/status", app.orderHandler.SetStatus)
	api.POST("/orders/:id/epod/upload-sas", app.epodHandler.RequestUploadSlot)
	api.POST("/orders/:id/epod/attach", app.epodHandler.Attach)
	api.POST("/orders/:id/epod/from-photos", app.epodHandler.CreateFromPhotos)

	// Подтверждение и скачивание ePOD - только администратор
	api.POST("/orders/:id/epod/confirm", app.epodHandler.Confirm, auth.AdminOnly())
	api.GET("/orders/:id/epod/download-sas", app.epodHandler.DownloadURL, auth.AdminOnly())

	// Административные маршруты
	admin := e.Group("/api/admin")
	admin.Use(auth.JWTMiddleware(app.cfg.JWTSecret), auth.AdminOnly())
	admin.POST("/orders", app.adminHandler.CreateOrder)
	admin.PUT("/orders/:id", app.adminHandler.UpdateOrder)
	admin.DELETE("/orders/:id", app.adminHandler.DeleteOrder)
	admin.POST("/orders/:id/assign", app.adminHandler.AssignDriver)
	admin.POST("/orders/:id/status", app.orderHandler.SetStatus)
	admin.POST("/orders/:id/complete", app.adminHandler.Complete)
	admin.POST("/orders/:id/reopen", app.adminHandler.Reopen)
	admin.POST("/orders/:id/invoice-info", app.adminHandler.SaveInvoiceInfo)
	admin.POST("/orders/:id/invoice-pdf", app.adminHandler.UploadInvoicePDF)
	admin.POST("/orders/:id/mark-invoiced", app.adminHandler.MarkInvoiced)
	admin.POST("/orders/:id/archive", app.adminHandler.Archive)
	admin.POST("/orders/:id/unarchive", app.adminHandler.Unarchive)
	admin.POST("/orders/:id/mark-paid", app.adminHandler.MarkPaid)
	admin.POST("/orders/:id/mark-unpaid", app.adminHandler.MarkUnpaid)
	admin.POST("/drivers", app.userHandler.CreateDriver)
	admin.GET("/drivers", app.userHandler.ListDrivers)

	app.echo = e
}

// Start запускает приложение.
func (app *App) Start(ctx context.Context) error {
	app.logger.Info("starting server", zap.String("address", app.cfg.RunAddress))
	if err := app.echo.Start(app.cfg.RunAddress); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// Shutdown корректно завершает работу приложения.
func (app *App) Shutdown(ctx context.Context) error {
	app.logger.Info("shutting down server")

	if err := app.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	if app.dbPool != nil {
		app.dbPool.Close()
	}

	app.logger.Info("server gracefully stopped")
	_ = app.logger.Sync()
	return nil
}
