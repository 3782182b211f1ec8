package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agamariel/dostavka/internal/blob"
	"github.com/agamariel/dostavka/internal/models"
	"github.com/agamariel/dostavka/internal/pdf"
	"github.com/agamariel/dostavka/internal/storage"
	"go.uber.org/zap"
)

// ErrorKind классифицирует ошибки подсистемы ePOD для отображения в
// HTTP-статусы.
type ErrorKind int

const (
	KindInvalid ErrorKind = iota
	KindForbidden
	KindNotFound
	KindConflict
)

// EpodError несёт машиночитаемый код отказа. Клиенты ветвятся по коду,
// а не по тексту.
type EpodError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *EpodError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// epodDenied превращает отказ проверки прав в типизированную ошибку.
func epodDenied(d models.Decision) error {
	switch d.Code {
	case models.CodeOrderLocked:
		return &EpodError{Kind: KindForbidden, Code: d.Code, Message: "order is locked by admin completion"}
	case models.CodeDriverProfileNotFound:
		return &EpodError{Kind: KindForbidden, Code: d.Code, Message: "driver profile not found"}
	case models.CodeNotYourOrder:
		return &EpodError{Kind: KindForbidden, Code: d.Code, Message: "order is assigned to another driver"}
	case models.CodeEpodAlreadyExists:
		return &EpodError{Kind: KindConflict, Code: d.Code, Message: "ePOD file already exists"}
	case models.CodeEpodBlobNameMismatch:
		return &EpodError{Kind: KindInvalid, Code: d.Code, Message: "blob name does not match the pending upload"}
	case models.CodeOrderNotDelivered:
		return &EpodError{Kind: KindConflict, Code: d.Code, Message: "order is not delivered yet"}
	default:
		return &EpodError{Kind: KindForbidden, Code: d.Code, Message: "operation is not allowed"}
	}
}

// ConfirmResult - итог подтверждения ePOD.
type ConfirmResult struct {
	Exists       bool              `json:"exists"`
	BlobName     string            `json:"blobName"`
	Status       models.EpodStatus `json:"status"`
	UploadedUTC  *time.Time        `json:"uploadedUtc"`
	ConfirmedUTC *time.Time        `json:"confirmedUtc"`
}

// EpodService определяет протокол работы с подтверждениями доставки.
type EpodService interface {
	RequestUploadSlot(ctx context.Context, orderID int64, actor models.Actor) (*models.UploadSlotResponse, error)
	Attach(ctx context.Context, orderID int64, actor models.Actor, blobName string, lat, lng *float64) (*models.EpodFile, error)
	Confirm(ctx context.Context, orderID int64) (*ConfirmResult, error)
	DownloadURL(ctx context.Context, orderID int64) (string, error)
	CreateFromPhotos(ctx context.Context, orderID int64, actor models.Actor, photos [][]byte, lat, lng *float64) (*models.EpodFile, error)
}

// EpodServiceImpl реализует EpodService.
type EpodServiceImpl struct {
	orderStorage storage.OrderStorage
	epodStorage  storage.EpodStorage
	blobs        blob.Store
	logger       *zap.Logger
}

// NewEpodService создаёт сервис подтверждений доставки.
func NewEpodService(orderStorage storage.OrderStorage, epodStorage storage.EpodStorage, blobs blob.Store, logger *zap.Logger) *EpodServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EpodServiceImpl{
		orderStorage: orderStorage,
		epodStorage:  epodStorage,
		blobs:        blobs,
		logger:       logger,
	}
}

// RequestUploadSlot резервирует имя файла и выдаёт временную ссылку на
// загрузку. Запись ePOD сохраняется в состоянии Pending до выдачи
// ссылки, иначе клиент мог бы загрузить файл под ещё не сохранённым
// именем.
func (s *EpodServiceImpl) RequestUploadSlot(ctx context.Context, orderID int64, actor models.Actor) (*models.UploadSlotResponse, error) {
	order, err := s.orderStorage.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	file, err := s.getEpod(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if d := models.CanRequestUploadSlot(actor, order, file); !d.Allowed {
		return nil, epodDenied(d)
	}

	upsert := &models.EpodFile{
		OrderID:  order.ID,
		BlobName: blob.NewEpodBlobName(order.ID),
		Status:   models.EpodPending,
	}
	if err := s.epodStorage.Upsert(ctx, upsert); err != nil {
		return nil, fmt.Errorf("reserve upload slot: %w", err)
	}

	url, err := s.blobs.PresignUpload(ctx, upsert.BlobName, "application/pdf", blob.UploadURLTTL)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	return &models.UploadSlotResponse{BlobName: upsert.BlobName, UploadURL: url}, nil
}

// Attach привязывает загруженный файл к заказу. Клиент к этому моменту
// уже отправил байты напрямую в хранилище; наличие файла проверяется,
// но подтверждение — отдельный шаг.
func (s *EpodServiceImpl) Attach(ctx context.Context, orderID int64, actor models.Actor, blobName string, lat, lng *float64) (*models.EpodFile, error) {
	order, err := s.orderStorage.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	file, err := s.getEpod(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if d := models.CanAttachEpod(actor, order, file, blobName); !d.Allowed {
		return nil, epodDenied(d)
	}

	exists, err := s.blobs.Exists(ctx, blobName)
	if err != nil {
		return nil, fmt.Errorf("check blob existence: %w", err)
	}
	if !exists {
		return nil, &EpodError{Kind: KindInvalid, Code: models.CodeEpodBlobNotFound, Message: "Blob does not exist"}
	}

	now := time.Now().UTC()
	upsert := &models.EpodFile{
		OrderID:     order.ID,
		BlobName:    blobName,
		Status:      models.EpodPending,
		Lat:         lat,
		Lng:         lng,
		UploadedUTC: &now,
	}
	if err := s.epodStorage.Upsert(ctx, upsert); err != nil {
		return nil, fmt.Errorf("attach epod: %w", err)
	}

	return upsert, nil
}

// Confirm проверяет наличие файла в хранилище и фиксирует итог:
// Confirmed либо Failed. Это авторитетный переход, от которого зависит
// завершение заказа. Повторное подтверждение возвращает тот же результат.
func (s *EpodServiceImpl) Confirm(ctx context.Context, orderID int64) (*ConfirmResult, error) {
	file, err := s.epodStorage.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrEpodNotFound) {
			return nil, &EpodError{Kind: KindConflict, Code: models.CodeEpodMissing, Message: "order has no ePOD record"}
		}
		return nil, err
	}

	if file.Status == models.EpodConfirmed {
		return confirmResult(file), nil
	}

	exists, err := s.blobs.Exists(ctx, file.BlobName)
	if err != nil {
		return nil, fmt.Errorf("check blob existence: %w", err)
	}

	if !exists {
		file.Status = models.EpodFailed
		if uerr := s.epodStorage.Update(ctx, file); uerr != nil {
			return nil, fmt.Errorf("mark epod failed: %w", uerr)
		}
		s.logger.Warn("epod blob missing on confirm",
			zap.Int64("order_id", orderID),
			zap.String("blob_name", file.BlobName),
		)
		return nil, &EpodError{Kind: KindConflict, Code: models.CodeEpodBlobNotFound, Message: "ePOD blob not found in storage"}
	}

	now := time.Now().UTC()
	file.Status = models.EpodConfirmed
	if file.UploadedUTC == nil {
		file.UploadedUTC = &now
	}
	file.ConfirmedUTC = &now
	if err := s.epodStorage.Update(ctx, file); err != nil {
		return nil, fmt.Errorf("confirm epod: %w", err)
	}

	return confirmResult(file), nil
}

// DownloadURL выдаёт временную ссылку на чтение файла. Наличие файла
// перепроверяется, чтобы не отдавать битую ссылку на удалённый объект.
func (s *EpodServiceImpl) DownloadURL(ctx context.Context, orderID int64) (string, error) {
	file, err := s.epodStorage.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrEpodNotFound) {
			return "", &EpodError{Kind: KindNotFound, Code: models.CodeEpodNotFound, Message: "ePOD not found"}
		}
		return "", err
	}

	exists, err := s.blobs.Exists(ctx, file.BlobName)
	if err != nil {
		return "", fmt.Errorf("check blob existence: %w", err)
	}
	if !exists {
		return "", &EpodError{Kind: KindNotFound, Code: models.CodeEpodNotFound, Message: "ePOD not found"}
	}

	url, err := s.blobs.PresignDownload(ctx, file.BlobName, blob.DownloadURLTTL)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return url, nil
}

// CreateFromPhotos собирает PDF из фотографий, загружает его в
// хранилище под свежим именем и привязывает к заказу как Attach.
// Проверка наличия файла не нужна: PDF загружает сам сервер.
func (s *EpodServiceImpl) CreateFromPhotos(ctx context.Context, orderID int64, actor models.Actor, photos [][]byte, lat, lng *float64) (*models.EpodFile, error) {
	order, err := s.orderStorage.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	file, err := s.getEpod(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// имя для проверки прав: Pending-запись перезаписывается свежей
	guardName := ""
	if file != nil && file.Status == models.EpodPending {
		guardName = file.BlobName
	}
	if d := models.CanAttachEpod(actor, order, file, guardName); !d.Allowed {
		return nil, epodDenied(d)
	}

	doc, err := pdf.BuildFromPhotos(photos)
	if err != nil {
		if errors.Is(err, pdf.ErrNoPhotos) || errors.Is(err, pdf.ErrUnsupportedFormat) {
			return nil, &EpodError{Kind: KindInvalid, Code: models.CodeEpodBadPhotos, Message: err.Error()}
		}
		return nil, fmt.Errorf("build pdf: %w", err)
	}

	blobName := blob.NewEpodBlobName(order.ID)
	if err := s.blobs.Put(ctx, blobName, "application/pdf", bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("upload generated pdf: %w", err)
	}

	now := time.Now().UTC()
	upsert := &models.EpodFile{
		OrderID:     order.ID,
		BlobName:    blobName,
		Status:      models.EpodPending,
		Lat:         lat,
		Lng:         lng,
		UploadedUTC: &now,
	}
	if err := s.epodStorage.Upsert(ctx, upsert); err != nil {
		return nil, fmt.Errorf("attach generated epod: %w", err)
	}

	return upsert, nil
}

// getEpod возвращает запись ePOD или nil, если её ещё нет.
func (s *EpodServiceImpl) getEpod(ctx context.Context, orderID int64) (*models.EpodFile, error) {
	file, err := s.epodStorage.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrEpodNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return file, nil
}

func confirmResult(file *models.EpodFile) *ConfirmResult {
	return &ConfirmResult{
		Exists:       true,
		BlobName:     file.BlobName,
		Status:       file.Status,
		UploadedUTC:  file.UploadedUTC,
		ConfirmedUTC: file.ConfirmedUTC,
	}
}
