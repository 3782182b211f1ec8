package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agamariel/dostavka/internal/blob"
	"github.com/agamariel/dostavka/internal/models"
	"github.com/agamariel/dostavka/internal/storage"
	"go.uber.org/zap"
)

var (
	ErrEpodRequired       = errors.New("order has no ePOD file")
	ErrNotCompleted       = errors.New("order is not completed")
	ErrNotInvoiced        = errors.New("order is not invoiced")
	ErrNotArchived        = errors.New("order is not archived")
	ErrAlreadyInvoiced    = errors.New("order is already invoiced")
	ErrContractorRequired = errors.New("contractor name is required")
	ErrDueDateRequired    = errors.New("payment due date is required")
	ErrInvoicePDFRequired = errors.New("invoice PDF is not uploaded")
)

// PipelineService управляет закрытием заказа: завершение админом,
// выставление счёта, архивация и отметка оплаты.
type PipelineService interface {
	Complete(ctx context.Context, orderID int64) (*models.Order, error)
	Reopen(ctx context.Context, orderID int64) (*models.Order, error)
	SaveInvoiceInfo(ctx context.Context, orderID int64, req models.InvoiceInfoRequest) (*models.Order, error)
	UploadInvoicePDF(ctx context.Context, orderID int64, pdfData []byte) (*models.Order, error)
	MarkInvoiced(ctx context.Context, orderID int64) (*models.Order, error)
	Archive(ctx context.Context, orderID int64) (*models.Order, error)
	Unarchive(ctx context.Context, orderID int64) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID int64) (*models.Order, error)
	MarkUnpaid(ctx context.Context, orderID int64) (*models.Order, error)
}

// PipelineServiceImpl реализует PipelineService.
type PipelineServiceImpl struct {
	orderStorage storage.OrderStorage
	epodStorage  storage.EpodStorage
	blobs        blob.Store
	logger       *zap.Logger
}

// NewPipelineService создаёт сервис закрытия заказов.
func NewPipelineService(orderStorage storage.OrderStorage, epodStorage storage.EpodStorage, blobs blob.Store, logger *zap.Logger) *PipelineServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PipelineServiceImpl{
		orderStorage: orderStorage,
		epodStorage:  epodStorage,
		blobs:        blobs,
		logger:       logger,
	}
}

// Complete завершает заказ. Требуется наличие записи ePOD с именем
// файла: заказ без подтверждения доставки завершить нельзя. Повторное
// завершение идемпотентно, но после выставления счёта операция
// блокируется.
func (s *PipelineServiceImpl) Complete(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.orderStorage.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Stage == models.StageCompleted {
		return order, nil
	}
	if order.IsInvoiced() {
		return nil, ErrAlreadyInvoiced
	}

	file, err := s.epodStorage.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrEpodNotFound) {
			return nil, ErrEpodRequired
		}
		return nil, err
	}
	if file.BlobName == "" {
		return nil, ErrEpodRequired
	}

	now := time.Now().UTC()
	order.Stage = models.StageCompleted
	order.CompletedUTC = &now
	if err := s.orderStorage.UpdatePipeline(ctx, order); err != nil {
		return nil, fmt.Errorf("complete order: %w", err)
	}

	s.logger.Info("order completed", zap.Int64("order_id", orderID))
	return order, nil
}

// Reopen возвращает заказ в работу. Сбрасывается весь конвейер
// закрытия, включая реквизиты счёта и отметку оплаты.
func (s *PipelineServiceImpl) Reopen(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.orderStorage.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order.Stage = models.StageOpen
	order.Paid = false
	order.CompletedUTC = nil
	order.InvoicedUTC = nil
	order.ArchivedUTC = nil
	order.PaidUTC = nil
	order.ContractorName = ""
	order.PaymentDueDate = nil
	order.InvoiceAmount = nil
	order.InvoicePDFBlob = ""
	if err := s.orderStorage.UpdatePipeline(ctx, order); err != nil {
		return nil, fmt.Errorf("reopen order: %w", err)
	}

	s.logger.Info("order reopened", zap.Int64("order_id", orderID))
	return order, nil
}

// SaveInvoiceInfo сохраняет реквизиты счёта. Доступно только после
// завершения заказа и до выставления счёта. Дата оплаты хранится как
// бизнес-дата и к UTC не приводится.
func (s *PipelineServiceImpl) SaveInvoiceInfo(ctx context.Context, orderID int64, req models.InvoiceInfoRequest) (*models.Order, error) {
	order, err := s.orderStorage.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.IsCompletedByAdmin() {
		return nil, ErrNotCompleted
	}
	if order.IsInvoiced() {
		return nil, ErrAlreadyInvoiced
	}

	name := strings.TrimSpace(req.ContractorName)
	if name == "" {
		return nil, ErrContractorRequired
	}
	if req.PaymentDueDate.IsZero() {
		return nil, ErrDueDateRequired
	}

	due := req.PaymentDueDate
	order.ContractorName = name
	order.PaymentDueDate = &due
	order.InvoiceAmount = req.Amount
	if err := s.orderStorage.UpdatePipeline(ctx, order); err != nil {
		return nil, fmt.Errorf("save invoice info: %w", err)
	}
	return order, nil
}

// UploadInvoicePDF загружает PDF счёта в хранилище и запоминает имя
// файла у заказа.
func (s *PipelineServiceImpl) UploadInvoicePDF(ctx context.Context, orderID int64, pdfData []byte) (*models.Order, error) {
	order, err := s.orderStorage.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.IsCompletedByAdmin() {
		return nil, ErrNotCompleted
	}
	if order.IsInvoiced() {
		return nil, ErrAlreadyInvoiced
	}
	if len(pdfData) == 0 {
		return nil, ErrInvoicePDFRequired
	}

	blobName := blob.NewInvoiceBlobName(order.ID)
	if err := s.blobs.Put(ctx, blobName, "application/pdf", bytes.NewReader(pdfData)); err != nil {
		return nil, fmt.Errorf("upload invoice pdf: %w", err)
	}

	order.InvoicePDFBlob = blobName
	if err := s.orderStorage.UpdatePipeline(ctx, order); err != nil {
		return nil, fmt.Errorf("save invoice blob name: %w", err)
	}
	return order, nil
}

// MarkInvoiced выставляет счёт. Каждый реквизит проверяется отдельно,
// чтобы клиент получил конкретную причину отказа.
func (s *PipelineServiceImpl) MarkInvoiced(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.orderStorage.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.IsCompletedByAdmin() {
		return nil, ErrNotCompleted
	}
	if order.IsInvoiced() {
		return order, nil
	}
	if strings.TrimSpace(order.ContractorName) == "" {
		return nil, ErrContractorRequired
	}
	if order.PaymentDueDate == nil {
		return nil, ErrDueDateRequired
	}
	if order.InvoicePDFBlob == "" {
		return nil, ErrInvoicePDFRequired
	}

	now := time.Now().UTC()
	order.Stage = models.StageInvoiced
	order.Paid = false
	order.InvoicedUTC = &now
	if err := s.orderStorage.UpdatePipeline(ctx, order); err != nil {
		return nil, fmt.Errorf("mark invoiced: %w", err)
	}

	s.logger.Info("order invoiced", zap.Int64("order_id", orderID))
	return order, nil
}

// Archive перемещает заказ в архив. Доступно только после выставления
// счёта.
func (s *PipelineServiceImpl) Archive(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.orderStorage.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.IsArchived() {
		return order, nil
	}
	if !order.IsInvoiced() {
		return nil, ErrNotInvoiced
	}

	now := time.Now().UTC()
	order.Stage = models.StageArchived
	order.ArchivedUTC = &now
	if err := s.orderStorage.UpdatePipeline(ctx, order); err != nil {
		return nil, fmt.Errorf("archive order: %w", err)
	}
	return order, nil
}

// Unarchive возвращает заказ из архива на этап Completed. Метки
// выставления счёта и оплаты сбрасываются; реквизиты счёта и метка
// завершения сохраняются.
func (s *PipelineServiceImpl) Unarchive(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.orderStorage.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.IsArchived() {
		return nil, ErrNotArchived
	}

	order.Stage = models.StageCompleted
	order.Paid = false
	order.InvoicedUTC = nil
	order.ArchivedUTC = nil
	order.PaidUTC = nil
	if err := s.orderStorage.UpdatePipeline(ctx, order); err != nil {
		return nil, fmt.Errorf("unarchive order: %w", err)
	}
	return order, nil
}

// MarkPaid отмечает архивный заказ оплаченным.
func (s *PipelineServiceImpl) MarkPaid(ctx context.Context, orderID int64) (*models.Order, error) {
	return s.setPaid(ctx, orderID, true)
}

// MarkUnpaid снимает отметку оплаты с архивного заказа.
func (s *PipelineServiceImpl) MarkUnpaid(ctx context.Context, orderID int64) (*models.Order, error) {
	return s.setPaid(ctx, orderID, false)
}

func (s *PipelineServiceImpl) setPaid(ctx context.Context, orderID int64, paid bool) (*models.Order, error) {
	order, err := s.orderStorage.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.IsArchived() {
		return nil, ErrNotArchived
	}
	if order.Paid == paid {
		return order, nil
	}

	order.Paid = paid
	if paid {
		now := time.Now().UTC()
		order.PaidUTC = &now
	} else {
		order.PaidUTC = nil
	}
	if err := s.orderStorage.UpdatePipeline(ctx, order); err != nil {
		return nil, fmt.Errorf("set paid flag: %w", err)
	}
	return order, nil
}
