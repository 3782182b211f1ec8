package blob

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// UploadURLTTL - срок жизни ссылки на загрузку.
	UploadURLTTL = 10 * time.Minute
	// DownloadURLTTL - срок жизни ссылки на скачивание.
	DownloadURLTTL = 5 * time.Minute
)

// Store определяет интерфейс объектного хранилища файлов ePOD и счетов.
// Сами байты идут напрямую между клиентом и хранилищем по временным
// ссылкам; API хранит только имя объекта.
type Store interface {
	Exists(ctx context.Context, name string) (bool, error)
	PresignUpload(ctx context.Context, name, contentType string, ttl time.Duration) (string, error)
	PresignDownload(ctx context.Context, name string, ttl time.Duration) (string, error)
	Put(ctx context.Context, name, contentType string, body io.Reader) error
}

// NewEpodBlobName генерирует уникальное имя файла ePOD для заказа.
// Временная метка плюс случайный суффикс исключают коллизии при
// повторных запросах слота.
func NewEpodBlobName(orderID int64) string {
	return fmt.Sprintf("epod/%d/%s-%s.pdf", orderID, time.Now().UTC().Format("20060102T150405"), randomSuffix())
}

// NewInvoiceBlobName генерирует уникальное имя файла счёта для заказа.
func NewInvoiceBlobName(orderID int64) string {
	return fmt.Sprintf("invoices/%d/%s-%s.pdf", orderID, time.Now().UTC().Format("20060102T150405"), randomSuffix())
}

func randomSuffix() string {
	return strings.Split(uuid.NewString(), "-")[0]
}
