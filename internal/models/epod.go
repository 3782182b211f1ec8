package models

import "time"

// EpodStatus описывает состояние файла подтверждения доставки.
// Pending - слот зарезервирован или загрузка заявлена клиентом,
// Confirmed - наличие файла в хранилище подтверждено сервером,
// Failed - подтверждение не прошло, слот можно запросить заново.
type EpodStatus int

const (
	EpodPending   EpodStatus = 0
	EpodConfirmed EpodStatus = 1
	EpodFailed    EpodStatus = 2
)

func (s EpodStatus) String() string {
	switch s {
	case EpodPending:
		return "Pending"
	case EpodConfirmed:
		return "Confirmed"
	case EpodFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// EpodFile - подтверждение доставки, связанное с заказом один к одному.
// Сам файл лежит в объектном хранилище под ключом BlobName.
type EpodFile struct {
	ID           int64      `db:"id"`
	OrderID      int64      `db:"order_id"`
	BlobName     string     `db:"blob_name"`
	Status       EpodStatus `db:"status"`
	Lat          *float64   `db:"lat"`
	Lng          *float64   `db:"lng"`
	UploadedUTC  *time.Time `db:"uploaded_utc"`
	ConfirmedUTC *time.Time `db:"confirmed_utc"`
	CreatedAt    time.Time  `db:"created_at"`
}

// AttachEpodRequest - запрос на привязку загруженного файла к заказу.
type AttachEpodRequest struct {
	BlobName string   `json:"blobName" validate:"required"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
}

// UploadSlotResponse - ответ с зарезервированным именем файла и
// временной ссылкой на загрузку.
type UploadSlotResponse struct {
	BlobName  string `json:"blobName"`
	UploadURL string `json:"uploadUrl"`
}
