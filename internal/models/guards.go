package models

// Машиночитаемые коды отказов подсистемы ePOD. Клиенты ветвятся по
// коду, а не по тексту сообщения.
const (
	CodeOrderLocked           = "ORDER_LOCKED"
	CodeDriverProfileNotFound = "DRIVER_PROFILE_NOT_FOUND"
	CodeNotYourOrder          = "NOT_YOUR_ORDER"
	CodeEpodAlreadyExists     = "EPOD_ALREADY_EXISTS"
	CodeEpodBlobNameMismatch  = "EPOD_BLOBNAME_MISMATCH"
	CodeEpodMissing           = "EPOD_MISSING"
	CodeEpodBlobNotFound      = "EPOD_BLOB_NOT_FOUND"
	CodeEpodNotFound          = "EPOD_NOT_FOUND"
	CodeOrderNotDelivered     = "EPOD_ORDER_NOT_DELIVERED"
	CodeEpodBadPhotos         = "EPOD_BAD_PHOTOS"
)

// Decision - результат проверки прав на операцию. При отказе Code
// содержит машиночитаемую причину.
type Decision struct {
	Allowed bool
	Code    string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(code string) Decision {
	return Decision{Code: code}
}

// CanModifyOrder решает, может ли принципал изменять заказ.
// Администратору можно всегда; водителю - только по своему заказу.
func CanModifyOrder(a Actor, o *Order) Decision {
	if a.IsAdmin() {
		return allow()
	}
	if a.DriverID == nil {
		return deny(CodeDriverProfileNotFound)
	}
	if o.DriverID == nil || *o.DriverID != *a.DriverID {
		return deny(CodeNotYourOrder)
	}
	return allow()
}

// CanRequestUploadSlot решает, может ли принципал зарезервировать слот
// загрузки ePOD. После завершения заказа администратором слот доступен
// только админу; подтверждённый файл водитель перезапросить не может.
func CanRequestUploadSlot(a Actor, o *Order, f *EpodFile) Decision {
	if a.IsAdmin() {
		return allow()
	}
	if o.IsCompletedByAdmin() {
		return deny(CodeOrderLocked)
	}
	if d := CanModifyOrder(a, o); !d.Allowed {
		return d
	}
	if f != nil && f.Status == EpodConfirmed {
		return deny(CodeEpodAlreadyExists)
	}
	return allow()
}

// CanAttachEpod решает, может ли принципал привязать файл blobName к
// заказу. Завершённый админом заказ закрыт для привязки всем, включая
// админа; до завершения админ перезаписывает запись без ограничений.
// Водитель может создать новую запись либо возобновить Pending с тем же
// blobName, и только пока заказ в статусе Delivered.
func CanAttachEpod(a Actor, o *Order, f *EpodFile, blobName string) Decision {
	if o.IsCompletedByAdmin() {
		return deny(CodeOrderLocked)
	}
	if a.IsAdmin() {
		return allow()
	}
	if d := CanModifyOrder(a, o); !d.Allowed {
		return d
	}
	if o.Status != StatusDelivered {
		return deny(CodeOrderNotDelivered)
	}
	if f != nil {
		if f.Status != EpodPending {
			return deny(CodeEpodAlreadyExists)
		}
		if f.BlobName != blobName {
			return deny(CodeEpodBlobNameMismatch)
		}
	}
	return allow()
}
