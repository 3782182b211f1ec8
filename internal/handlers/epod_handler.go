package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/agamariel/dostavka/internal/auth"
	"github.com/agamariel/dostavka/internal/models"
	"github.com/agamariel/dostavka/internal/services"
	"github.com/agamariel/dostavka/internal/storage"
	"github.com/labstack/echo/v4"
)

// максимальный размер одной фотографии
const maxPhotoSize = 15 << 20

// EpodHandler обрабатывает протокол подтверждения доставки: выдачу
// временных ссылок, привязку файлов и подтверждение.
type EpodHandler struct {
	epodService services.EpodService
}

// NewEpodHandler создаёт новый экземпляр EpodHandler.
func NewEpodHandler(epodService services.EpodService) *EpodHandler {
	return &EpodHandler{epodService: epodService}
}

// RequestUploadSlot обрабатывает POST /api/orders/:id/epod/upload-sas.
func (h *EpodHandler) RequestUploadSlot(c echo.Context) error {
	actor, err := auth.GetActorFromContext(c)
	if err != nil {
		return err
	}
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	slot, err := h.epodService.RequestUploadSlot(c.Request().Context(), orderID, actor)
	if err != nil {
		return h.epodError(c, err)
	}
	return c.JSON(http.StatusOK, slot)
}

// Attach обрабатывает POST /api/orders/:id/epod/attach.
func (h *EpodHandler) Attach(c echo.Context) error {
	actor, err := auth.GetActorFromContext(c)
	if err != nil {
		return err
	}
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	var req models.AttachEpodRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	file, err := h.epodService.Attach(c.Request().Context(), orderID, actor, req.BlobName, req.Lat, req.Lng)
	if err != nil {
		return h.epodError(c, err)
	}
	return c.JSON(http.StatusOK, h.mapEpodToResponse(file))
}

// CreateFromPhotos обрабатывает POST /api/orders/:id/epod/from-photos.
// Принимает multipart/form-data с фотографиями в поле photos; сервер
// собирает из них PDF и привязывает его к заказу.
func (h *EpodHandler) CreateFromPhotos(c echo.Context) error {
	actor, err := auth.GetActorFromContext(c)
	if err != nil {
		return err
	}
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expected multipart form")
	}
	files := form.File["photos"]
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no photos provided")
	}

	photos := make([][]byte, 0, len(files))
	for _, fh := range files {
		if fh.Size > maxPhotoSize {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "photo is too large")
		}
		src, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unable to read photo")
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unable to read photo")
		}
		photos = append(photos, data)
	}

	lat, err := floatQueryParam(c, "lat")
	if err != nil {
		return err
	}
	lng, err := floatQueryParam(c, "lng")
	if err != nil {
		return err
	}

	file, err := h.epodService.CreateFromPhotos(c.Request().Context(), orderID, actor, photos, lat, lng)
	if err != nil {
		return h.epodError(c, err)
	}
	return c.JSON(http.StatusOK, h.mapEpodToResponse(file))
}

// Confirm обрабатывает POST /api/orders/:id/epod/confirm.
func (h *EpodHandler) Confirm(c echo.Context) error {
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	result, err := h.epodService.Confirm(c.Request().Context(), orderID)
	if err != nil {
		return h.epodError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// DownloadURL обрабатывает GET /api/orders/:id/epod/download-sas.
func (h *EpodHandler) DownloadURL(c echo.Context) error {
	orderID, err := orderIDParam(c)
	if err != nil {
		return err
	}

	url, err := h.epodService.DownloadURL(c.Request().Context(), orderID)
	if err != nil {
		return h.epodError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"downloadUrl": url})
}

// epodError маппит ошибки подсистемы ePOD в HTTP-ответы с машиночитаемым
// кодом в теле.
func (h *EpodHandler) epodError(c echo.Context, err error) error {
	var epodErr *services.EpodError
	if errors.As(err, &epodErr) {
		status := http.StatusBadRequest
		switch epodErr.Kind {
		case services.KindForbidden:
			status = http.StatusForbidden
		case services.KindNotFound:
			status = http.StatusNotFound
		case services.KindConflict:
			status = http.StatusConflict
		}
		return c.JSON(status, map[string]string{
			"code":    epodErr.Code,
			"message": epodErr.Message,
		})
	}
	if errors.Is(err, storage.ErrOrderNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}
	return serverError(c, err)
}

func (h *EpodHandler) mapEpodToResponse(file *models.EpodFile) map[string]interface{} {
	response := map[string]interface{}{
		"blobName": file.BlobName,
		"status":   int(file.Status),
		"lat":      file.Lat,
		"lng":      file.Lng,
	}
	if file.UploadedUTC != nil {
		response["uploadedUtc"] = file.UploadedUTC.Format(time.RFC3339)
	}
	if file.ConfirmedUTC != nil {
		response["confirmedUtc"] = file.ConfirmedUTC.Format(time.RFC3339)
	}
	return response
}
