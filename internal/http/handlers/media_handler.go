package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/marketplace-backend/internal/dto"
	"github.com/ignatzorin/marketplace-backend/internal/http/handlers/common"
	"github.com/ignatzorin/marketplace-backend/internal/logger"
	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/storage"
)

// ImageStore сохраняет файлы изображений услуг.
type ImageStore interface {
	Save(ctx context.Context, serviceID uuid.UUID, r io.Reader) (string, error)
	URL(relative string) string
	Delete(ctx context.Context, relative string) error
	MaxUploadBytes() int64
}

// ServiceImageAdder добавляет URL изображения в услугу.
type ServiceImageAdder interface {
	AddImage(ctx context.Context, id, requesterID uuid.UUID, url string) (*models.Service, error)
}

// MediaHandler принимает загрузку изображений услуг.
type MediaHandler struct {
	storage ImageStore
	catalog ServiceImageAdder
	log     *logrus.Entry
}

// NewMediaHandler создаёт новый хэндлер.
func NewMediaHandler(storage ImageStore, catalog ServiceImageAdder) *MediaHandler {
	return &MediaHandler{
		storage: storage,
		catalog: catalog,
		log:     logger.WithComponent("media_handler"),
	}
}

// UploadServiceImage POST /api/services/:id/images (multipart, поле file).
func (h *MediaHandler) UploadServiceImage(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	serviceID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		common.Fail(c, apperror.Validation("поле file обязательно"))
		return
	}
	if header.Size > h.storage.MaxUploadBytes() {
		common.Fail(c, apperror.Validation("размер файла превышает лимит"))
		return
	}

	file, err := header.Open()
	if err != nil {
		common.Fail(c, apperror.Internal(err))
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	relative, err := h.storage.Save(ctx, serviceID, file)
	if err != nil {
		common.Fail(c, storageError(err))
		return
	}

	url := h.storage.URL(relative)
	svc, err := h.catalog.AddImage(ctx, serviceID, userID, url)
	if err != nil {
		if delErr := h.storage.Delete(context.WithoutCancel(ctx), relative); delErr != nil {
			h.log.WithError(delErr).WithField("file", relative).Warn("не удалось удалить загруженный файл")
		}
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ImageUploadResponse{URL: url, Service: svc})
}

func storageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrEmptyFile):
		return apperror.Validation("файл не может быть пустым")
	case errors.Is(err, storage.ErrFileTooLarge):
		return apperror.Validation("размер файла превышает лимит")
	case errors.Is(err, storage.ErrUnsupportedType):
		return apperror.Validation("неподдерживаемый формат файла, разрешены jpeg, png, webp и gif")
	default:
		return apperror.Internal(err)
	}
}
