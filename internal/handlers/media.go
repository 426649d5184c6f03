package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/storage"
	"github.com/nextolk/backend/internal/util"
	"go.uber.org/zap"
)

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// saveImageField stores the image uploaded under field. present is false
// when the request carries no such file; ok is false when a response has
// already been written.
func (h *Handlers) saveImageField(c *gin.Context, field, prefix string) (key string, present, ok bool) {
	if !isMultipart(c) {
		return "", false, true
	}
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", false, true
	}
	if err != nil {
		util.RespondValidationError(c, field, "The submitted data was not a file.")
		return "", true, false
	}
	if err := util.ValidateFilename(header.Filename); err != nil || !util.IsValidImageFile(header.Filename) {
		util.RespondValidationError(c, field, "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		return "", true, false
	}
	if header.Size > util.MaxImageUploadBytes {
		util.RespondValidationError(c, field, fmt.Sprintf("Image must be at most %d MB.", util.MaxImageUploadBytes>>20))
		return "", true, false
	}

	src, err := header.Open()
	if err != nil {
		util.RespondInternalError(c, "Failed to read upload")
		return "", true, false
	}
	defer src.Close()

	result, err := h.store.Save(c.Request.Context(), storage.NewKey(prefix, header.Filename), src, header.Size, util.ContentTypeFor(header.Filename))
	if err != nil {
		logger.Log.Error("Failed to store image", zap.String("field", field), zap.Error(err))
		util.RespondInternalError(c, "Failed to store image")
		return "", true, false
	}
	return result.Key, true, true
}
