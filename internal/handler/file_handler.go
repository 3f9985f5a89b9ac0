package handler

import (
	"errors"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/nimo-mes/internal/service"
)

// FileHandler 附件下载处理器
type FileHandler struct {
	files *service.FileService
}

// NewFileHandler 创建附件下载处理器
func NewFileHandler(files *service.FileService) *FileHandler {
	return &FileHandler{files: files}
}

// Get streams one attachment by id.
// GET /api/v1/files/:id
func (h *FileHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "file id is required")
		return
	}

	file, err := h.files.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			NotFound(c, "Attachment not found")
			return
		}
		InternalError(c, "Failed to load attachment")
		return
	}

	c.Header("Content-Disposition", `attachment; filename*=UTF-8''`+url.PathEscape(file.Name))
	c.Data(200, file.ContentType, file.Data)
}
