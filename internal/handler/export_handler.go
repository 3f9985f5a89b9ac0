package handler

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/nimo-mes/internal/service"
)

// ExportHandler 报表导出处理器
type ExportHandler struct {
	state  *service.StateService
	export *service.ExportService
}

// NewExportHandler 创建报表导出处理器
func NewExportHandler(state *service.StateService, export *service.ExportService) *ExportHandler {
	return &ExportHandler{state: state, export: export}
}

// Cards streams the card register workbook.
// GET /api/v1/export/cards.xlsx
func (h *ExportHandler) Cards(c *gin.Context) {
	snap, err := h.state.Read(c.Request.Context())
	if err != nil {
		InternalError(c, "Failed to load state")
		return
	}

	data, err := h.export.CardsWorkbook(snap)
	if err != nil {
		InternalError(c, "Failed to render workbook")
		return
	}

	filename := fmt.Sprintf("cards-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
