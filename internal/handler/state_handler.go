package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-mes/internal/model/entity"
	"github.com/bitfantasy/nimo-mes/internal/service"
	"github.com/bitfantasy/nimo-mes/internal/snapshot"
)

// StateHandler 状态同步处理器
type StateHandler struct {
	state  *service.StateService
	backup *service.BackupService
	logger *zap.Logger
}

// NewStateHandler 创建状态同步处理器
func NewStateHandler(state *service.StateService, backup *service.BackupService) *StateHandler {
	return &StateHandler{state: state, backup: backup, logger: zap.L()}
}

// writeRequest 客户端提交的完整文档. Version is a pointer so a missing
// field is distinguishable from a claimed version of 0.
type writeRequest struct {
	Version *int64                 `json:"version"`
	Cards   []entity.Card          `json:"cards"`
	Ops     []entity.OperationType `json:"ops"`
	Centers []entity.WorkCenter    `json:"centers"`
}

// Get returns the whole document at its current version.
// GET /api/v1/state
func (h *StateHandler) Get(c *gin.Context) {
	snap, err := h.state.Read(c.Request.Context())
	if err != nil {
		if errors.Is(err, snapshot.ErrCodeExhausted) {
			Conflict(c, err.Error(), nil)
			return
		}
		InternalError(c, "Failed to load state")
		return
	}
	Success(c, snap)
}

// Put replaces the whole document, gated on the claimed version.
// POST /api/v1/state
func (h *StateHandler) Put(c *gin.Context) {
	var req writeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body")
		return
	}
	if req.Version == nil {
		BadRequest(c, "version is required")
		return
	}
	if *req.Version < 1 {
		BadRequest(c, "version must be a positive integer")
		return
	}

	incoming := &entity.Snapshot{
		Cards:   req.Cards,
		Ops:     req.Ops,
		Centers: req.Centers,
	}
	if err := snapshot.Validate(incoming); err != nil {
		BadRequest(c, err.Error())
		return
	}

	next, err := h.state.Write(c.Request.Context(), *req.Version, incoming)
	if err != nil {
		var conflict *service.VersionConflictError
		switch {
		case errors.As(err, &conflict):
			Conflict(c, "State has changed, reload before saving", gin.H{
				"expectedVersion": conflict.Expected,
			})
		case errors.Is(err, snapshot.ErrCodeExhausted):
			Conflict(c, err.Error(), nil)
		default:
			InternalError(c, "Failed to save state")
		}
		return
	}

	Success(c, gin.H{"version": next})
}

// Export writes a JSON backup of the current document to the backup
// directory and returns its path.
// POST /api/v1/state/export
func (h *StateHandler) Export(c *gin.Context) {
	snap, err := h.state.Read(c.Request.Context())
	if err != nil {
		InternalError(c, "Failed to load state")
		return
	}
	path, err := h.backup.Export(c.Request.Context(), snap)
	if err != nil {
		h.logger.Error("Backup export failed", zap.Error(err))
		InternalError(c, "Failed to export state")
		return
	}
	Success(c, gin.H{"path": path, "version": snap.Version})
}
