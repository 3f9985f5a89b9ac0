package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/nimo-mes/internal/service"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Token string `json:"token" binding:"required"`
}

// Login exchanges the static access token for a session JWT.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	if !h.auth.Enabled() {
		Success(c, gin.H{"authRequired": false})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "token is required")
		return
	}
	if !h.auth.VerifyToken(req.Token) {
		Unauthorized(c, "Invalid access token")
		return
	}

	session, expiresAt, err := h.auth.IssueSession()
	if err != nil {
		InternalError(c, "Failed to issue session")
		return
	}
	Success(c, gin.H{
		"token":     session,
		"expiresAt": expiresAt.UnixMilli(),
	})
}

// CSRFToken issues a CSRF token for subsequent state writes.
// GET /api/v1/auth/csrf
func (h *AuthHandler) CSRFToken(c *gin.Context) {
	if !h.auth.Enabled() {
		Success(c, gin.H{"csrfToken": ""})
		return
	}
	token, err := h.auth.IssueCSRFToken(c.Request.Context())
	if err != nil {
		InternalError(c, "Failed to issue csrf token")
		return
	}
	Success(c, gin.H{"csrfToken": token})
}

// Me reports whether the current credentials are valid and whether auth is
// enforced at all.
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	Success(c, gin.H{
		"authRequired": h.auth.Enabled(),
		"sessionId":    c.GetString("session_id"),
	})
}
