package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hostel-management-backend/internal/model"
	"hostel-management-backend/internal/mw"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	AccountID string     `json:"account_id"`
	Role      model.Role `json:"role"`
	BlockID   *int       `json:"block_id,omitempty"`
}

// Login exchanges credentials for an access token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}

	account, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	token, claims, err := h.tokens.Issue(account)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		AccountID: account.ID,
		Role:      account.Role,
		BlockID:   account.BlockID,
	})
}

// Logout revokes the caller's token until it expires.
func (h *Handler) Logout(c *gin.Context) {
	p, _ := mw.CurrentPrincipal(c)
	if err := h.revoker.Revoke(c.Request.Context(), p.TokenID, p.ExpiresAt); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type createStaffRequest struct {
	Email    string     `json:"email" binding:"required,email"`
	Password string     `json:"password" binding:"required,min=6"`
	Role     model.Role `json:"role" binding:"required,oneof=warden admin"`
	BlockID  *int       `json:"block_id" binding:"omitempty,hostel"`
}

// CreateStaff creates a warden or admin account.
func (h *Handler) CreateStaff(c *gin.Context) {
	var req createStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	switch {
	case req.Role == model.RoleAdmin:
		req.BlockID = nil
	case req.BlockID == nil:
		badRequest(c, "block_id is required for wardens")
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), req.Email, req.Password, req.Role, req.BlockID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.log.WithField("account_id", account.ID).WithField("role", account.Role).Info("Staff account created")
	c.JSON(http.StatusCreated, account)
}
