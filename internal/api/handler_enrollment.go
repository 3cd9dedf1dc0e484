package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-management-backend/internal/enrollment"
	"hostel-management-backend/internal/model"
)

type enrollmentResponse struct {
	Student         *model.Student `json:"student"`
	Room            *model.Room    `json:"room"`
	Payment         *model.Payment `json:"payment"`
	ReceiptID       string         `json:"receipt_id"`
	BacklinkPending bool           `json:"backlink_pending"`
}

// Enroll signs a new student up, allots a room and records the fee.
func (h *Handler) Enroll(c *gin.Context) {
	var req enrollment.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.enroller.Enroll(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, enrollmentResponse{
		Student:         result.Student,
		Room:            result.Room,
		Payment:         result.Payment,
		ReceiptID:       result.Payment.ReceiptID(),
		BacklinkPending: result.BacklinkPending,
	})
}
