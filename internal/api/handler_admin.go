package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-management-backend/internal/model"
	"hostel-management-backend/internal/store"
)

type paymentView struct {
	model.Payment
	ReceiptID string `json:"receipt_id"`
}

// ListPayments handles GET /api/admin/payments.
func (h *Handler) ListPayments(c *gin.Context) {
	payments, err := h.store.ListPayments(c.Request.Context(), store.PaymentFilter{StudentID: c.Query("student_id")})
	if err != nil {
		h.writeError(c, err)
		return
	}
	views := make([]paymentView, len(payments))
	for i, p := range payments {
		views[i] = paymentView{Payment: p, ReceiptID: p.ReceiptID()}
	}
	c.JSON(http.StatusOK, views)
}

// GetStats returns the admin dashboard counters.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetSchema describes the admin table views and how their columns link.
func (h *Handler) GetSchema(c *gin.Context) {
	c.JSON(http.StatusOK, viewSchema)
}
