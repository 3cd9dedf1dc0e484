package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-management-backend/internal/model"
	"hostel-management-backend/internal/mw"
	"hostel-management-backend/internal/notification"
	"hostel-management-backend/internal/store"
)

// ListMyComplaints returns the signed-in student's complaints, newest first.
// Students who have not arrived yet have no complaint history to show.
func (h *Handler) ListMyComplaints(c *gin.Context) {
	p, _ := mw.CurrentPrincipal(c)
	ctx := c.Request.Context()

	student, err := h.store.GetStudent(ctx, p.AccountID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !student.Arrived {
		h.writeError(c, store.ErrNotArrived)
		return
	}

	complaints, err := h.store.StudentComplaints(ctx, student.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaints)
}

type createComplaintRequest struct {
	Category    model.ComplaintCategory `json:"category" binding:"required,category"`
	Description string                  `json:"description" binding:"required,max=2000"`
}

// CreateComplaint lodges a new complaint for the signed-in student.
func (h *Handler) CreateComplaint(c *gin.Context) {
	var req createComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, _ := mw.CurrentPrincipal(c)

	complaint, err := h.store.CreateComplaint(c.Request.Context(), p.AccountID, req.Category, req.Description)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.log.WithField("complaint_id", complaint.ID).WithField("student_id", p.AccountID).Info("Complaint lodged")
	c.JSON(http.StatusCreated, complaint)
}

// ListBlockComplaints lists complaints of the warden's block, oldest first.
func (h *Handler) ListBlockComplaints(c *gin.Context) {
	p, _ := mw.CurrentPrincipal(c)
	complaints, err := h.store.ListComplaints(c.Request.Context(), store.ComplaintFilter{Block: p.BlockID})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaints)
}

type listComplaintsQuery struct {
	StudentID string                `form:"student_id"`
	Status    model.ComplaintStatus `form:"status" binding:"omitempty,oneof=Pending 'Forwarded to Admin' Resolved"`
}

// ListComplaints handles GET /api/admin/complaints.
func (h *Handler) ListComplaints(c *gin.Context) {
	var q listComplaintsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	complaints, err := h.store.ListComplaints(c.Request.Context(), store.ComplaintFilter{
		StudentID: q.StudentID,
		Status:    q.Status,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaints)
}

// ForwardComplaint escalates a Pending complaint to the admin.
func (h *Handler) ForwardComplaint(c *gin.Context) {
	h.transitionComplaint(c, model.ComplaintForwarded)
}

// ResolveComplaint closes a complaint. Wardens are limited to their block.
func (h *Handler) ResolveComplaint(c *gin.Context) {
	h.transitionComplaint(c, model.ComplaintResolved)
}

func (h *Handler) transitionComplaint(c *gin.Context, to model.ComplaintStatus) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	p, _ := mw.CurrentPrincipal(c)
	var block *int
	if p.Role == model.RoleWarden {
		block = p.BlockID
	}

	ctx := c.Request.Context()
	complaint, err := h.store.TransitionComplaint(ctx, id, to, block)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.log.WithField("complaint_id", id).WithField("status", to).WithField("by", p.AccountID).Info("Complaint status changed")

	if student, err := h.store.GetStudent(ctx, complaint.StudentID); err == nil {
		h.notify(notification.ComplaintStatusNotice(student, complaint))
	}
	c.JSON(http.StatusOK, complaint)
}
