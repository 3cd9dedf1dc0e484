package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hostel-management-backend/internal/model"
	"hostel-management-backend/internal/mw"
	"hostel-management-backend/internal/notification"
	"hostel-management-backend/internal/store"
)

// GetProfile returns the signed-in student's record.
func (h *Handler) GetProfile(c *gin.Context) {
	p, _ := mw.CurrentPrincipal(c)
	student, err := h.store.GetStudent(c.Request.Context(), p.AccountID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

// UploadAvatar stores the multipart field "avatar" and sets avatar_url.
func (h *Handler) UploadAvatar(c *gin.Context) {
	if h.avatars == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "avatar storage is not configured", "code": codeUnavailable})
		return
	}
	p, _ := mw.CurrentPrincipal(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	fh, err := c.FormFile("avatar")
	if err != nil {
		badRequest(c, "multipart field \"avatar\" is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer f.Close()

	url, err := h.avatars.Upload(c.Request.Context(), p.AccountID, f, fh.Header.Get("Content-Type"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.store.UpdateAvatar(c.Request.Context(), p.AccountID, url); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar_url": url})
}

// ListBlockStudents lists the students housed in the warden's block, by room.
func (h *Handler) ListBlockStudents(c *gin.Context) {
	p, _ := mw.CurrentPrincipal(c)
	students, err := h.store.ListStudents(c.Request.Context(), store.StudentFilter{Block: p.BlockID})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

// MarkArrival records that a student of the warden's block has arrived.
func (h *Handler) MarkArrival(c *gin.Context) {
	p, _ := mw.CurrentPrincipal(c)
	student, err := h.store.MarkArrived(c.Request.Context(), c.Param("id"), p.BlockID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.log.WithField("student_id", student.ID).WithField("warden_id", p.AccountID).Info("Arrival recorded")
	h.notify(notification.ArrivalNotice(student))
	c.JSON(http.StatusOK, student)
}

type listStudentsQuery struct {
	RoomNo *int64 `form:"room_no" binding:"omitempty,gt=0"`
}

// ListStudents handles GET /api/admin/students.
func (h *Handler) ListStudents(c *gin.Context) {
	var q listStudentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	students, err := h.store.ListStudents(c.Request.Context(), store.StudentFilter{RoomNo: q.RoomNo})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

// DeleteStudent removes a student and everything that belongs to them.
func (h *Handler) DeleteStudent(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	msg, err := h.store.DeleteStudentAndCleanup(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	log := h.log.WithField("student_id", id)
	if err := h.revoker.RevokeAccount(ctx, id, time.Now().Add(h.tokens.TTL())); err != nil {
		log.WithError(err).Error("Failed to revoke sessions of deleted student")
	}
	log.Info(msg)
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

type studentReport struct {
	Student          *model.Student    `json:"student"`
	HostelID         *int              `json:"hostel_id"`
	Arrived          bool              `json:"arrived"`
	ArrivalTimestamp *time.Time        `json:"arrival_timestamp"`
	Complaints       []model.Complaint `json:"complaints"`
	GeneratedAt      time.Time         `json:"generated_at"`
}

// StudentReport returns the data of a printable student report.
func (h *Handler) StudentReport(c *gin.Context) {
	ctx := c.Request.Context()
	student, err := h.store.GetStudent(ctx, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	report := studentReport{
		Student:          student,
		Arrived:          student.Arrived,
		ArrivalTimestamp: student.ArrivalTimestamp,
		GeneratedAt:      h.now().UTC(),
	}
	if student.RoomNo != nil {
		room, err := h.store.GetRoom(ctx, *student.RoomNo)
		if err != nil && !isNotFound(err) {
			h.writeError(c, err)
			return
		}
		if room != nil {
			report.HostelID = &room.HostelID
		}
	}
	report.Complaints, err = h.store.StudentComplaints(ctx, student.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if report.Complaints == nil {
		report.Complaints = []model.Complaint{}
	}
	c.JSON(http.StatusOK, report)
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
