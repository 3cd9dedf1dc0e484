package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-management-backend/internal/model"
	"hostel-management-backend/internal/parse"
	"hostel-management-backend/internal/store"
)

// GetAvailability returns free slots per room capacity.
func (h *Handler) GetAvailability(c *gin.Context) {
	availability, err := h.store.Availability(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, availability)
}

type listRoomsQuery struct {
	HostelID  *int `form:"hostel_id" binding:"omitempty,hostel"`
	Capacity  *int `form:"capacity" binding:"omitempty,capacity"`
	Available bool `form:"available"`
}

// ListRooms handles GET /api/admin/rooms.
func (h *Handler) ListRooms(c *gin.Context) {
	var q listRoomsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	rooms, err := h.store.ListRooms(c.Request.Context(), store.RoomFilter{
		HostelID:      q.HostelID,
		Capacity:      q.Capacity,
		AvailableOnly: q.Available,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

type roomInput struct {
	ID               int64 `json:"id" binding:"required,gt=0"`
	HostelID         int   `json:"hostel_id" binding:"hostel"`
	Capacity         int   `json:"capacity" binding:"capacity"`
	CurrentOccupancy int   `json:"current_occupancy" binding:"min=0,ltefield=Capacity"`
}

type createRoomsRequest struct {
	Rooms []roomInput `json:"rooms" binding:"required,min=1,max=5,dive"`
}

// CreateRooms inserts up to five rooms in one transaction.
func (h *Handler) CreateRooms(c *gin.Context) {
	var req createRoomsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	now := h.now().UTC()
	rooms := make([]model.Room, len(req.Rooms))
	for i, in := range req.Rooms {
		rooms[i] = model.Room{
			ID:               in.ID,
			HostelID:         in.HostelID,
			Capacity:         in.Capacity,
			CurrentOccupancy: in.CurrentOccupancy,
			CreatedAt:        now,
		}
	}
	if err := h.store.InsertRooms(c.Request.Context(), rooms); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rooms)
}

// ImportRooms accepts a rooms CSV either as the multipart field "file" or as
// the raw request body.
func (h *Handler) ImportRooms(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	var body io.Reader = c.Request.Body
	if c.ContentType() == "multipart/form-data" {
		fh, err := c.FormFile("file")
		if err != nil {
			badRequest(c, "multipart field \"file\" is required")
			return
		}
		f, err := fh.Open()
		if err != nil {
			h.writeError(c, err)
			return
		}
		defer f.Close()
		body = f
	}

	rooms, err := parse.ParseRooms(body, h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.store.InsertRooms(c.Request.Context(), rooms); err != nil {
		h.writeError(c, err)
		return
	}

	h.log.WithField("rooms", len(rooms)).Info("Rooms imported")
	c.JSON(http.StatusCreated, gin.H{"inserted": len(rooms), "rooms": rooms})
}

// DeleteRoom deletes an empty room.
func (h *Handler) DeleteRoom(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	msg, err := h.store.DeleteRoomAndCascade(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}
