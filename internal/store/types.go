package store

import "hostel-management-backend/internal/model"

// RoomFilter narrows ListRooms. Zero values match everything.
type RoomFilter struct {
	HostelID      *int
	Capacity      *int
	AvailableOnly bool
}

// StudentFilter narrows ListStudents. Block restricts to rooms of one hostel
// block and orders by room number.
type StudentFilter struct {
	RoomNo *int64
	Block  *int
}

// PaymentFilter narrows ListPayments.
type PaymentFilter struct {
	StudentID string
}

// ComplaintFilter narrows ListComplaints. Block listings come back oldest
// first; all other listings are ordered by ID.
type ComplaintFilter struct {
	StudentID string
	Status    model.ComplaintStatus
	Block     *int
}

// BlockComplaint is a complaint joined with the lodging student's name and room.
type BlockComplaint struct {
	model.Complaint
	StudentName string `json:"student_name"`
	RoomNo      *int64 `json:"room_no"`
}

// CapacityAvailability summarises free space for one capacity class.
type CapacityAvailability struct {
	Capacity  int   `json:"capacity"`
	Rooms     int64 `json:"rooms"`
	FreeSlots int64 `json:"free_slots"`
}

// Stats holds the admin dashboard counters.
type Stats struct {
	TotalStudents  int64 `json:"total_students"`
	TotalRooms     int64 `json:"total_rooms"`
	OccupiedRooms  int64 `json:"occupied_rooms"`
	OpenComplaints int64 `json:"pending_complaints"`
}
