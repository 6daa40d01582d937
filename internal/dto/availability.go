package dto

import "github.com/noah-isme/tutoring-api/internal/models"

// SetAvailabilityRequest replaces a teacher's bookable slots for one date. TeacherID is
// only honoured for admins; teachers always act on their own calendar.
type SetAvailabilityRequest struct {
	TeacherID string `json:"teacherId" validate:"omitempty,max=64"`
	Date      string `json:"date" validate:"required"`
	TimeSlots []int  `json:"timeSlots" validate:"required"`
}

// AvailabilityRangeResponse lists stored days between two dates.
type AvailabilityRangeResponse struct {
	TeacherID string                   `json:"teacher_id"`
	From      string                   `json:"from"`
	To        string                   `json:"to"`
	Days      []models.AvailabilityDay `json:"days"`
}
