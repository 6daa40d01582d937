package models

import "time"

// BookingStatus mirrors the lifecycle owned by the booking module.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Booking is a lesson reservation. This service reads bookings but never writes them.
type Booking struct {
	ID          string        `db:"id" json:"id"`
	TeacherID   string        `db:"teacher_id" json:"teacher_id"`
	StudentID   string        `db:"student_id" json:"student_id"`
	StartsAt    time.Time     `db:"starts_at" json:"starts_at"`
	EndsAt      *time.Time    `db:"ends_at" json:"ends_at,omitempty"`
	Status      BookingStatus `db:"status" json:"status"`
	CompletedAt *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
}

// Commits reports whether the booking holds its slots on the teacher's calendar.
func (b Booking) Commits() bool {
	return b.Status == BookingStatusConfirmed || b.Status == BookingStatusCompleted
}
