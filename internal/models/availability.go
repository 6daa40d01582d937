package models

import (
	"time"

	"github.com/lib/pq"
)

const (
	// SlotsPerDay is the number of half-hour slots in a civil day.
	SlotsPerDay = 48
	// SlotDuration is the length of one slot.
	SlotDuration = 30 * time.Minute
	// DateLayout is the wire and storage format of calendar dates.
	DateLayout = "2006-01-02"
)

// AvailabilityDay is the set of bookable slots a teacher offers on one date.
// Slots are unique and sorted ascending.
type AvailabilityDay struct {
	ID        string        `db:"id" json:"id,omitempty"`
	TeacherID string        `db:"teacher_id" json:"teacher_id"`
	Date      string        `db:"date" json:"date"`
	Slots     pq.Int64Array `db:"slots" json:"slots"`
	Version   int           `db:"version" json:"version"`
	UpdatedBy string        `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// SlotSet returns the slots as a lookup table.
func (d *AvailabilityDay) SlotSet() map[int]struct{} {
	if d == nil {
		return map[int]struct{}{}
	}
	set := make(map[int]struct{}, len(d.Slots))
	for _, s := range d.Slots {
		set[int(s)] = struct{}{}
	}
	return set
}

// SlotState classifies one slot of a teacher's day.
type SlotState string

const (
	SlotUnavailable SlotState = "unavailable"
	SlotAvailable   SlotState = "available"
	SlotBooked      SlotState = "booked"
)

// TimetableEntry is one of the 48 projected slots of a day.
type TimetableEntry struct {
	Slot  int       `json:"slot"`
	Start string    `json:"start"`
	State SlotState `json:"state"`
}

// Timetable is the full-day projection of availability and bookings.
type Timetable struct {
	TeacherID string           `json:"teacher_id"`
	Date      string           `json:"date"`
	Timezone  string           `json:"timezone"`
	Slots     []TimetableEntry `json:"slots"`
}
