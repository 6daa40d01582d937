package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

// AvailabilityPlanner validates slot proposals and projects timetables. It holds no state
// and never touches storage; callers persist what it returns.
type AvailabilityPlanner struct{}

// SetAvailability normalizes a proposed slot set for teacherID on date. today is the current
// civil date in the teacher's timezone. bookedSlots are the slots already committed by
// confirmed bookings and must all survive the overwrite.
func (AvailabilityPlanner) SetAvailability(teacherID, date, today string, proposed, bookedSlots []int) (*models.AvailabilityDay, error) {
	if strings.TrimSpace(teacherID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	day, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidDate, "date must use YYYY-MM-DD", map[string]interface{}{"date": date})
	}
	current, err := time.Parse(models.DateLayout, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid reference date")
	}
	if day.Before(current) {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidDate, "date is in the past", map[string]interface{}{
			"date":  date,
			"today": today,
		})
	}

	var outOfRange []int
	for _, slot := range proposed {
		if !validSlot(slot) {
			outOfRange = append(outOfRange, slot)
		}
	}
	if len(outOfRange) > 0 {
		outOfRange = normalizeSlots(outOfRange)
		return nil, appErrors.WithDetails(appErrors.ErrSlotOutOfRange,
			fmt.Sprintf("time slots must be between 0 and %d", models.SlotsPerDay-1),
			map[string]interface{}{"slots": outOfRange})
	}

	slots := normalizeSlots(proposed)
	if removed := missingSlots(normalizeSlots(bookedSlots), slots); len(removed) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrBookedSlotRemoved,
			fmt.Sprintf("booked slots cannot be removed: %v", removed),
			map[string]interface{}{"slots": removed})
	}

	stored := make([]int64, len(slots))
	for i, slot := range slots {
		stored[i] = int64(slot)
	}
	return &models.AvailabilityDay{
		TeacherID: teacherID,
		Date:      day.Format(models.DateLayout),
		Slots:     stored,
	}, nil
}

// Timetable projects availability and bookings onto the 48 slots of a day. A booked slot is
// always reported as booked, whether or not it is still offered.
func (AvailabilityPlanner) Timetable(availability *models.AvailabilityDay, bookedSlots []int) []models.TimetableEntry {
	offered := availability.SlotSet()
	booked := make(map[int]struct{}, len(bookedSlots))
	for _, slot := range bookedSlots {
		booked[slot] = struct{}{}
	}

	entries := make([]models.TimetableEntry, models.SlotsPerDay)
	for slot := 0; slot < models.SlotsPerDay; slot++ {
		state := models.SlotUnavailable
		if _, ok := booked[slot]; ok {
			state = models.SlotBooked
		} else if _, ok := offered[slot]; ok {
			state = models.SlotAvailable
		}
		entries[slot] = models.TimetableEntry{Slot: slot, Start: SlotLabel(slot), State: state}
	}
	return entries
}

// SlotOf returns the slot containing t on its civil day in loc.
func SlotOf(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*2 + local.Minute()/30
}

// SlotLabel renders the local start time of a slot, e.g. 19 -> "09:30".
func SlotLabel(slot int) string {
	return fmt.Sprintf("%02d:%02d", slot/2, (slot%2)*30)
}

// BookingSlots lists the slots on date (in loc) committed by the given bookings. Only
// confirmed and completed bookings commit slots; a booking without an end occupies one slot.
func BookingSlots(bookings []models.Booking, date string, loc *time.Location) []int {
	var slots []int
	for _, booking := range bookings {
		if !booking.Commits() {
			continue
		}
		last := booking.StartsAt
		if booking.EndsAt != nil && booking.EndsAt.After(booking.StartsAt) {
			last = booking.EndsAt.Add(-time.Nanosecond)
		}
		startDate := booking.StartsAt.In(loc).Format(models.DateLayout)
		lastDate := last.In(loc).Format(models.DateLayout)
		if startDate > date || lastDate < date {
			continue
		}
		first, final := 0, models.SlotsPerDay-1
		if startDate == date {
			first = SlotOf(booking.StartsAt, loc)
		}
		if lastDate == date {
			final = SlotOf(last, loc)
		}
		for slot := first; slot <= final; slot++ {
			slots = append(slots, slot)
		}
	}
	return normalizeSlots(slots)
}

func validSlot(slot int) bool {
	return slot >= 0 && slot < models.SlotsPerDay
}

// normalizeSlots returns the sorted unique values of slots.
func normalizeSlots(slots []int) []int {
	seen := make(map[int]struct{}, len(slots))
	out := make([]int, 0, len(slots))
	for _, slot := range slots {
		if _, ok := seen[slot]; ok {
			continue
		}
		seen[slot] = struct{}{}
		out = append(out, slot)
	}
	sort.Ints(out)
	return out
}

// missingSlots returns the members of required absent from offered. Both inputs are sorted.
func missingSlots(required, offered []int) []int {
	var missing []int
	i := 0
	for _, slot := range required {
		for i < len(offered) && offered[i] < slot {
			i++
		}
		if i == len(offered) || offered[i] != slot {
			missing = append(missing, slot)
		}
	}
	return missing
}
