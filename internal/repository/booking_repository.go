package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tutoring-api/internal/models"
)

const bookingColumns = `id, teacher_id, student_id, starts_at, ends_at, status, completed_at`

// BookingRepository reads bookings owned by the booking module.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// FindByID loads a booking by identifier.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListOverlapping returns a teacher's bookings in the given statuses that overlap [from, to).
// Bookings without an end are treated as one slot long.
func (r *BookingRepository) ListOverlapping(ctx context.Context, teacherID string, from, to time.Time, statuses []models.BookingStatus) ([]models.Booking, error) {
	values := make([]string, len(statuses))
	for i, status := range statuses {
		values[i] = string(status)
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE teacher_id = $1
		  AND starts_at < $3
		  AND COALESCE(ends_at, starts_at + INTERVAL '30 minutes') > $2
		  AND status = ANY($4)
		ORDER BY starts_at`
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, teacherID, from, to, pq.Array(values)); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}
