package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoring-api/internal/models"
)

const availabilityColumns = `id, teacher_id, to_char(date, 'YYYY-MM-DD') AS date, slots, version, updated_by, created_at, updated_at`

// AvailabilityRepository persists teacher availability days.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// Get returns the stored day for a teacher, or sql.ErrNoRows.
func (r *AvailabilityRepository) Get(ctx context.Context, teacherID, date string) (*models.AvailabilityDay, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availability_days WHERE teacher_id = $1 AND date = $2`
	var day models.AvailabilityDay
	if err := r.db.GetContext(ctx, &day, query, teacherID, date); err != nil {
		return nil, err
	}
	return &day, nil
}

// ListRange returns stored days between from and to inclusive, ordered by date.
func (r *AvailabilityRepository) ListRange(ctx context.Context, teacherID, from, to string) ([]models.AvailabilityDay, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availability_days WHERE teacher_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date`
	var days []models.AvailabilityDay
	if err := r.db.SelectContext(ctx, &days, query, teacherID, from, to); err != nil {
		return nil, fmt.Errorf("list availability days: %w", err)
	}
	return days, nil
}

// Save replaces the slot set of a day. expectedVersion 0 means the day must not exist yet;
// otherwise the stored version must match. On success day.Version holds the new version.
func (r *AvailabilityRepository) Save(ctx context.Context, day *models.AvailabilityDay, expectedVersion int) error {
	now := time.Now().UTC()
	day.UpdatedAt = now

	if expectedVersion == 0 {
		if day.ID == "" {
			day.ID = uuid.NewString()
		}
		day.CreatedAt = now
		day.Version = 1
		const insertQuery = `INSERT INTO availability_days (id, teacher_id, date, slots, version, updated_by, created_at, updated_at)
		VALUES (:id, :teacher_id, :date, :slots, :version, :updated_by, :created_at, :updated_at)
		ON CONFLICT (teacher_id, date) DO NOTHING`
		result, err := r.db.NamedExecContext(ctx, insertQuery, day)
		if err != nil {
			return fmt.Errorf("insert availability day: %w", err)
		}
		return requireAffected(result, "insert availability day")
	}

	const updateQuery = `UPDATE availability_days
		SET slots = $1, version = version + 1, updated_by = $2, updated_at = $3
		WHERE teacher_id = $4 AND date = $5 AND version = $6`
	result, err := r.db.ExecContext(ctx, updateQuery, day.Slots, day.UpdatedBy, now, day.TeacherID, day.Date, expectedVersion)
	if err != nil {
		return fmt.Errorf("update availability day: %w", err)
	}
	if err := requireAffected(result, "update availability day"); err != nil {
		return err
	}
	day.Version = expectedVersion + 1
	return nil
}
