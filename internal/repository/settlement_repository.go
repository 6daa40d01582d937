package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutoring-api/internal/models"
)

const settlementColumns = `id, booking_id, teacher_id, status, teacher_unit_usd, hold_started_at, dispute_open, payable_at, settled_at, notes, version, created_at, updated_at`

// SettlementRepository persists settlement records.
type SettlementRepository struct {
	db *sqlx.DB
}

// NewSettlementRepository constructs the repository.
func NewSettlementRepository(db *sqlx.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// FindByBookingID loads the settlement of a booking, or sql.ErrNoRows.
func (r *SettlementRepository) FindByBookingID(ctx context.Context, bookingID string) (*models.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements WHERE booking_id = $1`
	var settlement models.Settlement
	if err := r.db.GetContext(ctx, &settlement, query, bookingID); err != nil {
		return nil, err
	}
	return &settlement, nil
}

// Create inserts a new settlement. It returns ErrVersionConflict when the booking already has one.
func (r *SettlementRepository) Create(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.NewString()
	}
	if settlement.Status == "" {
		settlement.Status = models.SettlementPending
	}
	now := time.Now().UTC()
	settlement.CreatedAt = now
	settlement.UpdatedAt = now
	settlement.Version = 1

	const query = `INSERT INTO settlements (` + settlementColumns + `)
		VALUES (:id, :booking_id, :teacher_id, :status, :teacher_unit_usd, :hold_started_at, :dispute_open, :payable_at, :settled_at, :notes, :version, :created_at, :updated_at)
		ON CONFLICT (booking_id) DO NOTHING`
	result, err := r.db.NamedExecContext(ctx, query, settlement)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}
	return requireAffected(result, "insert settlement")
}

// Update writes every mutable column when the stored version still equals settlement.Version.
// On success the version is incremented in place.
func (r *SettlementRepository) Update(ctx context.Context, settlement *models.Settlement) error {
	settlement.UpdatedAt = time.Now().UTC()
	const query = `UPDATE settlements
		SET status = :status,
		    teacher_unit_usd = :teacher_unit_usd,
		    hold_started_at = :hold_started_at,
		    dispute_open = :dispute_open,
		    payable_at = :payable_at,
		    settled_at = :settled_at,
		    notes = :notes,
		    version = version + 1,
		    updated_at = :updated_at
		WHERE id = :id AND version = :version`
	result, err := r.db.NamedExecContext(ctx, query, settlement)
	if err != nil {
		return fmt.Errorf("update settlement: %w", err)
	}
	if err := requireAffected(result, "update settlement"); err != nil {
		return err
	}
	settlement.Version++
	return nil
}

// ListReadyDue returns READY settlements whose payable_at is not after now, oldest first.
func (r *SettlementRepository) ListReadyDue(ctx context.Context, now time.Time, limit int) ([]models.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements
		WHERE status = $1 AND payable_at <= $2
		ORDER BY payable_at, id LIMIT $3`
	var settlements []models.Settlement
	if err := r.db.SelectContext(ctx, &settlements, query, models.SettlementReady, now, limit); err != nil {
		return nil, fmt.Errorf("list ready settlements: %w", err)
	}
	return settlements, nil
}

// ListBlockedHoldElapsed returns undisputed BLOCKED settlements whose hold started at or before cutoff.
func (r *SettlementRepository) ListBlockedHoldElapsed(ctx context.Context, cutoff time.Time, limit int) ([]models.Settlement, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlements
		WHERE status = $1 AND dispute_open = FALSE AND hold_started_at <= $2
		ORDER BY hold_started_at, id LIMIT $3`
	var settlements []models.Settlement
	if err := r.db.SelectContext(ctx, &settlements, query, models.SettlementBlocked, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list blocked settlements: %w", err)
	}
	return settlements, nil
}

// StatementFilter narrows the settled payouts included in a statement.
type StatementFilter struct {
	TeacherID string
	From      time.Time
	To        time.Time
}

// ListSettledBetween returns settled payouts with settled_at in [From, To).
func (r *SettlementRepository) ListSettledBetween(ctx context.Context, filter StatementFilter) ([]models.SettlementStatementRow, error) {
	conditions := []string{"s.status = $1", "s.settled_at >= $2", "s.settled_at < $3"}
	args := []interface{}{models.SettlementSettled, filter.From, filter.To}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("s.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}

	query := `SELECT s.booking_id, s.teacher_id, t.full_name AS teacher_name, b.starts_at,
		COALESCE(s.teacher_unit_usd, 0) AS teacher_unit_usd, s.payable_at, s.settled_at
		FROM settlements s
		JOIN teachers t ON t.id = s.teacher_id
		JOIN bookings b ON b.id = s.booking_id
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY s.settled_at, s.booking_id`
	var rows []models.SettlementStatementRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list settled settlements: %w", err)
	}
	return rows, nil
}
