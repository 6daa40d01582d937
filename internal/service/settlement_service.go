package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/internal/repository"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
	"github.com/noah-isme/tutoring-api/pkg/export"
)

type settlementRepository interface {
	FindByBookingID(ctx context.Context, bookingID string) (*models.Settlement, error)
	Create(ctx context.Context, settlement *models.Settlement) error
	Update(ctx context.Context, settlement *models.Settlement) error
	ListReadyDue(ctx context.Context, now time.Time, limit int) ([]models.Settlement, error)
	ListBlockedHoldElapsed(ctx context.Context, cutoff time.Time, limit int) ([]models.Settlement, error)
	ListSettledBetween(ctx context.Context, filter repository.StatementFilter) ([]models.SettlementStatementRow, error)
}

// SettlementNotifier is told about settlements that became payable or were paid out.
type SettlementNotifier interface {
	SettlementChanged(ctx context.Context, settlement models.Settlement) error
}

// SettlementConfig tunes the settlement service.
type SettlementConfig struct {
	HoldDays  int
	BatchSize int
}

// SettlementService persists ledger transitions and runs payout batches.
type SettlementService struct {
	repo      settlementRepository
	bookings  bookingRepository
	teachers  teacherRepository
	notifier  SettlementNotifier
	metrics   *MetricsService
	ledger    SettlementLedger
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SettlementConfig
	now       func() time.Time
}

// NewSettlementService constructs the service. notifier may be nil.
func NewSettlementService(repo settlementRepository, bookings bookingRepository, teachers teacherRepository, notifier SettlementNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg SettlementConfig) *SettlementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HoldDays <= 0 {
		cfg.HoldDays = DefaultHoldDays
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &SettlementService{
		repo:      repo,
		bookings:  bookings,
		teachers:  teachers,
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Open creates the PENDING settlement of a confirmed booking. Opening twice returns the
// existing record.
func (s *SettlementService) Open(ctx context.Context, req dto.OpenSettlementRequest) (*models.Settlement, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settlement payload")
	}
	if existing, err := s.findExisting(ctx, req.BookingID); err != nil || existing != nil {
		return existing, false, err
	}

	booking, err := s.loadBooking(ctx, req.BookingID)
	if err != nil {
		return nil, false, err
	}
	if booking.Status != models.BookingStatusConfirmed {
		return nil, false, appErrors.WithDetails(appErrors.ErrValidation, "settlements are opened for confirmed bookings only",
			map[string]interface{}{"booking_status": booking.Status})
	}

	settlement := &models.Settlement{
		BookingID: booking.ID,
		TeacherID: booking.TeacherID,
		Status:    models.SettlementPending,
	}
	if err := s.repo.Create(ctx, settlement); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			existing, findErr := s.findExisting(ctx, req.BookingID)
			return existing, false, findErr
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create settlement")
	}
	s.logger.Info("settlement opened", zap.String("booking_id", booking.ID), zap.String("teacher_id", booking.TeacherID))
	return settlement, true, nil
}

// Get returns the settlement of a booking.
func (s *SettlementService) Get(ctx context.Context, bookingID string) (*models.Settlement, error) {
	settlement, err := s.findExisting(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if settlement == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "settlement not found")
	}
	return settlement, nil
}

// Apply runs event through the ledger and persists the outcome.
func (s *SettlementService) Apply(ctx context.Context, bookingID string, req dto.SettlementEventRequest) (*models.Settlement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settlement event")
	}
	current, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, *current, req.Event, req.Note)
}

// SetPrice overrides the teacher unit price of an unsettled settlement.
func (s *SettlementService) SetPrice(ctx context.Context, bookingID string, req dto.SetPriceRequest) (*models.Settlement, error) {
	if req.TeacherUnitUSD.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacherUnitUsd must not be negative")
	}
	current, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Terminal() {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidTransition, "price of a closed settlement cannot change",
			map[string]interface{}{"from": current.Status})
	}

	amount := req.TeacherUnitUSD.Round(2)
	current.TeacherUnitUSD = decimal.NewNullDecimal(amount)
	current.Notes = appendNote(current.Notes, s.now().UTC(), "priceSet", amount.StringFixed(2))
	if err := s.persist(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// ReleaseElapsed applies evidenceWindowElapsed to every undisputed BLOCKED settlement whose
// hold period ran out. It returns the number released.
func (s *SettlementService) ReleaseElapsed(ctx context.Context) (int, error) {
	now := s.now().UTC()
	cutoff := now.AddDate(0, 0, -s.cfg.HoldDays)
	candidates, err := s.repo.ListBlockedHoldElapsed(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blocked settlements")
	}

	released := 0
	for _, candidate := range candidates {
		if _, err := s.apply(ctx, candidate, models.EventEvidenceWindowElapsed, "released by scheduler"); err != nil {
			s.logger.Warn("settlement release failed", zap.String("booking_id", candidate.BookingID), zap.Error(err))
			continue
		}
		released++
	}
	return released, nil
}

// RunPayouts settles every READY settlement that is due, up to the batch size.
func (s *SettlementService) RunPayouts(ctx context.Context) (*models.PayoutRunResult, error) {
	now := s.now().UTC()
	due, err := s.repo.ListReadyDue(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payable settlements")
	}

	result := &models.PayoutRunResult{RanAt: now, TotalUSD: decimal.Zero, Failures: []models.PayoutFailure{}}
	for _, candidate := range due {
		settled, err := s.apply(ctx, candidate, models.EventPayoutRunExecuted, "")
		if err != nil {
			appErr := appErrors.FromError(err)
			result.Failed++
			result.Failures = append(result.Failures, models.PayoutFailure{
				BookingID: candidate.BookingID,
				Code:      appErr.Code,
				Message:   appErr.Message,
			})
			continue
		}
		result.Settled++
		result.TotalUSD = result.TotalUSD.Add(settled.TeacherUnitUSD.Decimal)
	}
	result.TotalUSD = result.TotalUSD.Round(2)

	s.metrics.RecordPayoutRun(*result)
	s.logger.Info("payout run finished",
		zap.Int("settled", result.Settled),
		zap.Int("failed", result.Failed),
		zap.String("total_usd", result.TotalUSD.StringFixed(2)),
	)
	return result, nil
}

// StatementFile is a rendered statement ready for download.
type StatementFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// Statement renders settled payouts in [from, to] as CSV or PDF.
func (s *SettlementService) Statement(ctx context.Context, query dto.StatementQuery) (*StatementFile, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid statement query")
	}
	from, err := time.Parse(models.DateLayout, query.From)
	if err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidDate, "from must use YYYY-MM-DD", map[string]interface{}{"from": query.From})
	}
	to, err := time.Parse(models.DateLayout, query.To)
	if err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidDate, "to must use YYYY-MM-DD", map[string]interface{}{"to": query.To})
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}

	rows, err := s.repo.ListSettledBetween(ctx, repository.StatementFilter{
		TeacherID: query.TeacherID,
		From:      from,
		To:        to.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settled payouts")
	}

	dataset := statementDataset(rows)
	base := fmt.Sprintf("settlements_%s_%s", query.From, query.To)
	if query.Format == "pdf" {
		title := fmt.Sprintf("Settlement statement %s to %s", query.From, query.To)
		payload, err := export.NewPDFExporter(fmt.Sprintf("Generated %s", s.now().UTC().Format(time.RFC3339))).Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
		}
		return &StatementFile{Filename: base + ".pdf", ContentType: "application/pdf", Payload: payload}, nil
	}
	payload, err := export.NewCSVExporter().Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
	}
	return &StatementFile{Filename: base + ".csv", ContentType: "text/csv", Payload: payload}, nil
}

func statementDataset(rows []models.SettlementStatementRow) export.Dataset {
	headers := []string{"booking_id", "teacher_id", "teacher_name", "class_starts_at", "payable_at", "settled_at", "amount_usd"}
	data := export.Dataset{Headers: headers, Rows: make([]map[string]string, 0, len(rows))}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.TeacherUnitUSD)
		data.Rows = append(data.Rows, map[string]string{
			"booking_id":      row.BookingID,
			"teacher_id":      row.TeacherID,
			"teacher_name":    row.TeacherName,
			"class_starts_at": row.StartsAt.UTC().Format(time.RFC3339),
			"payable_at":      row.PayableAt.UTC().Format(time.RFC3339),
			"settled_at":      row.SettledAt.UTC().Format(time.RFC3339),
			"amount_usd":      row.TeacherUnitUSD.StringFixed(2),
		})
	}
	data.Footer = []map[string]string{{"booking_id": "TOTAL", "amount_usd": total.StringFixed(2)}}
	return data
}

func (s *SettlementService) apply(ctx context.Context, current models.Settlement, event models.SettlementEvent, note string) (*models.Settlement, error) {
	lc := LedgerContext{Now: s.now().UTC(), HoldDays: s.cfg.HoldDays, Note: note}

	if !current.Terminal() {
		booking, err := s.loadBooking(ctx, current.BookingID)
		if err != nil {
			return nil, err
		}
		lc.BookingStatus = booking.Status
		lc.CompletedAt = booking.CompletedAt
		if err := s.priceFromTeacher(ctx, &current); err != nil {
			return nil, err
		}
	}

	next, err := s.ledger.Transition(current, event, lc)
	if err != nil {
		s.metrics.RecordSettlementTransition(event, current.Status, appErrors.FromError(err).Code)
		return nil, err
	}
	if current.Terminal() {
		s.metrics.RecordSettlementTransition(event, current.Status, "noop")
		return next, nil
	}

	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	s.metrics.RecordSettlementTransition(event, current.Status, "applied")
	s.logger.Info("settlement transitioned",
		zap.String("booking_id", next.BookingID),
		zap.String("event", string(event)),
		zap.String("from", string(current.Status)),
		zap.String("to", string(next.Status)),
	)

	if next.Status != current.Status && (next.Status == models.SettlementReady || next.Status == models.SettlementSettled) && s.notifier != nil {
		if err := s.notifier.SettlementChanged(ctx, *next); err != nil {
			s.logger.Warn("settlement notification not queued", zap.String("booking_id", next.BookingID), zap.Error(err))
		}
	}
	return next, nil
}

// priceFromTeacher fills a missing price from the teacher's unit rate.
func (s *SettlementService) priceFromTeacher(ctx context.Context, settlement *models.Settlement) error {
	if settlement.TeacherUnitUSD.Valid || s.teachers == nil {
		return nil
	}
	teacher, err := s.teachers.FindByID(ctx, settlement.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher rate")
	}
	if teacher.UnitRateUSD.Valid {
		settlement.TeacherUnitUSD = decimal.NewNullDecimal(teacher.UnitRateUSD.Decimal.Round(2))
	}
	return nil
}

func (s *SettlementService) persist(ctx context.Context, settlement *models.Settlement) error {
	if err := s.repo.Update(ctx, settlement); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return appErrors.Clone(appErrors.ErrConflict, "settlement was changed concurrently, retry with fresh data")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save settlement")
	}
	return nil
}

func (s *SettlementService) findExisting(ctx context.Context, bookingID string) (*models.Settlement, error) {
	settlement, err := s.repo.FindByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settlement")
	}
	return settlement, nil
}

func (s *SettlementService) loadBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}
