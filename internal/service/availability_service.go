package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/internal/repository"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

type availabilityRepository interface {
	Get(ctx context.Context, teacherID, date string) (*models.AvailabilityDay, error)
	ListRange(ctx context.Context, teacherID, from, to string) ([]models.AvailabilityDay, error)
	Save(ctx context.Context, day *models.AvailabilityDay, expectedVersion int) error
}

type teacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type bookingRepository interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	ListOverlapping(ctx context.Context, teacherID string, from, to time.Time, statuses []models.BookingStatus) ([]models.Booking, error)
}

// AvailabilityConfig tunes the availability service.
type AvailabilityConfig struct {
	DefaultTimezone string
	CacheTTL        time.Duration
	MaxRangeDays    int
}

// AvailabilityService orchestrates slot planning against stored availability and bookings.
type AvailabilityService struct {
	repo      availabilityRepository
	teachers  teacherRepository
	bookings  bookingRepository
	cache     *CacheService
	metrics   *MetricsService
	planner   AvailabilityPlanner
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AvailabilityConfig
	now       func() time.Time
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(repo availabilityRepository, teachers teacherRepository, bookings bookingRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg AvailabilityConfig) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = 31
	}
	return &AvailabilityService{
		repo:      repo,
		teachers:  teachers,
		bookings:  bookings,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Set overwrites the actor's (or, for admins, the named teacher's) availability for one date.
func (s *AvailabilityService) Set(ctx context.Context, actor *models.JWTClaims, req dto.SetAvailabilityRequest) (*models.AvailabilityDay, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	teacherID, err := resolveTeacher(actor, req.TeacherID)
	if err != nil {
		return nil, err
	}

	teacher, loc, err := s.loadTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher is inactive")
	}
	if _, err := time.ParseInLocation(models.DateLayout, req.Date, loc); err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidDate, "date must use YYYY-MM-DD", map[string]interface{}{"date": req.Date})
	}

	booked, err := s.committedSlots(ctx, teacherID, req.Date, loc)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, teacherID, req.Date)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}

	today := s.now().In(loc).Format(models.DateLayout)
	day, err := s.planner.SetAvailability(teacherID, req.Date, today, req.TimeSlots, booked)
	if err != nil {
		s.metrics.RecordAvailabilityUpdate("rejected")
		s.logger.Info("availability rejected",
			zap.String("teacher_id", teacherID),
			zap.String("date", req.Date),
			zap.Error(err),
		)
		return nil, err
	}

	expectedVersion := 0
	if existing != nil {
		if sameSlots(existing.Slots, day.Slots) {
			s.metrics.RecordAvailabilityUpdate("unchanged")
			return existing, nil
		}
		expectedVersion = existing.Version
		day.ID = existing.ID
		day.CreatedAt = existing.CreatedAt
	}
	day.UpdatedBy = actor.UserID

	if err := s.repo.Save(ctx, day, expectedVersion); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			s.metrics.RecordAvailabilityUpdate("conflict")
			return nil, appErrors.Clone(appErrors.ErrConflict, "availability was changed concurrently, retry with fresh data")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save availability")
	}

	_ = s.cache.Evict(ctx, timetableKey(teacherID, req.Date))
	s.metrics.RecordAvailabilityUpdate("saved")
	s.logger.Info("availability saved",
		zap.String("teacher_id", teacherID),
		zap.String("date", req.Date),
		zap.Int("slots", len(day.Slots)),
		zap.Int("version", day.Version),
		zap.String("actor", actor.UserID),
	)
	return day, nil
}

// Get returns the stored day, or an empty one when the teacher has not set any slots.
func (s *AvailabilityService) Get(ctx context.Context, teacherID, date string) (*models.AvailabilityDay, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidDate, "date must use YYYY-MM-DD", map[string]interface{}{"date": date})
	}
	day, err := s.repo.Get(ctx, teacherID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.AvailabilityDay{TeacherID: teacherID, Date: date, Slots: pq.Int64Array{}}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	return day, nil
}

// Timetable returns the 48-slot projection for a date. The boolean reports a cache hit.
func (s *AvailabilityService) Timetable(ctx context.Context, teacherID, date string) (*models.Timetable, bool, error) {
	key := timetableKey(teacherID, date)
	var cached models.Timetable
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	_, loc, err := s.loadTeacher(ctx, teacherID)
	if err != nil {
		return nil, false, err
	}
	day, err := s.Get(ctx, teacherID, date)
	if err != nil {
		return nil, false, err
	}
	booked, err := s.committedSlots(ctx, teacherID, date, loc)
	if err != nil {
		return nil, false, err
	}

	timetable := &models.Timetable{
		TeacherID: teacherID,
		Date:      date,
		Timezone:  loc.String(),
		Slots:     s.planner.Timetable(day, booked),
	}
	_ = s.cache.Set(ctx, key, timetable, s.cfg.CacheTTL)
	return timetable, false, nil
}

// ListRange returns stored days between from and to inclusive.
func (s *AvailabilityService) ListRange(ctx context.Context, teacherID, from, to string) ([]models.AvailabilityDay, error) {
	start, err := time.Parse(models.DateLayout, from)
	if err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidDate, "from must use YYYY-MM-DD", map[string]interface{}{"from": from})
	}
	end, err := time.Parse(models.DateLayout, to)
	if err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidDate, "to must use YYYY-MM-DD", map[string]interface{}{"to": to})
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > s.cfg.MaxRangeDays {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("range cannot exceed %d days", s.cfg.MaxRangeDays))
	}

	days, err := s.repo.ListRange(ctx, teacherID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability")
	}
	if days == nil {
		days = []models.AvailabilityDay{}
	}
	return days, nil
}

func (s *AvailabilityService) loadTeacher(ctx context.Context, teacherID string) (*models.Teacher, *time.Location, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	loc, err := teacher.Location(s.cfg.DefaultTimezone)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid teacher timezone")
	}
	return teacher, loc, nil
}

func (s *AvailabilityService) committedSlots(ctx context.Context, teacherID, date string, loc *time.Location) ([]int, error) {
	dayStart, err := time.ParseInLocation(models.DateLayout, date, loc)
	if err != nil {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidDate, "date must use YYYY-MM-DD", map[string]interface{}{"date": date})
	}
	start := time.Now()
	bookings, err := s.bookings.ListOverlapping(ctx, teacherID, dayStart, dayStart.AddDate(0, 0, 1),
		[]models.BookingStatus{models.BookingStatusConfirmed, models.BookingStatusCompleted})
	s.metrics.ObserveDBQuery("bookings_overlapping", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}
	return BookingSlots(bookings, date, loc), nil
}

// resolveTeacher decides whose calendar the actor may write.
func resolveTeacher(actor *models.JWTClaims, requested string) (string, error) {
	if actor == nil {
		return "", appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleTeacher:
		if requested != "" && requested != actor.UserID {
			return "", appErrors.Clone(appErrors.ErrForbidden, "teachers can only manage their own availability")
		}
		return actor.UserID, nil
	case models.RoleAdmin:
		if requested == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, "teacherId is required for admins")
		}
		return requested, nil
	default:
		return "", appErrors.Clone(appErrors.ErrForbidden, "role cannot manage availability")
	}
}

func timetableKey(teacherID, date string) string {
	return fmt.Sprintf("timetable:%s:%s", teacherID, date)
}

func sameSlots(a, b pq.Int64Array) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
