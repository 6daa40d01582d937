package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/internal/repository"
)

type teacherRepoStub struct {
	items map[string]*models.Teacher
	err   error
}

func (s *teacherRepoStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if s.err != nil {
		return nil, s.err
	}
	teacher, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *teacher
	return &cp, nil
}

type bookingRepoStub struct {
	items    map[string]*models.Booking
	listed   []models.Booking
	listFrom time.Time
	listTo   time.Time
}

func (s *bookingRepoStub) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	booking, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *booking
	return &cp, nil
}

func (s *bookingRepoStub) ListOverlapping(ctx context.Context, teacherID string, from, to time.Time, statuses []models.BookingStatus) ([]models.Booking, error) {
	s.listFrom, s.listTo = from, to
	var out []models.Booking
	for _, booking := range s.listed {
		if booking.TeacherID == teacherID {
			out = append(out, booking)
		}
	}
	return out, nil
}

type availabilityRepoStub struct {
	days  map[string]*models.AvailabilityDay
	saves int
	race  bool
}

func newAvailabilityRepoStub() *availabilityRepoStub {
	return &availabilityRepoStub{days: map[string]*models.AvailabilityDay{}}
}

func (s *availabilityRepoStub) Get(ctx context.Context, teacherID, date string) (*models.AvailabilityDay, error) {
	day, ok := s.days[teacherID+"|"+date]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *day
	return &cp, nil
}

func (s *availabilityRepoStub) ListRange(ctx context.Context, teacherID, from, to string) ([]models.AvailabilityDay, error) {
	var out []models.AvailabilityDay
	for _, day := range s.days {
		if day.TeacherID == teacherID && day.Date >= from && day.Date <= to {
			out = append(out, *day)
		}
	}
	return out, nil
}

func (s *availabilityRepoStub) Save(ctx context.Context, day *models.AvailabilityDay, expectedVersion int) error {
	if s.race {
		return repository.ErrVersionConflict
	}
	key := day.TeacherID + "|" + day.Date
	current, exists := s.days[key]
	switch {
	case expectedVersion == 0 && exists:
		return repository.ErrVersionConflict
	case expectedVersion != 0 && (!exists || current.Version != expectedVersion):
		return repository.ErrVersionConflict
	}
	day.Version = expectedVersion + 1
	if day.ID == "" {
		day.ID = "day-" + day.Date
	}
	cp := *day
	s.days[key] = &cp
	s.saves++
	return nil
}

type settlementRepoStub struct {
	mu       sync.Mutex
	items    map[string]*models.Settlement
	settled  []models.SettlementStatementRow
	filter   repository.StatementFilter
	updates  int
	conflict bool
}

func newSettlementRepoStub(items ...models.Settlement) *settlementRepoStub {
	s := &settlementRepoStub{items: map[string]*models.Settlement{}}
	for i := range items {
		item := items[i]
		if item.Version == 0 {
			item.Version = 1
		}
		s.items[item.BookingID] = &item
	}
	return s
}

func (s *settlementRepoStub) FindByBookingID(ctx context.Context, bookingID string) (*models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[bookingID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *item
	return &cp, nil
}

func (s *settlementRepoStub) Create(ctx context.Context, settlement *models.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[settlement.BookingID]; ok {
		return repository.ErrVersionConflict
	}
	settlement.ID = "s-" + settlement.BookingID
	settlement.Version = 1
	cp := *settlement
	s.items[settlement.BookingID] = &cp
	return nil
}

func (s *settlementRepoStub) Update(ctx context.Context, settlement *models.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[settlement.BookingID]
	if s.conflict || !ok || current.Version != settlement.Version {
		return repository.ErrVersionConflict
	}
	settlement.Version++
	cp := *settlement
	s.items[settlement.BookingID] = &cp
	s.updates++
	return nil
}

func (s *settlementRepoStub) ListReadyDue(ctx context.Context, now time.Time, limit int) ([]models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Settlement
	for _, item := range s.items {
		if item.Status == models.SettlementReady && item.PayableAt != nil && !item.PayableAt.After(now) {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (s *settlementRepoStub) ListBlockedHoldElapsed(ctx context.Context, cutoff time.Time, limit int) ([]models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Settlement
	for _, item := range s.items {
		if item.Status == models.SettlementBlocked && !item.DisputeOpen && item.HoldStartedAt != nil && !item.HoldStartedAt.After(cutoff) {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (s *settlementRepoStub) ListSettledBetween(ctx context.Context, filter repository.StatementFilter) ([]models.SettlementStatementRow, error) {
	s.filter = filter
	return s.settled, nil
}

type notifierStub struct {
	mu       sync.Mutex
	received []models.Settlement
}

func (n *notifierStub) SettlementChanged(ctx context.Context, settlement models.Settlement) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, settlement)
	return nil
}
