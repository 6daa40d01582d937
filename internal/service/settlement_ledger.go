package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

// DefaultHoldDays is the evidence window applied when no configuration is supplied.
const DefaultHoldDays = 3

// LedgerContext carries the external facts a transition is evaluated against.
type LedgerContext struct {
	Now           time.Time
	BookingStatus models.BookingStatus
	CompletedAt   *time.Time
	HoldDays      int
	Note          string
}

// SettlementLedger is the settlement state machine. Transition never mutates its input and
// has no side effects beyond the returned record.
type SettlementLedger struct{}

// Transition applies event to current and returns the resulting record.
func (l SettlementLedger) Transition(current models.Settlement, event models.SettlementEvent, lc LedgerContext) (*models.Settlement, error) {
	next := current
	if lc.Now.IsZero() {
		lc.Now = time.Now().UTC()
	}

	switch current.Status {
	case models.SettlementSettled:
		return &next, nil
	case models.SettlementVoid:
		if event == models.EventCancelled {
			return &next, nil
		}
		return nil, invalidTransition(current.Status, event, "settlement is void")
	}

	if event == models.EventCancelled {
		if lc.BookingStatus != models.BookingStatusCancelled {
			return nil, invalidTransition(current.Status, event, "booking is not cancelled")
		}
		next.Status = models.SettlementVoid
		next.PayableAt = nil
		next.DisputeOpen = false
		next.Notes = appendNote(next.Notes, lc.Now, event, lc.Note)
		return &next, nil
	}

	switch current.Status {
	case models.SettlementPending:
		if event != models.EventClassCompleted {
			break
		}
		if lc.BookingStatus != models.BookingStatusCompleted {
			return nil, invalidTransition(current.Status, event, "booking is not completed")
		}
		if current.DisputeOpen {
			return nil, invalidTransition(current.Status, event, "dispute is open")
		}
		started := lc.Now
		if lc.CompletedAt != nil && !lc.CompletedAt.IsZero() {
			started = *lc.CompletedAt
		}
		next.Status = models.SettlementBlocked
		next.HoldStartedAt = &started
		next.Notes = appendNote(next.Notes, lc.Now, event, lc.Note)
		return &next, nil

	case models.SettlementBlocked:
		switch event {
		case models.EventDisputeRaised:
			now := lc.Now
			next.DisputeOpen = true
			next.HoldStartedAt = &now
			next.Notes = appendNote(next.Notes, lc.Now, event, lc.Note)
			return &next, nil
		case models.EventReportApproved:
			next.DisputeOpen = false
			next.Notes = appendNote(next.Notes, lc.Now, event, lc.Note)
			if !HoldElapsed(current, lc.Now, lc.HoldDays) {
				next.Notes = appendNote(next.Notes, lc.Now, event, "hold period not elapsed, release deferred")
				return &next, nil
			}
			return l.release(next, lc)
		case models.EventEvidenceWindowElapsed:
			if current.DisputeOpen {
				return nil, invalidTransition(current.Status, event, "dispute is open")
			}
			if !HoldElapsed(current, lc.Now, lc.HoldDays) {
				return nil, invalidTransition(current.Status, event, "hold period not elapsed")
			}
			next.Notes = appendNote(next.Notes, lc.Now, event, lc.Note)
			return l.release(next, lc)
		}

	case models.SettlementReady:
		if event != models.EventPayoutRunExecuted {
			break
		}
		if err := checkPrice(current); err != nil {
			return nil, err
		}
		if current.PayableAt == nil || current.PayableAt.After(lc.Now) {
			return nil, invalidTransition(current.Status, event, "settlement is not payable yet")
		}
		now := lc.Now
		next.Status = models.SettlementSettled
		next.SettledAt = &now
		next.Notes = appendNote(next.Notes, lc.Now, event, lc.Note)
		return &next, nil
	}

	return nil, invalidTransition(current.Status, event, "")
}

func (SettlementLedger) release(next models.Settlement, lc LedgerContext) (*models.Settlement, error) {
	if err := checkPrice(next); err != nil {
		return nil, err
	}
	payableAt := ComputePayableAt(next, *next.HoldStartedAt, lc.HoldDays)
	next.Status = models.SettlementReady
	next.PayableAt = &payableAt
	return &next, nil
}

// ComputePayableAt returns the instant settlement s, completed at completedAt, becomes payable.
// A zero completedAt falls back to the hold start recorded on s.
func ComputePayableAt(s models.Settlement, completedAt time.Time, holdDays int) time.Time {
	if completedAt.IsZero() && s.HoldStartedAt != nil {
		completedAt = *s.HoldStartedAt
	}
	if holdDays < 0 {
		holdDays = 0
	}
	return completedAt.AddDate(0, 0, holdDays)
}

// HoldElapsed reports whether the hold period of s has run out at now.
func HoldElapsed(s models.Settlement, now time.Time, holdDays int) bool {
	if s.HoldStartedAt == nil {
		return false
	}
	return !now.Before(ComputePayableAt(s, *s.HoldStartedAt, holdDays))
}

// PayableTotal sums the prices of READY settlements whose payable_at has been reached.
func PayableTotal(settlements []models.Settlement, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, s := range settlements {
		if s.Status != models.SettlementReady || s.PayableAt == nil || s.PayableAt.After(now) {
			continue
		}
		if s.TeacherUnitUSD.Valid {
			total = total.Add(s.TeacherUnitUSD.Decimal)
		}
	}
	return total.Round(2)
}

func checkPrice(s models.Settlement) error {
	if !s.TeacherUnitUSD.Valid {
		return appErrors.WithDetails(appErrors.ErrMissingPrice, "", map[string]interface{}{
			"booking_id": s.BookingID,
			"from":       s.Status,
		})
	}
	if s.TeacherUnitUSD.Decimal.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, "teacher unit price must not be negative")
	}
	return nil
}

func invalidTransition(from models.SettlementStatus, event models.SettlementEvent, reason string) error {
	details := map[string]interface{}{"from": from, "event": event}
	message := fmt.Sprintf("cannot apply %s to %s settlement", event, from)
	if reason != "" {
		details["reason"] = reason
		message = fmt.Sprintf("%s: %s", message, reason)
	}
	return appErrors.WithDetails(appErrors.ErrInvalidTransition, message, details)
}

func appendNote(notes string, at time.Time, event models.SettlementEvent, text string) string {
	line := fmt.Sprintf("%s %s", at.UTC().Format(time.RFC3339), event)
	if text = strings.TrimSpace(text); text != "" {
		line += ": " + text
	}
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
