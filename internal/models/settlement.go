package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus tracks a booking's payout lifecycle.
type SettlementStatus string

const (
	SettlementPending SettlementStatus = "PENDING"
	SettlementBlocked SettlementStatus = "BLOCKED"
	SettlementReady   SettlementStatus = "READY"
	SettlementSettled SettlementStatus = "SETTLED"
	// SettlementVoid marks a settlement whose booking was cancelled before payout.
	SettlementVoid SettlementStatus = "VOID"
)

// SettlementEvent names an input to the settlement state machine.
type SettlementEvent string

const (
	EventClassCompleted        SettlementEvent = "classCompleted"
	EventEvidenceWindowElapsed SettlementEvent = "evidenceWindowElapsed"
	EventReportApproved        SettlementEvent = "reportApproved"
	EventDisputeRaised         SettlementEvent = "disputeRaised"
	EventPayoutRunExecuted     SettlementEvent = "payoutRunExecuted"
	EventCancelled             SettlementEvent = "cancelled"
)

// Settlement is the payout record of one booking.
type Settlement struct {
	ID             string              `db:"id" json:"id"`
	BookingID      string              `db:"booking_id" json:"booking_id"`
	TeacherID      string              `db:"teacher_id" json:"teacher_id"`
	Status         SettlementStatus    `db:"status" json:"status"`
	TeacherUnitUSD decimal.NullDecimal `db:"teacher_unit_usd" json:"teacher_unit_usd"`
	HoldStartedAt  *time.Time          `db:"hold_started_at" json:"hold_started_at,omitempty"`
	DisputeOpen    bool                `db:"dispute_open" json:"dispute_open"`
	PayableAt      *time.Time          `db:"payable_at" json:"payable_at,omitempty"`
	SettledAt      *time.Time          `db:"settled_at" json:"settled_at,omitempty"`
	Notes          string              `db:"notes" json:"notes"`
	Version        int                 `db:"version" json:"version"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether no further event can change the record.
func (s *Settlement) Terminal() bool {
	return s.Status == SettlementSettled || s.Status == SettlementVoid
}

// SettlementStatementRow is a settled payout joined with its teacher and booking.
type SettlementStatementRow struct {
	BookingID      string          `db:"booking_id"`
	TeacherID      string          `db:"teacher_id"`
	TeacherName    string          `db:"teacher_name"`
	StartsAt       time.Time       `db:"starts_at"`
	TeacherUnitUSD decimal.Decimal `db:"teacher_unit_usd"`
	PayableAt      time.Time       `db:"payable_at"`
	SettledAt      time.Time       `db:"settled_at"`
}

// PayoutFailure describes a settlement a payout run could not settle.
type PayoutFailure struct {
	BookingID string `json:"booking_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// PayoutRunResult summarises one payout batch.
type PayoutRunResult struct {
	RanAt    time.Time       `json:"ran_at"`
	Released int             `json:"released"`
	Settled  int             `json:"settled"`
	Failed   int             `json:"failed"`
	TotalUSD decimal.Decimal `json:"total_usd"`
	Failures []PayoutFailure `json:"failures"`
}
