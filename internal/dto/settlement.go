package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutoring-api/internal/models"
)

// OpenSettlementRequest creates the settlement of a confirmed booking.
type OpenSettlementRequest struct {
	BookingID string `json:"bookingId" validate:"required"`
}

// SettlementEventRequest applies a ledger event.
type SettlementEventRequest struct {
	Event models.SettlementEvent `json:"event" validate:"required,oneof=classCompleted evidenceWindowElapsed reportApproved disputeRaised payoutRunExecuted cancelled"`
	Note  string                 `json:"note" validate:"max=500"`
}

// SetPriceRequest overrides the teacher unit price of a settlement.
type SetPriceRequest struct {
	TeacherUnitUSD decimal.Decimal `json:"teacherUnitUsd"`
}

// StatementQuery selects settled payouts for a statement download.
type StatementQuery struct {
	TeacherID string `form:"teacherId"`
	From      string `form:"from" validate:"required"`
	To        string `form:"to" validate:"required"`
	Format    string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
