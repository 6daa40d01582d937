package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Teacher is the tutor profile the calendar and payouts are scoped to.
type Teacher struct {
	ID             string              `db:"id" json:"id"`
	FullName       string              `db:"full_name" json:"full_name"`
	Email          string              `db:"email" json:"email"`
	Timezone       string              `db:"timezone" json:"timezone"`
	UnitRateUSD    decimal.NullDecimal `db:"unit_rate_usd" json:"unit_rate_usd"`
	TelegramChatID *int64              `db:"telegram_chat_id" json:"-"`
	Active         bool                `db:"active" json:"active"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at" json:"updated_at"`
}

// Location resolves the teacher's IANA timezone, using fallback when none is stored.
func (t *Teacher) Location(fallback string) (*time.Location, error) {
	name := t.Timezone
	if name == "" {
		name = fallback
	}
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}
