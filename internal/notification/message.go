// Package notification tells teachers when their settlements become payable or are paid.
package notification

import (
	"fmt"

	"github.com/noah-isme/tutoring-api/internal/models"
)

// Message is a rendered notification.
type Message struct {
	Subject string
	Text    string
}

// BuildMessage renders the notification for a settlement that entered READY or SETTLED.
func BuildMessage(teacher models.Teacher, settlement models.Settlement) (Message, error) {
	amount := "unpriced"
	if settlement.TeacherUnitUSD.Valid {
		amount = "USD " + settlement.TeacherUnitUSD.Decimal.StringFixed(2)
	}

	switch settlement.Status {
	case models.SettlementReady:
		due := "now"
		if settlement.PayableAt != nil {
			due = settlement.PayableAt.UTC().Format("2006-01-02 15:04 MST")
		}
		return Message{
			Subject: "Payout scheduled",
			Text: fmt.Sprintf("Hi %s, the class for booking %s is cleared for payout. %s will be paid from %s.",
				teacher.FullName, settlement.BookingID, amount, due),
		}, nil
	case models.SettlementSettled:
		paid := ""
		if settlement.SettledAt != nil {
			paid = " on " + settlement.SettledAt.UTC().Format("2006-01-02")
		}
		return Message{
			Subject: "Payout sent",
			Text: fmt.Sprintf("Hi %s, %s for booking %s was paid out%s.",
				teacher.FullName, amount, settlement.BookingID, paid),
		}, nil
	}
	return Message{}, fmt.Errorf("no notification for status %s", settlement.Status)
}
