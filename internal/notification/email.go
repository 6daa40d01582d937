package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/noah-isme/tutoring-api/internal/models"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// EmailChannel delivers notifications through the SendGrid v3 mail API.
type EmailChannel struct {
	key  string
	host string
	from *sgmail.Email
}

// NewEmailChannel builds an e-mail channel. An empty host targets the public SendGrid API.
func NewEmailChannel(key, host, fromName, fromAddress string) *EmailChannel {
	if host == "" {
		host = sendgridHost
	}
	return &EmailChannel{key: key, host: host, from: sgmail.NewEmail(fromName, fromAddress)}
}

// Name implements Channel.
func (e *EmailChannel) Name() string { return "email" }

// Accepts implements Channel.
func (e *EmailChannel) Accepts(teacher models.Teacher) bool {
	return teacher.Email != ""
}

// Send implements Channel.
func (e *EmailChannel) Send(ctx context.Context, teacher models.Teacher, msg Message) error {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(teacher.FullName, teacher.Email))

	m := sgmail.NewV3Mail()
	m.SetFrom(e.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))

	req := sendgrid.GetRequest(e.key, sendgridEndpoint, e.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
