package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/pkg/jobs"
)

func readySettlement() models.Settlement {
	payable := time.Date(2025, 10, 10, 9, 0, 0, 0, time.UTC)
	return models.Settlement{
		BookingID:      "booking-1",
		TeacherID:      "teacher-1",
		Status:         models.SettlementReady,
		TeacherUnitUSD: decimal.NewNullDecimal(decimal.RequireFromString("25")),
		PayableAt:      &payable,
	}
}

func TestBuildMessage(t *testing.T) {
	teacher := models.Teacher{FullName: "Ana"}

	msg, err := BuildMessage(teacher, readySettlement())
	require.NoError(t, err)
	assert.Equal(t, "Payout scheduled", msg.Subject)
	assert.Contains(t, msg.Text, "USD 25.00")
	assert.Contains(t, msg.Text, "2025-10-10 09:00 UTC")

	settled := readySettlement()
	settled.Status = models.SettlementSettled
	msg, err = BuildMessage(teacher, settled)
	require.NoError(t, err)
	assert.Equal(t, "Payout sent", msg.Subject)

	_, err = BuildMessage(teacher, models.Settlement{Status: models.SettlementBlocked})
	assert.Error(t, err)
}

func TestTelegramChannelSend(t *testing.T) {
	var (
		path string
		text string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = r.ParseMultipartForm(1 << 20)
		text = r.FormValue("text")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`)
	}))
	defer srv.Close()

	channel, err := NewTelegramChannel("123:token", bot.WithServerURL(srv.URL))
	require.NoError(t, err)

	chatID := int64(42)
	teacher := models.Teacher{FullName: "Ana", TelegramChatID: &chatID}
	require.True(t, channel.Accepts(teacher))
	require.NoError(t, channel.Send(context.Background(), teacher, Message{Subject: "Payout sent", Text: "a < b"}))

	assert.True(t, strings.HasSuffix(path, "/sendMessage"))
	assert.Contains(t, text, "a &lt; b")
	assert.False(t, channel.Accepts(models.Teacher{}))
}

func TestEmailChannelSend(t *testing.T) {
	var (
		auth    string
		payload map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	channel := NewEmailChannel("sg-key", srv.URL, "Tutoring Payouts", "payouts@example.com")
	teacher := models.Teacher{FullName: "Ana", Email: "ana@example.com"}
	require.NoError(t, channel.Send(context.Background(), teacher, Message{Subject: "Payout sent", Text: "paid"}))

	assert.Equal(t, "Bearer sg-key", auth)
	personalizations := payload["personalizations"].([]interface{})
	require.Len(t, personalizations, 1)
	assert.Equal(t, "Payout sent", personalizations[0].(map[string]interface{})["subject"])
}

func TestEmailChannelReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	channel := NewEmailChannel("bad", srv.URL, "", "payouts@example.com")
	err := channel.Send(context.Background(), models.Teacher{Email: "ana@example.com"}, Message{Subject: "s", Text: "t"})
	assert.ErrorContains(t, err, "status 401")
}

type teacherStub struct {
	teacher *models.Teacher
	err     error
}

func (s teacherStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	return s.teacher, s.err
}

type channelStub struct {
	name  string
	mu    sync.Mutex
	sent  []Message
	fails int
	done  chan struct{}
}

func (c *channelStub) Name() string                        { return c.name }
func (c *channelStub) Accepts(teacher models.Teacher) bool { return true }

func (c *channelStub) Send(ctx context.Context, teacher models.Teacher, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fails > 0 {
		c.fails--
		return errors.New("transient")
	}
	c.sent = append(c.sent, msg)
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	return nil
}

func TestDispatcherDeliversPerChannelWithRetry(t *testing.T) {
	telegram := &channelStub{name: "telegram", fails: 1, done: make(chan struct{})}
	email := &channelStub{name: "email", done: make(chan struct{})}
	telegramDone, emailDone := telegram.done, email.done

	dispatcher := NewDispatcher(teacherStub{teacher: &models.Teacher{ID: "teacher-1", FullName: "Ana"}}, nil, telegram, email)
	queue := jobs.NewQueue("notifications", dispatcher.Handle, jobs.QueueConfig{Workers: 2, MaxRetries: 2, RetryDelay: 5 * time.Millisecond})
	dispatcher.Bind(queue)
	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, dispatcher.SettlementChanged(context.Background(), readySettlement()))

	for _, done := range []chan struct{}{telegramDone, emailDone} {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("notification not delivered")
		}
	}
	telegram.mu.Lock()
	assert.Len(t, telegram.sent, 1)
	telegram.mu.Unlock()
	email.mu.Lock()
	assert.Len(t, email.sent, 1)
	email.mu.Unlock()
}

func TestDispatcherWithoutChannelsIsNoop(t *testing.T) {
	dispatcher := NewDispatcher(teacherStub{}, nil)
	assert.NoError(t, dispatcher.SettlementChanged(context.Background(), readySettlement()))
}

func TestDispatcherHandleSurfacesTeacherLookupFailure(t *testing.T) {
	dispatcher := NewDispatcher(teacherStub{err: errors.New("db down")}, nil, &channelStub{name: "email"})
	err := dispatcher.Handle(context.Background(), jobs.Job{ID: "x", Type: "email", Payload: readySettlement()})
	assert.ErrorContains(t, err, "db down")

	assert.NoError(t, dispatcher.Handle(context.Background(), jobs.Job{ID: "y", Type: "sms", Payload: readySettlement()}))
}
