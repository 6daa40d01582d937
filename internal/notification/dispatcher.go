package notification

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/pkg/jobs"
)

// Channel is one delivery route to a teacher.
type Channel interface {
	Name() string
	Accepts(teacher models.Teacher) bool
	Send(ctx context.Context, teacher models.Teacher, msg Message) error
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// Dispatcher fans settlement changes out to every configured channel. Each channel gets its own
// queued job so a failing channel is retried without resending on the others.
type Dispatcher struct {
	teachers teacherReader
	channels map[string]Channel
	queue    jobDispatcher
	logger   *zap.Logger
}

// NewDispatcher constructs a dispatcher. Call Bind with the queue that runs Handle.
func NewDispatcher(teachers teacherReader, logger *zap.Logger, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	byName := make(map[string]Channel, len(channels))
	for _, ch := range channels {
		if ch != nil {
			byName[ch.Name()] = ch
		}
	}
	return &Dispatcher{teachers: teachers, channels: byName, logger: logger}
}

// Bind attaches the queue jobs are pushed to.
func (d *Dispatcher) Bind(queue jobDispatcher) {
	d.queue = queue
}

// Channels lists the configured channel names.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for name := range d.channels {
		names = append(names, name)
	}
	return names
}

// SettlementChanged enqueues one notification job per channel.
func (d *Dispatcher) SettlementChanged(ctx context.Context, settlement models.Settlement) error {
	if len(d.channels) == 0 {
		return nil
	}
	if d.queue == nil {
		return errors.New("notification queue not bound")
	}
	var errs []error
	for name := range d.channels {
		job := jobs.Job{
			ID:      fmt.Sprintf("%s:%s:%s", settlement.BookingID, settlement.Status, name),
			Type:    name,
			Payload: settlement,
		}
		if err := d.queue.Enqueue(job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Handle delivers a queued notification. Returned errors make the queue retry the job.
func (d *Dispatcher) Handle(ctx context.Context, job jobs.Job) error {
	channel, ok := d.channels[job.Type]
	if !ok {
		d.logger.Warn("dropping notification for unknown channel", zap.String("job_id", job.ID), zap.String("channel", job.Type))
		return nil
	}
	settlement, ok := job.Payload.(models.Settlement)
	if !ok {
		d.logger.Error("dropping malformed notification", zap.String("job_id", job.ID))
		return nil
	}

	teacher, err := d.teachers.FindByID(ctx, settlement.TeacherID)
	if err != nil {
		return fmt.Errorf("load teacher %s: %w", settlement.TeacherID, err)
	}
	if !channel.Accepts(*teacher) {
		return nil
	}
	msg, err := BuildMessage(*teacher, settlement)
	if err != nil {
		d.logger.Warn("nothing to notify", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}
	if err := channel.Send(ctx, *teacher, msg); err != nil {
		return fmt.Errorf("%s: %w", channel.Name(), err)
	}
	d.logger.Info("teacher notified",
		zap.String("channel", channel.Name()),
		zap.String("teacher_id", teacher.ID),
		zap.String("booking_id", settlement.BookingID),
		zap.String("status", string(settlement.Status)),
	)
	return nil
}
