package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamslot/backend/pkg/queue"
)

// EventNotification is the realtime event carrying a user-facing notification.
const EventNotification = "notification"

// JobSource is the queue the processor drains.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Publisher delivers an encoded event to every instance serving a team.
type Publisher interface {
	Publish(teamID uuid.UUID, event string, payload []byte) error
}

// Notification is shown to a team's members when something is scheduled.
type Notification struct {
	Title       string      `json:"title"`
	Body        string      `json:"body"`
	MeetingID   uuid.UUID   `json:"meeting_id"`
	AttendeeIDs []uuid.UUID `json:"attendee_ids"`
	ScheduledBy uuid.UUID   `json:"scheduled_by"`
}

// MeetingScheduledNotification renders the notification for a new meeting, with the start time
// shown in loc.
func MeetingScheduledNotification(p queue.MeetingScheduledPayload, loc *time.Location) Notification {
	if loc == nil {
		loc = time.Local
	}
	return Notification{
		Title:       "Meeting Scheduled!",
		Body:        fmt.Sprintf("%s at %s", p.Title, p.StartTime.In(loc).Format("3:04 PM")),
		MeetingID:   p.MeetingID,
		AttendeeIDs: p.AttendeeIDs,
		ScheduledBy: p.ScheduledBy,
	}
}

// NotificationProcessor turns queued meeting jobs into team notifications.
type NotificationProcessor struct {
	source  JobSource
	pub     Publisher
	loc     *time.Location
	backoff time.Duration
	logger  *zap.Logger
}

// NewNotificationProcessor creates a notification processor.
func NewNotificationProcessor(source JobSource, pub Publisher, loc *time.Location, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{source: source, pub: pub, loc: loc, backoff: queue.RetryBackoff, logger: logger}
}

// SetBackoff overrides the pause after a failed job.
func (p *NotificationProcessor) SetBackoff(d time.Duration) {
	p.backoff = d
}

// Process executes one job.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	payload, err := job.MeetingScheduled()
	if err != nil {
		return err
	}
	body, err := json.Marshal(MeetingScheduledNotification(payload, p.loc))
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.pub.Publish(payload.TeamID, EventNotification, body); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	p.logger.Info("meeting notification sent",
		zap.String("meeting_id", payload.MeetingID.String()),
		zap.String("team_id", payload.TeamID.String()))
	return nil
}

func (p *NotificationProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, err := p.source.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.source.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}
