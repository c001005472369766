package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueNotifications is the Redis list key for team notification jobs.
	QueueNotifications = "worker:notifications"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeMeetingScheduled JobType = "meeting_scheduled"
)

// MeetingScheduledPayload announces a newly scheduled meeting to its team.
type MeetingScheduledPayload struct {
	MeetingID       uuid.UUID   `json:"meeting_id"`
	TeamID          uuid.UUID   `json:"team_id"`
	Title           string      `json:"title"`
	StartTime       time.Time   `json:"start_time"`
	DurationMinutes int         `json:"duration"`
	AttendeeIDs     []uuid.UUID `json:"attendee_ids"`
	ScheduledBy     uuid.UUID   `json:"scheduled_by"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewJob wraps payload in a fresh envelope.
func NewJob(t JobType, payload interface{}) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Job{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// MeetingScheduled decodes the payload of a meeting_scheduled job.
func (j *Job) MeetingScheduled() (MeetingScheduledPayload, error) {
	var p MeetingScheduledPayload
	if j.Type != JobTypeMeetingScheduled {
		return p, fmt.Errorf("unexpected job type: %s", j.Type)
	}
	if err := json.Unmarshal(j.Payload, &p); err != nil {
		return p, fmt.Errorf("unmarshal payload: %w", err)
	}
	return p, nil
}

// retryTarget bumps the attempt counter and returns the list the job goes back to.
func retryTarget(job *Job) string {
	job.Attempt++
	if job.Attempt >= MaxRetries {
		return QueueDLQ
	}
	return QueueNotifications
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client      redis.Cmdable
	pollTimeout time.Duration
	logger      *zap.Logger
}

// NewQueue creates a new Redis-backed job queue. Dequeue blocks at most pollTimeout so the
// worker can observe shutdown; zero blocks until a job arrives.
func NewQueue(client redis.Cmdable, pollTimeout time.Duration, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, pollTimeout: pollTimeout, logger: logger}
}

func (q *Queue) push(ctx context.Context, list string, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, list, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	return nil
}

// EnqueueMeetingScheduled enqueues the notification for a new meeting.
func (q *Queue) EnqueueMeetingScheduled(ctx context.Context, payload MeetingScheduledPayload) error {
	job, err := NewJob(JobTypeMeetingScheduled, payload)
	if err != nil {
		return err
	}
	if err := q.push(ctx, QueueNotifications, job); err != nil {
		return err
	}
	q.logger.Debug("enqueued meeting notification", zap.String("job_id", job.ID), zap.String("meeting_id", payload.MeetingID.String()))
	return nil
}

// Dequeue blocks until a job is available, the poll timeout passes or ctx is done. A nil job
// with a nil error means nothing arrived.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, q.pollTimeout, QueueNotifications).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	target := retryTarget(job)
	if err := q.push(ctx, target, job); err != nil {
		q.logger.Error("retry push failed", zap.Error(err), zap.String("job_id", job.ID), zap.String("queue", target))
		return err
	}
	if target == QueueDLQ {
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
