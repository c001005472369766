package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamslot/backend/internal/grid"
	"github.com/teamslot/backend/internal/models"
	"github.com/teamslot/backend/pkg/queue"
)

// Realtime events published to a team.
const (
	EventAvailabilityCommitted = "availability_committed"
	EventMeetingCreated        = "meeting_created"
	EventMeetingUpdated        = "meeting_updated"
	EventMeetingCancelled      = "meeting_cancelled"
)

// AvailabilityRepository loads and stores committed grids and default templates.
type AvailabilityRepository interface {
	ListTeam(ctx context.Context, teamID uuid.UUID) (models.TeamAvailabilities, error)
	Save(ctx context.Context, teamID, userID uuid.UUID, a models.Availability) error
	GetDefault(ctx context.Context, userID uuid.UUID) (models.Availability, bool, error)
	SaveDefault(ctx context.Context, userID uuid.UUID, a models.Availability) error
}

// MeetingRepository loads and stores a team's meetings.
type MeetingRepository interface {
	ListByTeam(ctx context.Context, teamID uuid.UUID) ([]models.Meeting, error)
	Create(ctx context.Context, m models.Meeting) error
	Update(ctx context.Context, m models.Meeting) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RosterRepository resolves a user's team and its members. TeamForUser returns uuid.Nil when
// the user has no team.
type RosterRepository interface {
	TeamForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	Members(ctx context.Context, teamID uuid.UUID) ([]models.User, error)
}

// EventPublisher fans events out to a team's connected clients.
type EventPublisher interface {
	PublishTeamEvent(teamID uuid.UUID, event string, payload interface{})
}

// NotificationQueue accepts background notification jobs.
type NotificationQueue interface {
	EnqueueMeetingScheduled(ctx context.Context, payload queue.MeetingScheduledPayload) error
}

type entry struct {
	mu      sync.Mutex
	session *Session
}

// Service keeps one Session per user and persists every committed change.
type Service struct {
	availability  AvailabilityRepository
	meetings      MeetingRepository
	roster        RosterRepository
	events        EventPublisher
	notifications NotificationQueue
	loc           *time.Location
	now           func() time.Time
	logger        *zap.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
}

// NewService creates a planner service. events and notifications may be nil.
func NewService(availabilityRepo AvailabilityRepository, meetingRepo MeetingRepository, roster RosterRepository,
	events EventPublisher, notifications NotificationQueue, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		availability:  availabilityRepo,
		meetings:      meetingRepo,
		roster:        roster,
		events:        events,
		notifications: notifications,
		loc:           loc,
		now:           time.Now,
		logger:        logger,
		sessions:      make(map[uuid.UUID]*entry),
	}
}

// SetClock overrides the wall clock.
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Service) clock() time.Time {
	s.mu.Lock()
	now := s.now
	s.mu.Unlock()
	return now().In(s.loc)
}

func (s *Service) entry(userID uuid.UUID) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[userID]
	if !ok {
		e = &entry{}
		s.sessions[userID] = e
	}
	return e
}

func (s *Service) load(ctx context.Context, userID, teamID uuid.UUID) (TeamState, error) {
	var st TeamState
	var err error
	if st.Roster, err = s.roster.Members(ctx, teamID); err != nil {
		return st, fmt.Errorf("load roster: %w", err)
	}
	if st.Committed, err = s.availability.ListTeam(ctx, teamID); err != nil {
		return st, fmt.Errorf("load availability: %w", err)
	}
	def, ok, err := s.availability.GetDefault(ctx, userID)
	if err != nil {
		return st, fmt.Errorf("load default availability: %w", err)
	}
	if ok {
		st.Default = def
	}
	if st.Meetings, err = s.meetings.ListByTeam(ctx, teamID); err != nil {
		return st, fmt.Errorf("load meetings: %w", err)
	}
	return st, nil
}

// Acquire returns the caller's session refreshed from persistence, locked until release is
// called. A new session is started when the user changed team or the calendar week rolled over.
// Team state is loaded under the session lock so a request never applies state older than the
// writes of the request it waited for.
func (s *Service) Acquire(ctx context.Context, userID uuid.UUID) (sess *Session, release func(), err error) {
	teamID, err := s.roster.TeamForUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve team: %w", err)
	}
	if teamID == uuid.Nil {
		return nil, nil, ErrNoTeam
	}

	e := s.entry(userID)
	e.mu.Lock()
	state, err := s.load(ctx, userID, teamID)
	if err != nil {
		e.mu.Unlock()
		return nil, nil, err
	}
	var user models.User
	found := false
	for _, u := range state.Roster {
		if u.ID == userID {
			user, found = u, true
			break
		}
	}
	if !found {
		e.mu.Unlock()
		return nil, nil, ErrNoTeam
	}

	weekStart := grid.WeekOf(s.clock()).Start()
	if e.session == nil || e.session.TeamID != teamID || !e.session.Week.Start().Equal(weekStart) {
		e.session = NewSession(user, teamID, state, s.clock)
		s.logger.Debug("session started", zap.String("user_id", userID.String()), zap.String("team_id", teamID.String()))
	} else {
		e.session.Refresh(user, state)
	}
	return e.session, e.mu.Unlock, nil
}

func (s *Service) with(ctx context.Context, userID uuid.UUID, fn func(*Session) error) error {
	sess, release, err := s.Acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer release()
	return fn(sess)
}

// Forget drops the cached session of userID.
func (s *Service) Forget(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

func (s *Service) publish(teamID uuid.UUID, event string, payload interface{}) {
	if s.events != nil {
		s.events.PublishTeamEvent(teamID, event, payload)
	}
}

// Grid returns the availability screen.
func (s *Service) Grid(ctx context.Context, userID uuid.UUID) (GridView, error) {
	var v GridView
	err := s.with(ctx, userID, func(sess *Session) error {
		v = sess.View()
		return nil
	})
	return v, err
}

// BestSlots returns the best-slot suggestions for the caller's team.
func (s *Service) BestSlots(ctx context.Context, userID uuid.UUID) ([]models.BestSlot, error) {
	var best []models.BestSlot
	err := s.with(ctx, userID, func(sess *Session) error {
		best = sess.BestSlots()
		return nil
	})
	return best, err
}

// SetStatus edits one draft cell. With toggle set, a cell already holding status is cleared.
func (s *Service) SetStatus(ctx context.Context, userID uuid.UUID, k grid.Key, status models.AvailabilityStatus, toggle bool) (models.AvailabilityStatus, error) {
	result := status
	err := s.with(ctx, userID, func(sess *Session) error {
		if toggle {
			var err error
			result, err = sess.Availability.Toggle(k, status)
			return err
		}
		return sess.Availability.SetStatus(k, status)
	})
	return result, err
}

// Commit saves the caller's draft, and also as their default template when asDefault is set.
// The grid is committed as soon as it is stored; a failure to store the template afterwards is
// reported as ErrDefaultNotSaved together with the committed snapshot.
func (s *Service) Commit(ctx context.Context, userID uuid.UUID, asDefault bool) (models.Availability, error) {
	var snapshot models.Availability
	err := s.with(ctx, userID, func(sess *Session) error {
		draft := sess.Availability.Draft()
		if err := s.availability.Save(ctx, sess.TeamID, userID, draft); err != nil {
			return fmt.Errorf("save availability: %w", err)
		}
		snapshot = sess.Availability.Commit()
		s.publish(sess.TeamID, EventAvailabilityCommitted, map[string]interface{}{
			"user_id": userID,
			"slots":   snapshot,
		})
		if !asDefault {
			return nil
		}
		if err := s.availability.SaveDefault(ctx, userID, snapshot); err != nil {
			s.logger.Warn("save default availability failed", zap.Error(err), zap.String("user_id", userID.String()))
			return fmt.Errorf("%w: %v", ErrDefaultNotSaved, err)
		}
		sess.Availability.CommitAsDefault()
		return nil
	})
	return snapshot, err
}

// MeetingLists is the upcoming/past split of a team's meetings.
type MeetingLists struct {
	Upcoming  []models.Meeting `json:"upcoming"`
	Past      []models.Meeting `json:"past"`
	PastTotal int              `json:"past_total"`
}

// Meetings lists the caller's team meetings. pastLimit > 0 truncates the past list.
func (s *Service) Meetings(ctx context.Context, userID uuid.UUID, pastLimit int) (MeetingLists, error) {
	var out MeetingLists
	err := s.with(ctx, userID, func(sess *Session) error {
		out.Upcoming = sess.Meetings.Upcoming()
		out.Past = sess.Meetings.Past()
		out.PastTotal = len(out.Past)
		if pastLimit > 0 && len(out.Past) > pastLimit {
			out.Past = out.Past[:pastLimit]
		}
		return nil
	})
	return out, err
}

// Compose prefills the scheduler for cell k.
func (s *Service) Compose(ctx context.Context, userID uuid.UUID, k grid.Key) (Composition, error) {
	var c Composition
	err := s.with(ctx, userID, func(sess *Session) error {
		var err error
		c, err = sess.Compose(k)
		return err
	})
	return c, err
}

// Schedule creates, stores and announces a meeting.
func (s *Service) Schedule(ctx context.Context, userID uuid.UUID, req MeetingRequest) (models.Meeting, error) {
	var m models.Meeting
	err := s.with(ctx, userID, func(sess *Session) error {
		var err error
		if m, err = sess.Schedule(req); err != nil {
			return err
		}
		if err := s.meetings.Create(ctx, m); err != nil {
			_, _ = sess.Meetings.Cancel(m.ID)
			return fmt.Errorf("store meeting: %w", err)
		}
		s.publish(sess.TeamID, EventMeetingCreated, m)
		s.enqueueScheduled(ctx, m)
		return nil
	})
	return m, err
}

func (s *Service) enqueueScheduled(ctx context.Context, m models.Meeting) {
	if s.notifications == nil {
		return
	}
	payload := queue.MeetingScheduledPayload{
		MeetingID:       m.ID,
		TeamID:          m.TeamID,
		Title:           m.Title,
		StartTime:       m.StartTime,
		DurationMinutes: m.DurationMinutes,
		AttendeeIDs:     models.UserIDs(m.Attendees),
		ScheduledBy:     m.CreatedBy,
	}
	if err := s.notifications.EnqueueMeetingScheduled(ctx, payload); err != nil {
		s.logger.Warn("enqueue meeting notification failed", zap.Error(err), zap.String("meeting_id", m.ID.String()))
	}
}

// EditTarget reconciles meeting id against the visible week.
func (s *Service) EditTarget(ctx context.Context, userID, meetingID uuid.UUID) (EditView, error) {
	var v EditView
	err := s.with(ctx, userID, func(sess *Session) error {
		var err error
		v, err = sess.EditTarget(meetingID)
		return err
	})
	return v, err
}

// Reschedule updates, stores and announces meeting id.
func (s *Service) Reschedule(ctx context.Context, userID, meetingID uuid.UUID, req MeetingRequest) (models.Meeting, error) {
	var m models.Meeting
	err := s.with(ctx, userID, func(sess *Session) error {
		before, _ := sess.Meetings.Get(meetingID)
		var err error
		if m, err = sess.Reschedule(meetingID, req); err != nil {
			return err
		}
		if err := s.meetings.Update(ctx, m); err != nil {
			sess.Meetings.Restore(before)
			return fmt.Errorf("store meeting: %w", err)
		}
		s.publish(sess.TeamID, EventMeetingUpdated, m)
		return nil
	})
	return m, err
}

// Cancel deletes and announces meeting id.
func (s *Service) Cancel(ctx context.Context, userID, meetingID uuid.UUID) error {
	return s.with(ctx, userID, func(sess *Session) error {
		m, err := sess.Cancel(meetingID)
		if err != nil {
			return err
		}
		if err := s.meetings.Delete(ctx, meetingID); err != nil {
			sess.Meetings.Restore(m)
			return fmt.Errorf("delete meeting: %w", err)
		}
		s.publish(sess.TeamID, EventMeetingCancelled, map[string]uuid.UUID{"id": m.ID})
		return nil
	})
}
