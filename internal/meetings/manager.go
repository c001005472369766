// Package meetings owns the lifecycle of scheduled team meetings: creation from a grid slot,
// edits, cancellation and the upcoming/past split.
package meetings

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teamslot/backend/internal/grid"
	"github.com/teamslot/backend/internal/models"
)

// DefaultDuration is the duration offered when none is chosen.
const DefaultDuration = 30

// Durations are the allowed meeting lengths in minutes.
var Durations = []int{15, 30, 45, 60}

var (
	ErrEmptyTitle      = errors.New("meeting title is required")
	ErrMissingDate     = errors.New("meeting slot has no date")
	ErrInvalidDuration = errors.New("meeting duration must be 15, 30, 45 or 60 minutes")
	ErrNoAttendees     = errors.New("meeting needs at least one attendee")
	ErrMeetingNotFound = errors.New("meeting not found")
)

// ValidDuration reports whether minutes is one of Durations.
func ValidDuration(minutes int) bool {
	for _, d := range Durations {
		if d == minutes {
			return true
		}
	}
	return false
}

// Details are the caller-editable fields of a meeting.
type Details struct {
	Title           string
	Slot            grid.TimeSlot
	DurationMinutes int
	Attendees       []models.User
}

func (d Details) validate() (title string, start time.Time, err error) {
	title = strings.TrimSpace(d.Title)
	if title == "" {
		return "", time.Time{}, ErrEmptyTitle
	}
	if d.Slot.FullDate == nil || d.Slot.FullDate.IsZero() {
		return "", time.Time{}, ErrMissingDate
	}
	if !ValidDuration(d.DurationMinutes) {
		return "", time.Time{}, ErrInvalidDuration
	}
	if len(d.Attendees) == 0 {
		return "", time.Time{}, ErrNoAttendees
	}
	return title, *d.Slot.FullDate, nil
}

// Manager holds one team's meetings sorted ascending by start time.
type Manager struct {
	teamID   uuid.UUID
	meetings []models.Meeting
	now      func() time.Time
	newID    func() uuid.UUID
}

// NewManager creates a manager seeded with existing meetings. A nil clock means time.Now.
func NewManager(teamID uuid.UUID, existing []models.Meeting, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	m := &Manager{teamID: teamID, now: now, newID: uuid.New}
	m.Replace(existing)
	return m
}

// Replace swaps the collection for a fresh copy from persistence.
func (m *Manager) Replace(list []models.Meeting) {
	m.meetings = append([]models.Meeting(nil), list...)
	m.sort()
}

func (m *Manager) sort() {
	sort.SliceStable(m.meetings, func(i, j int) bool {
		return m.meetings[i].StartTime.Before(m.meetings[j].StartTime)
	})
}

func (m *Manager) index(id uuid.UUID) int {
	for i := range m.meetings {
		if m.meetings[i].ID == id {
			return i
		}
	}
	return -1
}

// Create validates d and adds a meeting created by createdBy.
func (m *Manager) Create(createdBy uuid.UUID, d Details) (models.Meeting, error) {
	title, start, err := d.validate()
	if err != nil {
		return models.Meeting{}, err
	}
	now := m.now()
	mt := models.Meeting{
		ID:              m.newID(),
		TeamID:          m.teamID,
		Title:           title,
		StartTime:       start,
		EndTime:         start.Add(time.Duration(d.DurationMinutes) * time.Minute),
		DurationMinutes: d.DurationMinutes,
		Attendees:       append([]models.User(nil), d.Attendees...),
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	m.meetings = append(m.meetings, mt)
	m.sort()
	return mt, nil
}

// Update replaces the editable fields of meeting id. Nothing changes on error.
func (m *Manager) Update(id uuid.UUID, d Details) (models.Meeting, error) {
	i := m.index(id)
	if i < 0 {
		return models.Meeting{}, ErrMeetingNotFound
	}
	title, start, err := d.validate()
	if err != nil {
		return models.Meeting{}, err
	}
	mt := m.meetings[i]
	mt.Title = title
	mt.StartTime = start
	mt.EndTime = start.Add(time.Duration(d.DurationMinutes) * time.Minute)
	mt.DurationMinutes = d.DurationMinutes
	mt.Attendees = append([]models.User(nil), d.Attendees...)
	mt.UpdatedAt = m.now()
	m.meetings[i] = mt
	m.sort()
	return mt, nil
}

// Cancel removes meeting id and returns it.
func (m *Manager) Cancel(id uuid.UUID) (models.Meeting, error) {
	i := m.index(id)
	if i < 0 {
		return models.Meeting{}, ErrMeetingNotFound
	}
	mt := m.meetings[i]
	m.meetings = append(m.meetings[:i], m.meetings[i+1:]...)
	return mt, nil
}

// Restore puts mt back as it was, replacing any meeting with the same id.
func (m *Manager) Restore(mt models.Meeting) {
	if i := m.index(mt.ID); i >= 0 {
		m.meetings[i] = mt
	} else {
		m.meetings = append(m.meetings, mt)
	}
	m.sort()
}

// Get returns meeting id.
func (m *Manager) Get(id uuid.UUID) (models.Meeting, bool) {
	i := m.index(id)
	if i < 0 {
		return models.Meeting{}, false
	}
	return m.meetings[i], true
}

// All returns every meeting, ascending by start.
func (m *Manager) All() []models.Meeting {
	return append([]models.Meeting(nil), m.meetings...)
}

// Upcoming returns meetings starting now or later, soonest first.
func (m *Manager) Upcoming() []models.Meeting {
	now := m.now()
	out := []models.Meeting{}
	for _, mt := range m.meetings {
		if !mt.StartTime.Before(now) {
			out = append(out, mt)
		}
	}
	return out
}

// Past returns meetings that already started, most recent first.
func (m *Manager) Past() []models.Meeting {
	now := m.now()
	out := []models.Meeting{}
	for i := len(m.meetings) - 1; i >= 0; i-- {
		if m.meetings[i].StartTime.Before(now) {
			out = append(out, m.meetings[i])
		}
	}
	return out
}
