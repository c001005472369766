package planner

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/teamslot/backend/internal/meetings"
	"github.com/teamslot/backend/internal/models"
	"github.com/teamslot/backend/pkg/queue"
)

// memStore is an in-memory stand-in for the Postgres repositories.
type memStore struct {
	mu          sync.Mutex
	teamOf      map[uuid.UUID]uuid.UUID
	members     map[uuid.UUID][]models.User
	committed   map[uuid.UUID]models.TeamAvailabilities
	defaults    map[uuid.UUID]models.Availability
	meetings    map[uuid.UUID]models.Meeting
	failWrite   bool
	failDefault bool

	// lookups receives every TeamForUser call when set.
	lookups chan uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		teamOf:    map[uuid.UUID]uuid.UUID{},
		members:   map[uuid.UUID][]models.User{},
		committed: map[uuid.UUID]models.TeamAvailabilities{},
		defaults:  map[uuid.UUID]models.Availability{},
		meetings:  map[uuid.UUID]models.Meeting{},
	}
}

var errWrite = errors.New("write failed")

func (m *memStore) join(teamID uuid.UUID, users ...models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range users {
		m.teamOf[u.ID] = teamID
		m.members[teamID] = append(m.members[teamID], u)
	}
}

func (m *memStore) TeamForUser(_ context.Context, userID uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookups != nil {
		m.lookups <- userID
	}
	return m.teamOf[userID], nil
}

func (m *memStore) Members(_ context.Context, teamID uuid.UUID) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.User(nil), m.members[teamID]...), nil
}

func (m *memStore) ListTeam(_ context.Context, teamID uuid.UUID) (models.TeamAvailabilities, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := models.TeamAvailabilities{}
	for id, a := range m.committed[teamID] {
		out[id] = a.Clone()
	}
	return out, nil
}

func (m *memStore) Save(_ context.Context, teamID, userID uuid.UUID, a models.Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errWrite
	}
	if m.committed[teamID] == nil {
		m.committed[teamID] = models.TeamAvailabilities{}
	}
	m.committed[teamID][userID] = a.Clone()
	return nil
}

func (m *memStore) GetDefault(_ context.Context, userID uuid.UUID) (models.Availability, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.defaults[userID]
	return a.Clone(), ok, nil
}

func (m *memStore) SaveDefault(_ context.Context, userID uuid.UUID, a models.Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDefault {
		return errWrite
	}
	m.defaults[userID] = a.Clone()
	return nil
}

func (m *memStore) ListByTeam(_ context.Context, teamID uuid.UUID) ([]models.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Meeting
	for _, mt := range m.meetings {
		if mt.TeamID == teamID {
			out = append(out, mt)
		}
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, mt models.Meeting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errWrite
	}
	m.meetings[mt.ID] = mt
	return nil
}

func (m *memStore) Update(_ context.Context, mt models.Meeting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errWrite
	}
	if _, ok := m.meetings[mt.ID]; !ok {
		return meetings.ErrMeetingNotFound
	}
	m.meetings[mt.ID] = mt
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errWrite
	}
	delete(m.meetings, id)
	return nil
}

type published struct {
	teamID  uuid.UUID
	event   string
	payload interface{}
}

type recorder struct {
	mu     sync.Mutex
	events []published
	jobs   []queue.MeetingScheduledPayload
}

func (r *recorder) PublishTeamEvent(teamID uuid.UUID, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{teamID: teamID, event: event, payload: payload})
}

func (r *recorder) EnqueueMeetingScheduled(_ context.Context, p queue.MeetingScheduledPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, p)
	return nil
}

func (r *recorder) eventNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.event)
	}
	return out
}
