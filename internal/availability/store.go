// Package availability holds per-user grid answers and the team-wide overlap computations
// built on top of them.
package availability

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/teamslot/backend/internal/grid"
	"github.com/teamslot/backend/internal/models"
)

// Store keeps the active user's unsaved draft next to the committed grids of the whole team.
// Only Commit and CommitAsDefault make draft edits visible to aggregation.
type Store struct {
	userID    uuid.UUID
	draft     models.Availability
	committed models.TeamAvailabilities
	defaults  map[uuid.UUID]models.Availability
	dirty     bool
}

// NewStore creates a store for userID. Committed grids are stored as given and must not be
// mutated by the caller afterwards.
func NewStore(userID uuid.UUID, committed models.TeamAvailabilities, defaults map[uuid.UUID]models.Availability) *Store {
	if committed == nil {
		committed = models.TeamAvailabilities{}
	}
	if defaults == nil {
		defaults = map[uuid.UUID]models.Availability{}
	}
	s := &Store{userID: userID, committed: committed, defaults: defaults}
	s.resetDraft()
	return s
}

func (s *Store) resetDraft() {
	s.draft = s.committed[s.userID].Clone()
	s.dirty = false
}

// UserID returns the active user.
func (s *Store) UserID() uuid.UUID { return s.userID }

// Dirty reports whether the draft has unsaved edits.
func (s *Store) Dirty() bool { return s.dirty }

// Status returns the draft status at k.
func (s *Store) Status(k grid.Key) models.AvailabilityStatus { return s.draft.Get(k) }

// SetStatus changes one draft cell.
func (s *Store) SetStatus(k grid.Key, status models.AvailabilityStatus) error {
	if !k.Valid() {
		return fmt.Errorf("%w: %d/%d", grid.ErrInvalidKey, k.Day, k.Slot)
	}
	switch status {
	case models.StatusEmpty:
		delete(s.draft, k)
	case models.StatusAvailable, models.StatusPreferred:
		s.draft[k] = status
	default:
		return fmt.Errorf("unknown availability status %d", int(status))
	}
	s.dirty = true
	return nil
}

// Toggle sets k to status, or back to EMPTY when it already holds status.
// It returns the resulting status.
func (s *Store) Toggle(k grid.Key, status models.AvailabilityStatus) (models.AvailabilityStatus, error) {
	next := status
	if s.draft.Get(k) == status {
		next = models.StatusEmpty
	}
	if err := s.SetStatus(k, next); err != nil {
		return models.StatusEmpty, err
	}
	return next, nil
}

// SeedDraft replaces the draft with a copy of a and marks it unsaved. Committed grids are untouched,
// so the seed stays invisible to aggregation until the user commits it.
func (s *Store) SeedDraft(a models.Availability) {
	s.draft = a.Clone()
	s.dirty = true
}

// Draft returns a copy of the unsaved grid.
func (s *Store) Draft() models.Availability { return s.draft.Clone() }

// Commit publishes the draft as the active user's committed grid and returns the snapshot.
func (s *Store) Commit() models.Availability {
	snapshot := s.draft.Clone()
	s.committed[s.userID] = snapshot
	s.dirty = false
	return snapshot.Clone()
}

// CommitAsDefault commits and also keeps the snapshot as the user's default template.
func (s *Store) CommitAsDefault() models.Availability {
	snapshot := s.Commit()
	s.defaults[s.userID] = snapshot.Clone()
	return snapshot
}

// Default returns the stored default template for userID.
func (s *Store) Default(userID uuid.UUID) (models.Availability, bool) {
	d, ok := s.defaults[userID]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

// SwitchUser makes userID the active user, discarding any unsaved draft.
func (s *Store) SwitchUser(userID uuid.UUID) {
	s.userID = userID
	s.resetDraft()
}

// Committed returns the committed grid for userID.
func (s *Store) Committed(userID uuid.UUID) (models.Availability, bool) {
	a, ok := s.committed[userID]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Team returns the committed grids of every member. The inner maps are shared and read-only.
func (s *Store) Team() models.TeamAvailabilities {
	out := make(models.TeamAvailabilities, len(s.committed))
	for id, a := range s.committed {
		out[id] = a
	}
	return out
}

// Refresh replaces the committed grids with a newer copy from persistence. The draft is kept.
func (s *Store) Refresh(committed models.TeamAvailabilities) {
	if committed == nil {
		committed = models.TeamAvailabilities{}
	}
	s.committed = committed
}
