package meetings

import (
	"errors"

	"github.com/google/uuid"

	"github.com/teamslot/backend/internal/models"
)

var (
	ErrSelfRequired = errors.New("you cannot remove yourself from this meeting")
	ErrLastAttendee = errors.New("a meeting must keep at least one attendee")
)

// Selection is the attendee set being composed for a new or edited meeting.
type Selection struct {
	actor         uuid.UUID
	actorMayLeave bool
	selected      map[uuid.UUID]bool
}

// NewSelection preselects the actor plus everyone eligible at the chosen cell.
func NewSelection(actor uuid.UUID, eligible []models.User) *Selection {
	s := &Selection{actor: actor, selected: map[uuid.UUID]bool{actor: true}}
	for _, u := range eligible {
		s.selected[u.ID] = true
	}
	return s
}

// SelectionFor starts from the current attendees of m. The actor may leave m only if they
// already attend it.
func SelectionFor(actor uuid.UUID, m models.Meeting) *Selection {
	s := &Selection{actor: actor, selected: map[uuid.UUID]bool{}}
	for _, a := range m.Attendees {
		s.selected[a.ID] = true
	}
	s.actorMayLeave = s.selected[actor]
	return s
}

// Has reports whether id is selected.
func (s *Selection) Has(id uuid.UUID) bool { return s.selected[id] }

// Len returns the number of selected attendees.
func (s *Selection) Len() int { return len(s.selected) }

// Toggle adds or removes id.
func (s *Selection) Toggle(id uuid.UUID) error {
	if id == s.actor && !s.actorMayLeave {
		return ErrSelfRequired
	}
	if !s.selected[id] {
		s.selected[id] = true
		return nil
	}
	if len(s.selected) == 1 {
		return ErrLastAttendee
	}
	delete(s.selected, id)
	return nil
}

// Apply toggles the selection until it equals want. Additions go first so a removal is
// never refused only because of ordering. On error the selection may be partially applied.
func (s *Selection) Apply(want []uuid.UUID) error {
	target := make(map[uuid.UUID]bool, len(want))
	for _, id := range want {
		target[id] = true
	}
	for _, id := range want {
		if !s.selected[id] {
			if err := s.Toggle(id); err != nil {
				return err
			}
		}
	}
	for id := range s.selected {
		if !target[id] {
			if err := s.Toggle(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Resolve returns the selected members in roster order. Ids outside the roster are dropped.
func (s *Selection) Resolve(roster []models.User) []models.User {
	out := []models.User{}
	for _, u := range roster {
		if s.selected[u.ID] {
			out = append(out, u)
		}
	}
	return out
}
