// Package planner ties the scheduling core to a signed-in user: it keeps one Session per user,
// loads and stores team state through repositories, and serves the HTTP API over it.
package planner

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/teamslot/backend/internal/availability"
	"github.com/teamslot/backend/internal/grid"
	"github.com/teamslot/backend/internal/meetings"
	"github.com/teamslot/backend/internal/models"
)

var (
	// ErrNoTeam is returned for users that have not joined a team.
	ErrNoTeam = errors.New("join or create a team first")
	// ErrUnknownMember is returned when an attendee id is not on the roster.
	ErrUnknownMember = errors.New("attendee is not a team member")
	// ErrDefaultNotSaved is returned when a grid was committed but storing it as the default
	// template failed.
	ErrDefaultNotSaved = errors.New("availability committed but default template not saved")
)

// TeamState is everything loaded from persistence for one session.
type TeamState struct {
	Roster    []models.User
	Committed models.TeamAvailabilities
	Default   models.Availability
	Meetings  []models.Meeting
}

// Session is one signed-in user's view of their team. It is not safe for concurrent use.
type Session struct {
	User         models.User
	TeamID       uuid.UUID
	Roster       []models.User
	Week         grid.Week
	Availability *availability.Store
	Meetings     *meetings.Manager
	now          func() time.Time
}

// NewSession builds a session for the week containing now(). A user without a committed grid
// starts with their default template as an unsaved draft.
func NewSession(user models.User, teamID uuid.UUID, state TeamState, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	var defaults map[uuid.UUID]models.Availability
	if state.Default != nil {
		defaults = map[uuid.UUID]models.Availability{user.ID: state.Default}
	}
	store := availability.NewStore(user.ID, state.Committed, defaults)
	if _, ok := store.Committed(user.ID); !ok && state.Default != nil {
		store.SeedDraft(state.Default)
	}
	return &Session{
		User:         user,
		TeamID:       teamID,
		Roster:       state.Roster,
		Week:         grid.WeekOf(now()),
		Availability: store,
		Meetings:     meetings.NewManager(teamID, state.Meetings, now),
		now:          now,
	}
}

// Refresh applies newer team state while keeping the draft and the visible week.
func (s *Session) Refresh(user models.User, state TeamState) {
	s.User = user
	s.Roster = state.Roster
	s.Availability.Refresh(state.Committed)
	s.Meetings.Replace(state.Meetings)
}

// Member returns the roster entry for id.
func (s *Session) Member(id uuid.UUID) (models.User, bool) {
	for _, u := range s.Roster {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

// Aggregation recomputes team overlap from the committed grids.
func (s *Session) Aggregation() *availability.Aggregation {
	return availability.Aggregate(s.Week, s.Roster, s.Availability.Team())
}

// BestSlots returns the current best-slot suggestions.
func (s *Session) BestSlots() []models.BestSlot {
	return availability.BestSlots(s.Aggregation())
}

// CellView is one heatmap cell as sent to clients.
type CellView struct {
	Key       grid.Key                  `json:"key"`
	Count     int                       `json:"count"`
	Intensity float64                   `json:"intensity"`
	Members   []uuid.UUID               `json:"members"`
	Status    models.AvailabilityStatus `json:"status"`
	Best      bool                      `json:"best"`
}

// GridView is the full availability screen.
type GridView struct {
	Week         grid.Week           `json:"week"`
	Slots        []grid.TimeSlot     `json:"slots"`
	Draft        models.Availability `json:"draft"`
	Dirty        bool                `json:"dirty"`
	Max          int                 `json:"max"`
	TotalMembers int                 `json:"total_members"`
	Cells        []CellView          `json:"cells"`
	BestSlots    []models.BestSlot   `json:"best_slots"`
}

// View renders the grid for the session user.
func (s *Session) View() GridView {
	agg := s.Aggregation()
	best := availability.BestSlots(agg)
	isBest := make(map[grid.Key]bool, len(best))
	for _, b := range best {
		isBest[b.Key] = true
	}

	v := GridView{
		Week:         s.Week,
		Draft:        s.Availability.Draft(),
		Dirty:        s.Availability.Dirty(),
		Max:          agg.Max,
		TotalMembers: agg.Total,
		BestSlots:    best,
	}
	for _, slot := range grid.Slots() {
		v.Slots = append(v.Slots, slot.TimeSlot())
	}
	for _, c := range agg.Cells() {
		v.Cells = append(v.Cells, CellView{
			Key:       c.Key,
			Count:     c.Count,
			Intensity: availability.Intensity(c.Count, agg.Total),
			Members:   models.UserIDs(c.Members),
			Status:    s.Availability.Status(c.Key),
			Best:      isBest[c.Key],
		})
	}
	return v
}

// Composition is the scheduler prefilled for a grid cell.
type Composition struct {
	Key             grid.Key      `json:"key"`
	Day             grid.Day      `json:"day"`
	Slot            grid.TimeSlot `json:"slot"`
	DurationMinutes int           `json:"duration"`
	Durations       []int         `json:"durations"`
	Attendees       []models.User `json:"attendees"`
}

func (s *Session) preselect(k grid.Key) (grid.TimeSlot, *meetings.Selection, error) {
	if !k.Valid() {
		return grid.TimeSlot{}, nil, grid.ErrInvalidKey
	}
	cell := s.Aggregation().Cell(k)
	return k.Slot.On(s.Week.Day(k.Day)), meetings.NewSelection(s.User.ID, cell.Members), nil
}

// Compose prefills a new meeting at k with the user and everyone available there.
func (s *Session) Compose(k grid.Key) (Composition, error) {
	slot, sel, err := s.preselect(k)
	if err != nil {
		return Composition{}, err
	}
	return Composition{
		Key:             k,
		Day:             s.Week.Day(k.Day),
		Slot:            slot,
		DurationMinutes: meetings.DefaultDuration,
		Durations:       meetings.Durations,
		Attendees:       sel.Resolve(s.Roster),
	}, nil
}

// MeetingRequest carries scheduler input. A nil Key keeps the current slot when editing and
// nil AttendeeIDs keep the preselected attendees.
type MeetingRequest struct {
	Title           string
	Key             *grid.Key
	DurationMinutes int
	AttendeeIDs     []uuid.UUID
}

func (s *Session) applyAttendees(sel *meetings.Selection, ids []uuid.UUID) error {
	if ids == nil {
		return nil
	}
	for _, id := range ids {
		if _, ok := s.Member(id); !ok {
			return ErrUnknownMember
		}
	}
	return sel.Apply(ids)
}

// Schedule creates a meeting at req.Key.
func (s *Session) Schedule(req MeetingRequest) (models.Meeting, error) {
	if req.Key == nil {
		return models.Meeting{}, meetings.ErrMissingDate
	}
	slot, sel, err := s.preselect(*req.Key)
	if err != nil {
		return models.Meeting{}, err
	}
	if err := s.applyAttendees(sel, req.AttendeeIDs); err != nil {
		return models.Meeting{}, err
	}
	duration := req.DurationMinutes
	if duration == 0 {
		duration = meetings.DefaultDuration
	}
	return s.Meetings.Create(s.User.ID, meetings.Details{
		Title:           req.Title,
		Slot:            slot,
		DurationMinutes: duration,
		Attendees:       sel.Resolve(s.Roster),
	})
}

// EditView is the scheduler prefilled from an existing meeting.
type EditView struct {
	Target  meetings.EditTarget `json:"target"`
	Meeting models.Meeting      `json:"meeting"`
}

// EditTarget places meeting id on the visible week, refusing meetings outside it.
func (s *Session) EditTarget(id uuid.UUID) (EditView, error) {
	m, ok := s.Meetings.Get(id)
	if !ok {
		return EditView{}, meetings.ErrMeetingNotFound
	}
	target, err := meetings.ReconcileForEdit(m, s.Week)
	if err != nil {
		return EditView{}, err
	}
	return EditView{Target: target, Meeting: m}, nil
}

// Reschedule replaces the fields of meeting id.
func (s *Session) Reschedule(id uuid.UUID, req MeetingRequest) (models.Meeting, error) {
	view, err := s.EditTarget(id)
	if err != nil {
		return models.Meeting{}, err
	}
	slot := view.Target.Slot
	if req.Key != nil {
		if !req.Key.Valid() {
			return models.Meeting{}, grid.ErrInvalidKey
		}
		slot = req.Key.Slot.On(s.Week.Day(req.Key.Day))
	}
	sel := meetings.SelectionFor(s.User.ID, view.Meeting)
	if err := s.applyAttendees(sel, req.AttendeeIDs); err != nil {
		return models.Meeting{}, err
	}
	duration := req.DurationMinutes
	if duration == 0 {
		duration = view.Meeting.DurationMinutes
	}
	attendees := sel.Resolve(s.Roster)
	if req.AttendeeIDs == nil {
		attendees = view.Meeting.Attendees
	}
	return s.Meetings.Update(id, meetings.Details{
		Title:           req.Title,
		Slot:            slot,
		DurationMinutes: duration,
		Attendees:       attendees,
	})
}

// Cancel removes meeting id.
func (s *Session) Cancel(id uuid.UUID) (models.Meeting, error) {
	return s.Meetings.Cancel(id)
}
