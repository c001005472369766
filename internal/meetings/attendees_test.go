package meetings

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamslot/backend/internal/grid"
	"github.com/teamslot/backend/internal/models"
)

func TestNewSelectionPreselectsActorAndEligible(t *testing.T) {
	me, a, b, c := user("me"), user("a"), user("b"), user("c")
	s := NewSelection(me.ID, []models.User{a, b})

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has(me.ID))
	assert.False(t, s.Has(c.ID))
	assert.Equal(t, []models.User{me, a, b}, s.Resolve([]models.User{me, a, b, c}))
}

func TestActorCannotLeaveNewMeeting(t *testing.T) {
	me, a := user("me"), user("a")
	s := NewSelection(me.ID, []models.User{a})

	assert.ErrorIs(t, s.Toggle(me.ID), ErrSelfRequired)
	assert.True(t, s.Has(me.ID))

	require.NoError(t, s.Toggle(a.ID))
	assert.False(t, s.Has(a.ID))
	require.NoError(t, s.Toggle(a.ID))
	assert.True(t, s.Has(a.ID))
}

func TestSoleAttendeeCannotBeRemoved(t *testing.T) {
	me := user("me")
	m := models.Meeting{ID: uuid.New(), Attendees: []models.User{me}}
	s := SelectionFor(me.ID, m)

	assert.ErrorIs(t, s.Toggle(me.ID), ErrLastAttendee)
	assert.True(t, s.Has(me.ID))
}

func TestActorMayLeaveEditedMeetingWithOthers(t *testing.T) {
	me, a := user("me"), user("a")
	m := models.Meeting{ID: uuid.New(), Attendees: []models.User{me, a}}
	s := SelectionFor(me.ID, m)

	require.NoError(t, s.Toggle(me.ID))
	assert.False(t, s.Has(me.ID))
	assert.ErrorIs(t, s.Toggle(a.ID), ErrLastAttendee)
}

func TestNonAttendeeCannotAddThemselvesWhenEditing(t *testing.T) {
	me, a := user("me"), user("a")
	s := SelectionFor(me.ID, models.Meeting{Attendees: []models.User{a}})
	assert.ErrorIs(t, s.Toggle(me.ID), ErrSelfRequired)
}

func TestApply(t *testing.T) {
	me, a, b := user("me"), user("a"), user("b")

	s := NewSelection(me.ID, []models.User{a})
	require.NoError(t, s.Apply([]uuid.UUID{me.ID, b.ID}))
	assert.Equal(t, []models.User{me, b}, s.Resolve([]models.User{me, a, b}))

	s = NewSelection(me.ID, nil)
	assert.ErrorIs(t, s.Apply([]uuid.UUID{a.ID}), ErrSelfRequired)

	// Swapping the only other attendee works because additions are applied first.
	edit := SelectionFor(me.ID, models.Meeting{Attendees: []models.User{me}})
	require.NoError(t, edit.Apply([]uuid.UUID{a.ID}))
	assert.Equal(t, []models.User{a}, edit.Resolve([]models.User{me, a, b}))
}

func TestReconcileForEdit(t *testing.T) {
	now := time.Date(2024, time.March, 13, 9, 0, 0, 0, time.UTC)
	week := grid.WeekOf(now)

	m := models.Meeting{StartTime: time.Date(2024, time.March, 15, 14, 0, 0, 0, time.UTC)}
	target, err := ReconcileForEdit(m, week)
	require.NoError(t, err)
	assert.Equal(t, "Friday", target.Day.Name)
	assert.Equal(t, "ts-1400", target.Slot.ID)
	assert.Equal(t, "Friday-ts-1400", target.Key.String())
	require.NotNil(t, target.Slot.FullDate)
	assert.Equal(t, m.StartTime, *target.Slot.FullDate)

	_, err = ReconcileForEdit(models.Meeting{StartTime: time.Date(2024, time.March, 19, 14, 0, 0, 0, time.UTC)}, week)
	assert.ErrorIs(t, err, ErrOutsideWeek)

	_, err = ReconcileForEdit(models.Meeting{StartTime: time.Date(2024, time.March, 15, 8, 0, 0, 0, time.UTC)}, week)
	assert.ErrorIs(t, err, ErrOutsideWeek)
}
