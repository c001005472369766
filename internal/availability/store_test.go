package availability

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamslot/backend/internal/grid"
	"github.com/teamslot/backend/internal/models"
)

var mondayTen = grid.MakeKey(grid.Monday, 0)

func TestStoreDraftIsolatedUntilCommit(t *testing.T) {
	me := uuid.New()
	s := NewStore(me, nil, nil)
	assert.False(t, s.Dirty())

	require.NoError(t, s.SetStatus(mondayTen, models.StatusAvailable))
	assert.True(t, s.Dirty())
	assert.Equal(t, models.StatusAvailable, s.Status(mondayTen))

	_, ok := s.Committed(me)
	assert.False(t, ok, "draft edits must not reach the committed view")

	snapshot := s.Commit()
	assert.False(t, s.Dirty())
	assert.Equal(t, models.Availability{mondayTen: models.StatusAvailable}, snapshot)

	committed, ok := s.Committed(me)
	require.True(t, ok)
	assert.Equal(t, snapshot, committed)

	// Later draft edits leave the committed snapshot untouched.
	require.NoError(t, s.SetStatus(mondayTen, models.StatusEmpty))
	committed, _ = s.Committed(me)
	assert.Equal(t, models.StatusAvailable, committed.Get(mondayTen))
	assert.Equal(t, models.StatusEmpty, s.Status(mondayTen))
}

func TestStoreDraftStartsFromCommitted(t *testing.T) {
	me := uuid.New()
	committed := models.TeamAvailabilities{me: {mondayTen: models.StatusPreferred}}
	s := NewStore(me, committed, nil)

	assert.Equal(t, models.StatusPreferred, s.Status(mondayTen))
	assert.False(t, s.Dirty())
}

func TestStoreRejectsInvalidInput(t *testing.T) {
	s := NewStore(uuid.New(), nil, nil)
	assert.ErrorIs(t, s.SetStatus(grid.Key{Day: 7}, models.StatusAvailable), grid.ErrInvalidKey)
	assert.Error(t, s.SetStatus(mondayTen, models.AvailabilityStatus(9)))
	assert.False(t, s.Dirty())
}

func TestStoreToggle(t *testing.T) {
	s := NewStore(uuid.New(), nil, nil)

	got, err := s.Toggle(mondayTen, models.StatusAvailable)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, got)

	got, err = s.Toggle(mondayTen, models.StatusPreferred)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreferred, got)

	got, err = s.Toggle(mondayTen, models.StatusPreferred)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEmpty, got)
	assert.Empty(t, s.Draft())
}

func TestStoreCommitAsDefault(t *testing.T) {
	me := uuid.New()
	s := NewStore(me, nil, nil)
	require.NoError(t, s.SetStatus(mondayTen, models.StatusAvailable))

	snapshot := s.CommitAsDefault()
	assert.False(t, s.Dirty())

	def, ok := s.Default(me)
	require.True(t, ok)
	assert.Equal(t, snapshot, def)

	committed, ok := s.Committed(me)
	require.True(t, ok)
	assert.Equal(t, snapshot, committed)
}

func TestStoreSwitchUserDropsDraft(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	committed := models.TeamAvailabilities{bob: {mondayTen: models.StatusAvailable}}
	s := NewStore(alice, committed, nil)

	require.NoError(t, s.SetStatus(grid.MakeKey(grid.Friday, 3), models.StatusPreferred))
	s.SwitchUser(bob)
	assert.Equal(t, bob, s.UserID())
	assert.False(t, s.Dirty())
	assert.Equal(t, models.Availability{mondayTen: models.StatusAvailable}, s.Draft())

	s.SwitchUser(alice)
	assert.Empty(t, s.Draft(), "alice's unsaved edit must not survive a switch")
}

func TestStoreRefreshKeepsDraft(t *testing.T) {
	me, other := uuid.New(), uuid.New()
	s := NewStore(me, nil, nil)
	require.NoError(t, s.SetStatus(mondayTen, models.StatusAvailable))

	s.Refresh(models.TeamAvailabilities{other: {mondayTen: models.StatusAvailable}})
	assert.True(t, s.Dirty())
	assert.Equal(t, models.StatusAvailable, s.Status(mondayTen))
	assert.Len(t, s.Team(), 1)
}

func TestStoreSeedDraftStaysPrivate(t *testing.T) {
	me, other := uuid.New(), uuid.New()
	s := NewStore(me, models.TeamAvailabilities{other: {mondayTen: models.StatusAvailable}}, nil)

	template := models.Availability{mondayTen: models.StatusPreferred}
	s.SeedDraft(template)
	template[mondayTen] = models.StatusEmpty

	assert.True(t, s.Dirty())
	assert.Equal(t, models.StatusPreferred, s.Status(mondayTen))
	_, ok := s.Committed(me)
	assert.False(t, ok)
	assert.Len(t, s.Team(), 1)

	s.Commit()
	committed, ok := s.Committed(me)
	require.True(t, ok)
	assert.Equal(t, models.Availability{mondayTen: models.StatusPreferred}, committed)
}
