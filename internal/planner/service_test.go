package planner

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamslot/backend/internal/grid"
	"github.com/teamslot/backend/internal/models"
)

func newTestService(store *memStore, events *recorder) *Service {
	svc := NewService(store, store, store, events, events, time.UTC, nil)
	svc.SetClock(func() time.Time { return wednesday })
	return svc
}

func TestTeammatesSeeSameAggregation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	a, b := person("a"), person("b")
	team := uuid.New()
	store.join(team, a, b)

	k := grid.MakeKey(grid.Monday, 0)
	store.defaults[a.ID] = models.Availability{k: models.StatusAvailable}
	require.NoError(t, store.Save(ctx, team, b.ID, models.Availability{k: models.StatusPreferred}))

	svc := newTestService(store, &recorder{})
	viewA, err := svc.Grid(ctx, a.ID)
	require.NoError(t, err)
	viewB, err := svc.Grid(ctx, b.ID)
	require.NoError(t, err)

	assert.Equal(t, viewB.Max, viewA.Max)
	assert.Equal(t, 1, viewA.Max)
	require.Len(t, viewA.BestSlots, 1)
	require.Len(t, viewB.BestSlots, 1)
	assert.Equal(t, viewB.BestSlots[0].Count, viewA.BestSlots[0].Count)
	assert.Equal(t, []models.User{b}, viewA.BestSlots[0].AvailableMembers)

	// a's template is waiting in their draft.
	assert.True(t, viewA.Dirty)
	assert.Equal(t, models.StatusAvailable, viewA.Draft[k])

	_, err = svc.Commit(ctx, a.ID, false)
	require.NoError(t, err)
	viewA, err = svc.Grid(ctx, a.ID)
	require.NoError(t, err)
	viewB, err = svc.Grid(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, viewA.Max)
	assert.Equal(t, 2, viewB.Max)
}

func TestWaitingRequestSeesFinishedWrite(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	a := person("a")
	team := uuid.New()
	store.join(team, a)
	store.lookups = make(chan uuid.UUID, 4)
	svc := newTestService(store, &recorder{})

	sess, release, err := svc.Acquire(ctx, a.ID)
	require.NoError(t, err)
	<-store.lookups

	done := make(chan GridView, 1)
	go func() {
		v, err := svc.Grid(ctx, a.ID)
		assert.NoError(t, err)
		done <- v
	}()
	<-store.lookups

	// Finish a commit while the second request waits for the session.
	k := grid.MakeKey(grid.Tuesday, 3)
	require.NoError(t, sess.Availability.SetStatus(k, models.StatusAvailable))
	require.NoError(t, store.Save(ctx, team, a.ID, sess.Availability.Draft()))
	sess.Availability.Commit()
	release()

	select {
	case v := <-done:
		assert.Equal(t, 1, v.Max)
		assert.False(t, v.Dirty)
	case <-time.After(2 * time.Second):
		t.Fatal("grid request did not finish")
	}
}

func TestCommitDefaultFailureKeepsCommit(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	events := &recorder{}
	a := person("a")
	team := uuid.New()
	store.join(team, a)
	svc := newTestService(store, events)

	k := grid.MakeKey(grid.Friday, 1)
	_, err := svc.SetStatus(ctx, a.ID, k, models.StatusPreferred, false)
	require.NoError(t, err)

	store.failDefault = true
	snapshot, err := svc.Commit(ctx, a.ID, true)
	require.ErrorIs(t, err, ErrDefaultNotSaved)
	assert.Equal(t, models.Availability{k: models.StatusPreferred}, snapshot)
	assert.Equal(t, models.Availability{k: models.StatusPreferred}, store.committed[team][a.ID])
	assert.NotContains(t, store.defaults, a.ID)
	assert.Equal(t, []string{EventAvailabilityCommitted}, events.eventNames())

	view, err := svc.Grid(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, view.Dirty)
	assert.Equal(t, 1, view.Max)
}
