package availability

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamslot/backend/internal/grid"
	"github.com/teamslot/backend/internal/models"
)

func testWeek() grid.Week {
	return grid.WeekOf(time.Date(2024, time.March, 13, 9, 0, 0, 0, time.UTC))
}

func member(name string) models.User {
	return models.User{ID: uuid.New(), Name: name, Email: name + "@example.com"}
}

func TestAggregateThreeMemberScenario(t *testing.T) {
	a, b, c := member("a"), member("b"), member("c")
	team := models.TeamAvailabilities{
		a.ID: {mondayTen: models.StatusAvailable},
		b.ID: {mondayTen: models.StatusPreferred},
		c.ID: {},
	}

	agg := Aggregate(testWeek(), []models.User{a, b, c}, team)
	assert.Equal(t, 2, agg.Max)
	assert.Equal(t, 3, agg.Total)
	assert.Equal(t, 2, agg.Counts()[mondayTen])

	best := BestSlots(agg)
	require.Len(t, best, 1)
	assert.Equal(t, mondayTen, best[0].Key)
	assert.Equal(t, "Monday", best[0].Day.Name)
	assert.Equal(t, "ts-1000", best[0].Slot.ID)
	require.NotNil(t, best[0].Slot.FullDate)
	assert.Equal(t, time.Date(2024, time.March, 11, 10, 0, 0, 0, time.UTC), *best[0].Slot.FullDate)
	assert.Equal(t, 2, best[0].Count)
	assert.Equal(t, []models.User{a, b}, best[0].AvailableMembers)
}

func TestAggregateBounds(t *testing.T) {
	roster := []models.User{member("a"), member("b"), member("c"), member("d")}
	team := models.TeamAvailabilities{}
	for i, m := range roster {
		a := models.Availability{}
		for j, k := range grid.Keys() {
			switch (i + j) % 3 {
			case 0:
				a[k] = models.StatusAvailable
			case 1:
				a[k] = models.StatusPreferred
			}
		}
		team[m.ID] = a
	}

	agg := Aggregate(testWeek(), roster, team)
	sum := 0
	for _, c := range agg.Cells() {
		assert.GreaterOrEqual(t, c.Count, 0)
		assert.LessOrEqual(t, c.Count, len(roster))
		assert.LessOrEqual(t, c.Count, agg.Max)
		assert.Len(t, c.Members, c.Count)
		sum += c.Count
	}
	assert.LessOrEqual(t, sum, len(roster)*grid.DaysPerWeek*grid.SlotsPerDay)
	assert.Len(t, agg.Counts(), grid.DaysPerWeek*grid.SlotsPerDay)
}

func TestAggregateIgnoresNonRosterData(t *testing.T) {
	a := member("a")
	stranger := uuid.New()
	team := models.TeamAvailabilities{
		stranger: {mondayTen: models.StatusAvailable},
	}
	agg := Aggregate(testWeek(), []models.User{a}, team)
	assert.Zero(t, agg.Max)
	assert.Empty(t, BestSlots(agg))
}

func TestBestSlotsEmptyWhenNoOverlap(t *testing.T) {
	agg := Aggregate(testWeek(), nil, nil)
	assert.Zero(t, agg.Max)
	best := BestSlots(agg)
	assert.NotNil(t, best)
	assert.Empty(t, best)
}

func TestBestSlotsTruncatesTiesInTraversalOrder(t *testing.T) {
	a := member("a")
	avail := models.Availability{}
	// Register Tuesday first to show map order plays no part.
	for _, k := range []grid.Key{
		grid.MakeKey(grid.Tuesday, 0),
		grid.MakeKey(grid.Monday, 11),
		grid.MakeKey(grid.Monday, 3),
		grid.MakeKey(grid.Sunday, 5),
		grid.MakeKey(grid.Monday, 0),
		grid.MakeKey(grid.Wednesday, 7),
		grid.MakeKey(grid.Monday, 1),
	} {
		avail[k] = models.StatusAvailable
	}

	agg := Aggregate(testWeek(), []models.User{a}, models.TeamAvailabilities{a.ID: avail})
	best := BestSlots(agg)
	require.Len(t, best, MaxBestSlots)

	var keys []grid.Key
	for _, b := range best {
		keys = append(keys, b.Key)
		assert.Equal(t, agg.Max, b.Count)
	}
	assert.Equal(t, []grid.Key{
		grid.MakeKey(grid.Monday, 0),
		grid.MakeKey(grid.Monday, 1),
		grid.MakeKey(grid.Monday, 3),
		grid.MakeKey(grid.Monday, 11),
		grid.MakeKey(grid.Tuesday, 0),
	}, keys)
}

func TestBestSlotsOnlyMaximum(t *testing.T) {
	a, b := member("a"), member("b")
	tue := grid.MakeKey(grid.Tuesday, 4)
	team := models.TeamAvailabilities{
		a.ID: {mondayTen: models.StatusAvailable, tue: models.StatusAvailable},
		b.ID: {tue: models.StatusPreferred},
	}
	agg := Aggregate(testWeek(), []models.User{a, b}, team)
	best := BestSlots(agg)
	require.Len(t, best, 1)
	assert.Equal(t, tue, best[0].Key)
	for _, c := range agg.Cells() {
		assert.LessOrEqual(t, c.Count, best[0].Count)
	}
}

func TestIntensity(t *testing.T) {
	assert.Equal(t, 0.5, Intensity(1, 4))
	assert.Equal(t, 1.0, Intensity(4, 4))
	assert.Zero(t, Intensity(0, 4))
	assert.Zero(t, Intensity(1, 1))
	assert.Zero(t, Intensity(3, 0))
	assert.InDelta(t, math.Sqrt(2.0/3.0), Intensity(2, 3), 1e-12)

	prev := 0.0
	for c := 0; c <= 7; c++ {
		v := Intensity(c, 7)
		assert.GreaterOrEqual(t, v, prev)
		assert.LessOrEqual(t, v, 1.0)
		prev = v
	}
}

func TestAggregationIntensity(t *testing.T) {
	a, b, c, d := member("a"), member("b"), member("c"), member("d")
	team := models.TeamAvailabilities{a.ID: {mondayTen: models.StatusAvailable}}
	agg := Aggregate(testWeek(), []models.User{a, b, c, d}, team)
	assert.Equal(t, 0.5, agg.Intensity(mondayTen))
}
