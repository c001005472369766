package availability

import (
	"github.com/teamslot/backend/internal/grid"
	"github.com/teamslot/backend/internal/models"
)

// Cell is one aggregated grid cell.
type Cell struct {
	Key     grid.Key
	Day     grid.Day
	Slot    grid.Slot
	Count   int
	Members []models.User
}

// Aggregation is the overlap of a roster across the visible week.
type Aggregation struct {
	cells [grid.DaysPerWeek][grid.SlotsPerDay]Cell
	Max   int
	Total int
}

// Aggregate counts, for every cell of week, the roster members whose committed status is
// eligible. Members keep roster order. It always scans the full roster and grid.
func Aggregate(week grid.Week, roster []models.User, team models.TeamAvailabilities) *Aggregation {
	a := &Aggregation{Total: len(roster)}
	for _, day := range week {
		for _, slot := range grid.Slots() {
			k := grid.MakeKey(day.Weekday, slot)
			c := Cell{Key: k, Day: day, Slot: slot}
			for _, m := range roster {
				if team[m.ID].Get(k).Eligible() {
					c.Members = append(c.Members, m)
				}
			}
			c.Count = len(c.Members)
			if c.Count > a.Max {
				a.Max = c.Count
			}
			a.cells[day.Weekday][slot] = c
		}
	}
	return a
}

// Cell returns the aggregated cell at k. Invalid keys yield a zero Cell.
func (a *Aggregation) Cell(k grid.Key) Cell {
	if !k.Valid() {
		return Cell{}
	}
	return a.cells[k.Day][k.Slot]
}

// Cells returns every cell in day-then-slot order.
func (a *Aggregation) Cells() []Cell {
	out := make([]Cell, 0, grid.DaysPerWeek*grid.SlotsPerDay)
	for d := range a.cells {
		out = append(out, a.cells[d][:]...)
	}
	return out
}

// Counts returns the eligible count of every cell.
func (a *Aggregation) Counts() map[grid.Key]int {
	out := make(map[grid.Key]int, grid.DaysPerWeek*grid.SlotsPerDay)
	for _, c := range a.Cells() {
		out[c.Key] = c.Count
	}
	return out
}

// Intensity returns the heatmap value of the cell at k.
func (a *Aggregation) Intensity(k grid.Key) float64 {
	return Intensity(a.Cell(k).Count, a.Total)
}
