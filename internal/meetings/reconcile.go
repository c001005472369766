package meetings

import (
	"errors"

	"github.com/teamslot/backend/internal/grid"
	"github.com/teamslot/backend/internal/models"
)

// ErrOutsideWeek is returned when a meeting cannot be placed on the visible grid.
var ErrOutsideWeek = errors.New("cannot edit meetings outside of the current week's view")

// EditTarget is where an existing meeting sits on the visible grid.
type EditTarget struct {
	Key  grid.Key      `json:"key"`
	Day  grid.Day      `json:"day"`
	Slot grid.TimeSlot `json:"slot"`
}

// ReconcileForEdit places m on week by calendar date and start hour.
func ReconcileForEdit(m models.Meeting, week grid.Week) (EditTarget, error) {
	day, ok := week.Find(m.StartTime)
	if !ok {
		return EditTarget{}, ErrOutsideWeek
	}
	slot, err := grid.SlotAt(m.StartTime.In(day.Date.Location()))
	if err != nil {
		return EditTarget{}, ErrOutsideWeek
	}
	start := m.StartTime
	ts := slot.TimeSlot()
	ts.FullDate = &start
	return EditTarget{Key: grid.MakeKey(day.Weekday, slot), Day: day, Slot: ts}, nil
}
