package grid

import (
	"errors"
	"fmt"
	"time"
)

// DaysPerWeek is the number of columns in the weekly grid.
const DaysPerWeek = 7

// ErrUnknownWeekday is returned for names that are not canonical English weekday names.
var ErrUnknownWeekday = errors.New("unknown weekday")

// Weekday is a Monday-first day index: Monday is 0, Sunday is 6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [DaysPerWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Valid reports whether d is one of the seven grid days.
func (d Weekday) Valid() bool { return d >= Monday && d <= Sunday }

// String returns the full English name.
func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// ParseWeekday resolves a full English weekday name.
func ParseWeekday(name string) (Weekday, error) {
	for i, n := range weekdayNames {
		if n == name {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWeekday, name)
}

// WeekdayOf returns the Monday-first index of t's weekday.
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

// Day is one column of the visible week.
type Day struct {
	Weekday Weekday   `json:"index"`
	Name    string    `json:"name"`
	Date    time.Time `json:"date"`
}

// SameDate reports whether t falls on d's calendar date, compared in d's location.
func (d Day) SameDate(t time.Time) bool {
	y1, m1, d1 := d.Date.Date()
	y2, m2, d2 := t.In(d.Date.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Week is the Monday-first list of days the grid shows.
type Week [DaysPerWeek]Day

// WeekOf returns the calendar week containing now, each day at local midnight in now's location.
// A Sunday belongs to the week that started the previous Monday.
func WeekOf(now time.Time) Week {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	monday := midnight.AddDate(0, 0, -int(WeekdayOf(now)))
	var w Week
	for i := range w {
		wd := Weekday(i)
		w[i] = Day{Weekday: wd, Name: wd.String(), Date: monday.AddDate(0, 0, i)}
	}
	return w
}

// Start returns Monday midnight.
func (w Week) Start() time.Time { return w[0].Date }

// Day returns the column for wd.
func (w Week) Day(wd Weekday) Day { return w[wd] }

// Find returns the day of the week that t falls on.
func (w Week) Find(t time.Time) (Day, bool) {
	for _, d := range w {
		if d.SameDate(t) {
			return d, true
		}
	}
	return Day{}, false
}
