package grid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// SlotsPerDay is the number of one-hour rows in the weekly grid.
	SlotsPerDay = 12
	// FirstHour is the local hour the first slot starts at.
	FirstHour = 10
)

var (
	// ErrSlotOutOfRange is returned when a time does not start inside one of the grid slots.
	ErrSlotOutOfRange = errors.New("time falls outside the scheduling grid")
	// ErrUnknownSlot is returned for slot ids that are not part of the grid.
	ErrUnknownSlot = errors.New("unknown slot")
	// ErrInvalidLabel is returned for slot labels that are not in "H:MM AM/PM" form.
	ErrInvalidLabel = errors.New("invalid slot label")
)

// Slot indexes one of the fixed one-hour windows. Slot 0 starts at 10:00.
type Slot int

// Slots returns every slot in display order.
func Slots() []Slot {
	out := make([]Slot, SlotsPerDay)
	for i := range out {
		out[i] = Slot(i)
	}
	return out
}

// Valid reports whether s is one of the grid slots.
func (s Slot) Valid() bool { return s >= 0 && s < SlotsPerDay }

// Hour returns the 24-hour local start hour.
func (s Slot) Hour() int { return FirstHour + int(s) }

// ID returns the stable identifier, e.g. "ts-1400".
func (s Slot) ID() string { return fmt.Sprintf("ts-%02d00", s.Hour()) }

// Label returns the display label, e.g. "2:00 PM".
func (s Slot) Label() string {
	h := s.Hour()
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:00 %s", h12, suffix)
}

// ParseSlotID resolves a "ts-HH00" identifier.
func ParseSlotID(id string) (Slot, error) {
	digits, ok := strings.CutPrefix(id, "ts-")
	if !ok || len(digits) != 4 || !strings.HasSuffix(digits, "00") {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSlot, id)
	}
	h, err := strconv.Atoi(digits[:2])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSlot, id)
	}
	s, err := SlotForHour(h)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSlot, id)
	}
	return s, nil
}

// SlotForHour returns the slot starting at the given local hour.
func SlotForHour(hour int) (Slot, error) {
	s := Slot(hour - FirstHour)
	if !s.Valid() {
		return 0, ErrSlotOutOfRange
	}
	return s, nil
}

// SlotAt returns the slot whose hour contains t.
func SlotAt(t time.Time) (Slot, error) {
	return SlotForHour(t.Hour())
}

// DateToSlotID maps the start hour of t to its slot identifier.
func DateToSlotID(t time.Time) (string, error) {
	s, err := SlotAt(t)
	if err != nil {
		return "", err
	}
	return s.ID(), nil
}

// ParseLabel converts an "H:MM AM/PM" label to a 24-hour clock hour and minute.
func ParseLabel(label string) (hour, minute int, err error) {
	clock, period, ok := strings.Cut(strings.TrimSpace(label), " ")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	hh, mm, ok := strings.Cut(clock, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	hour, err = strconv.Atoi(hh)
	if err != nil || hour < 1 || hour > 12 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	minute, err = strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	switch strings.ToUpper(period) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	return hour, minute, nil
}

// SlotToDate binds a slot label to a calendar day. Minutes and smaller units are zeroed.
func SlotToDate(day time.Time, label string) (time.Time, error) {
	hour, _, err := ParseLabel(label)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, day.Location()), nil
}

// TimeSlot is a slot as shown to clients. FullDate is only set once the slot is bound to a day.
type TimeSlot struct {
	ID       string     `json:"id"`
	Time     string     `json:"time"`
	FullDate *time.Time `json:"full_date,omitempty"`
}

// TimeSlot returns the unbound row template for s.
func (s Slot) TimeSlot() TimeSlot {
	return TimeSlot{ID: s.ID(), Time: s.Label()}
}

// On returns s bound to the given day.
func (s Slot) On(day Day) TimeSlot {
	ts := s.TimeSlot()
	y, m, d := day.Date.Date()
	at := time.Date(y, m, d, s.Hour(), 0, 0, 0, day.Date.Location())
	ts.FullDate = &at
	return ts
}
