// Package grid defines the fixed weekly scheduling grid: seven Monday-first days by twelve
// one-hour slots, the composite cell key, and conversions between slots and calendar times.
package grid

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned when a key does not name a grid cell.
var ErrInvalidKey = errors.New("invalid slot key")

// Key identifies one cell of the grid. Its string form, e.g. "Monday-ts-1000", is for
// display and wire formats only.
type Key struct {
	Day  Weekday
	Slot Slot
}

// MakeKey builds the key for a day and slot.
func MakeKey(day Weekday, slot Slot) Key { return Key{Day: day, Slot: slot} }

// MakeSlotKey builds a key from a weekday name and slot id.
func MakeSlotKey(weekdayName, slotID string) (Key, error) {
	day, err := ParseWeekday(weekdayName)
	if err != nil {
		return Key{}, err
	}
	slot, err := ParseSlotID(slotID)
	if err != nil {
		return Key{}, err
	}
	return Key{Day: day, Slot: slot}, nil
}

// Valid reports whether k names one of the 84 cells.
func (k Key) Valid() bool { return k.Day.Valid() && k.Slot.Valid() }

func (k Key) String() string { return k.Day.String() + "-" + k.Slot.ID() }

// ParseKey parses the "{WeekdayName}-{SlotId}" form.
func ParseKey(s string) (Key, error) {
	name, slotID, ok := strings.Cut(s, "-")
	if !ok {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	k, err := MakeSlotKey(name, slotID)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return k, nil
}

// MarshalText implements encoding.TextMarshaler so keys can be JSON object keys.
func (k Key) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d/%d", ErrInvalidKey, k.Day, k.Slot)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(b []byte) error {
	parsed, err := ParseKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Keys returns all cells in day-then-slot order.
func Keys() []Key {
	out := make([]Key, 0, DaysPerWeek*SlotsPerDay)
	for d := Monday; d <= Sunday; d++ {
		for s := Slot(0); s < SlotsPerDay; s++ {
			out = append(out, Key{Day: d, Slot: s})
		}
	}
	return out
}
