package grid

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotLabelsAndIDs(t *testing.T) {
	slots := Slots()
	require.Len(t, slots, SlotsPerDay)

	assert.Equal(t, "ts-1000", slots[0].ID())
	assert.Equal(t, "10:00 AM", slots[0].Label())
	assert.Equal(t, "11:00 AM", slots[1].Label())
	assert.Equal(t, "12:00 PM", slots[2].Label())
	assert.Equal(t, "ts-1400", slots[4].ID())
	assert.Equal(t, "2:00 PM", slots[4].Label())
	assert.Equal(t, "ts-2100", slots[11].ID())
	assert.Equal(t, "9:00 PM", slots[11].Label())
}

func TestParseSlotID(t *testing.T) {
	s, err := ParseSlotID("ts-1300")
	require.NoError(t, err)
	assert.Equal(t, Slot(3), s)

	for _, bad := range []string{"ts-0900", "ts-2200", "ts-1330", "1000", "ts-ab00", ""} {
		_, err := ParseSlotID(bad)
		assert.ErrorIs(t, err, ErrUnknownSlot, bad)
	}
}

func TestParseLabel(t *testing.T) {
	cases := []struct {
		label string
		hour  int
	}{
		{"12:00 AM", 0},
		{"1:00 AM", 1},
		{"10:00 AM", 10},
		{"12:00 PM", 12},
		{"2:00 PM", 14},
		{"9:00 PM", 21},
	}
	for _, tc := range cases {
		h, m, err := ParseLabel(tc.label)
		require.NoError(t, err, tc.label)
		assert.Equal(t, tc.hour, h, tc.label)
		assert.Zero(t, m)
	}

	for _, bad := range []string{"14:00", "13:00 PM", "2:00 XM", "two PM"} {
		_, _, err := ParseLabel(bad)
		assert.ErrorIs(t, err, ErrInvalidLabel, bad)
	}
}

func TestSlotToDateRoundTrip(t *testing.T) {
	day := time.Date(2024, time.March, 11, 17, 42, 5, 99, time.Local)

	at, err := SlotToDate(day, "2:00 PM")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 11, 14, 0, 0, 0, time.Local), at)

	id, err := DateToSlotID(at)
	require.NoError(t, err)
	assert.Equal(t, "ts-1400", id)

	for _, s := range Slots() {
		at, err := SlotToDate(day, s.Label())
		require.NoError(t, err)
		id, err := DateToSlotID(at)
		require.NoError(t, err)
		assert.Equal(t, s.ID(), id)
	}
}

func TestDateToSlotIDOutOfRange(t *testing.T) {
	_, err := DateToSlotID(time.Date(2024, 3, 11, 9, 59, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrSlotOutOfRange)
	_, err = DateToSlotID(time.Date(2024, 3, 11, 22, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrSlotOutOfRange)

	id, err := DateToSlotID(time.Date(2024, 3, 11, 21, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "ts-2100", id)
}

func TestWeekOf(t *testing.T) {
	loc := time.FixedZone("test", 2*3600)

	// Wednesday
	w := WeekOf(time.Date(2024, time.March, 13, 15, 4, 0, 0, loc))
	assert.Equal(t, time.Date(2024, time.March, 11, 0, 0, 0, 0, loc), w.Start())
	assert.Equal(t, "Monday", w[0].Name)
	assert.Equal(t, "Sunday", w[6].Name)
	assert.Equal(t, time.Date(2024, time.March, 17, 0, 0, 0, 0, loc), w[6].Date)

	// Sunday maps to the week that began the previous Monday.
	sunday := WeekOf(time.Date(2024, time.March, 17, 23, 0, 0, 0, loc))
	assert.Equal(t, w, sunday)

	monday := WeekOf(time.Date(2024, time.March, 18, 0, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2024, time.March, 18, 0, 0, 0, 0, loc), monday.Start())
}

func TestWeekFind(t *testing.T) {
	w := WeekOf(time.Date(2024, time.March, 13, 12, 0, 0, 0, time.UTC))

	d, ok := w.Find(time.Date(2024, time.March, 15, 14, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, Friday, d.Weekday)

	_, ok = w.Find(time.Date(2024, time.March, 18, 14, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestKeyStringForm(t *testing.T) {
	k, err := MakeSlotKey("Monday", "ts-1000")
	require.NoError(t, err)
	assert.Equal(t, Key{Day: Monday, Slot: 0}, k)
	assert.Equal(t, "Monday-ts-1000", k.String())

	parsed, err := ParseKey("Sunday-ts-2100")
	require.NoError(t, err)
	assert.Equal(t, MakeKey(Sunday, 11), parsed)

	for _, bad := range []string{"monday-ts-1000", "Monday", "Funday-ts-1000", "Monday-ts-0800"} {
		_, err := ParseKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}

func TestKeyAsJSONMapKey(t *testing.T) {
	in := map[Key]int{MakeKey(Tuesday, 2): 3}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Tuesday-ts-1200":3}`, string(raw))

	var out map[Key]int
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestKeysTraversalOrder(t *testing.T) {
	keys := Keys()
	require.Len(t, keys, DaysPerWeek*SlotsPerDay)
	assert.Equal(t, MakeKey(Monday, 0), keys[0])
	assert.Equal(t, MakeKey(Monday, 1), keys[1])
	assert.Equal(t, MakeKey(Tuesday, 0), keys[SlotsPerDay])
	assert.Equal(t, MakeKey(Sunday, 11), keys[len(keys)-1])
}

func TestSlotOnDay(t *testing.T) {
	w := WeekOf(time.Date(2024, time.March, 13, 12, 0, 0, 0, time.UTC))
	ts := Slot(4).On(w[2])
	require.NotNil(t, ts.FullDate)
	assert.Equal(t, time.Date(2024, time.March, 13, 14, 0, 0, 0, time.UTC), *ts.FullDate)
	assert.Equal(t, "2:00 PM", ts.Time)
}
