package models

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/teamslot/backend/internal/grid"
)

// AvailabilityStatus is a member's answer for one grid cell.
type AvailabilityStatus int

const (
	StatusEmpty AvailabilityStatus = iota
	StatusAvailable
	StatusPreferred
)

var statusNames = [...]string{"EMPTY", "AVAILABLE", "PREFERRED"}

// Eligible reports whether the status counts toward overlap. Preferred carries no extra weight.
func (s AvailabilityStatus) Eligible() bool {
	return s == StatusAvailable || s == StatusPreferred
}

func (s AvailabilityStatus) String() string {
	if s < StatusEmpty || s > StatusPreferred {
		return fmt.Sprintf("AvailabilityStatus(%d)", int(s))
	}
	return statusNames[s]
}

// ParseAvailabilityStatus parses the upper-case status name.
func ParseAvailabilityStatus(name string) (AvailabilityStatus, error) {
	for i, n := range statusNames {
		if n == name {
			return AvailabilityStatus(i), nil
		}
	}
	return StatusEmpty, fmt.Errorf("unknown availability status %q", name)
}

func (s AvailabilityStatus) MarshalText() ([]byte, error) {
	if s < StatusEmpty || s > StatusPreferred {
		return nil, fmt.Errorf("unknown availability status %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *AvailabilityStatus) UnmarshalText(b []byte) error {
	parsed, err := ParseAvailabilityStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Availability is one user's grid. A missing key means EMPTY.
type Availability map[grid.Key]AvailabilityStatus

// Get returns the status at k.
func (a Availability) Get(k grid.Key) AvailabilityStatus {
	return a[k]
}

// Clone returns an independent copy; a nil receiver yields an empty map.
func (a Availability) Clone() Availability {
	out := make(Availability, len(a))
	for k, v := range a {
		if v != StatusEmpty {
			out[k] = v
		}
	}
	return out
}

// TeamAvailabilities holds the committed grid of each team member.
type TeamAvailabilities map[uuid.UUID]Availability
