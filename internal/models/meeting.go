package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/teamslot/backend/internal/grid"
)

// Meeting is a scheduled team meeting. EndTime is always StartTime plus DurationMinutes.
type Meeting struct {
	ID              uuid.UUID `json:"id"`
	TeamID          uuid.UUID `json:"team_id"`
	Title           string    `json:"title"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration"`
	Attendees       []User    `json:"attendees"`
	CreatedBy       uuid.UUID `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasAttendee reports whether userID attends m.
func (m Meeting) HasAttendee(userID uuid.UUID) bool {
	for _, a := range m.Attendees {
		if a.ID == userID {
			return true
		}
	}
	return false
}

// BestSlot is a cell sharing the week's maximum overlap.
type BestSlot struct {
	Day              grid.Day      `json:"day"`
	Slot             grid.TimeSlot `json:"slot"`
	Key              grid.Key      `json:"key"`
	AvailableMembers []User        `json:"available_members"`
	Count            int           `json:"count"`
}
