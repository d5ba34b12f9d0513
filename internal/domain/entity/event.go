package entity

import "time"

// Event is a scheduled community event.
type Event struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Location      string     `json:"location,omitempty"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	OrganizerID   string     `json:"organizer_id"`
	AttendeeCount int        `json:"attendee_count"`
	CreatedAt     time.Time  `json:"created_at"`
	Organizer     *Profile   `json:"organizer,omitempty"`
}

// Upcoming reports whether the event has not started before now.
func (e Event) Upcoming(now time.Time) bool {
	return !e.StartTime.Before(now)
}
