package meeting

import (
	"time"

	"github.com/google/uuid"
)

// TopicMeetingEvents carries every meeting lifecycle event.
const TopicMeetingEvents = "meeting.events"

// Event types published on TopicMeetingEvents.
const (
	EventCreated = "meeting.created"
	EventUpdated = "meeting.updated"
	EventDeleted = "meeting.deleted"
	EventJoined  = "meeting.joined"
	EventLeft    = "meeting.left"
)

// ScheduledEvent is the payload of created and updated events.
type ScheduledEvent struct {
	MeetingID  uuid.UUID  `json:"meeting_id"`
	OwnerID    uuid.UUID  `json:"owner_id"`
	Address    Address    `json:"address"`
	MeetingAt  *time.Time `json:"meeting_at,omitempty"`
	Version    int64      `json:"version"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// DeletedEvent is the payload of deleted events.
type DeletedEvent struct {
	MeetingID  uuid.UUID   `json:"meeting_id"`
	OwnerID    uuid.UUID   `json:"owner_id"`
	Followers  []uuid.UUID `json:"followers"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// FollowerEvent is the payload of joined and left events.
type FollowerEvent struct {
	MeetingID  uuid.UUID `json:"meeting_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	UserID     uuid.UUID `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
