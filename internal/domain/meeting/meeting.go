// Package meeting is the meeting aggregate: where and when people meet, who
// created it and who joined.
package meeting

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meetpoint/service-meeting/internal/platform/domain"
	"github.com/meetpoint/service-meeting/pkg/geo"
)

const (
	// ConflictRadiusMeters is how close two meetings on the same day may be.
	ConflictRadiusMeters = 1000.0
	// NearRadiusMeters is the search radius for nearby meetings.
	NearRadiusMeters = 5000.0

	maxAddressNameLength = 500
)

// Address is where a meeting takes place.
type Address struct {
	Name  string         `json:"name"`
	Point geo.Coordinate `json:"point"`
}

// Validate checks the address name and point.
func (a Address) Validate() error {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return domain.NewValidationError("address name is required")
	}
	if len(name) > maxAddressNameLength {
		return domain.NewValidationError("address name is too long")
	}
	if !a.Point.Valid() {
		return domain.NewValidationError("address point must be a valid [lng, lat] coordinate")
	}
	return nil
}

// Meeting is the aggregate root for the meeting domain.
type Meeting struct {
	id        uuid.UUID
	ownerID   uuid.UUID
	followers []uuid.UUID
	address   Address
	meetingAt *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewMeeting creates a Meeting owned by ownerID. meetingAt may be nil for an
// undated meeting.
func NewMeeting(ownerID uuid.UUID, address Address, meetingAt *time.Time) (*Meeting, error) {
	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner ID is required")
	}
	if err := address.Validate(); err != nil {
		return nil, err
	}
	address.Name = strings.TrimSpace(address.Name)

	now := time.Now().UTC()
	return &Meeting{
		id:        uuid.New(),
		ownerID:   ownerID,
		followers: []uuid.UUID{},
		address:   address,
		meetingAt: utcPtr(meetingAt),
		version:   1,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct rebuilds a Meeting from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	ownerID uuid.UUID,
	followers []uuid.UUID,
	address Address,
	meetingAt *time.Time,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Meeting {
	if followers == nil {
		followers = []uuid.UUID{}
	}
	return &Meeting{
		id:        id,
		ownerID:   ownerID,
		followers: followers,
		address:   address,
		meetingAt: meetingAt,
		version:   version,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (m *Meeting) ID() uuid.UUID      { return m.id }
func (m *Meeting) OwnerID() uuid.UUID { return m.ownerID }
func (m *Meeting) Address() Address   { return m.address }

// MeetingAt returns the scheduled time, or nil if the meeting is undated.
func (m *Meeting) MeetingAt() *time.Time { return m.meetingAt }

// Followers returns a copy of the follower ids.
func (m *Meeting) Followers() []uuid.UUID {
	out := make([]uuid.UUID, len(m.followers))
	copy(out, m.followers)
	return out
}

// Version returns the entity version for optimistic locking.
func (m *Meeting) Version() int64       { return m.version }
func (m *Meeting) CreatedAt() time.Time { return m.createdAt }
func (m *Meeting) UpdatedAt() time.Time { return m.updatedAt }

// IsOwnedBy reports whether userID created the meeting.
func (m *Meeting) IsOwnedBy(userID uuid.UUID) bool { return m.ownerID == userID }

// HasFollower reports whether userID joined the meeting.
func (m *Meeting) HasFollower(userID uuid.UUID) bool {
	for _, f := range m.followers {
		if f == userID {
			return true
		}
	}
	return false
}

// IsPast reports whether a dated meeting already started.
func (m *Meeting) IsPast(now time.Time) bool {
	return m.meetingAt != nil && m.meetingAt.Before(now)
}

// Reschedule changes the place and time. Owner and followers are kept.
func (m *Meeting) Reschedule(address Address, meetingAt *time.Time) error {
	if err := address.Validate(); err != nil {
		return err
	}
	address.Name = strings.TrimSpace(address.Name)
	m.address = address
	m.meetingAt = utcPtr(meetingAt)
	m.updatedAt = time.Now().UTC()
	return nil
}

// AddFollower lets userID join.
func (m *Meeting) AddFollower(userID uuid.UUID, now time.Time) error {
	if userID == uuid.Nil {
		return domain.NewValidationError("follower ID is required")
	}
	if m.IsPast(now) {
		return domain.NewInvalidStateError("past", "join")
	}
	if m.IsOwnedBy(userID) {
		return domain.NewConflictError("the owner already takes part in the meeting")
	}
	if m.HasFollower(userID) {
		return domain.NewConflictError("already joined")
	}
	m.followers = append(m.followers, userID)
	m.updatedAt = now.UTC()
	return nil
}

// RemoveFollower lets userID leave.
func (m *Meeting) RemoveFollower(userID uuid.UUID, now time.Time) error {
	for i, f := range m.followers {
		if f == userID {
			m.followers = append(m.followers[:i], m.followers[i+1:]...)
			m.updatedAt = now.UTC()
			return nil
		}
	}
	return domain.NewNotFoundError("Follower", userID.String())
}

// IncrementVersion bumps the version for optimistic locking.
func (m *Meeting) IncrementVersion() {
	m.version++
	m.updatedAt = time.Now().UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
