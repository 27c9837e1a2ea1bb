package meeting

import (
	"context"

	"github.com/google/uuid"
	"github.com/meetpoint/service-meeting/pkg/geo"
)

// MeetingRepository defines the persistence contract for meeting aggregates.
type MeetingRepository interface {
	// FindByID retrieves a meeting by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Meeting, error)

	// FindByParticipant retrieves meetings the user owns or follows, newest first.
	FindByParticipant(ctx context.Context, userID uuid.UUID, page, limit int) ([]*Meeting, int64, error)

	// FindByParticipantInWindow retrieves the user's meetings scheduled inside window.
	FindByParticipantInWindow(ctx context.Context, userID uuid.UUID, window Window) ([]*Meeting, error)

	// FindNear retrieves meetings within radiusMeters of center. A non-nil
	// window restricts the result to meetings scheduled inside it.
	FindNear(ctx context.Context, center geo.Coordinate, radiusMeters float64, window *Window) ([]*Meeting, error)

	// FindWithinBounds retrieves meetings inside a map viewport.
	FindWithinBounds(ctx context.Context, bounds geo.Bounds, window *Window) ([]*Meeting, error)

	// Save persists a new meeting.
	Save(ctx context.Context, m *Meeting) error

	// Update persists changes to an existing meeting with optimistic locking.
	Update(ctx context.Context, m *Meeting) error

	// Delete removes a meeting.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByOwner removes every meeting owned by ownerID and returns their ids.
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)

	// RemoveFollowerEverywhere drops userID from every follower list.
	RemoveFollowerEverywhere(ctx context.Context, userID uuid.UUID) (int64, error)
}
