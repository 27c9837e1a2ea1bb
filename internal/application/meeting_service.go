package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	meetingDomain "github.com/meetpoint/service-meeting/internal/domain/meeting"
	"github.com/meetpoint/service-meeting/internal/platform/domain"
	"github.com/meetpoint/service-meeting/internal/platform/kafka"
	"github.com/meetpoint/service-meeting/pkg/geo"
	"go.uber.org/zap"
)

const serviceName = "service-meeting"

// MeetingRequest holds the data needed to create or reschedule a meeting.
type MeetingRequest struct {
	Address         meetingDomain.Address `json:"address" binding:"required"`
	MeetingDateTime *time.Time            `json:"meeting_date_time"`
}

// MeetingDTO is the response representation of a meeting.
type MeetingDTO struct {
	ID              uuid.UUID             `json:"id"`
	OwnerID         uuid.UUID             `json:"owner_id"`
	Followers       []uuid.UUID           `json:"followers"`
	Address         meetingDomain.Address `json:"address"`
	MeetingDateTime *time.Time            `json:"meeting_date_time,omitempty"`
	Version         int64                 `json:"version"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// CreateMeetingResult answers a create request. When NearMeetings is not
// empty nothing was created and ID is nil.
type CreateMeetingResult struct {
	ID           *uuid.UUID   `json:"id"`
	NearMeetings []MeetingDTO `json:"near_meetings"`
}

// Created reports whether a meeting was stored.
func (r *CreateMeetingResult) Created() bool { return r.ID != nil }

// EventPublisher is the outbound side of the event bus.
type EventPublisher interface {
	PublishEventWithKey(ctx context.Context, topic, key string, event *kafka.CloudEvent) error
}

// MeetingService is the application service orchestrating meeting use cases.
type MeetingService struct {
	repo      meetingDomain.MeetingRepository
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewMeetingService creates a new MeetingService.
func NewMeetingService(
	repo meetingDomain.MeetingRepository,
	publisher EventPublisher,
	logger *zap.Logger,
) *MeetingService {
	return &MeetingService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateMeeting stores a new meeting unless another one is already planned
// within ConflictRadiusMeters (on the same day when a date is given). In that
// case the nearby meetings are returned and nothing is created.
func (s *MeetingService) CreateMeeting(ctx context.Context, ownerID uuid.UUID, req MeetingRequest) (*CreateMeetingResult, error) {
	m, err := meetingDomain.NewMeeting(ownerID, req.Address, req.MeetingDateTime)
	if err != nil {
		return nil, err
	}

	near, err := s.findConflicts(ctx, m.Address().Point, m.MeetingAt(), uuid.Nil)
	if err != nil {
		return nil, err
	}
	if len(near) > 0 {
		s.logger.Info("meeting not created, nearby meetings exist",
			zap.String("owner_id", ownerID.String()),
			zap.Int("near", len(near)),
		)
		return &CreateMeetingResult{NearMeetings: toMeetingDTOs(near)}, nil
	}

	if err := s.repo.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save meeting: %w", err)
	}

	s.publishScheduled(ctx, meetingDomain.EventCreated, m)

	id := m.ID()
	return &CreateMeetingResult{ID: &id, NearMeetings: []MeetingDTO{}}, nil
}

// UpdateMeeting moves a meeting to a new place and time. Only the owner may
// do it, and the new slot must not clash with another meeting.
func (s *MeetingService) UpdateMeeting(ctx context.Context, userID, meetingID uuid.UUID, req MeetingRequest) (*MeetingDTO, error) {
	m, err := s.repo.FindByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !m.IsOwnedBy(userID) {
		return nil, domain.NewForbiddenError("only the owner can change a meeting")
	}
	if err := req.Address.Validate(); err != nil {
		return nil, err
	}

	near, err := s.findConflicts(ctx, req.Address.Point, req.MeetingDateTime, m.ID())
	if err != nil {
		return nil, err
	}
	if len(near) > 0 {
		return nil, domain.NewConflictError("another meeting is already planned at this place and time").
			WithDetails(toMeetingDTOs(near))
	}

	if err := m.Reschedule(req.Address, req.MeetingDateTime); err != nil {
		return nil, err
	}

	m.IncrementVersion()
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}

	s.publishScheduled(ctx, meetingDomain.EventUpdated, m)

	result := toMeetingDTO(m)
	return &result, nil
}

// DeleteMeeting removes a meeting owned by userID.
func (s *MeetingService) DeleteMeeting(ctx context.Context, userID, meetingID uuid.UUID) error {
	m, err := s.repo.FindByID(ctx, meetingID)
	if err != nil {
		return err
	}
	if !m.IsOwnedBy(userID) {
		return domain.NewForbiddenError("only the owner can delete a meeting")
	}

	if err := s.repo.Delete(ctx, m.ID()); err != nil {
		return err
	}

	s.publishDeleted(ctx, m.ID(), m.OwnerID(), m.Followers())
	return nil
}

// GetMeeting returns a single meeting.
func (s *MeetingService) GetMeeting(ctx context.Context, meetingID uuid.UUID) (*MeetingDTO, error) {
	m, err := s.repo.FindByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	result := toMeetingDTO(m)
	return &result, nil
}

// ListMyMeetings returns the meetings userID owns or follows.
func (s *MeetingService) ListMyMeetings(ctx context.Context, userID uuid.UUID, page, limit int) (*domain.PaginatedResult[MeetingDTO], error) {
	meetings, total, err := s.repo.FindByParticipant(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}
	return domain.NewPaginatedResult(toMeetingDTOs(meetings), total, page, limit), nil
}

// NearMeetings returns meetings within NearRadiusMeters of point, restricted
// to the UTC day of date when given.
func (s *MeetingService) NearMeetings(ctx context.Context, point geo.Coordinate, date *time.Time) ([]MeetingDTO, error) {
	if !point.Valid() {
		return nil, domain.NewValidationError("point must be a valid [lng, lat] coordinate")
	}
	meetings, err := s.repo.FindNear(ctx, point, meetingDomain.NearRadiusMeters, dayOf(date, 0))
	if err != nil {
		return nil, err
	}
	return toMeetingDTOs(meetings), nil
}

// MeetingsInBounds returns meetings inside a viewport. When date is given the
// result is restricted to that day, shifted by tzOffsetMinutes.
func (s *MeetingService) MeetingsInBounds(ctx context.Context, bounds geo.Bounds, date *time.Time, tzOffsetMinutes int) ([]MeetingDTO, error) {
	if !bounds.UpperLeft.Valid() || !bounds.LowerRight.Valid() {
		return nil, domain.NewValidationError("bounds must be valid coordinates")
	}
	if bounds.UpperLeft.Lng() > bounds.LowerRight.Lng() || bounds.UpperLeft.Lat() < bounds.LowerRight.Lat() {
		return nil, domain.NewValidationError("bounds must be [[upper-left], [lower-right]]")
	}
	meetings, err := s.repo.FindWithinBounds(ctx, bounds, dayOf(date, tzOffsetMinutes))
	if err != nil {
		return nil, err
	}
	return toMeetingDTOs(meetings), nil
}

// JoinMeeting adds userID to the followers. A user cannot take part in two
// dated meetings on the same day.
func (s *MeetingService) JoinMeeting(ctx context.Context, userID, meetingID uuid.UUID) (*MeetingDTO, error) {
	m, err := s.repo.FindByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	if at := m.MeetingAt(); at != nil {
		busy, err := s.repo.FindByParticipantInWindow(ctx, userID, meetingDomain.DayWindow(*at, 0))
		if err != nil {
			return nil, err
		}
		for _, other := range busy {
			if other.ID() != m.ID() {
				return nil, domain.NewConflictError("you already take part in another meeting that day")
			}
		}
	}

	if err := m.AddFollower(userID, s.now()); err != nil {
		return nil, err
	}

	m.IncrementVersion()
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}

	s.publishFollower(ctx, meetingDomain.EventJoined, m, userID)

	result := toMeetingDTO(m)
	return &result, nil
}

// LeaveMeeting removes userID from the followers.
func (s *MeetingService) LeaveMeeting(ctx context.Context, userID, meetingID uuid.UUID) (*MeetingDTO, error) {
	m, err := s.repo.FindByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	if err := m.RemoveFollower(userID, s.now()); err != nil {
		return nil, err
	}

	m.IncrementVersion()
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}

	s.publishFollower(ctx, meetingDomain.EventLeft, m, userID)

	result := toMeetingDTO(m)
	return &result, nil
}

// PurgeUser deletes the meetings a removed account owned and drops it from
// every follower list.
func (s *MeetingService) PurgeUser(ctx context.Context, userID uuid.UUID) error {
	deleted, err := s.repo.DeleteByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to delete meetings of user %s: %w", userID, err)
	}
	for _, id := range deleted {
		s.publishDeleted(ctx, id, userID, nil)
	}

	left, err := s.repo.RemoveFollowerEverywhere(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to remove follower %s: %w", userID, err)
	}

	s.logger.Info("user purged from meetings",
		zap.String("user_id", userID.String()),
		zap.Int("deleted", len(deleted)),
		zap.Int64("left", left),
	)
	return nil
}

func (s *MeetingService) findConflicts(ctx context.Context, point geo.Coordinate, at *time.Time, exclude uuid.UUID) ([]*meetingDomain.Meeting, error) {
	near, err := s.repo.FindNear(ctx, point, meetingDomain.ConflictRadiusMeters, dayOf(at, 0))
	if err != nil {
		return nil, err
	}
	out := near[:0]
	for _, m := range near {
		if m.ID() != exclude {
			out = append(out, m)
		}
	}
	return out, nil
}

func dayOf(at *time.Time, offsetMinutes int) *meetingDomain.Window {
	if at == nil {
		return nil
	}
	w := meetingDomain.DayWindow(*at, offsetMinutes)
	return &w
}

func toMeetingDTO(m *meetingDomain.Meeting) MeetingDTO {
	return MeetingDTO{
		ID:              m.ID(),
		OwnerID:         m.OwnerID(),
		Followers:       m.Followers(),
		Address:         m.Address(),
		MeetingDateTime: m.MeetingAt(),
		Version:         m.Version(),
		CreatedAt:       m.CreatedAt(),
		UpdatedAt:       m.UpdatedAt(),
	}
}

func toMeetingDTOs(meetings []*meetingDomain.Meeting) []MeetingDTO {
	out := make([]MeetingDTO, len(meetings))
	for i, m := range meetings {
		out[i] = toMeetingDTO(m)
	}
	return out
}

func (s *MeetingService) publishScheduled(ctx context.Context, eventType string, m *meetingDomain.Meeting) {
	evt := meetingDomain.ScheduledEvent{
		MeetingID:  m.ID(),
		OwnerID:    m.OwnerID(),
		Address:    m.Address(),
		MeetingAt:  m.MeetingAt(),
		Version:    m.Version(),
		OccurredAt: s.now().UTC(),
	}
	s.publishEvent(ctx, eventType, m.ID().String(), evt)
}

func (s *MeetingService) publishDeleted(ctx context.Context, id, ownerID uuid.UUID, followers []uuid.UUID) {
	if followers == nil {
		followers = []uuid.UUID{}
	}
	evt := meetingDomain.DeletedEvent{
		MeetingID:  id,
		OwnerID:    ownerID,
		Followers:  followers,
		OccurredAt: s.now().UTC(),
	}
	s.publishEvent(ctx, meetingDomain.EventDeleted, id.String(), evt)
}

func (s *MeetingService) publishFollower(ctx context.Context, eventType string, m *meetingDomain.Meeting, userID uuid.UUID) {
	evt := meetingDomain.FollowerEvent{
		MeetingID:  m.ID(),
		OwnerID:    m.OwnerID(),
		UserID:     userID,
		OccurredAt: s.now().UTC(),
	}
	s.publishEvent(ctx, eventType, m.ID().String(), evt)
}

func (s *MeetingService) publishEvent(ctx context.Context, eventType, key string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(serviceName, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.publisher.PublishEventWithKey(ctx, meetingDomain.TopicMeetingEvents, key, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", meetingDomain.TopicMeetingEvents),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
