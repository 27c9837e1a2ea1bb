package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	meetingDomain "github.com/meetpoint/service-meeting/internal/domain/meeting"
	"github.com/meetpoint/service-meeting/internal/platform/domain"
	"github.com/meetpoint/service-meeting/internal/platform/kafka"
	"github.com/meetpoint/service-meeting/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryRepo is an in-memory MeetingRepository.
type memoryRepo struct {
	mu       sync.Mutex
	meetings map[uuid.UUID]*meetingDomain.Meeting
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{meetings: map[uuid.UUID]*meetingDomain.Meeting{}}
}

func (r *memoryRepo) FindByID(_ context.Context, id uuid.UUID) (*meetingDomain.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[id]
	if !ok {
		return nil, domain.NewNotFoundError("Meeting", id.String())
	}
	return m, nil
}

func (r *memoryRepo) participants(userID uuid.UUID) []*meetingDomain.Meeting {
	var out []*meetingDomain.Meeting
	for _, m := range r.meetings {
		if m.IsOwnedBy(userID) || m.HasFollower(userID) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out
}

func (r *memoryRepo) FindByParticipant(_ context.Context, userID uuid.UUID, page, limit int) ([]*meetingDomain.Meeting, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.participants(userID)
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (r *memoryRepo) FindByParticipantInWindow(_ context.Context, userID uuid.UUID, w meetingDomain.Window) ([]*meetingDomain.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*meetingDomain.Meeting
	for _, m := range r.participants(userID) {
		if at := m.MeetingAt(); at != nil && w.Contains(*at) {
			out = append(out, m)
		}
	}
	return out, nil
}

func inWindow(m *meetingDomain.Meeting, w *meetingDomain.Window) bool {
	if w == nil {
		return true
	}
	at := m.MeetingAt()
	return at != nil && w.Contains(*at)
}

func (r *memoryRepo) FindNear(_ context.Context, center geo.Coordinate, radius float64, w *meetingDomain.Window) ([]*meetingDomain.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*meetingDomain.Meeting
	for _, m := range r.meetings {
		if geo.Distance(center, m.Address().Point) <= radius && inWindow(m, w) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryRepo) FindWithinBounds(_ context.Context, b geo.Bounds, w *meetingDomain.Window) ([]*meetingDomain.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*meetingDomain.Meeting
	for _, m := range r.meetings {
		if b.Contains(m.Address().Point) && inWindow(m, w) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryRepo) Save(_ context.Context, m *meetingDomain.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meetings[m.ID()] = m
	return nil
}

func (r *memoryRepo) Update(_ context.Context, m *meetingDomain.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meetings[m.ID()]; !ok {
		return domain.NewNotFoundError("Meeting", m.ID().String())
	}
	r.meetings[m.ID()] = m
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.meetings, id)
	return nil
}

func (r *memoryRepo) DeleteByOwner(_ context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id, m := range r.meetings {
		if m.IsOwnedBy(ownerID) {
			ids = append(ids, id)
			delete(r.meetings, id)
		}
	}
	return ids, nil
}

func (r *memoryRepo) RemoveFollowerEverywhere(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.meetings {
		if m.HasFollower(userID) {
			_ = m.RemoveFollower(userID, time.Now())
			n++
		}
	}
	return n, nil
}

type publishedEvent struct {
	topic string
	key   string
	event *kafka.CloudEvent
}

type recordingPublisher struct {
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishEventWithKey(_ context.Context, topic, key string, event *kafka.CloudEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{topic: topic, key: key, event: event})
	return nil
}

func (p *recordingPublisher) types() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.event.Type
	}
	return out
}

var (
	redSquare = geo.NewCoordinate(37.6208, 55.7539)
	// about 500 m east of redSquare
	nearRedSquare = geo.NewCoordinate(37.6288, 55.7539)
	// about 3 km away
	gorkyPark = geo.NewCoordinate(37.6036, 55.7298)
)

func newTestService() (*MeetingService, *memoryRepo, *recordingPublisher) {
	repo := newMemoryRepo()
	pub := &recordingPublisher{}
	svc := NewMeetingService(repo, pub, zap.NewNop())
	return svc, repo, pub
}

func request(name string, p geo.Coordinate, at *time.Time) MeetingRequest {
	return MeetingRequest{Address: meetingDomain.Address{Name: name, Point: p}, MeetingDateTime: at}
}

func mustCreate(t *testing.T, svc *MeetingService, owner uuid.UUID, req MeetingRequest) uuid.UUID {
	t.Helper()
	res, err := svc.CreateMeeting(context.Background(), owner, req)
	require.NoError(t, err)
	require.True(t, res.Created(), "unexpected near meetings: %v", res.NearMeetings)
	return *res.ID
}

func TestCreateMeeting_Stores(t *testing.T) {
	svc, repo, pub := newTestService()
	owner := uuid.New()

	id := mustCreate(t, svc, owner, request("Red Square", redSquare, nil))

	stored, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, stored.IsOwnedBy(owner))

	require.Len(t, pub.events, 1)
	assert.Equal(t, meetingDomain.TopicMeetingEvents, pub.events[0].topic)
	assert.Equal(t, id.String(), pub.events[0].key)
	assert.Equal(t, meetingDomain.EventCreated, pub.events[0].event.Type)
}

func TestCreateMeeting_ReturnsNearMeetingsInsteadOfCreating(t *testing.T) {
	svc, repo, pub := newTestService()
	existing := mustCreate(t, svc, uuid.New(), request("Red Square", redSquare, nil))

	res, err := svc.CreateMeeting(context.Background(), uuid.New(), request("GUM", nearRedSquare, nil))
	require.NoError(t, err)

	assert.False(t, res.Created())
	require.Len(t, res.NearMeetings, 1)
	assert.Equal(t, existing, res.NearMeetings[0].ID)
	assert.Len(t, repo.meetings, 1)
	assert.Len(t, pub.events, 1)
}

func TestCreateMeeting_SameDayRule(t *testing.T) {
	svc, _, _ := newTestService()
	day := time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC)
	mustCreate(t, svc, uuid.New(), request("Red Square", redSquare, &day))

	nextDay := day.Add(24 * time.Hour)
	mustCreate(t, svc, uuid.New(), request("GUM", nearRedSquare, &nextDay))

	sameDay := day.Add(6 * time.Hour)
	res, err := svc.CreateMeeting(context.Background(), uuid.New(), request("GUM", nearRedSquare, &sameDay))
	require.NoError(t, err)
	assert.False(t, res.Created())

	mustCreate(t, svc, uuid.New(), request("Gorky Park", gorkyPark, &sameDay))
}

func TestCreateMeeting_Validation(t *testing.T) {
	svc, _, pub := newTestService()

	_, err := svc.CreateMeeting(context.Background(), uuid.New(), request("", redSquare, nil))
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Empty(t, pub.events)
}

func TestCreateMeeting_PublishFailureIsNotReturned(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewMeetingService(repo, &recordingPublisher{err: errors.New("broker down")}, zap.NewNop())

	res, err := svc.CreateMeeting(context.Background(), uuid.New(), request("Red Square", redSquare, nil))
	require.NoError(t, err)
	assert.True(t, res.Created())
	assert.Len(t, repo.meetings, 1)
}

func TestUpdateMeeting(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestService()
	owner := uuid.New()
	id := mustCreate(t, svc, owner, request("Red Square", redSquare, nil))
	other := mustCreate(t, svc, uuid.New(), request("Gorky Park", gorkyPark, nil))

	t.Run("not found", func(t *testing.T) {
		_, err := svc.UpdateMeeting(ctx, owner, uuid.New(), request("x", redSquare, nil))
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("not owner", func(t *testing.T) {
		_, err := svc.UpdateMeeting(ctx, uuid.New(), id, request("x", redSquare, nil))
		assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	})

	t.Run("moving next to its own position is fine", func(t *testing.T) {
		dto, err := svc.UpdateMeeting(ctx, owner, id, request("GUM", nearRedSquare, nil))
		require.NoError(t, err)
		assert.Equal(t, "GUM", dto.Address.Name)
		assert.Equal(t, int64(2), dto.Version)
		assert.Equal(t, meetingDomain.EventUpdated, pub.events[len(pub.events)-1].event.Type)
	})

	t.Run("conflict with another meeting", func(t *testing.T) {
		_, err := svc.UpdateMeeting(ctx, owner, id, request("Gorky Park", gorkyPark, nil))
		require.True(t, domain.IsConflict(err))

		var de *domain.Error
		require.ErrorAs(t, err, &de)
		near, ok := de.Details.([]MeetingDTO)
		require.True(t, ok)
		require.Len(t, near, 1)
		assert.Equal(t, other, near[0].ID)
	})

	t.Run("invalid address", func(t *testing.T) {
		_, err := svc.UpdateMeeting(ctx, owner, id, request("x", geo.NewCoordinate(500, 0), nil))
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})
}

func TestDeleteMeeting(t *testing.T) {
	ctx := context.Background()
	svc, repo, pub := newTestService()
	owner := uuid.New()
	id := mustCreate(t, svc, owner, request("Red Square", redSquare, nil))

	err := svc.DeleteMeeting(ctx, uuid.New(), id)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))

	require.NoError(t, svc.DeleteMeeting(ctx, owner, id))
	assert.Empty(t, repo.meetings)
	assert.Equal(t, []string{meetingDomain.EventCreated, meetingDomain.EventDeleted}, pub.types())

	_, err = svc.GetMeeting(ctx, id)
	assert.True(t, domain.IsNotFound(err))
}

func TestNearMeetings(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	day := time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC)
	mustCreate(t, svc, uuid.New(), request("Red Square", redSquare, &day))
	mustCreate(t, svc, uuid.New(), request("Gorky Park", gorkyPark, nil))
	mustCreate(t, svc, uuid.New(), request("Far away", geo.NewCoordinate(30.3, 59.9), nil))

	all, err := svc.NearMeetings(ctx, redSquare, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onDay, err := svc.NearMeetings(ctx, redSquare, &day)
	require.NoError(t, err)
	require.Len(t, onDay, 1)
	assert.Equal(t, "Red Square", onDay[0].Address.Name)

	_, err = svc.NearMeetings(ctx, geo.NewCoordinate(0, 100), nil)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestMeetingsInBounds(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	evening := time.Date(2026, 10, 20, 22, 0, 0, 0, time.UTC)
	mustCreate(t, svc, uuid.New(), request("Red Square", redSquare, &evening))
	mustCreate(t, svc, uuid.New(), request("Gorky Park", gorkyPark, nil))

	viewport := geo.Bounds{
		UpperLeft:  geo.NewCoordinate(37.5, 55.8),
		LowerRight: geo.NewCoordinate(37.7, 55.7),
	}

	all, err := svc.MeetingsInBounds(ctx, viewport, nil, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	nextDay := time.Date(2026, 10, 21, 10, 0, 0, 0, time.UTC)
	utc, err := svc.MeetingsInBounds(ctx, viewport, &nextDay, 0)
	require.NoError(t, err)
	assert.Empty(t, utc)

	// The 21st starting at 21:00 UTC on the 20th.
	shifted, err := svc.MeetingsInBounds(ctx, viewport, &nextDay, -180)
	require.NoError(t, err)
	assert.Len(t, shifted, 1)

	inverted := geo.Bounds{UpperLeft: viewport.LowerRight, LowerRight: viewport.UpperLeft}
	_, err = svc.MeetingsInBounds(ctx, inverted, nil, 0)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestJoinAndLeaveMeeting(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestService()
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	at := time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC)
	owner, guest := uuid.New(), uuid.New()
	id := mustCreate(t, svc, owner, request("Red Square", redSquare, &at))

	dto, err := svc.JoinMeeting(ctx, guest, id)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{guest}, dto.Followers)

	_, err = svc.JoinMeeting(ctx, guest, id)
	assert.True(t, domain.IsConflict(err), "already joined")

	sameDay := at.Add(3 * time.Hour)
	other := mustCreate(t, svc, uuid.New(), request("Gorky Park", gorkyPark, &sameDay))
	_, err = svc.JoinMeeting(ctx, guest, other)
	assert.True(t, domain.IsConflict(err), "busy that day")

	mine, err := svc.ListMyMeetings(ctx, guest, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine.Total)

	dto, err = svc.LeaveMeeting(ctx, guest, id)
	require.NoError(t, err)
	assert.Empty(t, dto.Followers)

	_, err = svc.LeaveMeeting(ctx, guest, id)
	assert.True(t, domain.IsNotFound(err))

	assert.Contains(t, pub.types(), meetingDomain.EventJoined)
	assert.Contains(t, pub.types(), meetingDomain.EventLeft)
}

func TestPurgeUser(t *testing.T) {
	ctx := context.Background()
	svc, repo, pub := newTestService()
	gone, other := uuid.New(), uuid.New()
	mustCreate(t, svc, gone, request("Red Square", redSquare, nil))
	kept := mustCreate(t, svc, other, request("Gorky Park", gorkyPark, nil))
	_, err := svc.JoinMeeting(ctx, gone, kept)
	require.NoError(t, err)

	require.NoError(t, svc.PurgeUser(ctx, gone))

	assert.Len(t, repo.meetings, 1)
	m, err := repo.FindByID(ctx, kept)
	require.NoError(t, err)
	assert.False(t, m.HasFollower(gone))
	assert.Equal(t, meetingDomain.EventDeleted, pub.events[len(pub.events)-1].event.Type)
}
