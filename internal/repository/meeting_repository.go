package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	meetingDomain "github.com/meetpoint/service-meeting/internal/domain/meeting"
	"github.com/meetpoint/service-meeting/internal/platform/domain"
	"github.com/meetpoint/service-meeting/pkg/geo"
	"gorm.io/gorm"
)

// MeetingModel is the GORM model for the meetings table.
type MeetingModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID       `gorm:"type:uuid;index;not null"`
	Followers   json.RawMessage `gorm:"type:jsonb;not null;default:'[]'"`
	AddressName string          `gorm:"not null;size:500"`
	Lng         float64         `gorm:"not null;index:idx_meetings_location,priority:1"`
	Lat         float64         `gorm:"not null;index:idx_meetings_location,priority:2"`
	MeetingAt   *time.Time      `gorm:"index"`
	Version     int64           `gorm:"not null;default:1"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (MeetingModel) TableName() string {
	return "meetings"
}

// GormMeetingRepository is the GORM-based implementation of MeetingRepository.
type GormMeetingRepository struct {
	db *gorm.DB
}

// NewGormMeetingRepository creates a new GormMeetingRepository.
func NewGormMeetingRepository(db *gorm.DB) *GormMeetingRepository {
	return &GormMeetingRepository{db: db}
}

// FindByID retrieves a meeting by its unique identifier.
func (r *GormMeetingRepository) FindByID(ctx context.Context, id uuid.UUID) (*meetingDomain.Meeting, error) {
	var model MeetingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Meeting", id.String())
		}
		return nil, fmt.Errorf("failed to find meeting by ID: %w", err)
	}
	return toDomainMeeting(&model)
}

func (r *GormMeetingRepository) participantScope(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(owner_id = ? OR followers @> ?::jsonb)", userID, followerFilter(userID))
	}
}

// FindByParticipant retrieves meetings the user owns or follows with pagination.
func (r *GormMeetingRepository) FindByParticipant(ctx context.Context, userID uuid.UUID, page, limit int) ([]*meetingDomain.Meeting, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&MeetingModel{}).
		Scopes(r.participantScope(userID)).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count user meetings: %w", err)
	}

	var models []MeetingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Scopes(r.participantScope(userID)).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find user meetings: %w", err)
	}

	meetings, err := toDomainMeetings(models)
	if err != nil {
		return nil, 0, err
	}
	return meetings, total, nil
}

// FindByParticipantInWindow retrieves the user's meetings scheduled inside window.
func (r *GormMeetingRepository) FindByParticipantInWindow(ctx context.Context, userID uuid.UUID, window meetingDomain.Window) ([]*meetingDomain.Meeting, error) {
	var models []MeetingModel
	if err := r.db.WithContext(ctx).
		Scopes(r.participantScope(userID), windowScope(&window)).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find user meetings in window: %w", err)
	}
	return toDomainMeetings(models)
}

// FindNear narrows candidates with a bounding box on the location index and
// keeps those within radiusMeters by great-circle distance.
func (r *GormMeetingRepository) FindNear(ctx context.Context, center geo.Coordinate, radiusMeters float64, window *meetingDomain.Window) ([]*meetingDomain.Meeting, error) {
	candidates, err := r.FindWithinBounds(ctx, geo.BoundsAround(center, radiusMeters), window)
	if err != nil {
		return nil, err
	}

	near := candidates[:0]
	for _, m := range candidates {
		if geo.Distance(center, m.Address().Point) <= radiusMeters {
			near = append(near, m)
		}
	}
	return near, nil
}

// FindWithinBounds retrieves meetings inside a rectangular viewport.
func (r *GormMeetingRepository) FindWithinBounds(ctx context.Context, bounds geo.Bounds, window *meetingDomain.Window) ([]*meetingDomain.Meeting, error) {
	var models []MeetingModel
	if err := r.db.WithContext(ctx).
		Where("lng BETWEEN ? AND ?", bounds.UpperLeft.Lng(), bounds.LowerRight.Lng()).
		Where("lat BETWEEN ? AND ?", bounds.LowerRight.Lat(), bounds.UpperLeft.Lat()).
		Scopes(windowScope(window)).
		Order("meeting_at ASC NULLS LAST").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find meetings within bounds: %w", err)
	}
	return toDomainMeetings(models)
}

// Save persists a new meeting.
func (r *GormMeetingRepository) Save(ctx context.Context, m *meetingDomain.Meeting) error {
	model, err := toMeetingModel(m)
	if err != nil {
		return fmt.Errorf("failed to convert meeting to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save meeting: %w", err)
	}
	return nil
}

// Update persists changes to an existing meeting with optimistic locking.
func (r *GormMeetingRepository) Update(ctx context.Context, m *meetingDomain.Meeting) error {
	model, err := toMeetingModel(m)
	if err != nil {
		return fmt.Errorf("failed to convert meeting to model: %w", err)
	}

	// IncrementVersion has already been called on the aggregate.
	expectedVersion := m.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&MeetingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"followers":    model.Followers,
			"address_name": model.AddressName,
			"lng":          model.Lng,
			"lat":          model.Lat,
			"meeting_at":   model.MeetingAt,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update meeting: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("meeting was modified by another transaction")
	}

	return nil
}

// Delete removes a meeting.
func (r *GormMeetingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&MeetingModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete meeting: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Meeting", id.String())
	}
	return nil
}

// DeleteByOwner removes every meeting owned by ownerID and returns their ids.
func (r *GormMeetingRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&MeetingModel{}).Where("owner_id = ?", ownerID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Where("id IN ?", ids).Delete(&MeetingModel{}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete meetings by owner: %w", err)
	}
	return ids, nil
}

// RemoveFollowerEverywhere drops userID from every follower list.
func (r *GormMeetingRepository) RemoveFollowerEverywhere(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&MeetingModel{}).
		Where("followers @> ?::jsonb", followerFilter(userID)).
		Updates(map[string]interface{}{
			"followers":  gorm.Expr("followers - ?::text", userID.String()),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to remove follower: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func windowScope(window *meetingDomain.Window) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if window == nil {
			return db
		}
		return db.Where("meeting_at >= ? AND meeting_at < ?", window.From, window.To)
	}
}

func followerFilter(userID uuid.UUID) string {
	return `["` + userID.String() + `"]`
}

// --- Conversion Helpers ---

func toMeetingModel(m *meetingDomain.Meeting) (*MeetingModel, error) {
	followersJSON, err := json.Marshal(m.Followers())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal followers: %w", err)
	}

	address := m.Address()
	return &MeetingModel{
		ID:          m.ID(),
		OwnerID:     m.OwnerID(),
		Followers:   followersJSON,
		AddressName: address.Name,
		Lng:         address.Point.Lng(),
		Lat:         address.Point.Lat(),
		MeetingAt:   m.MeetingAt(),
		Version:     m.Version(),
		CreatedAt:   m.CreatedAt(),
		UpdatedAt:   m.UpdatedAt(),
	}, nil
}

func toDomainMeeting(model *MeetingModel) (*meetingDomain.Meeting, error) {
	var followers []uuid.UUID
	if len(model.Followers) > 0 {
		if err := json.Unmarshal(model.Followers, &followers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal followers: %w", err)
		}
	}

	var meetingAt *time.Time
	if model.MeetingAt != nil {
		t := model.MeetingAt.UTC()
		meetingAt = &t
	}

	return meetingDomain.Reconstruct(
		model.ID,
		model.OwnerID,
		followers,
		meetingDomain.Address{
			Name:  model.AddressName,
			Point: geo.NewCoordinate(model.Lng, model.Lat),
		},
		meetingAt,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	), nil
}

func toDomainMeetings(models []MeetingModel) ([]*meetingDomain.Meeting, error) {
	meetings := make([]*meetingDomain.Meeting, len(models))
	for i := range models {
		m, err := toDomainMeeting(&models[i])
		if err != nil {
			return nil, err
		}
		meetings[i] = m
	}
	return meetings, nil
}
