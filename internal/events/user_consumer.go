// Package events consumes the events other services publish about meeting
// participants.
package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/meetpoint/service-meeting/internal/platform/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	// TopicUserEvents is where the account service announces user lifecycle changes.
	TopicUserEvents = "user.events"
	// UserDeleted is the CloudEvent type of an account removal.
	UserDeleted = "user.deleted"
)

// UserDeletedEvent is the payload of a UserDeleted event.
type UserDeletedEvent struct {
	UserID uuid.UUID `json:"user_id"`
}

// UserPurger removes everything a user has in meetings.
type UserPurger interface {
	PurgeUser(ctx context.Context, userID uuid.UUID) error
}

// UserEventConsumer listens to user events and drops deleted users from meetings.
type UserEventConsumer struct {
	consumer *kafka.Consumer
	purger   UserPurger
	logger   *zap.Logger
}

// NewUserEventConsumer creates a UserEventConsumer reading TopicUserEvents.
func NewUserEventConsumer(
	brokers []string,
	groupID string,
	purger UserPurger,
	logger *zap.Logger,
) *UserEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicUserEvents, logger)
	return NewUserEventConsumerWithConsumer(consumer, purger, logger)
}

// NewUserEventConsumerWithConsumer wires an existing kafka consumer.
func NewUserEventConsumerWithConsumer(consumer *kafka.Consumer, purger UserPurger, logger *zap.Logger) *UserEventConsumer {
	return &UserEventConsumer{
		consumer: consumer,
		purger:   purger,
		logger:   logger,
	}
}

// Start begins consuming user events. This blocks until the context is cancelled.
func (c *UserEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *UserEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *UserEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from user topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // malformed messages are skipped, not retried
	}

	switch cloudEvent.Type {
	case UserDeleted:
		return c.handleUserDeleted(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled user event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *UserEventConsumer) handleUserDeleted(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt UserDeletedEvent
	if err := cloudEvent.ParseData(&evt); err != nil || evt.UserID == uuid.Nil {
		c.logger.Error("invalid user.deleted payload",
			zap.String("event_id", cloudEvent.ID),
			zap.Error(err),
		)
		return nil
	}

	if err := c.purger.PurgeUser(ctx, evt.UserID); err != nil {
		c.logger.Error("failed to purge deleted user from meetings",
			zap.String("user_id", evt.UserID.String()),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("deleted user purged from meetings",
		zap.String("user_id", evt.UserID.String()),
	)
	return nil
}
