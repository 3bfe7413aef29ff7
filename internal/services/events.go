package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/contentdeck/apiserver/internal/mq"
)

const (
	EventUserRegistered = "user.registered"

	actionCreated = "created"
	actionUpdated = "updated"
	actionDeleted = "deleted"

	publishTimeout = 5 * time.Second
)

// Event is the JSON body of every domain event.
type Event struct {
	Type       string    `json:"type"`
	UserID     int       `json:"user_id"`
	ItemID     int       `json:"item_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher announces committed mutations. Implementations must not
// block the caller on broker failures.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// Events publishes to a broker channel. A nil queue drops events.
type Events struct {
	queue   *mq.MQ
	channel string
	logger  *zap.Logger
	now     func() time.Time
}

func NewEvents(queue *mq.MQ, channel string, logger *zap.Logger) *Events {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Events{queue: queue, channel: channel, logger: logger, now: time.Now}
}

// Publish sends event best-effort. It outlives request cancellation but is
// bounded by publishTimeout; failures are logged only.
func (e *Events) Publish(ctx context.Context, event Event) {
	if e == nil || e.queue == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	id, err := e.queue.PublishJSON(ctx, e.channel, event.Type, event)
	if err != nil {
		e.logger.Warn("publish event failed",
			zap.String("type", event.Type),
			zap.Int("user_id", event.UserID),
			zap.Error(err),
		)
		return
	}
	e.logger.Debug("event published", zap.String("type", event.Type), zap.String("message_id", id))
}

type noEvents struct{}

func (noEvents) Publish(context.Context, Event) {}

func eventsOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return noEvents{}
	}
	return p
}
