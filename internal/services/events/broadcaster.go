package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeRequestQueued  EventType = "request.queued"
	EventTypeCombatResolved EventType = "combat.resolved"
	EventTypeCombatFailed   EventType = "combat.failed"
)

// Event represents a generic event structure
type Event struct {
	Type       EventType      `json:"type"`
	RequestID  string         `json:"request_id,omitempty"`
	AttackerID int            `json:"attacker_id"`
	Data       map[string]any `json:"data,omitempty"`
}

// Broadcaster publishes combat events to Redis Pub/Sub, one channel per attacker
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Channel returns the pub/sub channel for an attacker
func Channel(attackerID int) string {
	return fmt.Sprintf("combat-events:%d", attackerID)
}

// PublishRequestQueued publishes a request.queued event
func (b *Broadcaster) PublishRequestQueued(ctx context.Context, requestID string, req combat.Request) error {
	return b.publish(ctx, Event{
		Type:       EventTypeRequestQueued,
		RequestID:  requestID,
		AttackerID: req.AttackerID,
		Data: map[string]any{
			"status":    "queued",
			"target_id": req.TargetID,
			"method":    req.Method,
		},
	})
}

// PublishCombatResolved publishes a combat.resolved event
func (b *Broadcaster) PublishCombatResolved(ctx context.Context, requestID string, res *combat.Resolution) error {
	return b.publish(ctx, Event{
		Type:       EventTypeCombatResolved,
		RequestID:  requestID,
		AttackerID: res.AttackerID,
		Data: map[string]any{
			"status":     "resolved",
			"resolution": res,
		},
	})
}

// PublishCombatFailed publishes a combat.failed event
func (b *Broadcaster) PublishCombatFailed(ctx context.Context, requestID string, req combat.Request, errorMsg string) error {
	return b.publish(ctx, Event{
		Type:       EventTypeCombatFailed,
		RequestID:  requestID,
		AttackerID: req.AttackerID,
		Data: map[string]any{
			"status": "failed",
			"error":  errorMsg,
		},
	})
}

func (b *Broadcaster) publish(ctx context.Context, event Event) error {
	channel := Channel(event.AttackerID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event", event)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)
	return nil
}
