package websocket

import (
	"contacts-backend/internal/events"
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

// RedisPublisher fans events out over Redis pub/sub on the tenant's channel.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, event events.Event) error {
	if event.TenantID == "" {
		return fmt.Errorf("websocket publish: tenant id required")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("websocket publish: marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, events.Channel(event.TenantID), payload).Err(); err != nil {
		return fmt.Errorf("websocket publish: redis publish: %w", err)
	}
	return nil
}

// HubPublisher hands events straight to an in-process hub, for a single
// server running without Redis.
type HubPublisher struct {
	hub *Hub
}

func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ctx context.Context, event events.Event) error {
	if event.TenantID == "" {
		return fmt.Errorf("websocket publish: tenant id required")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("websocket publish: marshal event: %w", err)
	}
	return p.hub.Deliver(ctx, events.Channel(event.TenantID), payload)
}

var (
	_ events.Publisher = (*RedisPublisher)(nil)
	_ events.Publisher = (*HubPublisher)(nil)
)
