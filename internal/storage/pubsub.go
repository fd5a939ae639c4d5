package storage

import (
	"context"
	"encoding/json"

	"roomchat/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const roomChannelPrefix = "room:"

// RoomChannel is the redis channel that mirrors a room's broadcasts.
func RoomChannel(room string) string {
	return roomChannelPrefix + models.NormalizeName(room)
}

type roomEvent struct {
	room string
	env  models.Envelope
}

// EventStream mirrors room broadcasts to redis for external listeners.
// Publish never blocks; events are dropped when the buffer is full.
type EventStream struct {
	Redis *redis.Client
	log   *zap.Logger
	queue chan roomEvent
}

func NewEventStream(rdb *redis.Client, log *zap.Logger, buffer int) *EventStream {
	return &EventStream{
		Redis: rdb,
		log:   log.Named("events"),
		queue: make(chan roomEvent, buffer),
	}
}

func (e *EventStream) Publish(room string, env models.Envelope) {
	select {
	case e.queue <- roomEvent{room: room, env: env}:
	default:
		e.log.Warn("event stream buffer full, dropping event",
			zap.String("room", room), zap.String("type", env.Type))
	}
}

// Run drains the queue until ctx is cancelled.
func (e *EventStream) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.queue:
			payload, err := json.Marshal(ev.env)
			if err != nil {
				e.log.Error("failed to encode event", zap.String("type", ev.env.Type), zap.Error(err))
				continue
			}
			if err := e.Redis.Publish(ctx, RoomChannel(ev.room), payload).Err(); err != nil {
				e.log.Warn("failed to publish event", zap.String("room", ev.room), zap.Error(err))
			}
		}
	}
}

// SubscribeToAllRooms pattern-subscribes to every room channel.
func SubscribeToAllRooms(ctx context.Context, rdb *redis.Client) *redis.PubSub {
	return rdb.PSubscribe(ctx, roomChannelPrefix+"*")
}
