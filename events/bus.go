package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Bus fans order events out to the local websocket hub and relays them
// through redis pub/sub so subscribers on other instances see them too.
// Publishing is fire-and-forget: a relay failure is logged and never fails
// the status update that triggered it.
type Bus struct {
	hub    *Hub
	rdb    *redis.Client
	origin string
	log    *logrus.Logger
}

// NewBus builds a bus over the given hub. rdb may be nil (single instance,
// tests); the bus then only broadcasts locally.
func NewBus(hub *Hub, rdb *redis.Client, log *logrus.Logger) *Bus {
	return &Bus{
		hub:    hub,
		rdb:    rdb,
		origin: uuid.New().String(),
		log:    log,
	}
}

func (b *Bus) Hub() *Hub {
	return b.hub
}

// Publish delivers one event on one logical channel.
func (b *Bus) Publish(channel, event string, data interface{}) {
	msg := Message{
		Channel: channel,
		Event:   event,
		Data:    data,
		Origin:  b.origin,
	}

	b.hub.Broadcast(msg)

	if b.rdb == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		b.log.Errorf("events: marshal relay message for %s: %v", channel, err)
		return
	}
	if err := b.rdb.Publish(context.Background(), channel, payload).Err(); err != nil {
		b.log.Errorf("events: relay publish to %s: %v", channel, err)
	}
}

// Run consumes relayed messages from other instances and feeds them into the
// local hub. Messages this instance published itself are skipped so local
// subscribers are not served twice. Blocks until ctx is cancelled.
func (b *Bus) Run(ctx context.Context) {
	if b.rdb == nil {
		return
	}

	sub := b.rdb.PSubscribe(ctx, "restaurant-*", "order-*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				b.log.Errorf("events: decode relayed message on %s: %v", m.Channel, err)
				continue
			}
			if msg.Origin == b.origin {
				continue
			}
			b.hub.Broadcast(msg)
		}
	}
}
