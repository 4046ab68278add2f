// Package pubsub fans loader events out across gateway instances using
// Redis channels named by loader path.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	general_i "github.com/beka-birhanu/vinom-interfaces/general"
	"github.com/redis/go-redis/v9"
)

// DeliverFunc receives every event published to a path a subscriber watches.
type DeliverFunc func(path string, payload []byte)

// RedisBroker publishes path-addressed events and lets gateways subscribe to
// path patterns. Implements i.Publisher.
type RedisBroker struct {
	client *redis.Client
	logger general_i.Logger
}

func NewRedisBroker(client *redis.Client, logger general_i.Logger) (*RedisBroker, error) {
	return &RedisBroker{
		client: client,
		logger: logger,
	}, nil
}

// Publish marshals the event and publishes it to the Redis channel named by
// the path.
func (b *RedisBroker) Publish(ctx context.Context, path string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, path, payload).Err()
}

// Listen subscribes to a channel pattern and calls deliver for every
// message until the context is done.
func (b *RedisBroker) Listen(ctx context.Context, pattern string, deliver DeliverFunc) {
	sub := b.client.PSubscribe(ctx, pattern)
	go func() {
		<-ctx.Done()
		if err := sub.Close(); err != nil {
			b.logger.Error(fmt.Sprintf("closing pattern subscription %s: %s", pattern, err))
		}
	}()

	b.logger.Info(fmt.Sprintf("listening for events on %s", pattern))
	for msg := range sub.Channel() {
		deliver(msg.Channel, []byte(msg.Payload))
	}
}
