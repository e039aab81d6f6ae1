package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultChannel is the Redis pub/sub channel shared by server and clients.
const DefaultChannel = "atm:mutation"

// RedisBridge forwards mutation events over a Redis pub/sub channel so that
// dashboards running in other processes refresh too.
type RedisBridge struct {
	rdb     *redis.Client
	channel string
}

func NewRedisBridge(rdb *redis.Client, channel string) *RedisBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBridge{rdb: rdb, channel: channel}
}

// Forward publishes evt on the channel.
func (r *RedisBridge) Forward(ctx context.Context, evt MutationOccurred) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("eventbus: marshal event: %w", err)
	}
	return r.rdb.Publish(ctx, r.channel, data).Err()
}

// Listen subscribes to the channel and delivers foreign events to bus until ctx
// is cancelled. Events published by bus itself are skipped, they were already
// delivered locally.
func (r *RedisBridge) Listen(ctx context.Context, bus *Bus) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	// Wait for the subscription to be confirmed before returning control.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("eventbus: subscribe %s: %w", r.channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt MutationOccurred
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					log.Warn().Err(err).Str("channel", r.channel).Msg("eventbus: bad payload")
					continue
				}
				if evt.Origin == bus.Origin() {
					continue
				}
				bus.Deliver(ctx, evt)
			}
		}
	}()
	return nil
}
