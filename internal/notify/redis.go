package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/config"
	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher is a local notification sink, usually a *Hub.
type Publisher interface {
	Publish(n model.Notification)
}

// NewRedisClient connects to Redis, retrying the initial ping.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, retries int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				_ = client.Close()
				return nil, ctx.Err()
			case <-time.After(time.Second):
			}
		}
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", retries+1, lastErr)
}

// envelope is the wire form on the Redis channel.
type envelope struct {
	Origin       string             `json:"origin"`
	Notification model.Notification `json:"notification"`
}

// Bridge relays notifications between processes over a Redis channel.
// Publish delivers locally right away and forwards to Redis in the
// background; notifications from other processes are delivered to the
// local sink as they arrive.
type Bridge struct {
	rdb     *redis.Client
	channel string
	origin  string
	local   Publisher
	log     *zap.Logger
	outbox  chan model.Notification
}

// NewBridge constructs a Bridge. Call Run to start relaying.
func NewBridge(rdb *redis.Client, channel string, local Publisher, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{
		rdb:     rdb,
		channel: channel,
		origin:  uuid.NewString(),
		local:   local,
		log:     log.With(zap.String("channel", channel)),
		outbox:  make(chan model.Notification, DefaultBuffer),
	}
}

// Publish delivers n locally and queues it for Redis. A full queue drops
// the remote copy.
func (b *Bridge) Publish(n model.Notification) {
	b.local.Publish(n)
	select {
	case b.outbox <- n:
	default:
		b.log.Warn("redis outbox full, notification not forwarded", zap.Int64("event_id", n.EventID))
	}
}

// Run subscribes to the channel and forwards the outbox until ctx ends.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer func() {
		_ = sub.Close()
	}()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	incoming := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-b.outbox:
			payload, err := b.encode(n)
			if err != nil {
				b.log.Error("encode notification", zap.Error(err))
				continue
			}
			if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
				b.log.Warn("redis publish failed", zap.Error(err))
			}
		case msg, ok := <-incoming:
			if !ok {
				return nil
			}
			b.deliver(msg.Payload)
		}
	}
}

func (b *Bridge) encode(n model.Notification) ([]byte, error) {
	return json.Marshal(envelope{Origin: b.origin, Notification: n})
}

// deliver hands a remote notification to the local sink. Messages this
// bridge published itself were already delivered by Publish.
func (b *Bridge) deliver(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.log.Warn("discarding malformed notification", zap.Error(err))
		return
	}
	if env.Origin == b.origin {
		return
	}
	b.local.Publish(env.Notification)
}
