package notify

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/config"
	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	mu  sync.Mutex
	got []model.Notification
}

func (s *sink) Publish(n model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
}

func (s *sink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func TestBridge_PublishDeliversLocally(t *testing.T) {
	local := &sink{}
	b := NewBridge(nil, "test", local, nil)

	b.Publish(sampleNotification(1))

	assert.Equal(t, 1, local.len())
	assert.Len(t, b.outbox, 1)
}

func TestBridge_DeliverSkipsOwnMessages(t *testing.T) {
	local := &sink{}
	b := NewBridge(nil, "test", local, nil)

	own, err := b.encode(sampleNotification(1))
	require.NoError(t, err)
	b.deliver(string(own))
	assert.Equal(t, 0, local.len())

	remote := NewBridge(nil, "test", &sink{}, nil)
	foreign, err := remote.encode(sampleNotification(2))
	require.NoError(t, err)
	b.deliver(string(foreign))
	require.Equal(t, 1, local.len())
	assert.Equal(t, int64(2), local.got[0].EventID)

	b.deliver("{broken")
	assert.Equal(t, 1, local.len())
}

func TestBridge_OutboxFullDoesNotBlock(t *testing.T) {
	b := NewBridge(nil, "test", &sink{}, nil)
	for i := 0; i < DefaultBuffer+10; i++ {
		b.Publish(sampleNotification(1))
	}
	assert.Len(t, b.outbox, DefaultBuffer)
}

func TestBridge_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("set INTEGRATION_TEST=true to run against Redis")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := config.RedisConfig{Host: "localhost", Port: 6379}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.Host = host
	}
	rdb, err := NewRedisClient(ctx, cfg, 1)
	require.NoError(t, err)
	defer rdb.Close()

	channel := "event-signup:test:" + time.Now().Format("150405.000")
	localA, localB := &sink{}, &sink{}
	a := NewBridge(rdb, channel, localA, nil)
	b := NewBridge(rdb, channel, localB, nil)

	go func() { _ = a.Run(ctx) }()
	go func() { _ = b.Run(ctx) }()
	time.Sleep(200 * time.Millisecond)

	a.Publish(sampleNotification(9))

	assert.Eventually(t, func() bool { return localB.len() == 1 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, localA.len())
}
