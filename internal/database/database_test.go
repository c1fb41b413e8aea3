package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/config"
	"github.com/Shivanand-hulikatti/event-signup/internal/database"
	"github.com/Shivanand-hulikatti/event-signup/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHealthCheck(t *testing.T) {
	pool := testutil.NewTestPool(t)
	assert.NoError(t, database.HealthCheck(context.Background(), pool))
}

func TestNewPool_GivesUpAfterRetries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := database.NewPool(ctx, config.DatabaseConfig{
		Host:           "127.0.0.1",
		Port:           1,
		User:           "nobody",
		DBName:         "none",
		SSLMode:        "disable",
		MaxConns:       1,
		ConnectRetries: 1,
	}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to postgres")
}
