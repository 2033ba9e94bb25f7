package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kstielfps/VATImposter/internal/config"
	"github.com/kstielfps/VATImposter/internal/repository"
)

func TestOpenMemoryWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		StoreBackend:  config.BackendMemory,
		RedisAddr:     mr.Addr(),
		NudgeInterval: time.Second,
	}
	ctx := context.Background()

	a, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer a.Close(ctx)

	ok, err := a.NudgeLimiter.Allow(ctx, "ABCDEF", "p1", "p2")
	require.NoError(t, err)
	assert.True(t, ok)
	// the limiter writes through to redis
	assert.NotEmpty(t, mr.Keys())
}

func TestOpenSQLite(t *testing.T) {
	cfg := &config.Config{
		StoreBackend:  config.BackendSQLite,
		SQLitePath:    filepath.Join(t.TempDir(), "app.db"),
		NudgeInterval: time.Second,
	}
	ctx := context.Background()

	a, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer a.Close(ctx)

	created, err := repository.SeedWordGroups(ctx, a.WordRepo)
	require.NoError(t, err)
	assert.Positive(t, created)
}

func TestOpenFailures(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, &config.Config{StoreBackend: "cassandra"})
	assert.ErrorContains(t, err, "unknown store backend")

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = Open(ctx, &config.Config{StoreBackend: config.BackendMemory, RedisAddr: addr})
	assert.ErrorContains(t, err, "redis")
}
