package dialog

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}

	return client, cleanup
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRedisStore_SetAndGet(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	store := NewRedisStore(client, testLogger(), time.Hour)

	ctx := context.Background()

	err := store.Set(ctx, 123, DialogAwaitingCurrency)
	assert.NoError(t, err)

	result, err := store.Get(ctx, 123)
	assert.NoError(t, err)
	if assert.NotNil(t, result) {
		assert.Equal(t, int64(123), result.UserID)
		assert.Equal(t, DialogAwaitingCurrency, result.Dialog)
	}
}

func TestRedisStore_GetNotFound(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	store := NewRedisStore(client, testLogger(), time.Hour)

	ctx := context.Background()

	result, err := store.Get(ctx, 999)
	assert.Nil(t, result)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrDialogNotFound)
}

func TestRedisStore_Clear(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	store := NewRedisStore(client, testLogger(), time.Hour)

	ctx := context.Background()

	err := store.Set(ctx, 456, DialogAwaitingInterval)
	assert.NoError(t, err)

	err = store.Clear(ctx, 456)
	assert.NoError(t, err)

	result, err := store.Get(ctx, 456)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrDialogNotFound)
}

func TestRedisStore_GetAll(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	store := NewRedisStore(client, testLogger(), time.Hour)

	ctx := context.Background()

	assert.NoError(t, store.Set(ctx, 1, DialogAwaitingCurrency))
	assert.NoError(t, store.Set(ctx, 2, DialogAwaitingThreshold))

	all, err := store.GetAll(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCurrent_MissingRecordIsNone(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	store := NewRedisStore(client, testLogger(), time.Hour)

	current, err := Current(context.Background(), store, 42)
	assert.NoError(t, err)
	assert.Equal(t, DialogNone, current)
}
