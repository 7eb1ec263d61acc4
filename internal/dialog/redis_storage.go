package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userDialogKeyPattern  = "user:dialog:%d"
	userDialogScanPattern = "user:dialog:*"
	defaultTTL            = time.Hour
)

// RedisStore persists user dialogs in Redis.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

// NewRedisStore initializes a Redis-backed Store implementation. A zero ttl
// falls back to one hour so abandoned dialogs cannot pile up forever.
func NewRedisStore(client *redis.Client, log *slog.Logger, ttl time.Duration) Store {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &RedisStore{
		client: client,
		log:    log,
		ttl:    ttl,
	}
}

// Get returns the stored user dialog or ErrDialogNotFound when absent.
func (s *RedisStore) Get(ctx context.Context, userID int64) (*UserDialog, error) {
	key := redisDialogKey(userID)

	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrDialogNotFound
		}

		s.log.Error("failed to get dialog from redis", "user_id", userID, "error", err)
		return nil, err
	}

	var userDialog UserDialog
	if err := json.Unmarshal([]byte(data), &userDialog); err != nil {
		s.log.Error("failed to decode user dialog", "user_id", userID, "error", err)
		return nil, err
	}

	return &userDialog, nil
}

// Set saves the provided dialog for the user with the configured TTL.
func (s *RedisStore) Set(ctx context.Context, userID int64, d Dialog) error {
	previous, err := Current(ctx, s, userID)
	if err != nil {
		previous = DialogNone
	}

	userDialog := &UserDialog{
		UserID:    userID,
		Dialog:    d,
		UpdatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(userDialog)
	if err != nil {
		s.log.Error("failed to encode user dialog", "user_id", userID, "error", err)
		return err
	}

	key := redisDialogKey(userID)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save dialog in redis", "user_id", userID, "error", err)
		return err
	}

	transitionRecorder(string(previous), string(d))

	return nil
}

// Clear removes the stored dialog for the given user.
func (s *RedisStore) Clear(ctx context.Context, userID int64) error {
	previous, err := Current(ctx, s, userID)
	if err != nil {
		previous = DialogNone
	}

	key := redisDialogKey(userID)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.log.Error("failed to clear user dialog", "user_id", userID, "error", err)
		return err
	}

	if previous != DialogNone {
		transitionRecorder(string(previous), string(DialogNone))
	}

	return nil
}

// GetAll retrieves every open dialog by scanning Redis keys.
func (s *RedisStore) GetAll(ctx context.Context) ([]*UserDialog, error) {
	var (
		cursor uint64
		result []*UserDialog
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, userDialogScanPattern, 100).Result()
		if err != nil {
			s.log.Error("failed to scan user dialogs", "error", err)
			return nil, err
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}

				s.log.Error("failed to fetch user dialog", "key", key, "error", err)
				return nil, err
			}

			var userDialog UserDialog
			if err := json.Unmarshal([]byte(data), &userDialog); err != nil {
				s.log.Error("failed to decode user dialog", "key", key, "error", err)
				continue
			}

			copied := userDialog
			result = append(result, &copied)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func redisDialogKey(userID int64) string {
	return fmt.Sprintf(userDialogKeyPattern, userID)
}
