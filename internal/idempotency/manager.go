// Package idempotency deduplicates Telegram updates. Telegram redelivers an
// update when the long-poll response is lost, so every handler invocation is
// keyed by update ID and the reply is cached for redeliveries.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrUpdateInProgress = errors.New("update with this key is already being processed")

// Operation produces the reply text for an update.
type Operation func(ctx context.Context) (string, error)

// Result carries the reply and whether it was served from cache.
type Result struct {
	Reply     string
	FromCache bool
}

type Manager interface {
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error)
}

type manager struct {
	store Store
	log   *slog.Logger
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store: store,
		log:   log,
	}
}

func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	for {
		locked, err := m.store.Lock(ctx, key, 5*time.Minute)
		if err != nil {
			return nil, err
		}

		if !locked {
			record, err := m.store.Get(ctx, key)
			if err != nil {
				return nil, err
			}

			if record == nil {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(100 * time.Millisecond):
					continue
				}
			}

			switch record.Status {
			case StatusProcessing:
				return nil, ErrUpdateInProgress
			case StatusCompleted:
				return &Result{Reply: record.Reply, FromCache: true}, nil
			default:
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(100 * time.Millisecond):
					continue
				}
			}
		}

		defer m.store.ReleaseLock(ctx, key)

		reply, err := fn(ctx)
		if err != nil {
			return nil, err
		}

		if err := m.store.Set(ctx, key, &Record{
			Status: StatusCompleted,
			Reply:  reply,
		}, ttl); err != nil {
			return nil, err
		}

		return &Result{
			Reply:     reply,
			FromCache: false,
		}, nil
	}
}
