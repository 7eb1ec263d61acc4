package tracker

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ratespy/ratespy-bot/internal/domain"
	"github.com/ratespy/ratespy-bot/internal/repository"
)

type fakeRepo struct {
	users map[int64]*domain.UserSettings

	createErr error
	updateErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[int64]*domain.UserSettings)}
}

func (r *fakeRepo) Create(_ context.Context, settings *domain.UserSettings) error {
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.users[settings.UserID]; ok {
		return repository.ErrUserExists
	}
	clone := *settings
	r.users[settings.UserID] = &clone
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, userID int64) (*domain.UserSettings, error) {
	settings, ok := r.users[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *settings
	return &clone, nil
}

func (r *fakeRepo) UpdateField(_ context.Context, userID int64, field repository.Field, value any) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	settings, ok := r.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	switch field {
	case repository.FieldCurrency:
		settings.Currency = value.(string)
	case repository.FieldInterval:
		settings.IntervalSeconds = value.(int)
	case repository.FieldThreshold:
		settings.ThresholdPercent = value.(int)
	case repository.FieldLastRate:
		rate := value.(float64)
		settings.LastRate = &rate
	default:
		return repository.ErrUnknownField
	}
	return nil
}

func (r *fakeRepo) TouchLastSeen(_ context.Context, _ int64) error { return nil }

func (r *fakeRepo) DueForNotification(_ context.Context, _ time.Time) ([]*domain.UserSettings, error) {
	return nil, nil
}

func (r *fakeRepo) MarkNotified(_ context.Context, _ int64, _ float64) error { return nil }

type fakeQuote struct {
	rate  float64
	err   error
	calls int
}

func (q *fakeQuote) Spot(_ context.Context, _ string) (float64, error) {
	q.calls++
	if q.err != nil {
		return 0, q.err
	}
	return q.rate, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegister_FirstContact(t *testing.T) {
	repo := newFakeRepo()
	quotes := &fakeQuote{rate: 50000}
	service := NewService(repo, quotes, nil, testLogger())

	created, err := service.Register(context.Background(), 42, "alice", "en")
	require.NoError(t, err)
	assert.True(t, created)

	stored, err := repo.FindByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCurrency, stored.Currency)
	assert.Equal(t, domain.DefaultIntervalSeconds, stored.IntervalSeconds)
	assert.Nil(t, stored.LastRate)
	assert.Zero(t, quotes.calls)
}

func TestRegister_ExistingUserRefreshesRate(t *testing.T) {
	repo := newFakeRepo()
	quotes := &fakeQuote{rate: 64123.45}
	service := NewService(repo, quotes, nil, testLogger())

	_, err := service.Register(context.Background(), 42, "alice", "en")
	require.NoError(t, err)

	created, err := service.Register(context.Background(), 42, "alice", "en")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, quotes.calls)

	stored, err := repo.FindByID(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, stored.LastRate)
	assert.InDelta(t, 64123.45, *stored.LastRate, 0.001)
}

func TestRegister_ExistingUserQuoteFailureStillSucceeds(t *testing.T) {
	repo := newFakeRepo()
	quotes := &fakeQuote{err: errors.New("upstream down")}
	service := NewService(repo, quotes, nil, testLogger())

	_, err := service.Register(context.Background(), 42, "alice", "en")
	require.NoError(t, err)

	created, err := service.Register(context.Background(), 42, "alice", "en")
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := repo.FindByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, stored.LastRate)
}

func TestRefreshRate_QuoteFailureLeavesStoredRate(t *testing.T) {
	repo := newFakeRepo()
	quotes := &fakeQuote{rate: 100}
	service := NewService(repo, quotes, nil, testLogger())

	_, err := service.Register(context.Background(), 7, "bob", "en")
	require.NoError(t, err)
	require.NoError(t, service.RefreshRate(context.Background(), 7))

	quotes.err = errors.New("timeout")
	err = service.RefreshRate(context.Background(), 7)
	require.Error(t, err)

	stored, err := repo.FindByID(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, stored.LastRate)
	assert.InDelta(t, 100, *stored.LastRate, 0.001)
}

func TestRefreshRate_UnknownUser(t *testing.T) {
	service := NewService(newFakeRepo(), &fakeQuote{}, nil, testLogger())

	err := service.RefreshRate(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetCurrency_Normalizes(t *testing.T) {
	repo := newFakeRepo()
	service := NewService(repo, &fakeQuote{}, nil, testLogger())

	_, err := service.Register(context.Background(), 42, "alice", "en")
	require.NoError(t, err)

	require.NoError(t, service.SetCurrency(context.Background(), 42, " eth "))

	stored, err := repo.FindByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "ETH", stored.Currency)
}

func TestSetCurrency_Empty(t *testing.T) {
	service := NewService(newFakeRepo(), &fakeQuote{}, nil, testLogger())

	err := service.SetCurrency(context.Background(), 42, "   ")
	assert.Error(t, err)
}

func TestSetInterval_StoresExactValue(t *testing.T) {
	repo := newFakeRepo()
	service := NewService(repo, &fakeQuote{}, nil, testLogger())

	_, err := service.Register(context.Background(), 42, "alice", "en")
	require.NoError(t, err)

	require.NoError(t, service.SetInterval(context.Background(), 42, 120))

	stored, err := repo.FindByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 120, stored.IntervalSeconds)
}

func TestSetInterval_RejectsNonPositive(t *testing.T) {
	service := NewService(newFakeRepo(), &fakeQuote{}, nil, testLogger())

	assert.Error(t, service.SetInterval(context.Background(), 42, 0))
	assert.Error(t, service.SetInterval(context.Background(), 42, -5))
}

func TestSetThreshold_StoresExactValue(t *testing.T) {
	repo := newFakeRepo()
	service := NewService(repo, &fakeQuote{}, nil, testLogger())

	_, err := service.Register(context.Background(), 42, "alice", "en")
	require.NoError(t, err)

	require.NoError(t, service.SetThreshold(context.Background(), 42, 5))

	stored, err := repo.FindByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.ThresholdPercent)
}

func TestSettings_UnknownUser(t *testing.T) {
	service := NewService(newFakeRepo(), &fakeQuote{}, nil, testLogger())

	_, err := service.Settings(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
