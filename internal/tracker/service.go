// Package tracker implements the business operations over user settings:
// onboarding, rate refreshes and field updates.
package tracker

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ratespy/ratespy-bot/internal/domain"
	apperrors "github.com/ratespy/ratespy-bot/internal/errors"
	"github.com/ratespy/ratespy-bot/internal/quote"
	"github.com/ratespy/ratespy-bot/internal/repository"
	"github.com/ratespy/ratespy-bot/internal/settingscache"
)

// ErrUserNotFound indicates no settings record exists for the user.
var ErrUserNotFound = errors.New("user not found")

const cacheTTL = 5 * time.Minute

// Service provides business operations over user settings.
type Service struct {
	repo   repository.UserRepository
	quotes quote.Client
	cache  *settingscache.Cache
	log    *slog.Logger
}

// NewService constructs a new Service instance. The cache is optional.
func NewService(repo repository.UserRepository, quotes quote.Client, cache *settingscache.Cache, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		quotes: quotes,
		cache:  cache,
		log:    log,
	}
}

// Register creates the settings record on first contact. A repeated
// registration is not an error: it refreshes the stored rate instead and
// reports created=false so the caller can word the welcome accordingly.
func (s *Service) Register(ctx context.Context, userID int64, displayName, language string) (bool, error) {
	err := s.repo.Create(ctx, domain.NewUserSettings(userID, displayName, language))
	if err == nil {
		s.invalidate(ctx, userID)
		return true, nil
	}

	if errors.Is(err, repository.ErrUserExists) {
		if refreshErr := s.RefreshRate(ctx, userID); refreshErr != nil {
			// the welcome still goes out; the rate just stays stale
			s.logError("register.refresh", userID, refreshErr)
		}
		return false, nil
	}

	s.logError("register.create", userID, err)
	return false, apperrors.NewDatabaseError(err)
}

// Settings returns the persisted settings for the user, reading through the
// cache when one is configured.
func (s *Service) Settings(ctx context.Context, userID int64) (*domain.UserSettings, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, userID); err == nil && cached != nil {
			return cached, nil
		}
	}

	settings, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		s.logError("settings", userID, err)
		return nil, apperrors.NewDatabaseError(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, settings, cacheTTL); err != nil {
			s.logError("settings.cache", userID, err)
		}
	}

	return settings, nil
}

// RefreshRate looks up the user's tracked currency, queries the quote service
// and persists the returned price. On a quote failure the stored rate is left
// untouched and the error is surfaced to the caller.
func (s *Service) RefreshRate(ctx context.Context, userID int64) error {
	settings, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		s.logError("refresh_rate.find", userID, err)
		return apperrors.NewDatabaseError(err)
	}

	rate, err := s.quotes.Spot(ctx, settings.Currency)
	if err != nil {
		s.logError("refresh_rate.quote", userID, err)
		return err
	}

	if err := s.repo.UpdateField(ctx, userID, repository.FieldLastRate, rate); err != nil {
		s.logError("refresh_rate.store", userID, err)
		return apperrors.NewDatabaseError(err)
	}

	s.invalidate(ctx, userID)

	return nil
}

// SetCurrency stores the tracked currency code, normalized to upper case.
// Anything non-empty is accepted; the prompt advertises supported codes but
// no whitelist is enforced.
func (s *Service) SetCurrency(ctx context.Context, userID int64, code string) error {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return apperrors.NewValidationError("Currency code must not be empty")
	}

	return s.updateField(ctx, userID, repository.FieldCurrency, normalized)
}

// SetInterval stores the notification interval in seconds.
func (s *Service) SetInterval(ctx context.Context, userID int64, seconds int) error {
	if seconds <= 0 {
		return apperrors.NewValidationError("Interval must be a positive number of seconds")
	}

	return s.updateField(ctx, userID, repository.FieldInterval, seconds)
}

// SetThreshold stores the alert threshold in percent.
func (s *Service) SetThreshold(ctx context.Context, userID int64, percent int) error {
	return s.updateField(ctx, userID, repository.FieldThreshold, percent)
}

// TouchLastSeen records user activity without failing the request flow.
func (s *Service) TouchLastSeen(ctx context.Context, userID int64) error {
	if err := s.repo.TouchLastSeen(ctx, userID); err != nil {
		s.logError("touch_last_seen", userID, err)
		return err
	}

	return nil
}

func (s *Service) updateField(ctx context.Context, userID int64, field repository.Field, value any) error {
	if err := s.repo.UpdateField(ctx, userID, field, value); err != nil {
		s.logError("update."+string(field), userID, err)
		return apperrors.NewDatabaseError(err)
	}

	s.invalidate(ctx, userID)

	return nil
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logError("cache.invalidate", userID, err)
	}
}

func (s *Service) logError(operation string, userID int64, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("tracker operation failed",
		slog.String("operation", operation),
		slog.Int64("user_id", userID),
		slog.Any("error", err),
	)
}
