// Package repository implements the Postgres-backed settings store.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ratespy/ratespy-bot/internal/domain"
)

// ErrUserExists indicates that a settings record already exists for the user.
// It is a distinct outcome, not a failure: callers react by refreshing the
// stored rate instead of inserting.
var ErrUserExists = errors.New("user already exists")

// ErrUnknownField indicates an update was requested for a column outside the whitelist.
var ErrUnknownField = errors.New("unknown settings field")

// Field names accepted by UpdateField. The store rejects anything else;
// semantic validation of the value happens in the caller.
type Field string

const (
	FieldCurrency  Field = "currency"
	FieldInterval  Field = "interval_seconds"
	FieldThreshold Field = "threshold_percent"
	FieldLastRate  Field = "last_rate"
)

var fieldColumns = map[Field]string{
	FieldCurrency:  "currency",
	FieldInterval:  "interval_seconds",
	FieldThreshold: "threshold_percent",
	FieldLastRate:  "last_rate",
}

// UserRepository defines persistence operations for user settings.
type UserRepository interface {
	Create(ctx context.Context, settings *domain.UserSettings) error
	FindByID(ctx context.Context, userID int64) (*domain.UserSettings, error)
	UpdateField(ctx context.Context, userID int64, field Field, value any) error
	TouchLastSeen(ctx context.Context, userID int64) error
	DueForNotification(ctx context.Context, now time.Time) ([]*domain.UserSettings, error)
	MarkNotified(ctx context.Context, userID int64, rate float64) error
}

type userRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewUserRepository creates a new SQL-backed user settings repository.
func NewUserRepository(db *sql.DB, log *slog.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log,
	}
}

const userColumns = `
	id, user_id, display_name, language, currency, interval_seconds, threshold_percent,
	last_rate, created_at, last_seen_at, last_notified_at
`

// Create inserts a new settings record. A conflict on user_id yields
// ErrUserExists without touching the existing row.
func (r *userRepository) Create(ctx context.Context, settings *domain.UserSettings) error {
	const query = `
		INSERT INTO users (user_id, display_name, language, currency, interval_seconds, threshold_percent, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO NOTHING
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		settings.UserID,
		settings.DisplayName,
		settings.Language,
		settings.Currency,
		settings.IntervalSeconds,
		settings.ThresholdPercent,
		settings.CreatedAt,
		settings.LastSeenAt,
	)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to create user settings", slog.Int64("user_id", settings.UserID), slog.Any("error", err))
		}
		return fmt.Errorf("insert user settings: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert user settings: rows affected: %w", err)
	}

	if affected == 0 {
		return ErrUserExists
	}

	return nil
}

// FindByID retrieves a settings record by the Telegram user identifier.
func (r *userRepository) FindByID(ctx context.Context, userID int64) (*domain.UserSettings, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	row := r.db.QueryRowContext(ctx, query, userID)

	settings, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}

		if r.log != nil {
			r.log.Error("failed to fetch user settings", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select user settings: %w", err)
	}

	return settings, nil
}

// UpdateField writes a single whitelisted column for the user.
func (r *userRepository) UpdateField(ctx context.Context, userID int64, field Field, value any) error {
	column, ok := fieldColumns[field]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	query := fmt.Sprintf(`UPDATE users SET %s = $1 WHERE user_id = $2`, column)

	if _, err := r.db.ExecContext(ctx, query, value, userID); err != nil {
		if r.log != nil {
			r.log.Error("failed to update user settings field",
				slog.Int64("user_id", userID),
				slog.String("field", string(field)),
				slog.Any("error", err),
			)
		}
		return fmt.Errorf("update user settings field %s: %w", field, err)
	}

	return nil
}

// TouchLastSeen refreshes the activity timestamp for the user.
func (r *userRepository) TouchLastSeen(ctx context.Context, userID int64) error {
	const query = `UPDATE users SET last_seen_at = $1 WHERE user_id = $2`

	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), userID); err != nil {
		return fmt.Errorf("touch last seen: %w", err)
	}

	return nil
}

// DueForNotification returns users whose notification interval has elapsed.
func (r *userRepository) DueForNotification(ctx context.Context, now time.Time) ([]*domain.UserSettings, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE last_notified_at IS NULL
		   OR last_notified_at + interval_seconds * interval '1 second' <= $1
		ORDER BY user_id
	`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("select users due for notification: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var due []*domain.UserSettings
	for rows.Next() {
		settings, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user due for notification: %w", err)
		}
		due = append(due, settings)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users due for notification: %w", err)
	}

	return due, nil
}

// MarkNotified stores the refreshed rate as the new alert baseline and stamps
// the sweep time so the user is not checked again before their interval.
func (r *userRepository) MarkNotified(ctx context.Context, userID int64, rate float64) error {
	const query = `UPDATE users SET last_rate = $1, last_notified_at = $2 WHERE user_id = $3`

	if _, err := r.db.ExecContext(ctx, query, rate, time.Now().UTC(), userID); err != nil {
		return fmt.Errorf("mark user notified: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.UserSettings, error) {
	var (
		settings     domain.UserSettings
		lastRate     sql.NullFloat64
		lastNotified sql.NullTime
	)

	if err := row.Scan(
		&settings.ID,
		&settings.UserID,
		&settings.DisplayName,
		&settings.Language,
		&settings.Currency,
		&settings.IntervalSeconds,
		&settings.ThresholdPercent,
		&lastRate,
		&settings.CreatedAt,
		&settings.LastSeenAt,
		&lastNotified,
	); err != nil {
		return nil, err
	}

	if lastRate.Valid {
		rate := lastRate.Float64
		settings.LastRate = &rate
	}
	if lastNotified.Valid {
		at := lastNotified.Time
		settings.LastNotifiedAt = &at
	}

	return &settings, nil
}
