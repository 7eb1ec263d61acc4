package domain

import "time"

// Default preference values applied when a user record is created.
const (
	DefaultCurrency         = "BTC"
	DefaultIntervalSeconds  = 300
	DefaultThresholdPercent = 50
)

// UserSettings represents a tracked user's preferences stored in the database.
type UserSettings struct {
	ID               int64
	UserID           int64
	DisplayName      string
	Language         string
	Currency         string
	IntervalSeconds  int
	ThresholdPercent int
	LastRate         *float64
	CreatedAt        time.Time
	LastSeenAt       time.Time
	LastNotifiedAt   *time.Time
}

// NewUserSettings builds a settings record with default preferences. The
// language is the Telegram client locale captured at first contact; alerts
// sent outside a conversation are localized with it.
func NewUserSettings(userID int64, displayName, language string) *UserSettings {
	now := time.Now().UTC()

	return &UserSettings{
		UserID:           userID,
		DisplayName:      displayName,
		Language:         language,
		Currency:         DefaultCurrency,
		IntervalSeconds:  DefaultIntervalSeconds,
		ThresholdPercent: DefaultThresholdPercent,
		CreatedAt:        now,
		LastSeenAt:       now,
	}
}
