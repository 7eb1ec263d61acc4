package dialog

import "time"

// Dialog identifies which multi-step exchange, if any, is awaiting the user's
// next message.
type Dialog string

const (
	// DialogNone indicates no dialog is in progress; untagged free text is ignored.
	DialogNone Dialog = "none"
	// DialogAwaitingCurrency waits for a currency code after /set_currency.
	DialogAwaitingCurrency Dialog = "awaiting_currency"
	// DialogAwaitingInterval waits for a notification interval after /set_interval.
	DialogAwaitingInterval Dialog = "awaiting_interval"
	// DialogAwaitingThreshold waits for an alert threshold after /set_threshold.
	DialogAwaitingThreshold Dialog = "awaiting_threshold"
)

// UserDialog captures the open dialog for a Telegram user.
type UserDialog struct {
	UserID    int64     `json:"user_id"`
	Dialog    Dialog    `json:"dialog"`
	UpdatedAt time.Time `json:"updated_at"`
}

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe dialog transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}
