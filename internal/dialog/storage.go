// Package dialog tracks each user's open conversation step outside of process
// memory, so any instance can pick up the next message.
package dialog

import (
	"context"
	"errors"
)

// ErrDialogNotFound indicates that no dialog record exists for the user.
var ErrDialogNotFound = errors.New("user dialog not found")

// Store defines the persistence contract for per-user dialog state.
type Store interface {
	// Get returns the open dialog for the specified user, or ErrDialogNotFound.
	Get(ctx context.Context, userID int64) (*UserDialog, error)
	// Set saves the provided dialog for the specified user.
	Set(ctx context.Context, userID int64, d Dialog) error
	// Clear removes the dialog for the specified user.
	Clear(ctx context.Context, userID int64) error
	// GetAll returns every open dialog.
	GetAll(ctx context.Context) ([]*UserDialog, error)
}

// Current resolves the user's dialog, collapsing a missing record to DialogNone.
func Current(ctx context.Context, store Store, userID int64) (Dialog, error) {
	userDialog, err := store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrDialogNotFound) {
			return DialogNone, nil
		}
		return DialogNone, err
	}

	if userDialog == nil || userDialog.Dialog == "" {
		return DialogNone, nil
	}

	return userDialog.Dialog, nil
}
