package session

import (
	"context"

	"caesar-in-a-year/internal/domain/user"
)

// Repository defines the contract for session persistence
type Repository interface {
	// Save persists a new session
	Save(ctx context.Context, session *Session) error

	// FindByID retrieves a session by its ID
	FindByID(ctx context.Context, id ID) (*Session, error)

	// FindActiveByUser retrieves the learner's most recent active session
	FindActiveByUser(ctx context.Context, userID user.ID) (*Session, error)

	// UpdateProgression persists current index, status and completion time.
	// completed is true only for the write that moved the stored session
	// from active to complete.
	UpdateProgression(ctx context.Context, session *Session) (completed bool, err error)

	// ClaimAnswer records that the item at index has been answered. It
	// returns false when the item was already answered or the session is
	// no longer active.
	ClaimAnswer(ctx context.Context, id ID, index int) (bool, error)

	// ReleaseAnswer undoes a claim whose answer could not be recorded,
	// restoring the previous answered index
	ReleaseAnswer(ctx context.Context, id ID, index, previous int) error
}
