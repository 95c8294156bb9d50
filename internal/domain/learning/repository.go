package learning

import (
	"context"
	"time"

	"caesar-in-a-year/internal/domain/user"
)

// Repository defines the contract for card persistence
type Repository interface {
	// FindCard retrieves a card by its ID
	FindCard(ctx context.Context, id ID) (*UserCard, error)

	// FindByContent retrieves the learner's card for a piece of content
	FindByContent(ctx context.Context, userID user.ID, kind Kind, contentID string) (*UserCard, error)

	// FindDue retrieves cards due at now, soonest first
	FindDue(ctx context.Context, userID user.ID, kind Kind, now time.Time, limit int) ([]*UserCard, error)

	// FindSeenNotDue retrieves reviewed cards that are not yet due and whose
	// content difficulty is at or below the ceiling, soonest due first
	FindSeenNotDue(ctx context.Context, userID user.ID, kind Kind, ceiling int, now time.Time, limit int) ([]*UserCard, error)

	// FindWithinCeiling retrieves all cards whose content difficulty is at or below the ceiling
	FindWithinCeiling(ctx context.Context, userID user.ID, kind Kind, ceiling int) ([]*UserCard, error)

	// CountDue counts all cards due at now for a learner
	CountDue(ctx context.Context, userID user.ID, now time.Time) (int, error)

	// SaveCardAndHistory persists the card and its review history atomically
	SaveCardAndHistory(ctx context.Context, card *UserCard, history *ReviewHistory) error

	// FindReviewHistory retrieves the review history of a card, newest first
	FindReviewHistory(ctx context.Context, cardID ID) ([]*ReviewHistory, error)

	// GetUsersWithProgress retrieves all users who have at least one card
	GetUsersWithProgress(ctx context.Context) ([]user.ID, error)
}
