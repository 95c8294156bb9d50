package learning

import (
	"time"

	"github.com/google/uuid"

	"caesar-in-a-year/internal/domain/user"
)

// ID identifies a card or a review history entry
type ID string

// UserCard is a learner's card for a specific piece of content
type UserCard struct {
	id        ID
	userID    user.ID
	kind      Kind
	contentID string
	card      Card
	createdAt time.Time
	updatedAt time.Time
}

// NewUserCard creates a card that has not been reviewed yet
func NewUserCard(userID user.ID, kind Kind, contentID string, now time.Time) *UserCard {
	return &UserCard{
		id:        ID(uuid.NewString()),
		userID:    userID,
		kind:      kind,
		contentID: contentID,
		card:      NewCard(now),
		createdAt: now,
		updatedAt: now,
	}
}

// RestoreUserCard rebuilds a card from storage (used by repository)
func RestoreUserCard(id ID, userID user.ID, kind Kind, contentID string, card Card, createdAt, updatedAt time.Time) *UserCard {
	return &UserCard{
		id:        id,
		userID:    userID,
		kind:      kind,
		contentID: contentID,
		card:      card,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// Getters
func (uc *UserCard) ID() ID               { return uc.id }
func (uc *UserCard) UserID() user.ID      { return uc.userID }
func (uc *UserCard) Kind() Kind           { return uc.kind }
func (uc *UserCard) ContentID() string    { return uc.contentID }
func (uc *UserCard) Card() Card           { return uc.card }
func (uc *UserCard) CreatedAt() time.Time { return uc.createdAt }
func (uc *UserCard) UpdatedAt() time.Time { return uc.updatedAt }

// Apply stores the scheduler's decision on this card
func (uc *UserCard) Apply(next Card, now time.Time) {
	uc.card = next
	uc.updatedAt = now
}

// ReviewHistory represents a single scheduled review
type ReviewHistory struct {
	id            ID
	userID        user.ID
	cardID        ID
	outcome       Outcome
	rating        Rating
	stateBefore   State
	elapsedDays   float64
	scheduledDays float64
	reviewTime    time.Time
	fallback      bool
}

// NewReviewHistory creates a history entry from a scheduler log
func NewReviewHistory(card *UserCard, outcome Outcome, log ReviewLog, fallback bool) *ReviewHistory {
	return &ReviewHistory{
		id:            ID(uuid.NewString()),
		userID:        card.UserID(),
		cardID:        card.ID(),
		outcome:       outcome,
		rating:        log.Rating,
		stateBefore:   log.State,
		elapsedDays:   log.ElapsedDays,
		scheduledDays: log.ScheduledDays,
		reviewTime:    log.ReviewTime,
		fallback:      fallback,
	}
}

// RestoreReviewHistory rebuilds a history entry from storage (used by repository)
func RestoreReviewHistory(id ID, userID user.ID, cardID ID, outcome Outcome, rating Rating, stateBefore State,
	elapsedDays, scheduledDays float64, reviewTime time.Time, fallback bool) *ReviewHistory {
	return &ReviewHistory{
		id:            id,
		userID:        userID,
		cardID:        cardID,
		outcome:       outcome,
		rating:        rating,
		stateBefore:   stateBefore,
		elapsedDays:   elapsedDays,
		scheduledDays: scheduledDays,
		reviewTime:    reviewTime,
		fallback:      fallback,
	}
}

// Getters for ReviewHistory
func (rh *ReviewHistory) ID() ID                 { return rh.id }
func (rh *ReviewHistory) UserID() user.ID        { return rh.userID }
func (rh *ReviewHistory) CardID() ID             { return rh.cardID }
func (rh *ReviewHistory) Outcome() Outcome       { return rh.outcome }
func (rh *ReviewHistory) Rating() Rating         { return rh.rating }
func (rh *ReviewHistory) StateBefore() State     { return rh.stateBefore }
func (rh *ReviewHistory) ElapsedDays() float64   { return rh.elapsedDays }
func (rh *ReviewHistory) ScheduledDays() float64 { return rh.scheduledDays }
func (rh *ReviewHistory) ReviewTime() time.Time  { return rh.reviewTime }
func (rh *ReviewHistory) Fallback() bool         { return rh.fallback }
