package user

import "context"

// Repository defines the contract for user persistence
type Repository interface {
	// Save inserts the user or refreshes its last active time
	Save(ctx context.Context, user *User) error

	// FindByID retrieves a user by their ID
	FindByID(ctx context.Context, id ID) (*User, error)

	// GetAllUsers retrieves all users from storage
	GetAllUsers(ctx context.Context) ([]*User, error)

	// FindProgress retrieves the learner's progress
	FindProgress(ctx context.Context, id ID) (*Progress, error)

	// SaveProgress inserts or updates the learner's progress
	SaveProgress(ctx context.Context, progress *Progress) error
}
