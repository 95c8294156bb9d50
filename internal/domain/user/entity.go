package user

import (
	"strings"
	"time"
)

// User represents a learner known to the system
type User struct {
	id         ID
	createdAt  time.Time
	lastActive time.Time
}

// ID is the opaque identifier handed over by the identity provider.
// It is only ever used as a partition key.
type ID string

// Valid reports whether the identifier is usable as a partition key
func (id ID) Valid() bool {
	return strings.TrimSpace(string(id)) != ""
}

// NewUser creates a new user
func NewUser(id ID, now time.Time) *User {
	return &User{
		id:         id,
		createdAt:  now,
		lastActive: now,
	}
}

// RestoreUser rebuilds a user from storage (used by repository)
func RestoreUser(id ID, createdAt, lastActive time.Time) *User {
	return &User{id: id, createdAt: createdAt, lastActive: lastActive}
}

// Getters
func (u *User) ID() ID                { return u.id }
func (u *User) CreatedAt() time.Time  { return u.createdAt }
func (u *User) LastActive() time.Time { return u.lastActive }

// UpdateLastActive updates the last active timestamp
func (u *User) UpdateLastActive(now time.Time) {
	u.lastActive = now
}
