package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"caesar-in-a-year/internal/domain/user"
)

type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

type userRow struct {
	ID         string    `db:"id"`
	CreatedAt  time.Time `db:"created_at"`
	LastActive time.Time `db:"last_active"`
}

type progressRow struct {
	UserID            string     `db:"user_id"`
	DifficultyCeiling int        `db:"difficulty_ceiling"`
	Streak            int        `db:"streak"`
	LongestStreak     int        `db:"longest_streak"`
	XP                int        `db:"xp"`
	DaysActive        int        `db:"days_active"`
	LastSessionAt     *time.Time `db:"last_session_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// Save inserts the user or refreshes its last active time
func (r *userRepository) Save(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, created_at, last_active)
		VALUES (:id, :created_at, :last_active)
		ON CONFLICT (id) DO UPDATE SET last_active = excluded.last_active
	`

	_, err := r.db.NamedExecContext(ctx, query, userRow{
		ID:         string(u.ID()),
		CreatedAt:  utc(u.CreatedAt()),
		LastActive: utc(u.LastActive()),
	})
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// FindByID retrieves a user by their ID
func (r *userRepository) FindByID(ctx context.Context, id user.ID) (*user.User, error) {
	query := r.db.Rebind(`SELECT id, created_at, last_active FROM users WHERE id = ?`)

	var row userRow
	err := r.db.GetContext(ctx, &row, query, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user.RestoreUser(user.ID(row.ID), row.CreatedAt.UTC(), row.LastActive.UTC()), nil
}

// GetAllUsers retrieves all users from storage
func (r *userRepository) GetAllUsers(ctx context.Context) ([]*user.User, error) {
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, created_at, last_active FROM users ORDER BY created_at ASC`); err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	users := make([]*user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, user.RestoreUser(user.ID(row.ID), row.CreatedAt.UTC(), row.LastActive.UTC()))
	}
	return users, nil
}

// FindProgress retrieves the learner's progress
func (r *userRepository) FindProgress(ctx context.Context, id user.ID) (*user.Progress, error) {
	query := r.db.Rebind(`
		SELECT user_id, difficulty_ceiling, streak, longest_streak, xp, days_active, last_session_at, updated_at
		FROM learner_progress WHERE user_id = ?`)

	var row progressRow
	err := r.db.GetContext(ctx, &row, query, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find progress: %w", err)
	}

	return user.RestoreProgress(user.ID(row.UserID), row.DifficultyCeiling, row.Streak, row.LongestStreak,
		row.XP, row.DaysActive, utcPtr(row.LastSessionAt), row.UpdatedAt.UTC()), nil
}

// SaveProgress inserts or updates the learner's progress
func (r *userRepository) SaveProgress(ctx context.Context, p *user.Progress) error {
	query := `
		INSERT INTO learner_progress
		(user_id, difficulty_ceiling, streak, longest_streak, xp, days_active, last_session_at, updated_at)
		VALUES (:user_id, :difficulty_ceiling, :streak, :longest_streak, :xp, :days_active, :last_session_at, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET
			difficulty_ceiling = excluded.difficulty_ceiling,
			streak = excluded.streak,
			longest_streak = excluded.longest_streak,
			xp = excluded.xp,
			days_active = excluded.days_active,
			last_session_at = excluded.last_session_at,
			updated_at = excluded.updated_at
	`

	_, err := r.db.NamedExecContext(ctx, query, progressRow{
		UserID:            string(p.UserID()),
		DifficultyCeiling: p.DifficultyCeiling(),
		Streak:            p.Streak(),
		LongestStreak:     p.LongestStreak(),
		XP:                p.XP(),
		DaysActive:        p.DaysActive(),
		LastSessionAt:     utcPtr(p.LastSessionAt()),
		UpdatedAt:         utc(p.UpdatedAt()),
	})
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}
