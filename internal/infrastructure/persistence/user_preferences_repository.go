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

type userPreferencesRepository struct {
	db *sqlx.DB
}

// NewUserPreferencesRepository creates a new user preferences repository
func NewUserPreferencesRepository(db *sqlx.DB) user.PreferencesRepository {
	return &userPreferencesRepository{db: db}
}

const upsertPreference = `
	INSERT INTO user_preferences (user_id, preference_key, preference_value, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (user_id, preference_key) DO UPDATE SET
		preference_value = excluded.preference_value,
		updated_at = excluded.updated_at
`

// FindPreferences retrieves all preferences for a user
func (r *userPreferencesRepository) FindPreferences(ctx context.Context, userID user.ID) (*user.UserPreferences, error) {
	query := r.db.Rebind(`SELECT preference_key, preference_value FROM user_preferences WHERE user_id = ?`)

	rows, err := r.db.QueryxContext(ctx, query, string(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to query user preferences: %w", err)
	}
	defer rows.Close()

	preferences := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		preferences[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating preferences: %w", err)
	}

	userPrefs := user.NewUserPreferences(userID)
	for key, value := range preferences {
		userPrefs.SetStringPreference(key, value)
	}
	return userPrefs, nil
}

// SavePreferences saves user preferences
func (r *userPreferencesRepository) SavePreferences(ctx context.Context, preferences *user.UserPreferences) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := tx.Rebind(upsertPreference)
	now := utc(time.Now())
	for key, value := range preferences.GetAllPreferences() {
		if _, err := tx.ExecContext(ctx, query, string(preferences.UserID()), key, value, now); err != nil {
			return fmt.Errorf("failed to save preference %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdatePreference updates a single preference
func (r *userPreferencesRepository) UpdatePreference(ctx context.Context, userID user.ID, key, value string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(upsertPreference), string(userID), key, value, utc(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to update preference %s: %w", key, err)
	}
	return nil
}

// FindUserByPreference finds the user holding a preference value, or "" if none
func (r *userPreferencesRepository) FindUserByPreference(ctx context.Context, key, value string) (user.ID, error) {
	query := r.db.Rebind(`
		SELECT user_id FROM user_preferences
		WHERE preference_key = ? AND preference_value = ?
		ORDER BY updated_at DESC
		LIMIT 1`)

	var id string
	err := r.db.GetContext(ctx, &id, query, key, value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find user by preference: %w", err)
	}
	return user.ID(id), nil
}
