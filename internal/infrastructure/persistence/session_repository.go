package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"caesar-in-a-year/internal/domain/session"
	"caesar-in-a-year/internal/domain/user"
)

type sessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sqlx.DB) session.Repository {
	return &sessionRepository{db: db}
}

type sessionRow struct {
	ID            string     `db:"id"`
	UserID        string     `db:"user_id"`
	Items         string     `db:"items"`
	CurrentIndex  int        `db:"current_index"`
	AnsweredIndex int        `db:"answered_index"`
	Status        string     `db:"status"`
	CreatedAt     time.Time  `db:"created_at"`
	CompletedAt   *time.Time `db:"completed_at"`
}

func (row sessionRow) toDomain() (*session.Session, error) {
	items, err := session.UnmarshalItems([]byte(row.Items))
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", row.ID, err)
	}
	status, err := session.ParseStatus(row.Status)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", row.ID, err)
	}
	return session.Restore(session.ID(row.ID), user.ID(row.UserID), items, row.CurrentIndex, row.AnsweredIndex, status,
		row.CreatedAt.UTC(), utcPtr(row.CompletedAt)), nil
}

const sessionColumns = `id, user_id, items, current_index, answered_index, status, created_at, completed_at`

// Save persists a new session
func (r *sessionRepository) Save(ctx context.Context, s *session.Session) error {
	items, err := session.MarshalItems(s.Items())
	if err != nil {
		return fmt.Errorf("failed to encode session items: %w", err)
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (:id, :user_id, :items, :current_index, :answered_index, :status, :created_at, :completed_at)
	`
	_, err = r.db.NamedExecContext(ctx, query, sessionRow{
		ID:            string(s.ID()),
		UserID:        string(s.UserID()),
		Items:         string(items),
		CurrentIndex:  s.CurrentIndex(),
		AnsweredIndex: s.AnsweredIndex(),
		Status:        s.Status().String(),
		CreatedAt:     utc(s.CreatedAt()),
		CompletedAt:   utcPtr(s.CompletedAt()),
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// FindByID retrieves a session by its ID
func (r *sessionRepository) FindByID(ctx context.Context, id session.ID) (*session.Session, error) {
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`)

	var row sessionRow
	err := r.db.GetContext(ctx, &row, query, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return row.toDomain()
}

// FindActiveByUser retrieves the learner's most recent active session
func (r *sessionRepository) FindActiveByUser(ctx context.Context, userID user.ID) (*session.Session, error) {
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM sessions
		WHERE user_id = ? AND status = ?
		ORDER BY created_at DESC
		LIMIT 1`)

	var row sessionRow
	err := r.db.GetContext(ctx, &row, query, string(userID), session.StatusActive.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active session: %w", err)
	}
	return row.toDomain()
}

// UpdateProgression persists current index, status and completion time.
// Only active sessions are written, and the stored index never moves
// backwards. completed reports whether this write made the transition to
// complete, so concurrent completions are credited once.
func (r *sessionRepository) UpdateProgression(ctx context.Context, s *session.Session) (bool, error) {
	query := r.db.Rebind(`
		UPDATE sessions SET
			current_index = CASE WHEN current_index > ? THEN current_index ELSE ? END,
			status = ?,
			completed_at = COALESCE(completed_at, ?)
		WHERE id = ? AND status = ?`)

	res, err := r.db.ExecContext(ctx, query,
		s.CurrentIndex(), s.CurrentIndex(), s.Status().String(), utcPtr(s.CompletedAt()),
		string(s.ID()), session.StatusActive.String())
	if err != nil {
		return false, fmt.Errorf("failed to update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update session: %w", err)
	}
	if n == 1 {
		return s.IsComplete(), nil
	}

	return false, r.ensureExists(ctx, s.ID())
}

// ClaimAnswer moves answered_index forward to index. The conditional update
// lets exactly one of several concurrent submissions through.
func (r *sessionRepository) ClaimAnswer(ctx context.Context, id session.ID, index int) (bool, error) {
	query := r.db.Rebind(`
		UPDATE sessions SET answered_index = ?
		WHERE id = ? AND status = ? AND answered_index < ?`)

	res, err := r.db.ExecContext(ctx, query, index, string(id), session.StatusActive.String(), index)
	if err != nil {
		return false, fmt.Errorf("failed to claim answer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to claim answer: %w", err)
	}
	if n == 1 {
		return true, nil
	}
	return false, r.ensureExists(ctx, id)
}

// ReleaseAnswer hands a claimed index back, restoring the previous mark
func (r *sessionRepository) ReleaseAnswer(ctx context.Context, id session.ID, index, previous int) error {
	query := r.db.Rebind(`UPDATE sessions SET answered_index = ? WHERE id = ? AND answered_index = ?`)
	if _, err := r.db.ExecContext(ctx, query, previous, string(id), index); err != nil {
		return fmt.Errorf("failed to release answer: %w", err)
	}
	return nil
}

func (r *sessionRepository) ensureExists(ctx context.Context, id session.ID) error {
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM sessions WHERE id = ?`), string(id)); err != nil {
		return fmt.Errorf("failed to find session: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}
