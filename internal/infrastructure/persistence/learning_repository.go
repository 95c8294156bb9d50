package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"caesar-in-a-year/internal/domain/learning"
	"caesar-in-a-year/internal/domain/user"
)

type learningRepository struct {
	db *sqlx.DB
}

// NewLearningRepository creates a new card repository
func NewLearningRepository(db *sqlx.DB) learning.Repository {
	return &learningRepository{db: db}
}

// contentTables maps card kinds onto the table holding their content
var contentTables = map[learning.Kind]string{
	learning.KindSentence: "sentences",
	learning.KindVocab:    "vocabulary",
	learning.KindPhrase:   "phrases",
}

const cardColumns = `c.id, c.user_id, c.kind, c.content_id, c.state, c.stability, c.difficulty,
	c.elapsed_days, c.scheduled_days, c.learning_steps, c.reps, c.lapses,
	c.last_review, c.due, c.created_at, c.updated_at`

type cardRow struct {
	ID            string     `db:"id"`
	UserID        string     `db:"user_id"`
	Kind          string     `db:"kind"`
	ContentID     string     `db:"content_id"`
	State         string     `db:"state"`
	Stability     float64    `db:"stability"`
	Difficulty    float64    `db:"difficulty"`
	ElapsedDays   float64    `db:"elapsed_days"`
	ScheduledDays float64    `db:"scheduled_days"`
	LearningSteps int        `db:"learning_steps"`
	Reps          int        `db:"reps"`
	Lapses        int        `db:"lapses"`
	LastReview    *time.Time `db:"last_review"`
	Due           time.Time  `db:"due"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (row cardRow) toDomain() (*learning.UserCard, error) {
	kind, err := learning.ParseKind(row.Kind)
	if err != nil {
		return nil, fmt.Errorf("card %s: %w", row.ID, err)
	}
	state, err := learning.ParseState(row.State)
	if err != nil {
		return nil, fmt.Errorf("card %s: %w", row.ID, err)
	}

	card := learning.Card{
		State:         state,
		Stability:     row.Stability,
		Difficulty:    row.Difficulty,
		ElapsedDays:   row.ElapsedDays,
		ScheduledDays: row.ScheduledDays,
		LearningSteps: row.LearningSteps,
		Reps:          row.Reps,
		Lapses:        row.Lapses,
		LastReview:    utcPtr(row.LastReview),
		Due:           row.Due.UTC(),
	}
	return learning.RestoreUserCard(learning.ID(row.ID), user.ID(row.UserID), kind, row.ContentID,
		card, row.CreatedAt.UTC(), row.UpdatedAt.UTC()), nil
}

func toCards(rows []cardRow) ([]*learning.UserCard, error) {
	cards := make([]*learning.UserCard, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// FindCard retrieves a card by its ID
func (r *learningRepository) FindCard(ctx context.Context, id learning.ID) (*learning.UserCard, error) {
	query := r.db.Rebind(`SELECT ` + cardColumns + ` FROM cards c WHERE c.id = ?`)

	var row cardRow
	err := r.db.GetContext(ctx, &row, query, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	return row.toDomain()
}

// FindByContent retrieves the learner's card for a piece of content
func (r *learningRepository) FindByContent(ctx context.Context, userID user.ID, kind learning.Kind, contentID string) (*learning.UserCard, error) {
	query := r.db.Rebind(`SELECT ` + cardColumns + ` FROM cards c
		WHERE c.user_id = ? AND c.kind = ? AND c.content_id = ?`)

	var row cardRow
	err := r.db.GetContext(ctx, &row, query, string(userID), kind.String(), contentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card by content: %w", err)
	}
	return row.toDomain()
}

// FindDue retrieves cards due at now, soonest first
func (r *learningRepository) FindDue(ctx context.Context, userID user.ID, kind learning.Kind, now time.Time, limit int) ([]*learning.UserCard, error) {
	query := r.db.Rebind(`SELECT ` + cardColumns + ` FROM cards c
		WHERE c.user_id = ? AND c.kind = ? AND c.due <= ?
		ORDER BY c.due ASC, c.id ASC
		LIMIT ?`)

	var rows []cardRow
	if err := r.db.SelectContext(ctx, &rows, query, string(userID), kind.String(), utc(now), limit); err != nil {
		return nil, fmt.Errorf("failed to query due cards: %w", err)
	}
	return toCards(rows)
}

// FindSeenNotDue retrieves reviewed cards that are not yet due and whose
// content difficulty is at or below the ceiling, soonest due first
func (r *learningRepository) FindSeenNotDue(ctx context.Context, userID user.ID, kind learning.Kind, ceiling int, now time.Time, limit int) ([]*learning.UserCard, error) {
	table, err := contentTable(kind)
	if err != nil {
		return nil, err
	}
	query := r.db.Rebind(`SELECT ` + cardColumns + ` FROM cards c
		JOIN ` + table + ` t ON t.id = c.content_id
		WHERE c.user_id = ? AND c.kind = ? AND c.state <> ? AND c.due > ? AND t.difficulty <= ?
		ORDER BY c.due ASC, c.id ASC
		LIMIT ?`)

	var rows []cardRow
	err = r.db.SelectContext(ctx, &rows, query,
		string(userID), kind.String(), learning.StateNew.String(), utc(now), ceiling, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen cards: %w", err)
	}
	return toCards(rows)
}

// FindWithinCeiling retrieves all cards whose content difficulty is at or below the ceiling
func (r *learningRepository) FindWithinCeiling(ctx context.Context, userID user.ID, kind learning.Kind, ceiling int) ([]*learning.UserCard, error) {
	table, err := contentTable(kind)
	if err != nil {
		return nil, err
	}
	query := r.db.Rebind(`SELECT ` + cardColumns + ` FROM cards c
		JOIN ` + table + ` t ON t.id = c.content_id
		WHERE c.user_id = ? AND c.kind = ? AND t.difficulty <= ?
		ORDER BY c.id ASC`)

	var rows []cardRow
	if err := r.db.SelectContext(ctx, &rows, query, string(userID), kind.String(), ceiling); err != nil {
		return nil, fmt.Errorf("failed to query cards within ceiling: %w", err)
	}
	return toCards(rows)
}

// CountDue counts all cards due at now for a learner
func (r *learningRepository) CountDue(ctx context.Context, userID user.ID, now time.Time) (int, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM cards WHERE user_id = ? AND due <= ?`)

	var count int
	if err := r.db.GetContext(ctx, &count, query, string(userID), utc(now)); err != nil {
		return 0, fmt.Errorf("failed to count due cards: %w", err)
	}
	return count, nil
}

// SaveCardAndHistory persists the card and its review history in one transaction
func (r *learningRepository) SaveCardAndHistory(ctx context.Context, uc *learning.UserCard, history *learning.ReviewHistory) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	card := uc.Card()
	upsert := tx.Rebind(`
		INSERT INTO cards
		(id, user_id, kind, content_id, state, stability, difficulty, elapsed_days, scheduled_days,
		 learning_steps, reps, lapses, last_review, due, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			state = excluded.state,
			stability = excluded.stability,
			difficulty = excluded.difficulty,
			elapsed_days = excluded.elapsed_days,
			scheduled_days = excluded.scheduled_days,
			learning_steps = excluded.learning_steps,
			reps = excluded.reps,
			lapses = excluded.lapses,
			last_review = excluded.last_review,
			due = excluded.due,
			updated_at = excluded.updated_at`)

	_, err = tx.ExecContext(ctx, upsert,
		string(uc.ID()), string(uc.UserID()), uc.Kind().String(), uc.ContentID(),
		card.State.String(), card.Stability, card.Difficulty, card.ElapsedDays, card.ScheduledDays,
		card.LearningSteps, card.Reps, card.Lapses, utcPtr(card.LastReview), utc(card.Due),
		utc(uc.CreatedAt()), utc(uc.UpdatedAt()))
	if err != nil {
		return fmt.Errorf("failed to save card: %w", err)
	}

	if history != nil {
		insert := tx.Rebind(`
			INSERT INTO review_history
			(id, user_id, card_id, outcome, rating, state_before, elapsed_days, scheduled_days, review_time, fallback)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

		_, err = tx.ExecContext(ctx, insert,
			string(history.ID()), string(history.UserID()), string(history.CardID()),
			string(history.Outcome()), history.Rating().String(), history.StateBefore().String(),
			history.ElapsedDays(), history.ScheduledDays(), utc(history.ReviewTime()), history.Fallback())
		if err != nil {
			return fmt.Errorf("failed to save review history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type historyRow struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	CardID        string    `db:"card_id"`
	Outcome       string    `db:"outcome"`
	Rating        string    `db:"rating"`
	StateBefore   string    `db:"state_before"`
	ElapsedDays   float64   `db:"elapsed_days"`
	ScheduledDays float64   `db:"scheduled_days"`
	ReviewTime    time.Time `db:"review_time"`
	Fallback      bool      `db:"fallback"`
}

// FindReviewHistory retrieves the review history of a card, newest first
func (r *learningRepository) FindReviewHistory(ctx context.Context, cardID learning.ID) ([]*learning.ReviewHistory, error) {
	query := r.db.Rebind(`
		SELECT id, user_id, card_id, outcome, rating, state_before, elapsed_days, scheduled_days, review_time, fallback
		FROM review_history
		WHERE card_id = ?
		ORDER BY review_time DESC, id DESC`)

	var rows []historyRow
	if err := r.db.SelectContext(ctx, &rows, query, string(cardID)); err != nil {
		return nil, fmt.Errorf("failed to query review history: %w", err)
	}

	history := make([]*learning.ReviewHistory, 0, len(rows))
	for _, row := range rows {
		outcome, err := learning.ParseOutcome(row.Outcome)
		if err != nil {
			return nil, fmt.Errorf("review %s: %w", row.ID, err)
		}
		rating, err := learning.ParseRating(row.Rating)
		if err != nil {
			return nil, fmt.Errorf("review %s: %w", row.ID, err)
		}
		state, err := learning.ParseState(row.StateBefore)
		if err != nil {
			return nil, fmt.Errorf("review %s: %w", row.ID, err)
		}
		history = append(history, learning.RestoreReviewHistory(
			learning.ID(row.ID), user.ID(row.UserID), learning.ID(row.CardID),
			outcome, rating, state, row.ElapsedDays, row.ScheduledDays, row.ReviewTime.UTC(), row.Fallback))
	}
	return history, nil
}

// GetUsersWithProgress retrieves all users who have at least one card
func (r *learningRepository) GetUsersWithProgress(ctx context.Context) ([]user.ID, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT DISTINCT user_id FROM cards ORDER BY user_id`); err != nil {
		return nil, fmt.Errorf("failed to query users with progress: %w", err)
	}

	users := make([]user.ID, 0, len(ids))
	for _, id := range ids {
		users = append(users, user.ID(id))
	}
	return users, nil
}

func contentTable(kind learning.Kind) (string, error) {
	table, ok := contentTables[kind]
	if !ok {
		return "", fmt.Errorf("%w: %d", learning.ErrUnknownKind, int(kind))
	}
	return table, nil
}
