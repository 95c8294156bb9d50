package persistence

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"caesar-in-a-year/internal/domain/content"
	"caesar-in-a-year/internal/domain/learning"
	"caesar-in-a-year/internal/domain/user"
)

type contentRepository struct {
	db *sqlx.DB
}

// NewContentRepository creates a new corpus repository
func NewContentRepository(db *sqlx.DB) content.Repository {
	return &contentRepository{db: db}
}

type sentenceRow struct {
	ID                   string   `db:"id"`
	Latin                string   `db:"latin"`
	ReferenceTranslation string   `db:"reference_translation"`
	Difficulty           int      `db:"difficulty"`
	Order                int      `db:"sort_order"`
	AlignmentConfidence  *float64 `db:"alignment_confidence"`
}

func (row sentenceRow) toDomain() content.Sentence {
	return content.Sentence(row)
}

type vocabRow struct {
	ID         string `db:"id"`
	Lemma      string `db:"lemma"`
	Gloss      string `db:"gloss"`
	Difficulty int    `db:"difficulty"`
}

type phraseRow struct {
	ID          string `db:"id"`
	Latin       string `db:"latin"`
	Translation string `db:"translation"`
	Difficulty  int    `db:"difficulty"`
}

// SaveSentences upserts sentences
func (r *contentRepository) SaveSentences(ctx context.Context, sentences []content.Sentence) error {
	query := `
		INSERT INTO sentences (id, latin, reference_translation, difficulty, sort_order, alignment_confidence)
		VALUES (:id, :latin, :reference_translation, :difficulty, :sort_order, :alignment_confidence)
		ON CONFLICT (id) DO UPDATE SET
			latin = excluded.latin,
			reference_translation = excluded.reference_translation,
			difficulty = excluded.difficulty,
			sort_order = excluded.sort_order,
			alignment_confidence = excluded.alignment_confidence
	`
	rows := make([]sentenceRow, 0, len(sentences))
	for _, s := range sentences {
		rows = append(rows, sentenceRow(s))
	}
	return upsertAll(ctx, r.db, "sentence", query, rows)
}

// SaveVocabulary upserts vocabulary words
func (r *contentRepository) SaveVocabulary(ctx context.Context, words []content.VocabWord) error {
	query := `
		INSERT INTO vocabulary (id, lemma, gloss, difficulty)
		VALUES (:id, :lemma, :gloss, :difficulty)
		ON CONFLICT (id) DO UPDATE SET
			lemma = excluded.lemma,
			gloss = excluded.gloss,
			difficulty = excluded.difficulty
	`
	rows := make([]vocabRow, 0, len(words))
	for _, w := range words {
		rows = append(rows, vocabRow(w))
	}
	return upsertAll(ctx, r.db, "vocabulary", query, rows)
}

// SavePhrases upserts phrases
func (r *contentRepository) SavePhrases(ctx context.Context, phrases []content.Phrase) error {
	query := `
		INSERT INTO phrases (id, latin, translation, difficulty)
		VALUES (:id, :latin, :translation, :difficulty)
		ON CONFLICT (id) DO UPDATE SET
			latin = excluded.latin,
			translation = excluded.translation,
			difficulty = excluded.difficulty
	`
	rows := make([]phraseRow, 0, len(phrases))
	for _, p := range phrases {
		rows = append(rows, phraseRow(p))
	}
	return upsertAll(ctx, r.db, "phrase", query, rows)
}

// upsertAll writes rows one by one inside a single transaction
func upsertAll[T any](ctx context.Context, db *sqlx.DB, what, query string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare %s upsert: %w", what, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("failed to save %s: %w", what, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// selectByIDs runs query with an IN clause expanded for ids
func selectByIDs[T any](ctx context.Context, db *sqlx.DB, query string, ids []string) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to expand id list: %w", err)
	}

	var rows []T
	if err := db.SelectContext(ctx, &rows, db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// FindSentencesByIDs retrieves sentences keyed by id; unknown ids are skipped
func (r *contentRepository) FindSentencesByIDs(ctx context.Context, ids []string) (map[string]content.Sentence, error) {
	rows, err := selectByIDs[sentenceRow](ctx, r.db, `
		SELECT id, latin, reference_translation, difficulty, sort_order, alignment_confidence
		FROM sentences WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query sentences: %w", err)
	}

	out := make(map[string]content.Sentence, len(rows))
	for _, row := range rows {
		out[row.ID] = row.toDomain()
	}
	return out, nil
}

// FindVocabularyByIDs retrieves vocabulary keyed by id; unknown ids are skipped
func (r *contentRepository) FindVocabularyByIDs(ctx context.Context, ids []string) (map[string]content.VocabWord, error) {
	rows, err := selectByIDs[vocabRow](ctx, r.db, `
		SELECT id, lemma, gloss, difficulty FROM vocabulary WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query vocabulary: %w", err)
	}

	out := make(map[string]content.VocabWord, len(rows))
	for _, row := range rows {
		out[row.ID] = content.VocabWord(row)
	}
	return out, nil
}

// FindPhrasesByIDs retrieves phrases keyed by id; unknown ids are skipped
func (r *contentRepository) FindPhrasesByIDs(ctx context.Context, ids []string) (map[string]content.Phrase, error) {
	rows, err := selectByIDs[phraseRow](ctx, r.db, `
		SELECT id, latin, translation, difficulty FROM phrases WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query phrases: %w", err)
	}

	out := make(map[string]content.Phrase, len(rows))
	for _, row := range rows {
		out[row.ID] = content.Phrase(row)
	}
	return out, nil
}

// FindUnseenSentences retrieves sentences at or below the ceiling that the
// learner has no card for, easiest first
func (r *contentRepository) FindUnseenSentences(ctx context.Context, userID user.ID, ceiling, limit int) ([]content.Sentence, error) {
	query := r.db.Rebind(`
		SELECT s.id, s.latin, s.reference_translation, s.difficulty, s.sort_order, s.alignment_confidence
		FROM sentences s
		WHERE s.difficulty <= ?
		  AND NOT EXISTS (
			SELECT 1 FROM cards c
			WHERE c.user_id = ? AND c.kind = ? AND c.content_id = s.id
		  )
		ORDER BY s.difficulty ASC, s.sort_order ASC, s.id ASC
		LIMIT ?`)

	var rows []sentenceRow
	err := r.db.SelectContext(ctx, &rows, query, ceiling, string(userID), learning.KindSentence.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unseen sentences: %w", err)
	}

	sentences := make([]content.Sentence, 0, len(rows))
	for _, row := range rows {
		sentences = append(sentences, row.toDomain())
	}
	return sentences, nil
}

// FindUnseenVocabulary retrieves words at or below the ceiling that the
// learner has no card for, easiest first
func (r *contentRepository) FindUnseenVocabulary(ctx context.Context, userID user.ID, ceiling, limit int) ([]content.VocabWord, error) {
	query := r.db.Rebind(`
		SELECT v.id, v.lemma, v.gloss, v.difficulty
		FROM vocabulary v
		WHERE v.difficulty <= ?
		  AND NOT EXISTS (
			SELECT 1 FROM cards c
			WHERE c.user_id = ? AND c.kind = ? AND c.content_id = v.id
		  )
		ORDER BY v.difficulty ASC, v.id ASC
		LIMIT ?`)

	var rows []vocabRow
	err := r.db.SelectContext(ctx, &rows, query, ceiling, string(userID), learning.KindVocab.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unseen vocabulary: %w", err)
	}

	words := make([]content.VocabWord, 0, len(rows))
	for _, row := range rows {
		words = append(words, content.VocabWord(row))
	}
	return words, nil
}

// FindUnseenPhrases retrieves phrases at or below the ceiling that the
// learner has no card for, easiest first
func (r *contentRepository) FindUnseenPhrases(ctx context.Context, userID user.ID, ceiling, limit int) ([]content.Phrase, error) {
	query := r.db.Rebind(`
		SELECT p.id, p.latin, p.translation, p.difficulty
		FROM phrases p
		WHERE p.difficulty <= ?
		  AND NOT EXISTS (
			SELECT 1 FROM cards c
			WHERE c.user_id = ? AND c.kind = ? AND c.content_id = p.id
		  )
		ORDER BY p.difficulty ASC, p.id ASC
		LIMIT ?`)

	var rows []phraseRow
	err := r.db.SelectContext(ctx, &rows, query, ceiling, string(userID), learning.KindPhrase.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unseen phrases: %w", err)
	}

	phrases := make([]content.Phrase, 0, len(rows))
	for _, row := range rows {
		phrases = append(phrases, content.Phrase(row))
	}
	return phrases, nil
}

// CountSentencesWithinCeiling counts sentences at or below the ceiling
func (r *contentRepository) CountSentencesWithinCeiling(ctx context.Context, ceiling int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM sentences WHERE difficulty <= ?`), ceiling)
	if err != nil {
		return 0, fmt.Errorf("failed to count sentences: %w", err)
	}
	return count, nil
}
