package content

import (
	"context"

	"caesar-in-a-year/internal/domain/user"
)

// Repository defines the contract for corpus persistence
type Repository interface {
	// SaveSentences upserts sentences
	SaveSentences(ctx context.Context, sentences []Sentence) error

	// SaveVocabulary upserts vocabulary words
	SaveVocabulary(ctx context.Context, words []VocabWord) error

	// SavePhrases upserts phrases
	SavePhrases(ctx context.Context, phrases []Phrase) error

	// FindSentencesByIDs retrieves sentences keyed by id; unknown ids are skipped
	FindSentencesByIDs(ctx context.Context, ids []string) (map[string]Sentence, error)

	// FindVocabularyByIDs retrieves vocabulary keyed by id; unknown ids are skipped
	FindVocabularyByIDs(ctx context.Context, ids []string) (map[string]VocabWord, error)

	// FindPhrasesByIDs retrieves phrases keyed by id; unknown ids are skipped
	FindPhrasesByIDs(ctx context.Context, ids []string) (map[string]Phrase, error)

	// FindUnseenSentences retrieves sentences at or below the ceiling that the
	// learner has no card for, easiest first
	FindUnseenSentences(ctx context.Context, userID user.ID, ceiling, limit int) ([]Sentence, error)

	// FindUnseenVocabulary retrieves words at or below the ceiling that the
	// learner has no card for, easiest first
	FindUnseenVocabulary(ctx context.Context, userID user.ID, ceiling, limit int) ([]VocabWord, error)

	// FindUnseenPhrases retrieves phrases at or below the ceiling that the
	// learner has no card for, easiest first
	FindUnseenPhrases(ctx context.Context, userID user.ID, ceiling, limit int) ([]Phrase, error)

	// CountSentencesWithinCeiling counts sentences at or below the ceiling
	CountSentencesWithinCeiling(ctx context.Context, ceiling int) (int, error)
}
