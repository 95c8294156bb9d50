package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	apperrors "caesar-in-a-year/internal/common/errors"
	"caesar-in-a-year/internal/domain/content"
	"caesar-in-a-year/internal/domain/grading"
	"caesar-in-a-year/internal/domain/learning"
	"caesar-in-a-year/internal/domain/session"
	"caesar-in-a-year/internal/domain/user"
)

// AnswerGrader grades a learner's answer. Implementations are expected to
// turn grader failures into fallback results; only invalid input errors.
type AnswerGrader interface {
	Grade(ctx context.Context, learnerID string, req grading.Request) (grading.Result, error)
}

// XPRewards is the experience awarded per outcome and per finished session
type XPRewards struct {
	Correct      int
	Partial      int
	Incorrect    int
	SessionBonus int
}

// DefaultXPRewards are the stock rewards
var DefaultXPRewards = XPRewards{Correct: 10, Partial: 5, Incorrect: 1, SessionBonus: 25}

// For returns the XP earned by one graded item
func (r XPRewards) For(o learning.Outcome) int {
	switch o {
	case learning.OutcomeCorrect:
		return r.Correct
	case learning.OutcomePartial:
		return r.Partial
	case learning.OutcomeIncorrect:
		return r.Incorrect
	}
	return 0
}

// SessionUseCase composes daily sessions and runs learners through them
type SessionUseCase struct {
	sessionRepo  session.Repository
	learningRepo learning.Repository
	contentRepo  content.Repository
	userRepo     user.Repository
	learners     *LearnerUseCase
	composer     *session.Composer
	scheduler    *learning.Scheduler
	grader       AnswerGrader
	xp           XPRewards
	log          *zap.Logger
	now          func() time.Time
}

// NewSessionUseCase creates a new session use case
func NewSessionUseCase(
	sessionRepo session.Repository,
	learningRepo learning.Repository,
	contentRepo content.Repository,
	userRepo user.Repository,
	learners *LearnerUseCase,
	composer *session.Composer,
	scheduler *learning.Scheduler,
	grader AnswerGrader,
	xp XPRewards,
	log *zap.Logger,
) *SessionUseCase {
	return &SessionUseCase{
		sessionRepo:  sessionRepo,
		learningRepo: learningRepo,
		contentRepo:  contentRepo,
		userRepo:     userRepo,
		learners:     learners,
		composer:     composer,
		scheduler:    scheduler,
		grader:       grader,
		xp:           xp,
		log:          log,
		now:          time.Now,
	}
}

// StartSession returns the learner's active session, or composes and stores
// a new one
func (uc *SessionUseCase) StartSession(ctx context.Context, userID user.ID) (*session.Session, error) {
	progress, err := uc.learners.EnsureLearner(ctx, userID)
	if err != nil {
		return nil, err
	}

	active, err := uc.sessionRepo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find active session: %w", err)
	}
	if active != nil {
		return active, nil
	}

	now := uc.now()
	ceiling := progress.DifficultyCeiling()
	tier := uc.composer.Tier(progress.DaysActive())

	if err := uc.introduceDrills(ctx, userID, ceiling, tier, now); err != nil {
		return nil, err
	}

	pools, err := uc.loadPools(ctx, userID, ceiling, tier, now)
	if err != nil {
		return nil, err
	}

	items := uc.composer.Compose(ceiling, pools, progress.DaysActive())
	s := session.New(userID, items, now)
	if err := uc.sessionRepo.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	uc.log.Info("session started",
		zap.String("learner_id", string(userID)),
		zap.String("session_id", string(s.ID())),
		zap.String("tier", tier.Name),
		zap.Int("items", s.Len()),
	)
	return s, nil
}

// introduceDrills creates fresh cards for unseen words and phrases when the
// learner has fewer due drills than the tier asks for
func (uc *SessionUseCase) introduceDrills(ctx context.Context, userID user.ID, ceiling int, tier session.TierConfig, now time.Time) error {
	type source struct {
		kind   learning.Kind
		want   int
		unseen func(limit int) ([]string, error)
	}
	sources := []source{
		{kind: learning.KindVocab, want: tier.VocabCount, unseen: func(limit int) ([]string, error) {
			words, err := uc.contentRepo.FindUnseenVocabulary(ctx, userID, ceiling, limit)
			ids := make([]string, 0, len(words))
			for _, w := range words {
				ids = append(ids, w.ID)
			}
			return ids, err
		}},
		{kind: learning.KindPhrase, want: tier.PhraseCount, unseen: func(limit int) ([]string, error) {
			phrases, err := uc.contentRepo.FindUnseenPhrases(ctx, userID, ceiling, limit)
			ids := make([]string, 0, len(phrases))
			for _, p := range phrases {
				ids = append(ids, p.ID)
			}
			return ids, err
		}},
	}

	for _, src := range sources {
		if src.want == 0 {
			continue
		}
		due, err := uc.learningRepo.FindDue(ctx, userID, src.kind, now, src.want)
		if err != nil {
			return fmt.Errorf("failed to load due %s cards: %w", src.kind, err)
		}
		missing := src.want - len(due)
		if missing <= 0 {
			continue
		}

		ids, err := src.unseen(missing)
		if err != nil {
			return fmt.Errorf("failed to load unseen %s content: %w", src.kind, err)
		}
		for _, id := range ids {
			card := learning.NewUserCard(userID, src.kind, id, now)
			if err := uc.learningRepo.SaveCardAndHistory(ctx, card, nil); err != nil {
				return fmt.Errorf("failed to introduce %s card: %w", src.kind, err)
			}
		}
		if len(ids) > 0 {
			uc.log.Debug("introduced drill cards",
				zap.String("learner_id", string(userID)),
				zap.Stringer("kind", src.kind),
				zap.Int("count", len(ids)),
			)
		}
	}
	return nil
}

func (uc *SessionUseCase) loadPools(ctx context.Context, userID user.ID, ceiling int, tier session.TierConfig, now time.Time) (session.Pools, error) {
	var pools session.Pools

	dueSentences, seenSentences, err := uc.cardsFor(ctx, userID, learning.KindSentence, ceiling, tier.ReviewCount, now)
	if err != nil {
		return pools, err
	}
	dueVocab, seenVocab, err := uc.cardsFor(ctx, userID, learning.KindVocab, ceiling, tier.VocabCount, now)
	if err != nil {
		return pools, err
	}
	duePhrases, seenPhrases, err := uc.cardsFor(ctx, userID, learning.KindPhrase, ceiling, tier.PhraseCount, now)
	if err != nil {
		return pools, err
	}

	sentences, err := uc.contentRepo.FindSentencesByIDs(ctx, contentIDs(dueSentences, seenSentences))
	if err != nil {
		return pools, fmt.Errorf("failed to load sentences: %w", err)
	}
	words, err := uc.contentRepo.FindVocabularyByIDs(ctx, contentIDs(dueVocab, seenVocab))
	if err != nil {
		return pools, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	phrases, err := uc.contentRepo.FindPhrasesByIDs(ctx, contentIDs(duePhrases, seenPhrases))
	if err != nil {
		return pools, fmt.Errorf("failed to load phrases: %w", err)
	}

	pools.DueSentences = resolve(dueSentences, sentences, toSentenceCard)
	pools.SeenSentences = resolve(seenSentences, sentences, toSentenceCard)
	pools.DueVocab = resolve(dueVocab, words, toVocabCard)
	pools.SeenVocab = resolve(seenVocab, words, toVocabCard)
	pools.DuePhrases = resolve(duePhrases, phrases, toPhraseCard)
	pools.SeenPhrases = resolve(seenPhrases, phrases, toPhraseCard)

	if tier.NewSentenceCount > 0 {
		pools.Candidates, err = uc.contentRepo.FindUnseenSentences(ctx, userID, ceiling, tier.NewSentenceCount)
		if err != nil {
			return pools, fmt.Errorf("failed to load new sentences: %w", err)
		}
	}
	return pools, nil
}

// cardsFor loads up to limit due cards and up to limit seen, not-due cards
func (uc *SessionUseCase) cardsFor(ctx context.Context, userID user.ID, kind learning.Kind, ceiling, limit int, now time.Time) (due, seen []*learning.UserCard, err error) {
	if limit == 0 {
		return nil, nil, nil
	}
	due, err = uc.learningRepo.FindDue(ctx, userID, kind, now, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load due %s cards: %w", kind, err)
	}
	seen, err = uc.learningRepo.FindSeenNotDue(ctx, userID, kind, ceiling, now, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load seen %s cards: %w", kind, err)
	}
	return due, seen, nil
}

func contentIDs(groups ...[]*learning.UserCard) []string {
	var ids []string
	for _, cards := range groups {
		for _, c := range cards {
			ids = append(ids, c.ContentID())
		}
	}
	return ids
}

// resolve pairs cards with their content, dropping cards whose content is
// gone from the corpus
func resolve[C, T any](cards []*learning.UserCard, byID map[string]C, pair func(learning.ID, C) T) []T {
	out := make([]T, 0, len(cards))
	for _, c := range cards {
		item, ok := byID[c.ContentID()]
		if !ok {
			continue
		}
		out = append(out, pair(c.ID(), item))
	}
	return out
}

func toSentenceCard(id learning.ID, s content.Sentence) session.SentenceCard {
	return session.SentenceCard{CardID: id, Sentence: s}
}

func toVocabCard(id learning.ID, w content.VocabWord) session.VocabCard {
	return session.VocabCard{CardID: id, Word: w}
}

func toPhraseCard(id learning.ID, p content.Phrase) session.PhraseCard {
	return session.PhraseCard{CardID: id, Phrase: p}
}

// GetSession loads a session owned by the learner
func (uc *SessionUseCase) GetSession(ctx context.Context, userID user.ID, id session.ID) (*session.Session, error) {
	s, err := uc.sessionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if s == nil {
		return nil, apperrors.NotFound("session")
	}
	if !s.OwnedBy(userID) {
		return nil, apperrors.Forbidden("session belongs to another learner")
	}
	return s, nil
}

// AdvanceOutcome is the session position after an advance
type AdvanceOutcome struct {
	session.AdvanceResult
	XPAwarded int
}

// Advance moves a session forward. The call that completes the session
// credits the streak and the completion bonus.
func (uc *SessionUseCase) Advance(ctx context.Context, userID user.ID, id session.ID, index int) (*AdvanceOutcome, error) {
	if index < 0 {
		return nil, apperrors.Validation("invalid index", "index must not be negative")
	}

	s, err := uc.GetSession(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	res := s.Advance(index, now)
	completed, err := uc.sessionRepo.UpdateProgression(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	// a concurrent request may have stored the completion first
	res.Completed = completed
	out := &AdvanceOutcome{AdvanceResult: res}
	if !completed {
		return out, nil
	}

	progress, err := uc.learners.EnsureLearner(ctx, userID)
	if err != nil {
		return nil, err
	}
	progress.RecordSessionCompletion(now)
	progress.AwardXP(uc.xp.SessionBonus, now)
	if err := uc.userRepo.SaveProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	out.XPAwarded = uc.xp.SessionBonus

	uc.log.Info("session completed",
		zap.String("learner_id", string(userID)),
		zap.String("session_id", string(s.ID())),
		zap.Int("streak", progress.Streak()),
	)
	return out, nil
}

// AnswerOutcome is the graded answer plus the rescheduled cards
type AnswerOutcome struct {
	Result    grading.Result
	Cards     []*learning.UserCard
	XPAwarded int
}

// reviewUnit is one card touched by an answer. cardID is empty for content
// the learner has not met yet.
type reviewUnit struct {
	cardID    learning.ID
	kind      learning.Kind
	contentID string
}

// SubmitAnswer grades the answer to the session's current item and
// reschedules every card it covers. Each item is graded once; a repeated
// submission is a conflict and never reaches the grader.
func (uc *SessionUseCase) SubmitAnswer(ctx context.Context, userID user.ID, id session.ID, index int, answer string) (*AnswerOutcome, error) {
	s, err := uc.GetSession(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if s.IsComplete() {
		return nil, apperrors.Conflict("session is already complete")
	}
	if index != s.CurrentIndex() {
		return nil, apperrors.Conflict(fmt.Sprintf("item %d is not the current item", index))
	}
	item, ok := s.Item(index)
	if !ok {
		return nil, apperrors.NotFound("session item")
	}

	req, units, err := gradingTarget(item)
	if err != nil {
		return nil, err
	}
	req.UserAnswer = answer
	if _, err := grading.Precheck(req); errors.Is(err, grading.ErrAnswerTooLong) {
		return nil, apperrors.Validation("answer too long", err.Error())
	}

	previous := s.AnsweredIndex()
	if !s.MarkAnswered(index) {
		return nil, apperrors.Conflict(fmt.Sprintf("item %d was already answered", index))
	}
	claimed, err := uc.sessionRepo.ClaimAnswer(ctx, s.ID(), index)
	if err != nil {
		return nil, fmt.Errorf("failed to claim answer: %w", err)
	}
	if !claimed {
		return nil, apperrors.Conflict(fmt.Sprintf("item %d was already answered", index))
	}

	result, err := uc.grader.Grade(ctx, string(userID), req)
	if err != nil {
		if rerr := uc.sessionRepo.ReleaseAnswer(ctx, s.ID(), index, previous); rerr != nil {
			uc.log.Warn("failed to release answer claim",
				zap.String("session_id", string(s.ID())),
				zap.Int("index", index),
				zap.Error(rerr),
			)
		}
		if errors.Is(err, grading.ErrAnswerTooLong) {
			return nil, apperrors.Validation("answer too long", err.Error())
		}
		return nil, fmt.Errorf("failed to grade answer: %w", err)
	}

	now := uc.now()
	cards := make([]*learning.UserCard, 0, len(units))
	for _, u := range units {
		card, err := uc.review(ctx, userID, u, result, now)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}

	xp := uc.xp.For(result.Status)
	progress, err := uc.learners.EnsureLearner(ctx, userID)
	if err != nil {
		return nil, err
	}
	progress.AwardXP(xp, now)
	if err := uc.userRepo.SaveProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	uc.log.Info("answer graded",
		zap.String("learner_id", string(userID)),
		zap.String("session_id", string(s.ID())),
		zap.Int("index", index),
		zap.Stringer("item", item.Kind()),
		zap.String("status", string(result.Status)),
		zap.Bool("fallback", result.Fallback),
	)
	return &AnswerOutcome{Result: result, Cards: cards, XPAwarded: xp}, nil
}

// gradingTarget builds the grading request for an item and lists the cards
// its answer covers
func gradingTarget(item session.Item) (grading.Request, []reviewUnit, error) {
	var (
		req   grading.Request
		units []reviewUnit
	)
	switch it := item.(type) {
	case session.ReviewItem:
		req = grading.Request{
			LatinText:       it.Sentence.Latin,
			ReferenceAnswer: it.Sentence.ReferenceTranslation,
			Context:         "Review of De Bello Gallico " + it.Sentence.ID,
		}
		units = []reviewUnit{{cardID: it.CardID, kind: learning.KindSentence, contentID: it.Sentence.ID}}
	case session.NewReadingItem:
		latin, reference := content.Passage(it.Sentences)
		req = grading.Request{
			LatinText:       latin,
			ReferenceAnswer: reference,
			Context:         "New reading passage from De Bello Gallico",
		}
		for _, sentence := range it.Sentences {
			units = append(units, reviewUnit{kind: learning.KindSentence, contentID: sentence.ID})
		}
	case session.VocabDrillItem:
		req = grading.Request{
			LatinText:       it.Word.Lemma,
			ReferenceAnswer: it.Word.Gloss,
			Context:         "Vocabulary drill: give the English meaning of the word",
		}
		units = []reviewUnit{{cardID: it.CardID, kind: learning.KindVocab, contentID: it.Word.ID}}
	case session.PhraseDrillItem:
		req = grading.Request{
			LatinText:       it.Phrase.Latin,
			ReferenceAnswer: it.Phrase.Translation,
			Context:         "Phrase drill: translate the phrase",
		}
		units = []reviewUnit{{cardID: it.CardID, kind: learning.KindPhrase, contentID: it.Phrase.ID}}
	default:
		return req, nil, fmt.Errorf("%w: %T", session.ErrUnknownItemKind, item)
	}
	return req, units, nil
}

// review reschedules one card with the graded outcome and logs the review
func (uc *SessionUseCase) review(ctx context.Context, userID user.ID, u reviewUnit, result grading.Result, now time.Time) (*learning.UserCard, error) {
	card, err := uc.findCard(ctx, userID, u)
	if err != nil {
		return nil, err
	}
	if card == nil {
		card = learning.NewUserCard(userID, u.kind, u.contentID, now)
	}

	next, log := uc.scheduler.Review(card.Card(), learning.ToRating(result.Status), now)
	card.Apply(next, now)
	history := learning.NewReviewHistory(card, result.Status, log, result.Fallback)

	if err := uc.learningRepo.SaveCardAndHistory(ctx, card, history); err != nil {
		return nil, fmt.Errorf("failed to save card: %w", err)
	}
	return card, nil
}

func (uc *SessionUseCase) findCard(ctx context.Context, userID user.ID, u reviewUnit) (*learning.UserCard, error) {
	if u.cardID != "" {
		card, err := uc.learningRepo.FindCard(ctx, u.cardID)
		if err != nil {
			return nil, fmt.Errorf("failed to find card: %w", err)
		}
		if card != nil && card.UserID() == userID {
			return card, nil
		}
	}

	card, err := uc.learningRepo.FindByContent(ctx, userID, u.kind, u.contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	return card, nil
}
