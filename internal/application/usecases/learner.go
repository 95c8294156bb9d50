package usecases

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	apperrors "caesar-in-a-year/internal/common/errors"
	"caesar-in-a-year/internal/domain/content"
	"caesar-in-a-year/internal/domain/learning"
	"caesar-in-a-year/internal/domain/user"
)

// LearnerUseCase handles learner accounts, progress and gating
type LearnerUseCase struct {
	userRepo         user.Repository
	preferencesRepo  user.PreferencesRepository
	learningRepo     learning.Repository
	contentRepo      content.Repository
	initialCeiling   int
	levelUpIncrement int
	log              *zap.Logger
	now              func() time.Time
}

// NewLearnerUseCase creates a new learner use case
func NewLearnerUseCase(
	userRepo user.Repository,
	preferencesRepo user.PreferencesRepository,
	learningRepo learning.Repository,
	contentRepo content.Repository,
	initialCeiling, levelUpIncrement int,
	log *zap.Logger,
) *LearnerUseCase {
	return &LearnerUseCase{
		userRepo:         userRepo,
		preferencesRepo:  preferencesRepo,
		learningRepo:     learningRepo,
		contentRepo:      contentRepo,
		initialCeiling:   initialCeiling,
		levelUpIncrement: levelUpIncrement,
		log:              log,
		now:              time.Now,
	}
}

// ProgressView is the learner's progress plus live counters
type ProgressView struct {
	Progress *user.Progress
	DueCards int
}

// EnsureLearner records the learner's activity, creating the user and their
// progress on first contact
func (uc *LearnerUseCase) EnsureLearner(ctx context.Context, userID user.ID) (*user.Progress, error) {
	if !userID.Valid() {
		return nil, apperrors.Unauthorized("missing learner identity")
	}
	now := uc.now()

	u, err := uc.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		u = user.NewUser(userID, now)
		uc.log.Info("new learner", zap.String("learner_id", string(userID)))
	} else {
		u.UpdateLastActive(now)
	}
	if err := uc.userRepo.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	progress, err := uc.userRepo.FindProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find progress: %w", err)
	}
	if progress != nil {
		return progress, nil
	}

	progress = user.NewProgress(userID, uc.initialCeiling, now)
	if err := uc.userRepo.SaveProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	return progress, nil
}

// GetProgress returns the learner's progress and how many cards are due
func (uc *LearnerUseCase) GetProgress(ctx context.Context, userID user.ID) (*ProgressView, error) {
	progress, err := uc.EnsureLearner(ctx, userID)
	if err != nil {
		return nil, err
	}

	due, err := uc.learningRepo.CountDue(ctx, userID, uc.now())
	if err != nil {
		return nil, fmt.Errorf("failed to count due cards: %w", err)
	}
	return &ProgressView{Progress: progress, DueCards: due}, nil
}

// LevelUp raises the difficulty ceiling. A zero increment uses the
// configured default.
func (uc *LearnerUseCase) LevelUp(ctx context.Context, userID user.ID, increment int) (*user.Progress, error) {
	if increment < 0 {
		return nil, apperrors.Validation("invalid increment", "increment must not be negative")
	}
	if increment == 0 {
		increment = uc.levelUpIncrement
	}

	progress, err := uc.EnsureLearner(ctx, userID)
	if err != nil {
		return nil, err
	}

	before := progress.DifficultyCeiling()
	after := progress.LevelUp(increment, uc.now())
	if after == before {
		return progress, nil
	}

	if err := uc.userRepo.SaveProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	uc.log.Info("difficulty ceiling raised",
		zap.String("learner_id", string(userID)),
		zap.Int("from", before),
		zap.Int("to", after),
	)
	return progress, nil
}

// Mastery summarises sentence mastery within the learner's current ceiling
func (uc *LearnerUseCase) Mastery(ctx context.Context, userID user.ID) (learning.MasterySummary, error) {
	progress, err := uc.EnsureLearner(ctx, userID)
	if err != nil {
		return learning.MasterySummary{}, err
	}
	ceiling := progress.DifficultyCeiling()

	userCards, err := uc.learningRepo.FindWithinCeiling(ctx, userID, learning.KindSentence, ceiling)
	if err != nil {
		return learning.MasterySummary{}, fmt.Errorf("failed to load cards: %w", err)
	}
	total, err := uc.contentRepo.CountSentencesWithinCeiling(ctx, ceiling)
	if err != nil {
		return learning.MasterySummary{}, fmt.Errorf("failed to count sentences: %w", err)
	}

	cards := make([]learning.Card, 0, len(userCards))
	for _, c := range userCards {
		cards = append(cards, c.Card())
	}
	return learning.SummarizeMastery(ceiling, total, cards), nil
}

// LinkTelegramChat attaches a Telegram chat to the learner for reminders.
// A chat belongs to one learner at a time; any previous holder is unlinked.
func (uc *LearnerUseCase) LinkTelegramChat(ctx context.Context, userID user.ID, chatID int64) error {
	if _, err := uc.EnsureLearner(ctx, userID); err != nil {
		return err
	}
	if err := uc.unlinkTelegramChat(ctx, userID, chatID); err != nil {
		return err
	}

	prefs, err := uc.preferencesRepo.FindPreferences(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}
	prefs.SetTelegramChatID(chatID)
	prefs.SetRemindersEnabled(true)
	if err := uc.preferencesRepo.SavePreferences(ctx, prefs); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// unlinkTelegramChat clears chatID from every learner other than keep
func (uc *LearnerUseCase) unlinkTelegramChat(ctx context.Context, keep user.ID, chatID int64) error {
	value := strconv.FormatInt(chatID, 10)
	for {
		holder, err := uc.preferencesRepo.FindUserByPreference(ctx, user.PrefTelegramChatID, value)
		if err != nil {
			return fmt.Errorf("failed to find chat holder: %w", err)
		}
		if holder == "" || holder == keep {
			return nil
		}
		if err := uc.preferencesRepo.UpdatePreference(ctx, holder, user.PrefTelegramChatID, ""); err != nil {
			return fmt.Errorf("failed to unlink chat from previous learner: %w", err)
		}
		uc.log.Info("telegram chat moved to another learner",
			zap.String("from", string(holder)),
			zap.String("to", string(keep)),
		)
	}
}

// FindByTelegramChat returns the learner linked to a chat, or "" if none
func (uc *LearnerUseCase) FindByTelegramChat(ctx context.Context, chatID int64) (user.ID, error) {
	id, err := uc.preferencesRepo.FindUserByPreference(ctx, user.PrefTelegramChatID, strconv.FormatInt(chatID, 10))
	if err != nil {
		return "", fmt.Errorf("failed to find learner by chat: %w", err)
	}
	return id, nil
}

// SetReminders turns daily reminders on or off
func (uc *LearnerUseCase) SetReminders(ctx context.Context, userID user.ID, enabled bool) error {
	err := uc.preferencesRepo.UpdatePreference(ctx, userID, user.PrefRemindersEnabled, strconv.FormatBool(enabled))
	if err != nil {
		return fmt.Errorf("failed to update reminders: %w", err)
	}
	return nil
}
