package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"caesar-in-a-year/internal/domain/learning"
	"caesar-in-a-year/internal/domain/user"
)

// Notifier delivers a reminder to a chat
type Notifier interface {
	SendReminder(chatID int64, text string) error
}

// ReminderConfig holds configuration for the reminder system
type ReminderConfig struct {
	// How often to check for reminders
	CheckInterval time.Duration
	// Minimum time between reminders for the same learner
	MinReminderInterval time.Duration
	// Hours of day when no reminders are sent (24-hour format)
	QuietHoursStart int
	QuietHoursEnd   int
	// Maximum reminders per day per learner
	MaxRemindersPerDay int
}

// DefaultReminderConfig returns sensible defaults for reminders
func DefaultReminderConfig() *ReminderConfig {
	return &ReminderConfig{
		CheckInterval:       30 * time.Minute,
		MinReminderInterval: 4 * time.Hour,
		QuietHoursStart:     22,
		QuietHoursEnd:       8,
		MaxRemindersPerDay:  1,
	}
}

// ReminderUseCase nudges learners with due cards through their linked chat
type ReminderUseCase struct {
	notifier        Notifier
	userRepo        user.Repository
	preferencesRepo user.PreferencesRepository
	learningRepo    learning.Repository
	config          *ReminderConfig
	log             *zap.Logger
	now             func() time.Time

	mu            sync.Mutex
	reminderState map[user.ID]*reminderState
	scheduler     *gocron.Scheduler
}

type reminderState struct {
	lastSent  time.Time
	sentToday int
	lastCheck time.Time
}

// NewReminderUseCase creates a new reminder use case
func NewReminderUseCase(
	notifier Notifier,
	userRepo user.Repository,
	preferencesRepo user.PreferencesRepository,
	learningRepo learning.Repository,
	config *ReminderConfig,
	log *zap.Logger,
) *ReminderUseCase {
	if config == nil {
		config = DefaultReminderConfig()
	}

	return &ReminderUseCase{
		notifier:        notifier,
		userRepo:        userRepo,
		preferencesRepo: preferencesRepo,
		learningRepo:    learningRepo,
		config:          config,
		log:             log,
		now:             time.Now,
		reminderState:   make(map[user.ID]*reminderState),
	}
}

// Start schedules the periodic reminder check. The job runs until Stop.
func (uc *ReminderUseCase) Start(ctx context.Context) error {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	_, err := s.Every(uc.config.CheckInterval).Do(func() {
		sent := uc.CheckAndSend(ctx)
		if sent > 0 {
			uc.log.Info("reminders sent", zap.Int("count", sent))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}

	uc.scheduler = s
	s.StartAsync()
	uc.log.Info("reminder service started", zap.Duration("check_interval", uc.config.CheckInterval))
	return nil
}

// Stop halts the reminder job
func (uc *ReminderUseCase) Stop() {
	if uc.scheduler != nil {
		uc.scheduler.Stop()
		uc.log.Info("reminder service stopped")
	}
}

// CheckAndSend reminds every eligible learner once and returns how many
// reminders went out
func (uc *ReminderUseCase) CheckAndSend(ctx context.Context) int {
	now := uc.now()
	if uc.isQuietTime(now) {
		return 0
	}

	userIDs, err := uc.learningRepo.GetUsersWithProgress(ctx)
	if err != nil {
		uc.log.Error("failed to get learners with cards", zap.Error(err))
		return 0
	}

	sent := 0
	for _, id := range userIDs {
		if ctx.Err() != nil {
			break
		}
		if uc.remind(ctx, id, now) {
			sent++
		}
	}
	return sent
}

func (uc *ReminderUseCase) remind(ctx context.Context, userID user.ID, now time.Time) bool {
	if !uc.allowed(userID, now) {
		return false
	}

	prefs, err := uc.preferencesRepo.FindPreferences(ctx, userID)
	if err != nil {
		uc.log.Warn("failed to load preferences", zap.String("learner_id", string(userID)), zap.Error(err))
		return false
	}
	chatID := prefs.TelegramChatID()
	if chatID == 0 || !prefs.RemindersEnabled() {
		return false
	}

	u, err := uc.userRepo.FindByID(ctx, userID)
	if err != nil || u == nil {
		return false
	}
	// recently active learners don't need a nudge
	if now.Sub(u.LastActive()) < time.Hour {
		return false
	}

	due, err := uc.learningRepo.CountDue(ctx, userID, now)
	if err != nil {
		uc.log.Warn("failed to count due cards", zap.String("learner_id", string(userID)), zap.Error(err))
		return false
	}
	if due == 0 {
		return false
	}

	if err := uc.notifier.SendReminder(chatID, reminderMessage(due, now)); err != nil {
		uc.log.Warn("failed to send reminder",
			zap.String("learner_id", string(userID)),
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
		return false
	}

	uc.markSent(userID, now)
	return true
}

// allowed applies the daily cap and the minimum spacing
func (uc *ReminderUseCase) allowed(userID user.ID, now time.Time) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	state, ok := uc.reminderState[userID]
	if !ok {
		state = &reminderState{lastCheck: now}
		uc.reminderState[userID] = state
	}
	if !isSameDay(state.lastCheck, now) {
		state.sentToday = 0
	}
	state.lastCheck = now

	if state.sentToday >= uc.config.MaxRemindersPerDay {
		return false
	}
	return state.lastSent.IsZero() || now.Sub(state.lastSent) >= uc.config.MinReminderInterval
}

func (uc *ReminderUseCase) markSent(userID user.ID, now time.Time) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	state := uc.reminderState[userID]
	state.lastSent = now
	state.sentToday++
}

func reminderMessage(due int, now time.Time) string {
	var greeting string
	switch hour := now.Hour(); {
	case hour < 12:
		greeting = "Salve! Good morning"
	case hour < 17:
		greeting = "Salve! Good afternoon"
	default:
		greeting = "Salve! Good evening"
	}

	if due == 1 {
		return fmt.Sprintf("%s.\n\nOne card is ready for review. A short session keeps Caesar fresh.", greeting)
	}
	return fmt.Sprintf("%s.\n\n%d cards are ready for review. Today's session is waiting for you.", greeting, due)
}

// isQuietTime checks if t falls within quiet hours
func (uc *ReminderUseCase) isQuietTime(t time.Time) bool {
	hour := t.Hour()
	start := uc.config.QuietHoursStart
	end := uc.config.QuietHoursEnd

	if start == end {
		return false
	}
	if start > end {
		// wraps midnight, e.g. 22:00 to 08:00
		return hour >= start || hour < end
	}
	return hour >= start && hour < end
}

func isSameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
