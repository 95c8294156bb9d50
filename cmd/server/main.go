package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"caesar-in-a-year/internal/application/usecases"
	"caesar-in-a-year/internal/domain/content"
	"caesar-in-a-year/internal/domain/grading"
	"caesar-in-a-year/internal/domain/learning"
	"caesar-in-a-year/internal/domain/session"
	"caesar-in-a-year/internal/infrastructure/ai"
	"caesar-in-a-year/internal/infrastructure/filesystem"
	"caesar-in-a-year/internal/infrastructure/persistence"
	"caesar-in-a-year/internal/infrastructure/resilience"
	"caesar-in-a-year/internal/infrastructure/telegram"
	httpapi "caesar-in-a-year/internal/interfaces/http"
	"caesar-in-a-year/internal/interfaces/telegram/handlers"
	"caesar-in-a-year/pkg/config"
	"caesar-in-a-year/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Server.Env, cfg.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger.L()); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.Type == "sqlite" {
		if err := ensureSQLiteDir(cfg.Database.DSN); err != nil {
			return err
		}
	}
	db, err := persistence.NewDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	// Initialize repositories
	userRepo := persistence.NewUserRepository(db)
	preferencesRepo := persistence.NewUserPreferencesRepository(db)
	learningRepo := persistence.NewLearningRepository(db)
	contentRepo := persistence.NewContentRepository(db)
	sessionRepo := persistence.NewSessionRepository(db)

	if err := importCorpus(ctx, cfg.Corpus.Path, contentRepo, log); err != nil {
		return err
	}

	scheduler, err := learning.NewScheduler(learning.SchedulerConfig{
		DesiredRetention: cfg.Scheduler.DesiredRetention,
		LearningSteps:    cfg.Scheduler.LearningSteps,
		RelearningSteps:  cfg.Scheduler.RelearningSteps,
		MaximumInterval:  cfg.Scheduler.MaximumInterval,
	})
	if err != nil {
		return fmt.Errorf("invalid scheduler configuration: %w", err)
	}
	composer, err := session.NewComposer(cfg.Progression.Tiers)
	if err != nil {
		return fmt.Errorf("invalid progression tiers: %w", err)
	}

	guard := resilience.NewGuardedGrader(
		newGrader(cfg.Grader, log),
		resilience.NewCallBudget(cfg.Guard.CallBudget, cfg.Guard.Window),
		resilience.NewCircuitBreaker(cfg.Guard.FailureThreshold, cfg.Guard.Cooldown),
		cfg.Guard.Timeout,
		resilience.WithMetrics(resilience.NewMetrics(prometheus.DefaultRegisterer)),
		resilience.WithLogger(log),
	)

	// Initialize use cases
	learners := usecases.NewLearnerUseCase(userRepo, preferencesRepo, learningRepo, contentRepo,
		cfg.Progression.InitialCeiling, cfg.Progression.LevelUpIncrement, log)
	xp := usecases.XPRewards{
		Correct:      cfg.Progression.XP.Correct,
		Partial:      cfg.Progression.XP.Partial,
		Incorrect:    cfg.Progression.XP.Incorrect,
		SessionBonus: cfg.Progression.XP.SessionBonus,
	}
	sessions := usecases.NewSessionUseCase(sessionRepo, learningRepo, contentRepo, userRepo,
		learners, composer, scheduler, guard, xp, log)

	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(cfg.Telegram.Token, log)
		if err != nil {
			return err
		}
		if err := bot.SetupCommands(); err != nil {
			log.Warn("failed to set up bot commands", zap.Error(err))
		}

		reminders := usecases.NewReminderUseCase(bot, userRepo, preferencesRepo, learningRepo, &usecases.ReminderConfig{
			CheckInterval:       cfg.Reminder.CheckInterval,
			MinReminderInterval: cfg.Reminder.MinInterval,
			QuietHoursStart:     cfg.Reminder.QuietHoursStart,
			QuietHoursEnd:       cfg.Reminder.QuietHoursEnd,
			MaxRemindersPerDay:  cfg.Reminder.MaxPerDay,
		}, log)
		if err := reminders.Start(ctx); err != nil {
			return err
		}
		defer reminders.Stop()

		botHandler := handlers.NewBotHandler(bot, learners, log)
		updates := bot.GetUpdatesChan()
		defer bot.StopReceivingUpdates()
		go func() {
			if err := botHandler.Start(ctx, updates); err != nil {
				log.Error("telegram bot stopped", zap.Error(err))
			}
		}()
	} else {
		log.Info("TELEGRAM_BOT_TOKEN not set, reminders disabled")
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(httpapi.NewHandler(sessions, learners, log), guard, prometheus.DefaultGatherer, log)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

func newGrader(cfg config.GraderConfig, log *zap.Logger) grading.Grader {
	if cfg.APIKey == "" {
		log.Warn("GEMINI_API_KEY not set, answers will receive fallback feedback")
		return grading.Unavailable{}
	}
	g, err := ai.NewGemini(cfg.Endpoint, cfg.Model, cfg.APIKey)
	if err != nil {
		log.Warn("grader disabled", zap.Error(err))
		return grading.Unavailable{}
	}
	return g
}

// importCorpus loads the corpus file into the content tables. A missing
// file is not an error so a server can start against an existing database.
func importCorpus(ctx context.Context, path string, repo content.Repository, log *zap.Logger) error {
	if path == "" {
		return nil
	}
	corpus, err := filesystem.NewCorpusLoader().LoadFromFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("corpus file not found, skipping import", zap.String("path", path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	if err := repo.SaveSentences(ctx, corpus.Sentences); err != nil {
		return fmt.Errorf("failed to import sentences: %w", err)
	}
	if err := repo.SaveVocabulary(ctx, corpus.Vocabulary); err != nil {
		return fmt.Errorf("failed to import vocabulary: %w", err)
	}
	if err := repo.SavePhrases(ctx, corpus.Phrases); err != nil {
		return fmt.Errorf("failed to import phrases: %w", err)
	}

	log.Info("corpus imported",
		zap.Int("sentences", len(corpus.Sentences)),
		zap.Int("vocabulary", len(corpus.Vocabulary)),
		zap.Int("phrases", len(corpus.Phrases)),
	)
	return nil
}

func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(strings.SplitN(dsn, "?", 2)[0], "file:")
	if path == "" || path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}
