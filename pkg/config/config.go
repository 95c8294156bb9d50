package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"caesar-in-a-year/internal/common/validation"
	"caesar-in-a-year/internal/domain/session"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Logging     LoggingConfig     `yaml:"logging"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Progression ProgressionConfig `yaml:"progression"`
	Guard       GuardConfig       `yaml:"guard"`
	Grader      GraderConfig      `yaml:"grader"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Reminder    ReminderConfig    `yaml:"reminder"`
	Corpus      CorpusConfig      `yaml:"corpus"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" validate:"required"`
	Port            string        `yaml:"port" validate:"required,numeric"`
	Env             string        `yaml:"env" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

type DatabaseConfig struct {
	Type string `yaml:"type" validate:"oneof=sqlite postgres"` // "sqlite" or "postgres"
	DSN  string `yaml:"dsn" validate:"required"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

type SchedulerConfig struct {
	DesiredRetention float64         `yaml:"desired_retention" validate:"gt=0,lt=1"`
	MaximumInterval  int             `yaml:"maximum_interval" validate:"min=1"`
	LearningSteps    []time.Duration `yaml:"learning_steps" validate:"dive,gt=0"`
	RelearningSteps  []time.Duration `yaml:"relearning_steps" validate:"dive,gt=0"`
}

type XPConfig struct {
	Correct      int `yaml:"correct" validate:"min=0"`
	Partial      int `yaml:"partial" validate:"min=0"`
	Incorrect    int `yaml:"incorrect" validate:"min=0"`
	SessionBonus int `yaml:"session_bonus" validate:"min=0"`
}

type ProgressionConfig struct {
	InitialCeiling   int           `yaml:"initial_ceiling" validate:"min=0,max=100"`
	LevelUpIncrement int           `yaml:"level_up_increment" validate:"min=1,max=100"`
	Tiers            session.Tiers `yaml:"tiers"`
	XP               XPConfig      `yaml:"xp"`
}

type GuardConfig struct {
	CallBudget       int           `yaml:"call_budget" validate:"min=1"`
	Window           time.Duration `yaml:"window" validate:"gt=0"`
	FailureThreshold int           `yaml:"failure_threshold" validate:"min=1"`
	Cooldown         time.Duration `yaml:"cooldown" validate:"gt=0"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
}

type GraderConfig struct {
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"-"`
}

type TelegramConfig struct {
	Token string `yaml:"-"`
}

type ReminderConfig struct {
	CheckInterval   time.Duration `yaml:"check_interval" validate:"gt=0"`
	MinInterval     time.Duration `yaml:"min_interval" validate:"gte=0"`
	QuietHoursStart int           `yaml:"quiet_hours_start" validate:"min=0,max=23"`
	QuietHoursEnd   int           `yaml:"quiet_hours_end" validate:"min=0,max=23"`
	MaxPerDay       int           `yaml:"max_per_day" validate:"min=0"`
}

type CorpusConfig struct {
	Path string `yaml:"path"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			Env:             "development",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Type: "sqlite"},
		Logging:  LoggingConfig{Level: "info"},
		Scheduler: SchedulerConfig{
			DesiredRetention: 0.9,
			MaximumInterval:  36500,
			LearningSteps:    []time.Duration{time.Minute, 10 * time.Minute},
			RelearningSteps:  []time.Duration{10 * time.Minute},
		},
		Progression: ProgressionConfig{
			InitialCeiling:   10,
			LevelUpIncrement: 10,
			Tiers:            session.DefaultTiers,
			XP:               XPConfig{Correct: 10, Partial: 5, Incorrect: 1, SessionBonus: 25},
		},
		Guard: GuardConfig{
			CallBudget:       100,
			Window:           60 * time.Minute,
			FailureThreshold: 5,
			Cooldown:         60 * time.Second,
			Timeout:          15 * time.Second,
		},
		Grader: GraderConfig{
			Endpoint: "https://generativelanguage.googleapis.com/v1beta",
			Model:    "gemini-1.5-flash",
		},
		Reminder: ReminderConfig{
			CheckInterval:   30 * time.Minute,
			MinInterval:     4 * time.Hour,
			QuietHoursStart: 22,
			QuietHoursEnd:   8,
			MaxPerDay:       1,
		},
		Corpus: CorpusConfig{Path: "corpus.json"},
	}
}

// Load reads .env, the optional YAML file named by CONFIG_PATH, then
// environment overrides, and validates the result.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Default()
	if err := cfg.loadFile(getEnv("CONFIG_PATH", "config.yaml")); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.Env = getEnv("ENV", c.Server.Env)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)

	c.Database.Type = getEnv("DB_TYPE", c.Database.Type)
	if dsn, ok := os.LookupEnv("DATABASE_URL"); ok {
		c.Database.DSN = dsn
	} else if c.Database.DSN == "" {
		c.Database.DSN = buildDSN(c.Database.Type)
	}

	c.Grader.Endpoint = getEnv("GRADER_ENDPOINT", c.Grader.Endpoint)
	c.Grader.Model = getEnv("GRADER_MODEL", c.Grader.Model)
	c.Grader.APIKey = getEnv("GEMINI_API_KEY", c.Grader.APIKey)
	c.Telegram.Token = getEnv("TELEGRAM_BOT_TOKEN", c.Telegram.Token)
	c.Corpus.Path = getEnv("CORPUS_PATH", c.Corpus.Path)

	var err error
	if c.Guard.CallBudget, err = getEnvInt("GUARD_CALL_BUDGET", c.Guard.CallBudget); err != nil {
		return err
	}
	if c.Guard.FailureThreshold, err = getEnvInt("GUARD_FAILURE_THRESHOLD", c.Guard.FailureThreshold); err != nil {
		return err
	}
	if c.Guard.Timeout, err = getEnvDuration("GUARD_TIMEOUT", c.Guard.Timeout); err != nil {
		return err
	}
	if c.Guard.Cooldown, err = getEnvDuration("GUARD_COOLDOWN", c.Guard.Cooldown); err != nil {
		return err
	}
	if c.Progression.InitialCeiling, err = getEnvInt("INITIAL_CEILING", c.Progression.InitialCeiling); err != nil {
		return err
	}
	return nil
}

// Validate checks field constraints and the tier table
func (c *Config) Validate() error {
	if errs := validation.Validate(c); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", validation.Join(errs))
	}
	if err := c.Progression.Tiers.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func buildDSN(dbType string) string {
	if dbType == "postgres" {
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_NAME", "caesar"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	// SQLite configuration (default for development)
	return getEnv("SQLITE_PATH", "./data/caesar.db") + "?_busy_timeout=5000&_foreign_keys=on"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
