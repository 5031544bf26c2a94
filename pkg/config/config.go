package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env string

	Log    LogConfig
	Solver SolverConfig
	Store  StoreConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// SolverConfig governs the constraint solver and the burden caps.
type SolverConfig struct {
	TimeLimit           time.Duration
	MaxExamsPerDay      int // negative means no cap
	MaxHardExamsPerDay  int // negative means no cap
	UseFixedAssignments bool
	RandomSeed          int64
}

// StoreConfig controls the embedded run-history store.
type StoreConfig struct {
	Enabled bool
	Path    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Solver = SolverConfig{
		TimeLimit:           parseDuration(v.GetString("SOLVER_TIME_LIMIT"), 2*time.Minute),
		MaxExamsPerDay:      v.GetInt("MAX_EXAMS_PER_DAY"),
		MaxHardExamsPerDay:  v.GetInt("MAX_HARD_EXAMS_PER_DAY"),
		UseFixedAssignments: v.GetBool("USE_FIXED_ASSIGNMENTS"),
		RandomSeed:          v.GetInt64("SOLVER_RANDOM_SEED"),
	}

	cfg.Store = StoreConfig{
		Enabled: v.GetBool("ENABLE_RUN_STORE"),
		Path:    v.GetString("RUN_STORE_PATH"),
	}

	return cfg, nil
}

// MaxExams returns the total-exams cap, nil when disabled.
func (c SolverConfig) MaxExams() *int {
	if c.MaxExamsPerDay < 0 {
		return nil
	}
	n := c.MaxExamsPerDay
	return &n
}

// MaxHardExams returns the hard-exams cap, nil when disabled.
func (c SolverConfig) MaxHardExams() *int {
	if c.MaxHardExamsPerDay < 0 {
		return nil
	}
	n := c.MaxHardExamsPerDay
	return &n
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SOLVER_TIME_LIMIT", "120s")
	v.SetDefault("MAX_EXAMS_PER_DAY", 3)
	v.SetDefault("MAX_HARD_EXAMS_PER_DAY", -1)
	v.SetDefault("USE_FIXED_ASSIGNMENTS", true)
	v.SetDefault("SOLVER_RANDOM_SEED", 0)

	v.SetDefault("ENABLE_RUN_STORE", false)
	v.SetDefault("RUN_STORE_PATH", "./examsched.db")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
