package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
		RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"60s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Optimization struct {
		Algorithm   string  `env:"OPT_ALGORITHM" envDefault:"hillclimb"`
		Restarts    int     `env:"OPT_RESTARTS" envDefault:"100"`
		Iterations  int     `env:"OPT_ITERATIONS" envDefault:"10000"`
		WorkerCount int     `env:"OPT_WORKER_COUNT" envDefault:"1"`
		Seed        int64   `env:"OPT_SEED" envDefault:"0"`
		TieBreak    string  `env:"OPT_TIE_BREAK" envDefault:"last"`
		Remap       string  `env:"OPT_REMAP" envDefault:"multiplicative"`
		Acceptance  string  `env:"OPT_ACCEPTANCE" envDefault:"metropolis"`
		CutoffSteps int     `env:"OPT_CUTOFF_STEPS" envDefault:"10"`
		Temperature float64 `env:"OPT_TEMPERATURE" envDefault:"0.01"`
		Cooling     float64 `env:"OPT_COOLING" envDefault:"0.999"`
		MaxJobs     int     `env:"OPT_MAX_JOBS" envDefault:"4"`

		// Finished jobs are dropped once older than JobRetention or beyond
		// the newest MaxFinishedJobs; zero disables either limit
		JobRetention    time.Duration `env:"OPT_JOB_RETENTION" envDefault:"1h"`
		MaxFinishedJobs int           `env:"OPT_MAX_FINISHED_JOBS" envDefault:"1000"`
	}
}

// Load reads the configuration from the environment. Variables from a .env
// file in the working directory are applied first, without overriding the
// ones already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that the env tags cannot express.
func (c *Config) Validate() error {
	o := c.Optimization
	switch {
	case o.Restarts < 1:
		return fmt.Errorf("OPT_RESTARTS must be positive, got %d", o.Restarts)
	case o.Iterations < 1:
		return fmt.Errorf("OPT_ITERATIONS must be positive, got %d", o.Iterations)
	case o.WorkerCount < 1:
		return fmt.Errorf("OPT_WORKER_COUNT must be positive, got %d", o.WorkerCount)
	case o.CutoffSteps < 0:
		return fmt.Errorf("OPT_CUTOFF_STEPS must be non-negative, got %d", o.CutoffSteps)
	case o.Cooling <= 0 || o.Cooling > 1:
		return fmt.Errorf("OPT_COOLING must be in (0, 1], got %v", o.Cooling)
	case o.MaxJobs < 1:
		return fmt.Errorf("OPT_MAX_JOBS must be positive, got %d", o.MaxJobs)
	case o.JobRetention < 0:
		return fmt.Errorf("OPT_JOB_RETENTION must be non-negative, got %v", o.JobRetention)
	case o.MaxFinishedJobs < 0:
		return fmt.Errorf("OPT_MAX_FINISHED_JOBS must be non-negative, got %d", o.MaxFinishedJobs)
	}
	return nil
}

// GetEnv returns the value of the environment variable or the default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
