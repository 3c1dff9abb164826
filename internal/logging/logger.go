package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/ecs-scheduler/internal/config"
)

// NewLogger creates a structured zerolog.Logger writing to stdout with
// observability context fields from the config.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return New(os.Stdout, cfg)
}

// New is NewLogger with an explicit sink. Non-empty fields are added automatically.
func New(w io.Writer, cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.AWSRegion != "" {
		ctx = ctx.Str("region", cfg.AWSRegion)
	}
	if cfg.AccountID != "" {
		ctx = ctx.Str("account", cfg.AccountID)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
