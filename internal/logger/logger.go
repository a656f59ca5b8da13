package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/souktrain/gestpay-backend/internal/config"
)

// New builds the service logger from config. Level defaults to info on
// a bad value rather than failing startup.
func New(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		logger = zerolog.New(os.Stdout)
	}

	return logger.Level(level).With().
		Timestamp().
		Str("service", "gestpay-bot").
		Logger()
}
