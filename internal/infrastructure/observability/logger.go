package observability

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

func InitLogger(level string, output io.Writer) zerolog.Logger {
	if output == nil {
		output = os.Stdout
	}

	logLevel := parseLogLevel(level)

	return zerolog.New(output).
		Level(logLevel).
		With().
		Timestamp().
		Caller().
		Logger()
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// ForCart returns a logger scoped to one cart's checkout flow.
func ForCart(logger zerolog.Logger, cartID int64) zerolog.Logger {
	return logger.With().Int64("cart_id", cartID).Logger()
}

// ForTransaction returns a logger scoped to one remote transaction.
func ForTransaction(logger zerolog.Logger, spaceID, transactionID int64) zerolog.Logger {
	return logger.With().
		Int64("space_id", spaceID).
		Int64("transaction_id", transactionID).
		Logger()
}
