package logger

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"evcoupon/entity"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func SetupLogger(env, logPath string) *slog.Logger {
	var out io.Writer = os.Stdout
	level := slog.LevelDebug

	switch env {
	case envLocal:
	case envDev, envProd:
		logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("error opening log file: ", err)
		}
		log.Printf("env: %s; log file: %s", env, logPath)
		out = logFile
		if env == envProd {
			level = slog.LevelInfo
		}
	default:
		log.Fatal("invalid environment: ", env)
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

// WithTelegram wraps the logger's handler so records at minLevel and above also reach the notifier.
func WithTelegram(logger *slog.Logger, notifier Notifier, minLevel slog.Level) *slog.Logger {
	return slog.New(NewTelegramHandler(logger.Handler(), notifier, minLevel))
}

// ParseLevel accepts debug, info, warn and error; anything else is warn.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func defaultTopic(level slog.Level) string {
	if level >= slog.LevelError {
		return entity.TopicError
	}
	return entity.TopicSystem
}
