package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const logDir = "logs"

func New() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	writers := []io.Writer{os.Stdout}
	if err := os.MkdirAll(logDir, 0o755); err == nil {
		f, err := os.OpenFile(filepath.Join(logDir, "faceit-presence.log"),
			os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			writers = append(writers, f)
		}
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Caller().
		Logger()

	logger = logger.Level(zerolog.InfoLevel)
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger = logger.Level(zerolog.DebugLevel)
	}

	return logger
}
