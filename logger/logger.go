// Package logger defines the logging surface shared across the pipeline and
// its zerolog-backed implementation. Components take the interface so tests
// can run silent.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)
	WithField(key string, value interface{}) Logger
}

type NullLogger struct{}

func (NullLogger) Debug(msg string) {}
func (NullLogger) Info(msg string)  {}
func (NullLogger) Warn(msg string)  {}
func (NullLogger) Error(msg string) {}
func (NullLogger) Fatal(msg string) {}
func (NullLogger) WithField(key string, value interface{}) Logger {
	return NullLogger{}
}

func NewNullLogger() Logger {
	return NullLogger{}
}

// ZerologAdapter adapts zerolog.Logger to the Logger interface.
type ZerologAdapter struct {
	logger *zerolog.Logger
}

func (z *ZerologAdapter) Debug(msg string) { z.logger.Debug().Msg(msg) }
func (z *ZerologAdapter) Info(msg string)  { z.logger.Info().Msg(msg) }
func (z *ZerologAdapter) Warn(msg string)  { z.logger.Warn().Msg(msg) }
func (z *ZerologAdapter) Error(msg string) { z.logger.Error().Msg(msg) }
func (z *ZerologAdapter) Fatal(msg string) { z.logger.Fatal().Msg(msg) }
func (z *ZerologAdapter) WithField(key string, value interface{}) Logger {
	newLogger := z.logger.With().Interface(key, value).Logger()
	return &ZerologAdapter{logger: &newLogger}
}

// NewZerolog returns a Logger writing timestamped JSON lines to w.
func NewZerolog(w io.Writer) Logger {
	zl := zerolog.New(w).With().Timestamp().Logger()
	return &ZerologAdapter{logger: &zl}
}

var (
	log  Logger
	once sync.Once
)

// InitLogger opens ~/.slipway/slipway.log and installs the shared logger.
func InitLogger() {
	once.Do(func() {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			panic("Failed to get user home directory: " + err.Error())
		}

		slipwayDir := filepath.Join(homeDir, ".slipway")
		err = os.MkdirAll(slipwayDir, 0755)
		if err != nil {
			panic("Failed to create .slipway directory: " + err.Error())
		}

		logFile, err := os.OpenFile(filepath.Join(slipwayDir, "slipway.log"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
		if err != nil {
			panic("Failed to open log file: " + err.Error())
		}

		log = NewZerolog(logFile)
	})
}

// GetLogger returns the shared logger, or a NullLogger before InitLogger
// has run.
func GetLogger() Logger {
	if log == nil {
		return NewNullLogger()
	}
	return log
}
