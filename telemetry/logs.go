package telemetry

import (
	"log/slog"
)

type Logger interface {
	Info(msg string)
	Debug(msg string)
	Error(msg string, err error)
}

type NOPLogger struct {
}

func (n NOPLogger) Info(msg string) {
}
func (n NOPLogger) Debug(msg string) {
}
func (n NOPLogger) Error(msg string, err error) {
}

// SlogLogger forwards to a *slog.Logger. Extra attributes are attached to
// every record.
type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger, args ...any) SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return SlogLogger{logger: logger.With(args...)}
}

func (s SlogLogger) Info(msg string) {
	s.logger.Info(msg)
}
func (s SlogLogger) Debug(msg string) {
	s.logger.Debug(msg)
}
func (s SlogLogger) Error(msg string, err error) {
	s.logger.Error(msg, slog.Any("error", err))
}
