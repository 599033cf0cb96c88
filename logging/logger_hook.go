package logging

import (
	"log/slog"
)

// LoggerHook derives component loggers from a base logger.
type LoggerHook interface {
	// LoggerForComponent wraps baseLogger for the named component.
	LoggerForComponent(baseLogger *slog.Logger, component string) *slog.Logger
}

// CapturingLoggerHook creates loggers whose records are also kept in a
// LogCollector.
type CapturingLoggerHook struct {
	collector *LogCollector
}

// NewCapturingLoggerHook creates a hook that captures into collector.
func NewCapturingLoggerHook(collector *LogCollector) LoggerHook {
	return &CapturingLoggerHook{
		collector: collector,
	}
}

// LoggerForComponent returns a logger tagged with component whose records are
// captured and then passed to baseLogger's handler.
func (p *CapturingLoggerHook) LoggerForComponent(baseLogger *slog.Logger, component string) *slog.Logger {
	handler := NewCapturingHandler(baseLogger.Handler(), p.collector, component)
	return slog.New(handler).With("component", component)
}
