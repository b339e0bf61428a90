// Package log provides the default slog-backed logger provider.
//
// This file wires the Logger interface to Go's log/slog so that library code
// can obtain loggers through GetLogger and GetLoggerWithName without caring
// about the configured backend. Tests can swap the provider with
// SetLoggerProvider and a TestLoggerProvider.

package log

import (
	"context"
	"log/slog"
	"sync"
)

var (
	providerMu      sync.RWMutex
	defaultProvider LoggerProvider = newSlogProvider()
)

// GetLogger returns the default logger from the active provider.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider.GetLogger()
}

// GetLoggerWithName returns a logger tagged with a component name.
// The name is attached under ComponentKey so log lines can be filtered
// per package (e.g. "boosting.classifier", "server").
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider.GetLoggerWithName(name)
}

// SetLoggerProvider replaces the active provider. Passing nil restores the
// default slog-backed provider.
func SetLoggerProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	if p == nil {
		p = newSlogProvider()
	}
	defaultProvider = p
}

// SetLevel adjusts the minimum level of the active provider.
func SetLevel(level Level) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	defaultProvider.SetLevel(level)
}

// slogProvider adapts log/slog to the LoggerProvider interface.
// It delegates to slog.Default(), so SetupLogger controls the output format.
type slogProvider struct {
	level *slog.LevelVar
}

func newSlogProvider() *slogProvider {
	return &slogProvider{level: new(slog.LevelVar)}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *slogProvider) GetLogger() Logger {
	return &slogLogger{logger: slog.Default(), min: p.level}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *slogProvider) GetLoggerWithName(name string) Logger {
	return &slogLogger{logger: slog.Default().With(ComponentKey, name), min: p.level}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *slogProvider) SetLevel(level Level) {
	p.level.Set(slog.Level(level))
}

// slogLogger implements Logger on top of a *slog.Logger.
type slogLogger struct {
	logger *slog.Logger
	min    *slog.LevelVar
}

func (l *slogLogger) Debug(msg string, fields ...any) {
	l.log(slog.LevelDebug, msg, fields)
}

func (l *slogLogger) Info(msg string, fields ...any) {
	l.log(slog.LevelInfo, msg, fields)
}

func (l *slogLogger) Warn(msg string, fields ...any) {
	l.log(slog.LevelWarn, msg, fields)
}

func (l *slogLogger) Error(msg string, fields ...any) {
	l.log(slog.LevelError, msg, fields)
}

// With implements Logger.With.
func (l *slogLogger) With(fields ...any) Logger {
	return &slogLogger{logger: l.logger.With(normalizeFields(fields)...), min: l.min}
}

// Enabled implements Logger.Enabled.
func (l *slogLogger) Enabled(ctx context.Context, level Level) bool {
	if l.min != nil && slog.Level(level) < l.min.Level() {
		return false
	}
	return l.logger.Enabled(ctx, slog.Level(level))
}

func (l *slogLogger) log(level slog.Level, msg string, fields []any) {
	if l.min != nil && level < l.min.Level() {
		return
	}
	l.logger.Log(context.Background(), level, msg, normalizeFields(fields)...)
}

// normalizeFields converts bare errors in key position into the error
// attribute so the stacktrace handler can pick them up. Errors passed as the
// value of an explicit key are left alone.
func normalizeFields(fields []any) []any {
	out := make([]any, 0, len(fields))
	for i := 0; i < len(fields); {
		switch f := fields[i].(type) {
		case string:
			out = append(out, f)
			if i+1 < len(fields) {
				out = append(out, fields[i+1])
			}
			i += 2
		case slog.Attr:
			out = append(out, f)
			i++
		case error:
			out = append(out, ErrAttr(f))
			i++
		default:
			out = append(out, f)
			i++
		}
	}
	return out
}
