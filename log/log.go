// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log carries the ledger's leveled key/value loggers on top of
// go-ethereum's slog based log package.
package log

import (
	"io"
	"log/slog"

	ethlog "github.com/ethereum/go-ethereum/log"
)

// Logger writes leveled records with alternating key/value context.
type Logger interface {
	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
}

// WithContext returns a logger that prepends ctx to every record. The root
// logger is resolved at each call, so package level loggers created at init
// follow later calls to SetDefault.
func WithContext(ctx ...any) Logger {
	return &lazyLogger{ctx: ctx}
}

type lazyLogger struct {
	ctx []any
}

func (l *lazyLogger) write(level slog.Level, msg string, ctx []any) {
	all := make([]any, 0, len(l.ctx)+len(ctx))
	all = append(all, l.ctx...)
	all = append(all, ctx...)
	ethlog.Root().Log(level, msg, all...)
}

func (l *lazyLogger) Trace(msg string, ctx ...any) { l.write(ethlog.LevelTrace, msg, ctx) }
func (l *lazyLogger) Debug(msg string, ctx ...any) { l.write(ethlog.LevelDebug, msg, ctx) }
func (l *lazyLogger) Info(msg string, ctx ...any)  { l.write(ethlog.LevelInfo, msg, ctx) }
func (l *lazyLogger) Warn(msg string, ctx ...any)  { l.write(ethlog.LevelWarn, msg, ctx) }
func (l *lazyLogger) Error(msg string, ctx ...any) { l.write(ethlog.LevelError, msg, ctx) }

// Trace logs with the root logger.
func Trace(msg string, ctx ...any) { ethlog.Root().Log(ethlog.LevelTrace, msg, ctx...) }

// Debug logs with the root logger.
func Debug(msg string, ctx ...any) { ethlog.Root().Log(ethlog.LevelDebug, msg, ctx...) }

// Info logs with the root logger.
func Info(msg string, ctx ...any) { ethlog.Root().Log(ethlog.LevelInfo, msg, ctx...) }

// Warn logs with the root logger.
func Warn(msg string, ctx ...any) { ethlog.Root().Log(ethlog.LevelWarn, msg, ctx...) }

// Error logs with the root logger.
func Error(msg string, ctx ...any) { ethlog.Root().Log(ethlog.LevelError, msg, ctx...) }

// FromVerbosity maps the legacy 0 (crit) .. 5 (trace) verbosity scale to a level.
func FromVerbosity(v int) slog.Level {
	return ethlog.FromLegacyLevel(v)
}

// SetDefault installs a root logger writing to w.
// Records are JSON encoded if json is set, otherwise terminal formatted.
func SetDefault(w io.Writer, level slog.Level, json, useColor bool) {
	var h slog.Handler
	if json {
		h = ethlog.JSONHandlerWithLevel(w, level)
	} else {
		h = ethlog.NewTerminalHandlerWithLevel(w, level, useColor)
	}
	ethlog.SetDefault(ethlog.NewLogger(h))
}
