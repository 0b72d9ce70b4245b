// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package log

import (
	"context"
	"io"
	"log/slog"
	"os"

	luxlog "github.com/luxfi/log"
	"github.com/rs/zerolog"
	"go.uber.org/zap"
)

// ZeroLogger is a luxlog.Logger implementation backed by zerolog.
// cmd/routerd's serve command uses it for its own startup/shutdown
// messages and passes it to server.New as the server's logger. Library
// code accepts luxlog.Logger so it never depends on which concrete sink
// the binary chose.
type ZeroLogger struct {
	l zerolog.Logger
}

// NewZeroLogger returns a console-formatted zerolog.Logger writing to w at
// the given minimum level.
func NewZeroLogger(w io.Writer, level zerolog.Level) luxlog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return &ZeroLogger{l: zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).Level(level).With().Timestamp().Logger()}
}

func (z *ZeroLogger) with(ctx []interface{}) zerolog.Logger {
	l := z.l.With().Logger()
	for i := 0; i+1 < len(ctx); i += 2 {
		key, ok := ctx[i].(string)
		if !ok {
			continue
		}
		l = l.With().Interface(key, ctx[i+1]).Logger()
	}
	return l
}

func (z *ZeroLogger) With(ctx ...interface{}) luxlog.Logger {
	return &ZeroLogger{l: z.with(ctx)}
}

func (z *ZeroLogger) New(ctx ...interface{}) luxlog.Logger {
	return z.With(ctx...)
}

func (z *ZeroLogger) Log(level slog.Level, msg string, ctx ...interface{}) {
	z.with(ctx).WithLevel(slogToZerolog(level)).Msg(msg)
}

func (z *ZeroLogger) Trace(msg string, ctx ...interface{}) { z.with(ctx).Trace().Msg(msg) }
func (z *ZeroLogger) Debug(msg string, ctx ...interface{}) { z.with(ctx).Debug().Msg(msg) }
func (z *ZeroLogger) Info(msg string, ctx ...interface{})  { z.with(ctx).Info().Msg(msg) }
func (z *ZeroLogger) Warn(msg string, ctx ...interface{})  { z.with(ctx).Warn().Msg(msg) }
func (z *ZeroLogger) Error(msg string, ctx ...interface{}) { z.with(ctx).Error().Msg(msg) }
func (z *ZeroLogger) Crit(msg string, ctx ...interface{})  { z.with(ctx).Fatal().Msg(msg) }

func (z *ZeroLogger) WriteLog(level slog.Level, msg string, attrs ...any) {
	z.with(attrs).WithLevel(slogToZerolog(level)).Msg(msg)
}

func (z *ZeroLogger) Enabled(_ context.Context, level slog.Level) bool {
	return z.l.GetLevel() <= slogToZerolog(level)
}

func (z *ZeroLogger) Handler() slog.Handler { return nil }

func (z *ZeroLogger) Fatal(msg string, fields ...zap.Field) {
	l := z.l
	for _, f := range fields {
		l = l.With().Interface(f.Key, f.Interface).Logger()
	}
	l.Fatal().Msg(msg)
}

func (z *ZeroLogger) Verbo(msg string, fields ...zap.Field) {
	l := z.l
	for _, f := range fields {
		l = l.With().Interface(f.Key, f.Interface).Logger()
	}
	l.Trace().Msg(msg)
}

func (z *ZeroLogger) WithFields(fields ...zap.Field) luxlog.Logger {
	l := z.l
	for _, f := range fields {
		l = l.With().Interface(f.Key, f.Interface).Logger()
	}
	return &ZeroLogger{l: l}
}

func (z *ZeroLogger) WithOptions(_ ...zap.Option) luxlog.Logger { return z }

func (z *ZeroLogger) SetLevel(level slog.Level) { z.l = z.l.Level(slogToZerolog(level)) }
func (z *ZeroLogger) GetLevel() slog.Level      { return zerologToSlog(z.l.GetLevel()) }
func (z *ZeroLogger) EnabledLevel(lvl slog.Level) bool {
	return z.l.GetLevel() <= slogToZerolog(lvl)
}

func (z *ZeroLogger) StopOnPanic() {}
func (z *ZeroLogger) RecoverAndPanic(f func()) {
	defer func() {
		if r := recover(); r != nil {
			z.l.Error().Interface("panic", r).Msg("recovered")
			panic(r)
		}
	}()
	f()
}
func (z *ZeroLogger) RecoverAndExit(f, exit func()) {
	defer func() {
		if r := recover(); r != nil {
			z.l.Error().Interface("panic", r).Msg("recovered")
			exit()
		}
	}()
	f()
}
func (z *ZeroLogger) Stop() {}

func (z *ZeroLogger) Write(p []byte) (int, error) {
	z.l.Info().Msg(string(p))
	return len(p), nil
}

func slogToZerolog(l slog.Level) zerolog.Level {
	switch {
	case l <= slog.LevelDebug-4:
		return zerolog.TraceLevel
	case l <= slog.LevelDebug:
		return zerolog.DebugLevel
	case l <= slog.LevelInfo:
		return zerolog.InfoLevel
	case l <= slog.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func zerologToSlog(l zerolog.Level) slog.Level {
	switch l {
	case zerolog.TraceLevel:
		return slog.LevelDebug - 4
	case zerolog.DebugLevel:
		return slog.LevelDebug
	case zerolog.WarnLevel:
		return slog.LevelWarn
	case zerolog.ErrorLevel, zerolog.FatalLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
