// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package devdrv

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps a [zerolog.Logger] for devdrv's own diagnostic output
// (probe candidates skipped by Opener.New, driver faults, failed
// command sends). A
// nil *Logger disables logging entirely — every method is safe to
// call on a nil receiver — so a supervisor constructed without
// [Config.WithLogger] pays no logging cost.
type Logger struct {
	z zerolog.Logger
}

// NewLogger wraps an existing zerolog logger.
func NewLogger(z zerolog.Logger) *Logger {
	return &Logger{z: z}
}

// NewConsoleLogger returns a human-readable, color-if-a-terminal
// logger writing to stderr at the given minimum level — the
// configuration most integrators reach for during development.
func NewConsoleLogger(level zerolog.Level) *Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr}
	return &Logger{z: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

func (l *Logger) Debug(msg string, kv ...any) { l.log(zerolog.DebugLevel, msg, kv) }
func (l *Logger) Info(msg string, kv ...any)  { l.log(zerolog.InfoLevel, msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)  { l.log(zerolog.WarnLevel, msg, kv) }
func (l *Logger) Error(err error, msg string, kv ...any) {
	if l == nil {
		return
	}
	evt := l.z.Error().Err(err)
	fields(evt, kv)
	evt.Msg(msg)
}

func (l *Logger) log(level zerolog.Level, msg string, kv []any) {
	if l == nil {
		return
	}
	evt := l.z.WithLevel(level)
	fields(evt, kv)
	evt.Msg(msg)
}

// fields applies alternating key/value pairs to evt, skipping a
// trailing unpaired key rather than panicking — diagnostic logging
// must never be the thing that crashes a supervisor.
func fields(evt *zerolog.Event, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		evt.Interface(key, kv[i+1])
	}
}
