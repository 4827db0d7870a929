// logutil.go - Logger-Aufbau und Schweregrad-Abbildung
//
// Enthaelt:
// - NewLogger: Text-Logger mit TRACE-Level und kurzen Quellpfaden
// - Severity: Schweregrad-Skala der Engine-Runtime (0 = intern .. 4 = verbose)
// - SeverityLevel: Abbildung Severity -> slog.Level
// - WithLevel: Logger mit eigener Mindest-Schwelle
package logutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
)

// LevelTrace liegt unterhalb von Debug
const LevelTrace slog.Level = -8

// NewLogger erstellt einen Text-Logger fuer w mit Mindest-Level level
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				if lvl, ok := attr.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					attr.Value = slog.StringValue("TRACE")
				}
			case slog.SourceKey:
				if source, ok := attr.Value.Any().(*slog.Source); ok {
					source.File = filepath.Base(source.File)
				}
			}
			return attr
		},
	}))
}

// Trace loggt auf LevelTrace ueber den Default-Logger
func Trace(msg string, args ...any) {
	slog.Log(context.TODO(), LevelTrace, msg, args...)
}

// Severity ist die Schweregrad-Skala der Engine-Runtime
type Severity int

const (
	SeverityInternalError Severity = iota
	SeverityError
	SeverityWarning
	SeverityInfo
	SeverityVerbose
)

// DefaultSeverity ist der Standardwert der "verbosity" Option
const DefaultSeverity = SeverityWarning

func (s Severity) String() string {
	switch s {
	case SeverityInternalError:
		return "internal_error"
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityVerbose:
		return "verbose"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// SeverityLevel bildet eine Severity auf ein slog.Level ab.
// Werte ausserhalb der Skala werden auf das naechste Ende geklemmt.
func SeverityLevel(s Severity) slog.Level {
	switch {
	case s <= SeverityError:
		return slog.LevelError
	case s == SeverityWarning:
		return slog.LevelWarn
	case s == SeverityInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// WithLevel gibt einen Logger zurueck, der zusaetzlich alles unterhalb von level verwirft
func WithLevel(logger *slog.Logger, level slog.Leveler) *slog.Logger {
	return slog.New(&levelHandler{level: level, handler: logger.Handler()})
}

// levelHandler filtert Records vor dem eigentlichen Handler
type levelHandler struct {
	level   slog.Leveler
	handler slog.Handler
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.handler.Enabled(ctx, level)
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handler.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithGroup(name)}
}
