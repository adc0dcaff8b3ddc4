// Package logger wraps zerolog for the tension simulation core. There is no
// process-wide global instance: every component receives its *Logger
// explicitly at construction time, the same as the config and clock it's
// built with.
package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

type contextKey string

const (
	RequestIDKey     contextKey = "request_id"
	CorrelationIDKey contextKey = "correlation_id"
)

// Logger wraps zerolog.Logger with the context/operation helpers the core
// uses at engine boundaries.
type Logger struct {
	*zerolog.Logger
	config Config
}

// Config holds logger configuration.
type Config struct {
	Level       string
	Pretty      bool
	TimeFormat  string
	CallerInfo  bool
	StackTrace  bool
	ServiceName string
	Environment string
	Fields      map[string]interface{}
}

// New creates a new logger instance from cfg.
func New(cfg Config) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
	}

	if cfg.StackTrace {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	}

	var zl zerolog.Logger
	if cfg.Pretty {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: cfg.TimeFormat,
			FormatLevel: func(i interface{}) string {
				return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
			},
		}
		zl = zerolog.New(output).With().Timestamp().Logger()
	} else {
		zl = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	if cfg.ServiceName != "" {
		zl = zl.With().Str("service", cfg.ServiceName).Logger()
	}
	if cfg.Environment != "" {
		zl = zl.With().Str("env", cfg.Environment).Logger()
	}
	for k, v := range cfg.Fields {
		zl = zl.With().Interface(k, v).Logger()
	}
	if cfg.CallerInfo {
		zl = zl.With().CallerWithSkipFrameCount(3).Logger()
	}

	return &Logger{&zl, cfg}
}

// WithContext returns a logger with request/correlation IDs found on ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zl := l.Logger.With()

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		zl = zl.Str("request_id", requestID)
	}
	if corrID, ok := ctx.Value(CorrelationIDKey).(string); ok && corrID != "" {
		zl = zl.Str("correlation_id", corrID)
	}

	logger := zl.Logger()
	return &Logger{&logger, l.config}
}

// WithLocation tags log lines with a region/POI pair.
func (l *Logger) WithLocation(regionID, poiID string) *Logger {
	logger := l.Logger.With().Str("region_id", regionID).Str("poi_id", poiID).Logger()
	return &Logger{&logger, l.config}
}

// WithFactionPair tags log lines with a canonicalized faction pair.
func (l *Logger) WithFactionPair(factionAID, factionBID string) *Logger {
	logger := l.Logger.With().Str("faction_a", factionAID).Str("faction_b", factionBID).Logger()
	return &Logger{&logger, l.config}
}

// ContextWithCorrelationID attaches a correlation ID for WithContext to
// surface. environment.Engine.UpdateTensionFromEvent sets this to the
// incoming TensionEvent's EventID before publishing, so every handler the
// bus invokes for that publish -- including the coordinator's cache
// invalidation -- logs under the same correlation ID.
func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}
