package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/niels/page-server/pkg/config"
	"github.com/rs/zerolog"
)

// Fields carries structured context for the ...With helpers
type Fields = map[string]interface{}

var globalLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// InitGlobalLogger points the global logger at stderr or, when
// log_to_file is set, at a rotating file. Debug mode writes to both.
func InitGlobalLogger(debug bool, cfg *config.Config) {
	if cfg == nil || !cfg.Logging.LogToFile {
		globalLogger = NewLogger(debug, os.Stderr)
		return
	}

	file := rotatingFile(cfg.Logging)
	if debug {
		globalLogger = NewLogger(debug, io.MultiWriter(file, os.Stderr))
		return
	}

	notice := NewLogger(false, os.Stderr)
	notice.Info().Str("file", file.Filename).Msg("Logging to file only")
	globalLogger = NewLogger(false, file)
}

func rotatingFile(cfg config.LogConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.MaxSize, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	}
}

// SetOutput replaces the global logger with one writing to output
func SetOutput(debug bool, output io.Writer) {
	globalLogger = NewLogger(debug, output)
}

// NewLogger creates a zerolog logger at info level, or debug level when debug is set
func NewLogger(debug bool, output io.Writer) zerolog.Logger {
	if output == nil {
		output = os.Stderr
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	return zerolog.New(output).With().Timestamp().Caller().Logger()
}

func Debug(msg string) { emit(globalLogger.Debug(), msg, nil) }
func Info(msg string)  { emit(globalLogger.Info(), msg, nil) }
func Warn(msg string)  { emit(globalLogger.Warn(), msg, nil) }
func Error(msg string) { emit(globalLogger.Error(), msg, nil) }

func DebugWith(msg string, fields Fields) { emit(globalLogger.Debug(), msg, fields) }
func InfoWith(msg string, fields Fields)  { emit(globalLogger.Info(), msg, fields) }
func WarnWith(msg string, fields Fields)  { emit(globalLogger.Warn(), msg, fields) }
func ErrorWith(msg string, fields Fields) { emit(globalLogger.Error(), msg, fields) }

// GetLogger returns the global logger instance
func GetLogger() zerolog.Logger {
	return globalLogger
}

// WithComponent returns a logger with the component field set
func WithComponent(component string) zerolog.Logger {
	return globalLogger.With().Str("component", component).Logger()
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the request id for FromContext
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// FromContext returns log tagged with the request id stored in ctx, or log
// unchanged when there is none
func FromContext(ctx context.Context, log zerolog.Logger) zerolog.Logger {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return log.With().Str("request_id", id).Logger()
	}
	return log
}

// emit skips its own frame and the helper's so the caller field points at the call site
func emit(event *zerolog.Event, msg string, fields Fields) {
	event = event.CallerSkipFrame(2)
	for k, v := range fields {
		event = addField(event, k, v)
	}
	event.Msg(msg)
}

func addField(event *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return event.Str(key, v)
	case int:
		return event.Int(key, v)
	case int64:
		return event.Int64(key, v)
	case float64:
		return event.Float64(key, v)
	case bool:
		return event.Bool(key, v)
	case time.Time:
		return event.Time(key, v)
	case time.Duration:
		return event.Dur(key, v)
	case []string:
		return event.Strs(key, v)
	case error:
		return event.AnErr(key, v)
	default:
		return event.Interface(key, v)
	}
}
