package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Logger is an immutable set of fields over a shared logrus instance.
// With* methods return a new Logger and never modify the receiver.
type Logger struct {
	logger *logrus.Logger
	fields logrus.Fields
}

type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

type Config struct {
	Level      LogLevel `json:"level"`
	Format     string   `json:"format"` // json or text
	Output     string   `json:"output"` // stdout, stderr or a file path
	TimeFormat string   `json:"time_format"`
	Caller     bool     `json:"caller"`
	Colors     bool     `json:"colors"`
	AppName    string   `json:"app_name"`
	Version    string   `json:"version"`
}

type contextKey int

const (
	requestIDKey contextKey = iota
	userIDKey
)

func NewLogger(config *Config) (*Logger, error) {
	base := logrus.New()

	level, err := logrus.ParseLevel(string(config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)
	base.SetReportCaller(config.Caller)
	base.SetFormatter(newFormatter(config))

	out, err := openOutput(config.Output)
	if err != nil {
		return nil, err
	}
	base.SetOutput(out)

	return &Logger{logger: base, fields: logrus.Fields{}}, nil
}

func newFormatter(config *Config) logrus.Formatter {
	if config.Format == "json" {
		return &CustomJSONFormatter{
			TimestampFormat: config.TimeFormat,
			AppName:         config.AppName,
			Version:         config.Version,
		}
	}
	return &CustomTextFormatter{
		TimestampFormat: config.TimeFormat,
		ForceColors:     config.Colors,
		DisableColors:   !config.Colors,
		AppName:         config.AppName,
	}
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	return os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &Logger{logger: base, fields: logrus.Fields{}}
}

// ContextWithRequestID stores the request id for WithContext.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithUserID stores the authenticated user id for WithContext.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	merged := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{logger: l.logger, fields: merged}
}

// WithContext adds the request and user ids stored by the HTTP middleware.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := map[string]interface{}{}
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		fields["request_id"] = id
	}
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		fields["user_id"] = id
	}
	if len(fields) == 0 {
		return l
	}
	return l.WithFields(fields)
}

func (l *Logger) WithError(err error) *Logger {
	return l.WithField("error", err.Error())
}

func (l *Logger) WithUserID(userID primitive.ObjectID) *Logger {
	return l.WithField("user_id", userID.Hex())
}

func (l *Logger) WithRideID(rideID primitive.ObjectID) *Logger {
	return l.WithField("ride_id", rideID.Hex())
}

func (l *Logger) log(level logrus.Level, msg string) {
	l.logger.WithFields(l.fields).Log(level, msg)
}

func (l *Logger) Debug(msg string) { l.log(logrus.DebugLevel, msg) }
func (l *Logger) Info(msg string)  { l.log(logrus.InfoLevel, msg) }
func (l *Logger) Warn(msg string)  { l.log(logrus.WarnLevel, msg) }
func (l *Logger) Error(msg string) { l.log(logrus.ErrorLevel, msg) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string) {
	l.logger.WithFields(l.fields).Fatal(msg)
}

// LogRideEvent records a lifecycle change of a ride.
func (l *Logger) LogRideEvent(rideID primitive.ObjectID, event string, details map[string]interface{}) {
	entry := l.WithRideID(rideID).WithField("ride_event", event)
	if len(details) > 0 {
		entry = entry.WithFields(details)
	}
	entry.Info("Ride " + event)
}

// LogAPIRequest logs one served request at a level chosen by its status.
func (l *Logger) LogAPIRequest(method, endpoint string, statusCode int, duration time.Duration, userID string) {
	entry := l.WithFields(map[string]interface{}{
		"method":      method,
		"endpoint":    endpoint,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	})
	if userID != "" {
		entry = entry.WithField("user_id", userID)
	}

	switch {
	case statusCode >= 500:
		entry.Error("Request failed")
	case statusCode >= 400:
		entry.Warn("Request rejected")
	default:
		entry.Info("Request served")
	}
}

func (l *Logger) SetOutput(output io.Writer) {
	l.logger.SetOutput(output)
}
