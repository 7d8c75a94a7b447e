package reqctxlog

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// SimpleLogger is a dependency-free Logger implementation writing to the
// standard library logger, in either plain text or JSON lines. Embedding
// applications are expected to supply their own Logger (Zap, slog, ...);
// SimpleLogger exists so the framework has a sane default and so tests don't
// need to stub one out.
type SimpleLogger struct {
	level  Level
	format string // "text" or "json"
	fields map[string]interface{}
}

// NewSimpleLogger builds a SimpleLogger honoring LOG_LEVEL and LOG_FORMAT.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{
		level:  levelFromEnv(),
		format: formatFromEnv(),
		fields: make(map[string]interface{}),
	}
}

func levelFromEnv() Level {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return DebugLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func formatFromEnv() string {
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		return "json"
	}
	return "text"
}

func (l *SimpleLogger) Debug(msg string, fields ...interface{}) {
	if l.level <= DebugLevel {
		l.log(DebugLevel, msg, fields...)
	}
}

func (l *SimpleLogger) Info(msg string, fields ...interface{}) {
	if l.level <= InfoLevel {
		l.log(InfoLevel, msg, fields...)
	}
}

func (l *SimpleLogger) Warn(msg string, fields ...interface{}) {
	if l.level <= WarnLevel {
		l.log(WarnLevel, msg, fields...)
	}
}

func (l *SimpleLogger) Error(msg string, fields ...interface{}) {
	if l.level <= ErrorLevel {
		l.log(ErrorLevel, msg, fields...)
	}
}

func (l *SimpleLogger) SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		l.level = DebugLevel
	case "INFO":
		l.level = InfoLevel
	case "WARN", "WARNING":
		l.level = WarnLevel
	case "ERROR":
		l.level = ErrorLevel
	}
}

func (l *SimpleLogger) WithField(key string, value interface{}) Logger {
	return l.With(Field{Key: key, Value: value})
}

func (l *SimpleLogger) WithFields(fields map[string]interface{}) Logger {
	next := l.clone()
	for k, v := range fields {
		next.fields[k] = v
	}
	return next
}

func (l *SimpleLogger) With(fields ...Field) Logger {
	next := l.clone()
	for _, f := range fields {
		next.fields[f.Key] = f.Value
	}
	return next
}

func (l *SimpleLogger) clone() *SimpleLogger {
	fields := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return &SimpleLogger{level: l.level, format: l.format, fields: fields}
}

func (l *SimpleLogger) log(level Level, msg string, fields ...interface{}) {
	merged := make(map[string]interface{}, len(l.fields)+len(fields)/2+2)
	for k, v := range l.fields {
		merged[k] = v
	}
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			merged[key] = fields[i+1]
		}
	}

	if l.format == "json" {
		merged["level"] = level.String()
		merged["msg"] = msg
		merged["time"] = time.Now().UTC().Format(time.RFC3339Nano)
		if b, err := json.Marshal(merged); err == nil {
			log.Println(string(b))
			return
		}
	}

	parts := []string{fmt.Sprintf("[%s]", level), msg}
	for k, v := range merged {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	log.Println(strings.Join(parts, " "))
}

// NewDefaultLogger returns the package default Logger.
func NewDefaultLogger() Logger {
	return NewSimpleLogger()
}
