package logging

import (
	"log"
	"os"
	"sync"
)

const (
	// TraceLevel indicates a log message's level of criticality
	TraceLevel = iota
	// DebugLevel indicates a log message's level of criticality
	DebugLevel
	// InfoLevel indicates a log message's level of criticality
	InfoLevel
	// WarnLevel indicates a log message's level of criticality
	WarnLevel
	// ErrorLevel indicates a log message's level of criticality
	ErrorLevel
	// FatalLevel indicates a log message's level of criticality
	FatalLevel
)

// LogLevelToString translates a log level enum to a string representation
func LogLevelToString(level int) string {
	switch level {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "TRACE"
	}
}

// A Logger filters messages by level before handing them to the standard log package
type Logger struct {
	mu    sync.Mutex
	level int
	l     *log.Logger
}

// New produces a Logger which discards messages below the given level
func New(level int) *Logger {
	return &Logger{level: level, l: log.New(os.Stderr, "", log.LstdFlags)}
}

// SetLevel adjusts the minimum level this Logger emits
func (lg *Logger) SetLevel(level int) {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	lg.level = level
}

// Logf emits a message at the given level, if that level is enabled
func (lg *Logger) Logf(level int, format string, args ...interface{}) {
	lg.mu.Lock()
	enabled := level >= lg.level
	lg.mu.Unlock()
	if enabled {
		lg.l.Printf("["+LogLevelToString(level)+"] "+format, args...)
	}
}

// Debugf emits a message at DebugLevel
func (lg *Logger) Debugf(format string, args ...interface{}) {
	lg.Logf(DebugLevel, format, args...)
}

// Infof emits a message at InfoLevel
func (lg *Logger) Infof(format string, args ...interface{}) {
	lg.Logf(InfoLevel, format, args...)
}

// Errorf emits a message at ErrorLevel
func (lg *Logger) Errorf(format string, args ...interface{}) {
	lg.Logf(ErrorLevel, format, args...)
}
