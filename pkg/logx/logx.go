// Package logx provides structured logging with per-agent loggers and
// env-controlled debug output.
package logx

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger writes timestamped log lines attributed to a single agent.
type Logger struct {
	agentID string
	logger  *log.Logger
}

// Level represents a log severity level.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// LogEntry is a structured log record retained in the in-memory buffer so a
// host UI can render recent activity.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	AgentID   string `json:"agent_id"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

type memoryBuffer struct {
	entries []LogEntry
	mu      sync.RWMutex
	maxSize int
}

type debugSettings struct {
	enabled bool
	domains map[string]bool // nil = all domains
}

//nolint:gochecknoglobals // package-level debug config and buffer, set once from env
var (
	debugCfg   debugSettings
	debugMu    sync.RWMutex
	logBuffer  = &memoryBuffer{maxSize: 1000}
	timeFormat = "2006-01-02T15:04:05.000Z"
)

//nolint:gochecknoinits // env var initialization must happen before first use
func init() {
	debugMu.Lock()
	defer debugMu.Unlock()

	if v := os.Getenv("DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		debugCfg.enabled = true
	}
	if domains := os.Getenv("DEBUG_DOMAINS"); domains != "" {
		debugCfg.domains = make(map[string]bool)
		for _, d := range strings.Split(domains, ",") {
			debugCfg.domains[strings.TrimSpace(d)] = true
		}
	}
}

// NewLogger creates a logger attributed to the given agent ID.
func NewLogger(agentID string) *Logger {
	return &Logger{
		agentID: agentID,
		logger:  log.New(os.Stderr, "", 0), // stderr keeps stdout free for the dialogue
	}
}

// SetDebug enables or disables debug logging globally.
func SetDebug(enabled bool) {
	debugMu.Lock()
	defer debugMu.Unlock()
	debugCfg.enabled = enabled
}

// IsDebugEnabledFor reports whether debug logging is enabled for a domain.
func IsDebugEnabledFor(domain string) bool {
	debugMu.RLock()
	defer debugMu.RUnlock()
	if !debugCfg.enabled {
		return false
	}
	if debugCfg.domains == nil {
		return true
	}
	return debugCfg.domains[domain]
}

func (b *memoryBuffer) add(entry LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, entry)
	if len(b.entries) > b.maxSize {
		b.entries = b.entries[len(b.entries)-b.maxSize:]
	}
}

// RecentEntries returns a copy of buffered log entries newer than since.
func RecentEntries(since time.Time) []LogEntry {
	logBuffer.mu.RLock()
	defer logBuffer.mu.RUnlock()

	out := make([]LogEntry, 0, len(logBuffer.entries))
	for i := range logBuffer.entries {
		e := &logBuffer.entries[i]
		if !since.IsZero() {
			ts, err := time.Parse(timeFormat, e.Timestamp)
			if err != nil || ts.Before(since) {
				continue
			}
		}
		out = append(out, *e)
	}
	return out
}

func (l *Logger) log(level Level, format string, args ...any) {
	timestamp := time.Now().UTC().Format(timeFormat)
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] [%s] %s: %s", timestamp, l.agentID, level, message)

	logBuffer.add(LogEntry{
		Timestamp: timestamp,
		AgentID:   l.agentID,
		Level:     string(level),
		Message:   message,
	})
}

// Debug logs a debug message when debug logging is enabled for this agent's domain.
func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabledFor(l.agentID) {
		return
	}
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}
