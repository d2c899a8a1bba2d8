package logx

import (
	"testing"
	"time"
)

func TestRecentEntriesCapturesLogs(t *testing.T) {
	logger := NewLogger("test-agent")
	logger.Info("hello %s", "world")

	entries := RecentEntries(time.Time{})
	if len(entries) == 0 {
		t.Fatal("expected at least one buffered entry")
	}

	last := entries[len(entries)-1]
	if last.AgentID != "test-agent" {
		t.Errorf("expected agent_id test-agent, got %s", last.AgentID)
	}
	if last.Message != "hello world" {
		t.Errorf("expected formatted message, got %q", last.Message)
	}
	if last.Level != string(LevelInfo) {
		t.Errorf("expected INFO level, got %s", last.Level)
	}
}

func TestDebugSuppressedWhenDisabled(t *testing.T) {
	SetDebug(false)
	logger := NewLogger("debug-agent")

	before := len(RecentEntries(time.Time{}))
	logger.Debug("should not appear")
	after := len(RecentEntries(time.Time{}))

	if after != before {
		t.Error("debug entry buffered while debug logging disabled")
	}
}

func TestDebugEmittedWhenEnabled(t *testing.T) {
	SetDebug(true)
	defer SetDebug(false)

	logger := NewLogger("debug-agent")
	before := len(RecentEntries(time.Time{}))
	logger.Debug("visible")
	after := len(RecentEntries(time.Time{}))

	if after != before+1 {
		t.Error("expected debug entry to be buffered when debug enabled")
	}
}
