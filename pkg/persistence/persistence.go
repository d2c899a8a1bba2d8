// Package persistence provides SQLite-backed storage of finished interview
// sessions plus the one-JSON-document-per-session export.
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // sqlite driver

	"interviewcoach/pkg/logx"
	"interviewcoach/pkg/schema"
	"interviewcoach/pkg/session"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id      TEXT PRIMARY KEY,
	team_name       TEXT NOT NULL,
	candidate_name  TEXT NOT NULL,
	position        TEXT NOT NULL,
	grade           TEXT NOT NULL,
	recommendation  TEXT NOT NULL,
	final_feedback  TEXT NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
	session_id        TEXT NOT NULL REFERENCES sessions(session_id),
	turn_id           INTEGER NOT NULL,
	timestamp         TEXT NOT NULL,
	question          TEXT NOT NULL,
	answer            TEXT NOT NULL,
	internal_thoughts TEXT NOT NULL,
	action            TEXT NOT NULL,
	correctness       REAL NOT NULL,
	confidence        REAL NOT NULL,
	PRIMARY KEY (session_id, turn_id)
);
`

// Store persists finished sessions. SQLite supports a single writer, so the
// connection pool is capped at one.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open opens (creating if needed) the session database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000", path,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db, logger: logx.NewLogger("persistence")}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession writes a finished session and its turns in one transaction.
func (s *Store) SaveSession(doc session.Document) error {
	feedback, err := json.Marshal(doc.FinalFeedback)
	if err != nil {
		return fmt.Errorf("failed to marshal final feedback: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO sessions
			(session_id, team_name, candidate_name, position, grade, recommendation, final_feedback, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.SessionID,
		doc.TeamName,
		doc.Meta.Name,
		doc.Meta.Position,
		doc.Meta.Grade,
		doc.FinalFeedback.Verdict.Recommendation,
		string(feedback),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", doc.SessionID, err)
	}

	for _, turn := range doc.Turns {
		_, err = tx.Exec(`
			INSERT INTO turns
				(session_id, turn_id, timestamp, question, answer, internal_thoughts, action, correctness, confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.SessionID,
			turn.TurnID,
			turn.Timestamp.Format(time.RFC3339),
			turn.AgentVisibleMsg,
			turn.UserMessage,
			turn.InternalThoughts,
			string(turn.Action),
			turn.Scores.Correctness,
			turn.Scores.ConfidenceEstimate,
		)
		if err != nil {
			return fmt.Errorf("failed to insert turn %d: %w", turn.TurnID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", doc.SessionID, err)
	}
	s.logger.Info("session %s saved (%d turns)", doc.SessionID, len(doc.Turns))
	return nil
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	SessionID      string
	TeamName       string
	CandidateName  string
	Position       string
	Grade          string
	Recommendation string
	CreatedAt      time.Time
}

// ListSessions returns saved sessions, newest first.
func (s *Store) ListSessions() ([]SessionSummary, error) {
	rows, err := s.db.Query(`
		SELECT session_id, team_name, candidate_name, position, grade, recommendation, created_at
		FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SessionSummary
	for rows.Next() {
		var row SessionSummary
		var createdAt string
		if err := rows.Scan(&row.SessionID, &row.TeamName, &row.CandidateName,
			&row.Position, &row.Grade, &row.Recommendation, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		row.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetFinalReport returns the stored report for a session.
func (s *Store) GetFinalReport(sessionID string) (*schema.FinalReport, error) {
	var raw string
	err := s.db.QueryRow(
		`SELECT final_feedback FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load report for session %s: %w", sessionID, err)
	}

	var report schema.FinalReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("failed to parse stored report: %w", err)
	}
	return &report, nil
}

// ExportJSON writes the session document to dir as one indented JSON file
// and returns its path.
func ExportJSON(dir string, doc session.Document) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal session document: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("interview_log_%s.json", doc.SessionID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write session document: %w", err)
	}
	return path, nil
}
