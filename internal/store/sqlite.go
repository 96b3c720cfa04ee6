// Package store: SQLite-backed persistence for interviews and verdicts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/medscreen/medscreen/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database
// directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN. The DSN is a
// file path to the SQLite database file; its directory is created when
// missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveInterview(rec *models.InterviewRecord) error {
	responses, transcript, err := marshalInterviewColumns(rec)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO interviews (session_id, participant_id, study_id, status, responses, transcript, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET status=excluded.status, responses=excluded.responses, transcript=excluded.transcript, updated_at=excluded.updated_at`,
		rec.SessionID, rec.ParticipantID, rec.StudyID, rec.Status, responses, transcript, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveInterview failed", "error", err, "sessionID", rec.SessionID)
		return fmt.Errorf("failed to save interview %s: %w", rec.SessionID, err)
	}
	slog.Debug("SQLiteStore SaveInterview succeeded", "sessionID", rec.SessionID, "status", rec.Status)
	return nil
}

func (s *SQLiteStore) GetInterview(participantID string) (*models.InterviewRecord, error) {
	row := s.db.QueryRow(`SELECT session_id, participant_id, study_id, status, responses, transcript, created_at, updated_at
		FROM interviews WHERE participant_id = ? ORDER BY updated_at DESC LIMIT 1`, participantID)
	rec, err := scanInterviewRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: interview for participant %s", ErrNotFound, participantID)
	}
	if err != nil {
		slog.Error("SQLiteStore GetInterview failed", "error", err, "participantID", participantID)
		return nil, fmt.Errorf("failed to get interview for %s: %w", participantID, err)
	}
	return rec, nil
}

func (s *SQLiteStore) ListInterviews() ([]models.InterviewRecord, error) {
	rows, err := s.db.Query(`SELECT session_id, participant_id, study_id, status, responses, transcript, created_at, updated_at
		FROM interviews ORDER BY created_at`)
	if err != nil {
		slog.Error("SQLiteStore ListInterviews query failed", "error", err)
		return nil, fmt.Errorf("failed to query interviews: %w", err)
	}
	defer rows.Close()

	var out []models.InterviewRecord
	for rows.Next() {
		rec, err := scanInterviewRows(rows)
		if err != nil {
			slog.Error("SQLiteStore ListInterviews scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan interview row: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interview rows: %w", err)
	}
	slog.Debug("SQLiteStore ListInterviews succeeded", "count", len(out))
	return out, nil
}

func (s *SQLiteStore) SaveVerdict(v *models.EligibilityVerdict) error {
	criteriaMet, err := json.Marshal(v.CriteriaMet)
	if err != nil {
		return fmt.Errorf("failed to marshal criteria judgments: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO verdicts (session_id, participant_id, study_id, eligible, score, decision, decision_score, criteria_met, summary, evaluated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET eligible=excluded.eligible, score=excluded.score, decision=excluded.decision, decision_score=excluded.decision_score, criteria_met=excluded.criteria_met, summary=excluded.summary, evaluated_at=excluded.evaluated_at`,
		v.SessionID, v.ParticipantID, v.StudyID, v.Eligible, v.Score, string(v.Decision), v.DecisionScore, string(criteriaMet), v.Summary, v.EvaluatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveVerdict failed", "error", err, "sessionID", v.SessionID)
		return fmt.Errorf("failed to save verdict %s: %w", v.SessionID, err)
	}
	slog.Debug("SQLiteStore SaveVerdict succeeded", "sessionID", v.SessionID, "eligible", v.Eligible)
	return nil
}

func (s *SQLiteStore) GetVerdict(sessionID string) (*models.EligibilityVerdict, error) {
	row := s.db.QueryRow(`SELECT session_id, participant_id, study_id, eligible, score, decision, decision_score, criteria_met, summary, evaluated_at
		FROM verdicts WHERE session_id = ?`, sessionID)
	v, err := scanVerdictRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: verdict for session %s", ErrNotFound, sessionID)
	}
	if err != nil {
		slog.Error("SQLiteStore GetVerdict failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to get verdict for %s: %w", sessionID, err)
	}
	return v, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
