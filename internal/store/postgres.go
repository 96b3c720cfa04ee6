// Package store: Postgres-backed persistence for interviews and verdicts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/medscreen/medscreen/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveInterview(rec *models.InterviewRecord) error {
	responses, transcript, err := marshalInterviewColumns(rec)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO interviews (session_id, participant_id, study_id, status, responses, transcript, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT(session_id) DO UPDATE SET status=excluded.status, responses=excluded.responses, transcript=excluded.transcript, updated_at=excluded.updated_at`,
		rec.SessionID, rec.ParticipantID, rec.StudyID, rec.Status, responses, transcript, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveInterview failed", "error", err, "sessionID", rec.SessionID)
		return fmt.Errorf("failed to save interview %s: %w", rec.SessionID, err)
	}
	return nil
}

func (s *PostgresStore) GetInterview(participantID string) (*models.InterviewRecord, error) {
	row := s.db.QueryRow(`SELECT session_id, participant_id, study_id, status, responses, transcript, created_at, updated_at
		FROM interviews WHERE participant_id = $1 ORDER BY updated_at DESC LIMIT 1`, participantID)
	rec, err := scanInterviewRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: interview for participant %s", ErrNotFound, participantID)
	}
	if err != nil {
		slog.Error("PostgresStore GetInterview failed", "error", err, "participantID", participantID)
		return nil, fmt.Errorf("failed to get interview for %s: %w", participantID, err)
	}
	return rec, nil
}

func (s *PostgresStore) ListInterviews() ([]models.InterviewRecord, error) {
	rows, err := s.db.Query(`SELECT session_id, participant_id, study_id, status, responses, transcript, created_at, updated_at
		FROM interviews ORDER BY created_at`)
	if err != nil {
		slog.Error("PostgresStore ListInterviews query failed", "error", err)
		return nil, fmt.Errorf("failed to query interviews: %w", err)
	}
	defer rows.Close()

	var out []models.InterviewRecord
	for rows.Next() {
		rec, err := scanInterviewRows(rows)
		if err != nil {
			slog.Error("PostgresStore ListInterviews scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan interview row: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interview rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveVerdict(v *models.EligibilityVerdict) error {
	criteriaMet, err := json.Marshal(v.CriteriaMet)
	if err != nil {
		return fmt.Errorf("failed to marshal criteria judgments: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO verdicts (session_id, participant_id, study_id, eligible, score, decision, decision_score, criteria_met, summary, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT(session_id) DO UPDATE SET eligible=excluded.eligible, score=excluded.score, decision=excluded.decision, decision_score=excluded.decision_score, criteria_met=excluded.criteria_met, summary=excluded.summary, evaluated_at=excluded.evaluated_at`,
		v.SessionID, v.ParticipantID, v.StudyID, v.Eligible, v.Score, string(v.Decision), v.DecisionScore, string(criteriaMet), v.Summary, v.EvaluatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveVerdict failed", "error", err, "sessionID", v.SessionID)
		return fmt.Errorf("failed to save verdict %s: %w", v.SessionID, err)
	}
	return nil
}

func (s *PostgresStore) GetVerdict(sessionID string) (*models.EligibilityVerdict, error) {
	row := s.db.QueryRow(`SELECT session_id, participant_id, study_id, eligible, score, decision, decision_score, criteria_met, summary, evaluated_at
		FROM verdicts WHERE session_id = $1`, sessionID)
	v, err := scanVerdictRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: verdict for session %s", ErrNotFound, sessionID)
	}
	if err != nil {
		slog.Error("PostgresStore GetVerdict failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to get verdict for %s: %w", sessionID, err)
	}
	return v, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
