package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/medscreen/medscreen/internal/models"
)

// marshalInterviewColumns serializes the map-shaped interview fields for the
// JSON/text columns.
func marshalInterviewColumns(rec *models.InterviewRecord) (responses, transcript string, err error) {
	respJSON, err := json.Marshal(rec.Responses)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal responses: %w", err)
	}
	transcriptJSON, err := json.Marshal(rec.Transcript)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal transcript: %w", err)
	}
	return string(respJSON), string(transcriptJSON), nil
}

func unmarshalInterviewColumns(rec *models.InterviewRecord, responses, transcript string) error {
	if err := json.Unmarshal([]byte(responses), &rec.Responses); err != nil {
		return fmt.Errorf("failed to unmarshal responses: %w", err)
	}
	if err := json.Unmarshal([]byte(transcript), &rec.Transcript); err != nil {
		return fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return nil
}

// scanInterviewRow scans an InterviewRecord from a single sql.Row.
func scanInterviewRow(row *sql.Row) (*models.InterviewRecord, error) {
	var rec models.InterviewRecord
	var responses, transcript string
	err := row.Scan(&rec.SessionID, &rec.ParticipantID, &rec.StudyID, &rec.Status,
		&responses, &transcript, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalInterviewColumns(&rec, responses, transcript); err != nil {
		return nil, err
	}
	return &rec, nil
}

// scanInterviewRows scans an InterviewRecord from sql.Rows.
func scanInterviewRows(rows *sql.Rows) (*models.InterviewRecord, error) {
	var rec models.InterviewRecord
	var responses, transcript string
	err := rows.Scan(&rec.SessionID, &rec.ParticipantID, &rec.StudyID, &rec.Status,
		&responses, &transcript, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalInterviewColumns(&rec, responses, transcript); err != nil {
		return nil, err
	}
	return &rec, nil
}

// scanVerdictRow scans an EligibilityVerdict from a single sql.Row.
func scanVerdictRow(row *sql.Row) (*models.EligibilityVerdict, error) {
	var v models.EligibilityVerdict
	var decision, criteriaMet string
	err := row.Scan(&v.SessionID, &v.ParticipantID, &v.StudyID, &v.Eligible, &v.Score,
		&decision, &v.DecisionScore, &criteriaMet, &v.Summary, &v.EvaluatedAt)
	if err != nil {
		return nil, err
	}
	v.Decision = models.DecisionResult(decision)
	if err := json.Unmarshal([]byte(criteriaMet), &v.CriteriaMet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal criteria judgments: %w", err)
	}
	return &v, nil
}
