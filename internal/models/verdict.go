// Package models: evaluation outputs and interview persistence records.
package models

import "time"

// DecisionResult is the binary outcome of the decision algorithm.
type DecisionResult string

const (
	DecisionAccept DecisionResult = "Accept"
	DecisionReject DecisionResult = "Reject"
)

// CriterionJudgment is the structured judgment of one participant answer
// against one criterion, as returned by the criterion judge.
type CriterionJudgment struct {
	CriterionID         string   `json:"criteria_id"`
	CriterionText       string   `json:"criteria_text"`
	Priority            Priority `json:"priority"`
	ParticipantResponse string   `json:"participant_response"`
	MeetsCriteria       bool     `json:"meets_criteria"`
	Confidence          float64  `json:"confidence"` // 0..1
	Reasoning           string   `json:"reasoning"`
	ExtractedValue      string   `json:"extracted_value,omitempty"`
}

// EligibilityVerdict is the final outcome of an interview. Eligible follows
// the decision algorithm; Score is the legacy weighted percentage kept for
// reporting only (the two use different weight tables and are deliberately
// not reconciled).
type EligibilityVerdict struct {
	SessionID     string              `json:"session_id"`
	ParticipantID string              `json:"participant_id"`
	StudyID       string              `json:"study_id"`
	Eligible      bool                `json:"eligible"`
	Score         float64             `json:"score"` // legacy weighted percentage, 0-100
	CriteriaMet   []CriterionJudgment `json:"criteria_met"`
	Summary       string              `json:"summary"`
	DecisionScore float64             `json:"decision_algorithm_score"`
	Decision      DecisionResult      `json:"decision_algorithm_result"`
	EvaluatedAt   time.Time           `json:"evaluation_timestamp"`
}

// TranscriptMessage is one exchanged message in the interview transcript.
type TranscriptMessage struct {
	Role      string    `json:"role"` // "user" or "agent"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// InterviewRecord is what the store persists when an interview completes or
// is abandoned.
type InterviewRecord struct {
	SessionID     string              `json:"session_id"`
	ParticipantID string              `json:"participant_id"`
	StudyID       string              `json:"study_id"`
	Status        string              `json:"status"` // completed, declined, abandoned
	Responses     map[string]string   `json:"responses"`
	Transcript    []TranscriptMessage `json:"transcript"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}
