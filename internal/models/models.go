// Package models defines the shared data contracts for the screening system:
// eligibility criteria, participant sessions, per-turn protocol messages, and
// eligibility verdicts.
package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AmbiguousSpeechSentinel is the exact transcript the speech-to-text layer
// emits when it could not make out what the participant said. Agents match it
// verbatim and short-circuit with a "please speak clearly" reply instead of
// routing it through the intent classifier.
const AmbiguousSpeechSentinel = "Ambiguous sound."

// Priority classifies how strongly a criterion weighs on the eligibility
// decision.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the known priority classes.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Criterion is a single eligibility rule for a study. The ordered sequence of
// criteria defines the question order of the interview. Criteria are loaded
// from the study catalog and never mutated at runtime.
type Criterion struct {
	ID               string   `json:"id"`
	Text             string   `json:"text"`              // eligibility rule in clinical language
	Question         string   `json:"question"`          // conversational phrasing asked to the participant
	ExpectedResponse string   `json:"expected_response"` // hint for the evaluator
	Priority         Priority `json:"priority"`
}

// ParticipantSession tracks one interview attempt. Responses maps criterion ID
// to the participant's answer text; an entry exists iff the criterion has been
// durably answered, not merely asked.
type ParticipantSession struct {
	SessionID     string            `json:"session_id"`
	ParticipantID string            `json:"participant_id"`
	Responses     map[string]string `json:"responses"`
}

// NewParticipantSession creates a fresh session with generated identifiers.
func NewParticipantSession() *ParticipantSession {
	return &ParticipantSession{
		SessionID:     uuid.NewString(),
		ParticipantID: fmt.Sprintf("P-%s", strings.ToUpper(uuid.NewString()[:8])),
		Responses:     make(map[string]string),
	}
}
