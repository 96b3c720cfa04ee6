// Package models: conversation state, intent labels, and the per-turn
// protocol message exchanged with the transport layer.
package models

// ConversationState identifies the phase the interview is in. Exactly one
// state is active at a time; transitions are applied by the Coordinator from
// signals carried on agent responses, never inferred from free text.
type ConversationState string

const (
	StateGreeting             ConversationState = "greeting"
	StateWaitingConsent       ConversationState = "waiting_consent"
	StateConsentClarification ConversationState = "consent_clarification"
	StateAskingQuestions      ConversationState = "asking_questions"
	StateAwaitingSubmission   ConversationState = "awaiting_submission"
	StateEvaluating           ConversationState = "evaluating"
	StateCompleted            ConversationState = "completed"
)

// TransitionSignal is a phase-change request carried on a TurnResponse. The
// Coordinator maps signals to states; agents never set ConversationState
// directly.
type TransitionSignal string

const (
	TransitionQuestioning TransitionSignal = "questioning"
	TransitionSubmission  TransitionSignal = "submission"
	TransitionEvaluation  TransitionSignal = "evaluation"
	TransitionCompleted   TransitionSignal = "completed"
)

// Intent is a classifier label. Each phase classifies against its own fixed
// subset of these labels.
type Intent string

const (
	// Consent phase labels.
	IntentConsentYes     Intent = "YES"
	IntentConsentNo      Intent = "NO"
	IntentConsentClarify Intent = "CLARIFY"

	// Questioning phase labels.
	IntentAmbiguous      Intent = "ambiguous"
	IntentUnclear        Intent = "unclear"
	IntentDecline        Intent = "decline"
	IntentRepeatCurrent  Intent = "repeat_current"
	IntentRepeatPrevious Intent = "repeat_previous"
	IntentAnswer         Intent = "answer"

	// Submission phase labels (shares ambiguous/decline/unclear above).
	IntentSubmit            Intent = "submit"
	IntentRepeatInstruction Intent = "repeat_instruction"
	IntentStudyQuestion     Intent = "study_question"
)

// TurnResponse is the protocol message produced for every conversation turn.
// It is built fresh each turn and serialized by the transport layer; it is
// never persisted as an object.
type TurnResponse struct {
	Content          string `json:"content"`
	RequiresResponse bool   `json:"requires_response"`
	IsFinal          bool   `json:"is_final"`
	QuestionNumber   int    `json:"question_number"` // 1-based; 0 during consent
	TotalQuestions   int    `json:"total_questions"`

	// Phase-transition signals consumed by the Coordinator.
	TransitionTo       TransitionSignal `json:"transition_to,omitempty"`
	ConsentRejected    bool             `json:"consent_rejected,omitempty"`
	AwaitingSubmission bool             `json:"awaiting_submission,omitempty"`
	Evaluating         bool             `json:"evaluating,omitempty"`
}
