package screening

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medscreen/medscreen/internal/models"
	"github.com/medscreen/medscreen/internal/study"
)

// Coordinator routes each participant utterance to the agent owning the
// current conversation state and applies the phase transitions those agents
// signal. Agents never mutate the conversation state themselves.
//
// The Coordinator is not safe for concurrent use; the transport layer must
// serialize turns per session.
type Coordinator struct {
	session *models.ParticipantSession
	study   *study.Study
	state   models.ConversationState

	consent     *ConsentAgent
	questioning *QuestioningAgent
	submission  *SubmissionAgent
}

// Progress is a point-in-time snapshot of how far the interview has advanced.
type Progress struct {
	State              models.ConversationState `json:"state"`
	QuestionNumber     int                      `json:"question_number"`
	TotalQuestions     int                      `json:"total_questions"`
	Answered           int                      `json:"answered"`
	ProgressPercentage float64                  `json:"progress_percentage"`
}

// NewCoordinator builds the per-session conversation core. The study must
// exist and carry at least one criterion; an interview with nothing to screen
// is a configuration error, not an empty success.
func NewCoordinator(session *models.ParticipantSession, st *study.Study, classifier IntentClassifier, responder Responder) (*Coordinator, error) {
	if st == nil {
		return nil, fmt.Errorf("coordinator requires a study")
	}
	if len(st.Criteria) == 0 {
		return nil, fmt.Errorf("study %s has no screening criteria", st.ID)
	}

	c := &Coordinator{
		session:     session,
		study:       st,
		state:       models.StateGreeting,
		consent:     NewConsentAgent(session, st, classifier, responder),
		questioning: NewQuestioningAgent(session, st, classifier, responder),
		submission:  NewSubmissionAgent(session, st, classifier, responder),
	}
	slog.Info("Coordinator: initialized", "sessionID", session.SessionID,
		"participantID", session.ParticipantID, "studyID", st.ID, "criteria", len(st.Criteria))
	return c, nil
}

// Start opens the interview with the consent greeting and moves the
// conversation to waiting_consent.
func (c *Coordinator) Start(ctx context.Context) *models.TurnResponse {
	c.state = models.StateWaitingConsent
	return c.consent.InitialMessage(ctx)
}

// ProcessUserResponse handles one participant utterance.
func (c *Coordinator) ProcessUserResponse(ctx context.Context, userInput string) *models.TurnResponse {
	switch c.state {
	case models.StateWaitingConsent, models.StateConsentClarification:
		return c.handleConsentPhase(ctx, userInput)
	case models.StateAskingQuestions:
		return c.handleQuestioningPhase(ctx, userInput)
	case models.StateAwaitingSubmission:
		return c.handleSubmissionPhase(ctx, userInput)
	case models.StateEvaluating:
		return c.completeAfterEvaluation()
	default:
		resp := &models.TurnResponse{
			Content:          "Interview completed. Thank you for your time!",
			RequiresResponse: false,
			IsFinal:          true,
			QuestionNumber:   len(c.study.Criteria),
			TotalQuestions:   len(c.study.Criteria),
		}
		return resp
	}
}

func (c *Coordinator) handleConsentPhase(ctx context.Context, userInput string) *models.TurnResponse {
	resp := c.consent.Handle(ctx, userInput)

	switch {
	case resp.TransitionTo == models.TransitionQuestioning:
		c.transition(models.StateAskingQuestions)
		// Consent granted: the turn delivered to the participant is the
		// first question, not the handoff acknowledgement.
		return c.questioning.InitialMessage(ctx)
	case resp.ConsentRejected || resp.IsFinal:
		c.transition(models.StateCompleted)
	case !isAmbiguousSpeech(userInput):
		// A clarification exchange; unintelligible audio leaves the state
		// untouched.
		c.transition(models.StateConsentClarification)
	}
	return resp
}

func (c *Coordinator) handleQuestioningPhase(ctx context.Context, userInput string) *models.TurnResponse {
	resp := c.questioning.Handle(ctx, userInput)

	switch {
	case resp.TransitionTo == models.TransitionSubmission:
		c.transition(models.StateAwaitingSubmission)
	case resp.ConsentRejected || resp.IsFinal:
		c.transition(models.StateCompleted)
	}
	return resp
}

func (c *Coordinator) handleSubmissionPhase(ctx context.Context, userInput string) *models.TurnResponse {
	resp := c.submission.Handle(ctx, userInput)

	switch {
	case resp.TransitionTo == models.TransitionEvaluation:
		c.transition(models.StateEvaluating)
	case resp.ConsentRejected || resp.IsFinal:
		c.transition(models.StateCompleted)
	}
	return resp
}

func (c *Coordinator) completeAfterEvaluation() *models.TurnResponse {
	c.transition(models.StateCompleted)
	return &models.TurnResponse{
		Content:          "Thank you for completing the screening interview! Your responses have been recorded and evaluated.",
		RequiresResponse: false,
		IsFinal:          true,
		QuestionNumber:   len(c.study.Criteria),
		TotalQuestions:   len(c.study.Criteria),
	}
}

// CompleteInterview marks the interview finished after the evaluation result
// has been delivered.
func (c *Coordinator) CompleteInterview() *models.TurnResponse {
	return c.completeAfterEvaluation()
}

func (c *Coordinator) transition(next models.ConversationState) {
	if c.state == next {
		return
	}
	slog.Info("Coordinator.transition: state change", "sessionID", c.session.SessionID,
		"from", c.state, "to", next)
	c.state = next
}

// State returns the current conversation state.
func (c *Coordinator) State() models.ConversationState {
	return c.state
}

// Session returns the participant session the coordinator is driving.
func (c *Coordinator) Session() *models.ParticipantSession {
	return c.session
}

// Study returns the study being screened for.
func (c *Coordinator) Study() *study.Study {
	return c.study
}

// Progress reports how far the interview has advanced. Consent counts as one
// step and the final submission/evaluation as another, on top of one step per
// question.
func (c *Coordinator) Progress() Progress {
	total := len(c.study.Criteria) + 2
	var step int
	switch c.state {
	case models.StateGreeting, models.StateWaitingConsent, models.StateConsentClarification:
		step = 0
	case models.StateAskingQuestions:
		step = c.questioning.CurrentQuestionNumber()
	case models.StateAwaitingSubmission, models.StateEvaluating:
		step = total - 1
	case models.StateCompleted:
		step = total
	}
	return Progress{
		State:              c.state,
		QuestionNumber:     c.questioning.CurrentQuestionNumber(),
		TotalQuestions:     len(c.study.Criteria),
		Answered:           len(c.session.Responses),
		ProgressPercentage: float64(step) / float64(total) * 100,
	}
}
