package screening

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/medscreen/medscreen/internal/models"
	"github.com/medscreen/medscreen/internal/study"
)

// SubmissionAgent owns the final phase: the participant has answered every
// question and decides whether to submit for evaluation, ask about the study,
// or withdraw. Answers are never modified in this phase.
type SubmissionAgent struct {
	agentBase
	classifier IntentClassifier
	responder  Responder
}

// NewSubmissionAgent creates the submission phase agent.
func NewSubmissionAgent(session *models.ParticipantSession, st *study.Study, classifier IntentClassifier, responder Responder) *SubmissionAgent {
	return &SubmissionAgent{
		agentBase:  agentBase{session: session, study: st},
		classifier: classifier,
		responder:  responder,
	}
}

// InitialMessage repeats the submission instruction.
func (a *SubmissionAgent) InitialMessage(ctx context.Context) *models.TurnResponse {
	return a.instructionResponse()
}

// Handle classifies the utterance and either submits, declines, repeats the
// instruction, or answers a study question.
func (a *SubmissionAgent) Handle(ctx context.Context, userInput string) *models.TurnResponse {
	if isAmbiguousSpeech(userInput) {
		resp := a.speakClearlyResponse(len(a.study.Criteria))
		resp.AwaitingSubmission = true
		return resp
	}

	raw, err := a.classifier.Classify(ctx, submissionClassifierPrompt(userInput))
	intent := normalizePhaseIntent(PhaseSubmission, raw, err)
	if err != nil {
		slog.Error("SubmissionAgent.Handle: classification failed, repeating instruction", "error", err,
			"sessionID", a.session.SessionID)
	}
	slog.Debug("SubmissionAgent.Handle: intent classified", "intent", intent,
		"sessionID", a.session.SessionID)

	switch intent {
	case models.IntentSubmit:
		resp := a.response("Evaluating your responses...", false)
		resp.Evaluating = true
		resp.TransitionTo = models.TransitionEvaluation
		resp.QuestionNumber = len(a.study.Criteria)
		return resp

	case models.IntentDecline:
		resp := a.response("I understand. Thank you for taking the time to answer the screening questions. If you change your mind and would like to participate in the future, feel free to try again.", false)
		resp.IsFinal = true
		resp.ConsentRejected = true
		resp.QuestionNumber = len(a.study.Criteria)
		return resp

	case models.IntentStudyQuestion, models.IntentUnclear:
		return a.answerStudyQuestion(ctx, userInput)

	default: // repeat_instruction
		return a.instructionResponse()
	}
}

func (a *SubmissionAgent) instructionResponse() *models.TurnResponse {
	resp := a.response(submissionInstruction, true)
	resp.AwaitingSubmission = true
	resp.QuestionNumber = len(a.study.Criteria)
	return resp
}

func (a *SubmissionAgent) answerStudyQuestion(ctx context.Context, userInput string) *models.TurnResponse {
	content, err := a.responder.Respond(ctx, "", submissionStudyQuestionPrompt(a.study, userInput))
	if err != nil {
		slog.Error("SubmissionAgent.answerStudyQuestion: generation failed, using template", "error", err,
			"sessionID", a.session.SessionID)
		content = fmt.Sprintf("This study aims to %s. You've completed all the screening questions.\n\nWould you like to submit your responses for evaluation, or do you have other questions about the study?",
			strings.ToLower(a.study.Overview.Purpose))
	}
	resp := a.response(content, true)
	resp.AwaitingSubmission = true
	resp.QuestionNumber = len(a.study.Criteria)
	return resp
}
