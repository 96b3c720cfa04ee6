package screening

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/medscreen/medscreen/internal/models"
	"github.com/medscreen/medscreen/internal/study"
)

const submissionInstruction = "Thank you for answering all the screening questions. Would you like to submit your responses for evaluation, or do you have any questions about the study before deciding?"

// QuestioningAgent walks the participant through the study criteria in order,
// one question per criterion. It owns the current-question cursor; answers
// are recorded in the session keyed by criterion ID.
type QuestioningAgent struct {
	agentBase
	classifier IntentClassifier
	responder  Responder
	index      int
}

// NewQuestioningAgent creates the questioning phase agent.
func NewQuestioningAgent(session *models.ParticipantSession, st *study.Study, classifier IntentClassifier, responder Responder) *QuestioningAgent {
	return &QuestioningAgent{
		agentBase:  agentBase{session: session, study: st},
		classifier: classifier,
		responder:  responder,
	}
}

// CurrentQuestionNumber returns the 1-based number of the question the agent
// is on, capped at the question count once all answers are in.
func (a *QuestioningAgent) CurrentQuestionNumber() int {
	if a.index >= len(a.study.Criteria) {
		return len(a.study.Criteria)
	}
	return a.index + 1
}

// InitialMessage asks the first unanswered question.
func (a *QuestioningAgent) InitialMessage(ctx context.Context) *models.TurnResponse {
	return a.askCurrentQuestion()
}

// Handle classifies the utterance against the current question and either
// records an answer, navigates, redirects, or ends the interview.
func (a *QuestioningAgent) Handle(ctx context.Context, userInput string) *models.TurnResponse {
	if a.index >= len(a.study.Criteria) {
		resp := a.response("Interview completed. Thank you for your time!", false)
		resp.IsFinal = true
		resp.QuestionNumber = len(a.study.Criteria)
		return resp
	}

	if isAmbiguousSpeech(userInput) {
		return a.speakClearlyResponse(a.index + 1)
	}

	current := a.study.Criteria[a.index]
	raw, err := a.classifier.Classify(ctx, questioningClassifierPrompt(userInput, current))
	intent := normalizePhaseIntent(PhaseQuestioning, raw, err)
	if err != nil {
		slog.Error("QuestioningAgent.Handle: classification failed, treating as answer", "error", err,
			"sessionID", a.session.SessionID, "question", a.index+1)
	}
	slog.Debug("QuestioningAgent.Handle: intent classified", "intent", intent,
		"sessionID", a.session.SessionID, "question", a.index+1)

	switch intent {
	case models.IntentUnclear:
		return a.redirectUnclear(ctx, userInput, current)

	case models.IntentDecline:
		resp := a.response("I understand. Thank you for your time. If you change your mind and would like to participate in the future, feel free to try again.", false)
		resp.IsFinal = true
		resp.ConsentRejected = true
		resp.QuestionNumber = a.index + 1
		return resp

	case models.IntentRepeatCurrent:
		return a.askCurrentQuestion()

	case models.IntentRepeatPrevious:
		if a.index > 0 {
			// Drop the stored answer so the re-answer replaces it.
			prev := a.study.Criteria[a.index-1]
			delete(a.session.Responses, prev.ID)
			a.index--
		}
		return a.askCurrentQuestion()

	default: // answer
		a.session.Responses[current.ID] = strings.TrimSpace(userInput)
		a.index++
		if a.index < len(a.study.Criteria) {
			return a.askCurrentQuestion()
		}
		resp := a.response(submissionInstruction, true)
		resp.TransitionTo = models.TransitionSubmission
		resp.AwaitingSubmission = true
		resp.QuestionNumber = len(a.study.Criteria)
		return resp
	}
}

func (a *QuestioningAgent) askCurrentQuestion() *models.TurnResponse {
	if a.index >= len(a.study.Criteria) {
		resp := a.response("We've completed all the screening questions.", false)
		resp.QuestionNumber = len(a.study.Criteria)
		return resp
	}
	resp := a.response(a.study.Criteria[a.index].Question, true)
	resp.QuestionNumber = a.index + 1
	return resp
}

func (a *QuestioningAgent) redirectUnclear(ctx context.Context, userInput string, current models.Criterion) *models.TurnResponse {
	content, err := a.responder.Respond(ctx, "",
		unclearRedirectPrompt(a.study, current, a.index+1, len(a.study.Criteria), userInput))
	if err != nil {
		slog.Error("QuestioningAgent.redirectUnclear: redirect generation failed, using template", "error", err,
			"sessionID", a.session.SessionID, "question", a.index+1)
		content = fmt.Sprintf("I didn't quite understand that. Let me ask the question again: %s", current.Question)
	}
	resp := a.response(content, true)
	resp.QuestionNumber = a.index + 1
	return resp
}
