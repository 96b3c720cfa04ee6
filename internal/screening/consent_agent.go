package screening

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/medscreen/medscreen/internal/models"
	"github.com/medscreen/medscreen/internal/study"
)

// ConsentAgent owns the greeting and consent phases. It explains the study,
// records nothing, and either hands off to questioning or ends the interview.
type ConsentAgent struct {
	agentBase
	classifier IntentClassifier
	responder  Responder
}

// NewConsentAgent creates the consent phase agent.
func NewConsentAgent(session *models.ParticipantSession, st *study.Study, classifier IntentClassifier, responder Responder) *ConsentAgent {
	return &ConsentAgent{
		agentBase:  agentBase{session: session, study: st},
		classifier: classifier,
		responder:  responder,
	}
}

// InitialMessage generates the greeting. Generation failures fall back to a
// templated greeting so the interview can always open.
func (a *ConsentAgent) InitialMessage(ctx context.Context) *models.TurnResponse {
	greeting, err := a.responder.Respond(ctx, "", greetingPrompt(a.study))
	if err != nil {
		slog.Error("ConsentAgent.InitialMessage: greeting generation failed, using template", "error", err)
		greeting = a.templateGreeting()
	}
	resp := a.response(greeting, true)
	resp.QuestionNumber = 0
	return resp
}

// Handle classifies the participant's reply to the consent request.
func (a *ConsentAgent) Handle(ctx context.Context, userInput string) *models.TurnResponse {
	if isAmbiguousSpeech(userInput) {
		return a.speakClearlyResponse(0)
	}

	raw, err := a.classifier.Classify(ctx, consentClassifierPrompt(userInput))
	if err != nil {
		slog.Error("ConsentAgent.Handle: consent classification failed", "error", err,
			"sessionID", a.session.SessionID)
		resp := a.response("Error processing consent response. Thank you for your time.", false)
		resp.IsFinal = true
		return resp
	}

	intent, ok := normalizeConsentIntent(raw)
	if !ok {
		slog.Warn("ConsentAgent.Handle: unrecognized consent label, treating as clarification request",
			"label", raw, "sessionID", a.session.SessionID)
		intent = models.IntentConsentClarify
	}
	slog.Debug("ConsentAgent.Handle: consent classified", "intent", intent,
		"sessionID", a.session.SessionID)

	switch intent {
	case models.IntentConsentYes:
		resp := a.response("Great! Let's begin with the screening questions.", false)
		resp.TransitionTo = models.TransitionQuestioning
		resp.QuestionNumber = 1
		return resp

	case models.IntentConsentNo:
		resp := a.response("I understand. Thank you for your time. If you change your mind, feel free to try again later.", false)
		resp.IsFinal = true
		resp.ConsentRejected = true
		return resp

	default: // CLARIFY
		resp := a.response(a.clarify(ctx, userInput), true)
		resp.QuestionNumber = 0
		return resp
	}
}

func (a *ConsentAgent) clarify(ctx context.Context, userInput string) string {
	clarification, err := a.responder.Respond(ctx, "", consentClarificationPrompt(a.study, userInput))
	if err != nil {
		slog.Error("ConsentAgent.clarify: clarification generation failed, using template", "error", err,
			"sessionID", a.session.SessionID)
		return fmt.Sprintf("Let me clarify: I'm MedBot, your clinical trial assistant.\n\nThis study aims to %s.\n\nYou will be asked a few screening questions to see if you might be eligible.\n\nDo you consent to proceed with the screening questions?",
			strings.ToLower(a.study.Overview.Purpose))
	}
	return clarification
}

func (a *ConsentAgent) templateGreeting() string {
	return fmt.Sprintf("Hello! I'm MedBot, your clinical trial assistant.\n\nI'd like to tell you about %q - this study aims to %s.\n\nThe time commitment is approximately %s, and you'll be asked %d screening questions to see if you might be eligible.\n\nDo you consent to proceed with the screening questions, or do you have any questions about the study before deciding?",
		a.study.Trial.Title,
		strings.ToLower(a.study.Overview.Purpose),
		strings.ToLower(a.study.Overview.ParticipantCommitment),
		len(a.study.Criteria))
}
