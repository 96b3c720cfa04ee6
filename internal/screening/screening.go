// Package screening implements the interview conversation core: a
// phase-based state machine (consent, questioning, submission) driven by a
// Coordinator that routes each participant utterance to the agent owning the
// current phase.
//
// The natural-language work is delegated to two injected capabilities, an
// intent classifier and a free-text responder, so the state machine itself
// is deterministic and testable with stubs.
package screening

import (
	"context"

	"github.com/medscreen/medscreen/internal/models"
	"github.com/medscreen/medscreen/internal/study"
)

// IntentClassifier classifies a participant utterance against a phase
// taxonomy. The prompt carries the taxonomy and decision guidance; the return
// value is the raw model output, validated by the calling agent against the
// phase's allowed labels.
type IntentClassifier interface {
	Classify(ctx context.Context, prompt string) (string, error)
}

// Responder generates user-facing conversational prose (greetings,
// clarifications, redirects). Callers must treat failures as recoverable and
// fall back to a deterministic templated string.
type Responder interface {
	Respond(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Agent is the shared interface of the three phase agents.
type Agent interface {
	// InitialMessage produces the message the agent opens its phase with.
	InitialMessage(ctx context.Context) *models.TurnResponse

	// Handle processes one participant utterance and returns the turn
	// response, possibly carrying a transition signal for the Coordinator.
	Handle(ctx context.Context, userInput string) *models.TurnResponse
}

// agentBase carries the state shared by all phase agents.
type agentBase struct {
	session *models.ParticipantSession
	study   *study.Study
}

func (b *agentBase) totalQuestions() int {
	return len(b.study.Criteria)
}

// response builds a turn response with the fields every agent sets.
func (b *agentBase) response(content string, requiresResponse bool) *models.TurnResponse {
	return &models.TurnResponse{
		Content:          content,
		RequiresResponse: requiresResponse,
		TotalQuestions:   b.totalQuestions(),
	}
}

// speakClearlyResponse is the shared fast-path reply for the exact
// unintelligible-speech sentinel. It never consumes phase logic: no
// classification, no index movement, no persisted answer.
func (b *agentBase) speakClearlyResponse(questionNumber int) *models.TurnResponse {
	resp := b.response("I didn't catch that clearly. Please speak more clearly, or speak in the language you selected.", true)
	resp.QuestionNumber = questionNumber
	return resp
}
