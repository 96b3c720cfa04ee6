package screening

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/medscreen/medscreen/internal/models"
)

func TestConsentAgentInitialMessage(t *testing.T) {
	responder := &stubResponder{reply: "Welcome! Do you consent to proceed?"}
	agent := NewConsentAgent(testSession(), testStudy(), &stubClassifier{}, responder)

	resp := agent.InitialMessage(context.Background())
	if resp.Content != "Welcome! Do you consent to proceed?" {
		t.Errorf("expected generated greeting, got %q", resp.Content)
	}
	if !resp.RequiresResponse {
		t.Error("greeting must require a response")
	}
	if resp.QuestionNumber != 0 {
		t.Errorf("consent phase question number should be 0, got %d", resp.QuestionNumber)
	}
	if resp.TotalQuestions != 3 {
		t.Errorf("expected total questions 3, got %d", resp.TotalQuestions)
	}
}

func TestConsentAgentInitialMessageFallsBackOnGenerationError(t *testing.T) {
	responder := &stubResponder{err: errors.New("model unavailable")}
	agent := NewConsentAgent(testSession(), testStudy(), &stubClassifier{}, responder)

	resp := agent.InitialMessage(context.Background())
	if !strings.Contains(resp.Content, "Hypertension Management Study") {
		t.Errorf("fallback greeting should name the study, got %q", resp.Content)
	}
	if !strings.Contains(resp.Content, "3 screening questions") {
		t.Errorf("fallback greeting should state the question count, got %q", resp.Content)
	}
	if !resp.RequiresResponse {
		t.Error("fallback greeting must still require a response")
	}
}

func TestConsentAgentYes(t *testing.T) {
	agent := NewConsentAgent(testSession(), testStudy(), &stubClassifier{labels: []string{"YES"}}, &stubResponder{})

	resp := agent.Handle(context.Background(), "yeah sure")
	if resp.TransitionTo != models.TransitionQuestioning {
		t.Errorf("expected questioning transition, got %q", resp.TransitionTo)
	}
	if resp.RequiresResponse {
		t.Error("transition turn must not wait for input")
	}
	if resp.IsFinal || resp.ConsentRejected {
		t.Error("consent acceptance must not end the interview")
	}
}

func TestConsentAgentNo(t *testing.T) {
	agent := NewConsentAgent(testSession(), testStudy(), &stubClassifier{labels: []string{"NO"}}, &stubResponder{})

	resp := agent.Handle(context.Background(), "no thanks")
	if !resp.IsFinal {
		t.Error("declined consent must be final")
	}
	if !resp.ConsentRejected {
		t.Error("declined consent must set consent_rejected")
	}
	if resp.TransitionTo != "" {
		t.Errorf("declined consent must not carry a transition, got %q", resp.TransitionTo)
	}
}

func TestConsentAgentClarify(t *testing.T) {
	responder := &stubResponder{reply: "The study takes six weeks. Do you consent to proceed?"}
	agent := NewConsentAgent(testSession(), testStudy(), &stubClassifier{labels: []string{"CLARIFY"}}, responder)

	resp := agent.Handle(context.Background(), "how long does it take?")
	if resp.Content != responder.reply {
		t.Errorf("expected generated clarification, got %q", resp.Content)
	}
	if !resp.RequiresResponse || resp.IsFinal {
		t.Error("clarification must keep the conversation open")
	}
	if resp.QuestionNumber != 0 {
		t.Errorf("clarification stays in consent phase, got question %d", resp.QuestionNumber)
	}
}

func TestConsentAgentClarifyFallsBackOnGenerationError(t *testing.T) {
	responder := &stubResponder{err: errors.New("model unavailable")}
	agent := NewConsentAgent(testSession(), testStudy(), &stubClassifier{labels: []string{"CLARIFY"}}, responder)

	resp := agent.Handle(context.Background(), "what's involved?")
	if !strings.Contains(resp.Content, "Do you consent to proceed") {
		t.Errorf("fallback clarification should re-ask for consent, got %q", resp.Content)
	}
	if !resp.RequiresResponse {
		t.Error("fallback clarification must keep the conversation open")
	}
}

func TestConsentAgentUnknownLabelTreatedAsClarify(t *testing.T) {
	responder := &stubResponder{reply: "Happy to explain. Do you consent to proceed?"}
	agent := NewConsentAgent(testSession(), testStudy(), &stubClassifier{labels: []string{"PERHAPS"}}, responder)

	resp := agent.Handle(context.Background(), "hmm")
	if resp.IsFinal {
		t.Error("unknown consent label must not end the interview")
	}
	if responder.calls != 1 {
		t.Errorf("unknown label should trigger a clarification, responder calls = %d", responder.calls)
	}
}

func TestConsentAgentClassifierErrorEndsInterview(t *testing.T) {
	agent := NewConsentAgent(testSession(), testStudy(), &stubClassifier{err: errors.New("api down")}, &stubResponder{})

	resp := agent.Handle(context.Background(), "yes")
	if !resp.IsFinal {
		t.Error("consent classification failure must end the interview")
	}
	if resp.ConsentRejected {
		t.Error("classification failure is not a decline")
	}
}

func TestConsentAgentAmbiguousSpeech(t *testing.T) {
	classifier := &stubClassifier{labels: []string{"YES"}}
	agent := NewConsentAgent(testSession(), testStudy(), classifier, &stubResponder{})

	resp := agent.Handle(context.Background(), models.AmbiguousSpeechSentinel)
	if classifier.calls != 0 {
		t.Error("sentinel must bypass classification")
	}
	if !strings.Contains(resp.Content, "didn't catch that clearly") {
		t.Errorf("expected speak-clearly reply, got %q", resp.Content)
	}
	if !resp.RequiresResponse || resp.IsFinal {
		t.Error("sentinel reply must keep the conversation open")
	}
}
