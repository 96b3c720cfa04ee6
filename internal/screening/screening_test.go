package screening

import (
	"context"
	"testing"

	"github.com/medscreen/medscreen/internal/models"
	"github.com/medscreen/medscreen/internal/study"
)

// stubClassifier returns queued labels in order, repeating the last one when
// the queue runs dry. A non-nil err is returned on every call instead.
type stubClassifier struct {
	labels  []string
	err     error
	prompts []string
	calls   int
}

func (s *stubClassifier) Classify(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.labels) == 0 {
		return "", nil
	}
	i := s.calls - 1
	if i >= len(s.labels) {
		i = len(s.labels) - 1
	}
	return s.labels[i], nil
}

// stubResponder returns a fixed reply, or err when set.
type stubResponder struct {
	reply string
	err   error
	calls int
}

func (s *stubResponder) Respond(_ context.Context, _, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func testStudy() *study.Study {
	return &study.Study{
		ID: "hypertension-2026",
		Trial: study.Trial{
			Title:    "Hypertension Management Study",
			Category: "Cardiology",
			Phase:    "Phase 2",
			Sponsor:  "City Research Hospital",
			NCTID:    "NCT00000001",
		},
		Overview: study.Overview{
			Purpose:               "Evaluate a new blood pressure medication",
			ParticipantCommitment: "Two visits over six weeks",
			KeyProcedures:         []string{"Blood pressure monitoring", "Blood draws"},
		},
		ContactInfo: "Research office, 555-0100",
		Criteria: []models.Criterion{
			{
				ID:               "age_range",
				Text:             "Participant is between 18 and 75 years old",
				Question:         "How old are you?",
				ExpectedResponse: "Age between 18 and 75",
				Priority:         models.PriorityHigh,
			},
			{
				ID:               "hypertension_diagnosis",
				Text:             "Participant has a hypertension diagnosis",
				Question:         "Have you been diagnosed with high blood pressure?",
				ExpectedResponse: "Yes",
				Priority:         models.PriorityHigh,
			},
			{
				ID:               "pregnancy",
				Text:             "Participant is not pregnant",
				Question:         "Are you currently pregnant?",
				ExpectedResponse: "No",
				Priority:         models.PriorityMedium,
			},
		},
	}
}

func testSession() *models.ParticipantSession {
	return models.NewParticipantSession()
}

func TestNormalizeConsentIntent(t *testing.T) {
	cases := []struct {
		raw  string
		want models.Intent
		ok   bool
	}{
		{"YES", models.IntentConsentYes, true},
		{"yes", models.IntentConsentYes, true},
		{" Yes. ", models.IntentConsentYes, true},
		{"NO", models.IntentConsentNo, true},
		{"\"CLARIFY\"", models.IntentConsentClarify, true},
		{"maybe", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := normalizeConsentIntent(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Errorf("normalizeConsentIntent(%q) = (%q, %v), want (%q, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizePhaseIntentFallbacks(t *testing.T) {
	if got := normalizePhaseIntent(PhaseQuestioning, "gibberish", nil); got != models.IntentAnswer {
		t.Errorf("unknown questioning label should fall back to answer, got %q", got)
	}
	if got := normalizePhaseIntent(PhaseQuestioning, "", context.DeadlineExceeded); got != models.IntentAnswer {
		t.Errorf("questioning classify error should fall back to answer, got %q", got)
	}
	if got := normalizePhaseIntent(PhaseSubmission, "gibberish", nil); got != models.IntentRepeatInstruction {
		t.Errorf("unknown submission label should fall back to repeat_instruction, got %q", got)
	}
	if got := normalizePhaseIntent(PhaseSubmission, "", context.DeadlineExceeded); got != models.IntentRepeatInstruction {
		t.Errorf("submission classify error should fall back to repeat_instruction, got %q", got)
	}
	if got := normalizePhaseIntent(PhaseQuestioning, "Repeat_Current.", nil); got != models.IntentRepeatCurrent {
		t.Errorf("valid label with casing and punctuation should normalize, got %q", got)
	}
}

func TestIsAmbiguousSpeech(t *testing.T) {
	if !isAmbiguousSpeech("Ambiguous sound.") {
		t.Error("exact sentinel should match")
	}
	if !isAmbiguousSpeech("  Ambiguous sound. \n") {
		t.Error("sentinel with surrounding whitespace should match")
	}
	if isAmbiguousSpeech("ambiguous sound.") {
		t.Error("case variant must not match the sentinel")
	}
	if isAmbiguousSpeech("Ambiguous sound") {
		t.Error("missing period must not match the sentinel")
	}
}
