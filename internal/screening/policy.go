package screening

import (
	"strings"

	"github.com/medscreen/medscreen/internal/models"
)

// Phase identifies which agent owns the current conversation turn.
type Phase string

const (
	PhaseConsent     Phase = "consent"
	PhaseQuestioning Phase = "questioning"
	PhaseSubmission  Phase = "submission"
)

// phaseTaxonomies lists the labels each phase classifies into. The ambiguous
// label is produced only by the exact-sentinel guard, never by the model.
var phaseTaxonomies = map[Phase][]models.Intent{
	PhaseConsent: {
		models.IntentConsentYes,
		models.IntentConsentNo,
		models.IntentConsentClarify,
	},
	PhaseQuestioning: {
		models.IntentAmbiguous,
		models.IntentUnclear,
		models.IntentDecline,
		models.IntentRepeatCurrent,
		models.IntentRepeatPrevious,
		models.IntentAnswer,
	},
	PhaseSubmission: {
		models.IntentAmbiguous,
		models.IntentSubmit,
		models.IntentDecline,
		models.IntentRepeatInstruction,
		models.IntentStudyQuestion,
		models.IntentUnclear,
	},
}

// fallbackIntents maps a phase to the label used when classification fails or
// returns an unknown value. The questioning phase fails open toward treating
// input as an answer so interviews cannot stall; the submission phase fails
// toward repeating the instruction so an answer set is never submitted or
// discarded on a guess. Consent is deliberately absent: a consent
// classification failure ends the interview instead of assuming an answer.
var fallbackIntents = map[Phase]models.Intent{
	PhaseQuestioning: models.IntentAnswer,
	PhaseSubmission:  models.IntentRepeatInstruction,
}

// normalizeConsentIntent validates a raw consent classification. The bool is
// false when the output matches no consent label.
func normalizeConsentIntent(raw string) (models.Intent, bool) {
	label := models.Intent(strings.ToUpper(strings.Trim(strings.TrimSpace(raw), ".\"'")))
	for _, allowed := range phaseTaxonomies[PhaseConsent] {
		if label == allowed {
			return allowed, true
		}
	}
	return "", false
}

// normalizePhaseIntent validates a raw questioning or submission
// classification, applying the phase's fallback for errors and unknown
// labels.
func normalizePhaseIntent(phase Phase, raw string, err error) models.Intent {
	if err != nil {
		return fallbackIntents[phase]
	}
	label := models.Intent(strings.ToLower(strings.Trim(strings.TrimSpace(raw), ".\"'")))
	for _, allowed := range phaseTaxonomies[phase] {
		if label == allowed {
			return allowed
		}
	}
	return fallbackIntents[phase]
}

// isAmbiguousSpeech reports whether the utterance is the exact sentinel the
// speech layer emits for unintelligible audio. Matching is exact after
// whitespace trimming; near-misses flow through normal classification.
func isAmbiguousSpeech(userInput string) bool {
	return strings.TrimSpace(userInput) == models.AmbiguousSpeechSentinel
}
