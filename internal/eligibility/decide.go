// Package eligibility turns a completed interview's answers into an
// eligibility verdict: per-criterion judgments from an injected judge
// capability, combined by a pure decision function.
package eligibility

import "github.com/medscreen/medscreen/internal/models"

// DefaultThreshold is the decision boundary for the weighted score.
const DefaultThreshold = 0.0

// immediateRejectConfidence is the confidence at which a single failed
// high-priority criterion rejects outright.
const immediateRejectConfidence = 0.8

// decisionWeights scale each judgment's confidence in the weighted score.
// Distinct from legacyWeights; the two scores are reported independently and
// never reconciled.
var decisionWeights = map[models.Priority]float64{
	models.PriorityHigh:   5.0,
	models.PriorityMedium: 2.5,
	models.PriorityLow:    1.0,
}

// Decide applies the decision algorithm with the default threshold.
func Decide(judgments []models.CriterionJudgment) (models.DecisionResult, float64) {
	return DecideWithThreshold(judgments, DefaultThreshold)
}

// DecideWithThreshold computes the binary eligibility decision and the
// weighted score behind it. It is pure and order-independent over its input.
//
// A high-priority criterion judged unmet with confidence at or above 0.8
// rejects regardless of the weighted score. Otherwise each judgment
// contributes confidence times its priority weight, positive when met and
// negative when not, and the participant is accepted when the sum reaches
// the threshold.
func DecideWithThreshold(judgments []models.CriterionJudgment, threshold float64) (models.DecisionResult, float64) {
	var total float64
	rejected := false
	for _, j := range judgments {
		if j.Priority == models.PriorityHigh && !j.MeetsCriteria && j.Confidence >= immediateRejectConfidence {
			rejected = true
		}
		sign := 1.0
		if !j.MeetsCriteria {
			sign = -1.0
		}
		total += sign * j.Confidence * decisionWeights[j.Priority]
	}
	if rejected {
		return models.DecisionReject, total
	}
	if total >= threshold {
		return models.DecisionAccept, total
	}
	return models.DecisionReject, total
}
