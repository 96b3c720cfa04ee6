package eligibility

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/medscreen/medscreen/internal/genai"
	"github.com/medscreen/medscreen/internal/models"
)

// CriterionJudge evaluates one participant answer against one criterion.
// Implementations return an error only for transport-level failures; a
// response the judge cannot interpret still yields a judgment.
type CriterionJudge interface {
	Judge(ctx context.Context, criterion models.Criterion, response string) (models.CriterionJudgment, error)
}

// LLMJudge implements CriterionJudge over the GenAI client. Malformed model
// output falls back to rule-based evaluation instead of failing the
// criterion.
type LLMJudge struct {
	client genai.ClientInterface
}

// NewLLMJudge creates a judge backed by the GenAI client.
func NewLLMJudge(client genai.ClientInterface) *LLMJudge {
	return &LLMJudge{client: client}
}

const judgeSystemPrompt = "You are a clinical trial eligibility evaluator. Provide accurate JSON responses."

func judgePrompt(criterion models.Criterion, response string) string {
	return fmt.Sprintf(`You are evaluating a clinical trial participant's response against eligibility criteria.

CRITERIA: %s
EXPECTED: %s
PARTICIPANT'S RESPONSE: %q

Evaluate if the participant's response meets the criteria. Consider:
1. Does the response align with the expected answer?
2. Are there any red flags or exclusions?
3. Is the response clear and definitive?

Respond with a JSON object:
{
    "meets_criteria": true/false,
    "confidence": 0.0-1.0,
    "reasoning": "brief explanation",
    "extracted_value": "key value from response if applicable"
}`, criterion.Text, criterion.ExpectedResponse, response)
}

// judgePayload is the JSON shape requested from the model. ExtractedValue is
// loosely typed because models return strings, numbers, or null there.
type judgePayload struct {
	MeetsCriteria  bool    `json:"meets_criteria"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	ExtractedValue any     `json:"extracted_value"`
}

// Judge asks the model for a structured judgment of the response.
func (j *LLMJudge) Judge(ctx context.Context, criterion models.Criterion, response string) (models.CriterionJudgment, error) {
	raw, err := j.client.GenerateStructured(ctx, judgeSystemPrompt, judgePrompt(criterion, response))
	if err != nil {
		return models.CriterionJudgment{}, fmt.Errorf("judging criterion %s: %w", criterion.ID, err)
	}

	var payload judgePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		slog.Warn("LLMJudge.Judge: unparseable judgment, using rule-based fallback",
			"criterionID", criterion.ID, "error", err)
		return fallbackJudgment(criterion, response), nil
	}

	judgment := models.CriterionJudgment{
		CriterionID:         criterion.ID,
		CriterionText:       criterion.Text,
		Priority:            criterion.Priority,
		ParticipantResponse: response,
		MeetsCriteria:       payload.MeetsCriteria,
		Confidence:          clampConfidence(payload.Confidence),
		Reasoning:           payload.Reasoning,
	}
	if payload.ExtractedValue != nil {
		judgment.ExtractedValue = fmt.Sprintf("%v", payload.ExtractedValue)
	}
	return judgment, nil
}

var agePattern = regexp.MustCompile(`\b(\d{1,3})\b`)

// fallbackJudgment is the rule-based evaluation used when the model's output
// cannot be parsed. It handles age criteria and expected-negative answers;
// everything else gets a low-confidence not-met judgment.
func fallbackJudgment(criterion models.Criterion, response string) models.CriterionJudgment {
	base := models.CriterionJudgment{
		CriterionID:         criterion.ID,
		CriterionText:       criterion.Text,
		Priority:            criterion.Priority,
		ParticipantResponse: response,
	}
	responseLower := strings.ToLower(strings.TrimSpace(response))

	if strings.Contains(strings.ToLower(criterion.Text), "age") {
		if m := agePattern.FindStringSubmatch(response); m != nil {
			age, _ := strconv.Atoi(m[1])
			base.MeetsCriteria = age >= 18 && age <= 75
			base.Confidence = 0.8
			base.Reasoning = fmt.Sprintf("Age %d extracted from response", age)
			base.ExtractedValue = m[1]
			return base
		}
	}

	if strings.Contains(strings.ToLower(criterion.ExpectedResponse), "no") {
		hasNegative := false
		for _, word := range []string{"no", "never", "not", "none"} {
			if strings.Contains(responseLower, word) {
				hasNegative = true
				break
			}
		}
		base.MeetsCriteria = hasNegative
		base.Confidence = 0.7
		base.Reasoning = "Looking for negative response"
		base.ExtractedValue = responseLower
		return base
	}

	base.MeetsCriteria = false
	base.Confidence = 0.3
	base.Reasoning = "Could not definitively evaluate response"
	base.ExtractedValue = response
	return base
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
