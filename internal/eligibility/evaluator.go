package eligibility

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/medscreen/medscreen/internal/models"
	"github.com/medscreen/medscreen/internal/study"
)

const defaultJudgeTimeout = 30 * time.Second

// legacyWeights back the percentage score kept for human reporting. These
// differ from decisionWeights on purpose; see decide.go.
var legacyWeights = map[models.Priority]float64{
	models.PriorityHigh:   5,
	models.PriorityMedium: 2,
	models.PriorityLow:    1,
}

// Opts holds configuration options for the Evaluator.
type Opts struct {
	JudgeTimeout time.Duration
	Threshold    float64
}

// Option defines a configuration option for the Evaluator.
type Option func(*Opts)

// WithJudgeTimeout bounds each per-criterion judge call. A timed-out call is
// treated as a judge failure for that criterion only.
func WithJudgeTimeout(d time.Duration) Option {
	return func(o *Opts) { o.JudgeTimeout = d }
}

// WithThreshold overrides the decision threshold.
func WithThreshold(t float64) Option {
	return func(o *Opts) { o.Threshold = t }
}

// Evaluator produces an EligibilityVerdict from a finished interview. The
// per-criterion judge calls are independent and dispatched concurrently; one
// criterion's failure never aborts the batch.
type Evaluator struct {
	judge        CriterionJudge
	judgeTimeout time.Duration
	threshold    float64
}

// NewEvaluator creates an Evaluator over the given judge.
func NewEvaluator(judge CriterionJudge, opts ...Option) *Evaluator {
	cfg := Opts{
		JudgeTimeout: defaultJudgeTimeout,
		Threshold:    DefaultThreshold,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Evaluator{
		judge:        judge,
		judgeTimeout: cfg.JudgeTimeout,
		threshold:    cfg.Threshold,
	}
}

// Evaluate judges every answered criterion and combines the judgments into a
// verdict. Criteria without a stored response are skipped.
func (e *Evaluator) Evaluate(ctx context.Context, session *models.ParticipantSession, st *study.Study) *models.EligibilityVerdict {
	var answered []models.Criterion
	for _, c := range st.Criteria {
		if strings.TrimSpace(session.Responses[c.ID]) != "" {
			answered = append(answered, c)
		}
	}
	slog.Info("Evaluator.Evaluate: starting evaluation", "sessionID", session.SessionID,
		"studyID", st.ID, "answered", len(answered), "criteria", len(st.Criteria))

	judgments := make([]models.CriterionJudgment, len(answered))
	var wg sync.WaitGroup
	for i, criterion := range answered {
		wg.Add(1)
		go func(i int, criterion models.Criterion) {
			defer wg.Done()
			judgments[i] = e.judgeOne(ctx, criterion, session.Responses[criterion.ID])
		}(i, criterion)
	}
	wg.Wait()

	decision, decisionScore := DecideWithThreshold(judgments, e.threshold)
	eligible := decision == models.DecisionAccept
	legacyScore := legacyPercentage(judgments)

	verdict := &models.EligibilityVerdict{
		SessionID:     session.SessionID,
		ParticipantID: session.ParticipantID,
		StudyID:       st.ID,
		Eligible:      eligible,
		Score:         legacyScore,
		CriteriaMet:   judgments,
		Summary:       buildSummary(eligible, legacyScore, judgments),
		DecisionScore: decisionScore,
		Decision:      decision,
		EvaluatedAt:   time.Now().UTC(),
	}
	slog.Info("Evaluator.Evaluate: evaluation complete", "sessionID", session.SessionID,
		"eligible", eligible, "decisionScore", decisionScore, "legacyScore", legacyScore)
	return verdict
}

// judgeOne runs one judge call under the per-call timeout, substituting the
// conservative default judgment on any failure.
func (e *Evaluator) judgeOne(ctx context.Context, criterion models.Criterion, response string) models.CriterionJudgment {
	callCtx, cancel := context.WithTimeout(ctx, e.judgeTimeout)
	defer cancel()

	judgment, err := e.judge.Judge(callCtx, criterion, response)
	if err != nil {
		slog.Error("Evaluator.judgeOne: judge failed, using conservative default",
			"criterionID", criterion.ID, "error", err)
		return models.CriterionJudgment{
			CriterionID:         criterion.ID,
			CriterionText:       criterion.Text,
			Priority:            criterion.Priority,
			ParticipantResponse: response,
			MeetsCriteria:       false,
			Confidence:          0.0,
			Reasoning:           "evaluation error",
		}
	}
	return judgment
}

// legacyPercentage is the met-weight over total-weight percentage.
func legacyPercentage(judgments []models.CriterionJudgment) float64 {
	var met, total float64
	for _, j := range judgments {
		w := legacyWeights[j.Priority]
		total += w
		if j.MeetsCriteria {
			met += w
		}
	}
	if total == 0 {
		return 0
	}
	return met / total * 100
}

// buildSummary renders the human-readable walkthrough of the verdict.
func buildSummary(eligible bool, score float64, judgments []models.CriterionJudgment) string {
	var b strings.Builder
	if eligible {
		fmt.Fprintf(&b, "✅ **ELIGIBLE** - Overall score: %.1f%%\n\n", score)
		b.WriteString("The participant appears to meet the eligibility criteria for this clinical trial. ")
		b.WriteString("Our research team will contact them for the next steps.\n\n")
	} else {
		fmt.Fprintf(&b, "❌ **NOT ELIGIBLE** - Overall score: %.1f%%\n\n", score)
		b.WriteString("The participant does not meet the eligibility requirements for this clinical trial.\n\n")
	}

	b.WriteString("**Criteria Assessment:**\n")
	for _, j := range judgments {
		status := "❌"
		if j.MeetsCriteria {
			status = "✅"
		}
		priority := "🟡"
		if j.Priority == models.PriorityHigh {
			priority = "🔴"
		}
		fmt.Fprintf(&b, "%s %s %s (confidence %.2f)\n", status, priority, j.CriterionText, j.Confidence)
		fmt.Fprintf(&b, "   Response: %q\n", j.ParticipantResponse)
		if j.Reasoning != "" {
			fmt.Fprintf(&b, "   Assessment: %s\n", j.Reasoning)
		}
		b.WriteString("\n")
	}
	return b.String()
}
