package eligibility

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/medscreen/medscreen/internal/models"
	"github.com/medscreen/medscreen/internal/study"
)

// stubJudge returns canned judgments keyed by criterion ID. Criteria listed
// in failIDs return an error instead; hang makes the call block until the
// context is done.
type stubJudge struct {
	mu        sync.Mutex
	judgments map[string]models.CriterionJudgment
	failIDs   map[string]bool
	hangIDs   map[string]bool
	calls     []string
}

func (s *stubJudge) Judge(ctx context.Context, criterion models.Criterion, response string) (models.CriterionJudgment, error) {
	s.mu.Lock()
	s.calls = append(s.calls, criterion.ID)
	s.mu.Unlock()

	if s.hangIDs[criterion.ID] {
		<-ctx.Done()
		return models.CriterionJudgment{}, ctx.Err()
	}
	if s.failIDs[criterion.ID] {
		return models.CriterionJudgment{}, errors.New("judge unavailable")
	}
	j := s.judgments[criterion.ID]
	j.CriterionID = criterion.ID
	j.CriterionText = criterion.Text
	j.Priority = criterion.Priority
	j.ParticipantResponse = response
	return j, nil
}

func evaluatorStudy() *study.Study {
	return &study.Study{
		ID: "hypertension-2026",
		Criteria: []models.Criterion{
			{ID: "age_range", Text: "Participant is between 18 and 75 years old", Question: "How old are you?", ExpectedResponse: "Age between 18 and 75", Priority: models.PriorityHigh},
			{ID: "diagnosis", Text: "Participant has a hypertension diagnosis", Question: "Have you been diagnosed?", ExpectedResponse: "Yes", Priority: models.PriorityMedium},
			{ID: "pregnancy", Text: "Participant is not pregnant", Question: "Are you pregnant?", ExpectedResponse: "No", Priority: models.PriorityLow},
		},
	}
}

func evaluatorSession(responses map[string]string) *models.ParticipantSession {
	s := models.NewParticipantSession()
	for k, v := range responses {
		s.Responses[k] = v
	}
	return s
}

func TestEvaluateEligibleVerdict(t *testing.T) {
	judge := &stubJudge{judgments: map[string]models.CriterionJudgment{
		"age_range": {MeetsCriteria: true, Confidence: 0.95, Reasoning: "Age 42 is in range"},
		"diagnosis": {MeetsCriteria: true, Confidence: 0.9, Reasoning: "Confirmed diagnosis"},
		"pregnancy": {MeetsCriteria: true, Confidence: 0.85, Reasoning: "Not pregnant"},
	}}
	session := evaluatorSession(map[string]string{
		"age_range": "I'm 42",
		"diagnosis": "yes, since 2020",
		"pregnancy": "no",
	})

	verdict := NewEvaluator(judge).Evaluate(context.Background(), session, evaluatorStudy())

	if !verdict.Eligible || verdict.Decision != models.DecisionAccept {
		t.Errorf("expected eligible Accept, got eligible=%v decision=%q", verdict.Eligible, verdict.Decision)
	}
	if verdict.Score != 100 {
		t.Errorf("all criteria met should give legacy score 100, got %v", verdict.Score)
	}
	if len(verdict.CriteriaMet) != 3 {
		t.Fatalf("expected 3 judgments, got %d", len(verdict.CriteriaMet))
	}
	if verdict.SessionID != session.SessionID || verdict.ParticipantID != session.ParticipantID {
		t.Error("verdict must carry session and participant identifiers")
	}
	if verdict.StudyID != "hypertension-2026" {
		t.Errorf("unexpected study ID %q", verdict.StudyID)
	}
	if !strings.Contains(verdict.Summary, "ELIGIBLE") {
		t.Errorf("summary should state the outcome, got %q", verdict.Summary)
	}
	if verdict.EvaluatedAt.IsZero() {
		t.Error("verdict must be timestamped")
	}
}

func TestEvaluateHighPriorityFailureRejects(t *testing.T) {
	judge := &stubJudge{judgments: map[string]models.CriterionJudgment{
		"age_range": {MeetsCriteria: false, Confidence: 0.9, Reasoning: "Age 80 is out of range"},
		"diagnosis": {MeetsCriteria: true, Confidence: 1.0},
		"pregnancy": {MeetsCriteria: true, Confidence: 1.0},
	}}
	session := evaluatorSession(map[string]string{
		"age_range": "I'm 80",
		"diagnosis": "yes",
		"pregnancy": "no",
	})

	verdict := NewEvaluator(judge).Evaluate(context.Background(), session, evaluatorStudy())
	if verdict.Eligible || verdict.Decision != models.DecisionReject {
		t.Errorf("strong high-priority failure must reject, got eligible=%v decision=%q", verdict.Eligible, verdict.Decision)
	}
	if !strings.Contains(verdict.Summary, "NOT ELIGIBLE") {
		t.Errorf("summary should state the rejection, got %q", verdict.Summary)
	}
}

func TestEvaluateSkipsUnansweredCriteria(t *testing.T) {
	judge := &stubJudge{judgments: map[string]models.CriterionJudgment{
		"age_range": {MeetsCriteria: true, Confidence: 1.0},
	}}
	session := evaluatorSession(map[string]string{
		"age_range": "I'm 42",
		"pregnancy": "   ",
	})

	verdict := NewEvaluator(judge).Evaluate(context.Background(), session, evaluatorStudy())
	if len(verdict.CriteriaMet) != 1 {
		t.Fatalf("only answered criteria should be judged, got %d judgments", len(verdict.CriteriaMet))
	}
	if len(judge.calls) != 1 || judge.calls[0] != "age_range" {
		t.Errorf("unexpected judge calls: %v", judge.calls)
	}
}

func TestEvaluateJudgeFailureIsIsolated(t *testing.T) {
	judge := &stubJudge{
		judgments: map[string]models.CriterionJudgment{
			"diagnosis": {MeetsCriteria: true, Confidence: 1.0},
			"pregnancy": {MeetsCriteria: true, Confidence: 1.0},
		},
		failIDs: map[string]bool{"age_range": true},
	}
	session := evaluatorSession(map[string]string{
		"age_range": "I'm 42",
		"diagnosis": "yes",
		"pregnancy": "no",
	})

	verdict := NewEvaluator(judge).Evaluate(context.Background(), session, evaluatorStudy())
	if len(verdict.CriteriaMet) != 3 {
		t.Fatalf("failed criterion must still produce a judgment, got %d", len(verdict.CriteriaMet))
	}

	var failed models.CriterionJudgment
	for _, j := range verdict.CriteriaMet {
		if j.CriterionID == "age_range" {
			failed = j
		}
	}
	if failed.MeetsCriteria || failed.Confidence != 0 {
		t.Errorf("failed judge call must yield the conservative default, got %+v", failed)
	}
	if failed.Reasoning != "evaluation error" {
		t.Errorf("expected evaluation error reasoning, got %q", failed.Reasoning)
	}
	// Conservative default carries zero confidence, so it neither fires the
	// immediate-reject rule nor drags the weighted sum down.
	if verdict.Decision != models.DecisionAccept {
		t.Errorf("remaining met criteria should still accept, got %q", verdict.Decision)
	}
}

func TestEvaluateHungJudgeTimesOut(t *testing.T) {
	judge := &stubJudge{
		judgments: map[string]models.CriterionJudgment{
			"diagnosis": {MeetsCriteria: true, Confidence: 1.0},
		},
		hangIDs: map[string]bool{"age_range": true},
	}
	session := evaluatorSession(map[string]string{
		"age_range": "I'm 42",
		"diagnosis": "yes",
	})

	evaluator := NewEvaluator(judge, WithJudgeTimeout(20*time.Millisecond))
	done := make(chan *models.EligibilityVerdict, 1)
	go func() { done <- evaluator.Evaluate(context.Background(), session, evaluatorStudy()) }()

	select {
	case verdict := <-done:
		if len(verdict.CriteriaMet) != 2 {
			t.Fatalf("expected 2 judgments, got %d", len(verdict.CriteriaMet))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("evaluation hung on a stuck judge call")
	}
}

func TestEvaluateLegacyScoreWeights(t *testing.T) {
	// high met, medium unmet, low met: (5+1)/(5+2+1) = 75%.
	judge := &stubJudge{judgments: map[string]models.CriterionJudgment{
		"age_range": {MeetsCriteria: true, Confidence: 0.9},
		"diagnosis": {MeetsCriteria: false, Confidence: 0.6},
		"pregnancy": {MeetsCriteria: true, Confidence: 0.9},
	}}
	session := evaluatorSession(map[string]string{
		"age_range": "I'm 42",
		"diagnosis": "no",
		"pregnancy": "no",
	})

	verdict := NewEvaluator(judge).Evaluate(context.Background(), session, evaluatorStudy())
	if verdict.Score != 75 {
		t.Errorf("expected legacy score 75, got %v", verdict.Score)
	}
}

func TestEvaluateCustomThreshold(t *testing.T) {
	judge := &stubJudge{judgments: map[string]models.CriterionJudgment{
		"pregnancy": {MeetsCriteria: true, Confidence: 1.0}, // low weight: +1.0
	}}
	session := evaluatorSession(map[string]string{"pregnancy": "no"})

	verdict := NewEvaluator(judge, WithThreshold(2.0)).Evaluate(context.Background(), session, evaluatorStudy())
	if verdict.Eligible {
		t.Errorf("score 1.0 under threshold 2.0 must not be eligible, got %+v", verdict)
	}
}
