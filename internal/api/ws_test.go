package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/medscreen/medscreen/internal/models"
)

type testFrame struct {
	Type               string                     `json:"type"`
	Content            string                     `json:"content"`
	RequiresResponse   bool                       `json:"requires_response"`
	IsFinal            bool                       `json:"is_final"`
	AwaitingSubmission bool                       `json:"awaiting_submission"`
	Evaluating         bool                       `json:"evaluating"`
	QuestionNumber     int                        `json:"question_number"`
	TotalQuestions     int                        `json:"total_questions"`
	Eligibility        *models.EligibilityVerdict `json:"eligibility"`
	ParticipantID      string                     `json:"participant_id"`
}

func startInterview(t *testing.T, srv *Server) (string, *websocket.Conn, func()) {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())

	body := bytes.NewBufferString(`{"study_id": "hypertension-2026"}`)
	resp, err := http.Post(ts.URL+"/api/sessions/start", "application/json", body)
	if err != nil {
		t.Fatalf("starting session: %v", err)
	}
	defer resp.Body.Close()
	var started startSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil {
		t.Fatalf("decoding session: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + started.SessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		ts.Close()
		t.Fatalf("dialing websocket: %v", err)
	}
	cleanup := func() {
		conn.Close()
		ts.Close()
	}
	return started.SessionID, conn, cleanup
}

func readFrame(t *testing.T, conn *websocket.Conn) testFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f testFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	return f
}

// sendText sends a turn and reads past the user_message echo to the next
// substantive frame.
func sendText(t *testing.T, conn *websocket.Conn, content string) testFrame {
	t.Helper()
	if err := conn.WriteJSON(map[string]string{"type": "text_message", "content": content}); err != nil {
		t.Fatalf("writing frame: %v", err)
	}
	echo := readFrame(t, conn)
	if echo.Type != "user_message" || echo.Content != content {
		t.Fatalf("expected user_message echo, got %+v", echo)
	}
	return readFrame(t, conn)
}

func TestWebSocketFullInterview(t *testing.T) {
	srv, st, notifier := testServer(t, []string{"YES", "answer", "answer", "submit"})
	sessionID, conn, cleanup := startInterview(t, srv)
	defer cleanup()

	greeting := readFrame(t, conn)
	if greeting.Type != "agent_message" || !greeting.RequiresResponse {
		t.Fatalf("expected greeting agent_message, got %+v", greeting)
	}
	if greeting.TotalQuestions != 2 {
		t.Errorf("expected 2 total questions, got %d", greeting.TotalQuestions)
	}

	first := sendText(t, conn, "yes, I consent")
	if first.Content != "How old are you?" || first.QuestionNumber != 1 {
		t.Fatalf("expected first question, got %+v", first)
	}

	second := sendText(t, conn, "I'm 42")
	if second.QuestionNumber != 2 {
		t.Fatalf("expected second question, got %+v", second)
	}

	instruction := sendText(t, conn, "yes, diagnosed in 2020")
	if !instruction.AwaitingSubmission {
		t.Fatalf("expected submission instruction, got %+v", instruction)
	}

	evaluating := sendText(t, conn, "submit")
	if !evaluating.Evaluating {
		t.Fatalf("expected evaluating turn, got %+v", evaluating)
	}

	complete := readFrame(t, conn)
	if complete.Type != "interview_complete" {
		t.Fatalf("expected interview_complete, got %+v", complete)
	}
	if complete.Eligibility == nil || !complete.Eligibility.Eligible {
		t.Fatalf("expected an eligible verdict, got %+v", complete.Eligibility)
	}

	closing := readFrame(t, conn)
	if closing.Type != "agent_message" || !closing.IsFinal {
		t.Fatalf("expected final closing message, got %+v", closing)
	}

	// Verdict and interview are persisted.
	verdict, err := st.GetVerdict(sessionID)
	if err != nil {
		t.Fatalf("verdict not persisted: %v", err)
	}
	if verdict.Decision != models.DecisionAccept {
		t.Errorf("expected Accept, got %q", verdict.Decision)
	}
	rec, err := st.GetInterview(verdict.ParticipantID)
	if err != nil {
		t.Fatalf("interview not persisted: %v", err)
	}
	if rec.Status != "completed" || len(rec.Responses) != 2 {
		t.Errorf("unexpected interview record: %+v", rec)
	}
	if len(rec.Transcript) == 0 {
		t.Error("transcript must be persisted")
	}

	if len(notifier.Notified) != 1 {
		t.Errorf("staff must be notified once, got %d", len(notifier.Notified))
	}
}

func TestWebSocketConsentDecline(t *testing.T) {
	srv, st, notifier := testServer(t, []string{"NO"})
	sessionID, conn, cleanup := startInterview(t, srv)
	defer cleanup()

	readFrame(t, conn) // greeting

	final := sendText(t, conn, "no thank you")
	if !final.IsFinal {
		t.Fatalf("expected final decline, got %+v", final)
	}

	// Declined interviews are recorded but never evaluated.
	if _, err := st.GetVerdict(sessionID); err == nil {
		t.Error("declined interview must not produce a verdict")
	}
	if len(notifier.Notified) != 0 {
		t.Error("declined interview must not notify staff")
	}

	srv.mu.Lock()
	is := srv.sessions[sessionID]
	srv.mu.Unlock()
	is.mu.Lock()
	status := is.finished
	is.mu.Unlock()
	if !status {
		t.Error("session must be marked finished after decline")
	}
}

func TestWebSocketUnsupportedMessageType(t *testing.T) {
	srv, _, _ := testServer(t, nil)
	_, conn, cleanup := startInterview(t, srv)
	defer cleanup()

	readFrame(t, conn) // greeting

	if err := conn.WriteJSON(map[string]string{"type": "audio_data", "content": "..."}); err != nil {
		t.Fatalf("writing frame: %v", err)
	}
	frame := readFrame(t, conn)
	if frame.Type != "error" {
		t.Fatalf("expected error frame, got %+v", frame)
	}
}
