// Package api: the per-session WebSocket over which interview turns flow.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/medscreen/medscreen/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The browser client is served from a separate origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Inbound client frame.
type clientFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Outbound frames. agentFrame mirrors the turn response; the other frame
// types reuse serverFrame.
type serverFrame struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	Timestamp string `json:"timestamp"`
}

type agentFrame struct {
	Type               string `json:"type"`
	Content            string `json:"content"`
	Timestamp          string `json:"timestamp"`
	RequiresResponse   bool   `json:"requires_response"`
	IsFinal            bool   `json:"is_final"`
	AwaitingSubmission bool   `json:"awaiting_submission"`
	Evaluating         bool   `json:"evaluating"`
	QuestionNumber     int    `json:"question_number"`
	TotalQuestions     int    `json:"total_questions"`
}

type completeFrame struct {
	Type          string                     `json:"type"`
	Eligibility   *models.EligibilityVerdict `json:"eligibility"`
	ParticipantID string                     `json:"participant_id"`
	Timestamp     string                     `json:"timestamp"`
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	is := s.lookupSession(sessionID)
	if is == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("api.wsHandler: upgrade failed", "error", err, "sessionID", sessionID)
		return
	}
	defer conn.Close()
	slog.Info("api.wsHandler: client connected", "sessionID", sessionID)

	ctx := r.Context()

	// Open the interview with the greeting on first connect.
	is.mu.Lock()
	if !is.started {
		is.started = true
		greeting := is.coordinator.Start(ctx)
		is.record("agent", greeting.Content)
		s.sendAgentFrame(conn, sessionID, greeting)
	}
	is.mu.Unlock()

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			slog.Info("api.wsHandler: client disconnected", "sessionID", sessionID, "error", err)
			s.finishAbandoned(is)
			return
		}

		switch frame.Type {
		case "text_message":
			s.handleTurn(ctx, conn, is, frame.Content)
		default:
			s.sendFrame(conn, sessionID, serverFrame{
				Type:      "error",
				Content:   "unsupported message type",
				Timestamp: timestamp(),
			})
		}
	}
}

// handleTurn runs one conversation turn under the session lock.
func (s *Server) handleTurn(ctx context.Context, conn *websocket.Conn, is *interviewSession, userInput string) {
	is.mu.Lock()
	defer is.mu.Unlock()

	sessionID := is.session.SessionID
	if is.finished {
		s.sendFrame(conn, sessionID, serverFrame{
			Type:      "error",
			Content:   "This interview has ended.",
			Timestamp: timestamp(),
		})
		return
	}

	is.record("user", userInput)
	s.sendFrame(conn, sessionID, serverFrame{
		Type:      "user_message",
		Content:   userInput,
		Timestamp: timestamp(),
	})

	resp := is.coordinator.ProcessUserResponse(ctx, userInput)
	is.record("agent", resp.Content)
	s.sendAgentFrame(conn, sessionID, resp)

	switch {
	case resp.Evaluating:
		s.evaluateAndComplete(ctx, conn, is)
	case resp.IsFinal:
		status := "completed"
		if resp.ConsentRejected {
			status = "declined"
		}
		s.persistInterview(is, status)
		is.finished = true
	}
}

// evaluateAndComplete runs the eligibility evaluation, persists the results,
// and delivers the closing frames.
func (s *Server) evaluateAndComplete(ctx context.Context, conn *websocket.Conn, is *interviewSession) {
	sessionID := is.session.SessionID
	verdict := s.evaluator.Evaluate(ctx, is.session, is.study)

	if err := s.store.SaveVerdict(verdict); err != nil {
		slog.Error("api.evaluateAndComplete: verdict save failed", "error", err, "sessionID", sessionID)
	}
	s.persistInterview(is, "completed")

	if s.notifier != nil {
		if err := s.notifier.NotifyVerdict(ctx, verdict); err != nil {
			slog.Error("api.evaluateAndComplete: staff notification failed", "error", err, "sessionID", sessionID)
		}
	}

	s.sendFrame(conn, sessionID, completeFrame{
		Type:          "interview_complete",
		Eligibility:   verdict,
		ParticipantID: is.session.ParticipantID,
		Timestamp:     timestamp(),
	})

	closing := is.coordinator.CompleteInterview()
	is.record("agent", closing.Content)
	s.sendAgentFrame(conn, sessionID, closing)
	is.finished = true
}

// finishAbandoned persists a partially-answered interview whose client went
// away before a terminal turn.
func (s *Server) finishAbandoned(is *interviewSession) {
	is.mu.Lock()
	defer is.mu.Unlock()
	if is.finished || !is.started {
		return
	}
	if len(is.session.Responses) > 0 {
		s.persistInterview(is, "abandoned")
	}
	is.finished = true
	s.dropSession(is.session.SessionID)
}

func (s *Server) persistInterview(is *interviewSession, status string) {
	rec := &models.InterviewRecord{
		SessionID:     is.session.SessionID,
		ParticipantID: is.session.ParticipantID,
		StudyID:       is.study.ID,
		Status:        status,
		Responses:     is.session.Responses,
		Transcript:    is.transcript,
		CreatedAt:     is.createdAt,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.store.SaveInterview(rec); err != nil {
		slog.Error("api.persistInterview: save failed", "error", err,
			"sessionID", is.session.SessionID, "status", status)
	}
}

func (s *Server) sendAgentFrame(conn *websocket.Conn, sessionID string, resp *models.TurnResponse) {
	s.sendFrame(conn, sessionID, agentFrame{
		Type:               "agent_message",
		Content:            resp.Content,
		Timestamp:          timestamp(),
		RequiresResponse:   resp.RequiresResponse,
		IsFinal:            resp.IsFinal,
		AwaitingSubmission: resp.AwaitingSubmission,
		Evaluating:         resp.Evaluating,
		QuestionNumber:     resp.QuestionNumber,
		TotalQuestions:     resp.TotalQuestions,
	})
}

func (s *Server) sendFrame(conn *websocket.Conn, sessionID string, frame any) {
	if err := conn.WriteJSON(frame); err != nil {
		slog.Error("api.sendFrame: write failed", "error", err, "sessionID", sessionID)
	}
}

func (is *interviewSession) record(role, content string) {
	is.transcript = append(is.transcript, models.TranscriptMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
