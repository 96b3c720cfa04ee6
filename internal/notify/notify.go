// Package notify wraps the Twilio API for SMS notifications to the research
// staff when an interview produces a verdict.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/medscreen/medscreen/internal/models"
)

// Notifier delivers verdict notifications to the study staff.
type Notifier interface {
	NotifyVerdict(ctx context.Context, verdict *models.EligibilityVerdict) error
}

// Opts holds configuration options for the Twilio SMS client.
type Opts struct {
	AccountSID string
	AuthToken  string
	From       string
	StaffTo    string
}

// Option defines a configuration option for the Twilio SMS client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID, overriding TWILIO_ACCOUNT_SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token, overriding TWILIO_AUTH_TOKEN.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFrom sets the sending phone number, overriding TWILIO_FROM_NUMBER.
func WithFrom(from string) Option {
	return func(o *Opts) { o.From = from }
}

// WithStaffTo sets the staff phone number notified on each verdict,
// overriding STAFF_PHONE_NUMBER.
func WithStaffTo(to string) Option {
	return func(o *Opts) { o.StaffTo = to }
}

// TwilioNotifier sends staff SMS notifications through the Twilio REST API.
type TwilioNotifier struct {
	client  *twilio.RestClient
	from    string
	staffTo string
}

// NewTwilioNotifier creates an SMS notifier. Credentials fall back to
// environment variables when not provided via options.
func NewTwilioNotifier(opts ...Option) (*TwilioNotifier, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.From == "" {
		cfg.From = os.Getenv("TWILIO_FROM_NUMBER")
	}
	if cfg.StaffTo == "" {
		cfg.StaffTo = os.Getenv("STAFF_PHONE_NUMBER")
	}
	slog.Debug("Twilio notifier config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"From_set", cfg.From != "",
		"StaffTo_set", cfg.StaffTo != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.From == "" || cfg.StaffTo == "" {
		return nil, fmt.Errorf("from and staff numbers must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioNotifier{client: client, from: cfg.From, staffTo: cfg.StaffTo}, nil
}

// NotifyVerdict sends a one-line SMS summarizing the interview outcome.
func (n *TwilioNotifier) NotifyVerdict(ctx context.Context, verdict *models.EligibilityVerdict) error {
	body := fmt.Sprintf("Screening complete: participant %s, study %s, result %s (score %.1f%%).",
		verdict.ParticipantID, verdict.StudyID, verdict.Decision, verdict.Score)

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.staffTo)
	params.SetFrom(n.from)
	params.SetBody(body)

	if _, err := n.client.Api.CreateMessage(params); err != nil {
		slog.Error("TwilioNotifier.NotifyVerdict failed", "to", n.staffTo, "error", err)
		return fmt.Errorf("failed to notify staff for %s: %w", verdict.ParticipantID, err)
	}
	slog.Debug("TwilioNotifier.NotifyVerdict sent", "participantID", verdict.ParticipantID,
		"decision", verdict.Decision)
	return nil
}

// MockNotifier records notifications for tests.
type MockNotifier struct {
	Notified []*models.EligibilityVerdict
	Err      error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) NotifyVerdict(ctx context.Context, verdict *models.EligibilityVerdict) error {
	if m.Err != nil {
		return m.Err
	}
	m.Notified = append(m.Notified, verdict)
	return nil
}
