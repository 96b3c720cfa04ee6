package notify

import (
	"context"
	"testing"

	"github.com/medscreen/medscreen/internal/models"
)

func TestNewTwilioNotifierRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")
	t.Setenv("STAFF_PHONE_NUMBER", "")

	if _, err := NewTwilioNotifier(); err == nil {
		t.Fatal("expected error without credentials")
	}
	if _, err := NewTwilioNotifier(WithAccountSID("AC123"), WithAuthToken("token")); err == nil {
		t.Fatal("expected error without from/staff numbers")
	}
}

func TestNewTwilioNotifierFromOptions(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")

	n, err := NewTwilioNotifier(
		WithAccountSID("AC123"),
		WithAuthToken("token"),
		WithFrom("+15550100"),
		WithStaffTo("+15550101"),
	)
	if err != nil {
		t.Fatalf("NewTwilioNotifier failed: %v", err)
	}
	if n.from != "+15550100" || n.staffTo != "+15550101" {
		t.Errorf("numbers not applied: from=%q staffTo=%q", n.from, n.staffTo)
	}
}

func TestNewTwilioNotifierFallsBackToEnv(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "AC456")
	t.Setenv("TWILIO_AUTH_TOKEN", "envtoken")
	t.Setenv("TWILIO_FROM_NUMBER", "+15550200")
	t.Setenv("STAFF_PHONE_NUMBER", "+15550201")

	n, err := NewTwilioNotifier()
	if err != nil {
		t.Fatalf("NewTwilioNotifier failed: %v", err)
	}
	if n.from != "+15550200" || n.staffTo != "+15550201" {
		t.Errorf("env numbers not applied: from=%q staffTo=%q", n.from, n.staffTo)
	}
}

func TestMockNotifierRecords(t *testing.T) {
	m := NewMockNotifier()
	v := &models.EligibilityVerdict{ParticipantID: "P-TEST1234", Decision: models.DecisionAccept}

	if err := m.NotifyVerdict(context.Background(), v); err != nil {
		t.Fatalf("NotifyVerdict failed: %v", err)
	}
	if len(m.Notified) != 1 || m.Notified[0].ParticipantID != "P-TEST1234" {
		t.Errorf("notification not recorded: %+v", m.Notified)
	}
}
