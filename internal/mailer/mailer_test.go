package mailer

import (
	"strings"
	"testing"
)

func TestRenderTemplates(t *testing.T) {
	tests := []struct {
		template string
		data     map[string]any
		want     string
	}{
		{AccountApprovedTemplate, map[string]any{"Username": "priya"}, "priya"},
		{AccountSuspendedTemplate, map[string]any{"Username": "priya", "Reason": "policy breach"}, "policy breach"},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			subject, body, err := renderTemplate(tt.template, tt.data)
			if err != nil {
				t.Fatalf("renderTemplate: %v", err)
			}
			if subject == "" {
				t.Error("empty subject")
			}
			if !strings.Contains(body, tt.want) {
				t.Errorf("body missing %q:\n%s", tt.want, body)
			}
		})
	}
}

func TestNewSMTPClient(t *testing.T) {
	c := NewSMTPClient("localhost", 1025, "dev", "dev", "noreply@pressroom.dev")

	sc, ok := c.(*smtpClient)
	if !ok {
		t.Fatalf("NewSMTPClient returned %T", c)
	}
	if sc.fromEmail != "noreply@pressroom.dev" {
		t.Errorf("fromEmail = %q", sc.fromEmail)
	}
	if sc.dialer.Host != "localhost" || sc.dialer.Port != 1025 {
		t.Errorf("dialer = %s:%d, want localhost:1025", sc.dialer.Host, sc.dialer.Port)
	}
}
