package tools

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestDetectEmailCommand(t *testing.T) {
	cases := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"envoie la réponse à alice@example.org", "alice@example.org", true},
		{"mail cette réponse à bob.dupont@univ-evry.fr stp", "bob.dupont@univ-evry.fr", true},
		{"send the last answer to carol+notes@example.co.uk", "carol+notes@example.co.uk", true},
		{"envoie un mail", "", false},
		{"quelle est la capitale de la France", "", false},
		{"contact: dave@example.org", "", false},
	}
	for _, tc := range cases {
		got, ok := DetectEmailCommand(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("DetectEmailCommand(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestMailer_NotConfigured(t *testing.T) {
	m := NewMailer(SMTPConfig{}, zap.NewNop())
	err := m.Send("alice@example.org", "subject", "body")
	if !errors.Is(err, ErrMailerNotConfigured) {
		t.Fatalf("err = %v, want ErrMailerNotConfigured", err)
	}
}
