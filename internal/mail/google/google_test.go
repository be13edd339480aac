package google

import (
	"strings"
	"testing"

	"fatture/internal/mail"
)

func TestBuildRFC2822(t *testing.T) {
	msg := mail.Message{
		From:    "billing@example.com",
		To:      "mario@example.com",
		ReplyTo: "reply@example.com",
		Subject: "Sollecito fattura 2026/001",
		Body:    "La fattura 2026/001 risulta scaduta.",
	}

	raw := string(BuildRFC2822(msg))

	for _, want := range []string{
		"From: billing@example.com\r\n",
		"To: mario@example.com\r\n",
		"Reply-To: reply@example.com\r\n",
		"Subject: Sollecito fattura 2026/001\r\n",
		"Content-Type: text/plain; charset=\"UTF-8\"\r\n",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("missing header %q in:\n%s", want, raw)
		}
	}

	headers, body, ok := strings.Cut(raw, "\r\n\r\n")
	if !ok {
		t.Fatal("no blank line between headers and body")
	}
	if strings.Contains(headers, msg.Body) {
		t.Error("body leaked into headers")
	}
	if body != msg.Body {
		t.Errorf("body = %q", body)
	}
}

func TestBuildRFC2822OmitsEmptyReplyTo(t *testing.T) {
	raw := string(BuildRFC2822(mail.Message{
		From: "a@example.com", To: "b@example.com", Subject: "s", Body: "x",
	}))
	if strings.Contains(raw, "Reply-To") {
		t.Error("Reply-To header present for empty value")
	}
}
