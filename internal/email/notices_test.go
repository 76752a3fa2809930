package email

import (
	"context"
	"strings"
	"testing"
)

type captureSender struct {
	to, subject, html, text string
}

func (c *captureSender) Send(to, subject, htmlBody, textBody string) error {
	c.to, c.subject, c.html, c.text = to, subject, htmlBody, textBody
	return nil
}

func TestProviderLinked_BuildsNotice(t *testing.T) {
	sender := &captureSender{}
	n := NewSecurityNotifier(sender, "GigLink")

	if err := n.ProviderLinked(context.Background(), "ana@example.com", "google"); err != nil {
		t.Fatalf("ProviderLinked: %v", err)
	}
	if sender.to != "ana@example.com" {
		t.Fatalf("to: got %q", sender.to)
	}
	if !strings.Contains(sender.subject, "GigLink") {
		t.Fatalf("subject should carry the app name: %q", sender.subject)
	}
	if !strings.Contains(sender.text, "Google") || !strings.Contains(sender.html, "Google") {
		t.Fatalf("body should name the provider in display form")
	}
}

func TestProviderDisplay(t *testing.T) {
	if got := providerDisplay("APPLE"); got != "Apple" {
		t.Fatalf("apple display: got %q", got)
	}
	if got := providerDisplay("otro"); got != "otro" {
		t.Fatalf("unknown provider should pass through, got %q", got)
	}
}
