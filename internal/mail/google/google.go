// Package google sends e-mail through the Gmail API. Credentials come
// from the OAuth token produced by cmd/oauth-init or from a service
// account, both read from the environment.
package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	goption "google.golang.org/api/option"

	"fatture/internal/mail"
)

type Client struct {
	svc *gmail.Service
}

var _ mail.Sender = (*Client)(nil)

// NewFromEnv creates a Gmail sender using environment variables.
// OAuth client + token: GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE,
// with GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE.
// Service account fallback: GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	svc, err := newGmailService(ctx)
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	return &Client{svc: svc}, nil
}

func newGmailService(ctx context.Context) (*gmail.Service, error) {
	clientJSON, err := readEnvJSON("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	if err != nil {
		return nil, err
	}
	tokenJSON, err := readEnvJSON("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	if err != nil {
		return nil, err
	}

	if clientJSON != nil && tokenJSON != nil {
		cfg, err := googleoauth.ConfigFromJSON(clientJSON, gmail.GmailSendScope)
		if err != nil {
			return nil, fmt.Errorf("oauth config: %w", err)
		}
		var token oauth2.Token
		if err := json.Unmarshal(tokenJSON, &token); err != nil {
			return nil, fmt.Errorf("parse oauth token: %w", err)
		}

		slog.InfoContext(ctx, "Creating Gmail service with OAuth token",
			"scope", gmail.GmailSendScope)
		return gmail.NewService(ctx,
			goption.WithTokenSource(cfg.TokenSource(ctx, &token)))
	}

	serviceAccountJSON, err := readEnvJSON("GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE")
	if err != nil {
		return nil, err
	}
	if serviceAccountJSON == nil {
		if path := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); path != "" {
			serviceAccountJSON, err = os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read application credentials: %w", err)
			}
		}
	}
	if serviceAccountJSON == nil {
		return nil, errors.New("missing Gmail credentials (set GOOGLE_OAUTH_CLIENT_JSON+GOOGLE_OAUTH_TOKEN_JSON or service account credentials)")
	}

	slog.InfoContext(ctx, "Creating Gmail service with service account",
		"scope", gmail.GmailSendScope)
	return gmail.NewService(ctx,
		goption.WithCredentialsJSON(serviceAccountJSON),
		goption.WithScopes(gmail.GmailSendScope))
}

func readEnvJSON(jsonVar, fileVar string) ([]byte, error) {
	if v := strings.TrimSpace(os.Getenv(jsonVar)); v != "" {
		return []byte(v), nil
	}
	if path := strings.TrimSpace(os.Getenv(fileVar)); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fileVar, err)
		}
		return data, nil
	}
	return nil, nil
}

// Send delivers the message through the authenticated Gmail account.
func (c *Client) Send(ctx context.Context, msg mail.Message) error {
	if c.svc == nil {
		return errors.New("gmail service not initialized")
	}
	if msg.To == "" {
		return errors.New("missing recipient")
	}

	raw := base64.URLEncoding.EncodeToString(BuildRFC2822(msg))
	_, err := c.svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	slog.InfoContext(ctx, "Reminder e-mail sent",
		"to", msg.To, "subject", msg.Subject)
	return nil
}

// BuildRFC2822 assembles the raw wire form of a message.
func BuildRFC2822(msg mail.Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	if msg.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", msg.ReplyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}
