package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// AuthClient wraps the GoTrue endpoints used by the login flow: magic
// links, the redirect-URL token exchange, confirmation resend, refresh
// and sign-out.
type AuthClient struct {
	client *Client
}

// SendMagicLink asks the platform to e-mail a sign-in link. The link lands
// on RedirectTo carrying a token hash that VerifyTokenHash exchanges for a
// session.
func (a *AuthClient) SendMagicLink(ctx context.Context, email, redirectTo string) error {
	req := map[string]any{
		"email":       email,
		"create_user": true,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	endpoint := a.client.authURL + "/otp"
	if redirectTo != "" {
		endpoint += "?redirect_to=" + url.QueryEscape(redirectTo)
	}

	respBody, statusCode, err := a.client.request(ctx, "POST", endpoint, body, nil, "")
	if err != nil {
		return err
	}
	if statusCode >= 400 {
		return parseError(respBody, statusCode)
	}
	return nil
}

// VerifyTokenHash exchanges the token hash from a magic-link redirect URL
// for a full session. verifyType is "magiclink", "signup" or "recovery".
func (a *AuthClient) VerifyTokenHash(ctx context.Context, tokenHash, verifyType string) (*Session, error) {
	req := map[string]string{
		"token_hash": tokenHash,
		"type":       verifyType,
	}
	return a.postForSession(ctx, a.client.authURL+"/verify", req)
}

// VerifyOTP exchanges a six-digit code sent by e-mail for a session.
func (a *AuthClient) VerifyOTP(ctx context.Context, email, token, verifyType string) (*Session, error) {
	req := map[string]string{
		"email": email,
		"token": token,
		"type":  verifyType,
	}
	return a.postForSession(ctx, a.client.authURL+"/verify", req)
}

// SignInWithPassword authenticates with email/password. Kept for the demo
// page and local development against a seeded project.
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	req := map[string]string{
		"email":    email,
		"password": password,
	}
	return a.postForSession(ctx, a.client.authURL+"/token?grant_type=password", req)
}

// RefreshSession exchanges a refresh token for a new session.
func (a *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	req := map[string]string{
		"refresh_token": refreshToken,
	}
	return a.postForSession(ctx, a.client.authURL+"/token?grant_type=refresh_token", req)
}

// ResendConfirmation re-sends the signup confirmation e-mail.
func (a *AuthClient) ResendConfirmation(ctx context.Context, email string) error {
	req := map[string]string{
		"email": email,
		"type":  "signup",
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	respBody, statusCode, err := a.client.request(ctx, "POST", a.client.authURL+"/resend", body, nil, "")
	if err != nil {
		return err
	}
	if statusCode >= 400 {
		return parseError(respBody, statusCode)
	}
	return nil
}

// GetUser retrieves the user behind an access token.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	respBody, statusCode, err := a.client.request(ctx, "GET", a.client.authURL+"/user", nil, nil, accessToken)
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, parseError(respBody, statusCode)
	}

	var user User
	if err := json.Unmarshal(respBody, &user); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &user, nil
}

// SignOut revokes the session behind the access token.
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	respBody, statusCode, err := a.client.request(ctx, "POST", a.client.authURL+"/logout", nil, nil, accessToken)
	if err != nil {
		return err
	}
	if statusCode >= 400 {
		return parseError(respBody, statusCode)
	}
	return nil
}

func (a *AuthClient) postForSession(ctx context.Context, endpoint string, req any) (*Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, statusCode, err := a.client.request(ctx, "POST", endpoint, body, nil, "")
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, parseError(respBody, statusCode)
	}

	var session Session
	if err := json.Unmarshal(respBody, &session); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &session, nil
}
