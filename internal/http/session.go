package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fatture/internal/core"
)

const sessionCookieName = "fatture_session"

var errInvalidSession = errors.New("invalid session cookie")

// session is the browser-side view of a platform session. It travels in a
// single HMAC-signed cookie; the platform stays the source of truth for
// token validity.
type session struct {
	UserID       string `json:"uid"`
	Email        string `json:"email"`
	AccessToken  string `json:"at"`
	RefreshToken string `json:"rt"`
	ExpiresAt    int64  `json:"exp"`
}

// Principal builds the explicit per-request principal from the session.
func (s session) Principal() core.Principal {
	return core.Principal{
		UserID:      s.UserID,
		Email:       s.Email,
		AccessToken: s.AccessToken,
	}
}

// Expired reports whether the access token is past its expiry, with a
// one minute margin so it is refreshed slightly early.
func (s session) Expired(now time.Time) bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return now.Unix() >= s.ExpiresAt-60
}

// sessionCodec signs and verifies session cookies. The payload is JSON,
// base64url encoded, with an HMAC-SHA256 signature appended.
type sessionCodec struct {
	secret []byte
	secure bool
}

func newSessionCodec(secret string, secure bool) *sessionCodec {
	return &sessionCodec{secret: []byte(secret), secure: secure}
}

func (c *sessionCodec) encode(s session) (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + c.sign(encoded), nil
}

func (c *sessionCodec) decode(value string) (session, error) {
	encoded, sig, found := strings.Cut(value, ".")
	if !found {
		return session{}, errInvalidSession
	}
	if !hmac.Equal([]byte(c.sign(encoded)), []byte(sig)) {
		return session{}, errInvalidSession
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return session{}, errInvalidSession
	}
	var s session
	if err := json.Unmarshal(payload, &s); err != nil {
		return session{}, errInvalidSession
	}
	if s.UserID == "" || s.AccessToken == "" {
		return session{}, errInvalidSession
	}
	return s, nil
}

func (c *sessionCodec) sign(encoded string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// setCookie writes the session cookie. HttpOnly keeps the tokens away
// from page scripts.
func (c *sessionCodec) setCookie(w http.ResponseWriter, s session) error {
	value, err := c.encode(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
	})
	return nil
}

func (c *sessionCodec) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// fromRequest reads and verifies the session cookie.
func (c *sessionCodec) fromRequest(r *http.Request) (session, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return session{}, errInvalidSession
	}
	return c.decode(cookie.Value)
}
