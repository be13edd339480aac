package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testSession() session {
	return session{
		UserID:       "user-1",
		Email:        "mario@example.com",
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}
}

func TestSessionCodecRoundTrip(t *testing.T) {
	codec := newSessionCodec("test-secret", false)

	encoded, err := codec.encode(testSession())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := codec.decode(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if decoded != testSession() {
		t.Errorf("round trip mismatch: got %+v", decoded)
	}
}

func TestSessionCodecRejectsTampering(t *testing.T) {
	codec := newSessionCodec("test-secret", false)
	encoded, err := codec.encode(testSession())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	tests := []struct {
		name  string
		value string
	}{
		{"flipped payload byte", "A" + encoded[1:]},
		{"truncated signature", encoded[:len(encoded)-2]},
		{"missing signature", strings.SplitN(encoded, ".", 2)[0]},
		{"empty value", ""},
		{"garbage", "not-a-session"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := codec.decode(tt.value); err == nil {
				t.Error("expected decode to fail")
			}
		})
	}
}

func TestSessionCodecRejectsWrongSecret(t *testing.T) {
	encoded, err := newSessionCodec("secret-a", false).encode(testSession())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	if _, err := newSessionCodec("secret-b", false).decode(encoded); err == nil {
		t.Error("expected decode with different secret to fail")
	}
}

func TestSessionExpiredMargin(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt int64
		want      bool
	}{
		{"well in the future", now.Add(time.Hour).Unix(), false},
		{"inside the refresh margin", now.Add(30 * time.Second).Unix(), true},
		{"already past", now.Add(-time.Minute).Unix(), true},
		{"zero means no expiry", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := session{ExpiresAt: tt.expiresAt}
			if got := s.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionCookieRoundTrip(t *testing.T) {
	codec := newSessionCodec("test-secret", true)

	rec := httptest.NewRecorder()
	if err := codec.setCookie(rec, testSession()); err != nil {
		t.Fatalf("setCookie failed: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != sessionCookieName {
		t.Errorf("cookie name = %q, want %q", c.Name, sessionCookieName)
	}
	if !c.HttpOnly {
		t.Error("cookie should be HttpOnly")
	}
	if !c.Secure {
		t.Error("cookie should be Secure when the codec is secure")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	got, err := codec.fromRequest(req)
	if err != nil {
		t.Fatalf("fromRequest failed: %v", err)
	}
	if got.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", got.UserID)
	}
}

func TestClearCookieExpiresSession(t *testing.T) {
	codec := newSessionCodec("test-secret", false)

	rec := httptest.NewRecorder()
	codec.clearCookie(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].MaxAge >= 0 {
		t.Errorf("MaxAge = %d, want negative", cookies[0].MaxAge)
	}
}
