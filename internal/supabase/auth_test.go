package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSendMagicLink(t *testing.T) {
	var gotPath, gotRedirect string
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRedirect = r.URL.Query().Get("redirect_to")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	err := c.Auth().SendMagicLink(context.Background(), "mario@example.com", "http://localhost:8082/auth/callback")
	if err != nil {
		t.Fatalf("SendMagicLink: %v", err)
	}

	if gotPath != "/auth/v1/otp" {
		t.Errorf("expected /auth/v1/otp, got %s", gotPath)
	}
	if gotRedirect != "http://localhost:8082/auth/callback" {
		t.Errorf("redirect_to not forwarded, got %q", gotRedirect)
	}
	if gotBody["email"] != "mario@example.com" {
		t.Errorf("unexpected body: %+v", gotBody)
	}
}

func TestVerifyTokenHash(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/verify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["token_hash"] != "hash-123" || body["type"] != "magiclink" {
			t.Errorf("unexpected body: %+v", body)
		}
		json.NewEncoder(w).Encode(Session{
			AccessToken:  "at",
			RefreshToken: "rt",
			ExpiresAt:    time.Now().Add(time.Hour).Unix(),
			User:         &User{ID: "user-1", Email: "mario@example.com"},
		})
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	sess, err := c.Auth().VerifyTokenHash(context.Background(), "hash-123", "magiclink")
	if err != nil {
		t.Fatalf("VerifyTokenHash: %v", err)
	}
	if sess.AccessToken != "at" || sess.User == nil || sess.User.ID != "user-1" {
		t.Errorf("unexpected session: %+v", sess)
	}
	if sess.Expired(time.Now()) {
		t.Error("fresh session should not be expired")
	}
}

func TestAuthError_SurfacesMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has expired"}`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.Auth().RefreshSession(context.Background(), "stale")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "invalid_grant" && err.Error() != "Token has expired" {
		t.Errorf("expected platform message, got %q", err.Error())
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()

	s := &Session{ExpiresAt: now.Add(time.Hour).Unix()}
	if s.Expired(now) {
		t.Error("session expiring in an hour should be valid")
	}

	s = &Session{ExpiresAt: now.Add(10 * time.Second).Unix()}
	if !s.Expired(now) {
		t.Error("session inside the refresh margin should report expired")
	}

	s = &Session{}
	if s.Expired(now) {
		t.Error("session without expiry should not report expired")
	}
}
