// Package supabase is a minimal client for the hosted platform consumed by
// fatture: GoTrue auth and the PostgREST data API. Only the surface the
// dashboard needs is implemented.
package supabase

import "time"

// Config holds client configuration.
type Config struct {
	// ProjectURL is the project base URL (e.g. https://xyz.supabase.co).
	ProjectURL string

	// AnonKey is the public API key sent with every request.
	AnonKey string

	// Timeout for HTTP requests. Defaults to 15s.
	Timeout time.Duration
}

// User is the platform's view of an account.
type User struct {
	ID               string     `json:"id"`
	Aud              string     `json:"aud"`
	Role             string     `json:"role"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	LastSignInAt     *time.Time `json:"last_sign_in_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Session is an authenticated session as returned by the token endpoints.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// Expired reports whether the access token is past its expiry, with a
// small safety margin so callers refresh slightly early.
func (s *Session) Expired(now time.Time) bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return now.Add(30 * time.Second).Unix() >= s.ExpiresAt
}

// OrderDirection for query ordering.
type OrderDirection string

const (
	OrderAsc  OrderDirection = "asc"
	OrderDesc OrderDirection = "desc"
)

// Error is an opaque platform error carrying a human-readable message.
// No taxonomy beyond the HTTP status is established; callers surface the
// message and do not retry.
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Hint       string `json:"hint,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
