package http

import (
	"net/http"
	"net/mail"
	"strings"
	"sync/atomic"
)

// handleLogin renders the login page and, on POST, asks the platform to
// e-mail a magic link. The response never reveals whether the address
// exists.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		// Demo mode has no login.
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if s.templates == nil {
			http.Error(w, "templates not loaded", http.StatusInternalServerError)
			return
		}
		data := struct{ Sent bool }{}
		if err := s.templates.ExecuteTemplate(w, "login.html", data); err != nil {
			s.logger.ErrorContext(r.Context(), "Login template execution failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}

	case http.MethodPost:
		if resp := ParseFormOrFail(r); resp != nil {
			resp.Write(w)
			return
		}
		email := sanitizeInput(r.Form.Get("email"))
		if _, err := mail.ParseAddress(email); err != nil {
			UnprocessableEntityError("Indirizzo e-mail non valido").Write(w)
			return
		}

		atomic.AddInt64(&s.appMetrics.loginsStarted, 1)
		redirectTo := strings.TrimRight(s.baseURL, "/") + "/auth/callback"
		if err := s.auth.SendMagicLink(r.Context(), email, redirectTo); err != nil {
			s.logger.ErrorContext(r.Context(), "Magic link request failed", "error", err)
			InternalServerError("Invio non riuscito, riprovare").Write(w)
			return
		}
		s.logger.InfoContext(r.Context(), "Magic link requested")

		NewHTMXResponse().
			BodyHTML(`<div class="success">Controlla la posta: ti abbiamo inviato un link di accesso.</div>`).
			Write(w)

	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

// handleResend re-sends the signup confirmation e-mail.
func (s *Server) handleResend(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	if _, err := mail.ParseAddress(email); err != nil {
		UnprocessableEntityError("Indirizzo e-mail non valido").Write(w)
		return
	}
	if err := s.auth.ResendConfirmation(r.Context(), email); err != nil {
		s.logger.ErrorContext(r.Context(), "Confirmation resend failed", "error", err)
		InternalServerError("Invio non riuscito, riprovare").Write(w)
		return
	}

	NewHTMXResponse().
		BodyHTML(`<div class="success">E-mail di conferma inviata di nuovo.</div>`).
		Write(w)
}

// handleAuthCallback lands the magic-link redirect: it exchanges the
// token hash for a platform session, builds the principal once and
// stores it in the signed session cookie.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	tokenHash := strings.TrimSpace(r.URL.Query().Get("token_hash"))
	verifyType := strings.TrimSpace(r.URL.Query().Get("type"))
	if verifyType == "" {
		verifyType = "magiclink"
	}
	if tokenHash == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	platformSession, err := s.auth.VerifyTokenHash(r.Context(), tokenHash, verifyType)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Token hash verification failed", "error", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	sess := sessionFromPlatform(platformSession, session{})
	if sess.UserID == "" {
		// Some responses omit the user; look it up via the token.
		user, err := s.auth.GetUser(r.Context(), sess.AccessToken)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "User lookup after verify failed", "error", err)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		sess.UserID = user.ID
		sess.Email = user.Email
	}

	if err := s.codec.setCookie(w, sess); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed writing session cookie", "error", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	atomic.AddInt64(&s.appMetrics.loginsVerified, 1)
	s.logger.InfoContext(r.Context(), "Login verified", "user_id", sess.UserID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout revokes the platform session and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	if s.auth != nil {
		if sess, err := s.codec.fromRequest(r); err == nil {
			if err := s.auth.SignOut(r.Context(), sess.AccessToken); err != nil {
				// Cookie removal signs the browser out regardless.
				s.logger.WarnContext(r.Context(), "Platform sign-out failed", "error", err)
			}
		}
	}

	s.codec.clearCookie(w)
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
