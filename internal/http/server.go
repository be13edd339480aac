// Package http serves the invoice dashboard: an HTMX page whose five
// statistics partials render from one consistent snapshot per session,
// plus invoice and reminder-configuration CRUD and the magic-link login
// flow.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"fatture/internal/backend"
	"fatture/internal/cache"
	"fatture/internal/core"
	"fatture/internal/middleware/ratelimit"
	"fatture/internal/middleware/security"
	"fatture/internal/middleware/trace"
	"fatture/internal/stats"
	"fatture/internal/supabase"
	appweb "fatture/web"
)

// Options configures the server.
type Options struct {
	Addr    string
	Backend backend.Backend

	// Auth is nil in demo mode; DemoUserID then identifies every request.
	Auth       *supabase.AuthClient
	DemoUserID string

	// BaseURL is the externally visible origin, used for the magic-link
	// redirect target.
	BaseURL string

	CookieSecret string
	CookieSecure bool

	Logger *slog.Logger
}

type appMetrics struct {
	uptime         time.Time
	invoiceWrites  int64
	partialHits    int64
	partialMisses  int64
	loginsStarted  int64
	loginsVerified int64
}

// controllerEntry pairs a stats controller with the access token it was
// built for. A rotated token gets a fresh controller so data calls never
// reuse stale credentials.
type controllerEntry struct {
	ctrl  *stats.Controller
	token string
}

type Server struct {
	http.Server
	logger    *slog.Logger
	templates *template.Template
	backend   backend.Backend
	auth      *supabase.AuthClient
	codec     *sessionCodec
	baseURL   string
	demoUser  string

	statsService *stats.Service

	mu          sync.Mutex
	controllers map[string]*controllerEntry

	// partialCache holds rendered dataset partials keyed by
	// user|generation|partial. A controller refresh bumps the generation,
	// so stale entries are never served and simply age out.
	partialCache *cache.LRUCache[string]
	cacheManager *cache.Manager

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	headers     *security.HeadersMiddleware
	tracer      *trace.Middleware

	appMetrics appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes, templates and middleware, returning a
// ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:       logger,
		backend:      opts.Backend,
		auth:         opts.Auth,
		codec:        newSessionCodec(opts.CookieSecret, opts.CookieSecure),
		baseURL:      opts.BaseURL,
		demoUser:     opts.DemoUserID,
		statsService: stats.NewService(opts.Backend),
		controllers:  make(map[string]*controllerEntry),
		partialCache: cache.NewLRUCache[string](500, 5*time.Minute),
		cacheManager: cache.NewManager(),
		rateLimiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:     security.NewDetector(),
		headers:      security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		appMetrics:   appMetrics{uptime: time.Now()},
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	s.cacheManager.Register(s.partialCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		staticCache := security.StaticAssetMiddleware(3600)
		mux.Handle("/static/", staticCache(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/login/resend", s.handleResend)
	mux.HandleFunc("/auth/callback", s.handleAuthCallback)
	mux.HandleFunc("/logout", s.handleLogout)

	mux.HandleFunc("/", s.withSession(s.handleDashboard))
	mux.HandleFunc("/ui/overview", s.withSession(s.handleOverviewPartial))
	mux.HandleFunc("/ui/trends", s.withSession(s.handleTrendsPartial))
	mux.HandleFunc("/ui/categories", s.withSession(s.handleCategoriesPartial))
	mux.HandleFunc("/ui/hierarchy", s.withSession(s.handleHierarchyPartial))
	mux.HandleFunc("/ui/invoices", s.withSession(s.handleInvoicesPartial))
	mux.HandleFunc("/filters", s.withSession(s.handleSetFilters))
	mux.HandleFunc("/filters/reset", s.withSession(s.handleResetFilters))
	mux.HandleFunc("/refresh", s.withSession(s.handleRefresh))

	mux.HandleFunc("/invoices", s.withSession(s.handleCreateInvoice))
	mux.HandleFunc("/invoices/update", s.withSession(s.handleUpdateInvoice))
	mux.HandleFunc("/invoices/delete", s.withSession(s.handleDeleteInvoice))

	mux.HandleFunc("/configs", s.withSession(s.handleConfigs))
	mux.HandleFunc("/configs/save", s.withSession(s.handleSaveConfig))
	mux.HandleFunc("/configs/delete", s.withSession(s.handleDeleteConfig))

	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, nil)
	s.Handler = s.headers.Middleware(s.tracer.Middleware(s.guard(limited(mux))))

	return s
}

// guard rejects requests matching known attack patterns before they reach
// any handler.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			s.logger.WarnContext(r.Context(), "Suspicious request blocked",
				"path", r.URL.Path,
				"client_ip", s.detector.ExtractClientIP(r))
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withSession authenticates the request and passes the explicit principal
// to the handler. In demo mode every request maps to the demo user; with
// a real auth client an expired access token is refreshed transparently
// and the rotated session is written back to the cookie.
func (s *Server) withSession(next func(http.ResponseWriter, *http.Request, core.Principal)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			next(w, r, core.Principal{UserID: s.demoUser, Email: s.demoUser + "@localhost"})
			return
		}

		sess, err := s.codec.fromRequest(r)
		if err != nil {
			s.redirectToLogin(w, r)
			return
		}

		if sess.Expired(time.Now()) {
			refreshed, err := s.auth.RefreshSession(r.Context(), sess.RefreshToken)
			if err != nil {
				s.logger.WarnContext(r.Context(), "Session refresh failed", "error", err)
				s.codec.clearCookie(w)
				s.redirectToLogin(w, r)
				return
			}
			sess = sessionFromPlatform(refreshed, sess)
			if err := s.codec.setCookie(w, sess); err != nil {
				s.logger.ErrorContext(r.Context(), "Failed writing session cookie", "error", err)
			}
		}

		next(w, r, sess.Principal())
	}
}

// sessionFromPlatform maps a platform session onto the cookie payload,
// keeping previous identity fields when the response omits the user.
func sessionFromPlatform(ps *supabase.Session, prev session) session {
	s := session{
		UserID:       prev.UserID,
		Email:        prev.Email,
		AccessToken:  ps.AccessToken,
		RefreshToken: ps.RefreshToken,
		ExpiresAt:    ps.ExpiresAt,
	}
	if ps.User != nil {
		s.UserID = ps.User.ID
		s.Email = ps.User.Email
	}
	return s
}

// redirectToLogin sends browsers to the login page. HTMX requests get a
// client-side redirect header instead so partial swaps never render the
// login page inline.
func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// controller returns the stats controller for the principal, creating it
// on first use and replacing it when the access token rotated.
func (s *Server) controller(p core.Principal) *stats.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.controllers[p.UserID]
	if ok && entry.token == p.AccessToken {
		return entry.ctrl
	}
	ctrl := stats.NewController(s.statsService, p)
	s.controllers[p.UserID] = &controllerEntry{ctrl: ctrl, token: p.AccessToken}
	return ctrl
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) countInvoiceWrite() {
	atomic.AddInt64(&s.appMetrics.invoiceWrites, 1)
}
