// Package auth gates the web UI behind a single shared password. It is only
// wired when WEBUI_PASSWORD is set.
package auth

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"img2img/logging"
)

const (
	LoginPath  = "/login"
	LogoutPath = "/logout"

	// FailedLoginDelay slows down password guessing.
	FailedLoginDelay = time.Second
)

// Config tunes the guard.
type Config struct {
	SessionTTL    time.Duration
	MaxAttempts   int
	AttemptWindow time.Duration
	BlockDuration time.Duration
	SecureCookies bool
	BcryptCost    int
	FailureDelay  time.Duration
}

// DefaultConfig returns a 24h session, 5 attempts per minute and a 5 minute
// block.
func DefaultConfig() Config {
	return Config{
		SessionTTL:    24 * time.Hour,
		MaxAttempts:   5,
		AttemptWindow: time.Minute,
		BlockDuration: 5 * time.Minute,
		BcryptCost:    DefaultCost,
		FailureDelay:  FailedLoginDelay,
	}
}

// Guard checks session cookies and serves the login and logout endpoints.
type Guard struct {
	hash     string
	cfg      Config
	sessions *SessionStore
	limiter  *Limiter
	logger   *logging.Logger
}

// NewGuard hashes password and returns a guard using cfg.
func NewGuard(password string, cfg Config, logger *logging.Logger) (*Guard, error) {
	hash, err := HashPassword(password, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Guard{
		hash:     hash,
		cfg:      cfg,
		sessions: NewSessionStore(cfg.SessionTTL),
		limiter:  NewLimiter(cfg.MaxAttempts, cfg.AttemptWindow, cfg.BlockDuration),
		logger:   logger.Named("auth"),
	}, nil
}

// StartJanitor prunes expired sessions and limiter entries until ctx is done.
func (g *Guard) StartJanitor(ctx context.Context, interval time.Duration) {
	startJanitor(ctx, interval, func() int {
		return g.sessions.Cleanup() + g.limiter.Cleanup()
	})
}

// Sessions exposes the session store.
func (g *Guard) Sessions() *SessionStore {
	return g.sessions
}

// Authenticated reports whether r carries a live session cookie.
func (g *Guard) Authenticated(r *http.Request) bool {
	id := sessionID(r)
	if id == "" {
		return false
	}
	_, err := g.sessions.Get(id)
	return err == nil
}

// Middleware lets authenticated requests through. Page loads are redirected
// to the login form; everything else gets 401.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.Authenticated(r) {
			next.ServeHTTP(w, r)
			return
		}
		g.logger.Debug("unauthenticated request",
			zap.String("path", r.URL.Path),
			zap.String("ip", clientIP(r)))

		if r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html") {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

// LoginHandler serves the login form and checks submitted passwords.
func (g *Guard) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if g.Authenticated(r) {
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
			renderLoginPage(w, r.URL.Query().Get("error"))
		case http.MethodPost:
			g.login(w, r)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (g *Guard) login(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	if ok, wait := g.limiter.Allow(ip); !ok {
		g.logger.Warn("login rate limit exceeded",
			zap.String("ip", ip),
			zap.Duration("remaining", wait))
		w.Header().Set("Retry-After", strconv.Itoa(max(1, int(wait.Seconds()))))
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	password := r.PostFormValue("password")
	if password == "" {
		loginFailed(w, r, "Password is required")
		return
	}
	if err := VerifyPassword(password, g.hash); err != nil {
		n := g.limiter.Fail(ip)
		g.logger.Info("login failed", zap.String("ip", ip), zap.Int("attempts", n))
		time.Sleep(g.cfg.FailureDelay)
		loginFailed(w, r, "Invalid password")
		return
	}

	session, err := g.sessions.Create()
	if err != nil {
		g.logger.Error("creating session", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	g.limiter.Reset(ip)
	http.SetCookie(w, sessionCookie(session.ID, g.cfg.SessionTTL, g.cfg.SecureCookies))

	g.logger.Info("login succeeded",
		zap.String("ip", ip),
		zap.String("session", shortID(session.ID)),
		zap.Time("expires_at", session.ExpiresAt))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LogoutHandler ends the current session.
func (g *Guard) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		if id := sessionID(r); id != "" {
			g.sessions.Delete(id)
			g.logger.Info("logged out", zap.String("session", shortID(id)))
		}
		http.SetCookie(w, clearedCookie())

		code := http.StatusFound
		if r.Method == http.MethodPost {
			code = http.StatusSeeOther
		}
		http.Redirect(w, r, LoginPath, code)
	}
}

func loginFailed(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, LoginPath+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// shortID keeps session IDs out of logs.
func shortID(id string) string {
	if len(id) <= 8 {
		return id + "..."
	}
	return id[:8] + "..."
}
