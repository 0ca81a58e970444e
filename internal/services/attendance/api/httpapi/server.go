package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/ignitehq/attendance/internal/services/attendance/adminauth"
	"github.com/ignitehq/attendance/internal/services/attendance/domain"
	"github.com/ignitehq/attendance/internal/services/attendance/observability"
	"github.com/ignitehq/attendance/internal/services/attendance/service"
	"github.com/ignitehq/attendance/internal/services/attendance/storage"
)

// Attendance is the service surface the HTTP API calls.
type Attendance interface {
	GetDefaultTime(ctx context.Context) (domain.TimeOfDay, error)
	SetDefaultTime(ctx context.Context, value string) (domain.TimeOfDay, error)
	ListMembers(ctx context.Context) ([]string, error)
	ReplaceMembers(ctx context.Context, names []string) (storage.RosterChange, error)
	CreateSession(ctx context.Context, date, at string) (domain.Session, error)
	ListSessions(ctx context.Context) ([]domain.Session, error)
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	ActiveSession(ctx context.Context) (domain.Session, error)
	OptOut(ctx context.Context, sessionID, name string) error
	OptOutActive(ctx context.Context, name string) error
	AdminRemoveActive(ctx context.Context, name string) error
	Sweep(ctx context.Context) (service.SweepResult, error)
	Zone() *time.Location
}

// Config tunes the HTTP surface.
type Config struct {
	// SecureCookies marks the admin cookie Secure.
	SecureCookies bool
	// CleanToken, when set, must be sent as a bearer token to /clean.
	CleanToken string
	// LoginRate is the sustained login attempts per second per client.
	LoginRate float64
	// LoginBurst is the login attempt burst per client.
	LoginBurst int
	// Gatherer serves /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer
}

// Server hosts the attendance HTTP endpoints.
type Server struct {
	attendance Attendance
	auth       *adminauth.Authenticator
	metrics    *observability.Metrics
	limiter    *loginLimiter
	config     Config
	clock      func() time.Time
}

// NewServer builds a Server.
func NewServer(attendance Attendance, auth *adminauth.Authenticator, metrics *observability.Metrics, config Config) *Server {
	limit := rate.Limit(config.LoginRate)
	if config.LoginRate <= 0 {
		limit = rate.Every(6 * time.Second)
	}
	burst := config.LoginBurst
	if burst <= 0 {
		burst = 5
	}
	config.CleanToken = strings.TrimSpace(config.CleanToken)
	return &Server{
		attendance: attendance,
		auth:       auth,
		metrics:    metrics,
		limiter:    newLoginLimiter(limit, burst),
		config:     config,
		clock:      time.Now,
	}
}

// RegisterRoutes registers attendance endpoints on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	if mux == nil {
		return
	}

	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.Handle("GET /auth/check", s.requireAdmin(s.handleAuthCheck))

	mux.HandleFunc("GET /members", s.handleListMembers)
	mux.Handle("POST /members", s.requireAdmin(s.handleReplaceMembers))

	mux.Handle("POST /session", s.requireAdmin(s.handleCreateSession))
	mux.Handle("GET /sessions", s.requireAdmin(s.handleListSessions))
	mux.HandleFunc("GET /session", s.handleActiveSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /session/remove", s.handleOptOutActive)
	mux.HandleFunc("POST /sessions/{id}/remove", s.handleOptOut)
	mux.Handle("DELETE /session/member", s.requireAdmin(s.handleAdminRemove))

	mux.Handle("GET /default-time", s.requireAdmin(s.handleGetDefaultTime))
	mux.Handle("PUT /default-time", s.requireAdmin(s.handleSetDefaultTime))

	mux.HandleFunc("GET /clean", s.handleClean)
	mux.HandleFunc("POST /clean", s.handleClean)

	mux.HandleFunc("GET /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if s.config.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.withLocale(s.instrument(mux))
}

// StartCleanup prunes idle login limiter entries until ctx is done.
func (s *Server) StartCleanup(ctx context.Context, interval time.Duration) {
	if s == nil || interval <= 0 {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.limiter.prune(s.clock().UTC(), interval)
			}
		}
	}()
}
