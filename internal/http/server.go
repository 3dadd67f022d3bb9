package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"ahorro/internal/cache"
	"ahorro/internal/identity"
	"ahorro/internal/log"
	"ahorro/internal/middleware/ratelimit"
	"ahorro/internal/middleware/security"
	"ahorro/internal/middleware/trace"
	"ahorro/internal/services"
)

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	Verify(token string) (identity.Claims, error)
}

// Services are the operations exposed by the API.
type Services struct {
	Accounts *services.AccountService
	Finance  *services.FinanceService
	Friends  *services.FriendService
	Ranking  *services.RankingService
	Sharing  *services.SharingService
}

type Options struct {
	RateLimitPerMinute int
	Logger             *log.Logger
	// Ping reports store readiness; nil means always ready.
	Ping   func(ctx context.Context) error
	Caches *cache.Manager
	// StreamHeartbeat is the comment interval on event streams.
	StreamHeartbeat time.Duration
}

type Server struct {
	http.Server
	svc      Services
	verifier TokenVerifier
	logger   *log.Logger
	ping     func(ctx context.Context) error
	caches   *cache.Manager

	traceMiddleware  *trace.Middleware
	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	heartbeat        time.Duration
	started          time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, verifier TokenVerifier, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}
	heartbeat := opts.StreamHeartbeat
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}

	s := &Server{
		svc:              svc,
		verifier:         verifier,
		logger:           logger,
		ping:             opts.Ping,
		caches:           opts.Caches,
		securityDetector: security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		heartbeat: heartbeat,
		started:   time.Now(),
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP)

	s.Server = http.Server{
		Addr:           addr,
		Handler:        s.middleware(s.routes()),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 64 << 10,
	}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)

	mux.Handle("GET /me", s.authed(s.handleMe))
	mux.Handle("PUT /me/budget", s.authed(s.handleUpdateBudget))

	mux.Handle("POST /expenses", s.authed(s.handleAddExpense))
	mux.Handle("GET /expenses", s.authed(s.handleListExpenses))
	mux.Handle("GET /summary", s.authed(s.handleSummary))
	mux.Handle("POST /summary/refresh", s.authed(s.handleRefreshSummary))
	mux.Handle("GET /progress", s.authed(s.handleProgress))
	mux.Handle("POST /simulate", s.authed(s.handleSimulate))

	mux.Handle("PUT /public-summary", s.authed(s.handleSavePublicSummary))
	mux.Handle("GET /public-summary/{uid}", s.authed(s.handlePublicSummary))

	mux.Handle("GET /users/search", s.authed(s.handleSearchUsers))
	mux.Handle("GET /friends", s.authed(s.handleFriends))
	mux.Handle("POST /friends/requests", s.authed(s.handleSendFriendRequest))
	mux.Handle("GET /friends/requests", s.authed(s.handleIncomingRequests))
	mux.Handle("POST /friends/requests/{id}/accept", s.authed(s.handleAcceptFriendRequest))
	mux.Handle("GET /friends/requests/stream", s.authed(s.handleIncomingStream))
	mux.Handle("GET /friends/dashboard", s.authed(s.handleFriendsDashboard))
	mux.Handle("GET /ranking", s.authed(s.handleRanking))
	return mux
}

// middleware wraps h with, from the outside in: tracing, security headers,
// probe detection, the rate limit on writes and the request logger.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = log.Middleware(s.logger, trace.RequestID)(h)
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, ratelimit.Mutating, s.onRateLimited)(h)
	h = s.securityDetector.Middleware(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusForbidden, "forbidden", "Solicitud rechazada").Write(w)
	})(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return s.traceMiddleware.Middleware(h)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate-limited", "Demasiadas solicitudes. Inténtalo de nuevo en un minuto.").Write(w)
}

// authed verifies the bearer token and puts the caller's uid in the context.
func (s *Server) authed(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			UnauthorizedError("Debes iniciar sesión").Write(w)
			return
		}
		claims, err := s.verifier.Verify(token)
		if err != nil {
			m := mapError(err)
			if m.status != http.StatusUnauthorized {
				writeError(w, r, err, log.ComponentAuth, log.OpRead)
				return
			}
			UnauthorizedError(m.message).Write(w)
			return
		}
		ctx := identity.WithUID(r.Context(), claims.UID)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, claims.UID))
		next(w, r.WithContext(ctx))
	})
}

// Shutdown stops background workers, then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		if s.caches != nil {
			s.caches.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
		if errors.Is(shutdownErr, http.ErrServerClosed) {
			shutdownErr = nil
		}
	})
	return shutdownErr
}
