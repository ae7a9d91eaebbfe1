// internal/httpserver/server.go
//
// HTTP server wiring for the paging-log backend.
// Responsibilities:
//   - Router + middleware (request IDs, access log, panic recovery, timeouts, CORS).
//   - Public endpoints: "/", "/health".
//   - Auth endpoints: mounted under /api/auth.
//   - Post endpoints (require auth): mounted under /api/posts.
//   - Bearer-token gate that hands the verified Identity to handlers.
//
// Notes:
//   - Every /api response is a JSON envelope {success, message?, ...}.
//   - Handlers never see an unauthenticated request; the identity is a parameter,
//     not a context value.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/sync/errgroup"

	"github.com/edpaging/paging-log/internal/auth"
	"github.com/edpaging/paging-log/internal/store"
)

const shutdownGrace = 10 * time.Second

// Options tunes middleware. Zero values fall back to defaults.
type Options struct {
	ClientOrigin   string        // CORS allowed origin; "*" or empty allows any
	RequestTimeout time.Duration // per-request handler budget; default 10s
	Logger         zerolog.Logger
}

// Server bundles router, store and token issuer.
type Server struct {
	r      *chi.Mux
	store  store.Store
	tokens *auth.Issuer
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, tokens *auth.Issuer, opts Options) *Server {
	s := &Server{r: chi.NewRouter(), store: st, tokens: tokens}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	origin := opts.ClientOrigin
	if origin == "" {
		origin = "*"
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)               // add X-Request-ID
	s.r.Use(chimw.RealIP)                  // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(opts.Logger))  // per-request logger
	s.r.Use(hlog.AccessHandler(accessLog)) // one line per request
	s.r.Use(chimw.Recoverer)               // recover from panics
	s.r.Use(chimw.Timeout(timeout))        // bound handler time
	s.r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{origin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: origin != "*",
		MaxAge:           300,
	}))

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Hello World!"))
	})
	s.r.Get("/health", s.handleHealth)

	// --- api ---
	s.r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentType)
		s.mountAuth(r)
		s.mountPosts(r)
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	s.r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return s
}

// Start serves HTTP on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := s.store.Ping(r.Context()); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("store ping failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"ok":false}`))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true}`))
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one line per request.
func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("request_id", chimw.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request handled")
}

// ---------------------------- auth middleware ------------------------------

// identityHandler is a handler that runs only after the bearer token verified.
type identityHandler func(w http.ResponseWriter, r *http.Request, me auth.Identity)

// requireAuth verifies the bearer token and calls h with the decoded identity.
// Missing token → 401; any verification failure → 403.
func (s *Server) requireAuth(h identityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, err := auth.BearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Access token not found")
			return
		}
		me, err := s.tokens.Verify(tok)
		if err != nil {
			hlog.FromRequest(r).Debug().Err(err).Msg("token rejected")
			writeError(w, http.StatusForbidden, "Invalid token")
			return
		}
		h(w, r, me)
	}
}
