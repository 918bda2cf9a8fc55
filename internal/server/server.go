// package server contains middleware & handlers for the playlistr web service
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/desertthunder/playlistr/internal/repositories"
	"github.com/desertthunder/playlistr/internal/services"
	"github.com/desertthunder/playlistr/internal/shared"
	"github.com/desertthunder/playlistr/internal/web"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, authentication, sessions, panic recovery, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the playlist service.
// Implementations handle a group of related endpoints (e.g. the OAuth flow).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the method-qualified patterns this handler serves, e.g. "GET /callback"
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                                          // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler, route ...Middleware) // Handle registers a handler, with optional route middleware, for the method and path
	Handler(handler Handler)                                               // Handler registers a custom Handler implementation
	Routes() []string                                                      // Routes lists every registered pattern
	ServeHTTP(w http.ResponseWriter, r *http.Request)                      // ServeHTTP implements http.Handler for the entire router
}

// Options configures a [Server].
//
// Provider may be nil when Spotify credentials are not configured; the OAuth routes then answer 503.
type Options struct {
	Config   *shared.Config
	DB       *sql.DB
	Provider services.Provider
	Logger   *log.Logger
	Sessions *repositories.SessionStore
}

// Server is the playlistr web application.
type Server struct {
	*responder
	router    Router
	db        *sql.DB
	users     *repositories.UserRepository
	playlists *repositories.PlaylistRepository
	store     *repositories.SessionStore
	cfg       *shared.Config
}

// New wires repositories, sessions, templates and routes into a [Server].
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: server config is required", shared.ErrMissingConfig)
	}
	if opts.DB == nil {
		return nil, fmt.Errorf("%w: database is required", shared.ErrMissingArgument)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}

	store := opts.Sessions
	if store == nil {
		store = repositories.NewSessionStore(opts.DB)
	}

	sessions := NewSessionManager(store, opts.Config.Session)
	rs := &responder{renderer: renderer, sessions: sessions, logger: logger}
	sessions.ErrorFunc = rs.sessionError

	s := &Server{
		responder: rs,
		router:    NewBasicRouter(),
		db:        opts.DB,
		users:     repositories.NewUserRepository(opts.DB),
		playlists: repositories.NewPlaylistRepository(opts.DB),
		store:     store,
		cfg:       opts.Config,
	}

	s.router.Use(middleware.RealIP, s.requestLogger, middleware.Recoverer, sessions.LoadAndSave)
	s.routes(NewOAuthHandler(opts.Provider, NewBaseURLs(opts.Config.Server), rs))

	return s, nil
}

func (s *Server) routes(oauth *OAuthHandler) {
	r := s.router

	r.Handle(http.MethodGet, "/{$}", http.HandlerFunc(s.home))
	r.Handle(http.MethodGet, "/playlist/{id}", http.HandlerFunc(s.playlist))
	r.Handle(http.MethodGet, "/profile", http.HandlerFunc(s.profile), s.requireAuth)
	r.Handle(http.MethodGet, "/login", http.HandlerFunc(s.login))
	r.Handle(http.MethodGet, "/health", http.HandlerFunc(s.health))

	r.Handler(oauth)

	r.Handle(http.MethodPost, "/api/users", http.HandlerFunc(s.createUser))
	r.Handle(http.MethodPost, "/api/users/login", http.HandlerFunc(s.loginUser))
	r.Handle(http.MethodPost, "/api/users/logout", http.HandlerFunc(s.logoutUser))
	r.Handle(http.MethodPost, "/api/playlist", http.HandlerFunc(s.createPlaylist), s.requireAuth)

	static := web.Static()
	r.Handle(http.MethodGet, "/js/", static)
	r.Handle(http.MethodGet, "/css/", static)

	r.Handle(http.MethodGet, "/", http.HandlerFunc(s.notFound))
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Routes lists the registered route patterns.
func (s *Server) Routes() []string {
	return s.router.Routes()
}

// CleanupSessions removes expired session records every interval until ctx is done.
func (s *Server) CleanupSessions(ctx context.Context) {
	s.store.Cleanup(ctx, s.cfg.Session.CleanupInterval, s.logger)
}

// SessionManager exposes the cookie session manager, mainly for tests.
func (s *Server) SessionManager() *scs.SessionManager {
	return s.sessions
}
