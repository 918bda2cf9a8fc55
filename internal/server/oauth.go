package server

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/desertthunder/playlistr/internal/services"
	"github.com/desertthunder/playlistr/internal/shared"
	"github.com/desertthunder/playlistr/internal/web"
)

// BaseURLs selects the public base URL used for OAuth redirects.
type BaseURLs struct {
	Local    string
	Frontend string
}

// NewBaseURLs builds [BaseURLs] from the server config. An empty frontend URI falls back to the local base.
func NewBaseURLs(cfg shared.ServerConfig) BaseURLs {
	local := strings.TrimRight(cfg.LocalBaseURL, "/")
	frontend := strings.TrimRight(cfg.FrontendURI, "/")
	if frontend == "" {
		frontend = local
	}
	return BaseURLs{Local: local, Frontend: frontend}
}

// For returns the local base URL for requests addressed to localhost and the frontend URI otherwise.
//
// Both the authorization redirect and the callback use this, so they always agree for a given host.
func (b BaseURLs) For(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if strings.EqualFold(host, "localhost") {
		return b.Local
	}
	return b.Frontend
}

// OAuthHandler handles the Spotify authorization code flow and the playlists landing page.
// Implements the Handler interface for registration with a Router.
//
// The state parameter is generated per login, kept in the session and consumed by the first callback that reads it.
// Access tokens are only ever stored in the server side session.
type OAuthHandler struct {
	provider services.Provider
	bases    BaseURLs
	*responder
}

// NewOAuthHandler creates a new OAuth handler. A nil provider makes every route answer 503.
func NewOAuthHandler(provider services.Provider, bases BaseURLs, rs *responder) *OAuthHandler {
	return &OAuthHandler{provider: provider, bases: bases, responder: rs}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"GET /spotify-login", "GET /callback", "GET /spotify-playlists"}
}

// ServeHTTP dispatches to the login, callback and landing handlers.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/spotify-login":
		h.login(w, r)
	case "/callback":
		h.callback(w, r)
	case "/spotify-playlists":
		h.playlists(w, r)
	default:
		h.fail(w, r, fmt.Errorf("%w: %s", shared.ErrNotFound, r.URL.Path))
	}
}

func (h *OAuthHandler) redirectURI(r *http.Request) string {
	return h.bases.For(r) + "/callback"
}

// login stores a fresh state value in the session and redirects to the provider's authorization page.
func (h *OAuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		h.fail(w, r, shared.ErrMissingCredentials)
		return
	}

	state := oauth2.GenerateVerifier()
	h.sessions.Put(r.Context(), sessionOAuthState, state)

	http.Redirect(w, r, h.provider.AuthCodeURL(state, h.redirectURI(r)), http.StatusFound)
}

// callback validates the provider redirect, exchanges the code once and stores the token in the session.
//
// Nothing is written to the session until the exchange returns.
func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	expected := h.sessions.PopString(ctx, sessionOAuthState)
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		h.fail(w, r, fmt.Errorf("%w: %s", shared.ErrAuthorizationDenied, e))
		return
	}

	state := q.Get("state")
	if expected == "" || state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		h.fail(w, r, shared.ErrInvalidState)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.fail(w, r, shared.ErrMissingCode)
		return
	}

	if h.provider == nil {
		h.fail(w, r, shared.ErrMissingCredentials)
		return
	}

	token, err := h.provider.Exchange(ctx, code, h.redirectURI(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if token == nil || token.AccessToken == "" {
		h.fail(w, r, fmt.Errorf("%w: token response missing access_token", shared.ErrUpstreamProtocol))
		return
	}

	if err := h.sessions.RenewToken(ctx); err != nil {
		h.fail(w, r, fmt.Errorf("renew session: %w", err))
		return
	}
	h.storeSpotifyToken(r, token.AccessToken, token.Expiry)

	h.logger.Info("linked spotify account", "provider", h.provider.Name(), "expires", token.Expiry)
	http.Redirect(w, r, h.bases.For(r)+"/spotify-playlists", http.StatusFound)
}

// playlists lists the provider playlists of the linked account.
//
// Without a usable token the user is sent back through /spotify-login.
func (h *OAuthHandler) playlists(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		h.fail(w, r, shared.ErrMissingCredentials)
		return
	}

	token := h.spotifyToken(r)
	if token == "" {
		http.Redirect(w, r, "/spotify-login", http.StatusFound)
		return
	}

	playlists, err := h.provider.GetPlaylists(r.Context(), token)
	if errors.Is(err, shared.ErrTokenExpired) {
		h.clearSpotifyToken(r)
		http.Redirect(w, r, "/spotify-login", http.StatusFound)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, web.PageSpotifyPlaylists, web.SpotifyPlaylistsView{
		Playlists: playlists,
		LoggedIn:  h.loggedIn(r),
	})
}
