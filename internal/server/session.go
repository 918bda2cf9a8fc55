package server

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/desertthunder/playlistr/internal/shared"
)

// Session keys.
const (
	sessionLoggedIn      = "logged_in"
	sessionUserID        = "user_id"
	sessionOAuthState    = "oauth_state"
	sessionSpotifyToken  = "spotify_access_token"
	sessionSpotifyExpiry = "spotify_token_expiry"
)

// defaultTokenLifetime applies when the token endpoint omits expires_in.
const defaultTokenLifetime = time.Hour

// NewSessionManager creates a cookie session manager backed by store.
//
// The cookie is HttpOnly and SameSite=Lax so it survives the top level redirect back from the provider.
func NewSessionManager(store scs.Store, cfg shared.SessionConfig) *scs.SessionManager {
	m := scs.New()
	m.Store = store
	m.Lifetime = cfg.Lifetime
	m.Cookie.Name = cfg.CookieName
	m.Cookie.Path = "/"
	m.Cookie.HttpOnly = true
	m.Cookie.SameSite = http.SameSiteLaxMode
	m.Cookie.Secure = cfg.Secure
	return m
}

func (rs *responder) loggedIn(r *http.Request) bool {
	return rs.sessions.GetBool(r.Context(), sessionLoggedIn)
}

func (rs *responder) currentUserID(r *http.Request) int64 {
	return rs.sessions.GetInt64(r.Context(), sessionUserID)
}

// logIn renews the session token before storing the user so a pre-login session id cannot be reused.
func (rs *responder) logIn(r *http.Request, userID int64) error {
	ctx := r.Context()
	if err := rs.sessions.RenewToken(ctx); err != nil {
		return err
	}
	rs.sessions.Put(ctx, sessionLoggedIn, true)
	rs.sessions.Put(ctx, sessionUserID, userID)
	return nil
}

// spotifyToken returns the stored access token, or "" when none is stored or it has expired.
func (rs *responder) spotifyToken(r *http.Request) string {
	ctx := r.Context()
	token := rs.sessions.GetString(ctx, sessionSpotifyToken)
	if token == "" {
		return ""
	}
	if expiry := rs.sessions.GetInt64(ctx, sessionSpotifyExpiry); expiry <= time.Now().Unix() {
		rs.clearSpotifyToken(r)
		return ""
	}
	return token
}

func (rs *responder) storeSpotifyToken(r *http.Request, token string, expiry time.Time) {
	if expiry.IsZero() {
		expiry = time.Now().Add(defaultTokenLifetime)
	}
	rs.sessions.Put(r.Context(), sessionSpotifyToken, token)
	rs.sessions.Put(r.Context(), sessionSpotifyExpiry, expiry.Unix())
}

func (rs *responder) clearSpotifyToken(r *http.Request) {
	rs.sessions.Remove(r.Context(), sessionSpotifyToken)
	rs.sessions.Remove(r.Context(), sessionSpotifyExpiry)
}
