package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/desertthunder/playlistr/internal/shared"
	"github.com/desertthunder/playlistr/internal/web"
)

// responder writes pages, JSON and errors for every handler.
type responder struct {
	renderer *web.Renderer
	sessions *scs.SessionManager
	logger   *log.Logger
}

// classify maps an error to a status code and a message that is safe to show to the client.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, shared.ErrAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidState),
		errors.Is(err, shared.ErrMissingCode),
		errors.Is(err, shared.ErrAuthorizationDenied):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, shared.ErrUpstreamProtocol):
		return http.StatusBadGateway, "spotify returned an invalid response"
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "spotify is unavailable, please try again"
	case errors.Is(err, shared.ErrMissingCredentials):
		return http.StatusServiceUnavailable, "spotify is not configured"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// wantsJSON reports whether the response should be JSON rather than HTML.
func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

// fail writes err as a safe response.
//
// Unauthenticated page requests are redirected to /login. Server side failures are logged with the request id
// and replaced by an opaque message.
func (rs *responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)

	if status >= http.StatusInternalServerError {
		rs.logger.Error("request failed", "id", middleware.GetReqID(r.Context()), "path", r.URL.Path, "error", err)
	} else {
		rs.logger.Debug("request rejected", "id", middleware.GetReqID(r.Context()), "status", status, "error", err)
	}

	if wantsJSON(r) {
		rs.json(w, status, map[string]string{"error": message})
		return
	}

	if errors.Is(err, shared.ErrNotAuthenticated) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	view := web.ErrorView{Status: status, Title: http.StatusText(status), Message: message, LoggedIn: rs.loggedIn(r)}
	if err := rs.renderer.Render(w, status, web.PageError, view); err != nil {
		rs.logger.Error("failed to render error page", "error", err)
		http.Error(w, message, status)
	}
}

// render writes page with data, or data as JSON when the client asked for it.
func (rs *responder) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	if wantsJSON(r) {
		rs.json(w, status, data)
		return
	}

	if err := rs.renderer.Render(w, status, page, data); err != nil {
		rs.logger.Error("failed to render page", "id", middleware.GetReqID(r.Context()), "page", page, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (rs *responder) json(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		rs.logger.Error("failed to encode response", "error", err)
	}
}

// sessionError handles session load and save failures; no session data is available at this point.
func (rs *responder) sessionError(w http.ResponseWriter, r *http.Request, err error) {
	rs.logger.Error("session failure", "id", middleware.GetReqID(r.Context()), "path", r.URL.Path, "error", err)
	status := http.StatusInternalServerError
	if wantsJSON(r) {
		rs.json(w, status, map[string]string{"error": "internal server error"})
		return
	}
	http.Error(w, http.StatusText(status), status)
}
