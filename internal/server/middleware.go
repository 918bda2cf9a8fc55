package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/desertthunder/playlistr/internal/shared"
)

const requestIDHeader = "X-Request-ID"

// requestLogger tags each request with an id and logs method, path, status and duration once it completes.
//
// An incoming X-Request-ID header is reused; otherwise a new uuid is generated.
func (rs *responder) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = shared.GenerateID()
		}

		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		w.Header().Set(requestIDHeader, id)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		kv := []any{
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(started),
			"remote", r.RemoteAddr,
		}
		switch {
		case status >= 500:
			rs.logger.Error("request", kv...)
		case status >= 400:
			rs.logger.Warn("request", kv...)
		default:
			rs.logger.Info("request", kv...)
		}
	})
}

// requireAuth rejects requests without a logged in session.
//
// API and JSON clients get a 401; pages redirect to /login.
func (rs *responder) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rs.loggedIn(r) {
			rs.fail(w, r, shared.ErrNotAuthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}
