package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/desertthunder/playlistr/internal/shared"
	"github.com/desertthunder/playlistr/internal/web"
)

// home lists every playlist with its owner's name. It is public.
func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.playlists.ListWithOwners(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, web.PageHome, web.HomeView{Playlists: playlists, LoggedIn: s.loggedIn(r)})
}

// playlist shows one playlist. Malformed ids are rejected before querying.
func (s *Server) playlist(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.fail(w, r, fmt.Errorf("%w: playlist id %q", shared.ErrInvalidInput, raw))
		return
	}

	playlist, err := s.playlists.GetWithOwner(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, web.PagePlaylist, web.PlaylistView{Playlist: *playlist, LoggedIn: s.loggedIn(r)})
}

// profile shows the logged in user and their playlists.
func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := s.users.Get(ctx, s.currentUserID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	playlists, err := s.playlists.ListByUser(ctx, user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, web.PageProfile, web.ProfileView{
		User:      web.NewProfileUser(user),
		Playlists: playlists,
		LoggedIn:  true,
	})
}

// login renders the login form, or redirects users that already have a session.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if s.loggedIn(r) {
		http.Redirect(w, r, "/profile", http.StatusFound)
		return
	}

	s.render(w, r, http.StatusOK, web.PageLogin, web.LoginView{})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		s.json(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.fail(w, r, fmt.Errorf("page %w", shared.ErrNotFound))
}
