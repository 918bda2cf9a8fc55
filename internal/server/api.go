package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/playlistr/internal/models"
	"github.com/desertthunder/playlistr/internal/shared"
)

const (
	maxBodyBytes      = 1 << 20
	minPasswordLength = 8
)

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createPlaylistRequest struct {
	SpotifyID string `json:"spotify_id"`
	Name      string `json:"name"`
	ImgURL    string `json:"img_url"`
}

// decodeJSON reads a single JSON object of at most maxBodyBytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: request body larger than %d bytes", shared.ErrInvalidInput, maxErr.Limit)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", shared.ErrInvalidInput)
		default:
			return fmt.Errorf("%w: malformed JSON body", shared.ErrInvalidInput)
		}
	}

	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", shared.ErrInvalidInput)
	}
	return nil
}

// createUser registers an account and logs it in.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if len(req.Password) < minPasswordLength {
		s.fail(w, r, fmt.Errorf("%w: password must be at least %d characters", shared.ErrInvalidInput, minPasswordLength))
		return
	}
	if len(req.Password) > shared.MaxPasswordBytes {
		s.fail(w, r, fmt.Errorf("%w: password must be at most %d bytes", shared.ErrInvalidInput, shared.MaxPasswordBytes))
		return
	}

	hash, err := shared.HashPassword(req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	user := models.NewUser(req.Name, req.Email, hash)
	if err := s.users.Create(r.Context(), user); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.logIn(r, user.ID); err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info("user registered", "user_id", user.ID)
	s.json(w, http.StatusCreated, user)
}

// loginUser checks credentials and starts a session.
//
// Unknown emails and wrong passwords produce the same response.
func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.fail(w, r, fmt.Errorf("%w: email and password are required", shared.ErrInvalidInput))
		return
	}

	hash := ""
	user, err := s.users.GetCredentials(r.Context(), req.Email)
	switch {
	case err == nil:
		hash = user.Password
	case !errors.Is(err, shared.ErrNotFound):
		s.fail(w, r, err)
		return
	}

	if err := shared.CheckPassword(hash, req.Password); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.logIn(r, user.ID); err != nil {
		s.fail(w, r, err)
		return
	}

	user.Password = ""
	s.json(w, http.StatusOK, user)
}

// logoutUser destroys the session.
func (s *Server) logoutUser(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Destroy(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// createPlaylist stores a provider playlist for the logged in user.
func (s *Server) createPlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if strings.TrimSpace(req.SpotifyID) == "" {
		s.fail(w, r, fmt.Errorf("%w: spotify_id is required", shared.ErrInvalidInput))
		return
	}

	playlist := models.NewPlaylist(s.currentUserID(r), req.Name, req.SpotifyID, req.ImgURL)
	if err := s.playlists.Create(r.Context(), playlist); err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Info("playlist added", "user_id", playlist.UserID, "playlist_id", playlist.ID, "spotify_id", playlist.SpotifyID)
	s.json(w, http.StatusCreated, playlist)
}
