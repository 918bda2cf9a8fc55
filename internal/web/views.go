package web

import (
	"time"

	"github.com/desertthunder/playlistr/internal/models"
)

// HomeView is the data for [PageHome].
type HomeView struct {
	Playlists []models.PlaylistWithOwner `json:"playlists"`
	LoggedIn  bool                       `json:"logged_in"`
}

// PlaylistView is the data for [PagePlaylist].
type PlaylistView struct {
	Playlist models.PlaylistWithOwner `json:"playlist"`
	LoggedIn bool                     `json:"logged_in"`
}

// ProfileUser is the part of a user shown on the profile page. It has no password field.
type ProfileUser struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// NewProfileUser copies the public fields of u.
func NewProfileUser(u *models.User) ProfileUser {
	return ProfileUser{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

// ProfileView is the data for [PageProfile].
type ProfileView struct {
	User      ProfileUser                `json:"user"`
	Playlists []models.PlaylistWithOwner `json:"playlists"`
	LoggedIn  bool                       `json:"logged_in"`
}

// LoginView is the data for [PageLogin].
type LoginView struct {
	LoggedIn bool `json:"logged_in"`
}

// SpotifyPlaylistsView is the data for [PageSpotifyPlaylists].
type SpotifyPlaylistsView struct {
	Playlists []models.ProviderPlaylist `json:"playlists"`
	LoggedIn  bool                      `json:"logged_in"`
}

// ErrorView is the data for [PageError].
type ErrorView struct {
	Status   int    `json:"status"`
	Title    string `json:"-"`
	Message  string `json:"error"`
	LoggedIn bool   `json:"-"`
}
