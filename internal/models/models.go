package models

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/playlistr/internal/shared"
)

// Model defines the base interface for all persistent models in the playlist service.
type Model interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(ctx context.Context, model T) error    // Create inserts a new model and assigns its ID
	Get(ctx context.Context, id int64) (T, error) // Get retrieves a model by its ID
	List(ctx context.Context) ([]T, error)        // List retrieves all models
}

// User is an account that owns playlists.
//
// Password holds the bcrypt hash and is never serialized.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a [User] with normalized fields and creation timestamps set.
func NewUser(name, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Name:      strings.TrimSpace(name),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Password:  passwordHash,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks that the user has a name, a well-formed email, and a password hash.
func (u *User) Validate() error {
	if u.Name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrInvalidInput)
	}
	if u.Email == "" {
		return fmt.Errorf("%w: email is required", shared.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("%w: email %q is not valid", shared.ErrInvalidInput, u.Email)
	}
	if u.Password == "" {
		return fmt.Errorf("%w: password is required", shared.ErrInvalidInput)
	}
	return nil
}

// Playlist is a playlist owned by a user.
//
// SpotifyID is empty for playlists that were not imported from Spotify.
type Playlist struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	SpotifyID string    `json:"spotify_id"`
	ImgURL    string    `json:"img_url"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPlaylist creates a [Playlist] for userID with trimmed fields.
func NewPlaylist(userID int64, name, spotifyID, imgURL string) *Playlist {
	return &Playlist{
		UserID:    userID,
		Name:      strings.TrimSpace(name),
		SpotifyID: strings.TrimSpace(spotifyID),
		ImgURL:    strings.TrimSpace(imgURL),
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks ownership, name, and that any image URL is an absolute http(s) URL.
func (p *Playlist) Validate() error {
	if p.UserID <= 0 {
		return fmt.Errorf("%w: playlist owner is required", shared.ErrInvalidInput)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrInvalidInput)
	}
	if p.ImgURL != "" {
		u, err := url.Parse(p.ImgURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: img_url must be an absolute http(s) URL", shared.ErrInvalidInput)
		}
	}
	return nil
}

// PlaylistWithOwner is a playlist joined with its owner's name.
type PlaylistWithOwner struct {
	Playlist
	OwnerName string `json:"owner_name"`
}

// ProviderPlaylist is a playlist reported by an external service such as Spotify.
type ProviderPlaylist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ImgURL     string `json:"img_url"`
	Owner      string `json:"owner"`
	TrackCount int    `json:"track_count"`
	Public     bool   `json:"public"`
}
