package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/playlistr/internal/models"
	"github.com/desertthunder/playlistr/internal/shared"
)

var _ models.Repository[*models.Playlist] = (*PlaylistRepository)(nil)

const selectWithOwner = `
	SELECT p.id, p.user_id, p.name, p.spotify_id, p.img_url, p.created_at, u.name
	FROM playlists p
	JOIN users u ON u.id = p.user_id
`

// PlaylistRepository implements models.Repository[*models.Playlist] for user-owned playlists.
//
// Read queries that feed page rendering join the owner's name in a single statement.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist and sets its generated ID.
//
// Returns [shared.ErrPlaylistExists] when the owner already has a playlist with the same Spotify id
// and [shared.ErrUserNotFound] when the owner does not exist.
func (r *PlaylistRepository) Create(ctx context.Context, playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if playlist.CreatedAt.IsZero() {
		playlist.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO playlists (user_id, name, spotify_id, img_url, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		playlist.UserID,
		playlist.Name,
		playlist.SpotifyID,
		playlist.ImgURL,
		playlist.CreatedAt,
	)
	switch {
	case err == nil:
	case isUniqueViolation(err):
		return fmt.Errorf("%w: spotify id %s", shared.ErrPlaylistExists, playlist.SpotifyID)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: %d", shared.ErrUserNotFound, playlist.UserID)
	default:
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read playlist id: %w", err)
	}
	playlist.ID = id

	return nil
}

// Get retrieves a playlist by ID
func (r *PlaylistRepository) Get(ctx context.Context, id int64) (*models.Playlist, error) {
	query := `
		SELECT id, user_id, name, spotify_id, img_url, created_at
		FROM playlists
		WHERE id = ?
	`

	var p models.Playlist
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.UserID, &p.Name, &p.SpotifyID, &p.ImgURL, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", shared.ErrPlaylistNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist: %w", err)
	}

	return &p, nil
}

// List retrieves all playlists ordered by ID
func (r *PlaylistRepository) List(ctx context.Context) ([]*models.Playlist, error) {
	query := `
		SELECT id, user_id, name, spotify_id, img_url, created_at
		FROM playlists
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.SpotifyID, &p.ImgURL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// GetWithOwner retrieves one playlist joined with its owner's name.
func (r *PlaylistRepository) GetWithOwner(ctx context.Context, id int64) (*models.PlaylistWithOwner, error) {
	p, err := scanWithOwner(r.db.QueryRowContext(ctx, selectWithOwner+" WHERE p.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", shared.ErrPlaylistNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist: %w", err)
	}
	return p, nil
}

// ListWithOwners retrieves every playlist joined with its owner's name, newest first.
func (r *PlaylistRepository) ListWithOwners(ctx context.Context) ([]models.PlaylistWithOwner, error) {
	return r.queryWithOwner(ctx, selectWithOwner+" ORDER BY p.id DESC")
}

// ListByUser retrieves the playlists owned by userID, newest first.
func (r *PlaylistRepository) ListByUser(ctx context.Context, userID int64) ([]models.PlaylistWithOwner, error) {
	return r.queryWithOwner(ctx, selectWithOwner+" WHERE p.user_id = ? ORDER BY p.id DESC", userID)
}

func (r *PlaylistRepository) queryWithOwner(ctx context.Context, query string, args ...any) ([]models.PlaylistWithOwner, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []models.PlaylistWithOwner{}
	for rows.Next() {
		p, err := scanWithOwner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

func scanWithOwner(s scanner) (*models.PlaylistWithOwner, error) {
	var p models.PlaylistWithOwner
	err := s.Scan(&p.ID, &p.UserID, &p.Name, &p.SpotifyID, &p.ImgURL, &p.CreatedAt, &p.OwnerName)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
