package services

import (
	"context"
	"errors"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/desertthunder/playlistr/internal/models"
	"github.com/desertthunder/playlistr/internal/shared"
)

// Provider defines the interface for OAuth music services (Spotify) that users link their account to.
type Provider interface {
	// Name returns the name of the service (e.g., "Spotify")
	Name() string

	// AuthCodeURL returns the authorization URL the user is redirected to.
	// redirectURI must be identical to the one later passed to Exchange.
	AuthCodeURL(state, redirectURI string) string

	// Exchange trades an authorization code for an access token.
	Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)

	// GetPlaylists retrieves all playlists of the user the access token belongs to.
	GetPlaylists(ctx context.Context, accessToken string) ([]models.ProviderPlaylist, error)
}

// classifyTransportError maps a failed outbound call to the shared upstream sentinels.
//
// Unreachable hosts and timeouts are retryable ([shared.ErrServiceUnavailable]);
// everything else means the provider answered with something unusable ([shared.ErrUpstreamProtocol]).
func classifyTransportError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) {
		return shared.ErrServiceUnavailable
	}
	return shared.ErrUpstreamProtocol
}
