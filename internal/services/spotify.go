// Spotify API implementation of [Provider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/spotify"
	"golang.org/x/time/rate"

	"github.com/desertthunder/playlistr/internal/models"
	"github.com/desertthunder/playlistr/internal/shared"
)

const (
	spotifyBaseURL        = "https://api.spotify.com/v1"
	defaultRequestTimeout = 10 * time.Second
	playlistPageSize      = 50
	maxPlaylistPages      = 20
	retryDelay            = 250 * time.Millisecond
	maxRetryAfter         = 2 * time.Second
)

// SpotifyScopes are requested on every authorization.
var SpotifyScopes = []string{"user-read-private", "user-read-email", "user-library-read"}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       Owner               `json:"owner"`
	Public      bool                `json:"public"`
	Tracks      simplePlaylistTrack `json:"tracks"`
	Images      []SpotifyImage      `json:"images"`
	URI         string              `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items    []SpotifySimplePlaylist `json:"items"`
	Total    int                     `json:"total"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
	Next     *string                 `json:"next"`
	Previous *string                 `json:"previous"`
}

// SpotifyService implements the [Provider] interface for Spotify.
//
// It holds no per-user state: tokens are passed in by the caller, so one instance serves every request.
type SpotifyService struct {
	config     oauth2.Config
	apiURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	logger     *log.Logger
}

// NewSpotifyService creates a Spotify provider from the configured credentials.
//
// A nil client selects [http.DefaultClient]; a nil logger discards debug output.
func NewSpotifyService(cfg shared.SpotifyConfig, client *http.Client, logger *log.Logger) (*SpotifyService, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client id and secret are required", shared.ErrMissingCredentials)
	}

	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	endpoint := spotify.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInHeader

	apiURL := spotifyBaseURL
	if cfg.APIURL != "" {
		apiURL = cfg.APIURL
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &SpotifyService{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       SpotifyScopes,
			Endpoint:     endpoint,
		},
		apiURL:     apiURL,
		httpClient: client,
		limiter:    rate.NewLimiter(limit, 1),
		timeout:    timeout,
		logger:     shared.WithLogger(logger, "service", "spotify"),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthCodeURL returns the Spotify authorization URL for user login.
func (s *SpotifyService) AuthCodeURL(state, redirectURI string) string {
	cfg := s.config
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token with exactly one POST to the token endpoint.
//
// The token endpoint is not retried: authorization codes are single use.
func (s *SpotifyService) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	cfg := s.config
	cfg.RedirectURL = redirectURI

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	started := time.Now()
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		kind := classifyTransportError(err)
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			kind = shared.ErrUpstreamProtocol
			status := 0
			if retrieveErr.Response != nil {
				status = retrieveErr.Response.StatusCode
			}
			s.logger.Warn("token exchange rejected", "status", status, "code", retrieveErr.ErrorCode)
		} else {
			s.logger.Warn("token exchange failed", "error", err, "duration", time.Since(started))
		}
		return nil, fmt.Errorf("%w: token exchange: %v", kind, err)
	}

	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response missing access_token", shared.ErrUpstreamProtocol)
	}

	s.logger.Debug("token exchange complete", "duration", time.Since(started), "expires", token.Expiry)
	return token, nil
}

// UserPlaylists retrieves one page of the token owner's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, accessToken string, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > playlistPageSize {
		limit = playlistPageSize
	}

	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

	var response SpotifyPaginatedPlaylists
	if err := s.get(ctx, accessToken, endpoint, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// GetPlaylists retrieves all playlists for the token owner, following pagination.
func (s *SpotifyService) GetPlaylists(ctx context.Context, accessToken string) ([]models.ProviderPlaylist, error) {
	all := []models.ProviderPlaylist{}
	offset := 0

	for page := 0; page < maxPlaylistPages; page++ {
		response, err := s.UserPlaylists(ctx, accessToken, playlistPageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, sp := range response.Items {
			all = append(all, toProviderPlaylist(sp))
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += len(response.Items)
	}

	return all, nil
}

func toProviderPlaylist(sp SpotifySimplePlaylist) models.ProviderPlaylist {
	p := models.ProviderPlaylist{
		ID:         sp.ID,
		Name:       sp.Name,
		Owner:      sp.Owner.DisplayName,
		TrackCount: sp.Tracks.Total,
		Public:     sp.Public,
	}
	if len(sp.Images) > 0 {
		p.ImgURL = sp.Images[0].URL
	}
	return p
}

// get performs an authenticated, rate limited GET against the Web API and decodes the JSON body into result.
//
// Network errors, 5xx and 429 responses are retried once.
func (s *SpotifyService) get(ctx context.Context, accessToken, endpoint string, result any) error {
	if accessToken == "" {
		return shared.ErrNotAuthenticated
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, lastRetryDelay(lastErr)); err != nil {
				return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
			}
		}

		retry, err := s.doGet(ctx, accessToken, endpoint, result)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
		s.logger.Debug("retrying spotify request", "endpoint", endpoint, "error", err)
	}

	return lastErr
}

// retryableError carries the delay the API asked for with a 429.
type retryableError struct {
	err   error
	after time.Duration
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func lastRetryDelay(err error) time.Duration {
	var re *retryableError
	if errors.As(err, &re) && re.after > 0 {
		return min(re.after, maxRetryAfter)
	}
	return retryDelay
}

func (s *SpotifyService) doGet(ctx context.Context, accessToken, endpoint string, result any) (retry bool, err error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.apiURL+endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
		}
		return true, fmt.Errorf("%w: request failed: %v", classifyTransportError(err), err)
	}
	defer resp.Body.Close()

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized:
		return false, shared.ErrTokenExpired
	case code == http.StatusTooManyRequests:
		return true, &retryableError{
			err:   fmt.Errorf("%w: spotify API rate limited", shared.ErrServiceUnavailable),
			after: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case code >= 500:
		return true, fmt.Errorf("%w: spotify API error: status %d", shared.ErrServiceUnavailable, code)
	case code < 200 || code >= 300:
		return false, fmt.Errorf("%w: spotify API error: status %d", shared.ErrUpstreamProtocol, code)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return false, fmt.Errorf("%w: failed to decode response: %v", shared.ErrUpstreamProtocol, err)
		}
	}

	return false, nil
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
