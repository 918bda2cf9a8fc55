// Package services defines the [Provider] interface for OAuth music services and implements it for Spotify.
//
// # Provider Interface
//
// The web server only talks to a provider through [Provider]: it builds the authorization URL,
// exchanges the returned code for an access token, and lists the user's playlists with that token.
// The redirect URI is passed on every call since it depends on the host the request arrived on.
//
// # Spotify Implementation
//
// [SpotifyService] uses [oauth2.Config] with client credentials sent as HTTP Basic auth.
// The code exchange is bounded by the configured request timeout and is never retried.
// Playlist listing is rate limited and retries once on network errors, 5xx and 429 responses.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrMissingCredentials] : client id or secret not configured
//   - [shared.ErrUpstreamProtocol] : the provider answered with an error or an unusable response
//   - [shared.ErrServiceUnavailable] : the provider could not be reached in time
//   - [shared.ErrTokenExpired] : the provider rejected the access token
package services
