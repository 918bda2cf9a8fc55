// Package server provides HTTP routing, middleware, session handling and the OAuth flow for the playlistr web app.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("GET /playlist/{id}") internally.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// # OAuth Flow
//
// [OAuthHandler] implements the authorization code flow:
//
//	GET /spotify-login     → store a random state in the session, redirect to the provider
//	GET /callback          → verify and consume the state, exchange the code once, keep the token in the session
//	GET /spotify-playlists → list the provider playlists with the stored token
//
// The redirect base is chosen per request by [BaseURLs.For] so the authorization and token requests
// always carry the same redirect_uri.
//
// # Sessions
//
// Sessions are server side records (see repositories.SessionStore) referenced by an HttpOnly cookie.
// They hold logged_in, user_id, the pending OAuth state and the Spotify access token.
//
// # Errors
//
// Handlers return sentinel errors from package shared; classify maps them to status codes and safe messages.
// API and JSON clients receive {"error": "..."}; browsers get an error page.
package server
