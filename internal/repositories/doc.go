// Package repositories implements SQLite persistence for the playlistr domain entities.
//
// Every method takes a context so request cancellation reaches the database driver.
// Constraint violations are translated into the sentinel errors of package shared:
// a unique violation becomes [shared.ErrAlreadyExists] and a missing row [shared.ErrNotFound].
//
// Key Implementations:
//   - [UserRepository] : User accounts with email based credential lookups
//   - [PlaylistRepository] : Playlists joined with their owner's name for page rendering
//   - [SessionStore] : Server-side session records backing the cookie session manager
package repositories
