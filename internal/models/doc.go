// Package models defines domain entities and persistence interfaces for the playlistr web service.
//
// The package contains two kinds of types:
//
// 1. Persistent Entities: rows of the SQLite database
//   - [User] : Accounts that own playlists; the bcrypt password hash never leaves the server
//   - [Playlist] : Playlists owned by a user, optionally linked to a Spotify playlist id
//
// 2. Views: read-side projections assembled by joins
//   - [PlaylistWithOwner] : A playlist together with its owner's display name
//   - [ProviderPlaylist] : A playlist as reported by an external music service, before it is stored
//
// Persistent entities implement [Model] so repositories can validate them before writing.
// The [Repository] interface describes the create/read operations every repository supports.
package models
