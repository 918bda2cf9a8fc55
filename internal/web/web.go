// Package web renders the playlistr pages and serves their static assets.
//
// # Templates
//
// Every page template is parsed together with layout.html, which provides the document shell,
// navigation and the shared "playlistCard" partial. Pages define "title" and "content" and may
// override the "scripts" block.
//
//   - homepage.html: every stored playlist with its owner's name
//   - playlist.html: a single playlist
//   - profile.html: the logged in user and the playlists they own
//   - login.html: login and sign up forms
//   - spotify-playlists.html: the user's Spotify playlists with Add buttons
//   - error.html: status page for failures
//
// # Static Assets
//
// static/js/playlistTransfer.js handles the Add buttons; static/js/session.js drives the
// login, sign up and logout calls against the JSON API.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

// Page names accepted by [Renderer.Render].
const (
	PageHome             = "homepage"
	PagePlaylist         = "playlist"
	PageProfile          = "profile"
	PageLogin            = "login"
	PageSpotifyPlaylists = "spotify-playlists"
	PageError            = "error"
)

var pages = []string{PageHome, PagePlaylist, PageProfile, PageLogin, PageSpotifyPlaylists, PageError}

// Renderer executes the embedded page templates.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses every page template with the shared layout.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template, len(pages))}

	for _, page := range pages {
		tmpl, err := template.New(page).ParseFS(templateFiles,
			path.Join("templates", "layout.html"),
			path.Join("templates", page+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		r.templates[page] = tmpl
	}

	return r, nil
}

// Render writes page with data and the given status code.
//
// The page is rendered into a buffer first so a template error never leaves a half written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	tmpl, ok := r.templates[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Static returns a handler serving the embedded assets (e.g. /js/playlistTransfer.js) from the site root.
func Static() http.Handler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("embedded static directory missing: %v", err))
	}
	return http.FileServerFS(sub)
}
