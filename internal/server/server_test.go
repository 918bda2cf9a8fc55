package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/playlistr/internal/models"
	"github.com/desertthunder/playlistr/internal/repositories"
	"github.com/desertthunder/playlistr/internal/services"
	"github.com/desertthunder/playlistr/internal/shared"
)

const testFrontend = "https://playlists.example.com"

type testApp struct {
	t      *testing.T
	srv    *Server
	http   *httptest.Server
	db     *sql.DB
	client *http.Client
}

func newTestApp(t *testing.T, provider services.Provider) *testApp {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err)
	_, err = shared.RunMigrations(context.Background(), db)
	require.NoError(t, err)

	cfg := shared.DefaultConfig()
	cfg.Server.FrontendURI = testFrontend

	srv, err := New(Options{Config: cfg, DB: db, Provider: provider})
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		db.Close()
	})

	return &testApp{t: t, srv: srv, http: ts, db: db, client: newClient(t)}
}

// newClient returns a client with its own cookie jar that does not follow redirects.
func newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type reqOpt func(*http.Request)

func withJSON(r *http.Request) { r.Header.Set("Accept", "application/json") }

func withHost(host string) reqOpt {
	return func(r *http.Request) { r.Host = host }
}

func (a *testApp) do(method, path, body string, opts ...reqOpt) (*http.Response, string) {
	return a.doWith(a.client, method, path, body, opts...)
}

func (a *testApp) doWith(client *http.Client, method, path, body string, opts ...reqOpt) (*http.Response, string) {
	a.t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, a.http.URL+path, rdr)
	require.NoError(a.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := client.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)

	return resp, string(data)
}

func (a *testApp) seedUser(id int64, name, email, password string) *models.User {
	a.t.Helper()

	hash, err := shared.HashPassword(password)
	require.NoError(a.t, err)

	now := time.Now().UTC()
	_, err = a.db.Exec(
		"INSERT INTO users (id, name, email, password, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, name, email, hash, now, now,
	)
	require.NoError(a.t, err)

	return &models.User{ID: id, Name: name, Email: email}
}

func (a *testApp) seedPlaylist(userID int64, name, spotifyID string) *models.Playlist {
	a.t.Helper()

	p := models.NewPlaylist(userID, name, spotifyID, "")
	require.NoError(a.t, repositories.NewPlaylistRepository(a.db).Create(context.Background(), p))
	return p
}

func (a *testApp) login(email, password string) {
	a.t.Helper()

	resp, body := a.do(http.MethodPost, "/api/users/login", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(a.t, http.StatusOK, resp.StatusCode, body)
}

func decode[T any](t *testing.T, body string) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v), body)
	return v
}

func TestHomepage(t *testing.T) {
	app := newTestApp(t, nil)
	ada := app.seedUser(1, "Ada", "ada@example.com", "password1")
	bob := app.seedUser(2, "Bob", "bob@example.com", "password2")
	app.seedPlaylist(ada.ID, "Chill", "")
	app.seedPlaylist(bob.ID, "Rock", "")

	check := func(t *testing.T, client *http.Client, loggedIn bool) {
		resp, body := app.doWith(client, http.MethodGet, "/", "", withJSON)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		view := decode[struct {
			Playlists []models.PlaylistWithOwner `json:"playlists"`
			LoggedIn  bool                       `json:"logged_in"`
		}](t, body)

		require.Len(t, view.Playlists, 2)
		owners := map[string]string{}
		for _, p := range view.Playlists {
			owners[p.Name] = p.OwnerName
		}
		assert.Equal(t, map[string]string{"Chill": "Ada", "Rock": "Bob"}, owners)
		assert.Equal(t, loggedIn, view.LoggedIn)
	}

	t.Run("Anonymous", func(t *testing.T) {
		check(t, newClient(t), false)
	})

	t.Run("Logged In", func(t *testing.T) {
		app.login("ada@example.com", "password1")
		check(t, app.client, true)
	})

	t.Run("HTML", func(t *testing.T) {
		resp, body := app.do(http.MethodGet, "/", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
		assert.Contains(t, body, "by Ada")
		assert.Contains(t, body, "by Bob")
		assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
	})
}

func TestPlaylistPage(t *testing.T) {
	app := newTestApp(t, nil)
	ada := app.seedUser(1, "Ada", "ada@example.com", "password1")
	p := app.seedPlaylist(ada.ID, "Chill", "sp-1")

	t.Run("Found", func(t *testing.T) {
		resp, body := app.do(http.MethodGet, "/playlist/1", "", withJSON)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		view := decode[struct {
			Playlist models.PlaylistWithOwner `json:"playlist"`
		}](t, body)
		assert.Equal(t, p.ID, view.Playlist.ID)
		assert.Equal(t, "Ada", view.Playlist.OwnerName)
	})

	t.Run("Malformed ID", func(t *testing.T) {
		resp, body := app.do(http.MethodGet, "/playlist/abc", "", withJSON)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, decode[map[string]string](t, body)["error"], "playlist id")
	})

	t.Run("Unknown ID", func(t *testing.T) {
		resp, body := app.do(http.MethodGet, "/playlist/999", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Contains(t, body, "playlist not found")
	})
}

func TestProfile(t *testing.T) {
	app := newTestApp(t, nil)
	app.seedUser(42, "Grace", "grace@example.com", "password42")
	app.seedPlaylist(42, "Compilers", "")

	t.Run("Without Session Redirects", func(t *testing.T) {
		resp, _ := app.do(http.MethodGet, "/profile", "")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/login", resp.Header.Get("Location"))
	})

	t.Run("Without Session JSON", func(t *testing.T) {
		resp, body := app.do(http.MethodGet, "/profile", "", withJSON)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "authentication required", decode[map[string]string](t, body)["error"])
	})

	t.Run("With Session", func(t *testing.T) {
		app.login("grace@example.com", "password42")

		resp, body := app.do(http.MethodGet, "/profile", "", withJSON)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		view := decode[map[string]any](t, body)
		user, ok := view["user"].(map[string]any)
		require.True(t, ok, body)
		assert.EqualValues(t, 42, user["id"])
		assert.Equal(t, "Grace", user["name"])
		assert.NotContains(t, user, "password")
		assert.NotContains(t, body, "$2a$")
		assert.Equal(t, true, view["logged_in"])

		playlists, ok := view["playlists"].([]any)
		require.True(t, ok)
		assert.Len(t, playlists, 1)

		resp, body = app.do(http.MethodGet, "/profile", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Welcome, Grace!")
	})

	t.Run("Deleted User", func(t *testing.T) {
		_, err := app.db.Exec("DELETE FROM users WHERE id = 42")
		require.NoError(t, err)

		resp, _ := app.do(http.MethodGet, "/profile", "", withJSON)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestLoginPage(t *testing.T) {
	app := newTestApp(t, nil)
	app.seedUser(1, "Ada", "ada@example.com", "password1")

	resp, body := app.do(http.MethodGet, "/login", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="login-form"`)

	app.login("ada@example.com", "password1")

	resp, _ = app.do(http.MethodGet, "/login", "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile", resp.Header.Get("Location"))
}

func TestUserAPI(t *testing.T) {
	t.Run("Register Logs In", func(t *testing.T) {
		app := newTestApp(t, nil)

		resp, body := app.do(http.MethodPost, "/api/users", `{"name":"Ada","email":"Ada@Example.com","password":"longenough"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode, body)
		assert.NotContains(t, body, "password")

		user := decode[models.User](t, body)
		assert.Equal(t, "ada@example.com", user.Email)

		resp, _ = app.do(http.MethodGet, "/profile", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Register Duplicate", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.seedUser(1, "Ada", "ada@example.com", "password1")

		resp, body := app.do(http.MethodPost, "/api/users", `{"name":"Ada","email":"ada@example.com","password":"longenough"}`)
		assert.Equal(t, http.StatusConflict, resp.StatusCode, body)
	})

	t.Run("Register Validation", func(t *testing.T) {
		app := newTestApp(t, nil)

		tt := map[string]string{
			"short password": `{"name":"Ada","email":"ada@example.com","password":"short"}`,
			"long password":  `{"name":"Ada","email":"ada@example.com","password":"` + strings.Repeat("a", 80) + `"}`,
			"missing name":   `{"email":"ada@example.com","password":"longenough"}`,
			"bad email":      `{"name":"Ada","email":"nope","password":"longenough"}`,
			"malformed":      `{"name":`,
		}
		for name, payload := range tt {
			t.Run(name, func(t *testing.T) {
				resp, body := app.do(http.MethodPost, "/api/users", payload)
				assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
			})
		}
	})

	t.Run("Login Failures Look The Same", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.seedUser(1, "Ada", "ada@example.com", "password1")

		resp, wrong := app.do(http.MethodPost, "/api/users/login", `{"email":"ada@example.com","password":"nope"}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp, unknown := app.do(http.MethodPost, "/api/users/login", `{"email":"who@example.com","password":"nope"}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, wrong, unknown)
	})

	t.Run("Logout", func(t *testing.T) {
		app := newTestApp(t, nil)
		app.seedUser(1, "Ada", "ada@example.com", "password1")
		app.login("ada@example.com", "password1")

		resp, _ := app.do(http.MethodPost, "/api/users/logout", "")
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, _ = app.do(http.MethodGet, "/profile", "")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
	})
}

func TestPlaylistAPI(t *testing.T) {
	setup := func(t *testing.T) *testApp {
		app := newTestApp(t, nil)
		app.seedUser(1, "Ada", "ada@example.com", "password1")
		app.login("ada@example.com", "password1")
		return app
	}

	t.Run("Requires Session", func(t *testing.T) {
		app := newTestApp(t, nil)

		resp, body := app.do(http.MethodPost, "/api/playlist", `{"spotify_id":"77","name":"Chill"}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "authentication required", decode[map[string]string](t, body)["error"])
	})

	t.Run("Create", func(t *testing.T) {
		app := setup(t)

		resp, body := app.do(http.MethodPost, "/api/playlist", `{"spotify_id":"77","name":"Chill","img_url":"http://x/y.png"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode, body)

		p := decode[models.Playlist](t, body)
		assert.Equal(t, int64(1), p.UserID)
		assert.Equal(t, "77", p.SpotifyID)
		assert.Equal(t, "Chill", p.Name)
		assert.Equal(t, "http://x/y.png", p.ImgURL)

		resp, body = app.do(http.MethodGet, "/profile", "", withJSON)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `"spotify_id":"77"`)
	})

	t.Run("Duplicate Transfer", func(t *testing.T) {
		app := setup(t)
		payload := `{"spotify_id":"77","name":"Chill","img_url":"http://x/y.png"}`

		resp, _ := app.do(http.MethodPost, "/api/playlist", payload)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp, body := app.do(http.MethodPost, "/api/playlist", payload)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Contains(t, decode[map[string]string](t, body)["error"], "already exists")

		var count int
		require.NoError(t, app.db.QueryRow("SELECT COUNT(*) FROM playlists").Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("Validation", func(t *testing.T) {
		app := setup(t)

		tt := map[string]string{
			"missing spotify id": `{"name":"Chill"}`,
			"missing name":       `{"spotify_id":"77"}`,
			"relative image":     `{"spotify_id":"77","name":"Chill","img_url":"/y.png"}`,
			"script image":       `{"spotify_id":"77","name":"Chill","img_url":"javascript:alert(1)"}`,
			"not json":           `spotify_id=77`,
			"empty":              ``,
			"two objects":        `{"spotify_id":"77","name":"Chill"}{}`,
		}
		for name, payload := range tt {
			t.Run(name, func(t *testing.T) {
				resp, body := app.do(http.MethodPost, "/api/playlist", payload)
				assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
				assert.NotEmpty(t, decode[map[string]string](t, body)["error"])
			})
		}
	})

	t.Run("Body Too Large", func(t *testing.T) {
		app := setup(t)
		payload := `{"spotify_id":"77","name":"` + strings.Repeat("a", maxBodyBytes) + `"}`

		resp, body := app.do(http.MethodPost, "/api/playlist", payload)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "larger than")
	})

	t.Run("Wrong Method", func(t *testing.T) {
		app := setup(t)

		resp, _ := app.do(http.MethodGet, "/api/playlist", "", withJSON)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, _ = app.do(http.MethodPost, "/profile", "")
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Allow"), http.MethodGet)
	})
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	app := newTestApp(t, nil)
	require.NoError(t, app.db.Close())

	resp, body := app.doWith(newClient(t), http.MethodGet, "/", "", withJSON)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, map[string]string{"error": "internal server error"}, decode[map[string]string](t, body))
	assert.NotContains(t, body, "sql")

	resp, _ = app.doWith(newClient(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealthAndStatic(t *testing.T) {
	app := newTestApp(t, nil)

	resp, body := app.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	resp, body = app.do(http.MethodGet, "/js/playlistTransfer.js", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "/api/playlist")

	resp, _ = app.do(http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestIDIsPropagated(t *testing.T) {
	app := newTestApp(t, nil)

	resp, _ := app.do(http.MethodGet, "/health", "", func(r *http.Request) {
		r.Header.Set(requestIDHeader, "abc-123")
	})
	assert.Equal(t, "abc-123", resp.Header.Get(requestIDHeader))
}

func TestClassify(t *testing.T) {
	tt := []struct {
		err    error
		status int
	}{
		{shared.ErrNotAuthenticated, http.StatusUnauthorized},
		{shared.ErrInvalidCredentials, http.StatusUnauthorized},
		{shared.ErrPlaylistNotFound, http.StatusNotFound},
		{shared.ErrUserExists, http.StatusConflict},
		{shared.ErrInvalidInput, http.StatusBadRequest},
		{shared.ErrInvalidState, http.StatusBadRequest},
		{shared.ErrMissingCode, http.StatusBadRequest},
		{shared.ErrAuthorizationDenied, http.StatusBadRequest},
		{shared.ErrUpstreamProtocol, http.StatusBadGateway},
		{shared.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{shared.ErrMissingCredentials, http.StatusServiceUnavailable},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tc := range tt {
		t.Run(tc.err.Error(), func(t *testing.T) {
			status, message := classify(tc.err)
			assert.Equal(t, tc.status, status)
			assert.NotEmpty(t, message)
		})
	}
}
