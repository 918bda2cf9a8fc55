package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/playlistr/internal/shared"
)

const testRedirect = "http://localhost:3001/callback"

func newTestService(t *testing.T, tokenURL, apiURL string, timeout time.Duration) *SpotifyService {
	t.Helper()

	srv, err := NewSpotifyService(shared.SpotifyConfig{
		ClientID:       "test_client_id",
		ClientSecret:   "test_client_secret",
		TokenURL:       tokenURL,
		APIURL:         apiURL,
		RequestTimeout: timeout,
	}, nil, nil)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return srv
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv := newTestService(t, "", "", 0)

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}

			if srv.timeout != defaultRequestTimeout {
				t.Errorf("expected default timeout, got %s", srv.timeout)
			}

			var _ Provider = srv
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(shared.SpotifyConfig{ClientSecret: "secret"}, nil, nil)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(shared.SpotifyConfig{ClientID: "id"}, nil, nil)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("AuthCodeURL", func(t *testing.T) {
		srv := newTestService(t, "", "", 0)

		authURL, err := url.Parse(srv.AuthCodeURL("test_state", testRedirect))
		if err != nil {
			t.Fatalf("auth URL should parse: %v", err)
		}

		if authURL.Host != "accounts.spotify.com" || authURL.Path != "/authorize" {
			t.Errorf("expected Spotify authorize endpoint, got %s", authURL)
		}

		q := authURL.Query()
		expected := map[string]string{
			"response_type": "code",
			"client_id":     "test_client_id",
			"scope":         "user-read-private user-read-email user-library-read",
			"redirect_uri":  testRedirect,
			"state":         "test_state",
		}
		for k, want := range expected {
			if got := q.Get(k); got != want {
				t.Errorf("expected %s=%q, got %q", k, want, got)
			}
		}
	})
}

func TestSpotifyExchange(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)

			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}

			auth := strings.TrimPrefix(r.Header.Get("Authorization"), "Basic ")
			decoded, err := base64.StdEncoding.DecodeString(auth)
			if err != nil || string(decoded) != "test_client_id:test_client_secret" {
				t.Errorf("expected basic auth client_id:client_secret, got %q", decoded)
			}

			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse form: %v", err)
			}
			if r.PostForm.Get("code") != "abc" {
				t.Errorf("expected code abc, got %q", r.PostForm.Get("code"))
			}
			if r.PostForm.Get("redirect_uri") != testRedirect {
				t.Errorf("expected redirect_uri %s, got %q", testRedirect, r.PostForm.Get("redirect_uri"))
			}
			if r.PostForm.Get("grant_type") != "authorization_code" {
				t.Errorf("expected authorization_code grant, got %q", r.PostForm.Get("grant_type"))
			}

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
		}))
		defer server.Close()

		srv := newTestService(t, server.URL, "", time.Second)

		token, err := srv.Exchange(ctx, "abc", testRedirect)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if token.AccessToken != "tok" {
			t.Errorf("expected access token tok, got %s", token.AccessToken)
		}
		if token.Expiry.IsZero() {
			t.Error("expected expiry to be derived from expires_in")
		}
		if calls.Load() != 1 {
			t.Errorf("expected exactly one token request, got %d", calls.Load())
		}
	})

	tt := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "Missing Access Token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"token_type":"Bearer"}`)
			},
			want: shared.ErrUpstreamProtocol,
		},
		{
			name: "Invalid Grant",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error":"invalid_grant","error_description":"Invalid authorization code"}`)
			},
			want: shared.ErrUpstreamProtocol,
		},
		{
			name: "Server Error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: shared.ErrUpstreamProtocol,
		},
		{
			name: "Timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			want: shared.ErrServiceUnavailable,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tc.handler(w, r)
			}))
			defer server.Close()

			srv := newTestService(t, server.URL, "", 100*time.Millisecond)

			token, err := srv.Exchange(ctx, "abc", testRedirect)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if token != nil {
				t.Error("expected no token on failure")
			}
			if calls.Load() != 1 {
				t.Errorf("token exchange must not be retried, got %d requests", calls.Load())
			}
		})
	}

	t.Run("Unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		tokenURL := server.URL
		server.Close()

		srv := newTestService(t, tokenURL, "", time.Second)

		if _, err := srv.Exchange(ctx, "abc", testRedirect); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestSpotifyGetPlaylists(t *testing.T) {
	ctx := context.Background()

	t.Run("Pagination", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)

			if r.URL.Path != "/me/playlists" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer tok" {
				t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
			}

			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Query().Get("offset") {
			case "0":
				fmt.Fprint(w, `{"items":[{"id":"p1","name":"One","owner":{"display_name":"Ada"},"tracks":{"total":3},"images":[{"url":"https://i.scdn.co/image/1"}]}],"next":"page-2","total":2}`)
			case "1":
				fmt.Fprint(w, `{"items":[{"id":"p2","name":"Two","public":true,"tracks":{"total":9},"images":[]}],"next":null,"total":2}`)
			default:
				t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
			}
		}))
		defer server.Close()

		srv := newTestService(t, "", server.URL, time.Second)

		playlists, err := srv.GetPlaylists(ctx, "tok")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(playlists) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(playlists))
		}
		if playlists[0].ImgURL != "https://i.scdn.co/image/1" || playlists[0].Owner != "Ada" {
			t.Errorf("unexpected first playlist: %+v", playlists[0])
		}
		if playlists[1].ImgURL != "" || !playlists[1].Public || playlists[1].TrackCount != 9 {
			t.Errorf("unexpected second playlist: %+v", playlists[1])
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 page requests, got %d", calls.Load())
		}
	})

	t.Run("Expired Token", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		srv := newTestService(t, "", server.URL, time.Second)

		if _, err := srv.GetPlaylists(ctx, "tok"); !errors.Is(err, shared.ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("401 should not be retried, got %d requests", calls.Load())
		}
	})

	t.Run("Retries Once On 5xx", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"items":[],"next":null}`)
		}))
		defer server.Close()

		srv := newTestService(t, "", server.URL, time.Second)

		playlists, err := srv.GetPlaylists(ctx, "tok")
		if err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if len(playlists) != 0 {
			t.Errorf("expected no playlists, got %d", len(playlists))
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 requests, got %d", calls.Load())
		}
	})

	t.Run("Gives Up After Retry", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		srv := newTestService(t, "", server.URL, time.Second)

		if _, err := srv.GetPlaylists(ctx, "tok"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("expected exactly one retry, got %d requests", calls.Load())
		}
	})

	t.Run("Client Error Not Retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		srv := newTestService(t, "", server.URL, time.Second)

		if _, err := srv.GetPlaylists(ctx, "tok"); !errors.Is(err, shared.ErrUpstreamProtocol) {
			t.Fatalf("expected ErrUpstreamProtocol, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 request, got %d", calls.Load())
		}
	})

	t.Run("Missing Token", func(t *testing.T) {
		srv := newTestService(t, "", "http://127.0.0.1:0", time.Second)

		if _, err := srv.GetPlaylists(ctx, ""); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	tt := []struct {
		in   string
		want time.Duration
	}{
		{in: "3", want: 3 * time.Second},
		{in: "", want: 0},
		{in: "soon", want: 0},
		{in: "-1", want: 0},
	}

	for _, tc := range tt {
		if got := parseRetryAfter(tc.in); got != tc.want {
			t.Errorf("parseRetryAfter(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}

	if got := lastRetryDelay(&retryableError{err: errors.New("x"), after: time.Minute}); got != maxRetryAfter {
		t.Errorf("expected retry delay to be capped, got %s", got)
	}
}
