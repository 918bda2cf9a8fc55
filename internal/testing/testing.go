// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/url"
	"os"
	"sync"
	"testing"

	"golang.org/x/oauth2"

	"github.com/desertthunder/playlistr/internal/models"
)

// ExchangeCall records one call to [MockProvider.Exchange].
type ExchangeCall struct {
	Code        string
	RedirectURI string
}

// MockProvider is a test double for services.Provider
type MockProvider struct {
	mu sync.Mutex

	Token        *oauth2.Token
	ExchangeErr  error
	Playlists    []models.ProviderPlaylist
	PlaylistsErr error

	exchanges    []ExchangeCall
	accessTokens []string
}

func (m *MockProvider) Name() string { return "mock" }

// AuthCodeURL returns a URL on provider.test carrying state and redirect_uri.
func (m *MockProvider) AuthCodeURL(state, redirectURI string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("state", state)
	q.Set("redirect_uri", redirectURI)
	return "https://provider.test/authorize?" + q.Encode()
}

func (m *MockProvider) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchanges = append(m.exchanges, ExchangeCall{Code: code, RedirectURI: redirectURI})
	return m.Token, m.ExchangeErr
}

func (m *MockProvider) GetPlaylists(ctx context.Context, accessToken string) ([]models.ProviderPlaylist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessTokens = append(m.accessTokens, accessToken)
	return m.Playlists, m.PlaylistsErr
}

// Exchanges returns every recorded Exchange call.
func (m *MockProvider) Exchanges() []ExchangeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExchangeCall(nil), m.exchanges...)
}

// AccessTokens returns the tokens GetPlaylists was called with.
func (m *MockProvider) AccessTokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.accessTokens...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
