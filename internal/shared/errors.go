package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrNotAuthenticated    = fmt.Errorf("not authenticated")
	ErrInvalidCredentials  = fmt.Errorf("invalid credentials")
	ErrTokenExpired        = fmt.Errorf("access token expired")
	ErrInvalidState        = fmt.Errorf("invalid state parameter")
	ErrMissingCode         = fmt.Errorf("missing authorization code")
	ErrAuthorizationDenied = fmt.Errorf("authorization denied")

	// API and service errors
	ErrUpstreamProtocol   = fmt.Errorf("upstream protocol error")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Persistence errors
	ErrNotFound         = fmt.Errorf("not found")
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrPlaylistNotFound = fmt.Errorf("playlist %w", ErrNotFound)
	ErrAlreadyExists    = fmt.Errorf("already exists")
	ErrUserExists       = fmt.Errorf("user %w", ErrAlreadyExists)
	ErrPlaylistExists   = fmt.Errorf("playlist %w", ErrAlreadyExists)

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
