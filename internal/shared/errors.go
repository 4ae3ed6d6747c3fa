package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed      = fmt.Errorf("authentication failed")
	ErrLoginInProgress = fmt.Errorf("login already in progress")
	ErrUserCancelled   = fmt.Errorf("login window closed prematurely")

	// Callback server errors
	ErrBindFailed      = fmt.Errorf("failed to bind callback listener")
	ErrNoAvailablePort = fmt.Errorf("no candidate port available")
	ErrServerStopped   = fmt.Errorf("callback server stopped")

	// Provider errors
	ErrNetwork      = fmt.Errorf("network request failed")
	ErrProtocol     = fmt.Errorf("unexpected provider response")
	ErrMissingToken = fmt.Errorf("callback did not contain an access token")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
