package oauth

// Surface is the window (or terminal prompt) the user logs in through.
type Surface interface {
	// Open shows the surface pointed at loginURL.
	Open(loginURL string) error
	// Close dismisses the surface if it is still open. It must be safe to call more than once.
	Close() error
}
