package ui

import (
	"github.com/desertthunder/twlogin/internal/oauth"
	"github.com/desertthunder/twlogin/internal/shared"
)

var (
	_ oauth.Surface = BrowserSurface{}
	_ oauth.Surface = (*Prompt)(nil)
)

// BrowserSurface opens the login URL in the system browser. A browser tab cannot be closed from
// here, so Close does nothing.
type BrowserSurface struct{}

func (BrowserSurface) Open(loginURL string) error {
	return shared.OpenBrowser(loginURL)
}

func (BrowserSurface) Close() error { return nil }
